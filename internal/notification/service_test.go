package notification

import (
	"context"
	"regexp"
	"testing"
	"time"

	"shoe_market_backend/internal/auth"
	"shoe_market_backend/internal/config"
	"shoe_market_backend/internal/user"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type captureQueue struct {
	jobs []Job
	full bool
}

func (q *captureQueue) Enqueue(job Job) bool {
	if q.full {
		return false
	}
	q.jobs = append(q.jobs, job)
	return true
}

func newTestService(t *testing.T) (*Service, *captureQueue, *auth.LinkSigner) {
	t.Helper()
	cfg := &config.Config{
		LinkSigningSecret: "0123456789abcdef0123456789abcdef",
		EmergencyLinkTTL:  24 * time.Hour,
		FrontendURL:       "https://shoesteraj.pages.dev/",
		PublicAPIURL:      "https://api.example.com/",
	}
	signer, err := auth.NewLinkSigner(cfg, auth.NewMemoryUsedLinks(cfg.EmergencyLinkTTL))
	require.NoError(t, err)
	queue := &captureQueue{}
	return NewService(cfg, queue, signer, zap.NewNop()), queue, signer
}

var deleteLink = regexp.MustCompile(`https://api\.example\.com/api/v1/delete-emergency/([A-Za-z0-9_\-.]+)`)

func TestSendWelcome_ContainsVerifiableDeleteLink(t *testing.T) {
	svc, queue, signer := newTestService(t)
	u := &user.User{Username: "alice@example.com", Email: "alice@example.com"}
	u.ID = uuid.New()

	svc.SendWelcome(context.Background(), u)

	require.Len(t, queue.jobs, 1)
	job := queue.jobs[0]
	assert.Equal(t, KindWelcome, job.Kind)
	assert.Equal(t, u.ID, *job.UserID)
	assert.Equal(t, "alice@example.com", job.Message.To)
	assert.Equal(t, "Welcome to ShoeSteraj", job.Message.Subject)
	assert.Contains(t, job.Message.Text, "https://shoesteraj.pages.dev/")
	assert.Contains(t, job.Message.Text, "24 hours")
	assert.Contains(t, job.Message.HTML, "<strong>ShoeSteraj</strong>")

	m := deleteLink.FindStringSubmatch(job.Message.Text)
	require.Len(t, m, 2)
	claims, err := signer.Verify(context.Background(), m[1])
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID)
}

func TestSendLoginAlert(t *testing.T) {
	svc, queue, _ := newTestService(t)
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC) }
	u := &user.User{Username: "bob<script>", Email: "bob@example.com"}
	u.ID = uuid.New()

	svc.SendLoginAlert(context.Background(), u)

	require.Len(t, queue.jobs, 1)
	msg := queue.jobs[0].Message
	assert.Equal(t, "Security Alert: New Login to ShoeSteraj", msg.Subject)
	assert.Contains(t, msg.Text, "2026-03-01 09:30 UTC")
	assert.NotContains(t, msg.HTML, "<script>")
	assert.Contains(t, msg.HTML, "bob&lt;script&gt;")
}

func TestSendWelcome_FullQueueIsNotAnError(t *testing.T) {
	svc, queue, _ := newTestService(t)
	queue.full = true
	u := &user.User{Username: "c@example.com", Email: "c@example.com"}
	u.ID = uuid.New()

	assert.NotPanics(t, func() { svc.SendWelcome(context.Background(), u) })
	assert.Empty(t, queue.jobs)
}

func TestNewMailer_LogOnlyWithoutHost(t *testing.T) {
	mailer, err := NewMailer(&config.Config{}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &LogMailer{}, mailer)
	assert.NoError(t, mailer.Send(context.Background(), Message{To: "x@example.com", Subject: "s"}))

	smtp, err := NewMailer(&config.Config{SMTPHost: "smtp.example.com", SMTPPort: 587, EmailFrom: "noreply@example.com"}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &SMTPMailer{}, smtp)
}
