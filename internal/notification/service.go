package notification

import (
	"context"
	"strings"
	"time"

	"shoe_market_backend/internal/config"
	"shoe_market_backend/internal/user"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LinkIssuer signs emergency-delete links.
type LinkIssuer interface {
	Sign(userID uuid.UUID) (string, error)
}

// Queue accepts jobs without blocking. *Dispatcher implements it.
type Queue interface {
	Enqueue(job Job) bool
}

// Service renders lifecycle emails and hands them to the queue. It is the
// user package's Notifier.
type Service struct {
	queue       Queue
	links       LinkIssuer
	frontendURL string
	apiURL      string
	linkTTL     time.Duration
	logger      *zap.Logger
	now         func() time.Time
}

var _ user.Notifier = (*Service)(nil)

// NewService creates the lifecycle email service.
func NewService(cfg *config.Config, queue Queue, links LinkIssuer, logger *zap.Logger) *Service {
	ttl := cfg.EmergencyLinkTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Service{
		queue:       queue,
		links:       links,
		frontendURL: cfg.FrontendURL,
		apiURL:      strings.TrimRight(cfg.PublicAPIURL, "/"),
		linkTTL:     ttl,
		logger:      logger.Named("NotificationService"),
		now:         time.Now,
	}
}

// EmergencyDeleteURL is the link embedded in the welcome email.
func (s *Service) EmergencyDeleteURL(token string) string {
	return s.apiURL + "/api/v1/delete-emergency/" + token
}

// SendWelcome queues the welcome email with a fresh emergency-delete link.
func (s *Service) SendWelcome(ctx context.Context, u *user.User) {
	token, err := s.links.Sign(u.ID)
	if err != nil {
		s.logger.Error("Failed to sign emergency delete link", zap.String("userID", u.ID.String()), zap.Error(err))
		return
	}
	msg, err := renderWelcome(u.Email, welcomeData{
		Username:    u.Username,
		FrontendURL: s.frontendURL,
		DeleteURL:   s.EmergencyDeleteURL(token),
		LinkHours:   int(s.linkTTL.Hours()),
	})
	if err != nil {
		s.logger.Error("Failed to render welcome email", zap.Error(err))
		return
	}
	s.enqueue(KindWelcome, u, msg)
}

// SendLoginAlert queues the new-login security email.
func (s *Service) SendLoginAlert(ctx context.Context, u *user.User) {
	msg, err := renderLoginAlert(u.Email, loginAlertData{
		Username:    u.Username,
		FrontendURL: s.frontendURL,
		When:        s.now().UTC().Format("2006-01-02 15:04 MST"),
	})
	if err != nil {
		s.logger.Error("Failed to render login alert email", zap.Error(err))
		return
	}
	s.enqueue(KindLoginAlert, u, msg)
}

func (s *Service) enqueue(kind EmailKind, u *user.User, msg Message) {
	userID := u.ID
	if !s.queue.Enqueue(Job{Kind: kind, UserID: &userID, Message: msg}) {
		s.logger.Warn("Email not queued", zap.String("kind", string(kind)), zap.String("userID", u.ID.String()))
	}
}
