package user

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"sync"
	"testing"
	"time"

	"shoe_market_backend/internal/auth"
	"shoe_market_backend/internal/common"
	"shoe_market_backend/internal/config"
	"shoe_market_backend/internal/filestorage"
	"shoe_market_backend/internal/platform/database"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type recordingNotifier struct {
	mu       sync.Mutex
	welcomes []string
	logins   []string
}

func (n *recordingNotifier) SendWelcome(ctx context.Context, u *User) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.welcomes = append(n.welcomes, u.Email)
}

func (n *recordingNotifier) SendLoginAlert(ctx context.Context, u *User) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.logins = append(n.logins, u.Email)
}

type fixedSummarizer struct {
	summary *SellerReviewSummary
}

func (f fixedSummarizer) SummarizeSeller(ctx context.Context, sellerID uuid.UUID, recent int) (*SellerReviewSummary, error) {
	if f.summary == nil {
		return &SellerReviewSummary{}, nil
	}
	return f.summary, nil
}

type recordingSellerIndex struct {
	mu      sync.Mutex
	sellers []uuid.UUID
}

func (r *recordingSellerIndex) DeleteBySeller(ctx context.Context, sellerID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sellers = append(r.sellers, sellerID)
	return nil
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

type testEnv struct {
	db       *gorm.DB
	repo     Repository
	svc      *ServiceImplementation
	notifier *recordingNotifier
	signer   *auth.LinkSigner
	clock    *fakeClock
	media    *filestorage.FileStorageService
	index    *recordingSellerIndex
}

func newTestEnv(t *testing.T, summary *SellerReviewSummary) *testEnv {
	t.Helper()
	db, err := database.NewInMemorySQLite("user_" + uuid.NewString())
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db, &User{}, &Profile{}))
	t.Cleanup(func() { database.CloseGORMDB(db) })

	cfg := &config.Config{LinkSigningSecret: "0123456789abcdef0123456789abcdef", EmergencyLinkTTL: 24 * time.Hour}
	signer, err := auth.NewLinkSigner(cfg, auth.NewMemoryUsedLinks(cfg.EmergencyLinkTTL))
	require.NoError(t, err)
	clock := &fakeClock{t: time.Now()}
	signer.WithClock(clock.Now)

	media, cleanup, err := filestorage.Open(context.Background(), "mem://", "http://media.test", 1<<20, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(cleanup)

	repo := NewGORMRepository(db)
	notifier := &recordingNotifier{}
	index := &recordingSellerIndex{}
	svc := NewService(repo, fixedSummarizer{summary: summary}, notifier, signer, media, index, zap.NewNop())
	return &testEnv{db: db, repo: repo, svc: svc, notifier: notifier, signer: signer, clock: clock, media: media, index: index}
}

func TestResolveVerifiedEmail_ProvisionsUserWithProfile(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	p, err := env.svc.ResolveVerifiedEmail(ctx, "  Alice@Example.com ")
	require.NoError(t, err)
	assert.True(t, p.Created)
	assert.Equal(t, "alice@example.com", p.Email)
	assert.Equal(t, "alice@example.com", p.Username)

	u, err := env.repo.FindByID(ctx, p.UserID)
	require.NoError(t, err)
	require.NotNil(t, u.Profile)
	assert.Equal(t, u.ID, u.Profile.UserID)
	assert.False(t, u.Profile.IsVerified)
	assert.Equal(t, []string{"alice@example.com"}, env.notifier.welcomes)

	again, err := env.svc.ResolveVerifiedEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.False(t, again.Created)
	assert.Equal(t, p.UserID, again.UserID)
	assert.Len(t, env.notifier.welcomes, 1, "welcome is sent once per account")

	var profiles int64
	require.NoError(t, env.db.Model(&Profile{}).Count(&profiles).Error)
	assert.EqualValues(t, 1, profiles)
}

func TestResolveVerifiedEmail_ConcurrentFirstSight(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	const n = 8
	ids := make([]uuid.UUID, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := env.svc.ResolveVerifiedEmail(ctx, "race@example.com")
			errs[i] = err
			if p != nil {
				ids[i] = p.UserID
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}
	var users int64
	require.NoError(t, env.db.Model(&User{}).Count(&users).Error)
	assert.EqualValues(t, 1, users)
	assert.Len(t, env.notifier.welcomes, 1)
}

func TestGetProfile(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	env := newTestEnv(t, &SellerReviewSummary{
		Rating: 4.0,
		Count:  3,
		Recent: []ReviewSnippet{{ReviewerUsername: "bob@example.com", Rating: 4, Comment: "ok", CreatedAt: created}},
	})
	ctx := context.Background()
	p, err := env.svc.ResolveVerifiedEmail(ctx, "seller@example.com")
	require.NoError(t, err)

	profile, err := env.svc.GetProfile(ctx, "seller@example.com")
	require.NoError(t, err)
	assert.Equal(t, p.UserID, profile.UserID)
	assert.Equal(t, 4.0, profile.SellerRating)
	assert.EqualValues(t, 3, profile.ReviewCount)
	require.Len(t, profile.ReviewsList, 1)
	assert.Equal(t, "bob@example.com", profile.ReviewsList[0].ReviewerUsername)

	_, err = env.svc.GetProfile(ctx, "nobody")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestUpdateProfile_OwnershipRules(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	owner, err := env.svc.ResolveVerifiedEmail(ctx, "owner@example.com")
	require.NoError(t, err)
	other, err := env.svc.ResolveVerifiedEmail(ctx, "other@example.com")
	require.NoError(t, err)

	loc := "Berlin"
	req := UpdateProfileRequest{Location: &loc}

	_, err = env.svc.UpdateProfile(ctx, nil, "owner@example.com", req, nil)
	assert.ErrorIs(t, err, common.ErrUnauthorized)

	_, err = env.svc.UpdateProfile(ctx, &other.UserID, "owner@example.com", req, nil)
	assert.ErrorIs(t, err, common.ErrForbidden)

	updated, err := env.svc.UpdateProfile(ctx, &owner.UserID, "owner@example.com", req, nil)
	require.NoError(t, err)
	assert.Equal(t, "Berlin", updated.Location)
	assert.Empty(t, updated.PhoneNumber)
}

func TestUpdateProfile_AvatarReplaced(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	owner, err := env.svc.ResolveVerifiedEmail(ctx, "owner@example.com")
	require.NoError(t, err)

	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")
	first, err := env.svc.UpdateProfile(ctx, &owner.UserID, "owner@example.com", UpdateProfileRequest{}, avatarHeader(t, png))
	require.NoError(t, err)
	require.NotNil(t, first.Avatar)

	second, err := env.svc.UpdateProfile(ctx, &owner.UserID, "owner@example.com", UpdateProfileRequest{}, avatarHeader(t, png))
	require.NoError(t, err)
	require.NotNil(t, second.Avatar)
	assert.NotEqual(t, *first.Avatar, *second.Avatar)

	oldExists, err := env.media.Exists(ctx, *first.Avatar)
	require.NoError(t, err)
	assert.False(t, oldExists)

	_, err = env.svc.UpdateProfile(ctx, &owner.UserID, "owner@example.com", UpdateProfileRequest{}, avatarHeader(t, []byte("plain text")))
	apiErr, ok := common.IsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, 422, apiErr.StatusCode)
	assert.Contains(t, apiErr.Details, "avatar")
}

func avatarHeader(t *testing.T, content []byte) *multipart.FileHeader {
	t.Helper()
	body := new(bytes.Buffer)
	w := multipart.NewWriter(body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="avatar"; filename="a.png"`)
	h.Set("Content-Type", "image/png")
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	form, err := multipart.NewReader(body, w.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	return form.File["avatar"][0]
}

func TestStartSession_SendsLoginAlert(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	p, err := env.svc.ResolveVerifiedEmail(ctx, "login@example.com")
	require.NoError(t, err)

	me, err := env.svc.StartSession(ctx, p.UserID)
	require.NoError(t, err)
	assert.NotNil(t, me.LastLoginAt)
	assert.Equal(t, []string{"login@example.com"}, env.notifier.logins)

	_, err = env.svc.StartSession(ctx, uuid.New())
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestDeleteWithEmergencyToken(t *testing.T) {
	ctx := context.Background()

	t.Run("valid link deletes once", func(t *testing.T) {
		env := newTestEnv(t, nil)
		p, err := env.svc.ResolveVerifiedEmail(ctx, "victim@example.com")
		require.NoError(t, err)
		token, err := env.signer.Sign(p.UserID)
		require.NoError(t, err)

		env.clock.t = env.clock.t.Add(time.Hour)
		require.NoError(t, env.svc.DeleteWithEmergencyToken(ctx, token))

		_, err = env.repo.FindByID(ctx, p.UserID)
		assert.ErrorIs(t, err, common.ErrNotFound)
		var profiles int64
		require.NoError(t, env.db.Model(&Profile{}).Where("user_id = ?", p.UserID).Count(&profiles).Error)
		assert.Zero(t, profiles)
		assert.Equal(t, []uuid.UUID{p.UserID}, env.index.sellers, "the seller's shoes leave the search index")

		err = env.svc.DeleteWithEmergencyToken(ctx, token)
		assert.ErrorIs(t, err, common.ErrInvalidLink)
		assert.Len(t, env.index.sellers, 1)
	})

	t.Run("expired link", func(t *testing.T) {
		env := newTestEnv(t, nil)
		p, err := env.svc.ResolveVerifiedEmail(ctx, "late@example.com")
		require.NoError(t, err)
		token, err := env.signer.Sign(p.UserID)
		require.NoError(t, err)

		env.clock.t = env.clock.t.Add(25 * time.Hour)
		err = env.svc.DeleteWithEmergencyToken(ctx, token)
		assert.ErrorIs(t, err, common.ErrInvalidLink)

		_, err = env.repo.FindByID(ctx, p.UserID)
		assert.NoError(t, err, "user survives an expired link")
	})

	t.Run("unknown user", func(t *testing.T) {
		env := newTestEnv(t, nil)
		token, err := env.signer.Sign(uuid.New())
		require.NoError(t, err)
		assert.ErrorIs(t, env.svc.DeleteWithEmergencyToken(ctx, token), common.ErrInvalidLink)
	})

	t.Run("garbage", func(t *testing.T) {
		env := newTestEnv(t, nil)
		err := env.svc.DeleteWithEmergencyToken(ctx, fmt.Sprintf("%x", 12345))
		apiErr, ok := common.IsAPIError(err)
		require.True(t, ok)
		assert.Equal(t, 400, apiErr.StatusCode)
		assert.Equal(t, "Invalid or expired link.", apiErr.Message)
	})
}
