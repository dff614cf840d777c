package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shoe_market_backend/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	emergencyDeleteAudience = "emergency-delete"
	linkIssuer              = "shoe-market"
)

// ErrLinkInvalid covers every reason a signed link is refused.
var ErrLinkInvalid = errors.New("auth: invalid or expired link")

// LinkClaims is the verified content of an emergency-delete link.
type LinkClaims struct {
	UserID    uuid.UUID
	JTI       string
	ExpiresAt time.Time
}

type linkClaims struct {
	jwt.RegisteredClaims
}

// LinkSigner issues and verifies HS256-signed, time-limited, single-use links.
type LinkSigner struct {
	secret []byte
	ttl    time.Duration
	used   UsedLinkStore
	now    func() time.Time
}

// NewLinkSigner creates a signer from LINK_SIGNING_SECRET and EMERGENCY_LINK_TTL_HOURS.
func NewLinkSigner(cfg *config.Config, used UsedLinkStore) (*LinkSigner, error) {
	if len(cfg.LinkSigningSecret) < 32 {
		return nil, errors.New("auth: link signing secret must be at least 32 characters")
	}
	ttl := cfg.EmergencyLinkTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &LinkSigner{
		secret: []byte(cfg.LinkSigningSecret),
		ttl:    ttl,
		used:   used,
		now:    time.Now,
	}, nil
}

// WithClock replaces the time source. Used by tests.
func (s *LinkSigner) WithClock(now func() time.Time) *LinkSigner {
	s.now = now
	return s
}

// Sign creates an emergency-delete token bound to userID and the issue time.
func (s *LinkSigner) Sign(userID uuid.UUID) (string, error) {
	now := s.now()
	c := linkClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    linkIssuer,
			Subject:   userID.String(),
			Audience:  jwt.ClaimStrings{emergencyDeleteAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing link: %w", err)
	}
	return signed, nil
}

// Verify checks signature, algorithm, audience, expiry and single use.
// All failures are reported as ErrLinkInvalid.
func (s *LinkSigner) Verify(ctx context.Context, token string) (*LinkClaims, error) {
	parsed, err := jwt.ParseWithClaims(token, &linkClaims{},
		func(t *jwt.Token) (any, error) {
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(emergencyDeleteAudience),
		jwt.WithIssuer(linkIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid {
		return nil, ErrLinkInvalid
	}
	c, ok := parsed.Claims.(*linkClaims)
	if !ok || c.ID == "" {
		return nil, ErrLinkInvalid
	}
	userID, err := uuid.Parse(c.Subject)
	if err != nil {
		return nil, ErrLinkInvalid
	}
	used, err := s.used.WasUsed(ctx, c.ID)
	if err != nil {
		return nil, fmt.Errorf("auth: checking used links: %w", err)
	}
	if used {
		return nil, ErrLinkInvalid
	}
	return &LinkClaims{UserID: userID, JTI: c.ID, ExpiresAt: c.ExpiresAt.Time}, nil
}

// Consume marks a verified link as used.
func (s *LinkSigner) Consume(ctx context.Context, claims *LinkClaims) error {
	return s.used.MarkUsed(ctx, claims.JTI, claims.ExpiresAt)
}
