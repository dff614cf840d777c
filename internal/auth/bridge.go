// Package auth bridges externally issued identity tokens to local users and
// issues the signed single-use links used by account lifecycle emails.
package auth

import (
	"context"
	"errors"
	"strings"

	"shoe_market_backend/internal/common"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// VerifiedIdentity is what an identity provider vouches for.
type VerifiedIdentity struct {
	Subject       string
	Email         string
	EmailVerified bool
}

// IdentityProvider verifies a bearer credential. Signature, expiry and
// algorithm checks are the provider's job.
type IdentityProvider interface {
	Verify(ctx context.Context, token string) (*VerifiedIdentity, error)
}

// Principal is the local identity attached to an authenticated request.
type Principal struct {
	UserID   uuid.UUID
	Email    string
	Username string
	// Created is true when this request provisioned the local user.
	Created bool
}

// UserResolver maps a verified email to a local user, provisioning it on
// first sight.
type UserResolver interface {
	ResolveVerifiedEmail(ctx context.Context, email string) (*Principal, error)
}

// Bridge authenticates Authorization headers.
type Bridge struct {
	provider IdentityProvider
	resolver UserResolver
	logger   *zap.Logger
}

// NewBridge creates a new identity bridge.
func NewBridge(provider IdentityProvider, resolver UserResolver, logger *zap.Logger) *Bridge {
	return &Bridge{
		provider: provider,
		resolver: resolver,
		logger:   logger.Named("IdentityBridge"),
	}
}

// Authenticate resolves an Authorization header value. An empty header is an
// anonymous request and returns (nil, nil). Every other failure is collapsed
// into common.ErrInvalidToken; the cause is only logged.
func (b *Bridge) Authenticate(ctx context.Context, header string) (*Principal, error) {
	if header == "" {
		return nil, nil
	}

	credential, ok := credentialFromHeader(header)
	if !ok {
		b.logger.Debug("Malformed Authorization header")
		return nil, common.ErrInvalidToken
	}

	identity, err := b.verify(ctx, credential)
	if err != nil {
		b.logger.Warn("Identity token rejected", zap.Error(err))
		return nil, common.ErrInvalidToken
	}

	principal, err := b.resolver.ResolveVerifiedEmail(ctx, identity.Email)
	if err != nil {
		var apiErr *common.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode < 500 {
			b.logger.Warn("Verified identity could not be bound to a local user", zap.Error(err))
			return nil, common.ErrInvalidToken
		}
		return nil, err
	}
	return principal, nil
}

func (b *Bridge) verify(ctx context.Context, credential string) (identity *VerifiedIdentity, err error) {
	// A misbehaving provider must fail closed, never crash the request.
	defer func() {
		if r := recover(); r != nil {
			identity, err = nil, errors.New("identity provider panicked")
		}
	}()

	identity, err = b.provider.Verify(ctx, credential)
	if err != nil {
		return nil, err
	}
	if identity == nil || strings.TrimSpace(identity.Email) == "" {
		return nil, errors.New("token has no email")
	}
	if !identity.EmailVerified {
		return nil, errors.New("token email is not verified")
	}
	return identity, nil
}

// credentialFromHeader takes the second whitespace-separated token of the
// header as the credential.
func credentialFromHeader(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 {
		return "", false
	}
	return parts[1], true
}
