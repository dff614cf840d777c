// File: internal/firebase/service.go
package firebase

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	shoeauth "shoe_market_backend/internal/auth"
	"shoe_market_backend/internal/config"
)

// tokenVerifier is the part of *auth.Client used here.
type tokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// FirebaseService verifies Firebase ID tokens. It is the production
// auth.IdentityProvider.
type FirebaseService struct {
	verifier tokenVerifier
	logger   *zap.Logger
}

// NewFirebaseService builds the Admin SDK auth client. A service account
// key file is used when FIREBASE_SERVICE_ACCOUNT_KEY_PATH is set; otherwise
// FIREBASE_PROJECT_ID must be set and application default credentials apply.
func NewFirebaseService(cfg *config.Config, logger *zap.Logger) (*FirebaseService, error) {
	appConfig, opts, err := appSettings(cfg)
	if err != nil {
		logger.Error("Firebase is not configured", zap.Error(err))
		return nil, err
	}

	ctx := context.Background()
	app, err := firebase.NewApp(ctx, appConfig, opts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing Firebase app: %w", err)
	}
	authClient, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting Firebase Auth client: %w", err)
	}

	logger.Info("Firebase Admin SDK initialized",
		zap.String("projectID", cfg.FirebaseProjectID),
		zap.Bool("keyFile", len(opts) > 0))
	return newFirebaseService(authClient, logger), nil
}

func appSettings(cfg *config.Config) (*firebase.Config, []option.ClientOption, error) {
	var appConfig *firebase.Config
	if cfg.FirebaseProjectID != "" {
		appConfig = &firebase.Config{ProjectID: cfg.FirebaseProjectID}
	}
	if cfg.FirebaseServiceAccountKeyPath != "" {
		return appConfig, []option.ClientOption{option.WithCredentialsFile(filepath.Clean(cfg.FirebaseServiceAccountKeyPath))}, nil
	}
	if appConfig == nil {
		return nil, nil, errors.New("firebase: set FIREBASE_SERVICE_ACCOUNT_KEY_PATH or FIREBASE_PROJECT_ID")
	}
	return appConfig, nil, nil
}

func newFirebaseService(v tokenVerifier, logger *zap.Logger) *FirebaseService {
	return &FirebaseService{verifier: v, logger: logger.Named("FirebaseService")}
}

// Verify checks an ID token and extracts the email claims.
func (s *FirebaseService) Verify(ctx context.Context, idToken string) (*shoeauth.VerifiedIdentity, error) {
	if idToken == "" {
		return nil, errors.New("ID token must not be empty")
	}

	token, err := s.verifier.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, fmt.Errorf("failed to verify Firebase ID token: %w", err)
	}

	s.logger.Debug("Firebase ID token verified successfully", zap.String("uid", token.UID))
	return identityFromToken(token), nil
}

func identityFromToken(token *auth.Token) *shoeauth.VerifiedIdentity {
	identity := &shoeauth.VerifiedIdentity{Subject: token.UID}
	if email, ok := token.Claims["email"].(string); ok {
		identity.Email = email
	}
	if verified, ok := token.Claims["email_verified"].(bool); ok {
		identity.EmailVerified = verified
	}
	return identity
}
