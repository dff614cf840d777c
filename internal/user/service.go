// File: internal/user/service.go
package user

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"time"

	"shoe_market_backend/internal/auth"
	"shoe_market_backend/internal/common"
	"shoe_market_backend/internal/filestorage"
	"shoe_market_backend/internal/policy"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const profileRecentReviews = 10

// Notifier sends account lifecycle emails. Implementations must not block
// the caller on delivery.
type Notifier interface {
	SendWelcome(ctx context.Context, u *User)
	SendLoginAlert(ctx context.Context, u *User)
}

// ReviewSummarizer computes a seller's rating at read time.
type ReviewSummarizer interface {
	SummarizeSeller(ctx context.Context, sellerID uuid.UUID, recent int) (*SellerReviewSummary, error)
}

// LinkVerifier checks and consumes emergency-delete links.
type LinkVerifier interface {
	Verify(ctx context.Context, token string) (*auth.LinkClaims, error)
	Consume(ctx context.Context, claims *auth.LinkClaims) error
}

// SellerIndex drops a deleted seller's shoes from the search index. The
// database removes the shoes by cascade.
type SellerIndex interface {
	DeleteBySeller(ctx context.Context, sellerID uuid.UUID) error
}

// Service is the account and profile API used by handlers.
type Service interface {
	auth.UserResolver
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetMe(ctx context.Context, id uuid.UUID) (*UserResponse, error)
	GetProfile(ctx context.Context, username string) (*ProfileResponse, error)
	UpdateProfile(ctx context.Context, actor *uuid.UUID, username string, req UpdateProfileRequest, avatar *multipart.FileHeader) (*ProfileResponse, error)
	StartSession(ctx context.Context, id uuid.UUID) (*UserResponse, error)
	DeleteWithEmergencyToken(ctx context.Context, token string) error
}

// ServiceImplementation implements Service.
type ServiceImplementation struct {
	repo     Repository
	reviews  ReviewSummarizer
	notifier Notifier
	links    LinkVerifier
	media    filestorage.Store
	index    SellerIndex
	logger   *zap.Logger
	now      func() time.Time
}

var _ Service = (*ServiceImplementation)(nil)

// NewService creates a new user service.
func NewService(
	repo Repository,
	reviews ReviewSummarizer,
	notifier Notifier,
	links LinkVerifier,
	media filestorage.Store,
	index SellerIndex,
	logger *zap.Logger,
) *ServiceImplementation {
	return &ServiceImplementation{
		repo:     repo,
		reviews:  reviews,
		notifier: notifier,
		links:    links,
		media:    media,
		index:    index,
		logger:   logger.Named("UserService"),
		now:      time.Now,
	}
}

// ResolveVerifiedEmail returns the local user owning email, creating it on
// first sight. Two concurrent first requests converge on one user: the
// loser of the unique-index race re-reads the winner's row.
func (s *ServiceImplementation) ResolveVerifiedEmail(ctx context.Context, email string) (*auth.Principal, error) {
	email = normalizeEmail(email)
	existing, err := s.repo.FindByEmail(ctx, email)
	if err == nil {
		return principalOf(existing, false), nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up user by email: %w", err)
	}

	newUser := &User{Username: email, Email: email, Profile: &Profile{}}
	if err := s.repo.Create(ctx, newUser); err != nil {
		if errors.Is(err, common.ErrConflict) {
			raced, findErr := s.repo.FindByEmail(ctx, email)
			if findErr == nil {
				return principalOf(raced, false), nil
			}
			s.logger.Error("User creation conflicted but no user holds the email", zap.String("email", email), zap.Error(findErr))
			return nil, err
		}
		s.logger.Error("Failed to provision user", zap.String("email", email), zap.Error(err))
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("New user provisioned from verified identity", zap.String("userID", newUser.ID.String()))
	s.onUserCreated(ctx, newUser)
	return principalOf(newUser, true), nil
}

// onUserCreated runs once per account, after the user and profile rows are
// committed.
func (s *ServiceImplementation) onUserCreated(ctx context.Context, u *User) {
	s.notifier.SendWelcome(ctx, u)
}

func principalOf(u *User, created bool) *auth.Principal {
	return &auth.Principal{UserID: u.ID, Email: u.Email, Username: u.Username, Created: created}
}

func (s *ServiceImplementation) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *ServiceImplementation) GetMe(ctx context.Context, id uuid.UUID) (*UserResponse, error) {
	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.toUserResponse(ctx, u)
}

// GetProfile is public.
func (s *ServiceImplementation) GetProfile(ctx context.Context, username string) (*ProfileResponse, error) {
	u, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return s.profileOf(ctx, u)
}

// UpdateProfile lets a user edit their own location, phone number and avatar.
func (s *ServiceImplementation) UpdateProfile(ctx context.Context, actor *uuid.UUID, username string, req UpdateProfileRequest, avatar *multipart.FileHeader) (*ProfileResponse, error) {
	u, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if d := policy.CanMutateProfile(actor, u.ID); !d.Allowed() {
		return nil, d.Err("You can only edit your own profile.")
	}
	if u.Profile == nil {
		return nil, fmt.Errorf("user %s has no profile", u.ID)
	}

	p := u.Profile
	if req.Location != nil {
		p.Location = *req.Location
	}
	if req.PhoneNumber != nil {
		p.PhoneNumber = *req.PhoneNumber
	}

	var oldAvatar *string
	if avatar != nil {
		url, err := s.media.SaveUploadedFile(ctx, avatar, "avatars")
		if err != nil {
			if errors.Is(err, filestorage.ErrUnsupportedType) || errors.Is(err, filestorage.ErrTooLarge) {
				return nil, common.NewFieldError("avatar", err.Error())
			}
			return nil, fmt.Errorf("failed to store avatar: %w", err)
		}
		oldAvatar = p.Avatar
		p.Avatar = &url
	}

	if err := s.repo.UpdateProfile(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	if oldAvatar != nil {
		if err := s.media.DeleteFile(ctx, *oldAvatar); err != nil {
			s.logger.Warn("Failed to delete replaced avatar", zap.String("url", *oldAvatar), zap.Error(err))
		}
	}
	return s.profileOf(ctx, u)
}

// StartSession records a login and sends the login security alert.
func (s *ServiceImplementation) StartSession(ctx context.Context, id uuid.UUID) (*UserResponse, error) {
	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if err := s.repo.TouchLastLogin(ctx, id, now); err != nil {
		s.logger.Error("Failed to update last login time", zap.Error(err), zap.String("userID", id.String()))
	} else {
		u.LastLoginAt = &now
	}
	s.notifier.SendLoginAlert(ctx, u)
	return s.toUserResponse(ctx, u)
}

// DeleteWithEmergencyToken permanently deletes the account named by a signed
// link. Every failure, including an already deleted user, is ErrInvalidLink.
func (s *ServiceImplementation) DeleteWithEmergencyToken(ctx context.Context, token string) error {
	claims, err := s.links.Verify(ctx, token)
	if err != nil {
		if errors.Is(err, auth.ErrLinkInvalid) {
			return common.ErrInvalidLink
		}
		return err
	}

	u, err := s.repo.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.ErrInvalidLink
		}
		return err
	}

	if err := s.repo.Delete(ctx, u.ID); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.ErrInvalidLink
		}
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if err := s.links.Consume(ctx, claims); err != nil {
		s.logger.Warn("Failed to mark emergency link as used", zap.Error(err))
	}
	if s.index != nil {
		if err := s.index.DeleteBySeller(ctx, u.ID); err != nil {
			s.logger.Warn("Failed to remove deleted user's shoes from search index", zap.Error(err))
		}
	}
	if u.Profile != nil && u.Profile.Avatar != nil {
		if err := s.media.DeleteFile(ctx, *u.Profile.Avatar); err != nil {
			s.logger.Warn("Failed to delete avatar of deleted user", zap.Error(err))
		}
	}

	s.logger.Info("Account deleted via emergency link", zap.String("userID", u.ID.String()))
	return nil
}

func (s *ServiceImplementation) profileOf(ctx context.Context, u *User) (*ProfileResponse, error) {
	summary, err := s.reviews.SummarizeSeller(ctx, u.ID, profileRecentReviews)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize reviews: %w", err)
	}
	return toProfileResponse(u, summary), nil
}

func (s *ServiceImplementation) toUserResponse(ctx context.Context, u *User) (*UserResponse, error) {
	profile, err := s.profileOf(ctx, u)
	if err != nil {
		return nil, err
	}
	return &UserResponse{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		CreatedAt:   u.CreatedAt,
		LastLoginAt: u.LastLoginAt,
		Profile:     profile,
	}, nil
}
