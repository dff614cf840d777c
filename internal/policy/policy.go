// Package policy holds the ownership and ability rules. Every predicate is
// side-effect free; callers translate a deny into the matching API error.
package policy

import (
	"shoe_market_backend/internal/common"

	"github.com/google/uuid"
)

// Decision is the outcome of a policy check.
type Decision int

const (
	Allow Decision = iota
	// DenyAnonymous means the action needs an authenticated identity.
	DenyAnonymous
	// DenyNotOwner means the identity is authenticated but does not own the resource.
	DenyNotOwner
)

// Allowed reports whether d permits the action.
func (d Decision) Allowed() bool { return d == Allow }

// Err maps a deny to the API error the handler returns. It is nil for Allow.
func (d Decision) Err(notOwnerDetail string) error {
	switch d {
	case DenyAnonymous:
		return common.ErrUnauthorized.WithDetails("Authentication credentials were not provided.")
	case DenyNotOwner:
		return common.ErrForbidden.WithDetails(notOwnerDetail)
	}
	return nil
}

// IsAuthenticated reports whether actor is a real identity.
func IsAuthenticated(actor *uuid.UUID) bool {
	return actor != nil && *actor != uuid.Nil
}

// CanRead is shared by listings, reviews and profiles: reads are public.
func CanRead(actor *uuid.UUID) Decision {
	return Allow
}

func CanReadListing(actor *uuid.UUID) Decision { return CanRead(actor) }

func CanReadReview(actor *uuid.UUID) Decision { return CanRead(actor) }

func CanReadProfile(actor *uuid.UUID) Decision { return CanRead(actor) }

// CanCreate covers creating a listing or review, toggling a wishlist entry
// and reading the caller's own favorites.
func CanCreate(actor *uuid.UUID) Decision {
	if !IsAuthenticated(actor) {
		return DenyAnonymous
	}
	return Allow
}

// CanMutateListing allows only the listing's seller.
func CanMutateListing(actor *uuid.UUID, sellerID uuid.UUID) Decision {
	return ownerOnly(actor, sellerID)
}

// CanMutateReview allows only the review's original reviewer.
func CanMutateReview(actor *uuid.UUID, reviewerID uuid.UUID) Decision {
	return ownerOnly(actor, reviewerID)
}

// CanMutateProfile allows only the profile's own user.
func CanMutateProfile(actor *uuid.UUID, profileUserID uuid.UUID) Decision {
	return ownerOnly(actor, profileUserID)
}

// CanWishlist denies sellers wishlisting their own listing.
func CanWishlist(actor *uuid.UUID, sellerID uuid.UUID) Decision {
	if !IsAuthenticated(actor) {
		return DenyAnonymous
	}
	if *actor == sellerID {
		return DenyNotOwner
	}
	return Allow
}

func ownerOnly(actor *uuid.UUID, ownerID uuid.UUID) Decision {
	if !IsAuthenticated(actor) {
		return DenyAnonymous
	}
	if *actor != ownerID {
		return DenyNotOwner
	}
	return Allow
}
