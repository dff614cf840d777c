// File: internal/middleware/auth.go
package middleware

import (
	"context"

	"shoe_market_backend/internal/auth"
	"shoe_market_backend/internal/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Authenticator resolves an Authorization header into a local principal.
// *auth.Bridge implements it.
type Authenticator interface {
	Authenticate(ctx context.Context, header string) (*auth.Principal, error)
}

// Authenticate attaches the caller's identity to the context when an
// Authorization header is present. Requests without one pass through as
// anonymous; a header that cannot be verified is rejected with 401.
func Authenticate(authenticator Authenticator, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, err := authenticator.Authenticate(c.Request.Context(), c.GetHeader(common.AuthorizationHeader))
		if err != nil {
			common.RespondWithError(c, err)
			return
		}
		if principal == nil {
			c.Next()
			return
		}

		c.Set(common.UserIDKey, principal.UserID)
		c.Set(common.UserEmailKey, principal.Email)
		c.Set(common.UsernameKey, principal.Username)
		if reqLogger, ok := c.Get(common.LoggerKey); ok {
			if l, ok := reqLogger.(*zap.Logger); ok {
				c.Set(common.LoggerKey, l.With(zap.String("user_id", principal.UserID.String())))
			}
		}

		logger.Debug("User authenticated successfully",
			zap.String("userID", principal.UserID.String()),
			zap.String("username", principal.Username),
			zap.Bool("created", principal.Created),
		)
		c.Next()
	}
}

// RequireAuth rejects anonymous callers. It must run after Authenticate.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if common.GetActorFromContext(c) == nil {
			common.RespondWithError(c, common.ErrUnauthorized.WithDetails("Authentication credentials were not provided."))
			return
		}
		c.Next()
	}
}
