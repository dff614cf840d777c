// File: internal/common/context.go
package common

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Gin context keys set by the middleware chain.
const (
	AuthorizationHeader = "Authorization"

	UserIDKey    = "userID"
	UserEmailKey = "userEmail"
	UsernameKey  = "username"
	// LoggerKey holds the request-scoped *zap.Logger.
	LoggerKey = "logger"
)

// GetUserIDFromContext returns uuid.Nil for anonymous requests.
func GetUserIDFromContext(c *gin.Context) uuid.UUID {
	if id, ok := c.Value(UserIDKey).(uuid.UUID); ok {
		return id
	}
	return uuid.Nil
}

// GetActorFromContext returns the authenticated user's ID, or nil for
// anonymous requests.
func GetActorFromContext(c *gin.Context) *uuid.UUID {
	id := GetUserIDFromContext(c)
	if id == uuid.Nil {
		return nil
	}
	return &id
}

func GetUsernameFromContext(c *gin.Context) string {
	return c.GetString(UsernameKey)
}
