// Package middleware holds the gin middleware shared by every route group.
package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/subreddit/backend/internal/apperr"
	"github.com/emilythestrangee/subreddit/backend/internal/auth"
	"github.com/emilythestrangee/subreddit/backend/internal/response"
)

const (
	ContextUserIDKey = "user_id"
	ContextEmailKey  = "user_email"
)

// Auth requires a valid bearer access token and stores the user id in the context.
func Auth(tokens *auth.Tokens) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Abort(c, apperr.KindUnauthenticated, "Missing authorization header")
			return
		}

		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
			response.Abort(c, apperr.KindUnauthenticated, "Invalid authorization format")
			return
		}

		claims, err := tokens.Verify(strings.TrimSpace(token))
		if err != nil {
			response.Abort(c, apperr.KindUnauthenticated, "Invalid or expired token")
			return
		}
		userID, err := claims.UserID()
		if err != nil {
			response.Abort(c, apperr.KindUnauthenticated, "Invalid or expired token")
			return
		}

		c.Set(ContextUserIDKey, userID)
		c.Set(ContextEmailKey, claims.Email)
		c.Next()
	}
}

// UserID returns the id set by Auth, or false on unauthenticated routes.
func UserID(c *gin.Context) (int, bool) {
	v, ok := c.Get(ContextUserIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(int)
	return id, ok
}
