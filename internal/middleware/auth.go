package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"notu/backend/internal/token"

	"github.com/gin-gonic/gin"
)

// A private key for context access
type contextKey string

const userContextKey = contextKey("userId")

// AuthMiddleware creates a middleware that verifies bearer access tokens
// and attaches the resolved user identity to the request context. Every
// note route runs behind it.
func AuthMiddleware(tokens *token.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.Request.Header.Get("Authorization")

		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Access token required"})
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		userID, err := tokens.Verify(tokenString, token.TypeAccess)
		if err != nil {
			if errors.Is(err, token.ErrExpired) {
				// Distinguished so clients can run the refresh flow
				// instead of forcing a re-login.
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token expired", "code": "TOKEN_EXPIRED"})
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		ctx := context.WithValue(c.Request.Context(), userContextKey, userID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// UserID finds the authenticated user's id from the context. Empty when the
// request did not pass the middleware.
func UserID(ctx context.Context) string {
	raw, _ := ctx.Value(userContextKey).(string)
	return raw
}
