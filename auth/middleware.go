package auth

import (
	"net/http"
	"roomchat/domain"
	"roomchat/errors"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	UserIDKey   = "user_id"
	UsernameKey = "username"
)

// RequireToken rejects requests without a valid "Bearer <token>"
// Authorization header and stores the caller's identity in the gin context.
func RequireToken(tokens *Tokens) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		tokenStr, found := strings.CutPrefix(header, "Bearer ")
		if !found || tokenStr == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization token is missing"})
			return
		}

		claims, err := tokens.ValidateToken(tokenStr)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errors.ErrInvalidToken.Error()})
			return
		}

		c.Set(UserIDKey, domain.UserID(claims.UserID))
		c.Set(UsernameKey, claims.Username)
		c.Next()
	}
}

// UserID returns the identity set by RequireToken.
func UserID(c *gin.Context) (domain.UserID, bool) {
	value, ok := c.Get(UserIDKey)
	if !ok {
		return 0, false
	}
	userID, ok := value.(domain.UserID)
	return userID, ok
}
