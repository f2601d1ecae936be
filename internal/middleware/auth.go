package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"teleconsult-backend/pkg/constants"
	"teleconsult-backend/pkg/errors"
	"teleconsult-backend/pkg/jwt"
	"teleconsult-backend/pkg/response"
)

// Auth verifies the bearer token and stores the caller's identity on
// the request context.
func Auth(manager *jwt.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Error(c, errors.UnauthorizedError("missing authorization header"))
			c.Abort()
			return
		}
		tokenString, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			response.Error(c, errors.UnauthorizedError("malformed authorization header"))
			c.Abort()
			return
		}

		claims, err := manager.Verify(tokenString)
		if err != nil {
			response.Error(c, errors.UnauthorizedError("invalid or expired token"))
			c.Abort()
			return
		}
		userID, err := uuid.Parse(claims.UserID)
		if err != nil {
			response.Error(c, errors.UnauthorizedError("invalid token subject"))
			c.Abort()
			return
		}

		c.Set(constants.CtxUserID, userID)
		c.Set(constants.CtxUserRole, claims.Role)
		c.Next()
	}
}

// UserID returns the authenticated user id set by Auth.
func UserID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(constants.CtxUserID)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

// UserRole returns the authenticated user's role set by Auth.
func UserRole(c *gin.Context) string {
	return c.GetString(constants.CtxUserRole)
}
