package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/saleflow/backend/internal/models"
	"github.com/saleflow/backend/internal/session"
)

const (
	userKey    = "user"
	sessionKey = "session"
)

// UserLoader resolves the account behind a live session.
type UserLoader interface {
	CurrentUser(ctx context.Context, sess session.Session) (models.User, error)
}

// bearerToken reads the Authorization header. Browsers cannot set headers on
// a websocket upgrade, so a token query parameter is accepted there.
func bearerToken(c *gin.Context) (string, string) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		if t := c.Query("token"); t != "" && c.IsWebsocket() {
			return t, ""
		}
		return "", "Authorization header required"
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", "Invalid authorization header format"
	}
	return strings.TrimPrefix(authHeader, "Bearer "), ""
}

func AuthMiddleware(sessions *session.Manager, users UserLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, problem := bearerToken(c)
		if problem != "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": problem,
			})
			c.Abort()
			return
		}

		sess, err := sessions.Resolve(c.Request.Context(), tokenString)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Invalid token",
			})
			c.Abort()
			return
		}

		// The account may have been deleted since login.
		user, err := users.CurrentUser(c.Request.Context(), sess)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Session expired",
			})
			c.Abort()
			return
		}

		c.Set(sessionKey, sess)
		c.Set(userKey, user)
		c.Next()
	}
}

// CurrentUser returns the authenticated account set by AuthMiddleware.
func CurrentUser(c *gin.Context) models.User {
	if v, ok := c.Get(userKey); ok {
		if u, ok := v.(models.User); ok {
			return u
		}
	}
	return models.User{}
}

func CurrentSession(c *gin.Context) session.Session {
	if v, ok := c.Get(sessionKey); ok {
		if s, ok := v.(session.Session); ok {
			return s
		}
	}
	return session.Session{}
}

// RequireRole rejects users ranked below min.
func RequireRole(min models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUser(c).Role.Rank() < min.Rank() {
			c.JSON(http.StatusForbidden, gin.H{
				"success": false,
				"message": "Bạn không có quyền truy cập chức năng này.",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}
