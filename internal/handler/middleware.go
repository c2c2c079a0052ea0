package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/HighTechnologyAI/ironbrain-sub001/internal/auth"
)

const sessionKey = "session"

// AuthMiddleware resolves the bearer token into a session and stores it
// on the request context.
func AuthMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := auth.ExtractToken(c.Request)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		session, err := auth.ParseToken(token, jwtSecret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(sessionKey, session)
		c.Next()
	}
}

// SessionFromContext returns the session stored by AuthMiddleware.
func SessionFromContext(c *gin.Context) auth.Session {
	if v, ok := c.Get(sessionKey); ok {
		if s, ok := v.(auth.Session); ok {
			return s
		}
	}
	return auth.Session{}
}
