package middleware

import (
	"github.com/gin-gonic/gin"

	"keel/internal/shared/errors"
	"keel/internal/shared/response"
)

// RequireSuperuser rejects non-superuser sessions. Must run after
// RequireAuth so the payload is present.
func RequireSuperuser() gin.HandlerFunc {
	return func(c *gin.Context) {
		payload := PayloadFromContext(c)
		if payload.IsAnonymous() || payload.Data == nil || !payload.Data.Superuser {
			response.AbortWith(c, errors.New(errors.OnlySuperuser))
			return
		}
		c.Next()
	}
}
