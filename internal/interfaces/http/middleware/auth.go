// Package middleware provides the gin middleware shared by all routes.
package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"keel/internal/infrastructure/auth"
	"keel/internal/shared/response"
)

// payloadKey stores the verified token payload in the gin context.
const payloadKey = "auth_payload"

// ExtractToken pulls the bearer token from the Authorization header.
func ExtractToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

// RequireAuth verifies the token and authorizes it for the requested
// endpoint. requiredScopes must all be granted by the token.
func RequireAuth(authn *auth.Authenticator, requiredScopes ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := authn.Authenticate(c.Request.Context(), ExtractToken(c), requiredScopes, c.Request.Method, c.Request.URL.Path)
		if err != nil {
			response.AbortWith(c, err)
			return
		}
		c.Set(payloadKey, claims)
		c.Next()
	}
}

// OptionalAuth verifies the token when present, downgrading missing or
// invalid credentials to the anonymous payload.
func OptionalAuth(authn *auth.Authenticator, requiredScopes ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := authn.OptionalAuthenticate(c.Request.Context(), ExtractToken(c), requiredScopes, c.Request.Method, c.Request.URL.Path)
		c.Set(payloadKey, claims)
		c.Next()
	}
}

// PayloadFromContext returns the verified payload, or the anonymous
// payload when no auth middleware ran.
func PayloadFromContext(c *gin.Context) *auth.Claims {
	if v, ok := c.Get(payloadKey); ok {
		if claims, ok := v.(*auth.Claims); ok {
			return claims
		}
	}
	return auth.Anonymous()
}

// SetPayload stores a payload directly. Used by handlers that verify
// tokens themselves and by tests.
func SetPayload(c *gin.Context, claims *auth.Claims) {
	c.Set(payloadKey, claims)
}
