// Package auth issues and verifies signed session tokens and enforces
// scope and route-level access control.
package auth

import (
	"github.com/golang-jwt/jwt/v5"
)

// TokenKind is carried in the sub claim and distinguishes access
// tokens from refresh tokens.
type TokenKind string

const (
	KindToken        TokenKind = "token"
	KindRefreshToken TokenKind = "refresh_token"
)

// UserInfo is the identity block embedded in every token payload.
type UserInfo struct {
	ID        uint64 `json:"id"`
	Name      string `json:"name"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Avatar    string `json:"avatar"`
	Superuser bool   `json:"superuser"`
}

// Claims is the full token payload: registered claims plus the granted
// scopes and the identity block.
type Claims struct {
	Scopes []string  `json:"scopes,omitempty"`
	Data   *UserInfo `json:"data,omitempty"`
	jwt.RegisteredClaims
}

// Anonymous returns the payload used for unauthenticated callers.
func Anonymous() *Claims {
	return &Claims{}
}

// IsAnonymous reports whether the payload carries no identity.
func (c *Claims) IsAnonymous() bool {
	return c == nil || c.Data == nil || c.Data.ID == 0
}

// IsRefresh reports whether the token was issued as a refresh token.
func (c *Claims) IsRefresh() bool {
	sub, _ := c.GetSubject()
	return sub == string(KindRefreshToken)
}

// TokenPair is the login/refresh response body.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}
