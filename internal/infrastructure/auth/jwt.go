package auth

import (
	stderrors "errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"keel/internal/shared/errors"
)

const (
	// clockSkew backdates nbf so tokens work across small clock drift
	// between issuer and verifier.
	clockSkew = 10 * time.Second

	minRememberedLifetime = 7 * 24 * time.Hour
)

// JWTService signs and parses HS256 session tokens.
type JWTService struct {
	secret    []byte
	siteName  string
	accessExp time.Duration
	now       func() time.Time
}

// NewJWTService creates the token service. accessExpMinutes falls back
// to 30 minutes when not configured.
func NewJWTService(secret, siteName string, accessExpMinutes int) *JWTService {
	if accessExpMinutes <= 0 {
		accessExpMinutes = 30
	}
	return &JWTService{
		secret:    []byte(secret),
		siteName:  siteName,
		accessExp: time.Duration(accessExpMinutes) * time.Minute,
		now:       time.Now,
	}
}

// AccessLifetime is the configured access-token lifetime.
func (s *JWTService) AccessLifetime() time.Duration {
	return s.accessExp
}

// RememberedLifetime is the lifetime for remembered logins and refresh
// tokens: at least one week, or twice the access lifetime if larger.
func (s *JWTService) RememberedLifetime() time.Duration {
	if d := 2 * s.accessExp; d > minRememberedLifetime {
		return d
	}
	return minRememberedLifetime
}

// Issue signs a token for the identity. expiresDelta <= 0 uses the
// access lifetime. jti is a random nonce so blacklist keys never
// collide across rapid issue cycles.
func (s *JWTService) Issue(data *UserInfo, scopes []string, kind TokenKind, expiresDelta time.Duration) (string, error) {
	if expiresDelta <= 0 {
		expiresDelta = s.accessExp
	}
	now := s.now()

	claims := &Claims{
		Scopes: scopes,
		Data:   data,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresDelta)),
			NotBefore: jwt.NewNumericDate(now.Add(-clockSkew)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.siteName,
			Subject:   string(kind),
			Audience:  jwt.ClaimStrings{data.Username},
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// IssuePair signs the access/refresh token pair for one identity.
// remembered stretches the refresh lifetime per RememberedLifetime.
func (s *JWTService) IssuePair(data *UserInfo, scopes []string, remembered bool) (*TokenPair, error) {
	access, err := s.Issue(data, scopes, KindToken, 0)
	if err != nil {
		return nil, err
	}

	refreshDelta := s.RememberedLifetime()
	if !remembered {
		refreshDelta = s.accessExp
	}
	refresh, err := s.Issue(data, scopes, KindRefreshToken, refreshDelta)
	if err != nil {
		return nil, err
	}

	return &TokenPair{AccessToken: access, RefreshToken: refresh, TokenType: "bearer"}, nil
}

// Parse validates signature and time claims and requires a non-empty
// identity id. Expiry maps to ExpiredCredentials, everything else to
// InvalidateCredentials.
func (s *JWTService) Parse(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithLeeway(clockSkew))
	if err != nil {
		if stderrors.Is(err, jwt.ErrTokenExpired) {
			return nil, errors.New(errors.ExpiredCredentials)
		}
		return nil, errors.New(errors.InvalidateCredentials)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New(errors.InvalidateCredentials)
	}
	if claims.IsAnonymous() {
		return nil, errors.New(errors.InvalidateCredentials)
	}
	return claims, nil
}
