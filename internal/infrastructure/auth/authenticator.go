package auth

import (
	"context"
	"regexp"
	"strings"

	"keel/internal/infrastructure/cache"
	"keel/internal/shared/errors"
	"keel/internal/shared/logger"
)

// Whitelist maps an HTTP method to route patterns that bypass the
// permission check for any authenticated caller.
type Whitelist map[string][]*regexp.Regexp

// CompileWhitelist compiles per-method pattern lists. Invalid patterns
// are rejected at startup rather than at request time.
func CompileWhitelist(patterns map[string][]string) (Whitelist, error) {
	wl := make(Whitelist, len(patterns))
	for method, exprs := range patterns {
		for _, expr := range exprs {
			re, err := regexp.Compile(expr)
			if err != nil {
				return nil, err
			}
			wl[method] = append(wl[method], re)
		}
	}
	return wl, nil
}

// DefaultWhitelist covers the session endpoints every authenticated
// caller needs regardless of granted permissions.
func DefaultWhitelist() map[string][]string {
	return map[string][]string{
		"GET": {
			`^/api/v1/auth/load_data$`,
			`^/api/v1/auth/user/info$`,
		},
		"POST": {
			`^/api/v1/auth/(login|refresh|logout)$`,
		},
	}
}

// blacklistEntry is the slice of the stored logout payload the
// verifier needs.
type blacklistEntry struct {
	Nbf int64 `json:"nbf"`
}

// Authenticator performs full token verification: signature and time
// claims, logout blacklist, scope enforcement and route permission.
type Authenticator struct {
	jwt       *JWTService
	cache     *cache.PermissionCache
	whitelist Whitelist
	logger    logger.Interface
}

// NewAuthenticator wires the verifier. whitelist may be nil.
func NewAuthenticator(jwtService *JWTService, permCache *cache.PermissionCache, whitelist Whitelist, log logger.Interface) *Authenticator {
	return &Authenticator{
		jwt:       jwtService,
		cache:     permCache,
		whitelist: whitelist,
		logger:    log,
	}
}

// Authenticate verifies the token and authorizes it for the given
// endpoint. requiredScopes must all be present in the token; method
// and path select the route permission to check. Superusers skip the
// scope and route checks entirely.
func (a *Authenticator) Authenticate(ctx context.Context, token string, requiredScopes []string, method, path string) (*Claims, error) {
	claims, err := a.jwt.Parse(token)
	if err != nil {
		return nil, err
	}

	if err := a.checkBlacklist(ctx, claims); err != nil {
		return nil, err
	}

	if claims.Data.Superuser {
		return claims, nil
	}

	granted := make(map[string]struct{}, len(claims.Scopes))
	for _, scope := range claims.Scopes {
		granted[scope] = struct{}{}
	}
	for _, required := range requiredScopes {
		if _, ok := granted[required]; !ok {
			a.logger.Infow("scope not granted", "user_id", claims.Data.ID, "scope", required)
			return nil, errors.New(errors.ScopeNotAuthorized)
		}
	}

	if err := a.checkRoutePermission(ctx, claims, method, path); err != nil {
		return nil, err
	}
	return claims, nil
}

// OptionalAuthenticate tolerates missing or invalid tokens by
// downgrading to the anonymous payload.
func (a *Authenticator) OptionalAuthenticate(ctx context.Context, token string, requiredScopes []string, method, path string) *Claims {
	if token == "" {
		return Anonymous()
	}
	claims, err := a.Authenticate(ctx, token, requiredScopes, method, path)
	if err != nil {
		return Anonymous()
	}
	return claims
}

// checkBlacklist rejects tokens issued before the identity's recorded
// logout cutoff.
func (a *Authenticator) checkBlacklist(ctx context.Context, claims *Claims) error {
	var entry blacklistEntry
	found, err := a.cache.GetBlacklist(ctx, claims.Data.ID, &entry)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}
	if claims.IssuedAt != nil && entry.Nbf > claims.IssuedAt.Unix() {
		a.logger.Infow("token issued before logout cutoff", "user_id", claims.Data.ID)
		return errors.New(errors.ExpiredCredentials)
	}
	return nil
}

// checkRoutePermission matches the normalized path against the static
// whitelist, then against the identity's cached URL patterns for the
// method.
func (a *Authenticator) checkRoutePermission(ctx context.Context, claims *Claims, method, path string) error {
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}

	for _, re := range a.whitelist[method] {
		if re.MatchString(path) {
			return nil
		}
	}

	entries, err := a.cache.GetPermission(ctx, claims.Data.ID, method)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		re, err := regexp.Compile(entry.URL)
		if err != nil {
			a.logger.Warnw("invalid permission pattern", "pattern", entry.URL, "permission_id", entry.ID)
			continue
		}
		if re.MatchString(path) {
			return nil
		}
	}

	a.logger.Infow("route not permitted", "user_id", claims.Data.ID, "method", method, "path", path)
	return errors.New(errors.Forbidden)
}
