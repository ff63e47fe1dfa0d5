package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keel/internal/infrastructure/cache"
	"keel/internal/shared/errors"
	"keel/internal/shared/logger"
)

type nopLogger struct{}

func newNopLogger() logger.Interface { return &nopLogger{} }

func (l *nopLogger) Debug(msg string, args ...any)                   {}
func (l *nopLogger) Info(msg string, args ...any)                    {}
func (l *nopLogger) Warn(msg string, args ...any)                    {}
func (l *nopLogger) Error(msg string, args ...any)                   {}
func (l *nopLogger) With(args ...any) logger.Interface               { return l }
func (l *nopLogger) Named(name string) logger.Interface              { return l }
func (l *nopLogger) Debugw(msg string, keysAndValues ...interface{}) {}
func (l *nopLogger) Infow(msg string, keysAndValues ...interface{})  {}
func (l *nopLogger) Warnw(msg string, keysAndValues ...interface{})  {}
func (l *nopLogger) Errorw(msg string, keysAndValues ...interface{}) {}

func testUser() *UserInfo {
	return &UserInfo{ID: 42, Name: "Alice", Username: "alice", Email: "alice@example.com"}
}

func setupAuthenticator(t *testing.T) (*JWTService, *cache.PermissionCache, *Authenticator) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})

	jwtSvc := NewJWTService("test-secret", "keel", 30)
	permCache := cache.NewPermissionCache(client, newNopLogger())
	wl, err := CompileWhitelist(DefaultWhitelist())
	require.NoError(t, err)
	return jwtSvc, permCache, NewAuthenticator(jwtSvc, permCache, wl, newNopLogger())
}

func TestIssueAndParseRoundTrip(t *testing.T) {
	jwtSvc := NewJWTService("test-secret", "keel", 30)

	token, err := jwtSvc.Issue(testUser(), []string{"admin"}, KindToken, 0)
	require.NoError(t, err)

	claims, err := jwtSvc.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), claims.Data.ID)
	assert.Equal(t, "alice", claims.Data.Username)
	assert.Equal(t, []string{"admin"}, claims.Scopes)
	assert.Equal(t, "keel", claims.Issuer)
	assert.Equal(t, string(KindToken), claims.Subject)
	assert.NotEmpty(t, claims.ID)
	assert.False(t, claims.IsRefresh())
}

func TestIssuedTokensHaveUniqueIDs(t *testing.T) {
	jwtSvc := NewJWTService("test-secret", "keel", 30)

	// Same identity, same second: jti must still differ.
	a, err := jwtSvc.Issue(testUser(), nil, KindToken, 0)
	require.NoError(t, err)
	b, err := jwtSvc.Issue(testUser(), nil, KindToken, 0)
	require.NoError(t, err)

	ca, err := jwtSvc.Parse(a)
	require.NoError(t, err)
	cb, err := jwtSvc.Parse(b)
	require.NoError(t, err)
	assert.NotEqual(t, ca.ID, cb.ID)
}

func TestParseExpiredToken(t *testing.T) {
	jwtSvc := NewJWTService("test-secret", "keel", 30)
	jwtSvc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	token, err := jwtSvc.Issue(testUser(), nil, KindToken, time.Minute)
	require.NoError(t, err)

	jwtSvc.now = time.Now
	_, err = jwtSvc.Parse(token)
	require.Error(t, err)
	assert.True(t, errors.HasStatus(err, errors.ExpiredCredentials))
}

func TestParseTamperedToken(t *testing.T) {
	jwtSvc := NewJWTService("test-secret", "keel", 30)
	other := NewJWTService("other-secret", "keel", 30)

	token, err := other.Issue(testUser(), nil, KindToken, 0)
	require.NoError(t, err)

	_, err = jwtSvc.Parse(token)
	require.Error(t, err)
	assert.True(t, errors.HasStatus(err, errors.InvalidateCredentials))
}

func TestParseRejectsMissingIdentity(t *testing.T) {
	jwtSvc := NewJWTService("test-secret", "keel", 30)

	token, err := jwtSvc.Issue(&UserInfo{Username: "ghost"}, nil, KindToken, 0)
	require.NoError(t, err)

	_, err = jwtSvc.Parse(token)
	require.Error(t, err)
	assert.True(t, errors.HasStatus(err, errors.InvalidateCredentials))
}

func TestAccessLifetimeFallback(t *testing.T) {
	// Unconfigured lifetimes fall back to the 30-minute default.
	assert.Equal(t, 30*time.Minute, NewJWTService("s", "keel", 0).AccessLifetime())
	assert.Equal(t, 30*time.Minute, NewJWTService("s", "keel", -1).AccessLifetime())
	assert.Equal(t, 45*time.Minute, NewJWTService("s", "keel", 45).AccessLifetime())
}

func TestRememberedLifetime(t *testing.T) {
	short := NewJWTService("s", "keel", 30)
	assert.Equal(t, 7*24*time.Hour, short.RememberedLifetime())

	// Access lifetime long enough that doubling beats one week.
	long := NewJWTService("s", "keel", 6*24*60)
	assert.Equal(t, 12*24*time.Hour, long.RememberedLifetime())
}

func TestAuthenticateBlacklistCutoff(t *testing.T) {
	jwtSvc, permCache, authn := setupAuthenticator(t)
	ctx := context.Background()

	token, err := jwtSvc.Issue(testUser(), nil, KindToken, time.Hour)
	require.NoError(t, err)

	// Logout cutoff in the future relative to the token's iat.
	entry := map[string]int64{"nbf": time.Now().Add(time.Minute).Unix()}
	require.NoError(t, permCache.SetBlacklist(ctx, 42, entry, time.Hour))

	_, err = authn.Authenticate(ctx, token, nil, "POST", "/api/v1/auth/logout")
	require.Error(t, err)
	assert.True(t, errors.HasStatus(err, errors.ExpiredCredentials))
}

func TestAuthenticateAfterOldBlacklistEntry(t *testing.T) {
	jwtSvc, permCache, authn := setupAuthenticator(t)
	ctx := context.Background()

	// Cutoff older than the token: a re-login after logout must work.
	entry := map[string]int64{"nbf": time.Now().Add(-time.Hour).Unix()}
	require.NoError(t, permCache.SetBlacklist(ctx, 42, entry, time.Hour))

	token, err := jwtSvc.Issue(testUser(), nil, KindToken, time.Hour)
	require.NoError(t, err)

	claims, err := authn.Authenticate(ctx, token, nil, "POST", "/api/v1/auth/logout")
	require.NoError(t, err)
	assert.Equal(t, uint64(42), claims.Data.ID)
}

func TestAuthenticateSuperuserSkipsChecks(t *testing.T) {
	jwtSvc, _, authn := setupAuthenticator(t)

	su := testUser()
	su.Superuser = true
	token, err := jwtSvc.Issue(su, nil, KindToken, 0)
	require.NoError(t, err)

	// No scopes granted, no permission cached, path not whitelisted.
	claims, err := authn.Authenticate(context.Background(), token, []string{"admin"}, "DELETE", "/api/v1/user/1")
	require.NoError(t, err)
	assert.True(t, claims.Data.Superuser)
}

func TestAuthenticateScopeEnforcement(t *testing.T) {
	jwtSvc, _, authn := setupAuthenticator(t)

	token, err := jwtSvc.Issue(testUser(), []string{"read"}, KindToken, 0)
	require.NoError(t, err)

	_, err = authn.Authenticate(context.Background(), token, []string{"read", "write"}, "POST", "/api/v1/auth/logout")
	require.Error(t, err)
	assert.True(t, errors.HasStatus(err, errors.ScopeNotAuthorized))
}

func TestAuthenticateRoutePermission(t *testing.T) {
	jwtSvc, permCache, authn := setupAuthenticator(t)
	ctx := context.Background()

	token, err := jwtSvc.Issue(testUser(), nil, KindToken, 0)
	require.NoError(t, err)

	// No cached grant: forbidden.
	_, err = authn.Authenticate(ctx, token, nil, "GET", "/api/v1/user")
	require.Error(t, err)
	assert.True(t, errors.HasStatus(err, errors.Forbidden))

	// Grant a pattern for GET and retry, including a trailing slash
	// which must be normalized away.
	perms := map[string][]cache.Entry{
		"GET": {{ID: 1, URL: `^/api/v1/user.*`, Code: "user:read"}},
	}
	require.NoError(t, permCache.SetPermission(ctx, 42, perms, false, time.Minute))

	_, err = authn.Authenticate(ctx, token, nil, "GET", "/api/v1/user/")
	require.NoError(t, err)

	// Granted method does not leak into others.
	_, err = authn.Authenticate(ctx, token, nil, "DELETE", "/api/v1/user/1")
	require.Error(t, err)
	assert.True(t, errors.HasStatus(err, errors.Forbidden))
}

func TestAuthenticateWhitelistBypassesPermissions(t *testing.T) {
	jwtSvc, _, authn := setupAuthenticator(t)

	token, err := jwtSvc.Issue(testUser(), nil, KindToken, 0)
	require.NoError(t, err)

	claims, err := authn.Authenticate(context.Background(), token, nil, "GET", "/api/v1/auth/user/info")
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Data.Username)
}

func TestOptionalAuthenticateDowngradesToAnonymous(t *testing.T) {
	_, _, authn := setupAuthenticator(t)
	ctx := context.Background()

	claims := authn.OptionalAuthenticate(ctx, "", nil, "GET", "/api/v1/auth/load_data")
	assert.True(t, claims.IsAnonymous())

	claims = authn.OptionalAuthenticate(ctx, "not-a-token", nil, "GET", "/api/v1/auth/load_data")
	assert.True(t, claims.IsAnonymous())
}

func TestHasherRoundTrip(t *testing.T) {
	hasher := NewBcryptPasswordHasher(4)

	hash, err := hasher.Hash("s3cret-pass")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret-pass", hash)

	assert.NoError(t, hasher.Verify("s3cret-pass", hash))
	assert.Error(t, hasher.Verify("wrong", hash))
}
