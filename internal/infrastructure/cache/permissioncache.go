package cache

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"keel/internal/shared/errors"
	"keel/internal/shared/logger"
)

const (
	permissionKeyPrefix = "permission:"
	blacklistKeyPrefix  = "blacklist:"

	// superuserField sits alongside the per-method fields in the
	// permission hash.
	superuserField = "superuser"
)

// Entry is one granted permission: a URL pattern the identity may call
// with the hash field's method.
type Entry struct {
	ID   uint64 `json:"id"`
	URL  string `json:"url"`
	Code string `json:"code"`
}

// PermissionCache stores per-identity permission sets and logout
// blacklist entries with a TTL.
type PermissionCache struct {
	client *redis.Client
	logger logger.Interface
}

// NewPermissionCache creates a cache over an existing redis client.
func NewPermissionCache(client *redis.Client, log logger.Interface) *PermissionCache {
	return &PermissionCache{client: client, logger: log}
}

func permissionKey(id uint64) string {
	return permissionKeyPrefix + strconv.FormatUint(id, 10)
}

func blacklistKey(id uint64) string {
	return blacklistKeyPrefix + strconv.FormatUint(id, 10)
}

// unavailable logs the cause and returns the opaque cache error.
func (c *PermissionCache) unavailable(op string, err error) error {
	c.logger.Errorw("cache operation failed", "op", op, "error", err)
	return errors.New(errors.CacheUnavailable)
}

// SetPermission replaces the identity's permission hash. Empty
// permission maps are a no-op so anonymous identities never allocate a
// key. The delete-then-set-then-expire sequence is not atomic; a reader
// between the steps sees an empty set, which fails closed.
func (c *PermissionCache) SetPermission(ctx context.Context, id uint64, perms map[string][]Entry, superuser bool, ttl time.Duration) error {
	if len(perms) == 0 {
		return nil
	}

	fields := make(map[string]any, len(perms)+1)
	for method, entries := range perms {
		data, err := json.Marshal(entries)
		if err != nil {
			return c.unavailable("set_permission", err)
		}
		fields[method] = string(data)
	}
	fields[superuserField] = strconv.FormatBool(superuser)

	key := permissionKey(id)
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return c.unavailable("set_permission", err)
	}
	if err := c.client.HSet(ctx, key, fields).Err(); err != nil {
		return c.unavailable("set_permission", err)
	}
	if err := c.client.Expire(ctx, key, ttl).Err(); err != nil {
		return c.unavailable("set_permission", err)
	}
	return nil
}

// GetPermission returns the entries granted for one method, or nil when
// the identity has no cached grant for it.
func (c *PermissionCache) GetPermission(ctx context.Context, id uint64, method string) ([]Entry, error) {
	data, err := c.client.HGet(ctx, permissionKey(id), method).Result()
	if err != nil {
		if stderrors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, c.unavailable("get_permission", err)
	}

	var entries []Entry
	if err := json.Unmarshal([]byte(data), &entries); err != nil {
		return nil, c.unavailable("get_permission", err)
	}
	return entries, nil
}

// GetPermissions fetches several methods in one round trip. Methods
// without a grant are absent from the result.
func (c *PermissionCache) GetPermissions(ctx context.Context, id uint64, methods ...string) (map[string][]Entry, error) {
	if len(methods) == 0 {
		return map[string][]Entry{}, nil
	}

	values, err := c.client.HMGet(ctx, permissionKey(id), methods...).Result()
	if err != nil {
		return nil, c.unavailable("get_permissions", err)
	}

	result := make(map[string][]Entry, len(methods))
	for i, raw := range values {
		if raw == nil {
			continue
		}
		s, ok := raw.(string)
		if !ok {
			continue
		}
		var entries []Entry
		if err := json.Unmarshal([]byte(s), &entries); err != nil {
			return nil, c.unavailable("get_permissions", err)
		}
		result[methods[i]] = entries
	}
	return result, nil
}

// IsSuperuser reads the superuser flag from the permission hash. A
// missing key or field reports false.
func (c *PermissionCache) IsSuperuser(ctx context.Context, id uint64) (bool, error) {
	data, err := c.client.HGet(ctx, permissionKey(id), superuserField).Result()
	if err != nil {
		if stderrors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, c.unavailable("is_superuser", err)
	}
	flag, err := strconv.ParseBool(data)
	if err != nil {
		return false, nil
	}
	return flag, nil
}

// DeletePermission drops the identity's permission hash.
func (c *PermissionCache) DeletePermission(ctx context.Context, id uint64) error {
	if err := c.client.Del(ctx, permissionKey(id)).Err(); err != nil {
		return c.unavailable("delete_permission", err)
	}
	return nil
}

// SetBlacklist records a logout cutoff for the identity. payload is the
// JSON-serializable claims of the token presented at logout; its nbf is
// compared against later tokens' iat during verification.
func (c *PermissionCache) SetBlacklist(ctx context.Context, id uint64, payload any, ttl time.Duration) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return c.unavailable("set_blacklist", err)
	}
	if err := c.client.Set(ctx, blacklistKey(id), data, ttl).Err(); err != nil {
		return c.unavailable("set_blacklist", err)
	}
	return nil
}

// GetBlacklist loads the identity's blacklist entry into dest. Returns
// false when no entry exists.
func (c *PermissionCache) GetBlacklist(ctx context.Context, id uint64, dest any) (bool, error) {
	data, err := c.client.Get(ctx, blacklistKey(id)).Result()
	if err != nil {
		if stderrors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, c.unavailable("get_blacklist", err)
	}
	if err := json.Unmarshal([]byte(data), dest); err != nil {
		return false, c.unavailable("get_blacklist", err)
	}
	return true, nil
}
