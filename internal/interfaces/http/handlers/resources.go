package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/microcosm-cc/bluemonday"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"keel/internal/crud"
	"keel/internal/infrastructure/auth"
	sharedConfig "keel/internal/shared/config"
	"keel/internal/shared/errors"
	"keel/internal/shared/logger"
)

// sanitizer strips markup from user-supplied text columns before they
// reach storage.
var sanitizer = bluemonday.StrictPolicy()

type preHook func(*gin.Context, map[string]any, *auth.Claims) (map[string]any, error)

// sanitizeFields strips markup from the named string fields.
func sanitizeFields(fields ...string) preHook {
	return func(_ *gin.Context, item map[string]any, _ *auth.Claims) (map[string]any, error) {
		for _, field := range fields {
			if value, ok := item[field].(string); ok {
				item[field] = sanitizer.Sanitize(value)
			}
		}
		return item, nil
	}
}

// composePre chains pre hooks left to right, stopping on the first
// error.
func composePre(hooks ...preHook) preHook {
	return func(c *gin.Context, item map[string]any, payload *auth.Claims) (map[string]any, error) {
		var err error
		for _, hook := range hooks {
			if item, err = hook(c, item, payload); err != nil {
				return nil, err
			}
		}
		return item, nil
	}
}

// Resources registers the generated CRUD endpoints and their custom
// companions (association merges, the menu tree).
type Resources struct {
	db       *gorm.DB
	rdb      *redis.Client
	hasher   *auth.BcryptPasswordHasher
	pipeline sharedConfig.CRUDConfig
	log      logger.Interface
}

func NewResources(db *gorm.DB, rdb *redis.Client, hasher *auth.BcryptPasswordHasher, pipeline sharedConfig.CRUDConfig, log logger.Interface) *Resources {
	return &Resources{db: db, rdb: rdb, hasher: hasher, pipeline: pipeline, log: log}
}

// baseConfig applies the deployment-wide CRUD settings to one
// resource's configuration.
func (h *Resources) baseConfig(tags ...string) crud.Config {
	return crud.Config{
		Paginate:   h.pipeline.MaxPageSize,
		HardDelete: h.pipeline.HardDelete,
		Tags:       tags,
	}
}

// Register mounts every resource under the given group. The group is
// expected to carry the authentication middleware already.
func (h *Resources) Register(rg *gin.RouterGroup) error {
	if err := h.registerUser(rg); err != nil {
		return err
	}
	if err := h.registerRole(rg); err != nil {
		return err
	}
	if err := h.registerMenu(rg); err != nil {
		return err
	}
	if err := h.registerPermission(rg); err != nil {
		return err
	}
	return h.registerOperationRecord(rg)
}

// stripPrivileged drops the named fields from an update unless the
// caller is a superuser.
func stripPrivileged(fields ...string) func(map[string]any, *auth.Claims) map[string]any {
	return func(item map[string]any, payload *auth.Claims) map[string]any {
		if !payload.IsAnonymous() && payload.Data.Superuser {
			return item
		}
		for _, field := range fields {
			delete(item, field)
		}
		return item
	}
}

// stripPrivilegedPre is stripPrivileged for the create path, where the
// body flows through pre hooks rather than a statement override.
func stripPrivilegedPre(fields ...string) preHook {
	strip := stripPrivileged(fields...)
	return func(_ *gin.Context, item map[string]any, payload *auth.Claims) (map[string]any, error) {
		return strip(item, payload), nil
	}
}

// loadForMerge binds the posted target id list and loads the addressed
// row with the association preloaded.
func loadForMerge[M any](c *gin.Context, db *gorm.DB, association string) (*M, []uint64, error) {
	id, err := strconv.ParseUint(c.Param("item_id"), 10, 64)
	if err != nil {
		return nil, nil, errors.Newf(errors.DataValidationFailed, "item_id must be an integer, got %q", c.Param("item_id"))
	}
	var target []uint64
	if err := c.ShouldBindJSON(&target); err != nil {
		return nil, nil, errors.Newf(errors.DataValidationFailed, "request body must be an id list")
	}

	var rows []*M
	if err := db.WithContext(c.Request.Context()).Preload(association).Where("id = ?", id).Limit(1).Find(&rows).Error; err != nil {
		return nil, nil, errors.New(errors.CommonError)
	}
	if len(rows) == 0 {
		return nil, nil, errors.New(errors.ItemNotFound)
	}
	return rows[0], target, nil
}
