package crud

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"keel/internal/infrastructure/auth"
)

// Hooks customizes a resource without subclassing. Every field is
// optional; nil means the default behavior.
//
// Pre hooks may reject the operation by returning an error before any
// mutation happens. Post hooks run after the commit, so their failures
// are logged and swallowed rather than undoing the committed change.
type Hooks[M any] struct {
	// PreCreate may transform or validate the incoming create body.
	PreCreate func(c *gin.Context, item map[string]any, payload *auth.Claims) (map[string]any, error)
	// CreateValidator turns the validated body into storage column
	// values. Defaults to identity.
	CreateValidator func(item map[string]any) (map[string]any, error)
	// PostCreate runs after the row is persisted and reloaded.
	PostCreate func(c *gin.Context, model *M, payload *auth.Claims) error

	// PreUpdate may transform or validate the incoming update body.
	PreUpdate func(c *gin.Context, item map[string]any, payload *auth.Claims) (map[string]any, error)
	// PostUpdate receives the reloaded row and the pre-update capture.
	PostUpdate func(c *gin.Context, updated, original *M, payload *auth.Claims) error

	// PreDelete may veto the deletion of the captured rows.
	PreDelete func(c *gin.Context, rows []*M, payload *auth.Claims) error
	// PostDelete runs after the rows are removed or tombstoned.
	PostDelete func(c *gin.Context, rows []*M, payload *auth.Claims) error

	// Statement overrides let an entity inject extra predicates or
	// strip privileged fields without touching the generic pipeline.
	GetAllStatement func(tx *gorm.DB, payload *auth.Claims) *gorm.DB
	GetOneStatement func(tx *gorm.DB, payload *auth.Claims) *gorm.DB
	UpdateStatement func(data map[string]any, payload *auth.Claims) map[string]any
}
