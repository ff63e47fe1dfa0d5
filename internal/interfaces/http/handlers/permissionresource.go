package handlers

import (
	"github.com/gin-gonic/gin"

	"keel/internal/crud"
	"keel/internal/infrastructure/persistence/models"
	"keel/internal/interfaces/http/middleware"
)

// The permission catalog is seeded from code, so single-row mutation
// routes stay off; only superusers may bulk-prune stale entries.
func (h *Resources) registerPermission(rg *gin.RouterGroup) error {
	desc := crud.Descriptor{
		Name:         "permission",
		DisplayField: "code",
		ScalarFields: []string{"title", "url", "method", "code", "is_external"},
	}
	cfg := h.baseConfig("permission")
	cfg.Create = crud.Route{Disabled: true}
	cfg.Update = crud.Route{Disabled: true}
	cfg.DeleteOne = crud.Route{Disabled: true}
	cfg.DeleteAll = crud.Route{Middleware: []gin.HandlerFunc{middleware.RequireSuperuser()}}

	resource, err := crud.NewResource[models.Permission](h.db, desc, nil, crud.Hooks[models.Permission]{}, cfg, h.log)
	if err != nil {
		return err
	}
	resource.Register(rg)
	return nil
}
