package handlers

import (
	"github.com/gin-gonic/gin"

	"keel/internal/crud"
	"keel/internal/infrastructure/persistence/models"
	"keel/internal/interfaces/http/middleware"
)

// Audit rows are written by middleware and never edited; superusers may
// prune them, and pruning removes the rows physically.
func (h *Resources) registerOperationRecord(rg *gin.RouterGroup) error {
	desc := crud.Descriptor{
		Name:         "operation_record",
		ScalarFields: []string{"user_id", "username", "name", "login_ip", "method", "uri", "app", "module", "data"},
	}
	superuser := []gin.HandlerFunc{middleware.RequireSuperuser()}
	cfg := h.baseConfig("operation_record")
	cfg.Create = crud.Route{Disabled: true}
	cfg.Update = crud.Route{Disabled: true}
	cfg.DeleteOne = crud.Route{Middleware: superuser}
	cfg.DeleteAll = crud.Route{Middleware: superuser}
	// Audit rows carry no display name; pruning removes them outright.
	cfg.HardDelete = true

	resource, err := crud.NewResource[models.OperationRecord](h.db, desc, nil, crud.Hooks[models.OperationRecord]{}, cfg, h.log)
	if err != nil {
		return err
	}
	resource.Register(rg)
	return nil
}
