package handlers

import (
	"github.com/gin-gonic/gin"

	"keel/internal/crud"
	"keel/internal/infrastructure/persistence/models"
	"keel/internal/shared/errors"
	"keel/internal/shared/response"
)

func permissionIDs(r *models.Role) []uint64 {
	ids := make([]uint64, 0, len(r.Permissions))
	for _, p := range r.Permissions {
		ids = append(ids, p.ID)
	}
	return ids
}

func menuIDs(r *models.Role) []uint64 {
	ids := make([]uint64, 0, len(r.Menus))
	for _, m := range r.Menus {
		ids = append(ids, m.ID)
	}
	return ids
}

func (h *Resources) registerRole(rg *gin.RouterGroup) error {
	desc := crud.Descriptor{
		Name:         "role",
		DisplayField: "name",
		ScalarFields: []string{"name", "detail"},
		CreateFields: []string{"name", "detail"},
		UpdateFields: []string{"name", "detail", "status", "level"},
	}
	relations := []crud.RelationField[models.Role]{
		{Name: "permissions", Association: "Permissions", IDs: permissionIDs},
		{Name: "menus", Association: "Menus", IDs: menuIDs},
	}
	hooks := crud.Hooks[models.Role]{
		PreCreate:       sanitizeFields("name", "detail"),
		PreUpdate:       sanitizeFields("name", "detail"),
		UpdateStatement: stripPrivileged("status"),
	}

	resource, err := crud.NewResource(h.db, desc, relations, hooks, h.baseConfig("role"), h.log)
	if err != nil {
		return err
	}
	resource.Register(rg)

	rg.PUT("/role/:item_id/permissions", h.mergeRolePermissions)
	rg.PUT("/role/:item_id/menus", h.mergeRoleMenus)
	return nil
}

// MergeRolePermissions godoc
// @Summary Reconcile a role's permissions against an id list
// @Tags role
// @Accept json
// @Produce json
// @Param item_id path int true "role id"
// @Success 200 {object} response.Envelope
// @Router /role/{item_id}/permissions [put]
func (h *Resources) mergeRolePermissions(c *gin.Context) {
	role, target, err := loadForMerge[models.Role](c, h.db, "Permissions")
	if err != nil {
		response.Error(c, err)
		return
	}

	related := func(ids []uint64) any {
		perms := make([]*models.Permission, len(ids))
		for i, id := range ids {
			perms[i] = &models.Permission{BaseModel: models.BaseModel{ID: id}}
		}
		return perms
	}
	if err := crud.MergeAssociation(h.db, role, "Permissions", permissionIDs(role), target, related); err != nil {
		h.log.Errorw("failed to merge role permissions", "role_id", role.ID, "error", err)
		response.Error(c, errors.New(errors.UpdateFailed))
		return
	}
	response.OK(c, gin.H{"id": role.ID, "permissions": target})
}

// MergeRoleMenus godoc
// @Summary Reconcile a role's menus against an id list
// @Tags role
// @Accept json
// @Produce json
// @Param item_id path int true "role id"
// @Success 200 {object} response.Envelope
// @Router /role/{item_id}/menus [put]
func (h *Resources) mergeRoleMenus(c *gin.Context) {
	role, target, err := loadForMerge[models.Role](c, h.db, "Menus")
	if err != nil {
		response.Error(c, err)
		return
	}

	related := func(ids []uint64) any {
		menus := make([]*models.Menu, len(ids))
		for i, id := range ids {
			menus[i] = &models.Menu{BaseModel: models.BaseModel{ID: id}}
		}
		return menus
	}
	if err := crud.MergeAssociation(h.db, role, "Menus", menuIDs(role), target, related); err != nil {
		h.log.Errorw("failed to merge role menus", "role_id", role.ID, "error", err)
		response.Error(c, errors.New(errors.UpdateFailed))
		return
	}
	response.OK(c, gin.H{"id": role.ID, "menus": target})
}
