package handlers

import (
	"github.com/gin-gonic/gin"

	"keel/internal/crud"
	"keel/internal/infrastructure/auth"
	"keel/internal/infrastructure/persistence/models"
	"keel/internal/shared/errors"
	"keel/internal/shared/response"
)

const minPasswordLength = 8

func roleIDs(u *models.User) []uint64 {
	ids := make([]uint64, 0, len(u.Roles))
	for _, r := range u.Roles {
		ids = append(ids, r.ID)
	}
	return ids
}

// validateNewUser rejects usernames outside the accepted charset, then
// applies the password rules. The login form binds the same charset, so
// every stored account stays able to sign in.
func (h *Resources) validateNewUser(item map[string]any) (map[string]any, error) {
	username, _ := item["username"].(string)
	if !usernameAllowed(username) {
		return nil, errors.Newf(errors.DataValidationFailed, "username must match %s", usernamePattern)
	}
	return h.validatePassword(item)
}

// validatePassword enforces the password and re_password pairing on
// create, replacing the clear text with its hash.
func (h *Resources) validatePassword(item map[string]any) (map[string]any, error) {
	password, _ := item["password"].(string)
	rePassword, _ := item["re_password"].(string)
	if len(password) < minPasswordLength {
		return nil, errors.Newf(errors.DataValidationFailed, "password must be at least %d characters", minPasswordLength)
	}
	if password != rePassword {
		return nil, errors.Newf(errors.DataValidationFailed, "password and re_password do not match")
	}
	hashed, err := h.hasher.Hash(password)
	if err != nil {
		return nil, err
	}
	item["password"] = hashed
	delete(item, "re_password")
	return item, nil
}

// hashUpdatedPassword hashes a replacement password on update; an empty
// or absent password leaves the stored hash untouched.
func (h *Resources) hashUpdatedPassword(_ *gin.Context, item map[string]any, _ *auth.Claims) (map[string]any, error) {
	password, present := item["password"]
	if !present {
		return item, nil
	}
	clear, _ := password.(string)
	if clear == "" {
		delete(item, "password")
		return item, nil
	}
	if len(clear) < minPasswordLength {
		return nil, errors.Newf(errors.DataValidationFailed, "password must be at least %d characters", minPasswordLength)
	}
	hashed, err := h.hasher.Hash(clear)
	if err != nil {
		return nil, err
	}
	item["password"] = hashed
	return item, nil
}

func (h *Resources) registerUser(rg *gin.RouterGroup) error {
	desc := crud.Descriptor{
		Name:         "user",
		DisplayField: "username",
		ScalarFields: []string{"name", "username", "email", "avatar", "detail", "superuser", "last_login_ip", "last_login_time"},
		CreateFields: []string{"name", "username", "password", "re_password", "email", "avatar", "detail", "superuser"},
		UpdateFields: []string{"name", "username", "password", "email", "avatar", "detail", "superuser", "status", "level"},
	}
	relations := []crud.RelationField[models.User]{
		{Name: "roles", Association: "Roles", IDs: roleIDs},
	}
	hooks := crud.Hooks[models.User]{
		PreCreate:       composePre(sanitizeFields("name", "detail"), stripPrivilegedPre("superuser")),
		CreateValidator: h.validateNewUser,
		PreUpdate:       composePre(sanitizeFields("name", "detail"), h.hashUpdatedPassword),
		UpdateStatement: stripPrivileged("status", "superuser"),
	}

	resource, err := crud.NewResource(h.db, desc, relations, hooks, h.baseConfig("user"), h.log)
	if err != nil {
		return err
	}
	resource.Register(rg)

	rg.PUT("/user/:item_id/roles", h.mergeUserRoles)
	return nil
}

// MergeUserRoles godoc
// @Summary Reconcile a user's roles against an id list
// @Tags user
// @Accept json
// @Produce json
// @Param item_id path int true "user id"
// @Success 200 {object} response.Envelope
// @Router /user/{item_id}/roles [put]
func (h *Resources) mergeUserRoles(c *gin.Context) {
	user, target, err := loadForMerge[models.User](c, h.db, "Roles")
	if err != nil {
		response.Error(c, err)
		return
	}

	related := func(ids []uint64) any {
		roles := make([]*models.Role, len(ids))
		for i, id := range ids {
			roles[i] = &models.Role{BaseModel: models.BaseModel{ID: id}}
		}
		return roles
	}
	if err := crud.MergeAssociation(h.db, user, "Roles", roleIDs(user), target, related); err != nil {
		h.log.Errorw("failed to merge user roles", "user_id", user.ID, "error", err)
		response.Error(c, errors.New(errors.UpdateFailed))
		return
	}
	response.OK(c, gin.H{"id": user.ID, "roles": target})
}
