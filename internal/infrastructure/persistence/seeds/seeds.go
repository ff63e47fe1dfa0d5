// Package seeds provisions the baseline records a fresh deployment
// needs: the admin account, its role and the permission catalog.
package seeds

import (
	"fmt"

	"gorm.io/gorm"

	"keel/internal/infrastructure/auth"
	"keel/internal/infrastructure/persistence/models"
	"keel/internal/shared/logger"
	"keel/internal/shared/status"
)

const (
	adminUsername = "admin"
	adminRoleName = "admin"
)

// catalog returns the full permission catalog covering the generated
// resource routes. URLs are anchored patterns matched against the
// request path.
func catalog() []models.Permission {
	resources := []string{"user", "role", "menu", "permission", "operation_record"}
	var perms []models.Permission
	for _, name := range resources {
		listURL := fmt.Sprintf(`^/api/v1/%s$`, name)
		itemURL := fmt.Sprintf(`^/api/v1/%s/\d+(/\w+)?$`, name)
		perms = append(perms,
			models.Permission{Title: name + " list", Method: models.MethodGet, URL: listURL, Code: name + ":list"},
			models.Permission{Title: name + " read", Method: models.MethodGet, URL: itemURL, Code: name + ":read"},
			models.Permission{Title: name + " create", Method: models.MethodPost, URL: listURL, Code: name + ":create"},
			models.Permission{Title: name + " update", Method: models.MethodPut, URL: itemURL, Code: name + ":update"},
			models.Permission{Title: name + " delete", Method: models.MethodDelete, URL: fmt.Sprintf(`^/api/v1/%s(/\d+)?$`, name), Code: name + ":delete"},
		)
	}
	perms = append(perms,
		models.Permission{Title: "menu tree", Method: models.MethodGet, URL: `^/api/v1/menu/tree$`, Code: "menu:tree"},
	)
	return perms
}

// Seed provisions the admin role, the permission catalog and the admin
// account. It is idempotent: existing rows keyed by their unique
// columns are left untouched.
func Seed(db *gorm.DB, hasher *auth.BcryptPasswordHasher, adminPassword string, log logger.Interface) error {
	log = log.Named("seeds")

	var role models.Role
	err := db.Where(models.Role{Name: adminRoleName}).
		Attrs(models.Role{Detail: "built-in administrator role"}).
		FirstOrCreate(&role).Error
	if err != nil {
		return fmt.Errorf("failed to seed admin role: %w", err)
	}

	seeded := 0
	for _, perm := range catalog() {
		var existing models.Permission
		res := db.Where(models.Permission{Code: perm.Code}).
			Attrs(perm).
			FirstOrCreate(&existing)
		if res.Error != nil {
			return fmt.Errorf("failed to seed permission %s: %w", perm.Code, res.Error)
		}
		if res.RowsAffected > 0 {
			seeded++
		}
		if err := db.Model(&role).Association("Permissions").Append(&existing); err != nil {
			return fmt.Errorf("failed to grant %s to admin role: %w", perm.Code, err)
		}
	}
	log.Infow("permission catalog ready", "permissions", seeded)

	var count int64
	if err := db.Model(&models.User{}).Where("username = ?", adminUsername).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check admin user: %w", err)
	}
	if count > 0 {
		return nil
	}

	hashed, err := hasher.Hash(adminPassword)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}
	admin := models.User{
		Name:      "Administrator",
		Username:  adminUsername,
		Password:  hashed,
		Superuser: true,
		Roles:     []*models.Role{&role},
	}
	admin.Status = status.Active
	if err := db.Create(&admin).Error; err != nil {
		return fmt.Errorf("failed to seed admin user: %w", err)
	}
	log.Infow("admin account created", "username", adminUsername)
	return nil
}
