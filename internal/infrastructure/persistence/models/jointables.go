package models

import (
	"gorm.io/gorm"

	"keel/internal/shared/id"
)

// Join tables own a surrogate snowflake id and enforce uniqueness over
// the foreign-key pair. They are registered with SetupJoinTable so the
// many2many associations run through them.

type UserToRole struct {
	ID     uint64 `gorm:"primaryKey;autoIncrement:false"`
	UserID uint64 `gorm:"uniqueIndex:uq_user_to_role_pair"`
	RoleID uint64 `gorm:"uniqueIndex:uq_user_to_role_pair"`
}

func (UserToRole) TableName() string { return "user_to_role" }

func (j *UserToRole) BeforeCreate(tx *gorm.DB) error {
	return assignJoinID(&j.ID)
}

type RoleToPermission struct {
	ID           uint64 `gorm:"primaryKey;autoIncrement:false"`
	RoleID       uint64 `gorm:"uniqueIndex:uq_role_to_permission_pair"`
	PermissionID uint64 `gorm:"uniqueIndex:uq_role_to_permission_pair"`
}

func (RoleToPermission) TableName() string { return "role_to_permission" }

func (j *RoleToPermission) BeforeCreate(tx *gorm.DB) error {
	return assignJoinID(&j.ID)
}

type RoleToMenu struct {
	ID     uint64 `gorm:"primaryKey;autoIncrement:false"`
	RoleID uint64 `gorm:"uniqueIndex:uq_role_to_menu_pair"`
	MenuID uint64 `gorm:"uniqueIndex:uq_role_to_menu_pair"`
}

func (RoleToMenu) TableName() string { return "role_to_menu" }

func (j *RoleToMenu) BeforeCreate(tx *gorm.DB) error {
	return assignJoinID(&j.ID)
}

func assignJoinID(target *uint64) error {
	if *target != 0 {
		return nil
	}
	next, err := id.Next()
	if err != nil {
		return err
	}
	*target = next
	return nil
}

// SetupJoinTables points every many2many association at its surrogate
// join model. Must run before AutoMigrate and before association
// writes.
func SetupJoinTables(db *gorm.DB) error {
	if err := db.SetupJoinTable(&User{}, "Roles", &UserToRole{}); err != nil {
		return err
	}
	if err := db.SetupJoinTable(&Role{}, "Users", &UserToRole{}); err != nil {
		return err
	}
	if err := db.SetupJoinTable(&Role{}, "Permissions", &RoleToPermission{}); err != nil {
		return err
	}
	if err := db.SetupJoinTable(&Permission{}, "Roles", &RoleToPermission{}); err != nil {
		return err
	}
	if err := db.SetupJoinTable(&Role{}, "Menus", &RoleToMenu{}); err != nil {
		return err
	}
	if err := db.SetupJoinTable(&Menu{}, "Roles", &RoleToMenu{}); err != nil {
		return err
	}
	return nil
}

// All lists every model in migration order.
func All() []any {
	return []any{
		&User{},
		&Role{},
		&Permission{},
		&Menu{},
		&OperationRecord{},
		&UserToRole{},
		&RoleToPermission{},
		&RoleToMenu{},
	}
}
