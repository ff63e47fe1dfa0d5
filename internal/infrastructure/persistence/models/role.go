package models

// Role groups permissions and menus and is granted to users.
type Role struct {
	BaseModel
	Name   string `gorm:"type:varchar(64);uniqueIndex:uq_role_name" json:"name"`
	Detail string `gorm:"type:varchar(512)" json:"detail"`

	Users       []*User       `gorm:"many2many:user_to_role;constraint:OnDelete:CASCADE" json:"-"`
	Permissions []*Permission `gorm:"many2many:role_to_permission;constraint:OnDelete:CASCADE" json:"-"`
	Menus       []*Menu       `gorm:"many2many:role_to_menu;constraint:OnDelete:CASCADE" json:"-"`
}

func (Role) TableName() string { return "role" }
