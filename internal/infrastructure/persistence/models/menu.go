package models

// Menu is a navigation node. Parent is nil for top-level entries.
type Menu struct {
	BaseModel
	Title    string  `gorm:"type:varchar(64)" json:"title"`
	Parent   *uint64 `gorm:"index" json:"parent"`
	IsParent bool    `gorm:"default:false" json:"is_parent"`
	Icon     string  `gorm:"type:varchar(64)" json:"icon"`
	Path     string  `gorm:"type:varchar(256)" json:"path"`
	Hidden   bool    `gorm:"default:false" json:"hidden"`

	Roles []*Role `gorm:"many2many:role_to_menu;constraint:OnDelete:CASCADE" json:"-"`
}

func (Menu) TableName() string { return "menu" }
