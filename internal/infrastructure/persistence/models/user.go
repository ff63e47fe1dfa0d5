package models

import "time"

// User is an account that can authenticate and hold roles.
type User struct {
	BaseModel
	Name          string     `gorm:"type:varchar(64)" json:"name"`
	Username      string     `gorm:"type:varchar(64);uniqueIndex:uq_user_username" json:"username"`
	// Password holds the bcrypt hash. The CRUD projection never exposes
	// it because it is not a declared scalar field.
	Password      string     `gorm:"type:varchar(128)" json:"password,omitempty"`
	Email         string     `gorm:"type:varchar(128)" json:"email"`
	Avatar        string     `gorm:"type:varchar(256)" json:"avatar"`
	Detail        string     `gorm:"type:varchar(512)" json:"detail"`
	Superuser     bool       `gorm:"default:false" json:"superuser"`
	LastLoginIP   string     `gorm:"type:varchar(64)" json:"last_login_ip"`
	LastLoginTime *time.Time `json:"last_login_time"`

	Roles []*Role `gorm:"many2many:user_to_role;constraint:OnDelete:CASCADE" json:"-"`
}

func (User) TableName() string { return "user" }
