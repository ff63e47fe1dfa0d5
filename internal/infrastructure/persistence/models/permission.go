package models

// PermissionMethod is the HTTP method a permission applies to.
type PermissionMethod string

const (
	MethodGet    PermissionMethod = "GET"
	MethodPost   PermissionMethod = "POST"
	MethodPut    PermissionMethod = "PUT"
	MethodDelete PermissionMethod = "DELETE"
	MethodPatch  PermissionMethod = "PATCH"
)

// PermissionMethods lists every supported method, in the order the
// permission cache stores them.
func PermissionMethods() []PermissionMethod {
	return []PermissionMethod{MethodGet, MethodPost, MethodPut, MethodDelete, MethodPatch}
}

// Permission grants a URL pattern for one HTTP method.
type Permission struct {
	BaseModel
	Title      string           `gorm:"type:varchar(64)" json:"title"`
	URL        string           `gorm:"type:varchar(256)" json:"url"`
	Method     PermissionMethod `gorm:"type:varchar(8);default:GET" json:"method"`
	Code       string           `gorm:"type:varchar(64);uniqueIndex:uq_permission_code" json:"code"`
	IsExternal bool             `gorm:"default:false" json:"is_external"`

	Roles []*Role `gorm:"many2many:role_to_permission;constraint:OnDelete:CASCADE" json:"-"`
}

func (Permission) TableName() string { return "permission" }
