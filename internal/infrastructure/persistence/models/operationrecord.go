package models

import "gorm.io/datatypes"

// OperationRecord is an audit row written after mutating requests.
type OperationRecord struct {
	BaseModel
	UserID   uint64           `gorm:"index" json:"user_id"`
	Username string           `gorm:"type:varchar(64)" json:"username"`
	Name     string           `gorm:"type:varchar(64)" json:"name"`
	LoginIP  string           `gorm:"type:varchar(64)" json:"login_ip"`
	Method   PermissionMethod `gorm:"type:varchar(8)" json:"method"`
	URI      string           `gorm:"type:varchar(256)" json:"uri"`
	App      string           `gorm:"type:varchar(64)" json:"app"`
	Module   string           `gorm:"type:varchar(64)" json:"module"`
	Data     datatypes.JSON   `json:"data"`
}

func (OperationRecord) TableName() string { return "operation_record" }
