// Package models defines the persisted entities and their join tables.
package models

import (
	"time"

	"gorm.io/gorm"

	"keel/internal/shared/id"
	"keel/internal/shared/status"
)

// BaseModel carries the columns every entity owns. The id comes from
// the snowflake generator, status defaults to active and level to the
// time-derived ordering value.
type BaseModel struct {
	ID         uint64        `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Status     status.Status `gorm:"type:varchar(16);index;default:active" json:"status"`
	Level      int64         `gorm:"index" json:"level"`
	CreateTime time.Time     `gorm:"autoCreateTime" json:"create_time"`
	UpdateTime time.Time     `gorm:"autoUpdateTime" json:"update_time"`
}

// GetID exposes the primary key to generic consumers.
func (m *BaseModel) GetID() uint64 { return m.ID }

// BeforeCreate fills the generated columns that callers leave zero.
func (m *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == 0 {
		next, err := id.Next()
		if err != nil {
			return err
		}
		m.ID = next
	}
	if m.Status == "" {
		m.Status = status.Active
	}
	if m.Level == 0 {
		m.Level = id.LevelSince()
	}
	return nil
}
