package specification

import (
	"time"

	"gorm.io/gorm"
)

type ByToolType struct {
	ToolType string
}

func (s ByToolType) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("tool_type = ?", s.ToolType)
}

type ByStatus struct {
	Status string
}

func (s ByStatus) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("status = ?", s.Status)
}

type CreatedBefore struct {
	Time time.Time
}

func (s CreatedBefore) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("created_at < ?", s.Time)
}
