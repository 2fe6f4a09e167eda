package model

import (
	"time"

	"gorm.io/datatypes"
)

type ToolConfig struct {
	ToolId          string    `gorm:"type:varchar(50);primaryKey"`
	ToolName        string    `gorm:"type:varchar(100);not null"`
	Description     string    `gorm:"type:text"`
	Enabled         bool      `gorm:"not null;default:true"`
	MinChars        int       `gorm:"not null;default:0"`
	MaxChars        int       `gorm:"not null;default:0"`
	CooldownSeconds int       `gorm:"not null;default:0"`
	CostMultiplier  float64   `gorm:"type:numeric(6,2);not null;default:1.0"`
	ModelProvider   string    `gorm:"type:varchar(50)"`
	ModelName       string    `gorm:"type:varchar(100)"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime"`
}

func (ToolConfig) TableName() string {
	return "tool_configs"
}

type CreditConfig struct {
	Key       string         `gorm:"type:varchar(100);primaryKey"`
	Value     datatypes.JSON `gorm:"not null"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime"`
}

func (CreditConfig) TableName() string {
	return "credit_configs"
}
