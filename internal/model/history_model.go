package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type History struct {
	Id          uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId      uuid.UUID      `gorm:"type:uuid;not null;index"`
	ToolType    string         `gorm:"type:varchar(50);not null;index"`
	InputText   string         `gorm:"type:text;not null"`
	OutputText  string         `gorm:"type:text;not null"`
	Settings    datatypes.JSON `gorm:"type:jsonb"`
	CreditsUsed int            `gorm:"not null;default:0"`
	CreatedAt   time.Time      `gorm:"autoCreateTime;index"`
}

func (History) TableName() string {
	return "histories"
}
