package model

import (
	"time"

	"github.com/google/uuid"
)

type AiRequest struct {
	Id               uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId           uuid.UUID `gorm:"type:uuid;not null;index:idx_ai_requests_cooldown,priority:1"`
	ToolType         string    `gorm:"type:varchar(50);not null;index:idx_ai_requests_cooldown,priority:2"`
	CreditsUsed      int       `gorm:"not null;default:0"`
	Status           string    `gorm:"type:varchar(20);not null;default:'pending';index:idx_ai_requests_cooldown,priority:3"`
	ProcessingTimeMs int64     `gorm:"not null;default:0"`
	ErrorMessage     *string   `gorm:"type:text"`
	CreatedAt        time.Time `gorm:"not null;index:idx_ai_requests_cooldown,priority:4,sort:desc"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime"`
}

func (AiRequest) TableName() string {
	return "ai_requests"
}

// ToolUsageRow receives the GROUP BY tool_type aggregates.
type ToolUsageRow struct {
	ToolType          string
	TotalRequests     int64
	SuccessfulCount   int64
	FailedCount       int64
	TotalCredits      int64
	AvgProcessingTime float64
}
