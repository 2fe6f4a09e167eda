package entity

import (
	"time"

	"github.com/google/uuid"
)

type AiRequestStatus string

const (
	AiRequestStatusPending AiRequestStatus = "pending"
	AiRequestStatusSuccess AiRequestStatus = "success"
	AiRequestStatusFailed  AiRequestStatus = "failed"
)

// AiRequest is the usage record of one tool invocation.
type AiRequest struct {
	Id               uuid.UUID
	UserId           uuid.UUID
	ToolType         string
	CreditsUsed      int
	Status           AiRequestStatus
	ProcessingTimeMs int64
	ErrorMessage     *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// ToolUsageStat is an aggregate over ai_requests grouped by tool.
type ToolUsageStat struct {
	ToolType          string
	TotalRequests     int64
	SuccessfulCount   int64
	FailedCount       int64
	TotalCredits      int64
	AvgProcessingTime float64
}

func (s ToolUsageStat) SuccessRate() float64 {
	if s.TotalRequests == 0 {
		return 0
	}
	return float64(s.SuccessfulCount) / float64(s.TotalRequests) * 100
}

// ToolResult is a finished invocation kept in memory so the user can save it to history.
type ToolResult struct {
	RequestId   uuid.UUID
	UserId      uuid.UUID
	ToolType    string
	InputText   string
	OutputText  string
	Settings    map[string]interface{}
	CreditsUsed int
	CreatedAt   time.Time
}
