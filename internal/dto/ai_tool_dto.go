package dto

import (
	"time"

	"github.com/google/uuid"
)

// ToolRequest is the body of every POST /api/ai/:tool call. Options are tool specific
// (questions: count, difficulty; explain: level; rewrite: style; summary: length).
type ToolRequest struct {
	Text    string                 `json:"text" validate:"required,max=50000"`
	Options map[string]interface{} `json:"options"`
}

type ToolResponse struct {
	Result           interface{} `json:"result"`
	ToolType         string      `json:"tool_type"`
	CreditsUsed      int         `json:"credits_used"`
	ProcessingTime   int64       `json:"processing_time"`
	RemainingCredits int         `json:"remaining_credits"`
	RequestId        uuid.UUID   `json:"request_id"`
}

type EstimateRequest struct {
	ToolType   string `json:"tool_type" validate:"required,max=50"`
	TextLength int    `json:"text_length" validate:"omitempty,min=0"`
}

type EstimateResponse struct {
	ToolType        string `json:"tool_type"`
	CreditsRequired int    `json:"credits_required"`
}

type AiRequestResponse struct {
	Id               uuid.UUID `json:"id"`
	ToolType         string    `json:"tool_type"`
	CreditsUsed      int       `json:"credits_used"`
	Status           string    `json:"status"`
	ProcessingTimeMs int64     `json:"processing_time_ms"`
	CreatedAt        time.Time `json:"created_at"`
}

type ToolUsageStatResponse struct {
	ToolType          string  `json:"tool_type"`
	TotalRequests     int64   `json:"total_requests"`
	SuccessfulCount   int64   `json:"successful_count"`
	FailedCount       int64   `json:"failed_count"`
	TotalCredits      int64   `json:"total_credits"`
	AvgProcessingTime float64 `json:"avg_processing_time_ms"`
	SuccessRate       float64 `json:"success_rate"`
}
