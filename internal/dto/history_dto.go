package dto

import (
	"time"

	"github.com/google/uuid"
)

// SaveHistoryRequest saves either a recent result by RequestId or explicit content.
type SaveHistoryRequest struct {
	RequestId   *uuid.UUID             `json:"request_id"`
	ToolType    string                 `json:"tool_type" validate:"required_without=RequestId,max=50"`
	InputText   string                 `json:"input_text" validate:"required_without=RequestId"`
	OutputText  string                 `json:"output_text" validate:"required_without=RequestId"`
	Settings    map[string]interface{} `json:"settings"`
	CreditsUsed int                    `json:"credits_used" validate:"min=0"`
}

type HistoryResponse struct {
	Id          uuid.UUID              `json:"id"`
	ToolType    string                 `json:"tool_type"`
	InputText   string                 `json:"input_text"`
	OutputText  string                 `json:"output_text"`
	Settings    map[string]interface{} `json:"settings,omitempty"`
	CreditsUsed int                    `json:"credits_used"`
	CreatedAt   time.Time              `json:"created_at"`
}
