package dto

import "time"

type BonusConfigDTO struct {
	Enabled    bool       `json:"enabled"`
	Amount     int        `json:"amount" validate:"min=0"`
	Reason     string     `json:"reason" validate:"max=255"`
	ValidUntil *time.Time `json:"valid_until,omitempty"`
}

type CreditConfigResponse struct {
	ToolPricing      map[string]float64 `json:"tool_pricing"`
	DailyFreeCredits int                `json:"daily_free_credits"`
	BonusConfig      BonusConfigDTO     `json:"bonus_config"`
}

// UpdateCreditConfigRequest updates only the sections that are present. Base prices may
// be fractional; the charged cost is rounded up per request.
type UpdateCreditConfigRequest struct {
	ToolPricing      map[string]float64 `json:"tool_pricing" validate:"omitempty,dive,keys,required,max=50,endkeys,min=0"`
	DailyFreeCredits *int               `json:"daily_free_credits" validate:"omitempty,min=0"`
	BonusConfig      *BonusConfigDTO    `json:"bonus_config"`
}

type ToolConfigDTO struct {
	ToolId          string    `json:"tool_id" validate:"required,max=50"`
	ToolName        string    `json:"tool_name" validate:"required,max=100"`
	Description     string    `json:"description"`
	Enabled         bool      `json:"enabled"`
	MinChars        int       `json:"min_chars" validate:"min=0"`
	MaxChars        int       `json:"max_chars" validate:"min=0"`
	CooldownSeconds int       `json:"cooldown_seconds" validate:"min=0"`
	CostMultiplier  float64   `json:"cost_multiplier" validate:"min=0"`
	ModelProvider   string    `json:"model_provider" validate:"max=50"`
	ModelName       string    `json:"model_name" validate:"max=100"`
	UpdatedAt       time.Time `json:"updated_at,omitempty"`
}

type UpdateToolConfigsRequest struct {
	Tools []ToolConfigDTO `json:"tools" validate:"required,min=1,dive"`
}

type GrantCreditsRequest struct {
	Amount int    `json:"amount" validate:"required,gt=0,lte=1000000"`
	Notes  string `json:"notes" validate:"max=500"`
}

type LogListResponse struct {
	Id        string                 `json:"id"`
	Timestamp string                 `json:"timestamp"`
	Level     string                 `json:"level"`
	Module    string                 `json:"module"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
}
