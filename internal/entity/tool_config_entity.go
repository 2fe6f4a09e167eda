package entity

import (
	"encoding/json"
	"time"
)

type ToolConfig struct {
	ToolId          string
	ToolName        string
	Description     string
	Enabled         bool
	MinChars        int
	MaxChars        int
	CooldownSeconds int
	CostMultiplier  float64
	ModelProvider   string
	ModelName       string
	UpdatedAt       time.Time
}

const (
	CreditConfigToolPricing      = "tool_pricing"
	CreditConfigDailyFreeCredits = "daily_free_credits"
	CreditConfigBonus            = "bonus_config"
)

// CreditConfig is one key of the credit_configs table. Values are raw JSON.
type CreditConfig struct {
	Key       string
	Value     json.RawMessage
	UpdatedAt time.Time
}

type BonusConfig struct {
	Enabled    bool       `json:"enabled"`
	Amount     int        `json:"amount"`
	Reason     string     `json:"reason"`
	ValidUntil *time.Time `json:"validUntil,omitempty"`
}
