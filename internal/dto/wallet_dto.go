package dto

import (
	"time"

	"github.com/google/uuid"
)

type WalletResponse struct {
	FreeCredits  int `json:"free_credits"`
	PaidCredits  int `json:"paid_credits"`
	TotalCredits int `json:"total_credits"`
	UsedToday    int `json:"used_today"`
	DailyLimit   int `json:"daily_limit"`
}

type CreditCostResponse struct {
	ToolType        string  `json:"tool_type"`
	BaseCost        float64 `json:"base_cost"`
	CostMultiplier  float64 `json:"cost_multiplier"`
	CreditsRequired int     `json:"credits_required"`
	Enabled         bool    `json:"enabled"`
}

type CreditTransactionResponse struct {
	Id               uuid.UUID  `json:"id"`
	UserId           uuid.UUID  `json:"user_id"`
	TransactionType  string     `json:"transaction_type"`
	Amount           int        `json:"amount"`
	FreeAmount       int        `json:"free_amount"`
	PaidAmount       int        `json:"paid_amount"`
	PaidBalanceAfter int        `json:"paid_balance_after"`
	ServiceUsed      *string    `json:"service_used,omitempty"`
	RelatedId        *uuid.UUID `json:"related_id,omitempty"`
	Notes            *string    `json:"notes,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}
