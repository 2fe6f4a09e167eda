package contract

import (
	"context"

	"ai-studytool-be/internal/entity"
)

type ToolConfigRepository interface {
	FindAllToolConfigs(ctx context.Context) ([]*entity.ToolConfig, error)
	UpsertToolConfigs(ctx context.Context, configs []*entity.ToolConfig) error

	FindAllCreditConfigs(ctx context.Context) ([]*entity.CreditConfig, error)
	FindCreditConfig(ctx context.Context, key string) (*entity.CreditConfig, error)
	UpsertCreditConfig(ctx context.Context, cfg *entity.CreditConfig) error
}
