package contract

import (
	"context"
	"time"

	"ai-studytool-be/internal/entity"

	"github.com/google/uuid"
)

type WalletRepository interface {
	Create(ctx context.Context, wallet *entity.Wallet) error
	FindByUserId(ctx context.Context, userId uuid.UUID) (*entity.Wallet, error)
	// FindByUserIdForUpdate locks the wallet row until the surrounding transaction ends.
	FindByUserIdForUpdate(ctx context.Context, userId uuid.UUID) (*entity.Wallet, error)
	// DeductPaidCredits decrements only if the balance covers amount; false means it did not.
	DeductPaidCredits(ctx context.Context, userId uuid.UUID, amount int) (bool, error)
	AddPaidCredits(ctx context.Context, userId uuid.UUID, amount int) error

	FindDailyUsage(ctx context.Context, userId uuid.UUID, usageDate time.Time) (*entity.DailyFreeUsage, error)
	// IncrementDailyUsage inserts the (user, date) row with amount or adds amount to it.
	IncrementDailyUsage(ctx context.Context, userId uuid.UUID, usageDate time.Time, amount int) error
}
