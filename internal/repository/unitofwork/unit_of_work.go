package unitofwork

import (
	"context"

	"ai-studytool-be/internal/repository/contract"
)

// UnitOfWork hands out repositories bound to one transaction once Begin is called,
// or to the plain connection pool otherwise.
type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	UserRepository() contract.UserRepository
	WalletRepository() contract.WalletRepository
	CreditTransactionRepository() contract.CreditTransactionRepository
	AiRequestRepository() contract.AiRequestRepository
	ToolConfigRepository() contract.ToolConfigRepository
	HistoryRepository() contract.HistoryRepository
}
