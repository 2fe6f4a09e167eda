package mapper

import (
	"ai-studytool-be/internal/entity"
	"ai-studytool-be/internal/model"
)

type WalletMapper struct{}

func NewWalletMapper() *WalletMapper {
	return &WalletMapper{}
}

func (m *WalletMapper) ToEntity(w *model.Wallet) *entity.Wallet {
	if w == nil {
		return nil
	}
	return &entity.Wallet{
		Id:          w.Id,
		UserId:      w.UserId,
		PaidCredits: w.PaidCredits,
		CreatedAt:   w.CreatedAt,
		UpdatedAt:   w.UpdatedAt,
	}
}

func (m *WalletMapper) ToModel(w *entity.Wallet) *model.Wallet {
	if w == nil {
		return nil
	}
	return &model.Wallet{
		Id:          w.Id,
		UserId:      w.UserId,
		PaidCredits: w.PaidCredits,
		CreatedAt:   w.CreatedAt,
		UpdatedAt:   w.UpdatedAt,
	}
}

func (m *WalletMapper) UsageToEntity(u *model.DailyFreeUsage) *entity.DailyFreeUsage {
	if u == nil {
		return nil
	}
	return &entity.DailyFreeUsage{
		UserId:      u.UserId,
		UsageDate:   u.UsageDate,
		UsedCredits: u.UsedCredits,
	}
}

func (m *WalletMapper) TransactionToEntity(t *model.CreditTransaction) *entity.CreditTransaction {
	if t == nil {
		return nil
	}
	return &entity.CreditTransaction{
		Id:               t.Id,
		UserId:           t.UserId,
		TransactionType:  entity.CreditTransactionType(t.TransactionType),
		Amount:           t.Amount,
		FreeAmount:       t.FreeAmount,
		PaidAmount:       t.PaidAmount,
		PaidBalanceAfter: t.PaidBalanceAfter,
		ServiceUsed:      t.ServiceUsed,
		RelatedId:        t.RelatedId,
		Notes:            t.Notes,
		CreatedAt:        t.CreatedAt,
	}
}

func (m *WalletMapper) TransactionToModel(t *entity.CreditTransaction) *model.CreditTransaction {
	if t == nil {
		return nil
	}
	return &model.CreditTransaction{
		Id:               t.Id,
		UserId:           t.UserId,
		TransactionType:  string(t.TransactionType),
		Amount:           t.Amount,
		FreeAmount:       t.FreeAmount,
		PaidAmount:       t.PaidAmount,
		PaidBalanceAfter: t.PaidBalanceAfter,
		ServiceUsed:      t.ServiceUsed,
		RelatedId:        t.RelatedId,
		Notes:            t.Notes,
		CreatedAt:        t.CreatedAt,
	}
}
