package model

import (
	"time"

	"github.com/google/uuid"
)

type CreditTransaction struct {
	Id               uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId           uuid.UUID  `gorm:"type:uuid;not null;index"`
	TransactionType  string     `gorm:"type:ai_credit_transaction_type;not null"`
	Amount           int        `gorm:"not null"`
	FreeAmount       int        `gorm:"not null;default:0"`
	PaidAmount       int        `gorm:"not null;default:0"`
	PaidBalanceAfter int        `gorm:"not null;default:0"`
	ServiceUsed      *string    `gorm:"type:text;index"`
	RelatedId        *uuid.UUID `gorm:"type:uuid"`
	Notes            *string    `gorm:"type:text"`
	CreatedAt        time.Time  `gorm:"default:now();not null"`
}

func (CreditTransaction) TableName() string {
	return "ai_credit_transactions"
}
