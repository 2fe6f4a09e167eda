package entity

import (
	"time"

	"github.com/google/uuid"
)

type CreditTransactionType string

const (
	CreditTransactionGrant      CreditTransactionType = "grant"
	CreditTransactionSpend      CreditTransactionType = "spend"
	CreditTransactionRefund     CreditTransactionType = "refund"
	CreditTransactionAdjustment CreditTransactionType = "adjustment"
)

type CreditTransaction struct {
	Id               uuid.UUID
	UserId           uuid.UUID
	TransactionType  CreditTransactionType
	Amount           int
	FreeAmount       int
	PaidAmount       int
	PaidBalanceAfter int
	ServiceUsed      *string
	RelatedId        *uuid.UUID
	Notes            *string
	CreatedAt        time.Time
}
