package entity

import (
	"time"

	"github.com/google/uuid"
)

type Wallet struct {
	Id          uuid.UUID
	UserId      uuid.UUID
	PaidCredits int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// DailyFreeUsage counts free credits consumed by a user on one UTC date.
// No row for a date means nothing was used that day.
type DailyFreeUsage struct {
	UserId      uuid.UUID
	UsageDate   time.Time
	UsedCredits int
}
