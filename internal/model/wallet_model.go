package model

import (
	"time"

	"github.com/google/uuid"
)

type Wallet struct {
	Id          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	PaidCredits int       `gorm:"not null;default:0;check:chk_wallets_paid_credits_non_negative,paid_credits >= 0"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

func (Wallet) TableName() string {
	return "wallets"
}

type DailyFreeUsage struct {
	Id          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_daily_free_user_date,priority:1"`
	UsageDate   time.Time `gorm:"type:date;not null;uniqueIndex:uk_daily_free_user_date,priority:2"`
	UsedCredits int       `gorm:"not null;default:0;check:chk_daily_free_used_non_negative,used_credits >= 0"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

func (DailyFreeUsage) TableName() string {
	return "daily_free_usages"
}
