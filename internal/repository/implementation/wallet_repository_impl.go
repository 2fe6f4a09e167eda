package implementation

import (
	"context"
	"errors"
	"time"

	"ai-studytool-be/internal/entity"
	"ai-studytool-be/internal/mapper"
	"ai-studytool-be/internal/model"
	"ai-studytool-be/internal/repository/contract"
	"ai-studytool-be/internal/repository/scope"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type WalletRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.WalletMapper
}

func NewWalletRepository(db *gorm.DB) contract.WalletRepository {
	return &WalletRepositoryImpl{
		db:     db,
		mapper: mapper.NewWalletMapper(),
	}
}

func (r *WalletRepositoryImpl) Create(ctx context.Context, wallet *entity.Wallet) error {
	m := r.mapper.ToModel(wallet)
	if m.Id == uuid.Nil {
		m.Id = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*wallet = *r.mapper.ToEntity(m)
	return nil
}

func (r *WalletRepositoryImpl) FindByUserId(ctx context.Context, userId uuid.UUID) (*entity.Wallet, error) {
	return r.findByUserId(r.db.WithContext(ctx), userId)
}

func (r *WalletRepositoryImpl) FindByUserIdForUpdate(ctx context.Context, userId uuid.UUID) (*entity.Wallet, error) {
	return r.findByUserId(r.db.WithContext(ctx).Scopes(scope.LockForUpdate), userId)
}

func (r *WalletRepositoryImpl) findByUserId(db *gorm.DB, userId uuid.UUID) (*entity.Wallet, error) {
	var m model.Wallet
	if err := db.Where("user_id = ?", userId).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *WalletRepositoryImpl) DeductPaidCredits(ctx context.Context, userId uuid.UUID, amount int) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Wallet{}).
		Where("user_id = ? AND paid_credits >= ?", userId, amount).
		Updates(map[string]interface{}{
			"paid_credits": gorm.Expr("paid_credits - ?", amount),
			"updated_at":   time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *WalletRepositoryImpl) AddPaidCredits(ctx context.Context, userId uuid.UUID, amount int) error {
	res := r.db.WithContext(ctx).Model(&model.Wallet{}).
		Where("user_id = ?", userId).
		Updates(map[string]interface{}{
			"paid_credits": gorm.Expr("paid_credits + ?", amount),
			"updated_at":   time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *WalletRepositoryImpl) FindDailyUsage(ctx context.Context, userId uuid.UUID, usageDate time.Time) (*entity.DailyFreeUsage, error) {
	var m model.DailyFreeUsage
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND usage_date = ?", userId, usageDate).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.UsageToEntity(&m), nil
}

func (r *WalletRepositoryImpl) IncrementDailyUsage(ctx context.Context, userId uuid.UUID, usageDate time.Time, amount int) error {
	row := &model.DailyFreeUsage{
		Id:          uuid.New(),
		UserId:      userId,
		UsageDate:   usageDate,
		UsedCredits: amount,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "usage_date"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"used_credits": gorm.Expr("daily_free_usages.used_credits + EXCLUDED.used_credits"),
			"updated_at":   gorm.Expr("now()"),
		}),
	}).Create(row).Error
}
