package implementation

import (
	"context"
	"errors"

	"ai-studytool-be/internal/entity"
	"ai-studytool-be/internal/mapper"
	"ai-studytool-be/internal/model"
	"ai-studytool-be/internal/repository/contract"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type toolConfigRepository struct {
	db     *gorm.DB
	mapper *mapper.ToolConfigMapper
}

func NewToolConfigRepository(db *gorm.DB) contract.ToolConfigRepository {
	return &toolConfigRepository{
		db:     db,
		mapper: mapper.NewToolConfigMapper(),
	}
}

func (r *toolConfigRepository) FindAllToolConfigs(ctx context.Context) ([]*entity.ToolConfig, error) {
	var rows []model.ToolConfig
	if err := r.db.WithContext(ctx).Order("tool_id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}

	configs := make([]*entity.ToolConfig, len(rows))
	for i := range rows {
		configs[i] = r.mapper.ToEntity(&rows[i])
	}
	return configs, nil
}

func (r *toolConfigRepository) UpsertToolConfigs(ctx context.Context, configs []*entity.ToolConfig) error {
	if len(configs) == 0 {
		return nil
	}
	rows := make([]*model.ToolConfig, len(configs))
	for i, c := range configs {
		rows[i] = r.mapper.ToModel(c)
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tool_id"}},
		UpdateAll: true,
	}).Create(&rows).Error
}

func (r *toolConfigRepository) FindAllCreditConfigs(ctx context.Context) ([]*entity.CreditConfig, error) {
	var rows []model.CreditConfig
	if err := r.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}

	configs := make([]*entity.CreditConfig, len(rows))
	for i := range rows {
		configs[i] = r.mapper.CreditConfigToEntity(&rows[i])
	}
	return configs, nil
}

func (r *toolConfigRepository) FindCreditConfig(ctx context.Context, key string) (*entity.CreditConfig, error) {
	var m model.CreditConfig
	if err := r.db.WithContext(ctx).Where("key = ?", key).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.CreditConfigToEntity(&m), nil
}

func (r *toolConfigRepository) UpsertCreditConfig(ctx context.Context, cfg *entity.CreditConfig) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(r.mapper.CreditConfigToModel(cfg)).Error
}
