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
	"ai-studytool-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AiRequestRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.AiRequestMapper
}

func NewAiRequestRepository(db *gorm.DB) contract.AiRequestRepository {
	return &AiRequestRepositoryImpl{
		db:     db,
		mapper: mapper.NewAiRequestMapper(),
	}
}

func (r *AiRequestRepositoryImpl) Create(ctx context.Context, req *entity.AiRequest) error {
	m := r.mapper.ToModel(req)
	if m.Id == uuid.Nil {
		m.Id = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*req = *r.mapper.ToEntity(m)
	return nil
}

func (r *AiRequestRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.AiRequest, error) {
	var m model.AiRequest
	if err := applySpecifications(r.db.WithContext(ctx), specs...).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *AiRequestRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.AiRequest, error) {
	var rows []*model.AiRequest
	if err := applySpecifications(r.db.WithContext(ctx), specs...).Find(&rows).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(rows), nil
}

func (r *AiRequestRepositoryImpl) FindLastSuccessful(ctx context.Context, userId uuid.UUID, toolType string) (*entity.AiRequest, error) {
	var m model.AiRequest
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND tool_type = ? AND status = ?", userId, toolType, string(entity.AiRequestStatusSuccess)).
		Scopes(scope.OrderByCreatedDesc).
		Limit(1).
		Take(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *AiRequestRepositoryImpl) Complete(ctx context.Context, id uuid.UUID, status entity.AiRequestStatus, processingTimeMs int64, errMsg *string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.AiRequest{}).
		Where("id = ? AND status = ?", id, string(entity.AiRequestStatusPending)).
		Updates(map[string]interface{}{
			"status":             string(status),
			"processing_time_ms": processingTimeMs,
			"error_message":      errMsg,
			"updated_at":         time.Now(),
		})
	return res.RowsAffected > 0, res.Error
}

func (r *AiRequestRepositoryImpl) FailStalePending(ctx context.Context, olderThan time.Time, reason string) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.AiRequest{}).
		Where("status = ? AND created_at < ?", string(entity.AiRequestStatusPending), olderThan).
		Updates(map[string]interface{}{
			"status":        string(entity.AiRequestStatusFailed),
			"error_message": reason,
			"updated_at":    time.Now(),
		})
	return res.RowsAffected, res.Error
}

func (r *AiRequestRepositoryImpl) UsageStats(ctx context.Context, specs ...specification.Specification) ([]*entity.ToolUsageStat, error) {
	var rows []model.ToolUsageRow
	query := r.db.WithContext(ctx).Model(&model.AiRequest{}).Select(`tool_type,
		COUNT(*) AS total_requests,
		COUNT(*) FILTER (WHERE status = 'success') AS successful_count,
		COUNT(*) FILTER (WHERE status = 'failed') AS failed_count,
		COALESCE(SUM(credits_used) FILTER (WHERE status = 'success'), 0) AS total_credits,
		COALESCE(AVG(processing_time_ms) FILTER (WHERE status = 'success'), 0) AS avg_processing_time`)
	query = applySpecifications(query, specs...)

	if err := query.Group("tool_type").Order("total_requests DESC").Scan(&rows).Error; err != nil {
		return nil, err
	}

	stats := make([]*entity.ToolUsageStat, 0, len(rows))
	for _, row := range rows {
		stats = append(stats, r.mapper.StatToEntity(row))
	}
	return stats, nil
}
