package mapper

import (
	"ai-studytool-be/internal/entity"
	"ai-studytool-be/internal/model"
)

type AiRequestMapper struct{}

func NewAiRequestMapper() *AiRequestMapper {
	return &AiRequestMapper{}
}

func (m *AiRequestMapper) ToEntity(r *model.AiRequest) *entity.AiRequest {
	if r == nil {
		return nil
	}
	return &entity.AiRequest{
		Id:               r.Id,
		UserId:           r.UserId,
		ToolType:         r.ToolType,
		CreditsUsed:      r.CreditsUsed,
		Status:           entity.AiRequestStatus(r.Status),
		ProcessingTimeMs: r.ProcessingTimeMs,
		ErrorMessage:     r.ErrorMessage,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
}

func (m *AiRequestMapper) ToModel(r *entity.AiRequest) *model.AiRequest {
	if r == nil {
		return nil
	}
	return &model.AiRequest{
		Id:               r.Id,
		UserId:           r.UserId,
		ToolType:         r.ToolType,
		CreditsUsed:      r.CreditsUsed,
		Status:           string(r.Status),
		ProcessingTimeMs: r.ProcessingTimeMs,
		ErrorMessage:     r.ErrorMessage,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
}

func (m *AiRequestMapper) ToEntities(rows []*model.AiRequest) []*entity.AiRequest {
	entities := make([]*entity.AiRequest, 0, len(rows))
	for _, r := range rows {
		entities = append(entities, m.ToEntity(r))
	}
	return entities
}

func (m *AiRequestMapper) StatToEntity(r model.ToolUsageRow) *entity.ToolUsageStat {
	return &entity.ToolUsageStat{
		ToolType:          r.ToolType,
		TotalRequests:     r.TotalRequests,
		SuccessfulCount:   r.SuccessfulCount,
		FailedCount:       r.FailedCount,
		TotalCredits:      r.TotalCredits,
		AvgProcessingTime: r.AvgProcessingTime,
	}
}
