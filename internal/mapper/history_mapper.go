package mapper

import (
	"encoding/json"

	"ai-studytool-be/internal/entity"
	"ai-studytool-be/internal/model"

	"gorm.io/datatypes"
)

type HistoryMapper struct{}

func NewHistoryMapper() *HistoryMapper {
	return &HistoryMapper{}
}

func (m *HistoryMapper) ToEntity(h *model.History) *entity.History {
	if h == nil {
		return nil
	}
	return &entity.History{
		Id:          h.Id,
		UserId:      h.UserId,
		ToolType:    h.ToolType,
		InputText:   h.InputText,
		OutputText:  h.OutputText,
		Settings:    json.RawMessage(h.Settings),
		CreditsUsed: h.CreditsUsed,
		CreatedAt:   h.CreatedAt,
	}
}

func (m *HistoryMapper) ToModel(h *entity.History) *model.History {
	if h == nil {
		return nil
	}
	var settings datatypes.JSON
	if len(h.Settings) > 0 {
		settings = datatypes.JSON(h.Settings)
	}
	return &model.History{
		Id:          h.Id,
		UserId:      h.UserId,
		ToolType:    h.ToolType,
		InputText:   h.InputText,
		OutputText:  h.OutputText,
		Settings:    settings,
		CreditsUsed: h.CreditsUsed,
		CreatedAt:   h.CreatedAt,
	}
}

func (m *HistoryMapper) ToEntities(rows []*model.History) []*entity.History {
	entities := make([]*entity.History, 0, len(rows))
	for _, h := range rows {
		entities = append(entities, m.ToEntity(h))
	}
	return entities
}
