package mapper

import (
	"encoding/json"

	"ai-studytool-be/internal/entity"
	"ai-studytool-be/internal/model"

	"gorm.io/datatypes"
)

type ToolConfigMapper struct{}

func NewToolConfigMapper() *ToolConfigMapper {
	return &ToolConfigMapper{}
}

func (m *ToolConfigMapper) ToEntity(t *model.ToolConfig) *entity.ToolConfig {
	if t == nil {
		return nil
	}
	return &entity.ToolConfig{
		ToolId:          t.ToolId,
		ToolName:        t.ToolName,
		Description:     t.Description,
		Enabled:         t.Enabled,
		MinChars:        t.MinChars,
		MaxChars:        t.MaxChars,
		CooldownSeconds: t.CooldownSeconds,
		CostMultiplier:  t.CostMultiplier,
		ModelProvider:   t.ModelProvider,
		ModelName:       t.ModelName,
		UpdatedAt:       t.UpdatedAt,
	}
}

func (m *ToolConfigMapper) ToModel(t *entity.ToolConfig) *model.ToolConfig {
	if t == nil {
		return nil
	}
	return &model.ToolConfig{
		ToolId:          t.ToolId,
		ToolName:        t.ToolName,
		Description:     t.Description,
		Enabled:         t.Enabled,
		MinChars:        t.MinChars,
		MaxChars:        t.MaxChars,
		CooldownSeconds: t.CooldownSeconds,
		CostMultiplier:  t.CostMultiplier,
		ModelProvider:   t.ModelProvider,
		ModelName:       t.ModelName,
		UpdatedAt:       t.UpdatedAt,
	}
}

func (m *ToolConfigMapper) CreditConfigToEntity(c *model.CreditConfig) *entity.CreditConfig {
	if c == nil {
		return nil
	}
	return &entity.CreditConfig{
		Key:       c.Key,
		Value:     json.RawMessage(c.Value),
		UpdatedAt: c.UpdatedAt,
	}
}

func (m *ToolConfigMapper) CreditConfigToModel(c *entity.CreditConfig) *model.CreditConfig {
	if c == nil {
		return nil
	}
	return &model.CreditConfig{
		Key:       c.Key,
		Value:     datatypes.JSON(c.Value),
		UpdatedAt: c.UpdatedAt,
	}
}
