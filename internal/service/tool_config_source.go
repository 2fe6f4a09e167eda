package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"ai-studytool-be/internal/entity"
	"ai-studytool-be/internal/pkg/logger"
	"ai-studytool-be/internal/repository/unitofwork"
	"ai-studytool-be/pkg/credit"
)

// toolConfigSource reads tool_configs and credit_configs for the config cache. A malformed
// credit_configs row is logged and skipped so it never discards the tool settings.
type toolConfigSource struct {
	uowFactory unitofwork.RepositoryFactory
	logger     logger.ILogger
}

func NewToolConfigSource(uowFactory unitofwork.RepositoryFactory, log logger.ILogger) credit.ConfigSource {
	return &toolConfigSource{uowFactory: uowFactory, logger: log}
}

func (s *toolConfigSource) LoadConfig(ctx context.Context) (*credit.SourceData, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	repo := uow.ToolConfigRepository()

	tools, err := repo.FindAllToolConfigs(ctx)
	if err != nil {
		return nil, fmt.Errorf("load tool configs: %w", err)
	}

	data := &credit.SourceData{Tools: make(map[string]credit.ToolSettings, len(tools))}
	for _, t := range tools {
		data.Tools[t.ToolId] = credit.ToolSettings{
			Enabled:         t.Enabled,
			CostMultiplier:  t.CostMultiplier,
			CooldownSeconds: t.CooldownSeconds,
			MinChars:        t.MinChars,
			MaxChars:        t.MaxChars,
			ModelProvider:   t.ModelProvider,
			ModelName:       t.ModelName,
		}
	}

	rows, err := repo.FindAllCreditConfigs(ctx)
	if err != nil {
		return nil, fmt.Errorf("load credit configs: %w", err)
	}

	for _, row := range rows {
		switch row.Key {
		case entity.CreditConfigToolPricing:
			pricing, rejected, err := ParseToolPricing(row.Value)
			if err != nil {
				s.logger.Warn("CONFIG_SOURCE", "Ignoring unreadable tool pricing, using defaults", map[string]interface{}{"error": err.Error()})
				continue
			}
			if len(rejected) > 0 {
				s.logger.Warn("CONFIG_SOURCE", "Skipped invalid tool prices", map[string]interface{}{"tools": strings.Join(rejected, ",")})
			}
			data.Pricing = pricing
		case entity.CreditConfigDailyFreeCredits:
			limit, err := ParseDailyFreeCredits(row.Value)
			if err != nil {
				s.logger.Warn("CONFIG_SOURCE", "Ignoring unreadable daily free credits, using default", map[string]interface{}{"error": err.Error()})
				continue
			}
			data.DailyFreeLimit = &limit
		}
	}
	return data, nil
}

// ParseToolPricing decodes {"summary": 1, "explain": 1.5, ...}. Prices may be fractional
// numbers or numeric strings. Entries that are negative or not numbers are left out and
// returned in rejected; only a value that is not a JSON object is an error.
func ParseToolPricing(raw json.RawMessage) (pricing map[string]float64, rejected []string, err error) {
	var entries map[string]json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, nil, fmt.Errorf("parse %s: %w", entity.CreditConfigToolPricing, err)
	}

	pricing = make(map[string]float64, len(entries))
	for tool, value := range entries {
		price, ok := parsePrice(value)
		if !ok {
			rejected = append(rejected, tool)
			continue
		}
		pricing[tool] = price
	}
	sort.Strings(rejected)
	return pricing, rejected, nil
}

func parsePrice(raw json.RawMessage) (float64, bool) {
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		var str string
		if err := json.Unmarshal(raw, &str); err != nil {
			return 0, false
		}
		n = json.Number(strings.TrimSpace(str))
	}
	v, err := n.Float64()
	if err != nil || v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// ParseDailyFreeCredits accepts a JSON number or a numeric string ("10").
func ParseDailyFreeCredits(raw json.RawMessage) (int, error) {
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, nil
	}
	var s json.Number
	if err := json.Unmarshal(raw, &s); err == nil {
		if v, err := s.Int64(); err == nil {
			return int(v), nil
		}
	}
	return 0, fmt.Errorf("parse %s: unsupported value %s", entity.CreditConfigDailyFreeCredits, string(raw))
}
