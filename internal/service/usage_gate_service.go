package service

import (
	"context"
	"fmt"

	"ai-studytool-be/internal/pkg/logger"
	"ai-studytool-be/internal/repository/unitofwork"
	"ai-studytool-be/pkg/credit"

	"github.com/google/uuid"
)

type CooldownResult struct {
	Allowed          bool
	RemainingSeconds int
}

// IUsageGateService holds the pre-charge checks: tool enabled and per-tool cooldown.
type IUsageGateService interface {
	CheckEnabled(ctx context.Context, toolType string) error
	CheckCooldown(ctx context.Context, userId uuid.UUID, toolType string) (CooldownResult, error)
	Enforce(ctx context.Context, userId uuid.UUID, toolType string) error
}

type usageGateService struct {
	uowFactory unitofwork.RepositoryFactory
	cache      *credit.ConfigCache
	clock      credit.Clock
	logger     logger.ILogger
}

func NewUsageGateService(uowFactory unitofwork.RepositoryFactory, cache *credit.ConfigCache, clock credit.Clock, log logger.ILogger) IUsageGateService {
	if clock == nil {
		clock = credit.SystemClock{}
	}
	return &usageGateService{
		uowFactory: uowFactory,
		cache:      cache,
		clock:      clock,
		logger:     log,
	}
}

func (s *usageGateService) CheckEnabled(ctx context.Context, toolType string) error {
	if !s.cache.IsToolEnabled(ctx, toolType) {
		return credit.ErrToolDisabled
	}
	return nil
}

// CheckCooldown measures from the newest successful request only.
func (s *usageGateService) CheckCooldown(ctx context.Context, userId uuid.UUID, toolType string) (CooldownResult, error) {
	cooldown := s.cache.CooldownSeconds(ctx, toolType)
	if cooldown <= 0 {
		return CooldownResult{Allowed: true}, nil
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	last, err := uow.AiRequestRepository().FindLastSuccessful(ctx, userId, toolType)
	if err != nil {
		return CooldownResult{}, fmt.Errorf("find last successful request: %w", err)
	}
	if last == nil {
		return CooldownResult{Allowed: true}, nil
	}

	elapsed := int(s.clock.Now().Sub(last.CreatedAt).Seconds())
	if elapsed < 0 {
		elapsed = 0
	}
	if elapsed < cooldown {
		return CooldownResult{Allowed: false, RemainingSeconds: cooldown - elapsed}, nil
	}
	return CooldownResult{Allowed: true}, nil
}

func (s *usageGateService) Enforce(ctx context.Context, userId uuid.UUID, toolType string) error {
	if err := s.CheckEnabled(ctx, toolType); err != nil {
		return err
	}

	res, err := s.CheckCooldown(ctx, userId, toolType)
	if err != nil {
		return err
	}
	if !res.Allowed {
		s.logger.Debug("GATE", "Cooldown active", map[string]interface{}{
			"user_id": userId.String(), "tool_type": toolType, "remaining_seconds": res.RemainingSeconds,
		})
		return &credit.CooldownActiveError{RemainingSeconds: res.RemainingSeconds}
	}
	return nil
}
