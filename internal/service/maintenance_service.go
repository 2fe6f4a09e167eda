package service

import (
	"context"
	"fmt"
	"time"

	"ai-studytool-be/internal/pkg/logger"
	"ai-studytool-be/internal/repository/unitofwork"
	"ai-studytool-be/pkg/credit"

	"github.com/robfig/cron/v3"
)

const staleRequestReason = "request abandoned before completion"

// MaintenanceService runs periodic cleanup. It never touches balances.
type MaintenanceService struct {
	uowFactory unitofwork.RepositoryFactory
	clock      credit.Clock
	staleAfter time.Duration
	schedule   string
	cron       *cron.Cron
	logger     logger.ILogger
}

func NewMaintenanceService(uowFactory unitofwork.RepositoryFactory, clock credit.Clock, staleAfter time.Duration, schedule string, log logger.ILogger) *MaintenanceService {
	if clock == nil {
		clock = credit.SystemClock{}
	}
	if staleAfter <= 0 {
		staleAfter = 10 * time.Minute
	}
	if schedule == "" {
		schedule = "@every 1m"
	}
	return &MaintenanceService{
		uowFactory: uowFactory,
		clock:      clock,
		staleAfter: staleAfter,
		schedule:   schedule,
		cron:       cron.New(),
		logger:     log,
	}
}

func (s *MaintenanceService) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.schedule, func() {
		if _, err := s.SweepStaleRequests(ctx); err != nil {
			s.logger.Error("SWEEPER", "Stale request sweep failed", map[string]interface{}{"error": err.Error()})
		}
	})
	if err != nil {
		return fmt.Errorf("schedule stale request sweep: %w", err)
	}

	s.cron.Start()
	s.logger.Info("SWEEPER", "Stale request sweeper started", map[string]interface{}{
		"schedule": s.schedule, "stale_after": s.staleAfter.String(),
	})
	return nil
}

// Stop waits for a running sweep to finish.
func (s *MaintenanceService) Stop() {
	<-s.cron.Stop().Done()
}

// SweepStaleRequests marks pending requests older than staleAfter as failed. Such requests
// were never charged, so no credits move.
func (s *MaintenanceService) SweepStaleRequests(ctx context.Context) (int64, error) {
	cutoff := s.clock.Now().Add(-s.staleAfter)
	n, err := s.uowFactory.NewUnitOfWork(ctx).AiRequestRepository().FailStalePending(ctx, cutoff, staleRequestReason)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("SWEEPER", "Stale requests marked failed", map[string]interface{}{"count": n})
	}
	return n, nil
}
