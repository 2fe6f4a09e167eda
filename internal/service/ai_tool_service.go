package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"ai-studytool-be/internal/dto"
	"ai-studytool-be/internal/entity"
	"ai-studytool-be/internal/pkg/apperror"
	"ai-studytool-be/internal/pkg/logger"
	"ai-studytool-be/internal/repository/memory"
	"ai-studytool-be/internal/repository/specification"
	"ai-studytool-be/internal/repository/unitofwork"
	"ai-studytool-be/pkg/credit"
	"ai-studytool-be/pkg/studytool"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

type ToolInvocation struct {
	ToolType string
	Text     string
	Options  map[string]interface{}
}

// ToolRunner executes a tool against the language model.
type ToolRunner interface {
	Run(ctx context.Context, s studytool.Settings, text, model string) (*studytool.Output, error)
	ProviderName() string
}

var _ ToolRunner = (*studytool.Runner)(nil)

type IAiToolService interface {
	Run(ctx context.Context, userId uuid.UUID, inv ToolInvocation) (*dto.ToolResponse, error)
	Estimate(ctx context.Context, req *dto.EstimateRequest) (*dto.EstimateResponse, error)
	ListRequests(ctx context.Context, userId uuid.UUID, limit int) ([]dto.AiRequestResponse, error)
	UsageStats(ctx context.Context, userId *uuid.UUID) ([]dto.ToolUsageStatResponse, error)
}

type aiToolService struct {
	uowFactory unitofwork.RepositoryFactory
	cache      *credit.ConfigCache
	gate       IUsageGateService
	wallet     IWalletService
	runner     ToolRunner
	results    *memory.ResultRepository
	clock      credit.Clock
	timeout    time.Duration
	logger     logger.ILogger
}

func NewAiToolService(
	uowFactory unitofwork.RepositoryFactory,
	cache *credit.ConfigCache,
	gate IUsageGateService,
	wallet IWalletService,
	runner ToolRunner,
	results *memory.ResultRepository,
	clock credit.Clock,
	timeout time.Duration,
	log logger.ILogger,
) IAiToolService {
	if clock == nil {
		clock = credit.SystemClock{}
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &aiToolService{
		uowFactory: uowFactory,
		cache:      cache,
		gate:       gate,
		wallet:     wallet,
		runner:     runner,
		results:    results,
		clock:      clock,
		timeout:    timeout,
		logger:     log,
	}
}

// Run executes one tool invocation. The cost is read from a single config snapshot and the
// same value is used for the balance check, the usage record and the charge. Nothing is
// debited unless the model call succeeds.
func (s *aiToolService) Run(ctx context.Context, userId uuid.UUID, inv ToolInvocation) (*dto.ToolResponse, error) {
	ctx, span := ledgerTracer.Start(ctx, "ai_tool.Run")
	defer span.End()
	span.SetAttributes(attribute.String("tool_type", inv.ToolType))

	if err := s.gate.Enforce(ctx, userId, inv.ToolType); err != nil {
		return nil, err
	}

	snap := s.cache.Snapshot(ctx)
	cost := snap.CreditCost(inv.ToolType)
	if cost <= 0 || !studytool.IsKnownTool(inv.ToolType) {
		return nil, credit.ErrInvalidTool
	}
	tool, _ := snap.Tool(inv.ToolType)

	if err := checkLength(inv.Text, tool); err != nil {
		return nil, err
	}

	settings, err := studytool.Normalize(inv.ToolType, inv.Options)
	if err != nil {
		return nil, apperror.BadRequest(err.Error())
	}

	wallet, err := s.wallet.GetWallet(ctx, userId)
	if err != nil {
		return nil, err
	}
	if wallet.TotalCredits < cost {
		return nil, &credit.InsufficientCreditsError{Required: cost, Available: wallet.TotalCredits}
	}

	now := s.clock.Now()
	record := &entity.AiRequest{
		Id:          uuid.New(),
		UserId:      userId,
		ToolType:    inv.ToolType,
		CreditsUsed: cost,
		Status:      entity.AiRequestStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	requests := s.uowFactory.NewUnitOfWork(ctx).AiRequestRepository()
	if err := requests.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("create usage record: %w", err)
	}

	model := ""
	if tool.ModelName != "" && (tool.ModelProvider == "" || tool.ModelProvider == s.runner.ProviderName()) {
		model = tool.ModelName
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	start := s.clock.Now()
	out, err := s.runner.Run(callCtx, settings, inv.Text, model)
	cancel()
	elapsedMs := s.clock.Now().Sub(start).Milliseconds()

	if err != nil {
		s.complete(ctx, record.Id, entity.AiRequestStatusFailed, elapsedMs, err.Error())
		s.logger.Warn("AI_TOOL", "AI provider call failed", map[string]interface{}{
			"user_id": userId.String(), "tool_type": inv.ToolType, "request_id": record.Id.String(), "error": err.Error(),
		})
		return nil, apperror.Upstream("AI provider failed to process the request", err)
	}

	// The record flips to success inside the charge transaction, so a sweep that got there
	// first makes the whole charge roll back instead of billing a failed request.
	charged, err := s.wallet.Charge(ctx, ChargeRequest{
		UserId:           userId,
		ToolType:         inv.ToolType,
		Cost:             cost,
		RelatedId:        &record.Id,
		CompleteRequest:  true,
		ProcessingTimeMs: elapsedMs,
	})
	if err != nil {
		if !errors.Is(err, credit.ErrRequestNotPending) {
			s.complete(ctx, record.Id, entity.AiRequestStatusFailed, elapsedMs, err.Error())
		}
		return nil, err
	}

	if s.results != nil {
		s.results.Save(&entity.ToolResult{
			RequestId:   record.Id,
			UserId:      userId,
			ToolType:    inv.ToolType,
			InputText:   inv.Text,
			OutputText:  out.Raw,
			Settings:    settings.Map(),
			CreditsUsed: cost,
			CreatedAt:   now,
		})
	}

	s.logger.Info("AI_TOOL", "Tool invocation succeeded", map[string]interface{}{
		"user_id":            userId.String(),
		"tool_type":          inv.ToolType,
		"request_id":         record.Id.String(),
		"credits_used":       cost,
		"processing_time_ms": elapsedMs,
	})

	return &dto.ToolResponse{
		Result:           out.Result,
		ToolType:         inv.ToolType,
		CreditsUsed:      cost,
		ProcessingTime:   elapsedMs,
		RemainingCredits: charged.Wallet.TotalCredits,
		RequestId:        record.Id,
	}, nil
}

// complete finalizes the usage record even if the request context was cancelled.
func (s *aiToolService) complete(ctx context.Context, id uuid.UUID, status entity.AiRequestStatus, elapsedMs int64, errMsg string) {
	ctx = context.WithoutCancel(ctx)
	var msg *string
	if errMsg != "" {
		msg = &errMsg
	}
	done, err := s.uowFactory.NewUnitOfWork(ctx).AiRequestRepository().Complete(ctx, id, status, elapsedMs, msg)
	if err != nil {
		s.logger.Error("AI_TOOL", "Failed to finalize usage record", map[string]interface{}{
			"request_id": id.String(), "status": string(status), "error": err.Error(),
		})
		return
	}
	if !done {
		s.logger.Warn("AI_TOOL", "Usage record was already finalized, transition dropped", map[string]interface{}{
			"request_id": id.String(), "status": string(status),
		})
	}
}

func checkLength(text string, tool credit.ToolSettings) error {
	n := utf8.RuneCountInString(strings.TrimSpace(text))
	if n == 0 {
		return apperror.BadRequest("Text input is required")
	}
	if tool.MinChars > 0 && n < tool.MinChars {
		return apperror.BadRequest(fmt.Sprintf("Text must be at least %d characters", tool.MinChars))
	}
	if tool.MaxChars > 0 && n > tool.MaxChars {
		return apperror.BadRequest(fmt.Sprintf("Text must not exceed %d characters", tool.MaxChars))
	}
	return nil
}

func (s *aiToolService) Estimate(ctx context.Context, req *dto.EstimateRequest) (*dto.EstimateResponse, error) {
	cost := s.cache.CreditCost(ctx, req.ToolType)
	if cost <= 0 {
		return nil, credit.ErrInvalidTool
	}
	return &dto.EstimateResponse{ToolType: req.ToolType, CreditsRequired: cost}, nil
}

func (s *aiToolService) ListRequests(ctx context.Context, userId uuid.UUID, limit int) ([]dto.AiRequestResponse, error) {
	rows, err := s.uowFactory.NewUnitOfWork(ctx).AiRequestRepository().FindAll(ctx,
		specification.UserOwnedBy{UserID: userId},
		specification.OrderBy{Field: "created_at", Desc: true},
		specification.NewPagination(1, limit, 100),
	)
	if err != nil {
		return nil, err
	}

	res := make([]dto.AiRequestResponse, 0, len(rows))
	for _, r := range rows {
		res = append(res, dto.AiRequestResponse{
			Id:               r.Id,
			ToolType:         r.ToolType,
			CreditsUsed:      r.CreditsUsed,
			Status:           string(r.Status),
			ProcessingTimeMs: r.ProcessingTimeMs,
			CreatedAt:        r.CreatedAt,
		})
	}
	return res, nil
}

// UsageStats aggregates per tool, for one user or for everyone when userId is nil.
func (s *aiToolService) UsageStats(ctx context.Context, userId *uuid.UUID) ([]dto.ToolUsageStatResponse, error) {
	var specs []specification.Specification
	if userId != nil {
		specs = append(specs, specification.UserOwnedBy{UserID: *userId})
	}

	stats, err := s.uowFactory.NewUnitOfWork(ctx).AiRequestRepository().UsageStats(ctx, specs...)
	if err != nil {
		return nil, err
	}

	res := make([]dto.ToolUsageStatResponse, 0, len(stats))
	for _, st := range stats {
		res = append(res, dto.ToolUsageStatResponse{
			ToolType:          st.ToolType,
			TotalRequests:     st.TotalRequests,
			SuccessfulCount:   st.SuccessfulCount,
			FailedCount:       st.FailedCount,
			TotalCredits:      st.TotalCredits,
			AvgProcessingTime: st.AvgProcessingTime,
			SuccessRate:       st.SuccessRate(),
		})
	}
	return res, nil
}
