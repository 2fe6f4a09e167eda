package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"ai-studytool-be/internal/dto"
	"ai-studytool-be/internal/entity"
	"ai-studytool-be/internal/pkg/apperror"
	"ai-studytool-be/internal/pkg/logger"
	"ai-studytool-be/internal/repository/specification"
	"ai-studytool-be/internal/repository/unitofwork"
	"ai-studytool-be/pkg/credit"
	"ai-studytool-be/pkg/events"

	"github.com/google/uuid"
)

type IAdminService interface {
	GetCreditConfig(ctx context.Context) (*dto.CreditConfigResponse, error)
	UpdateCreditConfig(ctx context.Context, req *dto.UpdateCreditConfigRequest) (*dto.CreditConfigResponse, error)
	GetToolConfigs(ctx context.Context) ([]dto.ToolConfigDTO, error)
	UpdateToolConfigs(ctx context.Context, req *dto.UpdateToolConfigsRequest) ([]dto.ToolConfigDTO, error)
	GetToolAnalytics(ctx context.Context) ([]dto.ToolUsageStatResponse, error)
	GrantCredits(ctx context.Context, userId uuid.UUID, req *dto.GrantCreditsRequest) (*dto.WalletResponse, error)
	GetCreditTransactions(ctx context.Context, userId *uuid.UUID, page, limit int) (*dto.PagedResponse[dto.CreditTransactionResponse], error)
	GetSystemLogs(ctx context.Context, level string, page, limit int) ([]dto.LogListResponse, error)
	ListUsers(ctx context.Context, query dto.UserListQuery) (*dto.PagedResponse[dto.UserListItem], error)
	GetUser(ctx context.Context, userId uuid.UUID) (*dto.AdminUserDetail, error)
}

type adminService struct {
	uowFactory    unitofwork.RepositoryFactory
	walletService IWalletService
	aiToolService IAiToolService
	publisher     IPublisherService
	defaults      credit.Defaults
	clock         credit.Clock
	logger        logger.ILogger
}

func NewAdminService(
	uowFactory unitofwork.RepositoryFactory,
	walletService IWalletService,
	aiToolService IAiToolService,
	publisher IPublisherService,
	defaults credit.Defaults,
	clock credit.Clock,
	log logger.ILogger,
) IAdminService {
	if clock == nil {
		clock = credit.SystemClock{}
	}
	if defaults.Pricing == nil {
		defaults.Pricing = credit.DefaultPricing()
	}
	return &adminService{
		uowFactory:    uowFactory,
		walletService: walletService,
		aiToolService: aiToolService,
		publisher:     publisher,
		defaults:      defaults,
		clock:         clock,
		logger:        log,
	}
}

// ============================================================================
// Credit Config
// ============================================================================

// GetCreditConfig reads the stored rows directly so admins see what was written,
// not what the cache currently serves.
func (s *adminService) GetCreditConfig(ctx context.Context) (*dto.CreditConfigResponse, error) {
	rows, err := s.uowFactory.NewUnitOfWork(ctx).ToolConfigRepository().FindAllCreditConfigs(ctx)
	if err != nil {
		return nil, err
	}

	res := &dto.CreditConfigResponse{
		ToolPricing:      copyPricing(s.defaults.Pricing),
		DailyFreeCredits: s.defaults.DailyFreeLimit,
	}
	for _, row := range rows {
		switch row.Key {
		case entity.CreditConfigToolPricing:
			if pricing, _, err := ParseToolPricing(row.Value); err == nil {
				res.ToolPricing = pricing
			}
		case entity.CreditConfigDailyFreeCredits:
			if n, err := ParseDailyFreeCredits(row.Value); err == nil {
				res.DailyFreeCredits = n
			}
		case entity.CreditConfigBonus:
			var bonus entity.BonusConfig
			if err := json.Unmarshal(row.Value, &bonus); err == nil {
				res.BonusConfig = dto.BonusConfigDTO{
					Enabled:    bonus.Enabled,
					Amount:     bonus.Amount,
					Reason:     bonus.Reason,
					ValidUntil: bonus.ValidUntil,
				}
			}
		}
	}
	return res, nil
}

// UpdateCreditConfig writes the sections present in req in one transaction. Running
// instances pick the change up when their config cache expires.
func (s *adminService) UpdateCreditConfig(ctx context.Context, req *dto.UpdateCreditConfigRequest) (*dto.CreditConfigResponse, error) {
	var rows []*entity.CreditConfig
	now := s.clock.Now()

	if req.ToolPricing != nil {
		for tool, cost := range req.ToolPricing {
			if cost < 0 || math.IsNaN(cost) || math.IsInf(cost, 0) {
				return nil, apperror.BadRequest(fmt.Sprintf("Price for %s must not be negative", tool))
			}
		}
		raw, err := json.Marshal(req.ToolPricing)
		if err != nil {
			return nil, err
		}
		rows = append(rows, &entity.CreditConfig{Key: entity.CreditConfigToolPricing, Value: raw, UpdatedAt: now})
	}
	if req.DailyFreeCredits != nil {
		if *req.DailyFreeCredits < 0 {
			return nil, apperror.BadRequest("Daily free credits must not be negative")
		}
		raw, _ := json.Marshal(*req.DailyFreeCredits)
		rows = append(rows, &entity.CreditConfig{Key: entity.CreditConfigDailyFreeCredits, Value: raw, UpdatedAt: now})
	}
	if req.BonusConfig != nil {
		raw, err := json.Marshal(entity.BonusConfig{
			Enabled:    req.BonusConfig.Enabled,
			Amount:     req.BonusConfig.Amount,
			Reason:     req.BonusConfig.Reason,
			ValidUntil: req.BonusConfig.ValidUntil,
		})
		if err != nil {
			return nil, err
		}
		rows = append(rows, &entity.CreditConfig{Key: entity.CreditConfigBonus, Value: raw, UpdatedAt: now})
	}
	if len(rows) == 0 {
		return nil, apperror.BadRequest("Nothing to update")
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	keys := make([]string, 0, len(rows))
	for _, row := range rows {
		if err := uow.ToolConfigRepository().UpsertCreditConfig(ctx, row); err != nil {
			return nil, fmt.Errorf("upsert %s: %w", row.Key, err)
		}
		keys = append(keys, row.Key)
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}

	s.logger.Info("ADMIN", "Credit config updated", map[string]interface{}{"keys": strings.Join(keys, ",")})
	s.publish(ctx, events.New(events.TypeToolConfigUpdated, map[string]interface{}{
		"section": "credit_config",
		"keys":    keys,
	}))
	return s.GetCreditConfig(ctx)
}

// ============================================================================
// Tool Configs
// ============================================================================

func (s *adminService) GetToolConfigs(ctx context.Context) ([]dto.ToolConfigDTO, error) {
	tools, err := s.uowFactory.NewUnitOfWork(ctx).ToolConfigRepository().FindAllToolConfigs(ctx)
	if err != nil {
		return nil, err
	}

	res := make([]dto.ToolConfigDTO, 0, len(tools))
	for _, t := range tools {
		res = append(res, toolConfigDTO(t))
	}
	return res, nil
}

func (s *adminService) UpdateToolConfigs(ctx context.Context, req *dto.UpdateToolConfigsRequest) ([]dto.ToolConfigDTO, error) {
	now := s.clock.Now()
	configs := make([]*entity.ToolConfig, 0, len(req.Tools))
	ids := make([]string, 0, len(req.Tools))

	for _, t := range req.Tools {
		if t.MaxChars > 0 && t.MinChars > t.MaxChars {
			return nil, apperror.BadRequest(fmt.Sprintf("%s: min_chars must not exceed max_chars", t.ToolId))
		}
		if t.CooldownSeconds < 0 || t.CostMultiplier < 0 {
			return nil, apperror.BadRequest(fmt.Sprintf("%s: cooldown and multiplier must not be negative", t.ToolId))
		}
		configs = append(configs, &entity.ToolConfig{
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
			UpdatedAt:       now,
		})
		ids = append(ids, t.ToolId)
	}

	if err := s.uowFactory.NewUnitOfWork(ctx).ToolConfigRepository().UpsertToolConfigs(ctx, configs); err != nil {
		return nil, fmt.Errorf("upsert tool configs: %w", err)
	}

	s.logger.Info("ADMIN", "Tool configs updated", map[string]interface{}{"tools": strings.Join(ids, ",")})
	s.publish(ctx, events.New(events.TypeToolConfigUpdated, map[string]interface{}{
		"section": "tool_configs",
		"tools":   ids,
	}))
	return s.GetToolConfigs(ctx)
}

func (s *adminService) GetToolAnalytics(ctx context.Context) ([]dto.ToolUsageStatResponse, error) {
	return s.aiToolService.UsageStats(ctx, nil)
}

// ============================================================================
// Credits
// ============================================================================

func (s *adminService) GrantCredits(ctx context.Context, userId uuid.UUID, req *dto.GrantCreditsRequest) (*dto.WalletResponse, error) {
	user, err := s.uowFactory.NewUnitOfWork(ctx).UserRepository().FindOne(ctx, specification.ByID{ID: userId})
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperror.NotFound("User not found")
	}

	wallet, err := s.walletService.AddPaidCredits(ctx, userId, req.Amount, req.Notes)
	if err != nil {
		return nil, err
	}

	s.logger.Info("ADMIN", "Credits granted", map[string]interface{}{
		"user_id": userId.String(), "amount": req.Amount,
	})
	s.publish(ctx, events.New(events.TypeCreditsGranted, map[string]interface{}{
		"user_id":       userId.String(),
		"email":         user.Email,
		"full_name":     user.FullName,
		"amount":        req.Amount,
		"notes":         req.Notes,
		"free_credits":  wallet.FreeCredits,
		"paid_credits":  wallet.PaidCredits,
		"total_credits": wallet.TotalCredits,
		"used_today":    wallet.UsedToday,
		"daily_limit":   wallet.DailyLimit,
	}))
	return wallet, nil
}

func (s *adminService) GetCreditTransactions(ctx context.Context, userId *uuid.UUID, page, limit int) (*dto.PagedResponse[dto.CreditTransactionResponse], error) {
	return s.walletService.ListTransactions(ctx, userId, page, limit)
}

// ============================================================================
// Users
// ============================================================================

func (s *adminService) ListUsers(ctx context.Context, query dto.UserListQuery) (*dto.PagedResponse[dto.UserListItem], error) {
	filters := []specification.Specification{specification.UserSearch{Query: query.Search}}
	switch entity.UserRole(query.Role) {
	case "":
	case entity.UserRoleUser, entity.UserRoleAdmin:
		filters = append(filters, specification.ByRole{Role: query.Role})
	default:
		return nil, apperror.BadRequest("Unknown role filter")
	}
	switch entity.UserStatus(query.Status) {
	case "":
	case entity.UserStatusActive, entity.UserStatusBlocked:
		filters = append(filters, specification.FilterBy{Field: "status", Value: query.Status})
	default:
		return nil, apperror.BadRequest("Unknown status filter")
	}

	repo := s.uowFactory.NewUnitOfWork(ctx).UserRepository()
	total, err := repo.Count(ctx, filters...)
	if err != nil {
		return nil, err
	}

	pagination := specification.NewPagination(query.Page, query.Limit, 100)
	specs := append(filters, specification.OrderBy{Field: "created_at", Desc: true}, pagination)
	users, err := repo.FindAll(ctx, specs...)
	if err != nil {
		return nil, err
	}

	items := make([]dto.UserListItem, 0, len(users))
	for _, u := range users {
		items = append(items, dto.UserListItem{
			Id:            u.Id,
			Email:         u.Email,
			FullName:      u.FullName,
			Role:          string(u.Role),
			Status:        string(u.Status),
			EmailVerified: u.EmailVerified,
			LastLoginAt:   u.LastLoginAt,
			CreatedAt:     u.CreatedAt,
		})
	}
	return &dto.PagedResponse[dto.UserListItem]{
		Items:      items,
		Pagination: dto.NewPaginationMeta(pagination.Offset/pagination.Limit+1, pagination.Limit, total),
	}, nil
}

// GetUser combines the profile with the wallet as it stands right now.
func (s *adminService) GetUser(ctx context.Context, userId uuid.UUID) (*dto.AdminUserDetail, error) {
	profile, err := loadProfile(ctx, s.uowFactory.NewUnitOfWork(ctx), userId)
	if err != nil {
		return nil, err
	}
	wallet, err := s.walletService.GetWallet(ctx, userId)
	if err != nil {
		return nil, err
	}
	return &dto.AdminUserDetail{ProfileResponse: *profile, Wallet: wallet}, nil
}

// ============================================================================
// Logs
// ============================================================================

func (s *adminService) GetSystemLogs(ctx context.Context, level string, page, limit int) ([]dto.LogListResponse, error) {
	p := specification.NewPagination(page, limit, 200)
	entries, err := s.logger.GetLogs(strings.ToUpper(level), p.Limit, p.Offset)
	if err != nil {
		return nil, err
	}

	res := make([]dto.LogListResponse, 0, len(entries))
	for _, e := range entries {
		res = append(res, dto.LogListResponse{
			Id:        e.Id,
			Timestamp: e.Timestamp,
			Level:     e.Level,
			Module:    e.Module,
			Message:   e.Message,
			Details:   e.Details,
		})
	}
	return res, nil
}

func (s *adminService) publish(ctx context.Context, event events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("ADMIN", "Failed to publish event", map[string]interface{}{
			"type": event.EventType(), "error": err.Error(),
		})
	}
}

func toolConfigDTO(t *entity.ToolConfig) dto.ToolConfigDTO {
	return dto.ToolConfigDTO{
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

func copyPricing(in map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
