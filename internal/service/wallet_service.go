package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ai-studytool-be/internal/dto"
	"ai-studytool-be/internal/entity"
	"ai-studytool-be/internal/pkg/logger"
	"ai-studytool-be/internal/repository/specification"
	"ai-studytool-be/internal/repository/unitofwork"
	"ai-studytool-be/pkg/credit"
	"ai-studytool-be/pkg/database"
	"ai-studytool-be/pkg/events"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"
)

var ledgerTracer = otel.Tracer("ai-studytool/ledger")

type IWalletService interface {
	GetWallet(ctx context.Context, userId uuid.UUID) (*dto.WalletResponse, error)
	GetCreditCost(ctx context.Context, toolType string) int
	GetCreditCosts(ctx context.Context) []dto.CreditCostResponse
	HasEnoughCredits(ctx context.Context, userId uuid.UUID, toolType string) (bool, error)
	DeductCredits(ctx context.Context, userId uuid.UUID, toolType string) (*dto.WalletResponse, error)
	Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
	CreateWallet(ctx context.Context, uow unitofwork.UnitOfWork, userId uuid.UUID) (*entity.Wallet, error)
	AddPaidCredits(ctx context.Context, userId uuid.UUID, amount int, notes string) (*dto.WalletResponse, error)
	ListTransactions(ctx context.Context, userId *uuid.UUID, page, limit int) (*dto.PagedResponse[dto.CreditTransactionResponse], error)
}

// ChargeRequest debits a cost that the caller already computed from one config snapshot.
// With CompleteRequest set, RelatedId names a pending usage record that is moved to
// success in the same transaction; if it is no longer pending nothing is charged.
type ChargeRequest struct {
	UserId           uuid.UUID
	ToolType         string
	Cost             int
	RelatedId        *uuid.UUID
	CompleteRequest  bool
	ProcessingTimeMs int64
}

type ChargeResult struct {
	Allocation credit.Allocation
	Wallet     dto.WalletResponse
}

type walletService struct {
	uowFactory unitofwork.RepositoryFactory
	cache      *credit.ConfigCache
	clock      credit.Clock
	publisher  IPublisherService
	logger     logger.ILogger
}

func NewWalletService(
	uowFactory unitofwork.RepositoryFactory,
	cache *credit.ConfigCache,
	clock credit.Clock,
	publisher IPublisherService,
	log logger.ILogger,
) IWalletService {
	if clock == nil {
		clock = credit.SystemClock{}
	}
	return &walletService{
		uowFactory: uowFactory,
		cache:      cache,
		clock:      clock,
		publisher:  publisher,
		logger:     log,
	}
}

func walletResponse(b credit.Balance) dto.WalletResponse {
	return dto.WalletResponse{
		FreeCredits:  b.FreeCredits(),
		PaidCredits:  b.PaidCredits,
		TotalCredits: b.Total(),
		UsedToday:    b.UsedToday,
		DailyLimit:   b.DailyLimit,
	}
}

// balance reads the wallet and the usage row for day through uow. With forUpdate the
// wallet row stays locked until the surrounding transaction ends.
func (s *walletService) balance(ctx context.Context, uow unitofwork.UnitOfWork, userId uuid.UUID, day time.Time, forUpdate bool) (credit.Balance, error) {
	repo := uow.WalletRepository()

	var (
		wallet *entity.Wallet
		err    error
	)
	if forUpdate {
		wallet, err = repo.FindByUserIdForUpdate(ctx, userId)
	} else {
		wallet, err = repo.FindByUserId(ctx, userId)
	}
	if err != nil {
		return credit.Balance{}, fmt.Errorf("find wallet: %w", err)
	}
	if wallet == nil {
		s.logger.Error("LEDGER", "Wallet missing for user", map[string]interface{}{"user_id": userId.String()})
		return credit.Balance{}, credit.ErrWalletNotFound
	}

	usage, err := repo.FindDailyUsage(ctx, userId, day)
	if err != nil {
		return credit.Balance{}, fmt.Errorf("find daily usage: %w", err)
	}

	b := credit.Balance{
		DailyLimit:  s.cache.DailyFreeLimit(ctx),
		PaidCredits: wallet.PaidCredits,
	}
	if usage != nil {
		b.UsedToday = usage.UsedCredits
	}
	return b, nil
}

func (s *walletService) GetWallet(ctx context.Context, userId uuid.UUID) (*dto.WalletResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	b, err := s.balance(ctx, uow, userId, credit.UsageDate(s.clock.Now()), false)
	if err != nil {
		return nil, err
	}
	res := walletResponse(b)
	return &res, nil
}

func (s *walletService) GetCreditCost(ctx context.Context, toolType string) int {
	return s.cache.CreditCost(ctx, toolType)
}

func (s *walletService) GetCreditCosts(ctx context.Context) []dto.CreditCostResponse {
	snap := s.cache.Snapshot(ctx)
	ids := snap.ToolIds()

	res := make([]dto.CreditCostResponse, 0, len(ids))
	for _, id := range ids {
		res = append(res, dto.CreditCostResponse{
			ToolType:        id,
			BaseCost:        snap.BaseCost(id),
			CostMultiplier:  snap.CostMultiplier(id),
			CreditsRequired: snap.CreditCost(id),
			Enabled:         snap.IsToolEnabled(id),
		})
	}
	return res
}

func (s *walletService) HasEnoughCredits(ctx context.Context, userId uuid.UUID, toolType string) (bool, error) {
	cost := s.cache.CreditCost(ctx, toolType)
	if cost <= 0 {
		return false, credit.ErrInvalidTool
	}

	wallet, err := s.GetWallet(ctx, userId)
	if err != nil {
		return false, err
	}
	return wallet.TotalCredits >= cost, nil
}

func (s *walletService) DeductCredits(ctx context.Context, userId uuid.UUID, toolType string) (*dto.WalletResponse, error) {
	res, err := s.Charge(ctx, ChargeRequest{
		UserId:   userId,
		ToolType: toolType,
		Cost:     s.cache.CreditCost(ctx, toolType),
	})
	if err != nil {
		return nil, err
	}
	return &res.Wallet, nil
}

// Charge performs the whole debit in one transaction holding the wallet row lock:
// read balance, allocate free then paid, write both pools and the audit row, commit.
func (s *walletService) Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	ctx, span := ledgerTracer.Start(ctx, "ledger.Charge")
	defer span.End()
	span.SetAttributes(
		attribute.String("user_id", req.UserId.String()),
		attribute.String("tool_type", req.ToolType),
		attribute.Int("cost", req.Cost),
	)

	res, err := s.charge(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		switch {
		case credit.IsInsufficientCredits(err):
			s.logger.Info("LEDGER", "Charge rejected, insufficient credits", map[string]interface{}{
				"user_id": req.UserId.String(), "tool_type": req.ToolType, "cost": req.Cost, "error": err.Error(),
			})
		case errors.Is(err, credit.ErrRequestNotPending):
			s.logger.Warn("LEDGER", "Charge rolled back, usage record already finalized", map[string]interface{}{
				"user_id": req.UserId.String(), "tool_type": req.ToolType, "request_id": req.RelatedId.String(),
			})
		}
		return nil, err
	}

	s.logger.Info("LEDGER", "Credits charged", map[string]interface{}{
		"user_id":     req.UserId.String(),
		"tool_type":   req.ToolType,
		"free_amount": res.Allocation.Free,
		"paid_amount": res.Allocation.Paid,
	})

	s.publish(ctx, events.New(events.TypeCreditsSpent, map[string]interface{}{
		"user_id":       req.UserId.String(),
		"tool_type":     req.ToolType,
		"amount":        req.Cost,
		"free_amount":   res.Allocation.Free,
		"paid_amount":   res.Allocation.Paid,
		"free_credits":  res.Wallet.FreeCredits,
		"paid_credits":  res.Wallet.PaidCredits,
		"total_credits": res.Wallet.TotalCredits,
		"used_today":    res.Wallet.UsedToday,
		"daily_limit":   res.Wallet.DailyLimit,
	}))
	return res, nil
}

func (s *walletService) charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	if req.Cost <= 0 {
		return nil, credit.ErrInvalidTool
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("begin charge: %w", err)
	}
	defer uow.Rollback()

	// One timestamp per charge: the usage row read and the one written must be the same day.
	now := s.clock.Now()
	today := credit.UsageDate(now)

	b, err := s.balance(ctx, uow, req.UserId, today, true)
	if err != nil {
		return nil, err
	}

	alloc, err := credit.Allocate(b, req.Cost)
	if err != nil {
		return nil, err
	}

	insufficient := func(cause error) error {
		if database.IsCheckViolation(cause) {
			return &credit.InsufficientCreditsError{Required: req.Cost, Available: b.Total()}
		}
		return cause
	}

	repo := uow.WalletRepository()
	if alloc.Free > 0 {
		if err := repo.IncrementDailyUsage(ctx, req.UserId, today, alloc.Free); err != nil {
			return nil, insufficient(fmt.Errorf("increment daily usage: %w", err))
		}
	}
	if alloc.Paid > 0 {
		ok, err := repo.DeductPaidCredits(ctx, req.UserId, alloc.Paid)
		if err != nil {
			return nil, insufficient(fmt.Errorf("deduct paid credits: %w", err))
		}
		if !ok {
			return nil, &credit.InsufficientCreditsError{Required: req.Cost, Available: b.Total()}
		}
	}

	after := credit.Balance{
		DailyLimit:  b.DailyLimit,
		UsedToday:   b.UsedToday + alloc.Free,
		PaidCredits: b.PaidCredits - alloc.Paid,
	}

	toolType := req.ToolType
	if err := uow.CreditTransactionRepository().Create(ctx, &entity.CreditTransaction{
		Id:               uuid.New(),
		UserId:           req.UserId,
		TransactionType:  entity.CreditTransactionSpend,
		Amount:           -req.Cost,
		FreeAmount:       alloc.Free,
		PaidAmount:       alloc.Paid,
		PaidBalanceAfter: after.PaidCredits,
		ServiceUsed:      &toolType,
		RelatedId:        req.RelatedId,
		CreatedAt:        now,
	}); err != nil {
		return nil, fmt.Errorf("write credit transaction: %w", err)
	}

	if req.CompleteRequest && req.RelatedId != nil {
		done, err := uow.AiRequestRepository().Complete(ctx, *req.RelatedId, entity.AiRequestStatusSuccess, req.ProcessingTimeMs, nil)
		if err != nil {
			return nil, fmt.Errorf("complete usage record: %w", err)
		}
		if !done {
			return nil, credit.ErrRequestNotPending
		}
	}

	if err := uow.Commit(); err != nil {
		return nil, insufficient(fmt.Errorf("commit charge: %w", err))
	}

	return &ChargeResult{Allocation: alloc, Wallet: walletResponse(after)}, nil
}

// CreateWallet runs inside the caller's transaction so a user never exists without a wallet.
func (s *walletService) CreateWallet(ctx context.Context, uow unitofwork.UnitOfWork, userId uuid.UUID) (*entity.Wallet, error) {
	now := s.clock.Now()
	wallet := &entity.Wallet{
		Id:          uuid.New(),
		UserId:      userId,
		PaidCredits: 0,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := uow.WalletRepository().Create(ctx, wallet); err != nil {
		return nil, fmt.Errorf("create wallet: %w", err)
	}
	return wallet, nil
}

func (s *walletService) AddPaidCredits(ctx context.Context, userId uuid.UUID, amount int, notes string) (*dto.WalletResponse, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("grant amount must be positive, got %d", amount)
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	b, err := s.balance(ctx, uow, userId, credit.UsageDate(s.clock.Now()), true)
	if err != nil {
		return nil, err
	}

	if err := uow.WalletRepository().AddPaidCredits(ctx, userId, amount); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, credit.ErrWalletNotFound
		}
		return nil, fmt.Errorf("add paid credits: %w", err)
	}

	b.PaidCredits += amount
	var notesPtr *string
	if notes != "" {
		notesPtr = &notes
	}
	if err := uow.CreditTransactionRepository().Create(ctx, &entity.CreditTransaction{
		Id:               uuid.New(),
		UserId:           userId,
		TransactionType:  entity.CreditTransactionGrant,
		Amount:           amount,
		PaidAmount:       amount,
		PaidBalanceAfter: b.PaidCredits,
		Notes:            notesPtr,
		CreatedAt:        s.clock.Now(),
	}); err != nil {
		return nil, fmt.Errorf("write credit transaction: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, err
	}

	res := walletResponse(b)
	s.logger.Info("LEDGER", "Paid credits granted", map[string]interface{}{
		"user_id": userId.String(), "amount": amount, "paid_credits": res.PaidCredits,
	})
	return &res, nil
}

func (s *walletService) ListTransactions(ctx context.Context, userId *uuid.UUID, page, limit int) (*dto.PagedResponse[dto.CreditTransactionResponse], error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	repo := uow.CreditTransactionRepository()

	var filters []specification.Specification
	if userId != nil {
		filters = append(filters, specification.UserOwnedBy{UserID: *userId})
	}

	total, err := repo.Count(ctx, filters...)
	if err != nil {
		return nil, err
	}

	pagination := specification.NewPagination(page, limit, 100)
	specs := append(filters, specification.OrderBy{Field: "created_at", Desc: true}, pagination)
	rows, err := repo.FindAll(ctx, specs...)
	if err != nil {
		return nil, err
	}

	items := make([]dto.CreditTransactionResponse, 0, len(rows))
	for _, row := range rows {
		items = append(items, transactionResponse(row))
	}

	return &dto.PagedResponse[dto.CreditTransactionResponse]{
		Items:      items,
		Pagination: dto.NewPaginationMeta(pagination.Offset/pagination.Limit+1, pagination.Limit, total),
	}, nil
}

func transactionResponse(t *entity.CreditTransaction) dto.CreditTransactionResponse {
	return dto.CreditTransactionResponse{
		Id:               t.Id,
		UserId:           t.UserId,
		TransactionType:  string(t.TransactionType),
		Amount:           t.Amount,
		FreeAmount:       t.FreeAmount,
		PaidAmount:       t.PaidAmount,
		PaidBalanceAfter: t.PaidBalanceAfter,
		ServiceUsed:      t.ServiceUsed,
		RelatedId:        t.RelatedId,
		Notes:            t.Notes,
		CreatedAt:        t.CreatedAt,
	}
}

func (s *walletService) publish(ctx context.Context, event events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("LEDGER", "Failed to publish event", map[string]interface{}{
			"type": event.EventType(), "error": err.Error(),
		})
	}
}
