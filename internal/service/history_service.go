package service

import (
	"context"
	"encoding/json"
	"fmt"

	"ai-studytool-be/internal/dto"
	"ai-studytool-be/internal/entity"
	"ai-studytool-be/internal/pkg/apperror"
	"ai-studytool-be/internal/pkg/logger"
	"ai-studytool-be/internal/repository/memory"
	"ai-studytool-be/internal/repository/specification"
	"ai-studytool-be/internal/repository/unitofwork"
	"ai-studytool-be/pkg/credit"

	"github.com/google/uuid"
)

type IHistoryService interface {
	Save(ctx context.Context, userId uuid.UUID, req *dto.SaveHistoryRequest) (*dto.HistoryResponse, error)
	List(ctx context.Context, userId uuid.UUID, toolType string, page, limit int) (*dto.PagedResponse[dto.HistoryResponse], error)
	Get(ctx context.Context, userId, id uuid.UUID) (*dto.HistoryResponse, error)
	Delete(ctx context.Context, userId, id uuid.UUID) error
	DeleteAll(ctx context.Context, userId uuid.UUID) (int64, error)
}

type historyService struct {
	uowFactory unitofwork.RepositoryFactory
	results    *memory.ResultRepository
	clock      credit.Clock
	logger     logger.ILogger
}

func NewHistoryService(uowFactory unitofwork.RepositoryFactory, results *memory.ResultRepository, clock credit.Clock, log logger.ILogger) IHistoryService {
	if clock == nil {
		clock = credit.SystemClock{}
	}
	return &historyService{
		uowFactory: uowFactory,
		results:    results,
		clock:      clock,
		logger:     log,
	}
}

// Save stores a recent tool result by request id, or the explicit fields when no id is given.
func (s *historyService) Save(ctx context.Context, userId uuid.UUID, req *dto.SaveHistoryRequest) (*dto.HistoryResponse, error) {
	history := &entity.History{
		Id:        uuid.New(),
		UserId:    userId,
		CreatedAt: s.clock.Now(),
	}

	var settings map[string]interface{}
	if req.RequestId != nil {
		result, ok := s.results.Get(*req.RequestId, userId)
		if !ok {
			return nil, apperror.NotFound("Result expired or not found")
		}
		history.ToolType = result.ToolType
		history.InputText = result.InputText
		history.OutputText = result.OutputText
		history.CreditsUsed = result.CreditsUsed
		settings = result.Settings
	} else {
		history.ToolType = req.ToolType
		history.InputText = req.InputText
		history.OutputText = req.OutputText
		history.CreditsUsed = req.CreditsUsed
		settings = req.Settings
	}

	if settings != nil {
		raw, err := json.Marshal(settings)
		if err != nil {
			return nil, apperror.BadRequest("Invalid settings")
		}
		history.Settings = raw
	}

	if err := s.uowFactory.NewUnitOfWork(ctx).HistoryRepository().Create(ctx, history); err != nil {
		return nil, fmt.Errorf("create history: %w", err)
	}
	if req.RequestId != nil {
		s.results.Delete(*req.RequestId)
	}

	s.logger.Info("HISTORY", "History saved", map[string]interface{}{
		"user_id": userId.String(), "history_id": history.Id.String(), "tool_type": history.ToolType,
	})
	res := historyResponse(history)
	return &res, nil
}

func (s *historyService) List(ctx context.Context, userId uuid.UUID, toolType string, page, limit int) (*dto.PagedResponse[dto.HistoryResponse], error) {
	repo := s.uowFactory.NewUnitOfWork(ctx).HistoryRepository()

	filters := []specification.Specification{specification.UserOwnedBy{UserID: userId}}
	if toolType != "" {
		filters = append(filters, specification.ByToolType{ToolType: toolType})
	}

	total, err := repo.Count(ctx, filters...)
	if err != nil {
		return nil, err
	}

	pagination := specification.NewPagination(page, limit, 100)
	rows, err := repo.FindAll(ctx, append(filters, specification.OrderBy{Field: "created_at", Desc: true}, pagination)...)
	if err != nil {
		return nil, err
	}

	items := make([]dto.HistoryResponse, 0, len(rows))
	for _, h := range rows {
		items = append(items, historyResponse(h))
	}
	return &dto.PagedResponse[dto.HistoryResponse]{
		Items:      items,
		Pagination: dto.NewPaginationMeta(pagination.Offset/pagination.Limit+1, pagination.Limit, total),
	}, nil
}

func (s *historyService) Get(ctx context.Context, userId, id uuid.UUID) (*dto.HistoryResponse, error) {
	h, err := s.uowFactory.NewUnitOfWork(ctx).HistoryRepository().FindOne(ctx,
		specification.ByID{ID: id},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if h == nil {
		return nil, apperror.NotFound("History not found")
	}
	res := historyResponse(h)
	return &res, nil
}

func (s *historyService) Delete(ctx context.Context, userId, id uuid.UUID) error {
	n, err := s.uowFactory.NewUnitOfWork(ctx).HistoryRepository().DeleteOwned(ctx, id, userId)
	if err != nil {
		return err
	}
	if n == 0 {
		return apperror.NotFound("History not found")
	}
	return nil
}

func (s *historyService) DeleteAll(ctx context.Context, userId uuid.UUID) (int64, error) {
	n, err := s.uowFactory.NewUnitOfWork(ctx).HistoryRepository().DeleteAllOwned(ctx, userId)
	if err != nil {
		return 0, err
	}
	s.logger.Info("HISTORY", "History cleared", map[string]interface{}{"user_id": userId.String(), "deleted": n})
	return n, nil
}

func historyResponse(h *entity.History) dto.HistoryResponse {
	res := dto.HistoryResponse{
		Id:          h.Id,
		ToolType:    h.ToolType,
		InputText:   h.InputText,
		OutputText:  h.OutputText,
		CreditsUsed: h.CreditsUsed,
		CreatedAt:   h.CreatedAt,
	}
	if len(h.Settings) > 0 {
		_ = json.Unmarshal(h.Settings, &res.Settings)
	}
	return res
}
