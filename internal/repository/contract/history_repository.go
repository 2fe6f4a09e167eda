package contract

import (
	"context"

	"ai-studytool-be/internal/entity"
	"ai-studytool-be/internal/repository/specification"

	"github.com/google/uuid"
)

type HistoryRepository interface {
	Create(ctx context.Context, history *entity.History) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.History, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.History, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
	DeleteOwned(ctx context.Context, id, userId uuid.UUID) (int64, error)
	DeleteAllOwned(ctx context.Context, userId uuid.UUID) (int64, error)
}
