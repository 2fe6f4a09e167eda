package contract

import (
	"context"
	"time"

	"ai-studytool-be/internal/entity"
	"ai-studytool-be/internal/repository/specification"

	"github.com/google/uuid"
)

type AiRequestRepository interface {
	Create(ctx context.Context, req *entity.AiRequest) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.AiRequest, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.AiRequest, error)
	// FindLastSuccessful returns the newest success record for the pair, or nil.
	FindLastSuccessful(ctx context.Context, userId uuid.UUID, toolType string) (*entity.AiRequest, error)
	// Complete moves a pending request to success or failed and reports whether it did.
	// Finished requests are left untouched and yield false.
	Complete(ctx context.Context, id uuid.UUID, status entity.AiRequestStatus, processingTimeMs int64, errMsg *string) (bool, error)
	FailStalePending(ctx context.Context, olderThan time.Time, reason string) (int64, error)
	UsageStats(ctx context.Context, specs ...specification.Specification) ([]*entity.ToolUsageStat, error)
}
