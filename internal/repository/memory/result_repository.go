package memory

import (
	"time"

	"ai-studytool-be/internal/entity"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// ResultRepository keeps recent tool results keyed by request id.
type ResultRepository struct {
	cache *cache.Cache
}

func NewResultRepository(ttl time.Duration) *ResultRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &ResultRepository{
		cache: cache.New(ttl, 10*time.Minute),
	}
}

func (r *ResultRepository) Save(result *entity.ToolResult) {
	r.cache.Set(result.RequestId.String(), result, cache.DefaultExpiration)
}

// Get only returns results owned by userId.
func (r *ResultRepository) Get(requestId, userId uuid.UUID) (*entity.ToolResult, bool) {
	x, found := r.cache.Get(requestId.String())
	if !found {
		return nil, false
	}
	result := x.(*entity.ToolResult)
	if result.UserId != userId {
		return nil, false
	}
	return result, true
}

func (r *ResultRepository) Delete(requestId uuid.UUID) {
	r.cache.Delete(requestId.String())
}
