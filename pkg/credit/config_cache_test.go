package credit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ai-studytool-be/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeSource struct {
	mu    sync.Mutex
	data  *SourceData
	err   error
	loads int
}

func (s *fakeSource) LoadConfig(ctx context.Context) (*SourceData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loads++
	if s.err != nil {
		return nil, s.err
	}
	return s.data, nil
}

func (s *fakeSource) set(data *SourceData, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = data
	s.err = err
}

func (s *fakeSource) loadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loads
}

func intPtr(v int) *int { return &v }

func newTestCache(src ConfigSource, clock Clock) *ConfigCache {
	return NewConfigCache(src, clock, 5*time.Minute, Defaults{DailyFreeLimit: 10}, logger.NewNopLogger())
}

func TestConfigCacheServesStaleUntilTTL(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	src := &fakeSource{data: &SourceData{
		Tools:   map[string]ToolSettings{"summary": {Enabled: true, CostMultiplier: 1.0}},
		Pricing: map[string]float64{"summary": 5},
	}}
	cache := newTestCache(src, clock)

	assert.Equal(t, 1.0, cache.CostMultiplier(ctx, "summary"))
	assert.True(t, cache.IsToolEnabled(ctx, "summary"))

	src.set(&SourceData{
		Tools:   map[string]ToolSettings{"summary": {Enabled: false, CostMultiplier: 1.5}},
		Pricing: map[string]float64{"summary": 5},
	}, nil)

	clock.Advance(4*time.Minute + 59*time.Second)
	assert.Equal(t, 1.0, cache.CostMultiplier(ctx, "summary"))
	assert.True(t, cache.IsToolEnabled(ctx, "summary"))
	assert.Equal(t, 1, src.loadCount())

	clock.Advance(time.Second)
	assert.Equal(t, 1.5, cache.CostMultiplier(ctx, "summary"))
	assert.False(t, cache.IsToolEnabled(ctx, "summary"))
	assert.Equal(t, 8, cache.CreditCost(ctx, "summary"))
	assert.Equal(t, 2, src.loadCount())
}

func TestConfigCacheKeepsLastGoodSnapshotOnFailure(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Now()}
	src := &fakeSource{data: &SourceData{
		Tools:          map[string]ToolSettings{"explain": {Enabled: true, CostMultiplier: 2.0, CooldownSeconds: 30}},
		Pricing:        map[string]float64{"explain": 3},
		DailyFreeLimit: intPtr(20),
	}}
	cache := newTestCache(src, clock)

	assert.Equal(t, 6, cache.CreditCost(ctx, "explain"))

	src.set(nil, errors.New("connection refused"))
	clock.Advance(10 * time.Minute)

	assert.Equal(t, 2.0, cache.CostMultiplier(ctx, "explain"))
	assert.Equal(t, 30, cache.CooldownSeconds(ctx, "explain"))
	assert.Equal(t, 20, cache.DailyFreeLimit(ctx))
}

func TestConfigCacheColdStartFallsBackToDefaults(t *testing.T) {
	ctx := context.Background()
	src := &fakeSource{err: errors.New("database unavailable")}
	cache := newTestCache(src, &fakeClock{now: time.Now()})

	assert.Equal(t, 1.0, cache.CostMultiplier(ctx, "summary"))
	assert.Equal(t, 0, cache.CooldownSeconds(ctx, "summary"))
	assert.True(t, cache.IsToolEnabled(ctx, "summary"))
	assert.Equal(t, 2, cache.CreditCost(ctx, "questions"))
	assert.Equal(t, 10, cache.DailyFreeLimit(ctx))

	src.set(&SourceData{Pricing: map[string]float64{"summary": 4}}, nil)
	assert.Equal(t, 4, cache.CreditCost(ctx, "summary"))
}

func TestConfigCacheDefaultsForUnconfiguredTools(t *testing.T) {
	ctx := context.Background()
	src := &fakeSource{data: &SourceData{Pricing: map[string]float64{"summary": 5}}}
	cache := newTestCache(src, &fakeClock{now: time.Now()})

	snap := cache.Snapshot(ctx)
	assert.Equal(t, 1.0, snap.CostMultiplier("summary"))
	assert.True(t, snap.IsToolEnabled("summary"))
	assert.Equal(t, 5, snap.CreditCost("summary"))
	assert.Equal(t, 0, snap.CreditCost("unknown"))
	assert.Equal(t, []string{"summary"}, snap.ToolIds())
}

func TestConfigCacheSanitizesBadValues(t *testing.T) {
	ctx := context.Background()
	src := &fakeSource{data: &SourceData{
		Tools: map[string]ToolSettings{
			"summary": {Enabled: true, CostMultiplier: -2, CooldownSeconds: -5},
		},
		Pricing:        map[string]float64{"summary": 5},
		DailyFreeLimit: intPtr(-1),
	}}
	cache := newTestCache(src, &fakeClock{now: time.Now()})

	assert.Equal(t, 1.0, cache.CostMultiplier(ctx, "summary"))
	assert.Equal(t, 0, cache.CooldownSeconds(ctx, "summary"))
	assert.Equal(t, 0, cache.DailyFreeLimit(ctx))
}

func TestConfigCacheConcurrentReadsLoadOnce(t *testing.T) {
	ctx := context.Background()
	src := &fakeSource{data: &SourceData{Pricing: map[string]float64{"summary": 1}}}
	cache := newTestCache(src, &fakeClock{now: time.Now()})

	cache.Snapshot(ctx)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Equal(t, 1, cache.CreditCost(ctx, "summary"))
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, src.loadCount())
}
