package credit

import (
	"context"
	"math"
	"sort"
	"sync/atomic"
	"time"

	"ai-studytool-be/internal/pkg/logger"

	"golang.org/x/sync/singleflight"
)

const DefaultConfigTTL = 5 * time.Minute

// ToolSettings is the cached, per-tool administrative configuration.
type ToolSettings struct {
	Enabled         bool
	CostMultiplier  float64
	CooldownSeconds int
	MinChars        int
	MaxChars        int
	ModelProvider   string
	ModelName       string
}

// SourceData is one full read of the configuration tables. Nil Pricing or DailyFreeLimit
// means the row is not configured and the defaults apply.
type SourceData struct {
	Tools          map[string]ToolSettings
	Pricing        map[string]float64
	DailyFreeLimit *int
}

// ConfigSource loads the configuration from persistent storage.
type ConfigSource interface {
	LoadConfig(ctx context.Context) (*SourceData, error)
}

type Defaults struct {
	Pricing        map[string]float64
	DailyFreeLimit int
}

func DefaultPricing() map[string]float64 {
	return map[string]float64{
		"summary":   1,
		"questions": 2,
		"explain":   1,
		"rewrite":   1,
	}
}

// Snapshot is an immutable view of the configuration. A request computes its cost from
// exactly one snapshot.
type Snapshot struct {
	tools          map[string]ToolSettings
	pricing        map[string]float64
	dailyFreeLimit int
	loadedAt       time.Time
}

func (s *Snapshot) Tool(toolId string) (ToolSettings, bool) {
	t, ok := s.tools[toolId]
	return t, ok
}

func (s *Snapshot) CostMultiplier(toolId string) float64 {
	if t, ok := s.tools[toolId]; ok {
		return t.CostMultiplier
	}
	return 1.0
}

func (s *Snapshot) CooldownSeconds(toolId string) int {
	if t, ok := s.tools[toolId]; ok {
		return t.CooldownSeconds
	}
	return 0
}

// IsToolEnabled fails open: an unconfigured tool is enabled.
func (s *Snapshot) IsToolEnabled(toolId string) bool {
	if t, ok := s.tools[toolId]; ok {
		return t.Enabled
	}
	return true
}

func (s *Snapshot) BaseCost(toolId string) float64 {
	return s.pricing[toolId]
}

func (s *Snapshot) CreditCost(toolId string) int {
	return CreditCost(s.BaseCost(toolId), s.CostMultiplier(toolId))
}

func (s *Snapshot) DailyFreeLimit() int {
	return s.dailyFreeLimit
}

func (s *Snapshot) LoadedAt() time.Time {
	return s.loadedAt
}

// ToolIds lists every priced tool, sorted.
func (s *Snapshot) ToolIds() []string {
	ids := make([]string, 0, len(s.pricing))
	for id := range s.pricing {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ConfigCache serves tool configuration from memory and reloads it synchronously once the
// current snapshot is older than the TTL. Load failures keep the previous snapshot; with no
// previous snapshot the hardcoded defaults are served and the next read retries.
type ConfigCache struct {
	source   ConfigSource
	clock    Clock
	ttl      time.Duration
	defaults Defaults
	logger   logger.ILogger

	group   singleflight.Group
	current atomic.Pointer[Snapshot]
}

func NewConfigCache(source ConfigSource, clock Clock, ttl time.Duration, defaults Defaults, log logger.ILogger) *ConfigCache {
	if clock == nil {
		clock = SystemClock{}
	}
	if ttl <= 0 {
		ttl = DefaultConfigTTL
	}
	if defaults.Pricing == nil {
		defaults.Pricing = DefaultPricing()
	}
	return &ConfigCache{
		source:   source,
		clock:    clock,
		ttl:      ttl,
		defaults: defaults,
		logger:   log,
	}
}

func (c *ConfigCache) Snapshot(ctx context.Context) *Snapshot {
	snap := c.current.Load()
	if snap != nil && c.clock.Now().Sub(snap.loadedAt) < c.ttl {
		return snap
	}

	fresh, err := c.refresh(ctx)
	if err == nil {
		return fresh
	}
	if snap != nil {
		return snap
	}
	return c.defaultSnapshot()
}

func (c *ConfigCache) CostMultiplier(ctx context.Context, toolId string) float64 {
	return c.Snapshot(ctx).CostMultiplier(toolId)
}

func (c *ConfigCache) CooldownSeconds(ctx context.Context, toolId string) int {
	return c.Snapshot(ctx).CooldownSeconds(toolId)
}

func (c *ConfigCache) IsToolEnabled(ctx context.Context, toolId string) bool {
	return c.Snapshot(ctx).IsToolEnabled(toolId)
}

func (c *ConfigCache) CreditCost(ctx context.Context, toolId string) int {
	return c.Snapshot(ctx).CreditCost(toolId)
}

func (c *ConfigCache) DailyFreeLimit(ctx context.Context) int {
	return c.Snapshot(ctx).DailyFreeLimit()
}

// refresh collapses concurrent reloads into one source read and swaps the whole snapshot.
func (c *ConfigCache) refresh(ctx context.Context) (*Snapshot, error) {
	v, err, _ := c.group.Do("config", func() (interface{}, error) {
		data, err := c.source.LoadConfig(ctx)
		if err != nil {
			c.logger.Warn("CONFIG_CACHE", "Config refresh failed, serving previous values", map[string]interface{}{
				"error": err.Error(),
			})
			return nil, err
		}

		snap := c.build(data, c.clock.Now())
		c.current.Store(snap)
		c.logger.Debug("CONFIG_CACHE", "Config refreshed", map[string]interface{}{
			"tools":            len(snap.tools),
			"priced_tools":     len(snap.pricing),
			"daily_free_limit": snap.dailyFreeLimit,
		})
		return snap, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Snapshot), nil
}

func (c *ConfigCache) build(data *SourceData, now time.Time) *Snapshot {
	snap := &Snapshot{
		tools:          make(map[string]ToolSettings),
		pricing:        make(map[string]float64),
		dailyFreeLimit: c.defaults.DailyFreeLimit,
		loadedAt:       now,
	}
	if data == nil {
		data = &SourceData{}
	}

	for id, t := range data.Tools {
		if math.IsNaN(t.CostMultiplier) || math.IsInf(t.CostMultiplier, 0) || t.CostMultiplier < 0 {
			t.CostMultiplier = 1.0
		}
		if t.CooldownSeconds < 0 {
			t.CooldownSeconds = 0
		}
		snap.tools[id] = t
	}

	pricing := data.Pricing
	if pricing == nil {
		pricing = c.defaults.Pricing
	}
	for id, base := range pricing {
		snap.pricing[id] = base
	}

	if data.DailyFreeLimit != nil {
		snap.dailyFreeLimit = *data.DailyFreeLimit
		if snap.dailyFreeLimit < 0 {
			snap.dailyFreeLimit = 0
		}
	}
	return snap
}

func (c *ConfigCache) defaultSnapshot() *Snapshot {
	snap := &Snapshot{
		tools:          map[string]ToolSettings{},
		pricing:        make(map[string]float64, len(c.defaults.Pricing)),
		dailyFreeLimit: c.defaults.DailyFreeLimit,
	}
	for id, base := range c.defaults.Pricing {
		snap.pricing[id] = base
	}
	return snap
}
