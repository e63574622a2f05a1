package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"eco_gateway/internal/utils"
)

// Service tracks spend and carbon per caller and enforces monthly budgets.
type Service interface {
	WithinBudget(ctx context.Context, callerID string) bool
	AddUsage(ctx context.Context, callerID string, costEUR, carbonG float64) error
}

// NoopService does not enforce budgets and discards usage.
type NoopService struct{}

func NewNoopService() *NoopService {
	return &NoopService{}
}

func (s *NoopService) WithinBudget(ctx context.Context, callerID string) bool {
	return true
}

func (s *NoopService) AddUsage(ctx context.Context, callerID string, costEUR, carbonG float64) error {
	return nil
}

// Budgets are monthly limits applied to every caller. Zero means unlimited.
type Budgets struct {
	MonthlyCostEUR float64
	MonthlyCarbonG float64
}

// Usage is a caller's accumulated spend and carbon for one month.
type Usage struct {
	CostEUR float64 `json:"cost_eur"`
	CarbonG float64 `json:"carbon_gco2eq"`
}

// usageTTL keeps monthly counters for two months.
const usageTTL = 60 * 24 * time.Hour

// addUsageScript increments both monthly counters atomically and refreshes
// their expiry.
var addUsageScript = redis.NewScript(`
	local ttl = tonumber(ARGV[3])
	local cost = redis.call('INCRBYFLOAT', KEYS[1], ARGV[1])
	redis.call('EXPIRE', KEYS[1], ttl)
	local carbon = redis.call('INCRBYFLOAT', KEYS[2], ARGV[2])
	redis.call('EXPIRE', KEYS[2], ttl)
	return {cost, carbon}
`)

// RedisService keeps monthly counters in Redis.
type RedisService struct {
	redis   redis.UniversalClient
	budgets Budgets
	now     func() time.Time
	logger  *utils.Logger
}

// NewRedisService creates a Redis-backed billing service.
func NewRedisService(client redis.UniversalClient, budgets Budgets) *RedisService {
	return &RedisService{
		redis:   client,
		budgets: budgets,
		now:     time.Now,
		logger:  utils.NewLogger("billing"),
	}
}

// WithinBudget reports whether the caller is below both monthly budgets.
// Redis errors fail open.
func (s *RedisService) WithinBudget(ctx context.Context, callerID string) bool {
	if s.budgets.MonthlyCostEUR <= 0 && s.budgets.MonthlyCarbonG <= 0 {
		return true
	}

	usage, err := s.GetMonthlyUsage(ctx, callerID)
	if err != nil {
		s.logger.Warn("Failed to read monthly usage, allowing request", "caller", callerID, "error", err)
		return true
	}

	if s.budgets.MonthlyCostEUR > 0 && usage.CostEUR >= s.budgets.MonthlyCostEUR {
		return false
	}
	if s.budgets.MonthlyCarbonG > 0 && usage.CarbonG >= s.budgets.MonthlyCarbonG {
		return false
	}
	return true
}

// AddUsage adds cost and carbon to the caller's running monthly totals.
func (s *RedisService) AddUsage(ctx context.Context, callerID string, costEUR, carbonG float64) error {
	now := s.now().UTC()
	keys := []string{
		monthlyKey("cost", callerID, now.Year(), int(now.Month())),
		monthlyKey("carbon", callerID, now.Year(), int(now.Month())),
	}

	err := addUsageScript.Run(ctx, s.redis, keys, costEUR, carbonG, int(usageTTL.Seconds())).Err()
	if err != nil {
		return fmt.Errorf("failed to add usage: %w", err)
	}
	return nil
}

// GetMonthlyUsage returns the current month's totals for a caller.
func (s *RedisService) GetMonthlyUsage(ctx context.Context, callerID string) (Usage, error) {
	now := s.now().UTC()
	return s.GetUsage(ctx, callerID, now.Year(), int(now.Month()))
}

// GetUsage returns totals for a specific month.
func (s *RedisService) GetUsage(ctx context.Context, callerID string, year, month int) (Usage, error) {
	cost, err := s.getFloat(ctx, monthlyKey("cost", callerID, year, month))
	if err != nil {
		return Usage{}, err
	}
	carbonG, err := s.getFloat(ctx, monthlyKey("carbon", callerID, year, month))
	if err != nil {
		return Usage{}, err
	}
	return Usage{CostEUR: cost, CarbonG: carbonG}, nil
}

// ResetMonthlyUsage clears the current month's totals for a caller.
func (s *RedisService) ResetMonthlyUsage(ctx context.Context, callerID string) error {
	now := s.now().UTC()
	return s.redis.Del(ctx,
		monthlyKey("cost", callerID, now.Year(), int(now.Month())),
		monthlyKey("carbon", callerID, now.Year(), int(now.Month())),
	).Err()
}

func (s *RedisService) getFloat(ctx context.Context, key string) (float64, error) {
	val, err := s.redis.Get(ctx, key).Float64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return val, nil
}

// monthlyKey generates the Redis key for a monthly counter
func monthlyKey(kind, callerID string, year, month int) string {
	return fmt.Sprintf("%s:%s:%d:%02d", kind, callerID, year, month)
}
