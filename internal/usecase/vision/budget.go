package vision

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/refurnish/internal/domain"
	"github.com/kailas-cloud/refurnish/internal/domain/usage"
)

// BudgetAction defines behavior when the token budget is exhausted.
type BudgetAction string

const (
	// BudgetActionWarn logs a warning but lets the request through.
	BudgetActionWarn BudgetAction = "warn"
	// BudgetActionReject fails the request with domain.ErrVisionQuotaExceeded.
	BudgetActionReject BudgetAction = "reject"
)

// BudgetStore persists budget counters. IncrBy must be safe to repeat.
type BudgetStore interface {
	IncrBy(ctx context.Context, key string, val int64) error
	Get(ctx context.Context, key string) (int64, error)
}

// window is one budget period (day or month) with its own limit.
type window struct {
	name  string
	limit int64
	used  int64
	start time.Time
	trunc func(time.Time) time.Time
	next  func(time.Time) time.Time
	key   string // time layout for the store key
}

func (w *window) roll(now time.Time) {
	if cur := w.trunc(now); cur.After(w.start) {
		w.used = 0
		w.start = cur
	}
}

func (w *window) snapshot() usage.Window {
	return usage.Window{Limit: w.limit, Used: w.used, Start: w.start, ResetsAt: w.next(w.start)}
}

func (w *window) exceeded() bool { return w.limit > 0 && w.used >= w.limit }

func (w *window) remaining() int64 {
	if w.limit == 0 {
		return -1
	}
	return max(0, w.limit-w.used)
}

// BudgetTracker enforces daily and monthly token limits for one provider.
// Check is answered from memory; Record writes behind to the store.
type BudgetTracker struct {
	mu       sync.Mutex
	provider string
	action   BudgetAction
	daily    window
	monthly  window
	store    BudgetStore
	now      func() time.Time
	logger   *zap.Logger
}

// NewBudgetTracker creates a tracker. A zero limit means unlimited.
func NewBudgetTracker(
	provider string, dailyLimit, monthlyLimit int64,
	action BudgetAction, logger *zap.Logger,
) *BudgetTracker {
	b := &BudgetTracker{
		provider: provider,
		action:   action,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   logger,
		daily:    window{
			name: "daily", limit: dailyLimit, key: "2006-01-02",
			trunc: truncateToDay, next: func(t time.Time) time.Time { return t.AddDate(0, 0, 1) },
		},
		monthly:  window{
			name: "monthly", limit: monthlyLimit, key: "2006-01",
			trunc: truncateToMonth, next: func(t time.Time) time.Time { return t.AddDate(0, 1, 0) },
		},
	}
	now := b.now()
	b.daily.start = truncateToDay(now)
	b.monthly.start = truncateToMonth(now)
	return b
}

// WithStore attaches a persistence store and loads the current counters from it.
func (b *BudgetTracker) WithStore(ctx context.Context, store BudgetStore) *BudgetTracker {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.store = store
	now := b.now()
	for _, w := range []*window{&b.daily, &b.monthly} {
		key := b.storeKey(w, now)
		val, err := store.Get(ctx, key)
		if err != nil {
			b.logger.Warn("Failed to load vision budget from store",
				zap.String("period", w.name), zap.Error(err))
			continue
		}
		w.used = val
	}
	b.logger.Info("Vision budget loaded from store",
		zap.String("provider", b.provider),
		zap.Int64("daily_used", b.daily.used),
		zap.Int64("monthly_used", b.monthly.used),
	)
	return b
}

func (b *BudgetTracker) storeKey(w *window, t time.Time) string {
	return fmt.Sprintf("%sbudget:%s:%s:%s", domain.KeyPrefix, b.provider, w.name, t.Format(w.key))
}

// Check reports whether a new request may proceed.
func (b *BudgetTracker) Check(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	b.daily.roll(now)
	b.monthly.roll(now)
	if !b.daily.exceeded() && !b.monthly.exceeded() {
		return nil
	}
	if b.action == BudgetActionReject {
		return domain.ErrVisionQuotaExceeded
	}
	b.logger.Warn("Vision token budget exceeded",
		zap.String("provider", b.provider),
		zap.Int64("daily_used", b.daily.used),
		zap.Int64("daily_limit", b.daily.limit),
		zap.Int64("monthly_used", b.monthly.used),
		zap.Int64("monthly_limit", b.monthly.limit),
	)
	return nil
}

// Record adds consumed tokens, then persists them when a store is attached.
func (b *BudgetTracker) Record(tokens int64) {
	b.mu.Lock()
	now := b.now()
	keys := make([]string, 0, 2)
	for _, w := range []*window{&b.daily, &b.monthly} {
		w.roll(now)
		w.used += tokens
		keys = append(keys, b.storeKey(w, now))
	}
	store := b.store
	b.mu.Unlock()

	if store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for _, key := range keys {
		if err := store.IncrBy(ctx, key, tokens); err != nil {
			b.logger.Warn("Failed to persist vision budget", zap.String("key", key), zap.Error(err))
		}
	}
}

// RemainingDaily returns tokens left today (-1 when unlimited).
func (b *BudgetTracker) RemainingDaily() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.daily.roll(b.now())
	return b.daily.remaining()
}

// RemainingMonthly returns tokens left this month (-1 when unlimited).
func (b *BudgetTracker) RemainingMonthly() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.monthly.roll(b.now())
	return b.monthly.remaining()
}

// Daily returns a snapshot of today's window.
func (b *BudgetTracker) Daily() usage.Window {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.daily.roll(b.now())
	return b.daily.snapshot()
}

// Monthly returns a snapshot of this month's window.
func (b *BudgetTracker) Monthly() usage.Window {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.monthly.roll(b.now())
	return b.monthly.snapshot()
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func truncateToMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
