package postgres

import (
	"context"
	"sync"
	"time"

	"github.com/luct-edu/lecture-reporting-service/internal/cache"
)

const flushTimeout = 2 * time.Second

// invalidations applies cache invalidations for the stores. Outside a transaction
// they run at once; inside WithTransaction they queue until COMMIT and are
// dropped on rollback.
type invalidations struct {
	caches *cache.CacheManager
	held   bool

	mu      sync.Mutex
	pending []func(context.Context, *cache.CacheManager)
}

func immediateInvalidations(caches *cache.CacheManager) *invalidations {
	return &invalidations{caches: caches}
}

func heldInvalidations(caches *cache.CacheManager) *invalidations {
	return &invalidations{caches: caches, held: true}
}

func (i *invalidations) run(ctx context.Context, fn func(context.Context, *cache.CacheManager)) {
	if !i.held {
		fn(ctx, i.caches)
		return
	}
	i.mu.Lock()
	i.pending = append(i.pending, fn)
	i.mu.Unlock()
}

// flush runs everything queued since the transaction began. It ignores request
// cancellation: the rows are already committed.
func (i *invalidations) flush(ctx context.Context) {
	i.mu.Lock()
	pending := i.pending
	i.pending = nil
	i.mu.Unlock()
	if len(pending) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), flushTimeout)
	defer cancel()
	for _, fn := range pending {
		fn(ctx, i.caches)
	}
}

func (i *invalidations) report(ctx context.Context, reportID uint) {
	i.run(ctx, func(ctx context.Context, cm *cache.CacheManager) { cache.InvalidateReportCache(ctx, cm, reportID) })
}

func (i *invalidations) class(ctx context.Context, classID uint) {
	i.run(ctx, func(ctx context.Context, cm *cache.CacheManager) { cache.InvalidateClassCache(ctx, cm, classID) })
}

func (i *invalidations) enrollment(ctx context.Context, classID uint) {
	i.run(ctx, func(ctx context.Context, cm *cache.CacheManager) { cache.InvalidateEnrollmentCache(ctx, cm, classID) })
}

func (i *invalidations) user(ctx context.Context, userID uint) {
	i.run(ctx, func(ctx context.Context, cm *cache.CacheManager) { cache.InvalidateUserCache(ctx, cm, userID) })
}

func (i *invalidations) stats(ctx context.Context) {
	i.run(ctx, func(ctx context.Context, cm *cache.CacheManager) { cache.SafeInvalidatePattern(ctx, cm.Stats, "*") })
}
