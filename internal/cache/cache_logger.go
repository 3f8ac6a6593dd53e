package cache

import (
	"context"
	"fmt"
	"log/slog"
)

// SafeInvalidatePattern invalidates a pattern and only logs failures
func SafeInvalidatePattern(ctx context.Context, helper *CacheHelper, pattern string) {
	if err := helper.InvalidatePattern(ctx, pattern); err != nil {
		slog.ErrorContext(ctx, "Failed to invalidate cache pattern",
			"error", err,
			"pattern", pattern)
	}
}

// SafeDelete deletes keys and only logs failures
func SafeDelete(ctx context.Context, helper *CacheHelper, keys ...string) {
	if err := helper.Delete(ctx, keys...); err != nil {
		slog.ErrorContext(ctx, "Failed to delete cache keys",
			"error", err,
			"keys", keys)
	}
}

// InvalidateReportCache drops a report entry, every cached report list and the dashboard aggregates
func InvalidateReportCache(ctx context.Context, cm *CacheManager, reportID uint) {
	if reportID != 0 {
		SafeDelete(ctx, cm.Report, fmt.Sprintf("id:%d", reportID))
	}
	SafeInvalidatePattern(ctx, cm.Report, "list:*")
	SafeInvalidatePattern(ctx, cm.Stats, "*")
}

// InvalidateClassCache drops a class entry and the dashboard aggregates
func InvalidateClassCache(ctx context.Context, cm *CacheManager, classID uint) {
	SafeDelete(ctx, cm.Class, fmt.Sprintf("id:%d", classID))
	SafeInvalidatePattern(ctx, cm.Class, "list:*")
	SafeInvalidatePattern(ctx, cm.Stats, "*")
}

// InvalidateUserCache drops a cached user, used after profile or status changes
func InvalidateUserCache(ctx context.Context, cm *CacheManager, userID uint) {
	SafeDelete(ctx, cm.User, fmt.Sprintf("id:%d", userID))
}

// InvalidateEnrollmentCache runs after enrollments change. A student's report
// list is scoped by enrollment, so cached report pages go too.
func InvalidateEnrollmentCache(ctx context.Context, cm *CacheManager, classID uint) {
	SafeDelete(ctx, cm.Class, fmt.Sprintf("id:%d", classID))
	SafeInvalidatePattern(ctx, cm.Report, "list:*")
	SafeInvalidatePattern(ctx, cm.Stats, "*")
}
