package stock

import (
	"context"
	"time"

	"github.com/pcshop/configurator/pkg/jobs"
)

// ReleaseAbandonedKind is the job kind that returns stock held by idle carts.
const ReleaseAbandonedKind = "release-abandoned-carts"

// ReleaseAbandonedJob returns a job handler that releases carts idle for
// longer than ttl.
func ReleaseAbandonedJob(store *Store, ttl time.Duration) jobs.HandlerFunc {
	return func(ctx context.Context, _ *jobs.Job) (int, error) {
		return store.ReleaseAbandoned(ctx, ttl)
	}
}
