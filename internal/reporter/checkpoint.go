package reporter

import (
	"context"
	"time"
)

// Checkpoint saves r every interval until ctx is cancelled, then saves once
// more with a fresh context so records queued during shutdown reach disk.
func Checkpoint(ctx context.Context, r *Reporter, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = r.SaveToDisk(context.WithoutCancel(ctx))
			return
		case <-ticker.C:
			// failures are logged by SaveToDisk; the next tick retries
			_ = r.SaveToDisk(ctx)
		}
	}
}
