// Package source holds the upstream fetchers. Each fetcher swallows its own
// transport failures and returns an empty batch instead of propagating, so
// one broken upstream never aborts a pipeline run.
package source

import (
	"context"
	"time"

	"horse.fit/agentwire/internal/domain"
)

// Fetcher pulls candidate items published after cutoff from one upstream.
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context, cutoff time.Time) ([]domain.Item, error)
}
