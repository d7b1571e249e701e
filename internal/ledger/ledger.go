// Package ledger is the durable record of published items. It is the only
// mutable shared state in the pipeline and the authoritative set of
// fingerprints that must never be re-selected.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/agentwire/internal/db"
	"horse.fit/agentwire/internal/domain"
	"horse.fit/agentwire/internal/globaltime"
)

// ErrAlreadyRecorded signals that a fingerprint is already in the ledger.
// Callers treat it as a benign race outcome, not a failure.
var ErrAlreadyRecorded = errors.New("fingerprint already recorded")

// Stats is the operational read model over the posting history.
type Stats struct {
	TotalPosted int64            `json:"total_posted"`
	BySource    map[string]int64 `json:"by_source"`
	Last7Days   int64            `json:"last_7_days"`
}

type Ledger struct {
	pool   *db.Pool
	logger zerolog.Logger
}

func New(pool *db.Pool, logger zerolog.Logger) *Ledger {
	return &Ledger{
		pool:   pool,
		logger: logger,
	}
}

// Fingerprints returns the full set of posted fingerprints for batch dedup.
func (l *Ledger) Fingerprints(ctx context.Context) (map[string]struct{}, error) {
	if l == nil || l.pool == nil {
		return nil, fmt.Errorf("ledger is not initialized")
	}

	rows, err := l.pool.Query(ctx, `SELECT fingerprint FROM posted_items`)
	if err != nil {
		return nil, fmt.Errorf("query posted fingerprints: %w", err)
	}
	defer rows.Close()

	fingerprints := make(map[string]struct{})
	for rows.Next() {
		var fingerprint string
		if err := rows.Scan(&fingerprint); err != nil {
			return nil, fmt.Errorf("scan posted fingerprint: %w", err)
		}
		fingerprints[fingerprint] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate posted fingerprints: %w", err)
	}
	return fingerprints, nil
}

// Contains reports whether one fingerprint is already recorded.
func (l *Ledger) Contains(ctx context.Context, fingerprint string) (bool, error) {
	if l == nil || l.pool == nil {
		return false, fmt.Errorf("ledger is not initialized")
	}

	var count int64
	err := l.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM posted_items WHERE fingerprint = ?`, fingerprint,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("query fingerprint membership: %w", err)
	}
	return count > 0, nil
}

// Record appends one published item. Recording an existing fingerprint
// leaves the ledger untouched and returns ErrAlreadyRecorded, so the same
// item selected twice across overlapping runs cannot corrupt state.
func (l *Ledger) Record(ctx context.Context, item domain.Item, postedAt time.Time) error {
	if l == nil || l.pool == nil {
		return fmt.Errorf("ledger is not initialized")
	}
	if item.Fingerprint == "" {
		return fmt.Errorf("item has no fingerprint")
	}
	if postedAt.IsZero() {
		postedAt = globaltime.UTC()
	}

	tag, err := l.pool.Exec(ctx, `
INSERT INTO posted_items (fingerprint, canonical_url, original_url, title, source, domain, published_at, posted_at, relevance_score)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (fingerprint) DO NOTHING`,
		item.Fingerprint,
		item.Link(),
		item.URL,
		item.Title,
		item.Source,
		item.Domain,
		item.PublishedAt.UTC(),
		postedAt.UTC(),
		item.Score,
	)
	if err != nil {
		return fmt.Errorf("insert posted item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		l.logger.Warn().
			Str("fingerprint", item.Fingerprint).
			Str("canonical_url", item.Link()).
			Msg("attempted to record duplicate posted item")
		return ErrAlreadyRecorded
	}

	l.logger.Debug().
		Str("fingerprint", item.Fingerprint).
		Str("canonical_url", item.Link()).
		Msg("recorded posted item")
	return nil
}

// QueryStats aggregates posting history counts, including a rolling 7-day
// window ending at the current (mockable) clock.
func (l *Ledger) QueryStats(ctx context.Context) (*Stats, error) {
	if l == nil || l.pool == nil {
		return nil, fmt.Errorf("ledger is not initialized")
	}

	stats := &Stats{BySource: make(map[string]int64)}

	if err := l.pool.QueryRow(ctx, `SELECT COUNT(*) FROM posted_items`).Scan(&stats.TotalPosted); err != nil {
		return nil, fmt.Errorf("query total posted: %w", err)
	}

	rows, err := l.pool.Query(ctx, `SELECT source, COUNT(*) FROM posted_items GROUP BY source ORDER BY source`)
	if err != nil {
		return nil, fmt.Errorf("query posted by source: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var source string
		var count int64
		if err := rows.Scan(&source, &count); err != nil {
			return nil, fmt.Errorf("scan posted-by-source row: %w", err)
		}
		stats.BySource[source] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate posted-by-source rows: %w", err)
	}

	weekAgo := globaltime.UTC().Add(-7 * 24 * time.Hour)
	if err := l.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM posted_items WHERE posted_at >= ?`, weekAgo,
	).Scan(&stats.Last7Days); err != nil {
		return nil, fmt.Errorf("query recent posted count: %w", err)
	}

	return stats, nil
}

// Recent returns the newest posted records, most recent first.
func (l *Ledger) Recent(ctx context.Context, limit int) ([]db.PostedItem, error) {
	if l == nil || l.pool == nil {
		return nil, fmt.Errorf("ledger is not initialized")
	}
	if limit <= 0 {
		limit = 25
	}

	rows, err := l.pool.Query(ctx, `
SELECT fingerprint, canonical_url, original_url, title, source, domain, published_at, posted_at, relevance_score
FROM posted_items
ORDER BY posted_at DESC
LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent posted items: %w", err)
	}
	defer rows.Close()

	records := make([]db.PostedItem, 0, limit)
	for rows.Next() {
		var record db.PostedItem
		if err := rows.Scan(
			&record.Fingerprint,
			&record.CanonicalURL,
			&record.OriginalURL,
			&record.Title,
			&record.Source,
			&record.Domain,
			&record.PublishedAt,
			&record.PostedAt,
			&record.RelevanceScore,
		); err != nil {
			return nil, fmt.Errorf("scan recent posted row: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recent posted rows: %w", err)
	}
	return records, nil
}
