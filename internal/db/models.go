package db

import "time"

// PostedItem maps posted_items: the append-only ledger of everything ever
// published. Rows are inserted only after a confirmed publish and are never
// updated or deleted.
type PostedItem struct {
	ID             int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Fingerprint    string    `gorm:"column:fingerprint;type:text;not null;uniqueIndex:idx_posted_items_fingerprint"`
	CanonicalURL   string    `gorm:"column:canonical_url;type:text;not null"`
	OriginalURL    string    `gorm:"column:original_url;type:text;not null"`
	Title          string    `gorm:"column:title;type:text;not null"`
	Source         string    `gorm:"column:source;type:text;not null"`
	Domain         string    `gorm:"column:domain;type:text"`
	PublishedAt    time.Time `gorm:"column:published_at;type:timestamptz;not null"`
	PostedAt       time.Time `gorm:"column:posted_at;type:timestamptz;not null;index:idx_posted_items_posted_at"`
	RelevanceScore float64   `gorm:"column:relevance_score;type:double precision"`
}

func (PostedItem) TableName() string { return "posted_items" }

func autoMigrateModels() []any {
	return []any{
		&PostedItem{},
	}
}
