package store

import (
	"context"
	"database/sql"
	"time"
)

// SettingsRepository handles the singleton config documents. Both reads
// and writes are single INSERT ... ON CONFLICT statements: two concurrent
// first calls race on the primary key, not on an exists-then-create gap,
// so at most one row per key can ever exist.
type SettingsRepository struct {
	db *sql.DB
}

func NewSettingsRepository(db *sql.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// GetOrCreate returns the document stored under key, inserting defaults
// first if no document exists. It never reports not-found.
func (r *SettingsRepository) GetOrCreate(ctx context.Context, key string, defaults []byte) ([]byte, error) {
	const query = `
		INSERT INTO settings (key, doc, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET doc = settings.doc
		RETURNING doc`
	var doc []byte
	if err := r.db.QueryRowContext(ctx, query, key, defaults, time.Now()).Scan(&doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Upsert merges patch into the stored document, creating it from seed
// (defaults merged with the patch) when absent. Returns the stored result.
func (r *SettingsRepository) Upsert(ctx context.Context, key string, seed, patch []byte) ([]byte, error) {
	const query = `
		INSERT INTO settings (key, doc, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE
		SET doc = settings.doc || $4::jsonb,
			updated_at = $3
		RETURNING doc`
	var doc []byte
	if err := r.db.QueryRowContext(ctx, query, key, seed, time.Now(), patch).Scan(&doc); err != nil {
		return nil, err
	}
	return doc, nil
}
