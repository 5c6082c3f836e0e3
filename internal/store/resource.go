package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/cbr-records/apiserver/types"
)

// ResourceRepository handles persistence for one resource collection.
// A single implementation serves every kind; the schema supplies the kind
// discriminator and the field backing the uniqueness invariant.
type ResourceRepository struct {
	db     *sql.DB
	schema types.Schema
}

func NewResourceRepository(db *sql.DB, schema types.Schema) *ResourceRepository {
	return &ResourceRepository{db: db, schema: schema}
}

// List returns the collection newest-first. Equal creation timestamps fall
// back to descending id, so ordering is stable within one call.
func (r *ResourceRepository) List(ctx context.Context, approvedOnly bool) ([]types.Resource, error) {
	const listQuery = `
		SELECT id, doc, approved, created_at, updated_at
		FROM resources
		WHERE kind = $1 AND ($2 = FALSE OR approved = TRUE)
		ORDER BY created_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, listQuery, r.schema.Kind, approvedOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	resources := make([]types.Resource, 0)
	for rows.Next() {
		resource := types.Resource{Kind: r.schema.Kind}
		var doc []byte
		if err := rows.Scan(
			&resource.ID,
			&doc,
			&resource.Approved,
			&resource.CreatedAt,
			&resource.UpdatedAt,
		); err != nil {
			return nil, err
		}
		_ = json.Unmarshal(doc, &resource.Fields)
		resources = append(resources, resource)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return resources, nil
}

func (r *ResourceRepository) Get(ctx context.Context, id int) (types.Resource, error) {
	const query = `
		SELECT id, doc, approved, created_at, updated_at
		FROM resources
		WHERE kind = $1 AND id = $2`
	resource := types.Resource{Kind: r.schema.Kind}
	var doc []byte
	err := r.db.QueryRowContext(ctx, query, r.schema.Kind, id).Scan(
		&resource.ID,
		&doc,
		&resource.Approved,
		&resource.CreatedAt,
		&resource.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Resource{}, ErrNotFound
		}
		return types.Resource{}, err
	}

	_ = json.Unmarshal(doc, &resource.Fields)
	return resource, nil
}

func (r *ResourceRepository) Create(ctx context.Context, resource types.Resource) (types.Resource, error) {
	now := time.Now()
	resource.Kind = r.schema.Kind
	resource.CreatedAt = now
	resource.UpdatedAt = now

	doc, err := json.Marshal(resource.Fields)
	if err != nil {
		return types.Resource{}, err
	}

	const query = `
		INSERT INTO resources (kind, doc, unique_key, approved, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		resource.Kind,
		doc,
		r.uniqueKey(resource.Fields),
		resource.Approved,
		resource.CreatedAt,
		resource.UpdatedAt,
	).Scan(&resource.ID); err != nil {
		if isUniqueViolation(err) {
			return types.Resource{}, ErrDuplicate
		}
		return types.Resource{}, err
	}

	return resource, nil
}

func (r *ResourceRepository) Update(ctx context.Context, resource types.Resource) (types.Resource, error) {
	resource.UpdatedAt = time.Now()

	doc, err := json.Marshal(resource.Fields)
	if err != nil {
		return types.Resource{}, err
	}

	const query = `
		UPDATE resources
		SET doc = $1,
			unique_key = $2,
			updated_at = $3
		WHERE kind = $4 AND id = $5`
	result, err := r.db.ExecContext(
		ctx,
		query,
		doc,
		r.uniqueKey(resource.Fields),
		resource.UpdatedAt,
		r.schema.Kind,
		resource.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return types.Resource{}, ErrDuplicate
		}
		return types.Resource{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Resource{}, err
	}
	if affected == 0 {
		return types.Resource{}, ErrNotFound
	}

	return resource, nil
}

// SetApproved flips the moderation flag. The write is unconditional, so
// approving an already-approved entry is a no-op success.
func (r *ResourceRepository) SetApproved(ctx context.Context, id int, approved bool) (types.Resource, error) {
	const query = `
		UPDATE resources
		SET approved = $1,
			updated_at = $2
		WHERE kind = $3 AND id = $4`
	result, err := r.db.ExecContext(ctx, query, approved, time.Now(), r.schema.Kind, id)
	if err != nil {
		return types.Resource{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Resource{}, err
	}
	if affected == 0 {
		return types.Resource{}, ErrNotFound
	}

	return r.Get(ctx, id)
}

func (r *ResourceRepository) Delete(ctx context.Context, id int) error {
	const query = `DELETE FROM resources WHERE kind = $1 AND id = $2`
	result, err := r.db.ExecContext(ctx, query, r.schema.Kind, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// uniqueKey extracts the value backing the partial unique index, or nil
// when the schema has no uniqueness invariant.
func (r *ResourceRepository) uniqueKey(fields map[string]any) any {
	if r.schema.Unique == "" {
		return nil
	}
	if value, ok := fields[r.schema.Unique].(string); ok && value != "" {
		return value
	}
	return nil
}
