// Package partner exposes the read-only partner directory consumed by the
// settlement engine.
package partner

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atelier-ops/atelier-ops/internal/shared"
)

// EntityType distinguishes individual partners from incorporated ones; it
// only affects display and tax estimation on the UI side.
type EntityType string

const (
	EntityTypeIndividual EntityType = "individual"
	EntityTypeCompany    EntityType = "company"
)

// Partner is the directory record.
type Partner struct {
	ID          int64
	DisplayName string
	EntityType  EntityType
	CreatedAt   time.Time
}

// DirectoryPort resolves partner ids.
type DirectoryPort interface {
	GetPartner(ctx context.Context, id int64) (*Partner, error)
}

// Repository provides PostgreSQL backed reads of the partner directory.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetPartner resolves a partner id.
func (r *Repository) GetPartner(ctx context.Context, id int64) (*Partner, error) {
	query := `SELECT id, display_name, entity_type, created_at FROM partners WHERE id = $1`

	var p Partner
	var entityType string
	err := r.pool.QueryRow(ctx, query, id).Scan(&p.ID, &p.DisplayName, &entityType, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	p.EntityType = EntityType(entityType)
	return &p, nil
}
