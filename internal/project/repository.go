package project

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atelier-ops/atelier-ops/internal/shared"
)

// Repository provides PostgreSQL backed persistence for the project
// directory and share settings.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetProject resolves a project id to its directory record.
func (r *Repository) GetProject(ctx context.Context, id int64) (*Project, error) {
	query := `SELECT id, name, created_at, updated_at FROM projects WHERE id = $1`

	var p Project
	err := r.pool.QueryRow(ctx, query, id).Scan(&p.ID, &p.Name, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// GetShareSetting loads the share configuration for a project. A project
// with no row yet gets an unconfigured setting, not an error.
func (r *Repository) GetShareSetting(ctx context.Context, projectID int64) (ShareSetting, error) {
	query := `
		SELECT project_id, share_partner_id, share_rate, visible_to_partner, updated_at
		FROM project_share_settings
		WHERE project_id = $1`

	setting, err := scanShareSetting(r.pool.QueryRow(ctx, query, projectID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ShareSetting{ProjectID: projectID}, nil
		}
		return ShareSetting{}, err
	}
	return setting, nil
}

// UpsertShareSetting stores the share configuration for a project.
func (r *Repository) UpsertShareSetting(ctx context.Context, in UpdateShareSettingInput) (ShareSetting, error) {
	query := `
		INSERT INTO project_share_settings (project_id, share_partner_id, share_rate, visible_to_partner, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (project_id) DO UPDATE
		SET share_partner_id = EXCLUDED.share_partner_id,
			share_rate = EXCLUDED.share_rate,
			visible_to_partner = EXCLUDED.visible_to_partner,
			updated_at = NOW()
		RETURNING project_id, share_partner_id, share_rate, visible_to_partner, updated_at`

	return scanShareSetting(r.pool.QueryRow(ctx, query,
		in.ProjectID,
		int8FromPointer(in.SharePartnerID),
		int4FromPointer(in.ShareRate),
		in.VisibleToPartner,
	))
}

// ListShareSettingsByPartner returns share settings currently assigned to
// the partner.
func (r *Repository) ListShareSettingsByPartner(ctx context.Context, partnerID int64) ([]ShareSetting, error) {
	query := `
		SELECT project_id, share_partner_id, share_rate, visible_to_partner, updated_at
		FROM project_share_settings
		WHERE share_partner_id = $1
		ORDER BY project_id`

	rows, err := r.pool.Query(ctx, query, partnerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var settings []ShareSetting
	for rows.Next() {
		setting, err := scanShareSetting(rows)
		if err != nil {
			return nil, err
		}
		settings = append(settings, setting)
	}
	return settings, rows.Err()
}

func scanShareSetting(row pgx.Row) (ShareSetting, error) {
	var s ShareSetting
	var partnerID pgtype.Int8
	var rate pgtype.Int4

	err := row.Scan(&s.ProjectID, &partnerID, &rate, &s.VisibleToPartner, &s.UpdatedAt)
	if err != nil {
		return ShareSetting{}, err
	}
	if partnerID.Valid {
		v := partnerID.Int64
		s.SharePartnerID = &v
	}
	if rate.Valid {
		v := int(rate.Int32)
		s.ShareRate = &v
	}
	return s, nil
}

func int8FromPointer(v *int64) pgtype.Int8 {
	if v == nil {
		return pgtype.Int8{}
	}
	return pgtype.Int8{Int64: *v, Valid: true}
}

func int4FromPointer(v *int) pgtype.Int4 {
	if v == nil {
		return pgtype.Int4{}
	}
	return pgtype.Int4{Int32: int32(*v), Valid: true}
}
