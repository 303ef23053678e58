package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atelier-ops/atelier-ops/internal/period"
	"github.com/atelier-ops/atelier-ops/internal/shared"
)

// Repository provides PostgreSQL backed persistence for financial entries.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateEntry inserts a new financial entry.
func (r *Repository) CreateEntry(ctx context.Context, in CreateEntryInput) (*Entry, error) {
	query := `
		INSERT INTO financial_entries (
			project_id, entry_type, category, name, amount, entry_date,
			status, partner_id, payment_method, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		RETURNING id, created_at, updated_at`

	var e Entry
	err := r.pool.QueryRow(ctx, query,
		in.ProjectID,
		string(in.Type),
		in.Category,
		in.Name,
		in.Amount,
		pgtype.Date{Time: in.Date, Valid: true},
		string(in.Status),
		int8FromPointer(in.PartnerID),
		textFromMethod(in.PaymentMethod),
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}

	e.ProjectID = in.ProjectID
	e.Type = in.Type
	e.Category = in.Category
	e.Name = in.Name
	e.Amount = in.Amount
	e.Date = in.Date
	e.Status = in.Status
	e.PartnerID = in.PartnerID
	e.PaymentMethod = in.PaymentMethod
	return &e, nil
}

// UpdateEntry applies an explicit mutation to an entry.
func (r *Repository) UpdateEntry(ctx context.Context, in UpdateEntryInput) (*Entry, error) {
	query := `
		UPDATE financial_entries
		SET category = $2, name = $3, amount = $4, entry_date = $5,
			status = $6, partner_id = $7, payment_method = $8, updated_at = NOW()
		WHERE id = $1
		RETURNING id, project_id, entry_type, category, name, amount, entry_date,
			status, partner_id, payment_method, created_at, updated_at`

	row := r.pool.QueryRow(ctx, query,
		in.EntryID,
		in.Category,
		in.Name,
		in.Amount,
		pgtype.Date{Time: in.Date, Valid: true},
		string(in.Status),
		int8FromPointer(in.PartnerID),
		textFromMethod(in.PaymentMethod),
	)
	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return entry, nil
}

// DeleteEntry removes an entry. Deletion is always an explicit operation.
func (r *Repository) DeleteEntry(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM financial_entries WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// GetEntry fetches a single entry by id.
func (r *Repository) GetEntry(ctx context.Context, id int64) (*Entry, error) {
	query := `
		SELECT id, project_id, entry_type, category, name, amount, entry_date,
			status, partner_id, payment_method, created_at, updated_at
		FROM financial_entries
		WHERE id = $1`

	entry, err := scanEntry(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return entry, nil
}

// ListEntries returns a project's entries, optionally bounded by an
// inclusive date range, newest first.
func (r *Repository) ListEntries(ctx context.Context, projectID int64, rng period.Range) ([]Entry, error) {
	query := `
		SELECT id, project_id, entry_type, category, name, amount, entry_date,
			status, partner_id, payment_method, created_at, updated_at
		FROM financial_entries
		WHERE project_id = $1
			AND ($2::date IS NULL OR entry_date >= $2)
			AND ($3::date IS NULL OR entry_date <= $3)
		ORDER BY entry_date DESC, id DESC`

	rows, err := r.pool.Query(ctx, query, projectID, dateFromPointer(rng.Start), dateFromPointer(rng.End))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	return entries, rows.Err()
}

// ListEntriesForProjects returns entries across several projects within the
// range, used by reporting and settlement aggregation.
func (r *Repository) ListEntriesForProjects(ctx context.Context, projectIDs []int64, rng period.Range) ([]Entry, error) {
	query := `
		SELECT id, project_id, entry_type, category, name, amount, entry_date,
			status, partner_id, payment_method, created_at, updated_at
		FROM financial_entries
		WHERE project_id = ANY($1)
			AND ($2::date IS NULL OR entry_date >= $2)
			AND ($3::date IS NULL OR entry_date <= $3)
		ORDER BY entry_date, id`

	rows, err := r.pool.Query(ctx, query, projectIDs, dateFromPointer(rng.Start), dateFromPointer(rng.End))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	return entries, rows.Err()
}

func scanEntry(row pgx.Row) (*Entry, error) {
	var e Entry
	var entryType, status string
	var entryDate pgtype.Date
	var partnerID pgtype.Int8
	var method pgtype.Text

	err := row.Scan(&e.ID, &e.ProjectID, &entryType, &e.Category, &e.Name, &e.Amount,
		&entryDate, &status, &partnerID, &method, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}

	e.Type = EntryType(entryType)
	e.Status = EntryStatus(status)
	e.Date = entryDate.Time
	e.PartnerID = int8ToPointer(partnerID)
	if method.Valid {
		e.PaymentMethod = PaymentMethod(method.String)
	}
	return &e, nil
}

func int8FromPointer(v *int64) pgtype.Int8 {
	if v == nil {
		return pgtype.Int8{}
	}
	return pgtype.Int8{Int64: *v, Valid: true}
}

func int8ToPointer(v pgtype.Int8) *int64 {
	if !v.Valid {
		return nil
	}
	out := v.Int64
	return &out
}

func textFromMethod(m PaymentMethod) pgtype.Text {
	if m == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: string(m), Valid: true}
}

func dateFromPointer(t *time.Time) pgtype.Date {
	if t == nil {
		return pgtype.Date{}
	}
	return pgtype.Date{Time: *t, Valid: true}
}
