package reporting

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atelier-ops/atelier-ops/internal/ledger"
	"github.com/atelier-ops/atelier-ops/internal/period"
)

// Repository provides the read-only PostgreSQL queries behind reports.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// SharedProjects lists the projects assigned to a partner together with
// their configured rates.
func (r *Repository) SharedProjects(ctx context.Context, partnerID int64) ([]SharedProject, error) {
	query := `
		SELECT s.project_id, p.name, s.share_rate
		FROM project_share_settings s
		JOIN projects p ON p.id = s.project_id
		WHERE s.share_partner_id = $1
		ORDER BY s.project_id`

	rows, err := r.pool.Query(ctx, query, partnerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []SharedProject
	for rows.Next() {
		var proj SharedProject
		var rate pgtype.Int4
		if err := rows.Scan(&proj.ProjectID, &proj.ProjectName, &rate); err != nil {
			return nil, err
		}
		if rate.Valid {
			v := int(rate.Int32)
			proj.ShareRate = &v
		}
		projects = append(projects, proj)
	}
	return projects, rows.Err()
}

// ProjectEntries reads a project's entries within the inclusive range.
func (r *Repository) ProjectEntries(ctx context.Context, projectID int64, rng period.Range) ([]ledger.Entry, error) {
	query := `
		SELECT id, project_id, entry_type, amount, entry_date, status
		FROM financial_entries
		WHERE project_id = $1
			AND ($2::date IS NULL OR entry_date >= $2)
			AND ($3::date IS NULL OR entry_date <= $3)`

	rows, err := r.pool.Query(ctx, query, projectID, dateArg(rng.Start), dateArg(rng.End))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []ledger.Entry
	for rows.Next() {
		var e ledger.Entry
		var entryType, status string
		var entryDate pgtype.Date
		if err := rows.Scan(&e.ID, &e.ProjectID, &entryType, &e.Amount, &entryDate, &status); err != nil {
			return nil, err
		}
		e.Type = ledger.EntryType(entryType)
		e.Status = ledger.EntryStatus(status)
		e.Date = entryDate.Time
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// MonthlyTotals groups a project's entries into monthly revenue and expense
// sums.
func (r *Repository) MonthlyTotals(ctx context.Context, projectID int64, rng period.Range) ([]MonthPoint, error) {
	query := `
		SELECT to_char(date_trunc('month', entry_date), 'YYYY-MM') AS month,
			COALESCE(SUM(amount) FILTER (WHERE entry_type = 'revenue'), 0) AS revenue,
			COALESCE(SUM(amount) FILTER (WHERE entry_type = 'expense'), 0) AS expense
		FROM financial_entries
		WHERE project_id = $1
			AND ($2::date IS NULL OR entry_date >= $2)
			AND ($3::date IS NULL OR entry_date <= $3)
		GROUP BY 1
		ORDER BY 1`

	rows, err := r.pool.Query(ctx, query, projectID, dateArg(rng.Start), dateArg(rng.End))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []MonthPoint
	for rows.Next() {
		var p MonthPoint
		if err := rows.Scan(&p.Month, &p.Revenue, &p.Expense); err != nil {
			return nil, err
		}
		p.NetProfit = p.Revenue - p.Expense
		points = append(points, p)
	}
	return points, rows.Err()
}

// SettlementSummaries returns a partner's most recent settlements.
func (r *Repository) SettlementSummaries(ctx context.Context, partnerID int64, limit int) ([]SettlementSummary, error) {
	query := `
		SELECT id, number, status, net_profit, partner_amount, created_at
		FROM partner_settlements
		WHERE partner_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, partnerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []SettlementSummary
	for rows.Next() {
		var s SettlementSummary
		if err := rows.Scan(&s.ID, &s.Number, &s.Status, &s.NetProfit, &s.PartnerAmount, &s.CreatedAt); err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

func dateArg(t *time.Time) pgtype.Date {
	if t == nil {
		return pgtype.Date{}
	}
	return pgtype.Date{Time: *t, Valid: true}
}
