package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atelier-ops/atelier-ops/internal/ledger"
	"github.com/atelier-ops/atelier-ops/internal/period"
	"github.com/atelier-ops/atelier-ops/internal/platform/db"
	"github.com/atelier-ops/atelier-ops/internal/project"
	"github.com/atelier-ops/atelier-ops/internal/shared"
)

// Repository provides PostgreSQL backed persistence for settlements.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// InTx runs fn inside a repeatable-read transaction. All reads through the
// TxPort observe one consistent snapshot, which is what makes settlement
// construction atomic with respect to concurrent ledger writes.
func (r *Repository) InTx(ctx context.Context, fn func(ctx context.Context, tx TxPort) error) error {
	if r == nil || r.pool == nil {
		return fmt.Errorf("settlement: repository not initialised")
	}
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &pgTx{tx: tx})
	})
	return retryableTxError(err)
}

// retryableTxError converts serialization and deadlock failures into the
// concurrency error callers are told to re-read and retry on. Under
// repeatable read a losing transition surfaces SQLSTATE 40001 from its
// row-locked read once the winner commits.
func retryableTxError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && (pgErr.Code == "40001" || pgErr.Code == "40P01") {
		return &shared.ConcurrencyError{Entity: "settlement"}
	}
	return err
}

// GetSettlement fetches a settlement without lines.
func (r *Repository) GetSettlement(ctx context.Context, id int64) (*Settlement, error) {
	doc, err := scanSettlement(r.pool.QueryRow(ctx, settlementSelect+` WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return doc, nil
}

// ListSettlements returns a partner's settlements, newest first.
func (r *Repository) ListSettlements(ctx context.Context, partnerID int64) ([]Settlement, error) {
	rows, err := r.pool.Query(ctx, settlementSelect+` WHERE partner_id = $1 ORDER BY created_at DESC, id DESC`, partnerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []Settlement
	for rows.Next() {
		doc, err := scanSettlement(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	return docs, rows.Err()
}

// ListLines returns the line snapshots of a settlement.
func (r *Repository) ListLines(ctx context.Context, settlementID int64) ([]Line, error) {
	query := `
		SELECT id, settlement_id, project_id, revenue, expense, net_profit,
			share_rate, partner_amount, company_amount
		FROM settlement_projects
		WHERE settlement_id = $1
		ORDER BY id`

	rows, err := r.pool.Query(ctx, query, settlementID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []Line
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.ID, &l.SettlementID, &l.ProjectID, &l.Revenue, &l.Expense,
			&l.NetProfit, &l.ShareRate, &l.PartnerAmount, &l.CompanyAmount); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

// UpdateMemo changes the memo without touching financial fields.
func (r *Repository) UpdateMemo(ctx context.Context, id int64, memo string) (*Settlement, error) {
	query := `
		UPDATE partner_settlements
		SET memo = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + settlementColumns

	doc, err := scanSettlement(r.pool.QueryRow(ctx, query, id, memo))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return doc, nil
}

// pgTx implements TxPort over an open pgx transaction.
type pgTx struct {
	tx pgx.Tx
}

// ShareSettingsForPartner reads and row-locks the partner's share settings
// so concurrent configuration changes cannot interleave with the build.
func (t *pgTx) ShareSettingsForPartner(ctx context.Context, partnerID int64) ([]project.ShareSetting, error) {
	query := `
		SELECT project_id, share_partner_id, share_rate, visible_to_partner, updated_at
		FROM project_share_settings
		WHERE share_partner_id = $1
		ORDER BY project_id
		FOR UPDATE`

	rows, err := t.tx.Query(ctx, query, partnerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var settings []project.ShareSetting
	for rows.Next() {
		var s project.ShareSetting
		var pid pgtype.Int8
		var rate pgtype.Int4
		if err := rows.Scan(&s.ProjectID, &pid, &rate, &s.VisibleToPartner, &s.UpdatedAt); err != nil {
			return nil, err
		}
		if pid.Valid {
			v := pid.Int64
			s.SharePartnerID = &v
		}
		if rate.Valid {
			v := int(rate.Int32)
			s.ShareRate = &v
		}
		settings = append(settings, s)
	}
	return settings, rows.Err()
}

// EntriesForProject reads a project's entries within the inclusive range.
func (t *pgTx) EntriesForProject(ctx context.Context, projectID int64, rng period.Range) ([]ledger.Entry, error) {
	query := `
		SELECT id, project_id, entry_type, amount, entry_date, status
		FROM financial_entries
		WHERE project_id = $1
			AND ($2::date IS NULL OR entry_date >= $2)
			AND ($3::date IS NULL OR entry_date <= $3)`

	rows, err := t.tx.Query(ctx, query, projectID, dateFromPointer(rng.Start), dateFromPointer(rng.End))
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

// InsertSettlement persists the parent document.
func (t *pgTx) InsertSettlement(ctx context.Context, doc *Settlement) (int64, error) {
	query := `
		INSERT INTO partner_settlements (
			number, partner_id, period_start, period_end, status,
			total_revenue, total_expense, net_profit, partner_amount, company_amount,
			memo, created_by, version, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $14)
		RETURNING id`

	var id int64
	err := t.tx.QueryRow(ctx, query,
		doc.Number,
		doc.PartnerID,
		dateFromPointer(doc.PeriodStart),
		dateFromPointer(doc.PeriodEnd),
		string(doc.Status),
		doc.TotalRevenue,
		doc.TotalExpense,
		doc.NetProfit,
		doc.PartnerAmount,
		doc.CompanyAmount,
		doc.Memo,
		doc.CreatedBy,
		doc.Version,
		doc.CreatedAt,
	).Scan(&id)
	return id, err
}

// InsertLines persists the line snapshots.
func (t *pgTx) InsertLines(ctx context.Context, settlementID int64, lines []Line) error {
	query := `
		INSERT INTO settlement_projects (
			settlement_id, project_id, revenue, expense, net_profit,
			share_rate, partner_amount, company_amount
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	for _, l := range lines {
		if _, err := t.tx.Exec(ctx, query,
			settlementID, l.ProjectID, l.Revenue, l.Expense, l.NetProfit,
			l.ShareRate, l.PartnerAmount, l.CompanyAmount); err != nil {
			return err
		}
	}
	return nil
}

// GetSettlementForUpdate row-locks the settlement so concurrent transitions
// are serialized.
func (t *pgTx) GetSettlementForUpdate(ctx context.Context, id int64) (*Settlement, error) {
	doc, err := scanSettlement(t.tx.QueryRow(ctx, settlementSelect+` WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return doc, nil
}

// UpdateStatus applies a transition guarded by the version column. Returns
// false when the version moved underneath the caller.
func (t *pgTx) UpdateStatus(ctx context.Context, id, version int64, change StatusChange) (bool, error) {
	query := `
		UPDATE partner_settlements
		SET status = $3,
			confirmed_at = COALESCE($4, confirmed_at),
			paid_at = COALESCE($5, paid_at),
			version = version + 1,
			updated_at = NOW()
		WHERE id = $1 AND version = $2`

	tag, err := t.tx.Exec(ctx, query, id, version, string(change.Status),
		timestampFromPointer(change.ConfirmedAt), timestampFromPointer(change.PaidAt))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// DeleteSettlement removes the document and cascades to its lines.
func (t *pgTx) DeleteSettlement(ctx context.Context, id int64) error {
	if _, err := t.tx.Exec(ctx, `DELETE FROM settlement_projects WHERE settlement_id = $1`, id); err != nil {
		return err
	}
	tag, err := t.tx.Exec(ctx, `DELETE FROM partner_settlements WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

const settlementColumns = `id, number, partner_id, period_start, period_end, status,
	total_revenue, total_expense, net_profit, partner_amount, company_amount,
	memo, created_by, confirmed_at, paid_at, version, created_at, updated_at`

const settlementSelect = `SELECT ` + settlementColumns + ` FROM partner_settlements`

func scanSettlement(row pgx.Row) (*Settlement, error) {
	var doc Settlement
	var status string
	var periodStart, periodEnd pgtype.Date
	var confirmedAt, paidAt pgtype.Timestamptz

	err := row.Scan(&doc.ID, &doc.Number, &doc.PartnerID, &periodStart, &periodEnd, &status,
		&doc.TotalRevenue, &doc.TotalExpense, &doc.NetProfit, &doc.PartnerAmount, &doc.CompanyAmount,
		&doc.Memo, &doc.CreatedBy, &confirmedAt, &paidAt, &doc.Version, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		return nil, err
	}

	doc.Status = Status(status)
	if periodStart.Valid {
		v := periodStart.Time
		doc.PeriodStart = &v
	}
	if periodEnd.Valid {
		v := periodEnd.Time
		doc.PeriodEnd = &v
	}
	if confirmedAt.Valid {
		v := confirmedAt.Time
		doc.ConfirmedAt = &v
	}
	if paidAt.Valid {
		v := paidAt.Time
		doc.PaidAt = &v
	}
	return &doc, nil
}

func dateFromPointer(t *time.Time) pgtype.Date {
	if t == nil {
		return pgtype.Date{}
	}
	return pgtype.Date{Time: *t, Valid: true}
}

func timestampFromPointer(t *time.Time) pgtype.Timestamptz {
	if t == nil {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: *t, Valid: true}
}
