package conventions

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/boothkeeper/boothkeeper/internal/platform/db"
	"github.com/boothkeeper/boothkeeper/internal/shared"
)

// Repository persists conventions, their custom line items and daily entries.
type Repository interface {
	ListConventions(ctx context.Context, ownerID string, params shared.ListParams) ([]Convention, int, error)
	ListConventionsOverlapping(ctx context.Context, ownerID string, from, to time.Time) ([]Convention, error)
	ListActiveOwners(ctx context.Context, from, to time.Time) ([]string, error)
	GetConvention(ctx context.Context, ownerID string, id int64) (Convention, error)
	CreateConvention(ctx context.Context, c Convention) (Convention, error)
	SaveConvention(ctx context.Context, c Convention) (Convention, error)
	DeleteConventions(ctx context.Context, ownerID string, ids []int64) (int64, error)

	ListCustomReports(ctx context.Context, ownerID string, conventionID *int64) ([]CustomReport, error)
	CreateCustomReport(ctx context.Context, r CustomReport) (CustomReport, error)
	UpdateCustomReport(ctx context.Context, ownerID string, id int64, name *string, price any) (CustomReport, error)
	DeleteCustomReports(ctx context.Context, ownerID string, conventionID int64, ids []int64) (int64, error)

	ListCustomDiscounts(ctx context.Context, ownerID string, conventionID *int64) ([]CustomDiscount, error)
	CreateCustomDiscount(ctx context.Context, d CustomDiscount) (CustomDiscount, error)
	UpdateCustomDiscount(ctx context.Context, ownerID string, id int64, name *string, amount any) (CustomDiscount, error)
	DeleteCustomDiscounts(ctx context.Context, ownerID string, conventionID int64, ids []int64) (int64, error)

	ListEntries(ctx context.Context, ownerID string, conventionID *int64, from, to time.Time) ([]Entry, error)
	UpsertEntries(ctx context.Context, ownerID string, conventionID int64, day time.Time, counts []DailyCount) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const (
	conventionColumns     = `id, owner_id, name, location, length, start_date, end_date, locked, created_at, updated_at`
	customReportColumns   = `id, owner_id, convention_id, name, price`
	customDiscountColumns = `id, owner_id, convention_id, name, amount`
)

// itemTables maps a line item kind to the table holding it and the foreign
// key column on daily_entries that cascades its deletion.
var itemTables = map[ItemKind]struct {
	table        string
	column       string
	byConvention bool
}{
	KindProduct:        {table: "products", column: "product_id"},
	KindVariation:      {table: "variations", column: "variation_id"},
	KindCustom:         {table: "custom_reports", column: "custom_report_id", byConvention: true},
	KindDiscount:       {table: "discounts", column: "discount_id"},
	KindCustomDiscount: {table: "custom_discounts", column: "custom_discount_id", byConvention: true},
}

func scanConvention(row pgx.Row) (Convention, error) {
	var c Convention
	err := row.Scan(&c.ID, &c.OwnerID, &c.Name, &c.Location, &c.Length, &c.StartDate, &c.EndDate, &c.Locked, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Convention{}, ErrNotFound
	}
	return c, err
}

func scanCustomReport(row pgx.Row) (CustomReport, error) {
	var r CustomReport
	err := row.Scan(&r.ID, &r.OwnerID, &r.ConventionID, &r.Name, &r.Price)
	if errors.Is(err, pgx.ErrNoRows) {
		return CustomReport{}, ErrNotFound
	}
	return r, err
}

func scanCustomDiscount(row pgx.Row) (CustomDiscount, error) {
	var d CustomDiscount
	err := row.Scan(&d.ID, &d.OwnerID, &d.ConventionID, &d.Name, &d.Amount)
	if errors.Is(err, pgx.ErrNoRows) {
		return CustomDiscount{}, ErrNotFound
	}
	return d, err
}

func (r *repository) ListConventions(ctx context.Context, ownerID string, params shared.ListParams) ([]Convention, int, error) {
	where := ` WHERE owner_id = $1`
	args := []any{ownerID}
	if params.Search != "" {
		args = append(args, "%"+params.Search+"%")
		pos := strconv.Itoa(len(args))
		where += ` AND (name ILIKE $` + pos + ` OR location ILIKE $` + pos + `)`
	}
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM conventions`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	dir := "DESC"
	if params.SortDir == "asc" && params.SortBy != "" {
		dir = "ASC"
	}
	args = append(args, params.PerPage, params.Offset())
	query := `SELECT ` + conventionColumns + ` FROM conventions` + where +
		` ORDER BY start_date ` + dir + `, id LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Convention
	for rows.Next() {
		c, err := scanConvention(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}

// ListActiveOwners returns every owner with a convention overlapping [from, to].
func (r *repository) ListActiveOwners(ctx context.Context, from, to time.Time) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT DISTINCT owner_id FROM conventions WHERE start_date <= $2 AND end_date >= $1 ORDER BY owner_id`,
		from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	owners := make([]string, 0)
	for rows.Next() {
		var owner string
		if err := rows.Scan(&owner); err != nil {
			return nil, err
		}
		owners = append(owners, owner)
	}
	return owners, rows.Err()
}

func (r *repository) ListConventionsOverlapping(ctx context.Context, ownerID string, from, to time.Time) ([]Convention, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+conventionColumns+` FROM conventions WHERE owner_id = $1 AND start_date <= $3 AND end_date >= $2 ORDER BY start_date, id`,
		ownerID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Convention
	for rows.Next() {
		c, err := scanConvention(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *repository) GetConvention(ctx context.Context, ownerID string, id int64) (Convention, error) {
	return scanConvention(r.pool.QueryRow(ctx, `SELECT `+conventionColumns+` FROM conventions WHERE id = $1 AND owner_id = $2`, id, ownerID))
}

func (r *repository) CreateConvention(ctx context.Context, c Convention) (Convention, error) {
	return scanConvention(r.pool.QueryRow(ctx,
		`INSERT INTO conventions (owner_id, name, location, length, start_date, end_date, locked)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING `+conventionColumns,
		c.OwnerID, c.Name, c.Location, c.Length, c.StartDate, c.EndDate, c.Locked))
}

// SaveConvention writes every editable column; the service has already merged
// the dirty fields and checked the length invariant.
func (r *repository) SaveConvention(ctx context.Context, c Convention) (Convention, error) {
	return scanConvention(r.pool.QueryRow(ctx,
		`UPDATE conventions SET name = $1, location = $2, length = $3, start_date = $4, end_date = $5, locked = $6, updated_at = now()
		 WHERE id = $7 AND owner_id = $8 RETURNING `+conventionColumns,
		c.Name, c.Location, c.Length, c.StartDate, c.EndDate, c.Locked, c.ID, c.OwnerID))
}

// DeleteConventions skips locked conventions. Custom items and entries cascade.
func (r *repository) DeleteConventions(ctx context.Context, ownerID string, ids []int64) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM conventions WHERE owner_id = $1 AND id = ANY($2) AND NOT locked`, ownerID, ids)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *repository) ListCustomReports(ctx context.Context, ownerID string, conventionID *int64) ([]CustomReport, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+customReportColumns+` FROM custom_reports WHERE owner_id = $1 AND ($2::bigint IS NULL OR convention_id = $2) ORDER BY id`,
		ownerID, conventionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []CustomReport
	for rows.Next() {
		item, err := scanCustomReport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func (r *repository) CreateCustomReport(ctx context.Context, item CustomReport) (CustomReport, error) {
	return scanCustomReport(r.pool.QueryRow(ctx,
		`INSERT INTO custom_reports (owner_id, convention_id, name, price) VALUES ($1, $2, $3, $4) RETURNING `+customReportColumns,
		item.OwnerID, item.ConventionID, item.Name, item.Price))
}

func (r *repository) UpdateCustomReport(ctx context.Context, ownerID string, id int64, name *string, price any) (CustomReport, error) {
	var set db.UpdateSet
	if name != nil {
		set.Set("name", *name)
	}
	if price != nil {
		set.Set("price", price)
	}
	query, args := set.Build("custom_reports", id, ownerID, customReportColumns)
	return scanCustomReport(r.pool.QueryRow(ctx, query, args...))
}

func (r *repository) DeleteCustomReports(ctx context.Context, ownerID string, conventionID int64, ids []int64) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM custom_reports WHERE owner_id = $1 AND convention_id = $2 AND id = ANY($3)`, ownerID, conventionID, ids)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *repository) ListCustomDiscounts(ctx context.Context, ownerID string, conventionID *int64) ([]CustomDiscount, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+customDiscountColumns+` FROM custom_discounts WHERE owner_id = $1 AND ($2::bigint IS NULL OR convention_id = $2) ORDER BY id`,
		ownerID, conventionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []CustomDiscount
	for rows.Next() {
		item, err := scanCustomDiscount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func (r *repository) CreateCustomDiscount(ctx context.Context, item CustomDiscount) (CustomDiscount, error) {
	return scanCustomDiscount(r.pool.QueryRow(ctx,
		`INSERT INTO custom_discounts (owner_id, convention_id, name, amount) VALUES ($1, $2, $3, $4) RETURNING `+customDiscountColumns,
		item.OwnerID, item.ConventionID, item.Name, item.Amount))
}

func (r *repository) UpdateCustomDiscount(ctx context.Context, ownerID string, id int64, name *string, amount any) (CustomDiscount, error) {
	var set db.UpdateSet
	if name != nil {
		set.Set("name", *name)
	}
	if amount != nil {
		set.Set("amount", amount)
	}
	query, args := set.Build("custom_discounts", id, ownerID, customDiscountColumns)
	return scanCustomDiscount(r.pool.QueryRow(ctx, query, args...))
}

func (r *repository) DeleteCustomDiscounts(ctx context.Context, ownerID string, conventionID int64, ids []int64) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM custom_discounts WHERE owner_id = $1 AND convention_id = $2 AND id = ANY($3)`, ownerID, conventionID, ids)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ListEntries returns daily entries in [from, to], optionally for one
// convention, ordered by day then insertion.
func (r *repository) ListEntries(ctx context.Context, ownerID string, conventionID *int64, from, to time.Time) ([]Entry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT convention_id, item_kind, item_id, day, cash, card FROM daily_entries
		 WHERE owner_id = $1 AND ($2::bigint IS NULL OR convention_id = $2) AND day BETWEEN $3 AND $4
		 ORDER BY day, id`,
		ownerID, conventionID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		var e Entry
		var kind string
		if err := rows.Scan(&e.ConventionID, &kind, &e.Item.ID, &e.Day, &e.Cash, &e.Card); err != nil {
			return nil, err
		}
		e.Item.Kind = ItemKind(kind)
		e.Day = time.Date(e.Day.Year(), e.Day.Month(), e.Day.Day(), 0, 0, 0, 0, time.UTC)
		out = append(out, e)
	}
	return out, rows.Err()
}

// UpsertEntries writes a day's counts in one transaction. Every line item must
// belong to the owner (and, for custom items, to the convention).
func (r *repository) UpsertEntries(ctx context.Context, ownerID string, conventionID int64, day time.Time, counts []DailyCount) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		for _, c := range counts {
			meta, ok := itemTables[c.Kind]
			if !ok {
				return fmt.Errorf("%w: unknown item kind %q", ErrInvalid, c.Kind)
			}
			if c.Cash == 0 && c.Card == 0 {
				if _, err := tx.Exec(ctx,
					`DELETE FROM daily_entries WHERE owner_id = $1 AND convention_id = $2 AND day = $3 AND item_kind = $4 AND item_id = $5`,
					ownerID, conventionID, day, string(c.Kind), c.ID); err != nil {
					return err
				}
				continue
			}
			scope := ``
			if meta.byConvention {
				scope = ` AND convention_id = $2`
			}
			query := `INSERT INTO daily_entries (owner_id, convention_id, day, item_kind, item_id, ` + meta.column + `, cash, card)
				SELECT $1, $2, $3, $4, $5, $5, $6, $7
				WHERE EXISTS (SELECT 1 FROM ` + meta.table + ` WHERE id = $5 AND owner_id = $1` + scope + `)
				ON CONFLICT (convention_id, day, item_kind, item_id)
				DO UPDATE SET cash = EXCLUDED.cash, card = EXCLUDED.card, updated_at = now()`
			tag, err := tx.Exec(ctx, query, ownerID, conventionID, day, string(c.Kind), c.ID, c.Cash, c.Card)
			if err != nil {
				return err
			}
			if tag.RowsAffected() == 0 {
				return fmt.Errorf("line item %s:%d: %w", c.Kind, c.ID, ErrNotFound)
			}
		}
		return nil
	})
}
