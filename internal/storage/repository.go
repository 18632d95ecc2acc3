package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"finman/internal/core"
	"finman/internal/metrics"

	_ "modernc.org/sqlite"
)

const (
	opInitialize = "initialize"
	opFetchAll   = "fetch_all"
	opAdd        = "add"
	opSoftDelete = "soft_delete"
)

// busyTimeout lets a writer wait for another local request instead of failing.
const busyTimeout = 5 * time.Second

// SQLiteRepository is the durable expense store. It holds only configuration:
// each operation opens the database, runs one statement and closes it again.
type SQLiteRepository struct {
	dbPath string
}

func NewSQLiteRepository(dbPath string) *SQLiteRepository {
	return &SQLiteRepository{dbPath: dbPath}
}

// Path returns the database file the repository operates on.
func (r *SQLiteRepository) Path() string {
	return r.dbPath
}

// Initialize ensures the expenses table exists. It is safe to call on every
// startup; callers must not proceed when it fails.
func (r *SQLiteRepository) Initialize(ctx context.Context) (err error) {
	defer r.observe(ctx, opInitialize, time.Now(), &err)

	if err := os.MkdirAll(filepath.Dir(r.dbPath), 0755); err != nil {
		return newError(opInitialize, KindUnavailable, fmt.Errorf("create db directory: %w", err))
	}

	db, err := r.open(ctx)
	if err != nil {
		return newError(opInitialize, KindUnavailable, err)
	}

	version, err := migrateUp(db)
	if err != nil {
		return newError(opInitialize, KindSchema, err)
	}

	slog.InfoContext(ctx, "Expense store initialized",
		"component", "storage",
		"path", r.dbPath,
		"schema_version", version)
	return nil
}

// FetchAll returns every active record, most recent date first. Records that
// share a date keep insertion order.
func (r *SQLiteRepository) FetchAll(ctx context.Context) (_ []core.Expense, err error) {
	defer r.observe(ctx, opFetchAll, time.Now(), &err)

	db, err := r.open(ctx)
	if err != nil {
		return nil, newError(opFetchAll, KindUnavailable, err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, `
		SELECT id, date, category, amount, description, split_count
		FROM expenses
		WHERE deleted = 0
		ORDER BY date DESC, id ASC`)
	if err != nil {
		return nil, newError(opFetchAll, KindQuery, fmt.Errorf("query expenses: %w", err))
	}
	defer rows.Close()

	expenses := []core.Expense{}
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, newError(opFetchAll, KindCorrupt, err)
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, newError(opFetchAll, KindQuery, fmt.Errorf("iterate expenses: %w", err))
	}

	return expenses, nil
}

// Add inserts a new active record and returns its id. Values are stored as
// given; validation belongs to the caller.
func (r *SQLiteRepository) Add(ctx context.Context, e core.NewExpense) (_ int64, err error) {
	defer r.observe(ctx, opAdd, time.Now(), &err)

	db, err := r.open(ctx)
	if err != nil {
		return 0, newError(opAdd, KindUnavailable, err)
	}
	defer db.Close()

	res, err := db.ExecContext(ctx, `
		INSERT INTO expenses (date, category, amount, description, split_count, deleted)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.Date.String(),
		string(e.Category),
		e.Amount.InexactFloat64(),
		e.Description,
		e.SplitCount,
		stateColumn(core.Active),
	)
	if err != nil {
		return 0, newError(opAdd, KindQuery, fmt.Errorf("insert expense: %w", err))
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, newError(opAdd, KindQuery, fmt.Errorf("read inserted id: %w", err))
	}

	slog.InfoContext(ctx, "Expense saved to SQLite",
		"component", "storage",
		"id", id,
		"date", e.Date.String(),
		"category", e.Category,
		"amount", e.Amount.String(),
		"split_count", e.SplitCount)

	return id, nil
}

// SoftDelete marks the record as deleted. Unknown and already deleted ids
// succeed without effect.
func (r *SQLiteRepository) SoftDelete(ctx context.Context, id int64) (err error) {
	defer r.observe(ctx, opSoftDelete, time.Now(), &err)

	db, err := r.open(ctx)
	if err != nil {
		return newError(opSoftDelete, KindUnavailable, err)
	}
	defer db.Close()

	res, err := db.ExecContext(ctx,
		`UPDATE expenses SET deleted = ? WHERE id = ? AND deleted = ?`,
		stateColumn(core.Deleted), id, stateColumn(core.Active),
	)
	if err != nil {
		return newError(opSoftDelete, KindQuery, fmt.Errorf("soft delete expense: %w", err))
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		slog.DebugContext(ctx, "Soft delete matched no active expense", "component", "storage", "id", id)
		return nil
	}

	slog.InfoContext(ctx, "Expense soft deleted", "component", "storage", "id", id)
	return nil
}

// open returns a single-connection handle to the database file. The caller
// closes it when its statement is done.
func (r *SQLiteRepository) open(ctx context.Context) (*sql.DB, error) {
	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(%d)", r.dbPath, busyTimeout.Milliseconds())
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

func (r *SQLiteRepository) observe(ctx context.Context, op string, start time.Time, errp *error) {
	err := *errp
	metrics.ObserveStore(op, start, err)
	if err != nil {
		slog.ErrorContext(ctx, "Storage operation failed",
			"component", "storage",
			"operation", op,
			"kind", KindOf(err).String(),
			"path", r.dbPath,
			"error", err)
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(row rowScanner) (core.Expense, error) {
	var (
		e           core.Expense
		date        sql.NullString
		category    sql.NullString
		amount      sql.NullFloat64
		description sql.NullString
		split       sql.NullInt64
	)
	if err := row.Scan(&e.ID, &date, &category, &amount, &description, &split); err != nil {
		return core.Expense{}, fmt.Errorf("scan expense: %w", err)
	}

	d, err := core.ParseDate(date.String)
	if err != nil {
		return core.Expense{}, fmt.Errorf("expense %d: %w", e.ID, err)
	}

	e.Date = d
	e.Category = core.Category(category.String)
	e.Amount = decimal.NewFromFloat(amount.Float64)
	e.Description = description.String
	e.SplitCount = 1
	if split.Valid && split.Int64 > 0 {
		e.SplitCount = int(split.Int64)
	}
	e.State = core.Active
	return e, nil
}

func stateColumn(s core.State) int {
	if s == core.Deleted {
		return 1
	}
	return 0
}
