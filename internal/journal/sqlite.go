package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/PurificacionDomenech/Tranding-Control-Automatizado/internal/contracts"
)

// SQLiteSchema is applied on open; every statement is idempotent
const SQLiteSchema = `
CREATE TABLE IF NOT EXISTS accounts (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS account_settings (
	account_id               TEXT PRIMARY KEY REFERENCES accounts(id) ON DELETE CASCADE,
	initial_balance          REAL NOT NULL,
	trailing_drawdown_amount REAL NOT NULL,
	consistency_percentage   REAL NOT NULL,
	weekly_goal              REAL NOT NULL DEFAULT 0,
	monthly_goal             REAL NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS high_water_marks (
	account_id TEXT PRIMARY KEY REFERENCES accounts(id) ON DELETE CASCADE,
	value      REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS operations (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	id         TEXT NOT NULL UNIQUE,
	account_id TEXT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
	op_date    TEXT NOT NULL,
	amount     REAL NOT NULL,
	kind       TEXT NOT NULL DEFAULT '',
	instrument TEXT NOT NULL DEFAULT '',
	strategy   TEXT NOT NULL DEFAULT '',
	contracts  INTEGER,
	entry_type TEXT NOT NULL DEFAULT '',
	exit_type  TEXT NOT NULL DEFAULT '',
	entry_time TEXT NOT NULL DEFAULT '',
	exit_time  TEXT NOT NULL DEFAULT '',
	mood       TEXT NOT NULL DEFAULT '',
	notes      TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_operations_account_date ON operations(account_id, op_date, seq);
`

// SQLiteStore is a single-file journal store for local use
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path and applies the schema
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?_foreign_keys=on&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// one writer keeps transactions serialized
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(SQLiteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply sqlite schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func isSQLiteConstraint(err error, code sqlite3.ErrNoExtended) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == code
}

// fixed width keeps timestamps sortable as text
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeLayout)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(sqliteTimeLayout, s)
	return t
}

// =============================================================================
// Accounts
// =============================================================================

// CreateAccount inserts the account and its settings in one transaction
func (s *SQLiteStore) CreateAccount(ctx context.Context, account *contracts.Account, settings contracts.Settings) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO accounts (id, name, created_at) VALUES (?, ?, ?)`,
		account.ID, account.Name, formatTime(account.CreatedAt),
	)
	if isSQLiteConstraint(err, sqlite3.ErrConstraintPrimaryKey) || isSQLiteConstraint(err, sqlite3.ErrConstraintUnique) {
		return fmt.Errorf("account %s: %w", account.ID, contracts.ErrDuplicateKey)
	}
	if err != nil {
		return fmt.Errorf("failed to insert account: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO account_settings (account_id, initial_balance, trailing_drawdown_amount, consistency_percentage)
		VALUES (?, ?, ?, ?)`,
		account.ID, settings.InitialBalance, settings.TrailingDrawdownAmount, settings.ConsistencyPercentage,
	)
	if err != nil {
		return fmt.Errorf("failed to insert account settings: %w", err)
	}

	return tx.Commit()
}

// GetAccount retrieves an account by ID
func (s *SQLiteStore) GetAccount(ctx context.Context, id string) (*contracts.Account, error) {
	var a contracts.Account
	var created string
	err := s.db.QueryRowContext(ctx, `SELECT id, name, created_at FROM accounts WHERE id = ?`, id).
		Scan(&a.ID, &a.Name, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("account %s: %w", id, contracts.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	a.CreatedAt = parseTime(created)
	return &a, nil
}

// ListAccounts returns all accounts in creation order
func (s *SQLiteStore) ListAccounts(ctx context.Context) ([]*contracts.Account, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, created_at FROM accounts ORDER BY created_at, rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	accounts := make([]*contracts.Account, 0)
	for rows.Next() {
		var a contracts.Account
		var created string
		if err := rows.Scan(&a.ID, &a.Name, &created); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		a.CreatedAt = parseTime(created)
		accounts = append(accounts, &a)
	}
	return accounts, rows.Err()
}

// DeleteAccount removes the account; dependent rows cascade
func (s *SQLiteStore) DeleteAccount(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("account %s: %w", id, contracts.ErrNotFound)
	}
	return nil
}

// =============================================================================
// Operations
// =============================================================================

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSQLiteOperation(row rowScanner) (*contracts.Operation, error) {
	var op contracts.Operation
	var date, kind, created, updated string
	var n sql.NullInt64

	err := row.Scan(
		&op.ID, &op.AccountID, &date, &op.Amount, &kind, &op.Instrument, &op.Strategy, &n,
		&op.EntryType, &op.ExitType, &op.EntryTime, &op.ExitTime, &op.Mood, &op.Notes, &created, &updated,
	)
	if err != nil {
		return nil, err
	}

	d, err := contracts.ParseDay(date)
	if err != nil {
		return nil, err
	}
	op.Date = d
	op.Kind = contracts.Kind(kind)
	if n.Valid {
		v := int(n.Int64)
		op.Contracts = &v
	}
	op.CreatedAt = parseTime(created)
	op.UpdatedAt = parseTime(updated)
	return &op, nil
}

func sqliteOperationArgs(op *contracts.Operation) []interface{} {
	var n sql.NullInt64
	if op.Contracts != nil {
		n = sql.NullInt64{Int64: int64(*op.Contracts), Valid: true}
	}
	return []interface{}{
		op.ID, op.AccountID, op.DateString(), op.Amount, string(op.Kind), op.Instrument, op.Strategy, n,
		op.EntryType, op.ExitType, op.EntryTime, op.ExitTime, op.Mood, op.Notes,
		formatTime(op.CreatedAt), formatTime(op.UpdatedAt),
	}
}

const sqliteInsertOperation = `
	INSERT INTO operations (` + operationColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// ListOperations returns operations ordered by date then insertion sequence
func (s *SQLiteStore) ListOperations(ctx context.Context, accountID string) ([]*contracts.Operation, error) {
	if _, err := s.GetAccount(ctx, accountID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+operationColumns+` FROM operations WHERE account_id = ? ORDER BY op_date, seq`,
		accountID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query operations: %w", err)
	}
	defer rows.Close()

	ops := make([]*contracts.Operation, 0)
	for rows.Next() {
		op, err := scanSQLiteOperation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan operation: %w", err)
		}
		ops = append(ops, op)
	}
	return ops, rows.Err()
}

// GetOperation retrieves one operation of an account
func (s *SQLiteStore) GetOperation(ctx context.Context, accountID, id string) (*contracts.Operation, error) {
	op, err := scanSQLiteOperation(s.db.QueryRowContext(ctx,
		`SELECT `+operationColumns+` FROM operations WHERE account_id = ? AND id = ?`,
		accountID, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("operation %s: %w", id, contracts.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get operation: %w", err)
	}
	return op, nil
}

// InsertOperation inserts a new operation
func (s *SQLiteStore) InsertOperation(ctx context.Context, op *contracts.Operation) error {
	_, err := s.db.ExecContext(ctx, sqliteInsertOperation, sqliteOperationArgs(op)...)
	if isSQLiteConstraint(err, sqlite3.ErrConstraintUnique) {
		return fmt.Errorf("operation %s: %w", op.ID, contracts.ErrDuplicateKey)
	}
	if isSQLiteConstraint(err, sqlite3.ErrConstraintForeignKey) {
		return fmt.Errorf("account %s: %w", op.AccountID, contracts.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to insert operation: %w", err)
	}
	return nil
}

// UpsertOperations inserts or replaces operations by ID in one transaction.
// An ID that belongs to another account is left untouched.
func (s *SQLiteStore) UpsertOperations(ctx context.Context, ops []*contracts.Operation) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, sqliteInsertOperation+`
		ON CONFLICT (id) DO UPDATE SET
			op_date = excluded.op_date,
			amount = excluded.amount,
			kind = excluded.kind,
			instrument = excluded.instrument,
			strategy = excluded.strategy,
			contracts = excluded.contracts,
			entry_type = excluded.entry_type,
			exit_type = excluded.exit_type,
			entry_time = excluded.entry_time,
			exit_time = excluded.exit_time,
			mood = excluded.mood,
			notes = excluded.notes,
			updated_at = excluded.updated_at
		WHERE operations.account_id = excluded.account_id`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	written := 0
	for _, op := range ops {
		res, err := stmt.ExecContext(ctx, sqliteOperationArgs(op)...)
		if isSQLiteConstraint(err, sqlite3.ErrConstraintForeignKey) {
			return 0, fmt.Errorf("account %s: %w", op.AccountID, contracts.ErrNotFound)
		}
		if err != nil {
			return 0, fmt.Errorf("failed to upsert operation: %w", err)
		}
		n, _ := res.RowsAffected()
		written += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit operations: %w", err)
	}
	return written, nil
}

// UpdateOperation replaces the mutable fields of an operation
func (s *SQLiteStore) UpdateOperation(ctx context.Context, op *contracts.Operation) error {
	args := sqliteOperationArgs(op)
	res, err := s.db.ExecContext(ctx, `
		UPDATE operations SET
			op_date = ?, amount = ?, kind = ?, instrument = ?, strategy = ?, contracts = ?,
			entry_type = ?, exit_type = ?, entry_time = ?, exit_time = ?, mood = ?, notes = ?,
			updated_at = ?
		WHERE account_id = ? AND id = ?`,
		args[2], args[3], args[4], args[5], args[6], args[7],
		args[8], args[9], args[10], args[11], args[12], args[13],
		args[15], op.AccountID, op.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update operation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("operation %s: %w", op.ID, contracts.ErrNotFound)
	}
	return nil
}

// DeleteOperation removes one operation
func (s *SQLiteStore) DeleteOperation(ctx context.Context, accountID, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM operations WHERE account_id = ? AND id = ?`, accountID, id)
	if err != nil {
		return fmt.Errorf("failed to delete operation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("operation %s: %w", id, contracts.ErrNotFound)
	}
	return nil
}

// DeleteOperations removes every operation of an account
func (s *SQLiteStore) DeleteOperations(ctx context.Context, accountID string) (int, error) {
	if _, err := s.GetAccount(ctx, accountID); err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM operations WHERE account_id = ?`, accountID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete operations: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// =============================================================================
// Settings & Goals
// =============================================================================

// GetSettings retrieves the account settings
func (s *SQLiteStore) GetSettings(ctx context.Context, accountID string) (*contracts.Settings, error) {
	var v contracts.Settings
	err := s.db.QueryRowContext(ctx, `
		SELECT initial_balance, trailing_drawdown_amount, consistency_percentage
		FROM account_settings WHERE account_id = ?`, accountID,
	).Scan(&v.InitialBalance, &v.TrailingDrawdownAmount, &v.ConsistencyPercentage)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("settings %s: %w", accountID, contracts.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}
	return &v, nil
}

// SaveSettings updates the account settings
func (s *SQLiteStore) SaveSettings(ctx context.Context, accountID string, v contracts.Settings) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE account_settings
		SET initial_balance = ?, trailing_drawdown_amount = ?, consistency_percentage = ?
		WHERE account_id = ?`,
		v.InitialBalance, v.TrailingDrawdownAmount, v.ConsistencyPercentage, accountID,
	)
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("account %s: %w", accountID, contracts.ErrNotFound)
	}
	return nil
}

// GetGoals retrieves the account goals
func (s *SQLiteStore) GetGoals(ctx context.Context, accountID string) (*contracts.Goals, error) {
	var g contracts.Goals
	err := s.db.QueryRowContext(ctx,
		`SELECT weekly_goal, monthly_goal FROM account_settings WHERE account_id = ?`, accountID,
	).Scan(&g.Weekly, &g.Monthly)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("goals %s: %w", accountID, contracts.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get goals: %w", err)
	}
	return &g, nil
}

// SaveGoals updates the account goals
func (s *SQLiteStore) SaveGoals(ctx context.Context, accountID string, g contracts.Goals) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE account_settings SET weekly_goal = ?, monthly_goal = ? WHERE account_id = ?`,
		g.Weekly, g.Monthly, accountID,
	)
	if err != nil {
		return fmt.Errorf("failed to save goals: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("account %s: %w", accountID, contracts.ErrNotFound)
	}
	return nil
}

// =============================================================================
// High-Water-Mark
// =============================================================================

// GetHWM returns the stored mark or nil when none exists
func (s *SQLiteStore) GetHWM(ctx context.Context, accountID string) (*float64, error) {
	var v float64
	err := s.db.QueryRowContext(ctx, `SELECT value FROM high_water_marks WHERE account_id = ?`, accountID).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get high-water-mark: %w", err)
	}
	return &v, nil
}

// AdvanceHWM stores value only if it is greater than the stored mark
func (s *SQLiteStore) AdvanceHWM(ctx context.Context, accountID string, value float64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO high_water_marks (account_id, value) VALUES (?, ?)
		ON CONFLICT (account_id) DO UPDATE SET value = MAX(high_water_marks.value, excluded.value)`,
		accountID, value,
	)
	if isSQLiteConstraint(err, sqlite3.ErrConstraintForeignKey) {
		return fmt.Errorf("account %s: %w", accountID, contracts.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to advance high-water-mark: %w", err)
	}
	return nil
}

// ResetHWM overwrites the stored mark
func (s *SQLiteStore) ResetHWM(ctx context.Context, accountID string, value float64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO high_water_marks (account_id, value) VALUES (?, ?)
		ON CONFLICT (account_id) DO UPDATE SET value = excluded.value`,
		accountID, value,
	)
	if isSQLiteConstraint(err, sqlite3.ErrConstraintForeignKey) {
		return fmt.Errorf("account %s: %w", accountID, contracts.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to reset high-water-mark: %w", err)
	}
	return nil
}
