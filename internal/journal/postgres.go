package journal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/PurificacionDomenech/Tranding-Control-Automatizado/internal/contracts"
)

// PostgreSQL error codes
const (
	pgErrUniqueViolation     = "23505"
	pgErrForeignKeyViolation = "23503"
)

// PostgresStore handles journal persistence in PostgreSQL
// ⭐ SSOT: journal tables are read and written only here
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new repository over an existing pool
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Close is a no-op; the pool belongs to pkg/database
func (r *PostgresStore) Close() error { return nil }

func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgErrUniqueViolation
}

func isForeignKeyError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgErrForeignKeyViolation
}

// =============================================================================
// Accounts
// =============================================================================

// CreateAccount inserts the account and its settings in one transaction
func (r *PostgresStore) CreateAccount(ctx context.Context, account *contracts.Account, settings contracts.Settings) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO accounts (id, name, created_at) VALUES ($1, $2, $3)`,
		account.ID, account.Name, account.CreatedAt,
	)
	if isDuplicateKeyError(err) {
		return fmt.Errorf("account %s: %w", account.ID, contracts.ErrDuplicateKey)
	}
	if err != nil {
		return fmt.Errorf("failed to insert account: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO account_settings (account_id, initial_balance, trailing_drawdown_amount, consistency_percentage)
		VALUES ($1, $2, $3, $4)
	`, account.ID, settings.InitialBalance, settings.TrailingDrawdownAmount, settings.ConsistencyPercentage)
	if err != nil {
		return fmt.Errorf("failed to insert account settings: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit account: %w", err)
	}
	return nil
}

// GetAccount retrieves an account by ID
func (r *PostgresStore) GetAccount(ctx context.Context, id string) (*contracts.Account, error) {
	var a contracts.Account
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, created_at FROM accounts WHERE id = $1`, id,
	).Scan(&a.ID, &a.Name, &a.CreatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("account %s: %w", id, contracts.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &a, nil
}

// ListAccounts returns all accounts in creation order
func (r *PostgresStore) ListAccounts(ctx context.Context) ([]*contracts.Account, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, created_at FROM accounts ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	accounts := make([]*contracts.Account, 0)
	for rows.Next() {
		var a contracts.Account
		if err := rows.Scan(&a.ID, &a.Name, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating accounts: %w", err)
	}
	return accounts, nil
}

// DeleteAccount removes the account; dependent rows cascade
func (r *PostgresStore) DeleteAccount(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("account %s: %w", id, contracts.ErrNotFound)
	}
	return nil
}

// =============================================================================
// Operations
// =============================================================================

const operationColumns = `id, account_id, op_date, amount, kind, instrument, strategy, contracts,
	entry_type, exit_type, entry_time, exit_time, mood, notes, created_at, updated_at`

func scanOperation(row pgx.Row) (*contracts.Operation, error) {
	var op contracts.Operation
	var kind string
	err := row.Scan(
		&op.ID, &op.AccountID, &op.Date, &op.Amount, &kind, &op.Instrument, &op.Strategy, &op.Contracts,
		&op.EntryType, &op.ExitType, &op.EntryTime, &op.ExitTime, &op.Mood, &op.Notes, &op.CreatedAt, &op.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	op.Kind = contracts.Kind(kind)
	op.Date = contracts.Day(op.Date)
	return &op, nil
}

// ListOperations returns operations ordered by date then insertion sequence
func (r *PostgresStore) ListOperations(ctx context.Context, accountID string) ([]*contracts.Operation, error) {
	if _, err := r.GetAccount(ctx, accountID); err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+operationColumns+` FROM operations WHERE account_id = $1 ORDER BY op_date, seq`,
		accountID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query operations: %w", err)
	}
	defer rows.Close()

	ops := make([]*contracts.Operation, 0)
	for rows.Next() {
		op, err := scanOperation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan operation: %w", err)
		}
		ops = append(ops, op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating operations: %w", err)
	}
	return ops, nil
}

// GetOperation retrieves one operation of an account
func (r *PostgresStore) GetOperation(ctx context.Context, accountID, id string) (*contracts.Operation, error) {
	op, err := scanOperation(r.pool.QueryRow(ctx,
		`SELECT `+operationColumns+` FROM operations WHERE account_id = $1 AND id = $2`,
		accountID, id,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("operation %s: %w", id, contracts.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get operation: %w", err)
	}
	return op, nil
}

func operationArgs(op *contracts.Operation) []interface{} {
	return []interface{}{
		op.ID, op.AccountID, contracts.Day(op.Date), op.Amount, string(op.Kind), op.Instrument, op.Strategy, op.Contracts,
		op.EntryType, op.ExitType, op.EntryTime, op.ExitTime, op.Mood, op.Notes, op.CreatedAt, op.UpdatedAt,
	}
}

const insertOperation = `
	INSERT INTO operations (` + operationColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

// InsertOperation inserts a new operation
func (r *PostgresStore) InsertOperation(ctx context.Context, op *contracts.Operation) error {
	_, err := r.pool.Exec(ctx, insertOperation, operationArgs(op)...)
	if isDuplicateKeyError(err) {
		return fmt.Errorf("operation %s: %w", op.ID, contracts.ErrDuplicateKey)
	}
	if isForeignKeyError(err) {
		return fmt.Errorf("account %s: %w", op.AccountID, contracts.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to insert operation: %w", err)
	}
	return nil
}

// UpsertOperations inserts or replaces operations by ID in one transaction.
// An ID that belongs to another account is left untouched.
func (r *PostgresStore) UpsertOperations(ctx context.Context, ops []*contracts.Operation) (int, error) {
	if len(ops) == 0 {
		return 0, nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := insertOperation + `
		ON CONFLICT (id) DO UPDATE SET
			op_date = EXCLUDED.op_date,
			amount = EXCLUDED.amount,
			kind = EXCLUDED.kind,
			instrument = EXCLUDED.instrument,
			strategy = EXCLUDED.strategy,
			contracts = EXCLUDED.contracts,
			entry_type = EXCLUDED.entry_type,
			exit_type = EXCLUDED.exit_type,
			entry_time = EXCLUDED.entry_time,
			exit_time = EXCLUDED.exit_time,
			mood = EXCLUDED.mood,
			notes = EXCLUDED.notes,
			updated_at = EXCLUDED.updated_at
		WHERE operations.account_id = EXCLUDED.account_id`

	batch := &pgx.Batch{}
	for _, op := range ops {
		batch.Queue(query, operationArgs(op)...)
	}

	results := tx.SendBatch(ctx, batch)
	written := 0
	for range ops {
		tag, err := results.Exec()
		if err != nil {
			results.Close()
			if isForeignKeyError(err) {
				return 0, fmt.Errorf("upsert operations: %w", contracts.ErrNotFound)
			}
			return 0, fmt.Errorf("failed to upsert operation: %w", err)
		}
		written += int(tag.RowsAffected())
	}
	if err := results.Close(); err != nil {
		return 0, fmt.Errorf("failed to close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit operations: %w", err)
	}
	return written, nil
}

// UpdateOperation replaces the mutable fields of an operation
func (r *PostgresStore) UpdateOperation(ctx context.Context, op *contracts.Operation) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE operations SET
			op_date = $3, amount = $4, kind = $5, instrument = $6, strategy = $7, contracts = $8,
			entry_type = $9, exit_type = $10, entry_time = $11, exit_time = $12, mood = $13, notes = $14,
			updated_at = $15
		WHERE account_id = $1 AND id = $2
	`,
		op.AccountID, op.ID, contracts.Day(op.Date), op.Amount, string(op.Kind), op.Instrument, op.Strategy, op.Contracts,
		op.EntryType, op.ExitType, op.EntryTime, op.ExitTime, op.Mood, op.Notes, op.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update operation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("operation %s: %w", op.ID, contracts.ErrNotFound)
	}
	return nil
}

// DeleteOperation removes one operation
func (r *PostgresStore) DeleteOperation(ctx context.Context, accountID, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM operations WHERE account_id = $1 AND id = $2`, accountID, id)
	if err != nil {
		return fmt.Errorf("failed to delete operation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("operation %s: %w", id, contracts.ErrNotFound)
	}
	return nil
}

// DeleteOperations removes every operation of an account
func (r *PostgresStore) DeleteOperations(ctx context.Context, accountID string) (int, error) {
	if _, err := r.GetAccount(ctx, accountID); err != nil {
		return 0, err
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM operations WHERE account_id = $1`, accountID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete operations: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// =============================================================================
// Settings & Goals
// =============================================================================

// GetSettings retrieves the account settings
func (r *PostgresStore) GetSettings(ctx context.Context, accountID string) (*contracts.Settings, error) {
	var s contracts.Settings
	err := r.pool.QueryRow(ctx, `
		SELECT initial_balance, trailing_drawdown_amount, consistency_percentage
		FROM account_settings WHERE account_id = $1
	`, accountID).Scan(&s.InitialBalance, &s.TrailingDrawdownAmount, &s.ConsistencyPercentage)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("settings %s: %w", accountID, contracts.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}
	return &s, nil
}

// SaveSettings updates the account settings
func (r *PostgresStore) SaveSettings(ctx context.Context, accountID string, s contracts.Settings) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE account_settings
		SET initial_balance = $2, trailing_drawdown_amount = $3, consistency_percentage = $4, updated_at = $5
		WHERE account_id = $1
	`, accountID, s.InitialBalance, s.TrailingDrawdownAmount, s.ConsistencyPercentage, time.Now())
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("account %s: %w", accountID, contracts.ErrNotFound)
	}
	return nil
}

// GetGoals retrieves the account goals
func (r *PostgresStore) GetGoals(ctx context.Context, accountID string) (*contracts.Goals, error) {
	var g contracts.Goals
	err := r.pool.QueryRow(ctx,
		`SELECT weekly_goal, monthly_goal FROM account_settings WHERE account_id = $1`, accountID,
	).Scan(&g.Weekly, &g.Monthly)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("goals %s: %w", accountID, contracts.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get goals: %w", err)
	}
	return &g, nil
}

// SaveGoals updates the account goals
func (r *PostgresStore) SaveGoals(ctx context.Context, accountID string, g contracts.Goals) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE account_settings SET weekly_goal = $2, monthly_goal = $3, updated_at = $4
		WHERE account_id = $1
	`, accountID, g.Weekly, g.Monthly, time.Now())
	if err != nil {
		return fmt.Errorf("failed to save goals: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("account %s: %w", accountID, contracts.ErrNotFound)
	}
	return nil
}

// =============================================================================
// High-Water-Mark
// =============================================================================

// GetHWM returns the stored mark or nil when none exists
func (r *PostgresStore) GetHWM(ctx context.Context, accountID string) (*float64, error) {
	var v float64
	err := r.pool.QueryRow(ctx, `SELECT value FROM high_water_marks WHERE account_id = $1`, accountID).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get high-water-mark: %w", err)
	}
	return &v, nil
}

// AdvanceHWM stores value only if it is greater than the stored mark.
// GREATEST keeps the ratchet monotonic across processes.
func (r *PostgresStore) AdvanceHWM(ctx context.Context, accountID string, value float64) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO high_water_marks (account_id, value, updated_at) VALUES ($1, $2, $3)
		ON CONFLICT (account_id) DO UPDATE SET
			value = GREATEST(high_water_marks.value, EXCLUDED.value),
			updated_at = EXCLUDED.updated_at
	`, accountID, value, time.Now())
	if isForeignKeyError(err) {
		return fmt.Errorf("account %s: %w", accountID, contracts.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to advance high-water-mark: %w", err)
	}
	return nil
}

// ResetHWM overwrites the stored mark
func (r *PostgresStore) ResetHWM(ctx context.Context, accountID string, value float64) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO high_water_marks (account_id, value, updated_at) VALUES ($1, $2, $3)
		ON CONFLICT (account_id) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`, accountID, value, time.Now())
	if isForeignKeyError(err) {
		return fmt.Errorf("account %s: %w", accountID, contracts.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to reset high-water-mark: %w", err)
	}
	return nil
}
