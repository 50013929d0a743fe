package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/skynestoffc/orderku/internal/models"
)

// ErrConflict is returned when an insert loses a uniqueness race: either
// the (username, unique_suffix) pair is already taken by another open
// transaction, or a paid record already exists for the same id.
var ErrConflict = errors.New("transaction conflict")

const mysqlErrDuplicateEntry = 1062

type PendingTransactionRepository interface {
	Create(ctx context.Context, tx *models.PendingTransaction) error
	FindByID(ctx context.Context, id string) (*models.PendingTransaction, error)
	UsedSuffixes(ctx context.Context, username string) (map[int]bool, error)
	Delete(ctx context.Context, id string) error
	PurgeExpired(ctx context.Context, now int64) error
}

type PaidTransactionRepository interface {
	Create(ctx context.Context, tx *models.PaidTransaction) error
	FindByID(ctx context.Context, id string) (*models.PaidTransaction, error)
	PurgeExpired(ctx context.Context, now int64) error
}

type pendingTransactionRepository struct {
	db *sql.DB
}

func NewPendingTransactionRepository(db *sql.DB) PendingTransactionRepository {
	return &pendingTransactionRepository{db: db}
}

func (r *pendingTransactionRepository) Create(ctx context.Context, tx *models.PendingTransaction) error {
	query := `
		INSERT INTO pending_transactions (id, username, base_amount, unique_suffix, final_amount, qris_string, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		tx.ID, tx.Username, tx.BaseAmount, tx.UniqueSuffix,
		tx.FinalAmount, tx.QRISString, tx.CreatedAt, tx.ExpiresAt)
	if isDuplicateEntry(err) {
		return fmt.Errorf("%w: suffix %d already in use for %s", ErrConflict, tx.UniqueSuffix, tx.Username)
	}
	if err != nil {
		return fmt.Errorf("failed to create pending transaction: %w", err)
	}

	return nil
}

func (r *pendingTransactionRepository) FindByID(ctx context.Context, id string) (*models.PendingTransaction, error) {
	query := `
		SELECT id, username, base_amount, unique_suffix, final_amount, qris_string, created_at, expires_at
		FROM pending_transactions
		WHERE id = ?
	`
	tx := &models.PendingTransaction{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&tx.ID, &tx.Username, &tx.BaseAmount, &tx.UniqueSuffix,
		&tx.FinalAmount, &tx.QRISString, &tx.CreatedAt, &tx.ExpiresAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find pending transaction: %w", err)
	}
	return tx, nil
}

func (r *pendingTransactionRepository) UsedSuffixes(ctx context.Context, username string) (map[int]bool, error) {
	query := `
		SELECT unique_suffix
		FROM pending_transactions
		WHERE username = ?
	`
	rows, err := r.db.QueryContext(ctx, query, username)
	if err != nil {
		return nil, fmt.Errorf("failed to load used suffixes: %w", err)
	}
	defer rows.Close()

	used := make(map[int]bool)
	for rows.Next() {
		var suffix int
		if err := rows.Scan(&suffix); err != nil {
			return nil, fmt.Errorf("failed to scan suffix: %w", err)
		}
		used[suffix] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate suffixes: %w", err)
	}
	return used, nil
}

func (r *pendingTransactionRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM pending_transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete pending transaction: %w", err)
	}
	return nil
}

func (r *pendingTransactionRepository) PurgeExpired(ctx context.Context, now int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM pending_transactions WHERE expires_at < ?`, now)
	if err != nil {
		return fmt.Errorf("failed to purge expired pending transactions: %w", err)
	}
	return nil
}

type paidTransactionRepository struct {
	db *sql.DB
}

func NewPaidTransactionRepository(db *sql.DB) PaidTransactionRepository {
	return &paidTransactionRepository{db: db}
}

func (r *paidTransactionRepository) Create(ctx context.Context, tx *models.PaidTransaction) error {
	query := `
		INSERT INTO paid_transactions (id, username, final_amount, paid_at, expires_at)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		tx.ID, tx.Username, tx.FinalAmount, tx.PaidAt, tx.ExpiresAt)
	if isDuplicateEntry(err) {
		return fmt.Errorf("%w: transaction %s already marked paid", ErrConflict, tx.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to create paid transaction: %w", err)
	}

	return nil
}

func (r *paidTransactionRepository) FindByID(ctx context.Context, id string) (*models.PaidTransaction, error) {
	query := `
		SELECT id, username, final_amount, paid_at, expires_at
		FROM paid_transactions
		WHERE id = ?
	`
	tx := &models.PaidTransaction{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&tx.ID, &tx.Username, &tx.FinalAmount, &tx.PaidAt, &tx.ExpiresAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find paid transaction: %w", err)
	}
	return tx, nil
}

func (r *paidTransactionRepository) PurgeExpired(ctx context.Context, now int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM paid_transactions WHERE expires_at < ?`, now)
	if err != nil {
		return fmt.Errorf("failed to purge expired paid transactions: %w", err)
	}
	return nil
}

func isDuplicateEntry(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlErrDuplicateEntry
}
