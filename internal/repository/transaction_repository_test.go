package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skynestoffc/orderku/internal/models"
)

func newPendingRepo(t *testing.T) (PendingTransactionRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPendingTransactionRepository(db), mock
}

func newPaidRepo(t *testing.T) (PaidTransactionRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPaidTransactionRepository(db), mock
}

func TestPendingRepository_Create(t *testing.T) {
	repo, mock := newPendingRepo(t)

	tx := &models.PendingTransaction{
		ID:           "tx-1",
		Username:     "u1",
		BaseAmount:   1000,
		UniqueSuffix: 1,
		FinalAmount:  1001,
		QRISString:   "QRIS",
		CreatedAt:    100,
		ExpiresAt:    700,
	}

	mock.ExpectExec("INSERT INTO pending_transactions").
		WithArgs("tx-1", "u1", int64(1000), 1, int64(1001), "QRIS", int64(100), int64(700)).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.Create(context.Background(), tx))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPendingRepository_Create_SuffixConflict(t *testing.T) {
	repo, mock := newPendingRepo(t)

	mock.ExpectExec("INSERT INTO pending_transactions").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'u1-1' for key 'idx_user_suffix'"})

	err := repo.Create(context.Background(), &models.PendingTransaction{
		ID: "tx-1", Username: "u1", UniqueSuffix: 1,
	})
	assert.ErrorIs(t, err, ErrConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPendingRepository_FindByID_NotFoundIsNil(t *testing.T) {
	repo, mock := newPendingRepo(t)

	mock.ExpectQuery("SELECT id, username, base_amount").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "base_amount", "unique_suffix", "final_amount", "qris_string", "created_at", "expires_at"}))

	tx, err := repo.FindByID(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, tx)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPendingRepository_FindByID(t *testing.T) {
	repo, mock := newPendingRepo(t)

	mock.ExpectQuery("SELECT id, username, base_amount").
		WithArgs("tx-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "base_amount", "unique_suffix", "final_amount", "qris_string", "created_at", "expires_at"}).
			AddRow("tx-1", "u1", 1000, 1, 1001, "QRIS", 100, 700))

	tx, err := repo.FindByID(context.Background(), "tx-1")
	require.NoError(t, err)
	require.NotNil(t, tx)
	assert.Equal(t, int64(1001), tx.FinalAmount)
	assert.Equal(t, 1, tx.UniqueSuffix)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPendingRepository_UsedSuffixes(t *testing.T) {
	repo, mock := newPendingRepo(t)

	mock.ExpectQuery("SELECT unique_suffix").
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"unique_suffix"}).AddRow(1).AddRow(7).AddRow(500))

	used, err := repo.UsedSuffixes(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, map[int]bool{1: true, 7: true, 500: true}, used)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPendingRepository_Delete_AbsentIsNoop(t *testing.T) {
	repo, mock := newPendingRepo(t)

	mock.ExpectExec("DELETE FROM pending_transactions WHERE id").
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Delete(context.Background(), "missing"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPendingRepository_PurgeExpired(t *testing.T) {
	repo, mock := newPendingRepo(t)

	mock.ExpectExec("DELETE FROM pending_transactions WHERE expires_at").
		WithArgs(int64(1000)).
		WillReturnResult(sqlmock.NewResult(0, 3))

	require.NoError(t, repo.PurgeExpired(context.Background(), 1000))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPaidRepository_Create_DuplicateIsConflict(t *testing.T) {
	repo, mock := newPaidRepo(t)

	mock.ExpectExec("INSERT INTO paid_transactions").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'tx-1' for key 'PRIMARY'"})

	err := repo.Create(context.Background(), &models.PaidTransaction{ID: "tx-1"})
	assert.ErrorIs(t, err, ErrConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPaidRepository_FindByID(t *testing.T) {
	repo, mock := newPaidRepo(t)

	mock.ExpectQuery("SELECT id, username, final_amount").
		WithArgs("tx-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "final_amount", "paid_at", "expires_at"}).
			AddRow("tx-1", "u1", 1001, 500, 4100))

	tx, err := repo.FindByID(context.Background(), "tx-1")
	require.NoError(t, err)
	require.NotNil(t, tx)
	assert.Equal(t, int64(1001), tx.FinalAmount)
	assert.Equal(t, int64(500), tx.PaidAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPaidRepository_PurgeExpired(t *testing.T) {
	repo, mock := newPaidRepo(t)

	mock.ExpectExec("DELETE FROM paid_transactions WHERE expires_at").
		WithArgs(int64(1000)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.PurgeExpired(context.Background(), 1000))
	require.NoError(t, mock.ExpectationsWereMet())
}
