package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aegis/internal/treasury/models"
	id "aegis/pkg/domain"
	dErrors "aegis/pkg/domain-errors"
	"aegis/pkg/platform/sentinel"
)

var vaultColumns = []string{"factory", "balance", "total_payouts", "payout_count", "funders"}

func TestPostgresStoreLoad(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT factory, balance, total_payouts, payout_count, funders\s+FROM treasury_vault`).
		WillReturnRows(sqlmock.NewRows(vaultColumns).AddRow("factory", 42, 10, 1, "{funder-1,funder-2}"))

	v, err := NewPostgres(db).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(42), v.Balance)
	assert.Equal(t, id.Identity("factory"), v.Factory())
	assert.Equal(t, []id.Identity{"funder-1", "funder-2"}, v.Funders())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreLoadMissingVault(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`FROM treasury_vault`).WillReturnRows(sqlmock.NewRows(vaultColumns))

	_, err = NewPostgres(db).Load(context.Background())
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestPostgresStoreBootstrap(t *testing.T) {
	t.Run("fresh vault grants configured funders", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(`INSERT INTO treasury_vault .* RETURNING factory`).
			WithArgs("factory").
			WillReturnRows(sqlmock.NewRows([]string{"factory"}).AddRow("factory"))
		mock.ExpectBegin()
		mock.ExpectQuery(`FROM treasury_vault\s+WHERE id = 1 FOR UPDATE`).
			WillReturnRows(sqlmock.NewRows(vaultColumns).AddRow("factory", 0, 0, 0, "{}"))
		mock.ExpectExec(`UPDATE treasury_vault`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		require.NoError(t, NewPostgres(db).Bootstrap(context.Background(), "factory", "funder-1"))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("vault owned by another factory fails startup", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(`INSERT INTO treasury_vault .* RETURNING factory`).
			WithArgs("new-factory").
			WillReturnRows(sqlmock.NewRows([]string{"factory"}).AddRow("old-factory"))

		err = NewPostgres(db).Bootstrap(context.Background(), "new-factory", "funder-1")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
		assert.Contains(t, dErrors.MessageOf(err), `"old-factory"`)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresStoreExecuteRelease(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectQuery(`FROM treasury_vault\s+WHERE id = 1 FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows(vaultColumns).AddRow("factory", 3_000_000, 0, 0, "{}"))
	mock.ExpectExec(`UPDATE treasury_vault`).
		WithArgs(int64(1_000_000), int64(2_000_000), 1, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO treasury_payouts`).
		WithArgs("instance-a", "Quake", "Critical", int64(2_000_000), now).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	v, err := NewPostgres(db).Execute(context.Background(),
		func(v *models.Vault) error { return v.CanRelease("factory", 2_000_000) },
		func(v *models.Vault) {
			v.ApplyRelease("instance-a", id.EventRecord{EventType: "Quake", Severity: "Critical"}, 2_000_000, now)
		},
	)
	require.NoError(t, err)
	assert.Equal(t, int64(1_000_000), v.Balance)
	assert.Empty(t, v.Released())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreExecuteRollsBackOnValidation(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows(vaultColumns).AddRow("factory", 450_000, 0, 0, "{}"))
	mock.ExpectRollback()

	_, err = NewPostgres(db).Execute(context.Background(),
		func(v *models.Vault) error { return v.CanRelease("factory", 2_000_000) },
		func(v *models.Vault) { t.Fatal("mutate must not run") },
	)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInsufficientLiquidity))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreExecuteUpdateFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows(vaultColumns).AddRow("factory", 0, 0, 0, "{funder}"))
	mock.ExpectExec(`UPDATE treasury_vault`).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err = NewPostgres(db).Execute(context.Background(), nil, func(v *models.Vault) { v.ApplyFund(5) })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "update vault")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreListPayouts(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now().UTC()
	mock.ExpectQuery(`FROM treasury_payouts`).
		WillReturnRows(sqlmock.NewRows([]string{"target", "event_type", "severity", "amount", "released_at"}).
			AddRow("a", "Flood", "High", 500_000, now).
			AddRow("b", "Fire", "Medium", 50_000, now))

	payouts, err := NewPostgres(db).ListPayouts(context.Background())
	require.NoError(t, err)
	require.Len(t, payouts, 2)
	assert.Equal(t, id.Identity("b"), payouts[1].Target)
	assert.Equal(t, int64(50_000), payouts[1].Amount)
}
