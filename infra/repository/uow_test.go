package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/amirasaad/vatm/pkg/domain"
	"github.com/amirasaad/vatm/pkg/domain/account"
	"github.com/amirasaad/vatm/pkg/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockDB(t *testing.T, monitorPings ...bool) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	mockDb, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(len(monitorPings) > 0 && monitorPings[0]))
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDb.Close() })

	dialector := postgres.New(postgres.Config{
		Conn:       mockDb,
		DriverName: "postgres",
	})
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:               logger.Default.LogMode(logger.Silent),
		DisableAutomaticPing: true,
	})
	require.NoError(t, err)
	return db, mock
}

var accountColumns = []string{"id", "numero", "titular", "saldo", "credential_hash", "estado", "created_at", "updated_at"}

func accountRow(id uuid.UUID, number, balance, state string) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows(accountColumns).
		AddRow(id.String(), number, "Mauro", balance, "$2a$10$hash", state, now, now)
}

func TestUoW_DepositFlowLocksUpdatesAndAppends(t *testing.T) {
	db, mock := newMockDB(t)
	uow := NewUoW(db)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "cuentas" WHERE numero = \$1 LIMIT \$2 FOR UPDATE`).
		WithArgs("1234", 1).
		WillReturnRows(accountRow(id, "1234", "5000000.00", "ACTIVE"))
	mock.ExpectExec(`UPDATE "cuentas" SET (.+) WHERE id = \$5`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO "movimientos" (.+) VALUES (.+)`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := uow.Do(context.Background(), func(tx repository.UnitOfWork) error {
		accounts, err := tx.AccountRepository()
		require.NoError(t, err)
		movements, err := tx.MovementRepository()
		require.NoError(t, err)

		acc, err := accounts.GetForUpdate(context.Background(), "1234")
		if err != nil {
			return err
		}
		assert.True(t, acc.Balance.Equal(decimal.RequireFromString("5000000")))
		assert.Equal(t, account.StateActive, acc.State)

		mv, err := acc.Deposit(decimal.RequireFromString("100000"), time.Now().UTC())
		if err != nil {
			return err
		}
		if err := accounts.Update(context.Background(), acc); err != nil {
			return err
		}
		return movements.Append(context.Background(), mv)
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUoW_RollsBackWhenAppendFails(t *testing.T) {
	db, mock := newMockDB(t)
	uow := NewUoW(db)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "cuentas" WHERE numero = \$1 LIMIT \$2 FOR UPDATE`).
		WithArgs("1234", 1).
		WillReturnRows(accountRow(id, "1234", "10.00", "ACTIVE"))
	mock.ExpectExec(`UPDATE "cuentas" SET (.+) WHERE id = \$5`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO "movimientos" (.+) VALUES (.+)`).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := uow.Do(context.Background(), func(tx repository.UnitOfWork) error {
		accounts, _ := tx.AccountRepository()
		movements, _ := tx.MovementRepository()
		acc, err := accounts.GetForUpdate(context.Background(), "1234")
		if err != nil {
			return err
		}
		mv, err := acc.Deposit(decimal.RequireFromString("1"), time.Now().UTC())
		if err != nil {
			return err
		}
		if err := accounts.Update(context.Background(), acc); err != nil {
			return err
		}
		return movements.Append(context.Background(), mv)
	})
	require.ErrorContains(t, err, "disk full")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUoW_RollsBackOnPanic(t *testing.T) {
	db, mock := newMockDB(t)
	uow := NewUoW(db)

	mock.ExpectBegin()
	mock.ExpectRollback()

	assert.Panics(t, func() {
		_ = uow.Do(context.Background(), func(repository.UnitOfWork) error {
			panic("boom")
		})
	})
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUoW_NestedDoJoinsTransaction(t *testing.T) {
	db, mock := newMockDB(t)
	uow := NewUoW(db)

	mock.ExpectBegin()
	mock.ExpectCommit()

	err := uow.Do(context.Background(), func(tx repository.UnitOfWork) error {
		return tx.Do(context.Background(), func(repository.UnitOfWork) error { return nil })
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepository_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAccountRepository(db, false)

	mock.ExpectQuery(`SELECT \* FROM "cuentas" WHERE numero = \$1 LIMIT \$2`).
		WithArgs("9999", 1).
		WillReturnRows(sqlmock.NewRows(accountColumns))

	_, err := repo.Get(context.Background(), "9999")
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepository_WritesRequireTransaction(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAccountRepository(db, false)
	movements := NewMovementRepository(db, false)

	_, err := repo.GetForUpdate(context.Background(), "1234")
	assert.ErrorIs(t, err, repository.ErrNoTransaction)
	assert.ErrorIs(t, repo.Update(context.Background(), &account.Account{}), repository.ErrNoTransaction)
	assert.ErrorIs(t, repo.Create(context.Background(), &account.Account{}), repository.ErrNoTransaction)
	assert.ErrorIs(t, movements.Append(context.Background(), &account.Movement{}), repository.ErrNoTransaction)
	assert.NoError(t, mock.ExpectationsWereMet(), "no SQL must be issued")
}

func TestAccountRepository_CreateDuplicate(t *testing.T) {
	db, mock := newMockDB(t)
	uow := NewUoW(db)

	acc, err := account.New().WithNumber("1234").WithHolder("Mauro").WithCredentialHash("h").Build()
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "cuentas" (.+) VALUES (.+)`).
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"})
	mock.ExpectRollback()

	err = uow.Do(context.Background(), func(tx repository.UnitOfWork) error {
		accounts, _ := tx.AccountRepository()
		return accounts.Create(context.Background(), acc)
	})
	assert.ErrorIs(t, err, domain.ErrAccountExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMovementRepository_RecentAndGet(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMovementRepository(db, false)
	accountID := uuid.New()
	newer, older := uuid.New(), uuid.New()
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	cols := []string{"id", "seq", "cuenta_id", "tipo", "monto", "descripcion", "saldo_resultante", "fecha"}
	mock.ExpectQuery(`SELECT \* FROM "movimientos" WHERE cuenta_id = \$1 ORDER BY fecha DESC,seq DESC LIMIT \$2`).
		WithArgs(accountID, 2).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(newer.String(), 2, accountID.String(), "WITHDRAWAL", "50000.00", "Cash withdrawal", "5050000.00", at).
			AddRow(older.String(), 1, accountID.String(), "DEPOSIT", "100000.00", "Deposit", "5100000.00", at))

	list, err := repo.Recent(context.Background(), accountID, 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer, list[0].ID)
	assert.Equal(t, int64(2), list[0].Seq)
	assert.Equal(t, account.KindWithdrawal, list[0].Kind)
	assert.True(t, list[1].ResultingBalance.Equal(decimal.RequireFromString("5100000")))

	mock.ExpectQuery(`SELECT \* FROM "movimientos" WHERE id = \$1 LIMIT \$2`).
		WithArgs(older, 1).
		WillReturnRows(sqlmock.NewRows(cols))
	_, err = repo.Get(context.Background(), older)
	assert.ErrorIs(t, err, domain.ErrMovementNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUoW_Ping(t *testing.T) {
	db, mock := newMockDB(t, true)
	uow := NewUoW(db)

	mock.ExpectPing()
	assert.NoError(t, uow.Ping(context.Background()))

	mock.ExpectPing().WillReturnError(errors.New("down"))
	assert.Error(t, uow.Ping(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
