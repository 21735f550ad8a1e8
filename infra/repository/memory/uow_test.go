package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/amirasaad/vatm/pkg/domain"
	"github.com/amirasaad/vatm/pkg/domain/account"
	"github.com/amirasaad/vatm/pkg/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T, uow *UoW, number, balance string) *account.Account {
	t.Helper()
	acc, err := account.New().
		WithNumber(number).
		WithHolder("Holder " + number).
		WithBalance(decimal.RequireFromString(balance)).
		WithCredentialHash("hash").
		Build()
	require.NoError(t, err)
	require.NoError(t, uow.Do(context.Background(), func(tx repository.UnitOfWork) error {
		accounts, _ := tx.AccountRepository()
		return accounts.Create(context.Background(), acc)
	}))
	return acc
}

func deposit(ctx context.Context, tx repository.UnitOfWork, number, amount string) error {
	accounts, _ := tx.AccountRepository()
	movements, _ := tx.MovementRepository()
	acc, err := accounts.GetForUpdate(ctx, number)
	if err != nil {
		return err
	}
	mv, err := acc.Deposit(decimal.RequireFromString(amount), time.Now().UTC())
	if err != nil {
		return err
	}
	if err := accounts.Update(ctx, acc); err != nil {
		return err
	}
	return movements.Append(ctx, mv)
}

func balanceOf(t *testing.T, uow *UoW, number string) decimal.Decimal {
	t.Helper()
	accounts, _ := uow.AccountRepository()
	acc, err := accounts.Get(context.Background(), number)
	require.NoError(t, err)
	return acc.Balance
}

func TestCommitAppliesStagedWrites(t *testing.T) {
	ctx := context.Background()
	uow := NewUoW(NewStore())
	acc := seed(t, uow, "1234", "100")

	require.NoError(t, uow.Do(ctx, func(tx repository.UnitOfWork) error {
		return deposit(ctx, tx, "1234", "25.50")
	}))
	assert.True(t, balanceOf(t, uow, "1234").Equal(decimal.RequireFromString("125.50")))

	movements, _ := uow.MovementRepository()
	list, err := movements.Recent(ctx, acc.ID, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int64(1), list[0].Seq)

	got, err := movements.Get(ctx, list[0].ID)
	require.NoError(t, err)
	assert.Equal(t, list[0].ID, got.ID)
}

func TestErrorDiscardsStagedWrites(t *testing.T) {
	ctx := context.Background()
	uow := NewUoW(NewStore())
	acc := seed(t, uow, "1234", "100")

	err := uow.Do(ctx, func(tx repository.UnitOfWork) error {
		if err := deposit(ctx, tx, "1234", "10"); err != nil {
			return err
		}
		return errors.New("fault after write")
	})
	require.Error(t, err)
	assert.True(t, balanceOf(t, uow, "1234").Equal(decimal.RequireFromString("100")))

	movements, _ := uow.MovementRepository()
	list, _ := movements.Recent(ctx, acc.ID, 10)
	assert.Empty(t, list)
}

func TestPanicReleasesLocksAndDiscardsWrites(t *testing.T) {
	ctx := context.Background()
	uow := NewUoW(NewStore())
	seed(t, uow, "1234", "100")

	assert.Panics(t, func() {
		_ = uow.Do(ctx, func(tx repository.UnitOfWork) error {
			_ = deposit(ctx, tx, "1234", "10")
			panic("boom")
		})
	})

	done := make(chan error, 1)
	go func() {
		done <- uow.Do(ctx, func(tx repository.UnitOfWork) error { return deposit(ctx, tx, "1234", "1") })
	}()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("row lock was not released after panic")
	}
	assert.True(t, balanceOf(t, uow, "1234").Equal(decimal.RequireFromString("101")))
}

func TestGetForUpdateBlocksConcurrentLocker(t *testing.T) {
	ctx := context.Background()
	uow := NewUoW(NewStore())
	seed(t, uow, "1234", "0")

	locked := make(chan struct{})
	release := make(chan struct{})
	first := make(chan error, 1)
	go func() {
		first <- uow.Do(ctx, func(tx repository.UnitOfWork) error {
			accounts, _ := tx.AccountRepository()
			if _, err := accounts.GetForUpdate(ctx, "1234"); err != nil {
				return err
			}
			close(locked)
			<-release
			return nil
		})
	}()
	<-locked

	second := make(chan error, 1)
	go func() {
		second <- uow.Do(ctx, func(tx repository.UnitOfWork) error { return deposit(ctx, tx, "1234", "1") })
	}()

	select {
	case <-second:
		t.Fatal("second locker must wait for the first unit of work to finish")
	case <-time.After(100 * time.Millisecond):
	}

	close(release)
	require.NoError(t, <-first)
	require.NoError(t, <-second)
	assert.True(t, balanceOf(t, uow, "1234").Equal(decimal.RequireFromString("1")))
}

func TestReadersDoNotBlock(t *testing.T) {
	ctx := context.Background()
	uow := NewUoW(NewStore())
	seed(t, uow, "1234", "7")

	err := uow.Do(ctx, func(tx repository.UnitOfWork) error {
		accounts, _ := tx.AccountRepository()
		if _, err := accounts.GetForUpdate(ctx, "1234"); err != nil {
			return err
		}
		// A reader outside the unit of work sees committed state without waiting.
		assert.True(t, balanceOf(t, uow, "1234").Equal(decimal.RequireFromString("7")))
		return nil
	})
	require.NoError(t, err)
}

func TestWritesRequireTransaction(t *testing.T) {
	ctx := context.Background()
	uow := NewUoW(NewStore())
	accounts, _ := uow.AccountRepository()
	movements, _ := uow.MovementRepository()

	_, err := accounts.GetForUpdate(ctx, "1234")
	assert.ErrorIs(t, err, repository.ErrNoTransaction)
	assert.ErrorIs(t, accounts.Update(ctx, &account.Account{}), repository.ErrNoTransaction)
	assert.ErrorIs(t, accounts.Create(ctx, &account.Account{}), repository.ErrNoTransaction)
	assert.ErrorIs(t, movements.Append(ctx, &account.Movement{}), repository.ErrNoTransaction)
}

func TestUpdateWithoutLockFails(t *testing.T) {
	ctx := context.Background()
	uow := NewUoW(NewStore())
	acc := seed(t, uow, "1234", "0")

	err := uow.Do(ctx, func(tx repository.UnitOfWork) error {
		accounts, _ := tx.AccountRepository()
		return accounts.Update(ctx, acc)
	})
	assert.ErrorContains(t, err, "not locked")
}

func TestNotFoundAndDuplicates(t *testing.T) {
	ctx := context.Background()
	uow := NewUoW(NewStore())
	acc := seed(t, uow, "1234", "0")

	err := uow.Do(ctx, func(tx repository.UnitOfWork) error { return deposit(ctx, tx, "9999", "1") })
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)

	err = uow.Do(ctx, func(tx repository.UnitOfWork) error {
		accounts, _ := tx.AccountRepository()
		return accounts.Create(ctx, acc)
	})
	assert.ErrorIs(t, err, domain.ErrAccountExists)

	err = uow.Do(ctx, func(tx repository.UnitOfWork) error {
		movements, _ := tx.MovementRepository()
		mv := &account.Movement{ID: acc.ID, AccountID: acc.ID, Kind: account.KindLock}
		if err := movements.Append(ctx, mv); err != nil {
			return err
		}
		return movements.Append(ctx, mv)
	})
	assert.ErrorIs(t, err, domain.ErrMovementImmutable)

	accounts, _ := uow.AccountRepository()
	got, err := accounts.GetByID(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, "1234", got.Number)

	movements, _ := uow.MovementRepository()
	_, err = movements.Get(ctx, acc.ID)
	assert.ErrorIs(t, err, domain.ErrMovementNotFound)
}

func TestMissingAccountsTakeNoRowLock(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	uow := NewUoW(store)
	seed(t, uow, "1234", "0")

	for _, number := range []string{"1000", "1001", "1002"} {
		err := uow.Do(ctx, func(tx repository.UnitOfWork) error { return deposit(ctx, tx, number, "1") })
		assert.ErrorIs(t, err, domain.ErrAccountNotFound)
	}
	require.NoError(t, uow.Do(ctx, func(tx repository.UnitOfWork) error { return deposit(ctx, tx, "1234", "1") }))

	store.mu.RLock()
	defer store.mu.RUnlock()
	assert.Len(t, store.rowLocks, 1)
	assert.Contains(t, store.rowLocks, "1234")
}

func TestRecentOrdersNewestFirstWithSeqTieBreak(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	uow := NewUoW(store)
	acc := seed(t, uow, "1234", "0")
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, uow.Do(ctx, func(tx repository.UnitOfWork) error {
		accounts, _ := tx.AccountRepository()
		movements, _ := tx.MovementRepository()
		a, err := accounts.GetForUpdate(ctx, "1234")
		if err != nil {
			return err
		}
		for i := 1; i <= 3; i++ {
			mv, err := a.Deposit(decimal.NewFromInt(int64(i)), at)
			if err != nil {
				return err
			}
			if err := movements.Append(ctx, mv); err != nil {
				return err
			}
		}
		return accounts.Update(ctx, a)
	}))

	movements, _ := uow.MovementRepository()
	list, err := movements.Recent(ctx, acc.ID, 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.True(t, list[0].ResultingBalance.Equal(decimal.NewFromInt(6)))
	assert.True(t, list[1].ResultingBalance.Equal(decimal.NewFromInt(3)))
	assert.Greater(t, list[0].Seq, list[1].Seq)
}
