package repository

import (
	"context"
	"errors"

	"github.com/amirasaad/vatm/pkg/domain/account"
	"github.com/google/uuid"
)

// ErrNoTransaction is returned by locking and writing operations called outside UnitOfWork.Do.
var ErrNoTransaction = errors.New("operation requires an active unit of work")

// AccountRepository is the Account Store.
type AccountRepository interface {
	// Get reads an account by number without locking it.
	Get(ctx context.Context, number string) (*account.Account, error)
	// GetByID reads an account by id without locking it.
	GetByID(ctx context.Context, id uuid.UUID) (*account.Account, error)
	// GetForUpdate reads an account and holds an exclusive lock on it until the
	// enclosing unit of work commits or rolls back. Concurrent lockers block.
	GetForUpdate(ctx context.Context, number string) (*account.Account, error)
	// Create inserts a new account. A duplicate number yields domain.ErrAccountExists.
	Create(ctx context.Context, a *account.Account) error
	// Update persists balance, state and credential hash of a locked account.
	Update(ctx context.Context, a *account.Account) error
}

// MovementRepository is the append-only Movement Ledger.
type MovementRepository interface {
	// Append records one movement in the enclosing unit of work.
	Append(ctx context.Context, m *account.Movement) error
	// Recent returns up to limit movements of the account, newest first.
	Recent(ctx context.Context, accountID uuid.UUID, limit int) ([]*account.Movement, error)
	// Get returns one movement by id.
	Get(ctx context.Context, id uuid.UUID) (*account.Movement, error)
}
