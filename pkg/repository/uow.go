package repository

import "context"

// UnitOfWork scopes a set of repository calls to one transaction.
//
// Do runs fn inside a transaction and hands it a UnitOfWork bound to that
// transaction. The transaction commits when fn returns nil and rolls back when
// fn returns an error or panics; the panic is re-raised after rollback.
// Row locks taken through the bound AccountRepository are released exactly once,
// at commit or rollback.
//
// Outside Do the repositories are read-only: GetForUpdate, Update, Create and
// Append fail with ErrNoTransaction.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(uow UnitOfWork) error) error

	AccountRepository() (AccountRepository, error)
	MovementRepository() (MovementRepository, error)

	// Ping checks that the underlying store is reachable.
	Ping(ctx context.Context) error
}
