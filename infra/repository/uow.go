package repository

import (
	"context"
	"fmt"

	"github.com/amirasaad/vatm/pkg/repository"
	"gorm.io/gorm"
)

// UoW implements repository.UnitOfWork on a *gorm.DB.
type UoW struct {
	db *gorm.DB
	tx *gorm.DB
}

// NewUoW creates a new UoW for the given *gorm.DB.
func NewUoW(db *gorm.DB) *UoW {
	return &UoW{db: db}
}

// Do runs fn in a database transaction. gorm commits when fn returns nil and
// rolls back on error or panic. A Do call on a UoW that is already inside a
// transaction joins it.
func (u *UoW) Do(ctx context.Context, fn func(uow repository.UnitOfWork) error) error {
	if u.tx != nil {
		return fn(u)
	}
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&UoW{db: u.db, tx: tx})
	})
}

// AccountRepository returns an account repository bound to the current session.
func (u *UoW) AccountRepository() (repository.AccountRepository, error) {
	if u.tx != nil {
		return NewAccountRepository(u.tx, true), nil
	}
	return NewAccountRepository(u.db, false), nil
}

// MovementRepository returns a movement repository bound to the current session.
func (u *UoW) MovementRepository() (repository.MovementRepository, error) {
	if u.tx != nil {
		return NewMovementRepository(u.tx, true), nil
	}
	return NewMovementRepository(u.db, false), nil
}

// Ping checks the database connection.
func (u *UoW) Ping(ctx context.Context) error {
	sqlDB, err := u.db.DB()
	if err != nil {
		return fmt.Errorf("get sql.DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

var _ repository.UnitOfWork = (*UoW)(nil)
