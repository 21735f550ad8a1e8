package repository

import (
	"context"
	"fmt"

	"github.com/amirasaad/vatm/pkg/domain"
	"github.com/amirasaad/vatm/pkg/domain/account"
	"github.com/amirasaad/vatm/pkg/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type accountRepository struct {
	db   *gorm.DB
	inTx bool
}

// NewAccountRepository returns an AccountRepository on db. Locking and writes
// are only allowed when inTx is set, i.e. when db is a transaction handle.
func NewAccountRepository(db *gorm.DB, inTx bool) repository.AccountRepository {
	return &accountRepository{db: db, inTx: inTx}
}

func (r *accountRepository) Get(ctx context.Context, number string) (*account.Account, error) {
	var m Account
	if err := r.db.WithContext(ctx).Where("numero = ?", number).Take(&m).Error; err != nil {
		return nil, MapGormErrorToDomain(err, domain.ErrAccountNotFound)
	}
	return toAccountDomain(&m)
}

func (r *accountRepository) GetByID(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	var m Account
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&m).Error; err != nil {
		return nil, MapGormErrorToDomain(err, domain.ErrAccountNotFound)
	}
	return toAccountDomain(&m)
}

// GetForUpdate issues SELECT ... FOR UPDATE; the row stays locked until the
// surrounding transaction ends. There is no lock timeout.
func (r *accountRepository) GetForUpdate(ctx context.Context, number string) (*account.Account, error) {
	if !r.inTx {
		return nil, repository.ErrNoTransaction
	}
	var m Account
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("numero = ?", number).
		Take(&m).Error
	if err != nil {
		return nil, MapGormErrorToDomain(err, domain.ErrAccountNotFound)
	}
	return toAccountDomain(&m)
}

func (r *accountRepository) Create(ctx context.Context, a *account.Account) error {
	if !r.inTx {
		return repository.ErrNoTransaction
	}
	if err := r.db.WithContext(ctx).Create(toAccountModel(a)).Error; err != nil {
		return MapGormErrorToDomain(err, domain.ErrAccountNotFound)
	}
	return nil
}

func (r *accountRepository) Update(ctx context.Context, a *account.Account) error {
	if !r.inTx {
		return repository.ErrNoTransaction
	}
	res := r.db.WithContext(ctx).
		Model(&Account{}).
		Where("id = ?", a.ID).
		Updates(map[string]any{
			"saldo":           a.Balance,
			"estado":          string(a.State),
			"credential_hash": a.CredentialHash,
			"updated_at":      a.UpdatedAt,
		})
	if res.Error != nil {
		return MapGormErrorToDomain(res.Error, domain.ErrAccountNotFound)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("update %s: %w", a.Number, domain.ErrAccountNotFound)
	}
	return nil
}
