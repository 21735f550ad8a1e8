package repository

import (
	"context"

	"github.com/amirasaad/vatm/pkg/domain"
	"github.com/amirasaad/vatm/pkg/domain/account"
	"github.com/amirasaad/vatm/pkg/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type movementRepository struct {
	db   *gorm.DB
	inTx bool
}

// NewMovementRepository returns a MovementRepository on db.
func NewMovementRepository(db *gorm.DB, inTx bool) repository.MovementRepository {
	return &movementRepository{db: db, inTx: inTx}
}

func (r *movementRepository) Append(ctx context.Context, mv *account.Movement) error {
	if !r.inTx {
		return repository.ErrNoTransaction
	}
	if err := r.db.WithContext(ctx).Create(toMovementModel(mv)).Error; err != nil {
		if mapped := MapGormErrorToDomain(err, domain.ErrMovementNotFound); mapped == domain.ErrAccountExists {
			return domain.ErrMovementImmutable
		}
		return err
	}
	return nil
}

// Recent orders by fecha then seq, both descending, so movements recorded in
// the same instant still come back newest first.
func (r *movementRepository) Recent(ctx context.Context, accountID uuid.UUID, limit int) ([]*account.Movement, error) {
	var rows []Movement
	err := r.db.WithContext(ctx).
		Where("cuenta_id = ?", accountID).
		Order("fecha DESC").
		Order("seq DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]*account.Movement, 0, len(rows))
	for i := range rows {
		out = append(out, toMovementDomain(&rows[i]))
	}
	return out, nil
}

func (r *movementRepository) Get(ctx context.Context, id uuid.UUID) (*account.Movement, error) {
	var m Movement
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&m).Error; err != nil {
		return nil, MapGormErrorToDomain(err, domain.ErrMovementNotFound)
	}
	return toMovementDomain(&m), nil
}
