package repository

import (
	"errors"

	"github.com/amirasaad/vatm/pkg/domain"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const pgUniqueViolation = "23505"

// MapGormErrorToDomain converts GORM and Postgres errors to domain errors.
// notFound is the domain error a missing row maps to. Unrecognised errors are
// returned unchanged and end up classified as storage faults.
func MapGormErrorToDomain(err error, notFound error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return notFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return domain.ErrAccountExists
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return domain.ErrAccountExists
	}
	return err
}
