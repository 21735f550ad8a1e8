package repository

import (
	"time"

	"github.com/amirasaad/vatm/pkg/domain/account"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Account represents an account record in the database.
type Account struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Number         string          `gorm:"column:numero;type:varchar(20);uniqueIndex;not null"`
	Holder         string          `gorm:"column:titular;type:varchar(120);not null"`
	Balance        decimal.Decimal `gorm:"column:saldo;type:numeric(18,2);not null"`
	CredentialHash string          `gorm:"column:credential_hash;not null"`
	State          string          `gorm:"column:estado;type:varchar(16);not null"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TableName specifies the table name for the Account model.
func (Account) TableName() string { return "cuentas" }

// Movement represents an append-only ledger row. Seq is assigned by the
// database and never written by the application.
type Movement struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Seq              int64           `gorm:"column:seq;->"`
	AccountID        uuid.UUID       `gorm:"column:cuenta_id;type:uuid;index;not null"`
	Kind             string          `gorm:"column:tipo;type:varchar(16);not null"`
	Amount           decimal.Decimal `gorm:"column:monto;type:numeric(18,2);not null"`
	Description      string          `gorm:"column:descripcion"`
	ResultingBalance decimal.Decimal `gorm:"column:saldo_resultante;type:numeric(18,2);not null"`
	CreatedAt        time.Time       `gorm:"column:fecha;not null"`
}

// TableName specifies the table name for the Movement model.
func (Movement) TableName() string { return "movimientos" }

func toAccountModel(a *account.Account) *Account {
	return &Account{
		ID:             a.ID,
		Number:         a.Number,
		Holder:         a.Holder,
		Balance:        a.Balance,
		CredentialHash: a.CredentialHash,
		State:          string(a.State),
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
}

func toAccountDomain(m *Account) (*account.Account, error) {
	return account.New().
		WithID(m.ID).
		WithNumber(m.Number).
		WithHolder(m.Holder).
		WithBalance(m.Balance).
		WithCredentialHash(m.CredentialHash).
		WithState(account.State(m.State)).
		WithCreatedAt(m.CreatedAt).
		WithUpdatedAt(m.UpdatedAt).
		Build()
}

func toMovementModel(mv *account.Movement) *Movement {
	return &Movement{
		ID:               mv.ID,
		AccountID:        mv.AccountID,
		Kind:             string(mv.Kind),
		Amount:           mv.Amount,
		Description:      mv.Description,
		ResultingBalance: mv.ResultingBalance,
		CreatedAt:        mv.CreatedAt,
	}
}

func toMovementDomain(m *Movement) *account.Movement {
	return &account.Movement{
		ID:               m.ID,
		Seq:              m.Seq,
		AccountID:        m.AccountID,
		Kind:             account.Kind(m.Kind),
		Amount:           m.Amount,
		Description:      m.Description,
		ResultingBalance: m.ResultingBalance,
		CreatedAt:        m.CreatedAt,
	}
}
