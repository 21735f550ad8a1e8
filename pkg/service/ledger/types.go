package ledger

import (
	"time"

	"github.com/amirasaad/vatm/pkg/domain/account"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Receipt is the result of a single-account operation.
type Receipt struct {
	AccountNumber string
	Balance       decimal.Decimal
	MovementID    uuid.UUID
	Kind          account.Kind
	Amount        decimal.Decimal
	At            time.Time
}

// TransferReceipt carries both post-transfer balances.
type TransferReceipt struct {
	Source             string
	Destination        string
	Amount             decimal.Decimal
	SourceBalance      decimal.Decimal
	DestinationBalance decimal.Decimal
	OutMovementID      uuid.UUID
	InMovementID       uuid.UUID
	At                 time.Time
}

// AccountView is the public shape of an account. It never carries the credential hash.
type AccountView struct {
	ID        uuid.UUID
	Number    string
	Holder    string
	Balance   decimal.Decimal
	State     account.State
	CreatedAt time.Time
}

// MovementView is the stable external shape of a ledger entry.
type MovementView struct {
	ID               uuid.UUID
	Kind             account.Kind
	Amount           decimal.Decimal
	Description      string
	ResultingBalance decimal.Decimal
	CreatedAt        time.Time
}

// NewAccount holds the data needed to open an account.
type NewAccount struct {
	Number         string
	Holder         string
	PIN            string
	InitialBalance decimal.Decimal
}

func viewOf(a *account.Account) *AccountView {
	return &AccountView{
		ID:        a.ID,
		Number:    a.Number,
		Holder:    a.Holder,
		Balance:   a.Balance,
		State:     a.State,
		CreatedAt: a.CreatedAt,
	}
}

func movementViewOf(m *account.Movement) MovementView {
	return MovementView{
		ID:               m.ID,
		Kind:             m.Kind,
		Amount:           m.Amount,
		Description:      m.Description,
		ResultingBalance: m.ResultingBalance,
		CreatedAt:        m.CreatedAt,
	}
}

func receiptOf(number string, balance decimal.Decimal, m *account.Movement) *Receipt {
	return &Receipt{
		AccountNumber: number,
		Balance:       balance,
		MovementID:    m.ID,
		Kind:          m.Kind,
		Amount:        m.Amount,
		At:            m.CreatedAt,
	}
}
