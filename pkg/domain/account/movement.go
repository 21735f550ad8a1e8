package account

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Kind identifies what a movement records.
type Kind string

const (
	KindDeposit     Kind = "DEPOSIT"
	KindWithdrawal  Kind = "WITHDRAWAL"
	KindTransferOut Kind = "TRANSFER_OUT"
	KindTransferIn  Kind = "TRANSFER_IN"
	KindPINChange   Kind = "PIN_CHANGE"
	KindLock        Kind = "LOCK"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindDeposit, KindWithdrawal, KindTransferOut, KindTransferIn, KindPINChange, KindLock:
		return true
	}
	return false
}

// Monetary reports whether movements of this kind change the balance.
func (k Kind) Monetary() bool {
	return k != KindPINChange && k != KindLock
}

// Movement is an immutable ledger entry. Amount is always non-negative; the
// direction follows from Kind. ResultingBalance is the account balance
// immediately after the movement was applied.
type Movement struct {
	ID               uuid.UUID
	Seq              int64 // assigned by the store, breaks ties between equal CreatedAt
	AccountID        uuid.UUID
	Kind             Kind
	Amount           decimal.Decimal
	Description      string
	ResultingBalance decimal.Decimal
	CreatedAt        time.Time
}
