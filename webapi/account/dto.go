package account

import (
	"time"

	"github.com/amirasaad/vatm/pkg/money"
	"github.com/amirasaad/vatm/pkg/service/ledger"
	"github.com/google/uuid"
)

// OpenAccountRequest represents the request body for opening an account.
type OpenAccountRequest struct {
	Number         string `json:"number" validate:"required,numeric,min=4,max=20"`
	Holder         string `json:"holder" validate:"required,max=120"`
	PIN            string `json:"pin" validate:"required,numeric"`
	InitialBalance string `json:"initial_balance" validate:"omitempty,numeric"`
}

// AmountRequest represents the request body for a deposit.
type AmountRequest struct {
	Amount string `json:"amount" validate:"required"`
}

// WithdrawRequest represents the request body for withdrawing funds.
type WithdrawRequest struct {
	Amount string `json:"amount" validate:"required"`
	PIN    string `json:"pin" validate:"required"`
}

// TransferRequest represents the request body for transferring funds.
type TransferRequest struct {
	Destination string `json:"destination" validate:"required"`
	Amount      string `json:"amount" validate:"required"`
	PIN         string `json:"pin" validate:"required"`
}

// ChangePINRequest represents the request body for changing the PIN.
type ChangePINRequest struct {
	OldPIN string `json:"old_pin" validate:"required"`
	NewPIN string `json:"new_pin" validate:"required"`
}

// LockRequest represents the optional request body for locking an account.
type LockRequest struct {
	Reason string `json:"reason" validate:"max=200"`
}

type AccountDTO struct {
	Number    string    `json:"number"`
	Holder    string    `json:"holder"`
	Balance   string    `json:"balance"`
	State     string    `json:"state"`
	CreatedAt time.Time `json:"created_at"`
}

type BalanceDTO struct {
	Number  string `json:"number"`
	Balance string `json:"balance"`
}

type ReceiptDTO struct {
	Number     string    `json:"number"`
	Balance    string    `json:"balance"`
	MovementID uuid.UUID `json:"movement_id"`
	Kind       string    `json:"kind"`
	Amount     string    `json:"amount"`
	At         time.Time `json:"at"`
}

type TransferDTO struct {
	Source             string    `json:"source"`
	Destination        string    `json:"destination"`
	Amount             string    `json:"amount"`
	SourceBalance      string    `json:"source_balance"`
	DestinationBalance string    `json:"destination_balance"`
	OutMovementID      uuid.UUID `json:"out_movement_id"`
	InMovementID       uuid.UUID `json:"in_movement_id"`
	At                 time.Time `json:"at"`
}

type MovementDTO struct {
	ID               uuid.UUID `json:"id"`
	Kind             string    `json:"kind"`
	Amount           string    `json:"amount"`
	Description      string    `json:"description"`
	ResultingBalance string    `json:"resulting_balance"`
	CreatedAt        time.Time `json:"created_at"`
}

func toAccountDTO(v *ledger.AccountView) AccountDTO {
	return AccountDTO{
		Number:    v.Number,
		Holder:    v.Holder,
		Balance:   money.Format(v.Balance),
		State:     string(v.State),
		CreatedAt: v.CreatedAt,
	}
}

func toReceiptDTO(r *ledger.Receipt) ReceiptDTO {
	return ReceiptDTO{
		Number:     r.AccountNumber,
		Balance:    money.Format(r.Balance),
		MovementID: r.MovementID,
		Kind:       string(r.Kind),
		Amount:     money.Format(r.Amount),
		At:         r.At,
	}
}

func toTransferDTO(r *ledger.TransferReceipt) TransferDTO {
	return TransferDTO{
		Source:             r.Source,
		Destination:        r.Destination,
		Amount:             money.Format(r.Amount),
		SourceBalance:      money.Format(r.SourceBalance),
		DestinationBalance: money.Format(r.DestinationBalance),
		OutMovementID:      r.OutMovementID,
		InMovementID:       r.InMovementID,
		At:                 r.At,
	}
}

func toMovementDTO(m ledger.MovementView) MovementDTO {
	return MovementDTO{
		ID:               m.ID,
		Kind:             string(m.Kind),
		Amount:           money.Format(m.Amount),
		Description:      m.Description,
		ResultingBalance: money.Format(m.ResultingBalance),
		CreatedAt:        m.CreatedAt,
	}
}
