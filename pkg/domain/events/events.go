package events

import (
	"time"

	"github.com/amirasaad/vatm/pkg/domain/account"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EventType represents the type of an event in the system.
type EventType string

func (t EventType) String() string { return string(t) }

// EventTypeMovementRecorded is emitted once per committed movement.
const EventTypeMovementRecorded EventType = "Movement.Recorded"

// Event is anything that can travel on the bus.
type Event interface {
	Type() string
}

// MovementRecorded is published after the unit of work that appended the
// movement has committed. It is a notification only; the ledger is the source of truth.
type MovementRecorded struct {
	ID               uuid.UUID       `json:"id"`
	MovementID       uuid.UUID       `json:"movement_id"`
	AccountID        uuid.UUID       `json:"account_id"`
	AccountNumber    string          `json:"account_number"`
	Kind             account.Kind    `json:"kind"`
	Amount           decimal.Decimal `json:"amount"`
	ResultingBalance decimal.Decimal `json:"resulting_balance"`
	Description      string          `json:"description"`
	OccurredAt       time.Time       `json:"occurred_at"`
}

func (MovementRecorded) Type() string { return EventTypeMovementRecorded.String() }

// NewMovementRecorded builds the event for a movement on the account with the given number.
func NewMovementRecorded(number string, m *account.Movement) *MovementRecorded {
	return &MovementRecorded{
		ID:               uuid.New(),
		MovementID:       m.ID,
		AccountID:        m.AccountID,
		AccountNumber:    number,
		Kind:             m.Kind,
		Amount:           m.Amount,
		ResultingBalance: m.ResultingBalance,
		Description:      m.Description,
		OccurredAt:       m.CreatedAt,
	}
}

// EventTypes maps a type name to a constructor, for decoding events read back from a broker.
var EventTypes = map[string]func() Event{
	EventTypeMovementRecorded.String(): func() Event { return &MovementRecorded{} },
}
