package account

import (
	"fmt"
	"time"

	"github.com/amirasaad/vatm/pkg/domain"
	"github.com/amirasaad/vatm/pkg/money"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// State is the lifecycle state of an account.
type State string

const (
	// StateActive is the initial state; every operation is allowed.
	StateActive State = "ACTIVE"
	// StateLocked blocks monetary operations. No operation leaves it.
	StateLocked State = "LOCKED"
	// StateClosed blocks monetary operations. It is produced administratively only.
	StateClosed State = "CLOSED"
)

// Valid reports whether s is a known state.
func (s State) Valid() bool {
	switch s {
	case StateActive, StateLocked, StateClosed:
		return true
	}
	return false
}

const (
	// MinNumberLength and MaxNumberLength bound the length of an account number.
	MinNumberLength = 4
	MaxNumberLength = 20

	// DefaultLockReason is recorded when a lock request carries no reason.
	DefaultLockReason = "locked by account holder"
)

// Credentials is the capability the aggregate needs to gate operations on a PIN.
type Credentials interface {
	Verify(hash, presented string) bool
	Validate(credential string) error
	Hash(credential string) (string, error)
}

// Account is a holder's balance-bearing record, identified by its number.
// It is the aggregate root for balance and state changes.
//
// Invariants:
//   - Balance is never negative and carries at most two decimals.
//   - Only ACTIVE accounts accept deposits, withdrawals and outgoing transfers.
//   - Every mutation returns the Movement describing it, with the post-mutation balance.
type Account struct {
	ID             uuid.UUID
	Number         string
	Holder         string
	Balance        decimal.Decimal
	CredentialHash string
	State          State
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Builder provides a fluent API for constructing Account instances.
type Builder struct {
	id             uuid.UUID
	number         string
	holder         string
	balance        decimal.Decimal
	credentialHash string
	state          State
	createdAt      time.Time
	updatedAt      time.Time
}

// New creates a Builder for an ACTIVE account with a fresh id and zero balance.
func New() *Builder {
	now := time.Now().UTC()
	return &Builder{
		id:        uuid.New(),
		balance:   decimal.Zero,
		state:     StateActive,
		createdAt: now,
		updatedAt: now,
	}
}

func (b *Builder) WithID(id uuid.UUID) *Builder {
	b.id = id
	return b
}

func (b *Builder) WithNumber(number string) *Builder {
	b.number = number
	return b
}

func (b *Builder) WithHolder(holder string) *Builder {
	b.holder = holder
	return b
}

// WithBalance sets the balance. Used for opening balances and for hydrating from a store.
func (b *Builder) WithBalance(balance decimal.Decimal) *Builder {
	b.balance = balance
	return b
}

func (b *Builder) WithCredentialHash(hash string) *Builder {
	b.credentialHash = hash
	return b
}

func (b *Builder) WithState(state State) *Builder {
	b.state = state
	return b
}

func (b *Builder) WithCreatedAt(t time.Time) *Builder {
	b.createdAt = t
	return b
}

func (b *Builder) WithUpdatedAt(t time.Time) *Builder {
	b.updatedAt = t
	return b
}

// Build validates the collected fields and returns the account.
func (b *Builder) Build() (*Account, error) {
	if err := ValidateNumber(b.number); err != nil {
		return nil, err
	}
	if b.holder == "" {
		return nil, domain.ErrInvalidHolder
	}
	if err := money.ValidateBalance(b.balance); err != nil {
		return nil, err
	}
	if b.credentialHash == "" {
		return nil, fmt.Errorf("%w: missing hash", domain.ErrCredentialFormatInvalid)
	}
	if !b.state.Valid() {
		return nil, fmt.Errorf("unknown account state %q", b.state)
	}
	return &Account{
		ID:             b.id,
		Number:         b.number,
		Holder:         b.holder,
		Balance:        b.balance,
		CredentialHash: b.credentialHash,
		State:          b.state,
		CreatedAt:      b.createdAt,
		UpdatedAt:      b.updatedAt,
	}, nil
}

// ValidateNumber checks that n is a string of MinNumberLength..MaxNumberLength ASCII digits.
func ValidateNumber(n string) error {
	if len(n) < MinNumberLength || len(n) > MaxNumberLength {
		return domain.ErrInvalidAccountNumber
	}
	for i := 0; i < len(n); i++ {
		if n[i] < '0' || n[i] > '9' {
			return domain.ErrInvalidAccountNumber
		}
	}
	return nil
}

// CheckOperable fails if the account cannot take part in a monetary operation.
func (a *Account) CheckOperable() error {
	switch a.State {
	case StateLocked:
		return domain.ErrAccountLocked
	case StateClosed:
		return domain.ErrAccountClosed
	}
	return nil
}

// Authorize verifies a presented PIN against the stored hash.
func (a *Account) Authorize(creds Credentials, pin string) error {
	if !creds.Verify(a.CredentialHash, pin) {
		return domain.ErrInvalidCredential
	}
	return nil
}

// Deposit credits amount to the account.
func (a *Account) Deposit(amount decimal.Decimal, at time.Time) (*Movement, error) {
	if err := money.ValidateAmount(amount); err != nil {
		return nil, err
	}
	if err := a.CheckOperable(); err != nil {
		return nil, err
	}
	return a.apply(KindDeposit, amount, "Deposit", at)
}

// Withdraw debits amount after checking the PIN and the available funds.
func (a *Account) Withdraw(amount decimal.Decimal, pin string, creds Credentials, at time.Time) (*Movement, error) {
	if err := money.ValidateAmount(amount); err != nil {
		return nil, err
	}
	if err := a.CheckOperable(); err != nil {
		return nil, err
	}
	if err := a.Authorize(creds, pin); err != nil {
		return nil, err
	}
	if a.Balance.LessThan(amount) {
		return nil, domain.ErrInsufficientFunds
	}
	return a.apply(KindWithdrawal, amount.Neg(), "Cash withdrawal", at)
}

// Transfer moves amount from a to dest. Only the source's state is checked: a locked
// or closed destination still receives funds.
// The returned movements are the TRANSFER_OUT on a and the TRANSFER_IN on dest.
func (a *Account) Transfer(dest *Account, amount decimal.Decimal, pin string, creds Credentials, at time.Time) (out, in *Movement, err error) {
	if err = money.ValidateAmount(amount); err != nil {
		return nil, nil, err
	}
	if dest == nil || a.Number == dest.Number {
		return nil, nil, domain.ErrSameAccount
	}
	if err = a.CheckOperable(); err != nil {
		return nil, nil, err
	}
	if err = a.Authorize(creds, pin); err != nil {
		return nil, nil, err
	}
	if a.Balance.LessThan(amount) {
		return nil, nil, domain.ErrInsufficientFunds
	}
	out, err = a.apply(KindTransferOut, amount.Neg(), "Transfer to "+dest.Number, at)
	if err != nil {
		return nil, nil, err
	}
	in, err = dest.apply(KindTransferIn, amount, "Transfer from "+a.Number, at)
	if err != nil {
		return nil, nil, err
	}
	return out, in, nil
}

// ChangeCredential replaces the PIN. The new PIN is checked against the format
// policy before the old one is verified.
func (a *Account) ChangeCredential(oldPIN, newPIN string, creds Credentials, at time.Time) (*Movement, error) {
	if err := creds.Validate(newPIN); err != nil {
		return nil, err
	}
	if err := a.Authorize(creds, oldPIN); err != nil {
		return nil, err
	}
	hash, err := creds.Hash(newPIN)
	if err != nil {
		return nil, fmt.Errorf("hash credential: %w", err)
	}
	a.CredentialHash = hash
	return a.apply(KindPINChange, decimal.Zero, "PIN changed", at)
}

// Lock moves an ACTIVE account to LOCKED.
func (a *Account) Lock(reason string, at time.Time) (*Movement, error) {
	switch a.State {
	case StateLocked:
		return nil, domain.ErrAlreadyLocked
	case StateClosed:
		return nil, domain.ErrAccountClosed
	}
	if reason == "" {
		reason = DefaultLockReason
	}
	a.State = StateLocked
	return a.apply(KindLock, decimal.Zero, reason, at)
}

// OpeningDeposit records a positive opening balance as a DEPOSIT movement so the
// running total stays auditable. It returns nil for accounts opened empty.
func (a *Account) OpeningDeposit(at time.Time) *Movement {
	if !a.Balance.IsPositive() {
		return nil
	}
	return &Movement{
		ID:               uuid.New(),
		AccountID:        a.ID,
		Kind:             KindDeposit,
		Amount:           a.Balance,
		Description:      "Opening deposit",
		ResultingBalance: a.Balance,
		CreatedAt:        at,
	}
}

// apply adds delta to the balance and returns the movement recording it.
// The recorded amount is the absolute value of delta.
func (a *Account) apply(kind Kind, delta decimal.Decimal, description string, at time.Time) (*Movement, error) {
	next := a.Balance.Add(delta)
	if next.IsNegative() {
		return nil, domain.ErrBalanceInvariant
	}
	a.Balance = next
	a.UpdatedAt = at
	return &Movement{
		ID:               uuid.New(),
		AccountID:        a.ID,
		Kind:             kind,
		Amount:           delta.Abs(),
		Description:      description,
		ResultingBalance: next,
		CreatedAt:        at,
	}, nil
}

// Clone returns a copy that shares nothing mutable with a.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	c := *a
	return &c
}
