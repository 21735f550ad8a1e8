package domain

import "errors"

// Validation errors: the request itself is malformed.
var (
	// ErrInvalidAmount is returned when an amount is not strictly positive or has too many decimals.
	ErrInvalidAmount = errors.New("amount must be greater than zero with at most two decimals")
	// ErrSameAccount is returned when a transfer names the same account on both sides.
	ErrSameAccount = errors.New("source and destination accounts must differ")
	// ErrCredentialFormatInvalid is returned when a PIN does not satisfy the format policy.
	ErrCredentialFormatInvalid = errors.New("PIN format is invalid")
	// ErrInvalidAccountNumber is returned when an account number is not a string of digits.
	ErrInvalidAccountNumber = errors.New("account number must contain only digits")
	// ErrInvalidHolder is returned when an account is opened without a holder name.
	ErrInvalidHolder = errors.New("holder name is required")
)

// Not-found errors.
var (
	// ErrAccountNotFound is returned when an account cannot be found.
	ErrAccountNotFound = errors.New("account not found")
	// ErrMovementNotFound is returned when a movement cannot be found.
	ErrMovementNotFound = errors.New("movement not found")
)

// State-conflict errors: the request is well formed but current data disallows it.
var (
	ErrAccountLocked      = errors.New("account is locked")
	ErrAccountClosed      = errors.New("account is closed")
	ErrAlreadyLocked      = errors.New("account is already locked")
	ErrInvalidCredential  = errors.New("invalid PIN")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrAccountExists      = errors.New("account already exists")
	ErrBalanceInvariant   = errors.New("balance cannot become negative")
	ErrMovementImmutable  = errors.New("movements cannot be modified")
	ErrUnauthorizedAccess = errors.New("account does not belong to the authenticated session")
)

// ErrStorageFault is the opaque error surfaced for store failures. The underlying
// cause is logged, never returned to callers.
var ErrStorageFault = errors.New("the operation could not be completed, try again later")

// Kind classifies an error for the adapter layer.
type Kind int

const (
	KindStorage Kind = iota
	KindValidation
	KindNotFound
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	default:
		return "storage"
	}
}

var (
	validationErrors = []error{
		ErrInvalidAmount,
		ErrSameAccount,
		ErrCredentialFormatInvalid,
		ErrInvalidAccountNumber,
		ErrInvalidHolder,
	}
	notFoundErrors = []error{
		ErrAccountNotFound,
		ErrMovementNotFound,
	}
	conflictErrors = []error{
		ErrAccountLocked,
		ErrAccountClosed,
		ErrAlreadyLocked,
		ErrInvalidCredential,
		ErrInsufficientFunds,
		ErrAccountExists,
		ErrBalanceInvariant,
		ErrMovementImmutable,
		ErrUnauthorizedAccess,
	}
)

// KindOf walks the error chain and reports which family the error belongs to.
// Anything unrecognised is a storage fault.
func KindOf(err error) Kind {
	if err == nil {
		return KindStorage
	}
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return KindValidation
		}
	}
	for _, target := range notFoundErrors {
		if errors.Is(err, target) {
			return KindNotFound
		}
	}
	for _, target := range conflictErrors {
		if errors.Is(err, target) {
			return KindConflict
		}
	}
	return KindStorage
}

// IsBusiness reports whether err is a validation, not-found or conflict error,
// i.e. anything the caller can act on.
func IsBusiness(err error) bool {
	return err != nil && KindOf(err) != KindStorage
}
