// Package ledger is the transaction engine behind every ATM operation.
//
// Each mutating operation runs in one unit of work: the rows it will modify are
// locked first, business rules are checked against the locked values, balances
// and movements are written, and the unit commits. Any error or panic rolls the
// whole operation back. Movements are announced on the event bus only after commit.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/amirasaad/vatm/pkg/credential"
	"github.com/amirasaad/vatm/pkg/domain"
	"github.com/amirasaad/vatm/pkg/domain/account"
	"github.com/amirasaad/vatm/pkg/domain/events"
	"github.com/amirasaad/vatm/pkg/eventbus"
	"github.com/amirasaad/vatm/pkg/money"
	"github.com/amirasaad/vatm/pkg/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	DefaultHistoryLimit = 10
	MaxHistoryLimit     = 100
)

// Service is the ledger transaction engine.
type Service struct {
	uow          repository.UnitOfWork
	creds        credential.Verifier
	bus          eventbus.Bus
	logger       *slog.Logger
	now          func() time.Time
	historyLimit int
	historyMax   int

	dummyOnce sync.Once
	dummyHash string
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source used to stamp movements.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithHistoryLimits sets the default and maximum number of movements History returns.
func WithHistoryLimits(def, max int) Option {
	return func(s *Service) {
		if def > 0 {
			s.historyLimit = def
		}
		if max > 0 {
			s.historyMax = max
		}
	}
}

// New creates the engine. bus may be nil, in which case nothing is published.
func New(
	uow repository.UnitOfWork,
	creds credential.Verifier,
	bus eventbus.Bus,
	logger *slog.Logger,
	opts ...Option,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		uow:          uow,
		creds:        creds,
		bus:          bus,
		logger:       logger.With("service", "ledger"),
		now:          func() time.Time { return time.Now().UTC() },
		historyLimit: DefaultHistoryLimit,
		historyMax:   MaxHistoryLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.historyLimit > s.historyMax {
		s.historyLimit = s.historyMax
	}
	return s
}

// recorded pairs a committed movement with the number of its account, for publication.
type recorded struct {
	number   string
	movement *account.Movement
}

// Deposit credits amount to the account.
func (s *Service) Deposit(ctx context.Context, number string, amount decimal.Decimal) (*Receipt, error) {
	const op = "Deposit"
	log := s.logger.With("op", op, "account", number, "amount", amount.String())
	log.Debug("Deposit started")

	if err := money.ValidateAmount(amount); err != nil {
		log.Warn("Deposit failed: invalid amount", "error", err)
		return nil, err
	}

	var (
		receipt *Receipt
		pending []recorded
	)
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		accounts, movements, err := repos(uow)
		if err != nil {
			return err
		}
		acc, err := accounts.GetForUpdate(ctx, number)
		if err != nil {
			return err
		}
		mv, err := acc.Deposit(amount, s.now())
		if err != nil {
			return err
		}
		if err := persist(ctx, accounts, movements, acc, mv); err != nil {
			return err
		}
		receipt = receiptOf(acc.Number, acc.Balance, mv)
		pending = append(pending, recorded{acc.Number, mv})
		return nil
	})
	if err != nil {
		return nil, s.fail(log, op, err)
	}
	log.Info("Deposit successful", "balance", receipt.Balance.String(), "movement", receipt.MovementID)
	s.publish(ctx, pending)
	return receipt, nil
}

// Withdraw debits amount after verifying the PIN and the available funds.
func (s *Service) Withdraw(ctx context.Context, number string, amount decimal.Decimal, pin string) (*Receipt, error) {
	const op = "Withdraw"
	log := s.logger.With("op", op, "account", number, "amount", amount.String())
	log.Debug("Withdraw started")

	if err := money.ValidateAmount(amount); err != nil {
		log.Warn("Withdraw failed: invalid amount", "error", err)
		return nil, err
	}

	var (
		receipt *Receipt
		pending []recorded
	)
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		accounts, movements, err := repos(uow)
		if err != nil {
			return err
		}
		acc, err := accounts.GetForUpdate(ctx, number)
		if err != nil {
			return err
		}
		mv, err := acc.Withdraw(amount, pin, s.creds, s.now())
		if err != nil {
			return err
		}
		if err := persist(ctx, accounts, movements, acc, mv); err != nil {
			return err
		}
		receipt = receiptOf(acc.Number, acc.Balance, mv)
		pending = append(pending, recorded{acc.Number, mv})
		return nil
	})
	if err != nil {
		return nil, s.fail(log, op, err)
	}
	log.Info("Withdraw successful", "balance", receipt.Balance.String(), "movement", receipt.MovementID)
	s.publish(ctx, pending)
	return receipt, nil
}

// Transfer moves amount from source to dest. Both rows are locked in ascending
// account-number order so opposite-direction transfers cannot deadlock. Only
// the source's state is checked.
func (s *Service) Transfer(ctx context.Context, source, dest string, amount decimal.Decimal, pin string) (*TransferReceipt, error) {
	const op = "Transfer"
	log := s.logger.With("op", op, "source", source, "destination", dest, "amount", amount.String())
	log.Debug("Transfer started")

	if err := money.ValidateAmount(amount); err != nil {
		log.Warn("Transfer failed: invalid amount", "error", err)
		return nil, err
	}
	if source == dest {
		log.Warn("Transfer failed: same account")
		return nil, domain.ErrSameAccount
	}

	var (
		receipt *TransferReceipt
		pending []recorded
	)
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		accounts, movements, err := repos(uow)
		if err != nil {
			return err
		}
		src, dst, err := lockPair(ctx, accounts, source, dest)
		if err != nil {
			return err
		}
		out, in, err := src.Transfer(dst, amount, pin, s.creds, s.now())
		if err != nil {
			return err
		}
		if err := persist(ctx, accounts, movements, src, out); err != nil {
			return err
		}
		if err := persist(ctx, accounts, movements, dst, in); err != nil {
			return err
		}
		receipt = &TransferReceipt{
			Source:             src.Number,
			Destination:        dst.Number,
			Amount:             amount,
			SourceBalance:      src.Balance,
			DestinationBalance: dst.Balance,
			OutMovementID:      out.ID,
			InMovementID:       in.ID,
			At:                 out.CreatedAt,
		}
		pending = append(pending, recorded{src.Number, out}, recorded{dst.Number, in})
		return nil
	})
	if err != nil {
		return nil, s.fail(log, op, err)
	}
	log.Info("Transfer successful",
		"source_balance", receipt.SourceBalance.String(),
		"destination_balance", receipt.DestinationBalance.String(),
	)
	s.publish(ctx, pending)
	return receipt, nil
}

// lockPair locks source and dest in ascending number order and returns them
// as (source, dest). A missing account is reported with its side.
func lockPair(ctx context.Context, accounts repository.AccountRepository, source, dest string) (src, dst *account.Account, err error) {
	first, second := source, dest
	if second < first {
		first, second = second, first
	}
	locked := make(map[string]*account.Account, 2)
	for _, number := range []string{first, second} {
		acc, err := accounts.GetForUpdate(ctx, number)
		if err != nil {
			side := "destination"
			if number == source {
				side = "source"
			}
			return nil, nil, fmt.Errorf("%s account %s: %w", side, number, err)
		}
		locked[number] = acc
	}
	return locked[source], locked[dest], nil
}

// ChangeCredential replaces the account's PIN.
func (s *Service) ChangeCredential(ctx context.Context, number, oldPIN, newPIN string) error {
	const op = "ChangeCredential"
	log := s.logger.With("op", op, "account", number)
	log.Debug("ChangeCredential started")

	var pending []recorded
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		accounts, movements, err := repos(uow)
		if err != nil {
			return err
		}
		acc, err := accounts.GetForUpdate(ctx, number)
		if err != nil {
			return err
		}
		mv, err := acc.ChangeCredential(oldPIN, newPIN, s.creds, s.now())
		if err != nil {
			return err
		}
		if err := persist(ctx, accounts, movements, acc, mv); err != nil {
			return err
		}
		pending = append(pending, recorded{acc.Number, mv})
		return nil
	})
	if err != nil {
		return s.fail(log, op, err)
	}
	log.Info("ChangeCredential successful")
	s.publish(ctx, pending)
	return nil
}

// LockAccount moves the account to LOCKED. An empty reason records the default one.
func (s *Service) LockAccount(ctx context.Context, number, reason string) error {
	const op = "LockAccount"
	log := s.logger.With("op", op, "account", number)
	log.Debug("LockAccount started")

	var pending []recorded
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		accounts, movements, err := repos(uow)
		if err != nil {
			return err
		}
		acc, err := accounts.GetForUpdate(ctx, number)
		if err != nil {
			return err
		}
		mv, err := acc.Lock(reason, s.now())
		if err != nil {
			return err
		}
		if err := persist(ctx, accounts, movements, acc, mv); err != nil {
			return err
		}
		pending = append(pending, recorded{acc.Number, mv})
		return nil
	})
	if err != nil {
		return s.fail(log, op, err)
	}
	log.Info("LockAccount successful", "reason", pending[0].movement.Description)
	s.publish(ctx, pending)
	return nil
}

// History returns the account's most recent movements, newest first. A
// non-positive limit means the default; limits above the maximum are capped.
func (s *Service) History(ctx context.Context, number string, limit int) ([]MovementView, error) {
	const op = "History"
	log := s.logger.With("op", op, "account", number)

	switch {
	case limit <= 0:
		limit = s.historyLimit
	case limit > s.historyMax:
		limit = s.historyMax
	}

	accounts, movements, err := repos(s.uow)
	if err != nil {
		return nil, s.fail(log, op, err)
	}
	acc, err := accounts.Get(ctx, number)
	if err != nil {
		return nil, s.fail(log, op, err)
	}
	list, err := movements.Recent(ctx, acc.ID, limit)
	if err != nil {
		return nil, s.fail(log, op, err)
	}
	out := make([]MovementView, 0, len(list))
	for _, m := range list {
		out = append(out, movementViewOf(m))
	}
	log.Debug("History successful", "count", len(out), "limit", limit)
	return out, nil
}

// GetBalance reads the committed balance without locking.
func (s *Service) GetBalance(ctx context.Context, number string) (decimal.Decimal, error) {
	view, err := s.getAccount(ctx, "GetBalance", number)
	if err != nil {
		return decimal.Zero, err
	}
	return view.Balance, nil
}

// GetAccount returns the public view of the account.
func (s *Service) GetAccount(ctx context.Context, number string) (*AccountView, error) {
	return s.getAccount(ctx, "GetAccount", number)
}

func (s *Service) getAccount(ctx context.Context, op, number string) (*AccountView, error) {
	log := s.logger.With("op", op, "account", number)
	accounts, err := s.uow.AccountRepository()
	if err != nil {
		return nil, s.fail(log, op, err)
	}
	acc, err := accounts.Get(ctx, number)
	if err != nil {
		return nil, s.fail(log, op, err)
	}
	return viewOf(acc), nil
}

// Receipt returns one movement of the account. A movement that belongs to
// another account is reported as not found.
func (s *Service) Receipt(ctx context.Context, number string, movementID uuid.UUID) (*MovementView, error) {
	const op = "Receipt"
	log := s.logger.With("op", op, "account", number, "movement", movementID)

	accounts, movements, err := repos(s.uow)
	if err != nil {
		return nil, s.fail(log, op, err)
	}
	acc, err := accounts.Get(ctx, number)
	if err != nil {
		return nil, s.fail(log, op, err)
	}
	m, err := movements.Get(ctx, movementID)
	if err != nil {
		return nil, s.fail(log, op, err)
	}
	if m.AccountID != acc.ID {
		log.Warn("Receipt failed: movement belongs to another account")
		return nil, domain.ErrMovementNotFound
	}
	view := movementViewOf(m)
	return &view, nil
}

// OpenAccount creates an ACTIVE account. A positive opening balance is
// recorded as a DEPOSIT movement.
func (s *Service) OpenAccount(ctx context.Context, req NewAccount) (*AccountView, error) {
	const op = "OpenAccount"
	log := s.logger.With("op", op, "account", req.Number)
	log.Debug("OpenAccount started")

	if err := account.ValidateNumber(req.Number); err != nil {
		log.Warn("OpenAccount failed: validation", "error", err)
		return nil, err
	}
	hash, err := s.creds.Hash(req.PIN)
	if err != nil {
		if domain.IsBusiness(err) {
			log.Warn("OpenAccount failed: credential", "error", err)
			return nil, err
		}
		return nil, s.fail(log, op, err)
	}
	at := s.now()
	acc, err := account.New().
		WithNumber(req.Number).
		WithHolder(req.Holder).
		WithBalance(req.InitialBalance).
		WithCredentialHash(hash).
		WithCreatedAt(at).
		WithUpdatedAt(at).
		Build()
	if err != nil {
		log.Warn("OpenAccount failed: validation", "error", err)
		return nil, err
	}

	var pending []recorded
	err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		accounts, movements, err := repos(uow)
		if err != nil {
			return err
		}
		if err := accounts.Create(ctx, acc); err != nil {
			return err
		}
		if mv := acc.OpeningDeposit(at); mv != nil {
			if err := movements.Append(ctx, mv); err != nil {
				return err
			}
			pending = append(pending, recorded{acc.Number, mv})
		}
		return nil
	})
	if err != nil {
		return nil, s.fail(log, op, err)
	}
	log.Info("OpenAccount successful", "id", acc.ID, "balance", acc.Balance.String())
	s.publish(ctx, pending)
	return viewOf(acc), nil
}

// Authenticate checks a PIN for login. A missing account and a wrong PIN both
// yield ErrInvalidCredential, and a missing account still pays for one bcrypt
// comparison at the configured cost so response times do not reveal which
// accounts exist.
func (s *Service) Authenticate(ctx context.Context, number, pin string) (*AccountView, error) {
	const op = "Authenticate"
	log := s.logger.With("op", op, "account", number)

	accounts, err := s.uow.AccountRepository()
	if err != nil {
		return nil, s.fail(log, op, err)
	}
	acc, err := accounts.Get(ctx, number)
	if err != nil {
		if domain.KindOf(err) != domain.KindNotFound {
			return nil, s.fail(log, op, err)
		}
		_ = s.creds.Verify(s.dummy(), pin)
		log.Warn("Authenticate failed", "error", domain.ErrInvalidCredential)
		return nil, domain.ErrInvalidCredential
	}
	if err := acc.Authorize(s.creds, pin); err != nil {
		log.Warn("Authenticate failed", "error", err)
		return nil, err
	}
	log.Info("Authenticate successful")
	return viewOf(acc), nil
}

func (s *Service) dummy() string {
	s.dummyOnce.Do(func() {
		h, err := s.creds.Hash(strings.Repeat("0", s.creds.Length()))
		if err == nil {
			s.dummyHash = h
		}
	})
	return s.dummyHash
}

// Ping reports whether the store is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.uow.Ping(ctx)
}

func repos(uow repository.UnitOfWork) (repository.AccountRepository, repository.MovementRepository, error) {
	accounts, err := uow.AccountRepository()
	if err != nil {
		return nil, nil, err
	}
	movements, err := uow.MovementRepository()
	if err != nil {
		return nil, nil, err
	}
	return accounts, movements, nil
}

// persist writes the account row and appends its movement.
func persist(
	ctx context.Context,
	accounts repository.AccountRepository,
	movements repository.MovementRepository,
	acc *account.Account,
	mv *account.Movement,
) error {
	if err := accounts.Update(ctx, acc); err != nil {
		return err
	}
	return movements.Append(ctx, mv)
}

// fail passes business errors through and replaces anything else with the
// opaque storage fault, logging the cause.
func (s *Service) fail(log *slog.Logger, op string, err error) error {
	if domain.IsBusiness(err) {
		log.Warn(op+" failed", "error", err, "kind", domain.KindOf(err).String())
		return err
	}
	log.Error(op+" failed: storage fault", "error", err)
	return fmt.Errorf("%s: %w", op, domain.ErrStorageFault)
}

// publish announces committed movements. Failures are logged and never
// change the outcome of the operation.
func (s *Service) publish(ctx context.Context, pending []recorded) {
	if s.bus == nil {
		return
	}
	for _, r := range pending {
		evt := events.NewMovementRecorded(r.number, r.movement)
		if err := s.bus.Emit(ctx, evt); err != nil {
			s.logger.Warn("Publishing movement failed",
				"account", r.number,
				"movement", r.movement.ID,
				"error", err,
			)
		}
	}
}
