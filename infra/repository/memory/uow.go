package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/amirasaad/vatm/pkg/domain"
	"github.com/amirasaad/vatm/pkg/domain/account"
	"github.com/amirasaad/vatm/pkg/repository"
	"github.com/google/uuid"
)

// tx is the staged state of one unit of work.
type tx struct {
	held      map[string]*sync.Mutex
	order     []string
	updated   map[string]*account.Account
	created   map[string]*account.Account
	movements []*account.Movement
	movIDs    map[uuid.UUID]struct{}
}

func newTx() *tx {
	return &tx{
		held:    make(map[string]*sync.Mutex),
		updated: make(map[string]*account.Account),
		created: make(map[string]*account.Account),
		movIDs:  make(map[uuid.UUID]struct{}),
	}
}

// release unlocks every row held by the unit of work, in reverse acquisition order.
func (t *tx) release() {
	for i := len(t.order) - 1; i >= 0; i-- {
		t.held[t.order[i]].Unlock()
	}
	t.held = nil
	t.order = nil
}

// UoW implements repository.UnitOfWork over a Store.
type UoW struct {
	store *Store
	tx    *tx
}

// NewUoW returns a unit of work over store.
func NewUoW(store *Store) *UoW {
	return &UoW{store: store}
}

// Do runs fn with a fresh transaction. Staged writes are applied only if fn
// returns nil; row locks are released afterwards in every case, including panics.
func (u *UoW) Do(_ context.Context, fn func(uow repository.UnitOfWork) error) error {
	if u.tx != nil {
		return fn(u)
	}
	t := newTx()
	defer t.release()

	if err := fn(&UoW{store: u.store, tx: t}); err != nil {
		return err
	}
	return u.store.commit(t)
}

func (u *UoW) AccountRepository() (repository.AccountRepository, error) {
	return &accountRepository{store: u.store, tx: u.tx}, nil
}

func (u *UoW) MovementRepository() (repository.MovementRepository, error) {
	return &movementRepository{store: u.store, tx: u.tx}, nil
}

func (u *UoW) Ping(context.Context) error { return nil }

// commit applies t atomically with respect to readers.
func (s *Store) commit(t *tx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for number := range t.created {
		if _, ok := s.accounts[number]; ok {
			return domain.ErrAccountExists
		}
	}
	for _, m := range t.movements {
		if _, ok := s.movements[m.ID]; ok {
			return domain.ErrMovementImmutable
		}
	}

	for number, a := range t.created {
		s.accounts[number] = a
		s.numbers[a.ID] = number
	}
	for number, a := range t.updated {
		s.accounts[number] = a
	}
	for _, m := range t.movements {
		s.seq++
		m.Seq = s.seq
		s.movements[m.ID] = m
		s.byAccount[m.AccountID] = append(s.byAccount[m.AccountID], m)
	}
	return nil
}

type accountRepository struct {
	store *Store
	tx    *tx
}

// Get reads committed state.
func (r *accountRepository) Get(_ context.Context, number string) (*account.Account, error) {
	a, ok := r.store.account(number)
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return a, nil
}

func (r *accountRepository) GetByID(_ context.Context, id uuid.UUID) (*account.Account, error) {
	a, ok := r.store.accountByID(id)
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return a, nil
}

// GetForUpdate blocks until the account's row lock is free, then holds it
// until the unit of work ends. Re-locking a row already held is a no-op. A
// number with no committed account takes no lock, like a SELECT FOR UPDATE
// that matches no row.
func (r *accountRepository) GetForUpdate(_ context.Context, number string) (*account.Account, error) {
	if r.tx == nil {
		return nil, repository.ErrNoTransaction
	}
	if _, held := r.tx.held[number]; !held {
		if !r.store.exists(number) {
			return nil, domain.ErrAccountNotFound
		}
		l := r.store.rowLock(number)
		l.Lock()
		r.tx.held[number] = l
		r.tx.order = append(r.tx.order, number)
	}
	if a, ok := r.tx.updated[number]; ok {
		return a.Clone(), nil
	}
	a, ok := r.store.account(number)
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return a, nil
}

func (r *accountRepository) Create(_ context.Context, a *account.Account) error {
	if r.tx == nil {
		return repository.ErrNoTransaction
	}
	if _, ok := r.tx.created[a.Number]; ok || r.store.exists(a.Number) {
		return domain.ErrAccountExists
	}
	r.tx.created[a.Number] = a.Clone()
	return nil
}

func (r *accountRepository) Update(_ context.Context, a *account.Account) error {
	if r.tx == nil {
		return repository.ErrNoTransaction
	}
	if c, ok := r.tx.created[a.Number]; ok {
		*c = *a
		return nil
	}
	if _, held := r.tx.held[a.Number]; !held {
		return fmt.Errorf("update %s: row is not locked by this unit of work", a.Number)
	}
	r.tx.updated[a.Number] = a.Clone()
	return nil
}

type movementRepository struct {
	store *Store
	tx    *tx
}

func (r *movementRepository) Append(_ context.Context, m *account.Movement) error {
	if r.tx == nil {
		return repository.ErrNoTransaction
	}
	if _, dup := r.tx.movIDs[m.ID]; dup {
		return domain.ErrMovementImmutable
	}
	if _, ok := r.store.movement(m.ID); ok {
		return domain.ErrMovementImmutable
	}
	c := *m
	r.tx.movements = append(r.tx.movements, &c)
	r.tx.movIDs[m.ID] = struct{}{}
	return nil
}

// Recent reads committed movements only.
func (r *movementRepository) Recent(_ context.Context, accountID uuid.UUID, limit int) ([]*account.Movement, error) {
	return r.store.recent(accountID, limit), nil
}

func (r *movementRepository) Get(_ context.Context, id uuid.UUID) (*account.Movement, error) {
	m, ok := r.store.movement(id)
	if !ok {
		return nil, domain.ErrMovementNotFound
	}
	return m, nil
}

var _ repository.UnitOfWork = (*UoW)(nil)
