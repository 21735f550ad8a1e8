// Package memory is an in-process implementation of the storage contracts,
// used by tests and by the server when no database is configured.
//
// It reproduces the locking semantics of the Postgres store: GetForUpdate takes
// a per-account mutex that is held until the unit of work ends, writes are
// staged and become visible to other callers only at commit, and a failed or
// panicking unit of work leaves the committed state untouched.
package memory

import (
	"sort"
	"sync"

	"github.com/amirasaad/vatm/pkg/domain/account"
	"github.com/google/uuid"
)

// Store holds committed accounts and movements.
type Store struct {
	mu        sync.RWMutex
	accounts  map[string]*account.Account
	numbers   map[uuid.UUID]string
	movements map[uuid.UUID]*account.Movement
	byAccount map[uuid.UUID][]*account.Movement
	rowLocks  map[string]*sync.Mutex
	seq       int64
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		accounts:  make(map[string]*account.Account),
		numbers:   make(map[uuid.UUID]string),
		movements: make(map[uuid.UUID]*account.Movement),
		byAccount: make(map[uuid.UUID][]*account.Movement),
		rowLocks:  make(map[string]*sync.Mutex),
	}
}

func (s *Store) rowLock(number string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.rowLocks[number]
	if !ok {
		l = &sync.Mutex{}
		s.rowLocks[number] = l
	}
	return l
}

func (s *Store) account(number string) (*account.Account, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[number]
	return a.Clone(), ok
}

func (s *Store) accountByID(id uuid.UUID) (*account.Account, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	number, ok := s.numbers[id]
	if !ok {
		return nil, false
	}
	return s.accounts[number].Clone(), true
}

func (s *Store) exists(number string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.accounts[number]
	return ok
}

func (s *Store) movement(id uuid.UUID) (*account.Movement, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.movements[id]
	if !ok {
		return nil, false
	}
	c := *m
	return &c, true
}

func (s *Store) recent(accountID uuid.UUID, limit int) []*account.Movement {
	s.mu.RLock()
	list := append([]*account.Movement(nil), s.byAccount[accountID]...)
	s.mu.RUnlock()

	sort.SliceStable(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.After(list[j].CreatedAt)
		}
		return list[i].Seq > list[j].Seq
	})
	if limit >= 0 && len(list) > limit {
		list = list[:limit]
	}
	out := make([]*account.Movement, len(list))
	for i, m := range list {
		c := *m
		out[i] = &c
	}
	return out
}
