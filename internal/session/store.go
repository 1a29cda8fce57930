// Package session holds pending expenses: at most one in-flight candidate
// expense per user, between the moment an amount is recognized and the moment
// it is committed, cancelled or expires.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when a user has no live pending expense.
	ErrNotFound = errors.New("pending expense not found")
	// ErrStale is returned when a write targets a pending expense that has
	// since been replaced.
	ErrStale = errors.New("pending expense was replaced")
)

// State is the conversation state of a pending expense.
type State int

// Pending expense states. Idle is represented by the absence of an entry.
const (
	StateAwaitingCategory State = iota + 1
	StateAwaitingDescription
	StateAwaitingConfirmation
)

func (s State) String() string {
	switch s {
	case StateAwaitingCategory:
		return "awaiting_category"
	case StateAwaitingDescription:
		return "awaiting_description"
	case StateAwaitingConfirmation:
		return "awaiting_confirmation"
	default:
		return "unknown"
	}
}

// PendingExpense is a captured expense that has not been committed yet.
type PendingExpense struct {
	UserID          int64
	ChatID          int64
	Amount          decimal.Decimal
	Description     string
	SourceReference string
	State           State

	// Version identifies this entry instance. It changes only when the entry
	// is replaced through Set, never on in-place updates.
	Version   uint64
	CreatedAt time.Time
	UpdatedAt time.Time
	ExpiresAt time.Time
}

// AwaitingDescription reports whether the entry still needs a concept.
func (p PendingExpense) AwaitingDescription() bool {
	return p.State == StateAwaitingDescription
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

// Store is an in-memory, TTL-bounded map from user id to pending expense.
type Store struct {
	mu          sync.Mutex
	entries     map[int64]*PendingExpense
	locks       map[int64]*userLock
	ttl         time.Duration
	now         func() time.Time
	lastVersion uint64
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore creates a store whose entries expire ttl after their last write.
func NewStore(ttl time.Duration, opts ...Option) *Store {
	s := &Store{
		entries: make(map[int64]*PendingExpense),
		locks:   make(map[int64]*userLock),
		ttl:     ttl,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Lock serializes the handling of events for one user and returns the unlock
// function. Events for different users never block each other.
func (s *Store) Lock(userID int64) func() {
	s.mu.Lock()
	l, ok := s.locks[userID]
	if !ok {
		l = &userLock{}
		s.locks[userID] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Unlock()

			s.mu.Lock()
			l.refs--
			if l.refs == 0 {
				delete(s.locks, userID)
			}
			s.mu.Unlock()
		})
	}
}

// Set stores p as the user's pending expense, replacing any previous entry,
// and returns the stored copy with its new version.
func (s *Store) Set(p PendingExpense) PendingExpense {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.lastVersion++

	p.Version = s.lastVersion
	p.CreatedAt = now
	p.UpdatedAt = now
	p.ExpiresAt = now.Add(s.ttl)

	stored := p
	s.entries[p.UserID] = &stored
	return stored
}

// Get returns the user's live pending expense. Expired entries are absent.
func (s *Store) Get(userID int64) (PendingExpense, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.liveLocked(userID)
	if !ok {
		return PendingExpense{}, false
	}
	return *p, true
}

// Version returns the version of the user's live entry, or 0 when there is none.
func (s *Store) Version(userID int64) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.liveLocked(userID); ok {
		return p.Version
	}
	return 0
}

// Update mutates the user's entry in place when its version still matches.
// Updates refresh the expiry but keep the version.
func (s *Store) Update(userID int64, version uint64, fn func(*PendingExpense)) (PendingExpense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.liveLocked(userID)
	if !ok {
		return PendingExpense{}, ErrNotFound
	}
	if p.Version != version {
		return PendingExpense{}, ErrStale
	}

	fn(p)

	now := s.now()
	p.UserID = userID
	p.Version = version
	p.UpdatedAt = now
	p.ExpiresAt = now.Add(s.ttl)
	return *p, nil
}

// Delete removes the user's pending expense and reports whether one existed.
func (s *Store) Delete(userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.liveLocked(userID)
	delete(s.entries, userID)
	return ok
}

// Sweep evicts every entry expired at now and returns how many were removed.
func (s *Store) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, p := range s.entries {
		if !now.Before(p.ExpiresAt) {
			delete(s.entries, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored entries, including expired ones not yet swept.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *Store) liveLocked(userID int64) (*PendingExpense, bool) {
	p, ok := s.entries[userID]
	if !ok {
		return nil, false
	}
	if !s.now().Before(p.ExpiresAt) {
		delete(s.entries, userID)
		return nil, false
	}
	return p, true
}
