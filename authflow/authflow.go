// Package authflow correlates user authorization round-trips with the turn
// that requested them. Entries are keyed by a random correlation token and
// expire after a fixed TTL; an abandoned flow simply ages out.
package authflow

import (
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

// DefaultTTL is how long a pending flow stays claimable.
const DefaultTTL = 10 * time.Minute

// ErrFlowNotFound is returned when a token is unknown or has expired.
var ErrFlowNotFound = errors.New("authorization flow not found or expired")

// Flow is the state parked while the user completes authorization out of
// band.
type Flow struct {
	ChatID    string
	ToolName  string
	Arguments string
	CreatedAt time.Time
}

type entry struct {
	flow     Flow
	deadline time.Time
}

// Store is an expiring correlation-token store. Safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	entries map[string]entry
	ttl     time.Duration
	// nowFn is swappable in tests.
	nowFn func() time.Time
}

// NewStore returns a Store with the default TTL.
func NewStore() *Store {
	return &Store{
		entries: make(map[string]entry),
		ttl:     DefaultTTL,
		nowFn:   time.Now,
	}
}

// WithTTL overrides the entry TTL.
func (s *Store) WithTTL(ttl time.Duration) *Store {
	s.ttl = ttl
	return s
}

// Begin parks a flow and returns its correlation token.
func (s *Store) Begin(flow Flow) string {
	token := uuid.NewString()
	now := s.nowFn()
	flow.CreatedAt = now

	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeLocked(now)
	s.entries[token] = entry{
		flow:     flow,
		deadline: now.Add(s.ttl),
	}
	return token
}

// Claim removes and returns the flow for a token. A token can be claimed at
// most once.
func (s *Store) Claim(token string) (Flow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[token]
	if !ok || s.nowFn().After(e.deadline) {
		delete(s.entries, token)
		return Flow{}, errors.WithStack(ErrFlowNotFound)
	}
	delete(s.entries, token)
	return e.flow, nil
}

// Pending returns the number of unexpired flows.
func (s *Store) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeLocked(s.nowFn())
	return len(s.entries)
}

func (s *Store) purgeLocked(now time.Time) {
	for token, e := range s.entries {
		if now.After(e.deadline) {
			delete(s.entries, token)
		}
	}
}
