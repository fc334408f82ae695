package form

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kartoza/boston-price/internal/features"
)

// ErrSessionNotFound is returned for an unknown or evicted session id
var ErrSessionNotFound = errors.New("session not found")

// PredictFunc asks the prediction service for a price
type PredictFunc func(ctx context.Context, inputs features.InputVector) (float64, error)

type session struct {
	state   State
	touched time.Time
}

// Store keeps one form per browser session in memory. Nothing is written to
// disk; a page load starts a new session.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*session
	ttl      time.Duration
	now      func() time.Time
}

// NewStore creates a store that evicts sessions idle for longer than ttl.
// A zero ttl keeps sessions until they are deleted.
func NewStore(ttl time.Duration) *Store {
	return &Store{
		sessions: make(map[string]*session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Create starts a new all-zero form and returns its id
func (s *Store) Create() (string, State) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked()

	id := uuid.New().String()
	st := New()
	s.sessions[id] = &session{state: st, touched: s.now()}
	return id, st
}

// Get returns the current state of a session
func (s *Store) Get(id string) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return State{}, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	sess.touched = s.now()
	return sess.state, nil
}

// Update applies fn to a session's state. When fn fails the session is left
// as it was.
func (s *Store) Update(id string, fn func(State) (State, error)) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return State{}, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	next, err := fn(sess.state)
	if err != nil {
		return sess.state, err
	}
	sess.state = next
	sess.touched = s.now()
	return next, nil
}

// Delete removes a session
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// Len returns the number of live sessions
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Predict runs one prediction for a session. The lock is not held while
// predict runs, so field edits stay possible during the call. On failure
// the previous price is kept and the error from predict is returned along
// with the state.
func (s *Store) Predict(ctx context.Context, id string, predict PredictFunc) (State, error) {
	st, err := s.Update(id, BeginPredict)
	if err != nil {
		return st, err
	}

	price, perr := predict(ctx, st.Inputs)

	st, err = s.Update(id, func(cur State) (State, error) {
		if perr != nil {
			return FailPredict(cur), nil
		}
		return FinishPredict(cur, price), nil
	})
	if err != nil {
		return st, err
	}
	return st, perr
}

// sweepLocked drops idle sessions; callers hold s.mu
func (s *Store) sweepLocked() {
	if s.ttl <= 0 {
		return
	}
	cutoff := s.now().Add(-s.ttl)
	for id, sess := range s.sessions {
		if sess.state.InFlight {
			continue
		}
		if sess.touched.Before(cutoff) {
			delete(s.sessions, id)
		}
	}
}
