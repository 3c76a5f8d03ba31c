// Package appstate keeps one explicit state object per browser session: its place list, map
// instances, modal visibility and pending timers.
package appstate

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"kesurge.org/kesurge-web/internal/listing"
	"kesurge.org/kesurge-web/internal/mapview"
	"kesurge.org/kesurge-web/internal/popup"
	"kesurge.org/kesurge-web/internal/timers"
)

// State is the application state of one session.
type State struct {
	ID      string
	Listing *listing.Controller
	Map     *mapview.Adapter
	Popup   *popup.Controller
	Timers  *timers.Group

	lastSeen time.Time
}

// Close stops pending timers and cancels in-flight loads.
func (s *State) Close() {
	s.Timers.Stop()
	s.Listing.Close()
}

// Factory builds the components of a fresh state.
type Factory func(id string) *State

// Store maps session ids to their state.
type Store struct {
	factory Factory
	idleTTL time.Duration
	logger  *zap.Logger
	now     func() time.Time

	mu     sync.Mutex
	states map[string]*State
	closed bool
}

// NewStore returns an empty store. States idle for longer than idleTTL are evicted by Sweep.
func NewStore(factory Factory, idleTTL time.Duration, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		factory: factory,
		idleTTL: idleTTL,
		logger:  logger,
		now:     time.Now,
		states:  map[string]*State{},
	}
}

// Get returns the state for id, creating it on first use. It returns nil after Close.
func (s *Store) Get(id string) *State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	st, ok := s.states[id]
	if !ok {
		st = s.factory(id)
		st.ID = id
		if st.Timers == nil {
			st.Timers = timers.NewGroup()
		}
		s.states[id] = st
		s.logger.Debug("session state created", zap.String("session", id))
	}
	st.lastSeen = s.now()
	return st
}

// Len returns the number of live states.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.states)
}

// Sweep evicts states idle for longer than the TTL and returns how many were removed.
func (s *Store) Sweep() int {
	s.mu.Lock()
	cutoff := s.now().Add(-s.idleTTL)
	var evicted []*State
	for id, st := range s.states {
		if st.lastSeen.Before(cutoff) {
			evicted = append(evicted, st)
			delete(s.states, id)
		}
	}
	s.mu.Unlock()

	for _, st := range evicted {
		st.Close()
	}
	if len(evicted) > 0 {
		s.logger.Info("evicted idle sessions", zap.Int("count", len(evicted)))
	}
	return len(evicted)
}

// Run sweeps every interval until ctx is done.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = s.idleTTL / 2
	}
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// Close tears down every state. Later Get calls return nil.
func (s *Store) Close() {
	s.mu.Lock()
	states := s.states
	s.states = map[string]*State{}
	s.closed = true
	s.mu.Unlock()

	for _, st := range states {
		st.Close()
	}
}
