package roulette

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"cinesorte/apperr"
	"cinesorte/catalog"
	"cinesorte/logging"
)

// State is the phase of a Session.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateError
	StateReady
	StateSpinning
	StateSelected
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateError:
		return "error"
	case StateReady:
		return "ready"
	case StateSpinning:
		return "spinning"
	case StateSelected:
		return "selected"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

var (
	// ErrNotReady is returned by Spin when no pool is loaded or a spin is
	// already running.
	ErrNotReady = errors.New("roulette: no pool ready to spin")
	// ErrSuperseded is returned by an operation whose pool was replaced by a
	// newer Load while it ran. Its result was discarded.
	ErrSuperseded = errors.New("roulette: superseded by a newer load")
)

// Discoverer produces the candidate pool for a media kind and filter set.
type Discoverer interface {
	Discover(ctx context.Context, kind catalog.MediaKind, filters catalog.FilterSet) ([]catalog.Candidate, error)
}

// ProviderFetcher looks up where a title can be streamed.
type ProviderFetcher interface {
	Providers(ctx context.Context, kind catalog.MediaKind, id int) ([]catalog.Provider, error)
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Session drives one user's roulette: load a pool, spin, show the pick and
// its providers. It is safe for concurrent use; a Load issued while another
// is in flight wins and the older result is dropped.
type Session struct {
	discoverer Discoverer
	providers  ProviderFetcher
	selector   *Selector
	spinDelay  time.Duration
	sleep      SleepFunc

	mu       sync.Mutex
	state    State
	gen      uint64
	kind     catalog.MediaKind
	poolKey  string
	pool     []catalog.Candidate
	history  History
	selected *catalog.Candidate
	provs    []catalog.Provider
	err      error
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithSpinDelay sets how long a spin animates before revealing the pick.
func WithSpinDelay(d time.Duration) SessionOption {
	return func(s *Session) { s.spinDelay = d }
}

// WithSelector replaces the default selector.
func WithSelector(sel *Selector) SessionOption {
	return func(s *Session) { s.selector = sel }
}

// WithSleep replaces the timer used for the spin delay.
func WithSleep(fn SleepFunc) SessionOption {
	return func(s *Session) { s.sleep = fn }
}

// NewSession creates an idle session.
func NewSession(d Discoverer, p ProviderFetcher, opts ...SessionOption) *Session {
	s := &Session{
		discoverer: d,
		providers:  p,
		selector:   NewSelector(),
		spinDelay:  3 * time.Second,
		sleep:      SleepContext,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.history = s.selector.NewHistory()
	return s
}

// SleepContext is the default SleepFunc.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Load discovers a new pool. History survives a reload of the same kind and
// filters and is cleared otherwise. An empty discovery leaves the session
// in StateError with an EmptyResult error.
func (s *Session) Load(ctx context.Context, kind catalog.MediaKind, filters catalog.FilterSet) error {
	const op = "roulette.Load"
	log := logging.Ctx(ctx).With().Str("component", "roulette").Str("kind", string(kind)).Logger()

	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.state = StateLoading
	s.err = nil
	s.mu.Unlock()

	pool, err := s.discoverer.Discover(ctx, kind, filters)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		log.Debug().Uint64("generation", gen).Msg("Discarding superseded pool")
		return ErrSuperseded
	}
	if err == nil && len(pool) == 0 {
		err = apperr.EmptyResult(op)
	}
	if err != nil {
		s.state = StateError
		s.err = err
		s.pool = nil
		s.selected = nil
		s.provs = nil
		log.Warn().Err(err).Msg("Pool load failed")
		return err
	}

	key := filters.Key(kind)
	if key != s.poolKey {
		s.history = s.history.Reset()
	}
	s.kind = kind
	s.poolKey = key
	s.pool = pool
	s.selected = nil
	s.provs = nil
	s.state = StateReady
	log.Info().Int("candidates", len(pool)).Msg("Pool ready")
	return nil
}

// Spin waits out the spin delay, draws a candidate avoiding recent picks,
// then fetches its providers. A provider lookup failure is logged and
// leaves the providers empty; the pick stands.
func (s *Session) Spin(ctx context.Context) (catalog.Candidate, error) {
	log := logging.Ctx(ctx).With().Str("component", "roulette").Logger()

	s.mu.Lock()
	if s.state != StateReady && s.state != StateSelected {
		s.mu.Unlock()
		return catalog.Candidate{}, ErrNotReady
	}
	prev := s.state
	gen := s.gen
	s.state = StateSpinning
	s.mu.Unlock()

	if err := s.sleep(ctx, s.spinDelay); err != nil {
		s.mu.Lock()
		if gen == s.gen {
			s.state = prev
		}
		s.mu.Unlock()
		return catalog.Candidate{}, err
	}

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return catalog.Candidate{}, ErrSuperseded
	}
	chosen, history, err := s.selector.Pick(s.pool, s.history)
	if err != nil {
		s.state = prev
		s.mu.Unlock()
		return catalog.Candidate{}, err
	}
	s.history = history
	s.selected = &chosen
	s.provs = nil
	s.state = StateSelected
	kind := s.kind
	s.mu.Unlock()

	log.Info().Int("id", chosen.ID).Str("title", chosen.Title).Ints("history", history.IDs()).Msg("Spin selected")

	provs, err := s.providers.Providers(ctx, kind, chosen.ID)
	if err != nil {
		log.Warn().Err(err).Int("id", chosen.ID).Msg("Provider lookup failed")
		provs = []catalog.Provider{}
	}

	s.mu.Lock()
	if gen == s.gen && s.selected != nil && s.selected.ID == chosen.ID {
		s.provs = provs
	}
	s.mu.Unlock()
	return chosen, nil
}

// Reset returns the session to idle and forgets the pool and its history.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.state = StateIdle
	s.poolKey = ""
	s.pool = nil
	s.history = s.history.Reset()
	s.selected = nil
	s.provs = nil
	s.err = nil
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Pool returns a copy of the loaded candidates.
func (s *Session) Pool() []catalog.Candidate {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]catalog.Candidate, len(s.pool))
	copy(out, s.pool)
	return out
}

// Selected returns the last pick, if any.
func (s *Session) Selected() (catalog.Candidate, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected == nil {
		return catalog.Candidate{}, false
	}
	return *s.selected, true
}

// Providers returns the providers of the last pick.
func (s *Session) Providers() []catalog.Provider {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.provs
}

func (s *Session) History() History {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history
}

// Err returns the error of the last failed load.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}
