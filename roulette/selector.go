// Package roulette draws one title at random from a pool while avoiding the
// titles drawn most recently.
package roulette

import (
	"errors"
	"math/rand/v2"
	"slices"

	"cinesorte/catalog"
)

// DefaultHistorySize is how many recent picks are remembered.
const DefaultHistorySize = 10

// ErrEmptyPool is returned when there is nothing to draw from.
var ErrEmptyPool = errors.New("roulette: empty candidate pool")

// Rand is the random source of a Selector. IntN returns a uniform value in
// [0, n); *rand.Rand satisfies it.
type Rand interface {
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

// History holds the ids of recent picks, most recent first. The zero value
// is an empty history with the default capacity.
type History struct {
	ids      []int
	capacity int
}

// NewHistory returns an empty history holding at most capacity ids.
func NewHistory(capacity int) History {
	if capacity <= 0 {
		capacity = DefaultHistorySize
	}
	return History{capacity: capacity}
}

// IDs returns a copy of the remembered ids, most recent first.
func (h History) IDs() []int { return slices.Clone(h.ids) }

// Len returns the number of remembered ids.
func (h History) Len() int { return len(h.ids) }

// Cap returns the capacity.
func (h History) Cap() int {
	if h.capacity <= 0 {
		return DefaultHistorySize
	}
	return h.capacity
}

// Contains reports whether id was picked recently.
func (h History) Contains(id int) bool { return slices.Contains(h.ids, id) }

// Record returns a new history with id prepended and the oldest entries
// beyond capacity dropped. h is not modified.
func (h History) Record(id int) History {
	n := min(len(h.ids)+1, h.Cap())
	ids := make([]int, 0, n)
	ids = append(ids, id)
	ids = append(ids, h.ids[:n-1]...)
	return History{ids: ids, capacity: h.Cap()}
}

// Reset returns an empty history with the same capacity.
func (h History) Reset() History { return History{capacity: h.Cap()} }

// Selector picks uniformly among the candidates not in history.
type Selector struct {
	rnd      Rand
	capacity int
}

// Option configures a Selector.
type Option func(*Selector)

// WithRand injects the random source, mainly for tests.
func WithRand(r Rand) Option {
	return func(s *Selector) { s.rnd = r }
}

// WithCapacity sets the capacity of histories created by NewHistory.
func WithCapacity(n int) Option {
	return func(s *Selector) { s.capacity = n }
}

// NewSelector creates a selector backed by the global math/rand/v2 source
// unless WithRand is given.
func NewSelector(opts ...Option) *Selector {
	s := &Selector{rnd: globalRand{}, capacity: DefaultHistorySize}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewHistory returns an empty history sized for this selector.
func (s *Selector) NewHistory() History { return NewHistory(s.capacity) }

// Pick draws one candidate uniformly from those whose id is not in history.
// When every candidate is in history the history is cleared and the whole
// pool is eligible again. It returns the pick and the updated history;
// neither candidates nor history are modified.
func (s *Selector) Pick(candidates []catalog.Candidate, history History) (catalog.Candidate, History, error) {
	if len(candidates) == 0 {
		return catalog.Candidate{}, history, ErrEmptyPool
	}

	available := make([]catalog.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if !history.Contains(c.ID) {
			available = append(available, c)
		}
	}
	if len(available) == 0 {
		available = candidates
		history = history.Reset()
	}

	chosen := available[s.rnd.IntN(len(available))]
	return chosen, history.Record(chosen.ID), nil
}
