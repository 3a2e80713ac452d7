// Package search turns a stream of keystrokes into at most one catalog
// search per pause in typing.
package search

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"cinesorte/catalog"
	"cinesorte/logging"
)

const (
	// DefaultDelay is the quiet window after the last keystroke.
	DefaultDelay = 500 * time.Millisecond
	// MaxResults is how many suggestions are kept.
	MaxResults = 7
)

// Searcher runs the actual query.
type Searcher interface {
	SearchMulti(ctx context.Context, query string) ([]catalog.Candidate, error)
}

// ResultFunc receives the outcome of a search that was not superseded.
// results is nil when the query was too short to search.
type ResultFunc func(query string, results []catalog.Candidate, err error)

// Debouncer fires a search once the user stops typing for the configured
// delay. Each keystroke invalidates the pending timer and cancels the
// request in flight; responses of superseded requests are dropped.
type Debouncer struct {
	searcher   Searcher
	delay      time.Duration
	maxResults int
	onResults  ResultFunc

	base context.Context
	stop context.CancelFunc

	// deliver orders callbacks; it is taken before mu, never after.
	deliver sync.Mutex

	mu     sync.Mutex
	token  uint64
	timer  *time.Timer
	cancel context.CancelFunc
	query  string
	result []catalog.Candidate
	err    error
	closed bool
}

type Option func(*Debouncer)

// WithMaxResults overrides MaxResults.
func WithMaxResults(n int) Option {
	return func(d *Debouncer) { d.maxResults = n }
}

// OnResults registers a callback run after every completed search that is
// still current. fn must not call Type.
func OnResults(fn ResultFunc) Option {
	return func(d *Debouncer) { d.onResults = fn }
}

// NewDebouncer creates a debouncer. A non-positive delay uses DefaultDelay.
func NewDebouncer(s Searcher, delay time.Duration, opts ...Option) *Debouncer {
	if delay <= 0 {
		delay = DefaultDelay
	}
	base, stop := context.WithCancel(context.Background())
	d := &Debouncer{
		searcher:   s,
		delay:      delay,
		maxResults: MaxResults,
		base:       base,
		stop:       stop,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Type records the current contents of the search box.
func (d *Debouncer) Type(query string) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.token++
	tok := d.token
	d.stopPendingLocked()
	d.query = query

	q := strings.TrimSpace(query)
	if utf8.RuneCountInString(q) < catalog.MinQueryLength {
		d.result = nil
		d.err = nil
		d.mu.Unlock()
		d.notify(tok, query, nil, nil)
		return
	}
	d.timer = time.AfterFunc(d.delay, func() { d.fire(tok, q) })
	d.mu.Unlock()
}

func (d *Debouncer) stopPendingLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
}

func (d *Debouncer) fire(tok uint64, q string) {
	d.mu.Lock()
	if tok != d.token || d.closed {
		d.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(logging.ContextWithRequestID(d.base))
	d.cancel = cancel
	d.timer = nil
	d.mu.Unlock()

	log := logging.Ctx(ctx)
	log.Debug().Str("query", q).Msg("Searching")
	results, err := d.searcher.SearchMulti(ctx, q)

	d.mu.Lock()
	if tok != d.token || d.closed {
		d.mu.Unlock()
		cancel()
		log.Debug().Str("query", q).Msg("Dropping superseded search")
		return
	}
	d.cancel = nil
	if len(results) > d.maxResults {
		results = results[:d.maxResults]
	}
	if err != nil {
		results = nil
	}
	d.result = results
	d.err = err
	d.mu.Unlock()
	cancel()

	if err != nil {
		log.Warn().Err(err).Str("query", q).Msg("Search failed")
	}
	d.notify(tok, q, results, err)
}

// notify runs the callback for tok unless a later Type superseded it.
// Callbacks never overlap, so the last one delivered is always the latest
// query's.
func (d *Debouncer) notify(tok uint64, q string, results []catalog.Candidate, err error) {
	d.deliver.Lock()
	defer d.deliver.Unlock()

	d.mu.Lock()
	current := tok == d.token && !d.closed
	cb := d.onResults
	d.mu.Unlock()
	if current && cb != nil {
		cb(q, results, err)
	}
}

// Query returns the last typed text.
func (d *Debouncer) Query() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.query
}

// Results returns the suggestions of the latest completed search.
func (d *Debouncer) Results() ([]catalog.Candidate, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.result, d.err
}

// Close cancels any pending or in-flight search. Later calls to Type are
// ignored.
func (d *Debouncer) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	d.stopPendingLocked()
	d.stop()
}
