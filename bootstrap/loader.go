// Package bootstrap loads the reference data the roulette needs before the
// first spin.
package bootstrap

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/errgroup"

	"cinesorte/apperr"
	"cinesorte/catalog"
	"cinesorte/logging"
)

const (
	DefaultDelay       = 3 * time.Second
	DefaultMaxAttempts = 5
)

// GenreFetcher returns the genre list of a media kind.
type GenreFetcher interface {
	Genres(ctx context.Context, kind catalog.MediaKind) ([]catalog.Genre, error)
}

// Genres holds the genre lists of both media kinds.
type Genres struct {
	Movie  []catalog.Genre
	Series []catalog.Genre
}

// For returns the list for kind.
func (g Genres) For(kind catalog.MediaKind) []catalog.Genre {
	if kind == catalog.Series {
		return g.Series
	}
	return g.Movie
}

// Name looks up a genre name by id in the list of kind.
func (g Genres) Name(kind catalog.MediaKind, id int) string {
	for _, genre := range g.For(kind) {
		if genre.ID == id {
			return genre.Name
		}
	}
	return ""
}

// Loader fetches both genre lists, retrying the pair with a constant delay.
type Loader struct {
	fetcher     GenreFetcher
	delay       time.Duration
	maxAttempts int
	attempts    atomic.Int64
}

// NewLoader creates a loader. Non-positive arguments use the defaults.
func NewLoader(f GenreFetcher, delay time.Duration, maxAttempts int) *Loader {
	if delay <= 0 {
		delay = DefaultDelay
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Loader{fetcher: f, delay: delay, maxAttempts: maxAttempts}
}

// Load fetches the genre lists. After maxAttempts consecutive failures it
// returns a Bootstrap error wrapping the last failure. A cancelled ctx stops
// retrying and returns ctx.Err().
func (l *Loader) Load(ctx context.Context) (Genres, error) {
	const op = "bootstrap.Load"
	log := logging.Ctx(ctx).With().Str("component", "bootstrap").Logger()
	l.attempts.Store(0)

	backoff := retry.WithMaxRetries(uint64(l.maxAttempts-1), retry.NewConstant(l.delay))

	var out Genres
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		n := l.attempts.Add(1)
		g, err := l.fetch(ctx)
		if err != nil {
			log.Warn().Err(err).Int64("attempt", n).Int("max_attempts", l.maxAttempts).Msg("Genre load failed")
			return retry.RetryableError(err)
		}
		out = g
		return nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Genres{}, ctxErr
		}
		return Genres{}, apperr.Bootstrap(op, l.Attempts(), err)
	}

	log.Info().Int("movie_genres", len(out.Movie)).Int("tv_genres", len(out.Series)).Msg("Genres loaded")
	return out, nil
}

func (l *Loader) fetch(ctx context.Context) (Genres, error) {
	var g Genres
	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		g.Movie, err = l.fetcher.Genres(ctx, catalog.Movie)
		return err
	})
	eg.Go(func() error {
		var err error
		g.Series, err = l.fetcher.Genres(ctx, catalog.Series)
		return err
	})
	return g, eg.Wait()
}

// Attempts returns how many attempts the last Load made.
func (l *Loader) Attempts() int { return int(l.attempts.Load()) }
