package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cinesorte/apperr"
	"cinesorte/catalog"
	"cinesorte/config"
)

// flakyFetcher fails the movie list until failMovie calls have been made.
type flakyFetcher struct {
	mu         sync.Mutex
	movieCalls int
	failMovie  int
	times      []time.Time
}

func (f *flakyFetcher) Genres(_ context.Context, kind catalog.MediaKind) ([]catalog.Genre, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if kind == catalog.Series {
		return []catalog.Genre{{ID: 18, Name: "Drama"}}, nil
	}
	f.movieCalls++
	f.times = append(f.times, time.Now())
	if f.movieCalls <= f.failMovie {
		return nil, apperr.Network("catalog.Genres", errors.New("unreachable"))
	}
	return []catalog.Genre{{ID: 28, Name: "Ação"}}, nil
}

func TestLoadGivesUpAfterMaxAttempts(t *testing.T) {
	f := &flakyFetcher{failMovie: 100}
	l := NewLoader(f, 5*time.Millisecond, 5)

	_, err := l.Load(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrBootstrap)
	assert.ErrorIs(t, err, apperr.ErrNetwork)
	assert.Equal(t, 5, l.Attempts())
	assert.Equal(t, 5, f.movieCalls)

	// constant spacing, no growth
	for i := 1; i < len(f.times); i++ {
		gap := f.times[i].Sub(f.times[i-1])
		assert.GreaterOrEqual(t, gap, 5*time.Millisecond)
		assert.Less(t, gap, 500*time.Millisecond)
	}
}

func TestLoadSucceedsAfterRetries(t *testing.T) {
	f := &flakyFetcher{failMovie: 2}
	l := NewLoader(f, time.Millisecond, 5)

	g, err := l.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, l.Attempts())
	assert.Equal(t, "Ação", g.Name(catalog.Movie, 28))
	assert.Equal(t, "Drama", g.Name(catalog.Series, 18))
	assert.Equal(t, "", g.Name(catalog.Series, 28))
	assert.Len(t, g.For(catalog.Series), 1)
}

func TestLoadStopsOnCancel(t *testing.T) {
	f := &flakyFetcher{failMovie: 100}
	l := NewLoader(f, time.Hour, 5)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := l.Load(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, l.Attempts())
}

func TestNewLoaderDefaults(t *testing.T) {
	l := NewLoader(&flakyFetcher{}, 0, 0)
	assert.Equal(t, DefaultDelay, l.delay)
	assert.Equal(t, DefaultMaxAttempts, l.maxAttempts)
}

func TestLoadOverCatalogClientOutlastsOutage(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) <= 6 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"genres":[{"id":28,"name":"Ação"},{"id":18,"name":"Drama"}]}`)
	}))
	t.Cleanup(srv.Close)

	client, err := catalog.NewClient(config.TMDBConfig{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)

	l := NewLoader(client, 10*time.Millisecond, 5)
	g, err := l.Load(context.Background())
	require.NoError(t, err)
	assert.LessOrEqual(t, l.Attempts(), 5)
	assert.Equal(t, "Ação", g.Name(catalog.Movie, 28))
	assert.Equal(t, "Drama", g.Name(catalog.Series, 18))
}
