package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cinesorte/apperr"
	"cinesorte/catalog"
	"cinesorte/config"
	"cinesorte/notifier"
	"cinesorte/roulette"
	"cinesorte/storage"
)

type firstRand struct{}

func (firstRand) IntN(int) int { return 0 }

type fakeCatalog struct {
	pool         []catalog.Candidate
	discoverErr  error
	providerErr  error
	discoverArgs []catalog.FilterSet
}

func (f *fakeCatalog) Discover(_ context.Context, _ catalog.MediaKind, filters catalog.FilterSet) ([]catalog.Candidate, error) {
	f.discoverArgs = append(f.discoverArgs, filters)
	return f.pool, f.discoverErr
}

func (f *fakeCatalog) Providers(context.Context, catalog.MediaKind, int) ([]catalog.Provider, error) {
	if f.providerErr != nil {
		return nil, f.providerErr
	}
	return []catalog.Provider{{ID: 8, Name: "Netflix"}}, nil
}

type memPickStore struct {
	spins   map[string][]int
	readErr error
}

func (m *memPickStore) RecordSpin(_ context.Context, source string, c catalog.Candidate) error {
	if m.spins == nil {
		m.spins = map[string][]int{}
	}
	m.spins[source] = append([]int{c.ID}, m.spins[source]...)
	return nil
}

func (m *memPickStore) RecentSpinIDs(_ context.Context, source string, limit int) ([]int, error) {
	if m.readErr != nil {
		return nil, m.readErr
	}
	ids := m.spins[source]
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

type captureNotifier struct {
	picks []notifier.Pick
	err   error
}

func (c *captureNotifier) NotifyDailyPick(p notifier.Pick) error {
	c.picks = append(c.picks, p)
	return c.err
}

func candidates(ids ...int) []catalog.Candidate {
	out := make([]catalog.Candidate, 0, len(ids))
	for _, id := range ids {
		out = append(out, catalog.Candidate{ID: id, Title: "T", MediaKind: catalog.Movie})
	}
	return out
}

func newJob(cat *fakeCatalog, store PickStore, n Notifier) *DailyPickJob {
	sel := roulette.NewSelector(roulette.WithRand(firstRand{}))
	job := NewDailyPickJob(cat, cat, store, n, sel, catalog.Movie, catalog.DefaultFilters())
	job.now = func() time.Time { return time.Date(2024, 5, 10, 18, 0, 0, 0, time.UTC) }
	return job
}

func TestDailyPickAvoidsRecentPicksAcrossRuns(t *testing.T) {
	cat := &fakeCatalog{pool: candidates(1, 2, 3)}
	store := &memPickStore{}
	job := newJob(cat, store, nil)
	ctx := context.Background()

	var got []int
	for range 4 {
		p, err := job.Pick(ctx)
		require.NoError(t, err)
		got = append(got, p.Item.ID)
	}
	assert.Equal(t, []int{1, 2, 3, 1}, got)
	assert.Equal(t, []int{1, 3, 2, 1}, store.spins[job.Source()])
}

func TestDailyPickRun(t *testing.T) {
	cat := &fakeCatalog{pool: candidates(7)}
	n := &captureNotifier{}
	job := newJob(cat, &memPickStore{}, n)

	require.NoError(t, job.Run(context.Background()))
	require.Len(t, n.picks, 1)
	p := n.picks[0]
	assert.Equal(t, 7, p.Item.ID)
	assert.Equal(t, "Netflix", p.Providers[0].Name)
	assert.Equal(t, "nota 7+, até 150 min", p.Filters)
	assert.Equal(t, 2024, p.At.Year())

	n.err = errors.New("smtp down")
	assert.ErrorContains(t, job.Run(context.Background()), "smtp down")
}

func TestDailyPickEmptyPool(t *testing.T) {
	store := &memPickStore{}
	job := newJob(&fakeCatalog{}, store, &captureNotifier{})

	_, err := job.Pick(context.Background())
	assert.ErrorIs(t, err, apperr.ErrEmptyResult)
	assert.Empty(t, store.spins)
}

func TestDailyPickDiscoverFailure(t *testing.T) {
	boom := errors.New("tmdb down")
	n := &captureNotifier{}
	job := newJob(&fakeCatalog{discoverErr: boom}, &memPickStore{}, n)

	assert.ErrorIs(t, job.Run(context.Background()), boom)
	assert.Empty(t, n.picks)
}

func TestDailyPickDegradesOnProviderAndLogFailures(t *testing.T) {
	cat := &fakeCatalog{pool: candidates(1, 2), providerErr: errors.New("no providers")}
	store := &memPickStore{readErr: errors.New("locked")}
	job := newJob(cat, store, nil)

	p, err := job.Pick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, p.Item.ID)
	assert.Empty(t, p.Providers)
}

func TestDailyPickOverSQLite(t *testing.T) {
	db := storage.NewSQLiteStorage(t.TempDir(), 0)
	require.NoError(t, db.Initialize())
	t.Cleanup(func() { db.Close() })

	cat := &fakeCatalog{pool: candidates(1, 2)}
	ctx := context.Background()

	first, err := newJob(cat, db, nil).Pick(ctx)
	require.NoError(t, err)
	// A fresh job sees the previous run through the spin log.
	second, err := newJob(cat, db, nil).Pick(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, first.Item.ID)
	assert.Equal(t, 2, second.Item.ID)
}

func TestFiltersFromConfig(t *testing.T) {
	kind, f, err := FiltersFromConfig(config.DailyPickConfig{
		MediaKind:  "series",
		Genre:      18,
		MinRating:  8,
		MaxRuntime: 60,
		Keywords:   []int{9715},
	})
	require.NoError(t, err)
	assert.Equal(t, catalog.Series, kind)
	assert.Equal(t, 18, f.Genre)
	assert.Equal(t, catalog.SortPopularity, f.SortBy)
	assert.Equal(t, []catalog.Keyword{{ID: 9715}}, f.Keywords)

	_, _, err = FiltersFromConfig(config.DailyPickConfig{MediaKind: "podcast"})
	assert.Error(t, err)

	_, _, err = FiltersFromConfig(config.DailyPickConfig{MediaKind: "movie", MinRating: 11})
	assert.Error(t, err)
}
