package scheduler

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"cinesorte/apperr"
	"cinesorte/catalog"
	"cinesorte/config"
	"cinesorte/logging"
	"cinesorte/notifier"
	"cinesorte/roulette"
)

// PickStore keeps the log of past picks so a job does not repeat itself
// across runs.
type PickStore interface {
	RecordSpin(ctx context.Context, source string, c catalog.Candidate) error
	RecentSpinIDs(ctx context.Context, source string, limit int) ([]int, error)
}

// Notifier announces a pick.
type Notifier interface {
	NotifyDailyPick(p notifier.Pick) error
}

// DailyPickJob spins the roulette once per run with a fixed filter set and
// announces the result.
type DailyPickJob struct {
	discoverer roulette.Discoverer
	providers  roulette.ProviderFetcher
	store      PickStore
	notifier   Notifier
	selector   *roulette.Selector
	kind       catalog.MediaKind
	filters    catalog.FilterSet
	now        func() time.Time
	log        zerolog.Logger
}

// NewDailyPickJob creates the job. n may be nil to only record picks.
func NewDailyPickJob(d roulette.Discoverer, p roulette.ProviderFetcher, store PickStore, n Notifier, sel *roulette.Selector, kind catalog.MediaKind, filters catalog.FilterSet) *DailyPickJob {
	if sel == nil {
		sel = roulette.NewSelector()
	}
	return &DailyPickJob{
		discoverer: d,
		providers:  p,
		store:      store,
		notifier:   n,
		selector:   sel,
		kind:       kind,
		filters:    filters,
		now:        time.Now,
		log:        logging.With("daily_pick"),
	}
}

// Name returns the job name
func (j *DailyPickJob) Name() string {
	return "daily_pick"
}

// Source is the spin log key of this job's filter set.
func (j *DailyPickJob) Source() string {
	return "daily:" + j.filters.Key(j.kind)
}

// Pick discovers the pool, picks a title not chosen in recent runs and
// records it. Missing providers do not fail the pick.
func (j *DailyPickJob) Pick(ctx context.Context) (notifier.Pick, error) {
	const op = "scheduler.DailyPick"
	log := j.log.With().Str("request_id", logging.RequestID(ctx)).Logger()

	pool, err := j.discoverer.Discover(ctx, j.kind, j.filters)
	if err != nil {
		return notifier.Pick{}, err
	}
	if len(pool) == 0 {
		return notifier.Pick{}, apperr.EmptyResult(op)
	}

	source := j.Source()
	history := j.selector.NewHistory()
	recent, err := j.store.RecentSpinIDs(ctx, source, history.Cap())
	if err != nil {
		log.Warn().Err(err).Msg("Could not read spin log, picking without history")
		recent = nil
	}
	for _, id := range slices.Backward(recent) {
		history = history.Record(id)
	}

	item, _, err := j.selector.Pick(pool, history)
	if err != nil {
		return notifier.Pick{}, fmt.Errorf("%s: %w", op, err)
	}

	kind := item.MediaKind
	if kind == "" {
		kind = j.kind
	}
	providers, err := j.providers.Providers(ctx, kind, item.ID)
	if err != nil {
		log.Warn().Err(err).Int("id", item.ID).Msg("Could not load providers")
		providers = nil
	}

	if err := j.store.RecordSpin(ctx, source, item); err != nil {
		return notifier.Pick{}, err
	}

	log.Info().Int("pool", len(pool)).Int("id", item.ID).Str("title", item.Title).Int("providers", len(providers)).Msg("Daily pick chosen")
	return notifier.Pick{
		Item:      item,
		Providers: providers,
		Filters:   DescribeFilters(j.filters),
		At:        j.now(),
	}, nil
}

// Run picks and notifies.
func (j *DailyPickJob) Run(ctx context.Context) error {
	p, err := j.Pick(ctx)
	if err != nil {
		return err
	}
	if j.notifier == nil {
		return nil
	}
	if err := j.notifier.NotifyDailyPick(p); err != nil {
		return fmt.Errorf("failed to notify daily pick: %w", err)
	}
	return nil
}

// FiltersFromConfig builds the job's media kind and filter set.
func FiltersFromConfig(cfg config.DailyPickConfig) (catalog.MediaKind, catalog.FilterSet, error) {
	kind, err := catalog.ParseMediaKind(cfg.MediaKind)
	if err != nil {
		return "", catalog.FilterSet{}, err
	}
	f := catalog.DefaultFilters()
	f.Genre = cfg.Genre
	f.MinRating = cfg.MinRating
	f.MaxRuntime = cfg.MaxRuntime
	for _, id := range cfg.Keywords {
		f.Keywords = append(f.Keywords, catalog.Keyword{ID: id})
	}
	if err := f.Validate(); err != nil {
		return "", catalog.FilterSet{}, err
	}
	return kind, f, nil
}

// DescribeFilters renders a short pt-BR summary of f.
func DescribeFilters(f catalog.FilterSet) string {
	var parts []string
	if f.MinRating > 0 {
		parts = append(parts, fmt.Sprintf("nota %g+", f.MinRating))
	}
	if f.MaxRuntime > 0 {
		parts = append(parts, fmt.Sprintf("até %d min", f.MaxRuntime))
	}
	if f.ReleaseYear > 0 {
		parts = append(parts, fmt.Sprintf("de %d", f.ReleaseYear))
	}
	if f.ExcludeAnimation {
		parts = append(parts, "sem animação")
	}
	return strings.Join(parts, ", ")
}
