package lists

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"cinesorte/catalog"
	"cinesorte/logging"
	"cinesorte/roulette"
)

// Selection is the outcome of a list spin.
type Selection struct {
	Item      catalog.Candidate
	Providers []catalog.Provider
}

// Manager keeps a cached copy of the user's lists and reloads it from the
// store after every write, so readers always see what the store holds.
type Manager struct {
	store     Store
	providers roulette.ProviderFetcher
	selector  *roulette.Selector
	maxItems  int
	spinDelay time.Duration
	sleep     roulette.SleepFunc
	log       zerolog.Logger

	mu         sync.Mutex
	lists      []NamedList
	active     string
	history    roulette.History
	historyFor string
}

type Option func(*Manager)

// WithMaxItems bounds every list to n titles. Zero means unbounded.
func WithMaxItems(n int) Option {
	return func(m *Manager) { m.maxItems = n }
}

func WithSelector(s *roulette.Selector) Option {
	return func(m *Manager) { m.selector = s }
}

func WithSpinDelay(d time.Duration) Option {
	return func(m *Manager) { m.spinDelay = d }
}

func WithSleep(fn roulette.SleepFunc) Option {
	return func(m *Manager) { m.sleep = fn }
}

// NewManager creates a manager. Call Refresh before reading.
func NewManager(store Store, providers roulette.ProviderFetcher, opts ...Option) *Manager {
	m := &Manager{
		store:     store,
		providers: providers,
		selector:  roulette.NewSelector(),
		spinDelay: 3 * time.Second,
		sleep:     roulette.SleepContext,
		log:       logging.With("lists"),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.history = m.selector.NewHistory()
	return m
}

// Refresh reloads the lists from the store. When the active list is gone
// the first list becomes active.
func (m *Manager) Refresh(ctx context.Context) error {
	all, err := m.store.ListAll(ctx)
	if err != nil {
		m.log.Warn().Err(err).Msg("Failed to load lists")
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.lists = all
	if _, ok := m.findLocked(m.active); !ok {
		m.active = ""
		if len(all) > 0 {
			m.active = all[0].Name
		}
	}
	return nil
}

func (m *Manager) findLocked(name string) (NamedList, bool) {
	for _, l := range m.lists {
		if l.Name == name {
			return l, true
		}
	}
	return NamedList{}, false
}

func (m *Manager) find(name string) (NamedList, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.findLocked(name)
}

// Lists returns the cached lists.
func (m *Manager) Lists() []NamedList {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.lists)
}

// Active returns the active list.
func (m *Manager) Active() (NamedList, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == "" {
		return NamedList{}, false
	}
	return m.findLocked(m.active)
}

// SetActive makes the named list the one Spin draws from.
func (m *Manager) SetActive(name string) error {
	const op = "lists.SetActive"
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.findLocked(name); !ok {
		return invalid(op, "Lista não encontrada.", ErrNotFound)
	}
	m.active = name
	return nil
}

// Create adds an empty list and makes it active.
func (m *Manager) Create(ctx context.Context, name string) error {
	const op = "lists.Create"
	name = strings.TrimSpace(name)
	if name == "" {
		return invalid(op, "O nome da lista não pode ser vazio.", ErrEmptyName)
	}
	if _, ok := m.find(name); ok {
		return invalid(op, "Já existe uma lista com esse nome.", ErrNameTaken)
	}
	if err := m.store.Save(ctx, name, []catalog.Candidate{}); err != nil {
		return err
	}
	if err := m.Refresh(ctx); err != nil {
		return err
	}
	m.log.Info().Str("list", name).Msg("List created")
	return m.SetActive(name)
}

// Add appends item to the named list. Duplicates and additions beyond the
// bound are rejected before anything is written.
func (m *Manager) Add(ctx context.Context, name string, item catalog.Candidate) error {
	const op = "lists.Add"
	l, ok := m.find(name)
	if !ok {
		return invalid(op, "Crie ou selecione uma lista primeiro.", ErrNotFound)
	}
	if l.Contains(item.ID) {
		return invalid(op, "Este título já está na lista.", ErrDuplicate)
	}
	if m.maxItems > 0 && len(l.Items) >= m.maxItems {
		return invalid(op, "A lista atingiu o limite de itens.", ErrListFull)
	}

	items := append(slices.Clone(l.Items), item)
	if err := m.store.Save(ctx, name, items); err != nil {
		return err
	}
	m.log.Debug().Str("list", name).Int("id", item.ID).Msg("Item added")
	return m.Refresh(ctx)
}

// Remove deletes one title from the named list.
func (m *Manager) Remove(ctx context.Context, name string, id int) error {
	if err := m.store.RemoveItem(ctx, name, id); err != nil {
		return err
	}
	return m.Refresh(ctx)
}

// Delete removes the named list.
func (m *Manager) Delete(ctx context.Context, name string) error {
	if err := m.store.Delete(ctx, name); err != nil {
		return err
	}
	m.mu.Lock()
	if m.active == name {
		m.active = ""
	}
	m.mu.Unlock()
	m.log.Info().Str("list", name).Msg("List deleted")
	return m.Refresh(ctx)
}

// Spin draws a title from the active list, avoiding the recent picks of that
// list, then looks up its providers.
func (m *Manager) Spin(ctx context.Context) (Selection, error) {
	const op = "lists.Spin"

	m.mu.Lock()
	l, ok := m.findLocked(m.active)
	if !ok || m.active == "" {
		m.mu.Unlock()
		return Selection{}, invalid(op, "Crie ou selecione uma lista primeiro.", ErrNoActiveList)
	}
	if len(l.Items) < MinSpinItems {
		m.mu.Unlock()
		return Selection{}, invalid(op, "A sua lista ativa precisa de pelo menos 2 itens para sortear.", ErrTooFewItems)
	}
	if m.historyFor != l.Name {
		m.history = m.history.Reset()
		m.historyFor = l.Name
	}
	m.mu.Unlock()

	if err := m.sleep(ctx, m.spinDelay); err != nil {
		return Selection{}, err
	}

	m.mu.Lock()
	// Another list may have been spun during the delay.
	base := m.selector.NewHistory()
	if m.historyFor == l.Name {
		base = m.history
	}
	chosen, history, err := m.selector.Pick(l.Items, base)
	if err != nil {
		m.mu.Unlock()
		return Selection{}, err
	}
	if m.historyFor == l.Name {
		m.history = history
	}
	m.mu.Unlock()

	kind := chosen.MediaKind
	if kind == "" {
		kind = catalog.Movie
	}
	provs, err := m.providers.Providers(ctx, kind, chosen.ID)
	if err != nil {
		m.log.Warn().Err(err).Int("id", chosen.ID).Msg("Provider lookup failed")
		provs = []catalog.Provider{}
	}
	m.log.Info().Str("list", l.Name).Int("id", chosen.ID).Str("title", chosen.Title).Msg("List spin selected")
	return Selection{Item: chosen, Providers: provs}, nil
}

// History returns the recent picks of the active list.
func (m *Manager) History() roulette.History {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.historyFor != m.active {
		return m.history.Reset()
	}
	return m.history
}
