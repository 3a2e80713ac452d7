package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"cinesorte/apperr"
	"cinesorte/backend"
	"cinesorte/bootstrap"
	"cinesorte/catalog"
	"cinesorte/config"
	"cinesorte/identity"
	"cinesorte/lists"
	"cinesorte/logging"
	"cinesorte/roulette"
	"cinesorte/search"
	"cinesorte/storage"
)

type options struct {
	command     string
	media       string
	genre       int
	year        int
	minRating   float64
	maxRuntime  int
	sortBy      string
	noAnimation bool
	query       string
	id          int
	list        string
	email       string
	password    string
}

func main() {
	var opts options
	envFile := flag.String("env", ".env", "Path to a dotenv file; ignored when missing")
	flag.StringVar(&opts.command, "cmd", "spin", "Command: genres, spin, search, details, lists, list-create, list-add, list-remove, list-delete, list-spin")
	flag.StringVar(&opts.media, "media", "movie", "Media kind: movie or tv")
	flag.IntVar(&opts.genre, "genre", 0, "Genre id filter")
	flag.IntVar(&opts.year, "year", 0, "Release year filter")
	flag.Float64Var(&opts.minRating, "min-rating", 7, "Minimum rating")
	flag.IntVar(&opts.maxRuntime, "max-runtime", 150, "Maximum runtime in minutes, 0 for none")
	flag.StringVar(&opts.sortBy, "sort", catalog.SortPopularity, "Sort key")
	flag.BoolVar(&opts.noAnimation, "no-animation", false, "Exclude animation")
	flag.StringVar(&opts.query, "q", "", "Search text")
	flag.IntVar(&opts.id, "id", 0, "Title id")
	flag.StringVar(&opts.list, "list", "", "List name")
	flag.StringVar(&opts.email, "email", "", "Account email when API_BASE_URL is set, or CINESORTE_EMAIL")
	flag.StringVar(&opts.password, "password", "", "Account password when API_BASE_URL is set, or CINESORTE_PASSWORD")
	flag.Parse()

	if err := config.LoadFile(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		logging.Warn().Err(err).Msg("Could not load env file")
	}
	cfg := config.Load()
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if opts.email == "" {
		opts.email = os.Getenv("CINESORTE_EMAIL")
	}
	if opts.password == "" {
		opts.password = os.Getenv("CINESORTE_PASSWORD")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logging.ContextWithRequestID(ctx)

	if err := run(ctx, cfg, opts); err != nil {
		fmt.Fprintln(os.Stderr, apperr.UserMessage(err))
		logging.Error().Err(err).Str("cmd", opts.command).Msg("Command failed")
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, opts options) error {
	kind, err := catalog.ParseMediaKind(opts.media)
	if err != nil {
		return apperr.Validation("roulette.cli", err.Error())
	}
	client, err := catalog.NewClient(cfg.TMDB)
	if err != nil {
		return err
	}

	switch opts.command {
	case "genres":
		return runGenres(ctx, cfg, client)
	case "spin":
		return runSpin(ctx, cfg, client, kind, opts)
	case "search":
		return runSearch(ctx, cfg, client, opts.query)
	case "details":
		return runDetails(ctx, cfg, client, kind, opts.id)
	}

	if !strings.HasPrefix(opts.command, "list") {
		return apperr.Validation("roulette.cli", "Comando desconhecido: "+opts.command)
	}
	store, closeStore, err := openStore(ctx, cfg, opts)
	if err != nil {
		return err
	}
	defer closeStore()
	return runList(ctx, cfg, client, store, kind, opts)
}

func runGenres(ctx context.Context, cfg config.Config, client *catalog.Client) error {
	loader := bootstrap.NewLoader(client, cfg.Roulette.BootstrapRetryDelay, cfg.Roulette.BootstrapMaxAttempts)
	genres, err := loader.Load(ctx)
	if err != nil {
		return err
	}
	for _, kind := range []catalog.MediaKind{catalog.Movie, catalog.Series} {
		fmt.Printf("%s:\n", kind)
		for _, g := range genres.For(kind) {
			fmt.Printf("  %5d  %s\n", g.ID, g.Name)
		}
	}
	return nil
}

func runSpin(ctx context.Context, cfg config.Config, client *catalog.Client, kind catalog.MediaKind, opts options) error {
	filters := catalog.FilterSet{
		SortBy:           opts.sortBy,
		Genre:            opts.genre,
		ReleaseYear:      opts.year,
		MinRating:        opts.minRating,
		MaxRuntime:       opts.maxRuntime,
		ExcludeAnimation: opts.noAnimation,
	}
	if err := filters.Validate(); err != nil {
		return err
	}

	session := roulette.NewSession(client, client,
		roulette.WithSpinDelay(cfg.Roulette.SpinDelay),
		roulette.WithSelector(roulette.NewSelector(roulette.WithCapacity(cfg.Roulette.HistorySize))),
	)
	if err := session.Load(ctx, kind, filters); err != nil {
		return err
	}
	fmt.Printf("%d títulos na roleta. Sorteando...\n", len(session.Pool()))

	item, err := session.Spin(ctx)
	if err != nil {
		return err
	}
	printItem(cfg, item, session.Providers())
	return nil
}

func runSearch(ctx context.Context, cfg config.Config, client *catalog.Client, query string) error {
	type outcome struct {
		results []catalog.Candidate
		err     error
	}
	done := make(chan outcome, 1)
	d := search.NewDebouncer(client, cfg.Roulette.SearchDebounce, search.OnResults(func(q string, results []catalog.Candidate, err error) {
		if len([]rune(strings.TrimSpace(q))) < catalog.MinQueryLength {
			return
		}
		select {
		case done <- outcome{results, err}:
		default:
		}
	}))
	defer d.Close()

	// Typing one rune at a time only searches once the text stops changing.
	var typed []rune
	for _, r := range query {
		typed = append(typed, r)
		d.Type(string(typed))
	}
	if len([]rune(strings.TrimSpace(query))) < catalog.MinQueryLength {
		return apperr.Validation("search", fmt.Sprintf("Digite pelo menos %d caracteres.", catalog.MinQueryLength))
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case out := <-done:
		if out.err != nil {
			return out.err
		}
		for _, c := range out.results {
			fmt.Printf("%-6s %8d  %s (%s)  nota %.1f\n", c.MediaKind, c.ID, c.Title, c.Year(), c.VoteAverage)
		}
		return nil
	}
}

func runDetails(ctx context.Context, cfg config.Config, client *catalog.Client, kind catalog.MediaKind, id int) error {
	if id <= 0 {
		return apperr.Validation("details", "Informe o id do título com -id.")
	}
	rec, err := client.Detail(ctx, kind, id)
	if err != nil {
		return err
	}
	c := rec.Item
	fmt.Printf("%s (%s)\n", c.Title, c.Year())
	if rec.Tagline != "" {
		fmt.Printf("“%s”\n", rec.Tagline)
	}
	names := make([]string, 0, len(rec.Genres))
	for _, g := range rec.Genres {
		names = append(names, g.Name)
	}
	fmt.Printf("Gêneros: %s\n", strings.Join(names, ", "))
	fmt.Printf("Nota: %.1f  Duração: %s  Situação: %s\n", c.VoteAverage, catalog.RuntimeText(rec.Runtime), catalog.TranslateStatus(rec.Status))
	if kind == catalog.Movie {
		fmt.Printf("Orçamento: %s  Bilheteria: %s\n", catalog.FormatCurrency(rec.Budget), catalog.FormatCurrency(rec.Revenue))
	} else if rec.NumberOfSeasons > 0 {
		fmt.Printf("Temporadas: %d\n", rec.NumberOfSeasons)
	}
	if rec.Director != nil {
		fmt.Printf("Direção: %s\n", rec.Director.Name)
	}
	if len(rec.Creators) > 0 {
		fmt.Printf("Criação: %s\n", strings.Join(rec.Creators, ", "))
	}
	for _, m := range rec.Cast {
		fmt.Printf("  %s como %s\n", m.Name, m.Character)
	}
	if rec.Trailer != nil && rec.Trailer.URL() != "" {
		fmt.Printf("Trailer: %s\n", rec.Trailer.URL())
	}
	fmt.Printf("Poster: %s\n", catalog.PosterURL(cfg.TMDB.ImageBaseURL, c.PosterPath))
	printProviders(rec.Providers)
	fmt.Println(c.Overview)
	return nil
}

// openStore returns the remote list store when API_BASE_URL is set, after
// logging in, and the local SQLite store otherwise.
func openStore(ctx context.Context, cfg config.Config, opts options) (lists.Store, func(), error) {
	if cfg.Backend.BaseURL != "" {
		api, err := backend.New(cfg.Backend)
		if err != nil {
			return nil, nil, err
		}
		session := identity.NewSession(api)
		session.Init(ctx)
		if _, ok := session.CurrentUser(); !ok {
			if _, err := session.Login(ctx, opts.email, opts.password); err != nil {
				return nil, nil, err
			}
		}
		return api, func() {}, nil
	}

	db := storage.NewSQLiteStorage(cfg.DataPath, cfg.LocalListMax)
	if err := db.Initialize(); err != nil {
		return nil, nil, err
	}
	return db, func() { db.Close() }, nil
}

func runList(ctx context.Context, cfg config.Config, client *catalog.Client, store lists.Store, kind catalog.MediaKind, opts options) error {
	var mopts []lists.Option
	if db, ok := store.(*storage.SQLiteStorage); ok {
		mopts = append(mopts, lists.WithMaxItems(db.MaxItems()))
	}
	mopts = append(mopts,
		lists.WithSpinDelay(cfg.Roulette.SpinDelay),
		lists.WithSelector(roulette.NewSelector(roulette.WithCapacity(cfg.Roulette.HistorySize))),
	)
	m := lists.NewManager(store, client, mopts...)
	if err := m.Refresh(ctx); err != nil {
		return err
	}

	switch opts.command {
	case "lists":
		for _, l := range m.Lists() {
			fmt.Printf("%s (%d)\n", l.Name, len(l.Items))
			for _, it := range l.Items {
				fmt.Printf("  %8d  %s (%s)\n", it.ID, it.Title, it.Year())
			}
		}
		return nil

	case "list-create":
		if err := m.Create(ctx, opts.list); err != nil {
			return err
		}
		fmt.Printf("Lista \"%s\" criada.\n", strings.TrimSpace(opts.list))
		return nil

	case "list-add":
		if opts.id <= 0 {
			return apperr.Validation("list-add", "Informe o id do título com -id.")
		}
		rec, err := client.Detail(ctx, kind, opts.id)
		if err != nil {
			return err
		}
		if err := m.Add(ctx, opts.list, rec.Item); err != nil {
			return err
		}
		fmt.Printf("\"%s\" adicionado a %s.\n", rec.Item.Title, opts.list)
		return nil

	case "list-remove":
		if err := m.Remove(ctx, opts.list, opts.id); err != nil {
			return err
		}
		fmt.Println("Item removido.")
		return nil

	case "list-delete":
		if err := m.Delete(ctx, opts.list); err != nil {
			return err
		}
		fmt.Printf("Lista \"%s\" excluída.\n", opts.list)
		return nil

	case "list-spin":
		if err := m.SetActive(opts.list); err != nil {
			return err
		}
		fmt.Println("Sorteando...")
		sel, err := m.Spin(ctx)
		if err != nil {
			return err
		}
		printItem(cfg, sel.Item, sel.Providers)
		return nil
	}
	return apperr.Validation("roulette.cli", "Comando desconhecido: "+opts.command)
}

func printItem(cfg config.Config, c catalog.Candidate, providers []catalog.Provider) {
	fmt.Printf("\n%s (%s)  nota %.1f\n", c.Title, c.Year(), c.VoteAverage)
	fmt.Printf("Poster: %s\n", catalog.PosterURL(cfg.TMDB.ImageBaseURL, c.PosterPath))
	printProviders(providers)
	if c.Overview != "" {
		fmt.Println(c.Overview)
	}
}

func printProviders(providers []catalog.Provider) {
	if len(providers) == 0 {
		fmt.Println("Sem streaming disponível.")
		return
	}
	names := make([]string, 0, len(providers))
	for _, p := range providers {
		names = append(names, p.Name)
	}
	fmt.Printf("Onde assistir: %s\n", strings.Join(names, ", "))
}
