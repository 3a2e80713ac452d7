package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cinesorte/catalog"
	"cinesorte/config"
	"cinesorte/logging"
	"cinesorte/notifier"
	"cinesorte/roulette"
	"cinesorte/scheduler"
	"cinesorte/storage"
)

func main() {
	envFile := flag.String("env", ".env", "Path to a dotenv file; ignored when missing")
	flag.Parse()

	if err := config.LoadFile(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		logging.Warn().Err(err).Msg("Could not load env file")
	}
	cfg := config.Load()
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	log := logging.With("main")
	log.Info().Str("mode", cfg.RunMode).Msg("Starting Cinesorte daily pick service")

	client, err := catalog.NewClient(cfg.TMDB)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create catalog client")
	}

	sqliteStorage := storage.NewSQLiteStorage(cfg.DataPath, cfg.LocalListMax)
	if err := sqliteStorage.Initialize(); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize storage")
	}
	defer sqliteStorage.Close()

	var n scheduler.Notifier
	if cfg.Email.Enabled() {
		emailNotifier, err := notifier.NewEmailNotifier(cfg.Email, cfg.TMDB.ImageBaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create email notifier")
		}
		n = emailNotifier
	} else {
		log.Info().Msg("Email not configured, picks will only be recorded")
	}

	kind, filters, err := scheduler.FiltersFromConfig(cfg.DailyPick)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid daily pick filter")
	}
	selector := roulette.NewSelector(roulette.WithCapacity(cfg.Roulette.HistorySize))
	job := scheduler.NewDailyPickJob(client, client, sqliteStorage, n, selector, kind, filters)

	switch cfg.RunMode {
	case "scheduler", "":
		sched := scheduler.NewScheduler()
		if err := sched.AddJob(cfg.DailyPick.Cron, job); err != nil {
			log.Fatal().Err(err).Msg("Failed to schedule daily pick job")
		}
		sched.Start()

		if cfg.DailyPick.RunAtStart {
			if err := sched.RunJobNow(job.Name()); err != nil {
				log.Error().Err(err).Msg("Error running initial daily pick")
			}
		}
		displayDatabaseStats(sqliteStorage)

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		log.Info().Str("spec", cfg.DailyPick.Cron).Msg("Application running. Press Ctrl+C to exit")

		sig := <-quit
		log.Info().Str("signal", sig.String()).Msg("Shutting down")
		sched.Stop()

	case "once":
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		if err := job.Run(logging.ContextWithRequestID(ctx)); err != nil {
			log.Error().Err(err).Msg("Error running daily pick")
			sqliteStorage.Close()
			os.Exit(1)
		}
		displayDatabaseStats(sqliteStorage)

	default:
		log.Fatal().Str("mode", cfg.RunMode).Msg("Unknown RUN_MODE, expected scheduler or once")
	}

	log.Info().Msg("Application exiting")
}

func displayDatabaseStats(db *storage.SQLiteStorage) {
	stats, err := db.GetStats()
	if err != nil {
		logging.Error().Err(err).Msg("Error getting database stats")
		return
	}
	logging.Info().
		Int("lists", stats["lists"]).
		Int("items", stats["items"]).
		Int("spins", stats["spins"]).
		Msg("Database statistics")
}
