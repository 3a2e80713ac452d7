package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"cinesorte/logging"
	"cinesorte/storage"
)

func main() {
	var (
		dataPath = flag.String("data", "./data", "Path to database directory")
		command  = flag.String("cmd", "up", "Migration command: up, down, status, version, reset")
		verbose  = flag.Bool("v", false, "Log migration details")
	)
	flag.Parse()

	level := "warn"
	if *verbose {
		level = "debug"
	}
	logging.Init(logging.Config{Level: level})
	log := logging.With("migrate")

	sqliteStorage := storage.NewSQLiteStorage(*dataPath, 0)
	if err := sqliteStorage.Initialize(); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize storage")
	}
	defer sqliteStorage.Close()

	switch *command {
	case "up":
		if err := sqliteStorage.RunMigrations(); err != nil {
			log.Fatal().Err(err).Msg("Failed to run migrations")
		}
		fmt.Println("Migrations completed successfully")

	case "down":
		if err := sqliteStorage.RollbackMigration(); err != nil {
			log.Fatal().Err(err).Msg("Failed to rollback migration")
		}
		fmt.Println("Migration rolled back successfully")

	case "status":
		migrationManager := sqliteStorage.GetMigrationManager()
		if err := migrationManager.Initialize(); err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize migration manager")
		}
		statuses, err := migrationManager.Status(context.Background())
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to get migration status")
		}
		for _, st := range statuses {
			applied := "Pending"
			if st.Applied {
				applied = st.AppliedAt.Format(time.DateTime)
			}
			fmt.Printf("%-20s %s\n", applied, st.Name)
		}

	case "version":
		version, err := sqliteStorage.GetDatabaseVersion()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to get database version")
		}
		fmt.Printf("Database version: %d\n", version)

	case "reset":
		if err := sqliteStorage.ResetDatabase(); err != nil {
			log.Fatal().Err(err).Msg("Failed to reset database")
		}
		fmt.Println("Database reset completed successfully")

	default:
		fmt.Printf("Unknown command: %s\n", *command)
		fmt.Println("Available commands: up, down, status, version, reset")
		os.Exit(1)
	}
}
