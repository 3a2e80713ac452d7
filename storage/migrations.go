package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"time"

	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"

	"cinesorte/logging"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// MigrationStatus is one schema migration and whether it is applied.
type MigrationStatus struct {
	Version   int64
	Name      string
	Applied   bool
	AppliedAt time.Time
}

// MigrationManager applies the embedded schema migrations to one database.
type MigrationManager struct {
	db       *sql.DB
	provider *goose.Provider
	log      zerolog.Logger
}

func NewMigrationManager(db *sql.DB) *MigrationManager {
	return &MigrationManager{db: db, log: logging.With("migrations")}
}

func (m *MigrationManager) Initialize() error {
	fsys, err := fs.Sub(embedMigrations, "migrations")
	if err != nil {
		return fmt.Errorf("failed to open embedded migrations: %w", err)
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, m.db, fsys)
	if err != nil {
		return fmt.Errorf("failed to create migration provider: %w", err)
	}
	m.provider = provider
	return nil
}

func (m *MigrationManager) logResults(results ...*goose.MigrationResult) {
	for _, r := range results {
		if r == nil || r.Source == nil {
			continue
		}
		m.log.Info().
			Int64("version", r.Source.Version).
			Str("file", r.Source.Path).
			Str("direction", r.Direction).
			Dur("duration", r.Duration).
			Msg("Migration applied")
	}
}

// Up applies every pending migration.
func (m *MigrationManager) Up(ctx context.Context) error {
	results, err := m.provider.Up(ctx)
	m.logResults(results...)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	m.log.Debug().Int("applied", len(results)).Msg("Database migrations completed")
	return nil
}

// Down rolls back the latest applied migration.
func (m *MigrationManager) Down(ctx context.Context) error {
	result, err := m.provider.Down(ctx)
	m.logResults(result)
	if err != nil {
		return fmt.Errorf("failed to rollback migration: %w", err)
	}
	return nil
}

// Status lists every known migration in version order.
func (m *MigrationManager) Status(ctx context.Context) ([]MigrationStatus, error) {
	statuses, err := m.provider.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get migration status: %w", err)
	}
	out := make([]MigrationStatus, 0, len(statuses))
	for _, st := range statuses {
		out = append(out, MigrationStatus{
			Version:   st.Source.Version,
			Name:      st.Source.Path,
			Applied:   st.State == goose.StateApplied,
			AppliedAt: st.AppliedAt,
		})
	}
	return out, nil
}

func (m *MigrationManager) Version(ctx context.Context) (int64, error) {
	version, err := m.provider.GetDBVersion(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get database version: %w", err)
	}
	return version, nil
}

// Reset rolls back every applied migration.
func (m *MigrationManager) Reset(ctx context.Context) error {
	results, err := m.provider.DownTo(ctx, 0)
	m.logResults(results...)
	if err != nil {
		return fmt.Errorf("failed to reset database: %w", err)
	}
	m.log.Info().Int("rolled_back", len(results)).Msg("Database reset completed")
	return nil
}
