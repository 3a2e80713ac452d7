// Package storage keeps the anonymous user's lists and the spin log in a
// local SQLite database.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"cinesorte/apperr"
	"cinesorte/catalog"
	"cinesorte/lists"
	"cinesorte/logging"
)

// DefaultMaxItems bounds each local list.
const DefaultMaxItems = 10

const dbFile = "cinesorte.db"

type SQLiteStorage struct {
	db       *sql.DB
	dbPath   string
	dataPath string
	maxItems int
	log      zerolog.Logger
}

var _ lists.Store = (*SQLiteStorage)(nil)

func NewSQLiteStorage(dataPath string, maxItems int) *SQLiteStorage {
	if maxItems <= 0 {
		maxItems = DefaultMaxItems
	}
	return &SQLiteStorage{
		dbPath:   filepath.Join(dataPath, dbFile),
		dataPath: dataPath,
		maxItems: maxItems,
		log:      logging.With("storage"),
	}
}

func (s *SQLiteStorage) Initialize() error {
	if err := os.MkdirAll(s.dataPath, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := sql.Open("sqlite3", s.dbPath+"?_busy_timeout=5000")
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	s.db = db

	migrationManager := NewMigrationManager(s.db)
	if err := migrationManager.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize migrations: %w", err)
	}
	if err := migrationManager.Up(context.Background()); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	s.log.Info().Str("path", s.dbPath).Int("max_items", s.maxItems).Msg("SQLite database initialized")
	return nil
}

// MaxItems returns the per-list bound.
func (s *SQLiteStorage) MaxItems() int { return s.maxItems }

// ListAll returns every list in creation order with its items in the order
// they were added.
func (s *SQLiteStorage) ListAll(ctx context.Context) ([]lists.NamedList, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM lists ORDER BY created_at, rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to query lists: %w", err)
	}
	defer rows.Close()

	out := []lists.NamedList{}
	for rows.Next() {
		l := lists.NamedList{Items: []catalog.Candidate{}}
		if err := rows.Scan(&l.ID, &l.Name); err != nil {
			return nil, fmt.Errorf("failed to scan list: %w", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read lists: %w", err)
	}

	for i := range out {
		items, err := s.items(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Items = items
	}
	return out, nil
}

func (s *SQLiteStorage) items(ctx context.Context, listID string) ([]catalog.Candidate, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT payload
	FROM list_items
	WHERE list_id = ?
	ORDER BY position
	`, listID)
	if err != nil {
		return nil, fmt.Errorf("failed to query list items: %w", err)
	}
	defer rows.Close()

	items := []catalog.Candidate{}
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan list item: %w", err)
		}
		var c catalog.Candidate
		if err := json.Unmarshal([]byte(payload), &c); err != nil {
			return nil, fmt.Errorf("failed to decode list item: %w", err)
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

// Save creates the list or replaces its items. A list over the bound or with
// a repeated title is rejected and nothing is written.
func (s *SQLiteStorage) Save(ctx context.Context, name string, items []catalog.Candidate) error {
	const op = "storage.Save"
	if len(items) > s.maxItems {
		return &apperr.Error{Kind: apperr.KindValidation, Op: op, Message: "A lista atingiu o limite de itens.", Err: lists.ErrListFull}
	}
	seen := make(map[int]bool, len(items))
	for _, it := range items {
		if seen[it.ID] {
			return &apperr.Error{Kind: apperr.KindValidation, Op: op, Message: "Este título já está na lista.", Err: lists.ErrDuplicate}
		}
		seen[it.ID] = true
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var listID string
	err = tx.QueryRowContext(ctx, `SELECT id FROM lists WHERE name = ?`, name).Scan(&listID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		listID = uuid.NewString()
		if _, err := tx.ExecContext(ctx, `INSERT INTO lists (id, name) VALUES (?, ?)`, listID, name); err != nil {
			return fmt.Errorf("failed to insert list: %w", err)
		}
	case err != nil:
		return fmt.Errorf("failed to look up list: %w", err)
	default:
		if _, err := tx.ExecContext(ctx, `UPDATE lists SET updated_at = CURRENT_TIMESTAMP WHERE id = ?`, listID); err != nil {
			return fmt.Errorf("failed to update list: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM list_items WHERE list_id = ?`, listID); err != nil {
		return fmt.Errorf("failed to clear list items: %w", err)
	}
	for pos, it := range items {
		payload, err := json.Marshal(it)
		if err != nil {
			return fmt.Errorf("failed to encode list item: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
		INSERT INTO list_items (list_id, item_id, position, media_type, title, payload)
		VALUES (?, ?, ?, ?, ?, ?)
		`, listID, it.ID, pos, string(it.MediaKind), it.Title, string(payload))
		if err != nil {
			return fmt.Errorf("failed to insert list item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit list: %w", err)
	}
	s.log.Debug().Str("list", name).Int("items", len(items)).Msg("List saved")
	return nil
}

// rowQuerier is satisfied by *sql.DB and *sql.Tx.
type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SQLiteStorage) listID(ctx context.Context, q rowQuerier, op, name string) (string, error) {
	var id string
	err := q.QueryRowContext(ctx, `SELECT id FROM lists WHERE name = ?`, name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", &apperr.Error{Kind: apperr.KindValidation, Op: op, Message: "Lista não encontrada.", Err: lists.ErrNotFound}
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up list: %w", err)
	}
	return id, nil
}

// Delete removes the list and its items.
func (s *SQLiteStorage) Delete(ctx context.Context, name string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	id, err := s.listID(ctx, tx, "storage.Delete", name)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM list_items WHERE list_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete list items: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM lists WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete list: %w", err)
	}
	return tx.Commit()
}

// RemoveItem removes one title from the list. Removing a title that is not
// there is a no-op.
func (s *SQLiteStorage) RemoveItem(ctx context.Context, name string, itemID int) error {
	id, err := s.listID(ctx, s.db, "storage.RemoveItem", name)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM list_items WHERE list_id = ? AND item_id = ?`, id, itemID); err != nil {
		return fmt.Errorf("failed to remove list item: %w", err)
	}
	return nil
}

// RecordSpin appends a pick to the spin log of source.
func (s *SQLiteStorage) RecordSpin(ctx context.Context, source string, c catalog.Candidate) error {
	_, err := s.db.ExecContext(ctx, `
	INSERT INTO spins (source, item_id, media_type, title)
	VALUES (?, ?, ?, ?)
	`, source, c.ID, string(c.MediaKind), c.Title)
	if err != nil {
		return fmt.Errorf("failed to record spin: %w", err)
	}
	return nil
}

// RecentSpinIDs returns up to limit title ids picked for source, most recent
// first.
func (s *SQLiteStorage) RecentSpinIDs(ctx context.Context, source string, limit int) ([]int, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT item_id
	FROM spins
	WHERE source = ?
	ORDER BY id DESC
	LIMIT ?
	`, source, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query spins: %w", err)
	}
	defer rows.Close()

	ids := []int{}
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan spin: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *SQLiteStorage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteStorage) GetDB() (*sql.DB, error) {
	if s.db == nil {
		db, err := sql.Open("sqlite3", s.dbPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		s.db = db
	}
	return s.db, nil
}

func (s *SQLiteStorage) GetStats() (map[string]int, error) {
	stats := make(map[string]int)
	for key, query := range map[string]string{
		"lists": "SELECT COUNT(*) FROM lists",
		"items": "SELECT COUNT(*) FROM list_items",
		"spins": "SELECT COUNT(*) FROM spins",
	} {
		var n int
		if err := s.db.QueryRow(query).Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", key, err)
		}
		stats[key] = n
	}
	return stats, nil
}

// Migration management methods
func (s *SQLiteStorage) GetMigrationManager() *MigrationManager {
	return NewMigrationManager(s.db)
}

func (s *SQLiteStorage) GetDatabaseVersion() (int64, error) {
	migrationManager := s.GetMigrationManager()
	if err := migrationManager.Initialize(); err != nil {
		return 0, err
	}
	return migrationManager.Version(context.Background())
}

func (s *SQLiteStorage) RunMigrations() error {
	migrationManager := s.GetMigrationManager()
	if err := migrationManager.Initialize(); err != nil {
		return err
	}
	return migrationManager.Up(context.Background())
}

func (s *SQLiteStorage) RollbackMigration() error {
	migrationManager := s.GetMigrationManager()
	if err := migrationManager.Initialize(); err != nil {
		return err
	}
	return migrationManager.Down(context.Background())
}

func (s *SQLiteStorage) ResetDatabase() error {
	migrationManager := s.GetMigrationManager()
	if err := migrationManager.Initialize(); err != nil {
		return err
	}
	return migrationManager.Reset(context.Background())
}
