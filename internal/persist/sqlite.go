package persist

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/sellerapp/shopchat/internal/models"
	_ "modernc.org/sqlite"
)

// DefaultSlotName is the key under which the snapshot is stored.
const DefaultSlotName = "sellerAppGlobalState"

// SQLiteSlot stores the state snapshot as a single row in a local SQLite
// database. Same contract as FileSlot; useful when other local tooling wants
// to inspect the slot with SQL.
type SQLiteSlot struct {
	db     *sql.DB
	slot   string
	logger *slog.Logger
}

// NewSQLiteSlot opens (creating if necessary) a SQLite database at dbPath and
// prepares the snapshot table.
func NewSQLiteSlot(dbPath, slot string, logger *slog.Logger) (*SQLiteSlot, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if slot == "" {
		slot = DefaultSlotName
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// WAL mode for better concurrency with outside readers.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS app_state (
		slot TEXT PRIMARY KEY,
		payload TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLiteSlot{db: db, slot: slot, logger: logger}, nil
}

// Load reads the snapshot row. A missing row yields the default state; a row
// whose payload does not parse is deleted and the default state is returned.
func (s *SQLiteSlot) Load() (models.AppState, error) {
	var payload string
	err := s.db.QueryRow(`SELECT payload FROM app_state WHERE slot = ?`, s.slot).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return DefaultState(), nil
	}
	if err != nil {
		return DefaultState(), fmt.Errorf("query state slot: %w", err)
	}

	state := DefaultState()
	if err := json.Unmarshal([]byte(payload), &state); err != nil {
		s.logger.Warn("state slot corrupt, clearing", "slot", s.slot, "error", err)
		if _, delErr := s.db.Exec(`DELETE FROM app_state WHERE slot = ?`, s.slot); delErr != nil {
			s.logger.Warn("failed to clear corrupt state slot", "slot", s.slot, "error", delErr)
		}
		return DefaultState(), nil
	}
	if state.Sessions == nil {
		state.Sessions = []models.ChatSession{}
	}
	return state, nil
}

// Save upserts the snapshot row.
func (s *SQLiteSlot) Save(state models.AppState) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	query := `
	INSERT INTO app_state (slot, payload, updated_at) VALUES (?, ?, ?)
	ON CONFLICT(slot) DO UPDATE SET
		payload = excluded.payload,
		updated_at = excluded.updated_at`
	if _, err := s.db.Exec(query, s.slot, string(payload), time.Now().Unix()); err != nil {
		return fmt.Errorf("upsert state slot: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteSlot) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
