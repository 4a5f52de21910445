package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/dealerlink/easysync/internal/events"
)

// Store is the SQLite-backed persistence layer: credentials, vehicles,
// leads, lead status conflicts, sync audit logs and settings.
type Store struct {
	db     *sql.DB
	logger *events.Logger
}

// Open opens (and initializes) the database at path.
func Open(path string, logger *events.Logger) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal=WAL&_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &Store{
		db:     db,
		logger: logger.WithField("component", "store"),
	}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize database: %w", err)
	}
	return s, nil
}

func (s *Store) initialize() error {
	schema := `
    CREATE TABLE IF NOT EXISTS credentials (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        dealership_id TEXT NOT NULL UNIQUE,
        client_id TEXT NOT NULL,
        client_secret TEXT NOT NULL,
        account_id TEXT NOT NULL,
        account_secret TEXT NOT NULL,
        environment TEXT NOT NULL,
        active INTEGER NOT NULL DEFAULT 1,
        yard_code TEXT NOT NULL DEFAULT '',
        last_synced_at TIMESTAMP,
        created_at TIMESTAMP NOT NULL,
        updated_at TIMESTAMP NOT NULL
    );

    CREATE TABLE IF NOT EXISTS vehicles (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        dealership_id TEXT NOT NULL,
        stock_number TEXT NOT NULL,
        yard_code TEXT NOT NULL DEFAULT '',
        make TEXT NOT NULL DEFAULT '',
        model TEXT NOT NULL DEFAULT '',
        variant TEXT NOT NULL DEFAULT '',
        year INTEGER NOT NULL DEFAULT 0,
        price REAL NOT NULL DEFAULT 0,
        odometer INTEGER NOT NULL DEFAULT 0,
        colour TEXT NOT NULL DEFAULT '',
        vin TEXT NOT NULL DEFAULT '',
        registration TEXT NOT NULL DEFAULT '',
        transmission TEXT NOT NULL DEFAULT '',
        fuel_type TEXT NOT NULL DEFAULT '',
        body_type TEXT NOT NULL DEFAULT '',
        description TEXT NOT NULL DEFAULT '',
        image_urls TEXT NOT NULL DEFAULT '[]',
        raw_payload TEXT NOT NULL DEFAULT '',
        created_at TIMESTAMP NOT NULL,
        updated_at TIMESTAMP NOT NULL,
        UNIQUE (dealership_id, stock_number)
    );

    CREATE TABLE IF NOT EXISTS leads (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        dealership_id TEXT NOT NULL,
        remote_lead_number TEXT NOT NULL DEFAULT '',
        first_name TEXT NOT NULL DEFAULT '',
        last_name TEXT NOT NULL DEFAULT '',
        email TEXT NOT NULL DEFAULT '',
        phone TEXT NOT NULL DEFAULT '',
        comments TEXT NOT NULL DEFAULT '',
        vehicle_id INTEGER,
        status TEXT NOT NULL DEFAULT 'New',
        created_at TIMESTAMP NOT NULL,
        updated_at TIMESTAMP NOT NULL
    );
    CREATE INDEX IF NOT EXISTS idx_leads_dealership ON leads(dealership_id);
    CREATE INDEX IF NOT EXISTS idx_leads_remote ON leads(remote_lead_number);

    CREATE TABLE IF NOT EXISTS lead_status_conflicts (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        dealership_id TEXT NOT NULL,
        lead_id INTEGER NOT NULL,
        remote_lead_number TEXT NOT NULL,
        local_status TEXT NOT NULL,
        remote_status INTEGER NOT NULL,
        detected_at TIMESTAMP NOT NULL,
        resolved INTEGER NOT NULL DEFAULT 0,
        resolution TEXT,
        resolved_at TIMESTAMP,
        resolved_by TEXT NOT NULL DEFAULT ''
    );
    CREATE INDEX IF NOT EXISTS idx_conflicts_lead ON lead_status_conflicts(lead_id);

    CREATE TABLE IF NOT EXISTS sync_logs (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        dealership_id TEXT NOT NULL,
        sync_type TEXT NOT NULL,
        status TEXT NOT NULL,
        items_processed INTEGER NOT NULL,
        items_succeeded INTEGER NOT NULL,
        items_failed INTEGER NOT NULL,
        images_downloaded INTEGER NOT NULL DEFAULT 0,
        images_failed INTEGER NOT NULL DEFAULT 0,
        errors TEXT NOT NULL DEFAULT '[]',
        duration_ms INTEGER NOT NULL,
        created_at TIMESTAMP NOT NULL
    );
    CREATE INDEX IF NOT EXISTS idx_sync_logs_dealership ON sync_logs(dealership_id, created_at);

    CREATE TABLE IF NOT EXISTS dealership_settings (
        dealership_id TEXT PRIMARY KEY,
        auto_sync_enabled INTEGER NOT NULL DEFAULT 0
    );

    CREATE TABLE IF NOT EXISTS system_settings (
        key TEXT PRIMARY KEY,
        value TEXT NOT NULL
    );
    `

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := s.db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("enable foreign keys: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
