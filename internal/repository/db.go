package repository

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// InitDB opens (or creates) a SQLite database at the given path and ensures
// all required tables exist. Pass ":memory:" for an in-memory database.
func InitDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// Every pooled connection to ":memory:" would get its own empty database.
	if dsn == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set wal mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return db, nil
}

func createTables(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS import_reports (
			id TEXT PRIMARY KEY,
			file_name TEXT NOT NULL,
			file_hash TEXT UNIQUE NOT NULL,
			row_count INTEGER NOT NULL,
			dropped INTEGER NOT NULL DEFAULT 0,
			roles TEXT NOT NULL,
			imported_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_import_reports_imported_at ON import_reports(imported_at)`,

		`CREATE TABLE IF NOT EXISTS import_rows (
			report_id TEXT NOT NULL,
			position INTEGER NOT NULL,
			reference TEXT NOT NULL,
			created_at TEXT NOT NULL,
			mobile_number TEXT NOT NULL,
			amount_smaller TEXT NOT NULL,
			amount_larger TEXT NOT NULL,
			rate TEXT NOT NULL,
			status TEXT NOT NULL,
			PRIMARY KEY (report_id, position),
			FOREIGN KEY (report_id) REFERENCES import_reports(id) ON DELETE CASCADE
		)`,

		`CREATE TABLE IF NOT EXISTS exchange_orders (
			id TEXT PRIMARY KEY,
			trade_type TEXT NOT NULL,
			order_status TEXT NOT NULL,
			asset TEXT NOT NULL,
			fiat TEXT NOT NULL,
			amount TEXT NOT NULL,
			total_price TEXT NOT NULL,
			unit_price TEXT NOT NULL,
			commission TEXT NOT NULL,
			counter_party TEXT NOT NULL,
			pay_method TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			effective_rate TEXT NOT NULL,
			difference TEXT NOT NULL,
			synced_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_exchange_orders_type ON exchange_orders(trade_type)`,
		`CREATE INDEX IF NOT EXISTS idx_exchange_orders_status ON exchange_orders(order_status)`,
		`CREATE INDEX IF NOT EXISTS idx_exchange_orders_created_at ON exchange_orders(created_at)`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}

	return nil
}
