package database

import "fmt"

// Schema statements for the application database. Executed on startup;
// every statement is idempotent (CREATE TABLE IF NOT EXISTS).
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS transactions (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol      TEXT NOT NULL,
		side        TEXT NOT NULL CHECK(side IN ('BUY', 'SELL')),
		quantity    REAL NOT NULL CHECK(quantity > 0),
		price       REAL NOT NULL CHECK(price >= 0),
		executed_at TEXT NOT NULL,
		owner       TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_owner_symbol
		ON transactions(owner, symbol, id)`,

	`CREATE TABLE IF NOT EXISTS positions (
		symbol        TEXT NOT NULL,
		quantity      REAL NOT NULL DEFAULT 0 CHECK(quantity >= 0),
		avg_price     REAL NOT NULL DEFAULT 0 CHECK(avg_price >= 0),
		current_price REAL NOT NULL DEFAULT 0,
		kind          TEXT NOT NULL DEFAULT '',
		owner         TEXT NOT NULL,
		updated_at    TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (owner, symbol)
	)`,

	`CREATE TABLE IF NOT EXISTS goals (
		id     INTEGER PRIMARY KEY AUTOINCREMENT,
		name   TEXT NOT NULL,
		amount REAL NOT NULL,
		owner  TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS watchlist (
		symbol     TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		short_code TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS quotes (
		symbol     TEXT PRIMARY KEY,
		payload    BLOB NOT NULL,
		fetched_at INTEGER NOT NULL
	)`,
}

// InitSchema creates all application tables if they do not exist yet.
func (db *DB) InitSchema() error {
	for _, stmt := range schemaStatements {
		if _, err := db.conn.Exec(stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement: %w", err)
		}
	}
	return nil
}
