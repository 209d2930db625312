// Package clientdata provides persistent caching for external market-data
// responses. Quotes are stored as msgpack blobs with a fetch timestamp so
// callers can choose between fresh-only and stale-fallback reads.
package clientdata

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Quote is the cached payload for one symbol.
type Quote struct {
	Price    float64 `msgpack:"price"`
	Previous float64 `msgpack:"previous"` // prior session close, 0 when unknown
	Currency string  `msgpack:"currency"`
}

// Repository provides cache operations for market-data responses.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new client data repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Store upserts a quote with the current time as fetch timestamp.
func (r *Repository) Store(symbol string, quote Quote) error {
	payload, err := msgpack.Marshal(quote)
	if err != nil {
		return fmt.Errorf("failed to marshal quote: %w", err)
	}

	_, err = r.db.Exec(
		"INSERT OR REPLACE INTO quotes (symbol, payload, fetched_at) VALUES (?, ?, ?)",
		symbol, payload, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to store quote for %s: %w", symbol, err)
	}
	return nil
}

// GetIfFresh returns the cached quote only if it was fetched within ttl.
// Returns nil, nil when the symbol is missing or the entry is stale.
// Use GetStale() to retrieve expired data as a fallback when the API fails.
func (r *Repository) GetIfFresh(symbol string, ttl time.Duration) (*Quote, error) {
	cutoff := time.Now().Add(-ttl).Unix()

	var payload []byte
	err := r.db.QueryRow(
		"SELECT payload FROM quotes WHERE symbol = ? AND fetched_at > ?",
		symbol, cutoff,
	).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get quote for %s: %w", symbol, err)
	}

	return unmarshalQuote(payload)
}

// GetStale returns the cached quote regardless of age.
// Stale data is better than no data when the upstream source is down.
// Returns nil, nil when the symbol was never cached.
func (r *Repository) GetStale(symbol string) (*Quote, error) {
	var payload []byte
	err := r.db.QueryRow("SELECT payload FROM quotes WHERE symbol = ?", symbol).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get quote for %s: %w", symbol, err)
	}

	return unmarshalQuote(payload)
}

// Purge removes entries older than maxAge. Used by the cleanup pass to keep
// the cache database from growing without bound.
func (r *Repository) Purge(maxAge time.Duration) (int64, error) {
	cutoff := time.Now().Add(-maxAge).Unix()

	res, err := r.db.Exec("DELETE FROM quotes WHERE fetched_at <= ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge quotes: %w", err)
	}

	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count purged quotes: %w", err)
	}
	return deleted, nil
}

func unmarshalQuote(payload []byte) (*Quote, error) {
	var quote Quote
	if err := msgpack.Unmarshal(payload, &quote); err != nil {
		return nil, fmt.Errorf("failed to unmarshal quote: %w", err)
	}
	return &quote, nil
}
