package portfolio

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// positionColumns avoids SELECT *. Order must match scanPosition.
const positionColumns = `symbol, quantity, avg_price, current_price, kind, owner`

// Querier is satisfied by both *sql.DB and *sql.Tx. Defined here to avoid an
// import cycle with the ledger module, which drives position writes inside
// its own transactions.
type Querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// PositionRepository handles position table operations.
type PositionRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewPositionRepository creates a new position repository.
func NewPositionRepository(db *sql.DB, log zerolog.Logger) *PositionRepository {
	return &PositionRepository{
		db:  db,
		log: log.With().Str("repo", "position").Logger(),
	}
}

// Get returns the position for (owner, symbol), or nil when none exists yet.
func (r *PositionRepository) Get(q Querier, owner, symbol string) (*Position, error) {
	row := q.QueryRow(
		"SELECT "+positionColumns+" FROM positions WHERE owner = ? AND symbol = ?",
		owner, symbol,
	)

	var pos Position
	err := row.Scan(&pos.Symbol, &pos.Quantity, &pos.AvgPrice, &pos.CurrentPrice, &pos.Kind, &pos.Owner)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get position %s: %w", symbol, err)
	}
	return &pos, nil
}

// Upsert writes the full position state for (owner, symbol).
func (r *PositionRepository) Upsert(q Querier, pos Position) error {
	_, err := q.Exec(
		`INSERT INTO positions (owner, symbol, quantity, avg_price, current_price, kind, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(owner, symbol) DO UPDATE SET
			quantity = excluded.quantity,
			avg_price = excluded.avg_price,
			current_price = excluded.current_price,
			kind = excluded.kind,
			updated_at = excluded.updated_at`,
		pos.Owner, pos.Symbol, pos.Quantity, pos.AvgPrice, pos.CurrentPrice, pos.Kind,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert position %s: %w", pos.Symbol, err)
	}
	return nil
}

// GetHeld returns all positions with quantity > 0 for an owner.
func (r *PositionRepository) GetHeld(owner string) ([]Position, error) {
	rows, err := r.db.Query(
		"SELECT "+positionColumns+" FROM positions WHERE owner = ? AND quantity > 0 ORDER BY symbol",
		owner,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query positions: %w", err)
	}
	defer rows.Close()

	var positions []Position
	for rows.Next() {
		var pos Position
		if err := rows.Scan(&pos.Symbol, &pos.Quantity, &pos.AvgPrice, &pos.CurrentPrice, &pos.Kind, &pos.Owner); err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		positions = append(positions, pos)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating positions: %w", err)
	}
	return positions, nil
}

// UpdateCurrentPrice refreshes the last known market price for one symbol.
func (r *PositionRepository) UpdateCurrentPrice(owner, symbol string, price float64) error {
	_, err := r.db.Exec(
		"UPDATE positions SET current_price = ?, updated_at = ? WHERE owner = ? AND symbol = ?",
		price, time.Now().UTC().Format(time.RFC3339), owner, symbol,
	)
	if err != nil {
		return fmt.Errorf("failed to update price for %s: %w", symbol, err)
	}
	return nil
}

// Owners returns every owner with at least one held position. Used by the
// scheduled refresh job.
func (r *PositionRepository) Owners() ([]string, error) {
	rows, err := r.db.Query("SELECT DISTINCT owner FROM positions WHERE quantity > 0")
	if err != nil {
		return nil, fmt.Errorf("failed to query owners: %w", err)
	}
	defer rows.Close()

	var owners []string
	for rows.Next() {
		var owner string
		if err := rows.Scan(&owner); err != nil {
			return nil, fmt.Errorf("failed to scan owner: %w", err)
		}
		owners = append(owners, owner)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating owners: %w", err)
	}
	return owners, nil
}
