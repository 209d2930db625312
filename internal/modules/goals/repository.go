// Package goals stores at most one savings target per owner and computes
// progress toward it.
package goals

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"
)

// Defaults shown before an owner has saved a goal of their own.
const (
	DefaultName   = "Finansal Özgürlük"
	DefaultAmount = 1_000_000
)

// Goal is a named target amount, used only for progress display.
type Goal struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
}

// Repository handles goal table operations.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new goal repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "goals").Logger(),
	}
}

// Get returns the owner's goal, falling back to the defaults when unset.
func (r *Repository) Get(owner string) (Goal, error) {
	var goal Goal
	err := r.db.QueryRow(
		"SELECT name, amount FROM goals WHERE owner = ? LIMIT 1", owner,
	).Scan(&goal.Name, &goal.Amount)
	if err == sql.ErrNoRows {
		return Goal{Name: DefaultName, Amount: DefaultAmount}, nil
	}
	if err != nil {
		return Goal{}, fmt.Errorf("failed to get goal: %w", err)
	}
	return goal, nil
}

// Set replaces the owner's goal wholesale (delete-then-insert).
func (r *Repository) Set(owner string, goal Goal) error {
	if goal.Amount <= 0 {
		return fmt.Errorf("goal amount must be positive")
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM goals WHERE owner = ?", owner); err != nil {
		return fmt.Errorf("failed to clear goal: %w", err)
	}
	if _, err := tx.Exec(
		"INSERT INTO goals (name, amount, owner) VALUES (?, ?, ?)",
		goal.Name, goal.Amount, owner,
	); err != nil {
		return fmt.Errorf("failed to insert goal: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit goal: %w", err)
	}

	r.log.Info().Str("owner", owner).Str("name", goal.Name).Float64("amount", goal.Amount).Msg("Goal replaced")
	return nil
}

// Progress is the percentage of the goal covered by the current portfolio
// value, clamped to [0, 100] for the progress bar.
func Progress(marketValueTotal, goalAmount float64) float64 {
	if goalAmount <= 0 {
		return 0
	}
	progress := marketValueTotal / goalAmount * 100
	if progress > 100 {
		return 100
	}
	if progress < 0 {
		return 0
	}
	return progress
}
