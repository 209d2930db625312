package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ozank/portfoy/internal/modules/portfolio"
)

// NewTransaction is the caller-supplied input for Record.
type NewTransaction struct {
	Symbol     string
	Side       Side
	Quantity   float64
	Price      float64
	ExecutedAt time.Time
}

// Service applies transactions to positions and keeps both stores consistent.
// Record and Delete for the same (owner, symbol) never interleave: each pair
// is guarded by its own mutex, and every mutation runs inside one SQL
// transaction so a partial write cannot split the ledger from the position.
type Service struct {
	db           *sql.DB
	transactions *TransactionRepository
	positions    *portfolio.PositionRepository
	log          zerolog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewService creates a new ledger service.
func NewService(db *sql.DB, transactions *TransactionRepository, positions *portfolio.PositionRepository, log zerolog.Logger) *Service {
	return &Service{
		db:           db,
		transactions: transactions,
		positions:    positions,
		log:          log.With().Str("service", "ledger").Logger(),
		locks:        make(map[string]*sync.Mutex),
	}
}

// lockFor returns the single-writer mutex for one (owner, symbol).
func (s *Service) lockFor(owner, symbol string) *sync.Mutex {
	key := owner + "\x00" + symbol
	s.mu.Lock()
	defer s.mu.Unlock()
	if lock, ok := s.locks[key]; ok {
		return lock
	}
	lock := &sync.Mutex{}
	s.locks[key] = lock
	return lock
}

// Record validates and applies one transaction, persisting the ledger entry
// and the recomputed position atomically. A SELL exceeding the held quantity
// returns ErrInsufficientBalance with no state change.
func (s *Service) Record(ctx context.Context, owner string, input NewTransaction) (*Transaction, error) {
	txn := Transaction{
		Owner:      owner,
		Symbol:     strings.ToUpper(strings.TrimSpace(input.Symbol)),
		Side:       input.Side,
		Quantity:   input.Quantity,
		Price:      input.Price,
		ExecutedAt: input.ExecutedAt,
	}
	if txn.ExecutedAt.IsZero() {
		txn.ExecutedAt = time.Now()
	}
	if err := txn.Validate(); err != nil {
		return nil, err
	}
	txn.Kind = ClassifySymbol(txn.Symbol)

	lock := s.lockFor(owner, txn.Symbol)
	lock.Lock()
	defer lock.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	existing, err := s.positions.Get(tx, owner, txn.Symbol)
	if err != nil {
		return nil, err
	}

	var state PositionState
	if existing != nil {
		state = PositionState{Quantity: existing.Quantity, AvgCost: existing.AvgPrice}
	}

	switch txn.Side {
	case SideBuy:
		state.ApplyBuy(txn.Quantity, txn.Price)
	case SideSell:
		if err := state.ApplySell(txn.Quantity); err != nil {
			return nil, err
		}
	}

	id, err := s.transactions.Create(tx, txn)
	if err != nil {
		return nil, err
	}
	txn.ID = id

	// The fill price doubles as the freshest known market price.
	pos := portfolio.Position{
		Owner:        owner,
		Symbol:       txn.Symbol,
		Quantity:     state.Quantity,
		AvgPrice:     state.AvgCost,
		CurrentPrice: txn.Price,
		Kind:         string(txn.Kind),
	}
	if err := s.positions.Upsert(tx, pos); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &txn, nil
}

// Delete removes a transaction owned by the caller and rebuilds the affected
// position by replaying the remaining history from empty state.
func (s *Service) Delete(ctx context.Context, owner string, id int64) error {
	target, err := s.transactions.GetByID(id, owner)
	if err != nil {
		return err
	}
	if target == nil {
		return ValidationError{Reason: fmt.Sprintf("transaction %d not found", id)}
	}

	lock := s.lockFor(owner, target.Symbol)
	lock.Lock()
	defer lock.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.transactions.Delete(tx, id); err != nil {
		return err
	}

	remaining, err := s.transactions.ListBySymbol(tx, owner, target.Symbol)
	if err != nil {
		return err
	}
	state := Replay(remaining)

	// Replay rebuilds quantity and basis; the last known market price and
	// classification survive the deletion untouched.
	pos := portfolio.Position{
		Owner:    owner,
		Symbol:   target.Symbol,
		Quantity: state.Quantity,
		AvgPrice: state.AvgCost,
		Kind:     string(target.Kind),
	}
	if existing, err := s.positions.Get(tx, owner, target.Symbol); err != nil {
		return err
	} else if existing != nil {
		pos.CurrentPrice = existing.CurrentPrice
	}

	if err := s.positions.Upsert(tx, pos); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.log.Info().
		Int64("id", id).
		Str("symbol", target.Symbol).
		Float64("quantity", state.Quantity).
		Float64("avg_price", state.AvgCost).
		Msg("Transaction deleted, position replayed")

	return nil
}

// History returns the owner's transactions, newest first.
func (s *Service) History(ctx context.Context, owner string) ([]Transaction, error) {
	return s.transactions.History(owner)
}
