package ledger

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// dateLayout is how executed_at is stored. The ledger only needs calendar
// precision; replay ordering comes from the id column.
const dateLayout = "2006-01-02"

// transactionColumns avoids SELECT * so scans stay stable across schema
// changes. Order must match scanTransaction.
const transactionColumns = `id, symbol, side, quantity, price, executed_at, owner`

// Querier is satisfied by both *sql.DB and *sql.Tx so repository methods can
// run standalone or inside an explicit transaction.
type Querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// TransactionRepository handles transaction table operations.
type TransactionRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewTransactionRepository creates a new transaction repository.
func NewTransactionRepository(db *sql.DB, log zerolog.Logger) *TransactionRepository {
	return &TransactionRepository{
		db:  db,
		log: log.With().Str("repo", "transaction").Logger(),
	}
}

// Create inserts a new transaction row and returns its assigned id.
func (r *TransactionRepository) Create(q Querier, txn Transaction) (int64, error) {
	if err := txn.Validate(); err != nil {
		return 0, fmt.Errorf("failed to create transaction: %w", err)
	}

	res, err := q.Exec(
		`INSERT INTO transactions (symbol, side, quantity, price, executed_at, owner)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		strings.ToUpper(strings.TrimSpace(txn.Symbol)),
		string(txn.Side),
		txn.Quantity,
		txn.Price,
		txn.ExecutedAt.Format(dateLayout),
		txn.Owner,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to create transaction: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read transaction id: %w", err)
	}

	r.log.Info().
		Int64("id", id).
		Str("symbol", txn.Symbol).
		Str("side", string(txn.Side)).
		Float64("quantity", txn.Quantity).
		Msg("Transaction created")

	return id, nil
}

// GetByID returns a transaction scoped to its owner, or nil when absent.
func (r *TransactionRepository) GetByID(id int64, owner string) (*Transaction, error) {
	row := r.db.QueryRow(
		"SELECT "+transactionColumns+" FROM transactions WHERE id = ? AND owner = ?",
		id, owner,
	)

	txn, err := r.scanTransaction(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction %d: %w", id, err)
	}
	return &txn, nil
}

// Delete removes a transaction row.
func (r *TransactionRepository) Delete(q Querier, id int64) error {
	if _, err := q.Exec("DELETE FROM transactions WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete transaction %d: %w", id, err)
	}
	return nil
}

// ListBySymbol returns the full history for one (owner, symbol) in insertion
// order - the order replay depends on.
func (r *TransactionRepository) ListBySymbol(q Querier, owner, symbol string) ([]Transaction, error) {
	rows, err := q.Query(
		"SELECT "+transactionColumns+" FROM transactions WHERE owner = ? AND symbol = ? ORDER BY id ASC",
		owner, symbol,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	return r.collectTransactions(rows)
}

// History returns all transactions for an owner, newest first.
func (r *TransactionRepository) History(owner string) ([]Transaction, error) {
	rows, err := r.db.Query(
		"SELECT "+transactionColumns+" FROM transactions WHERE owner = ? ORDER BY id DESC",
		owner,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	return r.collectTransactions(rows)
}

func (r *TransactionRepository) collectTransactions(rows *sql.Rows) ([]Transaction, error) {
	var txns []Transaction
	for rows.Next() {
		var txn Transaction
		var side, executedAt string
		if err := rows.Scan(&txn.ID, &txn.Symbol, &side, &txn.Quantity, &txn.Price, &executedAt, &txn.Owner); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txn.Side = Side(side)
		txn.ExecutedAt = r.parseDate(txn.ID, executedAt)
		txn.Kind = ClassifySymbol(txn.Symbol)
		txns = append(txns, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}
	return txns, nil
}

func (r *TransactionRepository) scanTransaction(row *sql.Row) (Transaction, error) {
	var txn Transaction
	var side, executedAt string
	if err := row.Scan(&txn.ID, &txn.Symbol, &side, &txn.Quantity, &txn.Price, &executedAt, &txn.Owner); err != nil {
		return Transaction{}, err
	}
	txn.Side = Side(side)
	txn.ExecutedAt = r.parseDate(txn.ID, executedAt)
	txn.Kind = ClassifySymbol(txn.Symbol)
	return txn, nil
}

// parseDate decodes a stored executed_at. A corrupt value is logged and
// surfaced as the zero time; replay ordering never depends on it, so one
// damaged row must not take the whole history listing down.
func (r *TransactionRepository) parseDate(id int64, value string) time.Time {
	parsed, err := time.Parse(dateLayout, value)
	if err != nil {
		r.log.Warn().Err(err).Int64("id", id).Str("value", value).Msg("Corrupt executed_at on transaction")
		return time.Time{}
	}
	return parsed
}
