package ledger

import (
	"bytes"
	"context"
	"database/sql"
	"sync"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ozank/portfoy/internal/modules/portfolio"
)

func setupService(t *testing.T) (*Service, *sql.DB) {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	// One :memory: database exists per connection; pin the pool to a single
	// connection so every statement sees the same tables.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE transactions (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			symbol      TEXT NOT NULL,
			side        TEXT NOT NULL,
			quantity    REAL NOT NULL,
			price       REAL NOT NULL,
			executed_at TEXT NOT NULL,
			owner       TEXT NOT NULL
		);
		CREATE TABLE positions (
			symbol        TEXT NOT NULL,
			quantity      REAL NOT NULL DEFAULT 0,
			avg_price     REAL NOT NULL DEFAULT 0,
			current_price REAL NOT NULL DEFAULT 0,
			kind          TEXT NOT NULL DEFAULT '',
			owner         TEXT NOT NULL,
			updated_at    TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (owner, symbol)
		);
	`)
	require.NoError(t, err)

	log := zerolog.Nop()
	txRepo := NewTransactionRepository(db, log)
	posRepo := portfolio.NewPositionRepository(db, log)
	return NewService(db, txRepo, posRepo, log), db
}

func mustRecord(t *testing.T, svc *Service, owner string, side Side, qty, price float64) *Transaction {
	t.Helper()
	txn, err := svc.Record(context.Background(), owner, NewTransaction{
		Symbol:   "THYAO.IS",
		Side:     side,
		Quantity: qty,
		Price:    price,
	})
	require.NoError(t, err)
	return txn
}

func getPosition(t *testing.T, db *sql.DB, owner, symbol string) (qty, avg, current float64) {
	t.Helper()
	err := db.QueryRow(
		"SELECT quantity, avg_price, current_price FROM positions WHERE owner = ? AND symbol = ?",
		owner, symbol,
	).Scan(&qty, &avg, &current)
	require.NoError(t, err)
	return qty, avg, current
}

// TestRecord_BuysBlendAverage: BUY 10 @ 100, BUY 10 @ 200 -> 20 @ 150.
func TestRecord_BuysBlendAverage(t *testing.T) {
	svc, db := setupService(t)

	mustRecord(t, svc, "alice", SideBuy, 10, 100)
	mustRecord(t, svc, "alice", SideBuy, 10, 200)

	qty, avg, current := getPosition(t, db, "alice", "THYAO.IS")
	assert.Equal(t, 20.0, qty)
	assert.Equal(t, 150.0, avg)
	assert.Equal(t, 200.0, current, "fill price becomes the last known price")
}

// TestRecord_SellLeavesAverage: continuing, SELL 5 @ 300 -> 15 @ 150.
func TestRecord_SellLeavesAverage(t *testing.T) {
	svc, db := setupService(t)

	mustRecord(t, svc, "alice", SideBuy, 10, 100)
	mustRecord(t, svc, "alice", SideBuy, 10, 200)
	mustRecord(t, svc, "alice", SideSell, 5, 300)

	qty, avg, _ := getPosition(t, db, "alice", "THYAO.IS")
	assert.Equal(t, 15.0, qty)
	assert.Equal(t, 150.0, avg, "sale price must not feed back into the basis")
}

// TestRecord_OversizedSellRejected: SELL 20 against 15 held -> rejected,
// nothing written.
func TestRecord_OversizedSellRejected(t *testing.T) {
	svc, db := setupService(t)

	mustRecord(t, svc, "alice", SideBuy, 10, 100)
	mustRecord(t, svc, "alice", SideBuy, 10, 200)
	mustRecord(t, svc, "alice", SideSell, 5, 300)

	_, err := svc.Record(context.Background(), "alice", NewTransaction{
		Symbol: "THYAO.IS", Side: SideSell, Quantity: 20, Price: 300,
	})
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	qty, avg, _ := getPosition(t, db, "alice", "THYAO.IS")
	assert.Equal(t, 15.0, qty)
	assert.Equal(t, 150.0, avg)

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM transactions WHERE owner = 'alice'").Scan(&count))
	assert.Equal(t, 3, count, "rejected sell must not be appended to the ledger")
}

// TestRecord_SellAgainstEmptyPosition rejects a sell with no history at all.
func TestRecord_SellAgainstEmptyPosition(t *testing.T) {
	svc, _ := setupService(t)

	_, err := svc.Record(context.Background(), "alice", NewTransaction{
		Symbol: "THYAO.IS", Side: SideSell, Quantity: 1, Price: 10,
	})
	assert.ErrorIs(t, err, ErrInsufficientBalance)
}

// TestRecord_ValidationBeforeMutation rejects malformed input before the
// engine or the database are touched.
func TestRecord_ValidationBeforeMutation(t *testing.T) {
	svc, db := setupService(t)

	testCases := []struct {
		name  string
		input NewTransaction
	}{
		{"zero quantity", NewTransaction{Symbol: "THYAO.IS", Side: SideBuy, Quantity: 0, Price: 10}},
		{"negative quantity", NewTransaction{Symbol: "THYAO.IS", Side: SideSell, Quantity: -2, Price: 10}},
		{"empty symbol", NewTransaction{Symbol: " ", Side: SideBuy, Quantity: 1, Price: 10}},
		{"bad side", NewTransaction{Symbol: "THYAO.IS", Side: "SHORT", Quantity: 1, Price: 10}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Record(context.Background(), "alice", tc.input)
			var validation ValidationError
			assert.ErrorAs(t, err, &validation)
		})
	}

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM transactions").Scan(&count))
	assert.Equal(t, 0, count)
}

// TestRecord_SellDownToZeroResetsBasis verifies the explicit zeroing of the
// stored average once the position is flat.
func TestRecord_SellDownToZeroResetsBasis(t *testing.T) {
	svc, db := setupService(t)

	mustRecord(t, svc, "alice", SideBuy, 10, 250)
	mustRecord(t, svc, "alice", SideSell, 10, 400)

	qty, avg, _ := getPosition(t, db, "alice", "THYAO.IS")
	assert.Equal(t, 0.0, qty)
	assert.Equal(t, 0.0, avg)
}

// TestDelete_ReplaysRemainingHistory: BUY 10 @ 100 (id=1), BUY 10 @ 300
// (id=2), SELL 5 @ 400 (id=3); deleting id=1 must leave 5 @ 300.
func TestDelete_ReplaysRemainingHistory(t *testing.T) {
	svc, db := setupService(t)

	first := mustRecord(t, svc, "alice", SideBuy, 10, 100)
	mustRecord(t, svc, "alice", SideBuy, 10, 300)
	mustRecord(t, svc, "alice", SideSell, 5, 400)

	require.NoError(t, svc.Delete(context.Background(), "alice", first.ID))

	qty, avg, current := getPosition(t, db, "alice", "THYAO.IS")
	assert.Equal(t, 5.0, qty)
	assert.Equal(t, 300.0, avg)
	assert.Equal(t, 400.0, current, "deletion must not disturb the last known price")

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM transactions WHERE owner = 'alice'").Scan(&count))
	assert.Equal(t, 2, count)
}

// TestDelete_LastTransactionZeroesPosition: removing the only buy flattens
// the position entirely.
func TestDelete_LastTransactionZeroesPosition(t *testing.T) {
	svc, db := setupService(t)

	txn := mustRecord(t, svc, "alice", SideBuy, 10, 100)
	require.NoError(t, svc.Delete(context.Background(), "alice", txn.ID))

	qty, avg, _ := getPosition(t, db, "alice", "THYAO.IS")
	assert.Equal(t, 0.0, qty)
	assert.Equal(t, 0.0, avg)
}

// TestDelete_ForeignTransactionRejected: an owner cannot delete someone
// else's ledger entry.
func TestDelete_ForeignTransactionRejected(t *testing.T) {
	svc, db := setupService(t)

	txn := mustRecord(t, svc, "alice", SideBuy, 10, 100)

	err := svc.Delete(context.Background(), "mallory", txn.ID)
	var validation ValidationError
	assert.ErrorAs(t, err, &validation)

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM transactions").Scan(&count))
	assert.Equal(t, 1, count)
}

// TestDelete_UnknownID surfaces a validation error, not a storage failure.
func TestDelete_UnknownID(t *testing.T) {
	svc, _ := setupService(t)

	err := svc.Delete(context.Background(), "alice", 999)
	var validation ValidationError
	assert.ErrorAs(t, err, &validation)
}

// TestOwnersAreIsolated verifies the same symbol held by two owners never
// crosses over.
func TestOwnersAreIsolated(t *testing.T) {
	svc, db := setupService(t)

	mustRecord(t, svc, "alice", SideBuy, 10, 100)
	mustRecord(t, svc, "bob", SideBuy, 2, 500)

	aliceQty, aliceAvg, _ := getPosition(t, db, "alice", "THYAO.IS")
	bobQty, bobAvg, _ := getPosition(t, db, "bob", "THYAO.IS")

	assert.Equal(t, 10.0, aliceQty)
	assert.Equal(t, 100.0, aliceAvg)
	assert.Equal(t, 2.0, bobQty)
	assert.Equal(t, 500.0, bobAvg)
}

// TestHistory_NewestFirst verifies the history endpoint ordering.
func TestHistory_NewestFirst(t *testing.T) {
	svc, _ := setupService(t)

	first := mustRecord(t, svc, "alice", SideBuy, 10, 100)
	second := mustRecord(t, svc, "alice", SideBuy, 5, 120)

	history, err := svc.History(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, second.ID, history[0].ID)
	assert.Equal(t, first.ID, history[1].ID)
}

// TestConcurrentMutations fires parallel Records and a Delete against one
// (owner, symbol). Whatever order the writers win their turns in, the stored
// position must equal a replay of the history that survived.
func TestConcurrentMutations(t *testing.T) {
	svc, db := setupService(t)

	seed := mustRecord(t, svc, "alice", SideBuy, 100, 50)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		price := float64(100 + i*10)
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Record(context.Background(), "alice", NewTransaction{
				Symbol:   "THYAO.IS",
				Side:     SideBuy,
				Quantity: 1,
				Price:    price,
			})
			assert.NoError(t, err)
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, svc.Delete(context.Background(), "alice", seed.ID))
	}()
	wg.Wait()

	remaining, err := svc.transactions.ListBySymbol(db, "alice", "THYAO.IS")
	require.NoError(t, err)
	require.Len(t, remaining, 10)

	want := Replay(remaining)
	qty, avg, _ := getPosition(t, db, "alice", "THYAO.IS")
	assert.InDelta(t, want.Quantity, qty, 1e-9)
	assert.InDelta(t, want.AvgCost, avg, 1e-9)
}

// TestHistory_CorruptDateSurfaced: a damaged executed_at must not take the
// listing down, but it must not pass silently either.
func TestHistory_CorruptDateSurfaced(t *testing.T) {
	svc, db := setupService(t)

	mustRecord(t, svc, "alice", SideBuy, 10, 100)
	_, err := db.Exec(
		"INSERT INTO transactions (symbol, side, quantity, price, executed_at, owner) VALUES ('THYAO.IS', 'BUY', 5, 120, 'garbage', 'alice')",
	)
	require.NoError(t, err)

	var buf bytes.Buffer
	repo := NewTransactionRepository(db, zerolog.New(&buf))

	history, err := repo.History("alice")
	require.NoError(t, err)
	require.Len(t, history, 2)

	// Newest first: the corrupt row is on top, dated zero; the healthy row
	// keeps its date.
	assert.True(t, history[0].ExecutedAt.IsZero())
	assert.False(t, history[1].ExecutedAt.IsZero())
	assert.Contains(t, buf.String(), "Corrupt executed_at")
}
