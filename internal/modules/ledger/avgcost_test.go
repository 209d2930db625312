package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestApplyBuy_WeightedAverage verifies the blended cost basis after
// successive purchases at different prices.
func TestApplyBuy_WeightedAverage(t *testing.T) {
	var state PositionState

	state.ApplyBuy(10, 100)
	assert.Equal(t, 10.0, state.Quantity)
	assert.Equal(t, 100.0, state.AvgCost)

	state.ApplyBuy(10, 200)
	assert.Equal(t, 20.0, state.Quantity)
	assert.Equal(t, 150.0, state.AvgCost)
}

// TestApplyBuy_OnlyBuysEqualsWeightedSum checks the invariant that after any
// sequence of buys the average equals sum(qty*price)/sum(qty).
func TestApplyBuy_OnlyBuysEqualsWeightedSum(t *testing.T) {
	buys := []struct {
		qty, price float64
	}{
		{3, 50}, {7, 120}, {1.5, 80}, {0.25, 1000}, {12, 95.5},
	}

	var state PositionState
	var totalQty, totalCost float64
	for _, buy := range buys {
		state.ApplyBuy(buy.qty, buy.price)
		totalQty += buy.qty
		totalCost += buy.qty * buy.price
	}

	assert.InDelta(t, totalQty, state.Quantity, 1e-9)
	assert.InDelta(t, totalCost/totalQty, state.AvgCost, 1e-9)
}

// TestApplySell_KeepsAverage verifies a sale reduces quantity without
// touching the basis - the sale price is irrelevant to the remaining shares.
func TestApplySell_KeepsAverage(t *testing.T) {
	state := PositionState{Quantity: 20, AvgCost: 150}

	err := state.ApplySell(5)
	require.NoError(t, err)
	assert.Equal(t, 15.0, state.Quantity)
	assert.Equal(t, 150.0, state.AvgCost)
}

// TestApplySell_InsufficientBalance verifies an oversized sell is rejected
// with no state change.
func TestApplySell_InsufficientBalance(t *testing.T) {
	state := PositionState{Quantity: 15, AvgCost: 150}

	err := state.ApplySell(20)
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Equal(t, 15.0, state.Quantity)
	assert.Equal(t, 150.0, state.AvgCost)
}

// TestApplySell_FullSellResetsBasis verifies the basis is explicitly zeroed
// when the position is fully closed, so it cannot leak into a future buy.
func TestApplySell_FullSellResetsBasis(t *testing.T) {
	state := PositionState{Quantity: 10, AvgCost: 250}

	err := state.ApplySell(10)
	require.NoError(t, err)
	assert.Equal(t, 0.0, state.Quantity)
	assert.Equal(t, 0.0, state.AvgCost)

	// The next buy starts a fresh basis.
	state.ApplyBuy(4, 90)
	assert.Equal(t, 90.0, state.AvgCost)
}

func buy(id int64, qty, price float64) Transaction {
	return Transaction{ID: id, Symbol: "THYAO.IS", Side: SideBuy, Quantity: qty, Price: price}
}

func sell(id int64, qty, price float64) Transaction {
	return Transaction{ID: id, Symbol: "THYAO.IS", Side: SideSell, Quantity: qty, Price: price}
}

// TestReplay_DeletionEquivalence verifies the core deletion property: the
// state after deleting a transaction and replaying equals the state of a
// history that never contained it.
func TestReplay_DeletionEquivalence(t *testing.T) {
	// BUY 10 @ 100 (id=1), BUY 10 @ 300 (id=2), SELL 5 @ 400 (id=3);
	// delete id=1.
	remaining := []Transaction{buy(2, 10, 300), sell(3, 5, 400)}

	state := Replay(remaining)
	assert.Equal(t, 5.0, state.Quantity)
	assert.Equal(t, 300.0, state.AvgCost)

	// Same sequence applied directly, without the deleted buy ever existing.
	var direct PositionState
	direct.ApplyBuy(10, 300)
	require.NoError(t, direct.ApplySell(5))
	assert.Equal(t, direct, state)
}

// TestReplay_Deterministic verifies replaying the same history twice yields
// identical results.
func TestReplay_Deterministic(t *testing.T) {
	history := []Transaction{
		buy(1, 10, 100),
		sell(2, 4, 180),
		buy(3, 6, 210),
		sell(4, 2, 90),
		buy(5, 0.5, 4000),
	}

	first := Replay(history)
	second := Replay(history)
	assert.Equal(t, first, second)
	assert.True(t, first.Quantity >= 0)
}

// TestReplay_OvershootingSellClampsToEmpty covers the history shape a
// deletion can produce: a sell larger than everything bought before it.
func TestReplay_OvershootingSellClampsToEmpty(t *testing.T) {
	history := []Transaction{
		buy(2, 5, 100),
		sell(3, 8, 150), // its matching buy was deleted
		buy(4, 10, 200),
	}

	state := Replay(history)
	assert.Equal(t, 10.0, state.Quantity)
	assert.Equal(t, 200.0, state.AvgCost)
}

// TestReplay_Empty verifies replaying an empty history yields the zero state.
func TestReplay_Empty(t *testing.T) {
	state := Replay(nil)
	assert.Equal(t, PositionState{}, state)
}

// TestReplay_EndsFlat verifies a history that fully sells out leaves no
// stale basis behind.
func TestReplay_EndsFlat(t *testing.T) {
	history := []Transaction{
		buy(1, 10, 100),
		sell(2, 10, 130),
	}

	state := Replay(history)
	assert.Equal(t, 0.0, state.Quantity)
	assert.Equal(t, 0.0, state.AvgCost)
}
