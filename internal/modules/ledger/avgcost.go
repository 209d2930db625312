package ledger

// PositionState is the running (quantity, weighted-average cost) pair for one
// (owner, symbol). The cost pool is a single scalar - there is no per-lot
// FIFO tracking.
type PositionState struct {
	Quantity float64
	AvgCost  float64
}

// ApplyBuy folds a purchase into the weighted average.
func (p *PositionState) ApplyBuy(quantity, price float64) {
	newQuantity := p.Quantity + quantity
	p.AvgCost = (p.Quantity*p.AvgCost + quantity*price) / newQuantity
	p.Quantity = newQuantity
}

// ApplySell reduces the held quantity. The average cost of the remaining
// shares is unchanged - the sale price lives only in the transaction log.
// A sell exceeding the held quantity is rejected without mutating the state.
func (p *PositionState) ApplySell(quantity float64) error {
	if quantity > p.Quantity {
		return ErrInsufficientBalance
	}
	p.Quantity -= quantity
	if p.Quantity == 0 {
		// Explicitly drop the basis so it cannot leak into a future position.
		p.AvgCost = 0
	}
	return nil
}

// Replay recomputes a position from an ordered transaction history, starting
// from the empty state. Used after a retroactive deletion, where a simple
// reversal is wrong because intervening sells consumed basis established by
// the deleted buy.
//
// A sell that overshoots the running quantity (possible once its matching
// buy has been deleted) clamps the position to empty rather than going
// negative, so the result is deterministic for any input history.
func Replay(history []Transaction) PositionState {
	var state PositionState
	for _, txn := range history {
		switch txn.Side {
		case SideBuy:
			state.ApplyBuy(txn.Quantity, txn.Price)
		case SideSell:
			if txn.Quantity >= state.Quantity {
				state = PositionState{}
				continue
			}
			// Cannot fail: quantity is strictly below the held amount.
			_ = state.ApplySell(txn.Quantity)
		}
	}
	return state
}
