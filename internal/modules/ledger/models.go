// Package ledger maintains the append-only transaction history and the
// average-cost position state derived from it.
package ledger

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Side is the direction of a transaction.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Kind classifies an instrument. Informational only - classification never
// affects the position math.
type Kind string

const (
	KindCurrency Kind = "currency"
	KindMetal    Kind = "metal"
	KindCrypto   Kind = "crypto"
	KindEquity   Kind = "equity"
)

// kindRules maps symbol substrings to kinds. Checked in order; the first
// match wins, everything else falls through to equity.
var kindRules = []struct {
	keyword string
	kind    Kind
}{
	{"GRAM", KindMetal},
	{"ALTIN", KindMetal},
	{"CEYREK", KindMetal},
	{"YARIM", KindMetal},
	{"GUMUS", KindMetal},
	{"PLATIN", KindMetal},
	{"GC=F", KindMetal},
	{"SI=F", KindMetal},
	{"PL=F", KindMetal},
	{"BTC", KindCrypto},
	{"ETH", KindCrypto},
	{"USD", KindCurrency},
	{"EUR", KindCurrency},
	{"GBP", KindCurrency},
	{"CHF", KindCurrency},
	{"TRY", KindCurrency},
	{"JPY", KindCurrency},
}

// ClassifySymbol resolves the instrument kind for a symbol.
func ClassifySymbol(symbol string) Kind {
	upper := strings.ToUpper(symbol)
	for _, rule := range kindRules {
		if strings.Contains(upper, rule.keyword) {
			return rule.kind
		}
	}
	return KindEquity
}

// Transaction is one immutable entry of the ledger. Rows are never mutated
// after creation; deletion triggers a full replay for the affected symbol.
type Transaction struct {
	ID         int64     `json:"id"`
	Owner      string    `json:"-"`
	Symbol     string    `json:"symbol"`
	Side       Side      `json:"side"`
	Quantity   float64   `json:"quantity"`
	Price      float64   `json:"price"`
	ExecutedAt time.Time `json:"executed_at"`
	Kind       Kind      `json:"kind"`
}

// ErrInsufficientBalance rejects a SELL that would drive a position negative.
var ErrInsufficientBalance = errors.New("insufficient balance")

// ValidationError rejects malformed input before it reaches the engine.
type ValidationError struct {
	Reason string
}

func (e ValidationError) Error() string {
	return e.Reason
}

// Validate checks the transaction fields. Returns a ValidationError so
// callers can surface the reason to the user.
func (t Transaction) Validate() error {
	if strings.TrimSpace(t.Symbol) == "" {
		return ValidationError{Reason: "symbol must not be empty"}
	}
	if t.Side != SideBuy && t.Side != SideSell {
		return ValidationError{Reason: fmt.Sprintf("invalid side %q", t.Side)}
	}
	if t.Quantity <= 0 {
		return ValidationError{Reason: "quantity must be positive"}
	}
	if t.Price < 0 {
		return ValidationError{Reason: "price must not be negative"}
	}
	return nil
}
