// Package pricing resolves instrument symbols to current unit prices.
//
// Plain tickers are quoted directly from the market-data source. Physical
// gold variants are derived from the free-market gram price via fixed
// multipliers that encode the traditional weight and purity of each coin
// type. Gram silver and platinum come from the ounce price converted through
// the USD/TRY rate.
package pricing

import (
	"context"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// GramsPerTroyOunce converts troy-ounce bullion quotes to gram prices.
const GramsPerTroyOunce = 31.1035

// Traditional weight/purity multipliers for Turkish physical gold, applied to
// the free-market (jeweler) gram price. These encode minted coin weights and
// alloy purity and are not configurable.
const (
	Karat22Multiplier     = 0.916
	Karat14Multiplier     = 0.585
	QuarterCoinMultiplier = 1.6065
	HalfCoinMultiplier    = 3.2130
	FullCoinMultiplier    = 6.4260
	AtaCoinMultiplier     = 6.6080
)

// Synthetic metal symbols recognized by the resolver. Everything else is
// passed to the quote source verbatim.
const (
	SymbolGramGoldBank  = "GRAM-ALTIN"
	SymbolGramGoldFree  = "GRAM-ALTIN-S"
	SymbolGram22Karat   = "GRAM-ALTIN-22"
	SymbolGram22Bangle  = "GRAM-ALTIN-22-B"
	SymbolGram14Karat   = "GRAM-ALTIN-14"
	SymbolQuarterCoin   = "CEYREK-ALTIN"
	SymbolHalfCoin      = "YARIM-ALTIN"
	SymbolFullCoin      = "TAM-ALTIN"
	SymbolAtaCoin       = "ATA-ALTIN"
	SymbolGramSilver    = "GRAM-GUMUS"
	SymbolGramPlatinum  = "GRAM-PLATIN"
	SymbolUSDTRY        = "USDTRY=X"
	SymbolOunceGold     = "GC=F"
	SymbolOunceSilver   = "SI=F"
	SymbolOuncePlatinum = "PL=F"
)

// gramOunceSymbols maps each gram metal symbol to the ounce ticker it is
// derived from.
var gramOunceSymbols = map[string]string{
	SymbolGramGoldBank: SymbolOunceGold,
	SymbolGramSilver:   SymbolOunceSilver,
	SymbolGramPlatinum: SymbolOuncePlatinum,
}

// OunceSymbolFor returns the ounce ticker a gram metal symbol derives from,
// and whether the symbol is such a derived instrument.
func OunceSymbolFor(symbol string) (string, bool) {
	ounce, ok := gramOunceSymbols[symbol]
	return ounce, ok
}

// QuoteSource is the "get last price for symbol" capability.
type QuoteSource interface {
	GetLastClose(ctx context.Context, symbol string) (float64, error)
}

// Rates is one consistent snapshot of the base prices every derived
// instrument hangs off. Zero fields mean the underlying quote was
// unavailable.
type Rates struct {
	USDTRY        float64
	OunceGold     float64
	OunceSilver   float64
	OuncePlatinum float64
	BankGramGold  float64 // exchange-implied: ounce gold x USD/TRY / 31.1035
	FreeGramGold  float64 // user-supplied jeweler price, falls back to bank price
	GramSilver    float64
	GramPlatinum  float64
}

// Service computes rate snapshots and resolves symbols to prices.
type Service struct {
	source QuoteSource
	log    zerolog.Logger
}

// NewService creates a new pricing service.
func NewService(source QuoteSource, log zerolog.Logger) *Service {
	return &Service{
		source: source,
		log:    log.With().Str("service", "pricing").Logger(),
	}
}

// Snapshot fetches the base quotes and derives the gram prices.
// freeMarketGram is the optional user-supplied jeweler gram-gold price in
// Turkish decimal notation ("3.150,50"); when absent or invalid the
// exchange-implied bank price is used instead.
func (s *Service) Snapshot(ctx context.Context, freeMarketGram string) Rates {
	usd := s.quote(ctx, SymbolUSDTRY)
	if usd == 0 {
		// A dead FX feed must not zero out every derived price.
		usd = 1.0
	}

	rates := Rates{
		USDTRY:        usd,
		OunceGold:     s.quote(ctx, SymbolOunceGold),
		OunceSilver:   s.quote(ctx, SymbolOunceSilver),
		OuncePlatinum: s.quote(ctx, SymbolOuncePlatinum),
	}

	rates.BankGramGold = rates.OunceGold * usd / GramsPerTroyOunce
	rates.GramSilver = rates.OunceSilver * usd / GramsPerTroyOunce
	rates.GramPlatinum = rates.OuncePlatinum * usd / GramsPerTroyOunce

	rates.FreeGramGold = rates.BankGramGold
	if freeMarketGram != "" {
		if parsed, err := ParseTurkishAmount(freeMarketGram); err == nil && parsed > 0 {
			rates.FreeGramGold = parsed
		} else {
			s.log.Debug().Str("input", freeMarketGram).Msg("Ignoring invalid free-market gram price")
		}
	}

	return rates
}

// Resolve maps a symbol to its current unit price under the given snapshot.
// Never fails: unknown or unavailable symbols resolve to the 0 sentinel so a
// dead price feed degrades the display instead of aborting the caller.
func (s *Service) Resolve(ctx context.Context, symbol string, rates Rates) float64 {
	switch symbol {
	case SymbolGramGoldBank:
		return rates.BankGramGold
	case SymbolGramGoldFree:
		return rates.FreeGramGold
	case SymbolGram22Karat, SymbolGram22Bangle:
		return rates.FreeGramGold * Karat22Multiplier
	case SymbolGram14Karat:
		return rates.FreeGramGold * Karat14Multiplier
	case SymbolQuarterCoin:
		return rates.FreeGramGold * QuarterCoinMultiplier
	case SymbolHalfCoin:
		return rates.FreeGramGold * HalfCoinMultiplier
	case SymbolFullCoin:
		return rates.FreeGramGold * FullCoinMultiplier
	case SymbolAtaCoin:
		return rates.FreeGramGold * AtaCoinMultiplier
	case SymbolGramSilver:
		return rates.GramSilver
	case SymbolGramPlatinum:
		return rates.GramPlatinum
	default:
		return s.quote(ctx, symbol)
	}
}

// quote fetches a direct quote, absorbing all failures to the 0 sentinel.
func (s *Service) quote(ctx context.Context, symbol string) float64 {
	price, err := s.source.GetLastClose(ctx, symbol)
	if err != nil {
		s.log.Warn().Err(err).Str("symbol", symbol).Msg("Quote unavailable, using 0 sentinel")
		return 0
	}
	return price
}

// ParseTurkishAmount parses a number in Turkish notation where "." groups
// thousands and "," marks the decimal point (e.g. "3.150,50" -> 3150.50).
func ParseTurkishAmount(input string) (float64, error) {
	normalized := strings.ReplaceAll(strings.TrimSpace(input), ".", "")
	normalized = strings.ReplaceAll(normalized, ",", ".")
	return strconv.ParseFloat(normalized, 64)
}
