// Package watchlist maintains the global seed list of tracked instruments
// and live quotes for them. The list is shared reference data, not scoped to
// an owner.
package watchlist

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ozank/portfoy/internal/modules/pricing"
)

// Entry is one tracked instrument.
type Entry struct {
	Symbol    string `json:"symbol"`
	Name      string `json:"name"`
	ShortCode string `json:"short_code"`
}

// Quote is a live snapshot for one watchlist entry. Price 0 means the
// instrument could not be quoted right now.
type Quote struct {
	Entry
	Price     float64 `json:"price"`
	DayChange float64 `json:"day_change_pct"`
}

// seedEntries pre-populates the watchlist on first start.
var seedEntries = []Entry{
	{Symbol: "USDTRY=X", Name: "DOLAR/TL", ShortCode: "USD"},
	{Symbol: "EURTRY=X", Name: "EURO/TL", ShortCode: "EUR"},
	{Symbol: "GRAM-ALTIN", Name: "GRAM ALTIN", ShortCode: "GAU"},
	{Symbol: "GRAM-GUMUS", Name: "GRAM GÜMÜŞ", ShortCode: "GÜMÜŞ"},
	{Symbol: "GRAM-PLATIN", Name: "GRAM PLATİN", ShortCode: "PLATİN"},
	{Symbol: "GC=F", Name: "ONS ALTIN", ShortCode: "ONS-ALTIN"},
	{Symbol: "SI=F", Name: "ONS GÜMÜŞ", ShortCode: "ONS-GÜMÜŞ"},
	{Symbol: "PL=F", Name: "ONS PLATİN", ShortCode: "ONS-PLATİN"},
	{Symbol: "XU100.IS", Name: "BIST 100", ShortCode: "BIST"},
	{Symbol: "BTC-USD", Name: "BITCOIN", ShortCode: "BTC"},
}

// QuoteSource provides day-over-day closes for direct tickers.
type QuoteSource interface {
	GetLastTwoCloses(ctx context.Context, symbol string) (float64, float64, error)
}

// Repository handles watchlist table operations.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new watchlist repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "watchlist").Logger(),
	}
}

// SeedIfEmpty inserts the default instrument list when the table is empty.
func (r *Repository) SeedIfEmpty() error {
	var count int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM watchlist").Scan(&count); err != nil {
		return fmt.Errorf("failed to count watchlist: %w", err)
	}
	if count > 0 {
		return nil
	}

	for _, entry := range seedEntries {
		if _, err := r.db.Exec(
			"INSERT INTO watchlist (symbol, name, short_code) VALUES (?, ?, ?)",
			entry.Symbol, entry.Name, entry.ShortCode,
		); err != nil {
			return fmt.Errorf("failed to seed watchlist entry %s: %w", entry.Symbol, err)
		}
	}

	r.log.Info().Int("entries", len(seedEntries)).Msg("Watchlist seeded")
	return nil
}

// All returns every watchlist entry.
func (r *Repository) All() ([]Entry, error) {
	rows, err := r.db.Query("SELECT symbol, name, short_code FROM watchlist ORDER BY symbol")
	if err != nil {
		return nil, fmt.Errorf("failed to query watchlist: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var entry Entry
		if err := rows.Scan(&entry.Symbol, &entry.Name, &entry.ShortCode); err != nil {
			return nil, fmt.Errorf("failed to scan watchlist entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating watchlist: %w", err)
	}
	return entries, nil
}

// Service quotes watchlist entries for the live-market panel.
type Service struct {
	repo   *Repository
	source QuoteSource
	log    zerolog.Logger
}

// NewService creates a new watchlist service.
func NewService(repo *Repository, source QuoteSource, log zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		source: source,
		log:    log.With().Str("service", "watchlist").Logger(),
	}
}

// Entries returns the tracked instrument list.
func (s *Service) Entries() ([]Entry, error) {
	return s.repo.All()
}

// Quotes returns a live row per entry. A failed lookup yields a sentinel row
// (price 0, change 0) instead of dropping the entry or failing the panel.
//
// Gram metal symbols are not listed anywhere; their price is derived from the
// ounce ticker through the exchange rate, and their day change is the ounce
// day change.
func (s *Service) Quotes(ctx context.Context) ([]Quote, error) {
	entries, err := s.repo.All()
	if err != nil {
		return nil, err
	}

	// One exchange rate per pass so all derived rows agree. A dead FX feed
	// falls back to 1.0 the same way the pricing snapshot does.
	usd, _, err := s.source.GetLastTwoCloses(ctx, pricing.SymbolUSDTRY)
	if err != nil || usd <= 0 {
		usd = 1.0
	}

	quotes := make([]Quote, 0, len(entries))
	for _, entry := range entries {
		quote := Quote{Entry: entry}

		symbol := entry.Symbol
		gramFactor := 0.0
		if ounce, ok := pricing.OunceSymbolFor(symbol); ok {
			symbol = ounce
			gramFactor = usd / pricing.GramsPerTroyOunce
		}

		last, prev, err := s.source.GetLastTwoCloses(ctx, symbol)
		if err != nil {
			s.log.Debug().Err(err).Str("symbol", symbol).Msg("Watchlist quote unavailable")
		} else {
			quote.Price = last
			if gramFactor > 0 {
				quote.Price = last * gramFactor
			}
			if prev > 0 {
				quote.DayChange = (last - prev) / prev * 100
			}
		}
		quotes = append(quotes, quote)
	}
	return quotes, nil
}
