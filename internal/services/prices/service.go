// Package prices fetches batched market prices with a relay fallback
package prices

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/bobmcallan/coinfolio/internal/common"
	"github.com/bobmcallan/coinfolio/internal/interfaces"
	"github.com/bobmcallan/coinfolio/internal/models"
)

// ErrMalformedResponse marks a price body that could not be used at all.
var ErrMalformedResponse = errors.New("malformed price response")

// FetchError is returned when every transport failed for a batch.
// Causes holds one error per attempted transport, primary first.
type FetchError struct {
	IDs    []string
	Causes []error
}

func (e *FetchError) Error() string {
	parts := make([]string, len(e.Causes))
	for i, c := range e.Causes {
		parts[i] = c.Error()
	}
	return fmt.Sprintf("price fetch failed for %d ids: %s", len(e.IDs), strings.Join(parts, "; "))
}

func (e *FetchError) Unwrap() []error {
	return e.Causes
}

// Service implements PriceFetcher with a primary transport and an optional
// fallback tried only after the primary failed.
type Service struct {
	primary  interfaces.PriceSource
	fallback interfaces.PriceSource
	currency string
	logger   *common.Logger
}

// NewService creates a price fetcher. fallback may be nil.
func NewService(primary, fallback interfaces.PriceSource, currency string, logger *common.Logger) *Service {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	currency = strings.ToLower(strings.TrimSpace(currency))
	if currency == "" {
		currency = "usd"
	}
	return &Service{
		primary:  primary,
		fallback: fallback,
		currency: currency,
		logger:   logger,
	}
}

// Currency returns the quote currency prices are fetched in.
func (s *Service) Currency() string {
	return s.currency
}

// FetchPrices issues one batched request for all ids. Ids missing from the
// response are absent from the table.
func (s *Service) FetchPrices(ctx context.Context, ids []string) (models.PriceTable, error) {
	batch := normalizeIDs(ids)
	if len(batch) == 0 {
		return models.PriceTable{}, nil
	}

	start := time.Now()
	table, primaryErr := s.attempt(ctx, s.primary, batch)
	if primaryErr == nil {
		s.logger.Debug().Str("transport", s.primary.Name()).Int("ids", len(batch)).Int("prices", len(table)).Dur("elapsed", time.Since(start)).Msg("Prices fetched")
		return table, nil
	}

	if s.fallback == nil || ctx.Err() != nil {
		return nil, &FetchError{IDs: batch, Causes: []error{primaryErr}}
	}

	s.logger.Warn().Err(primaryErr).Str("fallback", s.fallback.Name()).Msg("Primary price request failed, trying fallback")

	table, fallbackErr := s.attempt(ctx, s.fallback, batch)
	if fallbackErr != nil {
		return nil, &FetchError{IDs: batch, Causes: []error{primaryErr, fallbackErr}}
	}

	s.logger.Info().Str("transport", s.fallback.Name()).Int("ids", len(batch)).Int("prices", len(table)).Dur("elapsed", time.Since(start)).Msg("Prices fetched via fallback")
	return table, nil
}

func (s *Service) attempt(ctx context.Context, src interfaces.PriceSource, batch []string) (models.PriceTable, error) {
	raw, err := src.SimplePrice(ctx, batch, s.currency)
	if err != nil {
		return nil, fmt.Errorf("%s transport: %w", src.Name(), err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%s transport: %w: empty body", src.Name(), ErrMalformedResponse)
	}
	return s.validate(raw, batch, src.Name()), nil
}

// validate keeps the requested ids that carry a finite positive quote-currency
// price. Any other entry is skipped with a warning and left out of the table.
func (s *Service) validate(raw map[string]map[string]float64, batch []string, transport string) models.PriceTable {
	table := make(models.PriceTable, len(batch))
	for _, id := range batch {
		quotes, ok := raw[id]
		if !ok {
			continue
		}
		p, ok := quotes[s.currency]
		if !ok {
			s.logger.Warn().Str("transport", transport).Str("id", id).Str("currency", s.currency).Msg("Price entry has no quote currency, skipping")
			continue
		}
		if math.IsNaN(p) || math.IsInf(p, 0) || p <= 0 {
			s.logger.Warn().Str("transport", transport).Str("id", id).Float64("price", p).Msg("Price entry is not a positive number, skipping")
			continue
		}
		table[id] = p
	}
	return table
}

// normalizeIDs trims, drops blanks, dedupes and sorts so the batch is stable.
func normalizeIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Ensure Service implements PriceFetcher
var _ interfaces.PriceFetcher = (*Service)(nil)
