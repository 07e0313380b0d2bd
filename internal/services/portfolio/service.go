// Package portfolio keeps the investment collection and its market prices
package portfolio

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/bobmcallan/coinfolio/internal/common"
	"github.com/bobmcallan/coinfolio/internal/interfaces"
	"github.com/bobmcallan/coinfolio/internal/models"
)

// ErrInvestmentNotFound is returned by UpdateInvestment for an unknown id.
var ErrInvestmentNotFound = errors.New("investment not found")

// User-facing sync error messages.
const (
	MsgFetchFailed = "Failed to update prices. Please check your internet connection and try again."
	MsgSaveFailed  = "Prices were updated but could not be saved. Please try again."
)

const (
	DefaultResolveConcurrency       = 4
	DefaultSuspiciousPriceThreshold = 1.0
)

// Service implements PortfolioService
type Service struct {
	store    interfaces.InvestmentStore
	resolver interfaces.IdentifierResolver
	fetcher  interfaces.PriceFetcher
	logger   *common.Logger

	resolveConcurrency  int
	suspiciousThreshold float64
	now                 func() time.Time       // injectable clock for testing
	newID               func() (string, error) // injectable id source for testing

	// mu guards investments and is held across reload, mutation and save.
	mu          sync.Mutex
	investments []models.Investment

	refreshing atomic.Bool

	statusMu sync.RWMutex
	lastErr  string
	lastSync time.Time
}

// Option configures the service
type Option func(*Service)

// WithResolveConcurrency bounds concurrent resolver calls during a refresh.
func WithResolveConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.resolveConcurrency = n
		}
	}
}

// WithSuspiciousPriceThreshold sets the price below which a fetched price is
// logged as suspicious. Zero disables the warning.
func WithSuspiciousPriceThreshold(v float64) Option {
	return func(s *Service) {
		s.suspiciousThreshold = v
	}
}

// NewService creates a new portfolio service. The collection starts empty;
// call Load to read the persisted one.
func NewService(store interfaces.InvestmentStore, resolver interfaces.IdentifierResolver, fetcher interfaces.PriceFetcher, logger *common.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	s := &Service{
		store:               store,
		resolver:            resolver,
		fetcher:             fetcher,
		logger:              logger,
		resolveConcurrency:  DefaultResolveConcurrency,
		suspiciousThreshold: DefaultSuspiciousPriceThreshold,
		now:                 time.Now,
		newID:               newUUIDv7,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func newUUIDv7() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Load replaces the in-memory collection with the persisted one. On a backend
// failure the collection is left empty and the error is returned.
func (s *Service) Load(ctx context.Context) error {
	invs, err := s.store.Load(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.investments = nil
		s.logger.Warn().Err(err).Msg("Could not load investments, starting empty")
		return err
	}
	s.investments = invs
	s.logger.Debug().Int("investments", len(invs)).Msg("Investments loaded")
	return nil
}

// reloadLocked replaces the in-memory collection with the persisted one so
// changes saved by another process are not overwritten. A failing backend
// keeps the current collection. Caller holds mu.
func (s *Service) reloadLocked(ctx context.Context) {
	invs, err := s.store.Load(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Could not reload investments, using the in-memory collection")
		return
	}
	s.investments = invs
}

// current reloads and returns a copy of the collection.
func (s *Service) current(ctx context.Context) []models.Investment {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reloadLocked(ctx)
	return models.CloneInvestments(s.investments)
}

// --- Sync ---

// RefreshAll runs one sync cycle: resolve, fetch, merge, persist. It returns
// false when another refresh is running, when the fetch failed or when the
// result could not be saved. Investments are only changed on success.
func (s *Service) RefreshAll(ctx context.Context) (ok bool) {
	if !s.refreshing.CompareAndSwap(false, true) {
		s.logger.Debug().Msg("Refresh already in progress, skipping")
		return false
	}
	defer s.refreshing.Store(false)

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().
				Str("panic", fmt.Sprintf("%v", r)).
				Str("stack", string(debug.Stack())).
				Msg("Recovered from panic during refresh")
			s.setError(MsgFetchFailed)
			ok = false
		}
	}()

	s.setError("")
	start := s.now()

	snapshot := s.current(ctx)
	if len(snapshot) == 0 {
		s.logger.Debug().Msg("No investments to refresh")
		return true
	}

	cached, unresolved := resolutionPlan(snapshot)
	resolved := s.resolveStage(ctx, unresolved)
	ids := identifierSet(cached, resolved)

	prices, err := s.fetcher.FetchPrices(ctx, ids)
	if err != nil {
		s.logger.Error().Err(err).Int("ids", len(ids)).Msg("Price refresh failed, keeping previous prices")
		s.setError(MsgFetchFailed)
		return false
	}
	s.warnSuspicious(prices)

	syncedAt := s.now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.reloadLocked(ctx)
	merged := Merge(s.investments, resolved, prices, syncedAt)
	if err := s.store.Save(ctx, merged); err != nil {
		s.logger.Error().Err(err).Msg("Failed to persist refreshed prices")
		s.setError(MsgSaveFailed)
		return false
	}
	s.investments = merged

	s.statusMu.Lock()
	s.lastSync = syncedAt
	s.statusMu.Unlock()

	s.logger.Info().
		Int("investments", len(merged)).
		Int("ids", len(ids)).
		Int("prices", len(prices)).
		Dur("elapsed", s.now().Sub(start)).
		Msg("Prices refreshed")

	return true
}

// resolveStage resolves symbols concurrently. Results are collected per index
// and only read after every call returned. A failing symbol is left out.
func (s *Service) resolveStage(ctx context.Context, symbols []string) map[string]string {
	resolved := make(map[string]string, len(symbols))
	if len(symbols) == 0 {
		return resolved
	}

	results := make([]string, len(symbols))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.resolveConcurrency)

	for i, sym := range symbols {
		g.Go(func() error {
			id, err := s.resolver.Resolve(gctx, sym)
			if err != nil {
				s.logger.Warn().Err(err).Str("symbol", sym).Msg("Symbol resolution failed, skipping this cycle")
				return nil
			}
			results[i] = id
			return nil
		})
	}
	_ = g.Wait()

	for i, sym := range symbols {
		if results[i] != "" {
			resolved[sym] = results[i]
		}
	}
	return resolved
}

func (s *Service) warnSuspicious(prices models.PriceTable) {
	if s.suspiciousThreshold <= 0 {
		return
	}
	for id, p := range prices {
		if p < s.suspiciousThreshold {
			s.logger.Warn().
				Str("id", id).
				Float64("price", p).
				Float64("threshold", s.suspiciousThreshold).
				Msg("Suspiciously low price, check the identifier mapping")
		}
	}
}

func (s *Service) setError(msg string) {
	s.statusMu.Lock()
	s.lastErr = msg
	s.statusMu.Unlock()
}

// IsLoading reports whether a refresh is in flight.
func (s *Service) IsLoading() bool {
	return s.refreshing.Load()
}

// LastError returns the message of the last failed refresh, or "".
func (s *Service) LastError() string {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	return s.lastErr
}

// Status returns the sync state in one value.
func (s *Service) Status() models.SyncStatus {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	return models.SyncStatus{
		IsLoading: s.refreshing.Load(),
		Error:     s.lastErr,
		LastSync:  s.lastSync,
	}
}

// --- CRUD ---

// AddInvestment validates and appends a new investment, persisting the result.
func (s *Service) AddInvestment(ctx context.Context, in models.NewInvestment) (*models.Investment, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.reloadLocked(ctx)

	id, err := s.uniqueID()
	if err != nil {
		return nil, err
	}

	inv := models.Investment{
		ID:          id,
		AssetSymbol: models.NormalizeSymbol(in.AssetSymbol),
		Amount:      in.Amount,
		CreatedAt:   s.now().UTC(),
		Name:        in.Name,
		Notes:       in.Notes,
	}
	if in.Price != nil {
		inv.Price = models.Float64Ptr(*in.Price)
	}

	next := append(models.CloneInvestments(s.investments), inv)
	if err := s.store.Save(ctx, next); err != nil {
		return nil, fmt.Errorf("failed to save investment: %w", err)
	}
	s.investments = next

	s.logger.Info().Str("id", inv.ID).Str("symbol", inv.AssetSymbol).Float64("amount", inv.Amount).Msg("Investment added")

	out := inv.Clone()
	return &out, nil
}

// uniqueID draws ids until one is not already in the collection. Caller holds mu.
func (s *Service) uniqueID() (string, error) {
	for attempt := 0; attempt < 5; attempt++ {
		id, err := s.newID()
		if err != nil {
			return "", fmt.Errorf("failed to generate investment id: %w", err)
		}
		if s.indexOf(id) < 0 {
			return id, nil
		}
	}
	return "", fmt.Errorf("failed to generate a unique investment id")
}

// RemoveInvestment deletes an investment. An unknown id is a no-op.
func (s *Service) RemoveInvestment(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reloadLocked(ctx)

	idx := s.indexOf(id)
	if idx < 0 {
		return nil
	}

	next := make([]models.Investment, 0, len(s.investments)-1)
	next = append(next, models.CloneInvestments(s.investments[:idx])...)
	next = append(next, models.CloneInvestments(s.investments[idx+1:])...)

	if err := s.store.Save(ctx, next); err != nil {
		return fmt.Errorf("failed to save after removing investment: %w", err)
	}
	s.investments = next

	s.logger.Info().Str("id", id).Msg("Investment removed")
	return nil
}

// UpdateInvestment applies a partial update. id and created_at never change.
func (s *Service) UpdateInvestment(ctx context.Context, id string, update models.InvestmentUpdate) (*models.Investment, error) {
	if err := update.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.reloadLocked(ctx)

	idx := s.indexOf(id)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvestmentNotFound, id)
	}

	updated := update.Apply(s.investments[idx])
	next := models.CloneInvestments(s.investments)
	next[idx] = updated

	if err := s.store.Save(ctx, next); err != nil {
		return nil, fmt.Errorf("failed to save investment: %w", err)
	}
	s.investments = next

	s.logger.Info().Str("id", id).Msg("Investment updated")

	out := updated.Clone()
	return &out, nil
}

// FindInvestmentByID returns a copy of the investment with the given id.
func (s *Service) FindInvestmentByID(id string) (*models.Investment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return nil, false
	}
	inv := s.investments[idx].Clone()
	return &inv, true
}

// Investments returns a copy of the collection in stored order.
func (s *Service) Investments() []models.Investment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.CloneInvestments(s.investments)
}

func (s *Service) indexOf(id string) int {
	for i := range s.investments {
		if s.investments[i].ID == id {
			return i
		}
	}
	return -1
}

// --- Derived ---

// InvestmentsWithCalculations values every investment in collection order.
func (s *Service) InvestmentsWithCalculations() []models.Valuation {
	return ValuateAll(s.Investments())
}

// Totals returns all aggregates computed from one snapshot.
func (s *Service) Totals() models.PortfolioTotals {
	return Summarize(s.InvestmentsWithCalculations())
}

// TotalInvested sums the known cost bases.
func (s *Service) TotalInvested() decimal.Decimal {
	return s.Totals().TotalInvested
}

// TotalTrackedValue sums current values.
func (s *Service) TotalTrackedValue() decimal.Decimal {
	return s.Totals().TotalTrackedValue
}

// ProfitLoss is TotalTrackedValue minus TotalInvested.
func (s *Service) ProfitLoss() decimal.Decimal {
	return s.Totals().ProfitLoss
}

// ProfitLossPercentage is ProfitLoss over TotalInvested, or zero when nothing
// was invested.
func (s *Service) ProfitLossPercentage() decimal.Decimal {
	return s.Totals().ProfitLossPercentage
}

// Ensure Service implements PortfolioService
var _ interfaces.PortfolioService = (*Service)(nil)
