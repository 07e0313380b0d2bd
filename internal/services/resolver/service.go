// Package resolver maps user-facing asset symbols to CoinGecko identifiers
package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/bobmcallan/coinfolio/internal/common"
	"github.com/bobmcallan/coinfolio/internal/interfaces"
	"github.com/bobmcallan/coinfolio/internal/models"
)

var (
	// ErrDegraded marks a symbol that could not be mapped and is used as its own identifier.
	ErrDegraded = errors.New("resolution degraded to raw symbol")

	// ErrEmptySymbol is returned for a blank symbol.
	ErrEmptySymbol = errors.New("empty asset symbol")

	// ErrNoCatalog is returned by Search when no remote catalog is configured.
	ErrNoCatalog = errors.New("no coin catalog configured")
)

// Service implements IdentifierResolver over the static table and the remote
// coin listing.
type Service struct {
	catalog interfaces.CoinCatalog
	ttl     time.Duration
	logger  *common.Logger
	now     func() time.Time // injectable clock for testing

	group     singleflight.Group
	mu        sync.RWMutex
	coins     []models.Coin
	fetchedAt time.Time
}

// NewService creates a resolver. catalog may be nil, in which case unknown
// symbols always degrade to identity. A ttl of zero fetches the listing on
// every miss.
func NewService(catalog interfaces.CoinCatalog, ttl time.Duration, logger *common.Logger) *Service {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Service{
		catalog: catalog,
		ttl:     ttl,
		logger:  logger,
		now:     time.Now,
	}
}

// Resolve never fails for a non-empty symbol unless ctx is cancelled: a symbol
// missing from both the static table and the remote listing resolves to itself.
func (s *Service) Resolve(ctx context.Context, symbol string) (string, error) {
	sym := models.NormalizeSymbol(symbol)
	if sym == "" {
		return "", ErrEmptySymbol
	}

	if id, ok := StaticID(sym); ok {
		return id, nil
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	if s.catalog == nil {
		s.degraded(sym, nil)
		return sym, nil
	}

	coins, err := s.coinList(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		s.degraded(sym, err)
		return sym, nil
	}

	for _, c := range coins {
		if strings.EqualFold(c.Symbol, sym) {
			s.logger.Debug().Str("symbol", sym).Str("id", c.ID).Msg("Resolved symbol from coin list")
			return c.ID, nil
		}
	}

	s.degraded(sym, nil)
	return sym, nil
}

func (s *Service) degraded(sym string, cause error) {
	err := ErrDegraded
	if cause != nil {
		err = fmt.Errorf("%w: %v", ErrDegraded, cause)
	}
	s.logger.Warn().Err(err).Str("symbol", sym).Msg("Could not resolve symbol, using it as identifier")
}

// coinList returns the cached listing while fresh. Concurrent misses share a
// single remote call.
func (s *Service) coinList(ctx context.Context) ([]models.Coin, error) {
	s.mu.RLock()
	if s.coins != nil && common.IsFresh(s.fetchedAt, s.ttl, s.now()) {
		coins := s.coins
		s.mu.RUnlock()
		return coins, nil
	}
	s.mu.RUnlock()

	v, err, _ := s.group.Do("coins/list", func() (interface{}, error) {
		coins, err := s.catalog.CoinsList(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list coins: %w", err)
		}
		s.mu.Lock()
		s.coins = coins
		s.fetchedAt = s.now()
		s.mu.Unlock()
		s.logger.Debug().Int("coins", len(coins)).Msg("Coin list refreshed")
		return coins, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]models.Coin), nil
}

// KnownAssets lists the curated table with upper-cased symbols.
func (s *Service) KnownAssets() []models.KnownAsset {
	return knownAssets()
}

// Search queries the remote catalog. Errors propagate.
func (s *Service) Search(ctx context.Context, query string) ([]models.SearchCoin, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return nil, fmt.Errorf("search query is required")
	}
	if s.catalog == nil {
		return nil, ErrNoCatalog
	}
	hits, err := s.catalog.Search(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to search coins: %w", err)
	}
	return hits, nil
}

// Ensure Service implements IdentifierResolver
var _ interfaces.IdentifierResolver = (*Service)(nil)
