package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/bobmcallan/coinfolio/internal/common"
	"github.com/bobmcallan/coinfolio/internal/interfaces"
	"github.com/bobmcallan/coinfolio/internal/models"
)

// DefaultInvestmentsKey names the entry holding the serialized collection.
const DefaultInvestmentsKey = "investments"

// InvestmentStore keeps the whole collection as one JSON array under one key.
type InvestmentStore struct {
	kv     interfaces.KeyValueStore
	key    string
	logger *common.Logger
}

// NewInvestmentStore creates a repository over kv.
func NewInvestmentStore(kv interfaces.KeyValueStore, key string, logger *common.Logger) *InvestmentStore {
	if key == "" {
		key = DefaultInvestmentsKey
	}
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &InvestmentStore{kv: kv, key: key, logger: logger}
}

// Load returns the persisted collection. An absent or unparsable entry reads
// as an empty collection; only a failing backend is an error.
func (s *InvestmentStore) Load(ctx context.Context) ([]models.Investment, error) {
	raw, err := s.kv.Get(ctx, s.key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.logger.Debug().Str("key", s.key).Msg("No stored investments, starting empty")
			return []models.Investment{}, nil
		}
		return nil, fmt.Errorf("%w: load %s: %w", ErrPersistenceUnavailable, s.key, err)
	}

	if strings.TrimSpace(raw) == "" {
		return []models.Investment{}, nil
	}

	var invs []models.Investment
	if err := json.Unmarshal([]byte(raw), &invs); err != nil {
		s.logger.Warn().Err(err).Str("key", s.key).Msg("Stored investments are unreadable, starting empty")
		return []models.Investment{}, nil
	}

	return s.dedupe(invs), nil
}

// dedupe drops records whose id was already seen, keeping the first.
func (s *InvestmentStore) dedupe(invs []models.Investment) []models.Investment {
	seen := make(map[string]struct{}, len(invs))
	out := make([]models.Investment, 0, len(invs))
	for _, inv := range invs {
		if _, dup := seen[inv.ID]; dup {
			s.logger.Warn().Str("id", inv.ID).Msg("Dropping stored investment with duplicate id")
			continue
		}
		seen[inv.ID] = struct{}{}
		out = append(out, inv)
	}
	return out
}

// Save replaces the stored collection.
func (s *InvestmentStore) Save(ctx context.Context, investments []models.Investment) error {
	if investments == nil {
		investments = []models.Investment{}
	}
	data, err := json.Marshal(investments)
	if err != nil {
		return fmt.Errorf("failed to marshal investments: %w", err)
	}
	if err := s.kv.Set(ctx, s.key, string(data)); err != nil {
		return fmt.Errorf("%w: save %s: %w", ErrPersistenceUnavailable, s.key, err)
	}
	return nil
}

// Ensure InvestmentStore implements the repository interface
var _ interfaces.InvestmentStore = (*InvestmentStore)(nil)
