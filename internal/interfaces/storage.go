package interfaces

import (
	"context"

	"github.com/bobmcallan/coinfolio/internal/models"
)

// KeyValueStore is a string key-value backend. Get returns storage.ErrNotFound
// for an absent key.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Close() error
}

// InvestmentStore loads and saves the whole investment collection.
type InvestmentStore interface {
	Load(ctx context.Context) ([]models.Investment, error)
	Save(ctx context.Context, investments []models.Investment) error
}
