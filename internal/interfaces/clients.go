// Package interfaces defines service contracts for coinfolio
package interfaces

import (
	"context"

	"github.com/bobmcallan/coinfolio/internal/models"
)

// PriceSource is one transport to the remote price service.
type PriceSource interface {
	// Name identifies the transport in logs and errors ("direct", "relay").
	Name() string

	// SimplePrice returns the raw {id: {currency: price}} mapping for the given ids.
	SimplePrice(ctx context.Context, ids []string, vsCurrency string) (map[string]map[string]float64, error)
}

// CoinCatalog lists and searches the assets known to the price service.
type CoinCatalog interface {
	CoinsList(ctx context.Context) ([]models.Coin, error)
	Search(ctx context.Context, query string) ([]models.SearchCoin, error)
}
