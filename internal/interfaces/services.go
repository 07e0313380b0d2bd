package interfaces

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/coinfolio/internal/models"
)

// IdentifierResolver maps a user-facing symbol to a canonical identifier.
type IdentifierResolver interface {
	Resolve(ctx context.Context, symbol string) (string, error)
	KnownAssets() []models.KnownAsset
	Search(ctx context.Context, query string) ([]models.SearchCoin, error)
}

// PriceFetcher retrieves current prices for a batch of identifiers.
type PriceFetcher interface {
	FetchPrices(ctx context.Context, ids []string) (models.PriceTable, error)
}

// PortfolioService holds the investment collection, keeps its prices current
// and derives valuations from it.
type PortfolioService interface {
	// Sync
	RefreshAll(ctx context.Context) bool
	IsLoading() bool
	LastError() string
	Status() models.SyncStatus

	// CRUD
	AddInvestment(ctx context.Context, in models.NewInvestment) (*models.Investment, error)
	RemoveInvestment(ctx context.Context, id string) error
	UpdateInvestment(ctx context.Context, id string, update models.InvestmentUpdate) (*models.Investment, error)
	FindInvestmentByID(id string) (*models.Investment, bool)
	Investments() []models.Investment

	// Derived
	TotalInvested() decimal.Decimal
	TotalTrackedValue() decimal.Decimal
	ProfitLoss() decimal.Decimal
	ProfitLossPercentage() decimal.Decimal
	InvestmentsWithCalculations() []models.Valuation
	Totals() models.PortfolioTotals
}
