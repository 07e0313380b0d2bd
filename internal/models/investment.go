package models

import (
	"errors"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Investment is a single recorded purchase of a crypto asset.
// The JSON shape is the persisted form of the collection.
type Investment struct {
	ID           string    `json:"id"`
	AssetSymbol  string    `json:"asset_symbol,omitempty"`
	Asset        string    `json:"asset,omitempty"` // legacy symbol field, read when asset_symbol is empty
	AssetID      string    `json:"asset_id,omitempty"`
	Amount       float64   `json:"amount"`
	Price        *float64  `json:"price,omitempty"`         // purchase price; nil means cost basis unknown
	CurrentPrice *float64  `json:"current_price,omitempty"` // last fetched market price, never cleared by a refresh
	LastUpdated  time.Time `json:"last_updated,omitzero"`
	CreatedAt    time.Time `json:"created_at"`
	Name         string    `json:"name,omitempty"`
	Notes        string    `json:"notes,omitempty"`
}

// Symbol returns the normalized user-facing ticker, preferring AssetSymbol over
// the legacy Asset field.
func (i Investment) Symbol() string {
	s := i.AssetSymbol
	if strings.TrimSpace(s) == "" {
		s = i.Asset
	}
	return NormalizeSymbol(s)
}

// HasKnownCost reports whether a purchase price was recorded.
func (i Investment) HasKnownCost() bool {
	return i.Price != nil
}

// Clone returns a deep copy; the optional price pointers are not shared.
func (i Investment) Clone() Investment {
	c := i
	if i.Price != nil {
		p := *i.Price
		c.Price = &p
	}
	if i.CurrentPrice != nil {
		p := *i.CurrentPrice
		c.CurrentPrice = &p
	}
	return c
}

// CloneInvestments deep-copies a collection.
func CloneInvestments(in []Investment) []Investment {
	if in == nil {
		return nil
	}
	out := make([]Investment, len(in))
	for i := range in {
		out[i] = in[i].Clone()
	}
	return out
}

// NormalizeSymbol lowercases and trims a ticker.
func NormalizeSymbol(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Float64Ptr is a convenience for optional price fields.
func Float64Ptr(v float64) *float64 {
	return &v
}

// Validation errors for investment input.
var (
	ErrEmptySymbol   = errors.New("asset symbol is required")
	ErrInvalidAmount = errors.New("amount must be a positive number")
	ErrInvalidPrice  = errors.New("price must be a non-negative number")
)

// NewInvestment is the input to an add action.
type NewInvestment struct {
	AssetSymbol string
	Amount      float64
	Price       *float64
	Name        string
	Notes       string
}

// Validate checks the fields a user must supply.
func (n NewInvestment) Validate() error {
	if NormalizeSymbol(n.AssetSymbol) == "" {
		return ErrEmptySymbol
	}
	if !validAmount(n.Amount) {
		return ErrInvalidAmount
	}
	if n.Price != nil && !validPrice(*n.Price) {
		return ErrInvalidPrice
	}
	return nil
}

// InvestmentUpdate is a partial update. Nil fields are left unchanged;
// ClearPrice removes a recorded purchase price.
type InvestmentUpdate struct {
	AssetSymbol *string
	Amount      *float64
	Price       *float64
	ClearPrice  bool
	Name        *string
	Notes       *string
}

// Validate checks only the fields that are set.
func (u InvestmentUpdate) Validate() error {
	if u.AssetSymbol != nil && NormalizeSymbol(*u.AssetSymbol) == "" {
		return ErrEmptySymbol
	}
	if u.Amount != nil && !validAmount(*u.Amount) {
		return ErrInvalidAmount
	}
	if u.Price != nil && !validPrice(*u.Price) {
		return ErrInvalidPrice
	}
	return nil
}

// Apply returns a copy of inv with the update applied. A changed symbol
// drops the cached asset_id so the next refresh resolves the new one.
// ID and CreatedAt are never touched.
func (u InvestmentUpdate) Apply(inv Investment) Investment {
	out := inv.Clone()
	if u.AssetSymbol != nil {
		sym := NormalizeSymbol(*u.AssetSymbol)
		if sym != inv.Symbol() {
			out.AssetID = ""
		}
		out.AssetSymbol = sym
		out.Asset = ""
	}
	if u.Amount != nil {
		out.Amount = *u.Amount
	}
	if u.ClearPrice {
		out.Price = nil
	} else if u.Price != nil {
		out.Price = Float64Ptr(*u.Price)
	}
	if u.Name != nil {
		out.Name = *u.Name
	}
	if u.Notes != nil {
		out.Notes = *u.Notes
	}
	return out
}

func validAmount(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

func validPrice(v float64) bool {
	return v >= 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

// Valuation is an investment with its derived figures. Optional values are
// invalid (null) when the purchase price is unknown.
type Valuation struct {
	Investment
	EffectivePrice       decimal.Decimal     `json:"effective_price"`
	CurrentValue         decimal.Decimal     `json:"current_value"`
	CostBasis            decimal.NullDecimal `json:"cost_basis"`
	ProfitLoss           decimal.NullDecimal `json:"profit_loss"`
	ProfitLossPercentage decimal.NullDecimal `json:"profit_loss_percentage"`
	HasUnknownCost       bool                `json:"has_unknown_cost"`
}

// PortfolioTotals aggregates valuations across the whole collection.
type PortfolioTotals struct {
	TotalInvested        decimal.Decimal `json:"total_invested"`
	TotalTrackedValue    decimal.Decimal `json:"total_tracked_value"`
	ProfitLoss           decimal.Decimal `json:"profit_loss"`
	ProfitLossPercentage decimal.Decimal `json:"profit_loss_percentage"`
	UnknownCostCount     int             `json:"unknown_cost_count"`
	InvestmentCount      int             `json:"investment_count"`
}

// SyncStatus is the transient state of the price synchronizer.
type SyncStatus struct {
	IsLoading bool      `json:"is_loading"`
	Error     string    `json:"error,omitempty"`
	LastSync  time.Time `json:"last_sync,omitzero"`
}
