package portfolio

import (
	"github.com/shopspring/decimal"

	"github.com/bobmcallan/coinfolio/internal/models"
)

var hundred = decimal.NewFromInt(100)

// Valuate derives the figures for one investment. The effective price is the
// market price, else the purchase price, else zero.
func Valuate(inv models.Investment) models.Valuation {
	amount := decimal.NewFromFloat(inv.Amount)

	effective := decimal.Zero
	switch {
	case inv.CurrentPrice != nil:
		effective = decimal.NewFromFloat(*inv.CurrentPrice)
	case inv.Price != nil:
		effective = decimal.NewFromFloat(*inv.Price)
	}

	v := models.Valuation{
		Investment:     inv.Clone(),
		EffectivePrice: effective,
		CurrentValue:   amount.Mul(effective),
		HasUnknownCost: inv.Price == nil,
	}

	if inv.Price != nil {
		cost := amount.Mul(decimal.NewFromFloat(*inv.Price))
		pl := v.CurrentValue.Sub(cost)
		v.CostBasis = decimal.NewNullDecimal(cost)
		v.ProfitLoss = decimal.NewNullDecimal(pl)
		if !cost.IsZero() {
			v.ProfitLossPercentage = decimal.NewNullDecimal(pl.Div(cost).Mul(hundred))
		}
	}

	return v
}

// ValuateAll values a collection in order.
func ValuateAll(investments []models.Investment) []models.Valuation {
	out := make([]models.Valuation, len(investments))
	for i, inv := range investments {
		out[i] = Valuate(inv)
	}
	return out
}

// Summarize aggregates valuations. Unknown cost bases contribute nothing to the
// invested total and are counted separately.
func Summarize(vals []models.Valuation) models.PortfolioTotals {
	t := models.PortfolioTotals{
		TotalInvested:        decimal.Zero,
		TotalTrackedValue:    decimal.Zero,
		ProfitLossPercentage: decimal.Zero,
		InvestmentCount:      len(vals),
	}
	for _, v := range vals {
		t.TotalTrackedValue = t.TotalTrackedValue.Add(v.CurrentValue)
		if v.CostBasis.Valid {
			t.TotalInvested = t.TotalInvested.Add(v.CostBasis.Decimal)
		}
		if v.HasUnknownCost {
			t.UnknownCostCount++
		}
	}
	t.ProfitLoss = t.TotalTrackedValue.Sub(t.TotalInvested)
	if t.TotalInvested.IsPositive() {
		t.ProfitLossPercentage = t.ProfitLoss.Div(t.TotalInvested).Mul(hundred)
	}
	return t
}
