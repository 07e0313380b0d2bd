package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/coinfolio/internal/common"
	"github.com/bobmcallan/coinfolio/internal/models"
)

const (
	timeLayout = "2006-01-02 15:04"
	none       = "-"
)

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatOptionalPrice(p *float64, currency string) string {
	if p == nil {
		return none
	}
	return common.FormatUnitPrice(decimal.NewFromFloat(*p), currency)
}

func formatNullMoney(v decimal.NullDecimal, currency string, signed bool) string {
	if !v.Valid {
		return none
	}
	if signed {
		return common.FormatSignedMoney(v.Decimal, currency)
	}
	return common.FormatMoney(v.Decimal, currency)
}

func formatNullPct(v decimal.NullDecimal) string {
	if !v.Valid {
		return none
	}
	return common.FormatSignedPct(v.Decimal)
}

// assetLabel shows the symbol, plus the identifier once one has been stamped.
func assetLabel(inv models.Investment) string {
	label := strings.ToUpper(inv.Symbol())
	if inv.AssetID != "" && inv.AssetID != inv.Symbol() {
		label += " (" + inv.AssetID + ")"
	}
	return label
}

func formatUpdated(inv models.Investment) string {
	if inv.LastUpdated.IsZero() {
		return "never"
	}
	return inv.LastUpdated.Local().Format(timeLayout)
}

// formatInvestments renders the valuation table followed by the totals.
func formatInvestments(vals []models.Valuation, totals models.PortfolioTotals, status models.SyncStatus, currency string) string {
	var sb strings.Builder

	sb.WriteString("# Portfolio\n\n")

	if len(vals) == 0 {
		sb.WriteString("No investments recorded. Use `coinfolio add` to record one.\n")
		return sb.String()
	}

	sb.WriteString("| ID | Asset | Amount | Buy Price | Price | Value | Cost | P/L | P/L % | Updated |\n")
	sb.WriteString("|----|-------|--------|-----------|-------|-------|------|-----|-------|---------|\n")
	for _, v := range vals {
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s | %s | %s | %s | %s | %s |\n",
			v.ID,
			assetLabel(v.Investment),
			formatAmount(v.Amount),
			formatOptionalPrice(v.Price, currency),
			formatOptionalPrice(v.CurrentPrice, currency),
			common.FormatMoney(v.CurrentValue, currency),
			formatNullMoney(v.CostBasis, currency, false),
			formatNullMoney(v.ProfitLoss, currency, true),
			formatNullPct(v.ProfitLossPercentage),
			formatUpdated(v.Investment),
		))
	}
	sb.WriteString("\n")
	sb.WriteString(formatTotals(totals, status, currency))

	return sb.String()
}

// formatTotals renders the aggregate figures and the sync state.
func formatTotals(totals models.PortfolioTotals, status models.SyncStatus, currency string) string {
	var sb strings.Builder

	sb.WriteString("## Totals\n\n")
	sb.WriteString(fmt.Sprintf("**Invested:** %s\n", common.FormatMoney(totals.TotalInvested, currency)))
	sb.WriteString(fmt.Sprintf("**Value:** %s\n", common.FormatMoney(totals.TotalTrackedValue, currency)))
	sb.WriteString(fmt.Sprintf("**P/L:** %s (%s)\n",
		common.FormatSignedMoney(totals.ProfitLoss, currency),
		common.FormatSignedPct(totals.ProfitLossPercentage)))

	if totals.UnknownCostCount > 0 {
		sb.WriteString(fmt.Sprintf("**Investments:** %d (%d with unknown cost, excluded from invested)\n",
			totals.InvestmentCount, totals.UnknownCostCount))
	} else {
		sb.WriteString(fmt.Sprintf("**Investments:** %d\n", totals.InvestmentCount))
	}

	if !status.LastSync.IsZero() {
		sb.WriteString(fmt.Sprintf("**Last Sync:** %s\n", status.LastSync.Local().Format(timeLayout)))
	}
	if status.Error != "" {
		sb.WriteString(fmt.Sprintf("**Error:** %s\n", status.Error))
	}

	return sb.String()
}

// formatInvestmentDetail renders a single investment and its valuation.
func formatInvestmentDetail(v models.Valuation, currency string) string {
	var sb strings.Builder

	title := assetLabel(v.Investment)
	if v.Name != "" {
		title = v.Name + " - " + title
	}
	sb.WriteString(fmt.Sprintf("# %s\n\n", title))

	sb.WriteString("| Field | Value |\n")
	sb.WriteString("|-------|-------|\n")
	rows := [][2]string{
		{"ID", v.ID},
		{"Symbol", strings.ToUpper(v.Symbol())},
		{"Identifier", orNone(v.AssetID)},
		{"Amount", formatAmount(v.Amount)},
		{"Buy Price", formatOptionalPrice(v.Price, currency)},
		{"Current Price", formatOptionalPrice(v.CurrentPrice, currency)},
		{"Value", common.FormatMoney(v.CurrentValue, currency)},
		{"Cost Basis", formatNullMoney(v.CostBasis, currency, false)},
		{"P/L", formatNullMoney(v.ProfitLoss, currency, true)},
		{"P/L %", formatNullPct(v.ProfitLossPercentage)},
		{"Created", v.CreatedAt.Local().Format(timeLayout)},
		{"Updated", formatUpdated(v.Investment)},
	}
	for _, r := range rows {
		sb.WriteString(fmt.Sprintf("| %s | %s |\n", r[0], r[1]))
	}

	if v.HasUnknownCost {
		sb.WriteString("\nPurchase price unknown: cost basis and P/L are not tracked.\n")
	}
	if v.Notes != "" {
		sb.WriteString(fmt.Sprintf("\n**Notes:** %s\n", v.Notes))
	}

	return sb.String()
}

func formatKnownAssets(assets []models.KnownAsset) string {
	var sb strings.Builder

	sb.WriteString("# Known Assets\n\n")
	sb.WriteString("| Symbol | Identifier | Name |\n")
	sb.WriteString("|--------|------------|------|\n")
	for _, a := range assets {
		sb.WriteString(fmt.Sprintf("| %s | %s | %s |\n", a.Symbol, a.ID, a.Name))
	}
	return sb.String()
}

func formatSearchResults(query string, coins []models.SearchCoin) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# Search: %s\n\n", query))
	if len(coins) == 0 {
		sb.WriteString("No matching assets.\n")
		return sb.String()
	}

	sb.WriteString("| Symbol | Identifier | Name | Rank |\n")
	sb.WriteString("|--------|------------|------|------|\n")
	for _, c := range coins {
		rank := none
		if c.MarketCapRank > 0 {
			rank = strconv.Itoa(c.MarketCapRank)
		}
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n", strings.ToUpper(c.Symbol), c.ID, c.Name, rank))
	}
	return sb.String()
}

func orNone(s string) string {
	if s == "" {
		return none
	}
	return s
}
