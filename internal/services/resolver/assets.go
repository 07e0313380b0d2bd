package resolver

import (
	"strings"

	"github.com/bobmcallan/coinfolio/internal/models"
)

type knownAsset struct {
	symbol string
	id     string
	name   string
}

// staticAssets is the curated symbol table consulted before any remote lookup.
var staticAssets = []knownAsset{
	{"btc", "bitcoin", "Bitcoin"},
	{"eth", "ethereum", "Ethereum"},
	{"usdt", "tether", "Tether"},
	{"usdc", "usd-coin", "USD Coin"},
	{"bnb", "binancecoin", "BNB"},
	{"xrp", "ripple", "XRP"},
	{"ada", "cardano", "Cardano"},
	{"sol", "solana", "Solana"},
	{"dot", "polkadot", "Polkadot"},
	{"doge", "dogecoin", "Dogecoin"},
	{"shib", "shiba-inu", "Shiba Inu"},
	{"matic", "matic-network", "Polygon"},
	{"ltc", "litecoin", "Litecoin"},
	{"atom", "cosmos", "Cosmos"},
	{"link", "chainlink", "Chainlink"},
	{"xlm", "stellar", "Stellar"},
	{"uni", "uniswap", "Uniswap"},
	{"avax", "avalanche-2", "Avalanche"},
	{"algo", "algorand", "Algorand"},
	{"etc", "ethereum-classic", "Ethereum Classic"},
	{"xmr", "monero", "Monero"},
	{"fil", "filecoin", "Filecoin"},
}

var staticIndex = func() map[string]knownAsset {
	m := make(map[string]knownAsset, len(staticAssets))
	for _, a := range staticAssets {
		m[a.symbol] = a
	}
	return m
}()

// StaticID returns the curated identifier for a symbol, if any.
func StaticID(symbol string) (string, bool) {
	a, ok := staticIndex[models.NormalizeSymbol(symbol)]
	return a.id, ok
}

func knownAssets() []models.KnownAsset {
	out := make([]models.KnownAsset, 0, len(staticAssets))
	for _, a := range staticAssets {
		out = append(out, models.KnownAsset{
			Symbol: strings.ToUpper(a.symbol),
			ID:     a.id,
			Name:   a.name,
		})
	}
	return out
}
