package models

// Coin is an entry of the price provider's full asset listing.
type Coin struct {
	ID     string `json:"id"`
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

// SearchCoin is a search hit from the price provider.
type SearchCoin struct {
	ID            string `json:"id"`
	Symbol        string `json:"symbol"`
	Name          string `json:"name"`
	MarketCapRank int    `json:"market_cap_rank"`
}

// KnownAsset is an entry of the curated symbol table.
type KnownAsset struct {
	Symbol string `json:"symbol"`
	ID     string `json:"id"`
	Name   string `json:"name"`
}

// PriceTable maps canonical identifiers to prices in the quote currency.
type PriceTable map[string]float64
