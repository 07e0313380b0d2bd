package portfolio

import (
	"time"

	"github.com/bobmcallan/coinfolio/internal/models"
)

// identifierFor returns the identifier an investment is priced under: its own
// cached asset_id, else whatever its symbol resolved to this cycle.
func identifierFor(inv models.Investment, resolved map[string]string) string {
	if inv.AssetID != "" {
		return inv.AssetID
	}
	return resolved[inv.Symbol()]
}

// Merge applies a fetched price table to a collection and returns a new
// collection; the input is not modified. Every record has last_updated advanced
// to syncedAt. Records with a price get current_price and asset_id stamped;
// the rest keep their previous current_price.
func Merge(current []models.Investment, resolved map[string]string, prices models.PriceTable, syncedAt time.Time) []models.Investment {
	out := make([]models.Investment, len(current))
	for i, inv := range current {
		next := inv.Clone()
		next.LastUpdated = syncedAt

		if id := identifierFor(inv, resolved); id != "" {
			if p, ok := prices[id]; ok {
				next.CurrentPrice = models.Float64Ptr(p)
				next.AssetID = id
			}
		}
		out[i] = next
	}
	return out
}

// resolutionPlan splits a collection into the identifiers already cached on
// investments and the symbols that still need resolving. Both are unique and
// keep first-seen order.
func resolutionPlan(investments []models.Investment) (cached []string, unresolved []string) {
	seenID := make(map[string]struct{})
	seenSym := make(map[string]struct{})
	for _, inv := range investments {
		if inv.AssetID != "" {
			if _, ok := seenID[inv.AssetID]; !ok {
				seenID[inv.AssetID] = struct{}{}
				cached = append(cached, inv.AssetID)
			}
			continue
		}
		sym := inv.Symbol()
		if sym == "" {
			continue
		}
		if _, ok := seenSym[sym]; !ok {
			seenSym[sym] = struct{}{}
			unresolved = append(unresolved, sym)
		}
	}
	return cached, unresolved
}

// identifierSet unions cached and resolved identifiers without duplicates.
func identifierSet(cached []string, resolved map[string]string) []string {
	seen := make(map[string]struct{}, len(cached)+len(resolved))
	ids := make([]string, 0, len(cached)+len(resolved))
	add := func(id string) {
		if _, ok := seen[id]; ok || id == "" {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	for _, id := range cached {
		add(id)
	}
	for _, id := range resolved {
		add(id)
	}
	return ids
}
