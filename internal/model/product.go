// Package model defines the core domain types shared across the engine.
package model

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Source identifies the priority tier a catalog entry was loaded from.
type Source string

const (
	// SourcePrimary is the currently-discounted catalog, always preferred.
	SourcePrimary Source = "bonus"
	// SourceSecondary is the fallback catalog of previously bought products.
	SourceSecondary Source = "previously-bought"
)

// CatalogEntry is a single purchasable product from one catalog source.
// Entries are immutable once loaded.
type CatalogEntry struct {
	Title             string  `json:"title"`
	Price             string  `json:"price,omitempty"`
	DiscountPercent   int     `json:"discount,omitempty"`
	ProductURL        string  `json:"product_url,omitempty"`
	PromotionQuantity int     `json:"promotion_quantity,omitempty"`
	Source            Source  `json:"source,omitempty"`
}

// HasIdentifier reports whether the entry carries a direct navigation handle.
func (e CatalogEntry) HasIdentifier() bool {
	return strings.TrimSpace(e.ProductURL) != ""
}

// DesiredItem is one requested purchase line, produced by the recommender or
// supplied directly by the user.
type DesiredItem struct {
	Title      string `json:"title"`
	Quantity   int    `json:"quantity,omitempty"`
	ProductURL string `json:"product_url,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

// ResolvedItem pairs a DesiredItem with its matched catalog entry, if any.
// It lives for a single reconciliation pass and is never persisted.
type ResolvedItem struct {
	Desired  DesiredItem
	Entry    *CatalogEntry
	Quantity int
}

// ResolveQuantity applies the quantity priority: an explicit request wins,
// then the matched entry's promotion quantity when it exceeds one, then 1.
func ResolveQuantity(d DesiredItem, entry *CatalogEntry) int {
	if d.Quantity >= 1 {
		return d.Quantity
	}
	if entry != nil && entry.PromotionQuantity > 1 {
		return entry.PromotionQuantity
	}
	return 1
}

// CatalogFile is the persisted catalog shape: a timestamp plus products.
type CatalogFile struct {
	Timestamp time.Time      `json:"timestamp"`
	Products  []CatalogEntry `json:"products"`
}

// DecodeCatalog accepts both the wrapped {timestamp, products} object and the
// legacy bare-array shape. The returned timestamp is zero for the legacy form.
func DecodeCatalog(data []byte) (CatalogFile, error) {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var entries []CatalogEntry
		if err := json.Unmarshal(data, &entries); err != nil {
			return CatalogFile{}, eris.Wrap(err, "model: decode catalog array")
		}
		return CatalogFile{Products: entries}, nil
	}

	var file CatalogFile
	if err := json.Unmarshal(data, &file); err != nil {
		return CatalogFile{}, eris.Wrap(err, "model: decode catalog object")
	}
	return file, nil
}
