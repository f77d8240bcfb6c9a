package browser

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/bloemhof/grocer-cli/internal/model"
)

// Discount page selector chains, same convention as the cart surface.
var (
	bonusCardSelectors = []string{
		`[data-testhook="promotion-card"]`,
		`article[class*="promotion"]`,
	}
	bonusTitleSelectors = []string{
		`[data-testhook="card-title"]`,
		`[class*="title"]`,
	}
	bonusPriceSelectors = []string{
		`[data-testhook="price-amount"]`,
		`[class*="price"]`,
	}
	bonusShieldSelectors = []string{
		`[data-testhook="promotion-shield"]`,
		`[class*="shield"]`,
	}
)

// ScrapeBonus reads the weekly discount page and returns the promoted
// products. Cards missing a title are skipped; cards missing a price or
// shield still come back, just without those fields.
func (s *CartSurface) ScrapeBonus(ctx context.Context) ([]model.CatalogEntry, error) {
	if err := s.navigate(ctx, s.baseURL+"/bonus"); err != nil {
		return nil, err
	}

	var cards rod.Elements
	for _, sel := range bonusCardSelectors {
		els, err := s.session.page.Elements(sel)
		if err == nil && len(els) > 0 {
			cards = els
			break
		}
	}
	if len(cards) == 0 {
		return nil, eris.New("browser: no promotion cards on discount page")
	}

	entries := make([]model.CatalogEntry, 0, len(cards))
	for _, card := range cards {
		entry, ok := scrapeCard(card, s.baseURL)
		if !ok {
			continue
		}
		entries = append(entries, entry)
	}

	zap.L().Info("discount page scraped",
		zap.Int("cards", len(cards)),
		zap.Int("entries", len(entries)),
	)
	return entries, nil
}

func scrapeCard(card *rod.Element, baseURL string) (model.CatalogEntry, bool) {
	entry := model.CatalogEntry{Source: model.SourcePrimary}

	title, ok := elementText(card, bonusTitleSelectors)
	if !ok || strings.TrimSpace(title) == "" {
		return entry, false
	}
	entry.Title = strings.TrimSpace(title)

	if price, ok := elementText(card, bonusPriceSelectors); ok {
		if amount, ok := ParseAmount(price); ok {
			entry.Price = formatAmount(amount)
		}
	}

	if shield, ok := elementText(card, bonusShieldSelectors); ok {
		entry.DiscountPercent, entry.PromotionQuantity = ParseShield(shield)
	}

	if href, err := card.Attribute("href"); err == nil && href != nil {
		link := *href
		if strings.HasPrefix(link, "/") {
			link = baseURL + link
		}
		entry.ProductURL = link
	}

	return entry, true
}

// elementText finds the first selector that resolves inside el and returns
// its text. Lookups inside a card are cheap, so the timeout stays short.
func elementText(el *rod.Element, selectors []string) (string, bool) {
	for _, sel := range selectors {
		child, err := el.Timeout(200 * time.Millisecond).Element(sel)
		if err != nil || child == nil {
			continue
		}
		text, err := child.Text()
		if err != nil {
			continue
		}
		return text, true
	}
	return "", false
}

var (
	percentPattern = regexp.MustCompile(`(\d+)\s*%`)
	nPlusMPattern  = regexp.MustCompile(`(\d+)\s*\+\s*(\d+)\s+gratis`)
	nForPattern    = regexp.MustCompile(`(\d+)\s+voor\b`)
)

// ParseShield interprets a Dutch promotion shield ("25% korting",
// "1+1 gratis", "2 voor 5,00", "2e halve prijs") as a discount percentage
// and the quantity the promotion assumes.
func ParseShield(text string) (discount, quantity int) {
	t := strings.ToLower(strings.TrimSpace(text))

	if m := percentPattern.FindStringSubmatch(t); m != nil {
		discount, _ = strconv.Atoi(m[1])
	}
	if strings.Contains(t, "2e halve prijs") {
		discount = 25
		quantity = 2
	}
	if m := nPlusMPattern.FindStringSubmatch(t); m != nil {
		paid, _ := strconv.Atoi(m[1])
		free, _ := strconv.Atoi(m[2])
		if paid+free > 0 {
			quantity = paid + free
			discount = free * 100 / (paid + free)
		}
	}
	if m := nForPattern.FindStringSubmatch(t); m != nil {
		quantity, _ = strconv.Atoi(m[1])
	}
	return discount, quantity
}

func formatAmount(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
