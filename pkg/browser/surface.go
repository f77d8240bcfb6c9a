package browser

import (
	"context"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/bloemhof/grocer-cli/internal/config"
)

// Selector chains for the storefront, tried in order. The first selector
// that resolves wins; a miss on every selector is an explicit not-found,
// never a swallowed exception.
var (
	cartTotalSelectors = []string{
		`[data-testhook="cart-summary-total"]`,
		`[data-testhook="mini-cart-total"]`,
		`div[class*="receipt_total"]`,
	}
	cartEmptySelectors = []string{
		`[data-testhook="cart-empty"]`,
		`div[class*="empty-cart"]`,
	}
	cartTitleSelectors = []string{
		`[data-testhook="cart-product-title"]`,
		`a[class*="line-item_title"]`,
	}
	addButtonSelectors = []string{
		`[data-testhook="product-add-button"]`,
		`button[title="Toevoegen"]`,
		`button[aria-label*="oevoegen"]`,
	}
	plusButtonSelectors = []string{
		`[data-testhook="quantity-plus"]`,
		`button[aria-label*="meer"]`,
	}
	productCardSelectors = []string{
		`[data-testhook="product-card"] a[href*="/producten/product/"]`,
		`a[href*="/producten/product/"]`,
	}
)

var amountPattern = regexp.MustCompile(`(\d+)[.,](\d{2})`)

// CartSurface implements cart.Surface against the live storefront. All
// actions run through a rate limiter so the engine's sequential calls do
// not hammer the site.
type CartSurface struct {
	session *Session
	cfg     config.BrowserConfig
	baseURL string
	limiter *rate.Limiter
}

// NewCartSurface wraps an open session as a cart action surface.
func NewCartSurface(session *Session, cfg config.BrowserConfig, baseURL string) *CartSurface {
	aps := cfg.ActionsPerSecond
	if aps <= 0 {
		aps = 2.0
	}
	return &CartSurface{
		session: session,
		cfg:     cfg,
		baseURL: strings.TrimRight(baseURL, "/"),
		limiter: rate.NewLimiter(rate.Limit(aps), 1),
	}
}

// ReadTotal navigates to the cart page and reads its monetary total. An
// empty cart reads as zero.
func (s *CartSurface) ReadTotal(ctx context.Context) (float64, error) {
	if err := s.gotoCart(ctx); err != nil {
		return 0, err
	}

	if el, ok := s.find(cartTotalSelectors); ok {
		text, err := el.Text()
		if err != nil {
			return 0, eris.Wrap(err, "browser: read total text")
		}
		total, ok := ParseAmount(text)
		if !ok {
			return 0, eris.Errorf("browser: unparsable cart total %q", text)
		}
		return total, nil
	}

	if _, ok := s.find(cartEmptySelectors); ok {
		return 0, nil
	}
	return 0, eris.New("browser: cart total not found")
}

// ReadTitles enumerates product titles on the cart page. When the cart is
// not empty but no titles resolve, it reports a partial read instead of
// pretending the cart is empty.
func (s *CartSurface) ReadTitles(ctx context.Context) ([]string, bool, error) {
	if err := s.gotoCart(ctx); err != nil {
		return nil, false, err
	}

	for _, sel := range cartTitleSelectors {
		els, err := s.session.page.Elements(sel)
		if err != nil || len(els) == 0 {
			continue
		}
		titles := make([]string, 0, len(els))
		for _, el := range els {
			text, err := el.Text()
			if err != nil {
				continue
			}
			if t := strings.TrimSpace(text); t != "" {
				titles = append(titles, t)
			}
		}
		return titles, false, nil
	}

	if _, ok := s.find(cartEmptySelectors); ok {
		return nil, false, nil
	}
	zap.L().Warn("cart titles unreadable, reporting partial")
	return nil, true, nil
}

// Add navigates to the product (directly by URL, otherwise via search) and
// adds quantity units. It returns how many units landed; a product that
// cannot be located or has no add button returns (0, nil).
func (s *CartSurface) Add(ctx context.Context, target string, quantity int) (int, error) {
	if quantity < 1 {
		quantity = 1
	}

	if IsProductURL(target) {
		if err := s.navigate(ctx, target); err != nil {
			return 0, err
		}
	} else {
		found, err := s.searchFirstProduct(ctx, target)
		if err != nil {
			return 0, err
		}
		if !found {
			return 0, nil
		}
	}

	addBtn, ok := s.find(addButtonSelectors)
	if !ok {
		zap.L().Debug("add button not found", zap.String("target", target))
		return 0, nil
	}
	if err := s.click(ctx, addBtn); err != nil {
		return 0, eris.Wrap(err, "browser: click add")
	}
	added := 1

	// Further units go through the stepper that replaces the add button.
	for added < quantity {
		plus, ok := s.find(plusButtonSelectors)
		if !ok {
			break
		}
		if err := s.click(ctx, plus); err != nil {
			break
		}
		added++
	}
	return added, nil
}

// searchFirstProduct runs a storefront search and opens the first result.
func (s *CartSurface) searchFirstProduct(ctx context.Context, query string) (bool, error) {
	if err := s.navigate(ctx, s.baseURL+"/zoeken?query="+url.QueryEscape(query)); err != nil {
		return false, err
	}

	card, ok := s.find(productCardSelectors)
	if !ok {
		zap.L().Debug("no search results", zap.String("query", query))
		return false, nil
	}

	href, err := card.Attribute("href")
	if err != nil || href == nil {
		return false, eris.New("browser: search result without href")
	}
	link := *href
	if strings.HasPrefix(link, "/") {
		link = s.baseURL + link
	}
	return true, s.navigate(ctx, link)
}

func (s *CartSurface) gotoCart(ctx context.Context) error {
	return s.navigate(ctx, s.baseURL+"/winkelwagen")
}

func (s *CartSurface) navigate(ctx context.Context, target string) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return eris.Wrap(err, "browser: rate limit wait")
	}

	page := s.session.page.Timeout(s.navTimeout())
	if err := page.Navigate(target); err != nil {
		return eris.Wrapf(err, "browser: navigate %s", target)
	}
	if err := page.WaitLoad(); err != nil {
		return eris.Wrapf(err, "browser: load %s", target)
	}
	return nil
}

func (s *CartSurface) click(ctx context.Context, el *rod.Element) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return eris.Wrap(err, "browser: rate limit wait")
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}

// find tries each selector with a short timeout and reports found or
// not-found explicitly.
func (s *CartSurface) find(selectors []string) (*rod.Element, bool) {
	timeout := time.Duration(s.cfg.LookupTimeoutMsecs) * time.Millisecond
	if timeout <= 0 {
		timeout = 1500 * time.Millisecond
	}
	for _, sel := range selectors {
		el, err := s.session.page.Timeout(timeout).Element(sel)
		if err == nil && el != nil {
			return el, true
		}
	}
	return nil, false
}

func (s *CartSurface) navTimeout() time.Duration {
	if s.cfg.NavTimeoutSecs <= 0 {
		return 30 * time.Second
	}
	return time.Duration(s.cfg.NavTimeoutSecs) * time.Second
}

// ParseAmount extracts a monetary amount from storefront text, which uses
// either a comma or a dot as the decimal separator ("€ 52,30").
func ParseAmount(text string) (float64, bool) {
	m := amountPattern.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1]+"."+m[2], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// IsProductURL reports whether the add target is a direct product link
// rather than free search text.
func IsProductURL(target string) bool {
	return strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://")
}
