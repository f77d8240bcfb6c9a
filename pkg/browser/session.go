// Package browser implements the remote cart action surface on top of a
// Chrome session driven through go-rod. The workflow driver owns the
// session; the reconciliation engine only ever sees the cart.Surface it
// exposes.
package browser

import (
	"context"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/bloemhof/grocer-cli/internal/config"
)

// Session owns one browser instance and its single page. A persistent user
// data dir keeps the storefront login across runs.
type Session struct {
	browser *rod.Browser
	page    *rod.Page
}

// Open launches Chrome and navigates to the storefront. The caller must
// Close the session when done.
func Open(ctx context.Context, cfg config.BrowserConfig, baseURL string) (*Session, error) {
	l := launcher.New().Headless(cfg.Headless)
	if cfg.UserDataDir != "" {
		l = l.UserDataDir(cfg.UserDataDir)
	}
	controlURL, err := l.Launch()
	if err != nil {
		return nil, eris.Wrap(err, "browser: launch chrome")
	}

	b := rod.New().ControlURL(controlURL).Context(ctx)
	if err := b.Connect(); err != nil {
		return nil, eris.Wrap(err, "browser: connect")
	}

	page, err := b.Page(pageTarget(baseURL))
	if err != nil {
		b.Close()
		return nil, eris.Wrap(err, "browser: open page")
	}
	if err := page.WaitLoad(); err != nil {
		b.Close()
		return nil, eris.Wrap(err, "browser: load storefront")
	}

	zap.L().Info("browser session ready", zap.String("url", baseURL), zap.Bool("headless", cfg.Headless))
	return &Session{browser: b, page: page}, nil
}

// Close shuts the browser down.
func (s *Session) Close() error {
	if s.browser == nil {
		return nil
	}
	err := s.browser.Close()
	s.browser = nil
	s.page = nil
	return eris.Wrap(err, "browser: close")
}

func pageTarget(url string) proto.TargetCreateTarget {
	return proto.TargetCreateTarget{URL: url}
}
