package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bloemhof/grocer-cli/internal/catalog"
	"github.com/bloemhof/grocer-cli/internal/model"
	"github.com/bloemhof/grocer-cli/pkg/browser"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect and refresh the product catalog",
}

var catalogStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show catalog sources and cache freshness",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("catalog"); err != nil {
			return err
		}

		loader := catalog.NewLoader(cfg.Catalog)
		index, err := loader.Load()
		if err != nil {
			return eris.Wrap(err, "load catalog")
		}

		formatCatalogStatus(os.Stdout, loader, index)
		return nil
	},
}

var catalogRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Rebuild the catalog index from the source files",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("catalog"); err != nil {
			return err
		}

		index, err := catalog.NewLoader(cfg.Catalog).Refresh()
		if err != nil {
			return eris.Wrap(err, "refresh catalog")
		}

		zap.L().Info("catalog refreshed", zap.Int("entries", index.Len()))
		fmt.Printf("Catalog rebuilt: %d entries.\n", index.Len())
		return nil
	},
}

var catalogScrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Scrape the discount page into the bonus catalog file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("catalog"); err != nil {
			return err
		}

		session, err := browser.Open(ctx, cfg.Browser, cfg.Cart.BaseURL)
		if err != nil {
			return eris.Wrap(err, "open browser session")
		}
		defer session.Close() //nolint:errcheck

		surface := browser.NewCartSurface(session, cfg.Browser, cfg.Cart.BaseURL)
		entries, err := surface.ScrapeBonus(ctx)
		if err != nil {
			return eris.Wrap(err, "scrape discount page")
		}

		data, err := json.MarshalIndent(model.CatalogFile{
			Timestamp: time.Now().UTC(),
			Products:  entries,
		}, "", "  ")
		if err != nil {
			return eris.Wrap(err, "encode bonus catalog")
		}
		if err := os.WriteFile(cfg.Catalog.BonusFile, data, 0o644); err != nil {
			return eris.Wrap(err, "write bonus catalog")
		}

		index, err := catalog.NewLoader(cfg.Catalog).Refresh()
		if err != nil {
			return eris.Wrap(err, "rebuild catalog")
		}

		zap.L().Info("discount catalog written",
			zap.String("file", cfg.Catalog.BonusFile),
			zap.Int("scraped", len(entries)),
			zap.Int("indexed", index.Len()),
		)
		fmt.Printf("Scraped %d promotions into %s.\n", len(entries), cfg.Catalog.BonusFile)
		return nil
	},
}

func formatCatalogStatus(out io.Writer, loader *catalog.Loader, index *catalog.Index) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Entries:\t%d\n", index.Len())
	_, _ = fmt.Fprintf(w, "Discount source:\t%v\n", index.HasSource(model.SourcePrimary))
	_, _ = fmt.Fprintf(w, "Previously-bought source:\t%v\n", index.HasSource(model.SourceSecondary))

	if age, ok := loader.CacheAge(); ok {
		_, _ = fmt.Fprintf(w, "Cache age:\t%s\n", age.Round(time.Second))
	} else {
		_, _ = fmt.Fprintf(w, "Cache age:\t(no cache)\n")
	}
	_ = w.Flush()
}

func init() {
	catalogCmd.AddCommand(catalogStatusCmd)
	catalogCmd.AddCommand(catalogRefreshCmd)
	catalogCmd.AddCommand(catalogScrapeCmd)
	rootCmd.AddCommand(catalogCmd)
}
