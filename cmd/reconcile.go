package main

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	anthropicpkg "github.com/bloemhof/grocer-cli/pkg/anthropic"
	"github.com/bloemhof/grocer-cli/pkg/browser"

	"github.com/bloemhof/grocer-cli/internal/cart"
	"github.com/bloemhof/grocer-cli/internal/catalog"
	"github.com/bloemhof/grocer-cli/internal/matcher"
	"github.com/bloemhof/grocer-cli/internal/model"
	"github.com/bloemhof/grocer-cli/internal/notify"
	"github.com/bloemhof/grocer-cli/internal/recommend"
	"github.com/bloemhof/grocer-cli/internal/reconcile"
	"github.com/bloemhof/grocer-cli/internal/resilience"
)

var (
	reconcileRequirement string
	reconcileTarget      float64
	reconcileAttempts    int
	reconcileItems       []string
	reconcileNoNotify    bool
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Fill the cart until its total meets the target minimum",
	Long:  "Resolves desired items against the catalog, adds them through a browser session, and keeps refining the list until the cart total reaches the target or attempts run out.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("reconcile"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		index, err := catalog.NewLoader(cfg.Catalog).Load()
		if err != nil {
			return eris.Wrap(err, "load catalog")
		}
		if index.Len() == 0 {
			zap.L().Warn("catalog is empty, matching will resolve nothing")
		}

		items, err := parseItemFlags(reconcileItems)
		if err != nil {
			return err
		}

		session, err := browser.Open(ctx, cfg.Browser, cfg.Cart.BaseURL)
		if err != nil {
			return eris.Wrap(err, "open browser session")
		}
		defer session.Close() //nolint:errcheck

		surface := browser.NewCartSurface(session, cfg.Browser, cfg.Cart.BaseURL)
		tracker := cart.NewTracker(surface, cfg.Cart)
		applier := cart.NewApplier(surface, resilience.DefaultRetryConfig())

		var recommender reconcile.Recommender
		if cfg.Anthropic.Key != "" {
			rec := recommend.New(anthropicpkg.NewClient(cfg.Anthropic.Key), cfg.Anthropic, index)
			recommender = rec

			if len(items) == 0 {
				items, err = rec.Suggest(ctx, reconcileRequirement, targetOrDefault())
				if err != nil {
					return eris.Wrap(err, "suggest initial items")
				}
			}
		}
		if len(items) == 0 {
			return eris.New("no items to reconcile: pass --item or configure anthropic.key with --requirement")
		}

		run, err := st.CreateRun(ctx, reconcileRequirement, targetOrDefault())
		if err != nil {
			return eris.Wrap(err, "record run")
		}

		engine := reconcile.New(index, matcher.New(cfg.Matcher), tracker, applier, recommender, cfg.Reconcile)
		result, runErr := engine.Reconcile(ctx, reconcile.Request{
			Items:         items,
			Requirement:   reconcileRequirement,
			TargetMinimum: reconcileTarget,
			MaxAttempts:   reconcileAttempts,
		})

		status := model.RunCompleted
		if runErr != nil {
			status = model.RunFailed
		}
		if err := st.UpdateRunResult(ctx, run.ID, status, &result); err != nil {
			zap.L().Warn("persist run result failed", zap.String("run_id", run.ID), zap.Error(err))
		}

		if !reconcileNoNotify {
			subject, body := notify.Summary(reconcileRequirement, result)
			if err := notify.New(cfg.Notify).Send(ctx, subject, body); err != nil {
				zap.L().Warn("notification failed", zap.Error(err))
			}
		}

		zap.L().Info("reconciliation finished",
			zap.String("run_id", run.ID),
			zap.Bool("target_met", result.TargetMet),
			zap.Float64("final_total", result.FinalTotal),
			zap.Int("attempts", result.Attempts),
			zap.Int("added", result.AddedCount),
			zap.Int("skipped", result.SkippedCount),
			zap.Int("failed", len(result.FailedItems)),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return err
		}
		return runErr
	},
}

func targetOrDefault() float64 {
	if reconcileTarget > 0 {
		return reconcileTarget
	}
	return cfg.Reconcile.TargetMinimum
}

// parseItemFlags parses repeated --item flags of the form "title" or
// "title=quantity".
func parseItemFlags(raw []string) ([]model.DesiredItem, error) {
	items := make([]model.DesiredItem, 0, len(raw))
	for _, r := range raw {
		title, qtyStr, hasQty := strings.Cut(r, "=")
		title = strings.TrimSpace(title)
		if title == "" {
			return nil, eris.Errorf("empty item flag %q", r)
		}

		item := model.DesiredItem{Title: title}
		if hasQty {
			qty, err := strconv.Atoi(strings.TrimSpace(qtyStr))
			if err != nil || qty < 1 {
				return nil, eris.Errorf("invalid quantity in item flag %q", r)
			}
			item.Quantity = qty
		}
		items = append(items, item)
	}
	return items, nil
}

func init() {
	reconcileCmd.Flags().StringVar(&reconcileRequirement, "requirement", "", "free-text description of what the groceries are for")
	reconcileCmd.Flags().Float64Var(&reconcileTarget, "target", 0, "minimum cart total in euros (default from config)")
	reconcileCmd.Flags().IntVar(&reconcileAttempts, "max-attempts", 0, "maximum reconciliation attempts (default from config)")
	reconcileCmd.Flags().StringArrayVar(&reconcileItems, "item", nil, "desired item, repeatable, as \"title\" or \"title=quantity\"")
	reconcileCmd.Flags().BoolVar(&reconcileNoNotify, "no-notify", false, "skip the summary email")
	rootCmd.AddCommand(reconcileCmd)
}
