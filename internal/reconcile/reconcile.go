// Package reconcile drives the cart toward a monetary target: resolve each
// desired item, skip what is already in the cart, apply the rest, re-measure,
// and repeat across a bounded number of attempts.
package reconcile

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/bloemhof/grocer-cli/internal/cart"
	"github.com/bloemhof/grocer-cli/internal/catalog"
	"github.com/bloemhof/grocer-cli/internal/config"
	"github.com/bloemhof/grocer-cli/internal/matcher"
	"github.com/bloemhof/grocer-cli/internal/model"
	"github.com/bloemhof/grocer-cli/internal/resilience"
)

// Recommender refines the desired-item list between attempts, given the
// current cart state and the remaining gap to the target. Implementations
// are external to the engine; a nil Recommender reuses the previous list.
type Recommender interface {
	Refine(ctx context.Context, requirement string, snap model.CartSnapshot, gap float64) ([]model.DesiredItem, error)
}

// Request is one reconciliation invocation.
type Request struct {
	Items         []model.DesiredItem
	Requirement   string
	TargetMinimum float64
	MaxAttempts   int
}

// Engine orchestrates resolution, duplicate detection, and application.
// It owns nothing: the action surface, index, and recommender are all
// acquired by the caller and passed in.
type Engine struct {
	index       *catalog.Index
	matcher     *matcher.Matcher
	tracker     *cart.Tracker
	applier     *cart.Applier
	recommender Recommender
	breaker     *resilience.CircuitBreaker
	cfg         config.ReconcileConfig
}

// New creates an Engine. recommender may be nil.
func New(
	index *catalog.Index,
	m *matcher.Matcher,
	tracker *cart.Tracker,
	applier *cart.Applier,
	recommender Recommender,
	cfg config.ReconcileConfig,
) *Engine {
	return &Engine{
		index:       index,
		matcher:     m,
		tracker:     tracker,
		applier:     applier,
		recommender: recommender,
		breaker: resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			FailureThreshold: 3,
			ShouldTrip: func(err error) bool {
				return cart.IsTransport(err)
			},
		}),
		cfg: cfg,
	}
}

// Reconcile runs the convergence loop and returns a summary. Per-item faults
// are folded into the result; only an unreachable action surface or context
// cancellation aborts the loop, and even then the partial result is returned.
func (e *Engine) Reconcile(ctx context.Context, req Request) (model.ReconciliationResult, error) {
	target := req.TargetMinimum
	if target <= 0 {
		target = e.cfg.TargetMinimum
	}
	maxAttempts := req.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = e.cfg.MaxAttempts
	}

	var result model.ReconciliationResult

	snap, err := e.refresh(ctx)
	if err != nil {
		return result, err
	}

	// A nonzero cart may already satisfy the target; an empty cart never
	// can, so it goes straight to adding with no containment checks.
	if snap.TotalAmount > 0 && snap.TotalAmount >= target {
		result.FinalTotal = snap.TotalAmount
		result.TargetMet = true
		return result, nil
	}

	items := req.Items
	for result.Attempts < maxAttempts {
		result.Attempts++
		zap.L().Info("reconcile attempt",
			zap.Int("attempt", result.Attempts),
			zap.Int("items", len(items)),
			zap.Float64("total", snap.TotalAmount),
			zap.Float64("target", target))

		if err := e.addItems(ctx, items, snap, &result); err != nil {
			result.FinalTotal = snap.TotalAmount
			return result, err
		}

		snap, err = e.refresh(ctx)
		if err != nil {
			return result, err
		}
		result.FinalTotal = snap.TotalAmount

		if snap.TotalAmount >= target {
			result.TargetMet = true
			return result, nil
		}
		if result.Attempts >= maxAttempts {
			break
		}

		items = e.refine(ctx, req.Requirement, snap, target-snap.TotalAmount, items)
	}

	zap.L().Warn("target not met after final attempt",
		zap.Float64("total", result.FinalTotal),
		zap.Float64("target", target))
	return result, nil
}

// addItems performs one ADD_ITEMS pass. Skips are re-evaluated from the
// fresh snapshot every pass; items skipped earlier may have been removed
// from the cart in the meantime.
func (e *Engine) addItems(ctx context.Context, items []model.DesiredItem, snap model.CartSnapshot, result *model.ReconciliationResult) error {
	emptyCart := snap.TotalAmount == 0

	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return eris.Wrap(err, "reconcile: canceled")
		}

		resolved, ok := e.resolve(item)
		if !ok {
			result.FailedItems = append(result.FailedItems, model.FailedItem{
				Title:  item.Title,
				Reason: "not found",
			})
			continue
		}

		if !emptyCart && e.tracker.Contains(snap, item.Title) {
			result.SkippedCount++
			zap.L().Debug("already in cart", zap.String("title", item.Title))
			continue
		}

		report, err := resilience.ExecuteVal(ctx, e.breaker, func(ctx context.Context) (cart.ApplyReport, error) {
			return e.applier.Apply(ctx, resolved)
		})
		if err != nil {
			if eris.Is(err, resilience.ErrCircuitOpen) {
				return eris.Wrap(err, "reconcile: action surface unreachable")
			}
			// One item's transport fault must not block the rest.
			result.FailedItems = append(result.FailedItems, model.FailedItem{
				Title:  item.Title,
				Reason: err.Error(),
			})
			continue
		}

		switch report.Outcome {
		case model.ApplyFullSuccess:
			result.AddedCount++
		case model.ApplyPartialSuccess:
			// Partial credit still counts toward the total, but the
			// shortfall is surfaced to the caller.
			result.AddedCount++
			result.FailedItems = append(result.FailedItems, model.FailedItem{
				Title:  item.Title,
				Reason: fmt.Sprintf("only %d of %d units added", report.Added, report.Requested),
			})
		default:
			result.FailedItems = append(result.FailedItems, model.FailedItem{
				Title:  item.Title,
				Reason: report.Reason,
			})
		}
	}
	return nil
}

// resolve maps a desired item to a catalog entry. An explicit identifier on
// the desired item makes it applicable even without a catalog match.
func (e *Engine) resolve(item model.DesiredItem) (model.ResolvedItem, bool) {
	entry, ok := e.matcher.Resolve(e.index, item.Title)
	if !ok {
		if item.ProductURL == "" {
			return model.ResolvedItem{}, false
		}
		return model.ResolvedItem{
			Desired:  item,
			Quantity: model.ResolveQuantity(item, nil),
		}, true
	}
	return model.ResolvedItem{
		Desired:  item,
		Entry:    &entry,
		Quantity: model.ResolveQuantity(item, &entry),
	}, true
}

func (e *Engine) refresh(ctx context.Context) (model.CartSnapshot, error) {
	snap, err := resilience.ExecuteVal(ctx, e.breaker, func(ctx context.Context) (model.CartSnapshot, error) {
		return e.tracker.Refresh(ctx)
	})
	if err != nil {
		return model.CartSnapshot{}, eris.Wrap(err, "reconcile: read cart state")
	}
	return snap, nil
}

// refine asks the recommender for a fresh list sized to the remaining gap.
// Failures fall back to the previous list; a degraded attempt beats none.
func (e *Engine) refine(ctx context.Context, requirement string, snap model.CartSnapshot, gap float64, prev []model.DesiredItem) []model.DesiredItem {
	if e.recommender == nil {
		return prev
	}
	refined, err := e.recommender.Refine(ctx, requirement, snap, gap)
	if err != nil {
		zap.L().Warn("recommender refinement failed, reusing previous list", zap.Error(err))
		return prev
	}
	if len(refined) == 0 {
		return prev
	}
	return refined
}
