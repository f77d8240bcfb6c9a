package cart

import (
	"context"

	"go.uber.org/zap"

	"github.com/bloemhof/grocer-cli/internal/model"
	"github.com/bloemhof/grocer-cli/internal/resilience"
)

// ApplyReport records the outcome of one apply-item operation.
type ApplyReport struct {
	Outcome   model.ApplyOutcome
	Requested int
	Added     int
	Reason    string
}

// Applier performs the add-to-cart effect for resolved items. It mutates the
// remote cart only; the caller must re-refresh the Tracker afterwards, the
// Applier never updates it.
type Applier struct {
	surface Surface
	retry   resilience.RetryConfig
}

// NewApplier creates an Applier over the given surface. Transient transport
// faults are retried per cfg before an item is reported as failed.
func NewApplier(surface Surface, retry resilience.RetryConfig) *Applier {
	return &Applier{surface: surface, retry: retry}
}

// Apply adds the resolved item at its target quantity. It returns an error
// only for transport-level faults; a product that cannot be located comes
// back as an ApplyFailure report with a nil error.
func (a *Applier) Apply(ctx context.Context, item model.ResolvedItem) (ApplyReport, error) {
	quantity := item.Quantity
	if quantity < 1 {
		quantity = 1
	}
	target := applyTarget(item)

	added, err := resilience.DoVal(ctx, a.retry, func(ctx context.Context) (int, error) {
		return a.surface.Add(ctx, target, quantity)
	})
	if err != nil {
		return ApplyReport{
			Outcome:   model.ApplyFailure,
			Requested: quantity,
			Reason:    err.Error(),
		}, NewTransportError("add "+item.Desired.Title, err)
	}

	report := ApplyReport{Requested: quantity, Added: added}
	switch {
	case added >= quantity:
		report.Outcome = model.ApplyFullSuccess
	case added > 0:
		report.Outcome = model.ApplyPartialSuccess
		report.Reason = "fewer units added than requested"
	default:
		report.Outcome = model.ApplyFailure
		report.Reason = "product not found"
	}

	zap.L().Info("apply item",
		zap.String("title", item.Desired.Title),
		zap.String("outcome", string(report.Outcome)),
		zap.Int("requested", quantity),
		zap.Int("added", added))
	return report, nil
}

// applyTarget picks the navigation handle for the add call: an explicit
// identifier wins over free-text search, the desired item's own identifier
// over the matched entry's.
func applyTarget(item model.ResolvedItem) string {
	if item.Desired.ProductURL != "" {
		return item.Desired.ProductURL
	}
	if item.Entry != nil && item.Entry.HasIdentifier() {
		return item.Entry.ProductURL
	}
	if item.Entry != nil {
		return item.Entry.Title
	}
	return item.Desired.Title
}
