package cart

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bloemhof/grocer-cli/internal/config"
	"github.com/bloemhof/grocer-cli/internal/matcher"
	"github.com/bloemhof/grocer-cli/internal/model"
)

// Tracker provides read-only visibility into the remote cart. It never
// mutates the cart and holds nothing but the last snapshot taken.
type Tracker struct {
	surface Surface
	cfg     config.CartConfig
	last    model.CartSnapshot
	now     func() time.Time
}

// NewTracker creates a Tracker over the given surface.
func NewTracker(surface Surface, cfg config.CartConfig) *Tracker {
	return &Tracker{surface: surface, cfg: cfg, now: time.Now}
}

// Refresh takes a fresh snapshot of the remote cart. Snapshots are valid
// for a single reconciliation step; callers re-fetch after every mutation.
func (t *Tracker) Refresh(ctx context.Context) (model.CartSnapshot, error) {
	total, err := t.surface.ReadTotal(ctx)
	if err != nil {
		return model.CartSnapshot{}, NewTransportError("read total", err)
	}

	titles, partial, err := t.surface.ReadTitles(ctx)
	if err != nil {
		// The total is still usable; degrade to a partial snapshot so the
		// monetary logic keeps working while containment stays permissive.
		zap.L().Warn("cart titles unreadable, using partial snapshot", zap.Error(err))
		titles, partial = nil, total > 0
	}

	snap := model.CartSnapshot{
		TotalAmount: total,
		Titles:      titles,
		Partial:     partial,
		TakenAt:     t.now(),
	}
	t.last = snap
	zap.L().Debug("cart snapshot",
		zap.Float64("total", total),
		zap.Int("titles", len(titles)),
		zap.Bool("partial", partial))
	return snap, nil
}

// Last returns the most recent snapshot taken by Refresh.
func (t *Tracker) Last() model.CartSnapshot {
	return t.last
}

// Contains reports whether the snapshot already holds the title. A partial
// snapshot always answers false: never block an addition on guesswork.
func (t *Tracker) Contains(snap model.CartSnapshot, title string) bool {
	if snap.Partial {
		return false
	}
	want := matcher.Normalize(title)
	if want == "" {
		return false
	}

	for _, have := range snap.Titles {
		if t.titlesMatch(want, matcher.Normalize(have)) {
			return true
		}
	}
	return false
}

// titlesMatch applies the containment rules: exact equality always counts;
// a substring match counts only when the shorter title is long enough to be
// meaningful and the lengths are comparable.
func (t *Tracker) titlesMatch(a, b string) bool {
	if a == b {
		return true
	}

	shorter, longer := a, b
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}
	if len(shorter) < t.cfg.MinMatchLength || len(longer) == 0 {
		return false
	}
	if float64(len(shorter))/float64(len(longer)) < t.cfg.MinLengthRatio {
		return false
	}
	return strings.Contains(longer, shorter)
}
