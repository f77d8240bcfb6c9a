// Package matcher resolves free-text desired-item titles to catalog entries.
// Desired titles often arrive in a different language or register than the
// catalog (English requests against a Dutch storefront), so resolution layers
// keyword overlap, containment, and edit-distance similarity rather than
// relying on any single signal.
package matcher

import (
	"strings"

	"github.com/agext/levenshtein"
	"go.uber.org/zap"

	"github.com/bloemhof/grocer-cli/internal/catalog"
	"github.com/bloemhof/grocer-cli/internal/config"
	"github.com/bloemhof/grocer-cli/internal/model"
)

// scoreEpsilon absorbs float rounding so a composite score computed exactly
// at the threshold is accepted.
const scoreEpsilon = 1e-9

// Matcher scores catalog candidates against desired titles. It is stateless
// apart from configuration and safe to reuse across reconciliation passes.
type Matcher struct {
	cfg  config.MatcherConfig
	stop map[string]struct{}
}

// New creates a Matcher with the given scoring configuration.
func New(cfg config.MatcherConfig) *Matcher {
	stop := make(map[string]struct{}, len(cfg.Stopwords))
	for _, w := range cfg.Stopwords {
		stop[strings.ToLower(w)] = struct{}{}
	}
	return &Matcher{cfg: cfg, stop: stop}
}

// Resolve returns the single best catalog entry for the desired title, or
// false when no candidate clears the acceptance threshold. A miss is a
// normal outcome, not a fault.
func (m *Matcher) Resolve(ix *catalog.Index, title string) (model.CatalogEntry, bool) {
	desired := Normalize(title)
	if desired == "" || ix.Len() == 0 {
		return model.CatalogEntry{}, false
	}

	keywords := m.keywords(desired)

	var (
		bestPlain, bestIdent           model.CatalogEntry
		bestPlainScore, bestIdentScore = -1.0, -1.0
	)

	for _, cand := range ix.Candidates() {
		candTitle := Normalize(cand.Title)

		// Exact normalized equality short-circuits all scoring; the first
		// hit in index order wins, which is what ranks primary sources
		// ahead of secondary ones.
		if candTitle == desired {
			return cand, true
		}

		s := m.score(desired, candTitle, keywords)
		if cand.HasIdentifier() {
			if s > bestIdentScore {
				bestIdent, bestIdentScore = cand, s
			}
		} else if s > bestPlainScore {
			bestPlain, bestPlainScore = cand, s
		}
	}

	threshold := m.threshold(ix)

	// Identifier-bearing candidates can be navigated to directly, so they
	// win at a relaxed cut even when a plain candidate scored higher.
	if bestIdentScore+scoreEpsilon >= threshold*m.cfg.IdentifierRelax {
		m.logHit(title, bestIdent, bestIdentScore)
		return bestIdent, true
	}
	if bestPlainScore+scoreEpsilon >= threshold {
		m.logHit(title, bestPlain, bestPlainScore)
		return bestPlain, true
	}

	zap.L().Debug("no catalog match",
		zap.String("desired", title),
		zap.Float64("best", max(bestPlainScore, bestIdentScore)),
		zap.Float64("threshold", threshold))
	return model.CatalogEntry{}, false
}

// threshold picks the acceptance cut for this index: the stricter fallback
// value applies when only the secondary source contributed candidates.
func (m *Matcher) threshold(ix *catalog.Index) float64 {
	if !ix.HasSource(model.SourcePrimary) && ix.HasSource(model.SourceSecondary) {
		return m.cfg.FallbackThreshold
	}
	return m.cfg.Threshold
}

// score computes the composite similarity between the normalized desired
// title and one normalized candidate title.
func (m *Matcher) score(desired, candidate string, keywords []string) float64 {
	fuzzy := levenshtein.Similarity(desired, candidate, nil)

	if len(keywords) > 0 {
		hits := 0
		for _, kw := range keywords {
			if strings.Contains(candidate, kw) {
				hits++
			}
		}
		if hits > 0 {
			kwScore := float64(hits) / float64(len(keywords))
			return 0.6*kwScore + 0.4*fuzzy
		}
	}

	if strings.Contains(candidate, desired) || strings.Contains(desired, candidate) {
		return min(1.0, 1.2*fuzzy)
	}
	return fuzzy
}

// keywords extracts the meaningful tokens of a normalized title: longer than
// two characters and not in the unit/quantity stoplist.
func (m *Matcher) keywords(normalized string) []string {
	var out []string
	for _, tok := range strings.Fields(normalized) {
		if len(tok) <= 2 {
			continue
		}
		if _, stopped := m.stop[tok]; stopped {
			continue
		}
		out = append(out, tok)
	}
	return out
}

func (m *Matcher) logHit(desired string, entry model.CatalogEntry, score float64) {
	zap.L().Debug("catalog match",
		zap.String("desired", desired),
		zap.String("matched", entry.Title),
		zap.String("source", string(entry.Source)),
		zap.Float64("score", score))
}

// Normalize lower-cases and trims a title for comparison.
func Normalize(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}
