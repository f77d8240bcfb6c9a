package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bloemhof/grocer-cli/internal/catalog"
	"github.com/bloemhof/grocer-cli/internal/config"
	"github.com/bloemhof/grocer-cli/internal/model"
)

func defaultConfig() config.MatcherConfig {
	return config.MatcherConfig{
		Threshold:         0.5,
		FallbackThreshold: 0.6,
		IdentifierRelax:   0.8,
		Stopwords:         []string{"ah", "500g", "1l"},
	}
}

func primaryIndex(titles ...string) *catalog.Index {
	entries := make([]model.CatalogEntry, len(titles))
	for i, t := range titles {
		entries[i] = model.CatalogEntry{Title: t}
	}
	return catalog.Build(catalog.SourceList{Tag: model.SourcePrimary, Entries: entries})
}

func TestResolveExactShortCircuit(t *testing.T) {
	m := New(defaultConfig())

	// A high-keyword-overlap candidate before the exact one must not win.
	ix := primaryIndex(
		"ah halfvolle melk 2l voordeelpak",
		"ah halfvolle melk",
		"ah halfvolle melk literfles",
	)

	entry, ok := m.Resolve(ix, "AH Halfvolle Melk")
	require.True(t, ok)
	assert.Equal(t, "ah halfvolle melk", entry.Title)
}

func TestResolveExactIsCaseAndSpaceInsensitive(t *testing.T) {
	m := New(defaultConfig())
	ix := primaryIndex("verse jus d'orange")

	entry, ok := m.Resolve(ix, "  Verse Jus d'Orange  ")
	require.True(t, ok)
	assert.Equal(t, "verse jus d'orange", entry.Title)
}

func TestResolvePrimaryWinsOnEqualScore(t *testing.T) {
	m := New(defaultConfig())

	// Same title under both sources: equal scores, the entry scanned first
	// (primary) wins.
	ix := catalog.Build(
		catalog.SourceList{Tag: model.SourcePrimary, Entries: []model.CatalogEntry{
			{Title: "Milk 1L pack"},
		}},
		catalog.SourceList{Tag: model.SourceSecondary, Entries: []model.CatalogEntry{
			{Title: "Milk 1L pack"},
		}},
	)

	entry, ok := m.Resolve(ix, "milk pack")
	require.True(t, ok)
	assert.Equal(t, model.SourcePrimary, entry.Source)
}

func TestResolveThresholdBoundary(t *testing.T) {
	// "abcd" vs "abxy": edit distance 2 over length 4 gives similarity
	// exactly 0.5. No keyword hits, no containment, so the composite score
	// is the raw similarity.
	ix := primaryIndex("abxy")

	cfg := defaultConfig()
	m := New(cfg)
	_, ok := m.Resolve(ix, "abcd")
	assert.True(t, ok, "score equal to threshold must be accepted")

	cfg.Threshold = 0.51
	m = New(cfg)
	_, ok = m.Resolve(ix, "abcd")
	assert.False(t, ok, "score below threshold must be rejected")
}

func TestResolveKeywordScoring(t *testing.T) {
	m := New(defaultConfig())
	ix := primaryIndex(
		"verse scharreleieren 10 stuks",
		"rundergehakt kruiden",
	)

	entry, ok := m.Resolve(ix, "verse scharreleieren")
	require.True(t, ok)
	assert.Equal(t, "verse scharreleieren 10 stuks", entry.Title)
}

func TestResolveStopwordsExcludedFromKeywords(t *testing.T) {
	m := New(defaultConfig())
	ix := primaryIndex("hamburgers rundvlees 4 stuks")

	// "500g" is stoplisted, so "hamburgers" is the only keyword and it
	// hits, which keeps the keyword score at 1.0.
	entry, ok := m.Resolve(ix, "hamburgers 500g")
	require.True(t, ok)
	assert.Equal(t, "hamburgers rundvlees 4 stuks", entry.Title)
}

func TestResolveIdentifierPreferredAtRelaxedThreshold(t *testing.T) {
	m := New(defaultConfig())

	// Plain candidate scores 0.8, identifier candidate 0.6. The relaxed
	// cut is 0.5 * 0.8 = 0.4, so the identifier candidate wins.
	ix := catalog.Build(catalog.SourceList{Tag: model.SourcePrimary, Entries: []model.CatalogEntry{
		{Title: "ab cx"},
		{Title: "ab xy", ProductURL: "https://www.ah.nl/producten/product/wi42"},
	}})

	entry, ok := m.Resolve(ix, "ab cd")
	require.True(t, ok)
	assert.True(t, entry.HasIdentifier())
}

func TestResolveIdentifierBelowRelaxedThresholdLoses(t *testing.T) {
	m := New(defaultConfig())

	// The identifier candidate shares no text and scores near zero, well
	// under the relaxed cut of 0.4.
	ix := catalog.Build(catalog.SourceList{Tag: model.SourcePrimary, Entries: []model.CatalogEntry{
		{Title: "ab cx"},
		{Title: "wxyz", ProductURL: "https://www.ah.nl/producten/product/wi42"},
	}})

	entry, ok := m.Resolve(ix, "ab cd")
	require.True(t, ok)
	assert.Equal(t, "ab cx", entry.Title)
	assert.False(t, entry.HasIdentifier())
}

func TestResolveFallbackThresholdStricter(t *testing.T) {
	m := New(defaultConfig())

	// Tokens of two characters produce no keywords; the candidate differs
	// in 6 of 14 positions for a similarity near 0.57.
	desired := "ab cd ef gh ij"
	candidate := "ab cd xx yy zz"

	mixed := catalog.Build(
		catalog.SourceList{Tag: model.SourcePrimary, Entries: []model.CatalogEntry{{Title: candidate}}},
		catalog.SourceList{Tag: model.SourceSecondary, Entries: []model.CatalogEntry{{Title: "onrelated"}}},
	)
	_, ok := m.Resolve(mixed, desired)
	assert.True(t, ok, "0.57 clears the 0.5 all-sources threshold")

	fallbackOnly := catalog.Build(
		catalog.SourceList{Tag: model.SourceSecondary, Entries: []model.CatalogEntry{{Title: candidate}}},
	)
	_, ok = m.Resolve(fallbackOnly, desired)
	assert.False(t, ok, "0.57 misses the 0.6 fallback-only threshold")
}

func TestResolveNoMatchIsNotAnError(t *testing.T) {
	m := New(defaultConfig())
	ix := primaryIndex("chocoladereep puur")

	entry, ok := m.Resolve(ix, "verse zalmfilet")
	assert.False(t, ok)
	assert.Empty(t, entry.Title)
}

func TestResolveEmptyInputs(t *testing.T) {
	m := New(defaultConfig())

	_, ok := m.Resolve(catalog.Build(), "melk")
	assert.False(t, ok)

	_, ok = m.Resolve(primaryIndex("melk"), "   ")
	assert.False(t, ok)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "ah halfvolle melk", Normalize("  AH Halfvolle Melk "))
	assert.Equal(t, "", Normalize("   "))
}

func TestScoreBranches(t *testing.T) {
	m := New(defaultConfig())

	// Keyword branch: both keywords hit, similarity contributes the rest.
	kws := m.keywords("verse melk")
	s := m.score("verse melk", "verse melk halfvol", kws)
	assert.Greater(t, s, 0.6)

	// Containment branch boosts the raw similarity by 1.2, capped at 1.
	s = m.score("ab cd", "zz ab cd", nil)
	assert.InDelta(t, 0.75, s, 0.01)

	// Plain fuzzy branch.
	s = m.score("abcd", "abxy", m.keywords("abcd"))
	assert.InDelta(t, 0.5, s, 0.001)
}
