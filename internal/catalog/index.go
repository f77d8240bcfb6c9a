// Package catalog merges product source lists into a single lookup surface
// for title resolution. Entries keep their source tag; primary sources are
// concatenated ahead of secondary ones so that scan order encodes priority.
package catalog

import "github.com/bloemhof/grocer-cli/internal/model"

// SourceList is one ordered contribution to the index.
type SourceList struct {
	Tag     model.Source
	Entries []model.CatalogEntry
}

// Index is an immutable, ordered view over all loaded catalog entries.
// Duplicate titles across sources are retained; the matcher decides priority.
type Index struct {
	entries []model.CatalogEntry
	sources map[model.Source]int
}

// Build concatenates source lists in the given order. Callers supply primary
// lists before secondary ones. Building from zero sources yields a valid,
// empty index.
func Build(sources ...SourceList) *Index {
	ix := &Index{sources: make(map[model.Source]int, len(sources))}
	for _, src := range sources {
		for _, e := range src.Entries {
			if e.Title == "" {
				continue
			}
			e.Source = src.Tag
			ix.entries = append(ix.entries, e)
		}
		ix.sources[src.Tag] += len(src.Entries)
	}
	return ix
}

// Candidates returns every entry in scan order.
func (ix *Index) Candidates() []model.CatalogEntry {
	return ix.entries
}

// Len returns the number of indexed entries.
func (ix *Index) Len() int {
	return len(ix.entries)
}

// HasSource reports whether any entries were contributed under the tag.
// The matcher uses this to pick its acceptance threshold: searching a lone
// fallback source warrants a stricter cut than searching everything.
func (ix *Index) HasSource(tag model.Source) bool {
	return ix.sources[tag] > 0
}
