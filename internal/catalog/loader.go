package catalog

import (
	"encoding/json"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/bloemhof/grocer-cli/internal/config"
	"github.com/bloemhof/grocer-cli/internal/model"
)

// Loader reads catalog source files and maintains the merged disk cache.
type Loader struct {
	cfg config.CatalogConfig
	now func() time.Time
}

// NewLoader creates a Loader for the configured source and cache files.
func NewLoader(cfg config.CatalogConfig) *Loader {
	return &Loader{cfg: cfg, now: time.Now}
}

// Load returns the merged index, serving from the disk cache when it is
// fresh and rebuilding from the source files otherwise. A corrupt or stale
// cache is treated as absent, never as an error.
func (l *Loader) Load() (*Index, error) {
	if entries, ok := l.fromCache(); ok {
		return Build(splitBySource(entries)...), nil
	}
	return l.Refresh()
}

// Refresh rebuilds the index from the source files, bypassing the cache,
// and rewrites the cache on success.
func (l *Loader) Refresh() (*Index, error) {
	primary, err := ReadSourceFile(l.cfg.BonusFile, model.SourcePrimary)
	if err != nil {
		return nil, err
	}
	secondary, err := ReadSourceFile(l.cfg.PreviousFile, model.SourceSecondary)
	if err != nil {
		return nil, err
	}

	ix := Build(
		SourceList{Tag: model.SourcePrimary, Entries: primary},
		SourceList{Tag: model.SourceSecondary, Entries: secondary},
	)
	zap.L().Info("catalog loaded",
		zap.Int("primary", len(primary)),
		zap.Int("secondary", len(secondary)))

	if err := l.writeCache(ix.Candidates()); err != nil {
		// Cache write failure degrades to uncached operation.
		zap.L().Warn("catalog cache write failed", zap.Error(err))
	}
	return ix, nil
}

// CacheAge returns the age of the disk cache, or false when no readable
// cache exists.
func (l *Loader) CacheAge() (time.Duration, bool) {
	file, err := readCatalogFile(l.cfg.CacheFile)
	if err != nil || file.Timestamp.IsZero() {
		return 0, false
	}
	return l.now().Sub(file.Timestamp), true
}

// ReadSourceFile loads one catalog source list and tags every entry. A
// missing file yields an empty list so that a single absent source never
// blocks resolution against the others.
func ReadSourceFile(path string, tag model.Source) ([]model.CatalogEntry, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			zap.L().Warn("catalog source missing", zap.String("path", path))
			return nil, nil
		}
		return nil, eris.Wrapf(err, "catalog: read source %s", path)
	}

	file, err := model.DecodeCatalog(data)
	if err != nil {
		return nil, eris.Wrapf(err, "catalog: decode source %s", path)
	}

	entries := file.Products
	for i := range entries {
		entries[i].Source = tag
	}
	return entries, nil
}

func (l *Loader) fromCache() ([]model.CatalogEntry, bool) {
	if l.cfg.CacheFile == "" || l.cfg.CacheTTLHours <= 0 {
		return nil, false
	}

	file, err := readCatalogFile(l.cfg.CacheFile)
	if err != nil {
		if !os.IsNotExist(eris.Cause(err)) {
			zap.L().Warn("catalog cache unreadable, ignoring", zap.Error(err))
		}
		return nil, false
	}

	ttl := time.Duration(l.cfg.CacheTTLHours) * time.Hour
	age := l.now().Sub(file.Timestamp)
	if file.Timestamp.IsZero() || age < 0 || age >= ttl {
		zap.L().Debug("catalog cache stale", zap.Duration("age", age))
		return nil, false
	}
	return file.Products, true
}

func (l *Loader) writeCache(entries []model.CatalogEntry) error {
	if l.cfg.CacheFile == "" {
		return nil
	}
	data, err := json.MarshalIndent(model.CatalogFile{
		Timestamp: l.now(),
		Products:  entries,
	}, "", "  ")
	if err != nil {
		return eris.Wrap(err, "catalog: marshal cache")
	}
	if err := os.WriteFile(l.cfg.CacheFile, data, 0644); err != nil {
		return eris.Wrap(err, "catalog: write cache")
	}
	return nil
}

func readCatalogFile(path string) (model.CatalogFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.CatalogFile{}, eris.Wrapf(err, "catalog: read %s", path)
	}
	file, err := model.DecodeCatalog(data)
	if err != nil {
		return model.CatalogFile{}, err
	}
	return file, nil
}

// splitBySource regroups cached entries into per-source lists, preserving
// relative order, so the rebuilt index keeps primary entries first.
func splitBySource(entries []model.CatalogEntry) []SourceList {
	var primary, secondary []model.CatalogEntry
	for _, e := range entries {
		if e.Source == model.SourceSecondary {
			secondary = append(secondary, e)
		} else {
			primary = append(primary, e)
		}
	}
	var out []SourceList
	if len(primary) > 0 {
		out = append(out, SourceList{Tag: model.SourcePrimary, Entries: primary})
	}
	if len(secondary) > 0 {
		out = append(out, SourceList{Tag: model.SourceSecondary, Entries: secondary})
	}
	return out
}
