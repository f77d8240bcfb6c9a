package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/bloemhof/grocer-cli/internal/store"
)

// initStore opens the run history database and applies migrations.
func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.NewSQLite(cfg.Store.Path)
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}
