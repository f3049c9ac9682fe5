// Package badgerdb implements every domain repository on top of an
// embedded badgerhold store, one store per entity, the same layout the
// teacher's badgerdb package uses for its settings/swap/vhtlc repos.
package badgerdb

import (
	"github.com/dgraph-io/badger/v4"
	"github.com/timshannon/badgerhold/v4"
)

// createDB opens a badgerhold store at dir, or an in-memory store when dir
// is empty (used by tests and by any repo the operator chooses not to
// persist). A nil logger falls back to badger's own default logger.
func createDB(dir string, logger badger.Logger) (*badgerhold.Store, error) {
	opts := badgerhold.DefaultOptions
	if dir == "" {
		opts.Options = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts.Options = badger.DefaultOptions(dir)
	}
	if logger != nil {
		opts.Options = opts.Options.WithLogger(logger)
	} else {
		opts.Options = opts.Options.WithLoggingLevel(badger.WARNING)
	}
	return badgerhold.Open(opts)
}
