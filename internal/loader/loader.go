// Package loader ingests the raw JSON streams from object storage into
// the two staging relations.
//
// Two implementations share one contract: CopyLoader issues warehouse-side
// COPY statements (Redshift reads the objects itself), StreamLoader reads
// the objects client-side and bulk-inserts (for plain PostgreSQL targets).
// Neither guarantees atomicity on failure: a failed load leaves the
// staging relation in an undefined partial state, and callers must reset
// it before retrying.
package loader

import (
	"context"
	"database/sql"
	"errors"
)

// ErrMaxErrorsExceeded marks a load aborted because the number of
// malformed source records passed the configured bound.
var ErrMaxErrorsExceeded = errors.New("malformed record count exceeded bound")

// Loader populates the staging relations from the configured locations.
type Loader interface {
	// LoadEvents loads the activity-log stream into staging_events.
	LoadEvents(ctx context.Context) error
	// LoadSongs loads the song-catalog stream into staging_songs.
	LoadSongs(ctx context.Context) error
}

// Execer is the subset of *sql.DB the COPY path needs.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}
