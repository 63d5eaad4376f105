package loader

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	"github.com/raahikwueto/Sparkify-Data-Warehouse/internal/schema"
)

// maxLineBytes bounds a single JSON object line; activity and catalog
// records are far smaller, so anything beyond this is malformed.
const maxLineBytes = 1 << 20

// StreamConfig parameterizes the client-side load path.
type StreamConfig struct {
	LogData   string // s3:// prefix of the activity-log stream
	SongData  string // s3:// prefix of the song-catalog stream
	MaxErrors int    // per-load malformed-record tolerance
}

// StreamLoader reads the newline-delimited JSON objects itself and
// bulk-inserts them with the wire-protocol COPY, for plain PostgreSQL
// targets that cannot reach the object store. It applies the same
// coercion rules the warehouse-side COPY options declare.
type StreamLoader struct {
	db    *sql.DB
	store ObjectStore
	cfg   StreamConfig
}

func NewStreamLoader(db *sql.DB, store ObjectStore, cfg StreamConfig) *StreamLoader {
	return &StreamLoader{db: db, store: store, cfg: cfg}
}

func (l *StreamLoader) LoadEvents(ctx context.Context) error {
	return l.load(ctx, schema.StagingEvents, l.cfg.LogData, eventRow)
}

func (l *StreamLoader) LoadSongs(ctx context.Context) error {
	return l.load(ctx, schema.StagingSongs, l.cfg.SongData, songRow)
}

// load streams every object under location into the staging relation.
// Per-record parse failures are skipped up to MaxErrors; crossing the
// bound aborts the whole load. One transaction per load: a commit means
// one row per successfully parsed object, a failure means the relation
// must be reset before retry.
func (l *StreamLoader) load(
	ctx context.Context,
	rel schema.Relation,
	location string,
	convert func(map[string]interface{}) ([]interface{}, error),
) error {
	bucket, prefix, err := splitLocation(location)
	if err != nil {
		return fmt.Errorf("bulk load %s: %w", rel.Name, err)
	}

	keys, err := l.store.List(ctx, bucket, prefix)
	if err != nil {
		return fmt.Errorf("bulk load %s from %s: %w", rel.Name, location, err)
	}
	slog.Info("[Loader] Streaming objects", "relation", rel.Name, "location", location, "objects", len(keys))

	cols := insertColumns(rel)
	names := make([]string, len(cols))
	for i, col := range cols {
		names[i] = col.Name
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("bulk load %s: begin: %w", rel.Name, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn(rel.Name, names...))
	if err != nil {
		return fmt.Errorf("bulk load %s: prepare copy: %w", rel.Name, err)
	}
	defer stmt.Close()

	var loaded, skipped int
	for _, key := range keys {
		if err := l.loadObject(ctx, stmt, bucket, key, convert, &loaded, &skipped); err != nil {
			return fmt.Errorf("bulk load %s from %s: %w", rel.Name, location, err)
		}
	}

	// Flush the buffered copy data.
	if _, err := stmt.ExecContext(ctx); err != nil {
		return fmt.Errorf("bulk load %s: flush copy: %w", rel.Name, err)
	}
	if err := stmt.Close(); err != nil {
		return fmt.Errorf("bulk load %s: close copy: %w", rel.Name, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("bulk load %s: commit: %w", rel.Name, err)
	}

	slog.Info("[Loader] Stream load complete", "relation", rel.Name, "rows", loaded, "skipped", skipped)
	return nil
}

func (l *StreamLoader) loadObject(
	ctx context.Context,
	stmt *sql.Stmt,
	bucket, key string,
	convert func(map[string]interface{}) ([]interface{}, error),
	loaded, skipped *int,
) error {
	body, err := l.store.Open(ctx, bucket, key)
	if err != nil {
		return err
	}
	defer body.Close()

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	for line := 1; scanner.Scan(); line++ {
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		var obj map[string]interface{}
		var vals []interface{}
		recErr := json.Unmarshal(raw, &obj)
		if recErr == nil {
			vals, recErr = convert(obj)
		}
		if recErr != nil {
			*skipped++
			slog.Warn("[Loader] Skipping malformed record",
				"object", key, "line", line, "skipped", *skipped, "error", recErr)
			if *skipped > l.cfg.MaxErrors {
				return fmt.Errorf("%w (%d > %d)", ErrMaxErrorsExceeded, *skipped, l.cfg.MaxErrors)
			}
			continue
		}

		if _, err := stmt.ExecContext(ctx, vals...); err != nil {
			return fmt.Errorf("copy row from %s line %d: %w", key, line, err)
		}
		*loaded++
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading %s: %w", key, err)
	}
	return nil
}
