// Package transform derives the star schema from the staging relations.
package transform

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// Engine runs the five derivation rules against loaded staging
// relations. Each rule is append-only: dimensional tables are derived
// fresh after a schema reset, never updated in place.
type Engine struct {
	db *sql.DB
}

func New(db *sql.DB) *Engine {
	return &Engine{db: db}
}

// DeriveArtists populates the artist dimension.
func (e *Engine) DeriveArtists(ctx context.Context) error {
	return e.derive(ctx, "artists", insertArtists)
}

// DeriveSongs populates the song dimension.
func (e *Engine) DeriveSongs(ctx context.Context) error {
	return e.derive(ctx, "songs", insertSongs)
}

// DeriveUsers populates the user dimension.
func (e *Engine) DeriveUsers(ctx context.Context) error {
	return e.derive(ctx, "users", insertUsers)
}

// DeriveTime populates the calendar dimension.
func (e *Engine) DeriveTime(ctx context.Context) error {
	return e.derive(ctx, "time", insertTime)
}

// DeriveSongPlays populates the fact table. Must run after the four
// dimension derivations.
func (e *Engine) DeriveSongPlays(ctx context.Context) error {
	return e.derive(ctx, "songplays", insertSongPlays)
}

func (e *Engine) derive(ctx context.Context, relation, stmt string) error {
	res, err := e.db.ExecContext(ctx, stmt)
	if err != nil {
		return fmt.Errorf("transform %s: %w", relation, err)
	}
	if rows, err := res.RowsAffected(); err == nil {
		slog.Info("[Transform] Derivation complete", "relation", relation, "rows", rows)
	}
	return nil
}

// Run executes all five derivations in dependency order: the four
// dimensions concurrently (they are independent), then the fact table,
// then the referential checks.
func (e *Engine) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return e.DeriveArtists(gctx) })
	g.Go(func() error { return e.DeriveSongs(gctx) })
	g.Go(func() error { return e.DeriveUsers(gctx) })
	g.Go(func() error { return e.DeriveTime(gctx) })
	if err := g.Wait(); err != nil {
		return err
	}

	if err := e.DeriveSongPlays(ctx); err != nil {
		return err
	}

	return e.VerifyReferences(ctx)
}

// VerifyReferences fails loudly if any songplay row references a
// missing dimension key. The derivation predicates make this
// unreachable for well-formed staging data; a non-zero count means an
// upstream data-quality problem that must not be suppressed.
func (e *Engine) VerifyReferences(ctx context.Context) error {
	checks := []struct {
		reference string
		query     string
	}{
		{"users(user_id)", checkUserRefs},
		{"songs(song_id)", checkSongRefs},
		{"artists(artist_id)", checkArtistRefs},
		{"time(start_time)", checkTimeRefs},
	}
	for _, c := range checks {
		var dangling int64
		if err := e.db.QueryRowContext(ctx, c.query).Scan(&dangling); err != nil {
			return fmt.Errorf("transform: reference check %s: %w", c.reference, err)
		}
		if dangling > 0 {
			return fmt.Errorf("transform: %d songplay rows reference missing %s", dangling, c.reference)
		}
	}
	return nil
}
