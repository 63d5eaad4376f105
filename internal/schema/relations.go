// Package schema declares the two staging relations and the five
// star-schema relations, and applies them to the warehouse.
//
// Physical layout hints (DISTSTYLE/DISTKEY/SORTKEY) are emitted only
// for the redshift dialect; they affect performance, not results.
package schema

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Dialect selects the DDL flavor emitted by CreateSQL.
type Dialect int

const (
	Redshift Dialect = iota
	Postgres
)

// Execer is the subset of *sql.DB the schema operations need.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// Column describes one attribute of a relation.
type Column struct {
	Name       string
	Type       string
	NotNull    bool
	Identity   bool // system-generated, monotonically increasing
	PrimaryKey bool
	References string // e.g. "users(user_id)"
}

// Relation is one warehouse table: its columns plus Redshift layout hints.
type Relation struct {
	Name      string
	Columns   []Column
	DistStyle string // "KEY" or "ALL"
	DistKey   string
	SortKey   string
}

// StagingEvents holds one row per raw activity-log record. Duplicates
// and nulls are expected; the relation is replaced wholesale every run.
var StagingEvents = Relation{
	Name: "staging_events",
	Columns: []Column{
		{Name: "eventId", Type: "BIGINT", Identity: true, NotNull: true},
		{Name: "artist", Type: "VARCHAR"},
		{Name: "auth", Type: "VARCHAR"},
		{Name: "firstName", Type: "VARCHAR"},
		{Name: "gender", Type: "VARCHAR"},
		{Name: "itemInSession", Type: "INTEGER"},
		{Name: "lastName", Type: "VARCHAR"},
		{Name: "length", Type: "DOUBLE PRECISION"},
		{Name: "level", Type: "VARCHAR"},
		{Name: "location", Type: "VARCHAR"},
		{Name: "method", Type: "VARCHAR"},
		{Name: "page", Type: "VARCHAR"},
		{Name: "registration", Type: "VARCHAR"},
		{Name: "sessionId", Type: "INTEGER", NotNull: true},
		{Name: "song", Type: "VARCHAR"},
		{Name: "status", Type: "INTEGER"},
		{Name: "ts", Type: "BIGINT", NotNull: true},
		{Name: "userAgent", Type: "VARCHAR"},
		{Name: "userId", Type: "INTEGER"},
	},
	DistStyle: "KEY",
	DistKey:   "sessionId",
	SortKey:   "sessionId",
}

// StagingSongs holds one row per song-catalog record.
var StagingSongs = Relation{
	Name: "staging_songs",
	Columns: []Column{
		{Name: "num_songs", Type: "INTEGER"},
		{Name: "artist_id", Type: "VARCHAR", NotNull: true},
		{Name: "artist_latitude", Type: "VARCHAR"},
		{Name: "artist_longitude", Type: "VARCHAR"},
		{Name: "artist_location", Type: "VARCHAR"},
		{Name: "artist_name", Type: "VARCHAR"},
		{Name: "song_id", Type: "VARCHAR", NotNull: true},
		{Name: "title", Type: "VARCHAR"},
		{Name: "duration", Type: "DOUBLE PRECISION"},
		{Name: "year", Type: "INTEGER"},
	},
	DistStyle: "KEY",
	DistKey:   "artist_id",
	SortKey:   "artist_id",
}

// Users is the user dimension. level reflects an arbitrary one of the
// source values observed for the user; no history is retained.
var Users = Relation{
	Name: "users",
	Columns: []Column{
		{Name: "user_id", Type: "INTEGER", PrimaryKey: true},
		{Name: "first_name", Type: "VARCHAR(256)"},
		{Name: "last_name", Type: "VARCHAR(256)"},
		{Name: "gender", Type: "VARCHAR(6)"},
		{Name: "level", Type: "VARCHAR(5)"},
	},
	DistStyle: "ALL",
	SortKey:   "user_id",
}

// Artists is the artist dimension.
var Artists = Relation{
	Name: "artists",
	Columns: []Column{
		{Name: "artist_id", Type: "VARCHAR(50)", PrimaryKey: true},
		{Name: "name", Type: "VARCHAR(255)"},
		{Name: "location", Type: "VARCHAR(1000)"},
		{Name: "latitude", Type: "VARCHAR"},
		{Name: "longitude", Type: "VARCHAR"},
	},
	DistStyle: "ALL",
	SortKey:   "artist_id",
}

// Songs is the song dimension.
var Songs = Relation{
	Name: "songs",
	Columns: []Column{
		{Name: "song_id", Type: "VARCHAR(50)", PrimaryKey: true},
		{Name: "title", Type: "VARCHAR(500)", NotNull: true},
		{Name: "artist_id", Type: "VARCHAR(50)", NotNull: true, References: "artists(artist_id)"},
		{Name: "year", Type: "INTEGER", NotNull: true},
		{Name: "duration", Type: "DOUBLE PRECISION", NotNull: true},
	},
	DistStyle: "ALL",
	SortKey:   "song_id",
}

// Time is the calendar-decomposition dimension keyed by start_time.
var Time = Relation{
	Name: "time",
	Columns: []Column{
		{Name: "start_time", Type: "TIMESTAMP", PrimaryKey: true},
		{Name: "hour", Type: "INTEGER"},
		{Name: "day", Type: "INTEGER"},
		{Name: "week", Type: "INTEGER"},
		{Name: "month", Type: "INTEGER"},
		{Name: "year", Type: "INTEGER"},
		{Name: "weekday", Type: "INTEGER"},
	},
	DistStyle: "ALL",
	SortKey:   "start_time",
}

// SongPlays is the fact table: one row per song play.
var SongPlays = Relation{
	Name: "songplays",
	Columns: []Column{
		{Name: "songplay_id", Type: "BIGINT", Identity: true, PrimaryKey: true},
		{Name: "start_time", Type: "TIMESTAMP", NotNull: true},
		{Name: "user_id", Type: "INTEGER", NotNull: true, References: "users(user_id)"},
		{Name: "level", Type: "VARCHAR(5)", NotNull: true},
		{Name: "song_id", Type: "VARCHAR(50)", NotNull: true, References: "songs(song_id)"},
		{Name: "artist_id", Type: "VARCHAR(50)", References: "artists(artist_id)"},
		{Name: "session_id", Type: "VARCHAR(50)", NotNull: true},
		{Name: "location", Type: "VARCHAR(100)"},
		{Name: "user_agent", Type: "VARCHAR(512)"},
	},
	DistStyle: "KEY",
	DistKey:   "songplay_id",
	SortKey:   "user_id",
}

// All returns the seven relations in creation order: staging first,
// then dimensions (referenced before referencing), the fact table last.
func All() []Relation {
	return []Relation{
		StagingEvents,
		StagingSongs,
		Time,
		Users,
		Artists,
		Songs,
		SongPlays,
	}
}

// CreateSQL renders the CREATE TABLE statement for the given dialect.
// Creation is idempotent (IF NOT EXISTS).
func (r Relation) CreateSQL(d Dialect) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", r.Name)
	for i, col := range r.Columns {
		b.WriteString("    ")
		b.WriteString(col.Name)
		b.WriteString(" ")
		if col.Identity {
			b.WriteString(identityType(d))
		} else {
			b.WriteString(col.Type)
		}
		if col.NotNull {
			b.WriteString(" NOT NULL")
		}
		if col.PrimaryKey {
			b.WriteString(" PRIMARY KEY")
		}
		if col.References != "" {
			b.WriteString(" REFERENCES ")
			b.WriteString(col.References)
		}
		if i < len(r.Columns)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString(")")
	if d == Redshift {
		if r.DistStyle != "" {
			fmt.Fprintf(&b, "\nDISTSTYLE %s", r.DistStyle)
		}
		if r.DistKey != "" {
			fmt.Fprintf(&b, "\nDISTKEY(%s)", r.DistKey)
		}
		if r.SortKey != "" {
			fmt.Fprintf(&b, "\nSORTKEY(%s)", r.SortKey)
		}
	}
	b.WriteString(";")
	return b.String()
}

func identityType(d Dialect) string {
	if d == Redshift {
		return "BIGINT IDENTITY(0, 1)"
	}
	return "BIGINT GENERATED BY DEFAULT AS IDENTITY"
}

// DropSQL renders the DROP TABLE statement. Dropping a relation that
// does not exist is not an error.
func (r Relation) DropSQL() string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %s;", r.Name)
}

// CreateAll creates the seven relations in dependency order.
func CreateAll(ctx context.Context, db Execer, d Dialect) error {
	for _, rel := range All() {
		if _, err := db.ExecContext(ctx, rel.CreateSQL(d)); err != nil {
			return fmt.Errorf("schema: create %s: %w", rel.Name, err)
		}
	}
	return nil
}

// DropAll drops the seven relations in reverse creation order so that
// referencing tables go before the tables they reference.
func DropAll(ctx context.Context, db Execer) error {
	rels := All()
	for i := len(rels) - 1; i >= 0; i-- {
		if _, err := db.ExecContext(ctx, rels[i].DropSQL()); err != nil {
			return fmt.Errorf("schema: drop %s: %w", rels[i].Name, err)
		}
	}
	return nil
}

// Reset drops and recreates the whole schema. Idempotent: running it
// twice yields the same empty relations as running it once.
func Reset(ctx context.Context, db Execer, d Dialect) error {
	if err := DropAll(ctx, db); err != nil {
		return err
	}
	return CreateAll(ctx, db, d)
}
