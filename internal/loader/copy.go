package loader

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/raahikwueto/Sparkify-Data-Warehouse/internal/schema"
)

// CopyConfig parameterizes the warehouse-side COPY statements.
type CopyConfig struct {
	LogData     string // s3:// prefix of the activity-log stream
	LogJSONPath string // s3:// location of the jsonpaths mapping object
	SongData    string // s3:// prefix of the song-catalog stream
	Region      string
	RoleARN     string // IAM role granting read access, passed through as-is
	MaxErrors   int    // per-load malformed-record tolerance
}

// CopyLoader loads staging by handing COPY statements to the warehouse.
// The warehouse reads the objects directly; credential rejection and
// unreachable locations surface as statement errors.
type CopyLoader struct {
	db  Execer
	cfg CopyConfig
}

func NewCopyLoader(db Execer, cfg CopyConfig) *CopyLoader {
	return &CopyLoader{db: db, cfg: cfg}
}

// buildEventsCopy renders the activity-log COPY. Every field is mapped
// explicitly through the jsonpaths object; timestamps arrive as epoch
// milliseconds; blank and empty strings become NULL; overlong values
// are truncated to the declared column width rather than rejected.
func buildEventsCopy(cfg CopyConfig) string {
	return fmt.Sprintf(`COPY %s
FROM %s
FORMAT AS JSON %s
CREDENTIALS %s
REGION %s
STATUPDATE ON
TIMEFORMAT AS 'epochmillisecs'
TRUNCATECOLUMNS BLANKSASNULL EMPTYASNULL;`,
		schema.StagingEvents.Name,
		quoteLiteral(cfg.LogData),
		quoteLiteral(cfg.LogJSONPath),
		quoteLiteral("aws_iam_role="+cfg.RoleARN),
		quoteLiteral(cfg.Region),
	)
}

// buildSongsCopy renders the song-catalog COPY. Fields map to columns
// automatically by JSON key; invalid multi-byte characters are replaced
// with '^'; up to MaxErrors malformed objects are skipped before the
// whole load fails.
func buildSongsCopy(cfg CopyConfig) string {
	return fmt.Sprintf(`COPY %s
FROM %s
FORMAT AS JSON 'auto'
CREDENTIALS %s
REGION %s
STATUPDATE OFF
TRUNCATECOLUMNS
BLANKSASNULL
EMPTYASNULL
ACCEPTINVCHARS AS '^'
MAXERROR %d
COMPUPDATE OFF;`,
		schema.StagingSongs.Name,
		quoteLiteral(cfg.SongData),
		quoteLiteral("aws_iam_role="+cfg.RoleARN),
		quoteLiteral(cfg.Region),
		cfg.MaxErrors,
	)
}

func (l *CopyLoader) LoadEvents(ctx context.Context) error {
	return l.run(ctx, schema.StagingEvents.Name, l.cfg.LogData, buildEventsCopy(l.cfg))
}

func (l *CopyLoader) LoadSongs(ctx context.Context) error {
	return l.run(ctx, schema.StagingSongs.Name, l.cfg.SongData, buildSongsCopy(l.cfg))
}

func (l *CopyLoader) run(ctx context.Context, relation, location, stmt string) error {
	slog.Info("[Loader] Starting COPY", "relation", relation, "location", location)
	if _, err := l.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("bulk load %s from %s: %w", relation, location, err)
	}
	slog.Info("[Loader] COPY complete", "relation", relation)
	return nil
}

// quoteLiteral single-quotes a value for embedding in a COPY statement,
// which cannot take bind parameters for its options.
func quoteLiteral(v string) string {
	return "'" + strings.ReplaceAll(v, "'", "''") + "'"
}
