// Package analytics runs the read-only reporting queries over the
// finished star schema. The queries validate the transform end to end;
// they have no side effects and return empty results on an empty schema.
package analytics

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"
)

// HourlyUsageRow is one hour-of-day bucket of total listening time.
type HourlyUsageRow struct {
	Hour        int             `json:"hour"`
	HoursPlayed decimal.Decimal `json:"hours_played"`
}

// TopSongRow is one (song, artist) play count.
type TopSongRow struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
	Plays  int64  `json:"plays"`
}

// Reporter executes the analytical query set.
type Reporter struct {
	db *sql.DB
}

func NewReporter(db *sql.DB) *Reporter {
	return &Reporter{db: db}
}

// HourlyUsage returns total listening hours per hour of day, busiest
// first. Empty slice, not an error, when the star schema is empty.
func (r *Reporter) HourlyUsage(ctx context.Context) ([]HourlyUsageRow, error) {
	rows, err := r.db.QueryContext(ctx, queryHourlyUsage)
	if err != nil {
		return nil, fmt.Errorf("analytics: hourly usage: %w", err)
	}
	defer rows.Close()

	out := []HourlyUsageRow{}
	for rows.Next() {
		var row HourlyUsageRow
		var hours float64
		if err := rows.Scan(&row.Hour, &hours); err != nil {
			return nil, fmt.Errorf("analytics: hourly usage scan: %w", err)
		}
		row.HoursPlayed = decimal.NewFromFloat(hours)
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("analytics: hourly usage rows: %w", err)
	}
	return out, nil
}

// TopSongs returns the ten most played (song, artist) pairs.
func (r *Reporter) TopSongs(ctx context.Context) ([]TopSongRow, error) {
	rows, err := r.db.QueryContext(ctx, queryTopSongs)
	if err != nil {
		return nil, fmt.Errorf("analytics: top songs: %w", err)
	}
	defer rows.Close()

	out := []TopSongRow{}
	for rows.Next() {
		var row TopSongRow
		if err := rows.Scan(&row.Title, &row.Artist, &row.Plays); err != nil {
			return nil, fmt.Errorf("analytics: top songs scan: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("analytics: top songs rows: %w", err)
	}
	return out, nil
}

// TotalHours sums a usage report. Summing in decimal keeps the
// cross-check against total songplay duration stable.
func TotalHours(rows []HourlyUsageRow) decimal.Decimal {
	total := decimal.Zero
	for _, row := range rows {
		total = total.Add(row.HoursPlayed)
	}
	return total
}
