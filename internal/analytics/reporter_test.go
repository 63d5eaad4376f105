package analytics

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func newReporter(t *testing.T) (*Reporter, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewReporter(db), mock
}

func TestHourlyUsage(t *testing.T) {
	r, mock := newReporter(t)

	mock.ExpectQuery(regexp.QuoteMeta(queryHourlyUsage)).
		WillReturnRows(sqlmock.NewRows([]string{"time_of_day", "hours_played"}).
			AddRow(17, 12.5).
			AddRow(9, 3.25))

	rows, err := r.HourlyUsage(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, 17, rows[0].Hour)
	require.True(t, rows[0].HoursPlayed.Equal(decimal.NewFromFloat(12.5)))
}

func TestHourlyUsage_TotalMatchesSum(t *testing.T) {
	r, mock := newReporter(t)

	mock.ExpectQuery(regexp.QuoteMeta(queryHourlyUsage)).
		WillReturnRows(sqlmock.NewRows([]string{"time_of_day", "hours_played"}).
			AddRow(0, 0.1).
			AddRow(1, 0.2).
			AddRow(2, 0.3))

	rows, err := r.HourlyUsage(context.Background())
	require.NoError(t, err)

	// Decimal summation: 0.1+0.2+0.3 is exactly 0.6, no float drift.
	require.True(t, TotalHours(rows).Equal(decimal.RequireFromString("0.6")))
}

func TestTopSongs_EmptySchemaReturnsZeroRows(t *testing.T) {
	r, mock := newReporter(t)

	mock.ExpectQuery(regexp.QuoteMeta(queryTopSongs)).
		WillReturnRows(sqlmock.NewRows([]string{"song_title", "artist_name", "frequency"}))

	rows, err := r.TopSongs(context.Background())
	require.NoError(t, err)
	require.NotNil(t, rows)
	require.Empty(t, rows)
}

func TestTopSongs(t *testing.T) {
	r, mock := newReporter(t)

	mock.ExpectQuery(regexp.QuoteMeta(queryTopSongs)).
		WillReturnRows(sqlmock.NewRows([]string{"song_title", "artist_name", "frequency"}).
			AddRow("You're The One", "Dwight Yoakam", 37).
			AddRow("Catch You Baby", "Lonnie Gordon", 9))

	rows, err := r.TopSongs(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, TopSongRow{Title: "You're The One", Artist: "Dwight Yoakam", Plays: 37}, rows[0])
}

func TestQueryShape(t *testing.T) {
	require.Contains(t, queryHourlyUsage, "SUM(s.duration)/3600")
	require.Contains(t, queryHourlyUsage, "ORDER BY hours_played DESC")
	require.Contains(t, queryTopSongs, "LIMIT 10")
	require.Contains(t, queryTopSongs, "ORDER BY frequency DESC")
}

func TestHandleTopSongs(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r, mock := newReporter(t)

	mock.ExpectQuery(regexp.QuoteMeta(queryTopSongs)).
		WillReturnRows(sqlmock.NewRows([]string{"song_title", "artist_name", "frequency"}).
			AddRow("You're The One", "Dwight Yoakam", 37))

	router := gin.New()
	r.RegisterRoutes(router)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/reports/top-songs", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		TopSongs []TopSongRow `json:"top_songs"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.TopSongs, 1)
	require.Equal(t, "Dwight Yoakam", body.TopSongs[0].Artist)
}

func TestHandleHourlyUsage_EmptySchema(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r, mock := newReporter(t)

	mock.ExpectQuery(regexp.QuoteMeta(queryHourlyUsage)).
		WillReturnRows(sqlmock.NewRows([]string{"time_of_day", "hours_played"}))

	router := gin.New()
	r.RegisterRoutes(router)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/reports/hourly-usage", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"hours_by_hour_of_day": []}`, w.Body.String())
}
