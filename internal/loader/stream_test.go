package loader

import (
	"context"
	"errors"
	"io"
	"regexp"
	"sort"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/raahikwueto/Sparkify-Data-Warehouse/internal/schema"
)

// fakeStore serves objects from memory, keyed by "bucket/key".
type fakeStore struct {
	objects  map[string]string
	listErr  error
	openErrs map[string]error
}

func (f *fakeStore) List(_ context.Context, bucket, prefix string) ([]string, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var keys []string
	for path := range f.objects {
		b, key, _ := strings.Cut(path, "/")
		if b == bucket && strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (f *fakeStore) Open(_ context.Context, bucket, key string) (io.ReadCloser, error) {
	if err := f.openErrs[key]; err != nil {
		return nil, err
	}
	return io.NopCloser(strings.NewReader(f.objects[bucket+"/"+key])), nil
}

func songsCopySQL() string {
	names := make([]string, 0)
	for _, col := range insertColumns(schema.StagingSongs) {
		names = append(names, col.Name)
	}
	return pq.CopyIn(schema.StagingSongs.Name, names...)
}

const songLine = `{"num_songs": 1, "artist_id": "ARJIE2Y1187B994AB7", "artist_latitude": null, "artist_longitude": null, "artist_location": "", "artist_name": "Line Renaud", "song_id": "SOUPIRU12A6D4FA1E1", "title": "Der Kleine Dompfaff", "duration": 152.92036, "year": 0}`

func TestStreamLoader_LoadSongs(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := &fakeStore{objects: map[string]string{
		"udacity-dend/song_data/A/A/TRAAAAK128F9318786.json": songLine,
		"udacity-dend/song_data/A/B/TRAABJL12903CDCF1A.json": songLine + "\n" + songLine,
	}}

	copySQL := regexp.QuoteMeta(songsCopySQL())
	mock.ExpectBegin()
	mock.ExpectPrepare(copySQL)
	mock.ExpectExec(copySQL).
		WithArgs(
			int64(1), "ARJIE2Y1187B994AB7", nil, nil, nil,
			"Line Renaud", "SOUPIRU12A6D4FA1E1", "Der Kleine Dompfaff", 152.92036, int64(0),
		).
		WillReturnResult(sqlmock.NewResult(0, 1))
	for i := 0; i < 2; i++ {
		mock.ExpectExec(copySQL).WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectExec(copySQL).WillReturnResult(sqlmock.NewResult(0, 0)) // flush
	mock.ExpectCommit()

	l := NewStreamLoader(db, store, StreamConfig{
		LogData:   "s3://udacity-dend/log_data",
		SongData:  "s3://udacity-dend/song_data",
		MaxErrors: 10,
	})
	require.NoError(t, l.LoadSongs(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStreamLoader_SkipsMalformedWithinBound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := &fakeStore{objects: map[string]string{
		"udacity-dend/song_data/part-0.json": "{not json}\n" + songLine + "\n" + `{"artist_id": null}`,
	}}

	copySQL := regexp.QuoteMeta(songsCopySQL())
	mock.ExpectBegin()
	mock.ExpectPrepare(copySQL)
	mock.ExpectExec(copySQL).WillReturnResult(sqlmock.NewResult(0, 1)) // the one good record
	mock.ExpectExec(copySQL).WillReturnResult(sqlmock.NewResult(0, 0)) // flush
	mock.ExpectCommit()

	l := NewStreamLoader(db, store, StreamConfig{
		SongData:  "s3://udacity-dend/song_data",
		MaxErrors: 10,
	})
	require.NoError(t, l.LoadSongs(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStreamLoader_AbortsWhenBoundExceeded(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	var lines []string
	for i := 0; i < 11; i++ {
		lines = append(lines, "{malformed}")
	}
	store := &fakeStore{objects: map[string]string{
		"udacity-dend/song_data/part-0.json": strings.Join(lines, "\n"),
	}}

	copySQL := regexp.QuoteMeta(songsCopySQL())
	mock.ExpectBegin()
	mock.ExpectPrepare(copySQL)
	mock.ExpectRollback()

	l := NewStreamLoader(db, store, StreamConfig{
		SongData:  "s3://udacity-dend/song_data",
		MaxErrors: 10,
	})
	err = l.LoadSongs(context.Background())
	require.ErrorIs(t, err, ErrMaxErrorsExceeded)
	require.ErrorContains(t, err, "staging_songs")
}

func TestStreamLoader_UnreachableLocationIsFatal(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := &fakeStore{listErr: errors.New("NoSuchBucket")}

	l := NewStreamLoader(db, store, StreamConfig{SongData: "s3://missing/song_data", MaxErrors: 10})
	err = l.LoadSongs(context.Background())
	require.Error(t, err)
	require.ErrorContains(t, err, "NoSuchBucket")
}

func TestSplitLocation(t *testing.T) {
	bucket, prefix, err := splitLocation("s3://udacity-dend/log_data")
	require.NoError(t, err)
	require.Equal(t, "udacity-dend", bucket)
	require.Equal(t, "log_data", prefix)

	_, _, err = splitLocation("/local/path")
	require.Error(t, err)
}
