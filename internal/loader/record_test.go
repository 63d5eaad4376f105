package loader

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/raahikwueto/Sparkify-Data-Warehouse/internal/schema"
)

func TestEventFieldPaths_AlignWithStagingColumns(t *testing.T) {
	cols := insertColumns(schema.StagingEvents)
	require.Len(t, EventFieldPaths, len(cols))
	for i, col := range cols {
		require.Equal(t, col.Name, EventFieldPaths[i].Column, "path table order must match column order")
		key, err := EventFieldPaths[i].key()
		require.NoError(t, err)
		require.NotEmpty(t, key)
	}
}

func TestJSONPathsDocument(t *testing.T) {
	doc, err := JSONPathsDocument()
	require.NoError(t, err)
	require.Contains(t, string(doc), `"jsonpaths"`)
	require.Contains(t, string(doc), `"$['ts']"`)
}

func validEvent() map[string]interface{} {
	return map[string]interface{}{
		"artist":        "Infected Mushroom",
		"auth":          "Logged In",
		"firstName":     "Kaylee",
		"gender":        "F",
		"itemInSession": float64(6),
		"lastName":      "Summers",
		"length":        float64(440.2675),
		"level":         "free",
		"location":      "Phoenix-Mesa-Scottsdale, AZ",
		"method":        "PUT",
		"page":          "NextSong",
		"registration":  float64(1540344794796),
		"sessionId":     float64(139),
		"song":          "Becoming Insane",
		"status":        float64(200),
		"ts":            float64(1541107053796),
		"userAgent":     `"Mozilla/5.0"`,
		"userId":        float64(8),
	}
}

func TestEventRow_MapsEveryField(t *testing.T) {
	vals, err := eventRow(validEvent())
	require.NoError(t, err)
	require.Len(t, vals, len(insertColumns(schema.StagingEvents)))

	require.Equal(t, "Infected Mushroom", vals[0])
	require.Equal(t, int64(6), vals[4])              // itemInSession
	require.Equal(t, 440.2675, vals[6])              // length
	require.Equal(t, "1540344794796", vals[11])      // registration: numeric stored as text
	require.Equal(t, int64(139), vals[12])           // sessionId
	require.Equal(t, int64(1541107053796), vals[15]) // ts stays epoch millis in staging
	require.Equal(t, int64(8), vals[17])             // userId
}

func TestEventRow_BlankAndEmptyBecomeNull(t *testing.T) {
	obj := validEvent()
	obj["artist"] = ""
	obj["song"] = "   "
	delete(obj, "userId")

	vals, err := eventRow(obj)
	require.NoError(t, err)
	require.Nil(t, vals[0])  // artist
	require.Nil(t, vals[13]) // song
	require.Nil(t, vals[17]) // userId
}

func TestEventRow_MissingRequiredFieldIsMalformed(t *testing.T) {
	obj := validEvent()
	delete(obj, "ts")

	_, err := eventRow(obj)
	require.Error(t, err)
	require.ErrorContains(t, err, "ts")
}

func TestEventRow_TruncatesOverlongText(t *testing.T) {
	obj := validEvent()
	obj["artist"] = strings.Repeat("a", 300)

	vals, err := eventRow(obj)
	require.NoError(t, err)
	require.Equal(t, strings.Repeat("a", defaultVarcharWidth), vals[0])
}

func validSong() map[string]interface{} {
	return map[string]interface{}{
		"num_songs":        float64(1),
		"artist_id":        "ARJIE2Y1187B994AB7",
		"artist_latitude":  nil,
		"artist_longitude": nil,
		"artist_location":  "",
		"artist_name":      "Line Renaud",
		"song_id":          "SOUPIRU12A6D4FA1E1",
		"title":            "Der Kleine Dompfaff",
		"duration":         float64(152.92036),
		"year":             float64(0),
	}
}

func TestSongRow_AutoMapsByColumnName(t *testing.T) {
	vals, err := songRow(validSong())
	require.NoError(t, err)

	cols := insertColumns(schema.StagingSongs)
	require.Len(t, vals, len(cols))
	require.Equal(t, int64(1), vals[0])             // num_songs
	require.Equal(t, "ARJIE2Y1187B994AB7", vals[1]) // artist_id
	require.Nil(t, vals[2])                         // artist_latitude
	require.Nil(t, vals[4])                         // artist_location: empty string
	require.Equal(t, "SOUPIRU12A6D4FA1E1", vals[6]) // song_id
	require.Equal(t, 152.92036, vals[8])            // duration
	require.Equal(t, int64(0), vals[9])             // year
}

func TestSongRow_NullRequiredKeyIsMalformed(t *testing.T) {
	obj := validSong()
	obj["artist_id"] = nil

	_, err := songRow(obj)
	require.Error(t, err)
	require.ErrorContains(t, err, "artist_id")
}

func TestSongRow_ReplacesInvalidUTF8(t *testing.T) {
	obj := validSong()
	obj["artist_name"] = "Caf" + string([]byte{0xff}) + " Tacvba"

	vals, err := songRow(obj)
	require.NoError(t, err)
	require.Equal(t, "Caf^ Tacvba", vals[5])
}

func TestCoerce_TypeMismatchIsMalformed(t *testing.T) {
	obj := validSong()
	obj["duration"] = map[string]interface{}{"seconds": 152}

	_, err := songRow(obj)
	require.Error(t, err)
	require.ErrorContains(t, err, "duration")
}
