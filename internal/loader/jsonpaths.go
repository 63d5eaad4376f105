package loader

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FieldPath maps one staging_events column to the JSON path that feeds
// it. The activity log uses an explicit mapping (rather than key-name
// matching) because its field names are camelCased and its order must
// line up with the column order of the staging relation.
type FieldPath struct {
	Column string
	Path   string
}

// EventFieldPaths is the declared path table for the activity-log
// stream, in staging_events column order with the identity column
// excluded. It is the in-process equivalent of the jsonpaths object
// referenced by the events COPY statement.
var EventFieldPaths = []FieldPath{
	{Column: "artist", Path: "$['artist']"},
	{Column: "auth", Path: "$['auth']"},
	{Column: "firstName", Path: "$['firstName']"},
	{Column: "gender", Path: "$['gender']"},
	{Column: "itemInSession", Path: "$['itemInSession']"},
	{Column: "lastName", Path: "$['lastName']"},
	{Column: "length", Path: "$['length']"},
	{Column: "level", Path: "$['level']"},
	{Column: "location", Path: "$['location']"},
	{Column: "method", Path: "$['method']"},
	{Column: "page", Path: "$['page']"},
	{Column: "registration", Path: "$['registration']"},
	{Column: "sessionId", Path: "$['sessionId']"},
	{Column: "song", Path: "$['song']"},
	{Column: "status", Path: "$['status']"},
	{Column: "ts", Path: "$['ts']"},
	{Column: "userAgent", Path: "$['userAgent']"},
	{Column: "userId", Path: "$['userId']"},
}

// JSONPathsDocument renders the jsonpaths mapping object in the format
// the warehouse COPY expects. Useful for publishing the mapping next to
// the data rather than maintaining it by hand.
func JSONPathsDocument() ([]byte, error) {
	paths := make([]string, len(EventFieldPaths))
	for i, fp := range EventFieldPaths {
		paths[i] = fp.Path
	}
	return json.MarshalIndent(map[string][]string{"jsonpaths": paths}, "", "    ")
}

// key extracts the JSON object key from a single-level bracket path.
func (fp FieldPath) key() (string, error) {
	p := fp.Path
	if !strings.HasPrefix(p, "$['") || !strings.HasSuffix(p, "']") {
		return "", fmt.Errorf("unsupported json path %q for column %s", p, fp.Column)
	}
	return p[len("$['") : len(p)-len("']")], nil
}
