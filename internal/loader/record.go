package loader

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/raahikwueto/Sparkify-Data-Warehouse/internal/schema"
)

// defaultVarcharWidth mirrors the warehouse's default VARCHAR length;
// the stream loader truncates to the declared width the same way the
// COPY TRUNCATECOLUMNS option would.
const defaultVarcharWidth = 256

// invalidCharReplacement substitutes for invalid multi-byte sequences
// in catalog text, matching ACCEPTINVCHARS AS '^'.
const invalidCharReplacement = "^"

// eventRow converts one parsed activity-log object into staging_events
// insert values, using the declared path table. Field order matches the
// relation's column order with the identity column excluded.
func eventRow(obj map[string]interface{}) ([]interface{}, error) {
	cols := insertColumns(schema.StagingEvents)
	vals := make([]interface{}, len(cols))
	for i, col := range cols {
		key, err := EventFieldPaths[i].key()
		if err != nil {
			return nil, err
		}
		v, err := coerce(col, obj[key], false)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", col.Name, err)
		}
		vals[i] = v
	}
	return vals, nil
}

// songRow converts one parsed catalog object into staging_songs insert
// values. Mapping is automatic: JSON keys match column names.
func songRow(obj map[string]interface{}) ([]interface{}, error) {
	cols := insertColumns(schema.StagingSongs)
	vals := make([]interface{}, len(cols))
	for i, col := range cols {
		v, err := coerce(col, obj[col.Name], true)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", col.Name, err)
		}
		vals[i] = v
	}
	return vals, nil
}

// insertColumns returns a relation's columns minus any identity column,
// which the warehouse populates itself.
func insertColumns(rel schema.Relation) []schema.Column {
	cols := make([]schema.Column, 0, len(rel.Columns))
	for _, col := range rel.Columns {
		if col.Identity {
			continue
		}
		cols = append(cols, col)
	}
	return cols
}

// coerce applies the load-time coercion rules to one field value:
// blank and empty strings become NULL, overlong text is truncated to
// the declared width, and (when sanitize is set) invalid UTF-8 is
// replaced rather than rejected. A NULL in a NOT NULL column is a
// malformed record, not a fatal error.
func coerce(col schema.Column, v interface{}, sanitize bool) (interface{}, error) {
	var out interface{}
	var err error

	switch typeClass(col.Type) {
	case classText:
		out, err = textValue(v, columnWidth(col.Type), sanitize)
	case classInt:
		out, err = intValue(v)
	case classFloat:
		out, err = floatValue(v)
	default:
		return nil, fmt.Errorf("unsupported staging column type %q", col.Type)
	}
	if err != nil {
		return nil, err
	}
	if out == nil && col.NotNull {
		return nil, fmt.Errorf("null value in non-null column")
	}
	return out, nil
}

type class int

const (
	classText class = iota
	classInt
	classFloat
	classUnknown
)

func typeClass(t string) class {
	switch {
	case strings.HasPrefix(t, "VARCHAR"):
		return classText
	case t == "INTEGER" || t == "BIGINT":
		return classInt
	case t == "DOUBLE PRECISION":
		return classFloat
	default:
		return classUnknown
	}
}

// columnWidth parses the declared width out of e.g. "VARCHAR(500)".
func columnWidth(t string) int {
	open := strings.IndexByte(t, '(')
	end := strings.IndexByte(t, ')')
	if open < 0 || end <= open {
		return defaultVarcharWidth
	}
	width, err := strconv.Atoi(t[open+1 : end])
	if err != nil {
		return defaultVarcharWidth
	}
	return width
}

func textValue(v interface{}, width int, sanitize bool) (interface{}, error) {
	switch s := v.(type) {
	case nil:
		return nil, nil
	case string:
		if strings.TrimSpace(s) == "" {
			return nil, nil
		}
		if sanitize {
			s = strings.ToValidUTF8(s, invalidCharReplacement)
		}
		if r := []rune(s); len(r) > width {
			s = string(r[:width])
		}
		return s, nil
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(s), nil
	default:
		return nil, fmt.Errorf("cannot store %T as text", v)
	}
}

func intValue(v interface{}) (interface{}, error) {
	switch n := v.(type) {
	case nil:
		return nil, nil
	case float64:
		if n != math.Trunc(n) {
			return nil, fmt.Errorf("non-integral value %v", n)
		}
		return int64(n), nil
	case string:
		if strings.TrimSpace(n) == "" {
			return nil, nil
		}
		i, err := strconv.ParseInt(n, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q", n)
		}
		return i, nil
	default:
		return nil, fmt.Errorf("cannot store %T as integer", v)
	}
}

func floatValue(v interface{}) (interface{}, error) {
	switch n := v.(type) {
	case nil:
		return nil, nil
	case float64:
		return n, nil
	case string:
		if strings.TrimSpace(n) == "" {
			return nil, nil
		}
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid float %q", n)
		}
		return f, nil
	default:
		return nil, fmt.Errorf("cannot store %T as float", v)
	}
}
