package remotedb

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Row is one result row keyed by column name. Text columns arrive as
// strings, DATE/DATETIME columns as time.Time.
type Row map[string]any

// ScanRows reads every row of rs into generic maps.
func ScanRows(rs *sql.Rows) ([]Row, error) {
	cols, err := rs.Columns()
	if err != nil {
		return nil, err
	}
	var out []Row
	for rs.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rs.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(Row, len(cols))
		for i, c := range cols {
			if b, ok := vals[i].([]byte); ok {
				row[c] = string(b)
				continue
			}
			row[c] = vals[i]
		}
		out = append(out, row)
	}
	return out, rs.Err()
}

// String renders the column as text. Missing and NULL columns, and empty
// strings, report ok=false so callers can fall through to the next candidate.
func (r Row) String(col string) (string, bool) {
	v, ok := r[col]
	if !ok || v == nil {
		return "", false
	}
	var s string
	switch x := v.(type) {
	case string:
		s = x
	case []byte:
		s = string(x)
	case time.Time:
		if x.IsZero() {
			return "", false
		}
		s = x.Format("2006-01-02 15:04:05")
	case int64:
		s = strconv.FormatInt(x, 10)
	case int:
		s = strconv.Itoa(x)
	case float64:
		s = strconv.FormatFloat(x, 'f', -1, 64)
	default:
		s = fmt.Sprint(x)
	}
	if strings.TrimSpace(s) == "" {
		return "", false
	}
	return s, true
}

// First returns the first column among cols with a usable value.
func (r Row) First(cols ...string) (string, bool) {
	for _, c := range cols {
		if s, ok := r.String(c); ok {
			return s, true
		}
	}
	return "", false
}

// Int parses the column as an integer, returning 0 when absent or malformed.
func (r Row) Int(col string) int64 {
	s, ok := r.String(col)
	if !ok {
		return 0
	}
	if i, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
		return int64(f)
	}
	return 0
}

// Time interprets the column as a calendar value. Strings in the common
// MySQL layouts are parsed in loc.
func (r Row) Time(col string, loc *time.Location) (time.Time, bool) {
	v, ok := r[col]
	if !ok || v == nil {
		return time.Time{}, false
	}
	if t, ok := v.(time.Time); ok {
		return t, !t.IsZero()
	}
	s, ok := r.String(col)
	if !ok {
		return time.Time{}, false
	}
	return ParseTime(s, loc)
}

var timeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"02-01-2006",
	"02/01/2006",
}

// ParseTime parses s with the layouts tenant databases commonly use.
// Zero dates ("0000-00-00") are rejected.
func ParseTime(s string, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.UTC
	}
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, "0000-00-00") {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
