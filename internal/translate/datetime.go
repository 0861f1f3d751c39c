package translate

import (
	"fmt"
	"strings"
	"time"
)

// Timestamp layouts found in product names and catalogue responses.
var catalogTimeFormats = []string{
	"20060102T150405",        // Sentinel product name fields
	"20060102",               // Landsat display id dates
	"2006-01-02 15:04:05-07", // M2M temporal coverage
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	time.DateOnly,
}

// ParseCatalogTime parses a timestamp from a product name or a catalogue
// response. The result is in UTC.
func ParseCatalogTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty time string")
	}

	var lastErr error
	for _, format := range catalogTimeFormats {
		t, err := time.Parse(format, s)
		if err == nil {
			return t.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, fmt.Errorf("failed to parse time %q: %w", s, lastErr)
}

// FormatSTACTime formats a time.Time as RFC3339 in UTC.
func FormatSTACTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// ParseDateTimeInterval parses a STAC datetime parameter which can be:
//   - a single instant, "2023-06-15T14:00:00Z" or "2023-06-15"
//   - an open interval, "../2023-06-15" or "2023-06-15T14:00:00Z/.."
//   - a closed interval, "2023-06-01/2023-06-30"
//
// Either bound may be nil. A single instant is returned as both bounds.
func ParseDateTimeInterval(datetime string) (*time.Time, *time.Time, error) {
	datetime = strings.TrimSpace(datetime)
	if datetime == "" {
		return nil, nil, nil
	}

	if !strings.Contains(datetime, "/") {
		t, err := parseBound(datetime)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid datetime format: %w", err)
		}
		return &t, &t, nil
	}

	parts := strings.Split(datetime, "/")
	if len(parts) != 2 {
		return nil, nil, fmt.Errorf("invalid datetime interval format: must be 'start/end'")
	}

	var bounds [2]*time.Time
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" || p == ".." {
			continue
		}
		t, err := parseBound(p)
		if err != nil {
			which := [2]string{"start", "end"}[i]
			return nil, nil, fmt.Errorf("invalid %s datetime: %w", which, err)
		}
		bounds[i] = &t
	}
	return bounds[0], bounds[1], nil
}

// SearchWindow turns a datetime parameter into the [start, end) window the
// catalogues are queried with. A plain date covers the whole day and a
// missing end means now. A start is required.
func SearchWindow(datetime string, now time.Time) (time.Time, time.Time, error) {
	start, end, err := ParseDateTimeInterval(datetime)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if start == nil {
		return time.Time{}, time.Time{}, fmt.Errorf("datetime must have a start")
	}

	from := *start
	var to time.Time
	switch {
	case end == nil:
		to = now.UTC()
	case !strings.Contains(datetime, "/") && isDateOnly(datetime):
		to = from.AddDate(0, 0, 1)
	case end.Equal(from):
		to = from.Add(time.Second)
	default:
		to = *end
	}

	if !to.After(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("datetime end %s must be after start %s", FormatSTACTime(to), FormatSTACTime(from))
	}
	return from, to, nil
}

func parseBound(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	return time.Parse(time.DateOnly, s)
}

func isDateOnly(s string) bool {
	_, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	return err == nil
}
