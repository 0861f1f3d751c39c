package stac

import (
	"fmt"
	"strings"
	"time"
)

// ValidateSearchRequest checks a search request before any catalogue is
// queried. A request that only carries a cursor is accepted as is.
func ValidateSearchRequest(req *SearchRequest) error {
	if req == nil {
		return fmt.Errorf("search request cannot be nil")
	}
	if req.Limit < 0 {
		return fmt.Errorf("limit must be non-negative, got %d", req.Limit)
	}
	if req.Cursor != "" {
		return nil
	}

	if len(req.Collections) != 1 || strings.TrimSpace(req.Collections[0]) == "" {
		return fmt.Errorf("exactly one collection must be given, got %d", len(req.Collections))
	}

	if req.DateTime == "" {
		return fmt.Errorf("datetime is required")
	}
	if err := ValidateDatetime(req.DateTime); err != nil {
		return fmt.Errorf("invalid datetime: %w", err)
	}

	if len(req.BBox) > 0 {
		if err := ValidateBBox(req.BBox); err != nil {
			return fmt.Errorf("invalid bbox: %w", err)
		}
	}
	if len(req.BBox) > 0 && len(req.Intersects) > 0 {
		return fmt.Errorf("cannot specify both bbox and intersects")
	}

	if cc := req.MaxCloudCover; cc != nil && (*cc < 0 || *cc > 100) {
		return fmt.Errorf("max_cc must be between 0 and 100, got %g", *cc)
	}
	if tol := req.Tolerance; tol != nil && (*tol <= 0 || *tol > 1) {
		return fmt.Errorf("tolerance must be in (0, 1], got %g", *tol)
	}

	for i, o := range req.Orbits {
		if strings.TrimSpace(o) == "" {
			return fmt.Errorf("orbit at index %d cannot be empty", i)
		}
	}
	for i, s := range req.Sensors {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("sensor at index %d cannot be empty", i)
		}
	}

	return nil
}

// ValidateBBox validates a 2D or 3D bounding box.
func ValidateBBox(bbox []float64) error {
	var west, south, east, north float64
	switch len(bbox) {
	case 4:
		west, south, east, north = bbox[0], bbox[1], bbox[2], bbox[3]
	case 6:
		west, south, east, north = bbox[0], bbox[1], bbox[3], bbox[4]
		if bbox[2] > bbox[5] {
			return fmt.Errorf("minimum elevation (%f) must be less than or equal to maximum elevation (%f)", bbox[2], bbox[5])
		}
	default:
		return fmt.Errorf("bbox must have 4 or 6 coordinates, got %d", len(bbox))
	}

	if west < -180 || west > 180 || east < -180 || east > 180 {
		return fmt.Errorf("longitudes must be between -180 and 180, got %f and %f", west, east)
	}
	if south < -90 || south > 90 || north < -90 || north > 90 {
		return fmt.Errorf("latitudes must be between -90 and 90, got %f and %f", south, north)
	}
	if west > east {
		return fmt.Errorf("west longitude (%f) must be less than or equal to east longitude (%f)", west, east)
	}
	if south > north {
		return fmt.Errorf("south latitude (%f) must be less than or equal to north latitude (%f)", south, north)
	}
	return nil
}

// ValidateDatetime checks a single instant or an interval. Both ends accept
// RFC 3339 or a plain date.
func ValidateDatetime(dt string) error {
	if dt == "" {
		return fmt.Errorf("datetime cannot be empty")
	}
	if dt == ".." || dt == "../.." {
		return nil
	}
	if !strings.Contains(dt, "/") {
		_, err := parseInstant(dt)
		return err
	}

	parts := strings.Split(dt, "/")
	if len(parts) != 2 {
		return fmt.Errorf("invalid datetime interval format, expected 'start/end', got: %s", dt)
	}

	var bounds [2]*time.Time
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" || p == ".." {
			continue
		}
		t, err := parseInstant(p)
		if err != nil {
			return err
		}
		bounds[i] = &t
	}
	if bounds[0] != nil && bounds[1] != nil && bounds[0].After(*bounds[1]) {
		return fmt.Errorf("start datetime (%s) must be before or equal to end datetime (%s)",
			bounds[0].Format(time.RFC3339), bounds[1].Format(time.RFC3339))
	}
	return nil
}

func parseInstant(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid datetime %q, expected RFC 3339 or YYYY-MM-DD", s)
	}
	return t, nil
}
