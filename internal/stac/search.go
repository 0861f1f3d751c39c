package stac

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// SortbyItem represents a single sort criterion
type SortbyItem struct {
	Field     string `json:"field"`
	Direction string `json:"direction"` // "asc" or "desc"
}

// SearchRequest is a /search request. Besides the core STAC parameters it
// carries the catalogue filters (cloud cover, tile, sensors) and the switches
// of the duplicate-scene pipeline.
type SearchRequest struct {
	BBox        []float64       `json:"bbox,omitempty"`
	DateTime    string          `json:"datetime,omitempty"`
	Intersects  json.RawMessage `json:"intersects,omitempty"`
	Collections []string        `json:"collections,omitempty"`
	Limit       int             `json:"limit,omitempty"`

	// Cursor references a result set kept by the server from an earlier page.
	Cursor string `json:"cursor,omitempty"`

	Sortby []SortbyItem `json:"sortby,omitempty"`

	// MaxCloudCover is in percent.
	MaxCloudCover *float64 `json:"max_cc,omitempty"`
	Tile          string   `json:"tile,omitempty"`
	Sensors       []string `json:"sensors,omitempty"`

	// Dedup switches. Nil leaves the server default in place.
	Orbits          []string `json:"orbits,omitempty"`
	FilterBaseline  *bool    `json:"filter_baseline,omitempty"`
	FilterFootprint *bool    `json:"filter_footprint,omitempty"`
	Tolerance       *float64 `json:"tolerance,omitempty"`
}

// ParseSearchRequest parses a search request from GET query parameters.
func ParseSearchRequest(r *http.Request) (*SearchRequest, error) {
	query := r.URL.Query()
	req := &SearchRequest{
		DateTime: query.Get("datetime"),
		Cursor:   query.Get("cursor"),
		Tile:     strings.TrimSpace(query.Get("tile")),
	}

	if s := query.Get("bbox"); s != "" {
		bbox, err := parseFloatList(s)
		if err != nil {
			return nil, fmt.Errorf("invalid bbox: %w", err)
		}
		if len(bbox) != 4 && len(bbox) != 6 {
			return nil, fmt.Errorf("bbox must have 4 or 6 coordinates, got %d", len(bbox))
		}
		req.BBox = bbox
	}

	if s := query.Get("intersects"); s != "" {
		if !json.Valid([]byte(s)) {
			return nil, fmt.Errorf("intersects must be valid GeoJSON geometry")
		}
		req.Intersects = json.RawMessage(s)
	}

	req.Collections = splitList(query.Get("collections"))
	req.Sensors = splitList(query.Get("sensors"))
	req.Orbits = splitList(query.Get("orbits"))

	if s := query.Get("limit"); s != "" {
		limit, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("invalid limit parameter: %w", err)
		}
		if limit < 0 {
			return nil, fmt.Errorf("limit must be non-negative, got %d", limit)
		}
		req.Limit = limit
	}

	if s := query.Get("sortby"); s != "" {
		items, err := parseSortbyParam(s)
		if err != nil {
			return nil, fmt.Errorf("invalid sortby parameter: %w", err)
		}
		req.Sortby = items
	}

	var err error
	if req.MaxCloudCover, err = optionalFloat(query, "max_cc"); err != nil {
		return nil, err
	}
	if req.Tolerance, err = optionalFloat(query, "tolerance"); err != nil {
		return nil, err
	}
	if req.FilterBaseline, err = optionalBool(query, "filter_baseline"); err != nil {
		return nil, err
	}
	if req.FilterFootprint, err = optionalBool(query, "filter_footprint"); err != nil {
		return nil, err
	}

	return req, nil
}

// parseSortbyParam parses the sortby query parameter.
// Format: sortby=+datetime,-eo:cloud_cover (+ or no prefix is asc, - is desc)
func parseSortbyParam(sortbyStr string) ([]SortbyItem, error) {
	if sortbyStr == "" {
		return nil, nil
	}

	var items []SortbyItem
	for _, field := range strings.Split(sortbyStr, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}

		item := SortbyItem{Field: field, Direction: "asc"}
		switch field[0] {
		case '+':
			item.Field = field[1:]
		case '-':
			item.Field = field[1:]
			item.Direction = "desc"
		}
		if item.Field == "" {
			return nil, fmt.Errorf("empty field name in sortby")
		}
		items = append(items, item)
	}

	return items, nil
}

// ParseSearchRequestBody parses a search request from a POST JSON body.
func ParseSearchRequestBody(body io.Reader) (*SearchRequest, error) {
	var req SearchRequest

	decoder := json.NewDecoder(body)
	if err := decoder.Decode(&req); err != nil {
		return nil, fmt.Errorf("failed to parse search request body: %w", err)
	}

	return &req, nil
}

// ToQueryParams converts a SearchRequest to URL query parameters. Paging
// links of POST searches use it to repeat the original request.
func (req *SearchRequest) ToQueryParams() url.Values {
	params := url.Values{}

	if len(req.BBox) > 0 {
		params.Set("bbox", formatFloatList(req.BBox))
	}
	if req.DateTime != "" {
		params.Set("datetime", req.DateTime)
	}
	if len(req.Intersects) > 0 {
		params.Set("intersects", string(req.Intersects))
	}
	if len(req.Collections) > 0 {
		params.Set("collections", strings.Join(req.Collections, ","))
	}
	if len(req.Sortby) > 0 {
		fields := make([]string, 0, len(req.Sortby))
		for _, item := range req.Sortby {
			prefix := "+"
			if item.Direction == "desc" {
				prefix = "-"
			}
			fields = append(fields, prefix+item.Field)
		}
		params.Set("sortby", strings.Join(fields, ","))
	}
	if req.MaxCloudCover != nil {
		params.Set("max_cc", strconv.FormatFloat(*req.MaxCloudCover, 'f', -1, 64))
	}
	if req.Tile != "" {
		params.Set("tile", req.Tile)
	}
	if len(req.Sensors) > 0 {
		params.Set("sensors", strings.Join(req.Sensors, ","))
	}
	if len(req.Orbits) > 0 {
		params.Set("orbits", strings.Join(req.Orbits, ","))
	}
	if req.FilterBaseline != nil {
		params.Set("filter_baseline", strconv.FormatBool(*req.FilterBaseline))
	}
	if req.FilterFootprint != nil {
		params.Set("filter_footprint", strconv.FormatBool(*req.FilterFootprint))
	}
	if req.Tolerance != nil {
		params.Set("tolerance", strconv.FormatFloat(*req.Tolerance, 'f', -1, 64))
	}

	return params
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.TrimSpace(p))
	}
	return out
}

func parseFloatList(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	out := make([]float64, len(parts))
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid coordinate at position %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

func formatFloatList(values []float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strings.Join(parts, ",")
}

func optionalFloat(q url.Values, name string) (*float64, error) {
	s := q.Get(name)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s parameter: %w", name, err)
	}
	return &v, nil
}

func optionalBool(q url.Values, name string) (*bool, error) {
	s := q.Get(name)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return nil, fmt.Errorf("invalid %s parameter: %w", name, err)
	}
	return &v, nil
}
