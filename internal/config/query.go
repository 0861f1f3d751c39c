package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DateLayout is the layout of query start and end dates.
const DateLayout = "2006-01-02"

// DefaultMaxCloudCover is used when a query does not set max_cc.
const DefaultMaxCloudCover = 90

// Query is a saved search/download request. It can be written as YAML:
//
//	collection: sentinel-2-l1c
//	start: 2024-06-01
//	end: 2024-06-30
//	aoi: basin.geojson
//	max_cc: 50
//	tile: T32TNS
//	dedup:
//	  orbits: [R065]
type Query struct {
	Collection    string      `yaml:"collection"`
	Start         string      `yaml:"start"`
	End           string      `yaml:"end"`
	AOI           string      `yaml:"aoi,omitempty"`
	MaxCloudCover *float64    `yaml:"max_cc,omitempty"`
	Tile          string      `yaml:"tile,omitempty"`
	Sensors       []string    `yaml:"sensors,omitempty"`
	PathRows      []string    `yaml:"pathrows,omitempty"`
	Tiers         []string    `yaml:"tiers,omitempty"`
	OutDir        string      `yaml:"outdir,omitempty"`
	Dedup         *QueryDedup `yaml:"dedup,omitempty"`
}

// QueryDedup overrides the DEDUP_* defaults for one query.
type QueryDedup struct {
	Baseline  *bool    `yaml:"baseline,omitempty"`
	Footprint *bool    `yaml:"footprint,omitempty"`
	Orbits    []string `yaml:"orbits,omitempty"`
	Tolerance float64  `yaml:"tolerance,omitempty"`
}

// LoadQuery reads a YAML query file.
func LoadQuery(path string) (*Query, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read query file: %w", err)
	}

	q, err := ParseQuery(data)
	if err != nil {
		return nil, fmt.Errorf("invalid query file %q: %w", path, err)
	}
	return q, nil
}

// ParseQuery decodes and validates a YAML query. Unknown keys are rejected.
func ParseQuery(data []byte) (*Query, error) {
	var q Query
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&q); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := q.Validate(); err != nil {
		return nil, err
	}
	return &q, nil
}

// Validate checks required fields and value ranges.
func (q *Query) Validate() error {
	if q.Collection == "" {
		return fmt.Errorf("collection is required")
	}

	start, err := q.StartTime()
	if err != nil {
		return err
	}
	end, err := q.EndTime()
	if err != nil {
		return err
	}
	if !end.After(start) {
		return fmt.Errorf("end date %s must be after start date %s", q.End, q.Start)
	}

	if cc := q.CloudCover(); cc < 0 || cc > 100 {
		return fmt.Errorf("max_cc must be between 0 and 100, got %g", cc)
	}

	if q.Dedup != nil && (q.Dedup.Tolerance < 0 || q.Dedup.Tolerance > 1) {
		return fmt.Errorf("dedup tolerance must be between 0 and 1, got %g", q.Dedup.Tolerance)
	}
	return nil
}

// StartTime parses Start as midnight UTC.
func (q *Query) StartTime() (time.Time, error) {
	t, err := time.Parse(DateLayout, q.Start)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid start date %q, want YYYY-MM-DD", q.Start)
	}
	return t, nil
}

// EndTime parses End as midnight UTC.
func (q *Query) EndTime() (time.Time, error) {
	t, err := time.Parse(DateLayout, q.End)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid end date %q, want YYYY-MM-DD", q.End)
	}
	return t, nil
}

// CloudCover returns max_cc or DefaultMaxCloudCover when unset.
func (q *Query) CloudCover() float64 {
	if q.MaxCloudCover == nil {
		return DefaultMaxCloudCover
	}
	return *q.MaxCloudCover
}

// ApplyDedup returns d with the query's overrides applied.
func (q *Query) ApplyDedup(d DedupConfig) DedupConfig {
	if q.Dedup == nil {
		return d
	}
	if q.Dedup.Baseline != nil {
		d.Baseline = *q.Dedup.Baseline
	}
	if q.Dedup.Footprint != nil {
		d.Footprint = *q.Dedup.Footprint
	}
	if len(q.Dedup.Orbits) > 0 {
		d.RelativeOrbits = q.Dedup.Orbits
	}
	if q.Dedup.Tolerance > 0 {
		d.Tolerance = q.Dedup.Tolerance
	}
	return d
}
