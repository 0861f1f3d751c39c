// Package backend provides an abstraction layer over the two catalogues
// (CDSE and USGS M2M).
package backend

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/vpremier/data-download/internal/archive"
	"github.com/vpremier/data-download/internal/config"
	"github.com/vpremier/data-download/internal/scene"
)

// SearchBackend defines the interface for catalogue backends.
type SearchBackend interface {
	// Search runs a query and returns catalogue records, deduplicated when
	// the collection asks for it.
	Search(ctx context.Context, params *SearchParams) (*SearchResult, error)

	// Download fetches the archives of records into outDir.
	Download(ctx context.Context, records []scene.Record, outDir string) (archive.Result, error)

	// Name returns the backend name ("cdse" or "m2m").
	Name() string
}

// SearchParams contains backend-agnostic query parameters.
type SearchParams struct {
	Collection *config.CollectionConfig

	// BBox is [west, south, east, north]. Nil means the whole globe.
	BBox []float64

	Start time.Time
	End   time.Time

	// MaxCloudCover is in percent.
	MaxCloudCover float64

	// Tile restricts Sentinel results to one MGRS tile, e.g. T32TNS.
	Tile string

	// Sensors restricts Landsat results, e.g. LC08. Empty means all the
	// collection offers.
	Sensors []string

	Dedup scene.Options
}

// Validate checks the parameters every backend needs.
func (p *SearchParams) Validate() error {
	if p.Collection == nil {
		return fmt.Errorf("collection is required")
	}
	if p.BBox != nil && len(p.BBox) != 4 {
		return fmt.Errorf("bbox must have 4 values, got %d", len(p.BBox))
	}
	if !p.End.After(p.Start) {
		return fmt.Errorf("end must be after start")
	}
	return nil
}

// SearchResult contains the results of a search query.
type SearchResult struct {
	Collection string
	Records    []scene.Record

	// Summary is set when the dedup pipeline ran.
	Summary *scene.Summary

	// Tiles lists the MGRS tiles or WRS-2 path/rows in first-seen order.
	Tiles []string

	// Sensors lists the Landsat sensors found in first-seen order.
	Sensors []string
}

// Set picks the backend for a collection by its source.
type Set map[string]SearchBackend

// For returns the backend serving the collection.
func (s Set) For(c *config.CollectionConfig) (SearchBackend, error) {
	b, ok := s[c.Source]
	if !ok || b == nil {
		return nil, fmt.Errorf("no backend configured for source %q", c.Source)
	}
	return b, nil
}

// appendUnique appends v when it is non-empty and not yet in list.
func appendUnique(list []string, v string) []string {
	if v == "" || slices.Contains(list, v) {
		return list
	}
	return append(list, v)
}
