// Package geojson provides GeoJSON geometry types and utilities.
package geojson

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/paulmach/orb"
	orbjson "github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/encoding/wkt"
)

// WorldBBox covers the whole globe. It is used when no area of interest is given.
var WorldBBox = []float64{-180, -90, 180, 90}

// Geometry represents a GeoJSON geometry object.
type Geometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// Polygon returns the coordinates as a Polygon [][][lon, lat].
// Returns error if geometry is not a Polygon.
func (g *Geometry) Polygon() ([][][]float64, error) {
	if g.Type != "Polygon" {
		return nil, fmt.Errorf("geometry is not a Polygon, got %s", g.Type)
	}
	var coords [][][]float64
	if err := json.Unmarshal(g.Coordinates, &coords); err != nil {
		return nil, fmt.Errorf("failed to unmarshal Polygon coordinates: %w", err)
	}
	return coords, nil
}

// MultiPolygon returns the coordinates as a MultiPolygon [][][][lon, lat].
// Returns error if geometry is not a MultiPolygon.
func (g *Geometry) MultiPolygon() ([][][][]float64, error) {
	if g.Type != "MultiPolygon" {
		return nil, fmt.Errorf("geometry is not a MultiPolygon, got %s", g.Type)
	}
	var coords [][][][]float64
	if err := json.Unmarshal(g.Coordinates, &coords); err != nil {
		return nil, fmt.Errorf("failed to unmarshal MultiPolygon coordinates: %w", err)
	}
	return coords, nil
}

// IsAreal reports whether the geometry can enclose an area.
func (g *Geometry) IsAreal() bool {
	return g != nil && (g.Type == "Polygon" || g.Type == "MultiPolygon")
}

// Orb decodes the geometry into an orb.Geometry.
func (g *Geometry) Orb() (orb.Geometry, error) {
	if g == nil {
		return nil, fmt.Errorf("geometry is nil")
	}
	data, err := json.Marshal(g)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal geometry: %w", err)
	}
	decoded, err := orbjson.UnmarshalGeometry(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s geometry: %w", g.Type, err)
	}
	return decoded.Geometry(), nil
}

// FromOrb wraps an orb.Geometry as a GeoJSON geometry.
func FromOrb(o orb.Geometry) (*Geometry, error) {
	if o == nil {
		return nil, fmt.Errorf("geometry is nil")
	}
	data, err := json.Marshal(orbjson.NewGeometry(o))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal geometry: %w", err)
	}
	var g Geometry
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("failed to unmarshal geometry: %w", err)
	}
	return &g, nil
}

// BBox computes the bounding box of the geometry.
// Returns [west, south, east, north].
func (g *Geometry) BBox() ([]float64, error) {
	return ComputeBBox(g)
}

// ComputeBBox computes the bounding box of a geometry.
// Returns [west, south, east, north].
func ComputeBBox(g *Geometry) ([]float64, error) {
	o, err := g.Orb()
	if err != nil {
		return nil, err
	}
	switch o.(type) {
	case orb.Point, orb.MultiPoint, orb.LineString, orb.MultiLineString, orb.Polygon, orb.MultiPolygon:
	default:
		return nil, fmt.Errorf("unsupported geometry type: %s", g.Type)
	}
	if isEmptyGeometry(o) {
		return nil, fmt.Errorf("failed to compute bounding box: no valid coordinates found")
	}
	b := o.Bound()
	return []float64{b.Min[0], b.Min[1], b.Max[0], b.Max[1]}, nil
}

func isEmptyGeometry(o orb.Geometry) bool {
	switch v := o.(type) {
	case orb.MultiPoint:
		return len(v) == 0
	case orb.LineString:
		return len(v) == 0
	case orb.MultiLineString:
		return len(v) == 0
	case orb.Polygon:
		return len(v) == 0 || len(v[0]) == 0
	case orb.MultiPolygon:
		return len(v) == 0
	}
	return false
}

// NewPolygonFromBBox creates a polygon geometry from a bounding box.
// bbox should be [west, south, east, north].
func NewPolygonFromBBox(bbox []float64) (*Geometry, error) {
	if len(bbox) != 4 {
		return nil, fmt.Errorf("bbox must have 4 values [west, south, east, north], got %d", len(bbox))
	}
	if bbox[0] > bbox[2] || bbox[1] > bbox[3] {
		return nil, fmt.Errorf("bbox minimum exceeds maximum: %v", bbox)
	}

	bound := orb.Bound{
		Min: orb.Point{bbox[0], bbox[1]},
		Max: orb.Point{bbox[2], bbox[3]},
	}
	return FromOrb(bound.ToPolygon())
}

// ToWKT converts a GeoJSON geometry to WKT format.
// Supports Point, Polygon, and MultiPolygon.
func ToWKT(g *Geometry) (string, error) {
	if g == nil {
		return "", fmt.Errorf("geometry is nil")
	}

	switch g.Type {
	case "Point", "Polygon", "MultiPolygon":
	default:
		return "", fmt.Errorf("unsupported geometry type for WKT conversion: %s", g.Type)
	}

	o, err := g.Orb()
	if err != nil {
		return "", err
	}
	return wkt.MarshalString(o), nil
}

// FromWKT parses a WKT string into a GeoJSON geometry.
// The OData form geography'SRID=4326;POLYGON((...))' is accepted as well.
func FromWKT(s string) (*Geometry, error) {
	s = stripGeography(s)
	if s == "" {
		return nil, fmt.Errorf("empty WKT string")
	}

	o, err := wkt.Unmarshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to parse WKT: %w", err)
	}
	return FromOrb(o)
}

// stripGeography removes the geography'...' wrapper and any SRID prefix.
func stripGeography(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(strings.ToLower(s), "geography'") {
		s = strings.TrimSuffix(s[len("geography'"):], "'")
	}
	if strings.HasPrefix(strings.ToUpper(s), "SRID=") {
		if i := strings.Index(s, ";"); i >= 0 {
			s = s[i+1:]
		}
	}
	return strings.TrimSpace(s)
}
