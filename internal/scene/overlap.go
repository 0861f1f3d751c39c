package scene

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/peterstace/simplefeatures/geom"

	"github.com/vpremier/data-download/pkg/geojson"
)

// shape is a footprint prepared for pairwise overlap tests. Areas are planar
// in degree units; no projection is applied.
type shape struct {
	bound orb.Bound
	area  float64
	geom  geom.Geometry
}

func prepareShape(g *geojson.Geometry) (*shape, error) {
	if !g.IsAreal() {
		return nil, fmt.Errorf("%w: %s is not areal", ErrDegenerateFootprint, g.Type)
	}

	o, err := g.Orb()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDegenerateFootprint, err)
	}
	area := planar.Area(o)
	if area <= 0 || math.IsNaN(area) || math.IsInf(area, 0) {
		return nil, fmt.Errorf("%w: zero area", ErrDegenerateFootprint)
	}

	data, err := json.Marshal(g)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDegenerateFootprint, err)
	}
	sf, err := geom.UnmarshalGeoJSON(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDegenerateFootprint, err)
	}

	return &shape{bound: o.Bound(), area: area, geom: sf}, nil
}

// Overlap returns area(a ∩ b) / min(area(a), area(b)).
func Overlap(a, b *geojson.Geometry) (float64, error) {
	sa, err := prepareShape(a)
	if err != nil {
		return 0, err
	}
	sb, err := prepareShape(b)
	if err != nil {
		return 0, err
	}
	return overlapRatio(sa, sb)
}

func overlapRatio(a, b *shape) (float64, error) {
	if !a.bound.Intersects(b.bound) {
		return 0, nil
	}

	inter, err := geom.Intersection(a.geom, b.geom)
	if err != nil {
		return 0, fmt.Errorf("intersection failed: %w", err)
	}
	return inter.Area() / math.Min(a.area, b.area), nil
}
