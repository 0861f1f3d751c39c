package geojson

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/paulmach/orb"
	orbjson "github.com/paulmach/orb/geojson"
)

// LoadAOI reads an area of interest from a GeoJSON file and returns the
// total bounds of everything in it as [west, south, east, north].
// The file may hold a FeatureCollection, a Feature or a bare geometry.
func LoadAOI(path string) ([]float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read AOI file: %w", err)
	}

	bbox, err := ParseAOI(data)
	if err != nil {
		return nil, fmt.Errorf("invalid AOI file %q: %w", path, err)
	}
	return bbox, nil
}

// ParseAOI returns the total bounds of a GeoJSON document.
func ParseAOI(data []byte) ([]float64, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("failed to parse GeoJSON: %w", err)
	}

	var geometries []orb.Geometry
	switch head.Type {
	case "FeatureCollection":
		fc, err := orbjson.UnmarshalFeatureCollection(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse FeatureCollection: %w", err)
		}
		for _, f := range fc.Features {
			if f.Geometry != nil {
				geometries = append(geometries, f.Geometry)
			}
		}
	case "Feature":
		f, err := orbjson.UnmarshalFeature(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse Feature: %w", err)
		}
		if f.Geometry != nil {
			geometries = append(geometries, f.Geometry)
		}
	case "":
		return nil, fmt.Errorf("GeoJSON object has no type")
	default:
		g, err := orbjson.UnmarshalGeometry(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", head.Type, err)
		}
		geometries = append(geometries, g.Geometry())
	}

	if len(geometries) == 0 {
		return nil, fmt.Errorf("no geometries found")
	}

	bound := geometries[0].Bound()
	for _, g := range geometries[1:] {
		bound = bound.Union(g.Bound())
	}
	return []float64{bound.Min[0], bound.Min[1], bound.Max[0], bound.Max[1]}, nil
}
