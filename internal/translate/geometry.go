package translate

import (
	"encoding/json"
	"fmt"

	"github.com/vpremier/data-download/pkg/geojson"
)

// SearchBBox returns the [west, south, east, north] box the catalogues are
// queried with. A 3D bbox loses its elevations and an intersects geometry
// is reduced to its bounds. Nil means no spatial filter.
func SearchBBox(bbox []float64, intersects json.RawMessage) ([]float64, error) {
	switch {
	case len(bbox) == 6:
		return []float64{bbox[0], bbox[1], bbox[3], bbox[4]}, nil
	case len(bbox) == 4:
		return bbox, nil
	case len(bbox) != 0:
		return nil, fmt.Errorf("%w: bbox must have 4 or 6 values, got %d", ErrInvalidGeometry, len(bbox))
	}

	if len(intersects) == 0 {
		return nil, nil
	}
	bounds, err := geojson.ParseAOI(intersects)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidGeometry, err)
	}
	return bounds, nil
}
