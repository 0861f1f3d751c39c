// Package scene holds the satellite scene model and the Sentinel-2
// duplicate resolution pipeline.
package scene

import (
	"strings"
)

// sentinelFields is the number of underscore-separated fields in a
// Sentinel-2 product name.
const sentinelFields = 7

// Identifier is the parsed form of a Sentinel-2 product name:
//
//	S2A_MSIL1C_20240101T100000_N0500_R022_T32TPS_20231012T000000.SAFE
//
// Mission, ProductType, AcquisitionTime, Baseline, RelativeOrbit, Tile and
// CatalogTime in that order. CatalogTime has any .SAFE suffix removed.
type Identifier struct {
	Mission         string
	ProductType     string
	AcquisitionTime string
	Baseline        string
	RelativeOrbit   string
	Tile            string
	CatalogTime     string
}

// ParseIdentifier splits a product name into its fields.
// Extra trailing fields are ignored.
func ParseIdentifier(name string) (Identifier, error) {
	parts := strings.Split(name, "_")
	if len(parts) < sentinelFields {
		return Identifier{}, &MalformedNameError{Name: name, Fields: len(parts), Want: sentinelFields}
	}

	return Identifier{
		Mission:         parts[0],
		ProductType:     parts[1],
		AcquisitionTime: parts[2],
		Baseline:        parts[3],
		RelativeOrbit:   parts[4],
		Tile:            parts[5],
		CatalogTime:     strings.TrimSuffix(parts[6], ".SAFE"),
	}, nil
}

// Key returns the identity key shared by every catalogue record of the same
// acquisition. It leaves out the processing baseline and the catalogue time.
func (id Identifier) Key() string {
	return strings.Join([]string{
		id.Mission,
		id.ProductType,
		id.AcquisitionTime,
		id.RelativeOrbit,
		id.Tile,
	}, "_")
}

// TileID returns the MGRS tile without its leading "T".
func (id Identifier) TileID() string {
	return strings.TrimPrefix(id.Tile, "T")
}

// DeriveKey returns the identity key for a product name.
func DeriveKey(name string) (string, error) {
	id, err := ParseIdentifier(name)
	if err != nil {
		return "", err
	}
	return id.Key(), nil
}
