package translate

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/planetlabs/go-stac"

	"github.com/vpremier/data-download/internal/scene"
	"github.com/vpremier/data-download/pkg/geojson"
)

// RecordToItem converts a catalogue record to a STAC Item. downloadHref is
// the archive URL, empty when the catalogue has no direct link.
func RecordToItem(rec *scene.Record, collectionID, baseURL, stacVersion, downloadHref string) (*stac.Item, error) {
	if rec == nil {
		return nil, fmt.Errorf("record is nil")
	}
	if rec.Name == "" {
		return nil, fmt.Errorf("record has no name")
	}

	item := &stac.Item{
		Version:    stacVersion,
		Id:         strings.TrimSuffix(rec.Name, ".SAFE"),
		Collection: collectionID,
		Properties: make(map[string]any),
		Assets:     make(map[string]*stac.Asset),
		Links:      make([]*stac.Link, 0),
	}

	if rec.Footprint != nil {
		item.Geometry = rec.Footprint
		if bbox, err := geojson.ComputeBBox(rec.Footprint); err == nil {
			item.Bbox = bbox
		}
	}

	if rec.CloudCover != nil {
		item.Properties["eo:cloud_cover"] = *rec.CloudCover
	}

	acquired := ""
	switch {
	case strings.HasPrefix(rec.Name, "S2"):
		if id, err := scene.ParseIdentifier(rec.Name); err == nil {
			addSentinel2Properties(item, id, rec.Name)
			acquired = id.AcquisitionTime
		}
	case strings.HasPrefix(rec.Name, "S3"):
		item.Properties["platform"] = sentinelPlatform(rec.Name[:3])
		item.Properties["constellation"] = "sentinel-3"
		item.Properties["instruments"] = []string{"olci", "slstr"}
	default:
		if id, ok := landsatID(rec.Name); ok {
			addLandsatProperties(item, id)
			acquired = id.AcquisitionDate
		}
	}

	switch {
	case !rec.ContentStart.IsZero():
		item.Properties["datetime"] = FormatSTACTime(rec.ContentStart)
	case acquired != "":
		t, err := ParseCatalogTime(acquired)
		if err != nil {
			return nil, fmt.Errorf("failed to parse acquisition time: %w", err)
		}
		item.Properties["datetime"] = FormatSTACTime(t)
	default:
		return nil, fmt.Errorf("record %s has no acquisition time", rec.Name)
	}

	addAssets(item, downloadHref)
	addLinks(item, collectionID, baseURL)

	return item, nil
}

func addSentinel2Properties(item *stac.Item, id scene.Identifier, productURI string) {
	item.Properties["platform"] = sentinelPlatform(id.Mission)
	item.Properties["constellation"] = "sentinel-2"
	item.Properties["instruments"] = []string{"msi"}

	if level := strings.TrimPrefix(id.ProductType, "MSI"); level != id.ProductType {
		item.Properties["processing:level"] = level
	}
	if orbit, err := strconv.Atoi(strings.TrimPrefix(id.RelativeOrbit, "R")); err == nil {
		item.Properties["sat:relative_orbit"] = orbit
	}

	tile := id.TileID()
	item.Properties["s2:mgrs_tile"] = tile
	item.Properties["grid:code"] = "MGRS-" + tile
	item.Properties["s2:processing_baseline"] = formatBaseline(id.Baseline)
	item.Properties["s2:product_uri"] = productURI
}

// landsatID parses a Collection 2 display id. ESA archive names also have
// seven fields, so the sensor and path/row shapes are checked too.
func landsatID(name string) (scene.LandsatID, bool) {
	id, err := scene.ParseLandsatID(name)
	if err != nil || len(id.Sensor) != 4 || id.Sensor[0] != 'L' || id.Path() == "" || len(id.Level) < 2 {
		return scene.LandsatID{}, false
	}
	if _, err := strconv.Atoi(id.PathRow); err != nil {
		return scene.LandsatID{}, false
	}
	return id, true
}

func addLandsatProperties(item *stac.Item, id scene.LandsatID) {
	if n, err := strconv.Atoi(id.Sensor[2:]); err == nil {
		item.Properties["platform"] = fmt.Sprintf("landsat-%d", n)
	}
	item.Properties["constellation"] = "landsat"
	if instruments := landsatInstruments(id.Sensor); instruments != nil {
		item.Properties["instruments"] = instruments
	}

	item.Properties["processing:level"] = id.Level[:2]
	item.Properties["landsat:correction"] = id.Level
	item.Properties["landsat:wrs_path"] = id.Path()
	item.Properties["landsat:wrs_row"] = id.Row()
	item.Properties["landsat:collection_number"] = id.Collection
	item.Properties["landsat:collection_category"] = id.Tier
	item.Properties["grid:code"] = "WRS2-" + id.PathRow
}

// sentinelPlatform turns a mission code like S2B into sentinel-2b.
func sentinelPlatform(mission string) string {
	if len(mission) < 3 {
		return strings.ToLower(mission)
	}
	return "sentinel-" + strings.ToLower(mission[1:])
}

// landsatInstruments maps the sensor letter of a Landsat id.
func landsatInstruments(sensor string) []string {
	switch sensor[1] {
	case 'C':
		return []string{"oli", "tirs"}
	case 'O':
		return []string{"oli"}
	case 'E':
		return []string{"etm+"}
	case 'T':
		return []string{"tm"}
	case 'M':
		return []string{"mss"}
	}
	return nil
}

// formatBaseline turns N0510 into 05.10. Anything else is returned as is.
func formatBaseline(b string) string {
	if len(b) != 5 || b[0] != 'N' {
		return b
	}
	return b[1:3] + "." + b[3:]
}

// addAssets links the zipped product served by the download service.
func addAssets(item *stac.Item, href string) {
	if href == "" {
		return
	}
	item.Assets["product"] = &stac.Asset{
		Href:  href,
		Title: "Product archive",
		Type:  "application/zip",
		Roles: []string{"data"},
	}
}

// addLinks adds the collection and root links.
func addLinks(item *stac.Item, collectionID, baseURL string) {
	if baseURL == "" {
		return
	}

	collectionHref := fmt.Sprintf("%s/collections/%s", baseURL, collectionID)
	item.Links = append(item.Links,
		&stac.Link{Rel: "parent", Href: collectionHref, Type: "application/json"},
		&stac.Link{Rel: "collection", Href: collectionHref, Type: "application/json"},
		&stac.Link{Rel: "root", Href: baseURL, Type: "application/json"},
	)
}

// MarshalItem marshals a STAC item to JSON.
func MarshalItem(item *stac.Item) ([]byte, error) {
	return json.Marshal(item)
}
