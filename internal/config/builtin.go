package config

var (
	esa = Provider{
		Name:  "ESA",
		Roles: []string{"producer", "licensor"},
		URL:   "https://dataspace.copernicus.eu",
	}
	usgs = Provider{
		Name:  "USGS",
		Roles: []string{"producer", "licensor", "host"},
		URL:   "https://m2m.cr.usgs.gov",
	}
	cdseHost = Provider{
		Name:  "Copernicus Data Space Ecosystem",
		Roles: []string{"host"},
		URL:   "https://dataspace.copernicus.eu",
	}
)

func globalExtent(start string, end any) Extent {
	return Extent{
		Spatial:  SpatialExtent{BBox: [][]float64{{-180, -90, 180, 90}}},
		Temporal: TemporalExtent{Interval: [][]any{{start, end}}},
	}
}

// builtinCollections are the collections the tool knows without any
// collections directory.
func builtinCollections() []*CollectionConfig {
	return []*CollectionConfig{
		{
			ID:          "sentinel-2-l1c",
			Title:       "Sentinel-2 Level-1C",
			Description: "Sentinel-2 MSI top-of-atmosphere reflectance, deduplicated across processing baselines.",
			Source:      SourceCDSE,
			CDSE:        &CDSEMapping{ProductType: "S2MSI1C"},
			Deduplicate: true,
			License:     "proprietary",
			Providers:   []Provider{esa, cdseHost},
			Extent:      globalExtent("2015-06-27T00:00:00Z", nil),
			Summaries: map[string]any{
				"platform":      []string{"sentinel-2a", "sentinel-2b", "sentinel-2c"},
				"constellation": []string{"sentinel-2"},
			},
		},
		{
			ID:          "sentinel-2-l2a",
			Title:       "Sentinel-2 Level-2A",
			Description: "Sentinel-2 MSI bottom-of-atmosphere reflectance, deduplicated across processing baselines.",
			Source:      SourceCDSE,
			CDSE:        &CDSEMapping{ProductType: "S2MSI2A"},
			Deduplicate: true,
			License:     "proprietary",
			Providers:   []Provider{esa, cdseHost},
			Extent:      globalExtent("2017-03-28T00:00:00Z", nil),
			Summaries: map[string]any{
				"platform":      []string{"sentinel-2a", "sentinel-2b", "sentinel-2c"},
				"constellation": []string{"sentinel-2"},
			},
		},
		{
			ID:          "sentinel-3-syn",
			Title:       "Sentinel-3 SYNERGY Level-2",
			Description: "Sentinel-3 OLCI/SLSTR synergy surface reflectance.",
			Source:      SourceCDSE,
			CDSE:        &CDSEMapping{ProductType: "SY_2_SYN___"},
			License:     "proprietary",
			Providers:   []Provider{esa, cdseHost},
			Extent:      globalExtent("2018-10-01T00:00:00Z", nil),
		},
		{
			ID:          "landsat-5-esa",
			Title:       "Landsat-5 (ESA archive)",
			Description: "Landsat-5 TM scenes from the ESA archive hosted on CDSE.",
			Source:      SourceCDSE,
			CDSE:        &CDSEMapping{CollectionName: "LANDSAT-5"},
			License:     "proprietary",
			Providers:   []Provider{usgs, cdseHost},
			Extent:      globalExtent("1984-03-16T00:00:00Z", "2011-11-07T23:59:59Z"),
		},
		{
			ID:          "landsat-7-esa",
			Title:       "Landsat-7 (ESA archive)",
			Description: "Landsat-7 ETM+ scenes from the ESA archive hosted on CDSE.",
			Source:      SourceCDSE,
			CDSE:        &CDSEMapping{CollectionName: "LANDSAT-7"},
			License:     "proprietary",
			Providers:   []Provider{usgs, cdseHost},
			Extent:      globalExtent("1999-04-15T00:00:00Z", nil),
		},
		{
			ID:          "landsat-8-esa",
			Title:       "Landsat-8 (ESA archive)",
			Description: "Landsat-8 OLI/TIRS scenes from the ESA archive hosted on CDSE.",
			Source:      SourceCDSE,
			CDSE:        &CDSEMapping{CollectionName: "LANDSAT-8-ESA"},
			License:     "proprietary",
			Providers:   []Provider{usgs, cdseHost},
			Extent:      globalExtent("2013-03-18T00:00:00Z", nil),
		},
		{
			ID:          "landsat-c2-l1",
			Title:       "Landsat Collection 2 Level-1",
			Description: "Landsat 5, 7, 8 and 9 Collection 2 Level-1 scenes from USGS EROS.",
			Source:      SourceM2M,
			M2M:         &M2MMapping{Sensors: []string{"LT05", "LE07", "LC08", "LC09"}},
			License:     "PDDL-1.0",
			Providers:   []Provider{usgs},
			Extent:      globalExtent("1984-03-01T00:00:00Z", nil),
			Summaries: map[string]any{
				"platform": []string{"landsat-5", "landsat-7", "landsat-8", "landsat-9"},
			},
		},
	}
}

// DefaultCollections returns a registry holding the built-in collections.
func DefaultCollections() *CollectionRegistry {
	registry := NewCollectionRegistry()
	for _, c := range builtinCollections() {
		if err := registry.Add(c); err != nil {
			panic(err)
		}
	}
	return registry
}
