package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vpremier/data-download/internal/backend"
	"github.com/vpremier/data-download/internal/config"
	"github.com/vpremier/data-download/pkg/geojson"
)

// queryFlags are the search filters shared by search and download.
type queryFlags struct {
	file        string
	collection  string
	start       string
	end         string
	aoi         string
	maxCC       float64
	tile        string
	sensors     []string
	orbits      []string
	noBaseline  bool
	noFootprint bool
	tolerance   float64
}

func (f *queryFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVarP(&f.file, "query", "q", "", "YAML query file; flags given as well override its values")
	flags.StringVarP(&f.collection, "collection", "c", "", "collection id, e.g. sentinel-2-l1c, landsat-c2-l1, or a catalogue name such as S2MSI1C")
	flags.StringVar(&f.start, "start", "", "start date (YYYY-MM-DD)")
	flags.StringVar(&f.end, "end", "", "end date (YYYY-MM-DD), exclusive")
	flags.StringVar(&f.aoi, "aoi", "", "GeoJSON area of interest; its bounds are searched")
	flags.Float64Var(&f.maxCC, "max-cc", config.DefaultMaxCloudCover, "maximum cloud cover in percent")
	flags.StringVar(&f.tile, "tile", "", "Sentinel-2 MGRS tile, e.g. T32TNS")
	flags.StringSliceVar(&f.sensors, "sensors", nil, "Landsat sensors, e.g. LC08,LC09")
	flags.StringSliceVar(&f.orbits, "orbits", nil, "Sentinel-2 relative orbits to keep, e.g. R022,R065")
	flags.BoolVar(&f.noBaseline, "no-baseline-filter", false, "keep every processing baseline")
	flags.BoolVar(&f.noFootprint, "no-footprint-filter", false, "keep footprint duplicates")
	flags.Float64Var(&f.tolerance, "tolerance", 0, "footprint overlap ratio treated as a duplicate (default DEDUP_TOLERANCE)")
}

// query builds the query from the file, if any, and the flags that were set.
func (f *queryFlags) query(cmd *cobra.Command) (*config.Query, error) {
	q := &config.Query{}
	if f.file != "" {
		loaded, err := config.LoadQuery(f.file)
		if err != nil {
			return nil, err
		}
		q = loaded
	}

	changed := cmd.Flags().Changed
	if changed("collection") {
		q.Collection = f.collection
	}
	if changed("start") {
		q.Start = f.start
	}
	if changed("end") {
		q.End = f.end
	}
	if changed("aoi") {
		q.AOI = f.aoi
	}
	if changed("max-cc") {
		cc := f.maxCC
		q.MaxCloudCover = &cc
	}
	if changed("tile") {
		q.Tile = f.tile
	}
	if changed("sensors") {
		q.Sensors = upper(f.sensors)
	}

	if changed("orbits") || f.noBaseline || f.noFootprint || changed("tolerance") {
		if q.Dedup == nil {
			q.Dedup = &config.QueryDedup{}
		}
		if changed("orbits") {
			q.Dedup.Orbits = upper(f.orbits)
		}
		if f.noBaseline {
			q.Dedup.Baseline = new(bool)
		}
		if f.noFootprint {
			q.Dedup.Footprint = new(bool)
		}
		if changed("tolerance") {
			q.Dedup.Tolerance = f.tolerance
		}
	}

	if err := q.Validate(); err != nil {
		return nil, err
	}
	return q, nil
}

// searchParams resolves the collection and AOI of a query.
func (a *app) searchParams(q *config.Query) (*backend.SearchParams, error) {
	col := a.collections.Resolve(q.Collection)
	if col == nil {
		return nil, fmt.Errorf("unknown collection %q, known: %s", q.Collection, strings.Join(a.collections.IDs(), ", "))
	}

	var bbox []float64
	if q.AOI != "" {
		var err error
		if bbox, err = geojson.LoadAOI(q.AOI); err != nil {
			return nil, err
		}
	}

	start, err := q.StartTime()
	if err != nil {
		return nil, err
	}
	end, err := q.EndTime()
	if err != nil {
		return nil, err
	}

	return &backend.SearchParams{
		Collection:    col,
		BBox:          bbox,
		Start:         start,
		End:           end,
		MaxCloudCover: q.CloudCover(),
		Tile:          q.Tile,
		Sensors:       q.Sensors,
		Dedup:         q.ApplyDedup(a.cfg.Dedup).Options(),
	}, nil
}

func upper(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.ToUpper(strings.TrimSpace(v))
	}
	return out
}
