package scene

import (
	"log/slog"
	"time"

	"github.com/vpremier/data-download/pkg/geojson"
)

// DefaultTolerance is the overlap ratio at or above which two footprints of
// the same acquisition are treated as the same scene.
const DefaultTolerance = 0.999

// Record is one catalogue entry.
type Record struct {
	// Name is the product name, e.g. S2A_MSIL1C_20240101T100000_N0500_R022_T32TPS_20231012T000000.SAFE.
	Name string
	// ID is the catalogue identifier used to request the download.
	ID string
	// Footprint is the ground coverage in lon/lat. It may be nil.
	Footprint *geojson.Geometry
	// CloudCover is a percentage when the catalogue reports one.
	CloudCover *float64

	ContentStart time.Time
	Collection   string
	Size         int64
	Online       bool
}

// Options selects which dedup stages run. The zero value runs nothing.
type Options struct {
	FilterBaseline  bool
	FilterFootprint bool
	// RelativeOrbits is an allow-list of orbit tokens such as "R022".
	// Empty disables the orbit stage.
	RelativeOrbits []string
	// Tolerance is the inclusive overlap threshold. Zero means DefaultTolerance.
	Tolerance float64
}

// DefaultOptions enables both duplicate stages with the default tolerance.
func DefaultOptions() Options {
	return Options{
		FilterBaseline:  true,
		FilterFootprint: true,
		Tolerance:       DefaultTolerance,
	}
}

func (o Options) tolerance() float64 {
	if o.Tolerance <= 0 {
		return DefaultTolerance
	}
	return o.Tolerance
}

// Report counts what a single stage did.
type Report struct {
	Stage   string `json:"stage"`
	Before  int    `json:"before"`
	After   int    `json:"after"`
	Removed int    `json:"removed"`
	// Malformed records were skipped because their name could not be parsed.
	Malformed int `json:"malformed,omitempty"`
	// MultiBaselineKeys counts identity keys seen with more than one baseline.
	MultiBaselineKeys int `json:"multi_baseline_keys,omitempty"`
	// MissingFootprints counts duplicate candidates kept because they had no geometry.
	MissingFootprints int `json:"missing_footprints,omitempty"`
	// GeometryErrors counts pairs treated as disjoint because the overlap could not be computed.
	GeometryErrors int `json:"geometry_errors,omitempty"`
}

// Summary collects the reports of every stage that ran.
type Summary struct {
	Before int      `json:"before"`
	After  int      `json:"after"`
	Stages []Report `json:"stages"`
}

// Removed returns the total number of records dropped by the pipeline.
func (s Summary) Removed() int {
	return s.Before - s.After
}

func loggerOrDefault(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
