package scene

import (
	"log/slog"
)

// Deduplicate runs the enabled stages in order: baseline resolution,
// footprint resolution, then the orbit allow-list. The input slice is not
// modified.
func Deduplicate(records []Record, opts Options, logger *slog.Logger) ([]Record, Summary) {
	logger = loggerOrDefault(logger)

	summary := Summary{Before: len(records)}
	out := records

	if opts.FilterBaseline {
		var r Report
		out, r = ResolveBaselines(out, logger)
		summary.Stages = append(summary.Stages, r)
	}
	if opts.FilterFootprint {
		var r Report
		out, r = ResolveFootprints(out, opts.tolerance(), logger)
		summary.Stages = append(summary.Stages, r)
	}
	if len(opts.RelativeOrbits) > 0 {
		var r Report
		out, r = filterByOrbit(out, opts.RelativeOrbits, logger)
		summary.Stages = append(summary.Stages, r)
	}

	summary.After = len(out)
	return out, summary
}
