package scene

import (
	"log/slog"
)

// FilterByOrbit keeps records whose relative orbit token (e.g. "R022") is in
// allowed. Matching is exact and case-sensitive. An empty allow-list returns
// records unchanged.
func FilterByOrbit(records []Record, allowed []string, logger *slog.Logger) []Record {
	out, _ := filterByOrbit(records, allowed, loggerOrDefault(logger))
	return out
}

func filterByOrbit(records []Record, allowed []string, logger *slog.Logger) ([]Record, Report) {
	report := Report{Stage: "orbit", Before: len(records)}
	if len(allowed) == 0 {
		report.After = len(records)
		return records, report
	}

	set := toSet(allowed)
	out := make([]Record, 0, len(records))
	for _, r := range records {
		id, err := ParseIdentifier(r.Name)
		if err != nil {
			report.Malformed++
			logger.Warn("skipping record with malformed name",
				slog.String("stage", "orbit"),
				slog.String("name", r.Name),
				slog.String("error", err.Error()),
			)
			continue
		}
		if _, ok := set[id.RelativeOrbit]; ok {
			out = append(out, r)
		}
	}

	report.After = len(out)
	report.Removed = len(records) - len(out) - report.Malformed
	logger.Info("orbit filter applied",
		slog.Int("removed", report.Removed),
		slog.Int("remaining", report.After),
		slog.Int("total", report.Before),
	)
	return out, report
}
