package scene

import (
	"log/slog"
)

// ResolveFootprints drops records whose footprint is practically the same as
// another record of the same acquisition.
//
// Within each identity-key group, members are compared pairwise in name
// order. When area(a ∩ b) / min(area(a), area(b)) >= tolerance the smaller
// footprint is marked for removal, the later one on equal areas. Marks only
// accumulate: a marked record still takes part in later comparisons.
//
// Records without a footprint are kept. Pairs whose overlap cannot be
// computed are treated as disjoint.
func ResolveFootprints(records []Record, tolerance float64, logger *slog.Logger) ([]Record, Report) {
	logger = loggerOrDefault(logger)
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	g := groupRecords(records, "footprint", logger)

	removed := make([]bool, len(records))
	report := Report{
		Stage:     "footprint",
		Before:    len(records),
		Malformed: g.malformed,
	}

	for _, key := range g.keys {
		members := g.groups[key]
		if len(members) == 1 {
			continue
		}

		shapes := make([]*shape, len(members))
		for m, idx := range members {
			rec := records[idx]
			if rec.Footprint == nil {
				report.MissingFootprints++
				logger.Warn("keeping duplicate candidate without footprint",
					slog.String("error", (&MissingFootprintError{Name: rec.Name, Key: key}).Error()),
				)
				continue
			}
			s, err := prepareShape(rec.Footprint)
			if err != nil {
				logger.Warn("footprint unusable for overlap test",
					slog.String("key", key),
					slog.String("name", rec.Name),
					slog.String("error", err.Error()),
				)
			}
			shapes[m] = s
		}

		groupRemoved := 0
		for i := 0; i < len(members); i++ {
			for j := i + 1; j < len(members); j++ {
				si, sj := shapes[i], shapes[j]
				if si == nil || sj == nil {
					if records[members[i]].Footprint != nil && records[members[j]].Footprint != nil {
						report.GeometryErrors++
					}
					continue
				}

				overlap, err := overlapRatio(si, sj)
				if err != nil {
					report.GeometryErrors++
					logger.Warn("overlap computation failed, keeping both",
						slog.String("key", key),
						slog.String("first", records[members[i]].Name),
						slog.String("second", records[members[j]].Name),
						slog.String("error", err.Error()),
					)
					continue
				}
				if overlap < tolerance {
					continue
				}

				drop := j
				if si.area < sj.area {
					drop = i
				}
				if !removed[members[drop]] {
					groupRemoved++
				}
				removed[members[drop]] = true

				logger.Debug("removing smaller footprint",
					slog.String("key", key),
					slog.Float64("overlap", overlap),
					slog.String("removed", records[members[drop]].Name),
				)
			}
		}

		if groupRemoved > 0 {
			logger.Info("footprint duplicates removed",
				slog.String("key", key),
				slog.Int("removed", groupRemoved),
				slog.Int("members", len(members)),
			)
		}
	}

	out := g.collect(func(idx int) bool { return !removed[idx] })
	report.After = len(out)
	report.Removed = len(records) - len(out) - g.malformed

	logger.Info("footprint filter applied",
		slog.Int("removed", report.Removed),
		slog.Int("remaining", report.After),
		slog.Int("total", report.Before),
	)
	return out, report
}
