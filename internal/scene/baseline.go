package scene

import (
	"log/slog"
	"sort"
)

// ResolveBaselines collapses reprocessed versions of the same acquisition.
//
// Records are grouped by identity key. Within a group only the highest
// processing baseline survives; baselines compare as strings, which matches
// numeric order for the fixed-width N#### form. Among records sharing that
// baseline, one is kept per catalogue time, the last by name.
// Records with malformed names are skipped.
func ResolveBaselines(records []Record, logger *slog.Logger) ([]Record, Report) {
	logger = loggerOrDefault(logger)
	g := groupRecords(records, "baseline", logger)

	keep := make([]bool, len(records))
	multi := 0

	for _, key := range g.keys {
		members := g.groups[key]
		if len(members) == 1 {
			keep[members[0]] = true
			continue
		}

		ordered := append([]int(nil), members...)
		sort.SliceStable(ordered, func(a, b int) bool {
			ia, ib := ordered[a], ordered[b]
			if g.ids[ia].Baseline != g.ids[ib].Baseline {
				return g.ids[ia].Baseline < g.ids[ib].Baseline
			}
			return records[ia].Name < records[ib].Name
		})

		baselines := make(map[string]struct{}, len(ordered))
		for _, idx := range ordered {
			baselines[g.ids[idx].Baseline] = struct{}{}
		}
		if len(baselines) > 1 {
			multi++
		}

		top := g.ids[ordered[len(ordered)-1]].Baseline
		latest := make(map[string]int)
		for _, idx := range ordered {
			if g.ids[idx].Baseline == top {
				latest[g.ids[idx].CatalogTime] = idx
			}
		}
		for _, idx := range latest {
			keep[idx] = true
		}

		logger.Debug("resolved baseline group",
			slog.String("key", key),
			slog.String("baseline", top),
			slog.Int("members", len(members)),
			slog.Int("kept", len(latest)),
		)
	}

	if multi > 0 {
		logger.Warn("found duplicated baselines for some scenes",
			slog.Int("keys", multi),
		)
	}

	out := g.collect(func(idx int) bool { return keep[idx] })
	report := Report{
		Stage:             "baseline",
		Before:            len(records),
		After:             len(out),
		Removed:           len(records) - len(out) - g.malformed,
		Malformed:         g.malformed,
		MultiBaselineKeys: multi,
	}
	logger.Info("baseline filter applied",
		slog.Int("removed", report.Removed),
		slog.Int("remaining", report.After),
		slog.Int("total", report.Before),
	)
	return out, report
}
