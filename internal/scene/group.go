package scene

import (
	"log/slog"
	"sort"
)

// grouping indexes records by identity key. Records stay in the caller's
// slice and groups hold indices into it.
type grouping struct {
	records   []Record
	ids       []Identifier
	groups    map[string][]int
	keys      []string
	malformed int
}

func groupRecords(records []Record, stage string, logger *slog.Logger) *grouping {
	g := &grouping{
		records: records,
		ids:     make([]Identifier, len(records)),
		groups:  make(map[string][]int),
	}

	for i, r := range records {
		id, err := ParseIdentifier(r.Name)
		if err != nil {
			g.malformed++
			logger.Warn("skipping record with malformed name",
				slog.String("stage", stage),
				slog.String("name", r.Name),
				slog.String("id", r.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		g.ids[i] = id
		key := id.Key()
		if _, ok := g.groups[key]; !ok {
			g.keys = append(g.keys, key)
		}
		g.groups[key] = append(g.groups[key], i)
	}

	sort.Strings(g.keys)
	for _, members := range g.groups {
		sort.SliceStable(members, func(a, b int) bool {
			return records[members[a]].Name < records[members[b]].Name
		})
	}
	return g
}

// collect returns the kept records ordered by identity key, then name.
func (g *grouping) collect(keep func(idx int) bool) []Record {
	out := make([]Record, 0, len(g.records))
	for _, key := range g.keys {
		for _, idx := range g.groups[key] {
			if keep(idx) {
				out = append(out, g.records[idx])
			}
		}
	}
	return out
}
