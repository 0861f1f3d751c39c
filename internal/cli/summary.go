package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/vpremier/data-download/internal/backend"
	"github.com/vpremier/data-download/internal/config"
)

var (
	headerColor = color.New(color.FgCyan, color.Bold)
	labelColor  = color.New(color.Bold)
	removedFmt  = color.New(color.FgYellow)
)

// printSummary writes the query summary shown before a download.
func printSummary(w io.Writer, q *config.Query, params *backend.SearchParams, res *backend.SearchResult) {
	headerColor.Fprintln(w, "Query Summary")
	field := func(label, value string) {
		fmt.Fprintf(w, "  %s %s\n", labelColor.Sprintf("%-16s", label+":"), value)
	}

	field("Collection", params.Collection.ID)
	field("Scenes", fmt.Sprintf("%d", len(res.Records)))
	field("Dates", fmt.Sprintf("%s to %s", q.Start, q.End))
	field("Max cloud cover", fmt.Sprintf("%g%%", params.MaxCloudCover))

	switch params.Collection.Source {
	case config.SourceCDSE:
		field("Tiles", listOrNone(res.Tiles))
	case config.SourceM2M:
		field("Path/rows", listOrNone(res.Tiles))
		field("Sensors", listOrNone(res.Sensors))
	}

	if s := res.Summary; s != nil {
		fmt.Fprintf(w, "  %s %d -> %d", labelColor.Sprintf("%-16s", "Dedup:"), s.Before, s.After)
		if s.Removed() > 0 {
			removedFmt.Fprintf(w, " (%d removed)", s.Removed())
		}
		fmt.Fprintln(w)
		for _, st := range s.Stages {
			fmt.Fprintf(w, "    %-10s %d -> %d\n", st.Stage, st.Before, st.After)
		}
	}
}

func listOrNone(values []string) string {
	if len(values) == 0 {
		return "none"
	}
	return strings.Join(values, ", ")
}
