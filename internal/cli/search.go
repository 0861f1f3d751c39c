package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vpremier/data-download/internal/backend"
	"github.com/vpremier/data-download/internal/config"
	"github.com/vpremier/data-download/internal/translate"
)

// SearchCmd queries a catalogue and lists the deduplicated scenes.
func SearchCmd(a *app) *cobra.Command {
	var (
		qf     queryFlags
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search a catalogue and list the deduplicated scenes",
		Example: `  data-download search -c sentinel-2-l1c --start 2024-06-01 --end 2024-07-01 --aoi basin.geojson --tile T32TNS
  data-download search -q query.yaml --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := qf.query(cmd)
			if err != nil {
				return err
			}
			run, err := a.search(cmd.Context(), q)
			if err != nil {
				return err
			}
			res := run.result

			out := cmd.OutOrStdout()
			if asJSON {
				tr := translate.NewTranslator(a.cfg, a.collections, a.logger)
				items := tr.ToItems(res)
				ic := tr.ToItemCollection(tr.NewResultSet(res, items, nil), items, len(items))
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(ic)
			}

			printSummary(out, q, run.params, res)
			fmt.Fprintln(out)
			for _, r := range res.Records {
				fmt.Fprintln(out, r.Name)
			}
			return nil
		},
	}

	qf.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print a STAC ItemCollection instead of scene names")
	return cmd
}

type searchRun struct {
	params  *backend.SearchParams
	backend backend.SearchBackend
	result  *backend.SearchResult
}

// search runs q against the backend serving its collection.
func (a *app) search(ctx context.Context, q *config.Query) (*searchRun, error) {
	params, err := a.searchParams(q)
	if err != nil {
		return nil, err
	}

	b, err := a.newBackends(a.cfg, a.logger).For(params.Collection)
	if err != nil {
		if params.Collection.Source == config.SourceM2M {
			return nil, fmt.Errorf("%w: set M2M_USERNAME and M2M_TOKEN", err)
		}
		return nil, err
	}

	res, err := b.Search(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	a.logger.Info("search complete",
		"collection", params.Collection.ID,
		"backend", b.Name(),
		"scenes", len(res.Records),
	)
	return &searchRun{params: params, backend: b, result: res}, nil
}
