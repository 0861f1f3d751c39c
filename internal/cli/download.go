package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/vpremier/data-download/internal/config"
	"github.com/vpremier/data-download/internal/scene"
)

// DownloadCmd searches, deduplicates and downloads the scene archives.
func DownloadCmd(a *app) *cobra.Command {
	var (
		qf       queryFlags
		outDir   string
		pathRows []string
		tiers    []string
		dryRun   bool
	)

	cmd := &cobra.Command{
		Use:   "download",
		Short: "Search a catalogue and download the deduplicated scenes",
		Long: `Download runs a search like the search command, then fetches every
resulting archive into outdir/{Mission}/{Tile} for Sentinel-2 and
outdir/{Mission}/{Sensor}/{PathRow} for Landsat. Archives already on disk are
skipped.`,
		Example: `  data-download download -q query.yaml
  data-download download -c landsat-c2-l1 --start 2023-05-01 --end 2023-06-01 --aoi basin.geojson --pathrows 193028 --tiers T1`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := qf.query(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("outdir") {
				q.OutDir = outDir
			}
			if cmd.Flags().Changed("pathrows") {
				q.PathRows = pathRows
			}
			if cmd.Flags().Changed("tiers") {
				q.Tiers = upper(tiers)
			}
			dest := q.OutDir
			if dest == "" {
				dest = a.cfg.Download.OutDir
			}

			run, err := a.search(cmd.Context(), q)
			if err != nil {
				return err
			}
			records := run.result.Records
			if run.params.Collection.Source == config.SourceM2M {
				records = scene.FilterLandsat(records, q.PathRows, q.Tiers)
				run.result.Records = records
			}

			out := cmd.OutOrStdout()
			printSummary(out, q, run.params, run.result)
			if dryRun || len(records) == 0 {
				return nil
			}

			fmt.Fprintf(out, "\nDownloading %d scenes to %s\n", len(records), dest)
			res, err := run.backend.Download(cmd.Context(), records, dest)
			if err != nil {
				return fmt.Errorf("download aborted: %w", err)
			}

			fmt.Fprintf(out, "%s %d downloaded, %d skipped",
				color.New(color.FgGreen).Sprint("Done:"), res.Downloaded, res.Skipped)
			if n := len(res.Failed); n > 0 {
				fmt.Fprintf(out, ", %s", color.New(color.FgRed).Sprintf("%d failed", n))
			}
			fmt.Fprintln(out)

			if err := res.Err(); err != nil {
				return fmt.Errorf("some downloads failed:\n%w", err)
			}
			return nil
		},
	}

	qf.register(cmd)
	flags := cmd.Flags()
	flags.StringVarP(&outDir, "outdir", "o", "", "output directory (default DOWNLOAD_OUTDIR)")
	flags.StringSliceVar(&pathRows, "pathrows", nil, "Landsat WRS-2 path/rows to keep, e.g. 193028,194028")
	flags.StringSliceVar(&tiers, "tiers", nil, "Landsat collection tiers to keep, e.g. T1,T2")
	flags.BoolVar(&dryRun, "dry-run", false, "print the summary without downloading")
	return cmd
}
