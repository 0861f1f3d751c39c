// Package cli implements the data-download command line.
package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/vpremier/data-download/internal/backend"
	"github.com/vpremier/data-download/internal/config"
	"github.com/vpremier/data-download/internal/version"
)

const defaultEnvFile = ".env"

// app is the state shared by the subcommands once configuration is loaded.
type app struct {
	cfg         *config.Config
	collections *config.CollectionRegistry
	logger      *slog.Logger

	// newBackends is swapped in tests.
	newBackends func(*config.Config, *slog.Logger) backend.Set

	envFile        string
	collectionsDir string
	logLevel       string
	logFormat      string
}

// RootCmd returns the data-download command with all subcommands.
func RootCmd() *cobra.Command {
	return newRootCmd(&app{newBackends: backend.NewSet})
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:     "data-download",
		Short:   "Query, deduplicate and download Landsat and Sentinel-2 scenes",
		Version: version.String(),
		Long: `data-download queries the Copernicus Data Space Ecosystem and USGS M2M
catalogues, removes duplicate Sentinel-2 scenes and downloads the archives into
outdir/{Mission}/{Sensor or Tile}/...

Credentials and defaults are read from the environment (CDSE_*, M2M_*,
DOWNLOAD_*, DEDUP_*), optionally from a .env file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.envFile, "env-file", defaultEnvFile, "dotenv file to load before reading the environment")
	flags.StringVar(&a.collectionsDir, "collections", "", "directory of collection JSON files (default: built-in collections)")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error (overrides LOG_LEVEL)")
	flags.StringVar(&a.logFormat, "log-format", "", "log format: text or json (overrides LOG_FORMAT)")

	root.AddCommand(SearchCmd(a))
	root.AddCommand(DownloadCmd(a))
	root.AddCommand(ServeCmd(a))
	root.AddCommand(VersionCmd())

	return root
}

// load reads the dotenv file and the environment, then sets up logging and
// the collection registry.
func (a *app) load(cmd *cobra.Command) error {
	if err := loadDotEnv(a.envFile, cmd.Flags().Changed("env-file")); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Logging.Format = a.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	a.cfg = cfg
	a.logger = setupLogger(cfg.Logging.Level, cfg.Logging.Format, cmd.ErrOrStderr())

	if a.collectionsDir == "" {
		a.collections = config.DefaultCollections()
	} else if a.collections, err = config.LoadCollections(a.collectionsDir); err != nil {
		return err
	}
	a.logger.Debug("loaded collections", "count", a.collections.Count())
	return nil
}

// loadDotEnv loads a dotenv file without overriding variables already set.
// A missing default file is not an error.
func loadDotEnv(path string, explicit bool) error {
	if path == "" {
		return nil
	}
	err := godotenv.Load(path)
	if err == nil || (!explicit && errors.Is(err, fs.ErrNotExist)) {
		return nil
	}
	return fmt.Errorf("failed to load env file %q: %w", path, err)
}

func setupLogger(level, format string, w io.Writer) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// VersionCmd prints build information.
func VersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}
