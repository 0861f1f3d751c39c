package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vpremier/data-download/pkg/server"
)

// ServeCmd runs the STAC API server.
func ServeCmd(a *app) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve deduplicated searches as a STAC API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("port") {
				a.cfg.Server.Port = port
			}

			a.logger.Info("starting data-download STAC API",
				"address", a.cfg.Server.Address(),
				"base_url", a.cfg.STAC.BaseURL,
				"collections", a.collections.Count(),
			)

			srv := server.NewFromConfig(a.cfg, a.collections, a.logger)
			defer srv.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.Run(ctx)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (default SERVER_PORT)")
	return cmd
}
