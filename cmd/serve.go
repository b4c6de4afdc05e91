package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/conneroisu/tagx/internal/server"
)

func newServeCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "serve",
		Aliases: []string{"s"},
		Short:   "Preview components in the browser",
		Long: `Start the preview server. The index page lists every component;
/render/<name>?key=value renders one with the query parameters as
arguments. Component assets are served under root_url, and pages reload
when a component or asset file changes.

Examples:
  tagx serve
  tagx serve --port 3000 -F ui=vendor/ui
  tagx serve --no-live-reload`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, cat, logger, err := a.setup()
			if err != nil {
				return err
			}

			srv, err := server.New(cfg, cat, logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return srv.Start(ctx)
		},
	}

	cmd.Flags().String("host", "localhost", "host to bind to")
	cmd.Flags().IntP("port", "p", 8080, "port to serve on")
	cmd.Flags().Bool("no-live-reload", false, "disable file watching and live reload")
	cmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		if err := a.v.BindPFlag("server.host", cmd.Flags().Lookup("host")); err != nil {
			return err
		}
		if err := a.v.BindPFlag("server.port", cmd.Flags().Lookup("port")); err != nil {
			return err
		}
		if noReload, _ := cmd.Flags().GetBool("no-live-reload"); noReload {
			a.v.Set("server.live_reload", false)
		}
		return nil
	}

	return cmd
}
