package commands

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/openfroyo/vtree/pkg/host"
)

func newWatchCommand() *cobra.Command {
	var (
		listen   string
		debounce time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch <file>",
		Short: "Re-apply a tree file whenever it changes",
		Long: `Keep a widget session alive and update it on every change of a tree file.

A snapshot that fails to load is reported and the session keeps its last
state. A cycle that fails breaks the session; the next valid snapshot
builds a fresh one.

With --listen a status server exposes /metrics, /healthz, /registry and
/tree.`,
		Example: `  # Watch a file
  vtree watch ui.yaml

  # Watch with a status server and cycle history
  vtree watch --listen :9090 --db vtree.db ui.cue`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd, true)
			if err != nil {
				return err
			}
			defer e.close()
			ctx := e.context(cmd.Context())
			path := args[0]

			if cmd.Flags().Changed("debounce") {
				e.cfg.Watch.Debounce = debounce
			}

			h := e.newHost()
			srv, err := e.startServer(listen, h)
			if err != nil {
				return err
			}
			if srv != nil {
				defer shutdownServer(e, srv)
				e.logger.Info().Str("addr", srv.Addr().String()).Msg("Status server listening")
			}

			reload := func(ctx context.Context) {
				tree, err := e.load(ctx, path)
				if err != nil {
					e.tel.Metrics.RecordError(err)
					return
				}
				report, err := h.Apply(ctx, tree)
				e.applied(ctx, h, report, err)
				if err != nil {
					e.logger.Error().Err(err).Str("file", path).Msg("Cycle failed")
				}
			}

			reload(ctx)
			return host.Watch(ctx, path, e.cfg.Watch.Debounce, e.logger, reload)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "status server address (e.g. :9090)")
	cmd.Flags().DurationVar(&debounce, "debounce", 0, "coalesce changes closer than this (overrides config)")

	return cmd
}

type shutdowner interface {
	Shutdown(ctx context.Context) error
}

func shutdownServer(e *env, srv shutdowner) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		e.logger.Warn().Err(err).Msg("Failed to shut down status server")
	}
}
