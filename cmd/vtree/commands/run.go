package commands

import (
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/openfroyo/vtree/pkg/script"
)

func newRunCommand() *cobra.Command {
	var (
		listen   string
		interval time.Duration
		ticks    int
		vars     map[string]string
	)

	cmd := &cobra.Command{
		Use:   "run <script.star>",
		Short: "Drive a session from a Starlark view script",
		Long: `Evaluate view(tick) of a Starlark script on an interval and apply every
result as an update cycle.

Tick 0 creates the session. The run stops after --ticks updates or when
interrupted. Variables given with --var are predeclared as strings, or as
integers when they parse as one.`,
		Example: `  # Run a counter script ten times a second, five updates
  vtree run --interval 100ms --ticks 5 counter.star

  # Pass variables to the script
  vtree run --var title=Demo --var rows=3 table.star`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd, true)
			if err != nil {
				return err
			}
			defer e.close()
			ctx := e.context(cmd.Context())

			if cmd.Flags().Changed("interval") {
				e.cfg.Run.Interval = interval
			}
			if cmd.Flags().Changed("ticks") {
				e.cfg.Run.Ticks = ticks
			}
			scriptVars := make(map[string]any, len(e.cfg.Run.Vars)+len(vars))
			for k, v := range e.cfg.Run.Vars {
				scriptVars[k] = v
			}
			for k, v := range vars {
				if n, err := strconv.Atoi(v); err == nil {
					scriptVars[k] = n
				} else {
					scriptVars[k] = v
				}
			}

			s, err := script.LoadFile(args[0], e.loader,
				script.WithLogger(e.logger),
				script.WithTimeout(e.cfg.Run.Timeout),
				script.WithVars(scriptVars))
			if err != nil {
				return err
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

			ticker := time.NewTicker(e.cfg.Run.Interval)
			defer ticker.Stop()

			for tick := 0; ; tick++ {
				tree, err := s.View(ctx, tick)
				e.tel.Metrics.RecordSourceReload(args[0], err)
				if err != nil {
					if ctx.Err() != nil {
						return nil
					}
					return err
				}
				report, err := h.Apply(ctx, tree)
				e.applied(ctx, h, report, err)
				if err != nil {
					return err
				}
				if e.cfg.Run.Ticks > 0 && tick >= e.cfg.Run.Ticks {
					return nil
				}

				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
				}
			}
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "status server address (e.g. :9090)")
	cmd.Flags().DurationVar(&interval, "interval", time.Second, "time between evaluations (overrides config)")
	cmd.Flags().IntVar(&ticks, "ticks", 0, "stop after this many updates (overrides config)")
	cmd.Flags().StringToStringVar(&vars, "var", nil, "script variable name=value (repeatable)")

	return cmd
}
