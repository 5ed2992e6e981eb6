package commands

import (
	"github.com/spf13/cobra"
)

func newApplyCommand() *cobra.Command {
	var render bool

	cmd := &cobra.Command{
		Use:   "apply <file>...",
		Short: "Apply snapshots to a widget toolkit",
		Long: `Apply one or more snapshots, in order, to an in-memory widget toolkit.

The first file creates the session; each following file is applied as an
update cycle. With --db every cycle and the final registry are recorded.`,
		Example: `  # Build a tree and print the widgets
  vtree apply --render ui.yaml

  # Replay a sequence of snapshots and record the cycles
  vtree apply --db vtree.db v1.yaml v2.yaml v3.yaml`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd, true)
			if err != nil {
				return err
			}
			defer e.close()
			ctx := e.context(cmd.Context())

			h := e.newHost()
			for _, path := range args {
				tree, err := e.load(ctx, path)
				if err != nil {
					return err
				}
				report, err := h.Apply(ctx, tree)
				e.applied(ctx, h, report, err)
				if err != nil {
					return err
				}
			}

			if render && !e.out.json {
				return h.Render(cmd.OutOrStdout())
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&render, "render", false, "print the widget forest after the last cycle")

	return cmd
}
