package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/openfroyo/vtree/pkg/vtree"
	"github.com/openfroyo/vtree/pkg/widgets"
)

// dryRun builds tree in a session that materializes nothing.
func dryRun(ctx context.Context, tree *vtree.Node, opts ...vtree.Option) (*vtree.Session[struct{}], *vtree.Report, error) {
	opts = append([]vtree.Option{vtree.WithNormalizer(widgets.Expansion())}, opts...)
	return vtree.NewSession[struct{}](ctx, struct{}{}, tree, vtree.NopDiffer[struct{}]{}, opts...)
}

func newDiffCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diff <old> <new>",
		Short: "Show the events between two snapshots",
		Long: `Show the diff events that updating from one snapshot to another produces.

The old snapshot is built first, then the new one is applied as an update
cycle. Nothing is materialized; only the events are printed.`,
		Example: `  # Compare two tree files
  vtree diff v1.yaml v2.yaml

  # Machine readable report
  vtree diff --json v1.yaml v2.cue`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd, false)
			if err != nil {
				return err
			}
			defer e.close()
			ctx := e.context(cmd.Context())

			old, err := e.load(ctx, args[0])
			if err != nil {
				return err
			}
			next, err := e.load(ctx, args[1])
			if err != nil {
				return err
			}

			session, _, err := dryRun(ctx, old, e.tel.SessionOptions(e.cfg.Session)...)
			if err != nil {
				return err
			}
			report, err := session.Update(ctx, next)
			if report != nil {
				if perr := e.out.report(report, err); perr != nil {
					return perr
				}
			}
			return err
		},
	}
	return cmd
}
