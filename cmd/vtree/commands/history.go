package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openfroyo/vtree/pkg/stores"
)

var errNoStore = errors.New("cycle history is disabled; pass --db or enable store in the config")

func newHistoryCommand() *cobra.Command {
	var (
		limit  int
		offset int
		all    bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded cycles",
		Long: `List the cycles recorded in the cycle history database, newest first.

By default only cycles of the configured session are listed.`,
		Example: `  # Last 20 cycles of the default session
  vtree history --db vtree.db

  # All sessions, JSON output
  vtree history --db vtree.db --all --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd, true)
			if err != nil {
				return err
			}
			defer e.close()
			if e.store == nil {
				return errNoStore
			}

			session := e.cfg.Session
			if all {
				session = ""
			}
			cycles, err := e.store.ListCycles(cmd.Context(), session, limit, offset)
			if err != nil {
				return err
			}
			return e.out.cycles(cycles)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of cycles to list")
	cmd.Flags().IntVar(&offset, "offset", 0, "skip this many cycles")
	cmd.Flags().BoolVar(&all, "all", false, "list cycles of every session")

	cmd.AddCommand(newHistoryShowCommand())
	cmd.AddCommand(newHistoryRegistryCommand())
	cmd.AddCommand(newHistoryPruneCommand())

	return cmd
}

func newHistoryShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <cycle-id>",
		Short: "Show one recorded cycle and its events",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd, true)
			if err != nil {
				return err
			}
			defer e.close()
			if e.store == nil {
				return errNoStore
			}

			ctx := cmd.Context()
			c, err := e.store.GetCycle(ctx, args[0])
			if err != nil {
				if errors.Is(err, stores.ErrNotFound) {
					return fmt.Errorf("cycle %s not found", args[0])
				}
				return err
			}
			events, err := e.store.ListEvents(ctx, c.ID)
			if err != nil {
				return err
			}
			return e.out.cycle(c, events)
		},
	}
}

func newHistoryRegistryCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "registry",
		Short: "Show the registry recorded by the last successful cycle",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd, true)
			if err != nil {
				return err
			}
			defer e.close()
			if e.store == nil {
				return errNoStore
			}

			entries, err := e.store.ListRegistry(cmd.Context(), e.cfg.Session)
			if err != nil {
				return err
			}
			return e.out.registry(entries)
		},
	}
}

func newHistoryPruneCommand() *cobra.Command {
	var keep int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete all but the newest cycles of the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd, true)
			if err != nil {
				return err
			}
			defer e.close()
			if e.store == nil {
				return errNoStore
			}

			n, err := e.store.PruneCycles(cmd.Context(), e.cfg.Session, keep)
			if err != nil {
				return err
			}
			if e.out.json {
				return e.out.encode(map[string]int64{"deleted": n})
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d cycles\n", n)
			return err
		},
	}

	cmd.Flags().IntVar(&keep, "keep", 100, "number of cycles to keep")

	return cmd
}
