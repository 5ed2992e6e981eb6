package commands

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/openfroyo/vtree/pkg/script"
	"github.com/openfroyo/vtree/pkg/vtree"
)

// validationResult is the JSON form of one checked file.
type validationResult struct {
	File  string `json:"file"`
	Valid bool   `json:"valid"`
	Nodes int    `json:"nodes,omitempty"`
	Error string `json:"error,omitempty"`
	Code  string `json:"code,omitempty"`
}

func newValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <file>...",
		Short: "Validate tree files and view scripts",
		Long: `Validate tree documents and Starlark view scripts without applying them.

Each file is decoded, checked against the widget schema and normalized.
Starlark scripts (.star) are compiled and view(0) is evaluated.`,
		Example: `  # Validate a tree document
  vtree validate ui.yaml

  # Validate several files, JSON output
  vtree validate --json ui.yaml counter.star`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd, false)
			if err != nil {
				return err
			}
			defer e.close()
			ctx := e.context(cmd.Context())

			failed := 0
			for _, path := range args {
				res := validationResult{File: path, Valid: true}
				n, err := e.validateFile(ctx, path)
				if err != nil {
					failed++
					res.Valid = false
					res.Error = err.Error()
					res.Code = vtree.CodeOf(err)
					e.tel.Metrics.RecordError(err)
				} else {
					res.Nodes = n
				}
				if err := e.out.validation(res); err != nil {
					return err
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d files failed validation", failed, len(args))
			}
			return nil
		},
	}
	return cmd
}

// validateFile loads path and runs a create cycle over it with no side
// effects. It returns the normalized node count.
func (e *env) validateFile(ctx context.Context, path string) (int, error) {
	var (
		tree *vtree.Node
		err  error
	)
	if filepath.Ext(path) == ".star" {
		s, lerr := script.LoadFile(path, e.loader,
			script.WithLogger(e.logger),
			script.WithTimeout(e.cfg.Run.Timeout),
			script.WithVars(e.cfg.Run.Vars))
		if lerr != nil {
			return 0, lerr
		}
		tree, err = s.View(ctx, 0)
	} else {
		tree, err = e.loader.LoadFile(path)
	}
	if err != nil {
		return 0, err
	}
	_, report, err := dryRun(ctx, tree)
	if err != nil {
		return 0, err
	}
	return report.Nodes, nil
}
