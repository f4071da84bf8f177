package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/stockroom/internal/inventory"
)

// ReconcileResult is the JSON payload of the reconcile command.
type ReconcileResult struct {
	Added    int      `json:"added"`
	Products []string `json:"products"`
}

// NewReconcileCommand creates the reconcile command.
func NewReconcileCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Record missing items for out-of-stock products",
		Long: `Record a missing item for every product with zero quantity that has no
open missing item. Running it again without stock changes adds nothing.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReconcile(rootOpts, cmd)
		},
	}
}

func runReconcile(opts *RootOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	a, err := openApp(opts, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.ready(cmd.Context()); err != nil {
		return formatter.Fail(ExitFailure, ErrCodeStorage, "failed to open database", err)
	}
	svc, err := a.inventory(cmd)
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeStorage, "failed to load inventory", err)
	}

	added, err := svc.Reconcile(cmd.Context())
	if errors.Is(err, inventory.ErrNotPersisted) {
		return formatter.Fail(ExitFailure, ErrCodeStorage, "failed to save missing items", err)
	}
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeGeneric, "reconcile failed", err)
	}

	result := ReconcileResult{Added: len(added), Products: make([]string, 0, len(added))}
	for _, m := range added {
		result.Products = append(result.Products, m.ProductID)
	}
	return formatter.Success(fmt.Sprintf("Recorded %d new missing items", result.Added), result)
}
