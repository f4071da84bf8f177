package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print inventory statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(rootOpts, cmd)
		},
	}
}

func runStats(opts *RootOptions, cmd *cobra.Command) error {
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
	st := svc.Stats()

	var b strings.Builder
	fmt.Fprintf(&b, "Products:          %d\n", st.TotalProducts)
	fmt.Fprintf(&b, "Out of stock:      %d\n", st.OutOfStock)
	fmt.Fprintf(&b, "Low stock:         %d\n", st.LowStock)
	fmt.Fprintf(&b, "Sales:             %d\n", st.TotalSales)
	fmt.Fprintf(&b, "Revenue:           %s\n", st.Revenue.StringFixed(2))
	fmt.Fprintf(&b, "Missing (open):    %d\n", st.UnresolvedMissing)
	fmt.Fprintf(&b, "Open debts:        %d\n", st.OpenDebts)
	fmt.Fprintf(&b, "Owed:              %s", st.TotalOwed.StringFixed(2))
	return formatter.Success(b.String(), st)
}
