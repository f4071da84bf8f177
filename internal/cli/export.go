package cli

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/stockroom/internal/export"
)

// ExportOptions holds flags for the export commands.
type ExportOptions struct {
	*RootOptions
	Out string
}

// ExportResult is the JSON payload of the export commands.
type ExportResult struct {
	File         string `json:"file"`
	Products     int    `json:"products"`
	MissingItems int    `json:"missing_items,omitempty"`
	Sales        int    `json:"sales,omitempty"`
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export products, missing items and sales as JSON",
		Long: `Export products, missing items and sales as one JSON document.

All three kinds are read in a single read transaction, so the document is a
consistent snapshot even while other processes write.

Examples:
  stockroom export
  stockroom export --out backup.json
  stockroom export --out - > backup.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Out, "out", "o", "", `output file ("-" for stdout; default inventory-data-<date>.json)`)

	return cmd
}

// NewExportCSVCommand creates the export-csv command.
func NewExportCSVCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export-csv",
		Short: "Export products as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExportCSV(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Out, "out", "o", "", `output file ("-" for stdout; default inventory-<date>.csv)`)

	return cmd
}

func runExport(opts *ExportOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	ctx := cmd.Context()

	a, err := openApp(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	snap, err := a.facade.ExportAll(ctx)
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeStorage, "failed to read database", err)
	}

	now := a.now()
	var buf bytes.Buffer
	if err := export.EncodeJSON(&buf, export.NewDocument(snap, now)); err != nil {
		return formatter.Fail(ExitFailure, ErrCodeGeneric, "failed to encode export", err)
	}

	file := opts.Out
	if file == "" {
		file = export.DefaultFileName(export.FormatJSON, now)
	}
	if file == "-" {
		_, err := cmd.OutOrStdout().Write(buf.Bytes())
		return err
	}
	if err := os.WriteFile(file, buf.Bytes(), 0o644); err != nil {
		return formatter.Fail(ExitFailure, ErrCodeWriteFailed, "failed to write export", err)
	}

	result := ExportResult{
		File:         file,
		Products:     len(snap.Products),
		MissingItems: len(snap.MissingItems),
		Sales:        len(snap.Sales),
	}
	return formatter.Success(
		fmt.Sprintf("Exported %d products, %d missing items and %d sales to %s",
			result.Products, result.MissingItems, result.Sales, file),
		result)
}

func runExportCSV(opts *ExportOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	ctx := cmd.Context()

	a, err := openApp(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	snap, err := a.facade.ExportAll(ctx)
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeStorage, "failed to read database", err)
	}

	var buf bytes.Buffer
	if err := export.EncodeCSV(&buf, snap.Products); err != nil {
		return formatter.Fail(ExitFailure, ErrCodeGeneric, "failed to encode CSV", err)
	}

	file := opts.Out
	if file == "" {
		file = export.DefaultFileName(export.FormatCSV, a.now())
	}
	if file == "-" {
		_, err := cmd.OutOrStdout().Write(buf.Bytes())
		return err
	}
	if err := os.WriteFile(file, buf.Bytes(), 0o644); err != nil {
		return formatter.Fail(ExitFailure, ErrCodeWriteFailed, "failed to write CSV", err)
	}

	return formatter.Success(
		fmt.Sprintf("Exported %d products to %s", len(snap.Products), file),
		ExportResult{File: file, Products: len(snap.Products)})
}
