package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/stockroom/internal/datasync"
	"github.com/roach88/stockroom/internal/export"
)

// ImportOptions holds flags for the import command.
type ImportOptions struct {
	*RootOptions
	KeepOmitted bool
}

// ImportResult is the JSON payload of the import command.
type ImportResult struct {
	File         string `json:"file"`
	Mode         string `json:"mode"`
	Products     int    `json:"products"`
	MissingItems int    `json:"missing_items"`
	Sales        int    `json:"sales"`
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Replace stored data with a JSON export",
		Long: `Replace stored products, missing items and sales with the contents of a
JSON export.

By default all three kinds are cleared first, including kinds the file does
not contain. With --keep-omitted only the kinds present in the file are
replaced. The file is validated completely before anything is cleared, and
the import commits as one transaction.

Exit codes:
  0 - Import applied
  1 - File rejected or database error (nothing changed)
  2 - Command error

Examples:
  stockroom import backup.json
  stockroom import products-only.json --keep-omitted`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.KeepOmitted, "keep-omitted", false, "keep kinds that are absent from the file")

	return cmd
}

func runImport(opts *ImportOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	ctx := cmd.Context()

	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("file not found: %s", path), err)
	}
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "failed to open import file", err)
	}
	defer f.Close()

	doc, err := export.DecodeJSON(f)
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeInvalidData, "failed to parse import data", err)
	}

	a, err := openApp(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	mode := datasync.ReplaceAll
	if opts.KeepOmitted {
		mode = datasync.ReplacePresent
	}
	data := doc.ImportData()
	formatter.VerboseLog("Importing %s in %s mode", path, mode)

	if err := a.facade.ImportAll(ctx, data, mode); err != nil {
		if datasync.IsImportError(err) {
			return formatter.Fail(ExitFailure, ErrCodeInvalidData, "import data rejected", err)
		}
		return formatter.Fail(ExitFailure, ErrCodeStorage, "import failed", err)
	}

	result := ImportResult{
		File:         path,
		Mode:         mode.String(),
		Products:     len(data.Products),
		MissingItems: len(data.MissingItems),
		Sales:        len(data.Sales),
	}
	return formatter.Success(
		fmt.Sprintf("Imported %d products, %d missing items and %d sales (%s)",
			result.Products, result.MissingItems, result.Sales, result.Mode),
		result)
}
