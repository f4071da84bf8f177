package cli

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/stockroom/internal/imagecodec"
)

// CompressOptions holds flags for the compress command.
type CompressOptions struct {
	*RootOptions
	Out      string
	Quality  float64
	MaxWidth int
}

// CompressResult is the JSON payload of the compress command.
type CompressResult struct {
	File        string `json:"file"`
	InputBytes  int    `json:"input_bytes"`
	OutputBytes int    `json:"output_bytes"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	DataURL     string `json:"data_url,omitempty"`
}

// NewCompressCommand creates the compress command.
func NewCompressCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompressOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compress <image>",
		Short: "Compress an image file the way product images are stored",
		Long: `Scale an image down to the configured maximum width and re-encode it as a
JPEG data URL, exactly as images are optimised before they are saved.

PNG, JPEG, GIF, WebP and BMP inputs are accepted.

Examples:
  stockroom compress photo.png
  stockroom compress photo.png --max-width 400 --quality 0.6 --out photo.txt`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompress(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Out, "out", "o", "", "write the data URL to this file instead of stdout")
	cmd.Flags().Float64Var(&opts.Quality, "quality", 0, "JPEG quality in (0,1] (default from config)")
	cmd.Flags().IntVar(&opts.MaxWidth, "max-width", 0, "maximum width in pixels (default from config)")

	return cmd
}

func runCompress(opts *CompressOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}
	quality, maxWidth := cfg.ImageQuality, cfg.ImageMaxWidth
	if opts.Quality != 0 {
		quality = opts.Quality
	}
	if opts.MaxWidth != 0 {
		maxWidth = opts.MaxWidth
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("file not found: %s", path), err)
	}
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "failed to read image", err)
	}

	out, err := imagecodec.Compress(cmd.Context(), base64.StdEncoding.EncodeToString(data), quality, maxWidth)
	if errors.Is(err, imagecodec.ErrInvalidArgument) {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "invalid compression settings", err)
	}
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeImage, "failed to compress image", err)
	}
	w, h, err := imagecodec.Dimensions(out)
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeImage, "failed to read compressed image", err)
	}

	result := CompressResult{
		File:        path,
		InputBytes:  len(data),
		OutputBytes: len(out),
		Width:       w,
		Height:      h,
	}

	if opts.Out == "" {
		if opts.Format == "json" {
			result.DataURL = out
			return formatter.Success("", result)
		}
		_, err := fmt.Fprintln(cmd.OutOrStdout(), out)
		return err
	}

	if err := os.WriteFile(opts.Out, []byte(out), 0o644); err != nil {
		return formatter.Fail(ExitFailure, ErrCodeWriteFailed, "failed to write output", err)
	}
	return formatter.Success(
		fmt.Sprintf("Compressed %s: %dx%d, %d -> %d bytes, written to %s",
			path, w, h, len(data), len(out), opts.Out),
		result)
}
