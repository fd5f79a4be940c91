package cmd

import (
	"errors"
	"log/slog"

	"github.com/MeKo-Tech/metascan/internal/codec"
	"github.com/MeKo-Tech/metascan/internal/scanner"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// scanCmd represents the scan command.
var scanCmd = &cobra.Command{
	Use:   "scan [files or directories...]",
	Short: "Detect faces and codes in images",
	Long: `Scan one or more image files, or directories of images, and print one
descriptor per detected face or machine-readable code.

Supported formats: JPEG, PNG, GIF, BMP, TIFF, WebP

Examples:
  metascan scan photo.jpg
  metascan scan ./labels --recursive --types qr,aztec
  metascan scan *.png --format text --normalize
  metascan scan ./cam --store scans.db --session shelf-4`,
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
	RunE:         runScan,
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := commandConfig(cmd)
	if err != nil {
		return err
	}
	recursive, _ := cmd.Flags().GetBool("recursive")
	include, _ := cmd.Flags().GetStringSlice("include")
	exclude, _ := cmd.Flags().GetStringSlice("exclude")
	showProgress, _ := cmd.Flags().GetBool("progress")
	session, _ := cmd.Flags().GetString("session")
	if session == "" {
		session = uuid.NewString()
	}

	paths, err := scanner.DiscoverImageFiles(args, recursive, include, exclude)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return errors.New("no image files found")
	}

	ctx := cmd.Context()
	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	if st != nil {
		defer func() { _ = st.Close() }()
	}
	pub, err := openPublisher(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = pub.Close() }()

	var progress scanner.ProgressCallback
	if showProgress && len(paths) > 1 {
		progress = scanner.NewBarProgressCallback(cmd.ErrOrStderr(), "scanning")
	}
	s, err := buildScanner(ctx, cfg, st, progress)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	results, scanErr := s.ScanFiles(ctx, paths, s.Config().Parallel)
	if results == nil {
		return scanErr
	}

	frames := make([]codec.Frame, 0, len(results))
	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
			slog.Error("scan failed", "path", res.Path, "error", res.Err)
			continue
		}
		if err := deliver(ctx, st, pub, session, res.Path, res.Objects); err != nil {
			return err
		}
		frames = append(frames, codec.Frame{Source: res.Path, Objects: res.Objects})
	}
	slog.Debug("scan complete", "session", session, "files", len(results), "failed", failed)

	if err := writeFrames(cmd, cfg, frames); err != nil {
		return err
	}
	if failed == len(results) {
		return scanErr
	}
	return nil
}

func init() {
	rootCmd.AddCommand(scanCmd)
	addScannerFlags(scanCmd.Flags())
	addOutputFlags(scanCmd.Flags())
	scanCmd.Flags().BoolP("recursive", "r", false, "descend into directories")
	scanCmd.Flags().StringSlice("include", nil, "glob patterns of files to include")
	scanCmd.Flags().StringSlice("exclude", nil, "glob patterns of files to exclude")
	scanCmd.Flags().Bool("progress", true, "show a progress bar for multiple files")
	scanCmd.Flags().String("session", "", "session ID used when storing descriptors (default random)")
}
