package cmd

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/MeKo-Tech/metascan/internal/codec"
	"github.com/MeKo-Tech/metascan/internal/pdf"
	"github.com/MeKo-Tech/metascan/internal/scanner"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// pdfCmd represents the pdf command.
var pdfCmd = &cobra.Command{
	Use:   "pdf [files...]",
	Short: "Detect faces and codes in images embedded in PDFs",
	Long: `Extract the images embedded in PDF pages and scan each of them. Page N is
reported at media time N seconds, and each image is named file#pN.I.

Examples:
  metascan pdf shipment.pdf
  metascan pdf scan.pdf --pages 1-3,7 --types pdf417
  metascan pdf locked.pdf --password secret`,
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
	RunE:         runPDF,
}

func runPDF(cmd *cobra.Command, args []string) error {
	cfg, err := commandConfig(cmd)
	if err != nil {
		return err
	}
	pages, _ := cmd.Flags().GetString("pages")
	password, _ := cmd.Flags().GetString("password")
	ownerPassword, _ := cmd.Flags().GetString("owner-password")
	session, _ := cmd.Flags().GetString("session")
	if session == "" {
		session = uuid.NewString()
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

	s, err := buildScanner(ctx, cfg, st, nil)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	opts := scanner.PDFOptions{
		Options: pdf.Options{
			Pages:         pages,
			UserPassword:  password,
			OwnerPassword: ownerPassword,
		},
		Normalize: cfg.Scanner.Normalize,
	}

	var frames []codec.Frame
	for _, file := range args {
		results, err := s.ScanPDF(ctx, file, opts)
		if err != nil {
			if pdf.IsPasswordError(err) {
				return fmt.Errorf("%s: wrong or missing password: %w", file, err)
			}
			return fmt.Errorf("%s: %w", file, err)
		}
		doc := filepath.Base(file)
		for _, page := range results {
			source := page.Source(doc)
			if err := deliver(ctx, st, pub, session, source, page.Objects); err != nil {
				return err
			}
			frames = append(frames, codec.Frame{Source: source, Objects: page.Objects})
		}
	}
	if len(frames) == 0 {
		return errors.New("no images found in the selected pages")
	}
	return writeFrames(cmd, cfg, frames)
}

func init() {
	rootCmd.AddCommand(pdfCmd)
	addScannerFlags(pdfCmd.Flags())
	addOutputFlags(pdfCmd.Flags())
	pdfCmd.Flags().String("pages", "", "page range, e.g. 1-3,7 (default all)")
	pdfCmd.Flags().String("password", "", "user password for encrypted PDFs")
	pdfCmd.Flags().String("owner-password", "", "owner password for encrypted PDFs")
	pdfCmd.Flags().String("session", "", "session ID used when storing descriptors (default random)")
}
