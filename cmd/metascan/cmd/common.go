package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/MeKo-Tech/metascan/internal/codec"
	"github.com/MeKo-Tech/metascan/internal/config"
	"github.com/MeKo-Tech/metascan/internal/metadata"
	"github.com/MeKo-Tech/metascan/internal/publish"
	"github.com/MeKo-Tech/metascan/internal/scanner"
	"github.com/MeKo-Tech/metascan/internal/store"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// addScannerFlags registers the flags shared by every command that scans.
func addScannerFlags(fs *pflag.FlagSet) {
	fs.StringSliceP("types", "t", nil, "descriptor types to report, e.g. qr,ean13,face (default all)")
	fs.Bool("normalize", false, "report bounds and corners in [0,1] relative to the frame")
	fs.Bool("mirrored", false, "retry on the horizontally flipped image when nothing is found")
	fs.Bool("try-harder", true, "spend more time looking for codes")
	fs.Bool("code39-mod43", false, "report Code 39 symbols with a valid mod 43 check digit as Code39Mod43")
	fs.Int("max-symbols", 8, "maximum codes decoded per image")
	fs.String("charset", "", "character set hint for code payloads (e.g. ISO-8859-1)")
	fs.Bool("faces", false, "enable face detection")
	fs.String("face-cascade", "", "Haar cascade file for face detection")
	fs.Int("workers", 4, "number of parallel workers")
}

// addOutputFlags registers the rendering flags.
func addOutputFlags(fs *pflag.FlagSet) {
	fs.StringP("format", "f", "json", "output format (json, yaml, text)")
	fs.StringP("output", "o", "", "write results to file instead of stdout")
}

// applyScannerFlags copies explicitly set scanner flags over cfg.
func applyScannerFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("types") {
		cfg.Scanner.Types, _ = f.GetStringSlice("types")
	}
	if f.Changed("normalize") {
		cfg.Scanner.Normalize, _ = f.GetBool("normalize")
	}
	if f.Changed("mirrored") {
		cfg.Scanner.Mirrored, _ = f.GetBool("mirrored")
	}
	if f.Changed("try-harder") {
		cfg.Scanner.TryHarder, _ = f.GetBool("try-harder")
	}
	if f.Changed("code39-mod43") {
		cfg.Scanner.Code39Mod43, _ = f.GetBool("code39-mod43")
	}
	if f.Changed("max-symbols") {
		cfg.Scanner.MaxSymbols, _ = f.GetInt("max-symbols")
	}
	if f.Changed("charset") {
		cfg.Scanner.Charset, _ = f.GetString("charset")
	}
	if f.Changed("faces") {
		cfg.Scanner.Faces, _ = f.GetBool("faces")
	}
	if f.Changed("face-cascade") {
		cfg.Scanner.FaceCascade, _ = f.GetString("face-cascade")
	}
	if f.Changed("workers") {
		cfg.Scanner.Workers, _ = f.GetInt("workers")
	}
}

// applyOutputFlags copies explicitly set output flags over cfg.
func applyOutputFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("format") {
		cfg.Output.Format, _ = f.GetString("format")
	}
	if f.Changed("output") {
		cfg.Output.File, _ = f.GetString("output")
	}
}

// commandConfig resolves the configuration for cmd and validates it.
func commandConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := GetConfig()
	applyScannerFlags(cmd, cfg)
	applyOutputFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openStore opens the configured store, or returns nil when none is configured.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	if !cfg.Store.Enabled() {
		return nil, nil
	}
	st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DSN)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return st, nil
}

// openPublisher connects to the configured broker, or returns a no-op publisher.
func openPublisher(cfg *config.Config) (publish.Publisher, error) {
	if !cfg.MQTT.Enabled() {
		return publish.Nop{}, nil
	}
	p, err := publish.NewMQTT(cfg.ToMQTTOptions())
	if err != nil {
		return nil, fmt.Errorf("connect mqtt: %w", err)
	}
	return p, nil
}

// buildScanner creates a scanner from cfg. Face IDs continue after the
// largest one already in st.
func buildScanner(ctx context.Context, cfg *config.Config, st store.Store, progress scanner.ProgressCallback) (*scanner.Scanner, error) {
	sc, err := cfg.ToScannerConfig()
	if err != nil {
		return nil, err
	}
	if st != nil {
		maxID, err := st.MaxFaceID(ctx)
		if err != nil {
			return nil, fmt.Errorf("read face IDs: %w", err)
		}
		sc.FaceIDStart = maxID
	}
	b := scanner.NewBuilder().WithConfig(sc)
	if progress != nil {
		b = b.WithProgressCallback(progress)
	}
	return b.Build()
}

// openOutput returns the configured output file or w.
func openOutput(cfg *config.Config, w io.Writer) (io.Writer, func() error, error) {
	if cfg.Output.File == "" {
		return w, func() error { return nil }, nil
	}
	f, err := os.Create(cfg.Output.File)
	if err != nil {
		return nil, nil, fmt.Errorf("create output file: %w", err)
	}
	return f, f.Close, nil
}

// writeFrames renders frames in the configured format.
func writeFrames(cmd *cobra.Command, cfg *config.Config, frames []codec.Frame) error {
	format, err := codec.ParseFormat(cfg.Output.Format)
	if err != nil {
		return err
	}
	w, closeFn, err := openOutput(cfg, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	if err := codec.Write(w, format, frames); err != nil {
		_ = closeFn()
		return err
	}
	return closeFn()
}

// deliver saves and publishes one source's descriptors. Publishing is best
// effort; a store failure is returned.
func deliver(ctx context.Context, st store.Store, pub publish.Publisher, session, source string, objs []metadata.Object) error {
	if len(objs) == 0 {
		return nil
	}
	if st != nil {
		if err := st.Save(ctx, session, objs); err != nil {
			return fmt.Errorf("save %s: %w", source, err)
		}
	}
	if err := pub.Publish(ctx, source, objs); err != nil {
		slog.Warn("publish failed", "source", source, "error", err)
	}
	return nil
}
