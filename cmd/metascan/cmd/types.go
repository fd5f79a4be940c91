package cmd

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/MeKo-Tech/metascan/internal/codec"
	"github.com/MeKo-Tech/metascan/internal/metadata"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type typeOutput struct {
	Type      string `json:"type" yaml:"type"`
	ShortName string `json:"short_name" yaml:"short_name"`
	Kind      string `json:"kind" yaml:"kind"`
}

// typesCmd lists the descriptor types metascan can produce.
var typesCmd = &cobra.Command{
	Use:          "types",
	Short:        "List supported descriptor types",
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		formatFlag, _ := cmd.Flags().GetString("format")
		format, err := codec.ParseFormat(formatFlag)
		if err != nil {
			return err
		}

		known := metadata.KnownTypes()
		out := make([]typeOutput, len(known))
		for i, t := range known {
			out[i] = typeOutput{Type: string(t), ShortName: t.ShortName(), Kind: t.Kind().String()}
		}

		w := cmd.OutOrStdout()
		switch format {
		case codec.FormatYAML:
			enc := yaml.NewEncoder(w)
			defer func() { _ = enc.Close() }()
			return enc.Encode(out)
		case codec.FormatJSON:
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		default:
			tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(tw, "SHORT\tKIND\tTYPE")
			for _, t := range out {
				_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", t.ShortName, t.Kind, t.Type)
			}
			return tw.Flush()
		}
	},
}

func init() {
	rootCmd.AddCommand(typesCmd)
	typesCmd.Flags().StringP("format", "f", "text", "output format (json, yaml, text)")
}
