package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/MeKo-Tech/metascan/internal/codec"
	"github.com/MeKo-Tech/metascan/internal/metadata"
	"github.com/MeKo-Tech/metascan/internal/store"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var errNoStore = errors.New("no store configured (use --store or store.dsn)")

// queryCmd lists stored descriptors.
var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "List descriptors from the store",
	Long: `List stored descriptors, newest session first, grouped by session.

Examples:
  metascan query --store scans.db
  metascan query --store scans.db --session shelf-4 --types qr --limit 20
  metascan query sessions --store scans.db`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE:         runQuery,
}

// sessionsCmd lists stored sessions.
var sessionsCmd = &cobra.Command{
	Use:          "sessions",
	Short:        "List stored scan sessions",
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE:         runSessions,
}

func runQuery(cmd *cobra.Command, args []string) error {
	cfg, err := commandConfig(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	if st == nil {
		return errNoStore
	}
	defer func() { _ = st.Close() }()

	session, _ := cmd.Flags().GetString("session")
	limit, _ := cmd.Flags().GetInt("limit")
	types, err := metadata.ParseTypes(cfg.Scanner.Types)
	if err != nil {
		return err
	}

	records, err := st.List(ctx, store.Query{SessionID: session, Types: types, Limit: limit})
	if err != nil {
		return err
	}
	return writeFrames(cmd, cfg, recordFrames(records))
}

// recordFrames groups records by session, keeping first-seen order.
func recordFrames(records []store.Record) []codec.Frame {
	var frames []codec.Frame
	index := make(map[string]int)
	for _, r := range records {
		i, ok := index[r.SessionID]
		if !ok {
			i = len(frames)
			index[r.SessionID] = i
			frames = append(frames, codec.Frame{Source: r.SessionID})
		}
		frames[i].Objects = append(frames[i].Objects, r.Object)
	}
	return frames
}

type sessionOutput struct {
	ID        string    `json:"id" yaml:"id"`
	Objects   int       `json:"objects" yaml:"objects"`
	FirstSeen time.Time `json:"first_seen" yaml:"first_seen"`
	LastSeen  time.Time `json:"last_seen" yaml:"last_seen"`
}

func runSessions(cmd *cobra.Command, args []string) error {
	cfg, err := commandConfig(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	if st == nil {
		return errNoStore
	}
	defer func() { _ = st.Close() }()

	sessions, err := st.Sessions(ctx)
	if err != nil {
		return err
	}
	out := make([]sessionOutput, len(sessions))
	for i, s := range sessions {
		out[i] = sessionOutput{ID: s.ID, Objects: s.Objects, FirstSeen: s.FirstSeen, LastSeen: s.LastSeen}
	}

	format, err := codec.ParseFormat(cfg.Output.Format)
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	switch format {
	case codec.FormatYAML:
		enc := yaml.NewEncoder(w)
		defer func() { _ = enc.Close() }()
		return enc.Encode(out)
	case codec.FormatText:
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		_, _ = fmt.Fprintln(tw, "SESSION\tOBJECTS\tFIRST SEEN\tLAST SEEN")
		for _, s := range out {
			_, _ = fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", s.ID, s.Objects,
				s.FirstSeen.Format(time.RFC3339), s.LastSeen.Format(time.RFC3339))
		}
		return tw.Flush()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.AddCommand(sessionsCmd)
	queryCmd.PersistentFlags().StringP("format", "f", "json", "output format (json, yaml, text)")
	queryCmd.Flags().StringP("output", "o", "", "write results to file instead of stdout")
	queryCmd.Flags().StringSliceP("types", "t", nil, "only list these descriptor types")
	queryCmd.Flags().String("session", "", "only list this session")
	queryCmd.Flags().Int("limit", store.DefaultLimit, "maximum number of descriptors")
}
