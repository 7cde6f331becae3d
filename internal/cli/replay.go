package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/guardvault/internal/engine"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	Manifest string
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Applied         int               `json:"applied"`
	Incomplete      int               `json:"incomplete"`
	IncompleteFlows []string          `json:"incomplete_flows,omitempty"`
	LastSeq         int64             `json:"last_seq"`
	Deterministic   bool              `json:"deterministic"`
	Mismatches      []engine.Mismatch `json:"mismatches,omitempty"`
	Manifest        string            `json:"manifest"`
	ManifestHash    string            `json:"manifest_hash"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay the journal and verify determinism",
		Long: `Rebuild contract state from the manifest and the journal.

Every completed call is re-executed with its journaled sender and block
time. The output case, the result and every signal must match what was
journaled. Calls that never completed are counted, not replayed.

Exit codes:
  0 - The journal replays exactly
  1 - Determinism verification failed (differences detected)
  2 - Command error (database or manifest not found, etc.)

Examples:
  guardvault replay --db ./guardvault.db --manifest ./deploy.cue
  guardvault replay --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (default from config)")
	cmd.Flags().StringVar(&opts.Manifest, "manifest", "", "deployment manifest (default from config)")

	return cmd
}

func runReplay(ctx context.Context, opts *ReplayOptions, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := opts.formatter(cmd)

	j, err := openJournal(ctx, opts.storePath(opts.Database), opts.manifestPath(opts.Manifest))
	if err != nil {
		return err
	}
	defer j.Close()

	incomplete, err := j.store.FindIncompleteFlows(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to find incomplete flows", err)
	}

	result := ReplayResult{
		Applied:       j.report.Applied,
		Incomplete:    j.report.Incomplete,
		LastSeq:       j.report.LastSeq,
		Deterministic: len(j.report.Mismatches) == 0,
		Mismatches:    j.report.Mismatches,
		Manifest:      j.manifest.Path,
		ManifestHash:  j.manifest.Hash,
	}
	for _, f := range incomplete {
		result.IncompleteFlows = append(result.IncompleteFlows, f.FlowToken)
	}

	if formatter.JSON() {
		if !result.Deterministic {
			return formatter.Fail(ExitFailure, ErrCodeReplay, "determinism verification failed", result)
		}
		return formatter.Success(result)
	}
	return outputReplayText(formatter, result)
}

// outputReplayText outputs the replay result as text.
func outputReplayText(f *OutputFormatter, result ReplayResult) error {
	w := f.Writer

	fmt.Fprintf(w, "Replay Summary: %d call(s) applied, last seq %d\n", result.Applied, result.LastSeq)
	if result.Incomplete > 0 {
		fmt.Fprintf(w, "  %d call(s) never completed\n", result.Incomplete)
		for _, flow := range result.IncompleteFlows {
			fmt.Fprintf(w, "    flow %s\n", flow)
		}
	}
	f.VerboseLog("Manifest %s (%s)", result.Manifest, result.ManifestHash)
	fmt.Fprintln(w)

	for _, m := range result.Mismatches {
		fmt.Fprintf(w, "✗ [%d] %s in flow %s: %s\n", m.Seq, m.Action, m.FlowToken, m.Reason)
		if m.Want != "" || m.Got != "" {
			fmt.Fprintf(w, "  journaled: %s\n", m.Want)
			fmt.Fprintf(w, "  replayed:  %s\n", m.Got)
		}
	}

	if result.Deterministic {
		fmt.Fprintln(w, "✓ Journal replays deterministically")
		return nil
	}

	fmt.Fprintln(w, "✗ Determinism verification failed")
	return NewExitError(ExitFailure, "determinism verification failed")
}
