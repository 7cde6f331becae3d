package cli

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/guardvault/internal/chain"
	"github.com/roach88/guardvault/internal/codec"
	"github.com/roach88/guardvault/internal/engine"
	"github.com/roach88/guardvault/internal/ir"
	"github.com/roach88/guardvault/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database  string
	Manifest  string
	FlowToken string
	Action    string // optional - filter to specific action
	CBOR      bool   // show the wire form of each signal
}

// TraceEvent represents a single record in the trace timeline.
type TraceEvent struct {
	Seq        int64          `json:"seq"`
	Type       string         `json:"type"` // "invocation", "completion" or "signal"
	ID         string         `json:"id"`
	ActionURI  string         `json:"action_uri,omitempty"`
	Sender     string         `json:"sender,omitempty"`
	BlockTime  int64          `json:"block_time,omitempty"`
	Args       map[string]any `json:"args,omitempty"`
	OutputCase string         `json:"output_case,omitempty"`
	Result     map[string]any `json:"result,omitempty"`
	Source     string         `json:"source,omitempty"`
	SourceName string         `json:"source_name,omitempty"`
	Name       string         `json:"name,omitempty"`
	SignalArgs []any          `json:"signal_args,omitempty"`
	Wire       string         `json:"wire,omitempty"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	FlowToken string       `json:"flow_token"`
	Timeline  []TraceEvent `json:"timeline"`
	Stats     TraceStats   `json:"stats"`
}

// TraceStats holds summary statistics for the trace.
type TraceStats struct {
	TotalEvents    int    `json:"total_events"`
	Invocations    int    `json:"invocations"`
	Completions    int    `json:"completions"`
	Signals        int    `json:"signals"`
	Pending        int    `json:"pending"`
	IsComplete     bool   `json:"is_complete"`
	TerminalStatus string `json:"terminal_status,omitempty"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show the journal of a flow",
		Long: `Show every journaled record of one flow in seq order.

The timeline interleaves invocations, their completions and the signals
each applied call emitted. Contract addresses are annotated with their
names when the manifest can be loaded.

Examples:
  guardvault trace --flow 01920c4e-...
  guardvault trace --flow 01920c4e-... --action Protector.startTransfer
  guardvault trace --flow 01920c4e-... --cbor --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (default from config)")
	cmd.Flags().StringVar(&opts.Manifest, "manifest", "", "deployment manifest for contract names (default from config)")
	cmd.Flags().StringVar(&opts.FlowToken, "flow", "", "flow token to trace (required)")
	_ = cmd.MarkFlagRequired("flow")
	cmd.Flags().StringVar(&opts.Action, "action", "", "filter to specific action URI")
	cmd.Flags().BoolVar(&opts.CBOR, "cbor", false, "include the CBOR wire form of signals")

	return cmd
}

func runTrace(ctx context.Context, opts *TraceOptions, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := opts.formatter(cmd)

	st, err := store.Open(opts.storePath(opts.Database))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	state, err := st.GetFlowState(ctx, opts.FlowToken)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to get flow state", err)
	}

	var world *engine.World
	if _, w, err := loadManifest(opts.manifestPath(opts.Manifest)); err == nil {
		world = w
	} else {
		formatter.VerboseLog("Contract names unavailable: %v", err)
	}

	if len(state.Invocations) == 0 {
		if formatter.JSON() {
			return formatter.Success(TraceResult{FlowToken: opts.FlowToken, Timeline: []TraceEvent{}})
		}
		fmt.Fprintf(formatter.Writer, "No events found for flow: %s\n", opts.FlowToken)
		return nil
	}

	timeline, err := buildTimeline(state, opts.Action, world, opts.CBOR)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build timeline", err)
	}

	result := TraceResult{
		FlowToken: opts.FlowToken,
		Timeline:  timeline,
		Stats: TraceStats{
			TotalEvents:    len(timeline),
			Invocations:    len(state.Invocations),
			Completions:    len(state.Completions),
			Signals:        len(state.Signals),
			Pending:        state.PendingCount,
			IsComplete:     state.IsComplete,
			TerminalStatus: state.TerminalStatus,
		},
	}

	if formatter.JSON() {
		return formatter.Success(result)
	}
	outputTraceText(formatter.Writer, result, opts.Verbose)
	return nil
}

// buildTimeline merges a flow's records in seq order. When actionFilter
// is set, only invocations of that action and their completions and
// signals are kept.
func buildTimeline(state store.FlowState, actionFilter string, world *engine.World, wire bool) ([]TraceEvent, error) {
	keepInv := make(map[string]bool)
	for _, inv := range state.Invocations {
		if actionFilter == "" || string(inv.ActionURI) == actionFilter {
			keepInv[inv.ID] = true
		}
	}
	keepComp := make(map[string]bool)
	for _, comp := range state.Completions {
		if keepInv[comp.InvocationID] {
			keepComp[comp.ID] = true
		}
	}

	var timeline []TraceEvent
	for _, inv := range state.Invocations {
		if !keepInv[inv.ID] {
			continue
		}
		timeline = append(timeline, TraceEvent{
			Seq:       inv.Seq,
			Type:      "invocation",
			ID:        inv.ID,
			ActionURI: string(inv.ActionURI),
			Sender:    inv.Sender,
			BlockTime: inv.BlockTime,
			Args:      irObjectToMap(inv.Args),
		})
	}
	for _, comp := range state.Completions {
		if !keepComp[comp.ID] {
			continue
		}
		timeline = append(timeline, TraceEvent{
			Seq:        comp.Seq,
			Type:       "completion",
			ID:         comp.ID,
			OutputCase: comp.OutputCase,
			Result:     irObjectToMap(comp.Result),
		})
	}
	for _, sig := range state.Signals {
		if !keepComp[sig.CompletionID] {
			continue
		}
		ev := TraceEvent{
			Seq:        sig.Seq,
			Type:       "signal",
			ID:         sig.ID,
			Source:     sig.Source,
			Name:       sig.Name,
			SignalArgs: ir.ToAny(sig.Args).([]any),
		}
		if world != nil {
			if name, ok := world.Contract(chain.Address(sig.Source)); ok {
				ev.SourceName = name
			}
		}
		if wire {
			data, err := codec.EncodeSignal(sig)
			if err != nil {
				return nil, err
			}
			if ev.Wire, err = codec.Diagnose(data); err != nil {
				return nil, err
			}
		}
		timeline = append(timeline, ev)
	}

	sort.SliceStable(timeline, func(i, j int) bool { return timeline[i].Seq < timeline[j].Seq })
	return timeline, nil
}

// irObjectToMap converts an ir.IRObject to a plain map.
func irObjectToMap(obj ir.IRObject) map[string]any {
	if len(obj) == 0 {
		return nil
	}
	return ir.ToAny(obj).(map[string]any)
}

// outputTraceText outputs the trace result as text.
func outputTraceText(w io.Writer, result TraceResult, verbose bool) {
	fmt.Fprintf(w, "Trace for Flow: %s\n", result.FlowToken)
	fmt.Fprintf(w, "Status: %s\n", completeStatus(result.Stats))
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Timeline ===")
	if len(result.Timeline) == 0 {
		fmt.Fprintln(w, "  (no events)")
	}
	for _, event := range result.Timeline {
		formatTimelineEvent(w, event, verbose)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Total Events: %d\n", result.Stats.TotalEvents)
	fmt.Fprintf(w, "  Invocations:  %d\n", result.Stats.Invocations)
	fmt.Fprintf(w, "  Completions:  %d\n", result.Stats.Completions)
	fmt.Fprintf(w, "  Signals:      %d\n", result.Stats.Signals)
}

// formatTimelineEvent formats a single timeline event for text output.
func formatTimelineEvent(w io.Writer, event TraceEvent, verbose bool) {
	switch event.Type {
	case "invocation":
		fmt.Fprintf(w, "  [%d] INV %s as %s at %d\n", event.Seq, event.ActionURI, event.Sender, event.BlockTime)
		if verbose && len(event.Args) > 0 {
			fmt.Fprintf(w, "       Args: %s\n", formatArgs(event.Args))
		}

	case "completion":
		fmt.Fprintf(w, "  [%d] COMP %s\n", event.Seq, event.OutputCase)
		if verbose && len(event.Result) > 0 {
			fmt.Fprintf(w, "       Result: %s\n", formatArgs(event.Result))
		}

	case "signal":
		source := event.Source
		if event.SourceName != "" {
			source = fmt.Sprintf("%s (%s)", event.Source, event.SourceName)
		}
		fmt.Fprintf(w, "  [%d] SIG %s %s %s\n", event.Seq, source, event.Name, formatValue(event.SignalArgs))
		if event.Wire != "" {
			fmt.Fprintf(w, "       CBOR: %s\n", event.Wire)
		}
	}
	if verbose {
		fmt.Fprintf(w, "       ID: %s\n", truncateID(event.ID))
	}
}

// formatArgs formats a map of args for display with sorted keys.
func formatArgs(args map[string]any) string {
	if len(args) == 0 {
		return "{}"
	}

	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, formatValue(args[k])))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// formatValue formats a single value for display, handling nested
// structures deterministically.
func formatValue(v any) string {
	switch val := v.(type) {
	case map[string]any:
		return formatArgs(val)
	case []any:
		parts := make([]string, len(val))
		for i, elem := range val {
			parts[i] = formatValue(elem)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case string:
		return val
	default:
		return fmt.Sprintf("%v", v)
	}
}

// truncateID truncates a long ID for display.
func truncateID(id string) string {
	if len(id) <= 16 {
		return id
	}
	return id[:8] + "..." + id[len(id)-8:]
}

func completeStatus(s TraceStats) string {
	if s.IsComplete {
		return "Complete (" + s.TerminalStatus + ")"
	}
	return fmt.Sprintf("Incomplete (%d pending)", s.Pending)
}
