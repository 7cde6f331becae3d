package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/guardvault/internal/engine"
	"github.com/roach88/guardvault/internal/ir"
)

// InvokeOptions holds flags for the invoke command.
type InvokeOptions struct {
	*RootOptions
	Database  string
	Manifest  string
	As        string
	Args      string
	FlowToken string
	At        int64
	Advance   int64
}

// InvokeResult is the journaled outcome of one call.
type InvokeResult struct {
	Action    string         `json:"action"`
	Sender    string         `json:"sender"`
	FlowToken string         `json:"flow_token"`
	Seq       int64          `json:"seq"`
	BlockTime int64          `json:"block_time"`
	Case      string         `json:"case"`
	Result    map[string]any `json:"result,omitempty"`
	Signals   []SignalView   `json:"signals"`
}

// SignalView is a signal as the CLI prints it.
type SignalView struct {
	Seq    int64  `json:"seq"`
	Source string `json:"source"`
	Name   string `json:"name"`
	Args   []any  `json:"args"`
}

// fixedTime is a block time source that always reads the same second.
type fixedTime int64

func (t fixedTime) Now() int64 { return int64(t) }

// NewInvokeCommand creates the invoke command.
func NewInvokeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InvokeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "invoke <action>",
		Short: "Apply one action and journal its outcome",
		Long: `Apply one action as --as and journal the outcome.

The journal is replayed against the manifest first, so the call runs on
the current contract state. Block time is --at when given, otherwise
--advance seconds after the last journaled call, otherwise the wall clock.
Block time never goes backwards: an --at before the last journaled call
is refused, and the wall clock is clamped to it.

Signals of applied calls are published to Redis when [signals] redis_addr
is configured.

Exit codes:
  0 - Call applied
  1 - Call rejected by the protocol (still journaled), or journal does not replay
  2 - Command error (unknown action, bad args, database not found, etc.)

Examples:
  guardvault invoke Protector.setInitiator --as bob --args '{"initiator":"alice"}'
  guardvault invoke Protector.completeTransfer --as bob --args '{"id":1}' --advance 86400
  guardvault invoke Vault.depositFT --as bob --args '{"id":1,"asset":"bulls","amount":500}'`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return invokeAction(cmd.Context(), opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (default from config)")
	cmd.Flags().StringVar(&opts.Manifest, "manifest", "", "deployment manifest (default from config)")
	cmd.Flags().StringVar(&opts.As, "as", "", "sender address (required)")
	_ = cmd.MarkFlagRequired("as")
	cmd.Flags().StringVar(&opts.Args, "args", "{}", "action arguments as JSON")
	cmd.Flags().StringVar(&opts.FlowToken, "flow", "", "flow token (default: a new flow)")
	cmd.Flags().Int64Var(&opts.At, "at", 0, "block time in unix seconds (not before the last journaled call)")
	cmd.Flags().Int64Var(&opts.Advance, "advance", 0, "seconds after the last journaled block time")

	return cmd
}

func invokeAction(ctx context.Context, opts *InvokeOptions, action string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := opts.formatter(cmd)
	logger := opts.logger()

	if _, ok := engine.LookupAction(ir.ActionURI(action)); !ok {
		_ = formatter.Error(ErrCodeInvalidAction, fmt.Sprintf("unknown action %q", action), nil)
		return NewExitError(ExitCommandError, fmt.Sprintf("unknown action %q", action))
	}
	args, err := parseArgs(opts.Args)
	if err != nil {
		_ = formatter.Error(ErrCodeInvalidAction, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid --args", err)
	}
	if opts.Advance < 0 {
		return NewExitError(ExitCommandError, "--advance must be non-negative")
	}

	j, err := openJournal(ctx, opts.storePath(opts.Database), opts.manifestPath(opts.Manifest))
	if err != nil {
		return err
	}
	defer j.Close()

	if err := j.report.Err(); err != nil {
		_ = formatter.Error(ErrCodeReplay, err.Error(), nil)
		return WrapExitError(ExitFailure, "journal does not replay", err)
	}

	last := j.lastBlockTime()
	blockTime, err := chooseBlockTime(last, opts, cmd)
	if err != nil {
		_ = formatter.Error(ErrCodeInvalidAction, err.Error(), map[string]string{"last_block_time": fmt.Sprint(last)})
		return WrapExitError(ExitCommandError, "invalid block time", err)
	}

	engineOpts := []engine.Option{
		engine.WithClock(engine.NewClockAt(j.report.LastSeq)),
		engine.WithLastBlockTime(last),
		engine.WithTimeSource(fixedTime(blockTime)),
		engine.WithManifestHash(j.manifest.Hash),
		engine.WithLogger(logger),
	}
	if sc := opts.Config.Signals; sc.Enabled() {
		bus, err := openBus(sc)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to configure signal bus", err)
		}
		defer bus.Close()
		engineOpts = append(engineOpts, engine.WithSink(bus))
	}

	e := engine.New(j.store, j.world, engineOpts...)
	rec, err := e.Apply(ctx, engine.Call{
		Action:    ir.ActionURI(action),
		Sender:    opts.As,
		Args:      args,
		FlowToken: opts.FlowToken,
	})
	if err != nil {
		var re *engine.RuntimeError
		if errors.As(err, &re) {
			_ = formatter.Error(ErrCodeInvalidAction, re.Error(), nil)
			return WrapExitError(ExitCommandError, "call refused", err)
		}
		return WrapExitError(ExitCommandError, "call failed", err)
	}

	result := receiptView(rec)
	if !rec.OK() {
		if !formatter.JSON() {
			outputInvokeText(formatter, result)
		}
		return formatter.Fail(ExitFailure, ErrCodeRejected,
			fmt.Sprintf("%s rejected: %s", action, rec.Err.Message), result)
	}

	if formatter.JSON() {
		return formatter.Success(result)
	}
	outputInvokeText(formatter, result)
	return nil
}

// parseArgs decodes --args with numbers kept exact.
func parseArgs(raw string) (ir.IRObject, error) {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("invalid --args JSON: %w", err)
	}
	if m == nil {
		return ir.IRObject{}, nil
	}
	v, err := ir.FromAny(m)
	if err != nil {
		return nil, fmt.Errorf("invalid --args: %w", err)
	}
	return v.(ir.IRObject), nil
}

// chooseBlockTime picks the block time of the next call. Block time never
// goes backwards: --at before last is refused.
func chooseBlockTime(last int64, opts *InvokeOptions, cmd *cobra.Command) (int64, error) {
	if cmd.Flags().Changed("at") {
		if opts.At < last {
			return 0, fmt.Errorf("--at %d is before the last journaled block time %d", opts.At, last)
		}
		return opts.At, nil
	}
	if cmd.Flags().Changed("advance") {
		return last + opts.Advance, nil
	}
	return max(engine.SystemTime{}.Now(), last), nil
}

func receiptView(rec *engine.Receipt) InvokeResult {
	res := InvokeResult{
		Action:    string(rec.Invocation.ActionURI),
		Sender:    rec.Invocation.Sender,
		FlowToken: rec.Invocation.FlowToken,
		Seq:       rec.Invocation.Seq,
		BlockTime: rec.Invocation.BlockTime,
		Case:      rec.Completion.OutputCase,
		Signals:   signalViews(rec.Signals),
	}
	if len(rec.Completion.Result) > 0 {
		res.Result = ir.ToAny(rec.Completion.Result).(map[string]any)
	}
	return res
}

func signalViews(signals []ir.Signal) []SignalView {
	views := make([]SignalView, 0, len(signals))
	for _, s := range signals {
		views = append(views, SignalView{
			Seq:    s.Seq,
			Source: s.Source,
			Name:   s.Name,
			Args:   ir.ToAny(s.Args).([]any),
		})
	}
	return views
}

func outputInvokeText(f *OutputFormatter, r InvokeResult) {
	w := f.Writer
	mark := "✓"
	if r.Case != ir.SuccessCase {
		mark = "✗"
	}
	fmt.Fprintf(w, "%s [%d] %s as %s at %d: %s\n", mark, r.Seq, r.Action, r.Sender, r.BlockTime, r.Case)
	if msg, ok := r.Result["message"].(string); ok && r.Case != ir.SuccessCase {
		fmt.Fprintf(w, "  %s\n", msg)
	} else if len(r.Result) > 0 {
		fmt.Fprintf(w, "  Result: %s\n", formatValue(r.Result))
	}
	for _, s := range r.Signals {
		fmt.Fprintf(w, "  [%d] %s.%s %s\n", s.Seq, s.Source, s.Name, formatValue(s.Args))
	}
	f.VerboseLog("Flow: %s", r.FlowToken)
}
