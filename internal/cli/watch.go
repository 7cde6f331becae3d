package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/roach88/guardvault/internal/config"
	"github.com/roach88/guardvault/internal/ir"
	"github.com/roach88/guardvault/internal/signalbus"
)

// WatchOptions holds flags for the watch command.
type WatchOptions struct {
	*RootOptions
	Source string
	Name   string
	Count  int
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow published signals",
		Long: `Print signals as invoke publishes them to the Redis signal bus.

Requires [signals] redis_addr in the config file. Delivery is
at-most-once; use trace to re-read a flow from the journal.

With --format json each signal is printed as one JSON object per line.

Examples:
  guardvault watch -c guardvault.toml
  guardvault watch -c guardvault.toml --source protected --name Deposit
  guardvault watch -c guardvault.toml --count 1`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Source, "source", "", "only signals emitted by this contract")
	cmd.Flags().StringVar(&opts.Name, "name", "", "only signals with this event name")
	cmd.Flags().IntVar(&opts.Count, "count", 0, "exit after this many signals (0 = until interrupted)")

	return cmd
}

// openBus connects the configured signal bus.
func openBus(sc config.SignalsConfig) (*signalbus.Bus, error) {
	return signalbus.New(&redis.Options{Addr: sc.RedisAddr, Password: sc.Password, DB: sc.DB}, sc.Namespace)
}

func runWatch(ctx context.Context, opts *WatchOptions, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := opts.formatter(cmd)
	if opts.Count < 0 {
		return NewExitError(ExitCommandError, "--count must be non-negative")
	}

	sc := opts.Config.Signals
	if !sc.Enabled() {
		_ = formatter.Error(ErrCodeSignalBus, "signals.redis_addr is not configured", nil)
		return NewExitError(ExitCommandError, "signal bus not configured")
	}
	bus, err := openBus(sc)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to configure signal bus", err)
	}
	defer bus.Close()

	if err := bus.Ping(ctx); err != nil {
		_ = formatter.Error(ErrCodeSignalBus, err.Error(), nil)
		return WrapExitError(ExitCommandError, "signal bus unreachable", err)
	}
	sub, err := bus.Subscribe(ctx)
	if err != nil {
		_ = formatter.Error(ErrCodeSignalBus, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to subscribe", err)
	}
	defer sub.Close()

	if last, err := bus.LastPublishedSeq(ctx); err == nil {
		formatter.VerboseLog("Watching %s (last published seq %d)", signalbus.SignalsChannel(sc.Namespace), last)
	}

	errs := sub.Errors()
	seen := 0
	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			opts.logger().Warn("undecodable signal skipped", "error", err)

		case sig, ok := <-sub.Events():
			if !ok {
				return nil
			}
			if !matchSignal(sig, opts.Source, opts.Name) {
				continue
			}
			if err := printSignal(formatter, sig); err != nil {
				return err
			}
			seen++
			if opts.Count > 0 && seen >= opts.Count {
				return nil
			}
		}
	}
}

func matchSignal(sig ir.Signal, source, name string) bool {
	if source != "" && sig.Source != source {
		return false
	}
	return name == "" || sig.Name == name
}

// printSignal writes one signal per line; JSON lines are not wrapped in
// a CLIResponse so the stream can be piped.
func printSignal(f *OutputFormatter, sig ir.Signal) error {
	view := signalViews([]ir.Signal{sig})[0]
	if f.JSON() {
		data, err := json.Marshal(view)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(f.Writer, string(data))
		return err
	}
	_, err := fmt.Fprintf(f.Writer, "[%d] %s.%s %s\n", view.Seq, view.Source, view.Name, formatValue(view.Args))
	return err
}
