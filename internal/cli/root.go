package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/guardvault/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Verbose    bool
	Format     string // "json" | "text"

	// Config and Logger are filled in before any subcommand runs.
	Config config.Config
	Logger *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the guardvault CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "guardvault",
		Short: "guardvault - guarded custody of protector tokens and their vaults",
		Long: `Operate a protector token collection and its vault.

Every call is journaled to SQLite; the journal replays against the
deployment manifest to rebuild contract state and prove determinism.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return opts.load(cmd.ErrOrStderr())
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to TOML config file")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewInvokeCommand(opts))
	cmd.AddCommand(NewActionsCommand(opts))
	cmd.AddCommand(NewReplayCommand(opts))
	cmd.AddCommand(NewTraceCommand(opts))
	cmd.AddCommand(NewWatchCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewFingerprintCommand(opts))

	return cmd
}

// load reads the config file, if any, and builds the logger. --verbose
// lowers the log level to debug.
func (o *RootOptions) load(stderr io.Writer) error {
	cfg := config.Default()
	if o.ConfigPath != "" {
		var err error
		cfg, err = config.Load(o.ConfigPath)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to load config", err)
		}
	}
	if o.Verbose {
		cfg.Log.Level = "debug"
	}
	logger, err := cfg.Log.NewLogger(stderr)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to configure logging", err)
	}
	o.Config, o.Logger = cfg, logger
	return nil
}

// logger returns the configured logger. Commands built without the root
// command (as in tests) log through slog.Default.
func (o *RootOptions) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

// storePath picks the journal: flag, then config, then the default.
func (o *RootOptions) storePath(flag string) string {
	if flag != "" {
		return flag
	}
	if o.Config.Store.Path != "" {
		return o.Config.Store.Path
	}
	return config.Default().Store.Path
}

// manifestPath picks the deployment manifest: flag, then config, then the
// default.
func (o *RootOptions) manifestPath(flag string) string {
	if flag != "" {
		return flag
	}
	if o.Config.Manifest.Path != "" {
		return o.Config.Manifest.Path
	}
	return config.Default().Manifest.Path
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
