package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/guardvault/internal/engine"
	"github.com/roach88/guardvault/internal/ir"
)

// NewActionsCommand creates the actions command.
func NewActionsCommand(rootOpts *RootOptions) *cobra.Command {
	var prefix string

	cmd := &cobra.Command{
		Use:   "actions",
		Short: "List the actions invoke accepts",
		Long: `List every action with its arguments and output cases.

Optional arguments are shown in brackets.

Examples:
  guardvault actions
  guardvault actions --prefix Vault.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var sigs []ir.ActionSig
			for _, sig := range engine.Actions() {
				if strings.HasPrefix(string(sig.URI), prefix) {
					sigs = append(sigs, sig)
				}
			}
			formatter := rootOpts.formatter(cmd)
			if formatter.JSON() {
				return formatter.Success(sigs)
			}
			for _, sig := range sigs {
				fmt.Fprintf(formatter.Writer, "%s(%s)\n", sig.URI, formatSigArgs(sig.Args))
				if formatter.Verbose {
					fmt.Fprintf(formatter.Writer, "  -> %s\n", strings.Join(sig.Outputs, " | "))
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&prefix, "prefix", "", "only actions whose URI starts with prefix")

	return cmd
}

func formatSigArgs(args []ir.NamedArg) string {
	parts := make([]string, 0, len(args))
	for _, a := range args {
		p := a.Name + " " + a.Type
		if a.Optional {
			p = "[" + p + "]"
		}
		parts = append(parts, p)
	}
	return strings.Join(parts, ", ")
}
