// Package cli assembles the stagegate root command.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/stagegate/stagegate/internal/commands/shared"
)

// SetVersion records build-time version information (called from main).
func SetVersion(v, c, b string) {
	shared.SetVersion(v, c, b)
}

// NewRootCommand creates the root Cobra command for stagegate.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stagegate",
		Short: "stagegate - staged workflow gating",
		Long: `stagegate evaluates elements against staged workflow definitions.
A definition orders stages, each guarding progression with schemas and
gates of property locks; evaluation reports the element's workflow state
and the actions needed to move it forward.`,
		SilenceUsage:  true,
		SilenceErrors: true, // errors are handled for proper exit codes
	}

	verbose, quiet, json := shared.RegisterFlagPointers()
	cmd.PersistentFlags().BoolVarP(verbose, "verbose", "v", false, "Enable verbose output")
	cmd.PersistentFlags().BoolVarP(quiet, "quiet", "q", false, "Suppress non-error output")
	cmd.PersistentFlags().BoolVar(json, "json", false, "Output in JSON format")

	return cmd
}

// HandleExitError handles exit errors with proper exit codes.
func HandleExitError(err error) {
	shared.HandleExitError(err)
}
