// Package graph implements the `stagegate graph` command: render a process
// definition as a Mermaid or Graphviz diagram.
package graph

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stagegate/stagegate/internal/commands/shared"
	"github.com/stagegate/stagegate/pkg/loader"
	"github.com/stagegate/stagegate/pkg/visualize"
)

// NewCommand creates the graph command.
func NewCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "graph -f definition.yaml",
		Short: "Render a process definition as a diagram",
		Long:  `Graph renders the stage sequence of a definition as Mermaid or Graphviz DOT text.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("file")
			return runGraph(cmd, file, format)
		},
	}

	cmd.Flags().StringP("file", "f", "", "Process definition file (required)")
	cmd.Flags().StringVar(&format, "format", "mermaid", "Output format: mermaid or dot")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func runGraph(cmd *cobra.Command, file, format string) error {
	def, err := loader.Load(file)
	if err != nil {
		return shared.NewInvalidDefinitionError("failed to load definition", err)
	}
	proc, err := loader.Build(def)
	if err != nil {
		return shared.NewInvalidDefinitionError("failed to build process", err)
	}

	switch format {
	case "mermaid":
		cmd.Print(visualize.Mermaid(proc))
	case "dot":
		cmd.Print(visualize.DOT(proc))
	default:
		return shared.NewMissingInputError(fmt.Sprintf("unknown format %q (want mermaid or dot)", format), nil)
	}
	return nil
}
