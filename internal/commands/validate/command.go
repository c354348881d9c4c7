// Package validate implements the `stagegate validate` command: load one
// or more process definitions, build them, and lint the result.
package validate

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/stagegate/stagegate/internal/commands/shared"
	"github.com/stagegate/stagegate/pkg/analysis"
	"github.com/stagegate/stagegate/pkg/loader"
)

type fileReport struct {
	Path   string           `json:"path"`
	Valid  bool             `json:"valid"`
	Error  string           `json:"error,omitempty"`
	Issues []analysis.Issue `json:"issues,omitempty"`
}

// NewCommand creates the validate command.
func NewCommand() *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "validate <file-or-directory>",
		Short: "Validate process definitions",
		Long: `Validate loads each definition, builds the full process graph, and
reports configuration problems. Directories are searched recursively for
YAML files. Lint findings are advisory unless --strict is set.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, args[0], strict)
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "Treat lint findings as failures")
	return cmd
}

func runValidate(cmd *cobra.Command, target string, strict bool) error {
	paths, err := resolveTargets(target)
	if err != nil {
		return shared.NewMissingInputError(fmt.Sprintf("cannot read %s", target), err)
	}
	if len(paths) == 0 {
		return shared.NewMissingInputError(fmt.Sprintf("no definition files found under %s", target), nil)
	}

	reports := make([]fileReport, 0, len(paths))
	failed := false
	for _, path := range paths {
		report := validateFile(path)
		if !report.Valid || (strict && len(report.Issues) > 0) {
			failed = true
		}
		reports = append(reports, report)
	}

	if shared.GetJSON() {
		data, err := json.MarshalIndent(reports, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal reports: %w", err)
		}
		cmd.Println(string(data))
	} else {
		renderReports(cmd, reports)
	}

	if failed {
		return shared.NewInvalidDefinitionError("validation failed", nil)
	}
	return nil
}

func resolveTargets(target string) ([]string, error) {
	info, err := os.Stat(target)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{target}, nil
	}
	return loader.Discover(target, "**/*.{yaml,yml}")
}

func validateFile(path string) fileReport {
	report := fileReport{Path: path}

	def, err := loader.Load(path)
	if err != nil {
		report.Error = err.Error()
		return report
	}
	proc, err := loader.Build(def)
	if err != nil {
		report.Error = err.Error()
		return report
	}

	report.Valid = true
	report.Issues = analysis.Lint(proc)
	return report
}

func renderReports(cmd *cobra.Command, reports []fileReport) {
	for _, r := range reports {
		switch {
		case !r.Valid:
			cmd.Println(shared.RenderError(r.Path))
			cmd.Println("  " + r.Error)
		case len(r.Issues) > 0:
			cmd.Println(shared.RenderWarn(r.Path))
			for _, issue := range r.Issues {
				cmd.Println("  " + issue.String())
			}
		default:
			if !shared.GetQuiet() {
				cmd.Println(shared.RenderOK(r.Path))
			}
		}
	}
}
