// Package evaluate implements the `stagegate evaluate` command: load a
// process definition, evaluate one or more elements, and render the results.
package evaluate

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/stagegate/stagegate/internal/commands/shared"
	"github.com/stagegate/stagegate/internal/log"
	"github.com/stagegate/stagegate/pkg/element"
	"github.com/stagegate/stagegate/pkg/loader"
	"github.com/stagegate/stagegate/pkg/process"
	"github.com/stagegate/stagegate/pkg/status"
)

type options struct {
	definitionPath string
	elementPaths   []string
	stage          string
	extract        string
	showHistory    bool
}

// NewCommand creates the evaluate command.
func NewCommand() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "evaluate -f definition.yaml -e element.yaml [-e element.yaml ...]",
		Short: "Evaluate elements against a process definition",
		Long: `Evaluate loads a YAML process definition, evaluates each element
against it, and reports the resulting workflow state with remediation
actions. Elements are YAML or JSON records.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvaluate(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.definitionPath, "file", "f", "", "Process definition file (required)")
	cmd.Flags().StringArrayVarP(&opts.elementPaths, "element", "e", nil, "Element file, repeatable (required)")
	cmd.Flags().StringVar(&opts.stage, "stage", "", "Known current stage of the element")
	cmd.Flags().StringVar(&opts.extract, "extract", "", "jq expression applied to each result")
	cmd.Flags().BoolVar(&opts.showHistory, "history", false, "Print the recorded transition history")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("element")

	return cmd
}

func runEvaluate(cmd *cobra.Command, opts options) error {
	def, err := loader.Load(opts.definitionPath)
	if err != nil {
		return shared.NewInvalidDefinitionError("failed to load definition", err)
	}

	buildOpts := []loader.BuildOption{}
	if shared.GetVerbose() {
		logger := log.New(&log.Config{Level: "debug", Format: log.FormatText, Output: cmd.ErrOrStderr()})
		buildOpts = append(buildOpts, loader.WithProcessOptions(process.WithLogger(logger)))
	}

	proc, err := loader.Build(def, buildOpts...)
	if err != nil {
		return shared.NewInvalidDefinitionError("failed to build process", err)
	}

	failed := false
	for _, path := range opts.elementPaths {
		el, err := loadElement(path)
		if err != nil {
			return shared.NewMissingInputError(fmt.Sprintf("failed to load element %s", path), err)
		}

		res := proc.Evaluate(el, opts.stage)
		if len(res.Errors) > 0 {
			failed = true
		}

		if err := renderResult(cmd, proc, res, opts); err != nil {
			return err
		}
	}

	if failed {
		return shared.NewEvaluationError("one or more evaluations reported errors", nil)
	}
	return nil
}

func loadElement(path string) (element.Element, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var record map[string]any
	if err := yaml.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("parse element: %w", err)
	}
	return element.New(record), nil
}

func renderResult(cmd *cobra.Command, proc *process.Process, res *status.StatusResult, opts options) error {
	if opts.extract != "" {
		v, err := element.RunQuery(opts.extract, res.ToMap())
		if err != nil {
			return shared.NewEvaluationError("extract query failed", err)
		}
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to marshal extracted value: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if shared.GetJSON() {
		out := map[string]any{"result": res}
		if opts.showHistory {
			if h, ok := proc.History(res.ElementID); ok {
				out["history"] = h
			}
		}
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal result: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	renderText(cmd, proc, res, opts)
	return nil
}

func renderText(cmd *cobra.Command, proc *process.Process, res *status.StatusResult, opts options) {
	cmd.Printf("%s element %s\n", shared.RenderState(res.State), res.ElementID)
	if res.CurrentStage != "" {
		cmd.Printf("  %s %s\n", shared.RenderLabel("stage:"), res.CurrentStage)
	}
	if res.ProposedStage != "" && res.ProposedStage != res.CurrentStage {
		cmd.Printf("  %s %s\n", shared.RenderLabel("proposed:"), res.ProposedStage)
	}
	for _, msg := range res.Errors {
		cmd.Println("  " + shared.RenderError(msg))
	}
	for _, msg := range res.Warnings {
		cmd.Println("  " + shared.RenderWarn(msg))
	}
	if !shared.GetQuiet() {
		for _, a := range res.Actions {
			cmd.Printf("  %s %s %s\n", shared.SymbolInfo, a.Description, shared.RenderPriority(a.Priority))
		}
	}

	if opts.showHistory {
		if h, ok := proc.History(res.ElementID); ok {
			cmd.Printf("  %s %d evaluations\n", shared.RenderLabel("history:"), h.EvaluationCount)
			for _, t := range h.Transitions {
				stageNote := ""
				if t.Stage != "" {
					stageNote = " @ " + t.Stage
				}
				cmd.Printf("    %s -> %s%s: %s\n", orEntry(string(t.FromState)), t.ToState, stageNote, t.Reason)
			}
		}
	}
}

func orEntry(s string) string {
	if s == "" {
		return "(start)"
	}
	return s
}
