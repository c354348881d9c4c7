package main

import (
	"github.com/stagegate/stagegate/internal/cli"
	"github.com/stagegate/stagegate/internal/commands/evaluate"
	"github.com/stagegate/stagegate/internal/commands/graph"
	"github.com/stagegate/stagegate/internal/commands/validate"
	versioncmd "github.com/stagegate/stagegate/internal/commands/version"
)

// Version information (injected via ldflags at build time)
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	cli.SetVersion(version, commit, buildDate)

	rootCmd := cli.NewRootCommand()
	rootCmd.AddCommand(evaluate.NewCommand())
	rootCmd.AddCommand(validate.NewCommand())
	rootCmd.AddCommand(graph.NewCommand())
	rootCmd.AddCommand(versioncmd.NewCommand())

	if err := rootCmd.Execute(); err != nil {
		cli.HandleExitError(err)
	}
}
