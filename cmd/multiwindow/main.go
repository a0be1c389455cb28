// Package main is the entry point for the multiwindow command.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// errScenariosFailed makes the process exit non-zero without printing twice.
var errScenariosFailed = errors.New("one or more scenarios did not pass")

type globalFlags struct {
	configPath   string
	scenarioDir  string
	driver       string
	headless     bool
	headlessSet  bool
	parallel     int
	artifactsDir string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCommand()
	if err := root.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errScenariosFailed) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		stop()
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "multiwindow",
		Short: "Run multi-window browser scenarios",
		Long: `Run browser automation scenarios that open, switch between and close
windows, and wait for pages and elements with implicit, explicit and
fluent waits.

Configuration is read from --config, then MULTIWINDOW_* environment
variables, then command-line flags.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", "", "path to a YAML config file")
	pf.StringVar(&flags.scenarioDir, "scenarios", "", "directory with extra scenario YAML files")

	root.AddCommand(
		newListCommand(flags),
		newRunCommand(flags),
		newReportsCommand(flags),
	)
	return root
}
