package main

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"multiwindow-go/domain/report"
	"multiwindow-go/domain/scenario"
)

func newListCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the available scenarios",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer a.close()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tSTEPS\tDESCRIPTION")
			for _, sc := range a.scenarios.All() {
				fmt.Fprintf(w, "%s\t%d\t%s\n", sc.Name, sc.CountSteps(), sc.Description)
			}
			return w.Flush()
		},
	}
}

func newRunCommand(flags *globalFlags) *cobra.Command {
	var (
		all   bool
		files []string
	)

	cmd := &cobra.Command{
		Use:   "run [scenario...]",
		Short: "Run scenarios, each in its own browser session",
		Long: `Run the named scenarios, every scenario with --all, or scenario files
given with --file. Each scenario gets a fresh browser session; a failing
scenario does not stop the others.

The command exits non-zero when any scenario fails or is cancelled.`,
		Example: `  multiwindow run new_window window_close
  multiwindow run --all --parallel 4 --headless
  multiwindow run --driver webdriver --file ./login.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags.headlessSet = cmd.Flags().Changed("headless")

			a, err := newApp(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer a.close()

			var scenarios []*scenario.Scenario
			switch {
			case all:
				scenarios = a.scenarios.All()
			case len(args) > 0:
				scenarios, err = a.scenarios.Lookup(args...)
				if err != nil {
					return err
				}
			}
			loader := scenario.NewLoader(a.scenarios)
			for _, f := range files {
				sc, err := loader.LoadFile(f)
				if err != nil {
					return err
				}
				scenarios = append(scenarios, sc)
			}
			if len(scenarios) == 0 {
				return errors.New("no scenarios given; name some, pass --file or use --all")
			}

			runner := a.newRunner()
			reports, err := runner.RunAll(cmd.Context(), scenarios)
			printReports(cmd.OutOrStdout(), reports)
			if err != nil {
				return err
			}
			for _, rep := range reports {
				if !rep.Passed() {
					return errScenariosFailed
				}
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.BoolVar(&all, "all", false, "run every scenario")
	f.StringSliceVarP(&files, "file", "f", nil, "scenario YAML file to run (repeatable)")
	f.StringVar(&flags.driver, "driver", "", "browser backend: chromedp or webdriver")
	f.BoolVar(&flags.headless, "headless", false, "run the browser without a visible window")
	f.IntVarP(&flags.parallel, "parallel", "p", 0, "scenarios run at once")
	f.StringVar(&flags.artifactsDir, "artifacts", "", "directory for screenshots")
	return cmd
}

func newReportsCommand(flags *globalFlags) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "reports <scenario>",
		Short: "Show the latest saved reports of a scenario",
		Long: `Show the latest saved reports of a scenario, newest first.

Reports are only kept across runs when MongoDB persistence is enabled.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer a.close()

			reports, err := a.reports.FindByScenario(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			printReports(cmd.OutOrStdout(), reports)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "maximum reports to show, 0 for all")
	return cmd
}

func printReports(out io.Writer, reports []*report.Report) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SCENARIO\tSTATUS\tDURATION\tWAITED\tWINDOWS\tERROR")
	for _, rep := range reports {
		if rep == nil {
			continue
		}
		detail := rep.Error
		if rep.ErrorKind != report.KindNone {
			detail = fmt.Sprintf("[%s] step %d %s: %s", rep.ErrorKind, rep.FailedStep, rep.FailedCommand, rep.Error)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
			rep.Scenario,
			rep.Status,
			rep.Duration().Round(time.Millisecond),
			rep.WaitElapsed.Round(time.Millisecond),
			len(rep.Windows),
			detail)
	}
	_ = w.Flush()
}
