package main

import (
	"fmt"
	"os"
	"unicode/utf8"

	"github.com/nishad/srafetch/internal/batch"
	"github.com/nishad/srafetch/internal/cli"
	"github.com/nishad/srafetch/internal/errors"
	"github.com/nishad/srafetch/internal/runlist"
	"github.com/nishad/srafetch/internal/tools"
	"github.com/nishad/srafetch/internal/ui"
	"github.com/spf13/cobra"
)

// Version info
var (
	version = "0.1.0"
	commit  = "dev"
	date    = "unknown"
)

type options struct {
	globals   cli.Globals
	projects  []string
	studies   []string
	table     string
	delimiter string
	output    string
	runsOnly  bool
}

func newRootCmd(toolbox *tools.Toolbox) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "srafetch-projects",
		Short: "Download and preprocess SRA runs for a batch of projects",
		Long: `srafetch-projects resolves each project identifier to its sequencing runs,
downloads the raw records, converts them to compressed FASTQ, and files the
results under one directory per study.

A project that fails at any stage is logged and skipped; the remaining
projects are still processed.`,
		Version: cli.Version(version, commit, date),
		Example: `  # Two projects, each in its own study directory
  srafetch-projects -p PRJNA100,PRJNA200 -s Gut,Liver -o ./data

  # Study/project pairs from a CSV table
  srafetch-projects -c studies.csv -o ./data

  # Only write the runinfo tables
  srafetch-projects -p PRJNA100 -o ./data --runs-only`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(opts, toolbox)
		},
	}

	cmd.Flags().StringSliceVarP(&opts.projects, "projects", "p", nil, "Project identifiers to process")
	cmd.Flags().StringVarP(&opts.table, "table", "c", "", "CSV table of study name and project identifier pairs")
	cmd.Flags().StringVar(&opts.delimiter, "delimiter", ",", "Field delimiter of the table (use \\t for tabs)")
	cmd.Flags().StringSliceVarP(&opts.studies, "studies", "s", nil, "Study names paired in order with --projects (default: the project identifiers)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Output directory")
	cmd.Flags().BoolVarP(&opts.runsOnly, "runs-only", "r", false, "Write runinfo tables without downloading")
	cli.AddGlobalFlags(cmd, &opts.globals)

	cmd.MarkFlagRequired("output")
	cmd.MarkFlagsOneRequired("projects", "table")
	cmd.MarkFlagsMutuallyExclusive("projects", "table")
	cmd.MarkFlagsMutuallyExclusive("studies", "table")
	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	cli.SetupGroupedHelp(cmd,
		cli.FlagGroup{Name: "INPUT OPTIONS", Flags: []string{"projects", "studies", "table", "delimiter"}},
		cli.FlagGroup{Name: "OUTPUT OPTIONS", Flags: []string{"output", "runs-only"}},
		cli.GlobalGroup,
	)

	cmd.AddCommand(cli.NewJournalCmd())

	return cmd
}

func run(opts *options, toolbox *tools.Toolbox) error {
	env, err := cli.Setup(opts.globals, toolbox)
	if err != nil {
		return err
	}
	defer env.Close()

	entries, err := loadEntries(opts, env.Log)
	if err != nil {
		return err
	}

	env.CheckTools(true, !opts.runsOnly)

	ctx, cancel := cli.SignalContext(env.Log)
	defer cancel()

	runner := &batch.Runner{Stages: env.Stages(), Log: env.Log, Journal: env.Journal}
	summary, err := runner.Run(ctx, entries, batch.Options{Output: opts.output, RunsOnly: opts.runsOnly})
	if err != nil {
		return err
	}

	// Per-project failures were already reported; they do not change the
	// exit status.
	if failed := summary.Failed(); len(failed) > 0 {
		env.Log.Debugf("%d of %d projects failed", len(failed), len(summary.Results))
	}
	return nil
}

func loadEntries(opts *options, log ui.Logger) ([]runlist.Entry, error) {
	if opts.table == "" {
		return runlist.Pair(opts.projects, opts.studies)
	}
	comma, err := parseDelimiter(opts.delimiter)
	if err != nil {
		return nil, err
	}
	return runlist.ParseTableFile(opts.table, comma, log)
}

func parseDelimiter(s string) (rune, error) {
	const op errors.Op = "parseDelimiter"

	switch s {
	case `\t`, "tab":
		return '\t', nil
	}
	r, size := utf8.DecodeRuneInString(s)
	if s == "" || size != len(s) || r == '\n' || r == '\r' || r == '"' || r == utf8.RuneError {
		return 0, errors.E(op, errors.KindValidation, fmt.Sprintf("invalid delimiter %q", s))
	}
	return r, nil
}

func main() {
	if err := newRootCmd(nil).Execute(); err != nil {
		os.Exit(1)
	}
}
