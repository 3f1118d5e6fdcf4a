package main

import (
	"os"

	"github.com/nishad/srafetch/internal/cli"
	"github.com/nishad/srafetch/internal/study"
	"github.com/nishad/srafetch/internal/tools"
	"github.com/spf13/cobra"
)

// Version info
var (
	version = "0.1.0"
	commit  = "dev"
	date    = "unknown"
)

type options struct {
	globals cli.Globals
	study   study.Options
}

func newRootCmd(toolbox *tools.Toolbox) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "srafetch-runs",
		Short: "Download and preprocess the SRA runs of one study",
		Long: `srafetch-runs downloads every run named in a run-list file, converts the
raw records to compressed FASTQ, and files them under the study directory:

  {output}/{study}/fastq/{study}_{file}.fastq.gz
  {output}/{study}/sra/{run}.sra

The first failing stage aborts the run with a non-zero exit status. The
temporary working directory is removed either way.`,
		Version: cli.Version(version, commit, date),
		Example: `  # Process the runs listed in runs.txt as study "Gut"
  srafetch-runs -r runs.txt -o ./data -s Gut`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(opts, toolbox)
		},
	}

	cmd.Flags().StringVarP(&opts.study.RunsFile, "runs", "r", "", "File with one run accession per line")
	cmd.Flags().StringVarP(&opts.study.Output, "output", "o", "", "Output directory")
	cmd.Flags().StringVarP(&opts.study.Study, "study", "s", "", "Study name used for the directory and file prefix")
	cli.AddGlobalFlags(cmd, &opts.globals)

	cmd.MarkFlagRequired("runs")
	cmd.MarkFlagRequired("output")
	cmd.MarkFlagRequired("study")
	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	cli.SetupGroupedHelp(cmd,
		cli.FlagGroup{Name: "INPUT OPTIONS", Flags: []string{"runs", "study"}},
		cli.FlagGroup{Name: "OUTPUT OPTIONS", Flags: []string{"output"}},
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

	env.CheckTools(false, true)

	ctx, cancel := cli.SignalContext(env.Log)
	defer cancel()

	runner := &study.Runner{Stages: env.Stages(), Log: env.Log, Journal: env.Journal}
	_, err = runner.Run(ctx, opts.study)
	return err
}

func main() {
	if err := newRootCmd(nil).Execute(); err != nil {
		os.Exit(1)
	}
}
