package cli

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/nishad/srafetch/internal/config"
	"github.com/nishad/srafetch/internal/errors"
	"github.com/nishad/srafetch/internal/journal"
	"github.com/nishad/srafetch/internal/paths"
	"github.com/spf13/cobra"
)

// NewJournalCmd creates the journal command, which prints what earlier
// runs recorded for a study.
func NewJournalCmd() *cobra.Command {
	var journalFlag, configFlag string

	cmd := &cobra.Command{
		Use:   "journal <study>",
		Short: "Show recorded stage results for a study",
		Long: `Show the stage results and failed file operations recorded for a study.

Runs are only recorded when --journal was given or the config enables the
journal.`,
		Example: `  # Inspect the runs recorded in the default journal
  srafetch-runs journal Gut

  # Inspect a specific journal file
  srafetch-projects journal Liver --journal ./runs.db`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := resolveJournal(journalFlag, configFlag)
			if err != nil {
				return err
			}
			return showJournal(cmd.OutOrStdout(), path, args[0])
		},
	}

	cmd.Flags().StringVar(&journalFlag, "journal", "", "Journal database to read")
	cmd.Flags().StringVar(&configFlag, "config", "", "Path to config file")

	return cmd
}

func resolveJournal(flag, configFlag string) (string, error) {
	const op errors.Op = "cli.resolveJournal"

	path := flag
	if path == "" {
		cfg, err := loadConfig(configFlag)
		if err != nil {
			return "", err
		}
		path = cfg.Journal.Path
		if path == "" {
			path = paths.GetJournalPath()
		}
	}

	if _, err := os.Stat(path); err != nil {
		return "", errors.E(op, errors.KindConfig, err, fmt.Sprintf("no journal at %s", path))
	}
	return path, nil
}

func showJournal(w io.Writer, path, study string) error {
	j, err := journal.Open(path)
	if err != nil {
		return err
	}
	defer j.Close()

	records, err := j.Stages(study)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintf(w, "No stages recorded for study %s in %s\n", study, path)
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tWORKFLOW\tPROJECT\tSTAGE\tSTATUS\tITEMS\tDETAIL")
	for _, r := range records {
		project := r.Project
		if project == "" {
			project = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
			r.At.Local().Format("2006-01-02 15:04:05"), r.Workflow, project, r.Stage, r.Status, r.Items, r.Detail)
	}
	tw.Flush()

	failed, err := j.FailedOps(study)
	if err != nil {
		return err
	}
	if len(failed) > 0 {
		fmt.Fprintf(w, "\nFailed file operations (%d):\n", len(failed))
		for _, o := range failed {
			fmt.Fprintf(w, "  %s\n", o)
		}
	}
	return nil
}

// loadConfig loads the config named by explicit, or the discovered one.
func loadConfig(explicit string) (*config.Config, error) {
	if explicit != "" {
		return config.LoadExplicit(explicit)
	}
	return config.Load(config.GetConfigPath(""))
}
