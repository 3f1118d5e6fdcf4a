// Package cli holds the plumbing shared by the srafetch commands: global
// flags, config loading, and construction of the printer, toolbox and
// journal a workflow runs against.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nishad/srafetch/internal/config"
	"github.com/nishad/srafetch/internal/journal"
	"github.com/nishad/srafetch/internal/paths"
	"github.com/nishad/srafetch/internal/stages"
	"github.com/nishad/srafetch/internal/tools"
	"github.com/nishad/srafetch/internal/ui"
	"github.com/spf13/cobra"
)

// Globals are the flags every command accepts.
type Globals struct {
	Verbose bool
	Quiet   bool
	NoColor bool
	Config  string
	Journal string
}

// AddGlobalFlags registers g on cmd.
func AddGlobalFlags(cmd *cobra.Command, g *Globals) {
	cmd.Flags().BoolVarP(&g.Verbose, "verbose", "v", false, "Enable debug output and stream external tool output")
	cmd.Flags().BoolVarP(&g.Quiet, "quiet", "q", false, "Suppress non-error output")
	cmd.Flags().BoolVar(&g.NoColor, "no-color", false, "Disable colored output")
	cmd.Flags().StringVar(&g.Config, "config", "", "Path to config file")
	cmd.Flags().StringVar(&g.Journal, "journal", "", "Record stage results in this SQLite journal")
}

// Env is everything a workflow needs at run time.
type Env struct {
	Log     *ui.Printer
	Config  *config.Config
	Tools   *tools.Toolbox
	Journal journal.Recorder
	Spin    func(message string, fn func() error) error

	closeJournal func() error
}

// Setup loads configuration and builds the runtime environment. The
// toolbox is built from config unless toolbox is non-nil.
func Setup(g Globals, toolbox *tools.Toolbox) (*Env, error) {
	if g.NoColor || os.Getenv("NO_COLOR") != "" {
		ui.DisableColor()
	}
	log := ui.NewPrinter(g.Quiet, g.Verbose)

	cfg, err := loadConfig(g.Config)
	if err != nil {
		return nil, err
	}
	log.Debugf("Using config: %s", config.GetConfigPath(g.Config))

	env := &Env{Log: log, Config: cfg, Tools: toolbox, Journal: journal.Nop{}}

	if env.Tools == nil {
		out := tools.Output{}
		if g.Verbose {
			out = tools.Output{Stdout: os.Stderr, Stderr: os.Stderr}
		}
		env.Tools = tools.New(cfg, out)
	}

	// A spinner would interleave with streamed tool output.
	if !g.Verbose && !g.Quiet {
		env.Spin = ui.ShowSpinner
	}

	if path := journalPath(g, cfg); path != "" {
		j, err := journal.Open(path)
		if err != nil {
			return nil, err
		}
		log.Debugf("Recording stages in journal: %s", j.Path())
		env.Journal = j
		env.closeJournal = j.Close
	}

	return env, nil
}

func journalPath(g Globals, cfg *config.Config) string {
	if g.Journal != "" {
		return g.Journal
	}
	if !cfg.Journal.Enabled {
		return ""
	}
	if cfg.Journal.Path != "" {
		return cfg.Journal.Path
	}
	return paths.GetJournalPath()
}

// Stages returns stage logic bound to the environment.
func (e *Env) Stages() *stages.Stages {
	return &stages.Stages{Tools: e.Tools, Log: e.Log, Spin: e.Spin}
}

// CheckTools warns about configured programs that are not on PATH.
func (e *Env) CheckTools(needSearch, needDownload bool) {
	for _, bin := range tools.Missing(e.Config, needSearch, needDownload) {
		e.Log.Warnf("%s not found on PATH; stages that need it will fail", bin)
	}
}

// Close releases the journal, if one was opened.
func (e *Env) Close() {
	if e.closeJournal == nil {
		return
	}
	if err := e.closeJournal(); err != nil {
		e.Log.Warnf("Failed to close journal: %v", err)
	}
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM. Running
// subprocesses are killed through their context.
func SignalContext(log ui.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigChan:
			log.Warnf("Interrupted, cleaning up...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}

// Version formats build information for cobra.
func Version(version, commit, date string) string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)
}
