// Package study runs the single-study workflow: a caller-supplied run list
// is downloaded, converted and filed under {output}/{study}/{sra,fastq}.
// Any stage failure aborts the run, but the temporary working directory is
// removed on every exit path.
package study

import (
	"context"
	"fmt"
	"strings"

	"github.com/nishad/srafetch/internal/errors"
	"github.com/nishad/srafetch/internal/fsops"
	"github.com/nishad/srafetch/internal/journal"
	"github.com/nishad/srafetch/internal/layout"
	"github.com/nishad/srafetch/internal/runlist"
	"github.com/nishad/srafetch/internal/stages"
	"github.com/nishad/srafetch/internal/tools"
	"github.com/nishad/srafetch/internal/ui"
	"github.com/nishad/srafetch/internal/validator"
)

const workflowName = "study"

// Options identifies the run list and where its study goes.
type Options struct {
	RunsFile string
	Output   string
	Study    string
}

// Runner executes the single-study workflow.
type Runner struct {
	Stages  *stages.Stages
	Log     ui.Logger
	Journal journal.Recorder
}

// Result is the manifest of a completed study.
type Result struct {
	Layout  layout.Study
	Runs    []string
	Records []string // raw records in {study}/sra
	Reads   []string // prefixed reads in {study}/fastq
	Report  fsops.Report
}

// Run executes every stage once. The returned error is the first fatal
// failure; individual file moves that fail are only logged.
func (r *Runner) Run(ctx context.Context, opts Options) (res *Result, err error) {
	const op errors.Op = "study.Run"

	st, err := layout.NewStudy(opts.Output, opts.Study)
	if err != nil {
		return nil, errors.Wrap(op, err)
	}
	res = &Result{Layout: st}

	// Registered before any directory exists so a partly created layout
	// still loses its temp directory.
	defer func() {
		r.Log.Infof("Cleaning up temporary directory: %s", st.Temp())
		if out := fsops.RemoveAll(st.Temp()); !out.OK() {
			r.Log.Errorf("Error removing temporary directory: %v", out.Err)
		}
		if err == nil {
			return
		}
		if code := tools.ExitCode(err); code >= 0 {
			r.Log.Errorf("Study %s failed (exit status %d): %v", st.Name, code, err)
		} else {
			r.Log.Errorf("Study %s failed: %v", st.Name, err)
		}
	}()

	r.Log.Infof("Creating study directory: %s", st.Dir())
	if err := layout.Ensure(st.Dir(), st.Temp(), st.Fastq(), st.SRA()); err != nil {
		return res, errors.Wrap(op, err)
	}

	runs, err := runlist.ReadFile(opts.RunsFile)
	if err != nil {
		r.record(st, stages.StageResolve, journal.StatusFailed, 0, err.Error())
		return res, errors.WrapMsg(op, fmt.Sprintf("runs file %s", opts.RunsFile), err)
	}
	res.Runs = runlist.Dedup(runs)
	r.record(st, stages.StageResolve, journal.StatusOK, len(res.Runs), opts.RunsFile)
	if bad := validator.UnrecognizedRuns(res.Runs); len(bad) > 0 {
		r.Log.Warnf("%d entries in %s do not look like run accessions: %s",
			len(bad), opts.RunsFile, strings.Join(bad, ", "))
	}

	if len(res.Runs) == 0 {
		r.Log.Warnf("Run list %s is empty; nothing to download", opts.RunsFile)
	} else {
		r.Log.Infof("Starting download of %d runs from: %s", len(res.Runs), opts.RunsFile)
	}
	retrieval, err := r.Stages.Retrieve(ctx, st.Temp(), res.Runs)
	if err != nil {
		r.record(st, stages.StageRetrieve, journal.StatusFailed, 0, err.Error())
		return res, errors.Wrap(op, err)
	}
	retrieval.Report.Log(r.Log, fmt.Sprintf("study %s", st.Name))
	for _, acc := range retrieval.Missing {
		r.Log.Warnf("No .sra file found for %s after prefetch", acc)
	}
	r.recordOutcomes(st, stages.StageRetrieve, len(retrieval.Records), retrieval.Report)

	conversion, err := r.Stages.Convert(ctx, st.Temp(), retrieval.Records)
	if err != nil {
		r.record(st, stages.StageConvert, journal.StatusFailed, 0, err.Error())
		return res, errors.Wrap(op, err)
	}
	r.record(st, stages.StageConvert, journal.StatusOK, len(conversion.Reads), "")

	if len(conversion.Reads) == 0 {
		r.Log.Warnf("No fastq.gz files found to move")
	} else {
		r.Log.Infof("Moving and renaming %d fastq.gz files", len(conversion.Reads))
	}
	reads := stages.FileReads(conversion.Reads, st.Fastq(), st.Prefixed)
	res.Report.Add(reads.Outcomes...)
	res.Reads = reads.Succeeded()

	if len(retrieval.Records) == 0 {
		r.Log.Warnf("No .sra files found to move")
	} else {
		r.Log.Infof("Moving %d .sra files to sra directory", len(retrieval.Records))
	}
	records := stages.FileRecords(retrieval.Records, st.SRA())
	res.Report.Add(records.Outcomes...)
	res.Records = records.Succeeded()

	res.Report.Log(r.Log, fmt.Sprintf("study %s", st.Name))
	r.recordOutcomes(st, stages.StageOrganize, len(res.Reads), res.Report)

	r.Log.Successf("Completed processing SRA data for study: %s", st.Name)
	return res, nil
}

func (r *Runner) stageRecord(st layout.Study, stage, status string, items int, detail string) journal.StageRecord {
	return journal.StageRecord{
		Workflow: workflowName,
		Study:    st.Name,
		Stage:    stage,
		Status:   status,
		Items:    items,
		Detail:   detail,
	}
}

func (r *Runner) record(st layout.Study, stage, status string, items int, detail string) {
	if r.Journal == nil {
		return
	}
	if err := r.Journal.RecordStage(r.stageRecord(st, stage, status, items, detail)); err != nil {
		r.Log.Warnf("Failed to write journal entry: %v", err)
	}
}

func (r *Runner) recordOutcomes(st layout.Study, stage string, items int, report fsops.Report) {
	if r.Journal == nil {
		return
	}
	status := journal.StatusOK
	detail := ""
	if failed := report.Failed(); len(failed) > 0 {
		status = journal.StatusFailed
		detail = fmt.Sprintf("%d file operations failed", len(failed))
	}
	if err := r.Journal.RecordOutcomes(r.stageRecord(st, stage, status, items, detail), report.Outcomes); err != nil {
		r.Log.Warnf("Failed to write journal entry: %v", err)
	}
}
