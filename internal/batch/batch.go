// Package batch runs the project workflow: for every (study, project) pair
// it resolves the project's runs, downloads and converts them, and files
// the results under the study directory. A failing project is logged and
// the loop moves on to the next one.
package batch

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

const workflowName = "batch"

// Options controls one batch invocation.
type Options struct {
	Output   string
	RunsOnly bool // write runinfo tables and stop
}

// Runner executes the batch workflow.
type Runner struct {
	Stages  *stages.Stages
	Log     ui.Logger
	Journal journal.Recorder
}

// Result describes what happened to one project.
type Result struct {
	Entry   runlist.Entry
	Runs    []string
	Records []string // raw records filed under {study}/sra
	Reads   []string // prefixed read files in {study}
	Report  fsops.Report

	FailedStage string
	Err         error
}

// OK reports whether the project went through every stage.
func (r *Result) OK() bool { return r.Err == nil }

// Summary collects the per-project results of a run.
type Summary struct {
	Results []*Result
}

// Failed returns the results of projects that did not complete.
func (s *Summary) Failed() []*Result {
	var failed []*Result
	for _, r := range s.Results {
		if !r.OK() {
			failed = append(failed, r)
		}
	}
	return failed
}

// Run processes entries one after another. It returns an error only when
// the input itself is unusable; per-project failures are reported in the
// summary and never stop the loop.
func (r *Runner) Run(ctx context.Context, entries []runlist.Entry, opts Options) (*Summary, error) {
	const op errors.Op = "batch.Run"

	if len(entries) == 0 {
		return nil, errors.E(op, errors.KindValidation, "no projects to process")
	}
	for _, e := range entries {
		if _, err := layout.NewStudy(opts.Output, e.Study); err != nil {
			return nil, errors.Wrap(op, err)
		}
		if err := layout.CheckProject(e.Project); err != nil {
			return nil, errors.Wrap(op, err)
		}
		if !validator.IsProjectLike(e.Project) {
			r.Log.Warnf("%s does not look like a project accession; passing it to the archive search as is", e.Project)
		}
	}

	root, _ := layout.NewStudy(opts.Output, entries[0].Study)
	if err := layout.Ensure(root.Root); err != nil {
		return nil, errors.Wrap(op, err)
	}

	summary := &Summary{}
	for _, e := range entries {
		r.Log.Infof("Processing project: %s (Study: %s)", e.Project, e.Study)
		res := r.processProject(ctx, e, opts)
		summary.Results = append(summary.Results, res)

		if res.OK() {
			r.Log.Successf("Completed processing project: %s from Study %s", e.Project, e.Study)
		} else {
			stage := res.FailedStage
			if code := tools.ExitCode(res.Err); code >= 0 {
				stage = fmt.Sprintf("%s (exit status %d)", stage, code)
			}
			r.Log.Errorf("Error processing project %s (study %s) during %s: %v", e.Project, e.Study, stage, res.Err)
		}
	}

	r.logSummary(summary)
	return summary, nil
}

func (r *Runner) processProject(ctx context.Context, e runlist.Entry, opts Options) *Result {
	res := &Result{Entry: e}

	study, err := layout.NewStudy(opts.Output, e.Study)
	if err != nil {
		return r.fail(res, stages.StageResolve, err)
	}
	if err := layout.Ensure(study.Dir()); err != nil {
		return r.fail(res, stages.StageResolve, err)
	}
	runList := study.RunList(e.Project)

	if opts.RunsOnly {
		r.Log.Infof("Generating run file for project: %s", e.Project)
		n, err := r.Stages.WriteRunInfo(ctx, e.Project, runList)
		if err != nil {
			return r.fail(res, stages.StageResolve, err)
		}
		r.record(res, stages.StageResolve, journal.StatusOK, n, "runinfo table")
		r.Log.Infof("Generated run file for project: %s at %s", e.Project, runList)
		return res
	}

	r.Log.Infof("Generating run accessions list for project: %s", e.Project)
	runs, err := r.Stages.ResolveRuns(ctx, e.Project, runList)
	if err != nil {
		return r.fail(res, stages.StageResolve, err)
	}
	res.Runs = runs
	r.record(res, stages.StageResolve, journal.StatusOK, len(runs), runList)
	if bad := validator.UnrecognizedRuns(runs); len(bad) > 0 {
		r.Log.Warnf("Run list for %s has %d entries that do not look like run accessions: %s",
			e.Project, len(bad), strings.Join(bad, ", "))
	}

	work := study.ProjectWork(e.Project)
	if err := layout.Ensure(work); err != nil {
		return r.fail(res, stages.StageRetrieve, err)
	}

	r.Log.Infof("Downloading SRA files for project: %s", e.Project)
	retrieval, err := r.Stages.Retrieve(ctx, work, runs)
	if err != nil {
		return r.fail(res, stages.StageRetrieve, err)
	}
	retrieval.Report.Log(r.Log, fmt.Sprintf("project %s", e.Project))
	for _, acc := range retrieval.Missing {
		r.Log.Warnf("No SRA file found for %s after download", acc)
	}
	r.recordOutcomes(res, stages.StageRetrieve, len(retrieval.Records), retrieval.Report)

	conversion, err := r.Stages.Convert(ctx, work, retrieval.Records)
	if err != nil {
		return r.fail(res, stages.StageConvert, err)
	}
	r.record(res, stages.StageConvert, journal.StatusOK, len(conversion.Reads), "")

	r.organize(res, study, work, retrieval.Records, conversion.Reads)
	return res
}

// organize stages compressed reads in {work}/fastq, files raw records in
// {study}/sra, then renames the staged reads with the study prefix into
// {study}. The staging directory is dropped once empty.
func (r *Runner) organize(res *Result, study layout.Study, work string, records, reads []string) {
	e := res.Entry
	staging := study.ProjectStaging(e.Project)
	if err := layout.Ensure(staging, study.SRA()); err != nil {
		r.fail(res, stages.StageOrganize, err)
		return
	}

	staged := fsops.MoveAllInto(reads, staging)
	res.Report.Add(staged.Outcomes...)

	filed := stages.FileRecords(records, study.SRA())
	res.Report.Add(filed.Outcomes...)
	res.Records = filed.Succeeded()

	r.Log.Infof("Renaming and moving FASTQ files with study prefix: %s", study.Name)
	final := stages.FileReads(staged.Succeeded(), study.Dir(), study.Prefixed)
	res.Report.Add(final.Outcomes...)
	res.Reads = final.Succeeded()
	for _, o := range final.Outcomes {
		if o.OK() {
			r.Log.Infof("Moved: %s -> %s", o.Source, o.Target)
		}
	}

	removed, out := fsops.RemoveIfEmpty(staging)
	if removed {
		r.Log.Infof("Removing empty fastq directory")
	}
	if !out.OK() {
		res.Report.Add(out)
	}

	res.Report.Log(r.Log, fmt.Sprintf("project %s", e.Project))
	r.recordOutcomes(res, stages.StageOrganize, len(res.Reads), res.Report)
}

func (r *Runner) fail(res *Result, stage string, err error) *Result {
	res.FailedStage = stage
	res.Err = err
	r.record(res, stage, journal.StatusFailed, 0, err.Error())
	return res
}

func (r *Runner) stageRecord(res *Result, stage, status string, items int, detail string) journal.StageRecord {
	return journal.StageRecord{
		Workflow: workflowName,
		Study:    res.Entry.Study,
		Project:  res.Entry.Project,
		Stage:    stage,
		Status:   status,
		Items:    items,
		Detail:   detail,
	}
}

func (r *Runner) record(res *Result, stage, status string, items int, detail string) {
	if r.Journal == nil {
		return
	}
	if err := r.Journal.RecordStage(r.stageRecord(res, stage, status, items, detail)); err != nil {
		r.Log.Warnf("Failed to write journal entry: %v", err)
	}
}

func (r *Runner) recordOutcomes(res *Result, stage string, items int, report fsops.Report) {
	if r.Journal == nil {
		return
	}
	status := journal.StatusOK
	detail := ""
	if failed := report.Failed(); len(failed) > 0 {
		status = journal.StatusFailed
		detail = fmt.Sprintf("%d file operations failed", len(failed))
	}
	if err := r.Journal.RecordOutcomes(r.stageRecord(res, stage, status, items, detail), report.Outcomes); err != nil {
		r.Log.Warnf("Failed to write journal entry: %v", err)
	}
}

func (r *Runner) logSummary(s *Summary) {
	failed := s.Failed()
	r.Log.Infof("Processed %d projects: %d completed, %d failed",
		len(s.Results), len(s.Results)-len(failed), len(failed))
	for _, f := range failed {
		r.Log.Errorf("  %s (%s): %s failed", f.Entry.Project, f.Entry.Study, f.FailedStage)
	}
}
