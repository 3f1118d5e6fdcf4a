package tools

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/nishad/srafetch/internal/errors"
)

// ParallelDispatcher fans work out through GNU parallel, feeding inputs on
// stdin and running `parallel -jN argv... {}` in the target directory.
type ParallelDispatcher struct {
	Parallel string
	Jobs     int // 0 means no limit
	Output   Output
}

// Dispatch implements Dispatcher. No inputs means nothing to run.
func (d *ParallelDispatcher) Dispatch(ctx context.Context, dir string, argv []string, inputs []string) error {
	if len(inputs) == 0 {
		return nil
	}
	if len(argv) == 0 {
		return fmt.Errorf("dispatch: empty command")
	}

	args := []string{fmt.Sprintf("-j%d", d.Jobs)}
	args = append(args, argv...)
	args = append(args, "{}")

	cmd := exec.CommandContext(ctx, d.Parallel, args...)
	cmd.Dir = dir
	cmd.Stdin = strings.NewReader(strings.Join(inputs, "\n") + "\n")
	return d.Output.run(cmd)
}

// Prefetch downloads raw records with the SRA toolkit prefetch program.
type Prefetch struct {
	Bin        string
	Dispatcher Dispatcher
}

// Fetch implements Fetcher.
func (p *Prefetch) Fetch(ctx context.Context, dir string, accessions []string) error {
	const op errors.Op = "tools.Fetch"

	if err := p.Dispatcher.Dispatch(ctx, dir, []string{p.Bin}, accessions); err != nil {
		return errors.E(op, errors.KindRetrieval, err, fmt.Sprintf("%s failed", p.Bin))
	}
	return nil
}

// FastqDump converts raw records, splitting paired-end reads into _1 and _2
// files and keeping the original read names.
type FastqDump struct {
	Bin        string
	Dispatcher Dispatcher
}

// Args is the per-record command line handed to the dispatcher.
func (f *FastqDump) Args() []string {
	return []string{f.Bin, "--split-files", "--origfmt"}
}

// Convert implements Converter.
func (f *FastqDump) Convert(ctx context.Context, dir string, records []string) error {
	const op errors.Op = "tools.Convert"

	names := make([]string, len(records))
	for i, r := range records {
		names[i] = relativeTo(dir, r)
	}
	if err := f.Dispatcher.Dispatch(ctx, dir, f.Args(), names); err != nil {
		return errors.E(op, errors.KindConversion, err, fmt.Sprintf("%s failed", f.Bin))
	}
	return nil
}

// relativeTo shortens path when it lives directly in dir.
func relativeTo(dir, path string) string {
	if filepath.Dir(path) == filepath.Clean(dir) {
		return filepath.Base(path)
	}
	return path
}
