// Package tools wraps the external archive and conversion programs behind
// small interfaces. The workflows only see these interfaces, so tests can
// substitute fakes that create the files the real programs would.
package tools

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

// Searcher resolves a project identifier to its runinfo table.
type Searcher interface {
	RunInfo(ctx context.Context, project string) ([]byte, error)
}

// Dispatcher runs argv once per input inside dir, in parallel, and returns
// only after every unit finished. It fails if any unit failed.
type Dispatcher interface {
	Dispatch(ctx context.Context, dir string, argv []string, inputs []string) error
}

// Fetcher downloads the raw record of each accession into dir.
type Fetcher interface {
	Fetch(ctx context.Context, dir string, accessions []string) error
}

// Converter turns each raw record in dir into read files next to it.
type Converter interface {
	Convert(ctx context.Context, dir string, records []string) error
}

// Compressor gzips each file in place, replacing name with name.gz.
type Compressor interface {
	Compress(ctx context.Context, dir string, files []string) error
}

// Output says where subprocess output goes. A nil Stdout discards it; a
// nil Stderr captures it so the tail can be attached to errors.
type Output struct {
	Stdout io.Writer
	Stderr io.Writer
}

// stderrTail is how many trailing lines of captured stderr an error keeps.
const stderrTail = 5

func (o Output) run(cmd *exec.Cmd) error {
	var captured bytes.Buffer
	cmd.Stdout = o.Stdout
	if o.Stderr != nil {
		cmd.Stderr = o.Stderr
	} else {
		cmd.Stderr = &captured
	}

	err := cmd.Run()
	if err == nil {
		return nil
	}
	if tail := lastLines(captured.String(), stderrTail); tail != "" {
		return fmt.Errorf("%s: %w: %s", cmd.Args[0], err, tail)
	}
	return fmt.Errorf("%s: %w", cmd.Args[0], err)
}

func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.TrimSpace(strings.Join(lines, "; "))
}

// ExitCode returns the exit status carried by err, or -1.
func ExitCode(err error) int {
	for err != nil {
		if ee, ok := err.(*exec.ExitError); ok {
			return ee.ExitCode()
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return -1
}
