package tools

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"

	"github.com/nishad/srafetch/internal/errors"
)

// EntrezSearcher runs `esearch -db sra -query P | efetch -format runinfo`.
type EntrezSearcher struct {
	Esearch string
	Efetch  string
	Output  Output
}

// RunInfo returns the runinfo CSV for project. An empty result is an error.
func (s *EntrezSearcher) RunInfo(ctx context.Context, project string) ([]byte, error) {
	const op errors.Op = "tools.RunInfo"

	search := exec.CommandContext(ctx, s.Esearch, "-db", "sra", "-query", project)
	fetch := exec.CommandContext(ctx, s.Efetch, "-format", "runinfo")

	var searchErr, fetchErr, table bytes.Buffer
	search.Stderr = &searchErr
	fetch.Stderr = &fetchErr
	if s.Output.Stderr != nil {
		search.Stderr = s.Output.Stderr
		fetch.Stderr = s.Output.Stderr
	}
	fetch.Stdout = &table

	pipe, err := search.StdoutPipe()
	if err != nil {
		return nil, errors.E(op, errors.KindResolution, err)
	}
	fetch.Stdin = pipe

	if err := search.Start(); err != nil {
		return nil, errors.E(op, errors.KindResolution, err, fmt.Sprintf("cannot start %s", s.Esearch))
	}
	if err := fetch.Start(); err != nil {
		// Nothing reads the pipe now; closing it lets esearch exit.
		pipe.Close()
		search.Wait()
		return nil, errors.E(op, errors.KindResolution, err, fmt.Sprintf("cannot start %s", s.Efetch))
	}

	waitSearch := search.Wait()
	waitFetch := fetch.Wait()
	if waitSearch != nil {
		return nil, errors.E(op, errors.KindResolution, waitSearch, failure(s.Esearch, project, searchErr.String()))
	}
	if waitFetch != nil {
		return nil, errors.E(op, errors.KindResolution, waitFetch, failure(s.Efetch, project, fetchErr.String()))
	}

	if len(bytes.TrimSpace(table.Bytes())) == 0 {
		return nil, errors.E(op, errors.KindResolution, fmt.Sprintf("no runinfo returned for %s", project))
	}
	return table.Bytes(), nil
}

func failure(bin, project, stderr string) string {
	msg := fmt.Sprintf("%s failed for %s", bin, project)
	if tail := lastLines(stderr, stderrTail); tail != "" {
		msg += " (" + tail + ")"
	}
	return msg
}
