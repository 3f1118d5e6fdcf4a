package tools

import (
	"os/exec"

	"github.com/nishad/srafetch/internal/config"
)

// Toolbox bundles the collaborators a workflow needs.
type Toolbox struct {
	Searcher   Searcher
	Fetcher    Fetcher
	Converter  Converter
	Compressor Compressor
}

// LookPath is swapped in tests.
var LookPath = exec.LookPath

// New builds the real external-program toolbox described by cfg. When pigz
// is missing and the config allows it, compression falls back to pgzip.
func New(cfg *config.Config, out Output) *Toolbox {
	dispatcher := &ParallelDispatcher{
		Parallel: cfg.Tools.Parallel,
		Jobs:     cfg.Dispatch.Jobs,
		Output:   out,
	}

	var compressor Compressor = &Pigz{Bin: cfg.Tools.Pigz, Level: cfg.Compression.Level, Output: out}
	if _, err := LookPath(cfg.Tools.Pigz); err != nil && cfg.Compression.Fallback {
		compressor = &PgzipCompressor{Level: cfg.Compression.Level}
	}

	return &Toolbox{
		Searcher:   &EntrezSearcher{Esearch: cfg.Tools.Esearch, Efetch: cfg.Tools.Efetch, Output: out},
		Fetcher:    &Prefetch{Bin: cfg.Tools.Prefetch, Dispatcher: dispatcher},
		Converter:  &FastqDump{Bin: cfg.Tools.FastqDump, Dispatcher: dispatcher},
		Compressor: compressor,
	}
}

// Missing returns the configured programs that cannot be found on PATH.
// Search tools are only checked when needSearch is set; pigz is skipped
// when the in-process fallback is enabled.
func Missing(cfg *config.Config, needSearch, needDownload bool) []string {
	var bins []string
	if needSearch {
		bins = append(bins, cfg.Tools.Esearch, cfg.Tools.Efetch)
	}
	if needDownload {
		bins = append(bins, cfg.Tools.Parallel, cfg.Tools.Prefetch, cfg.Tools.FastqDump)
		if !cfg.Compression.Fallback {
			bins = append(bins, cfg.Tools.Pigz)
		}
	}

	var missing []string
	for _, bin := range bins {
		if _, err := LookPath(bin); err != nil {
			missing = append(missing, bin)
		}
	}
	return missing
}
