package tools

import (
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/nishad/srafetch/internal/config"
	"github.com/nishad/srafetch/internal/errors"
)

// script writes an executable shell script named name into dir.
func script(t *testing.T, dir, name, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts not supported")
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0755); err != nil {
		t.Fatal(err)
	}
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func TestParallelDispatcher(t *testing.T) {
	bin := t.TempDir()
	work := t.TempDir()
	parallel := script(t, bin, "parallel", `echo "$@" > args.txt; cat > inputs.txt`)

	d := &ParallelDispatcher{Parallel: parallel, Jobs: 0}
	err := d.Dispatch(context.Background(), work, []string{"prefetch"}, []string{"SRR1", "SRR2"})
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}

	if got := strings.TrimSpace(readFile(t, filepath.Join(work, "args.txt"))); got != "-j0 prefetch {}" {
		t.Errorf("unexpected args %q", got)
	}
	if got := readFile(t, filepath.Join(work, "inputs.txt")); got != "SRR1\nSRR2\n" {
		t.Errorf("unexpected inputs %q", got)
	}
}

func TestParallelDispatcherNoInputs(t *testing.T) {
	d := &ParallelDispatcher{Parallel: "/nonexistent/parallel"}
	if err := d.Dispatch(context.Background(), t.TempDir(), []string{"prefetch"}, nil); err != nil {
		t.Errorf("empty dispatch should not run anything, got %v", err)
	}
}

func TestParallelDispatcherFailureCarriesStderr(t *testing.T) {
	bin := t.TempDir()
	parallel := script(t, bin, "parallel", `cat > /dev/null; echo "2 jobs failed" >&2; exit 2`)

	d := &ParallelDispatcher{Parallel: parallel, Jobs: 4}
	err := d.Dispatch(context.Background(), t.TempDir(), []string{"prefetch"}, []string{"SRR1"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "2 jobs failed") {
		t.Errorf("expected stderr tail in error, got %v", err)
	}
	if ExitCode(err) != 2 {
		t.Errorf("expected exit code 2, got %d", ExitCode(err))
	}
}

type recordingDispatcher struct {
	dir    string
	argv   []string
	inputs []string
	err    error
}

func (r *recordingDispatcher) Dispatch(ctx context.Context, dir string, argv []string, inputs []string) error {
	r.dir, r.argv, r.inputs = dir, argv, inputs
	return r.err
}

func TestPrefetchAndFastqDumpCommands(t *testing.T) {
	rec := &recordingDispatcher{}
	ctx := context.Background()

	p := &Prefetch{Bin: "prefetch", Dispatcher: rec}
	if err := p.Fetch(ctx, "/work", []string{"SRR1"}); err != nil {
		t.Fatal(err)
	}
	if rec.dir != "/work" || strings.Join(rec.argv, " ") != "prefetch" || rec.inputs[0] != "SRR1" {
		t.Errorf("unexpected prefetch dispatch %+v", rec)
	}

	f := &FastqDump{Bin: "fastq-dump", Dispatcher: rec}
	if err := f.Convert(ctx, "/work", []string{"/work/SRR1.sra", "/elsewhere/SRR2.sra"}); err != nil {
		t.Fatal(err)
	}
	if strings.Join(rec.argv, " ") != "fastq-dump --split-files --origfmt" {
		t.Errorf("unexpected fastq-dump argv %v", rec.argv)
	}
	if rec.inputs[0] != "SRR1.sra" || rec.inputs[1] != "/elsewhere/SRR2.sra" {
		t.Errorf("unexpected inputs %v", rec.inputs)
	}
}

func TestFetchFailureKind(t *testing.T) {
	rec := &recordingDispatcher{err: io.ErrUnexpectedEOF}
	err := (&Prefetch{Bin: "prefetch", Dispatcher: rec}).Fetch(context.Background(), "/w", []string{"SRR1"})
	if !errors.IsKind(err, errors.KindRetrieval) {
		t.Errorf("expected retrieval kind, got %v", err)
	}
	err = (&FastqDump{Bin: "fastq-dump", Dispatcher: rec}).Convert(context.Background(), "/w", []string{"a.sra"})
	if !errors.IsKind(err, errors.KindConversion) {
		t.Errorf("expected conversion kind, got %v", err)
	}
}

func TestEntrezSearcher(t *testing.T) {
	bin := t.TempDir()
	esearch := script(t, bin, "esearch", `echo "<query>$4</query>"`)
	efetch := script(t, bin, "efetch", `cat > /dev/null; printf 'Run,spots\nSRR10,5\nSRR11,6\n'`)

	s := &EntrezSearcher{Esearch: esearch, Efetch: efetch}
	table, err := s.RunInfo(context.Background(), "PRJNA1")
	if err != nil {
		t.Fatalf("RunInfo failed: %v", err)
	}
	if string(table) != "Run,spots\nSRR10,5\nSRR11,6\n" {
		t.Errorf("unexpected table %q", table)
	}
}

func TestEntrezSearcherEmptyResult(t *testing.T) {
	bin := t.TempDir()
	esearch := script(t, bin, "esearch", `exit 0`)
	efetch := script(t, bin, "efetch", `cat > /dev/null`)

	s := &EntrezSearcher{Esearch: esearch, Efetch: efetch}
	_, err := s.RunInfo(context.Background(), "PRJNA404")
	if err == nil {
		t.Fatal("expected error for empty runinfo")
	}
	if !errors.IsKind(err, errors.KindResolution) {
		t.Errorf("expected resolution kind, got %v", err)
	}
}

func TestEntrezSearcherFailure(t *testing.T) {
	bin := t.TempDir()
	esearch := script(t, bin, "esearch", `echo "quota exceeded" >&2; exit 1`)
	efetch := script(t, bin, "efetch", `cat > /dev/null`)

	s := &EntrezSearcher{Esearch: esearch, Efetch: efetch}
	_, err := s.RunInfo(context.Background(), "PRJNA1")
	if err == nil || !strings.Contains(err.Error(), "quota exceeded") {
		t.Errorf("expected esearch failure with stderr, got %v", err)
	}
}

func TestEntrezSearcherFetchStartFailure(t *testing.T) {
	bin := t.TempDir()
	// More output than a pipe buffer holds.
	esearch := script(t, bin, "esearch", `head -c 1000000 /dev/zero`)

	s := &EntrezSearcher{Esearch: esearch, Efetch: filepath.Join(bin, "missing-efetch")}
	done := make(chan error, 1)
	go func() {
		_, err := s.RunInfo(context.Background(), "PRJNA1")
		done <- err
	}()

	select {
	case err := <-done:
		if !errors.IsKind(err, errors.KindResolution) || !strings.Contains(err.Error(), "missing-efetch") {
			t.Errorf("expected efetch start failure, got %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("RunInfo blocked after efetch failed to start")
	}
}

func TestPigz(t *testing.T) {
	bin := t.TempDir()
	work := t.TempDir()
	pigz := script(t, bin, "pigz", `echo "$@" > pigz-args.txt`)

	p := &Pigz{Bin: pigz, Level: 1}
	files := []string{filepath.Join(work, "SRR1_1.fastq"), filepath.Join(work, "SRR1_2.fastq")}
	if err := p.Compress(context.Background(), work, files); err != nil {
		t.Fatalf("Compress failed: %v", err)
	}
	if got := strings.TrimSpace(readFile(t, filepath.Join(work, "pigz-args.txt"))); got != "-1 SRR1_1.fastq SRR1_2.fastq" {
		t.Errorf("unexpected pigz args %q", got)
	}
}

func TestPgzipCompressor(t *testing.T) {
	work := t.TempDir()
	path := filepath.Join(work, "SRR1.fastq")
	content := "@r1\nACGT\n+\nIIII\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	c := &PgzipCompressor{Level: 1}
	if err := c.Compress(context.Background(), work, []string{"SRR1.fastq"}); err != nil {
		t.Fatalf("Compress failed: %v", err)
	}

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("original file should be removed")
	}
	f, err := os.Open(path + ".gz")
	if err != nil {
		t.Fatalf("missing gz: %v", err)
	}
	defer f.Close()
	zr, err := gzip.NewReader(f)
	if err != nil {
		t.Fatalf("not gzip: %v", err)
	}
	data, _ := io.ReadAll(zr)
	if string(data) != content {
		t.Errorf("round trip mismatch: %q", data)
	}
}

func TestPgzipCompressorMissingFile(t *testing.T) {
	c := &PgzipCompressor{Level: 1}
	err := c.Compress(context.Background(), t.TempDir(), []string{"nope.fastq"})
	if !errors.IsKind(err, errors.KindConversion) {
		t.Errorf("expected conversion kind, got %v", err)
	}
}

func TestNewFallsBackToPgzip(t *testing.T) {
	orig := LookPath
	defer func() { LookPath = orig }()
	LookPath = func(file string) (string, error) { return "", os.ErrNotExist }

	cfg := config.DefaultConfig()
	box := New(cfg, Output{})
	if _, ok := box.Compressor.(*PgzipCompressor); !ok {
		t.Errorf("expected pgzip fallback, got %T", box.Compressor)
	}

	cfg.Compression.Fallback = false
	box = New(cfg, Output{})
	if _, ok := box.Compressor.(*Pigz); !ok {
		t.Errorf("expected pigz without fallback, got %T", box.Compressor)
	}
}

func TestMissing(t *testing.T) {
	orig := LookPath
	defer func() { LookPath = orig }()
	LookPath = func(file string) (string, error) {
		if file == "prefetch" || file == "esearch" {
			return "", os.ErrNotExist
		}
		return "/usr/bin/" + file, nil
	}

	cfg := config.DefaultConfig()
	if got := Missing(cfg, false, true); len(got) != 1 || got[0] != "prefetch" {
		t.Errorf("expected only prefetch missing, got %v", got)
	}
	if got := Missing(cfg, true, false); len(got) != 1 || got[0] != "esearch" {
		t.Errorf("expected only esearch missing, got %v", got)
	}
}
