// Package testutil provides fake external tools that reproduce the files
// the real archive programs leave behind.
package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/nishad/srafetch/internal/tools"
)

// FakeTools implements every tools interface.
type FakeTools struct {
	mu sync.Mutex

	// RunInfo tables by project. A missing project yields SearchErr or an
	// empty table error.
	Tables    map[string]string
	SearchErr error

	// Nested places fetched records at dir/acc/acc.sra like prefetch does.
	Nested bool
	// Paired makes conversion write acc_1.fastq and acc_2.fastq.
	Paired bool
	// SkipRecords lists accessions the fetcher silently fails to produce.
	SkipRecords map[string]bool

	FetchErr    error
	ConvertErr  error
	CompressErr error

	// Recorded calls.
	Searched   []string
	FetchDirs  []string
	Fetched    []string
	Converted  []string
	Compressed []string
}

// Toolbox returns a toolbox backed by f.
func (f *FakeTools) Toolbox() *tools.Toolbox {
	return &tools.Toolbox{Searcher: f, Fetcher: f, Converter: f, Compressor: f}
}

// RunInfo implements tools.Searcher.
func (f *FakeTools) RunInfo(ctx context.Context, project string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Searched = append(f.Searched, project)
	if f.SearchErr != nil {
		return nil, f.SearchErr
	}
	table, ok := f.Tables[project]
	if !ok || table == "" {
		return nil, fmt.Errorf("no runinfo returned for %s", project)
	}
	return []byte(table), nil
}

// Fetch implements tools.Fetcher.
func (f *FakeTools) Fetch(ctx context.Context, dir string, accessions []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.FetchDirs = append(f.FetchDirs, dir)
	f.Fetched = append(f.Fetched, accessions...)
	for _, acc := range accessions {
		if f.SkipRecords[acc] {
			continue
		}
		path := filepath.Join(dir, acc+".sra")
		if f.Nested {
			path = filepath.Join(dir, acc, acc+".sra")
		}
		if err := writeFile(path, "SRA:"+acc); err != nil {
			return err
		}
	}
	return f.FetchErr
}

// Convert implements tools.Converter.
func (f *FakeTools) Convert(ctx context.Context, dir string, records []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ConvertErr != nil {
		return f.ConvertErr
	}
	for _, rec := range records {
		acc := strings.TrimSuffix(filepath.Base(rec), ".sra")
		f.Converted = append(f.Converted, acc)
		names := []string{acc + ".fastq"}
		if f.Paired {
			names = []string{acc + "_1.fastq", acc + "_2.fastq"}
		}
		for _, n := range names {
			if err := writeFile(filepath.Join(dir, n), "@"+acc+"\nACGT\n+\nIIII\n"); err != nil {
				return err
			}
		}
	}
	return nil
}

// Compress implements tools.Compressor.
func (f *FakeTools) Compress(ctx context.Context, dir string, files []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.CompressErr != nil {
		return f.CompressErr
	}
	for _, file := range files {
		path := file
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}
		f.Compressed = append(f.Compressed, filepath.Base(path))
		if err := os.Rename(path, path+".gz"); err != nil {
			return err
		}
	}
	return nil
}

func writeFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0644)
}

// RunInfoTable builds a runinfo CSV listing accessions.
func RunInfoTable(accessions ...string) string {
	var b strings.Builder
	b.WriteString("Run,ReleaseDate,LoadDate,spots,bases\n")
	for _, acc := range accessions {
		fmt.Fprintf(&b, "%s,2021-01-01,2021-01-01,100,15000\n", acc)
	}
	return b.String()
}

// ListDir returns the sorted entry names of dir, or nil if it is missing.
func ListDir(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
	}
	return names
}
