// Package stages implements the four steps shared by both workflows:
// resolution, retrieval, conversion with compression, and organization.
// Each stage works on an explicit directory and returns a manifest of the
// files it produced, so later stages never rediscover work by scanning for
// extensions.
package stages

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nishad/srafetch/internal/errors"
	"github.com/nishad/srafetch/internal/fsops"
	"github.com/nishad/srafetch/internal/runlist"
	"github.com/nishad/srafetch/internal/tools"
	"github.com/nishad/srafetch/internal/ui"
)

// Stage names as they appear in logs and the journal.
const (
	StageResolve  = "resolve"
	StageRetrieve = "retrieve"
	StageConvert  = "convert"
	StageCompress = "compress"
	StageOrganize = "organize"
)

const (
	recordExt     = ".sra"
	liteRecordExt = ".sralite"
	readExt       = ".fastq"
	gzipExt       = ".gz"
)

// Stages runs stage logic against a toolbox.
type Stages struct {
	Tools *tools.Toolbox
	Log   ui.Logger

	// Spin wraps long external calls, typically with a spinner. Nil runs
	// them directly.
	Spin func(message string, fn func() error) error
}

func (s *Stages) spin(message string, fn func() error) error {
	if s.Spin == nil {
		return fn()
	}
	return s.Spin(message, fn)
}

// ResolveRuns queries the archive for project and writes its run
// accessions to path, replacing any previous list. An empty result is a
// resolution failure.
func (s *Stages) ResolveRuns(ctx context.Context, project, path string) ([]string, error) {
	const op errors.Op = "stages.ResolveRuns"

	var table []byte
	err := s.spin(fmt.Sprintf("Resolving runs for %s", project), func() error {
		var err error
		table, err = s.Tools.Searcher.RunInfo(ctx, project)
		return err
	})
	if err != nil {
		return nil, errors.Wrap(op, err)
	}

	accessions, err := runlist.ParseRunInfo(bytes.NewReader(table))
	if err != nil {
		return nil, errors.Wrap(op, err)
	}
	if len(accessions) == 0 {
		return nil, errors.E(op, errors.KindResolution, fmt.Sprintf("failed to retrieve run information for %s", project))
	}

	if err := runlist.Write(path, accessions); err != nil {
		return nil, errors.Wrap(op, err)
	}
	return accessions, nil
}

// WriteRunInfo saves the full runinfo table of project to path without
// downloading anything. It returns the number of runs the table lists.
func (s *Stages) WriteRunInfo(ctx context.Context, project, path string) (int, error) {
	const op errors.Op = "stages.WriteRunInfo"

	var table []byte
	err := s.spin(fmt.Sprintf("Fetching runinfo for %s", project), func() error {
		var err error
		table, err = s.Tools.Searcher.RunInfo(ctx, project)
		return err
	})
	if err != nil {
		return 0, errors.Wrap(op, err)
	}

	if err := os.WriteFile(path, table, 0644); err != nil {
		return 0, errors.E(op, errors.KindFilesystem, err)
	}

	accessions, err := runlist.ParseRunInfo(bytes.NewReader(table))
	if err != nil {
		s.Log.Warnf("Runinfo for %s saved but could not be parsed: %v", project, err)
		return 0, nil
	}
	return len(accessions), nil
}

// Retrieval is the manifest of the retrieval stage.
type Retrieval struct {
	Records []string // raw records, flattened into the working directory
	Missing []string // accessions for which no record appeared
	Report  fsops.Report
}

// Retrieve downloads every accession into dir, then pulls records out of
// the per-accession subdirectories the fetch tool creates and removes the
// directories left empty.
func (s *Stages) Retrieve(ctx context.Context, dir string, accessions []string) (*Retrieval, error) {
	const op errors.Op = "stages.Retrieve"

	dir = filepath.Clean(dir)
	result := &Retrieval{}
	if len(accessions) == 0 {
		return result, nil
	}

	err := s.spin(fmt.Sprintf("Downloading %d runs", len(accessions)), func() error {
		return s.Tools.Fetcher.Fetch(ctx, dir, accessions)
	})
	if err != nil {
		return nil, errors.Wrap(op, err)
	}

	found, err := findRecords(dir)
	if err != nil {
		return nil, errors.E(op, errors.KindFilesystem, err)
	}

	for _, acc := range accessions {
		path, ok := found[acc]
		if !ok {
			result.Missing = append(result.Missing, acc)
			continue
		}
		if filepath.Dir(path) == dir {
			result.Records = append(result.Records, path)
			continue
		}
		out := fsops.MoveInto(path, dir)
		result.Report.Add(out)
		if out.OK() {
			result.Records = append(result.Records, out.Target)
		} else {
			result.Records = append(result.Records, path)
		}
	}

	empties := fsops.RemoveEmptyDirs(dir)
	result.Report.Add(empties.Outcomes...)
	return result, nil
}

// findRecords maps accession to record path for every raw record below
// dir. A record in dir itself wins over a nested copy.
func findRecords(dir string) (map[string]string, error) {
	found := make(map[string]string)
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		acc, ok := recordAccession(d.Name())
		if !ok {
			return nil
		}
		if prev, seen := found[acc]; seen && filepath.Dir(prev) == dir {
			return nil
		}
		found[acc] = path
		return nil
	})
	return found, err
}

func recordAccession(name string) (string, bool) {
	for _, ext := range []string{recordExt, liteRecordExt} {
		if strings.HasSuffix(name, ext) {
			return strings.TrimSuffix(name, ext), true
		}
	}
	return "", false
}

// Conversion is the manifest of the conversion and compression stage.
type Conversion struct {
	Reads []string // compressed read files in the working directory
}

// Convert turns records into read files and compresses them. With no
// records, or no read files after conversion, the step is skipped with a
// warning.
func (s *Stages) Convert(ctx context.Context, dir string, records []string) (*Conversion, error) {
	const op errors.Op = "stages.Convert"

	dir = filepath.Clean(dir)
	result := &Conversion{}
	if len(records) == 0 {
		s.Log.Warnf("No raw records found for conversion in %s", dir)
		return result, nil
	}

	s.Log.Infof("Converting %d records to FASTQ format", len(records))
	err := s.spin(fmt.Sprintf("Converting %d records", len(records)), func() error {
		return s.Tools.Converter.Convert(ctx, dir, records)
	})
	if err != nil {
		return nil, errors.Wrap(op, err)
	}

	var reads []string
	for _, rec := range records {
		acc, _ := recordAccession(filepath.Base(rec))
		files, err := readFiles(dir, acc, readExt)
		if err != nil {
			return nil, errors.E(op, errors.KindFilesystem, err)
		}
		if len(files) == 0 {
			s.Log.Warnf("No FASTQ output found for %s", acc)
		}
		reads = append(reads, files...)
	}

	if len(reads) == 0 {
		s.Log.Warnf("No FASTQ files found to compress")
		return result, nil
	}

	s.Log.Infof("Compressing %d FASTQ files", len(reads))
	err = s.spin(fmt.Sprintf("Compressing %d files", len(reads)), func() error {
		return s.Tools.Compressor.Compress(ctx, dir, reads)
	})
	if err != nil {
		return nil, errors.Wrap(op, err)
	}

	for _, r := range reads {
		gz := r + gzipExt
		if fsops.Exists(gz) {
			result.Reads = append(result.Reads, gz)
		} else {
			s.Log.Warnf("Compressed file missing after compression: %s", gz)
		}
	}
	return result, nil
}

// readFiles lists the converter outputs for accession in dir: acc.fastq
// for single-end runs and acc_N.fastq per read for split runs.
func readFiles(dir, acc, ext string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !isReadFile(e.Name(), acc, ext) {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	return files, nil
}

func isReadFile(name, acc, ext string) bool {
	if name == acc+ext {
		return true
	}
	if !strings.HasPrefix(name, acc+"_") || !strings.HasSuffix(name, ext) {
		return false
	}
	mate := strings.TrimSuffix(strings.TrimPrefix(name, acc+"_"), ext)
	if mate == "" {
		return false
	}
	for _, c := range mate {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// FileRecords moves raw records into sraDir.
func FileRecords(records []string, sraDir string) fsops.Report {
	return fsops.MoveAllInto(records, sraDir)
}

// FileReads moves each read file into destDir under the name rename
// returns for its base name.
func FileReads(reads []string, destDir string, rename func(string) string) fsops.Report {
	var r fsops.Report
	for _, path := range reads {
		r.Add(fsops.Move(path, filepath.Join(destDir, rename(filepath.Base(path)))))
	}
	return r
}
