// Package runlist reads and writes the plain-text files that carry run
// accessions between stages, and parses the tabular inputs that name
// projects and studies.
package runlist

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/nishad/srafetch/internal/errors"
	"github.com/nishad/srafetch/internal/ui"
)

// Read returns one accession per non-blank line. Lines starting with '#'
// are comments.
func Read(r io.Reader) ([]string, error) {
	accessions := make([]string, 0)
	scanner := bufio.NewScanner(r)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" && !strings.HasPrefix(line, "#") {
			accessions = append(accessions, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return accessions, nil
}

// ReadFile reads a run-list file.
func ReadFile(path string) ([]string, error) {
	const op errors.Op = "runlist.ReadFile"

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.E(op, errors.KindValidation, err, "run-list file not found")
		}
		return nil, errors.E(op, errors.KindFilesystem, err)
	}
	defer file.Close()

	accessions, err := Read(file)
	if err != nil {
		return nil, errors.E(op, errors.KindFilesystem, err)
	}
	return accessions, nil
}

// Write replaces path with one accession per line. Duplicates are dropped
// so that regenerating a run list never grows it.
func Write(path string, accessions []string) error {
	const op errors.Op = "runlist.Write"

	var buf bytes.Buffer
	for _, acc := range Dedup(accessions) {
		buf.WriteString(acc)
		buf.WriteByte('\n')
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".runlist-*")
	if err != nil {
		return errors.E(op, errors.KindFilesystem, err)
	}
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return errors.E(op, errors.KindFilesystem, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return errors.E(op, errors.KindFilesystem, err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		os.Remove(tmp.Name())
		return errors.E(op, errors.KindFilesystem, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return errors.E(op, errors.KindFilesystem, err)
	}
	return nil
}

// Dedup removes repeated accessions, keeping the first occurrence.
func Dedup(accessions []string) []string {
	seen := make(map[string]bool, len(accessions))
	out := make([]string, 0, len(accessions))
	for _, acc := range accessions {
		if seen[acc] {
			continue
		}
		seen[acc] = true
		out = append(out, acc)
	}
	return out
}

// ParseRunInfo extracts run accessions from an efetch runinfo table: the
// first column of every row, skipping header rows and blank lines. efetch
// repeats the header once per result batch.
func ParseRunInfo(r io.Reader) ([]string, error) {
	const op errors.Op = "runlist.ParseRunInfo"

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var accessions []string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.E(op, errors.KindResolution, err, "malformed runinfo table")
		}
		if len(record) == 0 {
			continue
		}
		acc := strings.TrimSpace(record[0])
		if acc == "" || acc == "Run" {
			continue
		}
		accessions = append(accessions, acc)
	}
	return Dedup(accessions), nil
}

// Entry pairs a study name with the project identifier it is built from.
type Entry struct {
	Study   string
	Project string
}

// ParseTable reads rows of (study name, project identifier). Rows with
// fewer than two fields, or with either field blank after trimming, are
// skipped with a warning. It fails when no valid row remains.
func ParseTable(r io.Reader, comma rune, log ui.Logger) ([]Entry, error) {
	const op errors.Op = "runlist.ParseTable"

	reader := csv.NewReader(r)
	reader.Comma = comma
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var entries []Entry
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.E(op, errors.KindValidation, err, "malformed table")
		}
		line, _ := reader.FieldPos(0)

		if len(record) < 2 {
			log.Warnf("Skipping invalid row %d: %q", line, record)
			continue
		}

		study := strings.TrimSpace(record[0])
		project := strings.TrimSpace(record[1])
		if study == "" || project == "" {
			log.Warnf("Skipping row %d with blank study or project: %q", line, record)
			continue
		}
		entries = append(entries, Entry{Study: study, Project: project})
	}

	if len(entries) == 0 {
		return nil, errors.E(op, errors.KindValidation, "no valid data found in table")
	}

	log.Infof("Read %d projects from table", len(entries))
	return entries, nil
}

// ParseTableFile opens path and parses it with ParseTable.
func ParseTableFile(path string, comma rune, log ui.Logger) ([]Entry, error) {
	const op errors.Op = "runlist.ParseTableFile"

	file, err := os.Open(path)
	if err != nil {
		return nil, errors.E(op, errors.KindValidation, err, "cannot open table file")
	}
	defer file.Close()

	return ParseTable(file, comma, log)
}

// Pair zips projects with study names. When studies is empty every project
// is its own study name; otherwise the lengths must match.
func Pair(projects, studies []string) ([]Entry, error) {
	const op errors.Op = "runlist.Pair"

	if len(projects) == 0 {
		return nil, errors.E(op, errors.KindValidation, "no project identifiers given")
	}
	if len(studies) == 0 {
		studies = projects
	}
	if len(studies) != len(projects) {
		return nil, errors.E(op, errors.KindValidation,
			fmt.Sprintf("got %d study names for %d projects", len(studies), len(projects)))
	}

	entries := make([]Entry, len(projects))
	for i := range projects {
		p := strings.TrimSpace(projects[i])
		s := strings.TrimSpace(studies[i])
		if p == "" || s == "" {
			return nil, errors.E(op, errors.KindValidation, fmt.Sprintf("blank project or study at position %d", i+1))
		}
		entries[i] = Entry{Study: s, Project: p}
	}
	return entries, nil
}
