// Package layout computes every path the workflows touch from an explicit
// output root. Nothing here consults or changes the process working
// directory.
package layout

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nishad/srafetch/internal/errors"
)

const (
	SRADir   = "sra"
	FastqDir = "fastq"
	TempDir  = "temp"

	RunListSuffix = "_runs.txt"
)

// Study is the directory context of one study under an output root.
type Study struct {
	Root string // absolute output directory
	Name string
}

// NewStudy resolves output to an absolute path and validates name as a
// single path element.
func NewStudy(output, name string) (Study, error) {
	const op errors.Op = "layout.NewStudy"

	if output == "" {
		return Study{}, errors.E(op, errors.KindValidation, "output directory is required")
	}
	if err := checkElement("study name", name); err != nil {
		return Study{}, errors.E(op, errors.KindValidation, err)
	}
	abs, err := filepath.Abs(output)
	if err != nil {
		return Study{}, errors.E(op, errors.KindFilesystem, err)
	}
	return Study{Root: abs, Name: name}, nil
}

// CheckProject validates project as the name of its working directory
// inside a study. It must not escape the study or shadow sra/, fastq/ or
// temp/.
func CheckProject(project string) error {
	const op errors.Op = "layout.CheckProject"

	if err := checkElement("project identifier", project); err != nil {
		return errors.E(op, errors.KindValidation, err)
	}
	switch project {
	case SRADir, FastqDir, TempDir:
		return errors.E(op, errors.KindValidation, fmt.Sprintf("project identifier %q is a reserved directory name", project))
	}
	return nil
}

func checkElement(what, name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("%s is required", what)
	case name == "." || name == "..":
		return fmt.Errorf("invalid %s %q", what, name)
	case strings.ContainsRune(name, os.PathSeparator) || strings.ContainsRune(name, '/'):
		return fmt.Errorf("%s %q must not contain a path separator", what, name)
	}
	return nil
}

// Dir is {root}/{study}.
func (s Study) Dir() string { return filepath.Join(s.Root, s.Name) }

// SRA is where raw records are archived.
func (s Study) SRA() string { return filepath.Join(s.Dir(), SRADir) }

// Fastq is where the single-study workflow files converted reads.
func (s Study) Fastq() string { return filepath.Join(s.Dir(), FastqDir) }

// Temp is the single-study scoped working directory.
func (s Study) Temp() string { return filepath.Join(s.Dir(), TempDir) }

// RunList is the run-list file written for project.
func (s Study) RunList(project string) string {
	return filepath.Join(s.Dir(), project+RunListSuffix)
}

// ProjectWork is the batch scoped working directory for project.
func (s Study) ProjectWork(project string) string {
	return filepath.Join(s.Dir(), project)
}

// ProjectStaging holds compressed reads of project before they are renamed
// into the study directory.
func (s Study) ProjectStaging(project string) string {
	return filepath.Join(s.ProjectWork(project), FastqDir)
}

// Prefixed returns the final name of a converted read file.
func (s Study) Prefixed(filename string) string {
	return s.Name + "_" + filename
}

// Ensure creates every directory in dirs.
func Ensure(dirs ...string) error {
	const op errors.Op = "layout.Ensure"

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.E(op, errors.KindFilesystem, err, fmt.Sprintf("failed to create directory %s", dir))
		}
	}
	return nil
}
