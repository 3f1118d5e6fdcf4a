// Package validator classifies archive accessions so the workflows can warn
// about input that does not look like what a stage expects. Classification
// never rejects an accession: the archive tools accept more forms than the
// patterns below.
package validator

import (
	"regexp"
	"strings"
)

// AccessionType is the kind of archive object an accession names.
type AccessionType string

const (
	TypeRun        AccessionType = "run"
	TypeExperiment AccessionType = "experiment"
	TypeSample     AccessionType = "sample"
	TypeStudy      AccessionType = "study"
	TypeProject    AccessionType = "project"
	TypeBioSample  AccessionType = "biosample"
	TypeUnknown    AccessionType = "unknown"
)

var patterns = []struct {
	re  *regexp.Regexp
	typ AccessionType
}{
	{regexp.MustCompile(`^[SED]RR\d+$`), TypeRun},
	{regexp.MustCompile(`^[SED]RX\d+$`), TypeExperiment},
	{regexp.MustCompile(`^[SED]RS\d+$`), TypeSample},
	{regexp.MustCompile(`^[SED]RP\d+$`), TypeStudy},
	{regexp.MustCompile(`^PRJ(NA|EB|DB)\d+$`), TypeProject},
	{regexp.MustCompile(`^SAM(N|EA?|D)\d+$`), TypeBioSample},
}

// Classify returns the accession type, matching case-insensitively.
func Classify(accession string) AccessionType {
	acc := strings.ToUpper(strings.TrimSpace(accession))
	for _, p := range patterns {
		if p.re.MatchString(acc) {
			return p.typ
		}
	}
	return TypeUnknown
}

// IsRun reports whether accession names a single sequencing run.
func IsRun(accession string) bool {
	return Classify(accession) == TypeRun
}

// IsProjectLike reports whether accession can be expanded into runs by an
// archive search: projects, studies, experiments and samples all qualify.
func IsProjectLike(accession string) bool {
	switch Classify(accession) {
	case TypeProject, TypeStudy, TypeExperiment, TypeSample, TypeBioSample:
		return true
	}
	return false
}

// UnrecognizedRuns returns the entries of accessions that do not look like
// run accessions, in input order.
func UnrecognizedRuns(accessions []string) []string {
	var bad []string
	for _, acc := range accessions {
		if !IsRun(acc) {
			bad = append(bad, acc)
		}
	}
	return bad
}
