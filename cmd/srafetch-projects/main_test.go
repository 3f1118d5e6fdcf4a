package main

import (
	"io"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/nishad/srafetch/internal/testutil"
)

func execute(t *testing.T, fake *testutil.FakeTools, args ...string) error {
	t.Helper()
	t.Setenv("SRAFETCH_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))
	cmd := newRootCmd(fake.Toolbox())
	cmd.SetArgs(append(args, "--quiet", "--no-color"))
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	return cmd.Execute()
}

func TestStudyCountMismatchFailsBeforeSearch(t *testing.T) {
	fake := &testutil.FakeTools{}
	err := execute(t, fake, "-p", "PRJNA1,PRJNA2", "-s", "A,B,C", "-o", t.TempDir())
	if err == nil {
		t.Fatal("expected validation error")
	}
	if len(fake.Searched) != 0 {
		t.Errorf("no search should run on invalid input, got %v", fake.Searched)
	}
}

func TestInputFlagValidation(t *testing.T) {
	out := t.TempDir()
	tests := []struct {
		name string
		args []string
	}{
		{"no input", []string{"-o", out}},
		{"projects and table", []string{"-p", "PRJNA1", "-c", "t.csv", "-o", out}},
		{"studies with table", []string{"-s", "A", "-c", "t.csv", "-o", out}},
		{"missing output", []string{"-p", "PRJNA1"}},
		{"project outside output", []string{"-p", "../../escape", "-o", out}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &testutil.FakeTools{}
			if err := execute(t, fake, tt.args...); err == nil {
				t.Error("expected error")
			}
			if len(fake.Searched) != 0 {
				t.Errorf("no search should run, got %v", fake.Searched)
			}
		})
	}
}

func TestFailedProjectsDoNotFailCommand(t *testing.T) {
	fake := &testutil.FakeTools{
		Tables: map[string]string{"PRJNA2": testutil.RunInfoTable("SRR2")},
	}
	out := t.TempDir()

	if err := execute(t, fake, "-p", "PRJNA1,PRJNA2", "-o", out); err != nil {
		t.Fatalf("batch run should succeed once the loop completes: %v", err)
	}
	if !reflect.DeepEqual(fake.Searched, []string{"PRJNA1", "PRJNA2"}) {
		t.Errorf("expected both projects searched, got %v", fake.Searched)
	}
	if got := testutil.ListDir(filepath.Join(out, "PRJNA2", "sra")); !reflect.DeepEqual(got, []string{"SRR2.sra"}) {
		t.Errorf("expected PRJNA2 to be processed under its own name, got %v", got)
	}
}

func TestTableInput(t *testing.T) {
	fake := &testutil.FakeTools{
		Tables: map[string]string{"PRJNA1": testutil.RunInfoTable("SRR1")},
	}
	dir := t.TempDir()
	table := filepath.Join(dir, "studies.tsv")
	if err := os.WriteFile(table, []byte("Gut\tPRJNA1\nbroken\n"), 0644); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(dir, "out")

	if err := execute(t, fake, "-c", table, "--delimiter", `\t`, "-o", out, "--runs-only"); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(out, "Gut", "PRJNA1_runs.txt")); err != nil {
		t.Errorf("expected runinfo table for Gut: %v", err)
	}
	if len(fake.Fetched) != 0 {
		t.Errorf("runs-only should not download, got %v", fake.Fetched)
	}
}

func TestParseDelimiter(t *testing.T) {
	tests := []struct {
		in      string
		want    rune
		wantErr bool
	}{
		{",", ',', false},
		{";", ';', false},
		{`\t`, '\t', false},
		{"tab", '\t', false},
		{"", 0, true},
		{",,", 0, true},
		{`"`, 0, true},
	}

	for _, tt := range tests {
		got, err := parseDelimiter(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseDelimiter(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("parseDelimiter(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
