package ui

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
)

// Logger is the leveled output used by the workflow packages.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Successf(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// Printer writes user-facing messages in the srafetch style: info and
// success to Out, warnings, errors and debug lines to Err.
type Printer struct {
	Out   io.Writer
	Err   io.Writer
	Quiet bool
	Debug bool

	mu sync.Mutex
}

var (
	red    = color.New(color.FgRed).SprintFunc()
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	gray   = color.New(color.FgHiBlack).SprintFunc()
)

// NewPrinter returns a printer bound to the process stdout and stderr.
func NewPrinter(quiet, debug bool) *Printer {
	return &Printer{Out: os.Stdout, Err: os.Stderr, Quiet: quiet, Debug: debug}
}

// DisableColor turns off ANSI colors for every printer in the process.
func DisableColor() {
	color.NoColor = true
}

func (p *Printer) write(w io.Writer, line string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(w, line)
}

// Debugf prints only when debug output is enabled.
func (p *Printer) Debugf(format string, args ...interface{}) {
	if p.Debug {
		p.write(p.Err, gray("[DEBUG]")+" "+fmt.Sprintf(format, args...))
	}
}

// Infof prints an informational line unless quiet.
func (p *Printer) Infof(format string, args ...interface{}) {
	if !p.Quiet {
		p.write(p.Out, cyan(fmt.Sprintf(format, args...)))
	}
}

// Successf prints a success line unless quiet.
func (p *Printer) Successf(format string, args ...interface{}) {
	if !p.Quiet {
		p.write(p.Out, green("✓")+" "+fmt.Sprintf(format, args...))
	}
}

// Warnf always prints to Err.
func (p *Printer) Warnf(format string, args ...interface{}) {
	p.write(p.Err, yellow("⚠")+" "+fmt.Sprintf(format, args...))
}

// Errorf always prints to Err.
func (p *Printer) Errorf(format string, args ...interface{}) {
	p.write(p.Err, red("✗")+" "+fmt.Sprintf(format, args...))
}
