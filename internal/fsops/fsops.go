// Package fsops performs the filesystem bookkeeping of the workflows. Each
// operation is attempted on its own and reported as an Outcome; a failed
// move never stops the moves after it.
package fsops

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"syscall"

	"github.com/nishad/srafetch/internal/errors"
	"github.com/nishad/srafetch/internal/ui"
)

// Outcome records one filesystem operation.
type Outcome struct {
	Op     string
	Source string
	Target string
	Err    error
}

// OK reports whether the operation succeeded.
func (o Outcome) OK() bool { return o.Err == nil }

func (o Outcome) String() string {
	desc := o.Op + " " + o.Source
	if o.Target != "" {
		desc += " -> " + o.Target
	}
	if o.Err != nil {
		return desc + ": " + o.Err.Error()
	}
	return desc
}

// Report aggregates the outcomes of a batch of operations.
type Report struct {
	Outcomes []Outcome
}

// Add appends outcomes to the report.
func (r *Report) Add(outcomes ...Outcome) {
	r.Outcomes = append(r.Outcomes, outcomes...)
}

// Failed returns the outcomes that did not succeed.
func (r *Report) Failed() []Outcome {
	var failed []Outcome
	for _, o := range r.Outcomes {
		if !o.OK() {
			failed = append(failed, o)
		}
	}
	return failed
}

// Succeeded returns the targets (or sources, for removals) of the
// operations that succeeded.
func (r *Report) Succeeded() []string {
	var paths []string
	for _, o := range r.Outcomes {
		if !o.OK() {
			continue
		}
		if o.Target != "" {
			paths = append(paths, o.Target)
		} else {
			paths = append(paths, o.Source)
		}
	}
	return paths
}

// Skips counts the failed outcomes under op.
func (r *Report) Skips(op string) *errors.SkipCounter {
	skips := errors.NewSkipCounter(op)
	for _, o := range r.Failed() {
		skips.Skip(o.Err, o.Source)
	}
	return skips
}

// Log writes every outcome: successes at debug level, failures as errors
// prefixed with context. A summary line follows when anything failed.
func (r *Report) Log(log ui.Logger, context string) {
	for _, o := range r.Outcomes {
		if o.OK() {
			log.Debugf("%s: %s", context, o)
		} else {
			log.Errorf("%s: %s", context, o)
		}
	}
	if summary := r.Skips(context).Summary(); summary != "" {
		log.Warnf("%s", summary)
	}
}

// Move renames src to dst, copying across filesystems when a rename is
// not possible.
func Move(src, dst string) Outcome {
	out := Outcome{Op: "move", Source: src, Target: dst}
	if src == dst {
		return out
	}
	err := os.Rename(src, dst)
	if err != nil && isCrossDevice(err) {
		err = copyAndRemove(src, dst)
	}
	out.Err = err
	return out
}

// MoveInto moves src into dir, keeping its base name.
func MoveInto(src, dir string) Outcome {
	return Move(src, filepath.Join(dir, filepath.Base(src)))
}

// MoveAllInto moves every path in srcs into dir.
func MoveAllInto(srcs []string, dir string) Report {
	var r Report
	for _, src := range srcs {
		r.Add(MoveInto(src, dir))
	}
	return r
}

func isCrossDevice(err error) bool {
	if le, ok := err.(*os.LinkError); ok {
		return le.Err == syscall.EXDEV
	}
	return false
}

func copyAndRemove(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return err
	}
	return os.Remove(src)
}

// RemoveIfEmpty deletes dir when it has no entries. A non-empty dir is
// left alone and reported as a success with no removal.
func RemoveIfEmpty(dir string) (removed bool, out Outcome) {
	out = Outcome{Op: "remove-empty", Source: dir}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return false, out
		}
		out.Err = err
		return false, out
	}
	if len(entries) > 0 {
		return false, out
	}
	if err := os.Remove(dir); err != nil {
		out.Err = err
		return false, out
	}
	return true, out
}

// RemoveEmptyDirs deletes every empty directory below root, deepest
// first. root itself is kept.
func RemoveEmptyDirs(root string) Report {
	var r Report
	var dirs []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && path != root {
			dirs = append(dirs, path)
		}
		return nil
	})
	if err != nil {
		r.Add(Outcome{Op: "walk", Source: root, Err: err})
	}

	// Longest paths first so children go before parents.
	sort.Slice(dirs, func(i, j int) bool { return len(dirs[i]) > len(dirs[j]) })
	for _, dir := range dirs {
		removed, out := RemoveIfEmpty(dir)
		if removed || !out.OK() {
			r.Add(out)
		}
	}
	return r
}

// RemoveAll deletes dir and everything below it.
func RemoveAll(dir string) Outcome {
	out := Outcome{Op: "remove", Source: dir}
	if err := os.RemoveAll(dir); err != nil {
		out.Err = fmt.Errorf("failed to remove %s: %w", dir, err)
	}
	return out
}

// Exists reports whether path exists.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
