// Package journal keeps a SQLite record of every stage a workflow ran and
// every file operation it attempted, so a failed batch can be inspected
// after the terminal output is gone.
package journal

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/nishad/srafetch/internal/fsops"
)

// Status of a stage.
const (
	StatusOK      = "ok"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// StageRecord is one stage execution for one study/project.
type StageRecord struct {
	ID       int64
	Workflow string
	Study    string
	Project  string
	Stage    string
	Status   string
	Items    int
	Detail   string
	At       time.Time
}

// Recorder receives stage results. The workflows write to it without
// caring whether it persists anything.
type Recorder interface {
	RecordStage(rec StageRecord) error
	RecordOutcomes(rec StageRecord, outcomes []fsops.Outcome) error
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordStage(StageRecord) error                     { return nil }
func (Nop) RecordOutcomes(StageRecord, []fsops.Outcome) error { return nil }

// Journal is a SQLite-backed Recorder.
type Journal struct {
	db   *sql.DB
	path string
}

const schema = `
CREATE TABLE IF NOT EXISTS stages (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	workflow TEXT NOT NULL,
	study TEXT NOT NULL,
	project TEXT NOT NULL DEFAULT '',
	stage TEXT NOT NULL,
	status TEXT NOT NULL,
	items INTEGER NOT NULL DEFAULT 0,
	detail TEXT NOT NULL DEFAULT '',
	recorded_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_stages_study ON stages(study);
CREATE TABLE IF NOT EXISTS file_ops (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	stage_id INTEGER NOT NULL REFERENCES stages(id),
	op TEXT NOT NULL,
	source TEXT NOT NULL,
	target TEXT NOT NULL DEFAULT '',
	error TEXT NOT NULL DEFAULT ''
);
`

// Open opens or creates the journal database at path.
func Open(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal=WAL&_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create journal schema: %w", err)
	}

	return &Journal{db: db, path: path}, nil
}

// Path returns the database file location.
func (j *Journal) Path() string { return j.path }

// Close closes the database.
func (j *Journal) Close() error {
	return j.db.Close()
}

// RecordStage stores rec.
func (j *Journal) RecordStage(rec StageRecord) error {
	_, err := j.insertStage(j.db, rec)
	return err
}

type execer interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
}

func (j *Journal) insertStage(e execer, rec StageRecord) (int64, error) {
	if rec.At.IsZero() {
		rec.At = time.Now().UTC()
	}
	res, err := e.Exec(`INSERT INTO stages (workflow, study, project, stage, status, items, detail, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Workflow, rec.Study, rec.Project, rec.Stage, rec.Status, rec.Items, rec.Detail, rec.At)
	if err != nil {
		return 0, fmt.Errorf("failed to record stage: %w", err)
	}
	return res.LastInsertId()
}

// RecordOutcomes stores rec and the file operations attempted during it in
// one transaction.
func (j *Journal) RecordOutcomes(rec StageRecord, outcomes []fsops.Outcome) error {
	tx, err := j.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stageID, err := j.insertStage(tx, rec)
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`INSERT INTO file_ops (stage_id, op, source, target, error) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, o := range outcomes {
		msg := ""
		if o.Err != nil {
			msg = o.Err.Error()
		}
		if _, err := stmt.Exec(stageID, o.Op, o.Source, o.Target, msg); err != nil {
			return fmt.Errorf("failed to record file operation: %w", err)
		}
	}

	return tx.Commit()
}

// Stages returns the stage records of study in insertion order.
func (j *Journal) Stages(study string) ([]StageRecord, error) {
	rows, err := j.db.Query(`SELECT id, workflow, study, project, stage, status, items, detail, recorded_at
		FROM stages WHERE study = ? ORDER BY id`, study)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var records []StageRecord
	for rows.Next() {
		var r StageRecord
		if err := rows.Scan(&r.ID, &r.Workflow, &r.Study, &r.Project, &r.Stage, &r.Status, &r.Items, &r.Detail, &r.At); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// FailedOps returns the file operations of study that recorded an error.
func (j *Journal) FailedOps(study string) ([]fsops.Outcome, error) {
	rows, err := j.db.Query(`SELECT f.op, f.source, f.target, f.error
		FROM file_ops f JOIN stages s ON f.stage_id = s.id
		WHERE s.study = ? AND f.error != '' ORDER BY f.id`, study)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var outcomes []fsops.Outcome
	for rows.Next() {
		var o fsops.Outcome
		var msg string
		if err := rows.Scan(&o.Op, &o.Source, &o.Target, &msg); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		o.Err = fmt.Errorf("%s", msg)
		outcomes = append(outcomes, o)
	}
	return outcomes, rows.Err()
}
