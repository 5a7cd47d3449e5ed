package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// StartRun inserts a run record, assigning an ID and start time if unset
func (d *DB) StartRun(run *Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	if run.Status == "" {
		run.Status = StatusRunning
	}

	_, err := d.conn.Exec(`
		INSERT INTO runs (
			id, hostname, requested_disks, requested_aliases, disks, aliases, blocked,
			assume_yes, status, started_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID, nullString(run.Hostname), toJSON(run.RequestedDisks), toJSON(run.RequestedAliases),
		toJSON(run.Disks), toJSON(run.Aliases), toJSON(run.Blocked),
		boolInt(run.AssumeYes), run.Status, run.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}

// FinishRun sets the final status of a run
func (d *DB) FinishRun(runID, status string) error {
	result, err := d.conn.Exec(`
		UPDATE runs SET status = ?, finished_at = ? WHERE id = ?
	`, status, time.Now(), runID)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("run %s not found", runID)
	}
	return nil
}

// RecordAction logs a single device action under a run
func (d *DB) RecordAction(a *Action) error {
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now()
	}

	result, err := d.conn.Exec(`
		INSERT INTO actions (run_id, action, device, ok, error, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)
	`, a.RunID, a.Action, a.Device, boolInt(a.OK), nullString(a.Error), a.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to record action: %w", err)
	}

	if id, err := result.LastInsertId(); err == nil {
		a.ID = id
	}
	return nil
}

// GetRecentRuns returns the most recent runs, newest first
func (d *DB) GetRecentRuns(limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := d.conn.Query(`
		SELECT id, hostname, requested_disks, requested_aliases, disks, aliases, blocked,
			assume_yes, status, started_at, finished_at
		FROM runs
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		var run Run
		var hostname, reqDisks, reqAliases, disks, aliases, blocked sql.NullString
		var assumeYes int
		var finished sql.NullTime

		err := rows.Scan(
			&run.ID, &hostname, &reqDisks, &reqAliases, &disks, &aliases, &blocked,
			&assumeYes, &run.Status, &run.StartedAt, &finished,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		run.Hostname = hostname.String
		run.RequestedDisks = fromJSON(reqDisks)
		run.RequestedAliases = fromJSON(reqAliases)
		run.Disks = fromJSON(disks)
		run.Aliases = fromJSON(aliases)
		run.Blocked = fromJSON(blocked)
		run.AssumeYes = assumeYes != 0
		if finished.Valid {
			t := finished.Time
			run.FinishedAt = &t
		}

		runs = append(runs, &run)
	}

	return runs, rows.Err()
}

// GetRunActions returns the actions of a run in the order they happened
func (d *DB) GetRunActions(runID string) ([]*Action, error) {
	rows, err := d.conn.Query(`
		SELECT id, run_id, action, device, ok, error, timestamp
		FROM actions
		WHERE run_id = ?
		ORDER BY id ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query actions: %w", err)
	}
	defer rows.Close()

	var actions []*Action
	for rows.Next() {
		var a Action
		var ok int
		var errText sql.NullString

		if err := rows.Scan(&a.ID, &a.RunID, &a.Action, &a.Device, &ok, &errText, &a.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan action: %w", err)
		}
		a.OK = ok != 0
		a.Error = errText.String
		actions = append(actions, &a)
	}

	return actions, rows.Err()
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func toJSON(values []string) string {
	if values == nil {
		values = []string{}
	}
	b, err := json.Marshal(values)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func fromJSON(s sql.NullString) []string {
	var values []string
	if !s.Valid || s.String == "" {
		return values
	}
	if err := json.Unmarshal([]byte(s.String), &values); err != nil {
		return nil
	}
	return values
}
