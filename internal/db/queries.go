package db

import (
	"database/sql"
	"fmt"
	"strings"
)

// Build event names.
const (
	EventStarted      = "started"
	EventStepStarted  = "step_started"
	EventStepFinished = "step_finished"
	EventStepSkipped  = "step_skipped"
	EventStepFailed   = "step_failed"
	EventCompensated  = "compensated"
	EventSucceeded    = "succeeded"
	EventFailed       = "failed"
)

// BuildEvent represents a row in the build_events table.
type BuildEvent struct {
	ID          int
	BuildID     string
	Platform    string
	Environment string
	Event       string
	Step        string
	Detail      string
	Timestamp   string
}

// ToolRun represents a row in the tool_runs table.
type ToolRun struct {
	ID         int
	BuildID    string
	Tool       string
	Args       string
	ExitCode   int
	DurationMs int
	Timestamp  string
}

// LogBuildEvent inserts a build event.
func (d *DB) LogBuildEvent(buildID, platform, environment, event, step, detail string) error {
	_, err := d.conn.Exec(
		`INSERT INTO build_events (build_id, platform, environment, event, step, detail) VALUES (?, ?, ?, ?, ?, ?)`,
		buildID, platform, environment, event, nullable(step), nullable(detail),
	)
	if err != nil {
		return fmt.Errorf("log build event: %w", err)
	}
	return nil
}

// LogToolRun inserts a tool invocation record.
func (d *DB) LogToolRun(buildID, tool string, args []string, exitCode int, durationMs int) error {
	_, err := d.conn.Exec(
		`INSERT INTO tool_runs (build_id, tool, args, exit_code, duration_ms) VALUES (?, ?, ?, ?, ?)`,
		nullable(buildID), tool, strings.Join(args, " "), exitCode, durationMs,
	)
	if err != nil {
		return fmt.Errorf("log tool run: %w", err)
	}
	return nil
}

// BuildEvents returns all events for a build, oldest first.
func (d *DB) BuildEvents(buildID string) ([]BuildEvent, error) {
	rows, err := d.conn.Query(
		`SELECT id, build_id, platform, environment, event, step, detail, timestamp
		 FROM build_events WHERE build_id = ? ORDER BY id ASC`,
		buildID,
	)
	if err != nil {
		return nil, fmt.Errorf("query build events: %w", err)
	}
	defer rows.Close()

	var events []BuildEvent
	for rows.Next() {
		e, err := scanBuildEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// RecentBuilds returns the terminal event (succeeded/failed) of the most
// recent builds, newest first.
func (d *DB) RecentBuilds(limit int) ([]BuildEvent, error) {
	rows, err := d.conn.Query(
		`SELECT id, build_id, platform, environment, event, step, detail, timestamp
		 FROM build_events
		 WHERE event IN ('succeeded', 'failed')
		 ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query recent builds: %w", err)
	}
	defer rows.Close()

	var events []BuildEvent
	for rows.Next() {
		e, err := scanBuildEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// ToolRuns returns all tool invocations for a build, oldest first.
func (d *DB) ToolRuns(buildID string) ([]ToolRun, error) {
	rows, err := d.conn.Query(
		`SELECT id, build_id, tool, args, exit_code, duration_ms, timestamp
		 FROM tool_runs WHERE build_id = ? ORDER BY id ASC`,
		buildID,
	)
	if err != nil {
		return nil, fmt.Errorf("query tool runs: %w", err)
	}
	defer rows.Close()

	var runs []ToolRun
	for rows.Next() {
		var r ToolRun
		var buildID, args sql.NullString
		var exitCode, durationMs sql.NullInt64
		if err := rows.Scan(&r.ID, &buildID, &r.Tool, &args, &exitCode, &durationMs, &r.Timestamp); err != nil {
			return nil, fmt.Errorf("scan tool run: %w", err)
		}
		r.BuildID = buildID.String
		r.Args = args.String
		r.ExitCode = int(exitCode.Int64)
		r.DurationMs = int(durationMs.Int64)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func scanBuildEvent(rows *sql.Rows) (BuildEvent, error) {
	var e BuildEvent
	var step, detail sql.NullString
	if err := rows.Scan(&e.ID, &e.BuildID, &e.Platform, &e.Environment, &e.Event, &step, &detail, &e.Timestamp); err != nil {
		return BuildEvent{}, fmt.Errorf("scan build event: %w", err)
	}
	e.Step = step.String
	e.Detail = detail.String
	return e, nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
