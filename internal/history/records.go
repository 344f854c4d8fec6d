package history

import (
	"context"
	"database/sql"
	"fmt"
)

// Artifact statuses.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Artifact is a file a run wrote, or failed to write.
type Artifact struct {
	RunID  string `json:"run_id"`
	Format string `json:"format"`
	Path   string `json:"path"`
	Bytes  int64  `json:"bytes"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Check is the outcome of one verification rule in a run.
type Check struct {
	RunID   string `json:"run_id"`
	RuleID  string `json:"rule_id"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// RecordArtifact stores an artifact of a run.
func (s *Store) RecordArtifact(ctx context.Context, a Artifact) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}
	if a.Status == "" {
		a.Status = StatusOK
		if a.Error != "" {
			a.Status = StatusFailed
		}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO artifacts (run_id, format, path, bytes, status, error) VALUES (?, ?, ?, ?, ?, ?)`,
		a.RunID, a.Format, a.Path, a.Bytes, a.Status, nullString(a.Error),
	)
	if err != nil {
		return fmt.Errorf("failed to record artifact %s: %w", a.Path, err)
	}
	return nil
}

// RecordCheck stores a check result of a run.
func (s *Store) RecordCheck(ctx context.Context, c Check) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO checks (run_id, rule_id, status, message) VALUES (?, ?, ?, ?)`,
		c.RunID, c.RuleID, c.Status, c.Message,
	)
	if err != nil {
		return fmt.Errorf("failed to record check %s: %w", c.RuleID, err)
	}
	return nil
}

// ListArtifacts returns the artifacts of a run in recording order.
func (s *Store) ListArtifacts(ctx context.Context, runID string) ([]Artifact, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, format, path, bytes, status, error FROM artifacts WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var artifacts []Artifact
	for rows.Next() {
		var a Artifact
		var errMsg sql.NullString
		if err := rows.Scan(&a.RunID, &a.Format, &a.Path, &a.Bytes, &a.Status, &errMsg); err != nil {
			return nil, fmt.Errorf("failed to scan artifact: %w", err)
		}
		a.Error = errMsg.String
		artifacts = append(artifacts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}
	return artifacts, nil
}

// ListChecks returns the checks of a run ordered by rule.
func (s *Store) ListChecks(ctx context.Context, runID string) ([]Check, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, rule_id, status, message FROM checks WHERE run_id = ? ORDER BY rule_id, id`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list checks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var checks []Check
	for rows.Next() {
		var c Check
		if err := rows.Scan(&c.RunID, &c.RuleID, &c.Status, &c.Message); err != nil {
			return nil, fmt.Errorf("failed to scan check: %w", err)
		}
		checks = append(checks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list checks: %w", err)
	}
	return checks, nil
}
