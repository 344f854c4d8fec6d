package history

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), ":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpen_CreatesFileAndMigrates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.db")
	s, err := Open(context.Background(), path, nil)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	assert.FileExists(t, path)
	assert.Equal(t, path, s.Path())

	version, err := s.Version()
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)

	for _, table := range []string{"runs", "artifacts", "checks"} {
		rows, err := s.db.Query("SELECT 1 FROM " + table + " LIMIT 1")
		require.NoError(t, err, table)
		_ = rows.Close()
	}

	// reopening applies nothing new
	require.NoError(t, s.Close())
	s, err = Open(context.Background(), path, nil)
	require.NoError(t, err)
	require.NoError(t, s.Close())
}

func TestRunLifecycle(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	params := map[string]any{"thickness": 2.0, "profile": "default"}
	run, err := s.CreateRun(ctx, "generate", params)
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, RunStatusRunning, run.Status)
	assert.Zero(t, run.Duration())

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, "generate", got.Command)
	assert.JSONEq(t, `{"thickness": 2, "profile": "default"}`, string(got.Params))
	assert.Nil(t, got.CompletedAt)
	assert.True(t, got.StartedAt.Equal(run.StartedAt))

	require.NoError(t, s.CompleteRun(ctx, run.ID, RunStatusFailed, "export failed"))
	got, err = s.GetRun(ctx, run.ID[:8])
	require.NoError(t, err)
	assert.Equal(t, RunStatusFailed, got.Status)
	assert.Equal(t, "export failed", got.Error)
	require.NotNil(t, got.CompletedAt)
	assert.GreaterOrEqual(t, got.Duration().Nanoseconds(), int64(0))
}

func TestCompleteRun_Unknown(t *testing.T) {
	s := setupTestStore(t)
	err := s.CompleteRun(context.Background(), "nope", RunStatusCompleted, "")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestGetRun_Lookup(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	for _, id := range []string{"abc-1", "abc-2", "abd-1"} {
		_, err := s.db.Exec(`INSERT INTO runs (id, command, status, started_at) VALUES (?, 'verify', 'completed', ?)`,
			id, "2026-01-02T03:04:05.000000000Z")
		require.NoError(t, err)
	}

	tests := []struct {
		name    string
		id      string
		want    string
		wantErr string
	}{
		{name: "exact", id: "abc-1", want: "abc-1"},
		{name: "unique prefix", id: "abd", want: "abd-1"},
		{name: "ambiguous prefix", id: "abc", wantErr: "ambiguous"},
		{name: "unknown", id: "zzz", wantErr: "run not found"},
		{name: "empty", id: "", wantErr: "run not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			run, err := s.GetRun(ctx, tt.id)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, run.ID)
			assert.Equal(t, 2026, run.StartedAt.Year())
		})
	}
}

func TestListRuns_NewestFirst(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	var ids []string
	for _, cmd := range []string{"generate", "verify", "render"} {
		run, err := s.CreateRun(ctx, cmd, nil)
		require.NoError(t, err)
		ids = append(ids, run.ID)
	}

	runs, err := s.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, ids[2], runs[0].ID)
	assert.Equal(t, ids[1], runs[1].ID)
	assert.Equal(t, "null", string(runs[0].Params))

	runs, err = s.ListRuns(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, runs, 3)
}

func TestArtifactsAndChecks(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	run, err := s.CreateRun(ctx, "verify", nil)
	require.NoError(t, err)

	require.NoError(t, s.RecordArtifact(ctx, Artifact{RunID: run.ID, Format: "step", Path: "out/bracket.step", Bytes: 1200}))
	require.NoError(t, s.RecordArtifact(ctx, Artifact{RunID: run.ID, Format: "png", Path: "out/bracket_top.png", Error: "svg failed"}))
	require.NoError(t, s.RecordCheck(ctx, Check{RunID: run.ID, RuleID: "TP01", Status: "pass"}))
	require.NoError(t, s.RecordCheck(ctx, Check{RunID: run.ID, RuleID: "BB01", Status: "error", Message: "X extent"}))

	artifacts, err := s.ListArtifacts(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, artifacts, 2)
	assert.Equal(t, StatusOK, artifacts[0].Status)
	assert.Equal(t, int64(1200), artifacts[0].Bytes)
	assert.Equal(t, StatusFailed, artifacts[1].Status)
	assert.Equal(t, "svg failed", artifacts[1].Error)

	checks, err := s.ListChecks(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, checks, 2)
	assert.Equal(t, "BB01", checks[0].RuleID)
	assert.Equal(t, "X extent", checks[0].Message)
	assert.Equal(t, "TP01", checks[1].RuleID)

	// foreign keys are enforced
	err = s.RecordCheck(ctx, Check{RunID: "missing", RuleID: "BB01", Status: "pass"})
	assert.Error(t, err)

	none, err := s.ListArtifacts(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestStore_DatabaseErrors(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		setupMock func(mock sqlmock.Sqlmock)
		call      func(s *Store) error
		errMsg    string
	}{
		{
			name: "create run",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("INSERT INTO runs").WillReturnError(assert.AnError)
			},
			call: func(s *Store) error {
				_, err := s.CreateRun(ctx, "generate", nil)
				return err
			},
			errMsg: "failed to create run",
		},
		{
			name: "complete run",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("UPDATE runs").WillReturnError(assert.AnError)
			},
			call:   func(s *Store) error { return s.CompleteRun(ctx, "id", RunStatusCompleted, "") },
			errMsg: "failed to complete run",
		},
		{
			name: "list runs",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT (.+) FROM runs").WillReturnError(assert.AnError)
			},
			call: func(s *Store) error {
				_, err := s.ListRuns(ctx, 5)
				return err
			},
			errMsg: "failed to list runs",
		},
		{
			name: "bad timestamp",
			setupMock: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows([]string{"id", "command", "params", "status", "started_at", "completed_at", "error"}).
					AddRow("r1", "verify", "{}", "completed", "yesterday", nil, nil)
				mock.ExpectQuery("SELECT (.+) FROM runs").WillReturnRows(rows)
			},
			call: func(s *Store) error {
				_, err := s.GetRun(ctx, "r1")
				return err
			},
			errMsg: "invalid timestamp",
		},
		{
			name: "record artifact",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("INSERT INTO artifacts").WillReturnError(assert.AnError)
			},
			call:   func(s *Store) error { return s.RecordArtifact(ctx, Artifact{RunID: "r1", Path: "a.stl"}) },
			errMsg: "failed to record artifact a.stl",
		},
		{
			name: "list checks",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT (.+) FROM checks").WillReturnError(assert.AnError)
			},
			call: func(s *Store) error {
				_, err := s.ListChecks(ctx, "r1")
				return err
			},
			errMsg: "failed to list checks",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer func() { _ = db.Close() }()
			tt.setupMock(mock)

			err = tt.call(New(db, nil))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestStore_NotOpened(t *testing.T) {
	s := &Store{}
	_, err := s.CreateRun(context.Background(), "generate", nil)
	assert.EqualError(t, err, "database not opened")
	assert.NoError(t, s.Close())
}
