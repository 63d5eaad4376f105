package pipeline

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

const (
	queryInsertRun = `
		INSERT INTO pipeline_runs (run_id, stage, status, started_at)
		VALUES ($1, $2, $3, $4)
	`

	queryFinishRun = `
		UPDATE pipeline_runs
		SET stage = $2, status = $3, finished_at = $4, error = $5
		WHERE run_id = $1
	`
)

const (
	statusRunning = "running"
	statusSuccess = "success"
	statusFailed  = "failed"
)

// maxAuditErrorLen matches the error column width in pipeline_runs.
const maxAuditErrorLen = 4096

// audit records one row per pipeline run in pipeline_runs. The table
// survives schema resets; bookkeeping failures are logged, never fatal,
// so a broken audit trail cannot block a load.
type audit struct {
	db    *sql.DB
	nowFn func() time.Time
}

func newAudit(db *sql.DB) *audit {
	return &audit{
		db:    db,
		nowFn: func() time.Time { return time.Now().UTC() },
	}
}

func (a *audit) begin(ctx context.Context, stage Stage) string {
	runID := uuid.NewString()
	if _, err := a.db.ExecContext(ctx, queryInsertRun, runID, string(stage), statusRunning, a.nowFn()); err != nil {
		slog.Warn("[Pipeline] Failed to record run start", "run_id", runID, "error", err)
	}
	return runID
}

func (a *audit) finish(ctx context.Context, runID string, stage Stage, runErr error) {
	status := statusSuccess
	var errText sql.NullString
	if runErr != nil {
		status = statusFailed
		msg := runErr.Error()
		if len(msg) > maxAuditErrorLen {
			msg = msg[:maxAuditErrorLen]
		}
		errText = sql.NullString{String: msg, Valid: true}
	}
	if _, err := a.db.ExecContext(ctx, queryFinishRun, runID, string(stage), status, a.nowFn(), errText); err != nil {
		slog.Warn("[Pipeline] Failed to record run finish", "run_id", runID, "error", err)
	}
}
