package audit

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"qrgen/internal/engine/workflow"
)

// EventRecord is one stored generation event. Neither the payload nor the
// image is ever stored, and the session id is not exported.
type EventRecord struct {
	ID          string `json:"id"`
	SessionID   string `json:"-"`
	Outcome     string `json:"outcome"`
	InputLength int    `json:"input_length"`
	DurationMs  int64  `json:"duration_ms"`
	Error       string `json:"error,omitempty"`
	CreatedAt   int64  `json:"created_at"`
}

// Recorder persists workflow generation events for diagnostics and counts
// them by outcome. generations may be nil.
type Recorder struct {
	db          *sql.DB
	generations *prometheus.CounterVec
	now         func() time.Time
}

func NewRecorder(db *sql.DB, generations *prometheus.CounterVec) *Recorder {
	return &Recorder{db: db, generations: generations, now: time.Now}
}

func (r *Recorder) Record(ctx context.Context, ev workflow.Event) error {
	if r.generations != nil {
		r.generations.WithLabelValues(string(ev.Outcome)).Inc()
	}

	var errText sql.NullString
	if ev.Err != nil {
		errText = sql.NullString{String: ev.Err.Error(), Valid: true}
	}

	query := `
		INSERT INTO generation_events (id, session_id, outcome, input_length, duration_ms, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		"gen_"+uuid.New().String(),
		ev.WorkflowID,
		string(ev.Outcome),
		ev.InputLength,
		ev.Duration.Milliseconds(),
		errText,
		r.now().Unix(),
	)
	return err
}

// Recent returns up to limit events, newest first.
func (r *Recorder) Recent(ctx context.Context, limit int) ([]*EventRecord, error) {
	if limit < 1 || limit > 500 {
		limit = 50
	}

	query := `
		SELECT id, session_id, outcome, input_length, duration_ms, error, created_at
		FROM generation_events
		ORDER BY created_at DESC
		LIMIT ?
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []*EventRecord{}
	for rows.Next() {
		var ev EventRecord
		var errText sql.NullString
		if err := rows.Scan(&ev.ID, &ev.SessionID, &ev.Outcome, &ev.InputLength, &ev.DurationMs, &errText, &ev.CreatedAt); err != nil {
			return nil, err
		}
		ev.Error = errText.String
		events = append(events, &ev)
	}
	return events, rows.Err()
}

// Ping reports whether the backing database is reachable.
func (r *Recorder) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
