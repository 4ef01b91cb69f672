package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const orchestrationColumns = `id, sequence, timestamp, request_id, user_id, message, tool,
	outcome, parameters, result, latency_ms`

func (r *eventRepo) AppendOrchestration(ctx context.Context, data OrchestrationEventData) error {
	seqNum, err := r.seq.Next(ctx)
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `INSERT INTO orchestration_events
		(sequence, timestamp, request_id, user_id, message, tool, outcome, parameters, result, latency_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		seqNum, time.Now().UnixMilli(), data.RequestID, data.UserID, data.Message,
		data.Tool, data.Outcome, nullJSON(data.Parameters), nullJSON(data.Result), data.LatencyMs,
	)
	if err != nil {
		return fmt.Errorf("save orchestration event: %w", err)
	}
	return nil
}

func (r *eventRepo) QueryOrchestrations(ctx context.Context, opts QueryOpts) ([]OrchestrationEvent, error) {
	where, args := opts.where(map[string]string{"user_id": opts.UserID, "tool": opts.Tool})

	rows, err := r.db.QueryContext(ctx, "SELECT "+orchestrationColumns+" FROM orchestration_events"+where, args...)
	if err != nil {
		return nil, fmt.Errorf("query orchestration events: %w", err)
	}
	defer rows.Close()

	var events []OrchestrationEvent
	for rows.Next() {
		e, err := scanOrchestration(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

func (r *eventRepo) GetOrchestration(ctx context.Context, requestID string) (*OrchestrationEvent, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+orchestrationColumns+" FROM orchestration_events WHERE request_id = ?", requestID)
	e, err := scanOrchestration(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return e, err
}

func scanOrchestration(row rowScanner) (*OrchestrationEvent, error) {
	var (
		e              OrchestrationEvent
		ts             int64
		params, result sql.NullString
	)
	err := row.Scan(&e.ID, &e.Sequence, &ts, &e.RequestID, &e.UserID, &e.Message,
		&e.Tool, &e.Outcome, &params, &result, &e.LatencyMs)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan orchestration event: %w", err)
	}
	e.Timestamp = fromMillis(ts)
	if params.Valid {
		e.Parameters = []byte(params.String)
	}
	if result.Valid {
		e.Result = []byte(result.String)
	}
	return &e, nil
}

func nullJSON(raw []byte) sql.NullString {
	if len(raw) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(raw), Valid: true}
}
