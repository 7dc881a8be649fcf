package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"courier-dispatch/internal/domain"
)

// AppendEvent - appends a job event to the audit log.
func (r *Repo) AppendEvent(ctx context.Context, e *domain.JobEvent) error {
	payload := e.Payload
	if payload == nil {
		payload = map[string]string{}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode event payload: %w", err)
	}
	_, err = r.q.Exec(ctx, `
        INSERT INTO job_events (id, job_id, type, status, courier_id, payload, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
    `, e.ID, e.JobID, string(e.Type), string(e.Status), e.CourierID, raw, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("append event %s for job %s: %w", e.Type, e.JobID, err)
	}
	return nil
}

// ListEvents - returns the events of a job in chronological order.
func (r *Repo) ListEvents(ctx context.Context, jobID uuid.UUID) ([]domain.JobEvent, error) {
	rows, err := r.q.Query(ctx, `
        SELECT id, job_id, type, status, courier_id, payload, created_at
        FROM job_events
        WHERE job_id = $1
        ORDER BY created_at, id
    `, jobID)
	if err != nil {
		return nil, fmt.Errorf("list events for job %s: %w", jobID, err)
	}
	defer rows.Close()

	var out []domain.JobEvent
	for rows.Next() {
		var (
			e          domain.JobEvent
			typ, state string
			raw        []byte
		)
		if err := rows.Scan(&e.ID, &e.JobID, &typ, &state, &e.CourierID, &raw, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.Type = domain.EventType(typ)
		e.Status = domain.JobStatus(state)
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &e.Payload); err != nil {
				return nil, fmt.Errorf("decode event payload: %w", err)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
