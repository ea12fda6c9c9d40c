package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/stemsplit/api/internal/model"
)

const jobColumns = `id, type, status, input_json, params_json, output_json, progress, error_message, created_at, updated_at`

// JobUpdate describes a partial status update. Nil fields are left
// unchanged; the whole update is applied as one UPDATE statement.
type JobUpdate struct {
	Status       model.JobStatus
	ErrorMessage *string
	Progress     *float64
	Output       model.Manifest
}

// CreateJob inserts a new job row in "queued" status.
func (s *Store) CreateJob(ctx context.Context, id string, jobType model.JobType, input model.JobInput, params model.JobParams) (*model.Job, error) {
	return s.insertJob(ctx, id, jobType, input, params, model.JobStatusQueued, nil)
}

// CreateFailedJob inserts a job row directly in "failed" status with the
// given reason. The row is never queued, so no worker can ever claim it.
func (s *Store) CreateFailedJob(ctx context.Context, id string, jobType model.JobType, input model.JobInput, params model.JobParams, reason string) (*model.Job, error) {
	return s.insertJob(ctx, id, jobType, input, params, model.JobStatusFailed, &reason)
}

func (s *Store) insertJob(ctx context.Context, id string, jobType model.JobType, input model.JobInput, params model.JobParams, status model.JobStatus, errMsg *string) (*model.Job, error) {
	now := timestamp(time.Now())

	inputJSON, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("marshal input: %w", err)
	}

	var paramsJSON any
	if len(params) > 0 {
		data, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("marshal params: %w", err)
		}
		paramsJSON = string(data)
	}

	_, err = s.execWithRetry(
		ctx,
		`INSERT INTO jobs (id, type, status, input_json, params_json, error_message, progress, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, string(jobType), string(status), string(inputJSON), paramsJSON, nullableString(errMsg), 0.0, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}

	return s.GetJob(ctx, id)
}

// GetJob fetches a job by id. Returns ErrNotFound when no row exists.
func (s *Store) GetJob(ctx context.Context, id string) (*model.Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// UpdateJobStatus applies a partial update to a job row. Fields not set in
// the update keep their stored values; the call is atomic as a unit.
func (s *Store) UpdateJobStatus(ctx context.Context, id string, upd JobUpdate) (*model.Job, error) {
	var outputJSON *string
	if upd.Output != nil {
		data, err := json.Marshal(upd.Output)
		if err != nil {
			return nil, fmt.Errorf("marshal output: %w", err)
		}
		str := string(data)
		outputJSON = &str
	}

	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs
         SET status = ?,
             error_message = COALESCE(?, error_message),
             progress = COALESCE(?, progress),
             output_json = COALESCE(?, output_json),
             updated_at = ?
         WHERE id = ?`,
		string(upd.Status),
		nullableString(upd.ErrorMessage),
		nullableFloat(upd.Progress),
		nullableString(outputJSON),
		timestamp(time.Now()),
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("update job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update job rows affected: %w", err)
	}
	if affected == 0 {
		return nil, ErrNotFound
	}
	return s.GetJob(ctx, id)
}

// ClaimJob transitions a job from queued to running, but only if it is
// still queued. Returns false when another worker already claimed it.
func (s *Store) ClaimJob(ctx context.Context, id string) (bool, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs SET status = ?, progress = 0, updated_at = ? WHERE id = ? AND status = ?`,
		string(model.JobStatusRunning), timestamp(time.Now()), id, string(model.JobStatusQueued),
	)
	if err != nil {
		return false, fmt.Errorf("claim job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim job rows affected: %w", err)
	}
	return affected == 1, nil
}

// RequeueJob puts a running job back into queued status so the execution
// substrate can redeliver it after a transient failure.
func (s *Store) RequeueJob(ctx context.Context, id string) error {
	_, err := s.execWithRetry(
		ctx,
		`UPDATE jobs SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		string(model.JobStatusQueued), timestamp(time.Now()), id, string(model.JobStatusRunning),
	)
	if err != nil {
		return fmt.Errorf("requeue job: %w", err)
	}
	return nil
}

// ListJobsByStatus returns all jobs with the given status, oldest first.
// The poll worker uses this to find unclaimed work.
func (s *Store) ListJobsByStatus(ctx context.Context, status model.JobStatus) ([]*model.Job, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE status = ? ORDER BY created_at`,
		string(status),
	)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*model.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return jobs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*model.Job, error) {
	var (
		job        model.Job
		jobType    string
		status     string
		inputJSON  string
		paramsJSON sql.NullString
		outputJSON sql.NullString
		errMsg     sql.NullString
		createdAt  string
		updatedAt  string
	)
	if err := row.Scan(
		&job.ID, &jobType, &status, &inputJSON, &paramsJSON, &outputJSON,
		&job.Progress, &errMsg, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}

	job.Type = model.JobType(jobType)
	job.Status = model.JobStatus(status)

	if err := json.Unmarshal([]byte(inputJSON), &job.Input); err != nil {
		return nil, fmt.Errorf("unmarshal input: %w", err)
	}
	if paramsJSON.Valid {
		if err := json.Unmarshal([]byte(paramsJSON.String), &job.Params); err != nil {
			return nil, fmt.Errorf("unmarshal params: %w", err)
		}
	}
	if outputJSON.Valid {
		if err := json.Unmarshal([]byte(outputJSON.String), &job.Output); err != nil {
			return nil, fmt.Errorf("unmarshal output: %w", err)
		}
	}
	if errMsg.Valid {
		msg := errMsg.String
		job.ErrorMessage = &msg
	}

	var err error
	if job.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if job.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return &job, nil
}

func nullableFloat(value *float64) any {
	if value == nil {
		return nil
	}
	return *value
}
