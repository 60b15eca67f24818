package job

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
)

type Repository interface {
	Save(ctx context.Context, job *Job) error
	List(ctx context.Context, userID string) ([]Job, error)
	Get(ctx context.Context, id string) (*Job, error)
	DeleteByUser(ctx context.Context, userID string) error
	Count(ctx context.Context) (int, error)
}

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

// Save records a failure, replacing any earlier failure for the same user.
func (r *PostgresRepo) Save(ctx context.Context, job *Job) error {
	query := `INSERT INTO failed_jobs (user_id, handler, stage, payload, error) VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (user_id) DO UPDATE SET handler = EXCLUDED.handler, stage = EXCLUDED.stage, payload = EXCLUDED.payload, error = EXCLUDED.error, retries = failed_jobs.retries + 1, created_at = NOW()
RETURNING id, created_at, retries`
	return r.db.QueryRowContext(ctx, query, job.UserID, job.Handler, job.Stage, []byte(job.Payload), job.Error).
		Scan(&job.ID, &job.CreatedAt, &job.Retries)
}

// List returns failures newest first. An empty userID lists every user.
func (r *PostgresRepo) List(ctx context.Context, userID string) ([]Job, error) {
	query := `SELECT id, user_id, handler, stage, payload, error, retries, created_at FROM failed_jobs`
	var args []interface{}
	if userID != "" {
		query += ` WHERE user_id = $1`
		args = append(args, userID)
	}
	query += ` ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		var j Job
		var payload []byte
		if err := rows.Scan(&j.ID, &j.UserID, &j.Handler, &j.Stage, &payload, &j.Error, &j.Retries, &j.CreatedAt); err != nil {
			return nil, err
		}
		j.Payload = json.RawMessage(payload)
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (*Job, error) {
	j := &Job{}
	var payload []byte
	query := `SELECT id, user_id, handler, stage, payload, error, retries, created_at FROM failed_jobs WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(&j.ID, &j.UserID, &j.Handler, &j.Stage, &payload, &j.Error, &j.Retries, &j.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	j.Payload = json.RawMessage(payload)
	return j, nil
}

// DeleteByUser clears a user's failure once a later run succeeds.
func (r *PostgresRepo) DeleteByUser(ctx context.Context, userID string) error {
	query := `DELETE FROM failed_jobs WHERE user_id = $1`
	_, err := r.db.ExecContext(ctx, query, userID)
	return err
}

func (r *PostgresRepo) Count(ctx context.Context) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM failed_jobs`
	err := r.db.QueryRowContext(ctx, query).Scan(&count)
	return count, err
}
