package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"crosspost/internal/models"
)

type PublishJobRepository interface {
	Create(ctx context.Context, tx *sql.Tx, job *models.PublishJob) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.PublishJob, error)
	GetByPostID(ctx context.Context, postID int64) (*models.PublishJob, error)
	UpdateStatus(ctx context.Context, status string, jobID int64) error
	ListDue(ctx context.Context, before time.Time) ([]*models.PublishJob, error)
}

type publishJobRepository struct {
	db *sql.DB
}

func NewPublishJobRepository(db *sql.DB) PublishJobRepository {
	return &publishJobRepository{db: db}
}

func (r *publishJobRepository) Create(ctx context.Context, tx *sql.Tx, job *models.PublishJob) (int64, error) {
	query := `
		INSERT INTO publish_jobs (post_id, run_at_utc, timezone, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	var id int64
	var err error

	if tx != nil {
		err = tx.QueryRowContext(ctx, query, job.PostID, job.RunAtUTC, job.Timezone, job.Status).Scan(&id)
	} else {
		err = r.db.QueryRowContext(ctx, query, job.PostID, job.RunAtUTC, job.Timezone, job.Status).Scan(&id)
	}
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *publishJobRepository) GetByID(ctx context.Context, id int64) (*models.PublishJob, error) {
	query := `SELECT id, post_id, run_at_utc, timezone, status, created_at, updated_at FROM publish_jobs WHERE id = $1`
	row := r.db.QueryRowContext(ctx, query, id)

	var job models.PublishJob
	err := row.Scan(&job.ID, &job.PostID, &job.RunAtUTC, &job.Timezone, &job.Status, &job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return &job, nil
}

func (r *publishJobRepository) GetByPostID(ctx context.Context, postID int64) (*models.PublishJob, error) {
	query := `SELECT id, post_id, run_at_utc, timezone, status, created_at, updated_at FROM publish_jobs WHERE post_id = $1`
	row := r.db.QueryRowContext(ctx, query, postID)

	var job models.PublishJob
	err := row.Scan(&job.ID, &job.PostID, &job.RunAtUTC, &job.Timezone, &job.Status, &job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return &job, nil
}

func (r *publishJobRepository) UpdateStatus(ctx context.Context, status string, jobID int64) error {
	query := `
		UPDATE publish_jobs
		SET status = $1,
			updated_at = $2
		WHERE id = $3
	`
	_, err := r.db.ExecContext(ctx, query, status, time.Now(), jobID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *publishJobRepository) ListDue(ctx context.Context, before time.Time) ([]*models.PublishJob, error) {
	query := `SELECT id, post_id, run_at_utc, timezone, status, created_at, updated_at FROM publish_jobs WHERE status = $1 AND run_at_utc <= $2`

	rows, err := r.db.QueryContext(ctx, query, models.PublishStatusScheduled, before)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var jobs []*models.PublishJob
	for rows.Next() {
		var job models.PublishJob
		err := rows.Scan(&job.ID, &job.PostID, &job.RunAtUTC, &job.Timezone, &job.Status, &job.CreatedAt, &job.UpdatedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		jobs = append(jobs, &job)
	}
	return jobs, nil
}
