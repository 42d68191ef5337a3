package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"crosspost/internal/models"
)

// PublishAttemptRepository is append-only: the worker records outcomes and
// nothing ever updates or deletes a row.
type PublishAttemptRepository interface {
	Create(ctx context.Context, attempt *models.PublishAttempt) (int64, error)
	ListByJobID(ctx context.Context, jobID int64) ([]*models.PublishAttempt, error)
	HasSuccess(ctx context.Context, jobID int64, provider string) (bool, error)
}

type publishAttemptRepository struct {
	db *sql.DB
}

func NewPublishAttemptRepository(db *sql.DB) PublishAttemptRepository {
	return &publishAttemptRepository{db: db}
}

func (r *publishAttemptRepository) Create(ctx context.Context, attempt *models.PublishAttempt) (int64, error) {
	query := `
		INSERT INTO publish_attempts (publish_job_id, provider, status, external_id, permalink, error_code, error_message, provider_response, attempt_number)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query,
		attempt.PublishJobID, attempt.Provider, attempt.Status,
		attempt.ExternalID, attempt.Permalink,
		attempt.ErrorCode, attempt.ErrorMessage, attempt.ProviderResponse,
		attempt.AttemptNumber).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *publishAttemptRepository) ListByJobID(ctx context.Context, jobID int64) ([]*models.PublishAttempt, error) {
	query := `SELECT id, publish_job_id, provider, status, external_id, permalink, error_code, error_message, provider_response, attempt_number, created_at FROM publish_attempts WHERE publish_job_id = $1 ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, jobID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var attempts []*models.PublishAttempt
	for rows.Next() {
		var a models.PublishAttempt
		err := rows.Scan(&a.ID, &a.PublishJobID, &a.Provider, &a.Status, &a.ExternalID, &a.Permalink, &a.ErrorCode, &a.ErrorMessage, &a.ProviderResponse, &a.AttemptNumber, &a.CreatedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		attempts = append(attempts, &a)
	}
	return attempts, nil
}

func (r *publishAttemptRepository) HasSuccess(ctx context.Context, jobID int64, provider string) (bool, error) {
	query := `SELECT 1 FROM publish_attempts WHERE publish_job_id = $1 AND provider = $2 AND status = $3 LIMIT 1`

	var result int
	err := r.db.QueryRowContext(ctx, query, jobID, provider, models.AttemptStatusSuccess).Scan(&result)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		slog.Info(err.Error())
		return false, err
	}

	return result == 1, nil
}
