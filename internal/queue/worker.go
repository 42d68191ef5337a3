package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"log/slog"

	"github.com/hibiken/asynq"

	"crosspost/internal/models"
	"crosspost/internal/providers"
)

func (w *Worker) HandlePublishTask(ctx context.Context, task *asynq.Task) error {
	var payload PublishTaskPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return err
	}

	attemptsMade, _ := asynq.GetRetryCount(ctx)
	maxRetry, _ := asynq.GetMaxRetry(ctx)

	return w.PublishDue(ctx, payload.PublishJobID, attemptsMade, maxRetry+1)
}

// PublishDue runs one pass over the job's enabled variants and applies the
// completion rule: all succeeded -> published; any failure with retries
// left -> scheduled plus an error so the queue re-delivers; any failure on
// the final pass -> failed. A returned error is the only retry signal.
func (w *Worker) PublishDue(ctx context.Context, jobID int64, attemptsMade, maxAttempts int) error {
	attemptNumber := attemptsMade + 1

	job, err := w.jobs.GetByID(ctx, jobID)
	if err != nil {
		return err
	}
	if job == nil {
		log.Printf("Publish job not found: %d", jobID)
		return nil
	}

	post, err := w.posts.GetByID(ctx, job.PostID)
	if err != nil {
		return err
	}
	if post == nil {
		log.Printf("Post not found for publish job %d", jobID)
		return nil
	}

	variants, err := w.variants.ListByPostID(ctx, post.ID)
	if err != nil {
		return err
	}

	if err := w.jobs.UpdateStatus(ctx, models.PublishStatusPublishing, job.ID); err != nil {
		return err
	}

	var enabled []*models.PostVariant
	for _, v := range variants {
		if v.Enabled {
			enabled = append(enabled, v)
		}
	}

	if len(enabled) == 0 {
		log.Printf("No enabled variants for publish job %d", jobID)
		return w.jobs.UpdateStatus(ctx, models.PublishStatusPublished, job.ID)
	}

	var media *models.MediaAsset
	if post.MediaAssetID.Valid {
		media, err = w.media.GetByID(ctx, post.MediaAssetID.Int64)
		if err != nil {
			return err
		}
	}

	allSucceeded := true

	// Variants are processed strictly sequentially so attempt ordering and
	// per-org provider traffic stay predictable.
	for _, variant := range enabled {
		if w.skipSucceeded {
			done, err := w.attempts.HasSuccess(ctx, job.ID, variant.Provider)
			if err != nil {
				return err
			}
			if done {
				continue
			}
		}

		account, err := w.accounts.GetByOrgAndProvider(ctx, post.OrgID, variant.Provider)
		if err != nil {
			return err
		}

		if account == nil {
			w.recordFailure(ctx, job.ID, variant.Provider, attemptNumber, &providers.ProviderError{
				Code:        "NO_ACCOUNT",
				UserMessage: fmt.Sprintf("No %s account connected. Please connect your account.", variant.Provider),
			})
			allSucceeded = false
			continue
		}

		result, err := w.publishVariant(ctx, variant, account, post.Caption, media)
		if err != nil {
			var pe *providers.ProviderError
			if !errors.As(err, &pe) {
				slog.Error(fmt.Sprintf("publish job %d variant %s: %v", job.ID, variant.Provider, err))
				pe = &providers.ProviderError{
					Code:        "UNKNOWN",
					UserMessage: "An unexpected error occurred.",
				}
			}
			w.recordFailure(ctx, job.ID, variant.Provider, attemptNumber, pe)
			allSucceeded = false
			continue
		}

		w.recordSuccess(ctx, job.ID, variant.Provider, attemptNumber, result)
		log.Printf("Published %s for job %d: %s", variant.Provider, job.ID, result.ExternalID)
	}

	if allSucceeded {
		return w.jobs.UpdateStatus(ctx, models.PublishStatusPublished, job.ID)
	}

	if attemptsMade+1 >= maxAttempts {
		return w.jobs.UpdateStatus(ctx, models.PublishStatusFailed, job.ID)
	}

	if err := w.jobs.UpdateStatus(ctx, models.PublishStatusScheduled, job.ID); err != nil {
		return err
	}
	return fmt.Errorf("publish job %d: one or more variants failed, retrying", job.ID)
}

func (w *Worker) publishVariant(ctx context.Context, variant *models.PostVariant, account *models.SocialAccount, caption string, media *models.MediaAsset) (*providers.PublishResult, error) {
	adapter, err := w.registry.Get(variant.Provider)
	if err != nil {
		return nil, err
	}
	return adapter.Publish(ctx, variant, account, caption, media)
}

func (w *Worker) recordSuccess(ctx context.Context, jobID int64, provider string, attemptNumber int, result *providers.PublishResult) {
	attempt := models.PublishAttempt{
		PublishJobID:  jobID,
		Provider:      provider,
		Status:        models.AttemptStatusSuccess,
		ExternalID:    sql.NullString{String: result.ExternalID, Valid: result.ExternalID != ""},
		Permalink:     sql.NullString{String: result.Permalink, Valid: result.Permalink != ""},
		AttemptNumber: attemptNumber,
	}
	if _, err := w.attempts.Create(ctx, &attempt); err != nil {
		log.Printf("Error saving publish attempt for job %d: %v", jobID, err)
	}
}

func (w *Worker) recordFailure(ctx context.Context, jobID int64, provider string, attemptNumber int, pe *providers.ProviderError) {
	log.Printf("Failed %s for job %d: %s (%s)", provider, jobID, pe.Code, pe.Message)

	attempt := models.PublishAttempt{
		PublishJobID:     jobID,
		Provider:         provider,
		Status:           models.AttemptStatusFailed,
		ErrorCode:        sql.NullString{String: pe.Code, Valid: pe.Code != ""},
		ErrorMessage:     sql.NullString{String: pe.UserMessage, Valid: pe.UserMessage != ""},
		ProviderResponse: sql.NullString{String: pe.RawResponse, Valid: pe.RawResponse != ""},
		AttemptNumber:    attemptNumber,
	}
	if _, err := w.attempts.Create(ctx, &attempt); err != nil {
		log.Printf("Error saving publish attempt for job %d: %v", jobID, err)
	}
}
