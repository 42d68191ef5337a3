package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"crosspost/internal/models"
	"crosspost/internal/repository"
	"crosspost/internal/transfer"
)

const (
	PublishModeNow      = "now"
	PublishModeSchedule = "schedule"
	PublishModeDraft    = "draft"
)

var knownProviders = map[string]struct{}{
	models.ProviderFacebook:  {},
	models.ProviderInstagram: {},
	models.ProviderLinkedIn:  {},
	models.ProviderTikTok:    {},
}

type PostService interface {
	Create(ctx context.Context, orgID, userID int64, pc *transfer.PostCreation) (*transfer.PostCreated, *models.PublishJob, error)
	List(ctx context.Context, orgID int64) ([]*models.Post, error)
	Info(ctx context.Context, orgID, postID int64) (*models.Post, *models.PublishJob, []*models.PublishAttempt, error)
}

type postService struct {
	db       *sql.DB
	posts    repository.PostRepository
	variants repository.PostVariantRepository
	jobs     repository.PublishJobRepository
	attempts repository.PublishAttemptRepository
	media    repository.MediaAssetRepository
}

func NewPostService(
	db *sql.DB,
	posts repository.PostRepository,
	variants repository.PostVariantRepository,
	jobs repository.PublishJobRepository,
	attempts repository.PublishAttemptRepository,
	media repository.MediaAssetRepository) PostService {
	return &postService{
		db:       db,
		posts:    posts,
		variants: variants,
		jobs:     jobs,
		attempts: attempts,
		media:    media,
	}
}

// Create stores the post, its variants, and (for now/schedule modes) the
// publish job in one transaction, so a post can never exist half-scheduled.
// The caller enqueues the returned job.
func (s *postService) Create(ctx context.Context, orgID, userID int64, pc *transfer.PostCreation) (*transfer.PostCreated, *models.PublishJob, error) {
	if pc == nil {
		return nil, nil, errors.New("post creation data is nil")
	}
	if pc.Caption == "" {
		return nil, nil, errors.New("caption cannot be empty")
	}
	if len(pc.Variants) == 0 {
		return nil, nil, errors.New("at least one variant is required")
	}
	for _, v := range pc.Variants {
		if _, ok := knownProviders[v.Provider]; !ok {
			return nil, nil, fmt.Errorf("unknown provider: %s", v.Provider)
		}
	}

	var runAt time.Time
	switch pc.PublishMode {
	case PublishModeNow:
		runAt = time.Now().UTC()
	case PublishModeSchedule:
		if pc.ScheduledAt == "" {
			return nil, nil, errors.New("scheduled_at required for scheduled posts")
		}
		parsed, err := time.Parse(time.RFC3339, pc.ScheduledAt)
		if err != nil {
			err = fmt.Errorf("invalid scheduled_at format: %w", err)
			slog.Info(err.Error())
			return nil, nil, err
		}
		runAt = parsed.UTC()
	case PublishModeDraft:
	default:
		return nil, nil, fmt.Errorf("unknown publish mode: %s", pc.PublishMode)
	}

	if pc.MediaAssetID != 0 {
		asset, err := s.media.GetByID(ctx, pc.MediaAssetID)
		if err != nil {
			return nil, nil, err
		}
		if asset == nil || asset.OrgID != orgID {
			return nil, nil, fmt.Errorf("media asset %d does not exist", pc.MediaAssetID)
		}
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		} else if err != nil {
			tx.Rollback()
		}
	}()

	post := models.Post{
		OrgID:           orgID,
		CreatedByUserID: userID,
		Caption:         pc.Caption,
		Hashtags:        pc.Hashtags,
		MediaAssetID:    sql.NullInt64{Int64: pc.MediaAssetID, Valid: pc.MediaAssetID != 0},
	}

	postID, err := s.posts.Create(ctx, tx, &post)
	if err != nil {
		return nil, nil, fmt.Errorf("error creating post: %w", err)
	}

	for _, v := range pc.Variants {
		variant := models.PostVariant{
			PostID:          postID,
			Provider:        v.Provider,
			Enabled:         v.Enabled,
			CaptionOverride: sql.NullString{String: v.CaptionOverride, Valid: v.CaptionOverride != ""},
		}
		if _, err = s.variants.Create(ctx, tx, &variant); err != nil {
			return nil, nil, fmt.Errorf("error creating variant: %w", err)
		}
	}

	if pc.PublishMode == PublishModeDraft {
		if err = tx.Commit(); err != nil {
			return nil, nil, fmt.Errorf("failed to commit transaction: %w", err)
		}
		return &transfer.PostCreated{PostID: postID}, nil, nil
	}

	timezone := pc.Timezone
	if timezone == "" {
		timezone = "UTC"
	}

	job := models.PublishJob{
		PostID:   postID,
		RunAtUTC: runAt,
		Timezone: timezone,
		Status:   models.PublishStatusScheduled,
	}

	jobID, err := s.jobs.Create(ctx, tx, &job)
	if err != nil {
		return nil, nil, fmt.Errorf("error creating publish job: %w", err)
	}
	job.ID = jobID

	if err = tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &transfer.PostCreated{PostID: postID, PublishJobID: jobID, RunAtUTC: runAt}, &job, nil
}

func (s *postService) List(ctx context.Context, orgID int64) ([]*models.Post, error) {
	return s.posts.ListByOrgID(ctx, orgID)
}

func (s *postService) Info(ctx context.Context, orgID, postID int64) (*models.Post, *models.PublishJob, []*models.PublishAttempt, error) {
	owned, err := s.posts.CheckByOrgID(ctx, postID, orgID)
	if err != nil {
		return nil, nil, nil, err
	}
	if !owned {
		return nil, nil, nil, fmt.Errorf("post %d does not exist", postID)
	}

	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, nil, nil, err
	}

	job, err := s.jobs.GetByPostID(ctx, postID)
	if err != nil {
		return nil, nil, nil, err
	}

	var attempts []*models.PublishAttempt
	if job != nil {
		attempts, err = s.attempts.ListByJobID(ctx, job.ID)
		if err != nil {
			return nil, nil, nil, err
		}
	}

	return post, job, attempts, nil
}
