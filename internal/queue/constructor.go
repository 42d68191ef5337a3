package queue

import (
	"time"

	"crosspost/internal/providers"
	"crosspost/internal/repository"
)

const TaskTypePublish = "publish:job"

const (
	// MaxAttempts is the total number of passes a job gets, the first
	// delivery included.
	MaxAttempts = 3

	// RetryBaseDelay seeds the exponential backoff between passes.
	RetryBaseDelay = 5 * time.Second
)

type PublishTaskPayload struct {
	PublishJobID int64 `json:"publish_job_id"`
}

// Worker runs one pass over a due publish job: resolve the account per
// enabled variant, dispatch through the adapter registry, and record every
// outcome in the attempt ledger.
type Worker struct {
	jobs     repository.PublishJobRepository
	posts    repository.PostRepository
	variants repository.PostVariantRepository
	attempts repository.PublishAttemptRepository
	accounts repository.SocialAccountRepository
	media    repository.MediaAssetRepository
	registry *providers.Registry

	// skipSucceeded skips variants that already produced a SUCCESS attempt
	// for this job on an earlier pass. Off by default: the observed
	// behavior re-attempts everything, which can double-post to a platform
	// that already succeeded.
	skipSucceeded bool
}

func NewWorker(
	jobs repository.PublishJobRepository,
	posts repository.PostRepository,
	variants repository.PostVariantRepository,
	attempts repository.PublishAttemptRepository,
	accounts repository.SocialAccountRepository,
	media repository.MediaAssetRepository,
	registry *providers.Registry,
	skipSucceeded bool) *Worker {
	return &Worker{
		jobs:          jobs,
		posts:         posts,
		variants:      variants,
		attempts:      attempts,
		accounts:      accounts,
		media:         media,
		registry:      registry,
		skipSucceeded: skipSucceeded,
	}
}
