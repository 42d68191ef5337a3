package jobs

import (
	"context"
	"log"
	"time"

	"github.com/hibiken/asynq"

	"crosspost/internal/queue"
	"crosspost/internal/repository"
)

// reconcileGrace keeps the reconciler from racing jobs whose queue entry
// simply has not come due yet.
const reconcileGrace = time.Minute

// ReconcileJob re-enqueues publish jobs that are past due but still
// scheduled, covering an enqueue lost between the creation transaction and
// Redis. Task-id dedup makes re-enqueueing an already-queued job a no-op.
type ReconcileJob struct {
	jobs        repository.PublishJobRepository
	asynqClient *asynq.Client
}

func NewReconcileJob(jobs repository.PublishJobRepository, asynqClient *asynq.Client) *ReconcileJob {
	return &ReconcileJob{jobs: jobs, asynqClient: asynqClient}
}

func (j *ReconcileJob) Run() {
	ctx := context.Background()

	due, err := j.jobs.ListDue(ctx, time.Now().Add(-reconcileGrace))
	if err != nil {
		log.Printf("Reconcile: error listing due jobs: %v", err)
		return
	}

	for _, job := range due {
		if err := queue.EnqueuePublishJob(j.asynqClient, job.ID, job.RunAtUTC); err != nil {
			log.Printf("Reconcile: error enqueueing job %d: %v", job.ID, err)
		}
	}
}
