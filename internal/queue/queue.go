package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"
)

// EnqueuePublishJob schedules a publish job for its run instant. The task
// id is derived from the job id, so redundant enqueues of the same job are
// de-duplicated at the queue layer.
func EnqueuePublishJob(client *asynq.Client, jobID int64, runAtUTC time.Time) error {
	payload, err := json.Marshal(PublishTaskPayload{PublishJobID: jobID})
	if err != nil {
		return err
	}

	delay := time.Until(runAtUTC)
	if delay < 0 {
		delay = 0
	}

	task := asynq.NewTask(TaskTypePublish, payload)

	_, err = client.Enqueue(task,
		asynq.ProcessIn(delay),
		asynq.TaskID(fmt.Sprintf("publish:%d", jobID)),
		asynq.MaxRetry(MaxAttempts-1))
	if err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			log.Printf("Publish job %d already enqueued", jobID)
			return nil
		}
		return err
	}

	log.Printf("Publish job %d scheduled in %s", jobID, delay)
	return nil
}

// RetryDelay implements the backoff between passes: base * 2^n, where n is
// the 0-based count of retries already performed, as asynq hands it over.
// First retry 5s, second 10s.
func RetryDelay(n int, err error, task *asynq.Task) time.Duration {
	if n < 0 {
		n = 0
	}
	return RetryBaseDelay * time.Duration(1<<uint(n))
}
