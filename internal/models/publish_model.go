package models

import (
	"database/sql"
	"time"
)

// PublishJob ties a post to the instant it should go out and carries the
// aggregate outcome across all of its variants. At most one live job
// exists per post.
type PublishJob struct {
	ID        int64     `db:"id" json:"id"`
	PostID    int64     `db:"post_id" json:"post_id"`
	RunAtUTC  time.Time `db:"run_at_utc" json:"run_at_utc"`
	Timezone  string    `db:"timezone" json:"timezone"` // display only, never shifts dispatch
	Status    string    `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

const (
	PublishStatusScheduled  = "scheduled"
	PublishStatusPublishing = "publishing"
	PublishStatusPublished  = "published"
	PublishStatusFailed     = "failed"
)

// PublishAttempt is one ledger entry per (variant, pass). Append-only;
// nothing ever mutates or deletes a row.
type PublishAttempt struct {
	ID               int64          `db:"id" json:"id"`
	PublishJobID     int64          `db:"publish_job_id" json:"publish_job_id"`
	Provider         string         `db:"provider" json:"provider"`
	Status           string         `db:"status" json:"status"`
	ExternalID       sql.NullString `db:"external_id" json:"external_id"`
	Permalink        sql.NullString `db:"permalink" json:"permalink"`
	ErrorCode        sql.NullString `db:"error_code" json:"error_code"`
	ErrorMessage     sql.NullString `db:"error_message" json:"error_message"`
	ProviderResponse sql.NullString `db:"provider_response" json:"provider_response"`
	AttemptNumber    int            `db:"attempt_number" json:"attempt_number"`
	CreatedAt        time.Time      `db:"created_at" json:"created_at"`
}

const (
	AttemptStatusSuccess = "success"
	AttemptStatusFailed  = "failed"
)
