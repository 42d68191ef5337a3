package queue

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"crosspost/internal/models"
	"crosspost/internal/providers"
)

type fakeJobRepo struct {
	job      *models.PublishJob
	statuses []string
}

func (f *fakeJobRepo) Create(ctx context.Context, tx *sql.Tx, job *models.PublishJob) (int64, error) {
	return 0, nil
}

func (f *fakeJobRepo) GetByID(ctx context.Context, id int64) (*models.PublishJob, error) {
	if f.job != nil && f.job.ID == id {
		return f.job, nil
	}
	return nil, nil
}

func (f *fakeJobRepo) GetByPostID(ctx context.Context, postID int64) (*models.PublishJob, error) {
	return nil, nil
}

func (f *fakeJobRepo) UpdateStatus(ctx context.Context, status string, jobID int64) error {
	f.statuses = append(f.statuses, status)
	f.job.Status = status
	return nil
}

func (f *fakeJobRepo) ListDue(ctx context.Context, before time.Time) ([]*models.PublishJob, error) {
	return nil, nil
}

type fakePostRepo struct {
	post *models.Post
}

func (f *fakePostRepo) Create(ctx context.Context, tx *sql.Tx, post *models.Post) (int64, error) {
	return 0, nil
}

func (f *fakePostRepo) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	if f.post != nil && f.post.ID == id {
		return f.post, nil
	}
	return nil, nil
}

func (f *fakePostRepo) ListByOrgID(ctx context.Context, orgID int64) ([]*models.Post, error) {
	return nil, nil
}

func (f *fakePostRepo) CheckByOrgID(ctx context.Context, postID, orgID int64) (bool, error) {
	return false, nil
}

type fakeVariantRepo struct {
	variants []*models.PostVariant
}

func (f *fakeVariantRepo) Create(ctx context.Context, tx *sql.Tx, variant *models.PostVariant) (int64, error) {
	return 0, nil
}

func (f *fakeVariantRepo) ListByPostID(ctx context.Context, postID int64) ([]*models.PostVariant, error) {
	return f.variants, nil
}

type fakeAttemptRepo struct {
	attempts []*models.PublishAttempt
}

func (f *fakeAttemptRepo) Create(ctx context.Context, attempt *models.PublishAttempt) (int64, error) {
	f.attempts = append(f.attempts, attempt)
	return int64(len(f.attempts)), nil
}

func (f *fakeAttemptRepo) ListByJobID(ctx context.Context, jobID int64) ([]*models.PublishAttempt, error) {
	return f.attempts, nil
}

func (f *fakeAttemptRepo) HasSuccess(ctx context.Context, jobID int64, provider string) (bool, error) {
	for _, a := range f.attempts {
		if a.PublishJobID == jobID && a.Provider == provider && a.Status == models.AttemptStatusSuccess {
			return true, nil
		}
	}
	return false, nil
}

type fakeAccountRepo struct {
	accounts map[string]*models.SocialAccount // keyed by provider
}

func (f *fakeAccountRepo) GetByID(ctx context.Context, id int64) (*models.SocialAccount, error) {
	return nil, nil
}

func (f *fakeAccountRepo) GetByOrgAndProvider(ctx context.Context, orgID int64, provider string) (*models.SocialAccount, error) {
	return f.accounts[provider], nil
}

func (f *fakeAccountRepo) ListByOrgID(ctx context.Context, orgID int64) ([]*models.SocialAccount, error) {
	return nil, nil
}

type fakeMediaRepo struct {
	asset *models.MediaAsset
}

func (f *fakeMediaRepo) Create(ctx context.Context, asset *models.MediaAsset) (int64, error) {
	return 0, nil
}

func (f *fakeMediaRepo) GetByID(ctx context.Context, id int64) (*models.MediaAsset, error) {
	return f.asset, nil
}

type fakeAdapter struct {
	result *providers.PublishResult
	err    error
	calls  int
}

func (f *fakeAdapter) ValidateConnection(ctx context.Context, account *models.SocialAccount) (*providers.ConnectionValidation, error) {
	return &providers.ConnectionValidation{Ok: true}, nil
}

func (f *fakeAdapter) Publish(ctx context.Context, variant *models.PostVariant, account *models.SocialAccount, caption string, media *models.MediaAsset) (*providers.PublishResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type workerFixture struct {
	worker   *Worker
	jobs     *fakeJobRepo
	attempts *fakeAttemptRepo
}

func newFixture(variants []*models.PostVariant, accounts map[string]*models.SocialAccount, adapters map[string]providers.Adapter, skipSucceeded bool) *workerFixture {
	jobs := &fakeJobRepo{job: &models.PublishJob{ID: 1, PostID: 10, Status: models.PublishStatusScheduled}}
	posts := &fakePostRepo{post: &models.Post{ID: 10, OrgID: 100, Caption: "hello world"}}
	attempts := &fakeAttemptRepo{}

	worker := NewWorker(jobs, posts,
		&fakeVariantRepo{variants: variants},
		attempts,
		&fakeAccountRepo{accounts: accounts},
		&fakeMediaRepo{},
		providers.NewRegistry(adapters),
		skipSucceeded)

	return &workerFixture{worker: worker, jobs: jobs, attempts: attempts}
}

func enabledVariant(provider string) *models.PostVariant {
	return &models.PostVariant{PostID: 10, Provider: provider, Enabled: true}
}

func account(provider string) *models.SocialAccount {
	return &models.SocialAccount{ID: 1, OrgID: 100, Provider: provider}
}

func TestZeroEnabledVariantsPublishesImmediately(t *testing.T) {
	fx := newFixture([]*models.PostVariant{
		{PostID: 10, Provider: models.ProviderFacebook, Enabled: false},
	}, nil, nil, false)

	if err := fx.worker.PublishDue(context.Background(), 1, 0, MaxAttempts); err != nil {
		t.Fatalf("PublishDue: %v", err)
	}
	if fx.jobs.job.Status != models.PublishStatusPublished {
		t.Fatalf("status = %s, want published", fx.jobs.job.Status)
	}
	if len(fx.attempts.attempts) != 0 {
		t.Fatalf("expected no attempts, got %d", len(fx.attempts.attempts))
	}
}

func TestAllVariantsSucceed(t *testing.T) {
	fb := &fakeAdapter{result: &providers.PublishResult{ExternalID: "fb-1", Permalink: "https://fb/1"}}
	li := &fakeAdapter{result: &providers.PublishResult{ExternalID: "li-1"}}

	fx := newFixture(
		[]*models.PostVariant{enabledVariant(models.ProviderFacebook), enabledVariant(models.ProviderLinkedIn)},
		map[string]*models.SocialAccount{
			models.ProviderFacebook: account(models.ProviderFacebook),
			models.ProviderLinkedIn: account(models.ProviderLinkedIn),
		},
		map[string]providers.Adapter{
			models.ProviderFacebook: fb,
			models.ProviderLinkedIn: li,
		}, false)

	if err := fx.worker.PublishDue(context.Background(), 1, 0, MaxAttempts); err != nil {
		t.Fatalf("PublishDue: %v", err)
	}
	if fx.jobs.job.Status != models.PublishStatusPublished {
		t.Fatalf("status = %s, want published", fx.jobs.job.Status)
	}
	if len(fx.attempts.attempts) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(fx.attempts.attempts))
	}

	// Attempts are appended in variant order.
	first, second := fx.attempts.attempts[0], fx.attempts.attempts[1]
	if first.Provider != models.ProviderFacebook || second.Provider != models.ProviderLinkedIn {
		t.Fatalf("attempt order = %s, %s", first.Provider, second.Provider)
	}
	for _, a := range fx.attempts.attempts {
		if a.Status != models.AttemptStatusSuccess {
			t.Fatalf("attempt status = %s, want success", a.Status)
		}
		if a.AttemptNumber != 1 {
			t.Fatalf("attempt number = %d, want 1", a.AttemptNumber)
		}
	}
	if first.ExternalID.String != "fb-1" || first.Permalink.String != "https://fb/1" {
		t.Fatalf("unexpected first attempt: %+v", first)
	}
}

func TestMissingAccountRecordsNoAccount(t *testing.T) {
	adapter := &fakeAdapter{result: &providers.PublishResult{ExternalID: "x"}}

	fx := newFixture(
		[]*models.PostVariant{enabledVariant(models.ProviderLinkedIn)},
		nil,
		map[string]providers.Adapter{models.ProviderLinkedIn: adapter}, false)

	err := fx.worker.PublishDue(context.Background(), 1, 0, MaxAttempts)
	if err == nil {
		t.Fatal("expected retriable error")
	}
	if adapter.calls != 0 {
		t.Fatalf("adapter called %d times for a variant without an account", adapter.calls)
	}
	if len(fx.attempts.attempts) != 1 {
		t.Fatalf("expected 1 attempt, got %d", len(fx.attempts.attempts))
	}
	a := fx.attempts.attempts[0]
	if a.Status != models.AttemptStatusFailed || a.ErrorCode.String != "NO_ACCOUNT" {
		t.Fatalf("unexpected attempt: %+v", a)
	}
	if fx.jobs.job.Status != models.PublishStatusScheduled {
		t.Fatalf("status = %s, want scheduled", fx.jobs.job.Status)
	}
}

func TestProviderErrorRecorded(t *testing.T) {
	adapter := &fakeAdapter{err: &providers.ProviderError{
		Code:        "RATE_LIMITED",
		UserMessage: "Try again later.",
		RawResponse: `{"status":429}`,
	}}

	fx := newFixture(
		[]*models.PostVariant{enabledVariant(models.ProviderLinkedIn)},
		map[string]*models.SocialAccount{models.ProviderLinkedIn: account(models.ProviderLinkedIn)},
		map[string]providers.Adapter{models.ProviderLinkedIn: adapter}, false)

	if err := fx.worker.PublishDue(context.Background(), 1, 0, MaxAttempts); err == nil {
		t.Fatal("expected retriable error")
	}

	a := fx.attempts.attempts[0]
	if a.ErrorCode.String != "RATE_LIMITED" || a.ErrorMessage.String != "Try again later." {
		t.Fatalf("unexpected attempt: %+v", a)
	}
	if a.ProviderResponse.String != `{"status":429}` {
		t.Fatalf("raw response not retained: %+v", a)
	}
}

func TestUnexpectedErrorDowngradedToUnknown(t *testing.T) {
	adapter := &fakeAdapter{err: errors.New("connection reset")}

	fx := newFixture(
		[]*models.PostVariant{enabledVariant(models.ProviderFacebook), enabledVariant(models.ProviderLinkedIn)},
		map[string]*models.SocialAccount{
			models.ProviderFacebook: account(models.ProviderFacebook),
			models.ProviderLinkedIn: account(models.ProviderLinkedIn),
		},
		map[string]providers.Adapter{
			models.ProviderFacebook: adapter,
			models.ProviderLinkedIn: &fakeAdapter{result: &providers.PublishResult{ExternalID: "li-1"}},
		}, false)

	if err := fx.worker.PublishDue(context.Background(), 1, 0, MaxAttempts); err == nil {
		t.Fatal("expected retriable error")
	}

	// The failing variant must not stop its sibling.
	if len(fx.attempts.attempts) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(fx.attempts.attempts))
	}
	if fx.attempts.attempts[0].ErrorCode.String != "UNKNOWN" {
		t.Fatalf("unexpected code: %s", fx.attempts.attempts[0].ErrorCode.String)
	}
	if fx.attempts.attempts[1].Status != models.AttemptStatusSuccess {
		t.Fatalf("sibling variant not processed: %+v", fx.attempts.attempts[1])
	}
}

func TestFailureOnFinalPassMarksFailed(t *testing.T) {
	adapter := &fakeAdapter{err: &providers.ProviderError{Code: "TOKEN_EXPIRED", UserMessage: "Reconnect."}}

	fx := newFixture(
		[]*models.PostVariant{enabledVariant(models.ProviderFacebook)},
		map[string]*models.SocialAccount{models.ProviderFacebook: account(models.ProviderFacebook)},
		map[string]providers.Adapter{models.ProviderFacebook: adapter}, false)

	err := fx.worker.PublishDue(context.Background(), 1, MaxAttempts-1, MaxAttempts)
	if err != nil {
		t.Fatalf("final pass must not signal a retry: %v", err)
	}
	if fx.jobs.job.Status != models.PublishStatusFailed {
		t.Fatalf("status = %s, want failed", fx.jobs.job.Status)
	}
	if got := fx.attempts.attempts[0].AttemptNumber; got != MaxAttempts {
		t.Fatalf("attempt number = %d, want %d", got, MaxAttempts)
	}
}

func TestRetriedPassReattemptsSucceededVariants(t *testing.T) {
	fb := &fakeAdapter{result: &providers.PublishResult{ExternalID: "fb-2"}}

	fx := newFixture(
		[]*models.PostVariant{enabledVariant(models.ProviderFacebook)},
		map[string]*models.SocialAccount{models.ProviderFacebook: account(models.ProviderFacebook)},
		map[string]providers.Adapter{models.ProviderFacebook: fb}, false)

	// A success from the first pass is already in the ledger.
	fx.attempts.attempts = append(fx.attempts.attempts, &models.PublishAttempt{
		PublishJobID:  1,
		Provider:      models.ProviderFacebook,
		Status:        models.AttemptStatusSuccess,
		AttemptNumber: 1,
	})

	if err := fx.worker.PublishDue(context.Background(), 1, 1, MaxAttempts); err != nil {
		t.Fatalf("PublishDue: %v", err)
	}

	// Default mode re-publishes, so the pass adds a second attempt.
	if fb.calls != 1 {
		t.Fatalf("adapter calls = %d, want 1", fb.calls)
	}
	if len(fx.attempts.attempts) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(fx.attempts.attempts))
	}
	if got := fx.attempts.attempts[1].AttemptNumber; got != 2 {
		t.Fatalf("attempt number = %d, want 2", got)
	}
}

func TestSkipSucceededModeSkipsPriorSuccess(t *testing.T) {
	fb := &fakeAdapter{result: &providers.PublishResult{ExternalID: "fb-2"}}
	li := &fakeAdapter{result: &providers.PublishResult{ExternalID: "li-1"}}

	fx := newFixture(
		[]*models.PostVariant{enabledVariant(models.ProviderFacebook), enabledVariant(models.ProviderLinkedIn)},
		map[string]*models.SocialAccount{
			models.ProviderFacebook: account(models.ProviderFacebook),
			models.ProviderLinkedIn: account(models.ProviderLinkedIn),
		},
		map[string]providers.Adapter{
			models.ProviderFacebook: fb,
			models.ProviderLinkedIn: li,
		}, true)

	fx.attempts.attempts = append(fx.attempts.attempts, &models.PublishAttempt{
		PublishJobID:  1,
		Provider:      models.ProviderFacebook,
		Status:        models.AttemptStatusSuccess,
		AttemptNumber: 1,
	})

	if err := fx.worker.PublishDue(context.Background(), 1, 1, MaxAttempts); err != nil {
		t.Fatalf("PublishDue: %v", err)
	}
	if fb.calls != 0 {
		t.Fatalf("facebook re-published despite prior success: %d calls", fb.calls)
	}
	if li.calls != 1 {
		t.Fatalf("linkedin calls = %d, want 1", li.calls)
	}
	if fx.jobs.job.Status != models.PublishStatusPublished {
		t.Fatalf("status = %s, want published", fx.jobs.job.Status)
	}
}

func TestUnknownJobIsDropped(t *testing.T) {
	fx := newFixture(nil, nil, nil, false)

	if err := fx.worker.PublishDue(context.Background(), 999, 0, MaxAttempts); err != nil {
		t.Fatalf("missing job must not error: %v", err)
	}
	if len(fx.jobs.statuses) != 0 {
		t.Fatalf("status updated for a missing job: %v", fx.jobs.statuses)
	}
}

func TestRetryDelayGrowsExponentially(t *testing.T) {
	// n is 0-based: the count of retries already performed when the
	// queue asks for the next delay.
	for n, want := range map[int]time.Duration{
		0: RetryBaseDelay,
		1: 2 * RetryBaseDelay,
		2: 4 * RetryBaseDelay,
	} {
		if got := RetryDelay(n, nil, nil); got != want {
			t.Fatalf("RetryDelay(%d) = %s, want %s", n, got, want)
		}
	}
	if RetryDelay(0, nil, nil) == RetryDelay(1, nil, nil) {
		t.Fatal("first and second retry delays must differ")
	}
}
