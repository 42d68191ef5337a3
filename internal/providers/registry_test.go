package providers

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"crosspost/internal/models"
)

func TestRegistryGet(t *testing.T) {
	tiktok := NewTikTokAdapter()
	registry := NewRegistry(map[string]Adapter{
		models.ProviderTikTok: tiktok,
	})

	adapter, err := registry.Get(models.ProviderTikTok)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if adapter != tiktok {
		t.Fatal("wrong adapter returned")
	}
}

func TestRegistryUnknownProvider(t *testing.T) {
	registry := NewRegistry(map[string]Adapter{})

	if _, err := registry.Get("myspace"); err == nil {
		t.Fatal("expected an error for an unregistered provider")
	}
}

func TestTikTokPublishNotImplemented(t *testing.T) {
	adapter := NewTikTokAdapter()

	_, err := adapter.Publish(context.Background(), variantFor(models.ProviderTikTok), &models.SocialAccount{}, "caption", nil)

	var pe *ProviderError
	if !errors.As(err, &pe) || pe.Code != "NOT_IMPLEMENTED" {
		t.Fatalf("expected NOT_IMPLEMENTED, got %v", err)
	}
}

func TestCheckExpiry(t *testing.T) {
	reconnect := "reconnect please"

	expired := &models.SocialAccount{
		ExpiresAt: sql.NullTime{Time: time.Now().Add(-time.Hour), Valid: true},
	}
	done, _ := checkExpiry(expired, reconnect)
	if done == nil || done.Ok || len(done.RequiredActions) != 1 || done.RequiredActions[0] != reconnect {
		t.Fatalf("expired token: got %+v", done)
	}

	soon := &models.SocialAccount{
		ExpiresAt: sql.NullTime{Time: time.Now().Add(5 * 24 * time.Hour), Valid: true},
	}
	done, warnings := checkExpiry(soon, reconnect)
	if done != nil {
		t.Fatalf("near-expiry token must not end validation, got %+v", done)
	}
	if len(warnings) != 1 {
		t.Fatalf("near-expiry warnings = %v", warnings)
	}

	healthy := &models.SocialAccount{
		ExpiresAt: sql.NullTime{Time: time.Now().Add(60 * 24 * time.Hour), Valid: true},
	}
	done, warnings = checkExpiry(healthy, reconnect)
	if done != nil || len(warnings) != 0 {
		t.Fatalf("healthy token: done %+v warnings %v", done, warnings)
	}

	noExpiry := &models.SocialAccount{}
	done, warnings = checkExpiry(noExpiry, reconnect)
	if done != nil || len(warnings) != 0 {
		t.Fatalf("no expiry on record: done %+v warnings %v", done, warnings)
	}
}

func TestEffectiveCaption(t *testing.T) {
	base := "base caption"

	plain := &models.PostVariant{}
	if got := effectiveCaption(plain, base); got != base {
		t.Fatalf("got %q", got)
	}

	overridden := &models.PostVariant{
		CaptionOverride: sql.NullString{String: "override", Valid: true},
	}
	if got := effectiveCaption(overridden, base); got != "override" {
		t.Fatalf("got %q", got)
	}

	emptyOverride := &models.PostVariant{
		CaptionOverride: sql.NullString{String: "", Valid: true},
	}
	if got := effectiveCaption(emptyOverride, base); got != base {
		t.Fatalf("empty override must fall back, got %q", got)
	}
}
