package providers

import (
	"context"
	"fmt"
	"time"

	"crosspost/internal/models"
)

// ConnectionValidation is the result of a non-destructive account health
// check. Ok is true iff no required actions were produced.
type ConnectionValidation struct {
	Ok              bool     `json:"ok"`
	Warnings        []string `json:"warnings"`
	RequiredActions []string `json:"required_actions"`
}

type PublishResult struct {
	ExternalID string `json:"external_id"`
	Permalink  string `json:"permalink,omitempty"`
}

// Adapter is the one contract every platform implements. Publish either
// returns a result or fails with a *ProviderError.
type Adapter interface {
	ValidateConnection(ctx context.Context, account *models.SocialAccount) (*ConnectionValidation, error)
	Publish(ctx context.Context, variant *models.PostVariant, account *models.SocialAccount, caption string, media *models.MediaAsset) (*PublishResult, error)
}

// ProviderError is an expected, per-provider business failure. UserMessage
// is the only field meant for display; RawResponse is kept for diagnostics.
type ProviderError struct {
	Code        string
	UserMessage string
	RawResponse string
	Message     string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func newProviderError(message, code, userMessage string) *ProviderError {
	return &ProviderError{Code: code, UserMessage: userMessage, Message: message}
}

// effectiveCaption applies the variant's override when present.
func effectiveCaption(variant *models.PostVariant, caption string) string {
	if variant.CaptionOverride.Valid && variant.CaptionOverride.String != "" {
		return variant.CaptionOverride.String
	}
	return caption
}

// checkExpiry applies the shared expiry policy: a token already past its
// expiry ends validation with a single reconnect action and no probe; one
// within seven days only adds a warning.
func checkExpiry(account *models.SocialAccount, reconnect string) (*ConnectionValidation, []string) {
	warnings := []string{}

	if account.ExpiresAt.Valid {
		daysLeft := int(time.Until(account.ExpiresAt.Time).Hours() / 24)
		if daysLeft <= 0 {
			return &ConnectionValidation{
				Ok:              false,
				Warnings:        []string{},
				RequiredActions: []string{reconnect},
			}, nil
		}
		if daysLeft <= 7 {
			warnings = append(warnings, fmt.Sprintf("Token expires in %d days. Consider reconnecting.", daysLeft))
		}
	}

	return nil, warnings
}
