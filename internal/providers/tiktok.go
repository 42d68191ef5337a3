package providers

import (
	"context"

	"crosspost/internal/models"
)

// TikTokAdapter is a stub so the registry and orchestration loop stay
// provider-count-agnostic until the real integration lands.
type TikTokAdapter struct{}

func NewTikTokAdapter() *TikTokAdapter {
	return &TikTokAdapter{}
}

func (t *TikTokAdapter) ValidateConnection(ctx context.Context, account *models.SocialAccount) (*ConnectionValidation, error) {
	return &ConnectionValidation{
		Ok:              false,
		Warnings:        []string{},
		RequiredActions: []string{"TikTok integration is not yet available."},
	}, nil
}

func (t *TikTokAdapter) Publish(ctx context.Context, variant *models.PostVariant, account *models.SocialAccount, caption string, media *models.MediaAsset) (*PublishResult, error) {
	return nil, newProviderError(
		"TikTok publishing not implemented",
		"NOT_IMPLEMENTED",
		"TikTok publishing is coming soon.")
}
