package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"crosspost/internal/models"
	"crosspost/internal/transfer"
	"crosspost/pkg/vault"
)

const (
	graphAPI        = "https://graph.facebook.com/v21.0"
	maxPollAttempts = 30
)

// metaMetadata is the provider-specific blob stored on a Meta account.
// The page access token is stored encrypted, same as the primary token.
type metaMetadata struct {
	PageID                     string `json:"pageId"`
	PageName                   string `json:"pageName"`
	PageAccessToken            string `json:"pageAccessToken"`
	InstagramBusinessAccountID string `json:"instagramBusinessAccountId"`
}

// MetaAdapter publishes to the Facebook page feed and to Instagram
// business accounts, both through the Graph API.
type MetaAdapter struct {
	vault         *vault.Vault
	client        *http.Client
	graphURL      string
	publicBaseURL string
	pollInterval  time.Duration
}

func NewMetaAdapter(v *vault.Vault, publicBaseURL string) *MetaAdapter {
	return &MetaAdapter{
		vault:         v,
		client:        http.DefaultClient,
		graphURL:      graphAPI,
		publicBaseURL: publicBaseURL,
		pollInterval:  2 * time.Second,
	}
}

func (m *MetaAdapter) ValidateConnection(ctx context.Context, account *models.SocialAccount) (*ConnectionValidation, error) {
	reconnect := "Token expired. Please reconnect your Meta account."

	done, warnings := checkExpiry(account, reconnect)
	if done != nil {
		return done, nil
	}

	requiredActions := []string{}

	accessToken, err := m.vault.Decrypt(account.AccessTokenEnc)
	if err != nil {
		slog.Info(err.Error())
		requiredActions = append(requiredActions, "Unable to verify connection.")
		return &ConnectionValidation{Ok: false, Warnings: warnings, RequiredActions: requiredActions}, nil
	}

	req, err := http.NewRequestWithContext(ctx, "GET", fmt.Sprintf("%s/me?access_token=%s", m.graphURL, url.QueryEscape(accessToken)), nil)
	if err != nil {
		return nil, err
	}

	resp, err := m.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		requiredActions = append(requiredActions, "Unable to verify connection.")
		return &ConnectionValidation{Ok: false, Warnings: warnings, RequiredActions: requiredActions}, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp transfer.MetaErrorResponse
		body, _ := io.ReadAll(resp.Body)
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Code == 190 {
			return &ConnectionValidation{
				Ok:              false,
				Warnings:        []string{},
				RequiredActions: []string{"Token is invalid. Please reconnect your Meta account."},
			}, nil
		}
		requiredActions = append(requiredActions, "Unable to verify connection. Try reconnecting.")
	}

	return &ConnectionValidation{
		Ok:              len(requiredActions) == 0,
		Warnings:        warnings,
		RequiredActions: requiredActions,
	}, nil
}

func (m *MetaAdapter) Publish(ctx context.Context, variant *models.PostVariant, account *models.SocialAccount, caption string, media *models.MediaAsset) (*PublishResult, error) {
	var metadata metaMetadata
	if account.MetadataJSON != "" {
		if err := json.Unmarshal([]byte(account.MetadataJSON), &metadata); err != nil {
			slog.Info(err.Error())
		}
	}

	accessToken, err := m.vault.Decrypt(account.AccessTokenEnc)
	if err != nil {
		return nil, err
	}

	text := effectiveCaption(variant, caption)

	switch variant.Provider {
	case models.ProviderFacebook:
		return m.publishToFacebook(ctx, metadata, accessToken, text, media)
	case models.ProviderInstagram:
		return m.publishToInstagram(ctx, metadata, accessToken, text, media)
	}

	return nil, newProviderError(
		fmt.Sprintf("unsupported Meta variant provider: %s", variant.Provider),
		"UNSUPPORTED_PROVIDER",
		"This platform is not supported yet.")
}

func (m *MetaAdapter) publishToFacebook(ctx context.Context, metadata metaMetadata, accessToken, caption string, media *models.MediaAsset) (*PublishResult, error) {
	if metadata.PageID == "" {
		return nil, newProviderError(
			"no Facebook page id in metadata",
			"MISSING_PAGE_ID",
			"No Facebook Page connected. Please reconnect your account.")
	}

	// Prefer the page-scoped token when the connect flow stored one.
	token := accessToken
	if metadata.PageAccessToken != "" {
		pageToken, err := m.vault.Decrypt(metadata.PageAccessToken)
		if err != nil {
			return nil, err
		}
		token = pageToken
	}

	var endpoint string
	form := url.Values{}
	form.Set("access_token", token)

	switch {
	case media != nil && strings.HasPrefix(media.MimeType, "image/"):
		endpoint = fmt.Sprintf("%s/%s/photos", m.graphURL, metadata.PageID)
		form.Set("url", m.resolveMediaURL(media.URL))
		form.Set("message", caption)
	case media != nil && strings.HasPrefix(media.MimeType, "video/"):
		endpoint = fmt.Sprintf("%s/%s/videos", m.graphURL, metadata.PageID)
		form.Set("file_url", m.resolveMediaURL(media.URL))
		form.Set("description", caption)
	default:
		endpoint = fmt.Sprintf("%s/%s/feed", m.graphURL, metadata.PageID)
		form.Set("message", caption)
	}

	status, body, err := m.postForm(ctx, endpoint, form)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, mapMetaError(body)
	}

	var result transfer.MetaPublishResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("error parsing response: %w", err)
	}

	externalID := result.ID
	if externalID == "" {
		externalID = result.PostID
	}

	return &PublishResult{ExternalID: externalID, Permalink: result.PermalinkURL}, nil
}

func (m *MetaAdapter) publishToInstagram(ctx context.Context, metadata metaMetadata, accessToken, caption string, media *models.MediaAsset) (*PublishResult, error) {
	igAccountID := metadata.InstagramBusinessAccountID
	if igAccountID == "" {
		return nil, newProviderError(
			"no Instagram business account id in metadata",
			"MISSING_IG_ACCOUNT",
			"No Instagram Business Account connected. Please reconnect your account.")
	}

	if media == nil {
		return nil, newProviderError(
			"Instagram requires media",
			"MEDIA_REQUIRED",
			"Instagram posts require an image or video.")
	}

	mediaURL := m.resolveMediaURL(media.URL)
	isVideo := strings.HasPrefix(media.MimeType, "video/")

	// Phase 1: create the media container.
	form := url.Values{}
	form.Set("caption", caption)
	form.Set("access_token", accessToken)
	if isVideo {
		form.Set("media_type", "VIDEO")
		form.Set("video_url", mediaURL)
	} else {
		form.Set("image_url", mediaURL)
	}

	status, body, err := m.postForm(ctx, fmt.Sprintf("%s/%s/media", m.graphURL, igAccountID), form)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, mapMetaError(body)
	}

	var container transfer.MetaPublishResponse
	if err := json.Unmarshal(body, &container); err != nil {
		return nil, fmt.Errorf("error parsing container response: %w", err)
	}

	if isVideo {
		if err := m.waitForMediaReady(ctx, container.ID, accessToken); err != nil {
			return nil, err
		}
	}

	// Phase 2: publish the container by creation id.
	publishForm := url.Values{}
	publishForm.Set("creation_id", container.ID)
	publishForm.Set("access_token", accessToken)

	status, body, err = m.postForm(ctx, fmt.Sprintf("%s/%s/media_publish", m.graphURL, igAccountID), publishForm)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, mapMetaError(body)
	}

	var published transfer.MetaPublishResponse
	if err := json.Unmarshal(body, &published); err != nil {
		return nil, fmt.Errorf("error parsing publish response: %w", err)
	}

	// The Graph API does not hand back a permalink on this path.
	return &PublishResult{ExternalID: published.ID}, nil
}

func (m *MetaAdapter) waitForMediaReady(ctx context.Context, containerID, accessToken string) error {
	for i := 0; i < maxPollAttempts; i++ {
		reqURL := fmt.Sprintf("%s/%s?fields=status_code&access_token=%s", m.graphURL, containerID, url.QueryEscape(accessToken))
		req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
		if err != nil {
			return err
		}

		resp, err := m.client.Do(req)
		if err != nil {
			return fmt.Errorf("HTTP request error: %w", err)
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("error reading response body: %w", err)
		}

		var containerStatus transfer.MetaContainerStatus
		if err := json.Unmarshal(body, &containerStatus); err != nil {
			return fmt.Errorf("error parsing status response: %w", err)
		}

		switch containerStatus.StatusCode {
		case "FINISHED":
			return nil
		case "ERROR":
			return newProviderError(
				"Instagram media processing failed",
				"MEDIA_PROCESSING_ERROR",
				"Instagram could not process this media. Check format and size.")
		}

		timer := time.NewTimer(m.pollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return newProviderError(
		"Instagram media processing timed out",
		"MEDIA_TIMEOUT",
		"Instagram is still processing this media. Please try again later.")
}

// resolveMediaURL rewrites a local relative URL to an absolute one, since
// Meta fetches media itself and cannot resolve a bare path.
func (m *MetaAdapter) resolveMediaURL(mediaURL string) string {
	if strings.HasPrefix(mediaURL, "/") {
		return m.publicBaseURL + mediaURL
	}
	return mediaURL
}

func (m *MetaAdapter) postForm(ctx context.Context, endpoint string, form url.Values) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return 0, nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := m.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("HTTP request error: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("error reading response body: %w", err)
	}

	return resp.StatusCode, body, nil
}

func mapMetaError(raw []byte) *ProviderError {
	var errResp transfer.MetaErrorResponse
	if err := json.Unmarshal(raw, &errResp); err != nil || errResp.Error.Message == "" && errResp.Error.Code == 0 {
		pe := newProviderError("unknown Meta API error", "UNKNOWN", "An unexpected error occurred with Meta.")
		pe.RawResponse = string(raw)
		return pe
	}

	var pe *ProviderError
	switch errResp.Error.Code {
	case 190:
		pe = newProviderError(errResp.Error.Message, "TOKEN_EXPIRED",
			"Your Meta connection has expired. Please reconnect your account.")
	case 10, 200:
		pe = newProviderError(errResp.Error.Message, "PERMISSIONS_MISSING",
			"Missing required permissions. Please reconnect and grant all requested permissions.")
	case 324, 352:
		pe = newProviderError(errResp.Error.Message, "INVALID_MEDIA",
			"The media file is not supported. Check format, size, and duration limits.")
	default:
		pe = newProviderError(errResp.Error.Message, fmt.Sprintf("META_%d", errResp.Error.Code), errResp.Error.Message)
	}
	pe.RawResponse = string(raw)
	return pe
}
