package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"crosspost/internal/models"
	"crosspost/internal/transfer"
	"crosspost/pkg/vault"
)

const (
	linkedinAPI     = "https://api.linkedin.com"
	linkedinVersion = "202401"
	maxAltTextLen   = 120
)

type linkedinMetadata struct {
	LinkedInUserID string `json:"linkedinUserId"`
}

// LinkedInAdapter publishes member posts through the versioned REST API.
// Image posts run a three-step flow: initialize an upload, PUT the raw
// bytes to the returned upload URL, then create the post referencing the
// image URN.
type LinkedInAdapter struct {
	vault         *vault.Vault
	client        *http.Client
	apiURL        string
	publicBaseURL string
}

func NewLinkedInAdapter(v *vault.Vault, publicBaseURL string) *LinkedInAdapter {
	return &LinkedInAdapter{
		vault:         v,
		client:        http.DefaultClient,
		apiURL:        linkedinAPI,
		publicBaseURL: publicBaseURL,
	}
}

func (l *LinkedInAdapter) ValidateConnection(ctx context.Context, account *models.SocialAccount) (*ConnectionValidation, error) {
	reconnect := "Token expired. Please reconnect your LinkedIn account."

	done, warnings := checkExpiry(account, reconnect)
	if done != nil {
		return done, nil
	}

	requiredActions := []string{}

	accessToken, err := l.vault.Decrypt(account.AccessTokenEnc)
	if err != nil {
		slog.Info(err.Error())
		requiredActions = append(requiredActions, "Unable to verify connection.")
		return &ConnectionValidation{Ok: false, Warnings: warnings, RequiredActions: requiredActions}, nil
	}

	req, err := http.NewRequestWithContext(ctx, "GET", l.apiURL+"/v2/userinfo", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := l.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		requiredActions = append(requiredActions, "Unable to verify connection.")
		return &ConnectionValidation{Ok: false, Warnings: warnings, RequiredActions: requiredActions}, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return &ConnectionValidation{
			Ok:              false,
			Warnings:        []string{},
			RequiredActions: []string{"Token is invalid. Please reconnect your LinkedIn account."},
		}, nil
	}
	if resp.StatusCode != http.StatusOK {
		requiredActions = append(requiredActions, "Unable to verify connection. Try reconnecting.")
	}

	return &ConnectionValidation{
		Ok:              len(requiredActions) == 0,
		Warnings:        warnings,
		RequiredActions: requiredActions,
	}, nil
}

func (l *LinkedInAdapter) Publish(ctx context.Context, variant *models.PostVariant, account *models.SocialAccount, caption string, media *models.MediaAsset) (*PublishResult, error) {
	var metadata linkedinMetadata
	if account.MetadataJSON != "" {
		if err := json.Unmarshal([]byte(account.MetadataJSON), &metadata); err != nil {
			slog.Info(err.Error())
		}
	}

	if metadata.LinkedInUserID == "" {
		return nil, newProviderError(
			"no LinkedIn member id in metadata",
			"MISSING_USER_ID",
			"No LinkedIn member id on this connection. Please reconnect your account.")
	}

	accessToken, err := l.vault.Decrypt(account.AccessTokenEnc)
	if err != nil {
		return nil, err
	}

	author := metadata.LinkedInUserID
	if !strings.HasPrefix(author, "urn:") {
		author = "urn:li:person:" + author
	}

	text := effectiveCaption(variant, caption)

	var imageURN string
	if media != nil && strings.HasPrefix(media.MimeType, "image/") {
		imageURN, err = l.uploadImage(ctx, accessToken, author, media)
		if err != nil {
			return nil, err
		}
	}

	return l.createPost(ctx, accessToken, author, text, imageURN)
}

// uploadImage runs the first two steps of the image flow and returns the
// image URN to attach to the post.
func (l *LinkedInAdapter) uploadImage(ctx context.Context, accessToken, author string, media *models.MediaAsset) (string, error) {
	initPayload := map[string]interface{}{
		"initializeUploadRequest": map[string]string{
			"owner": author,
		},
	}

	status, body, err := l.postJSON(ctx, accessToken, l.apiURL+"/rest/images?action=initializeUpload", initPayload)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", mapLinkedInError(status, body)
	}

	var initResp transfer.LinkedInInitUploadResponse
	if err := json.Unmarshal(body, &initResp); err != nil {
		return "", fmt.Errorf("error parsing initializeUpload response: %w", err)
	}
	if initResp.Value.UploadURL == "" || initResp.Value.Image == "" {
		return "", newProviderError(
			"initializeUpload returned no upload target",
			"UPLOAD_INIT_FAILED",
			"LinkedIn did not accept the image upload. Please try again.")
	}

	imageBytes, err := l.fetchMedia(ctx, media.URL)
	if err != nil {
		return "", err
	}

	putReq, err := http.NewRequestWithContext(ctx, "PUT", initResp.Value.UploadURL, bytes.NewReader(imageBytes))
	if err != nil {
		return "", fmt.Errorf("error creating upload request: %w", err)
	}
	putReq.Header.Set("Authorization", "Bearer "+accessToken)
	putReq.Header.Set("Content-Type", "application/octet-stream")

	putResp, err := l.client.Do(putReq)
	if err != nil {
		return "", fmt.Errorf("HTTP request error: %w", err)
	}
	defer putResp.Body.Close()

	if putResp.StatusCode >= 300 {
		raw, _ := io.ReadAll(putResp.Body)
		return "", mapLinkedInError(putResp.StatusCode, raw)
	}

	return initResp.Value.Image, nil
}

func (l *LinkedInAdapter) createPost(ctx context.Context, accessToken, author, text, imageURN string) (*PublishResult, error) {
	payload := map[string]interface{}{
		"author":     author,
		"commentary": text,
		"visibility": "PUBLIC",
		"distribution": map[string]interface{}{
			"feedDistribution":               "MAIN_FEED",
			"targetEntities":                 []interface{}{},
			"thirdPartyDistributionChannels": []interface{}{},
		},
		"lifecycleState":            "PUBLISHED",
		"isReshareDisabledByAuthor": false,
	}

	if imageURN != "" {
		payload["content"] = map[string]interface{}{
			"media": map[string]string{
				"id":      imageURN,
				"altText": altText(text),
			},
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("error marshalling payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", l.apiURL+"/rest/posts", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	l.setHeaders(req, accessToken)

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, mapLinkedInError(resp.StatusCode, raw)
	}

	// The created entity id comes back in a header, not the body.
	postID := resp.Header.Get("X-RestLi-Id")
	if postID == "" {
		return nil, newProviderError(
			"no post id in response header",
			"MISSING_POST_ID",
			"LinkedIn did not return a post id.")
	}

	return &PublishResult{
		ExternalID: postID,
		Permalink:  fmt.Sprintf("https://www.linkedin.com/feed/update/%s/", postID),
	}, nil
}

func (l *LinkedInAdapter) fetchMedia(ctx context.Context, mediaURL string) ([]byte, error) {
	if strings.HasPrefix(mediaURL, "/") {
		mediaURL = l.publicBaseURL + mediaURL
	}

	req, err := http.NewRequestWithContext(ctx, "GET", mediaURL, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating media request: %w", err)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error fetching media: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, newProviderError(
			fmt.Sprintf("media fetch returned status %d", resp.StatusCode),
			"MEDIA_FETCH_FAILED",
			"The media file could not be retrieved for upload.")
	}

	return io.ReadAll(resp.Body)
}

func (l *LinkedInAdapter) postJSON(ctx context.Context, accessToken, endpoint string, payload interface{}) (int, []byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("error marshalling payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, nil, fmt.Errorf("error creating request: %w", err)
	}
	l.setHeaders(req, accessToken)

	resp, err := l.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("HTTP request error: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("error reading response body: %w", err)
	}

	return resp.StatusCode, respBody, nil
}

func (l *LinkedInAdapter) setHeaders(req *http.Request, accessToken string) {
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("LinkedIn-Version", linkedinVersion)
	req.Header.Set("X-Restli-Protocol-Version", "2.0.0")
}

func altText(caption string) string {
	if len(caption) > maxAltTextLen {
		return caption[:maxAltTextLen]
	}
	return caption
}

func mapLinkedInError(status int, raw []byte) *ProviderError {
	var errResp transfer.LinkedInErrorResponse
	message := "LinkedIn API error"
	if err := json.Unmarshal(raw, &errResp); err == nil && errResp.Message != "" {
		message = errResp.Message
	}

	var pe *ProviderError
	switch status {
	case http.StatusUnauthorized:
		pe = newProviderError(message, "TOKEN_EXPIRED",
			"Your LinkedIn connection has expired. Please reconnect your account.")
	case http.StatusForbidden:
		pe = newProviderError(message, "PERMISSIONS_MISSING",
			"Missing required permissions. Please reconnect and grant all requested permissions.")
	case http.StatusTooManyRequests:
		pe = newProviderError(message, "RATE_LIMITED",
			"LinkedIn is rate limiting this account. Please try again later.")
	case http.StatusUnprocessableEntity:
		pe = newProviderError(message, "INVALID_CONTENT",
			"LinkedIn rejected this content. Check the caption and media.")
	default:
		pe = newProviderError(message, fmt.Sprintf("LINKEDIN_%d", status), message)
	}
	pe.RawResponse = string(raw)
	return pe
}
