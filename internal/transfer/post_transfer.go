package transfer

import "time"

type VariantInput struct {
	Provider        string `json:"provider"`
	Enabled         bool   `json:"enabled"`
	CaptionOverride string `json:"caption_override"`
}

type PostCreation struct {
	Caption      string         `json:"caption"`
	Hashtags     string         `json:"hashtags"`
	MediaAssetID int64          `json:"media_asset_id"`
	Variants     []VariantInput `json:"variants"`
	PublishMode  string         `json:"publish_mode"` // now, schedule or draft
	ScheduledAt  string         `json:"scheduled_at"` // RFC3339, required for schedule
	Timezone     string         `json:"timezone"`
}

type PostCreated struct {
	PostID       int64     `json:"post_id"`
	PublishJobID int64     `json:"publish_job_id,omitempty"`
	RunAtUTC     time.Time `json:"run_at_utc,omitempty"`
}
