package models

import (
	"database/sql"
	"time"
)

type Post struct {
	ID              int64         `db:"id" json:"id"`
	OrgID           int64         `db:"org_id" json:"org_id"`
	CreatedByUserID int64         `db:"created_by_user_id" json:"created_by_user_id"`
	Caption         string        `db:"caption" json:"caption"`
	Hashtags        string        `db:"hashtags" json:"hashtags"`
	MediaAssetID    sql.NullInt64 `db:"media_asset_id" json:"media_asset_id"`
	CreatedAt       time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time     `db:"updated_at" json:"updated_at"`
}

// PostVariant is the per-provider rendering of a post. Immutable after
// creation; the worker only reads it.
type PostVariant struct {
	ID              int64          `db:"id" json:"id"`
	PostID          int64          `db:"post_id" json:"post_id"`
	Provider        string         `db:"provider" json:"provider"`
	Enabled         bool           `db:"enabled" json:"enabled"`
	CaptionOverride sql.NullString `db:"caption_override" json:"caption_override"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
}

type MediaAsset struct {
	ID        int64     `db:"id" json:"id"`
	OrgID     int64     `db:"org_id" json:"org_id"`
	FileName  string    `db:"file_name" json:"file_name"`
	MimeType  string    `db:"mime_type" json:"mime_type"`
	SizeBytes int64     `db:"size_bytes" json:"size_bytes"`
	URL       string    `db:"url" json:"url"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
