package models

import (
	"database/sql"
	"time"
)

const (
	ProviderFacebook  = "facebook"
	ProviderInstagram = "instagram"
	ProviderLinkedIn  = "linkedin"
	ProviderTikTok    = "tiktok"
)

// SocialAccount is one connected credential per (org, provider). The core
// only reads it; connect/disconnect flows live outside this service.
// MetadataJSON holds provider-specific secondary ids and tokens, e.g. a
// Facebook page id and its page-scoped token (the token itself encrypted).
type SocialAccount struct {
	ID                int64        `db:"id" json:"id"`
	OrgID             int64        `db:"org_id" json:"org_id"`
	Provider          string       `db:"provider" json:"provider"`
	ProviderAccountID string       `db:"provider_account_id" json:"provider_account_id"`
	DisplayName       string       `db:"display_name" json:"display_name"`
	AccessTokenEnc    string       `db:"access_token_enc" json:"-"`
	ExpiresAt         sql.NullTime `db:"expires_at" json:"expires_at"`
	MetadataJSON      string       `db:"metadata_json" json:"-"`
	CreatedAt         time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time    `db:"updated_at" json:"updated_at"`
}
