package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"crosspost/internal/models"
)

type SocialAccountRepository interface {
	GetByID(ctx context.Context, id int64) (*models.SocialAccount, error)
	GetByOrgAndProvider(ctx context.Context, orgID int64, provider string) (*models.SocialAccount, error)
	ListByOrgID(ctx context.Context, orgID int64) ([]*models.SocialAccount, error)
}

type socialAccountRepository struct {
	db *sql.DB
}

func NewSocialAccountRepository(db *sql.DB) SocialAccountRepository {
	return &socialAccountRepository{db: db}
}

const socialAccountColumns = `id, org_id, provider, provider_account_id, display_name, access_token_enc, expires_at, metadata_json, created_at, updated_at`

func (r *socialAccountRepository) scan(row *sql.Row) (*models.SocialAccount, error) {
	var a models.SocialAccount
	err := row.Scan(&a.ID, &a.OrgID, &a.Provider, &a.ProviderAccountID, &a.DisplayName, &a.AccessTokenEnc, &a.ExpiresAt, &a.MetadataJSON, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return &a, nil
}

func (r *socialAccountRepository) GetByID(ctx context.Context, id int64) (*models.SocialAccount, error) {
	query := `SELECT ` + socialAccountColumns + ` FROM social_accounts WHERE id = $1`
	return r.scan(r.db.QueryRowContext(ctx, query, id))
}

func (r *socialAccountRepository) GetByOrgAndProvider(ctx context.Context, orgID int64, provider string) (*models.SocialAccount, error) {
	query := `SELECT ` + socialAccountColumns + ` FROM social_accounts WHERE org_id = $1 AND provider = $2`
	return r.scan(r.db.QueryRowContext(ctx, query, orgID, provider))
}

func (r *socialAccountRepository) ListByOrgID(ctx context.Context, orgID int64) ([]*models.SocialAccount, error) {
	query := `SELECT ` + socialAccountColumns + ` FROM social_accounts WHERE org_id = $1 ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, orgID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var accounts []*models.SocialAccount
	for rows.Next() {
		var a models.SocialAccount
		err := rows.Scan(&a.ID, &a.OrgID, &a.Provider, &a.ProviderAccountID, &a.DisplayName, &a.AccessTokenEnc, &a.ExpiresAt, &a.MetadataJSON, &a.CreatedAt, &a.UpdatedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		accounts = append(accounts, &a)
	}
	return accounts, nil
}
