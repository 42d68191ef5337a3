package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"crosspost/internal/models"
)

type PostVariantRepository interface {
	Create(ctx context.Context, tx *sql.Tx, variant *models.PostVariant) (int64, error)
	ListByPostID(ctx context.Context, postID int64) ([]*models.PostVariant, error)
}

type postVariantRepository struct {
	db *sql.DB
}

func NewPostVariantRepository(db *sql.DB) PostVariantRepository {
	return &postVariantRepository{db: db}
}

func (r *postVariantRepository) Create(ctx context.Context, tx *sql.Tx, variant *models.PostVariant) (int64, error) {
	query := `
		INSERT INTO post_variants (post_id, provider, enabled, caption_override)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	var id int64
	var err error

	if tx != nil {
		err = tx.QueryRowContext(ctx, query, variant.PostID, variant.Provider, variant.Enabled, variant.CaptionOverride).Scan(&id)
	} else {
		err = r.db.QueryRowContext(ctx, query, variant.PostID, variant.Provider, variant.Enabled, variant.CaptionOverride).Scan(&id)
	}
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *postVariantRepository) ListByPostID(ctx context.Context, postID int64) ([]*models.PostVariant, error) {
	query := `SELECT id, post_id, provider, enabled, caption_override, created_at FROM post_variants WHERE post_id = $1 ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, postID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var variants []*models.PostVariant
	for rows.Next() {
		var v models.PostVariant
		err := rows.Scan(&v.ID, &v.PostID, &v.Provider, &v.Enabled, &v.CaptionOverride, &v.CreatedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		variants = append(variants, &v)
	}
	return variants, nil
}
