package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"crosspost/internal/models"
)

type PostRepository interface {
	Create(ctx context.Context, tx *sql.Tx, post *models.Post) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Post, error)
	ListByOrgID(ctx context.Context, orgID int64) ([]*models.Post, error)
	CheckByOrgID(ctx context.Context, postID, orgID int64) (bool, error)
}

type postRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, tx *sql.Tx, post *models.Post) (int64, error) {
	query := `
		INSERT INTO posts (org_id, created_by_user_id, caption, hashtags, media_asset_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	var id int64
	var err error

	if tx != nil {
		err = tx.QueryRowContext(ctx, query, post.OrgID, post.CreatedByUserID, post.Caption, post.Hashtags, post.MediaAssetID).Scan(&id)
	} else {
		err = r.db.QueryRowContext(ctx, query, post.OrgID, post.CreatedByUserID, post.Caption, post.Hashtags, post.MediaAssetID).Scan(&id)
	}
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *postRepository) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	query := `SELECT id, org_id, created_by_user_id, caption, hashtags, media_asset_id, created_at, updated_at FROM posts WHERE id = $1`
	row := r.db.QueryRowContext(ctx, query, id)

	var post models.Post
	err := row.Scan(&post.ID, &post.OrgID, &post.CreatedByUserID, &post.Caption, &post.Hashtags, &post.MediaAssetID, &post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return &post, nil
}

func (r *postRepository) ListByOrgID(ctx context.Context, orgID int64) ([]*models.Post, error) {
	query := `SELECT id, org_id, created_by_user_id, caption, hashtags, media_asset_id, created_at, updated_at FROM posts WHERE org_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, orgID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var posts []*models.Post
	for rows.Next() {
		var post models.Post
		err := rows.Scan(&post.ID, &post.OrgID, &post.CreatedByUserID, &post.Caption, &post.Hashtags, &post.MediaAssetID, &post.CreatedAt, &post.UpdatedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		posts = append(posts, &post)
	}
	return posts, nil
}

func (r *postRepository) CheckByOrgID(ctx context.Context, postID, orgID int64) (bool, error) {
	query := "SELECT 1 FROM posts WHERE id = $1 AND org_id = $2"

	var result int
	err := r.db.QueryRowContext(ctx, query, postID, orgID).Scan(&result)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		slog.Info(err.Error())
		return false, err
	}

	return result == 1, nil
}
