package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"crosspost/internal/models"
	"crosspost/internal/repository"
)

var allowedMediaTypes = map[string]struct{}{
	"jpg": {}, "jpeg": {}, "png": {}, "mp4": {}, "mov": {},
}

type MediaService interface {
	Upload(ctx context.Context, orgID int64, file *multipart.FileHeader) (*models.MediaAsset, error)
	Get(ctx context.Context, orgID, assetID int64) (*models.MediaAsset, error)
}

type mediaService struct {
	assets  repository.MediaAssetRepository
	storage *StorageService
}

func NewMediaService(assets repository.MediaAssetRepository, storage *StorageService) MediaService {
	return &mediaService{
		assets:  assets,
		storage: storage,
	}
}

func (s *mediaService) Upload(ctx context.Context, orgID int64, file *multipart.FileHeader) (*models.MediaAsset, error) {
	content, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("error opening file: %w", err)
	}
	defer content.Close()

	fileBytes, err := io.ReadAll(content)
	if err != nil {
		return nil, fmt.Errorf("error reading file content: %w", err)
	}

	fileType, err := filetype.Match(fileBytes)
	if err != nil || fileType == types.Unknown {
		return nil, fmt.Errorf("unsupported file type: %w", err)
	}
	if _, ok := allowedMediaTypes[fileType.Extension]; !ok {
		return nil, fmt.Errorf("file type %s is not allowed", fileType.Extension)
	}

	key, err := gonanoid.New()
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	if err := s.storage.Upload(ctx, key, fileBytes, fileType.MIME.Value); err != nil {
		return nil, fmt.Errorf("error uploading file: %w", err)
	}

	asset := models.MediaAsset{
		OrgID:     orgID,
		FileName:  file.Filename,
		MimeType:  fileType.MIME.Value,
		SizeBytes: int64(len(fileBytes)),
		URL:       s.storage.PublicURL(key),
	}

	id, err := s.assets.Create(ctx, &asset)
	if err != nil {
		return nil, fmt.Errorf("error saving media asset: %w", err)
	}
	asset.ID = id

	return &asset, nil
}

func (s *mediaService) Get(ctx context.Context, orgID, assetID int64) (*models.MediaAsset, error) {
	asset, err := s.assets.GetByID(ctx, assetID)
	if err != nil {
		return nil, err
	}
	if asset == nil || asset.OrgID != orgID {
		return nil, fmt.Errorf("media asset %d does not exist", assetID)
	}
	return asset, nil
}
