// Package service holds supporting services that sit next to the state
// containers.
package service

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/emilianosoriano/Grocery-Expiration-Tracker/config"
)

// PhotoService uploads grocery item photos to S3 and returns public
// URLs for GroceryItem.PhotoURL. When S3 is not configured the service
// is disabled and local paths are stored as-is.
type PhotoService struct {
	s3Config *config.S3Config
	log      *zap.Logger
}

// NewPhotoService creates a PhotoService. s3Config may be nil.
func NewPhotoService(s3Config *config.S3Config, log *zap.Logger) *PhotoService {
	return &PhotoService{s3Config: s3Config, log: log}
}

// Enabled reports whether uploads will reach S3.
func (s *PhotoService) Enabled() bool {
	return s.s3Config != nil
}

// UploadPhoto uploads image data to S3 and returns the public URL.
func (s *PhotoService) UploadPhoto(ctx context.Context, data []byte, contentType string) (string, error) {
	if s.s3Config == nil {
		return "", fmt.Errorf("photo storage is not configured")
	}
	if contentType == "" {
		contentType = "image/jpeg"
	}

	ext := ".jpg"
	if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
		ext = exts[0]
	}
	fileName := fmt.Sprintf("grocery-photos/%s%s", uuid.New().String(), ext)

	_, err := s.s3Config.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.s3Config.BucketName),
		Key:         aws.String(fileName),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}

	publicURL := fmt.Sprintf("https://%s.s3.amazonaws.com/%s", s.s3Config.BucketName, fileName)
	s.log.Info("uploaded grocery photo", zap.String("url", publicURL))
	return publicURL, nil
}

// UploadPhotoFromFile reads a local image file and uploads it. When S3
// is not configured it returns the local path unchanged, so callers can
// always store the result.
func (s *PhotoService) UploadPhotoFromFile(ctx context.Context, path string) (string, error) {
	if s.s3Config == nil {
		return path, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read photo file: %w", err)
	}
	contentType := mime.TypeByExtension(filepath.Ext(path))
	return s.UploadPhoto(ctx, data, contentType)
}
