package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/forkful/backend/config"
)

// ImageStore persists raw image bytes and returns a URL clients can load.
type ImageStore interface {
	Save(ctx context.Context, data []byte, ext string) (string, error)
}

// ImageService decodes base64 recipe images and hands them to a store.
type ImageService struct {
	store ImageStore
}

func NewImageService(store ImageStore) *ImageService {
	return &ImageService{store: store}
}

// SaveBase64 accepts either a data URI ("data:image/png;base64,...") or a
// bare base64 string and returns the stored image URL.
func (s *ImageService) SaveBase64(ctx context.Context, encoded string) (string, error) {
	payload := encoded
	ext := "png"

	if strings.HasPrefix(encoded, "data:") {
		header, rest, ok := strings.Cut(encoded, ",")
		if !ok {
			return "", errors.New("malformed data URI")
		}
		payload = rest
		if mediaType, found := strings.CutPrefix(header, "data:image/"); found {
			if t, _, _ := strings.Cut(mediaType, ";"); t != "" {
				ext = t
			}
		}
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", fmt.Errorf("invalid base64 image data: %w", err)
	}
	if len(data) == 0 {
		return "", errors.New("empty image data")
	}

	return s.store.Save(ctx, data, ext)
}

// LocalImageStore writes images under Dir and serves them from BaseURL.
type LocalImageStore struct {
	Dir     string
	BaseURL string
}

func NewLocalImageStore(dir, baseURL string) *LocalImageStore {
	return &LocalImageStore{Dir: dir, BaseURL: baseURL}
}

func (s *LocalImageStore) Save(_ context.Context, data []byte, ext string) (string, error) {
	name := fmt.Sprintf("%s.%s", uuid.New().String(), ext)
	dir := filepath.Join(s.Dir, "recipes", "images")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create media directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write image: %w", err)
	}
	return fmt.Sprintf("%s/recipes/images/%s", strings.TrimRight(s.BaseURL, "/"), name), nil
}

// S3ImageStore uploads images to the configured bucket and returns the
// public object URL.
type S3ImageStore struct {
	cfg *config.S3Config
}

func NewS3ImageStore(cfg *config.S3Config) *S3ImageStore {
	return &S3ImageStore{cfg: cfg}
}

func (s *S3ImageStore) Save(ctx context.Context, data []byte, ext string) (string, error) {
	key := fmt.Sprintf("recipes/images/%s.%s", uuid.New().String(), ext)
	_, err := s.cfg.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.BucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("image/" + ext),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}
	return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", s.cfg.BucketName, key), nil
}
