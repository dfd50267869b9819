package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/0xfdc/foodgram/config"
)

// ImageStore persists an image payload and returns a stable public URL.
// The core only ever stores the returned reference.
type ImageStore interface {
	Upload(ctx context.Context, data []byte, key, contentType string) (string, error)
}

// S3ImageStore stores images in the configured S3 bucket.
type S3ImageStore struct {
	s3Config *config.S3Config
}

func NewS3ImageStore(s3Config *config.S3Config) *S3ImageStore {
	return &S3ImageStore{s3Config: s3Config}
}

func (s *S3ImageStore) Upload(ctx context.Context, data []byte, key, contentType string) (string, error) {
	_, err := s.s3Config.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.s3Config.BucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}
	return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", s.s3Config.BucketName, key), nil
}

// ImageService decodes inline image payloads and hands them to the store.
type ImageService struct {
	store ImageStore
}

func NewImageService(store ImageStore) *ImageService {
	return &ImageService{store: store}
}

// DecodeBase64Image accepts an inline payload of the form
// "data:image/<ext>;base64,<data>" and returns the raw bytes and extension.
func DecodeBase64Image(payload string) ([]byte, string, error) {
	if !strings.HasPrefix(payload, "data:image/") {
		return nil, "", fmt.Errorf("image payload must start with a data:image prefix")
	}
	format, encoded, found := strings.Cut(payload, ";base64,")
	if !found {
		return nil, "", fmt.Errorf("image payload is not base64 encoded")
	}
	ext := strings.TrimPrefix(format, "data:image/")
	if ext == "" {
		return nil, "", fmt.Errorf("image payload has no format")
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image payload: %w", err)
	}
	if len(data) == 0 {
		return nil, "", fmt.Errorf("image payload is empty")
	}
	return data, ext, nil
}

// SaveRecipeImage decodes an inline payload and stores it under recipes/.
func (s *ImageService) SaveRecipeImage(ctx context.Context, payload string) (string, error) {
	return s.save(ctx, payload, "recipes")
}

// SaveAvatar decodes an inline payload and stores it under users/.
func (s *ImageService) SaveAvatar(ctx context.Context, payload string) (string, error) {
	return s.save(ctx, payload, "users")
}

// SaveUpload stores a directly uploaded image as-is.
func (s *ImageService) SaveUpload(ctx context.Context, data []byte, ext string) (string, error) {
	key := fmt.Sprintf("recipes/%s.%s", uuid.New().String(), ext)
	return s.store.Upload(ctx, data, key, "image/"+ext)
}

func (s *ImageService) save(ctx context.Context, payload, prefix string) (string, error) {
	data, ext, err := DecodeBase64Image(payload)
	if err != nil {
		return "", validationErrorf("image", "%v", err)
	}
	key := fmt.Sprintf("%s/%s.%s", prefix, uuid.New().String(), ext)
	return s.store.Upload(ctx, data, key, "image/"+ext)
}
