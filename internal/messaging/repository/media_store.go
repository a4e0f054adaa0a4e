package repository

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"rural_skills_service/pkg/database"

	"github.com/google/uuid"
)

// presignExpiry max lifetime minio allows for a presigned url
const presignExpiry = 7 * 24 * time.Hour

// MediaStore media host, accepts audio bytes and returns a url for audio_url
type MediaStore interface {
	UploadAudio(ctx context.Context, ownerID string, r io.Reader, size int64, contentType string) (string, error)
}

type minioMediaStore struct {
	client     database.MinIOClientRepo
	publicBase string
}

// NewMinIOMediaStore create MediaStore; with an empty publicBase urls are presigned
func NewMinIOMediaStore(client database.MinIOClientRepo, publicBase string) MediaStore {
	return &minioMediaStore{client: client, publicBase: strings.TrimRight(publicBase, "/")}
}

func (s *minioMediaStore) UploadAudio(ctx context.Context, ownerID string, r io.Reader, size int64, contentType string) (string, error) {
	objectName := fmt.Sprintf("audio/%s/%s", ownerID, uuid.New().String())
	if err := s.client.PutObject(ctx, objectName, r, size, contentType); err != nil {
		return "", fmt.Errorf("upload audio: %w", err)
	}

	if s.publicBase != "" {
		return fmt.Sprintf("%s/%s/%s", s.publicBase, s.client.Bucket(), objectName), nil
	}

	url, err := s.client.PresignGetURL(ctx, objectName, presignExpiry)
	if err != nil {
		// object without a url is unreachable, do not leave it behind
		_ = s.client.RemoveObject(ctx, objectName)
		return "", err
	}
	return url, nil
}
