package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	storage_go "github.com/supabase-community/storage-go"

	"librasflow/internal/config"
)

// SupabaseStore keeps objects in a Supabase storage bucket.
type SupabaseStore struct {
	client *storage_go.Client
	bucket string
}

// NewSupabaseStore creates a bucket-backed store from configuration.
func NewSupabaseStore(cfg config.Storage) (*SupabaseStore, error) {
	url := strings.TrimRight(strings.TrimSpace(cfg.SupabaseURL), "/")
	if url == "" {
		return nil, errors.New("supabase url required")
	}
	if !strings.HasSuffix(url, "/storage/v1") {
		url += "/storage/v1"
	}
	key := strings.TrimSpace(cfg.SupabaseKey)
	if key == "" {
		return nil, errors.New("supabase key required")
	}
	bucket := strings.TrimSpace(cfg.SupabaseBucket)
	if bucket == "" {
		return nil, errors.New("supabase bucket required")
	}
	return &SupabaseStore{
		client: storage_go.NewClient(url, key, nil),
		bucket: bucket,
	}, nil
}

func (s *SupabaseStore) Put(_ context.Context, objectPath string, data []byte, contentType string) (string, error) {
	upsert := true
	options := storage_go.FileOptions{Upsert: &upsert}
	if contentType != "" {
		options.ContentType = &contentType
	}
	if _, err := s.client.UploadFile(s.bucket, objectPath, bytes.NewReader(data), options); err != nil {
		return "", fmt.Errorf("supabase upload %s: %w", objectPath, err)
	}
	return s.client.GetPublicUrl(s.bucket, objectPath).SignedURL, nil
}

func (s *SupabaseStore) Get(_ context.Context, objectPath string) ([]byte, error) {
	data, err := s.client.DownloadFile(s.bucket, objectPath)
	if err != nil {
		if isNotFoundErr(err) {
			return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, objectPath)
		}
		return nil, fmt.Errorf("supabase download %s: %w", objectPath, err)
	}
	return data, nil
}

func (s *SupabaseStore) Delete(_ context.Context, objectPath string) error {
	if _, err := s.client.RemoveFile(s.bucket, []string{objectPath}); err != nil {
		if isNotFoundErr(err) {
			return fmt.Errorf("%w: %s", ErrObjectNotFound, objectPath)
		}
		return fmt.Errorf("supabase delete %s: %w", objectPath, err)
	}
	return nil
}

// isNotFoundErr recognizes the storage API's missing-object responses, which
// surface as message text rather than a typed error.
func isNotFoundErr(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "not_found") ||
		strings.Contains(msg, "not found") ||
		strings.Contains(msg, "404")
}
