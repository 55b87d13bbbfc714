package blobstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	storage_go "github.com/supabase-community/storage-go"
)

const DefaultBucket = "outfit-images"

// SupabaseStore keeps blobs in a Supabase Storage bucket.
type SupabaseStore struct {
	// the client sets upload headers on shared state
	mu     sync.Mutex
	client *storage_go.Client
	bucket string
}

// NewSupabaseStore connects to the storage API of a Supabase project, e.g.
// https://xyz.supabase.co.
func NewSupabaseStore(projectURL, serviceKey, bucket string) *SupabaseStore {
	if bucket == "" {
		bucket = DefaultBucket
	}
	endpoint := strings.TrimRight(projectURL, "/") + "/storage/v1"
	return &SupabaseStore{
		client: storage_go.NewClient(endpoint, serviceKey, nil),
		bucket: bucket,
	}
}

func (s *SupabaseStore) Put(ctx context.Context, path string, data []byte, contentType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cacheControl := "3600"
	upsert := false
	_, err := s.client.UploadFile(s.bucket, path, bytes.NewReader(data), storage_go.FileOptions{
		CacheControl: &cacheControl,
		ContentType:  &contentType,
		Upsert:       &upsert,
	})
	if err != nil {
		return fmt.Errorf("storage upload error: %w", err)
	}
	return nil
}

func (s *SupabaseStore) Get(ctx context.Context, path string) ([]byte, error) {
	b, err := s.client.DownloadFile(s.bucket, path)
	if err != nil {
		var storageErr *storage_go.StorageError
		if errors.As(err, &storageErr) && (storageErr.Status == http.StatusNotFound || strings.Contains(strings.ToLower(storageErr.Message), "not found")) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("storage download error: %w", err)
	}
	return b, nil
}

func (s *SupabaseStore) Delete(ctx context.Context, path string) error {
	if _, err := s.client.RemoveFile(s.bucket, []string{path}); err != nil {
		return fmt.Errorf("storage delete error: %w", err)
	}
	return nil
}
