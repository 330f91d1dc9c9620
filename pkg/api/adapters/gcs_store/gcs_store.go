package gcs_store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"cloud.google.com/go/storage"
	"github.com/eser/ajan/logfx"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/option"

	"github.com/bhaktiutama/vision-warehouse-logo-similarity/pkg/api/business/runs"
)

var ErrUploadFailed = errors.New("failed to upload object to cloud storage")

var _ runs.Uploader = (*Store)(nil)

type Store struct {
	Config *Config

	logger *logfx.Logger
	client *storage.Client
}

func New(config *Config, logger *logfx.Logger) *Store {
	return &Store{Config: config, logger: logger}
}

func (s *Store) Init(ctx context.Context, opts ...option.ClientOption) error {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return fmt.Errorf("failed to create cloud storage client: %w", err)
	}

	s.client = client

	s.logger.InfoContext(ctx, "[GcsStore] Cloud Storage client initialized", "module", "gcs_store", "uploadPrefix", s.Config.UploadPrefix)

	return nil
}

func (s *Store) Close() error {
	if s.client == nil {
		return nil
	}

	return s.client.Close()
}

// EnsureBucketExists checks whether the bucket is reachable and creates it
// when it does not exist yet.
func (s *Store) EnsureBucketExists(ctx context.Context, bucketName string) error {
	s.logger.DebugContext(ctx, "[GcsStore] Checking if bucket exists", "module", "gcs_store", "bucketName", bucketName)

	bucket := s.client.Bucket(bucketName)

	_, err := bucket.Attrs(ctx)
	if err == nil {
		s.logger.DebugContext(ctx, "[GcsStore] Bucket already exists", "module", "gcs_store", "bucketName", bucketName)

		return nil
	}

	if !errors.Is(err, storage.ErrBucketNotExist) {
		return fmt.Errorf("failed to check bucket %s: %w", bucketName, err)
	}

	s.logger.InfoContext(ctx, "[GcsStore] Bucket not found, creating bucket", "module", "gcs_store", "bucketName", bucketName, "projectId", s.Config.ProjectID)

	err = bucket.Create(ctx, s.Config.ProjectID, nil)
	if err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", bucketName, err)
	}

	s.logger.InfoContext(ctx, "[GcsStore] Bucket created", "module", "gcs_store", "bucketName", bucketName)

	return nil
}

// ObjectName builds the destination object path for a local file, grouping
// uploads under a date folder: <prefix>/<yyyymmdd>/<basename>.
func (s *Store) ObjectName(prefix string, localPath string) string {
	return fmt.Sprintf("%s/%s/%s", prefix, time.Now().UTC().Format("20060102"), filepath.Base(localPath))
}

// UploadFile copies a single local file into the bucket and returns its
// gs:// URI.
func (s *Store) UploadFile(ctx context.Context, bucketName string, objectName string, localPath string) (string, error) {
	file, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("%w: failed to open %s: %w", ErrUploadFailed, localPath, err)
	}
	defer file.Close() //nolint:errcheck

	writer := s.client.Bucket(bucketName).Object(objectName).NewWriter(ctx)

	_, err = io.Copy(writer, file)
	if err != nil {
		_ = writer.Close()

		return "", fmt.Errorf("%w: failed to write %s: %w", ErrUploadFailed, objectName, err)
	}

	err = writer.Close()
	if err != nil {
		return "", fmt.Errorf("%w: failed to finalize %s: %w", ErrUploadFailed, objectName, err)
	}

	uri := fmt.Sprintf("gs://%s/%s", bucketName, objectName)

	s.logger.DebugContext(ctx, "[GcsStore] Uploaded object", "module", "gcs_store", "localPath", localPath, "uri", uri)

	return uri, nil
}

// UploadBatch uploads the given local files in parallel, bounded by the
// configured concurrency, and returns their gs:// URIs in input order.
func (s *Store) UploadBatch(ctx context.Context, bucketName string, localPaths []string) ([]string, error) {
	uris := make([]string, len(localPaths))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(s.Config.MaxConcurrency)

	for i, localPath := range localPaths {
		group.Go(func() error {
			objectName := s.ObjectName(s.Config.UploadPrefix, localPath)

			uri, err := s.UploadFile(groupCtx, bucketName, objectName, localPath)
			if err != nil {
				return err
			}

			uris[i] = uri

			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "[GcsStore] Batch uploaded", "module", "gcs_store", "bucketName", bucketName, "count", len(uris))

	return uris, nil
}
