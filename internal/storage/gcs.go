// Package storage provides artifact storage for rendered videos and
// synthesized audio, backed by Google Cloud Storage.
package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/clipsmith/clipsmith/internal/config"
)

// ArtifactStore persists and retrieves render artifacts. URLs are either
// gs:// URIs or public https://storage.googleapis.com URLs.
type ArtifactStore interface {
	// Download fetches the object behind url into destPath, creating
	// parent directories as needed.
	Download(ctx context.Context, url, destPath string) error
	// UploadFile uploads a local file under the session's prefix and
	// returns its public URL. artifactType prefixes the object name
	// ("video", "audio").
	UploadFile(ctx context.Context, localPath, userID, sessionID, artifactType string) (string, error)
	// UploadBytes uploads raw bytes under the session's prefix and
	// returns the public URL.
	UploadBytes(ctx context.Context, data []byte, userID, sessionID, artifactType, extension string) (string, error)
	// DeleteSessionArtifacts removes every object under the session's
	// prefix and returns the number deleted.
	DeleteSessionArtifacts(ctx context.Context, userID, sessionID string) (int, error)
	// Close releases the underlying client.
	Close() error
}

// ObjectRef identifies a single object within a bucket.
type ObjectRef struct {
	Bucket string
	Name   string
}

// ParseObjectURL resolves a gs:// URI or a public storage.googleapis.com
// URL into a bucket/object pair.
func ParseObjectURL(rawURL string) (ObjectRef, error) {
	if strings.HasPrefix(rawURL, "gs://") {
		rest := strings.TrimPrefix(rawURL, "gs://")
		bucket, name, ok := strings.Cut(rest, "/")
		if !ok || bucket == "" || name == "" {
			return ObjectRef{}, fmt.Errorf("malformed gs URI: %s", rawURL)
		}
		return ObjectRef{Bucket: bucket, Name: name}, nil
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return ObjectRef{}, fmt.Errorf("parsing object URL: %w", err)
	}
	if u.Host != "storage.googleapis.com" {
		return ObjectRef{}, fmt.Errorf("unsupported storage host: %s", u.Host)
	}
	path := strings.TrimPrefix(u.Path, "/")
	bucket, name, ok := strings.Cut(path, "/")
	if !ok || bucket == "" || name == "" {
		return ObjectRef{}, fmt.Errorf("malformed storage URL: %s", rawURL)
	}
	return ObjectRef{Bucket: bucket, Name: name}, nil
}

// PublicURL returns the public https URL for an object.
func PublicURL(bucket, name string) string {
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", bucket, name)
}

// ObjectName builds the session-scoped object name for an artifact.
// Objects sort chronologically within a session prefix.
func ObjectName(userID, sessionID, artifactType, extension string) string {
	timestamp := time.Now().UTC().Format("20060102_150405")
	return fmt.Sprintf("%s/%s/%s_%s%s", userID, sessionID, artifactType, timestamp, extension)
}

// GCSStore is the Google Cloud Storage implementation of ArtifactStore.
type GCSStore struct {
	client *gcs.Client
	bucket string
	logger *slog.Logger
}

// NewGCSStore creates an ArtifactStore writing to the configured scratch
// bucket.
func NewGCSStore(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger, opts ...option.ClientOption) (*GCSStore, error) {
	if cfg.ScratchBucket == "" {
		return nil, fmt.Errorf("scratch bucket not configured")
	}
	if logger == nil {
		logger = slog.Default()
	}

	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating storage client: %w", err)
	}

	logger.Info("artifact store initialized", slog.String("bucket", cfg.ScratchBucket))

	return &GCSStore{
		client: client,
		bucket: cfg.ScratchBucket,
		logger: logger,
	}, nil
}

// Download fetches the object behind url into destPath.
func (s *GCSStore) Download(ctx context.Context, rawURL, destPath string) error {
	ref, err := ParseObjectURL(rawURL)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("creating destination directory: %w", err)
	}

	r, err := s.client.Bucket(ref.Bucket).Object(ref.Name).NewReader(ctx)
	if err != nil {
		return fmt.Errorf("opening object %s: %w", ref.Name, err)
	}
	defer r.Close()

	f, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("creating destination file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		return fmt.Errorf("downloading object %s: %w", ref.Name, err)
	}

	s.logger.Debug("artifact downloaded",
		slog.String("object", ref.Name),
		slog.String("dest", destPath),
	)
	return nil
}

// UploadFile uploads a local file and returns its public URL.
func (s *GCSStore) UploadFile(ctx context.Context, localPath, userID, sessionID, artifactType string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", localPath, err)
	}
	defer f.Close()

	name := ObjectName(userID, sessionID, artifactType, filepath.Ext(localPath))
	w := s.client.Bucket(s.bucket).Object(name).NewWriter(ctx)
	if _, err := io.Copy(w, f); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("uploading %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalizing upload %s: %w", name, err)
	}

	s.logger.Info("artifact uploaded", slog.String("object", name))
	return PublicURL(s.bucket, name), nil
}

// UploadBytes uploads raw bytes and returns the public URL.
func (s *GCSStore) UploadBytes(ctx context.Context, data []byte, userID, sessionID, artifactType, extension string) (string, error) {
	name := ObjectName(userID, sessionID, artifactType, extension)
	w := s.client.Bucket(s.bucket).Object(name).NewWriter(ctx)
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("uploading %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalizing upload %s: %w", name, err)
	}

	s.logger.Info("artifact uploaded", slog.String("object", name), slog.Int("bytes", len(data)))
	return PublicURL(s.bucket, name), nil
}

// DeleteSessionArtifacts removes every object under the session's prefix.
func (s *GCSStore) DeleteSessionArtifacts(ctx context.Context, userID, sessionID string) (int, error) {
	prefix := fmt.Sprintf("%s/%s/", userID, sessionID)
	it := s.client.Bucket(s.bucket).Objects(ctx, &gcs.Query{Prefix: prefix})

	count := 0
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return count, fmt.Errorf("listing session artifacts: %w", err)
		}
		if err := s.client.Bucket(s.bucket).Object(attrs.Name).Delete(ctx); err != nil {
			return count, fmt.Errorf("deleting %s: %w", attrs.Name, err)
		}
		count++
	}

	s.logger.Info("session artifacts deleted",
		slog.String("prefix", prefix),
		slog.Int("count", count),
	)
	return count, nil
}

// Close releases the underlying client.
func (s *GCSStore) Close() error {
	return s.client.Close()
}

var _ ArtifactStore = (*GCSStore)(nil)
