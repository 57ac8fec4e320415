// Package objectstore reads submissions from an S3-compatible bucket. Each
// applicant folder is a key prefix ending in "/" below the configured prefix.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/http"
	"path"
	"sort"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/kirillkom/scholarship-pipeline/internal/core/domain"
	"github.com/kirillkom/scholarship-pipeline/internal/infrastructure/filestore"
)

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
	UseSSL    bool
	Region    string
}

type Store struct {
	client *minio.Client
	bucket string
	prefix string
}

func New(cfg Config) (*Store, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, fmt.Errorf("minio endpoint is required")
	}
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("minio bucket is required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	return &Store{client: client, bucket: cfg.Bucket, prefix: normalizePrefix(cfg.Prefix)}, nil
}

func (s *Store) ListSubmissionFolders(ctx context.Context) ([]domain.SubmissionFolder, error) {
	var folders []domain.SubmissionFolder
	for object := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: s.prefix}) {
		if object.Err != nil {
			return nil, mapError("list submission folders", object.Err)
		}
		if folder, ok := folderFromKey(s.prefix, object.Key); ok {
			folders = append(folders, folder)
		}
	}
	sort.Slice(folders, func(i, j int) bool { return folders[i].FolderRef < folders[j].FolderRef })
	return folders, nil
}

func (s *Store) ListDocuments(ctx context.Context, folderRef string) ([]domain.FileEntry, error) {
	prefix := normalizePrefix(folderRef)
	if prefix == "" || !strings.HasPrefix(prefix, s.prefix) {
		return nil, domain.WrapError(domain.ErrInvalidInput, "list documents", fmt.Errorf("folder %q is outside the submissions prefix", folderRef))
	}
	var files []domain.FileEntry
	for object := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: prefix}) {
		if object.Err != nil {
			return nil, mapError("list documents "+folderRef, object.Err)
		}
		if entry, ok := entryFromObject(prefix, object); ok {
			files = append(files, entry)
		}
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

func (s *Store) Download(ctx context.Context, fileRef string) ([]byte, error) {
	object, err := s.client.GetObject(ctx, s.bucket, fileRef, minio.GetObjectOptions{})
	if err != nil {
		return nil, mapError("get object "+fileRef, err)
	}
	defer object.Close()

	// GetObject is lazy; errors such as NoSuchKey surface on Stat or the first read.
	if _, err := object.Stat(); err != nil {
		return nil, mapError("stat object "+fileRef, err)
	}
	return filestore.ReadLimited(object, path.Base(fileRef))
}

func normalizePrefix(prefix string) string {
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		return ""
	}
	return prefix + "/"
}

// folderFromKey accepts the common prefixes returned by a delimited listing.
func folderFromKey(root, key string) (domain.SubmissionFolder, bool) {
	if !strings.HasSuffix(key, "/") || !strings.HasPrefix(key, root) {
		return domain.SubmissionFolder{}, false
	}
	name := strings.TrimSuffix(strings.TrimPrefix(key, root), "/")
	if name == "" || strings.HasPrefix(name, ".") {
		return domain.SubmissionFolder{}, false
	}
	return domain.NewSubmissionFolder(key, name), true
}

func entryFromObject(folder string, object minio.ObjectInfo) (domain.FileEntry, bool) {
	name := strings.TrimPrefix(object.Key, folder)
	if name == "" || strings.Contains(name, "/") || strings.HasPrefix(name, ".") {
		return domain.FileEntry{}, false
	}
	mediaType := object.ContentType
	if mediaType == "" {
		mediaType = mime.TypeByExtension(strings.ToLower(path.Ext(name)))
	}
	if mediaType == "" {
		mediaType = "application/octet-stream"
	}
	return domain.FileEntry{
		FileRef:   object.Key,
		Name:      name,
		MediaType: mediaType,
		Size:      object.Size,
	}, true
}

func mapError(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	resp := minio.ToErrorResponse(err)
	switch {
	case resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket":
		return domain.WrapError(domain.ErrNotFound, op, err)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError:
		return domain.WrapError(domain.ErrTemporary, op, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return domain.WrapError(domain.ErrTemporary, op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
