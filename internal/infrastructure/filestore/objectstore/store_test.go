package objectstore

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirillkom/scholarship-pipeline/internal/core/domain"
)

func TestNormalizePrefix(t *testing.T) {
	assert.Equal(t, "", normalizePrefix(""))
	assert.Equal(t, "", normalizePrefix(" / "))
	assert.Equal(t, "intake/2026/", normalizePrefix("/intake/2026"))
	assert.Equal(t, "intake/", normalizePrefix("intake/"))
}

func TestFolderFromKey(t *testing.T) {
	folder, ok := folderFromKey("intake/", "intake/Jane Doe - jane@x.com/")
	require.True(t, ok)
	assert.Equal(t, "intake/Jane Doe - jane@x.com/", folder.FolderRef)
	assert.Equal(t, "Jane Doe", folder.ApplicantName)
	assert.Equal(t, "jane@x.com", folder.ApplicantEmail)

	_, ok = folderFromKey("intake/", "intake/readme.txt")
	assert.False(t, ok)
	_, ok = folderFromKey("intake/", "intake/.trash/")
	assert.False(t, ok)
	_, ok = folderFromKey("intake/", "other/John/")
	assert.False(t, ok)
}

func TestEntryFromObject(t *testing.T) {
	entry, ok := entryFromObject("Jane/", minio.ObjectInfo{Key: "Jane/essay.pdf", Size: 42})
	require.True(t, ok)
	assert.Equal(t, domain.FileEntry{FileRef: "Jane/essay.pdf", Name: "essay.pdf", MediaType: "application/pdf", Size: 42}, entry)

	entry, ok = entryFromObject("Jane/", minio.ObjectInfo{Key: "Jane/notes", ContentType: "text/plain"})
	require.True(t, ok)
	assert.Equal(t, "text/plain", entry.MediaType)

	entry, ok = entryFromObject("Jane/", minio.ObjectInfo{Key: "Jane/blob"})
	require.True(t, ok)
	assert.Equal(t, "application/octet-stream", entry.MediaType)

	for _, key := range []string{"Jane/", "Jane/drafts/", "Jane/drafts/v1.docx", "Jane/.keep"} {
		_, ok := entryFromObject("Jane/", minio.ObjectInfo{Key: key})
		assert.False(t, ok, key)
	}
}

func TestMapError(t *testing.T) {
	notFound := minio.ErrorResponse{Code: "NoSuchKey", StatusCode: http.StatusNotFound}
	assert.True(t, domain.IsKind(mapError("get", notFound), domain.ErrNotFound))

	unavailable := minio.ErrorResponse{Code: "SlowDown", StatusCode: http.StatusServiceUnavailable}
	assert.True(t, domain.IsKind(mapError("get", unavailable), domain.ErrTemporary))

	denied := minio.ErrorResponse{Code: "AccessDenied", StatusCode: http.StatusForbidden}
	err := mapError("get", denied)
	assert.False(t, domain.IsKind(err, domain.ErrTemporary))
	assert.False(t, domain.IsKind(err, domain.ErrNotFound))

	assert.ErrorIs(t, mapError("get", fmt.Errorf("wrap: %w", context.Canceled)), context.Canceled)
	assert.False(t, domain.IsKind(mapError("get", errors.New("boom")), domain.ErrTemporary))
}

func TestNewValidatesConfig(t *testing.T) {
	_, err := New(Config{Bucket: "submissions"})
	require.Error(t, err)
	_, err = New(Config{Endpoint: "localhost:9000"})
	require.Error(t, err)

	store, err := New(Config{Endpoint: "localhost:9000", Bucket: "submissions", Prefix: "intake"})
	require.NoError(t, err)
	assert.Equal(t, "intake/", store.prefix)
}
