package localfs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kirillkom/scholarship-pipeline/internal/core/domain"
	"github.com/kirillkom/scholarship-pipeline/internal/infrastructure/filestore"
)

// Store reads submissions from a directory tree: one sub-directory per applicant,
// named "Applicant Name - email", holding that applicant's files.
type Store struct {
	basePath string
}

func New(basePath string) (*Store, error) {
	if basePath == "" {
		basePath = "./data/submissions"
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create submissions dir: %w", err)
	}
	return &Store{basePath: basePath}, nil
}

func (s *Store) ListSubmissionFolders(_ context.Context) ([]domain.SubmissionFolder, error) {
	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		return nil, mapError("read submissions dir", err)
	}
	folders := make([]domain.SubmissionFolder, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() || hidden(entry.Name()) {
			continue
		}
		folders = append(folders, domain.NewSubmissionFolder(entry.Name(), entry.Name()))
	}
	return folders, nil
}

func (s *Store) ListDocuments(_ context.Context, folderRef string) ([]domain.FileEntry, error) {
	dir, err := s.resolve(folderRef)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, mapError("read folder "+folderRef, err)
	}

	files := make([]domain.FileEntry, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() || hidden(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, mapError("stat "+entry.Name(), err)
		}
		files = append(files, domain.FileEntry{
			FileRef:   filepath.ToSlash(filepath.Join(folderRef, entry.Name())),
			Name:      entry.Name(),
			MediaType: mediaType(entry.Name()),
			Size:      info.Size(),
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

func (s *Store) Download(_ context.Context, fileRef string) ([]byte, error) {
	path, err := s.resolve(fileRef)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, mapError("open "+fileRef, err)
	}
	defer f.Close()
	return filestore.ReadLimited(f, fileRef)
}

// resolve maps a reference to a path below basePath.
func (s *Store) resolve(ref string) (string, error) {
	rel := filepath.FromSlash(ref)
	if ref == "" || !filepath.IsLocal(rel) {
		return "", domain.WrapError(domain.ErrInvalidInput, "resolve path", fmt.Errorf("reference %q escapes the submissions dir", ref))
	}
	return filepath.Join(s.basePath, rel), nil
}

func mapError(op string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return domain.WrapError(domain.ErrNotFound, op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func mediaType(name string) string {
	if mt := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); mt != "" {
		return mt
	}
	return "application/octet-stream"
}

func hidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
