package gdrive

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	"golang.org/x/oauth2/google"
	"golang.org/x/time/rate"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/kirillkom/scholarship-pipeline/internal/core/domain"
	"github.com/kirillkom/scholarship-pipeline/internal/infrastructure/filestore"
)

const (
	mimeTypeFolder      = "application/vnd.google-apps.folder"
	mimeTypeGoogleDoc   = "application/vnd.google-apps.document"
	mimeTypeGoogleSheet = "application/vnd.google-apps.spreadsheet"

	exportMimeText = "text/plain"
	exportMimeCSV  = "text/csv"

	pageSize = 100
)

// Store lists applicant folders below a root Drive folder.
type Store struct {
	svc     *drive.Service
	rootID  string
	limiter *rate.Limiter
}

// New authenticates with a service-account key file.
func New(ctx context.Context, credentialsFile, rootFolderID string, requestsPerSecond float64) (*Store, error) {
	raw, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read drive credentials: %w", err)
	}
	jwtCfg, err := google.JWTConfigFromJSON(raw, drive.DriveReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("parse drive credentials: %w", err)
	}
	svc, err := drive.NewService(ctx, option.WithTokenSource(jwtCfg.TokenSource(ctx)))
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}
	return NewWithService(svc, rootFolderID, requestsPerSecond)
}

// NewWithService uses a preconfigured Drive service.
func NewWithService(svc *drive.Service, rootFolderID string, requestsPerSecond float64) (*Store, error) {
	if strings.TrimSpace(rootFolderID) == "" {
		return nil, fmt.Errorf("drive root folder id is required")
	}
	if requestsPerSecond <= 0 {
		requestsPerSecond = 8
	}
	burst := max(int(requestsPerSecond), 1)
	return &Store{
		svc:     svc,
		rootID:  rootFolderID,
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
	}, nil
}

func (s *Store) ListSubmissionFolders(ctx context.Context) ([]domain.SubmissionFolder, error) {
	query := fmt.Sprintf("'%s' in parents and mimeType='%s' and trashed=false", escapeQuery(s.rootID), mimeTypeFolder)
	files, err := s.list(ctx, query, "nextPageToken, files(id, name)")
	if err != nil {
		return nil, mapError("list submission folders", err)
	}
	folders := make([]domain.SubmissionFolder, 0, len(files))
	for _, f := range files {
		folders = append(folders, domain.NewSubmissionFolder(f.Id, f.Name))
	}
	return folders, nil
}

func (s *Store) ListDocuments(ctx context.Context, folderRef string) ([]domain.FileEntry, error) {
	query := fmt.Sprintf("'%s' in parents and mimeType!='%s' and trashed=false", escapeQuery(folderRef), mimeTypeFolder)
	files, err := s.list(ctx, query, "nextPageToken, files(id, name, mimeType, size)")
	if err != nil {
		return nil, mapError("list documents", err)
	}
	entries := make([]domain.FileEntry, 0, len(files))
	for _, f := range files {
		entries = append(entries, domain.FileEntry{
			FileRef:   f.Id,
			Name:      f.Name,
			MediaType: f.MimeType,
			Size:      f.Size,
		})
	}
	return entries, nil
}

// Download fetches file bytes. Google Docs are exported as plain text and
// Google Sheets as CSV.
func (s *Store) Download(ctx context.Context, fileRef string) ([]byte, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	meta, err := s.svc.Files.Get(fileRef).Fields("id, name, mimeType, size").SupportsAllDrives(true).Context(ctx).Do()
	if err != nil {
		return nil, mapError("get file metadata", err)
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	var resp *http.Response
	switch meta.MimeType {
	case mimeTypeGoogleDoc:
		resp, err = s.svc.Files.Export(fileRef, exportMimeText).Context(ctx).Download()
	case mimeTypeGoogleSheet:
		resp, err = s.svc.Files.Export(fileRef, exportMimeCSV).Context(ctx).Download()
	default:
		resp, err = s.svc.Files.Get(fileRef).SupportsAllDrives(true).Context(ctx).Download()
	}
	if err != nil {
		return nil, mapError("download "+meta.Name, err)
	}
	defer resp.Body.Close()
	return filestore.ReadLimited(resp.Body, meta.Name)
}

func (s *Store) list(ctx context.Context, query, fields string) ([]*drive.File, error) {
	var (
		out       []*drive.File
		pageToken string
	)
	for {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		call := s.svc.Files.List().
			Q(query).
			Fields(googleapi.Field(fields)).
			PageSize(pageSize).
			OrderBy("name").
			SupportsAllDrives(true).
			IncludeItemsFromAllDrives(true).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		page, err := call.Do()
		if err != nil {
			return nil, err
		}
		out = append(out, page.Files...)
		if page.NextPageToken == "" {
			return out, nil
		}
		pageToken = page.NextPageToken
	}
}

func escapeQuery(value string) string {
	return strings.ReplaceAll(strings.ReplaceAll(value, `\`, `\\`), `'`, `\'`)
}
