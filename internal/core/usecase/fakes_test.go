package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kirillkom/scholarship-pipeline/internal/core/domain"
	"github.com/kirillkom/scholarship-pipeline/internal/core/rubric"
)

type memLedger struct {
	mu             sync.Mutex
	subs           map[string]*domain.Submission
	subOrder       []string
	docs           map[string]*domain.Document
	docOrder       []string
	scores         []domain.Score
	statusHistory  map[string][]domain.SubmissionStatus
	createDocErr   error
	createScoreErr error
}

func newMemLedger() *memLedger {
	return &memLedger{
		subs:          make(map[string]*domain.Submission),
		docs:          make(map[string]*domain.Document),
		statusHistory: make(map[string][]domain.SubmissionStatus),
	}
}

func (l *memLedger) CreateSubmission(_ context.Context, sub *domain.Submission) (*domain.Submission, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, id := range l.subOrder {
		if l.subs[id].FolderRef == sub.FolderRef {
			copySub := *l.subs[id]
			return &copySub, nil
		}
	}
	stored := *sub
	l.subs[stored.ID] = &stored
	l.subOrder = append(l.subOrder, stored.ID)
	copySub := stored
	return &copySub, nil
}

func (l *memLedger) GetSubmission(_ context.Context, id string) (*domain.Submission, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	sub, ok := l.subs[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "get submission", fmt.Errorf("id %s", id))
	}
	copySub := *sub
	return &copySub, nil
}

func (l *memLedger) GetSubmissionByFolderRef(_ context.Context, folderRef string) (*domain.Submission, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, id := range l.subOrder {
		if l.subs[id].FolderRef == folderRef {
			copySub := *l.subs[id]
			return &copySub, nil
		}
	}
	return nil, domain.WrapError(domain.ErrNotFound, "get submission by folder", errors.New(folderRef))
}

func (l *memLedger) ListSubmissions(_ context.Context, status domain.SubmissionStatus) ([]domain.Submission, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := []domain.Submission{}
	for _, id := range l.subOrder {
		if status == "" || l.subs[id].Status == status {
			out = append(out, *l.subs[id])
		}
	}
	return out, nil
}

func (l *memLedger) UpdateSubmissionStatus(_ context.Context, id string, status domain.SubmissionStatus, errMessage string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	sub, ok := l.subs[id]
	if !ok {
		return domain.WrapError(domain.ErrNotFound, "update submission", fmt.Errorf("id %s", id))
	}
	sub.Status = status
	sub.Error = errMessage
	sub.UpdatedAt = time.Now().UTC()
	l.statusHistory[id] = append(l.statusHistory[id], status)
	return nil
}

func (l *memLedger) CreateDocument(_ context.Context, doc *domain.Document) (*domain.Document, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.createDocErr != nil {
		return nil, l.createDocErr
	}
	for _, id := range l.docOrder {
		existing := l.docs[id]
		if existing.FileRef == doc.FileRef {
			existing.Name = doc.Name
			existing.MediaType = doc.MediaType
			copyDoc := *existing
			return &copyDoc, nil
		}
	}
	stored := *doc
	l.docs[stored.ID] = &stored
	l.docOrder = append(l.docOrder, stored.ID)
	copyDoc := stored
	return &copyDoc, nil
}

func (l *memLedger) GetDocument(_ context.Context, id string) (*domain.Document, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	doc, ok := l.docs[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "get document", fmt.Errorf("id %s", id))
	}
	copyDoc := *doc
	return &copyDoc, nil
}

func (l *memLedger) ListDocuments(_ context.Context, submissionID string) ([]domain.Document, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := []domain.Document{}
	for _, id := range l.docOrder {
		if l.docs[id].SubmissionID == submissionID {
			out = append(out, *l.docs[id])
		}
	}
	return out, nil
}

func (l *memLedger) UpdateDocument(_ context.Context, id string, update domain.DocumentUpdate) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	doc, ok := l.docs[id]
	if !ok {
		return domain.WrapError(domain.ErrNotFound, "update document", fmt.Errorf("id %s", id))
	}
	doc.Category = update.Category
	doc.Processed = update.Processed
	doc.Error = update.Error
	return nil
}

func (l *memLedger) CreateScore(_ context.Context, score *domain.Score) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.createScoreErr != nil {
		return l.createScoreErr
	}
	l.scores = append(l.scores, *score)
	return nil
}

func (l *memLedger) GetScores(_ context.Context, documentID string) ([]domain.Score, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := []domain.Score{}
	for _, s := range l.scores {
		if s.DocumentID == documentID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (l *memLedger) GetSubmissionScores(_ context.Context, submissionID string) ([]domain.Score, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := []domain.Score{}
	for _, s := range l.scores {
		if s.SubmissionID == submissionID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (l *memLedger) documentByName(name string) (domain.Document, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, id := range l.docOrder {
		if l.docs[id].Name == name {
			return *l.docs[id], true
		}
	}
	return domain.Document{}, false
}

func (l *memLedger) submissionByFolder(folderRef string) (domain.Submission, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, id := range l.subOrder {
		if l.subs[id].FolderRef == folderRef {
			return *l.subs[id], true
		}
	}
	return domain.Submission{}, false
}

type fileStoreFake struct {
	folders    []domain.SubmissionFolder
	foldersErr error
	documents  map[string][]domain.FileEntry
	listErr    error
}

func (f *fileStoreFake) ListSubmissionFolders(context.Context) ([]domain.SubmissionFolder, error) {
	if f.foldersErr != nil {
		return nil, f.foldersErr
	}
	return f.folders, nil
}

func (f *fileStoreFake) ListDocuments(_ context.Context, folderRef string) ([]domain.FileEntry, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.documents[folderRef], nil
}

func (f *fileStoreFake) Download(context.Context, string) ([]byte, error) {
	return nil, errors.New("not implemented")
}

type extractorFake struct {
	texts map[string]string
	errs  map[string]error
}

func (f *extractorFake) Extract(_ context.Context, doc *domain.Document) (string, error) {
	if err, ok := f.errs[doc.FileRef]; ok {
		return "", err
	}
	return f.texts[doc.FileRef], nil
}

type classificationOracleFake struct {
	mu     sync.Mutex
	answer domain.OracleClassification
	err    error
	calls  int
}

func (f *classificationOracleFake) ClassifyDocument(context.Context, string, string) (domain.OracleClassification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.answer, f.err
}

type scoringOracleFake struct {
	answer domain.OracleScore
	err    error
	calls  int
}

func (f *scoringOracleFake) ScoreDocument(context.Context, domain.Category, rubric.Definition, string) (domain.OracleScore, error) {
	f.calls++
	return f.answer, f.err
}

type observerFake struct {
	mu        sync.Mutex
	processed int
	failed    map[string]int
	fallbacks map[string]int
	finished  []domain.SubmissionStatus
}

func newObserverFake() *observerFake {
	return &observerFake{failed: map[string]int{}, fallbacks: map[string]int{}}
}

func (o *observerFake) DocumentProcessed(domain.Category, domain.GradedBy, time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.processed++
}

func (o *observerFake) DocumentFailed(stage string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failed[stage]++
}

func (o *observerFake) OracleFallback(operation string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.fallbacks[operation]++
}

func (o *observerFake) SubmissionFinished(status domain.SubmissionStatus, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.finished = append(o.finished, status)
}

type queueFake struct {
	published []domain.ProcessRequest
	failAfter int
	err       error
}

func (q *queueFake) PublishProcessRequest(_ context.Context, req domain.ProcessRequest) error {
	if q.err != nil && len(q.published) >= q.failAfter {
		return q.err
	}
	q.published = append(q.published, req)
	return nil
}

func (q *queueFake) SubscribeProcessRequests(context.Context, int, func(context.Context, domain.ProcessRequest) error) error {
	return errors.New("not implemented")
}
