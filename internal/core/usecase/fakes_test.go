package usecase

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/luckylad/invoiceflow/internal/core/domain"
)

type fakeDocumentRepo struct {
	docs      map[string]*domain.Document
	statuses  []domain.DocumentStatus
	errMsgs   []string
	savedType domain.DocumentType
	savedTier domain.ConfidenceTier
	createErr error
	getErr    error
	updateErr error
}

func newFakeDocumentRepo(docs ...*domain.Document) *fakeDocumentRepo {
	r := &fakeDocumentRepo{docs: map[string]*domain.Document{}}
	for _, d := range docs {
		r.docs[d.ID] = d
	}
	return r
}

func (r *fakeDocumentRepo) Create(_ context.Context, doc *domain.Document) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.docs[doc.ID] = doc
	return nil
}

func (r *fakeDocumentRepo) GetByID(_ context.Context, id string) (*domain.Document, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	doc, ok := r.docs[id]
	if !ok {
		return nil, domain.ErrDocumentNotFound
	}
	return doc, nil
}

func (r *fakeDocumentRepo) UpdateStatus(_ context.Context, id string, status domain.DocumentStatus, errMessage string) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	r.statuses = append(r.statuses, status)
	r.errMsgs = append(r.errMsgs, errMessage)
	if doc, ok := r.docs[id]; ok {
		doc.Status = status
	}
	return nil
}

func (r *fakeDocumentRepo) SaveClassification(_ context.Context, id string, docType domain.DocumentType, tier domain.ConfidenceTier) error {
	r.savedType = docType
	r.savedTier = tier
	return nil
}

func (r *fakeDocumentRepo) lastStatus() domain.DocumentStatus {
	if len(r.statuses) == 0 {
		return ""
	}
	return r.statuses[len(r.statuses)-1]
}

type fakeReviewRepo struct {
	items          map[string]*domain.ReviewItem
	created        []*domain.ReviewItem
	submissions    []int
	lastSubmission time.Time
	createErr      error
	listErr        error
	markErr        error
}

func newFakeReviewRepo(items ...*domain.ReviewItem) *fakeReviewRepo {
	r := &fakeReviewRepo{items: map[string]*domain.ReviewItem{}}
	for _, it := range items {
		r.items[it.ID] = it
	}
	return r
}

func (r *fakeReviewRepo) Create(_ context.Context, item *domain.ReviewItem) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.items[item.ID] = item
	r.created = append(r.created, item)
	return nil
}

func (r *fakeReviewRepo) GetByID(_ context.Context, id string) (*domain.ReviewItem, error) {
	item, ok := r.items[id]
	if !ok {
		return nil, domain.ErrReviewItemNotFound
	}
	copied := *item
	return &copied, nil
}

func (r *fakeReviewRepo) ListByStatus(_ context.Context, status domain.ReviewStatus) ([]domain.ReviewItem, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	var out []domain.ReviewItem
	for _, it := range r.items {
		if it.Status == status {
			out = append(out, *it)
		}
	}
	return out, nil
}

func (r *fakeReviewRepo) SaveCorrections(_ context.Context, id string, corrections map[string]string, reviewedAt time.Time) error {
	item, ok := r.items[id]
	if !ok {
		return domain.ErrReviewItemNotFound
	}
	item.CorrectedFields = corrections
	item.Status = domain.ReviewReviewed
	item.ReviewedAt = &reviewedAt
	return nil
}

func (r *fakeReviewRepo) MarkSubmitted(_ context.Context, id string, submittedAt time.Time) (bool, error) {
	if r.markErr != nil {
		return false, r.markErr
	}
	item, ok := r.items[id]
	if !ok {
		return false, domain.ErrReviewItemNotFound
	}
	if item.Submitted {
		return false, nil
	}
	item.Submitted = true
	item.Status = domain.ReviewSubmitted
	item.SubmittedAt = &submittedAt
	return true, nil
}

func (r *fakeReviewRepo) LastSubmissionTime(_ context.Context) (time.Time, error) {
	return r.lastSubmission, nil
}

func (r *fakeReviewRepo) RecordSubmission(_ context.Context, submittedAt time.Time, itemCount int) error {
	r.lastSubmission = submittedAt
	r.submissions = append(r.submissions, itemCount)
	return nil
}

type fakeWarehouse struct {
	invoices   []*domain.InvoiceRecord
	statements []*domain.StatementRecord
	known      map[string]bool
	insertErr  error
	lookupErr  error
}

func (w *fakeWarehouse) InsertInvoice(_ context.Context, _ string, rec *domain.InvoiceRecord) error {
	if w.insertErr != nil {
		return w.insertErr
	}
	w.invoices = append(w.invoices, rec)
	return nil
}

func (w *fakeWarehouse) InsertStatement(_ context.Context, _ string, rec *domain.StatementRecord) error {
	if w.insertErr != nil {
		return w.insertErr
	}
	w.statements = append(w.statements, rec)
	return nil
}

func (w *fakeWarehouse) HasInvoiceNumber(_ context.Context, invoiceNumber string, _ time.Time) (bool, error) {
	if w.lookupErr != nil {
		return false, w.lookupErr
	}
	return w.known[invoiceNumber], nil
}

type fakeStorage struct {
	blobs   map[string][]byte
	saveErr error
	openErr error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{blobs: map[string][]byte{}}
}

func (s *fakeStorage) Save(_ context.Context, key string, data io.Reader) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	b, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	s.blobs[key] = b
	return nil
}

func (s *fakeStorage) Open(_ context.Context, key string) (io.ReadCloser, error) {
	if s.openErr != nil {
		return nil, s.openErr
	}
	b, ok := s.blobs[key]
	if !ok {
		return nil, domain.ErrDocumentNotFound
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

type fakeArchiver struct {
	archived []string
	err      error
}

func (a *fakeArchiver) Archive(_ context.Context, doc *domain.Document, _ *domain.StandardizedRecord) (string, error) {
	if a.err != nil {
		return "", a.err
	}
	path := "archive/" + doc.ID
	a.archived = append(a.archived, path)
	return path, nil
}

type fakeFieldExtractor struct {
	fields domain.FieldMap
	err    error
}

func (f *fakeFieldExtractor) ExtractFields(_ context.Context, _ []byte) (domain.FieldMap, error) {
	return f.fields, f.err
}

type fakeTextExtractor struct {
	text string
	err  error
}

func (f *fakeTextExtractor) ExtractText(_ context.Context, _ []byte) (string, error) {
	return f.text, f.err
}

type fakeEmbedder struct {
	vector []float32
	err    error
	calls  int
}

func (f *fakeEmbedder) EmbedDocument(_ context.Context, _ string) ([]float32, error) {
	f.calls++
	return f.vector, f.err
}

type indexUpsert struct {
	documentID string
	filename   string
	docType    domain.DocumentType
	fields     map[string]string
}

type fakeIndex struct {
	similar     []domain.SimilarDocument
	retrieveErr error
	upserts     []indexUpsert
	upsertErr   error
}

func (f *fakeIndex) Retrieve(_ context.Context, _ []float32, _ int, _ float64) ([]domain.SimilarDocument, error) {
	if f.retrieveErr != nil {
		return nil, f.retrieveErr
	}
	return f.similar, nil
}

func (f *fakeIndex) Upsert(_ context.Context, documentID, filename string, docType domain.DocumentType, _ []float32, fields map[string]string) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upserts = append(f.upserts, indexUpsert{
		documentID: documentID,
		filename:   filename,
		docType:    docType,
		fields:     fields,
	})
	return nil
}

type fakeModel struct {
	response    string
	err         error
	instruction string
	prompt      string
}

func (f *fakeModel) GenerateJSON(_ context.Context, instruction, prompt string) (string, error) {
	f.instruction = instruction
	f.prompt = prompt
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

type fakeRetrainingService struct {
	batches [][]domain.RetrainingExample
	err     error
}

func (f *fakeRetrainingService) SubmitBatch(_ context.Context, examples []domain.RetrainingExample) error {
	if f.err != nil {
		return f.err
	}
	f.batches = append(f.batches, examples)
	return nil
}

type fakeQueue struct {
	published []string
	err       error
}

func (q *fakeQueue) PublishDocumentReceived(_ context.Context, documentID string) error {
	if q.err != nil {
		return q.err
	}
	q.published = append(q.published, documentID)
	return nil
}

func (q *fakeQueue) SubscribeDocumentReceived(_ context.Context, _ func(context.Context, string) error) error {
	return nil
}
