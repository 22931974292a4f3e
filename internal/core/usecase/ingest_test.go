package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/luckylad/invoiceflow/internal/core/domain"
)

func TestIngestStoresPersistsAndPublishes(t *testing.T) {
	repo := newFakeDocumentRepo()
	storage := newFakeStorage()
	queue := &fakeQueue{}
	uc := NewIngestDocumentUseCase(repo, storage, queue)

	doc, err := uc.Ingest(context.Background(), "Acme Invoice #4411.pdf", strings.NewReader("%PDF-1.7 fake"))
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if doc.Status != domain.StatusReceived {
		t.Fatalf("status = %s, want %s", doc.Status, domain.StatusReceived)
	}
	if doc.Filename != "Acme Invoice #4411.pdf" {
		t.Fatalf("filename = %q, original name must be preserved", doc.Filename)
	}
	if strings.Contains(doc.StoragePath, " ") || strings.Contains(doc.StoragePath, "#") {
		t.Fatalf("storage path %q not sanitized", doc.StoragePath)
	}
	if _, ok := storage.blobs[doc.StoragePath]; !ok {
		t.Fatal("blob not saved under storage path")
	}
	if _, ok := repo.docs[doc.ID]; !ok {
		t.Fatal("document metadata not persisted")
	}
	if len(queue.published) != 1 || queue.published[0] != doc.ID {
		t.Fatalf("published = %v, want [%s]", queue.published, doc.ID)
	}
}

func TestIngestStorageFailureShortCircuits(t *testing.T) {
	repo := newFakeDocumentRepo()
	storage := newFakeStorage()
	storage.saveErr = errors.New("disk full")
	queue := &fakeQueue{}
	uc := NewIngestDocumentUseCase(repo, storage, queue)

	if _, err := uc.Ingest(context.Background(), "a.pdf", strings.NewReader("x")); err == nil {
		t.Fatal("Ingest() error = nil, want storage failure")
	}
	if len(repo.docs) != 0 {
		t.Fatal("metadata must not be created on storage failure")
	}
	if len(queue.published) != 0 {
		t.Fatal("no event must be published on storage failure")
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Acme Invoice #4411.pdf", "Acme_Invoice__4411.pdf"},
		{"../../etc/passwd", "passwd"},
		{"", "document.pdf"},
		{"plain.pdf", "plain.pdf"},
	}
	for _, tc := range cases {
		if got := sanitizeFilename(tc.in); got != tc.want {
			t.Fatalf("sanitizeFilename(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
