package docai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/luckylad/invoiceflow/internal/core/domain"
)

func TestExtractFieldsMapsEntities(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/documents:process" {
			http.NotFound(w, r)
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Fatalf("missing auth header, got %q", got)
		}
		_, _ = w.Write([]byte(`{"entities":[
			{"type":"invoice_number","mention_text":" INV-4411 ","confidence":0.95},
			{"type":"vendor_name","mention_text":"Acme Oilfield Services","confidence":0.92},
			{"type":"vendor_name","mention_text":"ACME","confidence":0.41},
			{"type":"","mention_text":"junk","confidence":0.9}
		]}`))
	}))
	defer server.Close()

	client := New(server.URL, "test-key", Options{})
	fields, err := client.ExtractFields(context.Background(), []byte("%PDF"))
	if err != nil {
		t.Fatalf("ExtractFields() error = %v", err)
	}
	if len(fields) != 2 {
		t.Fatalf("fields = %v, want 2 entries", fields)
	}
	if got := fields["invoice_number"]; got.Value != "INV-4411" || got.Confidence != 0.95 {
		t.Fatalf("invoice_number = %+v", got)
	}
	// Highest-confidence mention wins for duplicate entity types.
	if got := fields["vendor_name"]; got.Value != "Acme Oilfield Services" {
		t.Fatalf("vendor_name = %+v", got)
	}
}

func TestExtractFieldsWrapsTemporaryOnServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "backend overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := New(server.URL, "", Options{})
	_, err := client.ExtractFields(context.Background(), []byte("%PDF"))
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected ErrTemporary, got %v", err)
	}
	if !strings.Contains(err.Error(), "backend overloaded") {
		t.Fatalf("expected response body in error, got %v", err)
	}
}

func TestExtractFieldsClientErrorIsPermanent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid document", http.StatusBadRequest)
	}))
	defer server.Close()

	client := New(server.URL, "", Options{})
	_, err := client.ExtractFields(context.Background(), []byte("%PDF"))
	if err == nil {
		t.Fatalf("expected error")
	}
	if domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("400 must not be temporary, got %v", err)
	}
}

func TestTrainerSubmitBatch(t *testing.T) {
	var capturedDataset string
	var capturedCount int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, ":import") {
			http.NotFound(w, r)
			return
		}
		var payload struct {
			Dataset  string                     `json:"dataset"`
			Examples []domain.RetrainingExample `json:"examples"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		capturedDataset = payload.Dataset
		capturedCount = len(payload.Examples)
		_ = json.NewEncoder(w).Encode(map[string]int{"accepted": capturedCount})
	}))
	defer server.Close()

	trainer := NewTrainer(New(server.URL, "", Options{}), "invoice-extraction-v1")
	examples := []domain.RetrainingExample{
		{ReviewItemID: "rev-1", DocumentID: "doc-1", StoragePath: "doc-1.pdf",
			Entities: []domain.GroundTruthEntity{{Type: "invoice_number", MentionText: "INV-4411"}}},
	}
	if err := trainer.SubmitBatch(context.Background(), examples); err != nil {
		t.Fatalf("SubmitBatch() error = %v", err)
	}
	if capturedDataset != "invoice-extraction-v1" || capturedCount != 1 {
		t.Fatalf("dataset=%q count=%d", capturedDataset, capturedCount)
	}
}

func TestTrainerPartialAcceptanceIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"accepted":0}`))
	}))
	defer server.Close()

	trainer := NewTrainer(New(server.URL, "", Options{}), "ds")
	err := trainer.SubmitBatch(context.Background(), []domain.RetrainingExample{{ReviewItemID: "rev-1"}})
	if err == nil {
		t.Fatalf("expected error on partial acceptance")
	}
}
