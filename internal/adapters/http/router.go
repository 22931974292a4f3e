package httpadapter

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/luckylad/invoiceflow/internal/core/ports"
	"github.com/luckylad/invoiceflow/internal/observability/metrics"
	"github.com/luckylad/invoiceflow/internal/reporting/xlsx"
)

const maxUploadBytes = 50 << 20

type Router struct {
	ingestor ports.DocumentIngestor
	reviews  ports.ReviewService
	repo     ports.DocumentRepository

	serverMetrics *metrics.HTTPServerMetrics
	service       string
}

func NewRouter(
	ingestor ports.DocumentIngestor,
	reviews ports.ReviewService,
	repo ports.DocumentRepository,
	serverMetrics *metrics.HTTPServerMetrics,
	service string,
) *Router {
	return &Router{
		ingestor:      ingestor,
		reviews:       reviews,
		repo:          repo,
		serverMetrics: serverMetrics,
		service:       service,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/documents", rt.uploadDocument)
	mux.HandleFunc("/v1/documents/", rt.getDocumentByID)
	mux.HandleFunc("/v1/reviews", rt.listPendingReviews)
	mux.HandleFunc("/v1/reviews/", rt.reviewSubresource)
	mux.HandleFunc("/v1/reports/review-audit", rt.reviewAuditReport)

	var handler http.Handler = mux
	if rt.serverMetrics != nil {
		handler = rt.serverMetrics.Middleware(rt.service, handler)
	}
	return requestIDMiddleware(accessLogMiddleware(handler))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	if !strings.HasSuffix(strings.ToLower(fileHeader.Filename), ".pdf") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "only PDF documents are accepted"})
		return
	}

	doc, err := rt.ingestor.Ingest(r.Context(), fileHeader.Filename, file)
	if rt.serverMetrics != nil {
		rt.serverMetrics.RecordIngest(rt.service, err)
	}
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, doc)
}

func (rt *Router) getDocumentByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/documents/")
	if id == "" || strings.Contains(id, "/") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "document id is required"})
		return
	}

	doc, err := rt.repo.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (rt *Router) listPendingReviews(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	items, err := rt.reviews.ListPending(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "count": len(items)})
}

func (rt *Router) reviewSubresource(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/reviews/")
	id, action, _ := strings.Cut(rest, "/")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "review item id is required"})
		return
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		rt.getReviewByID(w, r, id)
	case action == "corrections" && r.Method == http.MethodPost:
		rt.applyCorrections(w, r, id)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	}
}

func (rt *Router) getReviewByID(w http.ResponseWriter, r *http.Request, id string) {
	item, err := rt.reviews.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (rt *Router) applyCorrections(w http.ResponseWriter, r *http.Request, id string) {
	var req struct {
		Corrections map[string]string `json:"corrections"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if len(req.Corrections) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "corrections are required"})
		return
	}

	item, err := rt.reviews.ApplyCorrections(r.Context(), id, req.Corrections)
	if rt.serverMetrics != nil {
		rt.serverMetrics.RecordCorrection(rt.service, err)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (rt *Router) reviewAuditReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	items, err := rt.reviews.AuditTrail(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	filename := fmt.Sprintf("review-audit-%s.xlsx", time.Now().UTC().Format("20060102"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if err := xlsx.WriteAuditReport(w, items); err != nil {
		writeError(w, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}
