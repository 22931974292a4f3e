package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/luckylad/invoiceflow/internal/core/domain"
)

// pointNamespace derives stable point IDs from document identity so an
// upsert for the same document replaces the previous entry.
var pointNamespace = uuid.MustParse("1b671a64-40d5-491e-99b0-da01ff1f3341")

// Client stores corrected-document embeddings and serves similarity
// retrieval over qdrant's HTTP API.
type Client struct {
	baseURL    string
	collection string
	httpClient *http.Client

	ensureMu          sync.Mutex
	ensuredCollection bool
	ensuredVectorSize int
}

func New(baseURL, collection string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: collection,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *Client) Upsert(
	ctx context.Context,
	documentID, filename string,
	docType domain.DocumentType,
	vector []float32,
	fields map[string]string,
) error {
	if len(vector) == 0 {
		return fmt.Errorf("empty vector")
	}
	if err := c.ensureCollection(ctx, len(vector)); err != nil {
		return err
	}

	payload := map[string]any{
		"document_id": documentID,
		"filename":    filename,
		"doc_type":    string(docType),
		"indexed_at":  time.Now().UTC().Format(time.RFC3339),
	}
	for name, value := range fields {
		payload["field_"+name] = value
	}

	reqBody := map[string]any{
		"points": []map[string]any{
			{
				"id":      uuid.NewSHA1(pointNamespace, []byte(documentID)).String(),
				"vector":  vector,
				"payload": payload,
			},
		},
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal upsert body: %w", err)
	}

	url := fmt.Sprintf("%s/collections/%s/points?wait=true", c.baseURL, c.collection)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create upsert request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant upsert request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant upsert status: %s", resp.Status)
	}
	return nil
}

func (c *Client) Retrieve(ctx context.Context, vector []float32, k int, minSimilarity float64) ([]domain.SimilarDocument, error) {
	reqBody := map[string]any{
		"vector":          vector,
		"limit":           k,
		"score_threshold": minSimilarity,
		"with_payload":    true,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal search body: %w", err)
	}

	url := fmt.Sprintf("%s/collections/%s/points/search", c.baseURL, c.collection)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("qdrant search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		// Collection not created yet means no corrected documents exist.
		return nil, nil
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("qdrant search status: %s", resp.Status)
	}

	var searchResp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	out := make([]domain.SimilarDocument, 0, len(searchResp.Result))
	for _, r := range searchResp.Result {
		doc := domain.SimilarDocument{
			DocumentID: getStringPayload(r.Payload, "document_id"),
			Filename:   getStringPayload(r.Payload, "filename"),
			Type:       domain.DocumentType(getStringPayload(r.Payload, "doc_type")),
			Similarity: r.Score,
			Fields:     map[string]string{},
		}
		if ts, err := time.Parse(time.RFC3339, getStringPayload(r.Payload, "indexed_at")); err == nil {
			doc.CreatedAt = ts
		}
		for key, value := range r.Payload {
			if name, ok := strings.CutPrefix(key, "field_"); ok {
				doc.Fields[name] = fmt.Sprintf("%v", value)
			}
		}
		out = append(out, doc)
	}
	return out, nil
}

func (c *Client) ensureCollection(ctx context.Context, vectorSize int) error {
	c.ensureMu.Lock()
	if c.ensuredCollection && c.ensuredVectorSize == vectorSize {
		c.ensureMu.Unlock()
		return nil
	}
	c.ensureMu.Unlock()

	reqBody := map[string]any{
		"vectors": map[string]any{
			"size":     vectorSize,
			"distance": "Cosine",
		},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal create collection body: %w", err)
	}

	url := fmt.Sprintf("%s/collections/%s", c.baseURL, c.collection)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create collection request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant ensure collection request: %w", err)
	}
	defer resp.Body.Close()

	// 200/201 for create, 409 if already exists (depends on version/config).
	if resp.StatusCode == http.StatusConflict {
		c.markCollectionEnsured(vectorSize)
		return nil
	}
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		if msg := strings.TrimSpace(string(raw)); msg != "" {
			return fmt.Errorf("qdrant ensure collection status: %s: %s", resp.Status, msg)
		}
		return fmt.Errorf("qdrant ensure collection status: %s", resp.Status)
	}
	c.markCollectionEnsured(vectorSize)
	return nil
}

func (c *Client) markCollectionEnsured(vectorSize int) {
	c.ensureMu.Lock()
	defer c.ensureMu.Unlock()
	c.ensuredCollection = true
	c.ensuredVectorSize = vectorSize
}

func getStringPayload(payload map[string]any, key string) string {
	v, ok := payload[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
