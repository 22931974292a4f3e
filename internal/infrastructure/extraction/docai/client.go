package docai

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/luckylad/invoiceflow/internal/core/domain"
	"github.com/luckylad/invoiceflow/internal/infrastructure/resilience"
)

// Client talks to the managed document-extraction service. One process
// call returns the per-field values with the service's own confidence
// scores; those scores drive the routing tiers downstream.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	executor   *resilience.Executor
}

type Options struct {
	Timeout            time.Duration
	RequestsPerSecond  float64
	ResilienceExecutor *resilience.Executor
}

func New(baseURL, apiKey string, options Options) *Client {
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	rps := options.RequestsPerSecond
	if rps <= 0 {
		rps = 2
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		executor:   options.ResilienceExecutor,
	}
}

type processResponse struct {
	Entities []struct {
		Type        string  `json:"type"`
		MentionText string  `json:"mention_text"`
		Confidence  float64 `json:"confidence"`
	} `json:"entities"`
}

func (c *Client) ExtractFields(ctx context.Context, pdf []byte) (domain.FieldMap, error) {
	request := map[string]any{
		"raw_document": map[string]any{
			"content":   base64.StdEncoding.EncodeToString(pdf),
			"mime_type": "application/pdf",
		},
	}

	var response processResponse
	call := func(ctx context.Context) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		return c.postJSON(ctx, "/v1/documents:process", request, &response, "process")
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "extraction.process", call, classifyExtractionError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return nil, wrapTemporaryIfNeeded("extract fields", err)
	}

	fields := make(domain.FieldMap, len(response.Entities))
	for _, e := range response.Entities {
		name := strings.TrimSpace(e.Type)
		if name == "" {
			continue
		}
		// Keep the higher-confidence mention when the service returns
		// the same entity type twice.
		if prev, ok := fields[name]; ok && prev.Confidence >= e.Confidence {
			continue
		}
		fields[name] = domain.ExtractedField{
			Value:      strings.TrimSpace(e.MentionText),
			Confidence: e.Confidence,
		}
	}
	return fields, nil
}

// Trainer submits corrected ground truth to the extraction service's
// improvement dataset.
type Trainer struct {
	client  *Client
	dataset string
}

func NewTrainer(client *Client, dataset string) *Trainer {
	return &Trainer{client: client, dataset: dataset}
}

func (t *Trainer) SubmitBatch(ctx context.Context, examples []domain.RetrainingExample) error {
	if len(examples) == 0 {
		return nil
	}

	request := map[string]any{
		"dataset":  t.dataset,
		"examples": examples,
	}

	var response struct {
		Accepted int `json:"accepted"`
	}
	call := func(ctx context.Context) error {
		if err := t.client.limiter.Wait(ctx); err != nil {
			return err
		}
		return t.client.postJSON(ctx, "/v1/datasets/"+t.dataset+":import", request, &response, "dataset import")
	}

	var err error
	if t.client.executor != nil {
		err = t.client.executor.Execute(ctx, "extraction.dataset_import", call, classifyExtractionError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return wrapTemporaryIfNeeded("submit retraining batch", err)
	}
	if response.Accepted != len(examples) {
		return fmt.Errorf("dataset import accepted %d of %d examples", response.Accepted, len(examples))
	}
	return nil
}
