package vertex

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/luckylad/invoiceflow/internal/infrastructure/resilience"
)

// Client talks to the hosted generative-model endpoint used for record
// standardization and document embeddings.
type Client struct {
	baseURL    string
	apiKey     string
	genModel   string
	embedModel string
	httpClient *http.Client
	limiter    *rate.Limiter
	executor   *resilience.Executor
}

type Options struct {
	Timeout            time.Duration
	RequestsPerSecond  float64
	ResilienceExecutor *resilience.Executor
}

func New(baseURL, apiKey, genModel, embedModel string, options Options) *Client {
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	rps := options.RequestsPerSecond
	if rps <= 0 {
		rps = 1
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		genModel:   genModel,
		embedModel: embedModel,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		executor:   options.ResilienceExecutor,
	}
}

// Validator implements the generative standardization call.
type Validator struct {
	client *Client
}

func NewValidator(client *Client) *Validator {
	return &Validator{client: client}
}

func (v *Validator) GenerateJSON(ctx context.Context, instruction, prompt string) (string, error) {
	request := map[string]any{
		"model":              v.client.genModel,
		"system_instruction": instruction,
		"prompt":             prompt,
		"response_mime_type": "application/json",
	}

	var response struct {
		Text string `json:"text"`
	}
	call := func(ctx context.Context) error {
		if err := v.client.limiter.Wait(ctx); err != nil {
			return err
		}
		return v.client.postJSON(ctx, "/v1/models/"+v.client.genModel+":generate", request, &response, "generate")
	}

	var err error
	if v.client.executor != nil {
		err = v.client.executor.Execute(ctx, "validation.generate", call, classifyVertexError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return "", wrapTemporaryIfNeeded("generate validation json", err)
	}
	return strings.TrimSpace(response.Text), nil
}

// Embedder implements document embedding over the same endpoint.
type Embedder struct {
	client *Client
}

func NewEmbedder(client *Client) *Embedder {
	return &Embedder{client: client}
}

func (e *Embedder) EmbedDocument(ctx context.Context, text string) ([]float32, error) {
	request := map[string]any{
		"model":   e.client.embedModel,
		"content": text,
	}

	var response struct {
		Embedding []float32 `json:"embedding"`
	}
	call := func(ctx context.Context) error {
		if err := e.client.limiter.Wait(ctx); err != nil {
			return err
		}
		return e.client.postJSON(ctx, "/v1/models/"+e.client.embedModel+":embed", request, &response, "embed")
	}

	var err error
	if e.client.executor != nil {
		err = e.client.executor.Execute(ctx, "validation.embed", call, classifyVertexError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return nil, wrapTemporaryIfNeeded("embed document", err)
	}
	if len(response.Embedding) == 0 {
		return nil, fmt.Errorf("empty embedding result")
	}
	return response.Embedding, nil
}
