package summarizer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultHuggingFaceURL   = "https://api-inference.huggingface.co/models/facebook/bart-large-cnn"
	DefaultHuggingFaceModel = "facebook/bart-large-cnn"

	defaultHTTPTimeout    = 60 * time.Second
	defaultMaxAttempts    = 3
	defaultInitialBackoff = time.Second
	backoffGrowthFactor   = 2
	maxErrorBodyBytes     = 1024
)

type HuggingFaceConfig struct {
	URL   string
	Token string
	// Model is sent for ModelSelect options without a model name.
	Model string
	// Defaults is used when Summarize is called with nil options.
	Defaults LengthBounds
	// MaxAttempts bounds retries of transport failures. Zero means default.
	MaxAttempts    int
	InitialBackoff time.Duration
	HTTPClient     *http.Client
}

// HuggingFace calls a Hugging Face inference endpoint hosting a
// summarization model.
type HuggingFace struct {
	url            string
	token          string
	model          string
	defaults       LengthBounds
	maxAttempts    int
	initialBackoff time.Duration
	client         *http.Client
	log            *slog.Logger
}

type huggingFaceRequest struct {
	Inputs     string                 `json:"inputs"`
	Options    *huggingFaceOptions    `json:"options,omitempty"`
	Parameters *huggingFaceParameters `json:"parameters,omitempty"`
}

type huggingFaceOptions struct {
	Model string `json:"model"`
}

type huggingFaceParameters struct {
	MinLength int `json:"min_length"`
	MaxLength int `json:"max_length"`
}

func NewHuggingFace(cfg HuggingFaceConfig, log *slog.Logger) (*HuggingFace, error) {
	url := strings.TrimSpace(cfg.URL)
	if url == "" {
		url = DefaultHuggingFaceURL
	}

	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, errors.New("token is empty")
	}

	if err := cfg.Defaults.Validate(); err != nil {
		return nil, fmt.Errorf("validate default bounds: %w", err)
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultHuggingFaceModel
	}

	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}

	initialBackoff := cfg.InitialBackoff
	if initialBackoff <= 0 {
		initialBackoff = defaultInitialBackoff
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}

	return &HuggingFace{
		url:            url,
		token:          token,
		model:          model,
		defaults:       cfg.Defaults,
		maxAttempts:    maxAttempts,
		initialBackoff: initialBackoff,
		client:         client,
		log:            log,
	}, nil
}

func (h *HuggingFace) Summarize(ctx context.Context, text string, opts Options) (string, error) {
	if opts == nil {
		opts = h.defaults
	}

	payload, err := h.buildRequest(text, opts)
	if err != nil {
		return "", err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", &TransportError{Err: fmt.Errorf("encode request: %w", err)}
	}

	backoff := h.initialBackoff
	for attempt := 1; ; attempt++ {
		summary, err := h.doRequest(ctx, body)
		if err == nil {
			return summary, nil
		}

		var retryErr *retryableError
		if !errors.As(err, &retryErr) {
			return "", err
		}

		if attempt >= h.maxAttempts || ctx.Err() != nil {
			return "", retryErr.TransportError
		}

		h.log.WarnContext(ctx, "Summarization request failed, retrying...",
			"error", retryErr.Err,
			"attempt", attempt,
			"maxAttempts", h.maxAttempts,
			"backoff", backoff)

		t := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			t.Stop()
			return "", retryErr.TransportError
		case <-t.C:
		}

		backoff *= backoffGrowthFactor
	}
}

// retryableError marks transport failures that happened before a response
// was received.
type retryableError struct {
	*TransportError
}

func (h *HuggingFace) doRequest(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(body))
	if err != nil {
		return "", &TransportError{Err: fmt.Errorf("create request: %w", err)}
	}

	req.Header.Set("Authorization", "Bearer "+h.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return "", &retryableError{&TransportError{Err: fmt.Errorf("do request: %w", err)}}
	}
	defer func() {
		if err = resp.Body.Close(); err != nil {
			h.log.ErrorContext(ctx, "Failed to close response body",
				"error", err,
				"url", h.url,
				"operation", "Summarize")
		}
	}()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))

		return "", &RemoteError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(snippet)),
		}
	}

	var raw json.RawMessage
	if err = json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return "", &TransportError{Err: fmt.Errorf("decode response: %w", err)}
	}

	return parseSummary(raw)
}

// parseSummary expects an array whose first element is an object with a
// string summary_text. Any other JSON shape is malformed.
func parseSummary(raw json.RawMessage) (string, error) {
	var results []json.RawMessage
	if err := json.Unmarshal(raw, &results); err != nil || len(results) == 0 {
		return "", ErrMalformedResponse
	}

	var first map[string]json.RawMessage
	if err := json.Unmarshal(results[0], &first); err != nil {
		return "", ErrMalformedResponse
	}

	field, ok := first["summary_text"]
	if !ok {
		return "", ErrMalformedResponse
	}

	var summary string
	if err := json.Unmarshal(field, &summary); err != nil {
		return "", ErrMalformedResponse
	}

	if strings.TrimSpace(summary) == "" {
		return "", ErrMalformedResponse
	}

	return summary, nil
}

func (h *HuggingFace) buildRequest(text string, opts Options) (huggingFaceRequest, error) {
	payload := huggingFaceRequest{Inputs: text}

	switch o := opts.(type) {
	case ModelSelect:
		model := strings.TrimSpace(o.Model)
		if model == "" {
			model = h.model
		}
		payload.Options = &huggingFaceOptions{Model: model}
	case LengthBounds:
		if err := o.Validate(); err != nil {
			return huggingFaceRequest{}, err
		}
		payload.Parameters = &huggingFaceParameters{
			MinLength: o.MinLength,
			MaxLength: o.MaxLength,
		}
	default:
		return huggingFaceRequest{}, fmt.Errorf("unsupported options type %T", opts)
	}

	return payload, nil
}
