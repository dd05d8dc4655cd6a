package summarizer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/responses"
)

const (
	baseMaxOutputTokens  int64 = 512
	limitMaxOutputTokens int64 = 2048

	defaultOpenAIModel = openai.ChatModelGPT5Mini2025_08_07

	systemPrompt = `Summarize the text.

Rules:
- Keep the core ideas and critical context (dates, numbers, names).
- Neutral tone, plain prose, no lists.
- Output in the same language as the input.`

	lengthBoundsRule = "\n- Use between %d and %d words."
)

type OpenAIConfig struct {
	APIKey string
	// BaseURL overrides the API endpoint, mostly for tests.
	BaseURL     string
	Model       string
	Defaults    LengthBounds
	MaxAttempts int
}

// OpenAI calls OpenAI's Responses API to produce summaries.
type OpenAI struct {
	client   openai.Client
	model    string
	defaults LengthBounds
}

func NewOpenAI(cfg OpenAIConfig) (*OpenAI, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("API key is empty")
	}

	if err := cfg.Defaults.Validate(); err != nil {
		return nil, fmt.Errorf("validate default bounds: %w", err)
	}

	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(maxAttempts - 1),
	}
	if baseURL := strings.TrimSpace(cfg.BaseURL); baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultOpenAIModel
	}

	return &OpenAI{
		client:   openai.NewClient(opts...),
		model:    model,
		defaults: cfg.Defaults,
	}, nil
}

func (s *OpenAI) Summarize(ctx context.Context, text string, opts Options) (string, error) {
	if opts == nil {
		opts = s.defaults
	}

	model := s.model
	instructions := systemPrompt

	switch o := opts.(type) {
	case ModelSelect:
		if m := strings.TrimSpace(o.Model); m != "" {
			model = m
		}
	case LengthBounds:
		if err := o.Validate(); err != nil {
			return "", err
		}
		instructions += fmt.Sprintf(lengthBoundsRule, o.MinLength, o.MaxLength)
	default:
		return "", fmt.Errorf("unsupported options type %T", opts)
	}

	maxOutputTokens := baseMaxOutputTokens
	for {
		resp, err := s.client.Responses.New(ctx, responses.ResponseNewParams{
			Model:           model,
			MaxOutputTokens: openai.Int(maxOutputTokens),
			Instructions:    openai.String(instructions),
			Input: responses.ResponseNewParamsInputUnion{
				OfString: openai.String(text),
			},
		})
		if err != nil {
			return "", classifyOpenAIError(err)
		}

		if resp.Status == "incomplete" {
			if resp.IncompleteDetails.Reason == "max_output_tokens" && maxOutputTokens < limitMaxOutputTokens {
				maxOutputTokens = min(maxOutputTokens*2, limitMaxOutputTokens)
				continue
			}
			return "", fmt.Errorf(
				"%w: response is incomplete (reason = %s, maxOutputTokens = %d)",
				ErrMalformedResponse,
				resp.IncompleteDetails.Reason,
				maxOutputTokens,
			)
		}

		summary := strings.TrimSpace(resp.OutputText())
		if summary == "" {
			return "", fmt.Errorf("%w (status = %s)", ErrMalformedResponse, resp.Status)
		}
		return summary, nil
	}
}

func classifyOpenAIError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return &RemoteError{
			StatusCode: apiErr.StatusCode,
			Body:       apiErr.Message,
		}
	}

	return &TransportError{Err: fmt.Errorf("do request: %w", err)}
}
