package orchestrator_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"briefer/internal/cache"
	"briefer/internal/orchestrator"
	"briefer/internal/summarizer"
	"briefer/internal/validator"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu      sync.Mutex
	blobs   map[string][]byte
	saveErr error
}

func newMemStore() *memStore {
	return &memStore{blobs: make(map[string][]byte)}
}

func (s *memStore) LoadBlob(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	blob, ok := s.blobs[key]
	return blob, ok, nil
}

func (s *memStore) SaveBlob(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.saveErr != nil {
		return s.saveErr
	}
	s.blobs[key] = value

	return nil
}

type fakeSummarizer struct {
	calls   atomic.Int32
	summary string
	err     error
	gotOpts summarizer.Options
	release chan struct{}
}

func (f *fakeSummarizer) Summarize(_ context.Context, _ string, opts summarizer.Options) (string, error) {
	f.calls.Add(1)
	f.gotOpts = opts

	if f.release != nil {
		<-f.release
	}

	return f.summary, f.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func distinctWords(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("word%d", i)
	}
	return strings.Join(parts, " ")
}

func newOrchestrator(
	t *testing.T,
	s summarizer.Summarizer,
	opts ...orchestrator.Option,
) (*orchestrator.Orchestrator, *cache.SummaryCache, *memStore) {
	t.Helper()

	store := newMemStore()
	c := cache.Load(context.Background(), store, discardLogger())

	return orchestrator.New(c, s, discardLogger(), opts...), c, store
}

func TestSummarizeFreshSuccess(t *testing.T) {
	ctx := context.Background()
	fake := &fakeSummarizer{summary: "X"}
	o, c, store := newOrchestrator(t, fake)

	input := distinctWords(60)
	bounds := summarizer.LengthBounds{MinLength: 10, MaxLength: 40}

	outcome := o.Summarize(ctx, input, bounds)

	require.True(t, outcome.OK())
	assert.Equal(t, "X", outcome.Summary)
	assert.False(t, outcome.FromCache)
	assert.NoError(t, outcome.Warning)
	assert.Equal(t, bounds, fake.gotOpts)

	summary, ok := c.Get(input)
	require.True(t, ok)
	assert.Equal(t, "X", summary)

	persisted, err := cache.Unmarshal(store.blobs[cache.BlobKey])
	require.NoError(t, err)
	assert.Equal(t, map[string]string{input: "X"}, persisted)
}

func TestSummarizeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	fake := &fakeSummarizer{summary: "X"}
	o, _, _ := newOrchestrator(t, fake)

	input := distinctWords(60)

	first := o.Summarize(ctx, input, nil)
	second := o.Summarize(ctx, input, nil)

	assert.Equal(t, int32(1), fake.calls.Load())
	assert.False(t, first.FromCache)
	assert.True(t, second.FromCache)
	assert.Equal(t, first.Summary, second.Summary)
}

func TestSummarizeCacheHitBypassesValidation(t *testing.T) {
	ctx := context.Background()
	fake := &fakeSummarizer{summary: "unused"}
	o, c, _ := newOrchestrator(t, fake)

	require.NoError(t, c.Put(ctx, "a b c", "cached"))

	outcome := o.Summarize(ctx, "a b c", nil)

	require.True(t, outcome.OK())
	assert.Equal(t, "cached", outcome.Summary)
	assert.True(t, outcome.FromCache)
	assert.Equal(t, int32(0), fake.calls.Load())
}

func TestSummarizeTooShort(t *testing.T) {
	ctx := context.Background()
	fake := &fakeSummarizer{summary: "X"}
	o, c, _ := newOrchestrator(t, fake)

	outcome := o.Summarize(ctx, "a b c", nil)

	require.False(t, outcome.OK())
	assert.Equal(t, "Input text must contain at least 50 words.", outcome.Message)

	var validationErr *validator.ValidationError
	assert.True(t, errors.As(outcome.Err, &validationErr))
	assert.Equal(t, int32(0), fake.calls.Load())
	assert.Equal(t, 0, c.Len())
}

func TestSummarizeEmptyInput(t *testing.T) {
	fake := &fakeSummarizer{summary: "X"}
	o, _, _ := newOrchestrator(t, fake)

	outcome := o.Summarize(context.Background(), "  \n ", nil)

	require.ErrorIs(t, outcome.Err, orchestrator.ErrNothingToSummarize)
	assert.Equal(t, int32(0), fake.calls.Load())
}

func TestSummarizeRemoteFailures(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantMessage string
	}{
		{
			"Remote error",
			&summarizer.RemoteError{StatusCode: http.StatusServiceUnavailable},
			"Failed to summarize text. Status: 503",
		},
		{
			"Malformed response",
			summarizer.ErrMalformedResponse,
			"No summary found in the response.",
		},
		{
			"Transport error",
			&summarizer.TransportError{Err: errors.New("connection reset")},
			"An error occurred while summarizing the text.",
		},
		{
			"Invalid bounds",
			fmt.Errorf("%w (min = 5, max = 1)", summarizer.ErrInvalidLengthBounds),
			"Summary length bounds are invalid: min length must be below max length.",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			fake := &fakeSummarizer{err: test.err}
			o, c, _ := newOrchestrator(t, fake)

			outcome := o.Summarize(context.Background(), distinctWords(60), nil)

			require.False(t, outcome.OK())
			assert.ErrorIs(t, outcome.Err, test.err)
			assert.Equal(t, test.wantMessage, outcome.Message)
			assert.Empty(t, outcome.Summary)
			assert.Equal(t, 0, c.Len())
		})
	}
}

func TestSummarizePersistenceWarningKeepsSummary(t *testing.T) {
	fake := &fakeSummarizer{summary: "X"}
	o, c, store := newOrchestrator(t, fake)
	store.saveErr = errors.New("quota exceeded")

	input := distinctWords(60)
	outcome := o.Summarize(context.Background(), input, nil)

	require.True(t, outcome.OK())
	assert.Equal(t, "X", outcome.Summary)

	var warning *cache.PersistenceWarning
	require.True(t, errors.As(outcome.Warning, &warning))

	_, ok := c.Get(input)
	assert.True(t, ok)
}

func TestSummarizeStateTransitions(t *testing.T) {
	collect := func() (*[]orchestrator.Status, orchestrator.Option) {
		var seen []orchestrator.Status
		return &seen, orchestrator.WithStateObserver(func(s orchestrator.RequestState) {
			seen = append(seen, s.Status)
		})
	}

	t.Run("Fresh", func(t *testing.T) {
		seen, opt := collect()
		o, _, _ := newOrchestrator(t, &fakeSummarizer{summary: "X"}, opt)

		o.Summarize(context.Background(), distinctWords(50), nil)

		assert.Equal(t, []orchestrator.Status{
			orchestrator.StatusCacheCheck,
			orchestrator.StatusValidating,
			orchestrator.StatusRemote,
			orchestrator.StatusDone,
		}, *seen)
	})

	t.Run("Invalid", func(t *testing.T) {
		seen, opt := collect()
		o, _, _ := newOrchestrator(t, &fakeSummarizer{summary: "X"}, opt)

		o.Summarize(context.Background(), "too short", nil)

		assert.Equal(t, []orchestrator.Status{
			orchestrator.StatusCacheCheck,
			orchestrator.StatusValidating,
			orchestrator.StatusDone,
		}, *seen)
	})

	t.Run("Cache hit", func(t *testing.T) {
		seen, opt := collect()
		o, c, _ := newOrchestrator(t, &fakeSummarizer{summary: "X"}, opt)
		require.NoError(t, c.Put(context.Background(), "hit", "cached"))

		o.Summarize(context.Background(), "hit", nil)

		assert.Equal(t, []orchestrator.Status{
			orchestrator.StatusCacheCheck,
			orchestrator.StatusDone,
		}, *seen)
	})
}

func TestSummarizeAgainstHuggingFace(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantSummary string
		wantMessage string
	}{
		{"Success", http.StatusOK, `[{"summary_text": "X"}]`, "X", ""},
		{"Service unavailable", http.StatusServiceUnavailable, `{"error": "loading"}`, "", "Failed to summarize text. Status: 503"},
		{"Empty sequence", http.StatusOK, `[]`, "", "No summary found in the response."},
		{"Error object", http.StatusOK, `{"error": "x"}`, "", "No summary found in the response."},
		{"Non-string summary", http.StatusOK, `[{"summary_text": 5}]`, "", "No summary found in the response."},
		{"Not JSON", http.StatusOK, `oops`, "", "An error occurred while summarizing the text."},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				calls.Add(1)
				w.WriteHeader(test.status)
				_, _ = io.WriteString(w, test.body)
			}))
			defer srv.Close()

			hf, err := summarizer.NewHuggingFace(summarizer.HuggingFaceConfig{
				URL:      srv.URL,
				Token:    "secret",
				Defaults: summarizer.LengthBounds{MinLength: 30, MaxLength: 130},
			}, discardLogger())
			require.NoError(t, err)

			o, c, _ := newOrchestrator(t, hf)
			input := distinctWords(60)

			outcome := o.Summarize(context.Background(), input, nil)
			assert.Equal(t, test.wantSummary, outcome.Summary)
			assert.Equal(t, test.wantMessage, outcome.Message)
			assert.Equal(t, int32(1), calls.Load())

			_, cached := c.Get(input)
			assert.Equal(t, test.wantSummary != "", cached)

			if test.status == http.StatusServiceUnavailable {
				var remoteErr *summarizer.RemoteError
				require.True(t, errors.As(outcome.Err, &remoteErr))
				assert.Equal(t, http.StatusServiceUnavailable, remoteErr.StatusCode)
			}
		})
	}
}

func TestUserMessageNil(t *testing.T) {
	assert.Empty(t, orchestrator.UserMessage(nil))
}
