package extract_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"briefer/internal/extract"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSingleURL(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		want   string
		wantOK bool
	}{
		{"Plain URL", "https://example.com/post/1", "https://example.com/post/1", true},
		{"Trimmed URL", "  https://example.com/a?b=c \n", "https://example.com/a?b=c", true},
		{"HTTP URL", "http://example.com", "", false},
		{"URL in text", "read https://example.com please", "", false},
		{"Two URLs", "https://a.example https://b.example", "", false},
		{"No URL", "just some words", "", false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, ok := extract.SingleURL(test.text)
			assert.Equal(t, test.wantOK, ok)
			assert.Equal(t, test.want, got)
		})
	}
}

func TestExtractArticleParagraphs(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		_, _ = io.WriteString(w, `<html><body>
<nav><p>Menu</p></nav>
<article>
  <p>First   paragraph
  of the story.</p>
  <p></p>
  <p>Second paragraph.</p>
</article>
</body></html>`)
	}))
	defer srv.Close()

	e := extract.New(srv.Client(), slog.New(slog.DiscardHandler))

	text, err := e.Extract(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "First paragraph of the story.\n\nSecond paragraph.", text)
}

func TestExtractFallsBackToAllParagraphs(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `<html><body><div><p>Only paragraph.</p></div></body></html>`)
	}))
	defer srv.Close()

	e := extract.New(srv.Client(), slog.New(slog.DiscardHandler))

	text, err := e.Extract(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "Only paragraph.", text)
}

func TestExtractErrors(t *testing.T) {
	t.Run("No text", func(t *testing.T) {
		srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, `<html><body><div>no paragraphs</div></body></html>`)
		}))
		defer srv.Close()

		e := extract.New(srv.Client(), slog.New(slog.DiscardHandler))

		_, err := e.Extract(context.Background(), srv.URL)
		require.ErrorIs(t, err, extract.ErrNoText)
	})

	t.Run("Bad status", func(t *testing.T) {
		srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer srv.Close()

		e := extract.New(srv.Client(), slog.New(slog.DiscardHandler))

		_, err := e.Extract(context.Background(), srv.URL)
		require.Error(t, err)
	})
}
