package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"mvdan.cc/xurls/v2"
)

const (
	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/127.0.0.0 Safari/537.36"

	DefaultTimeout = 20 * time.Second

	articleSelector    = "article p, main p"
	paragraphSeparator = "\n\n"
)

// ErrNoText means the page had no paragraph text to summarize.
var ErrNoText = errors.New("page has no paragraph text")

//nolint:gochecknoglobals // Compiled once, read-only afterwards.
var httpsURLRe = xurls.Strict()

// Extractor turns an article page into plain text.
type Extractor struct {
	client *http.Client
	log    *slog.Logger
}

func New(client *http.Client, log *slog.Logger) *Extractor {
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}

	return &Extractor{client: client, log: log}
}

// SingleURL reports whether text is nothing but one https URL.
func SingleURL(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "https://") {
		return "", false
	}

	matches := httpsURLRe.FindAllString(text, -1)
	if len(matches) != 1 || matches[0] != text {
		return "", false
	}

	return text, true
}

func (e *Extractor) Extract(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", userAgent)

	resp, err := e.client.Do(req) //nolint:gosec // URL comes from the user on purpose.
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer func() {
		if err = resp.Body.Close(); err != nil {
			e.log.ErrorContext(ctx, "Failed to close response body",
				"error", err,
				"pageURL", pageURL,
				"operation", "Extract")
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("do request: unexpected status: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("create document from reader: %w", err)
	}

	paragraphs := collectParagraphs(doc.Find(articleSelector))
	if len(paragraphs) == 0 {
		paragraphs = collectParagraphs(doc.Find("p"))
	}

	if len(paragraphs) == 0 {
		return "", ErrNoText
	}

	e.log.DebugContext(ctx, "Article text is extracted",
		"pageURL", pageURL,
		"paragraphs", len(paragraphs))

	return strings.Join(paragraphs, paragraphSeparator), nil
}

//nolint:gochecknoglobals // Compiled once, read-only afterwards.
var spaceRunRe = regexp.MustCompile(`[ \t\r\n]+`)

func collectParagraphs(sel *goquery.Selection) []string {
	var paragraphs []string

	sel.Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(spaceRunRe.ReplaceAllString(s.Text(), " "))
		if text != "" {
			paragraphs = append(paragraphs, text)
		}
	})

	return paragraphs
}
