package source

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/compresso/core/internal/models"
	"go.uber.org/zap"
)

const browserUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36"

// Selectors removed before extracting readable text.
var strippedSelectors = []string{
	"script", "style", "noscript", "iframe", "svg",
	"header", "footer", "nav", "aside",
	"[role=navigation]", "[role=banner]", "[role=contentinfo]",
}

// Containers tried, in order, for the primary readable content.
const contentSelectors = "article, main, .content, .post-content, .article-content, #content"

// URLReader extracts the main article text from a web page.
type URLReader struct {
	client *http.Client
	logger *zap.Logger
}

func NewURLReader(logger *zap.Logger) *URLReader {
	return &URLReader{
		client: &http.Client{Timeout: 30 * time.Second},
		logger: logger,
	}
}

// Acquire fetches the page and returns "# <title>\n\n<body text>" with
// newline-normalized whitespace. Any transport or parse failure becomes an
// AcquisitionError with the cause preserved.
func (r *URLReader) Acquire(ctx context.Context, url string) (*Content, error) {
	r.logger.Info("fetching url", zap.String("url", url))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &models.AcquisitionError{Reason: "invalid url", Cause: err}
	}
	req.Header.Set("User-Agent", browserUserAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, &models.AcquisitionError{Reason: "failed to fetch url", Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &models.AcquisitionError{
			Reason: fmt.Sprintf("failed to fetch url: status %d", resp.StatusCode),
		}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, &models.AcquisitionError{Reason: "failed to parse page", Cause: err}
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		if og, ok := doc.Find("meta[property='og:title']").First().Attr("content"); ok {
			title = strings.TrimSpace(og)
		}
	}

	doc.Find(strings.Join(strippedSelectors, ", ")).Each(func(_ int, s *goquery.Selection) {
		s.Remove()
	})

	body := doc.Find(contentSelectors).First()
	if body.Length() == 0 {
		body = doc.Find("body")
	}

	text := normalizeLines(body.Text())
	result := fmt.Sprintf("# %s\n\n%s", title, text)

	r.logger.Info("extracted article text",
		zap.String("url", url),
		zap.Int("chars", len(result)),
	)

	return &Content{
		Text: result,
		Meta: map[string]interface{}{models.MetaURL: url},
	}, nil
}

// normalizeLines trims every line and drops empty ones.
func normalizeLines(raw string) string {
	lines := strings.Split(raw, "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			cleaned = append(cleaned, line)
		}
	}
	return strings.Join(cleaned, "\n")
}
