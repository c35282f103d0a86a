package collector

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// ogpScanLimit bounds how much of a page is read looking for the og:image
// tag; meta tags live in the document head.
const ogpScanLimit = 10 * 1024

// OGPFetcher resolves the og:image URL of an article page. Fetching is
// best-effort: any failure yields an empty string.
type OGPFetcher struct {
	client *http.Client
}

// NewOGPFetcher creates an OGP fetcher with the given per-page timeout.
func NewOGPFetcher(timeout time.Duration) *OGPFetcher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &OGPFetcher{client: &http.Client{Timeout: timeout}}
}

// ImageURL returns the page's og:image content, or "" when the page cannot
// be fetched or carries no image tag.
func (f *OGPFetcher) ImageURL(ctx context.Context, pageURL string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return ""
	}
	req.Header.Set("User-Agent", "OwnNews OGP/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return ""
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return ""
	}

	head, err := io.ReadAll(io.LimitReader(resp.Body, ogpScanLimit))
	if err != nil {
		return ""
	}
	return ExtractOGPImage(string(head))
}

// ExtractOGPImage pulls the og:image content attribute out of an HTML
// fragment. Twitter's image tag serves as a fallback.
func ExtractOGPImage(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}

	if content, ok := doc.Find(`meta[property="og:image"]`).First().Attr("content"); ok {
		return strings.TrimSpace(content)
	}
	if content, ok := doc.Find(`meta[name="twitter:image"]`).First().Attr("content"); ok {
		return strings.TrimSpace(content)
	}
	return ""
}
