package attach

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"commentsync/internal/ports"
)

// maxImageBytes bounds a single attachment download.
const maxImageBytes = 32 << 20

// PageFetcher retrieves an attachment image hosted behind a viewer page:
// it loads the page, locates the first <img> element and downloads its src.
// A location that responds with image bytes directly is returned as-is.
type PageFetcher struct {
	client *http.Client
}

var _ ports.ImageFetcher = (*PageFetcher)(nil)

// NewPageFetcher wires an HTTP client; timeout defaults to 20s.
func NewPageFetcher(client *http.Client) *PageFetcher {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &PageFetcher{client: client}
}

// Fetch returns the image bytes behind pageURL.
func (f *PageFetcher) Fetch(ctx context.Context, pageURL string) ([]byte, error) {
	body, contentType, err := f.get(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	if strings.HasPrefix(contentType, "image/") {
		return body, nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}

	src, exists := doc.Find("img").First().Attr("src")
	if !exists || strings.TrimSpace(src) == "" {
		return nil, fmt.Errorf("no img element found at %s", pageURL)
	}

	imageURL, err := resolveRef(pageURL, src)
	if err != nil {
		return nil, err
	}

	image, _, err := f.get(ctx, imageURL)
	if err != nil {
		return nil, err
	}
	if len(image) == 0 {
		return nil, fmt.Errorf("empty image at %s", imageURL)
	}
	return image, nil
}

func (f *PageFetcher) get(ctx context.Context, target string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("request %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("fetch %s: %s", target, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, "", fmt.Errorf("read body: %w", err)
	}
	return body, resp.Header.Get("Content-Type"), nil
}

func resolveRef(base, ref string) (string, error) {
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid page url %s: %w", base, err)
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("invalid img src %s: %w", ref, err)
	}
	return baseURL.ResolveReference(refURL).String(), nil
}
