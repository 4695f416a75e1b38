package attach

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"commentsync/internal/domain"
)

type countingFetcher struct {
	calls int
	fail  map[string]bool
}

func (f *countingFetcher) Fetch(_ context.Context, pageURL string) ([]byte, error) {
	f.calls++
	if f.fail[pageURL] {
		return nil, fmt.Errorf("fetch %s: boom", pageURL)
	}
	return []byte("image-bytes"), nil
}

func TestParseLocationList(t *testing.T) {
	t.Parallel()

	urls, err := ParseLocationList(`["https://a.example/1", "", "https://a.example/2"]`)
	if err != nil {
		t.Fatalf("json list: %v", err)
	}
	if len(urls) != 2 {
		t.Fatalf("expected 2 non-empty urls, got %v", urls)
	}

	urls, err = ParseLocationList(`['https://a.example/1']`)
	if err != nil {
		t.Fatalf("legacy list: %v", err)
	}
	if len(urls) != 1 || urls[0] != "https://a.example/1" {
		t.Fatalf("unexpected legacy parse: %v", urls)
	}

	urls, err = ParseLocationList("   ")
	if err != nil || urls != nil {
		t.Fatalf("blank input should yield nil, nil; got %v, %v", urls, err)
	}

	if _, err = ParseLocationList("not a list"); err == nil {
		t.Fatal("malformed input should return an error")
	}
}

func TestResolveIdempotent(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	fetcher := &countingFetcher{}
	resolver := NewResolver(dir, fetcher, nil)

	comment := domain.Comment{
		ID:             42,
		AttachmentURLs: []string{"https://a.example/1", "https://a.example/2"},
	}

	if got := resolver.Resolve(context.Background(), comment); got != 2 {
		t.Fatalf("first run resolved %d, want 2", got)
	}
	if got := resolver.Resolve(context.Background(), comment); got != 2 {
		t.Fatalf("second run resolved %d, want 2", got)
	}
	if fetcher.calls != 2 {
		t.Fatalf("expected at most 2 fetches across both runs, got %d", fetcher.calls)
	}

	for n := 1; n <= 2; n++ {
		path := filepath.Join(dir, domain.AttachmentFileName(42, n))
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("missing attachment file %s: %v", path, err)
		}
	}
}

func TestResolvePartialFailure(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	fetcher := &countingFetcher{fail: map[string]bool{"https://a.example/2": true}}
	resolver := NewResolver(dir, fetcher, nil)

	comment := domain.Comment{
		ID:             7,
		AttachmentURLs: []string{"https://a.example/1", "https://a.example/2"},
	}

	if got := resolver.Resolve(context.Background(), comment); got != 1 {
		t.Fatalf("expected 1 resolved, got %d", got)
	}

	files := resolver.LocalFiles(comment)
	if len(files) != 1 {
		t.Fatalf("expected 1 local file, got %v", files)
	}

	// The successful file must not be re-fetched on retry.
	fetcher.fail = nil
	if got := resolver.Resolve(context.Background(), comment); got != 2 {
		t.Fatalf("retry expected 2 resolved, got %d", got)
	}
	if fetcher.calls != 3 {
		t.Fatalf("expected 3 total fetches (2 + 1 retry), got %d", fetcher.calls)
	}
}

func TestResolveSkipsExistingFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	pre := filepath.Join(dir, domain.AttachmentFileName(9, 1))
	if err := os.WriteFile(pre, []byte("already here"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	fetcher := &countingFetcher{}
	resolver := NewResolver(dir, fetcher, nil)

	comment := domain.Comment{ID: 9, AttachmentURLs: []string{"https://a.example/1"}}
	if got := resolver.Resolve(context.Background(), comment); got != 1 {
		t.Fatalf("expected 1 resolved, got %d", got)
	}
	if fetcher.calls != 0 {
		t.Fatalf("existing file must short-circuit the fetch, got %d calls", fetcher.calls)
	}
}
