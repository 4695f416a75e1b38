package attach

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestPageFetcherExtractsImage(t *testing.T) {
	t.Parallel()

	imageBytes := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x01, 0x02}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/viewer":
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte(`<html><body><img src="/media/photo.jpg"></body></html>`))
		case "/media/photo.jpg":
			w.Header().Set("Content-Type", "image/jpeg")
			_, _ = w.Write(imageBytes)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	fetcher := NewPageFetcher(server.Client())
	got, err := fetcher.Fetch(context.Background(), server.URL+"/viewer")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if !bytes.Equal(got, imageBytes) {
		t.Fatalf("unexpected image bytes: %v", got)
	}
}

func TestPageFetcherDirectImage(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("png-bytes"))
	}))
	defer server.Close()

	fetcher := NewPageFetcher(server.Client())
	got, err := fetcher.Fetch(context.Background(), server.URL+"/direct.png")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if string(got) != "png-bytes" {
		t.Fatalf("unexpected bytes: %q", got)
	}
}

func TestPageFetcherNoImageElement(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body><p>nothing here</p></body></html>`))
	}))
	defer server.Close()

	fetcher := NewPageFetcher(server.Client())
	if _, err := fetcher.Fetch(context.Background(), server.URL); err == nil {
		t.Fatal("page without img element must fail")
	}
}
