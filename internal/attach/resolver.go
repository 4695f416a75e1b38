// Package attach materializes remote comment attachments into local files.
package attach

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"commentsync/internal/domain"
	"commentsync/internal/ports"
)

// Resolver fetches a comment's attachments into the local directory,
// skipping files that already exist. Best-effort: a failed URL is logged
// and the next one is tried.
type Resolver struct {
	dir     string
	fetcher ports.ImageFetcher
	logger  *slog.Logger
}

var _ ports.AttachmentResolver = (*Resolver)(nil)

// NewResolver wires the fetcher and target directory.
func NewResolver(dir string, fetcher ports.ImageFetcher, logger *slog.Logger) *Resolver {
	return &Resolver{dir: dir, fetcher: fetcher, logger: logger}
}

// Resolve materializes every attachment of the comment and returns how many
// are present locally afterwards. An existing file counts as resolved and
// costs no network call.
func (r *Resolver) Resolve(ctx context.Context, comment domain.Comment) int {
	if len(comment.AttachmentURLs) == 0 {
		return 0
	}

	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		r.warn("cannot create attachment directory", "dir", r.dir, "error", err)
		return 0
	}

	resolved := 0
	for i, url := range comment.AttachmentURLs {
		name := domain.AttachmentFileName(comment.ID, i+1)
		path := filepath.Join(r.dir, name)

		if _, err := os.Stat(path); err == nil {
			resolved++
			continue
		}

		if r.fetcher == nil {
			r.warn("no image fetcher configured", "comment", comment.ID, "url", url)
			continue
		}

		data, err := r.fetcher.Fetch(ctx, url)
		if err != nil {
			r.warn("attachment fetch failed", "comment", comment.ID, "url", url, "error", err)
			continue
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			r.warn("attachment write failed", "comment", comment.ID, "file", path, "error", err)
			continue
		}
		resolved++
	}
	return resolved
}

// LocalFiles returns the paths of the comment's attachment files that exist
// on disk, in attachment order.
func (r *Resolver) LocalFiles(comment domain.Comment) []string {
	var paths []string
	for i := range comment.AttachmentURLs {
		path := filepath.Join(r.dir, domain.AttachmentFileName(comment.ID, i+1))
		if _, err := os.Stat(path); err == nil {
			paths = append(paths, path)
		}
	}
	return paths
}

func (r *Resolver) warn(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Warn(msg, args...)
	}
}

// ParseLocationList decodes a location-URL list into its non-empty URLs.
// Accepts a JSON array of strings; single-quoted legacy list literals are
// normalized before decoding. Unparseable input is a data-quality error.
func ParseLocationList(raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	var urls []string
	if err := json.Unmarshal([]byte(raw), &urls); err != nil {
		normalized := strings.ReplaceAll(raw, "'", `"`)
		if err := json.Unmarshal([]byte(normalized), &urls); err != nil {
			return nil, fmt.Errorf("unparseable location list %q: %w", raw, err)
		}
	}

	filtered := urls[:0]
	for _, u := range urls {
		if strings.TrimSpace(u) != "" {
			filtered = append(filtered, u)
		}
	}
	return filtered, nil
}
