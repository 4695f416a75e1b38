package ports

import (
	"context"

	"commentsync/internal/domain"
)

// Row is a single warehouse result row keyed by column name.
type Row map[string]any

// QueryRunner executes SQL text against the analytical warehouse. The core
// treats the warehouse as opaque; any error aborts the calling sync.
type QueryRunner interface {
	Run(ctx context.Context, query string) ([]Row, error)
}

// ImageFetcher retrieves image bytes for a remote attachment location.
type ImageFetcher interface {
	Fetch(ctx context.Context, pageURL string) ([]byte, error)
}

// AttachmentResolver materializes a comment's attachments into local files,
// returning how many are present locally afterwards. Idempotent: existing
// files are never re-fetched.
type AttachmentResolver interface {
	Resolve(ctx context.Context, comment domain.Comment) int
}

// RecordStore persists work orders and comments with uniqueness and status
// invariants. Single-owner per run; Close releases the connection.
type RecordStore interface {
	EnsureSchema(ctx context.Context) error
	WorkOrderExists(ctx context.Context, fingerprint string) (bool, error)
	InsertWorkOrder(ctx context.Context, activityID int64, workOrderNumber string) (bool, error)
	CommentExists(ctx context.Context, id int64) (bool, error)
	InsertComment(ctx context.Context, comment domain.Comment) error
	SelectPending(ctx context.Context) ([]domain.Comment, error)
	UpdateStatus(ctx context.Context, id int64, status domain.Status) (int64, error)
	WorkOrders(ctx context.Context) ([]domain.WorkOrder, error)
	Comments(ctx context.Context) ([]domain.Comment, error)
	Close() error
}

// Sender posts a JSON payload to a delivery endpoint with auth and retries.
type Sender interface {
	SendJSON(ctx context.Context, endpoint string, payload any) error
}
