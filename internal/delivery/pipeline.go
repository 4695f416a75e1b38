// Package delivery transmits pending comments and their attachments to the
// remote endpoints, advancing each record's status only on full success.
package delivery

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"commentsync/internal/domain"
	"commentsync/internal/export"
	"commentsync/internal/ports"
)

// AttachmentSource resolves a comment's attachments and exposes the local
// files that back them.
type AttachmentSource interface {
	Resolve(ctx context.Context, comment domain.Comment) int
	LocalFiles(comment domain.Comment) []string
}

// Summary is the end-of-run accounting reported to the operator.
type Summary struct {
	Processed    int
	Succeeded    int
	StillPending int
}

// Pipeline owns the pending → success state machine. A comment advances
// only when its data payload and every attachment reached the endpoint;
// any other outcome leaves it pending for the next run. Delivery is
// at-least-once: the endpoint is assumed idempotent per comment id.
type Pipeline struct {
	store            ports.RecordStore
	sender           ports.Sender
	attachments      AttachmentSource
	exporter         *export.Writer
	commentsEndpoint string
	imagesEndpoint   string
	kind             domain.DeliveryKind
	logger           *slog.Logger
}

// Deps wires the pipeline collaborators.
type Deps struct {
	Store            ports.RecordStore
	Sender           ports.Sender
	Attachments      AttachmentSource
	Exporter         *export.Writer
	CommentsEndpoint string
	ImagesEndpoint   string
	Kind             domain.DeliveryKind
	Logger           *slog.Logger
}

// NewPipeline constructs the delivery component.
func NewPipeline(deps Deps) *Pipeline {
	return &Pipeline{
		store:            deps.Store,
		sender:           deps.Sender,
		attachments:      deps.Attachments,
		exporter:         deps.Exporter,
		commentsEndpoint: deps.CommentsEndpoint,
		imagesEndpoint:   deps.ImagesEndpoint,
		kind:             deps.Kind,
		logger:           deps.Logger,
	}
}

// DeliverEach sends every pending comment individually: record payload
// first, then its attachments one by one. A failure on one record never
// prevents processing of the next.
func (p *Pipeline) DeliverEach(ctx context.Context) (Summary, error) {
	pending, err := p.store.SelectPending(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("select pending: %w", err)
	}

	summary := Summary{Processed: len(pending)}
	for _, comment := range pending {
		if p.deliverOne(ctx, comment) {
			summary.Succeeded++
		} else {
			summary.StillPending++
		}
	}

	p.logSummary("per-record delivery done", summary)
	return summary, nil
}

// DeliverBatch stages all pending comments in one transient export and
// sends them in a single request. On batch success, attachments are still
// delivered per comment and each status advances on its own outcome. On
// batch failure no status changes and the error is surfaced.
func (p *Pipeline) DeliverBatch(ctx context.Context) (Summary, error) {
	pending, err := p.store.SelectPending(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("select pending: %w", err)
	}
	if len(pending) == 0 {
		p.logSummary("batch delivery done", Summary{})
		return Summary{}, nil
	}

	summary := Summary{Processed: len(pending), StillPending: len(pending)}

	path, err := p.exporter.WriteTransient(pending)
	if err != nil {
		if errors.Is(err, export.ErrNoExport) {
			p.warn("skipping delivery cycle", "error", err)
			return summary, nil
		}
		return summary, err
	}
	defer p.exporter.Remove(path)

	if err := p.sendExportFile(ctx, path); err != nil {
		p.warn("batch send failed", "file", path, "count", len(pending), "error", err)
		return summary, fmt.Errorf("batch send: %w", err)
	}

	summary.Succeeded = 0
	summary.StillPending = 0
	for _, comment := range pending {
		if p.deliverAttachmentsAndAdvance(ctx, comment) {
			summary.Succeeded++
		} else {
			summary.StillPending++
		}
	}

	p.logSummary("batch delivery done", summary)
	return summary, nil
}

// deliverOne implements per-record atomic delivery. The transient export is
// removed whatever the outcome.
func (p *Pipeline) deliverOne(ctx context.Context, comment domain.Comment) bool {
	path, err := p.exporter.WriteTransient([]domain.Comment{comment})
	if err != nil {
		p.warn("cannot stage comment", "comment", comment.ID, "error", err)
		return false
	}
	defer p.exporter.Remove(path)

	if err := p.sendExportFile(ctx, path); err != nil {
		p.warn("comment send failed", "comment", comment.ID, "error", err)
		return false
	}

	return p.deliverAttachmentsAndAdvance(ctx, comment)
}

// deliverAttachmentsAndAdvance sends every attachment of the comment and,
// only if all of them made it, flips the status to success.
func (p *Pipeline) deliverAttachmentsAndAdvance(ctx context.Context, comment domain.Comment) bool {
	if p.attachments != nil && len(comment.AttachmentURLs) > 0 {
		p.attachments.Resolve(ctx, comment)

		files := p.attachments.LocalFiles(comment)
		if len(files) < len(comment.AttachmentURLs) {
			p.warn("attachments incomplete, comment stays pending",
				"comment", comment.ID, "expected", len(comment.AttachmentURLs), "present", len(files))
			return false
		}

		for _, file := range files {
			if err := p.sendAttachment(ctx, comment.ID, file); err != nil {
				p.warn("attachment send failed", "comment", comment.ID, "file", file, "error", err)
				return false
			}
		}
	}

	affected, err := p.store.UpdateStatus(ctx, comment.ID, domain.StatusSuccess)
	if err != nil {
		p.warn("status update failed", "comment", comment.ID, "error", err)
		return false
	}
	if affected == 0 {
		p.warn("status update touched no rows", "comment", comment.ID)
	}
	return true
}

// sendExportFile uses the staged file as the request body so that what was
// serialized is exactly what the endpoint receives.
func (p *Pipeline) sendExportFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read export %s: %w", path, err)
	}
	return p.sender.SendJSON(ctx, p.commentsEndpoint, json.RawMessage(data))
}

func (p *Pipeline) sendAttachment(ctx context.Context, commentID int64, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read attachment %s: %w", path, err)
	}

	payload := map[string]string{
		"comment_id": strconv.FormatInt(commentID, 10),
		"filename":   filepath.Base(path),
		"tipo":       string(p.kind),
		"imagen_b64": base64.StdEncoding.EncodeToString(data),
	}
	return p.sender.SendJSON(ctx, p.imagesEndpoint, payload)
}

func (p *Pipeline) logSummary(msg string, s Summary) {
	if p.logger != nil {
		p.logger.Info(msg, "processed", s.Processed, "succeeded", s.Succeeded, "still_pending", s.StillPending)
	}
}

func (p *Pipeline) warn(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Warn(msg, args...)
	}
}
