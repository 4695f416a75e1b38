// Package ingest pulls rows from the warehouse query capability and feeds
// unseen records into the local store.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"commentsync/internal/attach"
	"commentsync/internal/domain"
	"commentsync/internal/fingerprint"
	"commentsync/internal/ports"
	"commentsync/internal/store"
)

// Mode selects the sync flavor.
type Mode string

const (
	// ModeIncremental accumulates newly seen comments for immediate delivery.
	ModeIncremental Mode = "incremental"
	// ModeFullReload inserts unseen rows without building a result list; the
	// caller regenerates the full export afterwards.
	ModeFullReload Mode = "full-reload"
)

// Syncer runs warehouse queries and inserts rows the store has not seen.
type Syncer struct {
	runner   ports.QueryRunner
	store    ports.RecordStore
	resolver ports.AttachmentResolver
	logger   *slog.Logger
}

// NewSyncer wires the query capability, store and attachment resolver.
func NewSyncer(runner ports.QueryRunner, recordStore ports.RecordStore, resolver ports.AttachmentResolver, logger *slog.Logger) *Syncer {
	return &Syncer{runner: runner, store: recordStore, resolver: resolver, logger: logger}
}

// SyncWorkOrders runs the query and inserts each unseen work order, keyed by
// the fingerprint of its identifiers. Re-running with the same input set is
// a no-op. Returns the number of insertions.
func (s *Syncer) SyncWorkOrders(ctx context.Context, query string) (int, error) {
	rows, err := s.runner.Run(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("work order query: %w", err)
	}

	inserted := 0
	for _, row := range rows {
		activityID := asInt64(columnValue(row, "activity_id"))
		workOrderNumber := asString(columnValue(row, "sap_work_number"))

		ok, err := s.store.InsertWorkOrder(ctx, activityID, workOrderNumber)
		if err != nil {
			return inserted, fmt.Errorf("insert work order %d/%s: %w", activityID, workOrderNumber, err)
		}
		if ok {
			inserted++
		}
	}

	s.info("work orders synced", "rows", len(rows), "inserted", inserted)
	return inserted, nil
}

// SyncComments runs the query, inserts unseen comments with pending status,
// resolves their work-order linkage and attachments, and — in incremental
// mode — returns the newly seen comments. Rows already stored are skipped
// entirely. Each insert is committed individually; a later failure keeps
// the progress made so far.
func (s *Syncer) SyncComments(ctx context.Context, query string, mode Mode) ([]domain.Comment, error) {
	rows, err := s.runner.Run(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("comment query: %w", err)
	}

	incomingImages := 0
	for _, row := range rows {
		if urls, err := attach.ParseLocationList(asString(columnValue(row, "location_urls"))); err == nil {
			incomingImages += len(urls)
		}
	}
	s.info("comment rows received", "comments", len(rows), "images", incomingImages)

	var (
		newlySeen []domain.Comment
		inserted  int
		images    int
	)

	for _, row := range rows {
		comment := rowComment(row)

		exists, err := s.store.CommentExists(ctx, comment.ID)
		if err != nil {
			return newlySeen, fmt.Errorf("comment %d existence: %w", comment.ID, err)
		}
		if exists {
			continue
		}

		urls, err := attach.ParseLocationList(comment.LocationURLs)
		if err != nil {
			s.warn("bad location list", "comment", comment.ID, "error", err)
		}
		comment.AttachmentURLs = urls

		if _, err := s.store.InsertWorkOrder(ctx, comment.ActivityID, comment.WorkOrderNumber); err != nil {
			return newlySeen, fmt.Errorf("link work order of comment %d: %w", comment.ID, err)
		}

		if err := s.store.InsertComment(ctx, comment); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				continue
			}
			return newlySeen, err
		}
		inserted++

		if s.resolver != nil {
			images += s.resolver.Resolve(ctx, comment)
		}

		if mode == ModeIncremental {
			newlySeen = append(newlySeen, comment)
		}
	}

	s.info("comments synced", "inserted", inserted, "attachments", images, "mode", string(mode))
	return newlySeen, nil
}

func rowComment(row ports.Row) domain.Comment {
	activityID := asInt64(columnValue(row, "activity_id"))
	workOrderNumber := asString(columnValue(row, "sap_work_number"))

	return domain.Comment{
		ID:                  asInt64(columnValue(row, "id")),
		ActivityID:          activityID,
		WorkOrderNumber:     workOrderNumber,
		RoleName:            asString(columnValue(row, "role_name")),
		WorkSequenceName:    asString(columnValue(row, "work_sequence_name")),
		ElementStep:         asInt64(columnValue(row, "element_step")),
		ElementInstanceName: asString(columnValue(row, "element_instance_name")),
		Suffix:              asString(columnValue(row, "suffix")),
		Title:               asString(columnValue(row, "comment_title")),
		Description:         asString(columnValue(row, "comment_description")),
		LocationURLs:        asString(columnValue(row, "location_urls")),
		UsedFor:             asString(columnValue(row, "comment_used_for")),
		CreatedDate:         asString(columnValue(row, "created_date")),
		Fingerprint:         fingerprint.Digest(activityID, workOrderNumber),
		Status:              domain.StatusPending,
	}
}

// columnValue is case-insensitive on the column name; warehouses differ in
// how they fold identifiers.
func columnValue(row ports.Row, name string) any {
	if v, ok := row[name]; ok {
		return v
	}
	if v, ok := row[strings.ToUpper(name)]; ok {
		return v
	}
	for k, v := range row {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return nil
}

func asInt64(v any) int64 {
	switch t := v.(type) {
	case nil:
		return 0
	case int64:
		return t
	case int:
		return int64(t)
	case int32:
		return int64(t)
	case float64:
		return int64(t)
	case []byte:
		n, _ := strconv.ParseInt(string(t), 10, 64)
		return n
	case string:
		n, _ := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		return n
	default:
		return 0
	}
}

func asString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case time.Time:
		return t.Format(time.RFC3339)
	default:
		return fmt.Sprint(t)
	}
}

func (s *Syncer) info(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Info(msg, args...)
	}
}

func (s *Syncer) warn(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}
