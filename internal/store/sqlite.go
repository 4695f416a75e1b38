// Package store implements the durable local record store for work orders
// and comments on SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"commentsync/internal/domain"
	"commentsync/internal/fingerprint"
	"commentsync/internal/ports"
)

// ErrDuplicate signals an insert of an already-present comment id. The
// normal control path checks CommentExists first; this is the safety net.
var ErrDuplicate = errors.New("duplicate key")

// SQLiteStore persists work orders and comments. The connection is a
// single-owner resource: one writer per run, Close at the end.
type SQLiteStore struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

var _ ports.RecordStore = (*SQLiteStore)(nil)

// Open opens (creating if necessary) the SQLite database at path with WAL
// mode and foreign keys on, constrained to a single writer.
func Open(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	return &SQLiteStore{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Question),
	}, nil
}

// Close releases the underlying connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// EnsureSchema idempotently creates the two tables.
func (s *SQLiteStore) EnsureSchema(ctx context.Context) error {
	const workOrders = `
	CREATE TABLE IF NOT EXISTS work_orders (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		activity_id INTEGER NOT NULL,
		work_order_number TEXT NOT NULL,
		fingerprint TEXT NOT NULL UNIQUE
	)`
	const comments = `
	CREATE TABLE IF NOT EXISTS comments (
		id INTEGER PRIMARY KEY,
		activity_id INTEGER NOT NULL,
		work_order_number TEXT NOT NULL,
		role_name TEXT,
		work_sequence_name TEXT,
		element_step INTEGER,
		element_instance_name TEXT,
		suffix TEXT,
		comment_title TEXT,
		comment_description TEXT,
		location_urls TEXT,
		attachment_urls TEXT,
		comment_used_for TEXT,
		created_date TEXT,
		fingerprint TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending'
	)`

	if _, err := s.db.ExecContext(ctx, workOrders); err != nil {
		return fmt.Errorf("create work_orders: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, comments); err != nil {
		return fmt.Errorf("create comments: %w", err)
	}
	return nil
}

// WorkOrderExists reports whether a work order with the fingerprint is stored.
func (s *SQLiteStore) WorkOrderExists(ctx context.Context, fp string) (bool, error) {
	query, args, err := s.sb.Select("1").From("work_orders").Where(sq.Eq{"fingerprint": fp}).Limit(1).ToSql()
	if err != nil {
		return false, fmt.Errorf("build query: %w", err)
	}
	return s.exists(ctx, query, args)
}

// InsertWorkOrder computes the fingerprint and inserts the work order.
// Returns false without error when the fingerprint is already present.
func (s *SQLiteStore) InsertWorkOrder(ctx context.Context, activityID int64, workOrderNumber string) (bool, error) {
	fp := fingerprint.Digest(activityID, workOrderNumber)

	exists, err := s.WorkOrderExists(ctx, fp)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	query, args, err := s.sb.Insert("work_orders").
		Columns("activity_id", "work_order_number", "fingerprint").
		Values(activityID, workOrderNumber, fp).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build insert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, fmt.Errorf("insert work order: %w", err)
	}
	return true, nil
}

// CommentExists reports whether the comment id is already stored.
func (s *SQLiteStore) CommentExists(ctx context.Context, id int64) (bool, error) {
	query, args, err := s.sb.Select("1").From("comments").Where(sq.Eq{"id": id}).Limit(1).ToSql()
	if err != nil {
		return false, fmt.Errorf("build query: %w", err)
	}
	return s.exists(ctx, query, args)
}

// InsertComment stores a new comment. Fails with ErrDuplicate if the id is
// already present. Status defaults to pending when unset.
func (s *SQLiteStore) InsertComment(ctx context.Context, c domain.Comment) error {
	status := c.Status
	if status == "" {
		status = domain.StatusPending
	}

	attachments, err := json.Marshal(c.AttachmentURLs)
	if err != nil {
		return fmt.Errorf("encode attachment urls: %w", err)
	}

	query, args, err := s.sb.Insert("comments").
		Columns("id", "activity_id", "work_order_number", "role_name", "work_sequence_name",
			"element_step", "element_instance_name", "suffix", "comment_title",
			"comment_description", "location_urls", "attachment_urls", "comment_used_for",
			"created_date", "fingerprint", "status").
		Values(c.ID, c.ActivityID, c.WorkOrderNumber, c.RoleName, c.WorkSequenceName,
			c.ElementStep, c.ElementInstanceName, c.Suffix, c.Title,
			c.Description, c.LocationURLs, string(attachments), c.UsedFor,
			c.CreatedDate, c.Fingerprint, status).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("comment %d: %w", c.ID, ErrDuplicate)
		}
		return fmt.Errorf("insert comment %d: %w", c.ID, err)
	}
	return nil
}

// SelectPending returns all pending comments ordered by id, which is stable
// across runs and yields reproducible batches.
func (s *SQLiteStore) SelectPending(ctx context.Context) ([]domain.Comment, error) {
	return s.selectComments(ctx, sq.Eq{"status": domain.StatusPending})
}

// Comments returns every stored comment, used for the historical export.
func (s *SQLiteStore) Comments(ctx context.Context) ([]domain.Comment, error) {
	return s.selectComments(ctx, nil)
}

// UpdateStatus sets the delivery status of one comment and returns the
// affected row count. Zero rows is not an error; the caller logs it as a
// referential inconsistency. A success status is never reverted to pending.
func (s *SQLiteStore) UpdateStatus(ctx context.Context, id int64, status domain.Status) (int64, error) {
	update := s.sb.Update("comments").Set("status", status).Where(sq.Eq{"id": id})
	if status == domain.StatusPending {
		update = update.Where(sq.NotEq{"status": domain.StatusSuccess})
	}

	query, args, err := update.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build update: %w", err)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("update status of %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return affected, nil
}

// WorkOrders returns every stored work order in insertion order.
func (s *SQLiteStore) WorkOrders(ctx context.Context) ([]domain.WorkOrder, error) {
	query, args, err := s.sb.Select("id", "activity_id", "work_order_number", "fingerprint").
		From("work_orders").OrderBy("id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query work orders: %w", err)
	}
	defer rows.Close()

	var orders []domain.WorkOrder
	for rows.Next() {
		var o domain.WorkOrder
		if err := rows.Scan(&o.ID, &o.ActivityID, &o.WorkOrderNumber, &o.Fingerprint); err != nil {
			return nil, fmt.Errorf("scan work order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return orders, nil
}

func (s *SQLiteStore) selectComments(ctx context.Context, where any) ([]domain.Comment, error) {
	builder := s.sb.Select("id", "activity_id", "work_order_number", "role_name",
		"work_sequence_name", "element_step", "element_instance_name", "suffix",
		"comment_title", "comment_description", "location_urls", "attachment_urls",
		"comment_used_for", "created_date", "fingerprint", "status").
		From("comments").OrderBy("id")
	if where != nil {
		builder = builder.Where(where)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query comments: %w", err)
	}
	defer rows.Close()

	var comments []domain.Comment
	for rows.Next() {
		var (
			c           domain.Comment
			attachments sql.NullString
			step        sql.NullInt64
		)
		if err := rows.Scan(&c.ID, &c.ActivityID, &c.WorkOrderNumber, &c.RoleName,
			&c.WorkSequenceName, &step, &c.ElementInstanceName, &c.Suffix,
			&c.Title, &c.Description, &c.LocationURLs, &attachments,
			&c.UsedFor, &c.CreatedDate, &c.Fingerprint, &c.Status); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		if step.Valid {
			c.ElementStep = step.Int64
		}
		if attachments.Valid && attachments.String != "" && attachments.String != "null" {
			if err := json.Unmarshal([]byte(attachments.String), &c.AttachmentURLs); err != nil {
				return nil, fmt.Errorf("decode attachment urls of %d: %w", c.ID, err)
			}
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return comments, nil
}

func (s *SQLiteStore) exists(ctx context.Context, query string, args []any) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("existence check: %w", err)
	}
	return true, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
