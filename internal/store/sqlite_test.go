package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"commentsync/internal/domain"
	"commentsync/internal/fingerprint"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	if err := s.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	return s
}

func TestEnsureSchemaIdempotent(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	if err := s.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("second EnsureSchema: %v", err)
	}
}

func TestInsertWorkOrderDeduplicates(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()

	inserted, err := s.InsertWorkOrder(ctx, 1001, "OT-55")
	if err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if !inserted {
		t.Fatal("first insert should report true")
	}

	inserted, err = s.InsertWorkOrder(ctx, 1001, "OT-55")
	if err != nil {
		t.Fatalf("second insert: %v", err)
	}
	if inserted {
		t.Fatal("duplicate insert should report false without error")
	}

	exists, err := s.WorkOrderExists(ctx, fingerprint.Digest(1001, "OT-55"))
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if !exists {
		t.Fatal("work order should exist after insert")
	}
}

func TestInsertCommentDuplicateKey(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()

	comment := domain.Comment{ID: 42, ActivityID: 1001, WorkOrderNumber: "OT-55",
		Fingerprint: fingerprint.Digest(1001, "OT-55")}

	if err := s.InsertComment(ctx, comment); err != nil {
		t.Fatalf("insert: %v", err)
	}

	err := s.InsertComment(ctx, comment)
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	exists, err := s.CommentExists(ctx, 42)
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if !exists {
		t.Fatal("comment 42 should exist")
	}
}

func TestSelectPendingStableOrder(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()

	for _, id := range []int64{7, 3, 9} {
		comment := domain.Comment{ID: id, ActivityID: 1, WorkOrderNumber: "OT-1",
			Fingerprint: fingerprint.Digest(1, "OT-1"),
			AttachmentURLs: []string{"https://img.example/a"}}
		if err := s.InsertComment(ctx, comment); err != nil {
			t.Fatalf("insert %d: %v", id, err)
		}
	}

	pending, err := s.SelectPending(ctx)
	if err != nil {
		t.Fatalf("select pending: %v", err)
	}
	if len(pending) != 3 {
		t.Fatalf("expected 3 pending, got %d", len(pending))
	}
	for i, want := range []int64{3, 7, 9} {
		if pending[i].ID != want {
			t.Fatalf("position %d: expected id %d, got %d", i, want, pending[i].ID)
		}
	}
	if len(pending[0].AttachmentURLs) != 1 {
		t.Fatalf("attachment urls lost on round trip: %v", pending[0].AttachmentURLs)
	}
}

func TestUpdateStatusMonotonic(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()

	comment := domain.Comment{ID: 5, ActivityID: 1, WorkOrderNumber: "OT-1",
		Fingerprint: fingerprint.Digest(1, "OT-1")}
	if err := s.InsertComment(ctx, comment); err != nil {
		t.Fatalf("insert: %v", err)
	}

	affected, err := s.UpdateStatus(ctx, 5, domain.StatusSuccess)
	if err != nil {
		t.Fatalf("update to success: %v", err)
	}
	if affected != 1 {
		t.Fatalf("expected 1 row affected, got %d", affected)
	}

	affected, err = s.UpdateStatus(ctx, 5, domain.StatusPending)
	if err != nil {
		t.Fatalf("revert attempt: %v", err)
	}
	if affected != 0 {
		t.Fatal("success status must never revert to pending")
	}

	pending, err := s.SelectPending(ctx)
	if err != nil {
		t.Fatalf("select pending: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected no pending comments, got %d", len(pending))
	}
}

func TestUpdateStatusUnknownID(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)

	affected, err := s.UpdateStatus(context.Background(), 999, domain.StatusSuccess)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if affected != 0 {
		t.Fatalf("expected 0 rows for unknown id, got %d", affected)
	}
}
