package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"commentsync/internal/domain"
)

func TestWriteTransientFieldNames(t *testing.T) {
	t.Parallel()

	writer := NewWriter(t.TempDir(), nil)
	writer.now = func() time.Time {
		return time.Date(2026, time.August, 28, 10, 30, 0, 0, time.UTC)
	}

	comments := []domain.Comment{{
		ID:              42,
		ActivityID:      1001,
		WorkOrderNumber: "OT-55",
		Title:           "pump leak",
		Fingerprint:     "abc",
	}}

	path, err := writer.WriteTransient(comments)
	if err != nil {
		t.Fatalf("write transient: %v", err)
	}
	if filepath.Base(path) != "comentarios_temp_2026-08-28_10-30-00.json" {
		t.Fatalf("unexpected transient name: %s", path)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}

	var decoded []map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(decoded) != 1 {
		t.Fatalf("expected 1 record, got %d", len(decoded))
	}

	for _, field := range []string{"ID", "ACTIVITY_ID", "SAP_WORK_NUMBER", "COMMENT_TITLE", "MD5"} {
		if _, ok := decoded[0][field]; !ok {
			t.Fatalf("missing field %s in %v", field, decoded[0])
		}
	}
	if _, ok := decoded[0]["Status"]; ok {
		t.Fatal("status must not leak into the export")
	}

	if !strings.Contains(string(raw), "\n    ") {
		t.Fatal("export should be indented")
	}
}

func TestWriteHistoricalAndWorkOrders(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writer := NewWriter(dir, nil)

	path, err := writer.WriteHistorical([]domain.Comment{{ID: 1}})
	if err != nil {
		t.Fatalf("write historical: %v", err)
	}
	if filepath.Base(path) != "comentarios_historico.json" {
		t.Fatalf("unexpected historical name: %s", path)
	}

	path, err = writer.WriteWorkOrders([]domain.WorkOrder{{ID: 1, ActivityID: 1001, WorkOrderNumber: "OT-55"}})
	if err != nil {
		t.Fatalf("write work orders: %v", err)
	}
	if filepath.Base(path) != "ot_lista.json" {
		t.Fatalf("unexpected work order name: %s", path)
	}
}

func TestRemoveMissingFileIsQuiet(t *testing.T) {
	t.Parallel()

	writer := NewWriter(t.TempDir(), nil)
	writer.Remove(filepath.Join(t.TempDir(), "does-not-exist.json"))
	writer.Remove("")
}
