// Package export writes JSON snapshots of the local record store: the full
// historical files and the short-lived transient files staged for delivery.
package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"commentsync/internal/domain"
)

const (
	historicalFileName = "comentarios_historico.json"
	workOrderFileName  = "ot_lista.json"
	transientPrefix    = "comentarios_temp_"
	timestampLayout    = "2006-01-02_15-04-05"
)

// ErrNoExport signals that no export file was produced; the caller skips
// delivery for the cycle instead of crashing.
var ErrNoExport = errors.New("no export produced")

// Writer serializes records into the export directory.
type Writer struct {
	dir    string
	logger *slog.Logger
	now    func() time.Time
}

// NewWriter wires the export directory.
func NewWriter(dir string, logger *slog.Logger) *Writer {
	if dir == "" {
		dir = "."
	}
	return &Writer{dir: dir, logger: logger, now: time.Now}
}

// WriteHistorical dumps every comment to the well-known historical file and
// returns its path.
func (w *Writer) WriteHistorical(comments []domain.Comment) (string, error) {
	return w.write(historicalFileName, comments)
}

// WriteWorkOrders dumps the work-order table alongside the comment export.
func (w *Writer) WriteWorkOrders(orders []domain.WorkOrder) (string, error) {
	return w.write(workOrderFileName, orders)
}

// WriteTransient stages the given comments in a timestamped file that the
// caller must remove once the delivery attempt concludes.
func (w *Writer) WriteTransient(comments []domain.Comment) (string, error) {
	name := fmt.Sprintf("%s%s.json", transientPrefix, w.now().Format(timestampLayout))
	return w.write(name, comments)
}

// Remove deletes a transient export; a missing file is not an error.
func (w *Writer) Remove(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) && w.logger != nil {
		w.logger.Warn("cannot remove transient export", "file", path, "error", err)
	}
}

func (w *Writer) write(name string, v any) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}

	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		if w.logger != nil {
			w.logger.Error("serialize export", "file", name, "error", err)
		}
		return "", fmt.Errorf("%w: %v", ErrNoExport, err)
	}

	path := filepath.Join(w.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		if w.logger != nil {
			w.logger.Error("write export", "file", path, "error", err)
		}
		return "", fmt.Errorf("%w: %v", ErrNoExport, err)
	}
	return path, nil
}
