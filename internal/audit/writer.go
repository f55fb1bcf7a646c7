// Package audit implements an async, buffered writer for the ops audit
// log (spec.md §4.13), grounded on the teacher pack's audit writer
// (wisbric-nightowl/internal/audit): entries are enqueued onto a channel
// and flushed by a background goroutine on a size or time trigger,
// so a slow or failing audit write never blocks the ops action it records.
package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/converge-ai/convergeai/store"
)

const (
	bufferSize    = 256
	flushInterval = 2 * time.Second
	flushBatch    = 32
)

// Sink is the persistence surface the Writer flushes batches to.
type Sink interface {
	WriteAuditBatch(ctx context.Context, entries []store.AuditLogEntry) error
}

// Writer is an async, buffered audit log writer.
type Writer struct {
	sink    Sink
	logger  *slog.Logger
	entries chan store.AuditLogEntry
	wg      sync.WaitGroup
}

// NewWriter creates a Writer. Call Start to begin processing entries.
func NewWriter(sink Sink, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{sink: sink, logger: logger, entries: make(chan store.AuditLogEntry, bufferSize)}
}

// Start launches the background flush loop in its own goroutine and
// returns immediately. The loop flushes pending entries and exits when ctx
// is cancelled or Close is called; Close waits for it to finish.
func (w *Writer) Start(ctx context.Context) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.run(ctx)
	}()
}

// Close stops accepting entries and waits for the final flush.
func (w *Writer) Close() {
	close(w.entries)
	w.wg.Wait()
}

// Log enqueues an entry for async writing. Never blocks the caller: if the
// buffer is full the entry is dropped and a warning logged.
func (w *Writer) Log(entry store.AuditLogEntry) {
	select {
	case w.entries <- entry:
	default:
		w.logger.Warn("audit log buffer full, dropping entry", "action", entry.Action, "resource_kind", entry.ResourceKind)
	}
}

func (w *Writer) run(ctx context.Context) {
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	batch := make([]store.AuditLogEntry, 0, flushBatch)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		w.flush(batch)
		batch = batch[:0]
	}

	for {
		select {
		case entry, ok := <-w.entries:
			if !ok {
				flush()
				return
			}
			batch = append(batch, entry)
			if len(batch) >= flushBatch {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-ctx.Done():
			for {
				select {
				case entry, ok := <-w.entries:
					if !ok {
						flush()
						return
					}
					batch = append(batch, entry)
				default:
					flush()
					return
				}
			}
		}
	}
}

func (w *Writer) flush(entries []store.AuditLogEntry) {
	batch := make([]store.AuditLogEntry, len(entries))
	copy(batch, entries)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := w.sink.WriteAuditBatch(ctx, batch); err != nil {
		w.logger.Error("flushing audit log batch", "error", err, "count", len(batch))
	}
}
