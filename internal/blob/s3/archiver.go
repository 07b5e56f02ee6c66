package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Theoretician9/telegram-leads-bot/internal/domain"
)

// archiveLockKey keeps the sweep single-flight when several instances share
// the same database.
const archiveLockKey = "audit-archive"

// AuditArchiveSource is the slice of the audit store the archiver needs:
// time-ranged reads plus deletion of rows that have been uploaded.
type AuditArchiveSource interface {
	domain.AuditReader
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// Archiver moves aged audit rows out of the primary store and into object
// storage as newline-delimited JSON. Rows are deleted only after the upload
// succeeded, so a failed sweep leaves everything in place for the next one.
type Archiver struct {
	writer    *Writer
	source    AuditArchiveSource
	locks     domain.LockManager // optional
	retention time.Duration
	interval  time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

// NewArchiver creates an Archiver. locks may be nil for single-instance
// deployments.
func NewArchiver(writer *Writer, source AuditArchiveSource, locks domain.LockManager, retention, interval time.Duration, logger *slog.Logger) *Archiver {
	return &Archiver{
		writer:    writer,
		source:    source,
		locks:     locks,
		retention: retention,
		interval:  interval,
		logger:    logger.With(slog.String("component", "archiver")),
		now:       time.Now,
	}
}

// Run sweeps on the configured interval until the context is cancelled.
func (a *Archiver) Run(ctx context.Context) error {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := a.Sweep(ctx); err != nil && !errors.Is(err, context.Canceled) {
				a.logger.ErrorContext(ctx, "archive sweep failed",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// Sweep archives and deletes all audit rows older than the retention cutoff.
// Returns nil when there was nothing to archive or another instance holds
// the sweep lock.
func (a *Archiver) Sweep(ctx context.Context) error {
	if a.locks != nil {
		unlock, err := a.locks.Acquire(ctx, archiveLockKey, a.interval)
		if errors.Is(err, domain.ErrLockHeld) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("s3blob: acquire archive lock: %w", err)
		}
		defer unlock()
	}

	cutoff := a.now().Add(-a.retention)

	entries, err := a.source.ListBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("s3blob: archive query: %w", err)
	}
	if len(entries) == 0 {
		return nil
	}

	buf, err := marshalJSONL(entries)
	if err != nil {
		return fmt.Errorf("s3blob: archive marshal: %w", err)
	}

	path := archivePath(cutoff)
	if err := a.upload(ctx, path, buf); err != nil {
		return fmt.Errorf("s3blob: archive upload: %w", err)
	}

	deleted, err := a.source.DeleteBefore(ctx, cutoff)
	if err != nil {
		// The upload stands; rows will be re-archived next sweep.
		return fmt.Errorf("s3blob: archive delete: %w", err)
	}

	a.logger.InfoContext(ctx, "archived audit rows",
		slog.String("path", path),
		slog.Int("archived", len(entries)),
		slog.Int64("deleted", deleted),
	)
	return nil
}

// upload picks single-shot or multipart based on payload size.
func (a *Archiver) upload(ctx context.Context, path string, buf []byte) error {
	if int64(len(buf)) >= minPartSize {
		return a.writer.PutMultipart(ctx, path, bytes.NewReader(buf), minPartSize)
	}
	return a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson")
}

// archivePath builds the object key for one sweep, partitioned by month
// with a per-sweep timestamp so successive sweeps never collide.
//
//	archive/audit/2026-08/20260830T120000Z.jsonl
func archivePath(cutoff time.Time) string {
	return fmt.Sprintf("archive/audit/%s/%s.jsonl",
		cutoff.UTC().Format("2006-01"),
		cutoff.UTC().Format("20060102T150405Z"),
	)
}

// marshalJSONL serialises records as newline-delimited JSON, one compact
// line per record.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
