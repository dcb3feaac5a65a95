package storage

import (
	"context"

	"github.com/poiesic/widensync/core"
)

// CursorStore persists the pull-mode pagination state as a single named
// record. Implementations must tolerate concurrent writers only in the
// last-writer-wins sense; no locking or version token is assumed.
type CursorStore interface {
	// Load retrieves the persisted cursor state. When no state exists (or
	// the stored record cannot be decoded) it returns the default state,
	// not an error.
	Load(ctx context.Context) (*core.CursorState, error)

	// Save persists the cursor state, replacing any previous record.
	Save(ctx context.Context, state *core.CursorState) error

	// Close closes the store and releases resources.
	Close() error
}

// AuditSink records per-asset audit rows. Callers treat it as
// fire-and-forget: a sink failure is logged and swallowed, never allowed
// to interrupt the pipeline.
type AuditSink interface {
	// Record appends one audit row.
	Record(ctx context.Context, record *core.AuditRecord) error

	// Recent returns up to limit audit rows, most recent first.
	Recent(ctx context.Context, limit int) ([]*core.AuditRecord, error)

	// Close closes the sink and releases resources.
	Close() error
}
