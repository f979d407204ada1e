package domain

import "context"

// Mirror key layout. Values are plain JSON records, no binary formats.
const (
	MirrorKeyPairs            = "pairs"
	MirrorKeyOpportunities    = "opportunities"
	MirrorKeyRecentExecutions = "executions:recent"
)

// RecentExecutionLimit caps how many raw entries the mirror retains for
// reload resilience.
const RecentExecutionLimit = 20

// StateMirror is the durable key-value fallback that lets state survive
// dashboard reloads. It is eventually-consistent, best-effort storage and is
// never a source of truth while live data is available.
type StateMirror interface {
	// Load unmarshals the stored value for key into out. It returns
	// ErrNotFound when no value is stored.
	Load(ctx context.Context, key string, out any) error
	// Save stores v under key, replacing any previous value.
	Save(ctx context.Context, key string, v any) error
}

// ExecutionHistory is the durable append-only store of raw execution entries
// backing the dashboard's execution history view. Appending the same entry
// twice is a no-op.
type ExecutionHistory interface {
	Append(ctx context.Context, entries []RawExecutionEntry) error
	ListRecent(ctx context.Context, limit int) ([]RawExecutionEntry, error)
}
