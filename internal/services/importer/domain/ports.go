package domain

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrHourNotFound marks an archive hour that does not exist upstream.
// Fetchers return it (wrapped) for a 404; retrying cannot help
var ErrHourNotFound = errors.New("archive hour not found")

// RunnerPort is the public port exposed by the importer module
type RunnerPort interface {
	// RunWindow imports one archive window to completion.
	// Stats are valid even when err != nil so callers can report partial progress
	RunWindow(ctx context.Context, win Window) (RunStats, error)
}

// StorageRepo is the storage repository interface.
// Insert* execute a single bulk upsert-ignore statement per call; the empty
// slice is a no-op. Returned counts split inserted rows from conflict-ignored ones
type StorageRepo interface {
	// BeginRun records the start of an import run
	BeginRun(ctx context.Context, run RunRecord) error

	// FinishRun records the terminal state and counters of a run
	FinishRun(ctx context.Context, runID, status string, stats RunStats, errText string) error

	// StartHour marks the beginning of an archive hour (idempotent)
	StartHour(ctx context.Context, hour time.Time) error

	// FinishHour marks the end of an archive hour (idempotent)
	FinishHour(ctx context.Context, hour time.Time, fin HourFinish) error

	InsertActors(ctx context.Context, as []ActorTuple) (WriteStats, error)
	InsertRepos(ctx context.Context, rs []RepoTuple) (WriteStats, error)
	InsertEvents(ctx context.Context, es []EventTuple) (WriteStats, error)
}

// Fetcher is the archive fetcher interface
type Fetcher interface {
	Fetch(ctx context.Context, hr HourRef) (io.ReadCloser, error)
}

// ReaderPort is the archive record reader interface
type ReaderPort interface {
	Next() (EventEnvelope, error)
	Close() error
	Stats() (lines, badLines int, bytes int64) // return zeros if not supported
}

// ReaderFactory is the archive record reader factory interface
type ReaderFactory interface {
	New(io.ReadCloser) (ReaderPort, error)
}

// Projector turns a classified raw record into its persistence triple.
// Errors are malformed-record errors; callers skip the record and continue
type Projector interface {
	FromEnvelope(env EventEnvelope, kind EventKind) (Triple, error)
}
