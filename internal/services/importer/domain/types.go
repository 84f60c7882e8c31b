// Package domain holds the core types and data structures for the archive importer
package domain

import (
	"encoding/json"
	"time"

	"chronicle/internal/adapters/ingest/gharchive"
)

// EventEnvelope re-exports the raw archive record shape used by the reader and projector
type EventEnvelope = gharchive.EventEnvelope

// EventKind is the closed set of event types this importer persists.
// Anything the archive emits outside this set is dropped at classification
type EventKind uint8

const (
	// KindPullRequest covers PullRequestEvent
	KindPullRequest EventKind = iota + 1

	// KindComment covers IssueCommentEvent and CommitCommentEvent
	KindComment

	// KindCommit covers PushEvent; its tuple count carries the push size
	KindCommit
)

// String returns the stable storage label for the kind
func (k EventKind) String() string {
	switch k {
	case KindPullRequest:
		return "pull_request"
	case KindComment:
		return "comment"
	case KindCommit:
		return "commit"
	}
	return "unknown"
}

// KindForType maps an external archive type tag to an EventKind.
// ok is false for every tag outside the recognized set, including empty;
// that is a normal outcome, not an error
func KindForType(tag string) (EventKind, bool) {
	switch tag {
	case "PullRequestEvent":
		return KindPullRequest, true
	case "IssueCommentEvent", "CommitCommentEvent":
		return KindComment, true
	case "PushEvent":
		return KindCommit, true
	default:
		return 0, false
	}
}

// HourRef is a reference to a specific archive hour
type HourRef struct{ Year, Month, Day, Hour int }

// UTC returns the UTC time corresponding to the HourRef
func (h HourRef) UTC() time.Time {
	return time.Date(h.Year, time.Month(h.Month), h.Day, h.Hour, 0, 0, 0, time.UTC)
}

// AllHours selects every hour of the day in a Window
const AllHours = -1

// Window is the archive addressing unit for one run: a day plus an hour selector
type Window struct {
	Day  time.Time
	Hour int // 0..23, or AllHours
}

// HourRefs expands the window into hour references in archive order
func (w Window) HourRefs() []HourRef {
	d := w.Day.UTC()
	if w.Hour != AllHours {
		return []HourRef{{Year: d.Year(), Month: int(d.Month()), Day: d.Day(), Hour: w.Hour}}
	}
	out := make([]HourRef, 0, 24)
	for h := 0; h < 24; h++ {
		out = append(out, HourRef{Year: d.Year(), Month: int(d.Month()), Day: d.Day(), Hour: h})
	}
	return out
}

// ActorTuple is the persistence-ready projection of an archive actor.
// Identity is ID; immutable once projected
type ActorTuple struct {
	ID        int64
	Login     string
	URL       string
	AvatarURL string
}

// RepoTuple is the persistence-ready projection of an archive repository
type RepoTuple struct {
	ID   int64
	Name string
	URL  string
}

// EventTuple is the persistence-ready projection of one archive event.
// Payload stays an opaque serialized blob; Count is the push size for
// commits and 1 for everything else. Comment is carried empty for now
type EventTuple struct {
	ID        int64
	Kind      EventKind
	ActorID   int64
	RepoID    int64
	Payload   json.RawMessage
	CreatedAt time.Time
	Comment   string
	Count     int
}

// Triple bundles the three tuples one record projects into.
// A record either yields a complete triple or nothing at all
type Triple struct {
	Actor ActorTuple
	Repo  RepoTuple
	Event EventTuple
}

// WriteStats counts the outcome of upsert-ignore writes for one entity kind
type WriteStats struct {
	Inserted int
	Ignored  int // rows dropped by the on-conflict clause
}

// Add folds another WriteStats into the receiver
func (w *WriteStats) Add(o WriteStats) {
	w.Inserted += o.Inserted
	w.Ignored += o.Ignored
}

// RunStats are the progress counters one import run reports
type RunStats struct {
	Lines      int // raw lines seen across all hours
	BadLines   int // lines that failed JSON decoding
	Recognized int // records whose type tag classified to a kind
	Malformed  int // classified records skipped for missing required fields
	Flushes    int

	Actors WriteStats
	Repos  WriteStats
	Events WriteStats
}

// RunRecord is the bookkeeping row written at the start of a run
type RunRecord struct {
	ID        string
	Day       time.Time
	HourSpec  string // "all" or the single hour
	BatchSize int
}

// HourFinish carries the per-hour bookkeeping written when an hour completes
type HourFinish struct {
	Status     string
	Lines      int
	BadLines   int
	Recognized int
	Malformed  int
	FetchMS    int
	ReadMS     int
	ElapsedMS  int
	ErrText    string
}
