package domain

import (
	"testing"
	"time"
)

func TestKindForType(t *testing.T) {
	cases := []struct {
		tag  string
		want EventKind
		ok   bool
	}{
		{"PullRequestEvent", KindPullRequest, true},
		{"IssueCommentEvent", KindComment, true},
		{"CommitCommentEvent", KindComment, true},
		{"PushEvent", KindCommit, true},
		{"WatchEvent", 0, false},
		{"ForkEvent", 0, false},
		{"pullrequestevent", 0, false}, // tags are case sensitive
		{"", 0, false},
	}
	for _, tc := range cases {
		got, ok := KindForType(tc.tag)
		if ok != tc.ok || got != tc.want {
			t.Errorf("KindForType(%q) = (%v, %v), want (%v, %v)", tc.tag, got, ok, tc.want, tc.ok)
		}
	}
}

func TestKindString(t *testing.T) {
	if KindPullRequest.String() != "pull_request" {
		t.Errorf("pull_request label mismatch: %q", KindPullRequest.String())
	}
	if KindComment.String() != "comment" {
		t.Errorf("comment label mismatch: %q", KindComment.String())
	}
	if KindCommit.String() != "commit" {
		t.Errorf("commit label mismatch: %q", KindCommit.String())
	}
	if EventKind(0).String() != "unknown" {
		t.Errorf("zero kind should stringify to unknown")
	}
}

func TestWindowHourRefs_SingleHour(t *testing.T) {
	day := time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC)
	hrs := Window{Day: day, Hour: 15}.HourRefs()
	if len(hrs) != 1 {
		t.Fatalf("want 1 hour, got %d", len(hrs))
	}
	want := time.Date(2015, 1, 1, 15, 0, 0, 0, time.UTC)
	if !hrs[0].UTC().Equal(want) {
		t.Fatalf("hour = %v, want %v", hrs[0].UTC(), want)
	}
}

func TestWindowHourRefs_AllHours(t *testing.T) {
	day := time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC)
	hrs := Window{Day: day, Hour: AllHours}.HourRefs()
	if len(hrs) != 24 {
		t.Fatalf("want 24 hours, got %d", len(hrs))
	}
	for i, hr := range hrs {
		if hr.Hour != i {
			t.Fatalf("hours out of archive order at %d: %+v", i, hr)
		}
	}
}

func TestWriteStatsAdd(t *testing.T) {
	var w WriteStats
	w.Add(WriteStats{Inserted: 3, Ignored: 1})
	w.Add(WriteStats{Inserted: 2, Ignored: 4})
	if w.Inserted != 5 || w.Ignored != 5 {
		t.Fatalf("unexpected totals: %+v", w)
	}
}
