package extract

import (
	"encoding/json"
	"testing"
	"time"

	"chronicle/internal/adapters/ingest/gharchive"
	perr "chronicle/internal/platform/errors"
	"chronicle/internal/services/importer/domain"
)

func envelope() gharchive.EventEnvelope {
	return gharchive.EventEnvelope{
		ID:   "2489651045",
		Type: "PullRequestEvent",
		Actor: gharchive.Actor{
			ID:        9152315,
			Login:     "davidjhulse",
			URL:       "https://api.github.com/users/davidjhulse",
			AvatarURL: "https://avatars.githubusercontent.com/u/9152315?",
		},
		Repo: gharchive.Repo{
			ID:   28635890,
			Name: "davidjhulse/davesbingrewardsbot",
			URL:  "https://api.github.com/repos/davidjhulse/davesbingrewardsbot",
		},
		Payload:   json.RawMessage(`{"action":"opened"}`),
		Public:    true,
		CreatedAt: time.Date(2015, 1, 1, 15, 0, 1, 0, time.UTC),
	}
}

func TestFromEnvelope_CompleteTriple(t *testing.T) {
	env := envelope()
	tr, err := FromEnvelope(env, domain.KindPullRequest)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if tr.Actor.ID != 9152315 || tr.Actor.Login != "davidjhulse" {
		t.Errorf("actor projection mismatch: %+v", tr.Actor)
	}
	if tr.Actor.URL != env.Actor.URL || tr.Actor.AvatarURL != env.Actor.AvatarURL {
		t.Errorf("actor url projection mismatch: %+v", tr.Actor)
	}
	if tr.Repo.ID != 28635890 || tr.Repo.Name != env.Repo.Name || tr.Repo.URL != env.Repo.URL {
		t.Errorf("repo projection mismatch: %+v", tr.Repo)
	}
	if tr.Event.ID != 2489651045 {
		t.Errorf("event id = %d", tr.Event.ID)
	}
	if tr.Event.Kind != domain.KindPullRequest {
		t.Errorf("event kind = %v", tr.Event.Kind)
	}
	if tr.Event.ActorID != tr.Actor.ID || tr.Event.RepoID != tr.Repo.ID {
		t.Errorf("event fk mismatch: %+v", tr.Event)
	}
	if string(tr.Event.Payload) != `{"action":"opened"}` {
		t.Errorf("payload not carried opaquely: %s", tr.Event.Payload)
	}
	if !tr.Event.CreatedAt.Equal(env.CreatedAt) {
		t.Errorf("created_at = %v", tr.Event.CreatedAt)
	}
	if tr.Event.Count != 1 {
		t.Errorf("non-commit count = %d, want 1", tr.Event.Count)
	}
}

func TestFromEnvelope_CommitCountFromPushSize(t *testing.T) {
	env := envelope()
	env.Type = "PushEvent"
	env.Payload = json.RawMessage(`{"push_id":536740396,"size":4,"distinct_size":4}`)

	tr, err := FromEnvelope(env, domain.KindCommit)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tr.Event.Kind != domain.KindCommit {
		t.Errorf("kind = %v", tr.Event.Kind)
	}
	if tr.Event.Count != 4 {
		t.Errorf("count = %d, want push size 4", tr.Event.Count)
	}
}

func TestFromEnvelope_CommitZeroSizeIsValid(t *testing.T) {
	env := envelope()
	env.Payload = json.RawMessage(`{"size":0}`)
	tr, err := FromEnvelope(env, domain.KindCommit)
	if err != nil {
		t.Fatalf("size 0 is present, not missing: %v", err)
	}
	if tr.Event.Count != 0 {
		t.Errorf("count = %d, want 0", tr.Event.Count)
	}
}

func TestFromEnvelope_EmptyPayloadStoredAsEmptyObject(t *testing.T) {
	env := envelope()
	env.Payload = nil
	tr, err := FromEnvelope(env, domain.KindComment)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(tr.Event.Payload) != "{}" {
		t.Errorf("payload = %q, want {}", tr.Event.Payload)
	}
}

func TestFromEnvelope_Malformed(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*gharchive.EventEnvelope)
		kind   domain.EventKind
	}{
		{"missing id", func(e *gharchive.EventEnvelope) { e.ID = "" }, domain.KindComment},
		{"non-numeric id", func(e *gharchive.EventEnvelope) { e.ID = "abc" }, domain.KindComment},
		{"missing actor id", func(e *gharchive.EventEnvelope) { e.Actor.ID = 0 }, domain.KindComment},
		{"missing repo id", func(e *gharchive.EventEnvelope) { e.Repo.ID = 0 }, domain.KindComment},
		{"push without size", func(e *gharchive.EventEnvelope) {
			e.Payload = json.RawMessage(`{"push_id":1}`)
		}, domain.KindCommit},
		{"push with unparsable payload", func(e *gharchive.EventEnvelope) {
			e.Payload = json.RawMessage(`"nope"`)
		}, domain.KindCommit},
		{"push with negative size", func(e *gharchive.EventEnvelope) {
			e.Payload = json.RawMessage(`{"size":-3}`)
		}, domain.KindCommit},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := envelope()
			tc.mutate(&env)
			_, err := FromEnvelope(env, tc.kind)
			if err == nil {
				t.Fatal("want malformed-record error, got nil")
			}
			if !perr.IsMalformedRecord(err) {
				t.Fatalf("want malformed-record code, got %v", err)
			}
		})
	}
}
