// Package extract projects raw archive envelopes into persistence tuples
package extract

import (
	"encoding/json"
	"strconv"

	"chronicle/internal/adapters/ingest/gharchive"
	perr "chronicle/internal/platform/errors"
	"chronicle/internal/services/importer/domain"
)

// pushPayload models the only payload field the importer interprets.
// Size is a pointer so a missing field is distinguishable from zero
type pushPayload struct {
	Size *int `json:"size"`
}

// emptyPayload keeps the stored blob valid JSON when the archive omits it
var emptyPayload = json.RawMessage("{}")

// FromEnvelope projects one classified envelope into its (actor, repo, event)
// triple. Every error it returns is a malformed-record error; the record is
// skipped by the caller and never yields a partial triple
func FromEnvelope(env gharchive.EventEnvelope, kind domain.EventKind) (domain.Triple, error) {
	if env.ID == "" {
		return domain.Triple{}, perr.MalformedRecordf("record missing id")
	}
	eventID, err := strconv.ParseInt(env.ID, 10, 64)
	if err != nil {
		return domain.Triple{}, perr.MalformedRecordf("record id %q not numeric", env.ID)
	}
	if env.Actor.ID == 0 {
		return domain.Triple{}, perr.MalformedRecordf("record %s missing actor.id", env.ID)
	}
	if env.Repo.ID == 0 {
		return domain.Triple{}, perr.MalformedRecordf("record %s missing repo.id", env.ID)
	}

	count := 1
	if kind == domain.KindCommit {
		// Archive format drift if a PushEvent stops carrying size; never default it
		var pp pushPayload
		if err := json.Unmarshal(env.Payload, &pp); err != nil || pp.Size == nil {
			return domain.Triple{}, perr.MalformedRecordf("push record %s missing payload size", env.ID)
		}
		if *pp.Size < 0 {
			return domain.Triple{}, perr.MalformedRecordf("push record %s has negative payload size %d", env.ID, *pp.Size)
		}
		count = *pp.Size
	}

	payload := env.Payload
	if len(payload) == 0 {
		payload = emptyPayload
	}

	return domain.Triple{
		Actor: domain.ActorTuple{
			ID:        env.Actor.ID,
			Login:     env.Actor.Login,
			URL:       env.Actor.URL,
			AvatarURL: env.Actor.AvatarURL,
		},
		Repo: domain.RepoTuple{
			ID:   env.Repo.ID,
			Name: env.Repo.Name,
			URL:  env.Repo.URL,
		},
		Event: domain.EventTuple{
			ID:        eventID,
			Kind:      kind,
			ActorID:   env.Actor.ID,
			RepoID:    env.Repo.ID,
			Payload:   payload,
			CreatedAt: env.CreatedAt,
			Comment:   "",
			Count:     count,
		},
	}, nil
}
