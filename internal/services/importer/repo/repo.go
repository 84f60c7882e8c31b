// Package repo provides postgres access for importer writes
package repo

import (
	"context"
	"time"

	"chronicle/internal/modkit/repokit"
	perr "chronicle/internal/platform/errors"
	"chronicle/internal/services/importer/domain"
)

type (
	// PG is a Postgres binder for domain.StorageRepo
	PG      struct{}
	queries struct{ q repokit.Queryer }
)

// Compile-time assertion: queries implements domain.StorageRepo
var _ domain.StorageRepo = (*queries)(nil)

// NewPG returns a Postgres binder for domain.StorageRepo
func NewPG() repokit.Binder[domain.StorageRepo] { return PG{} }

// Bind implements repokit.Binder
func (PG) Bind(q repokit.Queryer) domain.StorageRepo { return &queries{q: q} }

// BeginRun records the start of an import run
func (r *queries) BeginRun(ctx context.Context, run domain.RunRecord) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO import_runs (run_id, day_utc, hour_spec, batch_size, started_at, status)
		VALUES ($1, $2, $3, $4, now(), 'running')
	`, run.ID, run.Day.UTC(), run.HourSpec, run.BatchSize)
	return err
}

// FinishRun records the terminal state and counters of a run
func (r *queries) FinishRun(
	ctx context.Context,
	runID, status string,
	stats domain.RunStats,
	errText string,
) error {
	_, err := r.q.Exec(ctx, `
		UPDATE import_runs SET
			finished_at = now(),
			status = $2,
			lines = $3,
			bad_lines = $4,
			recognized = $5,
			malformed = $6,
			flushes = $7,
			actors_inserted = $8,
			repos_inserted = $9,
			events_inserted = $10,
			events_ignored = $11,
			error = NULLIF($12,'')
		WHERE run_id = $1
	`,
		runID, status, stats.Lines, stats.BadLines, stats.Recognized, stats.Malformed,
		stats.Flushes, stats.Actors.Inserted, stats.Repos.Inserted,
		stats.Events.Inserted, stats.Events.Ignored, errText,
	)
	return err
}

// StartHour marks the start of an import hour (idempotent)
func (r *queries) StartHour(ctx context.Context, hour time.Time) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO import_hours (hour_utc, started_at, status)
		VALUES ($1, now(), 'running')
		ON CONFLICT (hour_utc) DO UPDATE
		SET started_at = now(), status = 'running', error = null, finished_at = null
	`, hour.UTC())
	return err
}

// FinishHour marks the end of an import hour (idempotent)
func (r *queries) FinishHour(ctx context.Context, hour time.Time, fin domain.HourFinish) error {
	_, err := r.q.Exec(ctx, `
		UPDATE import_hours SET
			finished_at = now(),
			status = $2,
			lines = $3,
			bad_lines = $4,
			recognized = $5,
			malformed = $6,
			fetch_ms = $7,
			read_ms = $8,
			elapsed_ms = $9,
			error = NULLIF($10,'')
		WHERE hour_utc = $1
	`,
		hour.UTC(), fin.Status, fin.Lines, fin.BadLines, fin.Recognized, fin.Malformed,
		fin.FetchMS, fin.ReadMS, fin.ElapsedMS, fin.ErrText,
	)
	return err
}

// InsertActors bulk-inserts actor tuples, ignoring already-known ids
func (r *queries) InsertActors(ctx context.Context, as []domain.ActorTuple) (domain.WriteStats, error) {
	var w domain.WriteStats
	if len(as) == 0 {
		return w, nil
	}

	ids := make([]int64, len(as))
	logins := make([]string, len(as))
	urls := make([]string, len(as))
	avatars := make([]string, len(as))
	for i, a := range as {
		ids[i] = a.ID
		logins[i] = a.Login
		urls[i] = a.URL
		avatars[i] = a.AvatarURL
	}

	tag, err := r.q.Exec(ctx, `
		INSERT INTO actor (id, login, url, avatar_url)
		SELECT t.id, t.login, t.url, t.avatar_url
		FROM UNNEST($1::bigint[], $2::text[], $3::text[], $4::text[])
			AS t(id, login, url, avatar_url)
		ON CONFLICT (id) DO NOTHING
	`, ids, logins, urls, avatars)
	if err != nil {
		return w, perr.FromPostgresf(err, "insert actors")
	}
	w.Inserted = int(tag.RowsAffected())
	w.Ignored = len(as) - w.Inserted
	return w, nil
}

// InsertRepos bulk-inserts repo tuples, ignoring already-known ids
func (r *queries) InsertRepos(ctx context.Context, rs []domain.RepoTuple) (domain.WriteStats, error) {
	var w domain.WriteStats
	if len(rs) == 0 {
		return w, nil
	}

	ids := make([]int64, len(rs))
	names := make([]string, len(rs))
	urls := make([]string, len(rs))
	for i, rt := range rs {
		ids[i] = rt.ID
		names[i] = rt.Name
		urls[i] = rt.URL
	}

	tag, err := r.q.Exec(ctx, `
		INSERT INTO repo (id, name, url)
		SELECT t.id, t.name, t.url
		FROM UNNEST($1::bigint[], $2::text[], $3::text[])
			AS t(id, name, url)
		ON CONFLICT (id) DO NOTHING
	`, ids, names, urls)
	if err != nil {
		return w, perr.FromPostgresf(err, "insert repos")
	}
	w.Inserted = int(tag.RowsAffected())
	w.Ignored = len(rs) - w.Inserted
	return w, nil
}

// InsertEvents bulk-inserts event tuples, ignoring already-known ids.
// Payloads travel as text and are cast to jsonb in the statement
func (r *queries) InsertEvents(ctx context.Context, es []domain.EventTuple) (domain.WriteStats, error) {
	var w domain.WriteStats
	if len(es) == 0 {
		return w, nil
	}

	ids := make([]int64, len(es))
	types := make([]string, len(es))
	actorIDs := make([]int64, len(es))
	repoIDs := make([]int64, len(es))
	payloads := make([]string, len(es))
	createds := make([]time.Time, len(es))
	comments := make([]string, len(es))
	counts := make([]int, len(es))
	for i, e := range es {
		ids[i] = e.ID
		types[i] = e.Kind.String()
		actorIDs[i] = e.ActorID
		repoIDs[i] = e.RepoID
		if len(e.Payload) > 0 {
			payloads[i] = string(e.Payload)
		} else {
			payloads[i] = "{}"
		}
		createds[i] = e.CreatedAt.UTC()
		comments[i] = e.Comment
		counts[i] = e.Count
	}

	tag, err := r.q.Exec(ctx, `
		INSERT INTO event (id, type, actor_id, repo_id, payload, created_at, comment, count)
		SELECT t.id, t.type, t.actor_id, t.repo_id, t.payload::jsonb, t.created_at, t.comment, t.count
		FROM UNNEST(
			$1::bigint[], $2::text[], $3::bigint[], $4::bigint[],
			$5::text[], $6::timestamptz[], $7::text[], $8::int[]
		) AS t(id, type, actor_id, repo_id, payload, created_at, comment, count)
		ON CONFLICT (id) DO NOTHING
	`, ids, types, actorIDs, repoIDs, payloads, createds, comments, counts)
	if err != nil {
		return w, perr.FromPostgresf(err, "insert events")
	}
	w.Inserted = int(tag.RowsAffected())
	w.Ignored = len(es) - w.Inserted
	return w, nil
}
