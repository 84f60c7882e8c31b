package service

import "chronicle/internal/services/importer/domain"

// Batch buffers projected tuples per entity kind until the orchestrator
// flushes them. Each buffer is keyed by identity so a repeated id inside one
// batch is written once, last-write-wins. That is an efficiency measure only;
// the store ignores conflicts anyway.
//
// A Batch is owned by exactly one run and is not safe for concurrent use
type Batch struct {
	actors map[int64]domain.ActorTuple
	repos  map[int64]domain.RepoTuple
	events map[int64]domain.EventTuple

	// first-seen id order per buffer, so drains are deterministic
	actorOrder []int64
	repoOrder  []int64
	eventOrder []int64
}

// NewBatch returns an empty accumulator
func NewBatch() *Batch {
	return &Batch{
		actors: make(map[int64]domain.ActorTuple),
		repos:  make(map[int64]domain.RepoTuple),
		events: make(map[int64]domain.EventTuple),
	}
}

// Append buffers all three tuples of one projected record
func (b *Batch) Append(t domain.Triple) {
	if _, seen := b.actors[t.Actor.ID]; !seen {
		b.actorOrder = append(b.actorOrder, t.Actor.ID)
	}
	b.actors[t.Actor.ID] = t.Actor

	if _, seen := b.repos[t.Repo.ID]; !seen {
		b.repoOrder = append(b.repoOrder, t.Repo.ID)
	}
	b.repos[t.Repo.ID] = t.Repo

	if _, seen := b.events[t.Event.ID]; !seen {
		b.eventOrder = append(b.eventOrder, t.Event.ID)
	}
	b.events[t.Event.ID] = t.Event
}

// Len reports the number of accumulated events
func (b *Batch) Len() int { return len(b.events) }

// ShouldFlush reports whether the accumulated event count reached size
func (b *Batch) ShouldFlush(size int) bool { return len(b.events) >= size }

// DrainAll returns the three buffers in first-seen order and clears them.
// No tuple is ever returned twice
func (b *Batch) DrainAll() ([]domain.ActorTuple, []domain.RepoTuple, []domain.EventTuple) {
	actors := make([]domain.ActorTuple, 0, len(b.actorOrder))
	for _, id := range b.actorOrder {
		actors = append(actors, b.actors[id])
	}
	repos := make([]domain.RepoTuple, 0, len(b.repoOrder))
	for _, id := range b.repoOrder {
		repos = append(repos, b.repos[id])
	}
	events := make([]domain.EventTuple, 0, len(b.eventOrder))
	for _, id := range b.eventOrder {
		events = append(events, b.events[id])
	}

	b.actors = make(map[int64]domain.ActorTuple)
	b.repos = make(map[int64]domain.RepoTuple)
	b.events = make(map[int64]domain.EventTuple)
	b.actorOrder = b.actorOrder[:0]
	b.repoOrder = b.repoOrder[:0]
	b.eventOrder = b.eventOrder[:0]

	return actors, repos, events
}
