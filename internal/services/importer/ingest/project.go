package ingest

import (
	"chronicle/internal/adapters/ingest/extract"
	"chronicle/internal/services/importer/domain"
)

// projector adapts extract.FromEnvelope to the domain.Projector port
type projector struct{}

// NewProjector constructs a new Projector
func NewProjector() domain.Projector { return projector{} }

func (projector) FromEnvelope(env domain.EventEnvelope, kind domain.EventKind) (domain.Triple, error) {
	return extract.FromEnvelope(env, kind)
}
