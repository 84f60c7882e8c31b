// Package module provides the importer module implementation
package module

import (
	"chronicle/internal/modkit"
	"chronicle/internal/modkit/repokit"

	"chronicle/internal/services/importer/domain"
	"chronicle/internal/services/importer/ingest"
	"chronicle/internal/services/importer/repo"
	"chronicle/internal/services/importer/service"
)

// Ports defines the importer module ports
type Ports struct {
	Runner domain.RunnerPort
}

// Module implements the importer module
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// New constructs the importer module.
// It wires up all the adapters and the service using config from deps.Cfg
func New(deps modkit.Deps) (*Module, error) {
	opts, err := FromConfig(deps.Cfg)
	if err != nil {
		return nil, err
	}

	// DB binder (no deps passed into repo)
	storeBinder := repo.NewPG()

	// Non-DB adapters
	fetch := ingest.NewFetcher(deps)    // uses CORE_INGEST_* from deps.Cfg
	reader := ingest.NewReaderFactory() // wraps GHArchive reader
	project := ingest.NewProjector()    // wraps FromEnvelope

	svc := service.New(
		repokit.TxRunner(deps.PG), storeBinder,
		fetch, reader, project,
		service.Config{
			BatchSize:       opts.BatchSize,
			MaxRetries:      opts.MaxRetries,
			RetryBase:       opts.RetryBase,
			FetchTimeout:    opts.FetchTimeout,
			SkipFailedHours: opts.SkipFailedHours,
		},
	)

	m := &Module{deps: deps}
	m.ports = Ports{Runner: svc}
	return m, nil
}

// Name returns the module name
func (m *Module) Name() string { return "importer" }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }
