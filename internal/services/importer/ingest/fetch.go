// Package ingest holds adapter shims for the importer ports.
package ingest

import (
	"context"
	"fmt"
	"io"
	"time"

	"chronicle/internal/modkit"
	"chronicle/internal/services/importer/domain"

	"chronicle/internal/adapters/ingest/gharchive"
)

// fetcher implements domain.Fetcher using the GH Archive HTTP fetcher
type fetcher struct {
	f gharchive.Fetcher
}

// NewFetcher constructs a domain.Fetcher from config under CORE_INGEST_*.
// This keeps config-reading outside service and avoids passing platform deps into repos
func NewFetcher(deps modkit.Deps) domain.Fetcher {
	ing := deps.Cfg.Prefix("CORE_INGEST_")

	httpTO := time.Duration(ing.MayInt("HTTP_TIMEOUT_SECONDS", 0)) * time.Second // 0 == no client timeout

	return &fetcher{f: gharchive.NewHTTPFetcherWithTimeout(httpTO)}
}

func (f *fetcher) Fetch(ctx context.Context, hr domain.HourRef) (io.ReadCloser, error) {
	// Translate to the gharchive.HourRef and delegate
	rc, err := f.f.Fetch(
		ctx,
		gharchive.NewHourRef(
			time.Date(
				hr.Year,
				time.Month(hr.Month),
				hr.Day,
				hr.Hour,
				0, 0, 0, time.UTC,
			),
		),
	)
	if gharchive.IsNotFound(err) {
		return nil, fmt.Errorf("%w: %v", domain.ErrHourNotFound, err)
	}
	return rc, err
}
