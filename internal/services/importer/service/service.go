// Package service provides the import pipeline implementation
package service

import (
	"context"
	"errors"
	"io"
	"math/rand"
	"strconv"
	"time"

	"github.com/google/uuid"

	"chronicle/internal/modkit/repokit"
	perr "chronicle/internal/platform/errors"
	"chronicle/internal/platform/logger"
	"chronicle/internal/services/importer/domain"
)

// Config holds configuration options for the import pipeline
type Config struct {
	// BatchSize is the event count per flush; must be positive
	BatchSize int

	// Hour-level fetch retry
	MaxRetries int           // attempts per hour; <=0 -> 1
	RetryBase  time.Duration // base backoff for fetch retries; <=0 -> 500ms

	// FetchTimeout caps one fetch attempt; zero means no extra deadline
	FetchTimeout time.Duration

	// SkipFailedHours keeps an all-hours run going past a FetchFailure.
	// The default (false) aborts the run; see the module options
	SkipFailedHours bool
}

// Service implements the import pipeline
type Service struct {
	DB      repokit.TxRunner
	Binder  repokit.Binder[domain.StorageRepo] // binds q -> domain.StorageRepo
	Fetch   domain.Fetcher
	Reader  domain.ReaderFactory
	Project domain.Projector
	Cfg     Config
}

// New constructs the import pipeline service
func New(
	db repokit.TxRunner,
	binder repokit.Binder[domain.StorageRepo],
	f domain.Fetcher,
	rf domain.ReaderFactory,
	pr domain.Projector,
	cfg Config,
) *Service {
	if db == nil {
		panic("importer.Service requires a non nil TxRunner")
	}
	if binder == nil {
		panic("importer.Service requires a non nil Repo binder")
	}
	return &Service{DB: db, Binder: binder, Fetch: f, Reader: rf, Project: pr, Cfg: cfg}
}

// RunWindow implements domain.RunnerPort.
// The window is processed as one ordered stream: hours in archive order,
// records in line order, flushes strictly sequential. Stats are returned
// alongside any error so the caller can report partial progress
func (s *Service) RunWindow(ctx context.Context, win domain.Window) (domain.RunStats, error) {
	var stats domain.RunStats

	if s.Cfg.BatchSize <= 0 {
		return stats, perr.Configf("batch size must be positive, got %d", s.Cfg.BatchSize)
	}
	if win.Day.IsZero() {
		return stats, perr.Configf("day is required")
	}
	if win.Hour != domain.AllHours && (win.Hour < 0 || win.Hour > 23) {
		return stats, perr.Configf("hour must be 0..23 or all, got %d", win.Hour)
	}

	runID := uuid.NewString()
	ctx = logger.WithRun(ctx, runID)
	log := logger.C(ctx)

	hourSpec := "all"
	if win.Hour != domain.AllHours {
		hourSpec = strconv.Itoa(win.Hour)
	}
	s.beginRun(ctx, domain.RunRecord{
		ID:        runID,
		Day:       win.Day.UTC(),
		HourSpec:  hourSpec,
		BatchSize: s.Cfg.BatchSize,
	})

	batch := NewBatch()
	runErr := func() error {
		for _, hr := range win.HourRefs() {
			if err := s.runHour(ctx, hr, batch, &stats); err != nil {
				if s.Cfg.SkipFailedHours && win.Hour == domain.AllHours && perr.IsCode(err, perr.ErrorCodeFetch) {
					log.Error().Str("hour", hr.UTC().Format("2006-01-02T15")).Err(err).
						Msg("importer: hour unreachable, skipping")
					continue
				}
				return err
			}
		}
		// final partial flush; a multiple-of-batch-size stream flushes nothing here
		return s.flush(ctx, batch, &stats)
	}()

	status := "ok"
	errText := ""
	if runErr != nil {
		status = "error"
		errText = runErr.Error()
	}
	s.finishRun(ctx, runID, status, stats, errText)

	// counts go out even on failure so partial progress stays diagnosable
	evt := log.Info()
	if runErr != nil {
		evt = log.Error().Err(runErr)
	}
	evt.Int("lines", stats.Lines).
		Int("bad_lines", stats.BadLines).
		Int("recognized", stats.Recognized).
		Int("malformed", stats.Malformed).
		Int("flushes", stats.Flushes).
		Int("events_inserted", stats.Events.Inserted).
		Int("events_ignored", stats.Events.Ignored).
		Msg("importer: run finished")

	return stats, runErr
}

// runHour streams one archive hour through classify -> project -> accumulate,
// flushing whenever the batch reaches the configured size
func (s *Service) runHour(ctx context.Context, hr domain.HourRef, batch *Batch, stats *domain.RunStats) (retErr error) {
	hourUTC := hr.UTC()
	startWall := time.Now()
	var fetchMS, readMS int
	var hourLines, hourBad, hourRecognized, hourMalformed int
	var errText string
	var rd domain.ReaderPort

	s.startHour(ctx, hourUTC)

	defer func() {
		// fold the reader counters even when the hour aborts mid-stream,
		// so partially read lines stay accounted for
		if rd != nil {
			lines, bad, _ := rd.Stats()
			hourLines, hourBad = lines, bad
			stats.Lines += lines
			stats.BadLines += bad
		}
		fin := domain.HourFinish{
			Status:     map[bool]string{true: "error", false: "ok"}[retErr != nil],
			Lines:      hourLines,
			BadLines:   hourBad,
			Recognized: hourRecognized,
			Malformed:  hourMalformed,
			FetchMS:    fetchMS,
			ReadMS:     readMS,
			ElapsedMS:  int(time.Since(startWall).Milliseconds()),
			ErrText:    errText,
		}
		if retErr != nil && errText == "" {
			fin.ErrText = retErr.Error()
		}
		s.finishHour(ctx, hourUTC, fin)
	}()

	t0 := time.Now()
	rc, err := s.fetchWithRetry(ctx, hr)
	fetchMS = int(time.Since(t0).Milliseconds())
	if err != nil {
		retErr = err
		return
	}

	rd, err = s.Reader.New(rc)
	if err != nil {
		_ = rc.Close()
		retErr = perr.FetchFailedf(err, "decompress hour %s", hourUTC.Format("2006-01-02T15"))
		return
	}
	defer func() {
		if cerr := rd.Close(); cerr != nil && retErr == nil {
			retErr = cerr
		}
	}()

	log := logger.C(ctx)
	t1 := time.Now()
	for {
		if err := ctx.Err(); err != nil {
			retErr = err
			return
		}
		env, e := rd.Next()
		if e == io.EOF {
			break
		}
		if e != nil {
			retErr = perr.FetchFailedf(e, "read hour %s", hourUTC.Format("2006-01-02T15"))
			return
		}

		kind, ok := domain.KindForType(env.Type)
		if !ok {
			continue // unrecognized tag, dropped by classification
		}

		triple, perr2 := s.Project.FromEnvelope(env, kind)
		if perr2 != nil {
			// one warning per skipped record; the run keeps going
			hourMalformed++
			stats.Malformed++
			log.Warn().Err(perr2).Msg("importer: skipping malformed record")
			continue
		}

		hourRecognized++
		stats.Recognized++
		batch.Append(triple)

		if batch.ShouldFlush(s.Cfg.BatchSize) {
			if err := s.flush(ctx, batch, stats); err != nil {
				retErr = err
				return
			}
		}
	}
	readMS = int(time.Since(t1).Milliseconds())

	lines, _, _ := rd.Stats()
	log.Info().
		Str("hour", hourUTC.Format("2006-01-02T15")).
		Int("lines", lines).
		Int("recognized", hourRecognized).
		Int("malformed", hourMalformed).
		Msg("importer: hour read")

	return nil
}

// fetchWithRetry retries transport failures with backoff and jitter.
// Whatever comes back on the last attempt is wrapped as a FetchFailure
func (s *Service) fetchWithRetry(ctx context.Context, hr domain.HourRef) (io.ReadCloser, error) {
	attempts := max(s.Cfg.MaxRetries, 1)
	base := s.Cfg.RetryBase
	if base <= 0 {
		base = 500 * time.Millisecond
	}

	var last error
	for i := range attempts {
		fetchCtx := ctx
		var cancel context.CancelFunc = func() {}
		if s.Cfg.FetchTimeout > 0 {
			fetchCtx, cancel = context.WithTimeout(ctx, s.Cfg.FetchTimeout)
		}
		rc, err := s.Fetch.Fetch(fetchCtx, hr)
		if err == nil {
			// cancel is intentionally not deferred: the body outlives the attempt
			return rc, nil
		}
		cancel()
		last = err

		// a 404 means the hour does not exist; retrying cannot help
		if errors.Is(err, domain.ErrHourNotFound) {
			break
		}
		if i == attempts-1 || ctx.Err() != nil {
			break
		}
		// exponential backoff with jitter, cap at 30s.
		// Sub-nanosecond halves skip the jitter rather than feed 0 to Int63n
		d := min(base<<i, 30*time.Second)
		j := d
		if half := d / 2; half > 0 {
			j = half + time.Duration(rand.Int63n(int64(half)))
		}
		if se := sleepCtx(ctx, j); se != nil {
			break
		}
	}
	return nil, perr.FetchFailedf(last, "fetch hour %s", hr.UTC().Format("2006-01-02T15"))
}

// flush drains the batch and writes actors, then repos, then events.
// Events reference actor/repo ids, so they go last. Each entity kind is one
// statement in its own transaction; an empty batch is a no-op
func (s *Service) flush(ctx context.Context, batch *Batch, stats *domain.RunStats) error {
	actors, repos, events := batch.DrainAll()
	if len(actors) == 0 && len(repos) == 0 && len(events) == 0 {
		return nil
	}

	var aw, rw, ew domain.WriteStats
	writes := []func(q repokit.Queryer) error{
		func(q repokit.Queryer) error {
			w, err := s.Binder.Bind(q).InsertActors(ctx, actors)
			aw = w
			return err
		},
		func(q repokit.Queryer) error {
			w, err := s.Binder.Bind(q).InsertRepos(ctx, repos)
			rw = w
			return err
		},
		func(q repokit.Queryer) error {
			w, err := s.Binder.Bind(q).InsertEvents(ctx, events)
			ew = w
			return err
		},
	}
	for _, write := range writes {
		if err := s.DB.Tx(ctx, write); err != nil {
			return perr.WriteFailedf(err, "flush batch %d", stats.Flushes+1)
		}
	}

	stats.Actors.Add(aw)
	stats.Repos.Add(rw)
	stats.Events.Add(ew)
	stats.Flushes++

	logger.C(ctx).Info().
		Int("flush", stats.Flushes).
		Int("events", len(events)).
		Int("events_total", stats.Events.Inserted+stats.Events.Ignored).
		Msg("importer: batch flushed")
	return nil
}

// Bookkeeping writes are best-effort: losing a progress row must not lose data

func (s *Service) beginRun(ctx context.Context, run domain.RunRecord) {
	_ = s.DB.Tx(ctx, func(q repokit.Queryer) error {
		return s.Binder.Bind(q).BeginRun(ctx, run)
	})
}

func (s *Service) finishRun(ctx context.Context, runID, status string, stats domain.RunStats, errText string) {
	_ = s.DB.Tx(ctx, func(q repokit.Queryer) error {
		return s.Binder.Bind(q).FinishRun(ctx, runID, status, stats, errText)
	})
}

func (s *Service) startHour(ctx context.Context, hour time.Time) {
	_ = s.DB.Tx(ctx, func(q repokit.Queryer) error {
		return s.Binder.Bind(q).StartHour(ctx, hour)
	})
}

func (s *Service) finishHour(ctx context.Context, hour time.Time, fin domain.HourFinish) {
	_ = s.DB.Tx(ctx, func(q repokit.Queryer) error {
		return s.Binder.Bind(q).FinishHour(ctx, hour, fin)
	})
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
