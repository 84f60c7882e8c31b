package main

import (
	"context"
	"flag"
	"os"
	"strconv"
	"time"

	"chronicle/internal/modkit"
	"chronicle/internal/modkit/module"
	"chronicle/internal/platform/config"
	"chronicle/internal/platform/logger"
	"chronicle/internal/platform/store"

	importdom "chronicle/internal/services/importer/domain"
	importmod "chronicle/internal/services/importer/module"
)

func mustSetEnv(key, val string) {
	if val != "" {
		_ = os.Setenv(key, val)
	}
}

// surfaceBatchSize forwards an explicitly given -batch-size to the module env.
// fs.Visit only sees flags set on the command line, so an invalid 0 or
// negative value is forwarded too and fails Options validation instead of
// silently falling back to the default
func surfaceBatchSize(fs *flag.FlagSet) {
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "batch-size" {
			mustSetEnv("CORE_IMPORT_BATCH_SIZE", f.Value.String())
		}
	})
}

func main() {
	root := config.New()
	pgCfg := root.Prefix("SERVICE_PGSQL_")

	l := logger.Get()
	st, err := store.Open(context.Background(), store.Config{
		AppName: "chronicle-import",
		PG: store.PGConfig{
			Enabled:     true,
			URL:         pgCfg.MustString("DBURL"),
			MaxConns:    int32(pgCfg.MayInt("MAX_CONNS", 4)),
			SlowQueryMs: pgCfg.MayInt("SLOW_MS", 500),
			LogSQL:      pgCfg.MayBool("LOG_SQL", true),
		},
	}, store.WithLogger(*l))
	if err != nil {
		l.Panic().Err(err).Msg("store.Open failed")
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()

	var (
		fDay  = flag.String("day", "", "UTC day YYYY-MM-DD (default today)")
		fHour = flag.String("hour", "all", "archive hour 0..23, or all")
	)
	flag.Int("batch-size", 100, "events per flush (default CORE_IMPORT_BATCH_SIZE or 100)")
	flag.Parse()

	// -day wins over CORE_IMPORT_DAY; both default to today
	day := root.Prefix("CORE_IMPORT_").MayDate("DAY", time.Now().UTC().Truncate(24*time.Hour))
	if *fDay != "" {
		t, err := time.Parse("2006-01-02", *fDay)
		if err != nil {
			l.Panic().Err(err).Msg("bad -day")
		}
		day = t.UTC()
	}

	hour := importdom.AllHours
	if *fHour != "all" && *fHour != "" {
		h, err := strconv.Atoi(*fHour)
		if err != nil || h < 0 || h > 23 {
			l.Panic().Str("hour", *fHour).Msg("bad -hour, want 0..23 or all")
		}
		hour = h
	}

	surfaceBatchSize(flag.CommandLine)

	deps := modkit.Deps{
		Cfg: root,
		PG:  st.PG,
		Log: *l,
	}

	im, err := importmod.New(deps)
	if err != nil {
		l.Panic().Err(err).Msg("importer module init failed")
	}
	module.Register(im.Name(), im.Ports())

	runner := module.MustPortsOf[importdom.RunnerPort](im)
	win := importdom.Window{Day: day, Hour: hour}
	if _, err := runner.RunWindow(context.Background(), win); err != nil {
		l.Fatal().Err(err).Msg("import failed")
	}
}
