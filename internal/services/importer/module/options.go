package module

import (
	"time"

	"github.com/go-playground/validator/v10"

	perr "chronicle/internal/platform/errors"

	"chronicle/internal/platform/config"
)

// Options holds configuration options for the importer service
type Options struct {
	BatchSize       int           `validate:"gt=0"`
	MaxRetries      int           `validate:"gte=1"`
	RetryBase       time.Duration `validate:"gte=0"`
	FetchTimeout    time.Duration `validate:"gte=0"`
	SkipFailedHours bool
}

var validate = validator.New()

// FromConfig reads the importer options from config with CORE_IMPORT_ prefix
func FromConfig(cfg config.Conf) (Options, error) {
	im := cfg.Prefix("CORE_IMPORT_")
	opts := Options{
		BatchSize:       im.MayInt("BATCH_SIZE", 100),
		MaxRetries:      im.MayInt("RETRIES", 3),
		RetryBase:       im.MayDuration("RETRY_BASE", 500*time.Millisecond),
		FetchTimeout:    im.MayDuration("FETCH_TIMEOUT", 10*time.Minute),
		SkipFailedHours: im.MayBool("SKIP_FAILED_HOURS", false),
	}
	if err := validate.Struct(opts); err != nil {
		return Options{}, perr.Configf("importer options: %v", err)
	}
	return opts, nil
}
