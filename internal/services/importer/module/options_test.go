package module

import (
	"testing"
	"time"

	"chronicle/internal/platform/config"
	perr "chronicle/internal/platform/errors"
)

func TestFromConfigDefaults(t *testing.T) {
	opts, err := FromConfig(config.New())
	if err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
	if opts.BatchSize != 100 {
		t.Errorf("BatchSize = %d, want 100", opts.BatchSize)
	}
	if opts.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", opts.MaxRetries)
	}
	if opts.RetryBase != 500*time.Millisecond {
		t.Errorf("RetryBase = %v", opts.RetryBase)
	}
	if opts.SkipFailedHours {
		t.Error("SkipFailedHours must default off")
	}
}

func TestFromConfigOverrides(t *testing.T) {
	t.Setenv("CORE_IMPORT_BATCH_SIZE", "250")
	t.Setenv("CORE_IMPORT_RETRIES", "5")
	t.Setenv("CORE_IMPORT_SKIP_FAILED_HOURS", "1")

	opts, err := FromConfig(config.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.BatchSize != 250 || opts.MaxRetries != 5 || !opts.SkipFailedHours {
		t.Fatalf("overrides not applied: %+v", opts)
	}
}

func TestFromConfigRejectsBadBatchSize(t *testing.T) {
	t.Setenv("CORE_IMPORT_BATCH_SIZE", "0")

	_, err := FromConfig(config.New())
	if err == nil {
		t.Fatal("batch size 0 must be rejected")
	}
	if !perr.IsCode(err, perr.ErrorCodeConfig) {
		t.Fatalf("want config error code, got %v", err)
	}
}
