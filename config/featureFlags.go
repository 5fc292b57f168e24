package config

import (
	"os"
	"strings"
)

func boolFromEnv(key string) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}

// SkipMigrations disables AutoMigrate on startup. DDL can block tables
// long enough to fail health checks; run migrations as a separate job
// instead.
//
// Set via env:
// - SKIP_MIGRATIONS=true
func SkipMigrations() bool {
	return boolFromEnv("SKIP_MIGRATIONS")
}

// PullWorkerEnabled starts the Pub/Sub pull worker next to the push
// endpoint. Run exactly one transport per environment; idempotency keys
// make double delivery safe but wasteful.
//
// Set via env:
// - RUN_PULL_WORKER=true
func PullWorkerEnabled() bool {
	return boolFromEnv("RUN_PULL_WORKER")
}

// InternalOpsToken guards /internal/* endpoints. Empty disables them.
//
// Set via env:
// - INTERNAL_OPS_TOKEN=<random secret>
func InternalOpsToken() string {
	return strings.TrimSpace(os.Getenv("INTERNAL_OPS_TOKEN"))
}
