// Package config resolves the orchestrator's environment-variable surface.
// Each tunable is a named, described, defaulted value rather than a bare
// os.Getenv call scattered through the codebase.
package config

import (
	"os"
	"strconv"

	"github.com/pkg/errors"
)

// EnvironmentVariable names one configuration knob: its environment
// variable name, default value, and a human-readable description.
type EnvironmentVariable struct {
	Name         string
	DefaultValue string
	Description  string
}

// EEnvironmentVariable is the namespace of recognized environment
// variables.
var EEnvironmentVariable = EnvironmentVariable{}

func (EnvironmentVariable) Port() EnvironmentVariable {
	return EnvironmentVariable{Name: "BACKUP_PORT", DefaultValue: "8787",
		Description: "TCP port the HTTP/WebSocket control surface listens on."}
}

func (EnvironmentVariable) DatabaseURL() EnvironmentVariable {
	return EnvironmentVariable{Name: "DATABASE_URL",
		Description: "Postgres connection string for the session store. Empty means use the in-memory store."}
}

func (EnvironmentVariable) BackupDest() EnvironmentVariable {
	return EnvironmentVariable{Name: "BACKUP_DEST",
		Description: "Destination root the sync tool copies into; must verify as a mount before Start succeeds."}
}

func (EnvironmentVariable) MaxWorkers() EnvironmentVariable {
	return EnvironmentVariable{Name: "MAX_WORKERS", DefaultValue: "0",
		Description: "Upper bound on concurrent sync workers. 0 means auto (= cpu_count)."}
}

func (EnvironmentVariable) DynamicScaling() EnvironmentVariable {
	return EnvironmentVariable{Name: "DYNAMIC_SCALING", DefaultValue: "true",
		Description: "Whether the Scaling Controller may grow/shrink the worker pool at runtime."}
}

func (EnvironmentVariable) TargetCPUPercent() EnvironmentVariable {
	return EnvironmentVariable{Name: "TARGET_CPU_PERCENT", DefaultValue: "75",
		Description: "CPU utilization the Resource Sampler tunes the worker count toward."}
}

func (EnvironmentVariable) MemoryPerWorkerMB() EnvironmentVariable {
	return EnvironmentVariable{Name: "MEMORY_PER_WORKER_MB", DefaultValue: "256",
		Description: "Memory budget assumed per worker when bounding optimal_workers."}
}

func (EnvironmentVariable) MinFreeMemoryMB() EnvironmentVariable {
	return EnvironmentVariable{Name: "MIN_FREE_MEMORY_MB", DefaultValue: "512",
		Description: "Free-memory floor below which the Scaling Controller scales down."}
}

func (EnvironmentVariable) LoadAvgPerCore() EnvironmentVariable {
	return EnvironmentVariable{Name: "LOAD_AVG_PER_CORE", DefaultValue: "1.0",
		Description: "1-minute load average per core beyond which the Scaling Controller treats the system as saturated."}
}

func (EnvironmentVariable) SamplerIntervalSeconds() EnvironmentVariable {
	return EnvironmentVariable{Name: "SAMPLER_INTERVAL_SECONDS", DefaultValue: "5",
		Description: "Resource Sampler tick period."}
}

func (EnvironmentVariable) MinWorkers() EnvironmentVariable {
	return EnvironmentVariable{Name: "MIN_WORKERS", DefaultValue: "1",
		Description: "Floor the Scaling Controller will never shrink below."}
}

// Get returns the environment variable's current value, falling back to
// DefaultValue when unset.
func (ev EnvironmentVariable) Get() string {
	if v, ok := os.LookupEnv(ev.Name); ok {
		return v
	}
	return ev.DefaultValue
}

// GetInt parses Get() as an int, returning an error that names the
// variable on failure.
func (ev EnvironmentVariable) GetInt() (int, error) {
	v := ev.Get()
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.Wrapf(err, "parsing %s=%q as int", ev.Name, v)
	}
	return n, nil
}

// GetFloat parses Get() as a float64.
func (ev EnvironmentVariable) GetFloat() (float64, error) {
	v := ev.Get()
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "parsing %s=%q as float", ev.Name, v)
	}
	return f, nil
}

// GetBool parses Get() as a bool.
func (ev EnvironmentVariable) GetBool() (bool, error) {
	v := ev.Get()
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, errors.Wrapf(err, "parsing %s=%q as bool", ev.Name, v)
	}
	return b, nil
}
