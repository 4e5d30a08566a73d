package config

import (
	"runtime"

	"github.com/pkg/errors"
)

// Config is the resolved, typed configuration the rest of the process
// reads. It is constructed once at startup and treated as read-only
// thereafter, threaded explicitly through main() rather than read from
// package-level globals.
type Config struct {
	Port                   int
	DatabaseURL            string
	BackupDest             string
	MaxWorkers             int // 0 = auto
	DynamicScaling         bool
	TargetCPUPercent       float64
	MemoryPerWorkerMB      int
	MinFreeMemoryMB        int
	LoadAvgPerCore         float64
	SamplerInterval        int // seconds
	MinWorkers             int
}

// Load resolves Config from the process environment.
func Load() (*Config, error) {
	cfg := &Config{
		BackupDest: EEnvironmentVariable.BackupDest().Get(),
	}

	var err error
	if cfg.Port, err = EEnvironmentVariable.Port().GetInt(); err != nil {
		return nil, err
	}
	cfg.DatabaseURL = EEnvironmentVariable.DatabaseURL().Get()
	if cfg.MaxWorkers, err = EEnvironmentVariable.MaxWorkers().GetInt(); err != nil {
		return nil, err
	}
	if cfg.DynamicScaling, err = EEnvironmentVariable.DynamicScaling().GetBool(); err != nil {
		return nil, err
	}
	if cfg.TargetCPUPercent, err = EEnvironmentVariable.TargetCPUPercent().GetFloat(); err != nil {
		return nil, err
	}
	if cfg.MemoryPerWorkerMB, err = EEnvironmentVariable.MemoryPerWorkerMB().GetInt(); err != nil {
		return nil, err
	}
	if cfg.MinFreeMemoryMB, err = EEnvironmentVariable.MinFreeMemoryMB().GetInt(); err != nil {
		return nil, err
	}
	if cfg.LoadAvgPerCore, err = EEnvironmentVariable.LoadAvgPerCore().GetFloat(); err != nil {
		return nil, err
	}
	if cfg.SamplerInterval, err = EEnvironmentVariable.SamplerIntervalSeconds().GetInt(); err != nil {
		return nil, err
	}
	if cfg.MinWorkers, err = EEnvironmentVariable.MinWorkers().GetInt(); err != nil {
		return nil, err
	}

	if cfg.MaxWorkers == 0 {
		cfg.MaxWorkers = runtime.NumCPU()
	}
	if cfg.MaxWorkers < cfg.MinWorkers {
		return nil, errors.Errorf("MAX_WORKERS (%d) below MIN_WORKERS (%d)", cfg.MaxWorkers, cfg.MinWorkers)
	}
	return cfg, nil
}
