// Package sampler periodically probes live CPU, memory, and load-average
// state and derives the optimal worker count the scaling controller
// compares against.
package sampler

import (
	"context"
	"math"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/duskvault/backupd/internal/model"
)

// Params are the tunables that shape optimal_workers, resolved once from
// configuration at startup.
type Params struct {
	MinWorkers        int
	MaxWorkers        int
	TargetCPUPercent  float64
	MemoryPerWorkerMB int
	LoadAvgPerCore    float64
	Interval          time.Duration
}

// Sampler ticks on Interval, producing a ResourceSample on each tick.
type Sampler struct {
	params Params
	probe  Probe
}

// Probe abstracts the system metrics source so tests can inject synthetic
// readings instead of calling into gopsutil against the real host.
type Probe interface {
	CPUPercent(ctx context.Context) (float64, error)
	Memory(ctx context.Context) (usedMB, totalMB float64, err error)
	LoadAverage1M(ctx context.Context) (float64, error)
}

// New creates a Sampler backed by the real gopsutil-based probe.
func New(params Params) *Sampler {
	return &Sampler{params: params, probe: gopsutilProbe{}}
}

// WithProbe overrides the metrics source, for tests.
func (s *Sampler) WithProbe(p Probe) *Sampler {
	s.probe = p
	return s
}

// Sample takes one reading and computes optimal_workers from it.
func (s *Sampler) Sample(ctx context.Context) (model.ResourceSample, error) {
	cpuPct, err := s.probe.CPUPercent(ctx)
	if err != nil {
		return model.ResourceSample{}, err
	}
	usedMB, totalMB, err := s.probe.Memory(ctx)
	if err != nil {
		return model.ResourceSample{}, err
	}
	loadAvg, err := s.probe.LoadAverage1M(ctx)
	if err != nil {
		return model.ResourceSample{}, err
	}

	cpuCount := runtime.NumCPU()
	freeMB := totalMB - usedMB

	optimal := OptimalWorkers(s.params, cpuPct, freeMB, loadAvg, cpuCount)

	return model.ResourceSample{
		CPUUsagePercent: cpuPct,
		MemoryUsedMB:    usedMB,
		MemoryTotalMB:   totalMB,
		LoadAverage1M:   loadAvg,
		CPUCount:        cpuCount,
		OptimalWorkers:  optimal,
	}, nil
}

// Run ticks every Interval until ctx is canceled, invoking onSample for
// each reading. Sample errors are passed through rather than stopping the
// loop; a transient metrics failure should not halt scaling decisions
// forever.
func (s *Sampler) Run(ctx context.Context, onSample func(model.ResourceSample, error)) {
	ticker := time.NewTicker(s.params.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sample, err := s.Sample(ctx)
			onSample(sample, err)
		}
	}
}

// OptimalWorkers implements the sizing formula: start from a CPU-headroom
// estimate, bound by available memory, brake on load average, then clamp
// to [min_workers, max_workers].
func OptimalWorkers(p Params, currentCPU, freeMemoryMB, loadAverage1M float64, cpuCount int) int {
	optimal := float64(p.MinWorkers) + math.Max(0, (p.TargetCPUPercent-currentCPU)/10)

	if p.MemoryPerWorkerMB > 0 {
		memoryBound := freeMemoryMB / float64(p.MemoryPerWorkerMB)
		optimal = math.Min(optimal, memoryBound)
	}

	if cpuCount > 0 && loadAverage1M/float64(cpuCount) > p.LoadAvgPerCore {
		optimal--
	}

	if optimal < float64(p.MinWorkers) {
		optimal = float64(p.MinWorkers)
	}
	if optimal > float64(p.MaxWorkers) {
		optimal = float64(p.MaxWorkers)
	}
	return int(math.Round(optimal))
}

// gopsutilProbe is the real Probe, backed by github.com/shirou/gopsutil/v3.
type gopsutilProbe struct{}

func (gopsutilProbe) CPUPercent(ctx context.Context) (float64, error) {
	percents, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return 0, err
	}
	if len(percents) == 0 {
		return 0, nil
	}
	return percents[0], nil
}

func (gopsutilProbe) Memory(ctx context.Context) (usedMB, totalMB float64, err error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return 0, 0, err
	}
	const mb = 1024 * 1024
	return float64(vm.Used) / mb, float64(vm.Total) / mb, nil
}

func (gopsutilProbe) LoadAverage1M(ctx context.Context) (float64, error) {
	avg, err := load.AvgWithContext(ctx)
	if err != nil {
		return 0, err
	}
	return avg.Load1, nil
}
