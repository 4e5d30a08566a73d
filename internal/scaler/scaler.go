// Package scaler compares the resource sampler's optimal_workers against
// the live worker pool size and issues grow/shrink commands. It never
// blocks on workers actually exiting — shrink is cooperative, driven by
// Shutdown markers the pool's workers observe on their own schedule.
package scaler

import (
	"github.com/duskvault/backupd/internal/model"
)

// WorkerPool is the narrow interface the controller holds. The pool never
// points back at the controller; this is the only direction of call.
type WorkerPool interface {
	GetCount() int
	Add(n int)
	Remove(n int)
}

// Params mirrors the thresholds from the resource sampler so scale
// decisions use the same configuration.
type Params struct {
	MinWorkers        int
	MaxWorkers        int
	TargetCPUPercent  float64
	MinFreeMemoryMB   float64
	MemoryPerWorkerMB float64
	LoadAvgPerCore    float64
}

// Decision records what the controller decided on one tick, for logging
// and tests.
type Decision struct {
	Action string // "scale-up", "scale-down", "stable"
	Delta  int
}

// Controller applies one tick of the grow/shrink policy.
type Controller struct {
	params Params
	pool   WorkerPool
}

func New(params Params, pool WorkerPool) *Controller {
	return &Controller{params: params, pool: pool}
}

// Evaluate applies the scale-up/scale-down thresholds from one resource
// sample and issues the corresponding Add/Remove call on the pool.
func (c *Controller) Evaluate(sample model.ResourceSample) Decision {
	current := c.pool.GetCount()
	freeMemoryMB := sample.MemoryTotalMB - sample.MemoryUsedMB

	if c.shouldScaleDown(sample, current, freeMemoryMB) {
		delta := current - sample.OptimalWorkers
		if delta <= 0 {
			delta = 1
		}
		newCount := current - delta
		if newCount < c.params.MinWorkers {
			delta = current - c.params.MinWorkers
		}
		if delta > 0 {
			c.pool.Remove(delta)
			return Decision{Action: "scale-down", Delta: delta}
		}
		return Decision{Action: "stable"}
	}

	if c.shouldScaleUp(sample, current, freeMemoryMB) {
		delta := sample.OptimalWorkers - current
		if current+delta > c.params.MaxWorkers {
			delta = c.params.MaxWorkers - current
		}
		if delta > 0 {
			c.pool.Add(delta)
			return Decision{Action: "scale-up", Delta: delta}
		}
	}

	return Decision{Action: "stable"}
}

func (c *Controller) shouldScaleUp(sample model.ResourceSample, current int, freeMemoryMB float64) bool {
	return current < sample.OptimalWorkers &&
		sample.CPUUsagePercent < c.params.TargetCPUPercent-10 &&
		freeMemoryMB > c.params.MinFreeMemoryMB+c.params.MemoryPerWorkerMB
}

func (c *Controller) shouldScaleDown(sample model.ResourceSample, current int, freeMemoryMB float64) bool {
	if current <= c.params.MinWorkers {
		return false
	}
	overCPU := sample.CPUUsagePercent > c.params.TargetCPUPercent+10
	underMemory := freeMemoryMB < c.params.MinFreeMemoryMB
	overLoad := sample.CPUCount > 0 && sample.LoadAverage1M > c.params.LoadAvgPerCore*float64(sample.CPUCount)
	return current > sample.OptimalWorkers || overCPU || underMemory || overLoad
}
