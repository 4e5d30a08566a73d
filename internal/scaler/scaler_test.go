package scaler_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/duskvault/backupd/internal/model"
	"github.com/duskvault/backupd/internal/scaler"
)

type fakePool struct {
	count        int
	added, removed int
}

func (p *fakePool) GetCount() int { return p.count }
func (p *fakePool) Add(n int)     { p.added += n; p.count += n }
func (p *fakePool) Remove(n int)  { p.removed += n; p.count -= n }

func baseParams() scaler.Params {
	return scaler.Params{
		MinWorkers:        1,
		MaxWorkers:        8,
		TargetCPUPercent:  75,
		MinFreeMemoryMB:   512,
		MemoryPerWorkerMB: 256,
		LoadAvgPerCore:    1.0,
	}
}

func TestScaleUpWhenBelowOptimalAndRoomAvailable(t *testing.T) {
	p := &fakePool{count: 2}
	c := scaler.New(baseParams(), p)
	d := c.Evaluate(model.ResourceSample{
		CPUUsagePercent: 30, MemoryTotalMB: 8192, MemoryUsedMB: 1024,
		LoadAverage1M: 0.1, CPUCount: 4, OptimalWorkers: 6,
	})
	assert.Equal(t, "scale-up", d.Action)
	assert.Equal(t, 4, d.Delta)
	assert.Equal(t, 6, p.count)
}

func TestScaleDownOnHighCPU(t *testing.T) {
	p := &fakePool{count: 6}
	c := scaler.New(baseParams(), p)
	d := c.Evaluate(model.ResourceSample{
		CPUUsagePercent: 90, MemoryTotalMB: 8192, MemoryUsedMB: 1024,
		LoadAverage1M: 0.1, CPUCount: 4, OptimalWorkers: 6,
	})
	assert.Equal(t, "scale-down", d.Action)
	assert.Less(t, p.count, 6)
}

func TestScaleDownNeverBelowMinWorkers(t *testing.T) {
	p := &fakePool{count: 1}
	c := scaler.New(baseParams(), p)
	d := c.Evaluate(model.ResourceSample{
		CPUUsagePercent: 99, MemoryTotalMB: 8192, MemoryUsedMB: 8000,
		LoadAverage1M: 50, CPUCount: 4, OptimalWorkers: 0,
	})
	assert.NotEqual(t, "scale-down", d.Action)
	assert.Equal(t, 1, p.count)
}

func TestStableWhenWithinBand(t *testing.T) {
	p := &fakePool{count: 4}
	c := scaler.New(baseParams(), p)
	d := c.Evaluate(model.ResourceSample{
		CPUUsagePercent: 75, MemoryTotalMB: 8192, MemoryUsedMB: 2048,
		LoadAverage1M: 0.5, CPUCount: 4, OptimalWorkers: 4,
	})
	assert.Equal(t, "stable", d.Action)
	assert.Equal(t, 4, p.count)
}
