package classifier_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/duskvault/backupd/internal/classifier"
	"github.com/duskvault/backupd/internal/model"
)

func dir(size int64) model.Directory {
	return model.Directory{Selected: true, EstimatedBytes: size}
}

func TestFullBackupTag(t *testing.T) {
	dirs := []model.Directory{dir(600 << 30)}
	p := classifier.Classify(dirs, 5)
	assert.Equal(t, model.EWorkloadTag.FullBackup(), p.Tag)
	assert.Equal(t, 512, p.MemoryPerWorker)
	assert.Equal(t, "high", p.Hint)
	assert.Equal(t, 6, p.BaseWorkers) // 5 * 1.2 = 6
}

func TestSmallFilesTag(t *testing.T) {
	dirs := []model.Directory{{Selected: true, EstimatedBytes: 200 << 20, FileCount: 150_000}}
	p := classifier.Classify(dirs, 2)
	assert.Equal(t, model.EWorkloadTag.SmallFiles(), p.Tag)
	assert.Equal(t, 4, p.BaseWorkers) // max(2,4)
	assert.Equal(t, "cpu-bound", p.Hint)
}

func TestLargeFilesTag(t *testing.T) {
	dirs := []model.Directory{dir(15 << 30)}
	p := classifier.Classify(dirs, 8)
	assert.Equal(t, model.EWorkloadTag.LargeFiles(), p.Tag)
	assert.Equal(t, 4, p.BaseWorkers) // min(8,4)
	assert.Equal(t, "io-bound", p.Hint)
}

func TestIncrementalDefaultTag(t *testing.T) {
	dirs := []model.Directory{dir(50 << 20)}
	p := classifier.Classify(dirs, 5)
	assert.Equal(t, model.EWorkloadTag.Incremental(), p.Tag)
	assert.Equal(t, 4, p.BaseWorkers) // 5 * 0.8 = 4
	assert.Equal(t, "normal", p.Hint)
}

func TestEstimatedFilesFallBackToSizeHeuristic(t *testing.T) {
	dirs := []model.Directory{dir(10 << 20)} // 10 MiB, no FileCount
	p := classifier.Classify(dirs, 1)
	assert.Equal(t, int64(10), p.EstimatedFiles) // 10 MiB / 1 MiB
}

func TestUnselectedDirectoriesExcluded(t *testing.T) {
	dirs := []model.Directory{
		{Selected: true, EstimatedBytes: 10 << 20},
		{Selected: false, EstimatedBytes: 900 << 30},
	}
	p := classifier.Classify(dirs, 1)
	assert.Equal(t, int64(10<<20), p.TotalSize)
	assert.Equal(t, model.EWorkloadTag.Incremental(), p.Tag)
}
