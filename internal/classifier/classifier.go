// Package classifier performs a one-shot analysis of the pending
// directory set before any task is enqueued, seeding the initial pool
// size and per-worker memory hint. Its result is advisory: the scaling
// controller remains authoritative once a run is underway.
package classifier

import (
	"github.com/duskvault/backupd/internal/model"
)

const (
	fullBackupThresholdBytes = 500 << 30 // 500 GB
	smallFilesThresholdCount = 100_000
	largeFilesDirCountCeil   = 10
	largeFilesSizeThreshold  = 10 << 30 // 10 GB
	bytesPerEstimatedFile    = 1 << 20  // 1 MiB, when file count isn't otherwise known
)

// Classify inspects dirs and derives a WorkloadProfile. baseOptimal is the
// sampler's current optimal_workers recommendation before classification
// adjusts it.
func Classify(dirs []model.Directory, baseOptimal int) model.WorkloadProfile {
	var totalSize int64
	var estimatedFiles int64
	dirCount := 0

	for _, d := range dirs {
		if !d.Selected {
			continue
		}
		dirCount++
		totalSize += d.EstimatedBytes
		if d.FileCount > 0 {
			estimatedFiles += d.FileCount
		} else {
			estimatedFiles += d.EstimatedBytes / bytesPerEstimatedFile
		}
	}

	profile := model.WorkloadProfile{
		TotalSize:      totalSize,
		EstimatedFiles: estimatedFiles,
		DirectoryCount: dirCount,
	}

	switch {
	case totalSize > fullBackupThresholdBytes:
		profile.Tag = model.EWorkloadTag.FullBackup()
		profile.BaseWorkers = scale(baseOptimal, 1.2)
		profile.MemoryPerWorker = 512
		profile.Hint = "high"

	case estimatedFiles > smallFilesThresholdCount:
		profile.Tag = model.EWorkloadTag.SmallFiles()
		profile.BaseWorkers = maxInt(baseOptimal, 4)
		profile.MemoryPerWorker = 256
		profile.Hint = "cpu-bound"

	case dirCount < largeFilesDirCountCeil && totalSize > largeFilesSizeThreshold:
		profile.Tag = model.EWorkloadTag.LargeFiles()
		profile.BaseWorkers = minInt(baseOptimal, 4)
		profile.MemoryPerWorker = memoryHintBySize(totalSize, dirCount)
		profile.Hint = "io-bound"

	default:
		profile.Tag = model.EWorkloadTag.Incremental()
		profile.BaseWorkers = scale(baseOptimal, 0.8)
		profile.MemoryPerWorker = 256
		profile.Hint = "normal"
	}

	if profile.BaseWorkers < 1 {
		profile.BaseWorkers = 1
	}
	return profile
}

func scale(n int, factor float64) int {
	return int(float64(n) * factor)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// memoryHintBySize scales the per-worker memory budget with the average
// directory size when there are few, large directories to move.
func memoryHintBySize(totalSize int64, dirCount int) int {
	if dirCount == 0 {
		return 512
	}
	avgGB := float64(totalSize/int64(dirCount)) / float64(1<<30)
	switch {
	case avgGB > 20:
		return 1024
	case avgGB > 5:
		return 768
	default:
		return 512
	}
}
