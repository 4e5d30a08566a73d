// Package fsutil provides the pure filesystem utilities the orchestrator
// consumes but does not own: mount verification, disk-space probing, and
// directory scanning/size estimation.
package fsutil

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/duskvault/backupd/internal/model"
)

// removableMediaPath matches the conventional removable-media mount
// layout, e.g. /mnt/user/removable/sdb1/... or /media/<user>/removable/<label>/...
var removableMediaPath = regexp.MustCompile(`^/(mnt|media)(/[^/]+)?/removable/[^/]+`)

// VerifyMount checks that dest is usable as a backup destination. For a
// removable-media style path, existence plus directory readability is
// sufficient. For any other path, a mount-point probe compares the
// device id of dest against its parent.
func VerifyMount(dest string) error {
	info, err := os.Stat(dest)
	if err != nil {
		return model.ErrMountNotVerified
	}
	if !info.IsDir() {
		return model.ErrMountNotVerified
	}

	if removableMediaPath.MatchString(dest) {
		f, err := os.Open(dest)
		if err != nil {
			return model.ErrMountNotVerified
		}
		defer f.Close()
		return nil
	}

	if !isMountPoint(dest) {
		return model.ErrMountNotVerified
	}
	return nil
}

// isMountPoint reports whether path's device id differs from its
// parent's, the standard stat-based mount-point test.
func isMountPoint(path string) bool {
	var st, parentSt unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return false
	}
	parent := filepath.Dir(path)
	if err := unix.Stat(parent, &parentSt); err != nil {
		return false
	}
	return st.Dev != parentSt.Dev
}

// DiskSpace reports available and total bytes for the filesystem holding
// path.
func DiskSpace(path string) (model.DiskSpaceInfo, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return model.DiskSpaceInfo{}, err
	}
	blockSize := uint64(stat.Bsize)
	return model.DiskSpaceInfo{
		Path:           path,
		AvailableBytes: stat.Bavail * blockSize,
		TotalBytes:     stat.Blocks * blockSize,
	}, nil
}

// ScanDirectories walks each immediate child of root and estimates its
// size by summing regular file sizes, skipping entries that match one of
// excludes. Patterns are matched against each entry's base name only, so a
// pattern containing a slash (such as .git/objects) never matches here.
func ScanDirectories(root string, excludes []string) ([]model.Directory, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}

	var dirs []model.Directory
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		sourcePath := filepath.Join(root, e.Name())
		size := estimateSize(sourcePath, excludes)
		dirs = append(dirs, model.Directory{
			Name:           e.Name(),
			SourcePath:     sourcePath,
			EstimatedBytes: size,
			Status:         model.EDirectoryStatus.Pending(),
			Selected:       true,
		})
	}
	return dirs, nil
}

func estimateSize(root string, excludes []string) int64 {
	var total int64
	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // best-effort estimate; unreadable subtrees are skipped, not fatal
		}
		name := d.Name()
		for _, pattern := range excludes {
			if matched, _ := filepath.Match(pattern, name); matched {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		total += info.Size()
		return nil
	})
	return total
}

// IsRemovableMediaPath reports whether dest looks like a removable-media
// mount path, exported so the control plane can explain a precondition
// failure with the same check VerifyMount used.
func IsRemovableMediaPath(dest string) bool {
	return removableMediaPath.MatchString(dest)
}

// NormalizeDest ensures dest has no trailing slash inconsistencies before
// it's used to build per-directory destination paths.
func NormalizeDest(dest string) string {
	return strings.TrimRight(dest, "/")
}
