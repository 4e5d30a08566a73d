package monitor

import "path/filepath"

// DefaultExcludes is the baseline set of patterns every sync invocation
// carries, regardless of per-directory overrides.
var DefaultExcludes = []string{
	"venv", ".venv", "node_modules", "__pycache__", "*.pyc",
	".git/objects", "dist", "build", ".cache", "*.log", "*.tmp", "*.swp",
}

// BuildArgs constructs the sync tool's argument vector for one directory:
// fixed flags, the merged exclude list (defaults plus any directory-
// specific overrides), then source and destination paths with trailing
// slashes so only the directory's contents are mirrored under dest/name.
func BuildArgs(sourcePath, destRoot, dirName string, extraExcludes []string) []string {
	args := []string{
		"-avz", "--progress", "--no-perms", "--no-owner", "--no-group",
		"--info=progress2,stats2,flist2", "--stats", "--human-readable",
		"--itemize-changes", "--update", "--delete",
	}
	for _, pattern := range DefaultExcludes {
		args = append(args, "--exclude="+pattern)
	}
	for _, pattern := range extraExcludes {
		args = append(args, "--exclude="+pattern)
	}
	args = append(args,
		ensureTrailingSlash(sourcePath),
		ensureTrailingSlash(filepath.Join(destRoot, dirName)),
	)
	return args
}

func ensureTrailingSlash(p string) string {
	if len(p) > 0 && p[len(p)-1] == '/' {
		return p
	}
	return p + "/"
}
