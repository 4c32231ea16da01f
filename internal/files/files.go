package files

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mozilla-ai/mcpool/internal/perms"
)

// EnsureAtLeastRegularDir creates a directory with standard permissions if it doesn't exist,
// and verifies that it has at least the required regular permissions if it already exists.
// It does not attempt to repair ownership or permissions: if they are wrong, it returns an error.
func EnsureAtLeastRegularDir(path string) error {
	return ensureAtLeastDir(path, perms.RegularDir)
}

// EnsureParentDir makes sure the directory that will contain the file at path exists.
// An existing directory is used as is, a missing one is created via EnsureAtLeastRegularDir.
func EnsureParentDir(path string) error {
	dir := filepath.Dir(path)

	info, err := os.Stat(dir)
	switch {
	case err == nil && info.IsDir():
		return nil
	case err == nil:
		return fmt.Errorf("path '%s' is not a directory", dir)
	case os.IsNotExist(err):
		return EnsureAtLeastRegularDir(dir)
	default:
		return fmt.Errorf("could not stat directory '%s': %w", dir, err)
	}
}

// OpenAppend opens the file at path for appending, creating it and its parent directory when missing.
func OpenAppend(path string) (*os.File, error) {
	if err := EnsureParentDir(path); err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, perms.RegularFile)
	if err != nil {
		return nil, fmt.Errorf("could not open file '%s': %w", path, err)
	}

	return f, nil
}

// ensureAtLeastDir creates a directory with the specified permissions if it doesn't exist,
// and verifies that it has at least the required permissions if it already exists.
// Rejects symlinked directories.
//
// NOTE: Only the final directory is checked. Antecedent directories may have default permissions.
func ensureAtLeastDir(path string, perm os.FileMode) error {
	if err := os.MkdirAll(path, perm); err != nil {
		return fmt.Errorf("could not ensure directory exists for '%s': %w", path, err)
	}

	info, err := os.Lstat(path)
	if err != nil {
		return fmt.Errorf("could not stat directory '%s': %w", path, err)
	}

	if info.Mode()&os.ModeSymlink != 0 {
		return fmt.Errorf("path '%s' is a symlink, not a directory", path)
	}

	if !info.IsDir() {
		return fmt.Errorf("path '%s' is not a directory", path)
	}

	if !isPermissionAcceptable(info.Mode().Perm(), perm) {
		return fmt.Errorf(
			"incorrect permissions for directory '%s' (%#o, want %#o or more restrictive)",
			path, info.Mode().Perm(),
			perm,
		)
	}

	return nil
}

// isPermissionAcceptable returns true if actual grants no permission bit that required does not.
func isPermissionAcceptable(actual, required os.FileMode) bool {
	return (actual & ^required) == 0
}
