// Package fsutil provides file system utility functions.
package fsutil

import (
	"fmt"
	"os"
)

// EnsureDir creates the directory and any missing parents, then verifies it
// is writable by creating and removing a probe file. Generation must fail
// up front when an iteration directory cannot receive its artifacts.
func EnsureDir(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("unable to create directory %s: %w", path, err)
	}

	probe, err := os.CreateTemp(path, ".write-probe-*")
	if err != nil {
		return fmt.Errorf("directory %s is not writable: %w", path, err)
	}
	name := probe.Name()
	probe.Close()
	if err := os.Remove(name); err != nil {
		return fmt.Errorf("unable to clean up write probe in %s: %w", path, err)
	}
	return nil
}
