//go:build !linux && !darwin

package app

import "errors"

// DiskFreeBytes is a stub for other platforms. The production Docker image
// runs on Linux where the real implementation (disk_free_unix.go) is used.
func DiskFreeBytes(path string) (int64, error) {
	return 0, errors.New("disk space check not supported on this platform")
}
