//go:build linux || darwin

package executor

import (
	"fmt"
	"syscall"
)

// checkDiskSpace verifies the destination filesystem has at least minFreeGB
// gigabytes available (Linux/macOS)
func checkDiskSpace(path string, minFreeGB int) error {
	if minFreeGB <= 0 {
		return nil
	}

	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		return fmt.Errorf("failed to check disk space: %w", err)
	}

	freeSpaceGB := (stat.Bavail * uint64(stat.Bsize)) / (1024 * 1024 * 1024)
	if int(freeSpaceGB) < minFreeGB {
		return fmt.Errorf("insufficient disk space: %d GB free, %d GB required",
			freeSpaceGB, minFreeGB)
	}

	return nil
}
