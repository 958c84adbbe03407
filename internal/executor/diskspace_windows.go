//go:build windows

package executor

import (
	"fmt"
	"syscall"
	"unsafe"
)

// checkDiskSpace verifies the destination filesystem has at least minFreeGB
// gigabytes available (Windows)
func checkDiskSpace(path string, minFreeGB int) error {
	if minFreeGB <= 0 {
		return nil
	}

	kernel32 := syscall.NewLazyDLL("kernel32.dll")
	getDiskFreeSpaceEx := kernel32.NewProc("GetDiskFreeSpaceExW")

	var freeBytes uint64
	var totalBytes uint64
	var availBytes uint64

	pathPtr, err := syscall.UTF16PtrFromString(path)
	if err != nil {
		return fmt.Errorf("failed to convert path: %w", err)
	}

	ret, _, err := getDiskFreeSpaceEx.Call(
		uintptr(unsafe.Pointer(pathPtr)),
		uintptr(unsafe.Pointer(&freeBytes)),
		uintptr(unsafe.Pointer(&totalBytes)),
		uintptr(unsafe.Pointer(&availBytes)),
	)
	if ret == 0 {
		return fmt.Errorf("failed to check disk space: %w", err)
	}

	freeSpaceGB := freeBytes / (1024 * 1024 * 1024)
	if int(freeSpaceGB) < minFreeGB {
		return fmt.Errorf("insufficient disk space: %d GB free, %d GB required",
			freeSpaceGB, minFreeGB)
	}

	return nil
}
