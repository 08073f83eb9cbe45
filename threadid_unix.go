//go:build linux

// Host pid_max and gettid probes for Linux, split from the
// cross-platform helpers in threadid.go the same way lock_unix.go
// splits flock from the cross-platform fileLock wrapper.
package chronicle

import (
	"os"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// defaultPIDMax is used when /proc/sys/kernel/pid_max cannot be read
// (e.g. a sandboxed /proc). It matches the common Linux default and
// yields TB=18, the upper end of the documented range.
const defaultPIDMax = 1 << 22

// hostPIDMax reads the kernel's maximum pid value from
// /proc/sys/kernel/pid_max.
func hostPIDMax() uint64 {
	data, err := os.ReadFile("/proc/sys/kernel/pid_max")
	if err != nil {
		return defaultPIDMax
	}
	v, err := strconv.ParseUint(strings.TrimSpace(string(data)), 10, 64)
	if err != nil || v == 0 {
		return defaultPIDMax
	}
	return v
}

// currentThreadID returns the OS thread id of the calling goroutine's
// underlying OS thread, the gettid-equivalent capability.
// Callers must runtime.LockOSThread before relying on this value
// staying stable across multiple calls within the same appender.
func currentThreadID() uint64 {
	return uint64(unix.Gettid())
}
