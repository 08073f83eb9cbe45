//go:build windows

// Host pid_max and thread-id probes for Windows.
package chronicle

import "golang.org/x/sys/windows"

// windowsPIDMax is the largest value a Windows process id can take
// (PIDs are multiples of 4 up to this ceiling on 64-bit systems).
const windowsPIDMax = 1 << 22

func hostPIDMax() uint64 {
	return windowsPIDMax
}

// currentThreadID returns the Windows thread id, the gettid-equivalent
// capability.
func currentThreadID() uint64 {
	return uint64(windows.GetCurrentThreadId())
}
