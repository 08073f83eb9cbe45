//go:build darwin

// Host pid_max and thread-id probes for Darwin. There is no pid_max
// sysctl equivalent to Linux's, so TB is derived from the fixed
// PID_MAX kernel constant Darwin has used since XNU's inception; the
// clamp to [14,18] in threadid.go absorbs any drift.
package chronicle

import "golang.org/x/sys/unix"

// darwinPIDMax mirrors XNU's compile-time PID_MAX.
const darwinPIDMax = 99999

func hostPIDMax() uint64 {
	return darwinPIDMax
}

// currentThreadID returns the kernel thread id via the thread_selfid
// syscall, Darwin's gettid-equivalent.
func currentThreadID() uint64 {
	id, err := unix.ThreadSelfid()
	if err != nil {
		// thread_selfid should never fail for a live thread; fall back
		// to the process id rather than crash the appender.
		return uint64(unix.Getpid())
	}
	return id
}
