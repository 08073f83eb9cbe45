package chronicle

// maxThreadIDBits and minThreadIDBits bound the auto-detected TB to the
// range [14,18]. Values outside this window are clamped so a host with
// an unusual pid_max still produces a workable layout. An explicit
// Config.ThreadIDBits override is not clamped; Config.Validate rejects
// one outside this range.
const (
	minThreadIDBits = 14
	maxThreadIDBits = 18
)

// clampThreadIDBits bounds tb to [minThreadIDBits, maxThreadIDBits].
func clampThreadIDBits(tb uint) uint {
	if tb < minThreadIDBits {
		return minThreadIDBits
	}
	if tb > maxThreadIDBits {
		return maxThreadIDBits
	}
	return tb
}

// defaultThreadIDBits derives TB from the host's maximum pid value.
// Platform-specific probes live in threadid_unix.go and
// threadid_windows.go.
func defaultThreadIDBits() uint {
	return clampThreadIDBits(ThreadIDBits(hostPIDMax()))
}
