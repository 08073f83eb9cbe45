// Memory-map primitives. These are the only primitives that cross the
// process boundary: every writer/reader coordination point in
// the journal is an atomic load or compare-and-swap against bytes backed
// by one of these mappings. Platform-specific halves live in
// mmap_unix.go and mmap_windows.go, split the same way the teacher
// splits OS-level file locking across lock_unix.go/lock_windows.go.
package chronicle

import (
	"fmt"
	"os"
	"sync/atomic"
	"unsafe"
)

// mapping is an open memory-map of a fixed-size region of a file. data
// has exactly the requested length; byte offsets into it are relative to
// the start of the mapping (== start of the file, since the journal
// always maps [0, size)).
type mapping struct {
	data []byte
}

// openReadMapping maps [0, size) of f read-only, shared. Fails with
// ErrMap wrapping the OS error.
func openReadMapping(f *os.File, size int) (*mapping, error) {
	return mmapOpen(f, size, false)
}

// openWriteMapping maps [0, size) of f read/write, shared, so writes are
// visible to every other process mapping the same file.
func openWriteMapping(f *os.File, size int) (*mapping, error) {
	return mmapOpen(f, size, true)
}

// Close unmaps the region. Safe to call once; calling it twice is a bug
// in the caller (mappings are owned by exactly one mapping-cache entry).
func (m *mapping) Close() error {
	return mmapClose(m)
}

// alignedPtr returns a pointer to the int64 word at byteOffset, which
// must be a multiple of 8 and within the mapping.
func (m *mapping) alignedPtr(byteOffset int64) (*int64, error) {
	if byteOffset < 0 || byteOffset%8 != 0 || byteOffset+8 > int64(len(m.data)) {
		return nil, fmt.Errorf("chronicle: misaligned mapping offset %d: %w", byteOffset, ErrInvalidArgument)
	}
	return (*int64)(unsafe.Pointer(&m.data[byteOffset])), nil
}

// read64 performs an aligned atomic 8-byte load at byteOffset.
func (m *mapping) read64(byteOffset int64) (int64, error) {
	ptr, err := m.alignedPtr(byteOffset)
	if err != nil {
		return 0, err
	}
	return atomic.LoadInt64(ptr), nil
}

// cas64 performs an atomic compare-and-swap at byteOffset, returning the
// value observed in memory immediately prior to the attempt. Success is
// indicated by the returned value equalling expected. Sequential
// consistency is used throughout, which satisfies the acquire/release
// minimum the multi-writer publication protocol requires.
func (m *mapping) cas64(byteOffset int64, expected, newVal int64) (int64, error) {
	ptr, err := m.alignedPtr(byteOffset)
	if err != nil {
		return 0, err
	}
	for {
		old := atomic.LoadInt64(ptr)
		if old != expected {
			return old, nil
		}
		if atomic.CompareAndSwapInt64(ptr, expected, newVal) {
			return expected, nil
		}
		// Another writer raced us between the load and the CAS attempt
		// above (both observed `expected`, only one wins the hardware
		// CAS); reload and re-evaluate rather than report a spurious
		// failure.
	}
}
