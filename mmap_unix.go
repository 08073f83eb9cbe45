//go:build linux || darwin

// mmap(2) implementation for Unix platforms, grounded on the
// unix.Mmap/unix.Munmap pattern used to back a WAL file in the example
// pack (pkg/wal/mmap.go): map the whole file region MAP_SHARED so writes
// are visible to every process holding the same mapping.
package chronicle

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

func mmapOpen(f *os.File, size int, writable bool) (*mapping, error) {
	prot := unix.PROT_READ
	if writable {
		prot |= unix.PROT_WRITE
	}
	data, err := unix.Mmap(int(f.Fd()), 0, size, prot, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("%w: mmap: %w", ErrMap, err)
	}
	return &mapping{data: data}, nil
}

func mmapClose(m *mapping) error {
	if m.data == nil {
		return nil
	}
	if err := unix.Munmap(m.data); err != nil {
		return fmt.Errorf("%w: munmap: %w", ErrMap, err)
	}
	m.data = nil
	return nil
}
