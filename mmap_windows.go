//go:build windows

// CreateFileMapping/MapViewOfFile implementation for Windows, mirroring
// the shape of the Unix mmap primitives: map the whole file region as a
// shared view so writes made through one process's view are visible to
// every other process with a view of the same file.
package chronicle

import (
	"fmt"
	"os"
	"reflect"
	"unsafe"

	"golang.org/x/sys/windows"
)

func mmapOpen(f *os.File, size int, writable bool) (*mapping, error) {
	protect := uint32(windows.PAGE_READONLY)
	access := uint32(windows.FILE_MAP_READ)
	if writable {
		protect = windows.PAGE_READWRITE
		access = windows.FILE_MAP_WRITE
	}

	h, err := windows.CreateFileMapping(windows.Handle(f.Fd()), nil, protect, 0, uint32(size), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: CreateFileMapping: %w", ErrMap, err)
	}
	defer windows.CloseHandle(h)

	addr, err := windows.MapViewOfFile(h, access, 0, 0, uintptr(size))
	if err != nil {
		return nil, fmt.Errorf("%w: MapViewOfFile: %w", ErrMap, err)
	}

	var data []byte
	sh := (*reflect.SliceHeader)(unsafe.Pointer(&data))
	sh.Data = addr
	sh.Len = size
	sh.Cap = size

	return &mapping{data: data}, nil
}

func mmapClose(m *mapping) error {
	if m.data == nil {
		return nil
	}
	addr := uintptr(unsafe.Pointer(&m.data[0]))
	if err := windows.UnmapViewOfFile(addr); err != nil {
		return fmt.Errorf("%w: UnmapViewOfFile: %w", ErrMap, err)
	}
	m.data = nil
	return nil
}
