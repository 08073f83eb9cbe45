// Package chronicle implements a Vanilla Chronicle message journal: an
// append-only, memory-mapped, multi-writer/multi-reader log persisted as
// per-day directories of fixed-size index and data files.
//
// Producers append length-prefixed binary records and receive a
// monotonically increasing 64-bit index; consumers iterate records in
// global order, across day boundaries, with optional polling for new
// data. Cross-process coordination between writers is achieved
// exclusively through atomic compare-and-swap on shared memory mappings.
package chronicle

import "errors"

// Sentinel errors returned by chronicle operations.
var (
	// ErrNoData is returned when no published record is available under
	// a non-blocking polling policy, or when a reader has exhausted the
	// stream with polling disabled.
	ErrNoData = errors.New("chronicle: no data")

	// ErrNoSpace is returned when the current data file cannot hold the
	// pending write. Should not occur if max_msg_size is honoured.
	ErrNoSpace = errors.New("chronicle: no space in data file")

	// ErrPartialWriteLostOnRollover is returned when midnight was crossed
	// mid-record and the appender was not the rollover leader.
	ErrPartialWriteLostOnRollover = errors.New("chronicle: partial write lost on day rollover")

	// ErrCorruptData is returned when an expected data file is missing
	// for a published slot, or the thread-id-bits configuration does not
	// match the data that produced a chronicle.
	ErrCorruptData = errors.New("chronicle: corrupt data")

	// ErrConfigError is returned for invalid configuration, such as a
	// max_mapped_memory budget smaller than one data file, or specifying
	// both a starting date and a starting full index.
	ErrConfigError = errors.New("chronicle: invalid configuration")

	// ErrInvalidArgument is returned for out-of-range primitive values,
	// such as a negative stop-bit integer or an oversized fixed string.
	ErrInvalidArgument = errors.New("chronicle: invalid argument")

	// ErrClosed is returned when operating on a closed chronicle.
	ErrClosed = errors.New("chronicle: closed")

	// ErrMap is returned when an OS mapping primitive fails. Chronicle
	// state must be treated as corrupt after this error and reopened.
	ErrMap = errors.New("chronicle: mmap failure")
)
