package chronicle

import (
	"log/slog"
	"runtime"
	"time"
)

// Size layout constants for the on-disk file formats.
const (
	// DataFileSize is the fixed size of every data-T-F file.
	DataFileSize = 64 * 1024 * 1024

	// IndexFileSize is the fixed size of every index-N file.
	IndexFileSize = 16 * 1024 * 1024

	// IndexSlotSize is the width in bytes of a single index slot.
	IndexSlotSize = 8

	// EntriesPerIndexFile is the number of 8-byte slots in one index
	// file: IndexFileSize / IndexSlotSize = 2^21.
	EntriesPerIndexFile = IndexFileSize / IndexSlotSize

	// defaultMaxMsgSize is the threshold for advancing to the next data
	// file.
	defaultMaxMsgSize = 64 * 1024

	// defaultMaxMappedMemory bounds the mapping cache's resident data
	// mappings on platforms where address space or handle count is
	// constrained (Windows). Unbounded (Config.MaxMappedMemory == 0) is
	// the default on Unix.
	defaultMaxMappedMemory = 1 << 30 // 1 GiB
)

// Config collects the options a Reader or Writer is opened with.
type Config struct {
	// BaseDir is the root path under which cycle directories live. It
	// must exist or be creatable.
	BaseDir string

	// Date is the starting cycle date for a Reader/Writer. Mutually
	// exclusive with FullIndex.
	Date time.Time

	// HasDate reports whether Date was explicitly set. Needed because
	// the zero time.Time is itself a valid, if unusual, Date value.
	HasDate bool

	// FullIndex is the starting global index. Mutually exclusive with
	// Date/HasDate.
	FullIndex int64

	// HasFullIndex reports whether FullIndex was explicitly set.
	HasFullIndex bool

	// PollingInterval selects the Reader's blocking policy: nil means
	// non-blocking (fails ErrNoData immediately), 0 means busy-spin, and
	// any positive duration sleeps between polls.
	PollingInterval *time.Duration

	// MaxMappedMemory bounds the mapping cache's resident data mappings
	// in bytes. Zero means unbounded on Unix; on Windows a zero value is
	// replaced by defaultMaxMappedMemory. If set, it must be at least
	// DataFileSize.
	MaxMappedMemory int64

	// ThreadIDBits overrides the auto-detected TB. Must match between
	// writers and readers sharing a chronicle, or index slots are
	// undecodable (ErrCorruptData).
	ThreadIDBits uint

	// Now is the injected clock capability: all "today" logic depends
	// on this, never on a process-global. Defaults to time.Now.
	Now func() time.Time

	// MaxMsgSize is the appender's threshold for advancing to the next
	// data file when the remaining space in the current file would be
	// too small to safely hold another record.
	MaxMsgSize int

	// VerifyChecksums enables the optional xxh3 payload fingerprinting
	// hook used by fuzz/property tests to detect torn writes
	// (checksum.go). Disabled by default; it is not part of the
	// on-disk format.
	VerifyChecksums bool

	// Logger receives rollover leader/follower outcomes and mapping
	// cache eviction events. Defaults to slog.Default(). The core never
	// logs from the hot append/read path.
	Logger *slog.Logger
}

// withDefaults returns a copy of c with zero-value fields filled with
// their documented defaults, mirroring the teacher's Open() default-
// filling block.
func (c Config) withDefaults() Config {
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.MaxMsgSize == 0 {
		c.MaxMsgSize = defaultMaxMsgSize
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.ThreadIDBits == 0 {
		c.ThreadIDBits = defaultThreadIDBits()
	}
	if c.MaxMappedMemory == 0 && runtime.GOOS == "windows" {
		c.MaxMappedMemory = defaultMaxMappedMemory
	}
	return c
}

// Validate checks the configuration invariants: a finite
// MaxMappedMemory must cover at least one data file, and Date and
// FullIndex are mutually exclusive starting points.
func (c Config) Validate() error {
	if c.MaxMappedMemory != 0 && c.MaxMappedMemory < DataFileSize {
		return ErrConfigError
	}
	if c.HasDate && c.HasFullIndex {
		return ErrConfigError
	}
	if c.ThreadIDBits != 0 && (c.ThreadIDBits < minThreadIDBits || c.ThreadIDBits > maxThreadIDBits) {
		return ErrConfigError
	}
	return nil
}
