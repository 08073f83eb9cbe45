// Mapping cache: owns data-file handles and their active mappings,
// keyed by (filenum, thread). Index files are not evicted —
// their footprint is bounded by the (small) number of index files a
// cycle ever opens — but data mappings are bounded on platforms where
// address space or handle count is scarce, via insertion-ordered (FIFO)
// eviction once MaxMappedMemory is exceeded.
package chronicle

import (
	"fmt"
	"log/slog"
	"os"
)

// mapKey identifies one data-file mapping within a single cycle
// directory.
type mapKey struct {
	filenum uint64
	tid     uint64
}

// mapEntry bundles the open file handle with its live mapping so both
// can be released together on eviction or Close.
type mapEntry struct {
	file    *os.File
	mapping *mapping
	size    int64
}

// mappingCache is a process-local cache of open data-file mappings for
// one cycle directory. It is not internally synchronised: the cache is
// mutated from a single Chronicle-owning goroutine at a time (one
// Appender per OS thread).
type mappingCache struct {
	dirs    *cycleDirSet
	cycle   string
	budget  int64 // 0 = unbounded
	used    int64
	order   []mapKey
	entries map[mapKey]*mapEntry
	logger  *slog.Logger
}

// newMappingCache returns a cache scoped to one cycle directory.
func newMappingCache(dirs *cycleDirSet, cycle string, budget int64, logger *slog.Logger) *mappingCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &mappingCache{
		dirs:    dirs,
		cycle:   cycle,
		budget:  budget,
		entries: make(map[mapKey]*mapEntry),
		logger:  logger,
	}
}

// dataMap returns the mapping for (filenum, tid), opening the backing
// file and mapping it on miss. Writers get a read/write mapping over a
// freshly preallocated file; readers get a read-only mapping and fail
// with ErrNoData if the file does not exist yet.
func (m *mappingCache) dataMap(filenum, tid uint64, writable bool) (*mapping, error) {
	key := mapKey{filenum: filenum, tid: tid}
	if e, ok := m.entries[key]; ok {
		return e.mapping, nil
	}

	name := cyclePath(m.cycle, dataFileName(tid, filenum))
	f, err := m.dirs.openFixedSizeFile(name, DataFileSize, writable)
	if err != nil {
		return nil, err
	}

	var mp *mapping
	if writable {
		mp, err = openWriteMapping(f, DataFileSize)
	} else {
		mp, err = openReadMapping(f, DataFileSize)
	}
	if err != nil {
		f.Close()
		return nil, err
	}

	m.entries[key] = &mapEntry{file: f, mapping: mp, size: DataFileSize}
	m.order = append(m.order, key)
	m.used += DataFileSize

	m.evictIfNeeded(key)
	return mp, nil
}

// evictIfNeeded closes and drops the oldest entries until the cache is
// within budget, skipping the entry that was just inserted (keep, the
// caller still needs it).
func (m *mappingCache) evictIfNeeded(keep mapKey) {
	if m.budget == 0 {
		return
	}
	for m.used > m.budget && len(m.order) > 0 {
		oldest := m.order[0]
		if oldest == keep && len(m.order) == 1 {
			break
		}
		if oldest == keep {
			// Rotate keep to the back so we can evict the true oldest.
			m.order = append(m.order[1:], oldest)
			continue
		}
		m.order = m.order[1:]
		e, ok := m.entries[oldest]
		if !ok {
			continue
		}
		delete(m.entries, oldest)
		m.used -= e.size
		if err := closeEntry(e); err != nil {
			m.logger.Warn("chronicle: mapping cache eviction close failed", "error", err)
		} else {
			m.logger.Debug("chronicle: mapping cache evicted entry", "filenum", oldest.filenum, "tid", oldest.tid)
		}
	}
}

// closeAll releases every open mapping and file handle owned by the
// cache.
func (m *mappingCache) closeAll() error {
	var firstErr error
	for key, e := range m.entries {
		if err := closeEntry(e); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(m.entries, key)
	}
	m.order = nil
	m.used = 0
	return firstErr
}

func closeEntry(e *mapEntry) error {
	var errs []error
	if err := e.mapping.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := e.file.Close(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("chronicle: close mapping: %w", errs[0])
	}
	return nil
}
