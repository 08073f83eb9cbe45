package chronicle

import (
	"errors"
	"fmt"
	"time"
)

// cycleState is the common cycle-scoped resource bundle shared by Reader
// and Writer: the base directory sandbox, the selected cycle directory,
// its mapping cache, and its open index-file set. Reader and Writer each
// embed one; Chronicle is the type that lets several Appenders share a
// single writable cycleState.
type cycleState struct {
	cfg   Config
	dirs  *cycleDirSet
	cache *mappingCache
	idx   *indexFileSet

	cycle         string
	date          time.Time
	fullIndexBase int64
	writable      bool
}

// newCycleState opens the base directory sandbox but does not yet
// select a cycle.
func newCycleState(cfg Config, writable bool) (*cycleState, error) {
	dirs, err := openCycleDirSet(cfg.BaseDir)
	if err != nil {
		return nil, err
	}
	return &cycleState{cfg: cfg, dirs: dirs, writable: writable}, nil
}

// selectCycle tears down the previous cycle's cache/index mappings (if
// any) and opens a fresh mapping cache and index-file set scoped to
// name/date.
func (s *cycleState) selectCycle(name string, date time.Time) error {
	if s.cache != nil {
		if err := s.cache.closeAll(); err != nil {
			return err
		}
	}
	if s.idx != nil {
		if err := s.idx.closeAll(); err != nil {
			return err
		}
	}
	s.cycle = name
	s.date = date
	s.fullIndexBase = ToFullIndex(date, 0)
	s.cache = newMappingCache(s.dirs, name, s.cfg.MaxMappedMemory, s.cfg.Logger)
	s.idx = newIndexFileSet(s.dirs, name, s.writable)
	return nil
}

// readSlot returns the raw 8-byte index slot value at intra-day
// sequence i, or 0 if the backing index file does not exist yet (a
// missing index file collapses to "slot unused", i.e. end of stream).
func (s *cycleState) readSlot(i int64) (uint64, error) {
	fileNum, off := slotLocation(i)
	mp, err := s.idx.ensure(fileNum)
	if err != nil {
		if errors.Is(err, ErrNoData) {
			return 0, nil
		}
		return 0, err
	}
	v, err := mp.read64(off)
	if err != nil {
		return 0, err
	}
	return uint64(v), nil
}

// casSlot performs the CAS publication attempt at intra-day sequence i.
// Only meaningful on a writable cycleState.
func (s *cycleState) casSlot(i int64, expected, newVal uint64) (uint64, error) {
	fileNum, off := slotLocation(i)
	mp, err := s.idx.ensure(fileNum)
	if err != nil {
		return 0, err
	}
	actual, err := mp.cas64(off, int64(expected), int64(newVal))
	if err != nil {
		return 0, err
	}
	return uint64(actual), nil
}

// close releases every resource owned by this cycleState.
func (s *cycleState) close() error {
	var errs []error
	if s.idx != nil {
		if err := s.idx.closeAll(); err != nil {
			errs = append(errs, err)
		}
	}
	if s.cache != nil {
		if err := s.cache.closeAll(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.dirs.Close(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("chronicle: close: %w", errs[0])
	}
	return nil
}

// utcToday returns the UTC calendar date of t with the time-of-day
// component truncated, used throughout for cycle-date comparisons.
func utcToday(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
