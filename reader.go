// Reader walks index slots in global order, resolving each
// published slot to a view into the owning data mapping. Supports seek
// by global index or date, end-of-today positioning, tail polling for
// new data, and transparent advance across day boundaries.
package chronicle

import (
	"errors"
	"fmt"
	"time"
)

// Record is a single framed record view yielded by the Reader: the
// global index it was published under and a CodecReader positioned at
// the start of its payload bytes, ready for GetLength/ReadXxx calls.
type Record struct {
	Index  int64
	Reader *CodecReader
}

// Reader reads records from a chronicle in global order.
type Reader struct {
	state *cycleState
	i     int64
	tb    uint
	open  bool
}

// NewReader opens a Reader against cfg.BaseDir, positioned per
// cfg.Date/cfg.FullIndex. At most one of HasDate/HasFullIndex may be
// set; with neither set the reader starts at the earliest cycle.
func NewReader(cfg Config) (*Reader, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	state, err := newCycleState(cfg, false)
	if err != nil {
		return nil, err
	}

	r := &Reader{state: state, tb: cfg.ThreadIDBits, open: true}

	switch {
	case cfg.HasFullIndex:
		date, i := FromFullIndex(cfg.FullIndex)
		if err := state.selectCycle(cycleNameForDate(date), date); err != nil {
			r.Close()
			return nil, err
		}
		r.i = i
	case cfg.HasDate:
		if err := r.SetDate(cfg.Date); err != nil {
			r.Close()
			return nil, err
		}
	default:
		name, err := state.dirs.first()
		if err != nil {
			r.Close()
			return nil, err
		}
		date, err := dateForCycleName(name)
		if err != nil {
			r.Close()
			return nil, err
		}
		if err := state.selectCycle(name, date); err != nil {
			r.Close()
			return nil, err
		}
	}

	return r, nil
}

// Close releases every mapping and file handle the reader owns.
func (r *Reader) Close() error {
	if !r.open {
		return nil
	}
	r.open = false
	return r.state.close()
}

// GetIndex returns the global index of the reader's current position:
// the next record Next will yield. Fails ErrNoData when no cycle is
// selected.
func (r *Reader) GetIndex() (int64, error) {
	if !r.open {
		return 0, ErrClosed
	}
	if r.state.cycle == "" {
		return 0, ErrNoData
	}
	return r.state.fullIndexBase + r.i, nil
}

// SetIndex decodes g and repositions the reader, switching cycles if
// the encoded date differs from the current one.
func (r *Reader) SetIndex(g int64) error {
	date, i := FromFullIndex(g)
	name := cycleNameForDate(date)
	if name != r.state.cycle {
		if err := r.state.selectCycle(name, date); err != nil {
			return err
		}
	}
	r.i = i
	return nil
}

// SetDate selects the earliest cycle directory whose name is at or
// after YYYYMMDD(d).
func (r *Reader) SetDate(d time.Time) error {
	name, err := r.state.dirs.firstAtOrAfter(d)
	if err != nil {
		return err
	}
	date, err := dateForCycleName(name)
	if err != nil {
		return err
	}
	return r.state.selectCycle(name, date)
}

// SetEndIndexToday positions the reader just past the last published
// slot in the current cycle, via binary search over the slot stream.
func (r *Reader) SetEndIndexToday() error {
	lo := r.i
	if lo < 0 {
		lo = 0
	}
	slot, err := r.state.readSlot(lo)
	if err != nil {
		return err
	}
	if slot == 0 {
		r.i = lo
		return nil
	}

	hi := int64(EntriesPerIndexFile - 1)
	for {
		slot, err := r.state.readSlot(hi)
		if err != nil {
			return err
		}
		if slot == 0 {
			break
		}
		hi += EntriesPerIndexFile
	}

	for lo < hi {
		mid := lo + (hi-lo)/2
		slot, err := r.state.readSlot(mid)
		if err != nil {
			return err
		}
		if slot != 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}

	r.i = hi
	return nil
}

// pollDecision reports whether nextRawBytes should retry after
// observing an unused slot, implementing the tail-polling policy.
func (r *Reader) pollDecision() (retry bool, err error) {
	if r.state.date.Before(utcToday(r.state.cfg.Now())) {
		next, err := r.state.dirs.nextAfter(r.state.cycle)
		if err != nil {
			return false, err
		}
		if next != "" {
			date, err := dateForCycleName(next)
			if err != nil {
				return false, err
			}
			if err := r.state.selectCycle(next, date); err != nil {
				return false, err
			}
			r.i = 0
			return true, nil
		}
	}

	if r.state.cfg.PollingInterval == nil {
		return false, ErrNoData
	}
	if *r.state.cfg.PollingInterval > 0 {
		time.Sleep(*r.state.cfg.PollingInterval)
	}
	return true, nil
}

// nextRawBytes advances past the next published slot and returns its
// decoded location plus the data mapping it lives in.
func (r *Reader) nextRawBytes() (tid, filenum uint64, pos uint32, mp *mapping, err error) {
	for {
		slot, err := r.state.readSlot(r.i)
		if err != nil {
			return 0, 0, 0, nil, err
		}
		if slot != 0 {
			tid, filenum, pos := unpackSlot(slot, r.tb)
			dataMp, err := r.state.cache.dataMap(filenum, tid, false)
			if err != nil {
				if errors.Is(err, ErrNoData) {
					// A published slot's data file must already exist: the
					// writer creates it before the slot's CAS publication
					// can succeed. A missing file here means the slot
					// points at data that was never written, not that the
					// stream has ended.
					return 0, 0, 0, nil, fmt.Errorf("chronicle: data file for published slot %d missing: %w", r.i, ErrCorruptData)
				}
				return 0, 0, 0, nil, err
			}
			r.i++
			return tid, filenum, pos, dataMp, nil
		}

		retry, err := r.pollDecision()
		if err != nil {
			return 0, 0, 0, nil, err
		}
		if !retry {
			return 0, 0, 0, nil, ErrNoData
		}
	}
}

// Next advances to and returns the next record in global order,
// blocking per the configured polling policy when none is yet
// published. The returned Index is computed after nextRawBytes so that
// a record yielded just after an automatic day-boundary crossing still
// reports the cycle it actually came from, not the one the reader
// started the call in.
func (r *Reader) Next() (Record, error) {
	if !r.open {
		return Record{}, ErrClosed
	}
	if r.state.cycle == "" {
		return Record{}, ErrNoData
	}
	_, _, pos, mp, err := r.nextRawBytes()
	if err != nil {
		return Record{}, err
	}
	index := r.state.fullIndexBase + r.i - 1
	return Record{Index: index, Reader: NewCodecReader(mp.data, int(pos))}, nil
}
