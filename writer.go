// Writer (Appender): a Reader specialisation that reserves index
// slots via CAS and writes framed records into thread-exclusive data
// files. A Writer tracks, per OS thread id, the next free (filenum, pos)
// to write at; an Appender is the active record scope for one thread.
package chronicle

import (
	"fmt"
	"time"
)

// position is a thread's next free write location within its own data
// files.
type position struct {
	filenum uint64
	pos     int64
}

// Writer coordinates append-only record publication into one
// chronicle. A single process may share a Writer across several
// threads provided each obtains its own Appender via NewAppender.
type Writer struct {
	state     *cycleState
	tb        uint
	positions map[uint64]position
	endI      int64 // cached end-of-today index for recoverPosition scans
	nextSlot  int64 // lowest global slot not yet known to be taken
	slotInit  bool  // whether nextSlot has been seeded from end_of_today
	open      bool
}

// NewWriter opens (creating if necessary) today's cycle directory and
// returns a Writer ready to hand out Appenders.
func NewWriter(cfg Config) (*Writer, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	state, err := newCycleState(cfg, true)
	if err != nil {
		return nil, err
	}

	w := &Writer{state: state, tb: cfg.ThreadIDBits, positions: make(map[uint64]position), open: true}

	today := utcToday(cfg.Now())
	name, err := state.dirs.todayPath(today)
	if err != nil {
		w.Close()
		return nil, err
	}
	if err := state.selectCycle(name, today); err != nil {
		w.Close()
		return nil, err
	}
	// Open index-0 eagerly, and index-1 to avoid a second fault under
	// load at the first file boundary.
	if _, err := state.idx.ensure(0); err != nil {
		w.Close()
		return nil, err
	}
	if _, err := state.idx.ensure(1); err != nil {
		w.Close()
		return nil, err
	}

	return w, nil
}

// Close releases every mapping and file handle the writer owns.
func (w *Writer) Close() error {
	if !w.open {
		return nil
	}
	w.open = false
	return w.state.close()
}

// recoverPosition recovers the next free (filenum, pos) for tid by
// scanning published slots backward from the end of the cycle. Safe
// because data files are named by tid and never shared across Writers.
func (w *Writer) recoverPosition(tid uint64) (position, error) {
	if err := w.ensureEndPositioned(); err != nil {
		return position{}, err
	}
	for i := w.endI - 1; i >= 0; i-- {
		slot, err := w.state.readSlot(i)
		if err != nil {
			return position{}, err
		}
		if slot == 0 {
			continue
		}
		slotTid, filenum, pos := unpackSlot(slot, w.tb)
		if slotTid != tid {
			continue
		}
		mp, err := w.state.cache.dataMap(filenum, tid, true)
		if err != nil {
			return position{}, err
		}
		length, err := NewCodecReader(mp.data, int(pos)).GetLength()
		if err != nil {
			return position{}, err
		}
		end := int64(pos) + int64(length) + 4
		return position{filenum: filenum, pos: end}, nil
	}
	return position{filenum: 0, pos: 4}, nil
}

// ensureEndPositioned lazily computes endI via the same binary search
// the Reader uses for SetEndIndexToday.
func (w *Writer) ensureEndPositioned() error {
	if w.endI != 0 {
		return nil
	}
	lo := int64(0)
	slot, err := w.state.readSlot(lo)
	if err != nil {
		return err
	}
	if slot == 0 {
		w.endI = 0
		return nil
	}
	hi := int64(EntriesPerIndexFile - 1)
	for {
		slot, err := w.state.readSlot(hi)
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
		slot, err := w.state.readSlot(mid)
		if err != nil {
			return err
		}
		if slot != 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	w.endI = hi
	return nil
}

// positionFor returns the writer's known next-write position for tid,
// recovering it from the index on first use.
func (w *Writer) positionFor(tid uint64) (position, error) {
	if p, ok := w.positions[tid]; ok {
		return p, nil
	}
	p, err := w.recoverPosition(tid)
	if err != nil {
		return position{}, err
	}
	w.positions[tid] = p
	return p, nil
}

// Appender is the active record-writing scope for one OS thread. It
// must not be shared across goroutines running on different OS threads;
// obtain one Appender per thread via NewAppender.
type Appender struct {
	w         *Writer
	tid       uint64
	filenum   uint64
	pos       int64
	startPos  int64
	startDate time.Time
	started   bool
	cw        *CodecWriter
	mp        *mapping
}

// NewAppender returns an Appender bound to the calling thread's OS
// thread id (masked by TB). Callers on goroutines that may migrate
// between OS threads must runtime.LockOSThread first.
func NewAppender(w *Writer) (*Appender, error) {
	tid := currentThreadID() & ((uint64(1) << w.tb) - 1)
	p, err := w.positionFor(tid)
	if err != nil {
		return nil, err
	}
	return &Appender{w: w, tid: tid, filenum: p.filenum, pos: p.pos}, nil
}

// Begin starts a new record, returning a CodecWriter positioned at the
// start of the payload region (past the 4-byte length hole). It
// triggers day rollover if the wall clock has crossed midnight since
// the writer's current cycle date. rollover is always attempted (it is
// a cheap no-op when the cycle has not changed) and the appender's
// position is always resynced from the Writer's authoritative
// positions table afterward, so a rollover triggered by a *different*
// appender sharing this Writer is picked up too.
func (a *Appender) Begin() (*CodecWriter, error) {
	if !a.w.open {
		return nil, ErrClosed
	}
	a.startDate = utcToday(a.w.state.cfg.Now())
	a.started = true

	if _, err := a.w.rollover(a.startDate); err != nil {
		return nil, err
	}
	p, err := a.w.positionFor(a.tid)
	if err != nil {
		return nil, err
	}
	a.filenum = p.filenum
	a.pos = p.pos

	mp, err := a.w.state.cache.dataMap(a.filenum, a.tid, true)
	if err != nil {
		return nil, err
	}
	a.mp = mp
	a.startPos = a.pos
	if int(a.pos)+a.w.state.cfg.MaxMsgSize >= len(mp.data) {
		return nil, ErrNoSpace
	}
	a.cw = NewCodecWriter(mp.data, int(a.pos))
	return a.cw, nil
}

// Finish completes the current record: writes the length sentinel,
// publishes the index slot, and advances the writer's position for
// this thread past the next record's length hole.
func (a *Appender) Finish() error {
	if !a.started || a.cw == nil {
		return fmt.Errorf("chronicle: finish called without begin: %w", ErrInvalidArgument)
	}
	defer func() { a.started = false; a.cw = nil }()

	a.pos = int64(a.cw.Pos())
	length := a.pos - a.startPos

	now := utcToday(a.w.state.cfg.Now())
	if !now.Equal(a.startDate) {
		// Midnight crossed mid-record: preserve the bytes, roll over,
		// and rewrite them at the front of the new cycle's filenum 0.
		saved := make([]byte, length)
		copy(saved, a.mp.data[a.startPos:a.pos])

		leader, err := a.w.rollover(now)
		if err != nil {
			return err
		}
		if !leader {
			// This appender did not win the rollover race and therefore
			// cannot be sure today's directory existed when it started
			// writing; the in-progress record is lost. Recover this
			// thread's true position in the (possibly already-written-to)
			// new cycle rather than assuming it is empty.
			p, perr := a.w.positionFor(a.tid)
			if perr != nil {
				return perr
			}
			a.filenum, a.pos, a.startPos = p.filenum, p.pos, p.pos
			return ErrPartialWriteLostOnRollover
		}

		mp, err := a.w.state.cache.dataMap(0, a.tid, true)
		if err != nil {
			return err
		}
		a.mp = mp
		a.filenum = 0
		a.startPos = 4
		copy(a.mp.data[4:4+length], saved)
		a.pos = a.startPos + length
	}

	w := NewCodecWriter(a.mp.data, int(a.pos))
	if err := w.WriteLengthSentinel(int(a.startPos)); err != nil {
		return err
	}

	value := packSlot(a.tid, a.filenum, uint32(a.startPos), a.w.tb)
	if err := a.w.publish(value); err != nil {
		return err
	}

	if int(a.pos)+a.w.state.cfg.MaxMsgSize > len(a.mp.data) {
		a.pos = 0
		a.filenum++
	}
	a.pos += 4
	a.w.positions[a.tid] = position{filenum: a.filenum, pos: a.pos}
	a.startPos = a.pos
	a.startDate = time.Time{}
	return nil
}
