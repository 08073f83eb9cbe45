// Day rollover: when a writer observes the wall clock has
// crossed into a new UTC day, it must elect a leader to create
// tomorrow's cycle directory and re-point its cycleState at it. The
// election is a plain os.Mkdir race: the first writer to succeed is the
// leader; everyone else observes fs.ErrExist and follows.
package chronicle

import "time"

// rollover switches the writer's cycleState to date's cycle directory,
// creating it if necessary. It reports whether this call won the
// leader election (created the directory) so callers that were
// mid-record when rollover fired know whether their in-progress bytes
// are still valid (only the leader can be sure the directory, and
// hence its filenum-0 data file, did not already exist with other
// content written to it by a previous leader).
func (w *Writer) rollover(date time.Time) (leader bool, err error) {
	name := cycleNameForDate(date)
	if name == w.state.cycle {
		return false, nil
	}

	leader, _, err = w.state.dirs.mkdirCycle(date)
	if err != nil {
		return false, err
	}

	if err := w.state.selectCycle(name, date); err != nil {
		return false, err
	}
	if _, err := w.state.idx.ensure(0); err != nil {
		return false, err
	}
	if _, err := w.state.idx.ensure(1); err != nil {
		return false, err
	}

	w.endI = 0
	w.nextSlot = 0
	w.slotInit = false
	w.positions = make(map[uint64]position)

	w.state.cfg.Logger.Debug("chronicle: day rollover", "cycle", name, "leader", leader)
	return leader, nil
}

// publish reserves the next unused global slot in the writer's current
// cycle via CAS, starting from the writer's cached low-water mark and
// advancing past every slot already taken by a concurrent writer. It
// does not itself decide whether a day has rolled over; callers must
// call rollover first when appropriate.
//
// The low-water mark is seeded from the end-of-today binary search on
// first use (a lazy "i = end_of_today()" positioning), rather than from
// a linear scan of slot 0, so a writer opened against an
// already-populated cycle does not re-walk every existing record before
// finding free space.
func (w *Writer) publish(value uint64) error {
	if !w.slotInit {
		if err := w.ensureEndPositioned(); err != nil {
			return err
		}
		w.nextSlot = w.endI
		w.slotInit = true
	}

	for i := w.nextSlot; ; i++ {
		actual, err := w.state.casSlot(i, 0, value)
		if err != nil {
			return err
		}
		if actual == 0 {
			w.nextSlot = i + 1
			return nil
		}
	}
}
