// Cycle directory enumeration and selection. A cycle is a directory
// named YYYYMMDD under the chronicle's base directory. Every path this
// package touches is resolved relative to a single *os.Root rooted at
// Config.BaseDir, so a crafted cycle name or symlink cannot escape the
// base directory.
package chronicle

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"regexp"
	"sort"
	"time"
)

// cycleNameLayout is the time.Parse layout matching the YYYYMMDD
// directory name format.
const cycleNameLayout = "20060102"

// cycleNamePattern matches valid cycle directory names: exactly 8
// digits.
var cycleNamePattern = regexp.MustCompile(`^[0-9]{8}$`)

// cycleDirSet enumerates and selects per-day directories under a base
// directory.
type cycleDirSet struct {
	root *os.Root
}

// openCycleDirSet opens (creating if necessary) the base directory as
// an os.Root sandbox.
func openCycleDirSet(baseDir string) (*cycleDirSet, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("chronicle: create base dir: %w", err)
	}
	root, err := os.OpenRoot(baseDir)
	if err != nil {
		return nil, fmt.Errorf("chronicle: open base dir: %w", err)
	}
	return &cycleDirSet{root: root}, nil
}

// Close releases the base directory handle.
func (c *cycleDirSet) Close() error {
	return c.root.Close()
}

// cycleNameForDate formats a UTC date as its YYYYMMDD directory name.
func cycleNameForDate(date time.Time) string {
	return date.UTC().Format(cycleNameLayout)
}

// dateForCycleName parses a YYYYMMDD directory name as a UTC date.
func dateForCycleName(name string) (time.Time, error) {
	t, err := time.ParseInLocation(cycleNameLayout, name, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("chronicle: parse cycle name %q: %w", name, err)
	}
	return t, nil
}

// list returns every valid cycle directory name under the base
// directory, sorted ascending.
func (c *cycleDirSet) list() ([]string, error) {
	f, err := c.root.Open(".")
	if err != nil {
		return nil, err
	}
	defer f.Close()

	entries, err := f.ReadDir(-1)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() && cycleNamePattern.MatchString(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// first returns the earliest cycle directory, or ErrNoData if none
// exist.
func (c *cycleDirSet) first() (string, error) {
	names, err := c.list()
	if err != nil {
		return "", err
	}
	if len(names) == 0 {
		return "", ErrNoData
	}
	return names[0], nil
}

// firstAtOrAfter returns the earliest cycle directory whose name is >=
// YYYYMMDD(date), or ErrNoData if none exist.
func (c *cycleDirSet) firstAtOrAfter(date time.Time) (string, error) {
	names, err := c.list()
	if err != nil {
		return "", err
	}
	target := cycleNameForDate(date)
	idx := sort.SearchStrings(names, target)
	if idx >= len(names) {
		return "", ErrNoData
	}
	return names[idx], nil
}

// nextAfter returns the cycle directory immediately after current in
// sorted order, or "" with no error if current is the last one.
func (c *cycleDirSet) nextAfter(current string) (string, error) {
	names, err := c.list()
	if err != nil {
		return "", err
	}
	idx := sort.SearchStrings(names, current)
	if idx < len(names) && names[idx] == current && idx+1 < len(names) {
		return names[idx+1], nil
	}
	return "", nil
}

// todayPath returns (creating it if missing) the cycle directory name
// for utcnow, for writer use.
func (c *cycleDirSet) todayPath(utcnow time.Time) (string, error) {
	name := cycleNameForDate(utcnow)
	if err := c.root.Mkdir(name, 0o755); err != nil && !os.IsExist(err) {
		return "", fmt.Errorf("chronicle: create cycle dir %q: %w", name, err)
	}
	return name, nil
}

// mkdirCycle attempts to create the cycle directory for date. It
// returns (true, nil) if this call created the directory (leader),
// (false, nil) if it already existed (follower), or a non-nil error for
// any other failure. This is the rollover leader-election primitive: the
// first writer to create the directory wins, the rest observe
// fs.ErrExist and follow.
func (c *cycleDirSet) mkdirCycle(date time.Time) (leader bool, name string, err error) {
	name = cycleNameForDate(date)
	err = c.root.Mkdir(name, 0o755)
	if err == nil {
		return true, name, nil
	}
	if errors.Is(err, fs.ErrExist) {
		return false, name, nil
	}
	return false, name, fmt.Errorf("chronicle: create cycle dir %q: %w", name, err)
}

// cyclePath joins a cycle name and a file name into a root-relative
// path, e.g. "20260401/index-0".
func cyclePath(cycle, file string) string {
	return path.Join(cycle, file)
}

// dataFileName returns the "data-T-F" file name for thread id tid and
// data file number filenum.
func dataFileName(tid, filenum uint64) string {
	return fmt.Sprintf("data-%d-%d", tid, filenum)
}

// indexFileName returns the "index-N" file name for index file number
// n.
func indexFileName(n int) string {
	return fmt.Sprintf("index-%d", n)
}

// openFixedSizeFile opens name (relative to the base directory root) at
// exactly size bytes. Writers create the file and preallocate it
// (sparse) to size if it does not already exist; readers fail with
// ErrNoData if it is missing (callers translate that into end-of-stream
// for index files, or ErrCorruptData for a data file a published slot
// points at).
func (c *cycleDirSet) openFixedSizeFile(name string, size int64, writable bool) (*os.File, error) {
	if !writable {
		f, err := c.root.OpenFile(name, os.O_RDONLY, 0o644)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, ErrNoData
			}
			return nil, fmt.Errorf("chronicle: open %q: %w", name, err)
		}
		return f, nil
	}

	f, err := c.root.OpenFile(name, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("chronicle: open %q: %w", name, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("chronicle: stat %q: %w", name, err)
	}
	if info.Size() < size {
		if err := f.Truncate(size); err != nil {
			f.Close()
			return nil, fmt.Errorf("chronicle: preallocate %q: %w", name, err)
		}
	}
	return f, nil
}
