// Index file set: the open index-N mappings for one cycle directory.
// Unlike data mappings, index mappings are never evicted — a cycle
// opens one more index file per EntriesPerIndexFile published slots, so
// the number stays small in practice.
package chronicle

// indexFileSet owns the sequence of index-N mappings for one cycle
// directory, opened lazily as readers/writers advance past file
// boundaries.
type indexFileSet struct {
	dirs     *cycleDirSet
	cycle    string
	writable bool
	files    []*mapEntry // files[n] is index-n; nil until opened
}

func newIndexFileSet(dirs *cycleDirSet, cycle string, writable bool) *indexFileSet {
	return &indexFileSet{dirs: dirs, cycle: cycle, writable: writable}
}

// ensure returns the mapping for index-n, opening (and for writers,
// creating) it on first use. Readers get ErrNoData if the file does not
// exist yet; callers treat that as end-of-stream.
func (s *indexFileSet) ensure(n int) (*mapping, error) {
	if n < len(s.files) && s.files[n] != nil {
		return s.files[n].mapping, nil
	}

	name := indexFileName(n)
	f, err := s.dirs.openFixedSizeFile(cyclePath(s.cycle, name), IndexFileSize, s.writable)
	if err != nil {
		return nil, err
	}

	var mp *mapping
	if s.writable {
		mp, err = openWriteMapping(f, IndexFileSize)
	} else {
		mp, err = openReadMapping(f, IndexFileSize)
	}
	if err != nil {
		f.Close()
		return nil, err
	}

	for len(s.files) <= n {
		s.files = append(s.files, nil)
	}
	s.files[n] = &mapEntry{file: f, mapping: mp, size: IndexFileSize}
	return mp, nil
}

// peek returns the mapping for index-n if it is already open, without
// opening it, for callers that want to inspect an already-mapped index
// file without risking a file creation or read-miss error as a side
// effect.
func (s *indexFileSet) peek(n int) (*mapping, bool) {
	if n < 0 || n >= len(s.files) || s.files[n] == nil {
		return nil, false
	}
	return s.files[n].mapping, true
}

// closeAll releases every open index mapping and file handle.
func (s *indexFileSet) closeAll() error {
	var firstErr error
	for _, e := range s.files {
		if e == nil {
			continue
		}
		if err := closeEntry(e); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.files = nil
	return firstErr
}
