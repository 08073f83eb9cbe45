package chronicle

import "testing"

func TestMappingCacheReusesEntry(t *testing.T) {
	dirs := mustOpenCycleDirSet(t)
	if _, _, err := dirs.mkdirCycle(date(2026, 1, 1)); err != nil {
		t.Fatal(err)
	}
	cache := newMappingCache(dirs, "20260101", 0, nil)
	defer cache.closeAll()

	mp1, err := cache.dataMap(0, 5, true)
	if err != nil {
		t.Fatal(err)
	}
	mp2, err := cache.dataMap(0, 5, true)
	if err != nil {
		t.Fatal(err)
	}
	if mp1 != mp2 {
		t.Fatal("dataMap returned a different mapping on cache hit")
	}
	if len(cache.entries) != 1 {
		t.Fatalf("cache has %d entries, want 1", len(cache.entries))
	}
}

func TestMappingCacheEvictsUnderBudget(t *testing.T) {
	dirs := mustOpenCycleDirSet(t)
	if _, _, err := dirs.mkdirCycle(date(2026, 1, 1)); err != nil {
		t.Fatal(err)
	}
	// Budget for exactly one data file: the second distinct key must
	// evict the first.
	cache := newMappingCache(dirs, "20260101", DataFileSize, nil)
	defer cache.closeAll()

	if _, err := cache.dataMap(0, 1, true); err != nil {
		t.Fatal(err)
	}
	if _, err := cache.dataMap(0, 2, true); err != nil {
		t.Fatal(err)
	}
	if len(cache.entries) != 1 {
		t.Fatalf("cache has %d entries after eviction, want 1", len(cache.entries))
	}
	if _, ok := cache.entries[mapKey{filenum: 0, tid: 1}]; ok {
		t.Fatal("oldest entry (tid=1) was not evicted")
	}
	if _, ok := cache.entries[mapKey{filenum: 0, tid: 2}]; !ok {
		t.Fatal("newest entry (tid=2) missing after eviction")
	}
}

func TestMappingCacheUnboundedByDefault(t *testing.T) {
	dirs := mustOpenCycleDirSet(t)
	if _, _, err := dirs.mkdirCycle(date(2026, 1, 1)); err != nil {
		t.Fatal(err)
	}
	cache := newMappingCache(dirs, "20260101", 0, nil)
	defer cache.closeAll()

	for tid := uint64(0); tid < 5; tid++ {
		if _, err := cache.dataMap(0, tid, true); err != nil {
			t.Fatal(err)
		}
	}
	if len(cache.entries) != 5 {
		t.Fatalf("cache has %d entries, want 5 (no eviction with zero budget)", len(cache.entries))
	}
}

func TestIndexFileSetLazyAndNeverEvicted(t *testing.T) {
	dirs := mustOpenCycleDirSet(t)
	if _, _, err := dirs.mkdirCycle(date(2026, 1, 1)); err != nil {
		t.Fatal(err)
	}
	idx := newIndexFileSet(dirs, "20260101", true)
	defer idx.closeAll()

	if _, ok := idx.peek(0); ok {
		t.Fatal("peek(0) hit before ensure(0)")
	}
	if _, err := idx.ensure(0); err != nil {
		t.Fatal(err)
	}
	if _, ok := idx.peek(0); !ok {
		t.Fatal("peek(0) missed after ensure(0)")
	}
	if _, ok := idx.peek(1); ok {
		t.Fatal("peek(1) hit before it was ever ensured")
	}
}
