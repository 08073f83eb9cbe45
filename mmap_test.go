package chronicle

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func openTestMapping(t *testing.T, size int) (*mapping, func()) {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "chronicle-mmap-*")
	if err != nil {
		t.Fatal(err)
	}
	if err := f.Truncate(int64(size)); err != nil {
		t.Fatal(err)
	}
	mp, err := openWriteMapping(f, size)
	if err != nil {
		t.Fatal(err)
	}
	return mp, func() {
		mp.Close()
		f.Close()
	}
}

func TestReadWriteCASRoundTrip(t *testing.T) {
	mp, cleanup := openTestMapping(t, 64)
	defer cleanup()

	v, err := mp.read64(0)
	if err != nil {
		t.Fatal(err)
	}
	if v != 0 {
		t.Fatalf("fresh mapping read64(0) = %d, want 0", v)
	}

	actual, err := mp.cas64(0, 0, 42)
	if err != nil {
		t.Fatal(err)
	}
	if actual != 0 {
		t.Fatalf("cas64 first attempt returned %d, want 0 (success)", actual)
	}

	v, err = mp.read64(0)
	if err != nil {
		t.Fatal(err)
	}
	if v != 42 {
		t.Fatalf("read64(0) after cas = %d, want 42", v)
	}

	actual, err = mp.cas64(0, 0, 99)
	if err != nil {
		t.Fatal(err)
	}
	if actual != 42 {
		t.Fatalf("second cas64 on occupied slot returned %d, want 42 (the current value)", actual)
	}
}

func TestAlignedPtrRejectsMisalignment(t *testing.T) {
	mp, cleanup := openTestMapping(t, 64)
	defer cleanup()

	if _, err := mp.read64(1); err == nil {
		t.Fatal("read64(1) on an unaligned offset succeeded, want error")
	}
	if _, err := mp.read64(64); err == nil {
		t.Fatal("read64(64) out of bounds succeeded, want error")
	}
}

// TestConcurrentCAS has N goroutines race cas64(..., expected=0, new=id)
// across every slot of a mapping; the sum of each goroutine's successes
// must equal the slot count, and the final slot-value histogram must match.
func TestConcurrentCAS(t *testing.T) {
	const goroutines = 8
	const slots = 256
	size := slots * 8

	mp, cleanup := openTestMapping(t, size)
	defer cleanup()

	var wg sync.WaitGroup
	counts := make([]int64, goroutines)

	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			var won int64
			for i := 0; i < slots; i++ {
				actual, err := mp.cas64(int64(i*8), 0, id+1)
				if err != nil {
					t.Error(err)
					return
				}
				if actual == 0 {
					won++
				}
			}
			counts[id] = won
		}(int64(g))
	}
	wg.Wait()

	var total int64
	for _, c := range counts {
		total += c
	}
	if total != slots {
		t.Fatalf("sum of per-goroutine successes = %d, want %d", total, slots)
	}

	histogram := make(map[int64]int64)
	for i := 0; i < slots; i++ {
		v, err := mp.read64(int64(i * 8))
		if err != nil {
			t.Fatal(err)
		}
		if v == 0 {
			t.Fatalf("slot %d never won by any goroutine", i)
		}
		histogram[v]++
	}

	for id, want := range counts {
		if got := histogram[int64(id)+1]; got != want {
			t.Errorf("goroutine %d: claimed %d slots, histogram shows %d", id, want, got)
		}
	}
}

func TestOpenFixedSizeFileModes(t *testing.T) {
	dirs, err := openCycleDirSet(filepath.Join(t.TempDir(), "base"))
	if err != nil {
		t.Fatal(err)
	}
	defer dirs.Close()

	if _, err := dirs.openFixedSizeFile("missing", 1024, false); err != ErrNoData {
		t.Fatalf("reader open of missing file = %v, want ErrNoData", err)
	}

	f, err := dirs.openFixedSizeFile("data-0-0", 1024, true)
	if err != nil {
		t.Fatal(err)
	}
	info, err := f.Stat()
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() != 1024 {
		t.Fatalf("preallocated size = %d, want 1024", info.Size())
	}
	f.Close()

	f2, err := dirs.openFixedSizeFile("data-0-0", 1024, false)
	if err != nil {
		t.Fatalf("reader open of now-existing file: %v", err)
	}
	f2.Close()
}
