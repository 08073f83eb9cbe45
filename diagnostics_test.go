package chronicle

import (
	"bytes"
	"testing"

	"github.com/klauspost/compress/zstd"
)

func TestScanCycleSummarisesPerThread(t *testing.T) {
	base := t.TempDir()
	now := date(2026, 4, 1)

	w, err := NewWriter(Config{BaseDir: base, Now: fixedClock(now), ThreadIDBits: 14})
	if err != nil {
		t.Fatal(err)
	}
	a1 := &Appender{w: w, tid: 1, filenum: 0, pos: 4}
	a2 := &Appender{w: w, tid: 2, filenum: 0, pos: 4}
	writeInt(t, a1, 10)
	writeInt(t, a1, 20)
	writeInt(t, a2, 30)
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	report, err := ScanCycle(Config{BaseDir: base, ThreadIDBits: 14}, "20260401")
	if err != nil {
		t.Fatal(err)
	}
	if report.Records != 3 {
		t.Fatalf("report.Records = %d, want 3", report.Records)
	}
	if len(report.Threads) != 2 {
		t.Fatalf("report.Threads has %d entries, want 2", len(report.Threads))
	}
	byTid := make(map[uint64]ThreadStats)
	for _, st := range report.Threads {
		byTid[st.ThreadID] = st
	}
	if byTid[1].Records != 2 {
		t.Fatalf("thread 1 records = %d, want 2", byTid[1].Records)
	}
	if byTid[2].Records != 1 {
		t.Fatalf("thread 2 records = %d, want 1", byTid[2].Records)
	}
	if byTid[1].Bytes != 8 || byTid[2].Bytes != 4 {
		t.Fatalf("unexpected byte totals: %+v", byTid)
	}
}

func TestScanCycleMalformedCycleNameFails(t *testing.T) {
	base := t.TempDir()
	if _, err := ScanCycle(Config{BaseDir: base}, "not-a-cycle-name"); err == nil {
		t.Fatal("ScanCycle on a malformed cycle name succeeded, want an error")
	}
}

func TestDumpCompressedRoundTrips(t *testing.T) {
	base := t.TempDir()
	now := date(2026, 4, 1)
	w, err := NewWriter(Config{BaseDir: base, Now: fixedClock(now)})
	if err != nil {
		t.Fatal(err)
	}
	app, err := NewAppender(w)
	if err != nil {
		t.Fatal(err)
	}
	writeInt(t, app, 1)
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	report, err := ScanCycle(Config{BaseDir: base}, "20260401")
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := DumpCompressed(&buf, report); err != nil {
		t.Fatal(err)
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		t.Fatal(err)
	}
	defer dec.Close()
	plain, err := dec.DecodeAll(buf.Bytes(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(plain, []byte(`"cycle": "20260401"`)) {
		t.Fatalf("decompressed report missing expected cycle field: %s", plain)
	}
}
