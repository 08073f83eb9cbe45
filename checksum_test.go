package chronicle

import "testing"

func TestAppenderChecksumMatchesVerifyRecord(t *testing.T) {
	base := t.TempDir()
	now := date(2026, 4, 1)

	w, err := NewWriter(Config{BaseDir: base, Now: fixedClock(now), VerifyChecksums: true})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	app, err := NewAppender(w)
	if err != nil {
		t.Fatal(err)
	}
	cw, err := app.Begin()
	if err != nil {
		t.Fatal(err)
	}
	if err := cw.WriteString("hello chronicle"); err != nil {
		t.Fatal(err)
	}
	want := app.Checksum()
	if err := app.Finish(); err != nil {
		t.Fatal(err)
	}

	r, err := NewReader(Config{BaseDir: base, Now: fixedClock(now)})
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	rec, err := r.Next()
	if err != nil {
		t.Fatal(err)
	}
	start := rec.Reader.Pos()
	s, err := rec.Reader.ReadString()
	if err != nil {
		t.Fatal(err)
	}
	if s != "hello chronicle" {
		t.Fatalf("read back %q, want %q", s, "hello chronicle")
	}

	// GetLength reads the sentinel just before the cursor, so it is read
	// from a reader still positioned at the start of the payload.
	length, err := NewCodecReader(rec.Reader.buf, start).GetLength()
	if err != nil {
		t.Fatal(err)
	}
	payload := rec.Reader.buf[start : start+int(length)]
	if !VerifyRecord(payload, want) {
		t.Fatal("VerifyRecord did not match the fingerprint captured at write time")
	}
}

func TestAppenderChecksumBeforeBeginIsZero(t *testing.T) {
	base := t.TempDir()
	now := date(2026, 4, 1)
	w, err := NewWriter(Config{BaseDir: base, Now: fixedClock(now)})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	app, err := NewAppender(w)
	if err != nil {
		t.Fatal(err)
	}
	if got := app.Checksum(); got != 0 {
		t.Fatalf("Checksum() before Begin = %d, want 0", got)
	}
}
