package journal

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"
)

func readEntries(t *testing.T, path string) []Entry {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open journal file: %v", err)
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		t.Fatalf("new zstd reader: %v", err)
	}
	defer dec.Close()

	var out []Entry
	sc := bufio.NewScanner(dec)
	for sc.Scan() {
		var e Entry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			t.Fatalf("decode line %q: %v", sc.Text(), err)
		}
		out = append(out, e)
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	return out
}

func journalFiles(t *testing.T, dir string) []string {
	t.Helper()
	files, err := filepath.Glob(filepath.Join(dir, "*.jsonl.zst"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	return files
}

func TestWriterRoundTrip(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, "events")

	want := []Entry{
		{At: 1700000000, Kind: KindJoin, ConnID: "c1"},
		{At: 1700000010, Kind: KindGuestbook, ConnID: "c1", Nickname: "Fox", Message: "hello"},
		{At: 1700000020, Kind: KindLeave, ConnID: "c1", Nickname: "Fox"},
	}
	for _, e := range want {
		if err := w.Write(e); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	files := journalFiles(t, dir)
	if len(files) != 1 {
		t.Fatalf("found %d journal files, want 1: %v", len(files), files)
	}
	got := readEntries(t, files[0])
	if len(got) != len(want) {
		t.Fatalf("read %d entries, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("entry %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestWriterAppendsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	w := NewWriter(dir, "events")
	if err := w.Write(Entry{At: 1, Kind: KindJoin, ConnID: "a"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	w = NewWriter(dir, "events")
	if err := w.Write(Entry{At: 2, Kind: KindLeave, ConnID: "a"}); err != nil {
		t.Fatalf("write after reopen: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	files := journalFiles(t, dir)
	if len(files) != 1 {
		t.Fatalf("found %d journal files, want 1", len(files))
	}
	got := readEntries(t, files[0])
	if len(got) != 2 || got[0].At != 1 || got[1].At != 2 {
		t.Fatalf("entries = %+v", got)
	}
}

func TestRecorderDrainsOnClose(t *testing.T) {
	dir := t.TempDir()
	r := NewRecorder(dir)

	for i := 0; i < 10; i++ {
		r.Record(Entry{At: int64(i), Kind: KindJoin, ConnID: "c"})
	}
	if err := r.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	// Close is idempotent.
	if err := r.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}

	files := journalFiles(t, dir)
	if len(files) != 1 {
		t.Fatalf("found %d journal files, want 1", len(files))
	}
	got := readEntries(t, files[0])
	if len(got) != 10 {
		t.Fatalf("read %d entries, want 10", len(got))
	}
}

func TestNilRecorderIsSafe(t *testing.T) {
	var r *Recorder
	r.Record(Entry{At: 1, Kind: KindJoin})
}
