package tb

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/freeeve/tablebase/internal/chess"
)

func newTestTablebases(t *testing.T, paths string) *Tablebases {
	t.Helper()
	tbs := New(Config{Paths: paths, Logger: zerolog.Nop()})
	t.Cleanup(tbs.Close)
	return tbs
}

func TestInitDisabled(t *testing.T) {
	for _, paths := range []string{"", "<empty>"} {
		tbs := newTestTablebases(t, paths)
		if tbs.Size() != 0 || tbs.MaxCardinality() != 0 {
			t.Errorf("Init(%q) registered %d tables", paths, tbs.Size())
		}
	}
}

func TestInitFindsFiles(t *testing.T) {
	dir := t.TempDir()
	writeTempTable(t, dir, "KRvK.rtbw", kindWDL.magic(), 80)
	writeTempTable(t, dir, "KQvKR.rtbw", kindWDL.magic(), 80)

	tbs := newTestTablebases(t, dir)

	if tbs.Size() != 2 {
		t.Fatalf("Size = %d, want 2", tbs.Size())
	}
	if tbs.MaxCardinality() != 4 {
		t.Errorf("MaxCardinality = %d, want 4", tbs.MaxCardinality())
	}

	// Both orientations of the material resolve to the same descriptor.
	krvk := newWDLTable(
		[]chess.PieceType{chess.King, chess.Rook},
		[]chess.PieceType{chess.King})
	e1 := tbs.lookup(krvk.key, kindWDL)
	e2 := tbs.lookup(krvk.key2, kindWDL)
	if e1 == nil || e1 != e2 {
		t.Fatalf("lookup mismatch: %p vs %p", e1, e2)
	}
	if e1.code != "KRvK" {
		t.Errorf("code = %q, want KRvK", e1.code)
	}
	if tbs.lookup(krvk.key, kindDTZ) == nil {
		t.Error("DTZ descriptor missing")
	}

	// Absent material misses.
	kqvk := newWDLTable(
		[]chess.PieceType{chess.King, chess.Queen},
		[]chess.PieceType{chess.King})
	if tbs.lookup(kqvk.key, kindWDL) != nil {
		t.Error("lookup found a table that was never registered")
	}
}

func TestInitRebuilds(t *testing.T) {
	dir := t.TempDir()
	writeTempTable(t, dir, "KRvK.rtbw", kindWDL.magic(), 80)

	tbs := newTestTablebases(t, dir)
	if tbs.Size() != 1 {
		t.Fatalf("Size = %d, want 1", tbs.Size())
	}

	tbs.Init("<empty>")
	if tbs.Size() != 0 {
		t.Errorf("Size after disable = %d, want 0", tbs.Size())
	}

	tbs.Init(dir)
	if tbs.Size() != 1 {
		t.Errorf("Size after re-init = %d, want 1", tbs.Size())
	}
}

func TestRobinHoodInsertLookup(t *testing.T) {
	tbs := newTestTablebases(t, "")

	// Force a long displacement chain on one home bucket.
	var tables []*table
	for i := 0; i < 16; i++ {
		e := &table{kind: kindWDL, key: uint64(i)<<32 | 0x123}
		d := &table{kind: kindDTZ, key: e.key}
		tables = append(tables, e)
		tbs.insert(e.key, e, d)
	}

	for _, e := range tables {
		if got := tbs.lookup(e.key, kindWDL); got != e {
			t.Fatalf("lookup(%#x) = %p, want %p", e.key, got, e)
		}
	}
	if tbs.lookup(0xdead<<32|0x123, kindWDL) != nil {
		t.Error("lookup found an entry that was never inserted")
	}
}
