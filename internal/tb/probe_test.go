package tb

import (
	"testing"

	"github.com/freeeve/tablebase/internal/chess"
)

func mustPos(t *testing.T, fen string) *chess.Position {
	t.Helper()
	pos, err := chess.FromFEN(fen)
	if err != nil {
		t.Fatalf("FromFEN(%q): %v", fen, err)
	}
	return pos
}

func TestProbeKvKIsDraw(t *testing.T) {
	tbs := newTestTablebases(t, "")
	pos := mustPos(t, "8/8/4k3/8/4K3/8/8/8 w - - 0 1")

	var state ProbeState
	if wdl := tbs.ProbeWDL(pos, &state); wdl != WDLDraw || state == Fail {
		t.Errorf("ProbeWDL(KvK) = %v (%v), want draw", wdl, state)
	}
	if dtz := tbs.ProbeDTZ(pos, &state); dtz != 0 || state == Fail {
		t.Errorf("ProbeDTZ(KvK) = %d (%v), want 0", dtz, state)
	}
}

func TestProbeUnknownMaterialFails(t *testing.T) {
	tbs := newTestTablebases(t, "")
	pos := mustPos(t, "4k3/8/8/8/8/8/4P3/4K3 w - - 0 1") // KPvK, not registered

	var state ProbeState
	tbs.ProbeWDL(pos, &state)
	if state != Fail {
		t.Errorf("ProbeWDL state = %v, want Fail", state)
	}

	state = OK
	tbs.ProbeDTZ(pos, &state)
	if state != Fail {
		t.Errorf("ProbeDTZ state = %v, want Fail", state)
	}
}

func TestProbeTreatsEmptyFileAsAbsent(t *testing.T) {
	// The registry sees the file at init, but mapping rejects it (size
	// invariant), so probes fail instead of crashing.
	dir := t.TempDir()
	writeTempTable(t, dir, "KRvK.rtbw", kindWDL.magic(), 32)

	tbs := newTestTablebases(t, dir)
	if tbs.Size() != 1 {
		t.Fatalf("Size = %d, want 1", tbs.Size())
	}

	pos := mustPos(t, "4k3/8/8/8/8/8/8/R3K3 w - - 0 1")
	var state ProbeState
	tbs.ProbeWDL(pos, &state)
	if state != Fail {
		t.Errorf("state = %v, want Fail", state)
	}

	// The descriptor is marked ready after the first failure and keeps
	// failing cheaply.
	e := tbs.lookup(pos.MaterialKey(), kindWDL)
	if e == nil || !e.ready.Load() || e.mapping != nil {
		t.Error("corrupt descriptor not latched as absent")
	}
}

func TestDtzBeforeZeroing(t *testing.T) {
	cases := map[WDLScore]int{
		WDLWin:         1,
		WDLCursedWin:   101,
		WDLBlessedLoss: -101,
		WDLLoss:        -1,
		WDLDraw:        0,
	}
	for wdl, want := range cases {
		if got := dtzBeforeZeroing(wdl); got != want {
			t.Errorf("dtzBeforeZeroing(%v) = %d, want %d", wdl, got, want)
		}
	}
}

func TestRankFromDTZ(t *testing.T) {
	// Certain wins share the top rank.
	if r := rankFromDTZ(5, 10, false); r != 1000 {
		t.Errorf("certain win rank = %d, want 1000", r)
	}
	// Wins near the fifty-move horizon fall below it.
	if r := rankFromDTZ(95, 10, false); r != 1000-105 {
		t.Errorf("horizon win rank = %d, want %d", r, 1000-105)
	}
	// A repetition spoils certainty.
	if r := rankFromDTZ(5, 10, true); r != 1000-15 {
		t.Errorf("repetition win rank = %d, want %d", r, 1000-15)
	}
	// Certain losses share the bottom rank.
	if r := rankFromDTZ(-30, 10, false); r != -1000 {
		t.Errorf("certain loss rank = %d, want -1000", r)
	}
	// Losses the counter can stretch into a draw rank above them.
	if r := rankFromDTZ(-60, 10, false); r != -1000+70 {
		t.Errorf("stretchable loss rank = %d, want %d", r, -1000+70)
	}
	if rankFromDTZ(0, 42, true) != 0 {
		t.Error("draw rank must be 0")
	}

	// Monotonic: in a won position, smaller dtz+rule50 never ranks lower.
	for cnt50 := 0; cnt50 <= 100; cnt50 += 25 {
		last := 1001
		for dtz := 1; dtz < 120; dtz++ {
			r := rankFromDTZ(dtz, cnt50, false)
			if r > last {
				t.Fatalf("rank not monotonic at dtz=%d cnt50=%d", dtz, cnt50)
			}
			last = r
		}
	}
}

func TestScoreFromRank(t *testing.T) {
	bound := 900

	if s := scoreFromRank(1000, bound); s != valueMate-maxPly-1 {
		t.Errorf("certain win score = %d", s)
	}
	if s := scoreFromRank(-1000, bound); s != -(valueMate - maxPly - 1) {
		t.Errorf("certain loss score = %d", s)
	}
	if s := scoreFromRank(0, bound); s != valueDraw {
		t.Errorf("draw score = %d", s)
	}

	// Cursed wins stay within a small positive band.
	for r := 1; r < bound; r += 50 {
		s := scoreFromRank(r, bound)
		if s <= 0 || s > 49*pawnValueEg/200+pawnValueEg {
			t.Errorf("cursed-win score %d out of band for rank %d", s, r)
		}
	}

	// With the fifty-move rule disabled any positive rank is mate-bound.
	if s := scoreFromRank(150, 1); s != valueMate-maxPly-1 {
		t.Errorf("score without fifty-move rule = %d", s)
	}
}

func TestRootProbeKvK(t *testing.T) {
	tbs := newTestTablebases(t, "")
	pos := mustPos(t, "8/8/4k3/8/4K3/8/8/8 w - - 0 1")

	rms := NewRootMoves(pos)
	if !tbs.RootProbe(pos, rms) {
		t.Fatal("RootProbe failed on KvK")
	}
	for _, rm := range rms {
		if rm.TBRank != 0 || rm.TBScore != valueDraw {
			t.Errorf("move %s rank=%d score=%d, want draws", rm.Move.String(), rm.TBRank, rm.TBScore)
		}
	}

	if !tbs.RootProbeWDL(pos, rms) {
		t.Fatal("RootProbeWDL failed on KvK")
	}
	for _, rm := range rms {
		if rm.TBRank != 0 {
			t.Errorf("move %s WDL rank = %d, want 0", rm.Move.String(), rm.TBRank)
		}
	}
}

func TestRootProbeFailsOnUnknownMaterial(t *testing.T) {
	tbs := newTestTablebases(t, "")
	pos := mustPos(t, "4k3/8/8/8/8/8/4P3/4K3 w - - 0 1")

	rms := NewRootMoves(pos)
	if tbs.RootProbe(pos, rms) {
		t.Error("RootProbe succeeded without tables")
	}
	if tbs.RootProbeWDL(pos, rms) {
		t.Error("RootProbeWDL succeeded without tables")
	}
}
