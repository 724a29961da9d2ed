package chess

import (
	"testing"
)

const startFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

func mustPos(t *testing.T, fen string) *Position {
	t.Helper()
	pos, err := FromFEN(fen)
	if err != nil {
		t.Fatalf("FromFEN(%q): %v", fen, err)
	}
	return pos
}

func TestFromFENRejectsGarbage(t *testing.T) {
	if _, err := FromFEN(""); err == nil {
		t.Error("empty FEN accepted")
	}
	if _, err := FromFEN("xyz"); err == nil {
		t.Error("short garbage FEN accepted")
	}
}

func TestStartingPosition(t *testing.T) {
	pos := mustPos(t, startFEN)

	if pos.SideToMove() != White {
		t.Error("white is to move at the start")
	}
	if pos.Count() != 32 {
		t.Errorf("Count = %d, want 32", pos.Count())
	}
	if got := len(pos.LegalMoves()); got != 20 {
		t.Errorf("legal moves = %d, want 20", got)
	}
	if pos.CountOf(White, Pawn) != 8 || pos.CountOf(Black, Queen) != 1 {
		t.Error("piece counts wrong")
	}
	if pos.InCheck() {
		t.Error("start position reported as check")
	}
}

func TestPieceOn(t *testing.T) {
	pos := mustPos(t, startFEN)

	cases := map[int]Piece{
		0:  MakePiece(White, Rook),
		4:  MakePiece(White, King),
		12: MakePiece(White, Pawn),
		59: MakePiece(Black, Queen),
		62: MakePiece(Black, Knight),
		36: NoPiece,
	}
	for sq, want := range cases {
		if got := pos.PieceOn(sq); got != want {
			t.Errorf("PieceOn(%d) = %v, want %v", sq, got, want)
		}
	}
}

func TestPieceCodes(t *testing.T) {
	// The 4-bit codes must match the table file convention: white 1..6,
	// black 9..14, color flip is xor 8.
	if p := MakePiece(White, Pawn); uint8(p) != 1 {
		t.Errorf("white pawn code = %d, want 1", p)
	}
	if p := MakePiece(Black, King); uint8(p) != 14 {
		t.Errorf("black king code = %d, want 14", p)
	}
	p := MakePiece(White, Rook)
	if q := Piece(uint8(p) ^ 8); q.Color() != Black || q.Type() != Rook {
		t.Errorf("xor 8 flip broken: %v", q)
	}
}

func TestDoUndoRestoresState(t *testing.T) {
	pos := mustPos(t, startFEN)
	before := pos.FEN()
	key := pos.MaterialKey()

	moves := pos.LegalMoves()
	for _, m := range moves {
		pos.DoMove(m)
		if pos.SideToMove() != Black {
			t.Fatalf("side to move unchanged after %s", m.String())
		}
		pos.UndoMove()
	}

	if pos.FEN() != before {
		t.Errorf("FEN drifted: %q -> %q", before, pos.FEN())
	}
	if pos.MaterialKey() != key {
		t.Error("material key drifted")
	}
}

func TestCaptureAndZeroingDetection(t *testing.T) {
	// White pawn e4 can capture d5; knight moves never zero.
	pos := mustPos(t, "4k3/8/8/3p4/4P3/8/8/N3K3 w - - 3 10")

	var sawCapture, sawPawnPush, sawKnight bool
	for _, m := range pos.LegalMoves() {
		switch {
		case pos.IsCapture(m):
			sawCapture = true
			if !pos.IsZeroing(m) {
				t.Errorf("capture %s not zeroing", m.String())
			}
		case pos.MovedPiece(m) == Pawn:
			sawPawnPush = true
			if !pos.IsZeroing(m) {
				t.Errorf("pawn move %s not zeroing", m.String())
			}
		case pos.MovedPiece(m) == Knight:
			sawKnight = true
			if pos.IsZeroing(m) {
				t.Errorf("knight move %s zeroing", m.String())
			}
		}
	}
	if !sawCapture || !sawPawnPush || !sawKnight {
		t.Fatalf("move classes missing: capture=%v push=%v knight=%v",
			sawCapture, sawPawnPush, sawKnight)
	}
}

func TestRule50FromFEN(t *testing.T) {
	pos := mustPos(t, "4k3/8/8/8/8/8/8/R3K3 w - - 37 60")
	if pos.Rule50() != 37 {
		t.Errorf("Rule50 = %d, want 37", pos.Rule50())
	}
}

func TestMaterialKeyProperties(t *testing.T) {
	krvk := mustPos(t, "4k3/8/8/8/8/8/8/R3K3 w - - 0 1")
	kvkr := mustPos(t, "r3k3/8/8/8/8/8/8/4K3 w - - 0 1")
	krvkr := mustPos(t, "r3k3/8/8/8/8/8/8/R3K3 w - - 0 1")

	if krvk.MaterialKey() == kvkr.MaterialKey() {
		t.Error("mirrored material must yield distinct keys")
	}
	if krvk.MaterialKey() == krvkr.MaterialKey() {
		t.Error("different material must yield distinct keys")
	}

	// The key ignores squares and side to move.
	other := mustPos(t, "4k3/8/8/8/3R4/8/8/4K3 b - - 0 1")
	if other.MaterialKey() != krvk.MaterialKey() {
		t.Error("material key must depend on counts only")
	}

	// Counts-built keys agree with board-built keys.
	var counts [12]uint8
	counts[Rook-1] = 1
	counts[King-1] = 1
	counts[6+King-1] = 1
	if MaterialKeyFromCounts(counts) != krvk.MaterialKey() {
		t.Error("MaterialKeyFromCounts disagrees with Position.MaterialKey")
	}

	// Symmetric material mirrors to itself.
	var sym [12]uint8
	sym[Rook-1], sym[King-1] = 1, 1
	sym[6+Rook-1], sym[6+King-1] = 1, 1
	mirrored := [12]uint8{}
	copy(mirrored[:6], sym[6:])
	copy(mirrored[6:], sym[:6])
	if MaterialKeyFromCounts(sym) != MaterialKeyFromCounts(mirrored) {
		t.Error("symmetric material must be its own mirror")
	}
}

func TestRepetitionTracking(t *testing.T) {
	pos := mustPos(t, startFEN)
	if pos.HasRepeated() {
		t.Fatal("fresh position cannot have repeated")
	}

	// Shuffle the knights out and back.
	seq := []string{"g1f3", "g8f6", "f3g1", "f6g8"}
	for _, uci := range seq {
		var applied bool
		for _, m := range pos.LegalMoves() {
			if m.String() == uci {
				pos.DoMove(m)
				applied = true
				break
			}
		}
		if !applied {
			t.Fatalf("move %s not found", uci)
		}
	}

	if !pos.HasRepeated() {
		t.Error("knight shuffle must register as repetition")
	}
	if !pos.IsImmediateDraw() {
		t.Error("repeated current position must be an immediate draw")
	}

	for range seq {
		pos.UndoMove()
	}
	if pos.HasRepeated() {
		t.Error("undo must clear the repetition")
	}
}
