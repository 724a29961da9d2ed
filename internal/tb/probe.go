package tb

import (
	"github.com/freeeve/tablebase/internal/chess"
)

// WDLScore is the theoretical result from the side to move's point of view.
// Cursed wins and blessed losses turn into draws under the fifty-move rule.
type WDLScore int

const (
	WDLLoss        WDLScore = -2
	WDLBlessedLoss WDLScore = -1
	WDLDraw        WDLScore = 0
	WDLCursedWin   WDLScore = 1
	WDLWin         WDLScore = 2
)

func (w WDLScore) String() string {
	switch w {
	case WDLLoss:
		return "loss"
	case WDLBlessedLoss:
		return "blessed loss"
	case WDLCursedWin:
		return "cursed win"
	case WDLWin:
		return "win"
	default:
		return "draw"
	}
}

// ProbeState reports how a probe concluded. Fail means the result is
// unusable; ChangeSTM and ZeroingBestMove are protocol events handled
// internally by the DTZ and root probes.
type ProbeState int

const (
	Fail ProbeState = iota
	OK
	ChangeSTM
	ZeroingBestMove
	// Threat exists for variant probes that search threat moves; the
	// standard-chess protocol never produces it.
	Threat
)

// Score constants for the cp-style TBScore surface.
const (
	valueMate   = 32000
	valueDraw   = 0
	maxPly      = 246
	pawnValueEg = 208
)

// wdlToValue converts a WDL score into a search value.
var wdlToValue = [5]int{
	-valueMate + maxPly + 1,
	valueDraw - 2,
	valueDraw,
	valueDraw + 2,
	valueMate - maxPly - 1,
}

// dtzBeforeZeroing recovers the DTZ of the move leading here when that move
// zeroed the counter; the tables store no useful value in that case.
func dtzBeforeZeroing(wdl WDLScore) int {
	switch wdl {
	case WDLWin:
		return 1
	case WDLCursedWin:
		return 101
	case WDLBlessedLoss:
		return -101
	case WDLLoss:
		return -1
	default:
		return 0
	}
}

func signOf(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

// probeWDLTable reads the raw WDL value for the position. KvK is a draw
// without any table.
func (t *Tablebases) probeWDLTable(pos *chess.Position, state *ProbeState) WDLScore {
	if pos.Count() == 2 {
		return WDLDraw
	}

	e := t.lookup(pos.MaterialKey(), kindWDL)
	if e == nil || !t.mapped(e) {
		*state = Fail
		return WDLDraw
	}

	d, idx, st := encodePosition(t.idx, e, pos)
	if st != OK {
		*state = st
		return WDLDraw
	}
	return WDLScore(decompressPairs(d, idx) - 2)
}

// probeDTZTable reads the raw DTZ value for the position, remapped through
// the table's value map for the known WDL.
func (t *Tablebases) probeDTZTable(pos *chess.Position, wdl WDLScore, state *ProbeState) int {
	if pos.Count() == 2 {
		return 0
	}

	e := t.lookup(pos.MaterialKey(), kindDTZ)
	if e == nil || !t.mapped(e) {
		*state = Fail
		return 0
	}

	d, idx, st := encodePosition(t.idx, e, pos)
	if st != OK {
		*state = st
		return 0
	}
	return mapDTZ(e, d, decompressPairs(d, idx), wdl)
}

// search resolves the on-disk "don't care" convention: positions where the
// side to move has a winning capture may store anything, so the correct
// value is the best of the capture children and the stored value. With
// checkZeroing, pawn moves count too, which flags positions whose best move
// zeroes the counter so the DTZ probe can sidestep the stored value.
func (t *Tablebases) search(pos *chess.Position, checkZeroing bool, state *ProbeState) WDLScore {
	bestValue := WDLLoss

	moves := pos.LegalMoves()
	totalCount, moveCount := len(moves), 0

	for _, m := range moves {
		if !pos.IsCapture(m) && (!checkZeroing || pos.MovedPiece(m) != chess.Pawn) {
			continue
		}
		moveCount++

		pos.DoMove(m)
		value := -t.search(pos, false, state)
		pos.UndoMove()

		if *state == Fail {
			return WDLDraw
		}
		if value > bestValue {
			bestValue = value
			if value >= WDLWin {
				*state = ZeroingBestMove // winning zeroing move
				return value
			}
		}
	}

	// When every legal move was searched the table must not be consulted:
	// stored values are unreliable for positions with en passant rights,
	// and a best-capture line has to keep ZeroingBestMove set.
	noMoreMoves := moveCount > 0 && moveCount == totalCount

	var value WDLScore
	if noMoreMoves {
		value = bestValue
	} else {
		value = t.probeWDLTable(pos, state)
		if *state == Fail {
			return WDLDraw
		}
	}

	if bestValue >= value {
		if bestValue > WDLDraw || noMoreMoves {
			*state = ZeroingBestMove
		} else {
			*state = OK
		}
		return bestValue
	}

	*state = OK
	return value
}

// ProbeWDL returns the WDL score of the position from the side to move's
// point of view. state is Fail when no table covered the position.
func (t *Tablebases) ProbeWDL(pos *chess.Position, state *ProbeState) WDLScore {
	*state = OK
	return t.search(pos, false, state)
}

// ProbeDTZ returns the distance to zeroing from the side to move's point of
// view: positive n for a win in n plies (n > 100 only winnable outside the
// fifty-move rule), negative for losses, 0 for draws. The value may be off
// by one toward the safe side; a win is certain while dtz plus the fifty-
// move counter stays within 99.
func (t *Tablebases) ProbeDTZ(pos *chess.Position, state *ProbeState) int {
	*state = OK
	wdl := t.search(pos, true, state)

	if *state == Fail || wdl == WDLDraw { // DTZ tables store no draws
		return 0
	}

	// The table stores a don't-care (or, with a losing en passant best
	// move, plain wrong) value when the best move zeroes.
	if *state == ZeroingBestMove {
		return dtzBeforeZeroing(wdl)
	}

	dtz := t.probeDTZTable(pos, wdl, state)
	if *state == Fail {
		return 0
	}

	if *state != ChangeSTM {
		bonus := 0
		if wdl == WDLBlessedLoss || wdl == WDLCursedWin {
			bonus = 100
		}
		return (dtz + bonus) * signOf(int(wdl))
	}

	// The DTZ table stores the other side to move: minimize over a 1-ply
	// search, keeping only moves that preserve the WDL sign.
	minDTZ := 0xFFFF

	for _, m := range pos.LegalMoves() {
		zeroing := pos.IsZeroing(m)

		pos.DoMove(m)

		// A zeroing move wants the dtz of the move itself, not of the
		// following sequence; the child search still supplies the sign,
		// since even a won position has losing captures.
		if zeroing {
			dtz = -dtzBeforeZeroing(t.search(pos, false, state))
		} else {
			dtz = -t.ProbeDTZ(pos, state)
		}

		// A mating move is exactly one zeroing ply away.
		if dtz == 1 && pos.InCheck() && len(pos.LegalMoves()) == 0 {
			minDTZ = 1
		}

		if !zeroing {
			dtz += signOf(dtz)
		}

		if dtz < minDTZ && signOf(dtz) == signOf(int(wdl)) {
			minDTZ = dtz
		}

		pos.UndoMove()

		if *state == Fail {
			return 0
		}
	}

	// No legal moves: mate.
	if minDTZ == 0xFFFF {
		return -1
	}
	return minDTZ
}
