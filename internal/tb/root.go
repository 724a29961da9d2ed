package tb

import (
	"github.com/freeeve/tablebase/internal/chess"
)

// RootMove carries the tablebase rank and score for one root move. Better
// moves rank higher; certain wins share rank 1000, certain losses -1000.
type RootMove struct {
	Move    chess.Move
	TBRank  int
	TBScore int
}

// NewRootMoves wraps the legal moves of a position for ranking.
func NewRootMoves(pos *chess.Position) []RootMove {
	moves := pos.LegalMoves()
	rms := make([]RootMove, len(moves))
	for i, m := range moves {
		rms[i].Move = m
	}
	return rms
}

// rankFromDTZ turns a root move's dtz into a rank given the fifty-move
// counter and whether the line already repeated: wins that cannot beat the
// fifty-move horizon fall below certain wins, losses the counter can
// stretch into a draw rise above certain losses. The repetition flag only
// affects wins.
func rankFromDTZ(dtz, cnt50 int, rep bool) int {
	switch {
	case dtz > 0:
		if dtz+cnt50 <= 99 && !rep {
			return 1000
		}
		return 1000 - (dtz + cnt50)
	case dtz < 0:
		if -dtz*2+cnt50 < 100 {
			return -1000
		}
		return -1000 + (-dtz + cnt50)
	default:
		return 0
	}
}

// scoreFromRank maps a rank to a cp-style score: mate-bound outside the
// bound, a small band growing from 1 to 49 cp for cursed wins, and the
// mirror for blessed losses.
func scoreFromRank(r, bound int) int {
	switch {
	case r >= bound:
		return valueMate - maxPly - 1
	case r > 0:
		return max(3, r-800) * pawnValueEg / 200
	case r == 0:
		return valueDraw
	case r > -bound:
		return min(-3, r+800) * pawnValueEg / 200
	default:
		return -valueMate + maxPly + 1
	}
}

// RootProbe ranks the root moves with the DTZ tables. Returns false when
// any probe failed, in which case the ranks are meaningless and the caller
// should ignore tablebase guidance.
func (t *Tablebases) RootProbe(pos *chess.Position, rootMoves []RootMove) bool {
	var state ProbeState

	cnt50 := pos.Rule50()
	rep := pos.HasRepeated()

	bound := 1
	if t.rule50 {
		bound = 900
	}

	for i := range rootMoves {
		m := &rootMoves[i]
		state = OK
		pos.DoMove(m.Move)

		var dtz int
		switch {
		case pos.Rule50() == 0:
			// A zeroing move's dtz is one of -101/-1/0/1/101, recovered
			// from the child's WDL.
			wdl := -t.ProbeWDL(pos, &state)
			dtz = dtzBeforeZeroing(wdl)
		case pos.IsImmediateDraw():
			// One ply from the root this is a true draw by repetition or
			// the fifty-move rule inside the recorded line.
			dtz = 0
		default:
			dtz = -t.ProbeDTZ(pos, &state)
			dtz += signOf(dtz) // correct by one ply from the child
		}

		// A mating move zeroes by definition of the count.
		if pos.InCheck() && dtz == 2 && len(pos.LegalMoves()) == 0 {
			dtz = 1
		}

		pos.UndoMove()

		if state == Fail {
			return false
		}

		m.TBRank = rankFromDTZ(dtz, cnt50, rep)
		m.TBScore = scoreFromRank(m.TBRank, bound)
	}

	return true
}

// RootProbeWDL ranks the root moves with the WDL tables alone: the
// fallback when DTZ files are missing. Returns false when any probe failed.
func (t *Tablebases) RootProbeWDL(pos *chess.Position, rootMoves []RootMove) bool {
	wdlToRank := [5]int{-1000, -899, 0, 899, 1000}

	var state ProbeState
	var wdl WDLScore

	for i := range rootMoves {
		m := &rootMoves[i]
		state = OK
		pos.DoMove(m.Move)

		if pos.IsImmediateDraw() {
			wdl = WDLDraw
		} else {
			wdl = -t.ProbeWDL(pos, &state)
		}

		pos.UndoMove()

		if state == Fail {
			return false
		}

		m.TBRank = wdlToRank[wdl+2]

		if !t.rule50 {
			switch {
			case wdl > WDLDraw:
				wdl = WDLWin
			case wdl < WDLDraw:
				wdl = WDLLoss
			default:
				wdl = WDLDraw
			}
		}
		m.TBScore = wdlToValue[wdl+2]
	}

	return true
}
