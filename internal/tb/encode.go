package tb

import (
	"math/bits"
	"sort"

	"github.com/freeeve/tablebase/internal/chess"
)

// encodePosition maps a position onto the 64-bit index of its value in the
// matching table and selects the pairsData record to decode with. The index
// is a mixed-radix number: the leading group is encoded by one of four
// symmetry-reduced schemes, every later group by binomial coefficients over
// the squares still free.
//
// Returns ChangeSTM when a one-sided DTZ table stores the other side to
// move; the caller then minimizes over a 1-ply search instead.
func encodePosition(ix *indexTables, e *table, pos *chess.Position) (*pairsData, uint64, ProbeState) {
	var squares [tbPieces]int
	var pieces [tbPieces]chess.Piece
	size, leadPawnsCnt, tbFile := 0, 0, 0
	var idx uint64

	// A table covers two material keys: KRvK stores both KR-vs-k and
	// k-vs-KR. When the keys coincide only the white-to-move case is
	// stored; when the position matches key2 the stronger side is black.
	// Either way the lookup flips colors and ranks first.
	symmetricBlackToMove := e.key == e.key2 && pos.SideToMove() == chess.Black
	blackStronger := pos.MaterialKey() != e.key

	flipColor, flipSquares := 0, 0
	stm := int(pos.SideToMove())
	if symmetricBlackToMove || blackStronger {
		flipColor, flipSquares = 8, 56
		stm ^= 1
	}

	// Tables with pawns come in four per-file flavors selected by the
	// leading pawn: the one with the maximum mapPawns value, nearest the
	// edge and lowest ranked.
	var leadPawns uint64
	if e.hasPawns {
		pc := chess.Piece(uint8(e.get(0, 0).pieces[0]) ^ uint8(flipColor))
		leadPawns = pos.Pieces(pc.Color(), chess.Pawn)
		for b := leadPawns; b != 0; b &= b - 1 {
			squares[size] = bits.TrailingZeros64(b) ^ flipSquares
			size++
		}
		leadPawnsCnt = size

		maxI := 0
		for i := 1; i < leadPawnsCnt; i++ {
			if ix.mapPawns[squares[i]] > ix.mapPawns[squares[maxI]] {
				maxI = i
			}
		}
		squares[0], squares[maxI] = squares[maxI], squares[0]
		tbFile = edgeDistance(fileOf(squares[0]))
	}

	// DTZ tables store positions for one side to move only.
	if e.kind == kindDTZ {
		flags := e.get(stm, tbFile).flags
		if int(flags&flagSTM) != stm && (e.key != e.key2 || e.hasPawns) {
			return nil, 0, ChangeSTM
		}
	}

	// Map the remaining pieces to the oriented colors and squares.
	for b := pos.Occupied() &^ leadPawns; b != 0; b &= b - 1 {
		s := bits.TrailingZeros64(b)
		squares[size] = s ^ flipSquares
		pieces[size] = chess.Piece(uint8(pos.PieceOn(s)) ^ uint8(flipColor))
		size++
	}

	d := e.get(stm, tbFile)

	// Reorder to the canonical sequence this pairsData was generated with.
	for i := leadPawnsCnt; i < size-1; i++ {
		for j := i + 1; j < size; j++ {
			if d.pieces[i] == pieces[j] {
				pieces[i], pieces[j] = pieces[j], pieces[i]
				squares[i], squares[j] = squares[j], squares[i]
				break
			}
		}
	}

	// Mirror so the leading square is on files a-d.
	if fileOf(squares[0]) > 3 {
		for i := 0; i < size; i++ {
			squares[i] = flipFile(squares[i])
		}
	}

	if e.hasPawns {
		idx = ix.leadPawnIdx[leadPawnsCnt][squares[0]]

		rest := squares[1:leadPawnsCnt]
		sort.Slice(rest, func(a, b int) bool {
			return ix.mapPawns[rest[a]] < ix.mapPawns[rest[b]]
		})
		for i := 1; i < leadPawnsCnt; i++ {
			idx += ix.binomial[i][ix.mapPawns[squares[i]]]
		}

		return d, encodeRemaining(ix, e, d, idx, &squares, size), OK
	}

	// Without pawns, also mirror into ranks 1-4.
	if rankOf(squares[0]) > 3 {
		for i := 0; i < size; i++ {
			squares[i] = flipRank(squares[i])
		}
	}

	// Reflect across a1-h8 so the first off-diagonal leading piece lies
	// below the diagonal.
	for i := 0; i < d.groupLen[0]; i++ {
		if offA1H8(squares[i]) == 0 {
			continue
		}
		if offA1H8(squares[i]) > 0 {
			for j := i; j < size; j++ {
				squares[j] = flipDiag(squares[j])
			}
		}
		break
	}

	switch {
	case e.numUniquePieces >= 3:
		// Encode the first three (unique) pieces together, with the cases
		// where leading pieces sit on the a1-h8 diagonal numbered after
		// the generic below-diagonal case.
		adjust1 := 0
		if squares[1] > squares[0] {
			adjust1 = 1
		}
		adjust2 := 0
		if squares[2] > squares[0] {
			adjust2++
		}
		if squares[2] > squares[1] {
			adjust2++
		}

		switch {
		case offA1H8(squares[0]) != 0:
			idx = (uint64(ix.mapA1D1D4[squares[0]])*63+
				uint64(squares[1]-adjust1))*62 +
				uint64(squares[2]-adjust2)
		case offA1H8(squares[1]) != 0:
			idx = (6*63+uint64(rankOf(squares[0]))*28+
				uint64(ix.mapB1H1H7[squares[1]]))*62 +
				uint64(squares[2]-adjust2)
		case offA1H8(squares[2]) != 0:
			idx = 6*63*62 + 4*28*62 +
				uint64(rankOf(squares[0]))*7*28 +
				uint64(rankOf(squares[1])-adjust1)*28 +
				uint64(ix.mapB1H1H7[squares[2]])
		default:
			idx = 6*63*62 + 4*28*62 + 4*7*28 +
				uint64(rankOf(squares[0]))*7*6 +
				uint64(rankOf(squares[1])-adjust1)*6 +
				uint64(rankOf(squares[2])-adjust2)
		}

	case e.numUniquePieces == 2:
		idx = uint64(ix.mapKK[ix.mapA1D1D4[squares[0]]][squares[1]])

	case e.minLikeCount == 2:
		if triangle[squares[0]] > triangle[squares[1]] {
			squares[0], squares[1] = squares[1], squares[0]
		}
		if fileOf(squares[0]) > 3 {
			for i := 0; i < size; i++ {
				squares[i] = flipFile(squares[i])
			}
		}
		if rankOf(squares[0]) > 3 {
			for i := 0; i < size; i++ {
				squares[i] = flipRank(squares[i])
			}
		}
		if offA1H8(squares[0]) > 0 || (offA1H8(squares[0]) == 0 && offA1H8(squares[1]) > 0) {
			for i := 0; i < size; i++ {
				squares[i] = flipDiag(squares[i])
			}
		}
		if test45&(uint64(1)<<uint(squares[1])) != 0 && triangle[squares[0]] == triangle[squares[1]] {
			squares[0], squares[1] = squares[1], squares[0]
			for i := 0; i < size; i++ {
				squares[i] = flipFile(squares[i])
			}
		}
		idx = uint64(mapPP[triangle[squares[0]]][squares[1]])

	default:
		for i := 1; i < d.groupLen[0]; i++ {
			if triangle[squares[0]] > triangle[squares[i]] {
				squares[0], squares[i] = squares[i], squares[0]
			}
		}
		if fileOf(squares[0]) > 3 {
			for i := 0; i < size; i++ {
				squares[i] = flipFile(squares[i])
			}
		}
		if rankOf(squares[0]) > 3 {
			for i := 0; i < size; i++ {
				squares[i] = flipRank(squares[i])
			}
		}
		if offA1H8(squares[0]) > 0 {
			for i := 0; i < size; i++ {
				squares[i] = flipDiag(squares[i])
			}
		}
		for i := 1; i < d.groupLen[0]; i++ {
			for j := i + 1; j < d.groupLen[0]; j++ {
				if multTwist[squares[i]] > multTwist[squares[j]] {
					squares[i], squares[j] = squares[j], squares[i]
				}
			}
		}
		idx = ix.multIdx[d.groupLen[0]-1][triangle[squares[0]]]
		for i := 1; i < d.groupLen[0]; i++ {
			idx += ix.binomial[i][multTwist[squares[i]]]
		}
	}

	return d, encodeRemaining(ix, e, d, idx, &squares, size), OK
}

// encodeRemaining folds the later groups into the index: within a group,
// squares are sorted ascending and encoded binomially, shifted down past
// the squares already consumed (and past the first ranks while pawns of the
// other color remain).
func encodeRemaining(ix *indexTables, e *table, d *pairsData, idx uint64, squares *[tbPieces]int, size int) uint64 {
	idx *= d.groupIdx[0]
	groupStart := d.groupLen[0]

	remainingPawns := e.hasPawns && e.pawnCount[1] > 0

	for next := 1; d.groupLen[next] != 0; next++ {
		grp := squares[groupStart : groupStart+d.groupLen[next]]
		sort.Ints(grp)

		var n uint64
		for i := 0; i < len(grp); i++ {
			adjust := 0
			for _, s := range squares[:groupStart] {
				if grp[i] > s {
					adjust++
				}
			}
			shift := 0
			if remainingPawns {
				shift = 8
			}
			n += ix.binomial[i+1][grp[i]-adjust-shift]
		}

		remainingPawns = false
		idx += n * d.groupIdx[next]
		groupStart += d.groupLen[next]
	}

	return idx
}
