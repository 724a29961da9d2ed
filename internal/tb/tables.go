package tb

// Precomputed symmetry and combinatorial arrays used by the position
// encoder. Built once by newIndexTables and immutable afterwards; every
// probe reads them without synchronization.

// triangle maps a square to its index in the a1-d1-d4 triangle under the
// full 8-fold board symmetry.
var triangle = [64]int{
	6, 0, 1, 2, 2, 1, 0, 6,
	0, 7, 3, 4, 4, 3, 7, 0,
	1, 3, 8, 5, 5, 8, 3, 1,
	2, 4, 5, 9, 9, 5, 4, 2,
	2, 4, 5, 9, 9, 5, 4, 2,
	1, 3, 8, 5, 5, 8, 3, 1,
	0, 7, 3, 4, 4, 3, 7, 0,
	6, 0, 1, 2, 2, 1, 0, 6,
}

// mapPP[triangle[s0]][s1] encodes a like-piece pair after triangle
// canonicalization. -1 marks square combinations removed by symmetry.
var mapPP = [10][64]int16{
	{0, -1, 1, 2, 3, 4, 5, 6,
		7, 8, 9, 10, 11, 12, 13, 14,
		15, 16, 17, 18, 19, 20, 21, 22,
		23, 24, 25, 26, 27, 28, 29, 30,
		31, 32, 33, 34, 35, 36, 37, 38,
		39, 40, 41, 42, 43, 44, 45, 46,
		-1, 47, 48, 49, 50, 51, 52, 53,
		54, 55, 56, 57, 58, 59, 60, 61},
	{62, -1, -1, 63, 64, 65, -1, 66,
		-1, 67, 68, 69, 70, 71, 72, -1,
		73, 74, 75, 76, 77, 78, 79, 80,
		81, 82, 83, 84, 85, 86, 87, 88,
		89, 90, 91, 92, 93, 94, 95, 96,
		-1, 97, 98, 99, 100, 101, 102, 103,
		-1, 104, 105, 106, 107, 108, 109, -1,
		110, -1, 111, 112, 113, 114, -1, 115},
	{116, -1, -1, -1, 117, -1, -1, 118,
		-1, 119, 120, 121, 122, 123, 124, -1,
		-1, 125, 126, 127, 128, 129, 130, -1,
		131, 132, 133, 134, 135, 136, 137, 138,
		-1, 139, 140, 141, 142, 143, 144, 145,
		-1, 146, 147, 148, 149, 150, 151, -1,
		-1, 152, 153, 154, 155, 156, 157, -1,
		158, -1, -1, 159, 160, -1, -1, 161},
	{162, -1, -1, -1, -1, -1, -1, 163,
		-1, 164, -1, 165, 166, 167, 168, -1,
		-1, 169, 170, 171, 172, 173, 174, -1,
		-1, 175, 176, 177, 178, 179, 180, -1,
		-1, 181, 182, 183, 184, 185, 186, -1,
		-1, -1, 187, 188, 189, 190, 191, -1,
		-1, 192, 193, 194, 195, 196, 197, -1,
		198, -1, -1, -1, -1, -1, -1, 199},
	{200, -1, -1, -1, -1, -1, -1, 201,
		-1, 202, -1, -1, 203, -1, 204, -1,
		-1, -1, 205, 206, 207, 208, -1, -1,
		-1, 209, 210, 211, 212, 213, 214, -1,
		-1, -1, 215, 216, 217, 218, 219, -1,
		-1, -1, 220, 221, 222, 223, -1, -1,
		-1, 224, -1, 225, 226, -1, 227, -1,
		228, -1, -1, -1, -1, -1, -1, 229},
	{230, -1, -1, -1, -1, -1, -1, 231,
		-1, 232, -1, -1, -1, -1, 233, -1,
		-1, -1, 234, -1, 235, 236, -1, -1,
		-1, -1, 237, 238, 239, 240, -1, -1,
		-1, -1, -1, 241, 242, 243, -1, -1,
		-1, -1, 244, 245, 246, 247, -1, -1,
		-1, 248, -1, -1, -1, -1, 249, -1,
		250, -1, -1, -1, -1, -1, -1, 251},
	{-1, -1, -1, -1, -1, -1, -1, 259,
		-1, 252, -1, -1, -1, -1, 260, -1,
		-1, -1, 253, -1, -1, 261, -1, -1,
		-1, -1, -1, 254, 262, -1, -1, -1,
		-1, -1, -1, -1, 255, -1, -1, -1,
		-1, -1, -1, -1, -1, 256, -1, -1,
		-1, -1, -1, -1, -1, -1, 257, -1,
		-1, -1, -1, -1, -1, -1, -1, 258},
	{-1, -1, -1, -1, -1, -1, -1, -1,
		-1, -1, -1, -1, -1, -1, 268, -1,
		-1, -1, 263, -1, -1, 269, -1, -1,
		-1, -1, -1, 264, 270, -1, -1, -1,
		-1, -1, -1, -1, 265, -1, -1, -1,
		-1, -1, -1, -1, -1, 266, -1, -1,
		-1, -1, -1, -1, -1, -1, 267, -1,
		-1, -1, -1, -1, -1, -1, -1, -1},
	{-1, -1, -1, -1, -1, -1, -1, -1,
		-1, -1, -1, -1, -1, -1, -1, -1,
		-1, -1, -1, -1, -1, 274, -1, -1,
		-1, -1, -1, 271, 275, -1, -1, -1,
		-1, -1, -1, -1, 272, -1, -1, -1,
		-1, -1, -1, -1, -1, 273, -1, -1,
		-1, -1, -1, -1, -1, -1, -1, -1,
		-1, -1, -1, -1, -1, -1, -1, -1},
	{-1, -1, -1, -1, -1, -1, -1, -1,
		-1, -1, -1, -1, -1, -1, -1, -1,
		-1, -1, -1, -1, -1, -1, -1, -1,
		-1, -1, -1, -1, 277, -1, -1, -1,
		-1, -1, -1, -1, 276, -1, -1, -1,
		-1, -1, -1, -1, -1, -1, -1, -1,
		-1, -1, -1, -1, -1, -1, -1, -1,
		-1, -1, -1, -1, -1, -1, -1, -1},
}

// multTwist orders squares for like-piece multisets of size 3..5.
var multTwist = [64]int{
	15, 63, 55, 47, 40, 48, 56, 12,
	62, 11, 39, 31, 24, 32, 8, 57,
	54, 38, 7, 23, 16, 4, 33, 49,
	46, 30, 22, 3, 0, 17, 25, 41,
	45, 29, 21, 2, 1, 18, 26, 42,
	53, 37, 6, 20, 19, 5, 34, 50,
	61, 10, 36, 28, 27, 35, 9, 58,
	14, 60, 52, 44, 43, 51, 59, 13,
}

// invTriangle maps a triangle index back to a representative square.
var invTriangle = [10]int{1, 2, 3, 10, 11, 19, 0, 9, 18, 27}

// test45 is the A5-C5-A7 triangle used when canonicalizing a like pair.
const test45 = uint64(0x1030700000000)

func fileOf(sq int) int { return sq & 7 }
func rankOf(sq int) int { return sq >> 3 }

// offA1H8 is positive above the a1-h8 diagonal, negative below it.
func offA1H8(sq int) int { return rankOf(sq) - fileOf(sq) }

func flipFile(sq int) int { return sq ^ 7 }
func flipRank(sq int) int { return sq ^ 56 }
func flipDiag(sq int) int { return ((sq >> 3) | (sq << 3)) & 63 }

// edgeDistance of a file from the nearer board edge.
func edgeDistance(f int) int {
	if f > 3 {
		return 7 - f
	}
	return f
}

// kingAttacks returns the squares a king on sq attacks.
func kingAttacks(sq int) uint64 {
	b := uint64(1) << uint(sq)
	notA := uint64(0xFEFEFEFEFEFEFEFE)
	notH := uint64(0x7F7F7F7F7F7F7F7F)
	att := (b << 8) | (b >> 8)
	att |= ((b | att) << 1) & notA
	att |= ((b | att) >> 1) & notH
	return att &^ b
}

// indexTables holds the arrays built at init time. One instance lives on
// the engine handle; all fields are read-only after newIndexTables returns.
type indexTables struct {
	mapB1H1H7 [64]int
	mapA1D1D4 [64]int
	mapKK     [10][64]int

	binomial [6][64]uint64

	mapPawns      [64]int
	leadPawnIdx   [6][64]uint64
	leadPawnsSize [6][4]uint64

	multIdx    [5][10]uint64
	multFactor [5]uint64
}

func newIndexTables() *indexTables {
	t := &indexTables{}

	// mapB1H1H7 encodes a square below the a1-h8 diagonal to 0..27.
	code := 0
	for s := 0; s < 64; s++ {
		if offA1H8(s) < 0 {
			t.mapB1H1H7[s] = code
			code++
		}
	}

	// mapA1D1D4 encodes a square in the a1-d1-d4 triangle to 0..9, with
	// the diagonal squares assigned last.
	var diagonal []int
	code = 0
	for s := 0; s <= 27; s++ {
		if offA1H8(s) < 0 && fileOf(s) <= 3 {
			t.mapA1D1D4[s] = code
			code++
		} else if offA1H8(s) == 0 && fileOf(s) <= 3 {
			diagonal = append(diagonal, s)
		}
	}
	for _, s := range diagonal {
		t.mapA1D1D4[s] = code
		code++
	}

	// mapKK encodes the 462 legal, symmetry-reduced king pairs with the
	// first king in the a1-d1-d4 triangle. If the first king is on the
	// a1-d4 diagonal, the second must not be above the a1-h8 diagonal;
	// pairs with both kings on the diagonal are numbered last.
	type diagPair struct{ idx, sq int }
	var bothOnDiagonal []diagPair
	code = 0
	for idx := 0; idx < 10; idx++ {
		for s1 := 0; s1 <= 27; s1++ {
			if t.mapA1D1D4[s1] != idx || (idx == 0 && s1 != 1) { // B1 is mapped to 0
				continue
			}
			for s2 := 0; s2 < 64; s2++ {
				if (kingAttacks(s1)|uint64(1)<<uint(s1))&(uint64(1)<<uint(s2)) != 0 {
					continue // kings coincident or adjacent
				} else if offA1H8(s1) == 0 && offA1H8(s2) > 0 {
					continue // first on diagonal, second above
				} else if offA1H8(s1) == 0 && offA1H8(s2) == 0 {
					bothOnDiagonal = append(bothOnDiagonal, diagPair{idx, s2})
				} else {
					t.mapKK[idx][s2] = code
					code++
				}
			}
		}
	}
	for _, p := range bothOnDiagonal {
		t.mapKK[p.idx][p.sq] = code
		code++
	}

	// binomial[k][n]: ways to choose k squares out of n, by Pascal's rule.
	t.binomial[0][0] = 1
	for n := 1; n < 64; n++ {
		for k := 0; k < 6 && k <= n; k++ {
			if k > 0 {
				t.binomial[k][n] = t.binomial[k-1][n-1]
			}
			if k < n {
				t.binomial[k][n] += t.binomial[k][n-1]
			}
		}
	}

	// multIdx/multFactor index like-piece multisets (leading groups with
	// fewer than two unique pieces).
	for i := 0; i < 5; i++ {
		var s uint64
		for j := 0; j < 10; j++ {
			t.multIdx[i][j] = s
			if i == 0 {
				s++
			} else {
				s += t.binomial[i][multTwist[invTriangle[j]]]
			}
		}
		t.multFactor[i] = s
	}

	// mapPawns[s] encodes squares a2-h7 so that the pawn with the highest
	// value is the leading pawn: the one nearest the edge and, within a
	// file, on the lowest rank. leadPawnIdx/leadPawnsSize accumulate the
	// per-file combination counts for up to 5 leading pawns.
	availableSquares := 47
	for leadPawnsCnt := 1; leadPawnsCnt <= 5; leadPawnsCnt++ {
		for f := 0; f <= 3; f++ {
			var idx uint64
			for r := 1; r <= 6; r++ {
				sq := f + 8*r
				if leadPawnsCnt == 1 {
					t.mapPawns[sq] = availableSquares
					availableSquares--
					t.mapPawns[flipFile(sq)] = availableSquares
					availableSquares--
				}
				t.leadPawnIdx[leadPawnsCnt][sq] = idx
				idx += t.binomial[leadPawnsCnt-1][t.mapPawns[sq]]
			}
			t.leadPawnsSize[leadPawnsCnt][f] = idx
		}
	}

	return t
}
