package tb

import (
	"encoding/binary"
	"fmt"

	"github.com/freeeve/tablebase/internal/chess"
)

// pairsData holds the per-(side, file) decoding state: the canonical
// Huffman code, the Re-Pair grammar, the sparse directory into the block
// stream and the piece ordering that defines the index space. All slices
// are views into the descriptor's mapping except base64 and symlen, which
// are computed at parse time.
//
// Layout of one table file (after the 4-byte magic):
//   - 1 flag byte: bit 0 split, bit 1 has-pawns
//   - per file: order byte(s), then pieceCount bytes of 4-bit piece codes
//   - 2-byte alignment, then per (file, side) the sizes block below
//   - DTZ only: the value remap region, 2-byte aligned afterwards
//   - per (file, side): sparseIndexSize 6-byte entries (little-endian)
//   - per (file, side): blockLengthSize 2-byte entries (little-endian)
//   - per (file, side): 64-byte alignment, then blocksNum*blockSize of
//     big-endian Huffman data
//
// Alignment is relative to the start of the file, magic included.
type pairsData struct {
	flags     uint8
	maxSymLen uint8
	minSymLen uint8
	blocksNum uint32
	blockSize uint64
	span      uint64

	sparseIndexSize int
	blockLengthSize uint32

	lowestSym   []byte // 2 bytes per symbol length
	base64      []uint64
	symlen      []uint8
	btree       []byte // 3 bytes per symbol
	blockLength []byte // 2 bytes per block
	sparseIndex []byte // 6 bytes per entry
	data        []byte // compressed block stream

	pieces   [tbPieces]chess.Piece
	groupIdx [tbPieces + 1]uint64
	groupLen [tbPieces + 1]int

	mapIdx [4]uint16 // win, loss, cursed win, blessed loss (DTZ only)
}

func le16(b []byte) uint16 { return binary.LittleEndian.Uint16(b) }
func le32(b []byte) uint32 { return binary.LittleEndian.Uint32(b) }
func be32(b []byte) uint32 { return binary.BigEndian.Uint32(b) }
func be64(b []byte) uint64 { return binary.BigEndian.Uint64(b) }

// btree entries pack two 12-bit symbols into 3 bytes. A leaf stores its raw
// value in the left symbol and 0xFFF in the right.
func (d *pairsData) btreeLeft(s uint16) uint16 {
	i := 3 * int(s)
	return uint16(d.btree[i+1]&0xF)<<8 | uint16(d.btree[i])
}

func (d *pairsData) btreeRight(s uint16) uint16 {
	i := 3 * int(s)
	return uint16(d.btree[i+2])<<4 | uint16(d.btree[i+1])>>4
}

// tbSize is the index space of this (side, file): the place value past the
// last group.
func (d *pairsData) tbSize() uint64 {
	n := 0
	for n < len(d.groupLen) && d.groupLen[n] != 0 {
		n++
	}
	return d.groupIdx[n]
}

// setGroups derives the group structure from the piece ordering. Pieces of
// equal type and color are grouped; the leading group spans the lead pawns,
// or 3 pieces when at least 3 are unique, or the king pair. Each group's
// place value is a mixed-radix factor, multiplied in the order the header's
// order fields dictate: order[0] positions the leading group, order[1] the
// remaining pawns when both sides have them.
func setGroups(ix *indexTables, e *table, d *pairsData, order [2]int, f int) {
	n, firstLen := 0, 2
	if e.hasPawns {
		firstLen = 0
	} else if e.numUniquePieces >= 3 {
		firstLen = 3
	}
	d.groupLen[0] = 1

	for i := 1; i < e.pieceCount; i++ {
		firstLen--
		if firstLen > 0 || d.pieces[i] == d.pieces[i-1] {
			d.groupLen[n]++
		} else {
			n++
			d.groupLen[n] = 1
		}
	}
	n++
	d.groupLen[n] = 0 // zero-terminated

	pp := e.hasPawns && e.pawnCount[1] > 0 // pawns on both sides
	next := 1
	if pp {
		next = 2
	}
	freeSquares := 64 - d.groupLen[0]
	if pp {
		freeSquares -= d.groupLen[1]
	}
	idx := uint64(1)

	for k := 0; next < n || k == order[0] || k == order[1]; k++ {
		switch {
		case k == order[0]: // leading pawns or pieces
			d.groupIdx[0] = idx
			switch {
			case e.hasPawns:
				idx *= ix.leadPawnsSize[d.groupLen[0]][f]
			case e.numUniquePieces >= 3:
				idx *= 31332
			case e.numUniquePieces == 2:
				idx *= 462
			case e.minLikeCount == 2:
				idx *= 278
			default:
				idx *= ix.multFactor[e.minLikeCount-1]
			}
		case k == order[1]: // remaining pawns
			d.groupIdx[1] = idx
			idx *= ix.binomial[d.groupLen[1]][48-d.groupLen[0]]
		default: // remaining pieces
			d.groupIdx[next] = idx
			idx *= ix.binomial[d.groupLen[next]][freeSquares]
			freeSquares -= d.groupLen[next]
			next++
		}
	}
	d.groupIdx[n] = idx
}

// setSymlen expands the Re-Pair grammar iteratively: symlen[s] is one less
// than the number of raw values symbol s produces. Symbols can chain up to
// 256 values, so the depth-first walk keeps an explicit stack.
func (d *pairsData) setSymlen() error {
	visited := make([]bool, len(d.symlen))

	type frame struct {
		sym   uint16
		stage uint8
	}
	var stack []frame

	for s := range d.symlen {
		if visited[s] {
			continue
		}
		stack = append(stack[:0], frame{sym: uint16(s)})
		for len(stack) > 0 {
			fr := &stack[len(stack)-1]
			sym := fr.sym
			visited[sym] = true

			right := d.btreeRight(sym)
			if right == 0xFFF {
				d.symlen[sym] = 0
				stack = stack[:len(stack)-1]
				continue
			}
			left := d.btreeLeft(sym)
			if int(left) >= len(d.symlen) || int(right) >= len(d.symlen) {
				return fmt.Errorf("%w: unreachable grammar symbol", errCorrupt)
			}

			switch fr.stage {
			case 0:
				fr.stage = 1
				if !visited[left] {
					stack = append(stack, frame{sym: left})
				}
			case 1:
				fr.stage = 2
				if !visited[right] {
					stack = append(stack, frame{sym: right})
				}
			default:
				d.symlen[sym] = d.symlen[left] + d.symlen[right] + 1
				stack = stack[:len(stack)-1]
			}
		}
	}
	return nil
}

// readSizes parses one sizes block at cursor c of the post-magic view and
// returns the cursor past it. A singleValue table stores its value byte in
// minSymLen and nothing else.
func (d *pairsData) readSizes(v []byte, c int) (int, error) {
	d.flags = v[c]
	c++

	if d.flags&flagSingleValue != 0 {
		d.blocksNum, d.blockLengthSize = 0, 0
		d.span, d.sparseIndexSize = 0, 0
		d.minSymLen = v[c] // the single value lives here
		c++
		return c, nil
	}

	tbSize := d.tbSize()

	d.blockSize = uint64(1) << v[c]
	c++
	d.span = uint64(1) << v[c]
	c++
	d.sparseIndexSize = int((tbSize + d.span - 1) / d.span)
	padding := v[c]
	c++
	d.blocksNum = le32(v[c:])
	c += 4
	// Padded so the sparse index cannot point past the end.
	d.blockLengthSize = d.blocksNum + uint32(padding)
	d.maxSymLen = v[c]
	c++
	d.minSymLen = v[c]
	c++

	if d.maxSymLen < d.minSymLen || int(d.maxSymLen) > 63 {
		return 0, fmt.Errorf("%w: symbol lengths %d..%d", errCorrupt, d.minSymLen, d.maxSymLen)
	}
	ns := int(d.maxSymLen-d.minSymLen) + 1
	d.lowestSym = v[c : c+2*ns]
	c += 2 * ns

	// The canonical code assigns consecutive integers to symbols of equal
	// length, longer symbols getting lower values. base64[l] is the lowest
	// symbol of length l, left-padded to 64 bits; scanning for the first
	// base64[l] <= buffer finds the length of the next symbol.
	d.base64 = make([]uint64, ns)
	for i := ns - 2; i >= 0; i-- {
		d.base64[i] = (d.base64[i+1] +
			uint64(le16(d.lowestSym[2*i:])) -
			uint64(le16(d.lowestSym[2*(i+1):]))) / 2
	}
	for i := 0; i < ns; i++ {
		d.base64[i] <<= uint(64 - i - int(d.minSymLen))
	}

	symCount := int(le16(v[c:]))
	c += 2
	d.symlen = make([]uint8, symCount)
	d.btree = v[c : c+3*symCount]
	c += 3*symCount + (symCount & 1)

	if err := d.setSymlen(); err != nil {
		return 0, err
	}
	return c, nil
}

// readDTZMap parses the shared value-remap region. mapIdx entries address
// the region in bytes, or in 16-bit units when the wide flag is set.
func (e *table) readDTZMap(v []byte, c, maxFile int) int {
	start := c
	for f := 0; f < maxFile; f++ {
		d := e.get(0, f)
		if d.flags&flagMapped == 0 {
			continue
		}
		if d.flags&flagWide != 0 {
			c += c & 1 // word alignment, the table may mix widths
			for i := 0; i < 4; i++ {
				d.mapIdx[i] = uint16((c-start)/2 + 1)
				c += 2*int(le16(v[c:])) + 2
			}
		} else {
			for i := 0; i < 4; i++ {
				d.mapIdx[i] = uint16(c - start + 1)
				c += int(v[c]) + 1
			}
		}
	}
	e.dtzMap = v[start:]
	c += c & 1 // word alignment
	return c
}

// parse populates the descriptor's pairsData records from the mapped file.
func (e *table) parse(ix *indexTables, m *mapping) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: truncated header in %s", errCorrupt, e.code)
		}
	}()

	v := m.view()

	const (
		headerSplit    = 1
		headerHasPawns = 2
	)
	if e.hasPawns != (v[0]&headerHasPawns != 0) || (e.key != e.key2) != (v[0]&headerSplit != 0) {
		return fmt.Errorf("%w: header flags disagree with material %s", errCorrupt, e.code)
	}
	c := 1

	sides := 1
	if e.kind.sides() == 2 && e.key != e.key2 {
		sides = 2
	}
	maxFile := 1
	if e.hasPawns {
		maxFile = 4
	}
	pp := e.hasPawns && e.pawnCount[1] > 0

	for f := 0; f < maxFile; f++ {
		for i := 0; i < sides; i++ {
			*e.get(i, f) = pairsData{}
		}

		var order [2][2]int
		order[0] = [2]int{int(v[c] & 0xF), 0xF}
		order[1] = [2]int{int(v[c] >> 4), 0xF}
		if pp {
			order[0][1] = int(v[c+1] & 0xF)
			order[1][1] = int(v[c+1] >> 4)
			c += 2
		} else {
			c++
		}

		for k := 0; k < e.pieceCount; k++ {
			for i := 0; i < sides; i++ {
				pc := v[c] & 0xF
				if i == 1 {
					pc = v[c] >> 4
				}
				e.get(i, f).pieces[k] = chess.Piece(pc)
			}
			c++
		}

		for i := 0; i < sides; i++ {
			setGroups(ix, e, e.get(i, f), order[i], f)
		}
	}

	c += c & 1 // word alignment

	for f := 0; f < maxFile; f++ {
		for i := 0; i < sides; i++ {
			if c, err = e.get(i, f).readSizes(v, c); err != nil {
				return err
			}
		}
	}

	if e.kind == kindDTZ {
		c = e.readDTZMap(v, c, maxFile)
	}

	for f := 0; f < maxFile; f++ {
		for i := 0; i < sides; i++ {
			d := e.get(i, f)
			d.sparseIndex = v[c : c+6*d.sparseIndexSize]
			c += 6 * d.sparseIndexSize
		}
	}

	for f := 0; f < maxFile; f++ {
		for i := 0; i < sides; i++ {
			d := e.get(i, f)
			d.blockLength = v[c : c+2*int(d.blockLengthSize)]
			c += 2 * int(d.blockLengthSize)
		}
	}

	for f := 0; f < maxFile; f++ {
		for i := 0; i < sides; i++ {
			d := e.get(i, f)
			// Block data is 64-byte aligned from the file start; the view
			// begins after the 4 magic bytes.
			c = ((c+4+0x3F)&^0x3F) - 4
			size := int(uint64(d.blocksNum) * d.blockSize)
			d.data = v[c : c+size]
			c += size
		}
	}

	return nil
}
