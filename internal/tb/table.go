package tb

import (
	"sync/atomic"

	"github.com/freeeve/tablebase/internal/chess"
)

// tbPieces is the maximum number of pieces a table can cover.
const tbPieces = 7

type tableKind int

const (
	kindWDL tableKind = iota
	kindDTZ
)

func (k tableKind) suffix() string {
	if k == kindWDL {
		return ".rtbw"
	}
	return ".rtbz"
}

func (k tableKind) magic() [4]byte {
	if k == kindWDL {
		return [4]byte{0x71, 0xE8, 0x23, 0x5D}
	}
	return [4]byte{0xD7, 0x66, 0x0C, 0xA5}
}

// sides stored in a file of this kind: DTZ tables are one-sided.
func (k tableKind) sides() int {
	if k == kindWDL {
		return 2
	}
	return 1
}

// Table flags. All refer to DTZ tables except singleValue, which both kinds
// use.
const (
	flagSTM         = 1
	flagMapped      = 2
	flagWinPlies    = 4
	flagLossPlies   = 8
	flagWide        = 16
	flagSingleValue = 128
)

// table is the descriptor for one material class and kind. The shape facts
// are filled at registration; items and the mapping are populated lazily on
// first probe under the registry mutex and published through ready.
type table struct {
	kind       tableKind
	code       string // canonical signature, stronger side first: "KRPvKR"
	key, key2  uint64
	pieceCount int
	hasPawns   bool

	numUniquePieces int
	minLikeCount    int
	pawnCount       [2]uint8 // leading color first

	ready   atomic.Bool
	mapping *mapping
	dtzMap  []byte
	items   [2][4]pairsData // [side][file]; DTZ and symmetric WDL use side 0
}

func (e *table) get(stm, f int) *pairsData {
	if !e.hasPawns {
		f = 0
	}
	return &e.items[stm%e.kind.sides()][f]
}

func countsOf(w, b []chess.PieceType) [12]uint8 {
	var counts [12]uint8
	for _, pt := range w {
		counts[pt-1]++
	}
	for _, pt := range b {
		counts[6+pt-1]++
	}
	return counts
}

func mirrorCounts(c [12]uint8) [12]uint8 {
	var m [12]uint8
	copy(m[:6], c[6:])
	copy(m[6:], c[:6])
	return m
}

// newWDLTable computes the shape facts of a material signature. w and b
// hold the piece types of each side, king first then descending value.
func newWDLTable(w, b []chess.PieceType) *table {
	counts := countsOf(w, b)

	code := ""
	for _, pt := range w {
		code += pt.String()
	}
	code += "v"
	for _, pt := range b {
		code += pt.String()
	}

	e := &table{
		kind:       kindWDL,
		code:       code,
		key:        chess.MaterialKeyFromCounts(counts),
		key2:       chess.MaterialKeyFromCounts(mirrorCounts(counts)),
		pieceCount: len(w) + len(b),
	}

	whitePawns := int(counts[chess.Pawn-1])
	blackPawns := int(counts[6+chess.Pawn-1])
	e.hasPawns = whitePawns+blackPawns > 0

	for i := 0; i < 12; i++ {
		n := int(counts[i])
		if n == 1 {
			e.numUniquePieces++
		}
		if n >= 2 && (e.minLikeCount == 0 || n < e.minLikeCount) {
			e.minLikeCount = n
		}
	}

	// The leading color is the side with fewer pawns, ties to white; this
	// gives the better compression.
	leadWhite := blackPawns == 0 || (whitePawns != 0 && blackPawns >= whitePawns)
	if leadWhite {
		e.pawnCount[0], e.pawnCount[1] = uint8(whitePawns), uint8(blackPawns)
	} else {
		e.pawnCount[0], e.pawnCount[1] = uint8(blackPawns), uint8(whitePawns)
	}

	return e
}

// newDTZTable shares the WDL descriptor's shape facts.
func newDTZTable(w *table) *table {
	return &table{
		kind:            kindDTZ,
		code:            w.code,
		key:             w.key,
		key2:            w.key2,
		pieceCount:      w.pieceCount,
		hasPawns:        w.hasPawns,
		numUniquePieces: w.numUniquePieces,
		minLikeCount:    w.minLikeCount,
		pawnCount:       w.pawnCount,
	}
}

func (e *table) close() {
	if e.mapping != nil {
		e.mapping.close()
		e.mapping = nil
	}
}

// mapped maps and parses the descriptor's file on first access. The fast
// path is a single acquire load; initialization is serialized by the
// registry mutex and published with a release store, so once ready is
// observed true every field is stable.
func (t *Tablebases) mapped(e *table) bool {
	if e.ready.Load() {
		return e.mapping != nil // nil when the file is absent or corrupt
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if e.ready.Load() {
		return e.mapping != nil
	}

	if f, ok := findFile(t.paths, e.code+e.kind.suffix()); ok {
		m, err := f.mapTable(e.kind.magic())
		if err == nil {
			if err = e.parse(t.idx, m); err != nil {
				m.close()
				m = nil
			} else {
				e.mapping = m
			}
		}
		if err != nil {
			t.log.Error().Err(err).Str("table", e.code).Msg("info string ignoring corrupt tablebase")
		}
	}

	e.ready.Store(true)
	return e.mapping != nil
}
