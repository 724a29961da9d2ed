// Package tb probes Syzygy endgame tables: given a position covered by the
// available files it answers the theoretical result (WDL) and the distance
// to the next zeroing move (DTZ). Files are discovered at init, memory
// mapped on first probe, and read lock-free afterwards.
package tb

import (
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	"github.com/freeeve/tablebase/internal/chess"
)

const (
	hashSize     = 1 << 12 // buckets, indexed by the key's low 12 bits
	hashOverflow = 1       // extra slot so lookups can stop at an empty entry
)

type hashEntry struct {
	key uint64
	wdl *table
	dtz *table
}

func (h *hashEntry) get(k tableKind) *table {
	if k == kindWDL {
		return h.wdl
	}
	return h.dtz
}

// Config configures a Tablebases handle.
type Config struct {
	// Paths is the search path list for table files, separated by the
	// platform list separator (":" on unix, ";" on Windows). Empty or the
	// literal "<empty>" disables probing.
	Paths string

	// DisableFiftyMoveRule treats cursed wins and blessed losses as real
	// wins and losses when ranking root moves.
	DisableFiftyMoveRule bool

	Logger zerolog.Logger
}

// Tablebases is the engine handle: the index tables, the registry hash and
// the descriptors. Build one with New, then share it freely; everything is
// read-only after Init except the lazy per-descriptor mapping, which is
// guarded by mu and published through each descriptor's ready flag.
type Tablebases struct {
	log    zerolog.Logger
	rule50 bool
	paths  []string
	idx    *indexTables

	hash [hashSize + hashOverflow]hashEntry
	wdls []*table
	dtzs []*table

	maxCardinality int

	mu sync.Mutex
}

// New builds the index tables and registers the files found on the
// configured paths. Init may be called again later to point the handle at a
// different path list; that call is the caller's to serialize.
func New(cfg Config) *Tablebases {
	t := &Tablebases{
		log:    cfg.Logger,
		rule50: !cfg.DisableFiftyMoveRule,
		idx:    newIndexTables(),
	}
	t.Init(cfg.Paths)
	return t
}

// MaxCardinality is the piece count of the largest registered signature.
func (t *Tablebases) MaxCardinality() int { return t.maxCardinality }

// Size is the number of registered table pairs.
func (t *Tablebases) Size() int { return len(t.wdls) }

// Close releases every mapping. The handle is unusable afterwards.
func (t *Tablebases) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, e := range t.wdls {
		e.close()
	}
	for _, e := range t.dtzs {
		e.close()
	}
	t.wdls, t.dtzs = nil, nil
	t.hash = [hashSize + hashOverflow]hashEntry{}
}

// Init clears the registry and enumerates every material signature up to 7
// pieces, registering the ones whose WDL file exists somewhere on the path
// list. Only existence is checked here; mapping happens at first probe.
// Not safe to call concurrently with probes.
func (t *Tablebases) Init(paths string) {
	t.Close()
	t.maxCardinality = 0
	t.paths = nil

	if paths == "" || paths == "<empty>" {
		return
	}
	t.paths = filepath.SplitList(paths)

	const king = chess.King
	for p1 := chess.Pawn; p1 < king; p1++ {
		t.add([]chess.PieceType{king, p1}, []chess.PieceType{king})

		for p2 := chess.Pawn; p2 <= p1; p2++ {
			t.add([]chess.PieceType{king, p1, p2}, []chess.PieceType{king})
			t.add([]chess.PieceType{king, p1}, []chess.PieceType{king, p2})

			for p3 := chess.Pawn; p3 < king; p3++ {
				t.add([]chess.PieceType{king, p1, p2}, []chess.PieceType{king, p3})
			}

			for p3 := chess.Pawn; p3 <= p2; p3++ {
				t.add([]chess.PieceType{king, p1, p2, p3}, []chess.PieceType{king})

				for p4 := chess.Pawn; p4 <= p3; p4++ {
					t.add([]chess.PieceType{king, p1, p2, p3, p4}, []chess.PieceType{king})

					for p5 := chess.Pawn; p5 <= p4; p5++ {
						t.add([]chess.PieceType{king, p1, p2, p3, p4, p5}, []chess.PieceType{king})
					}
					for p5 := chess.Pawn; p5 < king; p5++ {
						t.add([]chess.PieceType{king, p1, p2, p3, p4}, []chess.PieceType{king, p5})
					}
				}

				for p4 := chess.Pawn; p4 < king; p4++ {
					t.add([]chess.PieceType{king, p1, p2, p3}, []chess.PieceType{king, p4})

					for p5 := chess.Pawn; p5 <= p4; p5++ {
						t.add([]chess.PieceType{king, p1, p2, p3}, []chess.PieceType{king, p4, p5})
					}
				}
			}

			for p3 := chess.Pawn; p3 <= p1; p3++ {
				p4max := p3
				if p1 == p3 {
					p4max = p2
				}
				for p4 := chess.Pawn; p4 <= p4max; p4++ {
					t.add([]chess.PieceType{king, p1, p2}, []chess.PieceType{king, p3, p4})
				}
			}
		}
	}

	t.log.Info().Int("tables", t.Size()).Msg("info string found tablebases")
}

// add registers the signature if its WDL file exists. The DTZ descriptor
// shares the WDL shape facts; its file is only looked for at first probe.
func (t *Tablebases) add(w, b []chess.PieceType) {
	wdl := newWDLTable(w, b)

	if _, ok := findFile(t.paths, wdl.code+kindWDL.suffix()); !ok {
		return
	}

	if n := len(w) + len(b); n > t.maxCardinality {
		t.maxCardinality = n
	}

	dtz := newDTZTable(wdl)
	t.wdls = append(t.wdls, wdl)
	t.dtzs = append(t.dtzs, dtz)

	// Both orientations hash to the same pair: KRvK is found for KR-vs-k
	// and for k-vs-KR alike.
	t.insert(wdl.key, wdl, dtz)
	t.insert(wdl.key2, wdl, dtz)
}

// insert places an entry with Robin Hood displacement: an entry probing
// further than the incumbent swaps in and the incumbent moves on. The last
// slot is kept empty so lookups terminate. Overflow means the table
// constant is mis-sized for the number of files and is fatal.
func (t *Tablebases) insert(key uint64, wdl, dtz *table) {
	homeBucket := uint32(key) & (hashSize - 1)
	e := hashEntry{key: key, wdl: wdl, dtz: dtz}

	for bucket := homeBucket; bucket < hashSize+hashOverflow-1; bucket++ {
		otherKey := t.hash[bucket].key
		if otherKey == key || t.hash[bucket].wdl == nil {
			t.hash[bucket] = e
			return
		}

		otherHomeBucket := uint32(otherKey) & (hashSize - 1)
		if otherHomeBucket > homeBucket {
			e, t.hash[bucket] = t.hash[bucket], e
			key = otherKey
			homeBucket = otherHomeBucket
		}
	}

	t.log.Fatal().Msg("tablebase hash table size too low")
}

// lookup finds the table for a material key, or nil. Linear probe, stopping
// at the first empty slot.
func (t *Tablebases) lookup(key uint64, k tableKind) *table {
	for bucket := uint32(key) & (hashSize - 1); ; bucket++ {
		e := &t.hash[bucket]
		if e.key == key || e.get(k) == nil {
			return e.get(k)
		}
	}
}
