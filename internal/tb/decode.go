package tb

// decompressPairs returns the byte value stored at idx. It locates the
// compressed block through the sparse directory, then reads canonical
// Huffman symbols from a 64-bit big-endian shift register until the symbol
// covering idx is found, and finally expands that symbol's Re-Pair grammar.
func decompressPairs(d *pairsData, idx uint64) int {
	// A table whose positions all share one value stores just that byte.
	if d.flags&flagSingleValue != 0 {
		return int(d.minSymLen)
	}

	// Block n holds blockLength[n]+1 values. sparseIndex[k] records the
	// (block, offset) of the value with index k*span + span/2; start there
	// and walk blocks until the offset falls inside one.
	k := idx / d.span
	block := le32(d.sparseIndex[6*k:])
	offset := int(le16(d.sparseIndex[6*k+4:]))
	offset += int(idx%d.span) - int(d.span/2)

	for offset < 0 {
		block--
		offset += int(le16(d.blockLength[2*block:])) + 1
	}
	for offset > int(le16(d.blockLength[2*block:])) {
		offset -= int(le16(d.blockLength[2*block:])) + 1
		block++
	}

	ptr := int(uint64(block) * d.blockSize)

	// The shift register always holds at least 32 valid bits; symbols are
	// at most 32 bits long, so the next symbol is always fully loaded.
	buf64 := be64(d.data[ptr:])
	ptr += 8
	buf64Size := 64
	var sym uint16

	for {
		// Symbols of length l, right-padded to 64 bits, all fall in
		// [base64[l], base64[l-1]); scan for the length, then the offset
		// from the lowest code of that length is the symbol offset.
		l := 0
		for buf64 < d.base64[l] {
			l++
		}
		sym = uint16((buf64-d.base64[l])>>uint(64-l-int(d.minSymLen))) +
			le16(d.lowestSym[2*l:])

		if offset < int(d.symlen[sym])+1 {
			break
		}

		// Not ours: skip the symbol's values and shift it out.
		offset -= int(d.symlen[sym]) + 1
		l += int(d.minSymLen)
		buf64 <<= uint(l)
		buf64Size -= l

		if buf64Size <= 32 {
			buf64Size += 32
			buf64 |= uint64(be32(d.data[ptr:])) << uint(64-buf64Size)
			ptr += 4
		}
	}

	// Expand the pair grammar: child symbols are adjacent, so offset picks
	// the branch at every level until a leaf carries the value.
	for d.symlen[sym] != 0 {
		left := d.btreeLeft(sym)
		if offset < int(d.symlen[left])+1 {
			sym = left
		} else {
			offset -= int(d.symlen[left]) + 1
			sym = d.btreeRight(sym)
		}
	}

	return int(d.btreeLeft(sym))
}

// mapDTZ converts a raw DTZ byte to plies. Stored values are sorted by
// frequency per WDL class and remapped through the table's map region; some
// classes store moves instead of plies and are doubled, and the result is
// shifted up so 1 means an immediate zeroing move.
func mapDTZ(e *table, d *pairsData, value int, wdl WDLScore) int {
	wdlToMap := [5]int{1, 3, 0, 2, 0}

	if d.flags&flagMapped != 0 {
		i := int(d.mapIdx[wdlToMap[wdl+2]]) + value
		if d.flags&flagWide != 0 {
			value = int(le16(e.dtzMap[2*i:]))
		} else {
			value = int(e.dtzMap[i])
		}
	}

	if (wdl == WDLWin && d.flags&flagWinPlies == 0) ||
		(wdl == WDLLoss && d.flags&flagLossPlies == 0) ||
		wdl == WDLCursedWin || wdl == WDLBlessedLoss {
		value *= 2
	}

	return value + 1
}
