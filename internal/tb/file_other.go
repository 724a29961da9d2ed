//go:build !unix

package tb

import (
	"io"
	"os"
)

// mapFile falls back to reading the whole file where mmap is unavailable.
func mapFile(f *os.File, _ int64) (*mapping, error) {
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	return &mapping{data: data}, nil
}

func (m *mapping) close() { m.data = nil }
