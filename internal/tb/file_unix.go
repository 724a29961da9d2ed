//go:build unix

package tb

import (
	"os"

	"golang.org/x/sys/unix"
)

// mapFile memory-maps the whole file read-only and advises the kernel that
// access will be random. Probes touch a handful of scattered pages per call.
func mapFile(f *os.File, size int64) (*mapping, error) {
	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, err
	}
	_ = unix.Madvise(data, unix.MADV_RANDOM)
	return &mapping{data: data, mapped: true}, nil
}

func (m *mapping) close() {
	if m.mapped {
		_ = unix.Munmap(m.data)
		m.mapped = false
	}
	m.data = nil
}
