package tb

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

var (
	errCorrupt     = errors.New("corrupt tablebase file")
	errInvalidSize = errors.New("tablebase file size must be 16 mod 64")
)

// openFile is a table file located somewhere on the search path. Only its
// existence has been verified; the content is mapped on first probe.
type openFile struct {
	path string
}

// findFile searches the path list for a file with the given basename and
// returns the first match that can be opened for reading. The path list was
// split with filepath.SplitList, so the separator is ";" on Windows and ":"
// elsewhere.
func findFile(paths []string, name string) (openFile, bool) {
	for _, dir := range paths {
		if dir == "" {
			continue
		}
		p := filepath.Join(dir, name)
		f, err := os.Open(p)
		if err != nil {
			continue
		}
		f.Close()
		return openFile{path: p}, true
	}
	return openFile{}, false
}

// mapping is a read-only view of a whole table file. On unix it is a memory
// map released by close; elsewhere it is the file read into memory.
type mapping struct {
	data   []byte
	mapped bool
}

// view returns the bytes after the 4-byte magic.
func (m *mapping) view() []byte { return m.data[4:] }

// mapTable maps the file read-only and verifies the leading magic. The
// returned mapping is stable for the descriptor's lifetime and may be read
// from any goroutine.
func (o openFile) mapTable(magic [4]byte) (*mapping, error) {
	f, err := os.Open(o.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if st.Size()%64 != 16 {
		return nil, fmt.Errorf("%w: %s (%d bytes)", errInvalidSize, o.path, st.Size())
	}

	m, err := mapFile(f, st.Size())
	if err != nil {
		return nil, fmt.Errorf("map %s: %w", o.path, err)
	}
	if len(m.data) < 4 || [4]byte(m.data[:4]) != magic {
		m.close()
		return nil, fmt.Errorf("%w: bad magic in %s", errCorrupt, o.path)
	}
	return m, nil
}
