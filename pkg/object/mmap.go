// pkg/object/mmap.go

package object

import (
	"io"
	"os"

	"github.com/edsrzf/mmap-go"
	"github.com/pkg/errors"
)

type mappedFile struct {
	f    *os.File
	data mmap.MMap
}

func (m *mappedFile) Size() int64 { return int64(len(m.data)) }

func (m *mappedFile) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, errors.Errorf("negative offset %d", off)
	}
	if off >= int64(len(m.data)) {
		if len(p) == 0 {
			return 0, nil
		}
		return 0, io.EOF
	}
	n := copy(p, m.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (m *mappedFile) Close() error {
	var err error
	if m.data != nil {
		err = m.data.Unmap()
		m.data = nil
	}
	if cerr := m.f.Close(); err == nil {
		err = cerr
	}
	return err
}

// mapped serves random-access opens from read-only memory maps.
type mapped struct {
	*disk
}

func (m *mapped) String() string { return "mmap://" + m.root + "/" }

func (m *mapped) Open(key string) (File, error) {
	f, err := os.Open(m.path(key))
	if err != nil {
		return nil, err
	}
	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if fi.Size() == 0 {
		// empty files cannot be mapped
		return &diskFile{f, 0}, nil
	}
	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		_ = f.Close()
		return nil, errors.Wrapf(err, "mmap %s", m.path(key))
	}
	return &mappedFile{f, data}, nil
}

func newMmapStorage(root string) (ObjectStorage, error) {
	return &mapped{newDisk(root)}, nil
}

func init() {
	Register("mmap", newMmapStorage)
}
