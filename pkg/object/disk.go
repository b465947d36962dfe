// pkg/object/disk.go

package object

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"

	"SeqStore/pkg/utils"
)

var logger = utils.GetLogger("seqstore")

type diskFile struct {
	*os.File
	size int64
}

func (f *diskFile) Size() int64 { return f.size }

type readCloser struct {
	io.Reader
	io.Closer
}

type bufferedFile struct {
	*bufio.Writer
	f *os.File
}

func (b *bufferedFile) Close() error {
	if err := b.Writer.Flush(); err != nil {
		_ = b.f.Close()
		return err
	}
	return b.f.Close()
}

type disk struct {
	root string
}

func newDisk(root string) *disk {
	return &disk{root: filepath.Clean(root)}
}

func (d *disk) String() string { return "file://" + d.root + "/" }

func (d *disk) path(key string) string { return filepath.Join(d.root, key) }

func (d *disk) Create() error {
	return os.MkdirAll(d.root, 0755)
}

func (d *disk) Head(key string) (Object, error) {
	fi, err := os.Stat(d.path(key))
	if err != nil {
		return nil, err
	}
	if fi.IsDir() {
		return nil, errors.Errorf("%s is a directory", d.path(key))
	}
	return &obj{key, fi.Size(), fi.ModTime()}, nil
}

func (d *disk) Get(key string, off, limit int64) (io.ReadCloser, error) {
	f, err := os.Open(d.path(key))
	if err != nil {
		return nil, err
	}
	utils.AdviseSequential(f)
	if off > 0 {
		if _, err := f.Seek(off, io.SeekStart); err != nil {
			_ = f.Close()
			return nil, err
		}
	}
	if limit >= 0 {
		return &readCloser{io.LimitReader(f, limit), f}, nil
	}
	return f, nil
}

func (d *disk) Open(key string) (File, error) {
	f, err := os.Open(d.path(key))
	if err != nil {
		return nil, err
	}
	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &diskFile{f, fi.Size()}, nil
}

func (d *disk) Put(key string) (io.WriteCloser, error) {
	p := d.path(key)
	f, err := os.Create(p)
	if err != nil && os.IsNotExist(err) {
		if err = os.MkdirAll(filepath.Dir(p), 0755); err == nil {
			f, err = os.Create(p)
		}
	}
	if err != nil {
		return nil, err
	}
	return &bufferedFile{bufio.NewWriterSize(f, 1<<16), f}, nil
}

func (d *disk) Delete(key string) error {
	err := os.Remove(d.path(key))
	if err != nil && os.IsNotExist(err) {
		err = nil
	}
	return err
}

func (d *disk) List() ([]Object, error) {
	entries, err := os.ReadDir(d.root)
	if err != nil {
		return nil, err
	}
	var objs []Object
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			logger.Debugf("skip %s: %s", e.Name(), err)
			continue
		}
		objs = append(objs, &obj{e.Name(), fi.Size(), fi.ModTime()})
	}
	sort.Slice(objs, func(i, j int) bool { return objs[i].Key() < objs[j].Key() })
	return objs, nil
}

func newDiskStorage(root string) (ObjectStorage, error) {
	return newDisk(root), nil
}

func init() {
	Register("file", newDiskStorage)
}
