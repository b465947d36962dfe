// pkg/object/bwlimit.go

package object

import (
	"fmt"
	"io"

	"github.com/juju/ratelimit"
)

type limitedReader struct {
	io.Reader
	r *ratelimit.Bucket
}

func (l *limitedReader) Read(buf []byte) (int, error) {
	n, err := l.Reader.Read(buf)
	if l.r != nil {
		l.r.Wait(int64(n))
	}
	return n, err
}

// Seek calls the Seek in the underlying reader.
func (l *limitedReader) Seek(offset int64, whence int) (int64, error) {
	if s, ok := l.Reader.(io.Seeker); ok {
		return s.Seek(offset, whence)
	}
	return 0, fmt.Errorf("%+v does not support Seek()", l.Reader)
}

// Close closes the underlying reader
func (l *limitedReader) Close() error {
	if rc, ok := l.Reader.(io.Closer); ok {
		return rc.Close()
	}
	return nil
}

type limitedFile struct {
	File
	r *ratelimit.Bucket
}

func (l *limitedFile) ReadAt(buf []byte, off int64) (int, error) {
	n, err := l.File.ReadAt(buf, off)
	if l.r != nil {
		l.r.Wait(int64(n))
	}
	return n, err
}

type limitedWriter struct {
	io.WriteCloser
	w *ratelimit.Bucket
}

func (l *limitedWriter) Write(buf []byte) (int, error) {
	if l.w != nil {
		l.w.Wait(int64(len(buf)))
	}
	return l.WriteCloser.Write(buf)
}

type bwlimit struct {
	ObjectStorage
	upLimit   *ratelimit.Bucket
	downLimit *ratelimit.Bucket
}

// NewLimited caps the write (up) and read (down) bandwidth in bytes per second; 0 means unlimited.
func NewLimited(o ObjectStorage, up, down int64) ObjectStorage {
	bw := &bwlimit{o, nil, nil}
	if up > 0 {
		// there are overheads coming from SSH/TCP/IP
		bw.upLimit = ratelimit.NewBucketWithRate(float64(up)*0.85, up)
	}
	if down > 0 {
		bw.downLimit = ratelimit.NewBucketWithRate(float64(down)*0.85, down)
	}
	return bw
}

func (p *bwlimit) Get(key string, off, limit int64) (io.ReadCloser, error) {
	r, err := p.ObjectStorage.Get(key, off, limit)
	if err != nil {
		return nil, err
	}
	return &limitedReader{r, p.downLimit}, nil
}

func (p *bwlimit) Open(key string) (File, error) {
	f, err := p.ObjectStorage.Open(key)
	if err != nil {
		return nil, err
	}
	return &limitedFile{f, p.downLimit}, nil
}

func (p *bwlimit) Put(key string) (io.WriteCloser, error) {
	w, err := p.ObjectStorage.Put(key)
	if err != nil {
		return nil, err
	}
	return &limitedWriter{w, p.upLimit}, nil
}

// Close shuts down the wrapped storage.
func (p *bwlimit) Close() error {
	Shutdown(p.ObjectStorage)
	return nil
}
