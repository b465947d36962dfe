// pkg/compress/frame.go

package compress

import (
	"encoding/binary"
	"io"
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// DefaultBlockSize is the raw size covered by one frame.
const DefaultBlockSize = 64 << 10

const frameHeader = 8

// BlockWriter compresses a byte stream into [rawLen][storedLen][payload] frames.
type BlockWriter struct {
	w       io.Writer
	c       Compressor
	buf     []byte
	out     []byte
	n       int
	written int64
	stored  int64
}

func NewBlockWriter(w io.Writer, c Compressor, blockSize int) *BlockWriter {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	return &BlockWriter{
		w:   w,
		c:   c,
		buf: make([]byte, blockSize),
		out: make([]byte, frameHeader+c.CompressBound(blockSize)),
	}
}

func (b *BlockWriter) Write(p []byte) (int, error) {
	total := len(p)
	for len(p) > 0 {
		n := copy(b.buf[b.n:], p)
		b.n += n
		p = p[n:]
		if b.n == len(b.buf) {
			if err := b.flush(); err != nil {
				return total - len(p), err
			}
		}
	}
	b.written += int64(total)
	return total, nil
}

func (b *BlockWriter) flush() error {
	if b.n == 0 {
		return nil
	}
	n, err := b.c.Compress(b.out[frameHeader:], b.buf[:b.n])
	if err != nil {
		return errors.Wrapf(err, "compress %d bytes with %s", b.n, b.c.Name())
	}
	binary.BigEndian.PutUint32(b.out[0:4], uint32(b.n))
	binary.BigEndian.PutUint32(b.out[4:8], uint32(n))
	if _, err = b.w.Write(b.out[:frameHeader+n]); err != nil {
		return err
	}
	b.stored += int64(frameHeader + n)
	b.n = 0
	return nil
}

// Close writes the pending partial frame. It does not close the underlying writer.
func (b *BlockWriter) Close() error {
	return b.flush()
}

// Written returns the number of raw bytes accepted so far.
func (b *BlockWriter) Written() int64 { return b.written }

// Stored returns the number of bytes emitted to the underlying writer.
func (b *BlockWriter) Stored() int64 { return b.stored }

type blockReader struct {
	r   io.Reader
	c   Compressor
	hdr [frameHeader]byte
	in  []byte
	raw []byte
	pos int
}

// NewBlockReader decodes a frame stream sequentially.
func NewBlockReader(r io.Reader, c Compressor) io.Reader {
	return &blockReader{r: r, c: c}
}

func (b *blockReader) Read(p []byte) (int, error) {
	for b.pos == len(b.raw) {
		if err := b.next(); err != nil {
			return 0, err
		}
	}
	n := copy(p, b.raw[b.pos:])
	b.pos += n
	return n, nil
}

func (b *blockReader) next() error {
	if _, err := io.ReadFull(b.r, b.hdr[:]); err != nil {
		if err == io.ErrUnexpectedEOF {
			return errors.New("truncated frame header")
		}
		return err
	}
	rawLen := int(binary.BigEndian.Uint32(b.hdr[0:4]))
	storedLen := int(binary.BigEndian.Uint32(b.hdr[4:8]))
	if cap(b.in) < storedLen {
		b.in = make([]byte, storedLen)
	}
	if cap(b.raw) < rawLen {
		b.raw = make([]byte, rawLen)
	}
	in := b.in[:storedLen]
	if _, err := io.ReadFull(b.r, in); err != nil {
		return errors.Wrap(err, "truncated frame")
	}
	n, err := b.c.Decompress(b.raw[:rawLen], in)
	if err != nil {
		return errors.Wrapf(err, "decompress frame with %s", b.c.Name())
	}
	if n != rawLen {
		return errors.Errorf("frame decoded to %d bytes, header says %d", n, rawLen)
	}
	b.raw = b.raw[:rawLen]
	b.pos = 0
	return nil
}

type frame struct {
	logical int64
	stored  int64
	rawLen  int
	size    int
}

// RandomReader serves logical ReadAt over a frame stream.
type RandomReader struct {
	sync.Mutex
	r      io.ReaderAt
	c      Compressor
	frames []frame
	size   int64

	cached int
	raw    []byte
	in     []byte
}

// NewRandomReader scans the frame headers of a stream of `stored` bytes.
func NewRandomReader(r io.ReaderAt, stored int64, c Compressor) (*RandomReader, error) {
	rr := &RandomReader{r: r, c: c, cached: -1}
	var hdr [frameHeader]byte
	var off int64
	for off < stored {
		if stored-off < frameHeader {
			return nil, errors.Errorf("truncated frame header at %d", off)
		}
		if _, err := r.ReadAt(hdr[:], off); err != nil {
			return nil, errors.Wrapf(err, "read frame header at %d", off)
		}
		f := frame{
			logical: rr.size,
			stored:  off + frameHeader,
			rawLen:  int(binary.BigEndian.Uint32(hdr[0:4])),
			size:    int(binary.BigEndian.Uint32(hdr[4:8])),
		}
		if f.stored+int64(f.size) > stored {
			return nil, errors.Errorf("frame at %d runs past end of file", off)
		}
		rr.frames = append(rr.frames, f)
		rr.size += int64(f.rawLen)
		off = f.stored + int64(f.size)
	}
	return rr, nil
}

// Size returns the logical size.
func (r *RandomReader) Size() int64 { return r.size }

// Frames returns the number of frames.
func (r *RandomReader) Frames() int { return len(r.frames) }

func (r *RandomReader) load(i int) error {
	if r.cached == i {
		return nil
	}
	f := r.frames[i]
	if cap(r.in) < f.size {
		r.in = make([]byte, f.size)
	}
	if cap(r.raw) < f.rawLen {
		r.raw = make([]byte, f.rawLen)
	}
	in := r.in[:f.size]
	if _, err := r.r.ReadAt(in, f.stored); err != nil && !(err == io.EOF && f.size == 0) {
		return errors.Wrapf(err, "read frame %d", i)
	}
	n, err := r.c.Decompress(r.raw[:f.rawLen], in)
	if err != nil {
		r.cached = -1
		return errors.Wrapf(err, "decompress frame %d", i)
	}
	if n != f.rawLen {
		r.cached = -1
		return errors.Errorf("frame %d decoded to %d bytes, header says %d", i, n, f.rawLen)
	}
	r.raw = r.raw[:f.rawLen]
	r.cached = i
	return nil
}

func (r *RandomReader) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, errors.Errorf("negative offset %d", off)
	}
	if off >= r.size {
		if len(p) == 0 {
			return 0, nil
		}
		return 0, io.EOF
	}
	r.Lock()
	defer r.Unlock()
	i := sort.Search(len(r.frames), func(i int) bool {
		return r.frames[i].logical+int64(r.frames[i].rawLen) > off
	})
	var got int
	for got < len(p) && i < len(r.frames) {
		if err := r.load(i); err != nil {
			return got, err
		}
		start := int(off - r.frames[i].logical)
		n := copy(p[got:], r.raw[start:])
		got += n
		off += int64(n)
		i++
	}
	if got < len(p) {
		return got, io.EOF
	}
	return got, nil
}

// Close drops the cached frame.
func (r *RandomReader) Close() error {
	r.Lock()
	r.raw, r.in, r.cached = nil, nil, -1
	r.Unlock()
	return nil
}
