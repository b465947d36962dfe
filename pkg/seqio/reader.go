// pkg/seqio/reader.go

package seqio

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// Reader pulls records from FASTA or FASTQ text; the format is taken from
// the first non-blank line.
type Reader struct {
	r      *bufio.Reader
	closer io.Closer
	line   int
	peeked []byte
	fastq  bool
	began  bool

	held    bool
	heldRec *Record
	heldErr error
}

func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReaderSize(r, 1<<16)}
}

type multiCloser []io.Closer

func (m multiCloser) Close() error {
	var err error
	for _, c := range m {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// Open reads path, "-" meaning stdin. Gzip input is detected by its magic
// number or a .gz suffix.
func Open(path string) (*Reader, error) {
	if path == "-" {
		return NewReader(os.Stdin), nil
	}
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	br := bufio.NewReaderSize(fh, 1<<16)
	sig, _ := br.Peek(2)
	if (len(sig) == 2 && sig[0] == 0x1f && sig[1] == 0x8b) || strings.HasSuffix(path, ".gz") {
		gr, err := gzip.NewReader(br)
		if err != nil {
			_ = fh.Close()
			return nil, errors.Wrapf(err, "open %s", path)
		}
		r := NewReader(gr)
		r.closer = multiCloser{gr, fh}
		return r, nil
	}
	r := &Reader{r: br, closer: fh}
	return r, nil
}

func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

// IsFastq reports whether the input turned out to be FASTQ. Valid after the
// first call to Next.
func (r *Reader) IsFastq() bool { return r.fastq }

func (r *Reader) readLine() ([]byte, error) {
	if r.peeked != nil {
		l := r.peeked
		r.peeked = nil
		return l, nil
	}
	line, err := r.r.ReadBytes('\n')
	if err == io.EOF && len(line) > 0 {
		err = nil
	}
	if err != nil {
		return nil, err
	}
	r.line++
	line = bytes.TrimRight(line, "\r\n")
	return line, nil
}

func (r *Reader) errorf(format string, args ...interface{}) error {
	return errors.Wrapf(errors.Errorf(format, args...), "line %d", r.line)
}

// Peek returns the next record without consuming it, so the format of an
// input that cannot be reopened can be checked before reading it.
func (r *Reader) Peek() (*Record, error) {
	if !r.held {
		r.heldRec, r.heldErr = r.next()
		r.held = true
	}
	return r.heldRec, r.heldErr
}

// Next returns the next record, or io.EOF after the last one.
func (r *Reader) Next() (*Record, error) {
	if r.held {
		r.held = false
		rec, err := r.heldRec, r.heldErr
		r.heldRec, r.heldErr = nil, nil
		return rec, err
	}
	return r.next()
}

func (r *Reader) next() (*Record, error) {
	var header []byte
	for {
		line, err := r.readLine()
		if err != nil {
			return nil, err
		}
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		header = line
		break
	}
	if !r.began {
		r.began = true
		switch header[0] {
		case '>':
		case '@':
			r.fastq = true
		default:
			return nil, r.errorf("expected '>' or '@', found %q", header[0])
		}
	}
	if r.fastq {
		return r.nextFastq(header)
	}
	return r.nextFasta(header)
}

func (r *Reader) nextFasta(header []byte) (*Record, error) {
	if header[0] != '>' {
		return nil, r.errorf("expected '>', found %q", header[0])
	}
	rec := &Record{Name: string(header[1:]), Seq: []byte{}}
	for {
		line, err := r.readLine()
		if err == io.EOF {
			return rec, nil
		}
		if err != nil {
			return nil, err
		}
		if len(line) > 0 && line[0] == '>' {
			r.peeked = line
			return rec, nil
		}
		rec.Seq = append(rec.Seq, bytes.TrimSpace(line)...)
	}
}

func (r *Reader) nextFastq(header []byte) (*Record, error) {
	if header[0] != '@' {
		return nil, r.errorf("expected '@', found %q", header[0])
	}
	rec := &Record{Name: string(header[1:])}
	seq, err := r.readLine()
	if err != nil {
		return nil, r.truncated(err)
	}
	plus, err := r.readLine()
	if err != nil {
		return nil, r.truncated(err)
	}
	if len(plus) == 0 || plus[0] != '+' {
		return nil, r.errorf("expected '+' separator")
	}
	qual, err := r.readLine()
	if err != nil {
		return nil, r.truncated(err)
	}
	if len(qual) != len(seq) {
		return nil, r.errorf("%d quality values for %d residues", len(qual), len(seq))
	}
	rec.Seq = append([]byte(nil), seq...)
	rec.Qual = make([]byte, len(qual))
	for i, q := range qual {
		if q < phredOffset || q > '~' {
			return nil, r.errorf("bad quality character %q", q)
		}
		rec.Qual[i] = q - phredOffset
	}
	return rec, nil
}

func (r *Reader) truncated(err error) error {
	if err == io.EOF {
		return r.errorf("truncated FASTQ record")
	}
	return err
}
