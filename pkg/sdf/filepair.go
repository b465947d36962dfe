// pkg/sdf/filepair.go

package sdf

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"

	"SeqStore/pkg/compress"
	"SeqStore/pkg/object"
)

// dataSink writes a data file, raw or block compressed.
type dataSink struct {
	name string
	f    io.WriteCloser
	bw   *compress.BlockWriter
	w    io.Writer
}

func newDataSink(storage object.ObjectStorage, name string, enc compress.Encoding, blockSize int) (*dataSink, error) {
	f, err := storage.Put(name)
	if err != nil {
		return nil, errors.Wrapf(err, "create %s", name)
	}
	s := &dataSink{name: name, f: f, w: f}
	if enc != compress.EncodingNone {
		s.bw = compress.NewBlockWriter(f, compress.NewCompressor(enc), blockSize)
		s.w = s.bw
	}
	return s, nil
}

func (s *dataSink) write(p []byte) error {
	if len(p) == 0 {
		return nil
	}
	_, err := s.w.Write(p)
	return errors.Wrapf(err, "write %s", s.name)
}

func (s *dataSink) close() error {
	if s.bw != nil {
		if err := s.bw.Close(); err != nil {
			_ = s.f.Close()
			return errors.Wrapf(err, "flush %s", s.name)
		}
	}
	return errors.Wrapf(s.f.Close(), "close %s", s.name)
}

// FilePair writes one numbered data file (with its quality file) and the
// matching pointer file. The open sequence is held in memory until the next
// boundary so that a sequence which turns out not to fit can be moved whole
// to the next file.
type FilePair struct {
	file     int
	limit    int64
	handler  *PointerFileHandler
	data     *dataSink
	quality  *dataSink
	pointers io.WriteCloser
	entry    []byte

	count    int64
	dataSize int64
	prev     [2]byte
	open     bool
	pending  []byte
	pendingQ []byte
	warned   bool
}

func newFilePair(storage object.ObjectStorage, file int, conf *WriterConfig) (*FilePair, error) {
	p := &FilePair{file: file, limit: conf.SizeLimit, handler: sequencePointerHandler(conf.HasQuality)}
	var err error
	if p.data, err = newDataSink(storage, SequenceDataFile(file), conf.Encoding, conf.BlockSize); err != nil {
		return nil, err
	}
	if conf.HasQuality {
		if p.quality, err = newDataSink(storage, QualityDataFile(file), conf.Encoding, conf.BlockSize); err != nil {
			_ = p.data.close()
			return nil, err
		}
	}
	if p.pointers, err = storage.Put(SequencePointerFile(file)); err != nil {
		_ = p.data.close()
		if p.quality != nil {
			_ = p.quality.close()
		}
		return nil, errors.Wrapf(err, "create %s", SequencePointerFile(file))
	}
	logger.Debugf("opened sequence file %d in %s", file, storage)
	return p, nil
}

func (p *FilePair) commit() error {
	if !p.open {
		return nil
	}
	if p.quality != nil && len(p.pendingQ) != len(p.pending) {
		return invalid("quality length %d differs from sequence length %d", len(p.pendingQ), len(p.pending))
	}
	p.entry = p.handler.encodeEntry(p.entry[:0], p.prev, uint32(p.dataSize))
	if _, err := p.pointers.Write(p.entry); err != nil {
		return errors.Wrapf(err, "write %s", SequencePointerFile(p.file))
	}
	if err := p.data.write(p.pending); err != nil {
		return err
	}
	p.prev[0] = Checksum(p.pending)
	if p.quality != nil {
		if err := p.quality.write(p.pendingQ); err != nil {
			return err
		}
		p.prev[1] = Checksum(p.pendingQ)
	}
	p.dataSize += int64(len(p.pending))
	p.count++
	p.pending, p.pendingQ = p.pending[:0], p.pendingQ[:0]
	p.open = false
	return nil
}

// MarkNextSequence ends the open sequence and opens a new one. It returns
// false, with no sequence open, when this file has no room left.
func (p *FilePair) MarkNextSequence() (bool, error) {
	if err := p.commit(); err != nil {
		return false, err
	}
	if p.count > 0 && p.dataSize >= p.limit {
		return false, nil
	}
	p.open = true
	return true, nil
}

func (p *FilePair) fits(n int) bool {
	if p.dataSize+int64(n) <= p.limit {
		return true
	}
	if p.count > 0 {
		return false
	}
	if !p.warned {
		logger.Warnf("sequence of %d bytes exceeds the file size limit %d, storing it alone in %s",
			n, p.limit, SequenceDataFile(p.file))
		p.warned = true
	}
	return true
}

// Write appends data to the open sequence. It returns false when the sequence
// no longer fits and the file already holds other sequences; the caller must
// then AbortSequence and write the whole sequence to a new file.
func (p *FilePair) Write(data []byte) bool {
	if !p.fits(len(p.pending) + len(data)) {
		return false
	}
	p.pending = append(p.pending, data...)
	return true
}

// WriteQuality is Write for quality values.
func (p *FilePair) WriteQuality(q []byte) bool {
	if !p.fits(len(p.pendingQ) + len(q)) {
		return false
	}
	p.pendingQ = append(p.pendingQ, q...)
	return true
}

// AbortSequence drops the open sequence and returns what was written to it.
func (p *FilePair) AbortSequence() ([]byte, []byte) {
	data := append([]byte(nil), p.pending...)
	var quality []byte
	if p.quality != nil {
		quality = append([]byte(nil), p.pendingQ...)
	}
	p.pending, p.pendingQ = p.pending[:0], p.pendingQ[:0]
	p.open = false
	return data, quality
}

// LastSequence ends the open sequence without opening another.
func (p *FilePair) LastSequence() error {
	return p.commit()
}

// Close writes the checksum trailer and closes the files.
func (p *FilePair) Close() error {
	err := p.commit()
	if err == nil && p.count > 0 {
		if _, err = p.pointers.Write(p.prev[:p.handler.checksums]); err != nil {
			err = errors.Wrapf(err, "write %s", SequencePointerFile(p.file))
		}
	}
	if cerr := p.data.close(); err == nil {
		err = cerr
	}
	if p.quality != nil {
		if cerr := p.quality.close(); err == nil {
			err = cerr
		}
	}
	if cerr := p.pointers.Close(); err == nil {
		err = errors.Wrapf(cerr, "close %s", SequencePointerFile(p.file))
	}
	return err
}

// ValuesWritten counts the sequence bytes accepted by this file, including the open sequence.
func (p *FilePair) ValuesWritten() int64 { return p.dataSize + int64(len(p.pending)) }

// BytesFree is the room left in this file before the size limit.
func (p *FilePair) BytesFree() int64 {
	free := p.limit - p.ValuesWritten()
	if free < 0 {
		return 0
	}
	return free
}

func (p *FilePair) NumberSequences() int64 { return p.count }

func (p *FilePair) DataSize() int64 { return p.dataSize }

// NameFilePair writes one numbered name (or suffix) data file and its
// pointer file. Names are stored NUL-terminated.
type NameFilePair struct {
	art      artifact
	file     int
	limit    int64
	data     io.WriteCloser
	pointers io.WriteCloser
	count    int64
	dataSize int64
	buf      []byte
}

func newNameFilePair(storage object.ObjectStorage, art artifact, file int, limit int64) (*NameFilePair, error) {
	p := &NameFilePair{art: art, file: file, limit: limit}
	var err error
	if p.data, err = storage.Put(art.dataFile(file)); err != nil {
		return nil, errors.Wrapf(err, "create %s", art.dataFile(file))
	}
	if p.pointers, err = storage.Put(art.pointerFile(file)); err != nil {
		_ = p.data.Close()
		return nil, errors.Wrapf(err, "create %s", art.pointerFile(file))
	}
	return p, nil
}

// CanWriteName reports whether a name of length bytes fits in this file.
func (p *NameFilePair) CanWriteName(length int) bool {
	return p.dataSize+int64(length)+1 <= p.limit
}

// WriteName stores name, returning false when it does not fit.
func (p *NameFilePair) WriteName(name []byte) (bool, error) {
	if !p.CanWriteName(len(name)) {
		return false, nil
	}
	return true, p.write(name)
}

// ForceWriteName stores name truncated to the room left and returns what was stored.
func (p *NameFilePair) ForceWriteName(name []byte) ([]byte, error) {
	room := p.limit - p.dataSize - 1
	if room < 0 {
		room = 0
	}
	if int64(len(name)) > room {
		logger.Warnf("name %q truncated to %d bytes to fit %s", name, room, p.art.dataFile(p.file))
		name = name[:room]
	}
	return name, p.write(name)
}

func (p *NameFilePair) write(name []byte) error {
	p.buf = binary.BigEndian.AppendUint32(p.buf[:0], uint32(p.dataSize))
	if _, err := p.pointers.Write(p.buf); err != nil {
		return errors.Wrapf(err, "write %s", p.art.pointerFile(p.file))
	}
	p.buf = append(append(p.buf[:0], name...), 0)
	if _, err := p.data.Write(p.buf); err != nil {
		return errors.Wrapf(err, "write %s", p.art.dataFile(p.file))
	}
	p.count++
	p.dataSize += int64(len(p.buf))
	return nil
}

func (p *NameFilePair) Close() error {
	err := errors.Wrapf(p.data.Close(), "close %s", p.art.dataFile(p.file))
	if cerr := p.pointers.Close(); err == nil {
		err = errors.Wrapf(cerr, "close %s", p.art.pointerFile(p.file))
	}
	return err
}
