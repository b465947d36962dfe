// pkg/sdf/streams.go

package sdf

import (
	"github.com/pkg/errors"

	"SeqStore/pkg/compress"
	"SeqStore/pkg/object"
)

// streamManager positions random-access handles on the rolled files of one
// artifact. It keeps the handles of the current file open between seeks and
// is not safe for concurrent use.
type streamManager struct {
	storage object.ObjectStorage
	index   *DataFileIndex
	handler *PointerFileHandler
	art     artifact
	enc     compress.Encoding

	hasQuality bool
	qualEnc    compress.Encoding

	file     int
	pointers object.File
	data     object.File
	qual     object.File

	id   int64
	span pointerSpan
}

func newStreamManager(storage object.ObjectStorage, index *DataFileIndex, handler *PointerFileHandler,
	art artifact, enc compress.Encoding) *streamManager {
	return &streamManager{
		storage: storage,
		index:   index,
		handler: handler,
		art:     art,
		enc:     enc,
		file:    -1,
		id:      -1,
	}
}

func (m *streamManager) withQuality(enc compress.Encoding) {
	m.hasQuality = true
	m.qualEnc = enc
}

func (m *streamManager) openFile(file int) error {
	m.closeFiles()
	p, err := openPointerFile(m.storage, m.index, m.handler, m.art, file)
	if err != nil {
		return err
	}
	d, err := openRandom(m.storage, m.art.dataFile(file), m.enc, m.index.DataSize(file))
	if err != nil {
		_ = p.Close()
		return err
	}
	m.file, m.pointers, m.data = file, p, d
	logger.Debugf("switched to %s/%s", m.storage, m.art.dataFile(file))
	return nil
}

// seek positions the manager on sequence id and records its length.
func (m *streamManager) seek(id int64) error {
	if id == m.id {
		return nil
	}
	file, idx, err := m.index.Locate(id)
	if err != nil {
		return err
	}
	if file != m.file {
		if err = m.openFile(file); err != nil {
			return err
		}
	}
	dataSize := m.index.DataSize(file)
	span, err := m.handler.Locate(m.pointers, m.art.pointerFile(file), id, idx, m.index.NumberSequences(file), dataSize)
	if err != nil {
		return err
	}
	if span.start+span.length > dataSize {
		return corrupt(m.art.pointerFile(file), id, "sequence ends at %d past data size %d", span.start+span.length, dataSize)
	}
	m.id, m.span = id, span
	return nil
}

// dataLength is the length of the sequence at the last seek.
func (m *streamManager) dataLength() int64 { return m.span.length }

// globalStart is the logical offset of the sequence at the last seek.
func (m *streamManager) globalStart() int64 { return m.index.DataOffset(m.file) + m.span.start }

func (m *streamManager) readFrom(f object.File, name string, dst []byte, off int64) error {
	if off < 0 || off+int64(len(dst)) > m.span.length {
		return invalid("range %d+%d outside sequence %d of length %d", off, len(dst), m.id, m.span.length)
	}
	if len(dst) == 0 {
		return nil
	}
	if err := readFull(f, dst, m.span.start+off); err != nil {
		return errors.Wrapf(err, "read sequence %d from %s", m.id, name)
	}
	return nil
}

// readData fills dst with sequence bytes starting off bytes into the sequence.
func (m *streamManager) readData(dst []byte, off int64) error {
	return m.readFrom(m.data, m.art.dataFile(m.file), dst, off)
}

// readQuality fills dst with quality bytes starting off bytes into the sequence.
func (m *streamManager) readQuality(dst []byte, off int64) error {
	if !m.hasQuality {
		return ErrNoQuality
	}
	name := qualityArtifact.dataFile(m.file)
	if m.qual == nil {
		q, err := openRandom(m.storage, name, m.qualEnc, m.index.DataSize(m.file))
		if err != nil {
			return err
		}
		m.qual = q
	}
	return m.readFrom(m.qual, name, dst, off)
}

// readName returns the NUL-terminated Latin-1 string at the last seek.
func (m *streamManager) readName() (string, error) {
	l := m.span.length
	if l == 0 {
		return "", corrupt(m.art.dataFile(m.file), m.id, "empty name entry")
	}
	buf := make([]byte, l)
	if err := m.readData(buf, 0); err != nil {
		return "", err
	}
	if buf[l-1] != 0 {
		return "", corrupt(m.art.dataFile(m.file), m.id, "name is not terminated")
	}
	return latin1(buf[:l-1]), nil
}

func latin1(b []byte) string {
	ascii := true
	for _, c := range b {
		if c >= 0x80 {
			ascii = false
			break
		}
	}
	if ascii {
		return string(b)
	}
	r := make([]rune, len(b))
	for i, c := range b {
		r[i] = rune(c)
	}
	return string(r)
}

func (m *streamManager) closeFiles() {
	for _, f := range []object.File{m.pointers, m.data, m.qual} {
		if f != nil {
			if err := f.Close(); err != nil {
				logger.Debugf("close %s: %s", m.art.dataFile(m.file), err)
			}
		}
	}
	m.pointers, m.data, m.qual = nil, nil, nil
	m.file, m.id = -1, -1
}

func (m *streamManager) close() {
	if m != nil {
		m.closeFiles()
	}
}
