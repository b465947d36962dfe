// pkg/sdf/memory.go

package sdf

import (
	"context"

	"SeqStore/pkg/array"
	"SeqStore/pkg/object"
)

// MemoryReader serves a range of a store loaded completely into memory.
// It is safe for concurrent use once loaded.
type MemoryReader struct {
	identity   Identity
	hasQuality bool
	hasNames   bool
	n          int64

	positions array.LongIndex
	data      array.ByteArray
	quality   array.ByteArray
	checksums array.ByteArray
	names     []string
	suffixes  []string

	dataHash    uint64
	qualityHash uint64
}

func emptyBytes(expected int64) array.ByteArray {
	if expected > array.DirectLimit {
		return array.NewChunkedBytes(0, array.DefaultPageBits)
	}
	return array.NewDirectBytes(0)
}

// LoadMemory loads sequences [start, end) of a store, verifying every
// checksum on the way in. end < 0 means to the end of the store.
func LoadMemory(ctx context.Context, storage object.ObjectStorage, start, end int64) (*MemoryReader, error) {
	l, err := NewLoader(storage)
	if err != nil {
		return nil, err
	}
	main := l.st.main
	if end < 0 {
		end = main.NumberSequences
	}
	if err = l.checkRange(start, end); err != nil {
		return nil, err
	}
	n := end - start
	m := &MemoryReader{
		identity:   Identity{main.SdfID, storage.String(), start, end},
		hasQuality: main.HasQuality,
		hasNames:   main.HasNames,
		n:          n,
		positions:  array.NewLongs(n + 1),
		checksums:  array.NewBytes(n),
	}
	var qualityChecksums array.ByteArray
	if m.hasQuality {
		qualityChecksums = array.NewBytes(n)
	}
	if err = l.LoadPositions(ctx, start, end, m.positions, m.checksums, qualityChecksums); err != nil {
		return nil, err
	}
	size := m.positions.Get(n) - m.positions.Get(0)
	m.data = emptyBytes(size)
	if m.dataHash, err = l.LoadData(ctx, start, end, m.positions, m.data, m.checksums, true); err != nil {
		m.Close()
		return nil, err
	}
	if m.hasQuality {
		m.quality = emptyBytes(size)
		if m.qualityHash, err = l.LoadQuality(ctx, start, end, m.positions, m.quality, qualityChecksums, true); err != nil {
			m.Close()
			return nil, err
		}
		qualityChecksums.Release()
	}
	if m.hasNames {
		if m.names, err = loadNames(ctx, l.st.nameStreams(), start, end); err != nil {
			m.Close()
			return nil, err
		}
		if sm := l.st.suffixStreams(); sm != nil {
			if m.suffixes, err = loadNames(ctx, sm, start, end); err != nil {
				m.Close()
				return nil, err
			}
		}
	}
	logger.Debugf("loaded %d sequences (%d bytes) into memory", n, size)
	return m, nil
}

func loadNames(ctx context.Context, m *streamManager, start, end int64) ([]string, error) {
	defer m.close()
	names := make([]string, 0, end-start)
	for id := start; id < end; id++ {
		if (id-start)%loadBlockSize == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if err := m.seek(id); err != nil {
			return nil, err
		}
		name, err := m.readName()
		if err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, nil
}

func (m *MemoryReader) NumberSequences() int64 { return m.n }
func (m *MemoryReader) HasQuality() bool       { return m.hasQuality }
func (m *MemoryReader) HasNames() bool         { return m.hasNames }
func (m *MemoryReader) Identity() Identity     { return m.identity }

// DataHash is the content hash of the loaded sequence bytes.
func (m *MemoryReader) DataHash() uint64 { return m.dataHash }

// QualityHash is the content hash of the loaded quality bytes.
func (m *MemoryReader) QualityHash() uint64 { return m.qualityHash }

func (m *MemoryReader) check(id int64) error {
	if id < 0 || id >= m.n {
		return invalid("sequence id %d out of range [0, %d)", id, m.n)
	}
	return nil
}

func (m *MemoryReader) span(id int64) (int64, int64, error) {
	if err := m.check(id); err != nil {
		return 0, 0, err
	}
	base := m.positions.Get(0)
	return m.positions.Get(id) - base, m.positions.Get(id+1) - m.positions.Get(id), nil
}

func (m *MemoryReader) Length(id int64) (int64, error) {
	_, l, err := m.span(id)
	return l, err
}

func (m *MemoryReader) Name(id int64) (string, error) {
	if !m.hasNames {
		return "", ErrNoNames
	}
	if err := m.check(id); err != nil {
		return "", err
	}
	return m.names[id], nil
}

func (m *MemoryReader) NameSuffix(id int64) (string, error) {
	if !m.hasNames {
		return "", ErrNoNames
	}
	if err := m.check(id); err != nil {
		return "", err
	}
	if m.suffixes == nil {
		return "", nil
	}
	return m.suffixes[id], nil
}

func (m *MemoryReader) read(src array.ByteArray, id int64) ([]byte, error) {
	off, l, err := m.span(id)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, l)
	src.CopyOut(off, buf)
	return buf, nil
}

func (m *MemoryReader) readInto(src array.ByteArray, id int64, dst []byte) (int, error) {
	off, l, err := m.span(id)
	if err != nil {
		return 0, err
	}
	if err = checkDest(id, dst, l); err != nil {
		return 0, err
	}
	src.CopyOut(off, dst[:l])
	return int(l), nil
}

func (m *MemoryReader) readRange(src array.ByteArray, id int64, dst []byte, start, length int64) (int, error) {
	off, l, err := m.span(id)
	if err != nil {
		return 0, err
	}
	if err = checkSubRange(id, l, start, length); err != nil {
		return 0, err
	}
	if err = checkDest(id, dst, length); err != nil {
		return 0, err
	}
	src.CopyOut(off+start, dst[:length])
	return int(length), nil
}

func (m *MemoryReader) Read(id int64) ([]byte, error) { return m.read(m.data, id) }

func (m *MemoryReader) ReadInto(id int64, dst []byte) (int, error) {
	return m.readInto(m.data, id, dst)
}

func (m *MemoryReader) ReadRange(id int64, dst []byte, start, length int64) (int, error) {
	return m.readRange(m.data, id, dst, start, length)
}

func (m *MemoryReader) ReadQuality(id int64) ([]byte, error) {
	if !m.hasQuality {
		return nil, ErrNoQuality
	}
	return m.read(m.quality, id)
}

func (m *MemoryReader) ReadQualityInto(id int64, dst []byte) (int, error) {
	if !m.hasQuality {
		return 0, ErrNoQuality
	}
	return m.readInto(m.quality, id, dst)
}

func (m *MemoryReader) ReadQualityRange(id int64, dst []byte, start, length int64) (int, error) {
	if !m.hasQuality {
		return 0, ErrNoQuality
	}
	return m.readRange(m.quality, id, dst, start, length)
}

func (m *MemoryReader) SequenceDataChecksum(id int64) (byte, error) {
	if err := m.check(id); err != nil {
		return 0, err
	}
	return m.checksums.Get(id), nil
}

func (m *MemoryReader) LengthBetween(start, end int64) (int64, error) {
	if start < 0 || end < start || end > m.n {
		return 0, invalid("range [%d, %d) outside [0, %d)", start, end, m.n)
	}
	return m.positions.Get(end) - m.positions.Get(start), nil
}

func (m *MemoryReader) SequenceLengths(start, end int64) ([]int64, error) {
	if start < 0 || end < start || end > m.n {
		return nil, invalid("range [%d, %d) outside [0, %d)", start, end, m.n)
	}
	lengths := make([]int64, end-start)
	for i := range lengths {
		id := start + int64(i)
		lengths[i] = m.positions.Get(id+1) - m.positions.Get(id)
	}
	return lengths, nil
}

// Close releases the loaded arrays.
func (m *MemoryReader) Close() error {
	for _, a := range []array.ByteArray{m.data, m.quality, m.checksums} {
		if a != nil {
			a.Release()
		}
	}
	m.data, m.quality, m.checksums = nil, nil, nil
	return nil
}
