// pkg/sdf/reader.go

package sdf

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"SeqStore/pkg/object"
)

// SequencesReader is random access by id over a set of sequences.
// Implementations are not safe for concurrent use unless stated otherwise;
// open one reader per goroutine.
type SequencesReader interface {
	NumberSequences() int64
	Length(id int64) (int64, error)
	Name(id int64) (string, error)
	NameSuffix(id int64) (string, error)
	// Read returns a fresh copy of the sequence bytes.
	Read(id int64) ([]byte, error)
	// ReadInto copies the whole sequence into dst, which must be large enough.
	ReadInto(id int64, dst []byte) (int, error)
	// ReadRange copies length bytes starting at start within the sequence into dst.
	ReadRange(id int64, dst []byte, start, length int64) (int, error)
	ReadQuality(id int64) ([]byte, error)
	ReadQualityInto(id int64, dst []byte) (int, error)
	ReadQualityRange(id int64, dst []byte, start, length int64) (int, error)
	HasQuality() bool
	HasNames() bool
	SequenceDataChecksum(id int64) (byte, error)
	// LengthBetween sums the lengths of sequences [start, end).
	LengthBetween(start, end int64) (int64, error)
	SequenceLengths(start, end int64) ([]int64, error)
	Identity() Identity
	Close() error
}

// Identity names the data a reader serves; views of the same store range compare equal.
type Identity struct {
	SdfID    uuid.UUID
	Location string
	Start    int64
	End      int64
}

// Equal reports whether two readers serve the same data.
func Equal(a, b SequencesReader) bool {
	return a.Identity() == b.Identity()
}

func checkDest(id int64, dst []byte, need int64) error {
	if int64(len(dst)) < need {
		return invalid("buffer of %d bytes too small for %d bytes of sequence %d", len(dst), need, id)
	}
	return nil
}

func checkSubRange(id, seqLen, start, length int64) error {
	if start < 0 || length < 0 || start+length > seqLen {
		return invalid("range %d+%d outside sequence %d of length %d", start, length, id, seqLen)
	}
	return nil
}

// DefaultReader reads a store through its files on every call.
type DefaultReader struct {
	st       *store
	start    int64
	end      int64
	seq      *streamManager
	names    *streamManager
	suffixes *streamManager
}

// Open opens a reader over the whole store.
func Open(storage object.ObjectStorage) (*DefaultReader, error) {
	return OpenRange(storage, 0, -1)
}

// OpenRange opens a reader over sequences [start, end); end < 0 means to the
// end of the store. Ids passed to the reader are relative to start.
func OpenRange(storage object.ObjectStorage, start, end int64) (*DefaultReader, error) {
	st, err := openStore(storage)
	if err != nil {
		return nil, err
	}
	total := st.main.NumberSequences
	if end < 0 {
		end = total
	}
	if start < 0 || start > end || end > total {
		return nil, invalid("region [%d, %d) outside [0, %d)", start, end, total)
	}
	return &DefaultReader{
		st:       st,
		start:    start,
		end:      end,
		seq:      st.sequenceStreams(),
		names:    st.nameStreams(),
		suffixes: st.suffixStreams(),
	}, nil
}

func (r *DefaultReader) NumberSequences() int64 { return r.end - r.start }

func (r *DefaultReader) HasQuality() bool { return r.st.main.HasQuality }

func (r *DefaultReader) HasNames() bool { return r.st.main.HasNames }

// MainIndex returns the store metadata.
func (r *DefaultReader) MainIndex() *MainIndex { return r.st.main }

func (r *DefaultReader) Identity() Identity {
	return Identity{r.st.main.SdfID, r.st.storage.String(), r.start, r.end}
}

func (r *DefaultReader) global(id int64) (int64, error) {
	if id < 0 || id >= r.end-r.start {
		return 0, invalid("sequence id %d out of range [0, %d)", id, r.end-r.start)
	}
	return r.start + id, nil
}

func (r *DefaultReader) seek(id int64) error {
	g, err := r.global(id)
	if err != nil {
		return err
	}
	return r.seq.seek(g)
}

func (r *DefaultReader) Length(id int64) (int64, error) {
	if err := r.seek(id); err != nil {
		return 0, err
	}
	return r.seq.dataLength(), nil
}

func (r *DefaultReader) Name(id int64) (string, error) {
	if r.names == nil {
		return "", ErrNoNames
	}
	g, err := r.global(id)
	if err != nil {
		return "", err
	}
	if err = r.names.seek(g); err != nil {
		return "", err
	}
	return r.names.readName()
}

// NameSuffix returns the part of the name after the first whitespace, or "".
func (r *DefaultReader) NameSuffix(id int64) (string, error) {
	if r.names == nil {
		return "", ErrNoNames
	}
	g, err := r.global(id)
	if err != nil {
		return "", err
	}
	if r.suffixes == nil {
		return "", nil
	}
	if err = r.suffixes.seek(g); err != nil {
		return "", err
	}
	return r.suffixes.readName()
}

func (r *DefaultReader) Read(id int64) ([]byte, error) {
	if err := r.seek(id); err != nil {
		return nil, err
	}
	buf := make([]byte, r.seq.dataLength())
	if err := r.readWhole(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// readWhole reads the sequence at the last seek and verifies its checksum.
func (r *DefaultReader) readWhole(buf []byte) error {
	if err := r.seq.readData(buf, 0); err != nil {
		return err
	}
	if sum := Checksum(buf); sum != r.seq.span.checksum {
		return corrupt(r.seq.art.dataFile(r.seq.file), r.seq.id, "checksum mismatch: stored %#02x, computed %#02x",
			r.seq.span.checksum, sum)
	}
	return nil
}

func (r *DefaultReader) ReadInto(id int64, dst []byte) (int, error) {
	if err := r.seek(id); err != nil {
		return 0, err
	}
	l := r.seq.dataLength()
	if err := checkDest(id, dst, l); err != nil {
		return 0, err
	}
	if err := r.readWhole(dst[:l]); err != nil {
		return 0, err
	}
	return int(l), nil
}

func (r *DefaultReader) ReadRange(id int64, dst []byte, start, length int64) (int, error) {
	if err := r.seek(id); err != nil {
		return 0, err
	}
	if err := checkSubRange(id, r.seq.dataLength(), start, length); err != nil {
		return 0, err
	}
	if err := checkDest(id, dst, length); err != nil {
		return 0, err
	}
	if err := r.seq.readData(dst[:length], start); err != nil {
		return 0, err
	}
	return int(length), nil
}

func (r *DefaultReader) readQualityWhole(buf []byte) error {
	if err := r.seq.readQuality(buf, 0); err != nil {
		return err
	}
	if sum := Checksum(buf); sum != r.seq.span.quality {
		return corrupt(qualityArtifact.dataFile(r.seq.file), r.seq.id, "quality checksum mismatch: stored %#02x, computed %#02x",
			r.seq.span.quality, sum)
	}
	return nil
}

func (r *DefaultReader) ReadQuality(id int64) ([]byte, error) {
	if !r.HasQuality() {
		return nil, ErrNoQuality
	}
	if err := r.seek(id); err != nil {
		return nil, err
	}
	buf := make([]byte, r.seq.dataLength())
	if err := r.readQualityWhole(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func (r *DefaultReader) ReadQualityInto(id int64, dst []byte) (int, error) {
	if !r.HasQuality() {
		return 0, ErrNoQuality
	}
	if err := r.seek(id); err != nil {
		return 0, err
	}
	l := r.seq.dataLength()
	if err := checkDest(id, dst, l); err != nil {
		return 0, err
	}
	if err := r.readQualityWhole(dst[:l]); err != nil {
		return 0, err
	}
	return int(l), nil
}

func (r *DefaultReader) ReadQualityRange(id int64, dst []byte, start, length int64) (int, error) {
	if !r.HasQuality() {
		return 0, ErrNoQuality
	}
	if err := r.seek(id); err != nil {
		return 0, err
	}
	if err := checkSubRange(id, r.seq.dataLength(), start, length); err != nil {
		return 0, err
	}
	if err := checkDest(id, dst, length); err != nil {
		return 0, err
	}
	if err := r.seq.readQuality(dst[:length], start); err != nil {
		return 0, err
	}
	return int(length), nil
}

func (r *DefaultReader) SequenceDataChecksum(id int64) (byte, error) {
	if err := r.seek(id); err != nil {
		return 0, err
	}
	return r.seq.span.checksum, nil
}

// globalOffset is the logical offset where global sequence id starts.
func (r *DefaultReader) globalOffset(id int64) (int64, error) {
	if id == r.st.main.NumberSequences {
		return r.st.sequences.TotalDataSize(), nil
	}
	if err := r.seq.seek(id); err != nil {
		return 0, err
	}
	return r.seq.globalStart(), nil
}

func (r *DefaultReader) LengthBetween(start, end int64) (int64, error) {
	if start < 0 || end < start || end > r.NumberSequences() {
		return 0, invalid("range [%d, %d) outside [0, %d)", start, end, r.NumberSequences())
	}
	if start == end {
		return 0, nil
	}
	m := r.st.main
	if m.MinLength == m.MaxLength {
		return (end - start) * m.MaxLength, nil
	}
	a, err := r.globalOffset(r.start + start)
	if err != nil {
		return 0, err
	}
	b, err := r.globalOffset(r.start + end)
	if err != nil {
		return 0, err
	}
	return b - a, nil
}

func (r *DefaultReader) SequenceLengths(start, end int64) ([]int64, error) {
	if start < 0 || end < start || end > r.NumberSequences() {
		return nil, invalid("range [%d, %d) outside [0, %d)", start, end, r.NumberSequences())
	}
	lengths := make([]int64, end-start)
	for i := range lengths {
		l, err := r.Length(start + int64(i))
		if err != nil {
			return nil, err
		}
		lengths[i] = l
	}
	return lengths, nil
}

func (r *DefaultReader) Close() error {
	r.seq.close()
	r.names.close()
	r.suffixes.close()
	return nil
}

// IsCorrupt reports whether err comes from an inconsistent store.
func IsCorrupt(err error) bool {
	return errors.Is(err, ErrCorrupt)
}
