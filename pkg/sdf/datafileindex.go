// pkg/sdf/datafileindex.go

package sdf

import (
	"io"
	"os"
	"sort"

	"github.com/pkg/errors"

	"SeqStore/pkg/object"
	"SeqStore/pkg/utils"
)

const indexEntrySize = 16

type fileEntry struct {
	numberSequences int64
	dataSize        int64
}

// DataFileIndex maps sequence ids to the rolled data file holding them.
type DataFileIndex struct {
	name    string
	entries []fileEntry
	// firstSeq[i] is the id of the first sequence in file i; firstSeq[len(entries)] is the total.
	firstSeq []int64
	// firstByte[i] is the logical offset of file i within the concatenated data.
	firstByte []int64
}

func newDataFileIndex(name string) *DataFileIndex {
	return &DataFileIndex{name: name, firstSeq: []int64{0}, firstByte: []int64{0}}
}

// LoadDataFileIndex reads an index file. A missing file is an empty index.
// When expected >= 0 the summed sequence counts must equal it.
func LoadDataFileIndex(store object.ObjectStorage, name string, expected int64) (*DataFileIndex, error) {
	idx := newDataFileIndex(name)
	r, err := store.Get(name, 0, -1)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, errors.Wrapf(err, "open %s", name)
		}
	} else {
		data, err := io.ReadAll(r)
		_ = r.Close()
		if err != nil {
			return nil, errors.Wrapf(err, "read %s", name)
		}
		if len(data)%indexEntrySize != 0 {
			return nil, corrupt(name, -1, "index length %d is not a multiple of %d", len(data), indexEntrySize)
		}
		b := utils.ReadBuffer(data)
		for b.HasMore() {
			n, size := int64(b.Get64()), int64(b.Get64())
			if n < 0 || size < 0 || size > maxDataFileSize {
				return nil, corrupt(name, -1, "bad entry %d: %d sequences, %d bytes", len(idx.entries), n, size)
			}
			if err := idx.add(n, size); err != nil {
				return nil, err
			}
		}
	}
	if expected >= 0 && idx.TotalNumberSequences() != expected {
		return nil, corrupt(name, -1, "index holds %d sequences, main index declares %d", idx.TotalNumberSequences(), expected)
	}
	return idx, nil
}

func (d *DataFileIndex) add(numberSequences, dataSize int64) error {
	last := len(d.entries)
	total := d.firstSeq[last] + numberSequences
	if total < d.firstSeq[last] {
		return corrupt(d.name, -1, "sequence count overflows at entry %d", last)
	}
	d.entries = append(d.entries, fileEntry{numberSequences, dataSize})
	d.firstSeq = append(d.firstSeq, total)
	d.firstByte = append(d.firstByte, d.firstByte[last]+dataSize)
	return nil
}

func (d *DataFileIndex) NumberEntries() int { return len(d.entries) }

func (d *DataFileIndex) NumberSequences(file int) int64 { return d.entries[file].numberSequences }

func (d *DataFileIndex) DataSize(file int) int64 { return d.entries[file].dataSize }

func (d *DataFileIndex) TotalNumberSequences() int64 { return d.firstSeq[len(d.entries)] }

func (d *DataFileIndex) TotalDataSize() int64 { return d.firstByte[len(d.entries)] }

// FirstSequence returns the id of the first sequence held by a file.
func (d *DataFileIndex) FirstSequence(file int) int64 { return d.firstSeq[file] }

// DataOffset returns the logical offset at which a file's data starts.
func (d *DataFileIndex) DataOffset(file int) int64 { return d.firstByte[file] }

// Locate returns the file holding id and the position of id within that file.
func (d *DataFileIndex) Locate(id int64) (int, int64, error) {
	if id < 0 || id >= d.TotalNumberSequences() {
		return 0, 0, invalid("sequence id %d out of range [0, %d)", id, d.TotalNumberSequences())
	}
	// first file whose end is past id; skips files with no sequences
	file := sort.Search(len(d.entries), func(i int) bool { return d.firstSeq[i+1] > id })
	return file, id - d.firstSeq[file], nil
}

func (d *DataFileIndex) encode() []byte {
	b := utils.NewBuffer(uint32(len(d.entries) * indexEntrySize))
	for _, e := range d.entries {
		b.Put64(uint64(e.numberSequences))
		b.Put64(uint64(e.dataSize))
	}
	return b.Bytes()
}

// WriteTo stores the index under its file name.
func (d *DataFileIndex) WriteTo(store object.ObjectStorage) error {
	return writeFile(store, d.name, d.encode())
}
