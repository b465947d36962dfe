// pkg/sdf/store.go

package sdf

import (
	"io"
	"math"

	"github.com/pkg/errors"

	"SeqStore/pkg/compress"
	"SeqStore/pkg/object"
	"SeqStore/pkg/utils"
)

var logger = utils.GetLogger("seqstore")

const (
	DefaultSizeLimit = 1000 * 1000 * 1000
	MinSizeLimit     = 20
	MaxSizeLimit     = math.MaxUint32

	maxDataFileSize   = MaxSizeLimit
	maxSequenceLength = math.MaxUint32
	loadBlockSize     = 1 << 20
)

// store is an opened, validated store directory.
type store struct {
	storage      object.ObjectStorage
	main         *MainIndex
	sequences    *DataFileIndex
	names        *DataFileIndex
	suffixes     *DataFileIndex
	pointers     *PointerFileHandler
	namePointers *PointerFileHandler
}

func openStore(storage object.ObjectStorage) (*store, error) {
	main, err := ReadMainIndex(storage)
	if err != nil {
		return nil, err
	}
	st := &store{
		storage:      storage,
		main:         main,
		pointers:     sequencePointerHandler(main.HasQuality),
		namePointers: NewPointerFileHandler(0),
	}
	if st.sequences, err = LoadDataFileIndex(storage, SequenceIndexFile, main.NumberSequences); err != nil {
		return nil, err
	}
	if st.sequences.TotalDataSize() != main.TotalLength {
		return nil, corrupt(SequenceIndexFile, -1, "index holds %d bytes, main index declares %d",
			st.sequences.TotalDataSize(), main.TotalLength)
	}
	if main.HasNames {
		if st.names, err = LoadDataFileIndex(storage, NameIndexFile, main.NumberSequences); err != nil {
			return nil, err
		}
		if main.HasSuffixes {
			if st.suffixes, err = LoadDataFileIndex(storage, SuffixIndexFile, main.NumberSequences); err != nil {
				return nil, err
			}
		}
	}
	logger.Debugf("opened %s: %d sequences in %d files", storage, main.NumberSequences, st.sequences.NumberEntries())
	return st, nil
}

func (st *store) sequenceStreams() *streamManager {
	m := newStreamManager(st.storage, st.sequences, st.pointers, sequenceArtifact, st.main.SequenceEncoding)
	if st.main.HasQuality {
		m.withQuality(st.main.QualityEncoding)
	}
	return m
}

func (st *store) nameStreams() *streamManager {
	if st.names == nil {
		return nil
	}
	return newStreamManager(st.storage, st.names, st.namePointers, nameArtifact, compress.EncodingNone)
}

func (st *store) suffixStreams() *streamManager {
	if st.suffixes == nil {
		return nil
	}
	return newStreamManager(st.storage, st.suffixes, st.namePointers, suffixArtifact, compress.EncodingNone)
}

// openPointerFile opens a pointer file and checks its size against the index.
func openPointerFile(storage object.ObjectStorage, index *DataFileIndex, h *PointerFileHandler, art artifact, file int) (object.File, error) {
	name := art.pointerFile(file)
	p, err := storage.Open(name)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", name)
	}
	n := index.NumberSequences(file)
	if p.Size() != h.FileSize(n) {
		_ = p.Close()
		return nil, corrupt(name, -1, "pointer file holds %d bytes, expected %d for %d sequences", p.Size(), h.FileSize(n), n)
	}
	return p, nil
}

type compressedFile struct {
	*compress.RandomReader
	f object.File
}

func (c *compressedFile) Close() error {
	_ = c.RandomReader.Close()
	return c.f.Close()
}

// openRandom opens a data file for logical random access and checks its
// logical size against the index.
func openRandom(storage object.ObjectStorage, name string, enc compress.Encoding, dataSize int64) (object.File, error) {
	f, err := storage.Open(name)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", name)
	}
	var r object.File = f
	if enc != compress.EncodingNone {
		rr, err := compress.NewRandomReader(f, f.Size(), compress.NewCompressor(enc))
		if err != nil {
			_ = f.Close()
			return nil, corrupt(name, -1, "%s", err)
		}
		r = &compressedFile{rr, f}
	}
	if r.Size() != dataSize {
		_ = r.Close()
		return nil, corrupt(name, -1, "data file holds %d bytes, index declares %d", r.Size(), dataSize)
	}
	return r, nil
}

type decodingReader struct {
	io.Reader
	io.Closer
}

// openSequential opens a data file for streaming from logical offset off.
func openSequential(storage object.ObjectStorage, name string, enc compress.Encoding, off int64) (io.ReadCloser, error) {
	if enc == compress.EncodingNone {
		r, err := storage.Get(name, off, -1)
		return r, errors.Wrapf(err, "open %s", name)
	}
	raw, err := storage.Get(name, 0, -1)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", name)
	}
	r := &decodingReader{compress.NewBlockReader(raw, compress.NewCompressor(enc)), raw}
	if off > 0 {
		if _, err := io.CopyN(io.Discard, r, off); err != nil {
			_ = raw.Close()
			return nil, errors.Wrapf(err, "skip to %d in %s", off, name)
		}
	}
	return r, nil
}
