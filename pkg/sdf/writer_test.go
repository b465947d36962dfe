package sdf

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SeqStore/pkg/array"
	"SeqStore/pkg/compress"
)

func TestRollover(t *testing.T) {
	storage, _ := newStorage(t, "file")
	seqs := make([]testSeq, 5)
	for i := range seqs {
		seqs[i] = testSeq{name: "s", data: []byte("ACGTACGT")}
	}
	writeStore(t, storage, &WriterConfig{SizeLimit: 20}, seqs)

	idx, err := LoadDataFileIndex(storage, SequenceIndexFile, 5)
	require.NoError(t, err)
	require.Equal(t, 3, idx.NumberEntries())
	assert.Equal(t, []int64{2, 2, 1}, []int64{idx.NumberSequences(0), idx.NumberSequences(1), idx.NumberSequences(2)})
	assert.Equal(t, []int64{16, 16, 8}, []int64{idx.DataSize(0), idx.DataSize(1), idx.DataSize(2)})

	file, local, err := idx.Locate(3)
	require.NoError(t, err)
	assert.Equal(t, 1, file)
	assert.Equal(t, int64(1), local)

	for i := 0; i < 3; i++ {
		o, err := storage.Head(SequenceDataFile(i))
		require.NoError(t, err)
		assert.Equal(t, idx.DataSize(i), o.Size())
		o, err = storage.Head(SequencePointerFile(i))
		require.NoError(t, err)
		assert.Equal(t, idx.NumberSequences(i)*5+1, o.Size())
	}
}

func TestOversizedSequence(t *testing.T) {
	storage, _ := newStorage(t, "file")
	seqs := []testSeq{
		{name: "a", data: []byte(strings.Repeat("A", 5))},
		{name: "b", data: []byte(strings.Repeat("C", 50))},
		{name: "c", data: []byte(strings.Repeat("G", 3))},
	}
	writeStore(t, storage, &WriterConfig{SizeLimit: 20, HasNames: true}, seqs)

	idx, err := LoadDataFileIndex(storage, SequenceIndexFile, 3)
	require.NoError(t, err)
	require.Equal(t, 3, idx.NumberEntries())
	assert.Equal(t, int64(50), idx.DataSize(1))

	r, err := Open(storage)
	require.NoError(t, err)
	defer r.Close()
	checkReader(t, r, seqs, true)
}

func TestPointerMonotonicity(t *testing.T) {
	storage, _ := newStorage(t, "file")
	seqs := randomSeqs(300, 50, true, 3)
	writeStore(t, storage, &WriterConfig{SizeLimit: 400, HasQuality: true}, seqs)

	idx, err := LoadDataFileIndex(storage, SequenceIndexFile, 300)
	require.NoError(t, err)
	h := sequencePointerHandler(true)
	id := 0
	for file := 0; file < idx.NumberEntries(); file++ {
		n := idx.NumberSequences(file)
		f, err := openPointerFile(storage, idx, h, sequenceArtifact, file)
		require.NoError(t, err)
		pointers := array.NewLongs(n)
		sums := array.NewBytes(n)
		qsums := array.NewBytes(n)
		got, err := h.ReadPointers(f, 0, n, pointers, 0, 0, sums, qsums)
		require.NoError(t, err)
		assert.Equal(t, n, got)
		require.NoError(t, h.ReadChecksums(f, n, sums, qsums, n-1))
		for k := int64(1); k < n; k++ {
			assert.LessOrEqual(t, pointers.Get(k-1), pointers.Get(k))
		}
		last := seqs[id+int(n)-1]
		assert.Equal(t, idx.DataSize(file), pointers.Get(n-1)+int64(len(last.data)))
		for k := int64(0); k < n; k++ {
			assert.Equal(t, Checksum(seqs[id+int(k)].data), sums.Get(k))
			assert.Equal(t, Checksum(seqs[id+int(k)].quality), qsums.Get(k))
		}

		span, err := h.Locate(f, SequencePointerFile(file), int64(id), 0, n, idx.DataSize(file))
		require.NoError(t, err)
		assert.Equal(t, int64(0), span.start)
		assert.Equal(t, int64(len(seqs[id].data)), span.length)
		require.NoError(t, f.Close())
		id += int(n)
	}
	assert.Equal(t, 300, id)
}

func TestFilePair(t *testing.T) {
	storage, _ := newStorage(t, "file")
	require.NoError(t, storage.Create())
	conf := &WriterConfig{SizeLimit: 20, HasQuality: true}
	require.NoError(t, conf.check())
	p, err := newFilePair(storage, 0, conf)
	require.NoError(t, err)

	ok, err := p.MarkNextSequence()
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, p.Write([]byte("ACGTACGTAC")))
	assert.True(t, p.WriteQuality(make([]byte, 10)))
	assert.Equal(t, int64(10), p.ValuesWritten())
	assert.Equal(t, int64(10), p.BytesFree())

	ok, err = p.MarkNextSequence()
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, p.Write([]byte("ACGT")))
	assert.False(t, p.Write([]byte("ACGTACGT")))
	data, quality := p.AbortSequence()
	assert.Equal(t, []byte("ACGT"), data)
	assert.Empty(t, quality)
	assert.Equal(t, int64(1), p.NumberSequences())

	ok, err = p.MarkNextSequence()
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, p.Write(make([]byte, 10)))
	assert.True(t, p.WriteQuality(make([]byte, 10)))
	require.NoError(t, p.LastSequence())
	assert.Equal(t, int64(20), p.DataSize())
	assert.Equal(t, int64(0), p.BytesFree())

	ok, err = p.MarkNextSequence()
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, p.Close())
	assert.Equal(t, int64(2), p.NumberSequences())
}

func TestFilePairQualityMismatch(t *testing.T) {
	storage, _ := newStorage(t, "file")
	require.NoError(t, storage.Create())
	conf := &WriterConfig{HasQuality: true}
	require.NoError(t, conf.check())
	p, err := newFilePair(storage, 0, conf)
	require.NoError(t, err)
	_, err = p.MarkNextSequence()
	require.NoError(t, err)
	p.Write([]byte("AC"))
	p.WriteQuality([]byte{1})
	err = p.LastSequence()
	assert.True(t, errors.Is(err, ErrInvalidArgument))
}

func TestNameFilePair(t *testing.T) {
	storage, _ := newStorage(t, "file")
	require.NoError(t, storage.Create())
	p, err := newNameFilePair(storage, nameArtifact, 0, 10)
	require.NoError(t, err)
	assert.True(t, p.CanWriteName(9))
	assert.False(t, p.CanWriteName(10))
	ok, err := p.WriteName([]byte("abcd"))
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = p.WriteName([]byte("abcde"))
	require.NoError(t, err)
	assert.False(t, ok)
	name, err := p.ForceWriteName([]byte("abcde"))
	require.NoError(t, err)
	assert.Equal(t, "abcd", string(name))
	require.NoError(t, p.Close())
	assert.Equal(t, int64(2), p.count)
	assert.Equal(t, int64(10), p.dataSize)
}

func TestNames(t *testing.T) {
	var h nameHandler
	l, s, err := h.split("read1 extra\tinfo")
	require.NoError(t, err)
	assert.Equal(t, "read1", l)
	assert.Equal(t, " extra\tinfo", s)

	l, s, err = h.split("")
	require.NoError(t, err)
	assert.Equal(t, "Unnamed_sequence_0", l)
	assert.Equal(t, "", s)
	l, _, err = h.split("")
	require.NoError(t, err)
	assert.Equal(t, "Unnamed_sequence_1", l)

	long := strings.Repeat("x", MaxNameLength+10)
	l, s, err = h.split(long + " tail")
	require.NoError(t, err)
	assert.Len(t, l, MaxNameLength)
	assert.Equal(t, strings.Repeat("x", 10)+" tail", s)

	for _, bad := range []string{"@read", "=x", "*y", "a\x01b", "café"} {
		_, _, err = h.split(bad)
		assert.True(t, errors.Is(err, ErrInvalidArgument), bad)
	}
	assert.Equal(t, []byte("a?b\xe9 "), toLatin1("a中bé\x00"))
}

func TestSuffixFilesRemoved(t *testing.T) {
	storage, _ := newStorage(t, "file")
	seqs := []testSeq{{name: "a", data: []byte("AC")}, {name: "", data: []byte("GT")}}
	writeStore(t, storage, &WriterConfig{HasNames: true}, seqs)

	_, err := storage.Head(SuffixDataFile(0))
	assert.Error(t, err)
	_, err = storage.Head(SuffixIndexFile)
	assert.Error(t, err)

	r, err := Open(storage)
	require.NoError(t, err)
	defer r.Close()
	n, err := r.Name(1)
	require.NoError(t, err)
	assert.Equal(t, "Unnamed_sequence_0", n)
	sfx, err := r.NameSuffix(0)
	require.NoError(t, err)
	assert.Equal(t, "", sfx)
}

func TestQualityClipping(t *testing.T) {
	storage, _ := newStorage(t, "file")
	w, err := NewWriter(storage, &WriterConfig{HasQuality: true})
	require.NoError(t, err)
	require.NoError(t, w.StartSequence("q"))
	require.NoError(t, w.Write([]byte{1, 2, 3}))
	require.NoError(t, w.WriteQuality([]byte{10, 64, 200}))
	require.NoError(t, w.Close())

	r, err := Open(storage)
	require.NoError(t, err)
	defer r.Close()
	q, err := r.ReadQuality(0)
	require.NoError(t, err)
	assert.Equal(t, []byte{10, 63, 63}, q)
}

func TestWriterState(t *testing.T) {
	storage, _ := newStorage(t, "file")
	_, err := NewWriter(storage, &WriterConfig{SizeLimit: 10})
	assert.True(t, errors.Is(err, ErrInvalidArgument))
	_, err = NewWriter(storage, &WriterConfig{Encoding: compress.Encoding(7)})
	assert.True(t, errors.Is(err, ErrInvalidArgument))

	w, err := NewWriter(storage, &WriterConfig{HasQuality: true})
	require.NoError(t, err)
	assert.True(t, errors.Is(w.Write([]byte("A")), ErrInvalidArgument))
	assert.True(t, errors.Is(w.EndSequence(), ErrInvalidArgument))
	require.NoError(t, w.StartSequence("x"))
	assert.True(t, errors.Is(w.StartSequence("y"), ErrInvalidArgument))
	require.NoError(t, w.Write([]byte("AC")))
	assert.True(t, errors.Is(w.EndSequence(), ErrInvalidArgument))
	require.NoError(t, w.WriteQuality([]byte{1, 2}))
	require.NoError(t, w.EndSequence())

	id := uuid.MustParse("0a3e4f1c-7b0e-4d7e-9d3a-0f5c2b9e1a11")
	w.SetSdfID(id)
	w.SetComment("test store")
	w.SetCommandLine("seqstore format reads.fq")
	w.SetReadGroup("@RG\tID:rg1")
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
	assert.True(t, errors.Is(w.StartSequence("z"), ErrInvalidArgument))

	m, err := ReadMainIndex(storage)
	require.NoError(t, err)
	assert.Equal(t, id, m.SdfID)
	assert.Equal(t, "test store", m.Comment)
	assert.Equal(t, "seqstore format reads.fq", m.CommandLine)
	assert.Equal(t, "@RG\tID:rg1", m.ReadGroup)
	assert.Equal(t, int64(1), m.NumberSequences)
}

func TestEmptyStore(t *testing.T) {
	storage, _ := newStorage(t, "mmap")
	writeStore(t, storage, &WriterConfig{HasNames: true, HasQuality: true}, nil)
	r, err := Open(storage)
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, int64(0), r.NumberSequences())
	l, err := r.LengthBetween(0, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(0), l)
	rep, err := Verify(testContext(), storage, &VerifyConfig{Threads: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(0), rep.Sequences)
}
