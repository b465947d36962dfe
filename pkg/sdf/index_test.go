package sdf

import (
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SeqStore/pkg/array"
	"SeqStore/pkg/compress"
)

func TestDataFileIndex(t *testing.T) {
	storage, _ := newStorage(t, "file")
	d := newDataFileIndex(SequenceIndexFile)
	require.NoError(t, d.add(2, 10))
	require.NoError(t, d.add(0, 0))
	require.NoError(t, d.add(3, 20))
	require.NoError(t, d.WriteTo(storage))

	d, err := LoadDataFileIndex(storage, SequenceIndexFile, 5)
	require.NoError(t, err)
	assert.Equal(t, 3, d.NumberEntries())
	assert.Equal(t, int64(5), d.TotalNumberSequences())
	assert.Equal(t, int64(30), d.TotalDataSize())
	assert.Equal(t, int64(10), d.DataOffset(2))
	assert.Equal(t, int64(2), d.FirstSequence(2))

	for id, want := range []struct {
		file  int
		local int64
	}{{0, 0}, {0, 1}, {2, 0}, {2, 1}, {2, 2}} {
		file, local, err := d.Locate(int64(id))
		require.NoError(t, err)
		assert.Equal(t, want.file, file, "file of %d", id)
		assert.Equal(t, want.local, local, "position of %d", id)
	}
	_, _, err = d.Locate(5)
	assert.True(t, errors.Is(err, ErrInvalidArgument))
	_, _, err = d.Locate(-1)
	assert.True(t, errors.Is(err, ErrInvalidArgument))

	_, err = LoadDataFileIndex(storage, SequenceIndexFile, 6)
	assert.True(t, IsCorrupt(err))

	d, err = LoadDataFileIndex(storage, NameIndexFile, -1)
	require.NoError(t, err)
	assert.Equal(t, 0, d.NumberEntries())
	_, err = LoadDataFileIndex(storage, NameIndexFile, 1)
	assert.True(t, IsCorrupt(err))
}

func TestDataFileIndexBadLength(t *testing.T) {
	storage, _ := newStorage(t, "file")
	d := newDataFileIndex(SequenceIndexFile)
	require.NoError(t, d.add(1, 1))
	require.NoError(t, d.WriteTo(storage))
	require.NoError(t, writeFile(storage, SequenceIndexFile, d.encode()[:12]))
	_, err := LoadDataFileIndex(storage, SequenceIndexFile, -1)
	assert.True(t, IsCorrupt(err))
}

func TestMainIndex(t *testing.T) {
	storage, dir := newStorage(t, "file")
	require.NoError(t, storage.Create())
	m := &MainIndex{
		SizeLimit:        DefaultSizeLimit,
		NumberSequences:  3,
		TotalLength:      9,
		MaxLength:        5,
		MinLength:        1,
		HasQuality:       true,
		HasNames:         true,
		SequenceEncoding: compress.EncodingZstd,
		QualityEncoding:  compress.EncodingLZ4,
		BlockSize:        4096,
		SdfID:            uuid.New(),
		DataHash:         1,
		QualityHash:      2,
		NameHash:         3,
		SuffixHash:       4,
		Comment:          "comment",
		CommandLine:      "seqstore format x.fa",
	}
	require.NoError(t, m.Write(storage))
	got, err := ReadMainIndex(storage)
	require.NoError(t, err)
	m.Version = mainVersion
	assert.Equal(t, m, got)

	mutateFile(t, filepath.Join(dir, MainIndexFile), func(b []byte) { b[20] ^= 1 })
	_, err = ReadMainIndex(storage)
	assert.True(t, IsCorrupt(err))

	mutateFile(t, filepath.Join(dir, MainIndexFile), func(b []byte) { b[0] = 'X' })
	_, err = ReadMainIndex(storage)
	assert.True(t, IsCorrupt(err))

	_, err = decodeMainIndex([]byte("short"))
	assert.True(t, IsCorrupt(err))
}

func TestHash(t *testing.T) {
	seqs := [][]byte{{1, 2, 3}, {}, {4, 4, 4, 4, 4}, {0}, {3, 2}}
	var whole Hash
	for _, s := range seqs {
		whole.Sequence(s)
	}

	var pieces Hash
	for _, s := range seqs {
		for _, c := range s {
			pieces.Bytes([]byte{c})
		}
		pieces.Long(int64(len(s)))
	}
	assert.Equal(t, whole.Sum(), pieces.Sum())

	for split := 0; split <= len(seqs); split++ {
		var a, b Hash
		var bytes int64
		for _, s := range seqs[:split] {
			a.Sequence(s)
		}
		for _, s := range seqs[split:] {
			b.Sequence(s)
			bytes += int64(len(s))
		}
		assert.Equal(t, whole.Sum(), CombineHash(a.Sum(), b.Sum(), int64(len(seqs)-split), bytes), "split at %d", split)
	}

	var other Hash
	other.Sequence([]byte{1, 2})
	other.Sequence([]byte{3})
	var joined Hash
	joined.Sequence([]byte{1, 2, 3})
	assert.NotEqual(t, joined.Sum(), other.Sum())
}

func TestLoaderRanges(t *testing.T) {
	storage, _ := newStorage(t, "file")
	seqs := randomSeqs(60, 30, true, 17)
	writeStore(t, storage, &WriterConfig{SizeLimit: 200, HasQuality: true}, seqs)
	l, err := NewLoader(storage)
	require.NoError(t, err)

	start, end := int64(11), int64(47)
	n := end - start
	positions := array.NewLongs(n + 1)
	sums := array.NewBytes(n)
	qsums := array.NewBytes(n)
	require.NoError(t, l.LoadPositions(testContext(), start, end, positions, sums, qsums))

	dest := array.NewBytes(0)
	h, err := l.LoadData(testContext(), start, end, positions, dest, sums, true)
	require.NoError(t, err)
	var want Hash
	var off int64
	for i := start; i < end; i++ {
		s := seqs[i]
		want.Sequence(s.data)
		got := make([]byte, len(s.data))
		dest.CopyOut(off, got)
		assert.Equal(t, s.data, got, "sequence %d", i)
		assert.Equal(t, Checksum(s.data), sums.Get(i-start))
		assert.Equal(t, Checksum(s.quality), qsums.Get(i-start))
		off += int64(len(s.data))
	}
	assert.Equal(t, want.Sum(), h)
	assert.Equal(t, off, dest.Length())

	computed := array.NewBytes(n)
	h2, err := l.LoadQuality(testContext(), start, end, positions, nil, computed, false)
	require.NoError(t, err)
	assert.NotZero(t, h2)
	for i := int64(0); i < n; i++ {
		assert.Equal(t, qsums.Get(i), computed.Get(i))
	}

	_, err = l.LoadData(testContext(), 0, 61, positions, nil, sums, false)
	assert.True(t, errors.Is(err, ErrInvalidArgument))
	_, err = l.LoadData(testContext(), start, end, positions, nil, nil, true)
	assert.True(t, errors.Is(err, ErrInvalidArgument))
	assert.True(t, errors.Is(l.LoadPositions(testContext(), 0, 10, array.NewLongs(5), nil, nil), ErrInvalidArgument))
}
