package sdf

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SeqStore/pkg/compress"
)

func checkReader(t *testing.T, r SequencesReader, seqs []testSeq, names bool) {
	require.Equal(t, int64(len(seqs)), r.NumberSequences())
	var total int64
	for i, s := range seqs {
		id := int64(i)
		l, err := r.Length(id)
		require.NoError(t, err)
		assert.Equal(t, int64(len(s.data)), l, "length of %d", i)
		total += l

		data, err := r.Read(id)
		require.NoError(t, err)
		assert.Equal(t, len(s.data), len(data))
		if len(s.data) > 0 {
			assert.Equal(t, s.data, data, "sequence %d", i)
		}
		sum, err := r.SequenceDataChecksum(id)
		require.NoError(t, err)
		assert.Equal(t, Checksum(s.data), sum)

		buf := make([]byte, len(s.data)+3)
		n, err := r.ReadInto(id, buf)
		require.NoError(t, err)
		assert.Equal(t, len(s.data), n)
		assert.Equal(t, s.data, buf[:n])

		if len(s.data) > 2 {
			n, err = r.ReadRange(id, buf, 1, int64(len(s.data)-2))
			require.NoError(t, err)
			assert.Equal(t, s.data[1:len(s.data)-1], buf[:n])
		}

		if s.quality != nil {
			require.True(t, r.HasQuality())
			q, err := r.ReadQuality(id)
			require.NoError(t, err)
			assert.Equal(t, len(s.quality), len(q))
			if len(q) > 0 {
				assert.Equal(t, s.quality, q)
			}
			n, err = r.ReadQualityInto(id, buf)
			require.NoError(t, err)
			assert.Equal(t, s.quality, buf[:n])
			if len(s.quality) > 1 {
				n, err = r.ReadQualityRange(id, buf, 1, 1)
				require.NoError(t, err)
				assert.Equal(t, s.quality[1:2], buf[:n])
			}
		}
		if names {
			name, err := r.Name(id)
			require.NoError(t, err)
			assert.Equal(t, label(s.name), name)
			sfx, err := r.NameSuffix(id)
			require.NoError(t, err)
			assert.Equal(t, suffix(s.name), sfx)
		}
	}
	all, err := r.LengthBetween(0, int64(len(seqs)))
	require.NoError(t, err)
	assert.Equal(t, total, all)
	lengths, err := r.SequenceLengths(0, int64(len(seqs)))
	require.NoError(t, err)
	for i, s := range seqs {
		assert.Equal(t, int64(len(s.data)), lengths[i])
	}
}

func TestRoundTrip(t *testing.T) {
	for _, enc := range []compress.Encoding{compress.EncodingNone, compress.EncodingLZ4, compress.EncodingZstd} {
		for _, scheme := range []string{"file", "mmap"} {
			t.Run(enc.String()+"/"+scheme, func(t *testing.T) {
				storage, _ := newStorage(t, scheme)
				seqs := randomSeqs(200, 60, true, 42)
				conf := &WriterConfig{SizeLimit: 500, HasQuality: true, HasNames: true, Encoding: enc, BlockSize: 100}
				writeStore(t, storage, conf, seqs)

				r, err := Open(storage)
				require.NoError(t, err)
				defer r.Close()
				assert.Greater(t, r.st.sequences.NumberEntries(), 1)
				checkReader(t, r, seqs, true)

				m, err := LoadMemory(context.Background(), storage, 0, -1)
				require.NoError(t, err)
				defer m.Close()
				checkReader(t, m, seqs, true)
				assert.Equal(t, r.MainIndex().DataHash, m.DataHash())
				assert.Equal(t, r.MainIndex().QualityHash, m.QualityHash())
			})
		}
	}
}

func TestExampleStore(t *testing.T) {
	storage, _ := newStorage(t, "file")
	seqs := []testSeq{
		{name: "a", data: []byte{}, quality: []byte{}},
		{name: "b", data: []byte{0, 1, 2, 3, 4}, quality: []byte{10, 20, 30, 40, 50}},
		{name: "c", data: []byte{4, 3, 2}, quality: []byte{5, 5, 5}},
	}
	writeStore(t, storage, &WriterConfig{HasQuality: true, HasNames: true}, seqs)

	r, err := Open(storage)
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, int64(3), r.NumberSequences())
	assert.True(t, r.HasQuality())
	b, err := r.Read(0)
	require.NoError(t, err)
	assert.Empty(t, b)
	b, err = r.Read(1)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 1, 2, 3, 4}, b)
	q, err := r.ReadQuality(1)
	require.NoError(t, err)
	assert.Equal(t, []byte{10, 20, 30, 40, 50}, q)

	m := r.MainIndex()
	assert.Equal(t, int64(0), m.MinLength)
	assert.Equal(t, int64(5), m.MaxLength)
	assert.Equal(t, int64(8), m.TotalLength)
	assert.False(t, m.HasSuffixes)
}

func TestReaderErrors(t *testing.T) {
	storage, _ := newStorage(t, "file")
	seqs := randomSeqs(10, 20, false, 1)
	seqs[2].data = []byte{1, 2, 3, 4}
	writeStore(t, storage, &WriterConfig{}, seqs)

	r, err := Open(storage)
	require.NoError(t, err)
	defer r.Close()
	assert.False(t, r.HasQuality())
	assert.False(t, r.HasNames())

	_, err = r.ReadInto(2, make([]byte, 3))
	assert.True(t, errors.Is(err, ErrInvalidArgument))
	_, err = r.ReadRange(2, make([]byte, 10), 2, 3)
	assert.True(t, errors.Is(err, ErrInvalidArgument))
	_, err = r.ReadRange(2, make([]byte, 1), 1, 2)
	assert.True(t, errors.Is(err, ErrInvalidArgument))
	_, err = r.Read(10)
	assert.True(t, errors.Is(err, ErrInvalidArgument))
	_, err = r.Read(-1)
	assert.True(t, errors.Is(err, ErrInvalidArgument))
	_, err = r.ReadQuality(0)
	assert.True(t, errors.Is(err, ErrNoQuality))
	_, err = r.Name(0)
	assert.True(t, errors.Is(err, ErrNoNames))
	_, err = r.LengthBetween(3, 2)
	assert.True(t, errors.Is(err, ErrInvalidArgument))
}

func TestRegionReader(t *testing.T) {
	storage, _ := newStorage(t, "file")
	seqs := randomSeqs(30, 40, false, 5)
	writeStore(t, storage, &WriterConfig{SizeLimit: 100, HasNames: true}, seqs)

	r, err := OpenRange(storage, 7, 19)
	require.NoError(t, err)
	defer r.Close()
	checkReader(t, r, seqs[7:19], true)
	assert.Equal(t, int64(7), r.Identity().Start)

	m, err := LoadMemory(context.Background(), storage, 7, 19)
	require.NoError(t, err)
	defer m.Close()
	checkReader(t, m, seqs[7:19], true)
	assert.True(t, Equal(r, m))

	_, err = OpenRange(storage, 20, 31)
	assert.True(t, errors.Is(err, ErrInvalidArgument))
}

func TestIdempotentReopen(t *testing.T) {
	storage, _ := newStorage(t, "file")
	seqs := randomSeqs(50, 30, true, 9)
	writeStore(t, storage, &WriterConfig{SizeLimit: 64, HasQuality: true, HasNames: true}, seqs)

	a, err := Open(storage)
	require.NoError(t, err)
	defer a.Close()
	b, err := Open(storage)
	require.NoError(t, err)
	defer b.Close()
	assert.True(t, Equal(a, b))
	for id := int64(49); id >= 0; id -= 3 {
		da, err := a.Read(id)
		require.NoError(t, err)
		db, err := b.Read(id)
		require.NoError(t, err)
		assert.Equal(t, da, db)
		qa, err := a.ReadQuality(id)
		require.NoError(t, err)
		qb, err := b.ReadQuality(id)
		require.NoError(t, err)
		assert.Equal(t, qa, qb)
		na, err := a.Name(id)
		require.NoError(t, err)
		nb, err := b.Name(id)
		require.NoError(t, err)
		assert.Equal(t, na, nb)
	}
}

func TestConcat(t *testing.T) {
	s1, _ := newStorage(t, "file")
	s2, _ := newStorage(t, "file")
	seqs1 := randomSeqs(12, 30, true, 11)
	seqs2 := randomSeqs(9, 30, true, 12)
	writeStore(t, s1, &WriterConfig{HasQuality: true, HasNames: true}, seqs1)
	writeStore(t, s2, &WriterConfig{HasQuality: true, HasNames: true}, seqs2)

	r1, err := Open(s1)
	require.NoError(t, err)
	r2, err := Open(s2)
	require.NoError(t, err)
	c, err := Concat(r1, r2)
	require.NoError(t, err)
	defer c.Close()
	checkReader(t, c, append(append([]testSeq{}, seqs1...), seqs2...), true)

	l, err := c.LengthBetween(10, 14)
	require.NoError(t, err)
	var want int64
	for _, s := range append(seqs1[10:], seqs2[:2]...) {
		want += int64(len(s.data))
	}
	assert.Equal(t, want, l)
	assert.False(t, Equal(c, r1))
}

func TestLengthBetweenFixedLength(t *testing.T) {
	storage, _ := newStorage(t, "file")
	seqs := make([]testSeq, 10)
	for i := range seqs {
		seqs[i] = testSeq{data: []byte("ACGTACGT")}
	}
	writeStore(t, storage, &WriterConfig{SizeLimit: 20}, seqs)
	r, err := Open(storage)
	require.NoError(t, err)
	defer r.Close()
	l, err := r.LengthBetween(2, 9)
	require.NoError(t, err)
	assert.Equal(t, int64(56), l)
}
