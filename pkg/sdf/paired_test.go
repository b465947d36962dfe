package sdf

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SeqStore/pkg/object"
)

func TestCopyRange(t *testing.T) {
	src, _ := newStorage(t, "file")
	seqs := randomSeqs(40, 30, true, 5)
	writeStore(t, src, &WriterConfig{SizeLimit: 200, HasQuality: true, HasNames: true}, seqs)
	r, err := Open(src)
	require.NoError(t, err)
	defer r.Close()

	dst, _ := newStorage(t, "file")
	w, err := NewWriter(dst, &WriterConfig{SizeLimit: 150, HasQuality: true, HasNames: true})
	require.NoError(t, err)
	n, err := Copy(context.Background(), r, w, 10, 25, true)
	require.NoError(t, err)
	assert.Equal(t, int64(15), n)
	require.NoError(t, w.Close())

	sub, err := Open(dst)
	require.NoError(t, err)
	defer sub.Close()
	checkReader(t, sub, seqs[10:25], true)

	_, err = Copy(context.Background(), r, w, 30, 41, false)
	assert.True(t, errors.Is(err, ErrInvalidArgument))
}

func TestCopyWithoutQuality(t *testing.T) {
	src, _ := newStorage(t, "file")
	seqs := randomSeqs(5, 10, false, 6)
	writeStore(t, src, &WriterConfig{HasNames: true}, seqs)
	r, err := Open(src)
	require.NoError(t, err)
	defer r.Close()

	dst, _ := newStorage(t, "file")
	w, err := NewWriter(dst, &WriterConfig{HasQuality: true, HasNames: true})
	require.NoError(t, err)
	_, err = Copy(context.Background(), r, w, 0, 5, true)
	assert.Equal(t, ErrNoQuality, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Copy(ctx, r, w, 0, 5, false)
	assert.Equal(t, context.Canceled, err)
}

func TestSplit(t *testing.T) {
	src, _ := newStorage(t, "file")
	seqs := randomSeqs(23, 20, true, 8)
	writeStore(t, src, &WriterConfig{HasQuality: true, HasNames: true}, seqs)
	r, err := Open(src)
	require.NoError(t, err)
	defer r.Close()

	root := t.TempDir()
	part := func(i int) object.ObjectStorage {
		s, err := object.CreateStorage(filepath.Join(root, fmt.Sprintf("part%d", i)))
		require.NoError(t, err)
		return s
	}
	parts, err := Split(context.Background(), r, 10, true, func(i int) (SequenceWriter, error) {
		return NewWriter(part(i), &WriterConfig{HasQuality: true, HasNames: true})
	})
	require.NoError(t, err)
	assert.Equal(t, 3, parts)

	var readers []SequencesReader
	for i := 0; i < parts; i++ {
		p, err := Open(part(i))
		require.NoError(t, err)
		readers = append(readers, p)
	}
	assert.Equal(t, int64(10), readers[0].NumberSequences())
	assert.Equal(t, int64(3), readers[2].NumberSequences())
	all, err := Concat(readers...)
	require.NoError(t, err)
	defer all.Close()
	checkReader(t, all, seqs, true)

	_, err = Split(context.Background(), r, 0, false, nil)
	assert.True(t, errors.Is(err, ErrInvalidArgument))
}

func TestSplitEmpty(t *testing.T) {
	src, _ := newStorage(t, "file")
	writeStore(t, src, &WriterConfig{}, nil)
	r, err := Open(src)
	require.NoError(t, err)
	defer r.Close()

	dst, _ := newStorage(t, "file")
	parts, err := Split(context.Background(), r, 5, false, func(i int) (SequenceWriter, error) {
		return NewWriter(dst, &WriterConfig{})
	})
	require.NoError(t, err)
	assert.Equal(t, 1, parts)
	p, err := Open(dst)
	require.NoError(t, err)
	defer p.Close()
	assert.Equal(t, int64(0), p.NumberSequences())
}

func writePaired(t *testing.T, location string, seqs []testSeq) {
	l, r := PairedLocations(location)
	ls, err := object.CreateStorage(l)
	require.NoError(t, err)
	rs, err := object.CreateStorage(r)
	require.NoError(t, err)
	conf := &WriterConfig{SizeLimit: 100, HasQuality: true, HasNames: true}
	lw, err := NewWriter(ls, conf)
	require.NoError(t, err)
	rw, err := NewWriter(rs, conf)
	require.NoError(t, err)
	w := NewPairedWriter(lw, rw)
	for _, s := range seqs {
		require.NoError(t, w.StartSequence(s.name))
		require.NoError(t, w.Write(s.data))
		require.NoError(t, w.WriteQuality(s.quality))
		require.NoError(t, w.EndSequence())
	}
	assert.Equal(t, int64(len(seqs)/2), w.NumberPairs())
	require.NoError(t, w.Close())
	assert.Equal(t, lw.SdfID(), rw.SdfID())
}

func openPaired(t *testing.T, location string) SequencesReader {
	l, r := PairedLocations(location)
	ls, err := object.CreateStorage(l)
	require.NoError(t, err)
	rs, err := object.CreateStorage(r)
	require.NoError(t, err)
	left, err := Open(ls)
	require.NoError(t, err)
	right, err := Open(rs)
	require.NoError(t, err)
	p, err := Interleave(left, right)
	require.NoError(t, err)
	return p
}

func TestPaired(t *testing.T) {
	location := filepath.Join(t.TempDir(), "pairs")
	seqs := randomSeqs(30, 25, true, 13)
	writePaired(t, location, seqs)

	top, err := object.CreateStorage(location)
	require.NoError(t, err)
	assert.True(t, IsPaired(top))

	p := openPaired(t, location)
	defer p.Close()
	checkReader(t, p, seqs, true)

	for _, rg := range [][2]int64{{0, 30}, {1, 30}, {3, 4}, {4, 4}, {5, 18}, {0, 1}} {
		var want int64
		var lengths []int64
		for _, s := range seqs[rg[0]:rg[1]] {
			want += int64(len(s.data))
			lengths = append(lengths, int64(len(s.data)))
		}
		got, err := p.LengthBetween(rg[0], rg[1])
		require.NoError(t, err)
		assert.Equal(t, want, got, "range %v", rg)
		ls, err := p.SequenceLengths(rg[0], rg[1])
		require.NoError(t, err)
		assert.Equal(t, len(lengths), len(ls))
		if len(lengths) > 0 {
			assert.Equal(t, lengths, ls, "range %v", rg)
		}
	}
	_, err = p.Read(30)
	assert.True(t, errors.Is(err, ErrInvalidArgument))
	_, err = p.LengthBetween(2, 31)
	assert.True(t, errors.Is(err, ErrInvalidArgument))

	// each half alone holds one mate of every pair
	l, _ := PairedLocations(location)
	ls, err := object.CreateStorage(l)
	require.NoError(t, err)
	assert.False(t, IsPaired(ls))
	left, err := Open(ls)
	require.NoError(t, err)
	defer left.Close()
	checkReader(t, left, []testSeq{seqs[0], seqs[2], seqs[4]}, true)
}

func TestPairedUnmatched(t *testing.T) {
	location := filepath.Join(t.TempDir(), "pairs")
	l, r := PairedLocations(location)
	ls, err := object.CreateStorage(l)
	require.NoError(t, err)
	rs, err := object.CreateStorage(r)
	require.NoError(t, err)
	lw, err := NewWriter(ls, &WriterConfig{})
	require.NoError(t, err)
	rw, err := NewWriter(rs, &WriterConfig{})
	require.NoError(t, err)
	w := NewPairedWriter(lw, rw)
	require.NoError(t, w.StartSequence("a"))
	require.NoError(t, w.Write([]byte{1, 2}))
	require.NoError(t, w.EndSequence())
	assert.True(t, errors.Is(w.Close(), ErrInvalidArgument))

	left, err := Open(ls)
	require.NoError(t, err)
	right, err := Open(rs)
	require.NoError(t, err)
	_, err = Interleave(left, right)
	assert.True(t, errors.Is(err, ErrInvalidArgument))
	_ = left.Close()
	_ = right.Close()
}
