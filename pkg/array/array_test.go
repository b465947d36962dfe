package array

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkedBytesAcrossPages(t *testing.T) {
	a := NewChunkedBytes(10, 2)
	defer a.Release()
	assert.Equal(t, int64(10), a.Length())
	assert.Equal(t, 3, a.Pages())

	a.CopyIn(1, []byte{1, 2, 3, 4, 5, 6, 7, 8})
	assert.Equal(t, byte(0), a.Get(0))
	assert.Equal(t, byte(4), a.Get(4))
	assert.Equal(t, byte(8), a.Get(8))

	out := make([]byte, 6)
	a.CopyOut(3, out)
	assert.Equal(t, []byte{3, 4, 5, 6, 7, 8}, out)

	a.Swap(1, 8)
	assert.Equal(t, byte(8), a.Get(1))
	assert.Equal(t, byte(1), a.Get(8))
	a.Set(9, 42)
	assert.Equal(t, byte(42), a.Get(9))
}

func TestChunkedBytesExtend(t *testing.T) {
	a := NewChunkedBytes(0, 3)
	defer a.Release()
	assert.Equal(t, 0, a.Pages())
	assert.Equal(t, int64(0), a.Extend(5))
	assert.Equal(t, int64(5), a.Extend(7))
	assert.Equal(t, int64(12), a.Length())
	assert.Equal(t, 2, a.Pages())
	a.CopyIn(5, []byte("abcdefg"))
	out := make([]byte, 7)
	a.CopyOut(5, out)
	assert.Equal(t, "abcdefg", string(out))
}

func TestDirectBytes(t *testing.T) {
	a := NewDirectBytes(4)
	a.CopyIn(0, []byte{9, 8, 7, 6})
	a.Swap(0, 3)
	assert.Equal(t, []byte{6, 8, 7, 9}, a.Bytes())
	assert.Equal(t, int64(4), a.Extend(2))
	assert.Equal(t, int64(6), a.Length())
	assert.Equal(t, byte(0), a.Get(5))
}

func TestLongs(t *testing.T) {
	for _, l := range []LongIndex{NewDirectLongs(9), NewChunkedLongs(9, 2)} {
		require.Equal(t, int64(9), l.Length())
		for i := int64(0); i < 9; i++ {
			l.Set(i, i*i)
		}
		l.Swap(0, 8)
		assert.Equal(t, int64(64), l.Get(0))
		assert.Equal(t, int64(0), l.Get(8))
		assert.Equal(t, int64(25), l.Get(5))
	}
}

func TestSelectors(t *testing.T) {
	_, ok := NewBytes(16).(*DirectBytes)
	assert.True(t, ok)
	_, ok = NewLongs(16).(*DirectLongs)
	assert.True(t, ok)
	assert.Panics(t, func() { NewDirectBytes(-1) })
}

func TestPageRefcount(t *testing.T) {
	p := NewPooledPage(100)
	assert.Len(t, p.Data, 100)
	p.Acquire()
	p.Release()
	assert.NotNil(t, p.Data)
	p.Release()
	assert.Nil(t, p.Data)
}
