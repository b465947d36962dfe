package compress

import (
	"bytes"
	"io"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCompressor(t *testing.T, c Compressor) {
	src := bytes.Repeat([]byte("ACGTNACGTT"), 1000)
	dst := make([]byte, c.CompressBound(len(src)))
	n, err := c.Compress(dst, src)
	require.NoError(t, err)
	out := make([]byte, len(src))
	m, err := c.Decompress(out, dst[:n])
	require.NoError(t, err)
	assert.Equal(t, len(src), m)
	assert.Equal(t, src, out)
}

func TestCompressors(t *testing.T) {
	for _, e := range []Encoding{EncodingNone, EncodingLZ4, EncodingZstd} {
		t.Run(e.String(), func(t *testing.T) {
			c := NewCompressor(e)
			require.NotNil(t, c)
			testCompressor(t, c)
		})
	}
	assert.Nil(t, NewCompressor(Encoding(9)))
}

func TestParseEncoding(t *testing.T) {
	e, err := ParseEncoding("ZSTD")
	require.NoError(t, err)
	assert.Equal(t, EncodingZstd, e)
	e, err = ParseEncoding("")
	require.NoError(t, err)
	assert.Equal(t, EncodingNone, e)
	_, err = ParseEncoding("gzip")
	assert.Error(t, err)
}

func randomBases(n int) []byte {
	r := rand.New(rand.NewSource(7))
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(r.Intn(5))
	}
	return b
}

func TestFrames(t *testing.T) {
	src := randomBases(10_000)
	for _, e := range []Encoding{EncodingLZ4, EncodingZstd} {
		t.Run(e.String(), func(t *testing.T) {
			c := NewCompressor(e)
			var stored bytes.Buffer
			w := NewBlockWriter(&stored, c, 1000)
			// uneven writes to cross frame boundaries
			for off := 0; off < len(src); off += 333 {
				end := off + 333
				if end > len(src) {
					end = len(src)
				}
				_, err := w.Write(src[off:end])
				require.NoError(t, err)
			}
			require.NoError(t, w.Close())
			assert.Equal(t, int64(len(src)), w.Written())
			assert.Equal(t, int64(stored.Len()), w.Stored())

			seq, err := io.ReadAll(NewBlockReader(bytes.NewReader(stored.Bytes()), c))
			require.NoError(t, err)
			assert.Equal(t, src, seq)

			rr, err := NewRandomReader(bytes.NewReader(stored.Bytes()), int64(stored.Len()), c)
			require.NoError(t, err)
			defer rr.Close()
			assert.Equal(t, int64(len(src)), rr.Size())
			assert.Equal(t, 10, rr.Frames())

			buf := make([]byte, 2500)
			n, err := rr.ReadAt(buf, 1900)
			require.NoError(t, err)
			assert.Equal(t, 2500, n)
			assert.Equal(t, src[1900:4400], buf)

			n, err = rr.ReadAt(buf, 9000)
			assert.Equal(t, io.EOF, err)
			assert.Equal(t, 1000, n)
			assert.Equal(t, src[9000:], buf[:n])
		})
	}
}

func TestTruncatedFrames(t *testing.T) {
	c := NewCompressor(EncodingLZ4)
	var stored bytes.Buffer
	w := NewBlockWriter(&stored, c, 0)
	_, err := w.Write(randomBases(100))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	data := stored.Bytes()[:stored.Len()-3]
	_, err = NewRandomReader(bytes.NewReader(data), int64(len(data)), c)
	assert.Error(t, err)
	_, err = io.ReadAll(NewBlockReader(bytes.NewReader(data), c))
	assert.Error(t, err)
}
