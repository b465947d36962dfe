package sdf

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"SeqStore/pkg/object"
)

type testSeq struct {
	name    string
	data    []byte
	quality []byte
}

func randomSeqs(n int, maxLen int, quality bool, seed int64) []testSeq {
	r := rand.New(rand.NewSource(seed))
	seqs := make([]testSeq, n)
	for i := range seqs {
		l := r.Intn(maxLen + 1)
		if i%7 == 3 {
			l = 0
		}
		s := testSeq{name: fmt.Sprintf("read%d", i), data: make([]byte, l)}
		if i%3 == 0 {
			s.name += fmt.Sprintf(" sample=%d lane=%d", i, i%4)
		}
		for j := range s.data {
			s.data[j] = byte(r.Intn(5))
		}
		if quality {
			s.quality = make([]byte, l)
			for j := range s.quality {
				s.quality[j] = byte(r.Intn(63))
			}
		}
		seqs[i] = s
	}
	return seqs
}

func newStorage(t *testing.T, scheme string) (object.ObjectStorage, string) {
	dir := filepath.Join(t.TempDir(), "sdf")
	s, err := object.CreateStorage(scheme + "://" + dir)
	require.NoError(t, err)
	return s, dir
}

// writeStore writes seqs in pieces of at most 7 bytes to exercise rollover mid-sequence.
func writeStore(t *testing.T, storage object.ObjectStorage, conf *WriterConfig, seqs []testSeq) *Writer {
	w, err := NewWriter(storage, conf)
	require.NoError(t, err)
	for _, s := range seqs {
		require.NoError(t, w.StartSequence(s.name))
		for off := 0; off < len(s.data); off += 7 {
			end := min(off+7, len(s.data))
			require.NoError(t, w.Write(s.data[off:end]))
			if conf.HasQuality {
				require.NoError(t, w.WriteQuality(s.quality[off:end]))
			}
		}
		require.NoError(t, w.EndSequence())
	}
	require.NoError(t, w.Close())
	return w
}

func label(name string) string {
	for i, c := range name {
		if c == ' ' {
			return name[:i]
		}
	}
	return name
}

func suffix(name string) string {
	return name[len(label(name)):]
}

func mutateFile(t *testing.T, path string, fn func([]byte)) {
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	fn(data)
	require.NoError(t, os.WriteFile(path, data, 0644))
}
