package object

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStorage(t *testing.T, s ObjectStorage) {
	require.NoError(t, s.Create())

	_, err := s.Head("missing")
	assert.True(t, os.IsNotExist(err))
	assert.NoError(t, s.Delete("missing"))

	w, err := s.Put("seqdata0")
	require.NoError(t, err)
	_, err = w.Write([]byte("ACGTACGTNN"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	o, err := s.Head("seqdata0")
	require.NoError(t, err)
	assert.Equal(t, int64(10), o.Size())
	assert.Equal(t, "seqdata0", o.Key())

	r, err := s.Get("seqdata0", 2, 4)
	require.NoError(t, err)
	b, err := io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	assert.Equal(t, "GTAC", string(b))

	r, err = s.Get("seqdata0", 8, -1)
	require.NoError(t, err)
	b, err = io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	assert.Equal(t, "NN", string(b))

	f, err := s.Open("seqdata0")
	require.NoError(t, err)
	assert.Equal(t, int64(10), f.Size())
	buf := make([]byte, 3)
	n, err := f.ReadAt(buf, 4)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, "ACG", string(buf))
	n, err = f.ReadAt(buf, 9)
	assert.Equal(t, io.EOF, err)
	assert.Equal(t, 1, n)
	require.NoError(t, f.Close())

	w, err = s.Put("empty")
	require.NoError(t, err)
	require.NoError(t, w.Close())
	f, err = s.Open("empty")
	require.NoError(t, err)
	assert.Equal(t, int64(0), f.Size())
	require.NoError(t, f.Close())

	objs, err := s.List()
	require.NoError(t, err)
	require.Len(t, objs, 2)
	assert.Equal(t, "empty", objs[0].Key())
	assert.Equal(t, "seqdata0", objs[1].Key())

	require.NoError(t, s.Delete("seqdata0"))
	_, err = s.Head("seqdata0")
	assert.True(t, os.IsNotExist(err))
}

func TestDisk(t *testing.T) {
	s, err := CreateStorage(filepath.Join(t.TempDir(), "store"))
	require.NoError(t, err)
	assert.Contains(t, s.String(), "file://")
	testStorage(t, s)
}

func TestMmap(t *testing.T) {
	s, err := CreateStorage("mmap://" + filepath.Join(t.TempDir(), "store"))
	require.NoError(t, err)
	assert.Contains(t, s.String(), "mmap://")
	testStorage(t, s)
}

func TestLimited(t *testing.T) {
	s, err := CreateStorage("file://" + t.TempDir())
	require.NoError(t, err)
	l := NewLimited(s, 1<<20, 1<<20)
	testStorage(t, l)
	Shutdown(l)
}

func TestCreateStorageUnknown(t *testing.T) {
	_, err := CreateStorage("s4://bucket")
	assert.Error(t, err)
}

func TestParseSftp(t *testing.T) {
	os.Setenv("SFTP_PASSWORD", "fromenv")
	defer os.Unsetenv("SFTP_PASSWORD")

	tg, err := parseSftp("alice@example.org/data/reads")
	require.NoError(t, err)
	assert.Equal(t, "example.org:22", tg.host)
	assert.Equal(t, "alice", tg.user)
	assert.Equal(t, "fromenv", tg.password)
	assert.Equal(t, "/data/reads", tg.root)
	assert.Len(t, tg.auth(), 1)

	tg, err = parseSftp("bob:secret@10.0.0.1:2222/x")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1:2222", tg.host)
	assert.Equal(t, "secret", tg.password)

	_, err = parseSftp("/no/host")
	assert.Error(t, err)
}
