// pkg/object/interface.go

package object

import (
	"io"
	"time"
)

// Object is the metadata of one stored file.
type Object interface {
	Key() string
	Size() int64
	Mtime() time.Time
}

type obj struct {
	key   string
	size  int64
	mtime time.Time
}

func (o *obj) Key() string      { return o.key }
func (o *obj) Size() int64      { return o.size }
func (o *obj) Mtime() time.Time { return o.mtime }

// File is a random-access handle on a stored file.
type File interface {
	io.ReaderAt
	io.Closer
	Size() int64
}

// ObjectStorage is the flat directory a store lives in.
type ObjectStorage interface {
	// String returns the URL of the storage.
	String() string
	// Create prepares the directory.
	Create() error
	// Head returns the metadata of a file; a missing file matches os.ErrNotExist.
	Head(key string) (Object, error)
	// Get opens a file for sequential reading from off; limit < 0 means to the end.
	Get(key string, off, limit int64) (io.ReadCloser, error)
	// Open opens a file for random access.
	Open(key string) (File, error)
	// Put creates or truncates a file for writing.
	Put(key string) (io.WriteCloser, error)
	// Delete removes a file; deleting a missing file is not an error.
	Delete(key string) error
	// List returns the files in the directory, sorted by key.
	List() ([]Object, error)
}
