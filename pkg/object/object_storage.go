// pkg/object/object_storage.go

package object

import (
	"fmt"
	"io"
	"strings"
)

// Creator builds a storage from the part of a URL after "scheme://".
type Creator func(endpoint string) (ObjectStorage, error)

var storages = make(map[string]Creator)

// Register makes a storage scheme available to CreateStorage.
func Register(name string, register Creator) {
	storages[name] = register
}

// CreateStorage opens the storage for a URL such as file:///data/reads,
// mmap:///data/reads or sftp://user@host/data/reads. A bare path means file://.
func CreateStorage(uri string) (ObjectStorage, error) {
	scheme, endpoint := "file", uri
	if p := strings.Index(uri, "://"); p > 0 {
		scheme, endpoint = strings.ToLower(uri[:p]), uri[p+3:]
	}
	f, ok := storages[scheme]
	if !ok {
		return nil, fmt.Errorf("invalid storage: %s", scheme)
	}
	return f(endpoint)
}

// Shutdown closes the storage if it holds a session.
func Shutdown(s ObjectStorage) {
	if c, ok := s.(io.Closer); ok {
		if err := c.Close(); err != nil {
			logger.Warnf("close %s: %s", s, err)
		}
	}
}
