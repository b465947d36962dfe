// pkg/meta/memory.go

package meta

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

func init() {
	Register("mem", newMemCatalog)
}

// memCatalog keeps entries in process memory. Useful for tests and one-shot runs.
type memCatalog struct {
	sync.Mutex
	conf    *Config
	entries map[uuid.UUID]Entry
}

func newMemCatalog(driver, addr string, conf *Config) (Catalog, error) {
	return &memCatalog{conf: conf, entries: make(map[uuid.UUID]Entry)}, nil
}

func (m *memCatalog) Name() string { return "mem" }

func (m *memCatalog) Register(ctx context.Context, e *Entry, force bool) error {
	if m.conf.ReadOnly {
		return ErrReadOnly
	}
	m.Lock()
	defer m.Unlock()
	var old *Entry
	if o, ok := m.entries[e.SdfID]; ok {
		old = &o
	}
	if err := checkRegister(old, e, force); err != nil {
		return err
	}
	n := *e
	if n.Registered.IsZero() {
		n.Registered = time.Now()
	}
	m.entries[e.SdfID] = n
	return nil
}

func (m *memCatalog) Lookup(ctx context.Context, id uuid.UUID) (*Entry, error) {
	m.Lock()
	defer m.Unlock()
	e, ok := m.entries[id]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "%s", id)
	}
	return &e, nil
}

func (m *memCatalog) List(ctx context.Context) ([]*Entry, error) {
	m.Lock()
	entries := make([]*Entry, 0, len(m.entries))
	for _, e := range m.entries {
		e := e
		entries = append(entries, &e)
	}
	m.Unlock()
	sortEntries(entries)
	return entries, nil
}

func (m *memCatalog) Remove(ctx context.Context, id uuid.UUID) error {
	if m.conf.ReadOnly {
		return ErrReadOnly
	}
	m.Lock()
	defer m.Unlock()
	if _, ok := m.entries[id]; !ok {
		return errors.Wrapf(ErrNotFound, "%s", id)
	}
	delete(m.entries, id)
	return nil
}

func (m *memCatalog) Close() error { return nil }
