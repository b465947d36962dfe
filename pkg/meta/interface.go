// pkg/meta/interface.go

package meta

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"SeqStore/pkg/sdf"
	"SeqStore/pkg/utils"
)

var logger = utils.GetLogger("seqstore")

var (
	ErrNotFound = errors.New("store is not registered")
	ErrExists   = errors.New("store is registered at another location")
	ErrReadOnly = errors.New("catalog is read-only")
)

// Entry records where a store with a given SDF-ID lives, with a summary of
// its contents taken from the main index.
type Entry struct {
	SdfID           uuid.UUID
	Location        string
	NumberSequences int64
	TotalLength     int64
	HasQuality      bool
	HasNames        bool
	Comment         string `json:",omitempty"`
	Registered      time.Time
}

// NewEntry summarizes a store's main index for registration.
func NewEntry(m *sdf.MainIndex, location string) *Entry {
	return &Entry{
		SdfID:           m.SdfID,
		Location:        location,
		NumberSequences: m.NumberSequences,
		TotalLength:     m.TotalLength,
		HasQuality:      m.HasQuality,
		HasNames:        m.HasNames,
		Comment:         m.Comment,
	}
}

// Catalog is a provenance registry mapping SDF-IDs to store locations.
type Catalog interface {
	// Name of the catalog driver.
	Name() string
	// Register records e. Registering the same id again at the same location
	// refreshes the summary; a different location fails with ErrExists unless
	// force is set.
	Register(ctx context.Context, e *Entry, force bool) error
	// Lookup returns the entry of id, or ErrNotFound.
	Lookup(ctx context.Context, id uuid.UUID) (*Entry, error)
	// List returns every entry, oldest registration first.
	List(ctx context.Context) ([]*Entry, error)
	// Remove drops id, or returns ErrNotFound.
	Remove(ctx context.Context, id uuid.UUID) error
	Close() error
}

type Creator func(driver, addr string, conf *Config) (Catalog, error)

var drivers = make(map[string]Creator)

func Register(name string, register Creator) {
	drivers[name] = register
}

// NewClient connects to the catalog at uri. A bare address means redis.
func NewClient(uri string, conf *Config) (Catalog, error) {
	if !strings.Contains(uri, "://") {
		uri = "redis://" + uri
	}
	p := strings.Index(uri, "://")
	driver := uri[:p]
	f, ok := drivers[driver]
	if !ok {
		return nil, errors.Errorf("invalid catalog driver: %s", driver)
	}
	logger.Debugf("connecting to %s catalog", driver)
	return f(driver, uri[p+3:], conf)
}

// checkRegister decides whether e may replace old.
func checkRegister(old, e *Entry, force bool) error {
	if old != nil && old.Location != e.Location && !force {
		return errors.Wrapf(ErrExists, "%s at %s", e.SdfID, old.Location)
	}
	if old != nil && old.Location != e.Location {
		logger.Warnf("store %s moves from %s to %s", e.SdfID, old.Location, e.Location)
	}
	return nil
}

func sortEntries(entries []*Entry) {
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.Registered.Equal(b.Registered) {
			return a.Registered.Before(b.Registered)
		}
		return a.SdfID.String() < b.SdfID.String()
	})
}
