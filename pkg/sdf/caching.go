// pkg/sdf/caching.go

package sdf

import "sync"

// CacheConfig sizes a CachingReader.
type CacheConfig struct {
	CacheSize int64 // in MiB, shared by all value kinds
}

// CachingReader keeps recently read names, suffixes, sequences and quality
// values of an inner reader in memory. Cached byte values are copied on the
// way out so callers never alias the cache. It is safe for concurrent use:
// each cache has its own lock and calls into the inner reader are serialized.
type CachingReader struct {
	inner SequencesReader
	mu    sync.Mutex

	names    *memCache[string]
	suffixes *memCache[string]
	data     *memCache[[]byte]
	quality  *memCache[[]byte]

	nameFlight    flight[string]
	suffixFlight  flight[string]
	dataFlight    flight[[]byte]
	qualityFlight flight[[]byte]
}

func stringSize(s string) int64 { return int64(len(s)) }
func bytesSize(b []byte) int64  { return int64(cap(b)) }

// NewCachingReader wraps inner. Half of the budget goes to sequence data, a
// quarter to quality and an eighth each to names and suffixes.
func NewCachingReader(inner SequencesReader, conf *CacheConfig) *CachingReader {
	capacity := conf.CacheSize << 20
	return &CachingReader{
		inner:    inner,
		names:    newMemCache(capacity/8, stringSize),
		suffixes: newMemCache(capacity/8, stringSize),
		data:     newMemCache(capacity/2, bytesSize),
		quality:  newMemCache(capacity/4, bytesSize),
	}
}

// Inner returns the wrapped reader.
func (c *CachingReader) Inner() SequencesReader { return c.inner }

// Purge drops every cached value.
func (c *CachingReader) Purge() {
	c.names.purge()
	c.suffixes.purge()
	c.data.purge()
	c.quality.purge()
}

// Stats returns the number of cached values and the bytes charged for them.
func (c *CachingReader) Stats() (int64, int64) {
	var items, used int64
	add := func(n, u int64) {
		items += n
		used += u
	}
	add(c.names.stats())
	add(c.suffixes.stats())
	add(c.data.stats())
	add(c.quality.stats())
	return items, used
}

func cached[V any](c *CachingReader, m *memCache[V], f *flight[V], id int64, load func(int64) (V, error)) (V, error) {
	if v, ok := m.load(id); ok {
		return v, nil
	}
	return f.Execute(id, func() (V, error) {
		if v, ok := m.load(id); ok {
			return v, nil
		}
		c.mu.Lock()
		v, err := load(id)
		c.mu.Unlock()
		if err == nil {
			m.cache(id, v)
		}
		return v, err
	})
}

func (c *CachingReader) sequence(id int64) ([]byte, error) {
	return cached(c, c.data, &c.dataFlight, id, c.inner.Read)
}

func (c *CachingReader) qualities(id int64) ([]byte, error) {
	if !c.inner.HasQuality() {
		return nil, ErrNoQuality
	}
	return cached(c, c.quality, &c.qualityFlight, id, c.inner.ReadQuality)
}

func (c *CachingReader) Name(id int64) (string, error) {
	return cached(c, c.names, &c.nameFlight, id, c.inner.Name)
}

func (c *CachingReader) NameSuffix(id int64) (string, error) {
	return cached(c, c.suffixes, &c.suffixFlight, id, c.inner.NameSuffix)
}

func (c *CachingReader) Read(id int64) ([]byte, error) {
	b, err := c.sequence(id)
	if err != nil {
		return nil, err
	}
	return clone(b), nil
}

// clone copies b; an empty value stays non-nil like the inner readers return it.
func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

func copyInto(id int64, src, dst []byte) (int, error) {
	if err := checkDest(id, dst, int64(len(src))); err != nil {
		return 0, err
	}
	return copy(dst, src), nil
}

func copyRange(id int64, src, dst []byte, start, length int64) (int, error) {
	if err := checkSubRange(id, int64(len(src)), start, length); err != nil {
		return 0, err
	}
	if err := checkDest(id, dst, length); err != nil {
		return 0, err
	}
	return copy(dst, src[start:start+length]), nil
}

func (c *CachingReader) ReadInto(id int64, dst []byte) (int, error) {
	b, err := c.sequence(id)
	if err != nil {
		return 0, err
	}
	return copyInto(id, b, dst)
}

func (c *CachingReader) ReadRange(id int64, dst []byte, start, length int64) (int, error) {
	b, err := c.sequence(id)
	if err != nil {
		return 0, err
	}
	return copyRange(id, b, dst, start, length)
}

func (c *CachingReader) ReadQuality(id int64) ([]byte, error) {
	b, err := c.qualities(id)
	if err != nil {
		return nil, err
	}
	return clone(b), nil
}

func (c *CachingReader) ReadQualityInto(id int64, dst []byte) (int, error) {
	b, err := c.qualities(id)
	if err != nil {
		return 0, err
	}
	return copyInto(id, b, dst)
}

func (c *CachingReader) ReadQualityRange(id int64, dst []byte, start, length int64) (int, error) {
	b, err := c.qualities(id)
	if err != nil {
		return 0, err
	}
	return copyRange(id, b, dst, start, length)
}

func (c *CachingReader) Length(id int64) (int64, error) {
	if b, ok := c.data.load(id); ok {
		return int64(len(b)), nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inner.Length(id)
}

func (c *CachingReader) NumberSequences() int64 { return c.inner.NumberSequences() }
func (c *CachingReader) HasQuality() bool       { return c.inner.HasQuality() }
func (c *CachingReader) HasNames() bool         { return c.inner.HasNames() }
func (c *CachingReader) Identity() Identity     { return c.inner.Identity() }

func (c *CachingReader) SequenceDataChecksum(id int64) (byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inner.SequenceDataChecksum(id)
}

func (c *CachingReader) LengthBetween(start, end int64) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inner.LengthBetween(start, end)
}

func (c *CachingReader) SequenceLengths(start, end int64) ([]int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inner.SequenceLengths(start, end)
}

// Close drops the caches and closes the inner reader.
func (c *CachingReader) Close() error {
	c.Purge()
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inner.Close()
}
