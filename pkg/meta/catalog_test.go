package meta

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SeqStore/pkg/sdf"
)

func testCatalog(t *testing.T, c Catalog) {
	ctx := context.Background()
	defer c.Close()

	m := &sdf.MainIndex{SdfID: uuid.New(), NumberSequences: 3, TotalLength: 30, HasNames: true, Comment: "reads"}
	e := NewEntry(m, "file:///data/a")
	require.NoError(t, c.Register(ctx, e, false))

	got, err := c.Lookup(ctx, m.SdfID)
	require.NoError(t, err)
	assert.Equal(t, "file:///data/a", got.Location)
	assert.Equal(t, int64(3), got.NumberSequences)
	assert.Equal(t, int64(30), got.TotalLength)
	assert.True(t, got.HasNames)
	assert.False(t, got.HasQuality)
	assert.Equal(t, "reads", got.Comment)
	assert.False(t, got.Registered.IsZero())

	// same location is a refresh
	require.NoError(t, c.Register(ctx, e, false))
	moved := *e
	moved.Location = "sftp://host/data/a"
	err = c.Register(ctx, &moved, false)
	assert.True(t, errors.Is(err, ErrExists), "%v", err)
	require.NoError(t, c.Register(ctx, &moved, true))
	got, err = c.Lookup(ctx, m.SdfID)
	require.NoError(t, err)
	assert.Equal(t, moved.Location, got.Location)

	second := &Entry{SdfID: uuid.New(), Location: "/data/b", Registered: got.Registered.Add(time.Second)}
	require.NoError(t, c.Register(ctx, second, false))
	list, err := c.List(ctx)
	require.NoError(t, err)
	var ids []uuid.UUID
	for _, e := range list {
		if e.SdfID == m.SdfID || e.SdfID == second.SdfID {
			ids = append(ids, e.SdfID)
		}
	}
	assert.Equal(t, []uuid.UUID{m.SdfID, second.SdfID}, ids)

	require.NoError(t, c.Remove(ctx, m.SdfID))
	_, err = c.Lookup(ctx, m.SdfID)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.True(t, errors.Is(c.Remove(ctx, m.SdfID), ErrNotFound))
	require.NoError(t, c.Remove(ctx, second.SdfID))
}

func TestMemCatalog(t *testing.T) {
	c, err := NewClient("mem://", &Config{})
	require.NoError(t, err)
	assert.Equal(t, "mem", c.Name())
	testCatalog(t, c)
}

func TestReadOnlyCatalog(t *testing.T) {
	c, err := NewClient("mem://", &Config{ReadOnly: true})
	require.NoError(t, err)
	err = c.Register(context.Background(), &Entry{SdfID: uuid.New()}, false)
	assert.True(t, errors.Is(err, ErrReadOnly))
}

func TestUnknownDriver(t *testing.T) {
	_, err := NewClient("etcd://localhost:2379", &Config{})
	assert.Error(t, err)
}

func TestRedisCatalog(t *testing.T) {
	uri := os.Getenv("REDIS_URL")
	if uri == "" {
		t.Skip("REDIS_URL is not set")
	}
	c, err := NewClient(uri, &Config{Prefix: "seqstore-test:" + uuid.NewString() + ":"})
	require.NoError(t, err)
	assert.Equal(t, "redis", c.Name())
	testCatalog(t, c)
}
