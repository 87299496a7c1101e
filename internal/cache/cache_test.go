package cache

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMemory() *Memory {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewMemory(time.Minute, logger)
}

func TestMemory_GetSet(t *testing.T) {
	c := newTestMemory()
	ctx := context.Background()

	_, ok := c.Get(ctx, "properties:abc")
	assert.False(t, ok)

	c.Set(ctx, "properties:abc", []byte(`[{"id":1}]`))

	v, ok := c.Get(ctx, "properties:abc")
	require.True(t, ok)
	assert.JSONEq(t, `[{"id":1}]`, string(v))
}

func TestMemory_InvalidateProperties(t *testing.T) {
	c := newTestMemory()
	ctx := context.Background()

	c.Set(ctx, "properties:a", []byte("a"))
	c.Set(ctx, "properties:b", []byte("b"))

	require.NoError(t, c.InvalidateProperties(ctx))

	_, ok := c.Get(ctx, "properties:a")
	assert.False(t, ok)
	_, ok = c.Get(ctx, "properties:b")
	assert.False(t, ok)

	// the cache keeps working after invalidation
	c.Set(ctx, "properties:a", []byte("a2"))
	v, ok := c.Get(ctx, "properties:a")
	require.True(t, ok)
	assert.Equal(t, "a2", string(v))
}

func TestVersionedKey(t *testing.T) {
	assert.Equal(t, "search:v0:properties:abc", versionedKey(0, "properties:abc"))
	assert.NotEqual(t, versionedKey(1, "k"), versionedKey(2, "k"))
}

func TestInterfaces(t *testing.T) {
	var _ Cache = (*Memory)(nil)
	var _ Cache = (*Redis)(nil)
}
