package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryGetSetDelete(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, err := m.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, m.Set(ctx, "k", []byte("v"), 0))
	val, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), val)

	require.NoError(t, m.Delete(ctx, "k"))
	_, err = m.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryTTLExpiry(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Set(ctx, "k", []byte("v"), time.Millisecond))
	time.Sleep(5 * time.Millisecond)

	_, err := m.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryScanPrefix(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Set(ctx, "netring:member:a", []byte("1"), 0))
	require.NoError(t, m.Set(ctx, "netring:member:b", []byte("2"), 0))
	require.NoError(t, m.Set(ctx, "netring:metrics:a", []byte("3"), 0))

	got, err := m.Scan(ctx, MemberPrefix())
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, []byte("1"), got["netring:member:a"])
}

func TestMemoryScanExcludesExpired(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Set(ctx, "netring:member:a", []byte("1"), time.Millisecond))
	require.NoError(t, m.Set(ctx, "netring:member:b", []byte("2"), 0))
	time.Sleep(5 * time.Millisecond)

	got, err := m.Scan(ctx, MemberPrefix())
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Contains(t, got, "netring:member:b")
}

func TestMemorySetMany(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	err := m.SetMany(ctx, map[string][]byte{
		"a": []byte("1"),
		"b": []byte("2"),
	}, 0)
	require.NoError(t, err)

	va, err := m.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), va)
}
