package registry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netring/internal/errs"
	"netring/internal/store"
	"netring/internal/wire"
)

func newTestManager() *Manager {
	return NewManager(store.NewMemory(), 300*time.Second, 60*time.Second, 3600*time.Second)
}

func TestRegisterGeneratesInstanceID(t *testing.T) {
	m := newTestManager()
	rec, err := m.Register(context.Background(), wire.RegisterRequest{Location: "us1", IP: "10.0.0.1", Port: 9000})
	require.NoError(t, err)
	assert.NotEmpty(t, rec.InstanceID)
	assert.Equal(t, wire.StatusActive, rec.Status)
}

func TestRegisterRejectsInvalidInput(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()

	_, err := m.Register(ctx, wire.RegisterRequest{Location: "", IP: "10.0.0.1", Port: 9000})
	assert.ErrorIs(t, err, errs.ErrInvalidInput)

	_, err = m.Register(ctx, wire.RegisterRequest{Location: "us1", IP: "10.0.0.1", Port: 70000})
	assert.ErrorIs(t, err, errs.ErrInvalidInput)

	_, err = m.Register(ctx, wire.RegisterRequest{Location: "us1", IP: "not-an-ip", Port: 9000})
	assert.ErrorIs(t, err, errs.ErrInvalidInput)
}

func TestReregisterPreservesRegisteredAt(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()

	first, err := m.Register(ctx, wire.RegisterRequest{Location: "us1", IP: "10.0.0.1", Port: 9000})
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)
	second, err := m.Register(ctx, wire.RegisterRequest{InstanceID: first.InstanceID, Location: "us1", IP: "10.0.0.2", Port: 9001})
	require.NoError(t, err)

	assert.Equal(t, first.InstanceID, second.InstanceID)
	assert.Equal(t, first.RegisteredAt, second.RegisteredAt)
	assert.Equal(t, "10.0.0.2", second.IP)
}

func TestHeartbeatContract(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()

	err := m.Heartbeat(ctx, "unknown")
	assert.ErrorIs(t, err, errs.ErrNotFound)

	rec, err := m.Register(ctx, wire.RegisterRequest{Location: "us1", IP: "10.0.0.1", Port: 9000})
	require.NoError(t, err)

	require.NoError(t, m.Heartbeat(ctx, rec.InstanceID))

	require.NoError(t, m.Deregister(ctx, rec.InstanceID))
	err = m.Heartbeat(ctx, rec.InstanceID)
	assert.ErrorIs(t, err, errs.ErrGone)
}

func TestDeregisterIsIdempotent(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()

	rec, err := m.Register(ctx, wire.RegisterRequest{Location: "us1", IP: "10.0.0.1", Port: 9000})
	require.NoError(t, err)

	require.NoError(t, m.Deregister(ctx, rec.InstanceID))
	members, err := m.Members(ctx)
	require.NoError(t, err)
	require.Len(t, members, 1)
	firstDeregAt := members[0].DeregisteredAt

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, m.Deregister(ctx, rec.InstanceID))
	members, err = m.Members(ctx)
	require.NoError(t, err)
	assert.Equal(t, firstDeregAt, members[0].DeregisteredAt)
}

func TestDeregisterUnknownIsNoError(t *testing.T) {
	m := newTestManager()
	assert.NoError(t, m.Deregister(context.Background(), "never-registered"))
}

func TestCleanupSweepExpiresAndPurges(t *testing.T) {
	// Timestamps are whole Unix seconds and expiry needs a difference
	// strictly above 1s, so each sleep exceeds 2s; the 2s cleanup interval
	// keeps the store TTL backstop (ttl + cleanup = 3s) from firing first.
	m := NewManager(store.NewMemory(), 1*time.Second, 2*time.Second, 1*time.Second)
	ctx := context.Background()

	rec, err := m.Register(ctx, wire.RegisterRequest{Location: "us1", IP: "10.0.0.1", Port: 9000})
	require.NoError(t, err)

	time.Sleep(2100 * time.Millisecond)
	require.NoError(t, m.CleanupSweep(ctx))

	members, err := m.Members(ctx)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, wire.StatusDeregistered, members[0].Status)
	assert.Equal(t, rec.InstanceID, members[0].InstanceID)

	time.Sleep(2100 * time.Millisecond)
	require.NoError(t, m.CleanupSweep(ctx))

	members, err = m.Members(ctx)
	require.NoError(t, err)
	assert.Empty(t, members)
}
