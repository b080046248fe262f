package member

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netring/internal/metrics"
	"netring/internal/wire"
)

// TestMutualTCPProbesObserveEachOther covers spec.md §8 scenario S3: two
// members probing each other over TCP should each record connectivity_tcp=1
// toward the other.
func TestMutualTCPProbesObserveEachOther(t *testing.T) {
	lnA, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer lnA.Close()
	go acceptAndDiscard(lnA)

	lnB, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer lnB.Close()
	go acceptAndDiscard(lnB)

	portA := lnA.Addr().(*net.TCPAddr).Port
	portB := lnB.Addr().(*net.TCPAddr).Port

	selfA := Identity{InstanceID: "us1", Location: "us1"}
	selfB := Identity{InstanceID: "eu1", Location: "eu1"}
	peerA := wire.Member{InstanceID: "eu1", Location: "eu1", IP: "127.0.0.1", Port: portB, Status: wire.StatusActive}
	peerB := wire.Member{InstanceID: "us1", Location: "us1", IP: "127.0.0.1", Port: portA, Status: wire.StatusActive}

	storeA := metrics.New("test")
	storeB := metrics.New("test")

	probeTCP(context.Background(), selfA, peerA, time.Second, storeA)
	probeTCP(context.Background(), selfB, peerB, time.Second, storeB)

	snapA := storeA.Snapshot()
	snapB := storeB.Snapshot()

	require.Contains(t, snapA.ConnectivityTCP, "eu1")
	assert.Equal(t, 1.0, snapA.ConnectivityTCP["eu1"].Value)

	require.Contains(t, snapB.ConnectivityTCP, "us1")
	assert.Equal(t, 1.0, snapB.ConnectivityTCP["us1"].Value)
}

func acceptAndDiscard(ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		conn.Close()
	}
}

// TestPeerCacheSurvivesRegistryOutage covers spec.md §8 scenario S5: once
// a member has a populated PeerCache, a registry poll failure must not
// clear it — probing continues from the last-known peer list.
func TestPeerCacheSurvivesRegistryOutage(t *testing.T) {
	cache := NewPeerCache("self-1")
	cache.Refresh([]wire.Member{
		{InstanceID: "us1", Location: "us1", Status: wire.StatusActive},
		{InstanceID: "eu1", Location: "eu1", Status: wire.StatusActive},
	})
	require.Equal(t, 2, cache.Len())

	client := NewRegistryClient("http://127.0.0.1:1")
	defer client.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	_, err := client.Poll(ctx)
	require.Error(t, err)

	assert.Equal(t, 2, cache.Len(), "a failed registry poll must not clear the peer cache")
}
