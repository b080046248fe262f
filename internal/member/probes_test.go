package member

import (
	"bytes"
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netring/internal/metrics"
	"netring/internal/testlog"
	"netring/internal/tracer"
	"netring/internal/wire"
)

func TestProbeTCPSuccessAndFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	host, portStr, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	port := mustAtoi(t, portStr)

	store := metrics.New("test")
	self := Identity{InstanceID: "self", Location: "us1"}
	peer := wire.Member{InstanceID: "peer", Location: "eu1", IP: host, Port: port}

	probeTCP(context.Background(), self, peer, time.Second, store)
	snap := store.Snapshot()
	require.Contains(t, snap.ConnectivityTCP, "peer")
	assert.Equal(t, float64(1), snap.ConnectivityTCP["peer"].Value)

	unreachable := wire.Member{InstanceID: "peer2", Location: "eu1", IP: "127.0.0.1", Port: 1}
	probeTCP(context.Background(), self, unreachable, 200*time.Millisecond, store)
	snap = store.Snapshot()
	assert.Equal(t, float64(0), snap.ConnectivityTCP["peer2"].Value)
}

func mustAtoi(t *testing.T, s string) int {
	t.Helper()
	n, err := strconv.Atoi(s)
	require.NoError(t, err)
	return n
}

func TestProbeHTTPRecordsPerEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	host, portStr, err := net.SplitHostPort(srv.Listener.Addr().String())
	require.NoError(t, err)
	port := mustAtoi(t, portStr)

	store := metrics.New("test")
	self := Identity{InstanceID: "self", Location: "us1"}
	peer := wire.Member{InstanceID: "peer", Location: "eu1", IP: host, Port: port}

	probeHTTP(context.Background(), srv.Client(), self, peer, []string{"/health", "/metrics"}, time.Second, store)

	snap := store.Snapshot()
	healthKey := wire.ProbeKey{TargetInstance: "peer", ProbeType: "http", Endpoint: "/health"}.String()
	metricsKey := wire.ProbeKey{TargetInstance: "peer", ProbeType: "http", Endpoint: "/metrics"}.String()
	require.Contains(t, snap.ConnectivityHTTP, healthKey)
	require.Contains(t, snap.ConnectivityHTTP, metricsKey)
	assert.Equal(t, float64(1), snap.ConnectivityHTTP[healthKey].Value)
	assert.Equal(t, float64(0), snap.ConnectivityHTTP[metricsKey].Value)
}

func TestProbeBandwidthRecordsPositiveMbps(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(BandwidthTestHandler))
	defer srv.Close()

	host, portStr, err := net.SplitHostPort(srv.Listener.Addr().String())
	require.NoError(t, err)
	port := mustAtoi(t, portStr)

	store := metrics.New("test")
	self := Identity{InstanceID: "self", Location: "us1"}
	peer := wire.Member{InstanceID: "peer", Location: "us1", IP: host, Port: port}

	probeBandwidth(context.Background(), srv.Client(), self, peer, 1, 5*time.Second, store)

	snap := store.Snapshot()
	require.Contains(t, snap.BandwidthTests, "peer")
	assert.Greater(t, snap.BandwidthTests["peer"].Mbps, 0.0)
}

func TestBandwidthHandlerRejectsOversizedBody(t *testing.T) {
	oversized := make([]byte, maxBandwidthBody+1024)
	req := httptest.NewRequest(http.MethodPost, "/bandwidth_test", bytes.NewReader(oversized))
	rec := httptest.NewRecorder()
	BandwidthTestHandler(rec, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestProbeTracerouteSkipsAllUnreachableAndRecordsHops(t *testing.T) {
	fake := &tracer.Fake{
		Results: map[string]*tracer.Result{
			"10.0.0.1": {TotalHops: 3, MaxHopLatencyMs: 12.5},
		},
	}
	store := metrics.New("test")
	self := Identity{InstanceID: "self", Location: "us1"}
	peer := wire.Member{InstanceID: "peer", Location: "eu1", IP: "10.0.0.1"}

	gate := newTracerouteGate()
	probeTraceroute(context.Background(), gate, fake, testlog.New(), self, peer, time.Second, store)

	snap := store.Snapshot()
	require.Contains(t, snap.TracerouteTests, "peer")
	assert.Equal(t, 3, snap.TracerouteTests["peer"].TotalHops)

	fake2 := &tracer.Fake{} // no configured result → nil, nil (all unreachable)
	peer2 := wire.Member{InstanceID: "peer2", Location: "eu1", IP: "10.0.0.2"}
	probeTraceroute(context.Background(), gate, fake2, testlog.New(), self, peer2, time.Second, store)
	snap = store.Snapshot()
	assert.NotContains(t, snap.TracerouteTests, "peer2")
}
