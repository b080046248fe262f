package member

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netring/internal/metrics"
	"netring/internal/supervisor"
	"netring/internal/testlog"
)

func TestMemberServerHealthAndMetrics(t *testing.T) {
	self := Identity{InstanceID: "self-1", Location: "us1"}
	store := metrics.New("test")
	peers := NewPeerCache(self.InstanceID)
	sup := supervisor.New(testlog.New())
	reach := newReachabilityTracker(45 * time.Second)

	srv := NewServer(testlog.New(), "127.0.0.1:0", self, store, peers, sup, reach)
	ts := httptest.NewServer(srv.httpServer.Handler)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestMemberServerBandwidthTestEndpoint(t *testing.T) {
	self := Identity{InstanceID: "self-1", Location: "us1"}
	store := metrics.New("test")
	peers := NewPeerCache(self.InstanceID)
	sup := supervisor.New(testlog.New())
	reach := newReachabilityTracker(45 * time.Second)

	srv := NewServer(testlog.New(), "127.0.0.1:0", self, store, peers, sup, reach)
	ts := httptest.NewServer(srv.httpServer.Handler)
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/bandwidth_test", "application/octet-stream", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}
