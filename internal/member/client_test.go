package member

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netring/internal/wire"
)

func TestRegistryClientRegisterAndPoll(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/register", func(w http.ResponseWriter, r *http.Request) {
		var req wire.RegisterRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		json.NewEncoder(w).Encode(wire.RegisterResponse{InstanceID: "gen-id", Status: "registered"})
	})
	mux.HandleFunc("/members", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(wire.MembersResponse{Members: []wire.Member{{InstanceID: "peer-1", Status: wire.StatusActive}}})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := NewRegistryClient(srv.URL)
	defer client.Close()

	resp, err := client.Register(context.Background(), wire.RegisterRequest{Location: "us1", IP: "10.0.0.1", Port: 9000})
	require.NoError(t, err)
	assert.Equal(t, "gen-id", resp.InstanceID)

	members, err := client.Poll(context.Background())
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, "peer-1", members[0].InstanceID)
}

func TestRegistryClientHeartbeatStatuses(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/heartbeat", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGone)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := NewRegistryClient(srv.URL)
	defer client.Close()

	status, err := client.Heartbeat(context.Background(), "some-id")
	require.NoError(t, err)
	assert.Equal(t, HeartbeatGoneOrUnknown, status)
}
