package member

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"netring/internal/metrics"
	"netring/internal/wire"
)

const maxBandwidthBody = 16 * 1024 * 1024 // spec.md §4.2 default max_bandwidth_body

// probeBandwidth implements the client side of spec.md §4.2's bandwidth
// probe: transfer sizeMB MiB of random bytes to peer's /bandwidth_test and
// compute mbps from wall-clock elapsed time. A transport error, timeout,
// or non-2xx leaves the last-known sample untouched rather than recording
// a zero.
func probeBandwidth(ctx context.Context, client *http.Client, self Identity, peer wire.Member, sizeMB int, timeout time.Duration, store *metrics.MetricsStore) {
	payload := make([]byte, sizeMB*1024*1024)
	if _, err := rand.Read(payload); err != nil {
		return
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	url := fmt.Sprintf("http://%s:%d/bandwidth_test", peer.IP, peer.Port)
	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return
	}
	req.ContentLength = int64(len(payload))

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	elapsed := time.Since(start)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return
	}
	if elapsed <= 0 {
		return
	}

	mbps := (float64(len(payload)) * 8) / (elapsed.Seconds() * 1_000_000)
	store.RecordBandwidth(wire.BandwidthResult{
		SourceLocation: self.Location,
		TargetLocation: peer.Location,
		TargetInstance: peer.InstanceID,
		TargetIP:       peer.IP,
		Mbps:           mbps,
		Timestamp:      time.Now().Unix(),
	})
}

// BandwidthTestHandler implements the server side of spec.md §4.2: drain
// the request body up to maxBandwidthBody, return {received_bytes,
// elapsed_ms}; reject larger bodies with 413.
func BandwidthTestHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	limited := io.LimitReader(r.Body, maxBandwidthBody+1)
	n, err := io.Copy(io.Discard, limited)
	if err != nil {
		http.Error(w, "failed to read body", http.StatusInternalServerError)
		return
	}
	if n > maxBandwidthBody {
		http.Error(w, "body too large", http.StatusRequestEntityTooLarge)
		return
	}

	resp := wire.BandwidthTestResponse{
		ReceivedBytes: n,
		ElapsedMs:     time.Since(start).Milliseconds(),
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
