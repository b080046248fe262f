package member

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"netring/internal/metrics"
	"netring/internal/wire"
)

// probeHTTP implements spec.md §4.2's HTTP probe: GET every configured
// endpoint against peer, success iff status ∈ [200, 400). Each endpoint is
// recorded independently; aggregation into a per-target success rate is
// the dashboard's concern, not this probe's.
func probeHTTP(ctx context.Context, client *http.Client, self Identity, peer wire.Member, endpoints []string, timeout time.Duration, store *metrics.MetricsStore) {
	labels := wire.ConnectivityLabels{
		SourceLocation: self.Location,
		SourceInstance: self.InstanceID,
		TargetLocation: peer.Location,
		TargetInstance: peer.InstanceID,
		TargetIP:       peer.IP,
	}

	for _, endpoint := range endpoints {
		reqCtx, cancel := context.WithTimeout(ctx, timeout)
		url := fmt.Sprintf("http://%s:%d%s", peer.IP, peer.Port, endpoint)

		start := time.Now()
		value := 0.0
		req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
		if err == nil {
			resp, doErr := client.Do(req)
			if doErr == nil {
				if resp.StatusCode >= 200 && resp.StatusCode < 400 {
					value = 1.0
				}
				resp.Body.Close()
			}
		}
		elapsed := time.Since(start)
		cancel()

		store.RecordHTTP(wire.HTTPResult{
			ConnectivityLabels: labels,
			Endpoint:           endpoint,
			Value:              value,
			DurationMs:         float64(elapsed.Microseconds()) / 1000,
			Timestamp:          time.Now().Unix(),
		})
	}
}
