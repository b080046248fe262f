package member

import (
	"context"
	"fmt"
	"net"
	"time"

	"netring/internal/metrics"
	"netring/internal/wire"
)

// probeTCP implements spec.md §4.2's TCP probe: connect to (peer.ip,
// peer.port) bounded by timeout, success iff connect completes.
func probeTCP(ctx context.Context, self Identity, peer wire.Member, timeout time.Duration, store *metrics.MetricsStore) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	addr := fmt.Sprintf("%s:%d", peer.IP, peer.Port)
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	elapsed := time.Since(start)

	value := 0.0
	if err == nil {
		value = 1.0
		conn.Close()
	}

	store.RecordTCP(wire.TCPResult{
		ConnectivityLabels: wire.ConnectivityLabels{
			SourceLocation: self.Location,
			SourceInstance: self.InstanceID,
			TargetLocation: peer.Location,
			TargetInstance: peer.InstanceID,
			TargetIP:       peer.IP,
		},
		Value:      value,
		DurationMs: float64(elapsed.Microseconds()) / 1000,
		Timestamp:  time.Now().Unix(),
	})
}

// Identity is the member's own location and instance id, used to label
// outbound probe results.
type Identity struct {
	InstanceID string
	Location   string
}
