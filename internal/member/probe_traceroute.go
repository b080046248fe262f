package member

import (
	"context"
	"log/slog"
	"time"

	"netring/internal/metrics"
	"netring/internal/tracer"
	"netring/internal/wire"
)

// tracerouteGate serializes traceroute invocations to one at a time per
// member, per spec.md §5: "one traceroute at a time per member (serialized
// by a semaphore of size 1) to bound network and kernel resources."
type tracerouteGate struct {
	sem chan struct{}
}

func newTracerouteGate() *tracerouteGate {
	return &tracerouteGate{sem: make(chan struct{}, 1)}
}

// probeTraceroute implements spec.md §4.2's traceroute probe. A nil
// result (all hops unreachable) is discarded without a store write,
// matching the TestSummarizeAllUnreachableIsDiscarded contract in
// internal/tracer.
func probeTraceroute(ctx context.Context, gate *tracerouteGate, t tracer.Tracer, log *slog.Logger, self Identity, peer wire.Member, timeout time.Duration, store *metrics.MetricsStore) {
	select {
	case gate.sem <- struct{}{}:
	case <-ctx.Done():
		return
	}
	defer func() { <-gate.sem }()

	result, err := t.Trace(ctx, peer.IP, timeout)
	if err != nil {
		log.Warn("traceroute probe failed", "target", peer.InstanceID, "error", err)
		return
	}
	if result == nil {
		return
	}

	store.RecordTraceroute(wire.TracerouteResult{
		SourceLocation:  self.Location,
		TargetLocation:  peer.Location,
		TargetInstance:  peer.InstanceID,
		TotalHops:       result.TotalHops,
		MaxHopLatencyMs: result.MaxHopLatencyMs,
		Timestamp:       time.Now().Unix(),
	})
}
