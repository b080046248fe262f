package registry

import (
	"context"
	"encoding/json"
	"time"

	"netring/internal/errs"
	"netring/internal/store"
	"netring/internal/wire"
)

// metricsSnapshotTTL sizes the metrics-key TTL (2x push interval,
// per spec.md §4.3); the registry does not know the member's configured
// push interval, so it uses the member poll/push default.
const metricsSnapshotTTL = 2 * 30 * time.Second

// ReportMetrics implements the metrics push contract of spec.md §4.1: it
// rejects unknown or deregistered members and stores the snapshot
// wholesale, last-writer-wins.
func (m *Manager) ReportMetrics(ctx context.Context, instanceID string, snapshot wire.Snapshot) error {
	rec, err := m.get(ctx, instanceID)
	if err != nil {
		return err
	}
	if rec.Status == wire.StatusDeregistered {
		return errs.Wrap(errs.ErrGone, "member is deregistered", nil)
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		return errs.Wrap(errs.ErrInvalidInput, "encode snapshot", err)
	}
	if err := m.store.Set(ctx, store.MetricsKey(instanceID), data, metricsSnapshotTTL); err != nil {
		return errs.Wrap(errs.ErrTransient, "persist snapshot", err)
	}
	return nil
}

// Metrics returns the union of every member's last-pushed snapshot, keyed
// by instance_id, for the /metrics read API.
func (m *Manager) Metrics(ctx context.Context) (map[string]wire.Snapshot, error) {
	raw, err := m.store.Scan(ctx, store.MetricsPrefix())
	if err != nil {
		return nil, errs.Wrap(errs.ErrTransient, "scan snapshots", err)
	}
	out := make(map[string]wire.Snapshot, len(raw))
	for key, v := range raw {
		instanceID, ok := store.IsMetricsKey(key)
		if !ok {
			continue
		}
		var snap wire.Snapshot
		if err := json.Unmarshal(v, &snap); err != nil {
			continue
		}
		out[instanceID] = snap
	}
	return out, nil
}
