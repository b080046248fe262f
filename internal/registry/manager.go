// Package registry implements the authoritative membership directory: the
// register/heartbeat/deregister contract, the TTL-based cleanup sweep, and
// expected-location analysis (spec.md §4.1).
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"

	"netring/internal/errs"
	"netring/internal/store"
	"netring/internal/wire"
)

// Manager owns the member directory backed by a store.Store.
type Manager struct {
	store             store.Store
	memberTTL         time.Duration
	cleanupInterval   time.Duration
	deregisteredGrace time.Duration
}

// NewManager constructs a Manager. ttl/cleanupInterval/deregisteredGrace
// are the registry config fields named in spec.md §6.4.
func NewManager(st store.Store, memberTTL, cleanupInterval, deregisteredGrace time.Duration) *Manager {
	return &Manager{
		store:             st,
		memberTTL:         memberTTL,
		cleanupInterval:   cleanupInterval,
		deregisteredGrace: deregisteredGrace,
	}
}

// Register implements the registration contract of spec.md §4.1. When
// req.InstanceID is empty a new id is generated. Re-registration of a
// known id is idempotent with respect to registered_at.
func (m *Manager) Register(ctx context.Context, req wire.RegisterRequest) (wire.Member, error) {
	if req.Location == "" {
		return wire.Member{}, errs.Wrap(errs.ErrInvalidInput, "location is required", nil)
	}
	if req.Port < 1 || req.Port > 65535 {
		return wire.Member{}, errs.Wrap(errs.ErrInvalidInput, "port out of range", nil)
	}
	if net.ParseIP(req.IP) == nil {
		return wire.Member{}, errs.Wrap(errs.ErrInvalidInput, "ip is not parseable", nil)
	}

	instanceID := req.InstanceID
	now := time.Now().Unix()

	var existing *wire.Member
	if instanceID != "" {
		if rec, err := m.get(ctx, instanceID); err == nil {
			existing = &rec
		} else if !isNotFound(err) {
			return wire.Member{}, err
		}
	} else {
		instanceID = uuid.NewString()
	}

	member := wire.Member{
		InstanceID:   instanceID,
		Location:     req.Location,
		IP:           req.IP,
		Port:         req.Port,
		RegisteredAt: now,
		LastSeen:     now,
		Status:       wire.StatusActive,
	}
	if existing != nil {
		member.RegisteredAt = existing.RegisteredAt
	}

	if err := m.put(ctx, member); err != nil {
		return wire.Member{}, err
	}
	return member, nil
}

// Heartbeat implements the heartbeat contract of spec.md §4.1.
func (m *Manager) Heartbeat(ctx context.Context, instanceID string) error {
	rec, err := m.get(ctx, instanceID)
	if err != nil {
		return err
	}
	if rec.Status == wire.StatusDeregistered {
		return errs.Wrap(errs.ErrGone, "member is deregistered", nil)
	}
	rec.LastSeen = time.Now().Unix()
	return m.put(ctx, rec)
}

// Deregister implements the idempotent deregister contract of spec.md
// §4.1: repeated calls preserve the first call's deregistered_at.
func (m *Manager) Deregister(ctx context.Context, instanceID string) error {
	rec, err := m.get(ctx, instanceID)
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return err
	}
	if rec.Status == wire.StatusDeregistered {
		return nil
	}
	rec.Status = wire.StatusDeregistered
	rec.DeregisteredAt = time.Now().Unix()
	return m.put(ctx, rec)
}

// Members returns every active record plus any deregistered within the
// grace window, per spec.md §4.1's /members contract.
func (m *Manager) Members(ctx context.Context) ([]wire.Member, error) {
	raw, err := m.store.Scan(ctx, store.MemberPrefix())
	if err != nil {
		return nil, errs.Wrap(errs.ErrTransient, "scan members", err)
	}
	now := time.Now().Unix()
	out := make([]wire.Member, 0, len(raw))
	for _, v := range raw {
		var rec wire.Member
		if err := json.Unmarshal(v, &rec); err != nil {
			continue
		}
		if rec.Status == wire.StatusDeregistered && now-rec.DeregisteredAt > int64(m.deregisteredGrace.Seconds()) {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// Clear deletes every member and metrics key, for the admin-guarded
// /clear endpoint. It returns the number of keys deleted.
func (m *Manager) Clear(ctx context.Context) (int, error) {
	members, err := m.store.Scan(ctx, store.MemberPrefix())
	if err != nil {
		return 0, errs.Wrap(errs.ErrTransient, "scan members for clear", err)
	}
	metricsKeys, err := m.store.Scan(ctx, store.MetricsPrefix())
	if err != nil {
		return 0, errs.Wrap(errs.ErrTransient, "scan metrics for clear", err)
	}
	count := 0
	for key := range members {
		if err := m.store.Delete(ctx, key); err != nil {
			return count, errs.Wrap(errs.ErrTransient, "delete member key", err)
		}
		count++
	}
	for key := range metricsKeys {
		if err := m.store.Delete(ctx, key); err != nil {
			return count, errs.Wrap(errs.ErrTransient, "delete metrics key", err)
		}
		count++
	}
	return count, nil
}

// CleanupSweep implements the background cleanup task of spec.md §4.1: it
// transitions stale active records to deregistered, and deletes
// deregistered records past their grace window.
func (m *Manager) CleanupSweep(ctx context.Context) error {
	raw, err := m.store.Scan(ctx, store.MemberPrefix())
	if err != nil {
		return errs.Wrap(errs.ErrTransient, "scan members for cleanup", err)
	}
	now := time.Now().Unix()
	for key, v := range raw {
		var rec wire.Member
		if err := json.Unmarshal(v, &rec); err != nil {
			continue
		}
		instanceID, ok := store.IsMemberKey(key)
		if !ok {
			instanceID = rec.InstanceID
		}

		switch rec.Status {
		case wire.StatusActive:
			if now-rec.LastSeen > int64(m.memberTTL.Seconds()) {
				rec.Status = wire.StatusDeregistered
				rec.DeregisteredAt = now
				if err := m.put(ctx, rec); err != nil {
					return err
				}
			}
		case wire.StatusDeregistered:
			if now-rec.DeregisteredAt > int64(m.deregisteredGrace.Seconds()) {
				if err := m.store.Delete(ctx, store.MemberKey(instanceID)); err != nil {
					return errs.Wrap(errs.ErrTransient, "delete expired member", err)
				}
			}
		}
	}
	return nil
}

func (m *Manager) get(ctx context.Context, instanceID string) (wire.Member, error) {
	raw, err := m.store.Get(ctx, store.MemberKey(instanceID))
	if err != nil {
		if err == store.ErrNotFound {
			return wire.Member{}, errs.Wrap(errs.ErrNotFound, fmt.Sprintf("member %s not found", instanceID), nil)
		}
		return wire.Member{}, errs.Wrap(errs.ErrTransient, "get member", err)
	}
	var rec wire.Member
	if err := json.Unmarshal(raw, &rec); err != nil {
		return wire.Member{}, errs.Wrap(errs.ErrTransient, "decode member record", err)
	}
	return rec, nil
}

func (m *Manager) put(ctx context.Context, rec wire.Member) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return errs.Wrap(errs.ErrInvalidInput, "encode member record", err)
	}
	// Active records carry enough slack past member_ttl for at least one
	// cleanup sweep to observe and transition them; deregistered records
	// carry slack past deregistered_grace for the same reason. The sweep's
	// own Delete call is the normal removal path — store TTL is only a
	// backstop if the sweep task itself were to stop running.
	ttl := m.memberTTL + m.cleanupInterval
	if rec.Status == wire.StatusDeregistered {
		ttl = m.deregisteredGrace + m.cleanupInterval
	}
	if err := m.store.Set(ctx, store.MemberKey(rec.InstanceID), data, ttl); err != nil {
		return errs.Wrap(errs.ErrTransient, "persist member", err)
	}
	return nil
}

func isNotFound(err error) bool {
	return errors.Is(err, errs.ErrNotFound)
}
