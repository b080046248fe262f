package member

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"netring/internal/config"
	"netring/internal/errs"
	"netring/internal/metrics"
	"netring/internal/supervisor"
	"netring/internal/tracer"
	"netring/internal/wire"
)

// Member wires the seven supervised background tasks (spec.md §4.2) around
// a registry client, peer cache, scheduler, and metrics store.
type Member struct {
	log    *slog.Logger
	cfg    config.MemberConfig
	self   Identity

	registry *RegistryClient
	store    *metrics.MetricsStore
	peers    *PeerCache
	sched    *Scheduler
	sup      *supervisor.Supervisor
	tracer   tracer.Tracer
	gate     *tracerouteGate
	reach    *reachabilityTracker
	rateLog  *rateLimitedLogger

	probeClient *http.Client
	httpServer  *Server

	reregisterCh chan struct{}
}

// New constructs a Member. t is the Tracer implementation to use for
// traceroute probes (the real tracer.Exec in production, tracer.Fake in
// tests).
func New(log *slog.Logger, cfg config.MemberConfig, instanceID string, t tracer.Tracer, version string) *Member {
	self := Identity{InstanceID: instanceID, Location: cfg.Location}

	transport := &http.Transport{
		MaxConnsPerHost:     5,
		MaxIdleConnsPerHost: 5,
		IdleConnTimeout:     30 * time.Second,
	}

	m := &Member{
		log:         log,
		cfg:         cfg,
		self:        self,
		registry:    NewRegistryClient(cfg.Registry.URL),
		store:       metrics.New(version),
		peers:       NewPeerCache(instanceID),
		sched:       NewScheduler(),
		sup:         supervisor.New(log),
		tracer:      t,
		gate:        newTracerouteGate(),
		reach:       newReachabilityTracker(cfg.Intervals.Heartbeat),
		rateLog:     newRateLimitedLogger(log, 60*time.Second),
		probeClient: &http.Client{Transport: transport},
		reregisterCh: make(chan struct{}, 1),
	}

	addr := net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port))
	m.httpServer = NewServer(log, addr, self, m.store, m.peers, m.sup, m.reach)
	return m
}

// Run starts every supervised task and the local HTTP server, blocking
// until ctx is cancelled, then performs the shutdown sequence of spec.md
// §5: best-effort deregister (3s), cancel tasks, drain connections.
func (m *Member) Run(ctx context.Context) error {
	m.sup.Start(ctx)

	m.sup.Go("registration_maintainer", m.registrationMaintainer)
	m.sup.Go("heartbeat", m.heartbeatTask)
	m.sup.Go("peer_poll", m.peerPollTask)
	m.sup.Go("connectivity_probe", m.connectivityProbeTask)
	m.sup.Go("bandwidth_probe", m.bandwidthProbeTask)
	m.sup.Go("traceroute_probe", m.tracerouteProbeTask)
	m.sup.Go("metrics_push", m.metricsPushTask)

	errCh := make(chan error, 1)
	go func() {
		m.log.Info("member listening", "addr", m.httpServer.httpServer.Addr, "instance_id", m.self.InstanceID)
		if err := m.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			m.log.Error("member http server error", "error", err)
		}
	}

	m.shutdown()
	return nil
}

func (m *Member) shutdown() {
	deregisterCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := m.registry.Deregister(deregisterCtx, m.self.InstanceID); err != nil {
		m.log.Warn("best-effort deregister failed", "error", err)
	}

	m.sup.Stop()

	if err := m.httpServer.Shutdown(3 * time.Second); err != nil {
		m.log.Warn("member http server shutdown did not complete cleanly", "error", err)
	}
	m.registry.Close()
	m.probeClient.CloseIdleConnections()
}

// registrationMaintainer is event-driven per spec.md §4.2: it registers
// once at startup, then blocks until the heartbeat task signals that the
// registry returned Gone/NotFound, at which point it returns; the
// supervisor immediately re-invokes the task body, which re-registers.
func (m *Member) registrationMaintainer(ctx context.Context) error {
	if err := m.register(ctx); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-m.reregisterCh:
		return nil
	}
}

func (m *Member) register(ctx context.Context) error {
	ip := m.cfg.HostIP
	resp, err := m.registry.Register(ctx, wire.RegisterRequest{
		InstanceID: m.self.InstanceID,
		Location:   m.cfg.Location,
		IP:         ip,
		Port:       m.cfg.Server.Port,
	})
	if err != nil {
		return errs.Wrap(errs.ErrTransient, "register with registry", err)
	}
	m.reach.markSuccess()
	m.log.Info("registered with registry", "instance_id", resp.InstanceID)
	return nil
}

func (m *Member) heartbeatTask(ctx context.Context) error {
	ticker := time.NewTicker(m.cfg.Intervals.Heartbeat)
	defer ticker.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-ticker.C:
	}

	status, err := m.registry.Heartbeat(ctx, m.self.InstanceID)
	if err != nil {
		m.rateLog.warn("heartbeat", "heartbeat failed", "error", err)
		return nil
	}
	switch status {
	case HeartbeatOK:
		m.reach.markSuccess()
	case HeartbeatGoneOrUnknown:
		m.triggerReregister()
	}
	return nil
}

func (m *Member) triggerReregister() {
	select {
	case m.reregisterCh <- struct{}{}:
	default:
	}
}

func (m *Member) peerPollTask(ctx context.Context) error {
	ticker := time.NewTicker(m.cfg.Intervals.Poll)
	defer ticker.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-ticker.C:
	}

	members, err := m.registry.Poll(ctx)
	if err != nil {
		m.rateLog.warn("poll", "peer poll failed", "error", err)
		return nil
	}
	m.reach.markSuccess()

	evicted := m.peers.Refresh(members)
	for _, id := range evicted {
		m.store.EvictPeer(id)
		m.sched.Forget(id)
	}
	m.store.SetPeers(m.peers.AsMap())
	return nil
}

func (m *Member) connectivityProbeTask(ctx context.Context) error {
	ticker := time.NewTicker(m.cfg.Intervals.Check)
	defer ticker.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-ticker.C:
	}

	now := time.Now()
	for _, peer := range m.peers.Snapshot() {
		if !m.sched.TryStart(peer.InstanceID, "tcp", now) {
			continue
		}
		go func(p wire.Member) {
			defer m.sched.Finish(p.InstanceID, "tcp", time.Now(), m.cfg.Intervals.Check, 0)
			probeTCP(ctx, m.self, p, m.cfg.Checks.TCPTimeout, m.store)
		}(peer)

		if !m.sched.TryStart(peer.InstanceID, "http", now) {
			continue
		}
		go func(p wire.Member) {
			defer m.sched.Finish(p.InstanceID, "http", time.Now(), m.cfg.Intervals.Check, 0)
			probeHTTP(ctx, m.probeClient, m.self, p, m.cfg.Checks.HTTPEndpoints, m.cfg.Checks.HTTPTimeout, m.store)
		}(peer)
	}
	return nil
}

func (m *Member) bandwidthProbeTask(ctx context.Context) error {
	ticker := time.NewTicker(m.cfg.Intervals.BandwidthTest)
	defer ticker.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-ticker.C:
	}

	now := time.Now()
	for _, peer := range m.peers.Snapshot() {
		if !m.sched.TryStart(peer.InstanceID, "bandwidth", now) {
			continue
		}
		go func(p wire.Member) {
			defer m.sched.Finish(p.InstanceID, "bandwidth", time.Now(), m.cfg.Intervals.BandwidthTest, 0.1)
			timeout := m.cfg.Intervals.BandwidthTest
			if timeout > 30*time.Second {
				timeout = 30 * time.Second
			}
			probeBandwidth(ctx, m.probeClient, m.self, p, m.cfg.Checks.BandwidthTestSizeMB, timeout, m.store)
		}(peer)
	}
	return nil
}

func (m *Member) tracerouteProbeTask(ctx context.Context) error {
	ticker := time.NewTicker(m.cfg.Intervals.Traceroute)
	defer ticker.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-ticker.C:
	}

	now := time.Now()
	for _, peer := range m.peers.Snapshot() {
		if !m.sched.TryStart(peer.InstanceID, "traceroute", now) {
			continue
		}
		go func(p wire.Member) {
			defer m.sched.Finish(p.InstanceID, "traceroute", time.Now(), m.cfg.Intervals.Traceroute, 0)
			probeTraceroute(ctx, m.gate, m.tracer, m.log, m.self, p, m.cfg.Checks.TracerouteTimeout, m.store)
		}(peer)
	}
	return nil
}

func (m *Member) metricsPushTask(ctx context.Context) error {
	ticker := time.NewTicker(m.cfg.Intervals.MetricsPush)
	defer ticker.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-ticker.C:
	}

	snap := m.store.Snapshot()
	if err := m.registry.PushMetrics(ctx, m.self.InstanceID, snap); err != nil {
		m.rateLog.warn("push", "metrics push failed", "error", err)
	}
	return nil
}

