package member

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"netring/internal/metrics"
	"netring/internal/supervisor"
	"netring/internal/wire"
)

// Server is the member's own HTTP surface: /health, /metrics,
// /bandwidth_test (spec.md §6.2).
type Server struct {
	log        *slog.Logger
	self       Identity
	metrics    *metrics.MetricsStore
	peers      *PeerCache
	supervisor *supervisor.Supervisor
	reachability *reachabilityTracker
	httpServer *http.Server
}

// NewServer wires the member's gorilla/mux routes.
func NewServer(log *slog.Logger, addr string, self Identity, metricsStore *metrics.MetricsStore, peers *PeerCache, sup *supervisor.Supervisor, reach *reachabilityTracker) *Server {
	s := &Server{
		log:          log,
		self:         self,
		metrics:      metricsStore,
		peers:        peers,
		supervisor:   sup,
		reachability: reach,
	}

	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/metrics", s.handleMetrics).Methods(http.MethodGet)
	r.HandleFunc("/bandwidth_test", BandwidthTestHandler).Methods(http.MethodPost)

	s.httpServer = &http.Server{Addr: addr, Handler: r}
	return s
}

// ListenAndServe blocks serving the member's HTTP surface.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown drains in-flight requests within deadline.
func (s *Server) Shutdown(deadline time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), deadline)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	s.metrics.WriteExposition(w)
}

// handleHealth reports degraded per spec.md §7: "any supervised task has
// restart_count > 0 within the last hour or... registry has been
// unreachable longer than 2 heartbeat intervals."
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	tasks := make(map[string]wire.TaskHealthView, 8)
	restarted := false
	for name, h := range s.supervisor.Health() {
		tasks[name] = wire.TaskHealthView{
			Alive:        h.Alive,
			LastTick:     h.LastTick.Unix(),
			RestartCount: h.RestartCount,
		}
		if h.RestartCount > 0 {
			restarted = true
		}
	}

	status := "healthy"
	if restarted || s.reachability.degraded() {
		status = "degraded"
	}

	resp := wire.MemberHealthResponse{
		Status:       status,
		InstanceID:   s.self.InstanceID,
		Location:     s.self.Location,
		MembersCount: s.peers.Len(),
		Tasks:        tasks,
		Timestamp:    time.Now().Unix(),
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
