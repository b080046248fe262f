package registry

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"netring/internal/config"
	"netring/internal/errs"
	"netring/internal/supervisor"
	"netring/internal/wire"
)

// adminHeader guards /clear. Per spec.md's stated non-goal of control-plane
// authentication, this is a convenience guard against accidental calls,
// not a security boundary.
const adminHeader = "X-Netring-Admin"

// Server wires the registry's HTTP surface to a Manager, Analyzer and
// Supervisor (spec.md §6.1).
type Server struct {
	log        *slog.Logger
	manager    *Manager
	analyzer   *Analyzer
	supervisor *supervisor.Supervisor
	cfg        config.ExpectedMembersConfig
	startedAt  time.Time
	httpServer *http.Server

	lastStoreReadFailure time.Time
}

// NewServer builds the registry's gorilla/mux router and http.Server.
func NewServer(log *slog.Logger, addr string, manager *Manager, analyzer *Analyzer, sup *supervisor.Supervisor, cfg config.ExpectedMembersConfig) *Server {
	s := &Server{log: log, manager: manager, analyzer: analyzer, supervisor: sup, cfg: cfg, startedAt: time.Now()}
	router := mux.NewRouter()
	router.HandleFunc("/register", s.handleRegister).Methods(http.MethodPost)
	router.HandleFunc("/heartbeat", s.handleHeartbeat).Methods(http.MethodPost)
	router.HandleFunc("/deregister", s.handleDeregister).Methods(http.MethodPost)
	router.HandleFunc("/members", s.handleMembers).Methods(http.MethodGet)
	router.HandleFunc("/members_with_analysis", s.handleMembersWithAnalysis).Methods(http.MethodGet)
	router.HandleFunc("/report_metrics", s.handleReportMetrics).Methods(http.MethodPost)
	router.HandleFunc("/metrics", s.handleMetrics).Methods(http.MethodGet)
	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/clear", s.handleClear).Methods(http.MethodPost)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: router,
	}
	return s
}

// ListenAndServe blocks serving the registry HTTP API.
func (s *Server) ListenAndServe() error {
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully drains in-flight requests within deadline, per
// spec.md §5: "Registries complete in-flight requests within 10 s."
func (s *Server) Shutdown(deadline time.Duration) error {
	ctx, cancel := timeoutCtx(deadline)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req wire.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "malformed request body", err)
		return
	}
	rec, err := s.manager.Register(r.Context(), req)
	if err != nil {
		respondError(w, errs.HTTPStatus(err), "registration failed", err)
		return
	}
	respondOK(w, wire.RegisterResponse{InstanceID: rec.InstanceID, Status: "registered"})
}

func (s *Server) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	var req wire.InstanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "malformed request body", err)
		return
	}
	if err := s.manager.Heartbeat(r.Context(), req.InstanceID); err != nil {
		respondError(w, errs.HTTPStatus(err), "heartbeat failed", err)
		return
	}
	respondOK(w, wire.StatusResponse{Status: "ok"})
}

func (s *Server) handleDeregister(w http.ResponseWriter, r *http.Request) {
	var req wire.InstanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "malformed request body", err)
		return
	}
	if err := s.manager.Deregister(r.Context(), req.InstanceID); err != nil {
		respondError(w, errs.HTTPStatus(err), "deregister failed", err)
		return
	}
	respondOK(w, wire.StatusResponse{Status: "deregistered"})
}

func (s *Server) handleMembers(w http.ResponseWriter, r *http.Request) {
	members, err := s.manager.Members(r.Context())
	if err != nil {
		s.noteStoreReadFailure()
		respondError(w, errs.HTTPStatus(err), "list members failed", err)
		return
	}
	respondOK(w, wire.MembersResponse{Members: members})
}

func (s *Server) handleMembersWithAnalysis(w http.ResponseWriter, r *http.Request) {
	members, err := s.manager.Members(r.Context())
	if err != nil {
		s.noteStoreReadFailure()
		respondError(w, errs.HTTPStatus(err), "list members failed", err)
		return
	}
	analysis := s.analyzer.Analyze(members, s.cfg.EnableMissingDetection)
	respondOK(w, wire.MembersWithAnalysisResponse{Members: members, MissingAnalysis: analysis})
}

func (s *Server) handleReportMetrics(w http.ResponseWriter, r *http.Request) {
	var req wire.ReportMetricsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "malformed request body", err)
		return
	}
	if err := s.manager.ReportMetrics(r.Context(), req.InstanceID, req.Snapshot); err != nil {
		respondError(w, errs.HTTPStatus(err), "report metrics failed", err)
		return
	}
	respondOK(w, wire.StatusResponse{Status: "ok"})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	metrics, err := s.manager.Metrics(r.Context())
	if err != nil {
		s.noteStoreReadFailure()
		respondError(w, errs.HTTPStatus(err), "read metrics failed", err)
		return
	}
	respondOK(w, wire.MetricsResponse{Metrics: metrics})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	if time.Since(s.lastStoreReadFailure) < time.Minute {
		status = "degraded"
	}
	tasks := make(map[string]wire.TaskHealthView)
	for name, h := range s.supervisor.Health() {
		tasks[name] = wire.TaskHealthView{Alive: h.Alive, LastTick: h.LastTick.Unix(), RestartCount: h.RestartCount}
	}
	respondOK(w, wire.RegistryHealthResponse{
		Status:  status,
		Tasks:   tasks,
		UptimeS: int64(time.Since(s.startedAt).Seconds()),
	})
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get(adminHeader) == "" {
		respondError(w, http.StatusForbidden, "admin header required", nil)
		return
	}
	n, err := s.manager.Clear(r.Context())
	if err != nil {
		respondError(w, errs.HTTPStatus(err), "clear failed", err)
		return
	}
	respondOK(w, wire.ClearResponse{KeysDeleted: n})
}

func (s *Server) noteStoreReadFailure() {
	s.lastStoreReadFailure = time.Now()
}
