package daemon

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"git.home.luguber.info/inful/docpub/internal/logfields"
	"git.home.luguber.info/inful/docpub/internal/run"
	"git.home.luguber.info/inful/docpub/internal/version"
)

// HTTPServer exposes the daemon status API and Prometheus metrics.
type HTTPServer struct {
	server *http.Server
	daemon *Daemon
}

// NewHTTPServer creates the status server for the daemon.
func NewHTTPServer(listen string, daemon *Daemon, registry *prometheus.Registry) *HTTPServer {
	mux := http.NewServeMux()
	s := &HTTPServer{daemon: daemon}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/runs", s.handleRuns)
	mux.HandleFunc("POST /api/trigger", s.handleTrigger)
	if registry != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	s.server = &http.Server{
		Addr:              listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Start binds the listen address and serves in the background. Binding
// happens synchronously so startup failures surface immediately.
func (s *HTTPServer) Start() error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return err
	}
	slog.Info("Status API listening", slog.String("addr", s.server.Addr))

	go func() {
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			slog.Error("Status API server failed", logfields.Error(err))
		}
	}()
	return nil
}

// Stop shuts the server down gracefully.
func (s *HTTPServer) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// statusResponse is the payload of GET /api/status.
type statusResponse struct {
	Workflow    string    `json:"workflow"`
	Version     string    `json:"version"`
	StartedAt   time.Time `json:"started_at"`
	UptimeSecs  int64     `json:"uptime_seconds"`
	QueueLength int       `json:"queue_length"`
	ActiveRuns  int       `json:"active_runs"`
}

func (s *HTTPServer) handleStatus(w http.ResponseWriter, _ *http.Request) {
	started := s.daemon.StartTime()
	writeJSON(w, http.StatusOK, statusResponse{
		Workflow:    s.daemon.Workflow().Name,
		Version:     version.Version,
		StartedAt:   started,
		UptimeSecs:  int64(time.Since(started).Seconds()),
		QueueLength: s.daemon.Queue().Length(),
		ActiveRuns:  len(s.daemon.Queue().ActiveRuns()),
	})
}

// runsResponse is the payload of GET /api/runs.
type runsResponse struct {
	Active  []*run.Run      `json:"active"`
	History []*HistoryEntry `json:"history"`
}

func (s *HTTPServer) handleRuns(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, runsResponse{
		Active:  s.daemon.Queue().ActiveRuns(),
		History: s.daemon.Queue().History(),
	})
}

func (s *HTTPServer) handleTrigger(w http.ResponseWriter, r *http.Request) {
	rn, err := s.daemon.Trigger(run.ReasonManual, "")
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
		return
	}
	slog.Info("Manual run triggered via API",
		logfields.RunID(rn.ID),
		slog.String("remote", r.RemoteAddr))
	writeJSON(w, http.StatusAccepted, rn)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode JSON response", logfields.Error(err))
	}
}
