// Package api serves the simulator's HTTP surface: health and readiness,
// the event log, scene state, operator commands, metrics and the live
// websocket streams.
package api

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/AaronLay10/Hellevator/internal/ctxlog"
	"github.com/AaronLay10/Hellevator/internal/events"
	"github.com/AaronLay10/Hellevator/internal/scene"
	"github.com/AaronLay10/Hellevator/internal/topology"
)

// DefaultSubmitTimeout bounds how long an operator request waits for the
// tick that applies it.
const DefaultSubmitTimeout = 2 * time.Second

// Simulation is the part of the scene the API reads and commands.
type Simulation interface {
	ID() string
	Ready() bool
	Submit(ctx context.Context, cmd scene.Command) error
	Snapshot() (*scene.Frame, error)
	Stats() scene.Stats
	Subscribe() (<-chan *scene.Frame, func())
}

var _ Simulation = (*scene.Scene)(nil)

// readiness tracks the optional dependencies. The simulation itself is
// asked directly.
var readiness = &readinessState{}

type readinessState struct {
	mu                sync.RWMutex
	mqttConnected     bool
	mqttOptional      bool
	postgresConnected bool
	postgresOptional  bool
}

// SetMQTTState records broker connectivity. An optional broker that is
// down does not make the service unready.
func SetMQTTState(connected, optional bool) {
	readiness.mu.Lock()
	defer readiness.mu.Unlock()
	readiness.mqttConnected = connected
	readiness.mqttOptional = optional
}

// SetPostgresState records journal connectivity.
func SetPostgresState(connected, optional bool) {
	readiness.mu.Lock()
	defer readiness.mu.Unlock()
	readiness.postgresConnected = connected
	readiness.postgresOptional = optional
}

// Server routes HTTP requests to one simulation.
type Server struct {
	sim     Simulation
	started time.Time
	// SubmitTimeout overrides DefaultSubmitTimeout when positive.
	SubmitTimeout time.Duration
}

func NewServer(sim Simulation) *Server {
	return &Server{sim: sim, started: time.Now()}
}

type HealthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Scene     string `json:"scene"`
	Hostname  string `json:"hostname"`
	Timestamp string `json:"ts"`
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	host, _ := os.Hostname()
	resp := HealthResponse{
		Status:    "ok",
		Service:   "hellevator",
		Scene:     s.sim.ID(),
		Hostname:  host,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	}
	writeJSON(w, http.StatusOK, resp)
}

type CheckResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type ReadinessResponse struct {
	Ready       bool                   `json:"ready"`
	Checks      map[string]CheckResult `json:"checks"`
	NotReadyMsg string                 `json:"message,omitempty"`
}

func (s *Server) readyHandler(w http.ResponseWriter, r *http.Request) {
	readiness.mu.RLock()
	mqttConnected := readiness.mqttConnected
	mqttOptional := readiness.mqttOptional
	pgConnected := readiness.postgresConnected
	pgOptional := readiness.postgresOptional
	readiness.mu.RUnlock()

	resp := ReadinessResponse{Ready: true, Checks: make(map[string]CheckResult)}
	var reasons []string

	if s.sim.Ready() {
		resp.Checks["simulation"] = CheckResult{Status: "ok"}
	} else {
		resp.Checks["simulation"] = CheckResult{Status: "not_ready", Message: "tick loop not running"}
		reasons = append(reasons, "simulation not running")
	}

	dependency := func(name string, connected, optional bool) {
		switch {
		case connected:
			resp.Checks[name] = CheckResult{Status: "ok"}
		case optional:
			resp.Checks[name] = CheckResult{Status: "unavailable", Message: "optional, running without it"}
		default:
			resp.Checks[name] = CheckResult{Status: "disconnected"}
			reasons = append(reasons, name+" not connected")
		}
	}
	dependency("mqtt", mqttConnected, mqttOptional)
	dependency("postgres", pgConnected, pgOptional)

	status := http.StatusOK
	if len(reasons) > 0 {
		resp.Ready = false
		resp.NotReadyMsg = strings.Join(reasons, "; ")
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

func eventsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, events.Snapshot())
}

// eventsHistoryHandler reads the journal, newest first. ?limit= is passed
// through to the journal which applies its own default and cap.
func eventsHistoryHandler(w http.ResponseWriter, r *http.Request) {
	j := events.GetJournal()
	if j == nil {
		writeJSON(w, http.StatusServiceUnavailable, OperatorResponse{OK: false, Error: "event journal not configured"})
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, OperatorResponse{OK: false, Error: "invalid limit"})
			return
		}
		limit = n
	}

	rows, err := j.Query(limit)
	if err != nil {
		ctxlog.FromContext(r.Context()).Error("journal query failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, OperatorResponse{OK: false, Error: "journal query failed"})
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) stateHandler(w http.ResponseWriter, r *http.Request) {
	frame, err := s.sim.Snapshot()
	if err != nil {
		ctxlog.FromContext(r.Context()).Error("snapshot failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, OperatorResponse{OK: false, Error: "snapshot failed"})
		return
	}
	writeJSON(w, http.StatusOK, frame)
}

// OperatorRequest names an elevator range. start, end and shaft are
// required; reverse only applies to install.
type OperatorRequest struct {
	Start   *int `json:"start"`
	End     *int `json:"end"`
	Shaft   *int `json:"shaft"`
	Reverse bool `json:"reverse,omitempty"`
}

type OperatorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

func (s *Server) operatorHandler(op scene.Op) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeJSON(w, http.StatusMethodNotAllowed, OperatorResponse{OK: false, Error: "method not allowed"})
			return
		}

		var req OperatorRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, OperatorResponse{OK: false, Error: "invalid JSON"})
			return
		}
		if req.Start == nil || req.End == nil || req.Shaft == nil {
			writeJSON(w, http.StatusBadRequest, OperatorResponse{OK: false, Error: "start, end and shaft required"})
			return
		}

		cmd := scene.Command{
			Op:      op,
			Start:   *req.Start,
			End:     *req.End,
			Shaft:   *req.Shaft,
			Reverse: req.Reverse,
			Source:  "http",
		}

		timeout := s.SubmitTimeout
		if timeout <= 0 {
			timeout = DefaultSubmitTimeout
		}
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		if err := s.sim.Submit(ctx, cmd); err != nil {
			ctxlog.FromContext(r.Context()).Warn("operator request failed", "command", cmd.String(), "error", err)
			writeJSON(w, statusFor(err), OperatorResponse{OK: false, Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, OperatorResponse{OK: true})
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, topology.ErrElevatorExists):
		return http.StatusConflict
	case errors.Is(err, topology.ErrElevatorUnknown):
		return http.StatusNotFound
	case errors.Is(err, scene.ErrOutOfBounds):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Handler returns the routed mux. Reads are open to any role, operator
// commands need admin or operator credentials when auth is enabled.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.healthHandler)
	mux.HandleFunc("/ready", s.readyHandler)
	mux.HandleFunc("/metrics", s.metricsHandler)
	mux.HandleFunc("/events", RequireAnyRole(eventsHandler))
	mux.HandleFunc("/events/history", RequireAnyRole(eventsHistoryHandler))
	mux.HandleFunc("/state", RequireAnyRole(s.stateHandler))
	mux.HandleFunc("/operator/install", RequireAnyRole(s.operatorHandler(scene.OpInstall)))
	mux.HandleFunc("/operator/remove", RequireAnyRole(s.operatorHandler(scene.OpRemove)))
	mux.HandleFunc("/ws/events", RequireAnyRole(wsEventsHandler))
	mux.HandleFunc("/ws/frames", RequireAnyRole(s.wsFramesHandler))
	return mux
}

// ListenAndServe serves until ctx is cancelled, then shuts down
// gracefully. TLS is used when InitTLS found a certificate pair.
func (s *Server) ListenAndServe(ctx context.Context, port int) error {
	logger := ctxlog.FromContext(ctx)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	var tlsCfg *tls.Config
	if IsTLSEnabled() {
		if tlsCfg = LoadTLSConfig(ctx); tlsCfg == nil {
			return errors.New("TLS configured but certificate could not be loaded")
		}
		srv.TLSConfig = tlsCfg
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("API listening", "addr", srv.Addr, "tls", tlsCfg != nil, "auth", IsAuthEnabled())
		if tlsCfg != nil {
			errc <- srv.ListenAndServeTLS("", "")
		} else {
			errc <- srv.ListenAndServe()
		}
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

// Start runs ListenAndServe in a goroutine.
// Errors are logged but do not stop the caller.
func (s *Server) Start(ctx context.Context, port int) {
	go func() {
		if err := s.ListenAndServe(ctx, port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			ctxlog.FromContext(ctx).Error("api server error", "error", err)
		}
	}()
}
