package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/AaronLay10/Hellevator/internal/config"
	"github.com/AaronLay10/Hellevator/internal/events"
	"github.com/AaronLay10/Hellevator/internal/scene"
	"github.com/AaronLay10/Hellevator/internal/storage/postgres"
	"github.com/AaronLay10/Hellevator/internal/topology"
)

// fakeSim answers Submit with submitErr and records every command.
type fakeSim struct {
	mu        sync.Mutex
	ready     bool
	submitErr error
	cmds      []scene.Command
	frame     *scene.Frame
	stats     scene.Stats
	frames    chan *scene.Frame
}

func newFakeSim() *fakeSim {
	return &fakeSim{
		ready:  true,
		frame:  &scene.Frame{Scene: "hell", Tick: 3, Score: 2},
		frames: make(chan *scene.Frame, 4),
	}
}

func (f *fakeSim) ID() string  { return "hell" }
func (f *fakeSim) Ready() bool { return f.ready }

func (f *fakeSim) Submit(ctx context.Context, cmd scene.Command) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cmds = append(f.cmds, cmd)
	return f.submitErr
}

func (f *fakeSim) Snapshot() (*scene.Frame, error) { return f.frame, nil }
func (f *fakeSim) Stats() scene.Stats              { return f.stats }

func (f *fakeSim) Subscribe() (<-chan *scene.Frame, func()) {
	return f.frames, func() {}
}

// clearTLSEnvServer prevents TLS initialization from trying to load nonexistent certs.
func clearTLSEnvServer(t *testing.T) {
	t.Setenv(EnvTLSCert, "")
	t.Setenv(EnvTLSKey, "")
	SetTLSConfigForTest(nil)
}

func noAuth() {
	InitAuth(config.Secrets{})
}

func TestHealthEndpoint(t *testing.T) {
	clearTLSEnvServer(t)
	s := NewServer(newFakeSim())
	w := httptest.NewRecorder()

	s.healthHandler(w, httptest.NewRequest("GET", "/health", nil))

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}
	var resp HealthResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != "ok" || resp.Scene != "hell" {
		t.Errorf("unexpected health response %+v", resp)
	}
}

func TestReadyEndpoint(t *testing.T) {
	clearTLSEnvServer(t)

	tests := []struct {
		name       string
		simReady   bool
		mqtt       [2]bool // connected, optional
		postgres   [2]bool
		wantReady  bool
		wantChecks map[string]string
	}{
		{
			name:       "all ready",
			simReady:   true,
			mqtt:       [2]bool{true, false},
			postgres:   [2]bool{true, false},
			wantReady:  true,
			wantChecks: map[string]string{"simulation": "ok", "mqtt": "ok", "postgres": "ok"},
		},
		{
			name:       "simulation stopped",
			simReady:   false,
			mqtt:       [2]bool{true, false},
			postgres:   [2]bool{true, false},
			wantChecks: map[string]string{"simulation": "not_ready"},
		},
		{
			name:       "optional dependencies down",
			simReady:   true,
			mqtt:       [2]bool{false, true},
			postgres:   [2]bool{false, true},
			wantReady:  true,
			wantChecks: map[string]string{"mqtt": "unavailable", "postgres": "unavailable"},
		},
		{
			name:       "required mqtt down",
			simReady:   true,
			mqtt:       [2]bool{false, false},
			postgres:   [2]bool{false, true},
			wantChecks: map[string]string{"mqtt": "disconnected", "postgres": "unavailable"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sim := newFakeSim()
			sim.ready = tt.simReady
			SetMQTTState(tt.mqtt[0], tt.mqtt[1])
			SetPostgresState(tt.postgres[0], tt.postgres[1])

			w := httptest.NewRecorder()
			NewServer(sim).readyHandler(w, httptest.NewRequest("GET", "/ready", nil))

			wantCode := http.StatusOK
			if !tt.wantReady {
				wantCode = http.StatusServiceUnavailable
			}
			if w.Code != wantCode {
				t.Errorf("expected status %d, got %d", wantCode, w.Code)
			}

			var resp ReadinessResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp.Ready != tt.wantReady {
				t.Errorf("ready = %v, want %v", resp.Ready, tt.wantReady)
			}
			if !tt.wantReady && resp.NotReadyMsg == "" {
				t.Error("expected a not-ready message")
			}
			for name, status := range tt.wantChecks {
				if resp.Checks[name].Status != status {
					t.Errorf("check %s = %q, want %q", name, resp.Checks[name].Status, status)
				}
			}
		})
	}
}

func TestOperatorInstall(t *testing.T) {
	clearTLSEnvServer(t)
	sim := newFakeSim()
	s := NewServer(sim)

	body := strings.NewReader(`{"start":1,"end":4,"shaft":2,"reverse":true}`)
	w := httptest.NewRecorder()
	s.operatorHandler(scene.OpInstall)(w, httptest.NewRequest("POST", "/operator/install", body))

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if len(sim.cmds) != 1 {
		t.Fatalf("expected 1 command, got %d", len(sim.cmds))
	}
	want := scene.Command{Op: scene.OpInstall, Start: 1, End: 4, Shaft: 2, Reverse: true, Source: "http"}
	if sim.cmds[0] != want {
		t.Errorf("got %+v, want %+v", sim.cmds[0], want)
	}
}

func TestOperatorRequestErrors(t *testing.T) {
	clearTLSEnvServer(t)

	tests := []struct {
		name      string
		method    string
		body      string
		submitErr error
		wantCode  int
	}{
		{"wrong method", "GET", "", nil, http.StatusMethodNotAllowed},
		{"invalid json", "POST", "{", nil, http.StatusBadRequest},
		{"missing shaft", "POST", `{"start":1,"end":4}`, nil, http.StatusBadRequest},
		{"duplicate", "POST", `{"start":1,"end":4,"shaft":0}`, fmt.Errorf("install: %w", topology.ErrElevatorExists), http.StatusConflict},
		{"unknown", "POST", `{"start":1,"end":4,"shaft":0}`, fmt.Errorf("remove: %w", topology.ErrElevatorUnknown), http.StatusNotFound},
		{"out of bounds", "POST", `{"start":1,"end":40,"shaft":0}`, fmt.Errorf("level 40: %w", scene.ErrOutOfBounds), http.StatusBadRequest},
		{"timeout", "POST", `{"start":1,"end":4,"shaft":0}`, context.DeadlineExceeded, http.StatusGatewayTimeout},
		{"other", "POST", `{"start":1,"end":4,"shaft":0}`, errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sim := newFakeSim()
			sim.submitErr = tt.submitErr
			w := httptest.NewRecorder()
			req := httptest.NewRequest(tt.method, "/operator/remove", strings.NewReader(tt.body))

			NewServer(sim).operatorHandler(scene.OpRemove)(w, req)

			if w.Code != tt.wantCode {
				t.Errorf("expected status %d, got %d", tt.wantCode, w.Code)
			}
			var resp OperatorResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp.OK || resp.Error == "" {
				t.Errorf("expected an error response, got %+v", resp)
			}
		})
	}
}

func TestOperatorAgainstRunningScene(t *testing.T) {
	clearTLSEnvServer(t)
	noAuth()

	cfg := config.Default()
	cfg.Simulation.SpawnMS = int(time.Hour / time.Millisecond)
	sc, err := scene.New(context.Background(), cfg, scene.Options{Rand: rand.New(rand.NewPCG(1, 2))})
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sc.Run(ctx, 5*time.Millisecond)

	srv := httptest.NewServer(NewServer(sc).Handler())
	defer srv.Close()

	post := func(path, body string) int {
		resp, err := http.Post(srv.URL+path, "application/json", strings.NewReader(body))
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		return resp.StatusCode
	}

	if code := post("/operator/install", `{"start":1,"end":4,"shaft":0}`); code != http.StatusOK {
		t.Fatalf("install: expected 200, got %d", code)
	}
	if code := post("/operator/install", `{"start":4,"end":1,"shaft":0}`); code != http.StatusConflict {
		t.Errorf("duplicate install: expected 409, got %d", code)
	}
	if code := post("/operator/remove", `{"start":1,"end":4,"shaft":0}`); code != http.StatusOK {
		t.Errorf("remove: expected 200, got %d", code)
	}
	if code := post("/operator/remove", `{"start":1,"end":4,"shaft":0}`); code != http.StatusNotFound {
		t.Errorf("second remove: expected 404, got %d", code)
	}

	resp, err := http.Get(srv.URL + "/state")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var frame scene.Frame
	if err := json.NewDecoder(resp.Body).Decode(&frame); err != nil {
		t.Fatalf("failed to decode state: %v", err)
	}
	if frame.Scene != "hell" || frame.Tick == 0 {
		t.Errorf("unexpected state frame %+v", frame)
	}
}

func TestOperatorRequiresCredentials(t *testing.T) {
	clearTLSEnvServer(t)
	InitAuth(config.Secrets{AdminUser: "admin", AdminPass: "secret"})
	defer noAuth()

	sim := newFakeSim()
	h := NewServer(sim).Handler()

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("POST", "/operator/install", strings.NewReader(`{"start":1,"end":4,"shaft":0}`)))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", w.Code)
	}
	if len(sim.cmds) != 0 {
		t.Error("unauthenticated request must not reach the simulation")
	}

	// Health stays open for load balancer checks.
	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))
	if w.Code != http.StatusOK {
		t.Errorf("health: expected status 200, got %d", w.Code)
	}
}

type stubJournal struct {
	rows      []postgres.EventRow
	lastLimit int
	err       error
}

func (j *stubJournal) Append(ts time.Time, level, event, msg string, fields map[string]interface{}, runID string) error {
	return nil
}

func (j *stubJournal) Query(limit int) ([]postgres.EventRow, error) {
	j.lastLimit = limit
	return j.rows, j.err
}

func TestEventsHistory(t *testing.T) {
	clearTLSEnvServer(t)
	defer events.SetJournal(nil, "")

	events.SetJournal(nil, "")
	w := httptest.NewRecorder()
	eventsHistoryHandler(w, httptest.NewRequest("GET", "/events/history", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("no journal: expected 503, got %d", w.Code)
	}

	j := &stubJournal{rows: []postgres.EventRow{{EventID: 7, Event: "agent.arrived", SceneID: "hell"}}}
	events.SetJournal(j, "run-1")

	w = httptest.NewRecorder()
	eventsHistoryHandler(w, httptest.NewRequest("GET", "/events/history?limit=5", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if j.lastLimit != 5 {
		t.Errorf("limit = %d, want 5", j.lastLimit)
	}
	var rows []postgres.EventRow
	if err := json.NewDecoder(w.Body).Decode(&rows); err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].Event != "agent.arrived" {
		t.Errorf("unexpected rows %+v", rows)
	}

	w = httptest.NewRecorder()
	eventsHistoryHandler(w, httptest.NewRequest("GET", "/events/history?limit=abc", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad limit: expected 400, got %d", w.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	clearTLSEnvServer(t)
	sim := newFakeSim()
	sim.stats = scene.Stats{Ticks: 42, Agents: 3, Successes: 5, Failures: 1, Score: 4}

	w := httptest.NewRecorder()
	NewServer(sim).metricsHandler(w, httptest.NewRequest("GET", "/metrics", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{
		"# TYPE hellevator_ticks_total counter",
		`hellevator_ticks_total{scene="hell"`,
		"} 42\n",
		"hellevator_agents_arrived_total{",
		"hellevator_score{",
		"hellevator_simulation_running{",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}

	w = httptest.NewRecorder()
	NewServer(sim).metricsHandler(w, httptest.NewRequest("POST", "/metrics", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", w.Code)
	}
}
