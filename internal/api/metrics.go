package api

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/AaronLay10/Hellevator/internal/events"
	"github.com/AaronLay10/Hellevator/internal/version"
)

func boolGauge(b bool) int {
	if b {
		return 1
	}
	return 0
}

// metricsHandler writes the scene counters in Prometheus text format.
func (s *Server) metricsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	stats := s.sim.Stats()

	readiness.mu.RLock()
	mqttConnected := readiness.mqttConnected
	postgresConnected := readiness.postgresConnected
	readiness.mu.RUnlock()

	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "unknown"
	}
	labels := fmt.Sprintf(`scene=%q,instance=%q,version=%q`, s.sim.ID(), hostname, version.Version)

	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	for _, m := range []struct {
		name, mtype, help string
		value             any
	}{
		{"hellevator_uptime_seconds", "gauge", "Seconds since the simulator started", time.Since(s.started).Seconds()},
		{"hellevator_simulation_running", "gauge", "Whether the tick loop is running (1) or not (0)", boolGauge(s.sim.Ready())},
		{"hellevator_ticks_total", "counter", "Simulation ticks run", stats.Ticks},
		{"hellevator_agents", "gauge", "Agents currently in the building", stats.Agents},
		{"hellevator_elevators", "gauge", "Elevators currently tracked, including falling ones", stats.Elevators},
		{"hellevator_agents_spawned_total", "counter", "Agents spawned", stats.Spawned},
		{"hellevator_agents_arrived_total", "counter", "Agents that reached their goal", stats.Successes},
		{"hellevator_agents_fell_total", "counter", "Agents lost down a shaft", stats.Failures},
		{"hellevator_score", "gauge", "Current score", stats.Score},
		{"hellevator_stale_paths_total", "counter", "Routing attempts that kept a stale path", stats.StalePaths},
		{"hellevator_events_total", "counter", "Events emitted since startup", events.TotalCount()},
		{"hellevator_mqtt_connected", "gauge", "Whether the MQTT broker is connected (1) or not (0)", boolGauge(mqttConnected)},
		{"hellevator_postgres_connected", "gauge", "Whether PostgreSQL is connected (1) or not (0)", boolGauge(postgresConnected)},
		{"hellevator_ws_clients", "gauge", "Open websocket connections", events.SubscriberCount() + FrameClientCount()},
	} {
		writeMetric(w, m.name, m.mtype, m.help, m.value, labels)
	}
}

func writeMetric(w io.Writer, name, mtype, help string, value any, labels string) {
	fmt.Fprintf(w, "# HELP %s %s\n", name, help)
	fmt.Fprintf(w, "# TYPE %s %s\n", name, mtype)
	fmt.Fprintf(w, "%s{%s} %v\n", name, labels, value)
}
