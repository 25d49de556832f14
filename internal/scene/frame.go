package scene

import (
	"sync"

	"github.com/tiendc/go-deepcopy"
)

// Frame is what a renderer needs to draw one tick. Frames handed out by
// Snapshot are private copies.
type Frame struct {
	Scene     string         `json:"scene"`
	Tick      uint64         `json:"tick"`
	ElapsedMS int64          `json:"elapsed_ms"`
	Score     int            `json:"score"`
	Agents    []AgentView    `json:"agents"`
	Elevators []ElevatorView `json:"elevators"`
}

type AgentView struct {
	ID      string  `json:"id"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Node    string  `json:"node"`
	Target  string  `json:"target"`
	Riding  bool    `json:"riding"`
	Walking bool    `json:"walking"`
	Falling bool    `json:"falling"`
}

type ElevatorView struct {
	Handle    uint64  `json:"handle"`
	Start     int     `json:"start"`
	End       int     `json:"end"`
	Shaft     int     `json:"shaft"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	DoorOpen  bool    `json:"door_open"`
	Phase     string  `json:"phase"`
	StoppedAt string  `json:"stopped_at,omitempty"`
}

// Stats are the scene counters exported as metrics.
type Stats struct {
	Ticks      uint64
	Agents     int
	Elevators  int
	Spawned    uint64
	Successes  int
	Failures   int
	Score      int
	StalePaths uint64
}

// publish builds the frame for the tick that just ran and hands it to
// every frame subscriber.
func (s *Scene) publish() {
	f := &Frame{
		Scene:     s.id,
		Tick:      s.ticks,
		ElapsedMS: s.elapsed.Milliseconds(),
		Score:     s.score.Score(),
		Agents:    make([]AgentView, 0, len(s.agents)),
		Elevators: make([]ElevatorView, 0, len(s.elevators)),
	}
	for _, a := range s.agents {
		f.Agents = append(f.Agents, AgentView{
			ID:      a.ID.String(),
			X:       a.Pos.X,
			Y:       a.Pos.Y,
			Node:    string(a.Location.Node),
			Target:  string(a.Target),
			Riding:  a.Location.OnElevator,
			Walking: a.Walking,
			Falling: a.Falling,
		})
	}
	for _, e := range s.elevators {
		pos := e.Position()
		stopped, _ := e.StoppedAt()
		f.Elevators = append(f.Elevators, ElevatorView{
			Handle:    uint64(e.Handle),
			Start:     e.Start,
			End:       e.End,
			Shaft:     e.Shaft,
			X:         pos.X,
			Y:         pos.Y,
			DoorOpen:  e.DoorOpen(),
			Phase:     e.Phase().String(),
			StoppedAt: string(stopped),
		})
	}

	successes, failures := s.score.Counts()
	s.statsMu.Lock()
	s.stats = Stats{
		Ticks:      s.ticks,
		Agents:     len(s.agents),
		Elevators:  len(s.elevators),
		Spawned:    s.spawned,
		Successes:  successes,
		Failures:   failures,
		Score:      f.Score,
		StalePaths: s.stalePaths,
	}
	s.statsMu.Unlock()

	s.frames.publish(f)
}

// Snapshot returns a copy of the latest frame.
func (s *Scene) Snapshot() (*Frame, error) {
	latest := s.frames.latest()
	out := new(Frame)
	if latest == nil {
		return out, nil
	}
	if err := deepcopy.Copy(out, latest); err != nil {
		return nil, err
	}
	return out, nil
}

// Subscribe streams frames as they are published. Slow subscribers miss
// frames rather than stall the tick loop. Frames received are shared and
// must not be modified. Call cancel to stop.
func (s *Scene) Subscribe() (frames <-chan *Frame, cancel func()) {
	return s.frames.subscribe()
}

// Stats returns the counters as of the last tick.
func (s *Scene) Stats() Stats {
	s.statsMu.RLock()
	defer s.statsMu.RUnlock()
	return s.stats
}

type frameHub struct {
	mu   sync.RWMutex
	last *Frame
	subs map[chan *Frame]struct{}
}

func newFrameHub() *frameHub {
	return &frameHub{subs: make(map[chan *Frame]struct{})}
}

func (h *frameHub) publish(f *Frame) {
	h.mu.Lock()
	h.last = f
	h.mu.Unlock()

	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs {
		select {
		case ch <- f:
		default:
		}
	}
}

func (h *frameHub) latest() *Frame {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.last
}

func (h *frameHub) subscribe() (<-chan *Frame, func()) {
	ch := make(chan *Frame, 8)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
}
