package scene

import (
	"context"
	"sync"
	"time"

	"github.com/AaronLay10/Hellevator/internal/agent"
	"github.com/AaronLay10/Hellevator/internal/ctxlog"
	"github.com/AaronLay10/Hellevator/internal/events"
)

// Outcome of one agent.
type Outcome string

const (
	Success Outcome = "success"
	Failure Outcome = "failure"
)

// Signal is published for every agent outcome.
type Signal struct {
	Outcome   Outcome   `json:"outcome"`
	Agent     string    `json:"agent"`
	Score     int       `json:"score"`
	Successes int       `json:"successes"`
	Failures  int       `json:"failures"`
	At        time.Time `json:"at"`
}

// ScoreSink receives score signals. The MQTT score publisher implements it.
type ScoreSink interface {
	PublishScore(ctx context.Context, s Signal) error
}

// Scoreboard keeps the running score: +1 for every agent that reaches its
// goal, -1 for every agent lost down a shaft.
type Scoreboard struct {
	mu        sync.RWMutex
	score     int
	successes int
	failures  int

	sink ScoreSink
}

func (b *Scoreboard) Success(ctx context.Context, a *agent.Agent) {
	b.record(ctx, a, Success, 1)
}

func (b *Scoreboard) Failure(ctx context.Context, a *agent.Agent) {
	b.record(ctx, a, Failure, -1)
}

func (b *Scoreboard) record(ctx context.Context, a *agent.Agent, o Outcome, delta int) {
	b.mu.Lock()
	b.score += delta
	if o == Success {
		b.successes++
	} else {
		b.failures++
	}
	sig := Signal{
		Outcome:   o,
		Agent:     a.ID.String(),
		Score:     b.score,
		Successes: b.successes,
		Failures:  b.failures,
		At:        time.Now().UTC(),
	}
	b.mu.Unlock()

	name, level := "agent.arrived", "info"
	if o == Failure {
		name, level = "agent.fell", "warning"
	}
	events.Emit(level, name, "", events.Fields{
		"agent":  sig.Agent,
		"target": string(a.Target),
		"score":  sig.Score,
	})

	if b.sink == nil {
		return
	}
	if err := b.sink.PublishScore(ctx, sig); err != nil {
		ctxlog.FromContext(ctx).Warn("score publish failed", "outcome", o, "error", err)
	}
}

// Score returns the running score.
func (b *Scoreboard) Score() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.score
}

// Counts returns the number of successes and failures so far.
func (b *Scoreboard) Counts() (successes, failures int) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.successes, b.failures
}
