package scene

import (
	"context"
	"fmt"

	"github.com/AaronLay10/Hellevator/internal/events"
)

// Op is an operator command kind.
type Op string

const (
	OpInstall Op = "install"
	OpRemove  Op = "remove"
)

// Command is an install or remove request from the operator surface.
type Command struct {
	Op      Op     `json:"op"`
	Start   int    `json:"start"`
	End     int    `json:"end"`
	Shaft   int    `json:"shaft"`
	Reverse bool   `json:"reverse,omitempty"`
	Source  string `json:"source,omitempty"`

	reply chan error
}

func (c Command) String() string {
	return fmt.Sprintf("%s %d..%d shaft %d", c.Op, c.Start, c.End, c.Shaft)
}

// Enqueue queues cmd for the next tick. Safe for concurrent use.
func (s *Scene) Enqueue(cmd Command) {
	s.cmdMu.Lock()
	s.commands = append(s.commands, cmd)
	s.cmdMu.Unlock()
}

// Submit queues cmd and waits for the tick that applies it. If ctx ends
// first the command is withdrawn and never applied. A command the loop
// already picked up is waited for, so the result always tells whether it
// took effect.
func (s *Scene) Submit(ctx context.Context, cmd Command) error {
	cmd.reply = make(chan error, 1)
	s.Enqueue(cmd)
	select {
	case err := <-cmd.reply:
		return err
	case <-ctx.Done():
	}
	if s.withdraw(cmd.reply) {
		return ctx.Err()
	}
	return <-cmd.reply
}

// withdraw drops the queued command answering on reply. It reports false
// once drain has taken the command.
func (s *Scene) withdraw(reply chan error) bool {
	s.cmdMu.Lock()
	defer s.cmdMu.Unlock()
	for i, cmd := range s.commands {
		if cmd.reply == reply {
			s.commands = append(s.commands[:i], s.commands[i+1:]...)
			return true
		}
	}
	return false
}

// drain applies every queued command in arrival order.
func (s *Scene) drain(ctx context.Context) {
	s.cmdMu.Lock()
	pending := s.commands
	s.commands = nil
	s.cmdMu.Unlock()

	for _, cmd := range pending {
		err := s.apply(ctx, cmd)
		if cmd.reply != nil {
			cmd.reply <- err
		}
	}
}

func (s *Scene) apply(ctx context.Context, cmd Command) error {
	fields := events.Fields{
		"start":  cmd.Start,
		"end":    cmd.End,
		"shaft":  cmd.Shaft,
		"source": cmd.Source,
	}
	switch cmd.Op {
	case OpInstall:
		events.Emit("info", "operator.install", "", fields)
		return s.InstallElevator(ctx, cmd.Start, cmd.End, cmd.Shaft, cmd.Reverse)
	case OpRemove:
		events.Emit("info", "operator.remove", "", fields)
		return s.RemoveElevator(ctx, cmd.Start, cmd.End, cmd.Shaft)
	default:
		err := fmt.Errorf("unknown operator command %q", cmd.Op)
		s.rejected(ctx, string(cmd.Op), cmd.Start, cmd.End, cmd.Shaft, err)
		return err
	}
}

// failPending answers every waiting Submit when the loop stops.
func (s *Scene) failPending(err error) {
	s.cmdMu.Lock()
	pending := s.commands
	s.commands = nil
	s.cmdMu.Unlock()

	for _, cmd := range pending {
		if cmd.reply != nil {
			cmd.reply <- err
		}
	}
}
