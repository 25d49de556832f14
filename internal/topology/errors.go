package topology

import (
	"errors"
	"fmt"
)

var (
	// ErrNodeNotFound is returned by ShortestPath when an endpoint no longer
	// exists. It is expected while elevators are being removed; callers
	// retry on the next tick.
	ErrNodeNotFound = errors.New("node not found")

	// ErrNoRoute is returned when both endpoints exist but are not connected.
	ErrNoRoute = errors.New("no route")

	// ErrElevatorExists is returned when the same range is installed twice
	// in one shaft.
	ErrElevatorExists = errors.New("elevator already installed")

	// ErrElevatorUnknown is returned when removing a range that is not
	// installed.
	ErrElevatorUnknown = errors.New("elevator not installed")
)

// NodeNotFoundError names the missing node. It matches ErrNodeNotFound
// under errors.Is.
type NodeNotFoundError struct {
	ID NodeID
}

func (e *NodeNotFoundError) Error() string {
	return fmt.Sprintf("node not found: %s", e.ID)
}

func (e *NodeNotFoundError) Is(target error) bool {
	return target == ErrNodeNotFound
}
