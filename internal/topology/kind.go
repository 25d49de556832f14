package topology

import "fmt"

// Kind is the closed set of node kinds in the building graph.
type Kind uint8

const (
	KindFloor Kind = iota + 1
	KindElevator
	KindGoal
)

func (k Kind) String() string {
	switch k {
	case KindFloor:
		return "FLOOR"
	case KindElevator:
		return "ELEVATOR"
	case KindGoal:
		return "GOAL"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// LinkKind is the closed set of link kinds. It decides how an agent
// traverses the link.
type LinkKind uint8

const (
	// LinkFloor is walked: room to room, or room to its goal.
	LinkFloor LinkKind = iota + 1
	// LinkElevator joins the two endpoints served by one elevator.
	LinkElevator
	// LinkAlight joins a floor node to the elevator endpoint beside it.
	LinkAlight
)

func (k LinkKind) String() string {
	switch k {
	case LinkFloor:
		return "FLOOR"
	case LinkElevator:
		return "ELEVATOR"
	case LinkAlight:
		return "ALIGHT"
	default:
		return fmt.Sprintf("LinkKind(%d)", uint8(k))
	}
}

// NodeID uniquely names a node: "<KIND>-<level>-<index>". The index is the
// room column for floor and goal nodes and the shaft for elevator nodes.
type NodeID string

// ID builds the NodeID for a node of the given kind.
func ID(kind Kind, level, index int) NodeID {
	return NodeID(fmt.Sprintf("%s-%d-%d", kind, level, index))
}

// Handle is an index into the scene's entity registry. Nodes hold a handle
// instead of a pointer so an entity destroyed before its node resolves to
// "absent" rather than to freed state.
type Handle uint64

// NoHandle is the zero handle; it never resolves.
const NoHandle Handle = 0

// Node is a point in the building graph.
type Node struct {
	ID    NodeID
	Kind  Kind
	Level int
	Index int
	// Variant carries the room type for goal nodes.
	Variant int
	Owner   Handle
}

// Link is a directed, typed, weighted connection between two nodes.
// Owner is set on ELEVATOR links only: the car that carries an agent
// along it. Endpoints can be shared within a shaft, so the endpoint's
// own Owner does not say which car serves a given ride.
type Link struct {
	From   NodeID
	To     NodeID
	Kind   LinkKind
	Weight float64
	Owner  Handle
}
