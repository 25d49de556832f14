// Package topology owns the building graph: floor, goal and elevator nodes,
// the links between them, elevator install/remove mutations and the
// shortest path query agents navigate by.
//
// A Graph is not safe for concurrent use. The scene mutates and queries it
// from the tick goroutine only.
package topology

import (
	"sort"
)

// Link weights. Walking is cheaper than riding so agents only take an
// elevator when they need to change level.
const (
	FloorWeight        = 1.0
	CorridorWeight     = 2.0
	AlightWeight       = 1.0
	WaitWeight         = 3.0
	RideWeightPerLevel = 2.0
)

// ElevatorKey identifies one installed elevator by the range it serves.
type ElevatorKey struct {
	Start int
	End   int
	Shaft int
}

// Graph is the live building topology.
type Graph struct {
	nodes map[NodeID]*Node
	links map[NodeID]map[NodeID]Link

	// elevators maps an installed range to its owning entity.
	elevators map[ElevatorKey]Handle
	// users lists, per elevator endpoint, the installed ranges using it in
	// installation order.
	users map[NodeID][]ElevatorKey
	// levels records the room columns present per level, for alight links.
	levels map[int]map[int]bool
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		nodes:     make(map[NodeID]*Node),
		links:     make(map[NodeID]map[NodeID]Link),
		elevators: make(map[ElevatorKey]Handle),
		users:     make(map[NodeID][]ElevatorKey),
		levels:    make(map[int]map[int]bool),
	}
}

// Node returns a copy of the node with the given id.
func (g *Graph) Node(id NodeID) (Node, bool) {
	n, ok := g.nodes[id]
	if !ok {
		return Node{}, false
	}
	return *n, true
}

// HasNode reports whether id is currently in the graph.
func (g *Graph) HasNode(id NodeID) bool {
	_, ok := g.nodes[id]
	return ok
}

// Link returns the directed link from -> to, if any.
func (g *Graph) Link(from, to NodeID) (Link, bool) {
	l, ok := g.links[from][to]
	return l, ok
}

// Nodes returns the nodes of the given kind sorted by id. A zero kind
// returns every node.
func (g *Graph) Nodes(kind Kind) []Node {
	out := make([]Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		if kind == 0 || n.Kind == kind {
			out = append(out, *n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Links returns every directed link sorted by (from, to).
func (g *Graph) Links() []Link {
	var out []Link
	for _, m := range g.links {
		for _, l := range m {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		return out[i].To < out[j].To
	})
	return out
}

// Elevators returns the installed elevator ranges and their owners.
func (g *Graph) Elevators() map[ElevatorKey]Handle {
	out := make(map[ElevatorKey]Handle, len(g.elevators))
	for k, h := range g.elevators {
		out[k] = h
	}
	return out
}

func (g *Graph) addNode(n Node) *Node {
	if existing, ok := g.nodes[n.ID]; ok {
		return existing
	}
	node := n
	g.nodes[n.ID] = &node
	return &node
}

// deleteNode removes a node and every link touching it.
func (g *Graph) deleteNode(id NodeID) {
	delete(g.links, id)
	for from, m := range g.links {
		delete(m, id)
		if len(m) == 0 {
			delete(g.links, from)
		}
	}
	delete(g.nodes, id)
}

func (g *Graph) addLink(from, to NodeID, kind LinkKind, weight float64) {
	m, ok := g.links[from]
	if !ok {
		m = make(map[NodeID]Link)
		g.links[from] = m
	}
	m[to] = Link{From: from, To: to, Kind: kind, Weight: weight}
}

func (g *Graph) addBidirectional(a, b NodeID, kind LinkKind, weight float64) {
	g.addLink(a, b, kind, weight)
	g.addLink(b, a, kind, weight)
}

func (g *Graph) deleteLink(from, to NodeID) {
	m, ok := g.links[from]
	if !ok {
		return
	}
	delete(m, to)
	if len(m) == 0 {
		delete(g.links, from)
	}
}
