package topology

import "fmt"

// NoRoom marks an absent cell in a Layout.
const NoRoom = -1

// Layout is the static grid of rooms: Layout[level][col] is the room type
// (0..3) or NoRoom.
type Layout [][]int

// DefaultLayout is the five level, three column building.
var DefaultLayout = Layout{
	{3, 1, 0},
	{1, NoRoom, 2},
	{0, 2, 1},
	{3, NoRoom, 3},
	{1, 0, 2},
}

// Validate checks room types and that every level has the same width.
func (l Layout) Validate() error {
	if len(l) == 0 {
		return fmt.Errorf("layout has no levels")
	}
	width := len(l[0])
	for level, row := range l {
		if len(row) != width {
			return fmt.Errorf("layout level %d has %d columns, want %d", level, len(row), width)
		}
		for col, room := range row {
			if room < NoRoom || room > 3 {
				return fmt.Errorf("layout cell (%d,%d): invalid room type %d", level, col, room)
			}
		}
	}
	return nil
}

// Levels returns the number of levels.
func (l Layout) Levels() int { return len(l) }

// Columns returns the number of room columns.
func (l Layout) Columns() int {
	if len(l) == 0 {
		return 0
	}
	return len(l[0])
}

// Shafts returns the number of elevator shafts: one each side of every
// room column.
func (l Layout) Shafts() int {
	return l.Columns() + 1
}

// OwnerFunc registers the physical marker for a static node and returns its
// handle.
type OwnerFunc func(kind Kind, level, col int) Handle

// BuildStaticLayout seeds floor and goal nodes from the layout. Each room
// gets a floor node and a goal node joined by floor links; neighbouring
// rooms on a level are joined by corridor links. It is called once, before
// any elevator is installed.
func (g *Graph) BuildStaticLayout(layout Layout, owner OwnerFunc) error {
	if err := layout.Validate(); err != nil {
		return err
	}
	for level, row := range layout {
		for col, room := range row {
			if room == NoRoom {
				continue
			}
			floor := g.addNode(Node{
				ID:    ID(KindFloor, level, col),
				Kind:  KindFloor,
				Level: level,
				Index: col,
				Owner: owner(KindFloor, level, col),
			})
			goal := g.addNode(Node{
				ID:      ID(KindGoal, level, col),
				Kind:    KindGoal,
				Level:   level,
				Index:   col,
				Variant: room,
				Owner:   owner(KindGoal, level, col),
			})
			g.addBidirectional(floor.ID, goal.ID, LinkFloor, FloorWeight)

			if g.levels[level] == nil {
				g.levels[level] = make(map[int]bool)
			}
			g.levels[level][col] = true

			if col > 0 && row[col-1] != NoRoom {
				g.addBidirectional(ID(KindFloor, level, col-1), floor.ID, LinkFloor, CorridorWeight)
			}
		}
	}
	return nil
}

// adjacentFloors returns the floor nodes beside a shaft on a level: the room
// to its left (col shaft-1) and to its right (col shaft).
func (g *Graph) adjacentFloors(level, shaft int) []NodeID {
	var out []NodeID
	for _, col := range []int{shaft - 1, shaft} {
		if g.levels[level][col] {
			out = append(out, ID(KindFloor, level, col))
		}
	}
	return out
}
