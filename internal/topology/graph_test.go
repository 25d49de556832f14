package topology

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestGraph builds the default layout with sequential marker handles.
func newTestGraph(t *testing.T) *Graph {
	t.Helper()
	g := New()
	next := Handle(0)
	err := g.BuildStaticLayout(DefaultLayout, func(Kind, int, int) Handle {
		next++
		return next
	})
	require.NoError(t, err)
	return g
}

func TestBuildStaticLayout(t *testing.T) {
	g := newTestGraph(t)

	assert.Len(t, g.Nodes(KindFloor), 13)
	assert.Len(t, g.Nodes(KindGoal), 13)
	assert.Empty(t, g.Nodes(KindElevator))
	// 13 room/goal pairs and 6 corridors, both directions.
	assert.Len(t, g.Links(), 38)

	l, ok := g.Link(ID(KindFloor, 0, 0), ID(KindFloor, 0, 1))
	require.True(t, ok)
	assert.Equal(t, LinkFloor, l.Kind)
	assert.Equal(t, CorridorWeight, l.Weight)

	_, ok = g.Link(ID(KindFloor, 1, 0), ID(KindFloor, 1, 2))
	assert.False(t, ok, "rooms either side of a missing room must not be linked")

	goal, ok := g.Node(ID(KindGoal, 3, 2))
	require.True(t, ok)
	assert.Equal(t, 3, goal.Variant)
	assert.NotEqual(t, NoHandle, goal.Owner)
}

func TestLayoutValidate(t *testing.T) {
	tests := []struct {
		name    string
		layout  Layout
		wantErr bool
	}{
		{"default", DefaultLayout, false},
		{"empty", Layout{}, true},
		{"ragged", Layout{{0, 1}, {0}}, true},
		{"bad room type", Layout{{0, 7}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.layout.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
	assert.Equal(t, 4, DefaultLayout.Shafts())
}

func TestInstallElevator(t *testing.T) {
	g := newTestGraph(t)
	require.NoError(t, g.InstallElevator(4, 1, 0, 100))

	lower, upper := ID(KindElevator, 1, 0), ID(KindElevator, 4, 0)
	n, ok := g.Node(lower)
	require.True(t, ok)
	assert.Equal(t, Handle(100), n.Owner)
	assert.True(t, g.HasNode(upper))

	ride, ok := g.Link(lower, upper)
	require.True(t, ok)
	assert.Equal(t, LinkElevator, ride.Kind)
	assert.Equal(t, RideWeightPerLevel*3+WaitWeight, ride.Weight)
	_, ok = g.Link(upper, lower)
	assert.True(t, ok)

	for _, pair := range [][2]NodeID{
		{ID(KindFloor, 1, 0), lower},
		{lower, ID(KindFloor, 1, 0)},
		{ID(KindFloor, 4, 0), upper},
	} {
		l, ok := g.Link(pair[0], pair[1])
		require.True(t, ok, "%s -> %s", pair[0], pair[1])
		assert.Equal(t, LinkAlight, l.Kind)
	}
}

func TestInstallElevatorBetweenRooms(t *testing.T) {
	g := newTestGraph(t)
	require.NoError(t, g.InstallElevator(0, 2, 1, 7))

	// Shaft 1 sits between columns 0 and 1; both rooms exist on level 0.
	for _, col := range []int{0, 1} {
		_, ok := g.Link(ID(KindFloor, 0, col), ID(KindElevator, 0, 1))
		assert.True(t, ok, "column %d", col)
	}
}

func TestInstallElevatorDuplicate(t *testing.T) {
	g := newTestGraph(t)
	require.NoError(t, g.InstallElevator(1, 4, 0, 1))
	err := g.InstallElevator(1, 4, 0, 2)
	assert.ErrorIs(t, err, ErrElevatorExists)

	assert.Error(t, g.InstallElevator(2, 2, 0, 3))
}

func TestSharedEndpoints(t *testing.T) {
	g := newTestGraph(t)
	require.NoError(t, g.InstallElevator(0, 2, 1, 10))
	require.NoError(t, g.InstallElevator(2, 4, 1, 20))

	shared := ID(KindElevator, 2, 1)
	n, _ := g.Node(shared)
	assert.Equal(t, Handle(20), n.Owner, "newest elevator owns a shared endpoint")
	assert.Len(t, g.Nodes(KindElevator), 3)

	require.NoError(t, g.RemoveElevator(0, 2, 1))
	assert.False(t, g.HasNode(ID(KindElevator, 0, 1)))
	require.True(t, g.HasNode(shared))
	n, _ = g.Node(shared)
	assert.Equal(t, Handle(20), n.Owner)

	_, ok := g.Link(shared, ID(KindElevator, 0, 1))
	assert.False(t, ok)
	_, ok = g.Link(ID(KindFloor, 2, 0), shared)
	assert.True(t, ok, "alight links stay while the endpoint is in use")

	require.NoError(t, g.RemoveElevator(2, 4, 1))
	assert.Empty(t, g.Nodes(KindElevator))
	assert.Len(t, g.Links(), 38, "only the static layout remains")
}

func TestRideLinksNameTheirCar(t *testing.T) {
	g := newTestGraph(t)
	require.NoError(t, g.InstallElevator(0, 2, 1, 10))
	require.NoError(t, g.InstallElevator(2, 4, 1, 20))

	low, shared, high := ID(KindElevator, 0, 1), ID(KindElevator, 2, 1), ID(KindElevator, 4, 1)
	for _, tc := range []struct {
		from, to NodeID
		want     Handle
	}{
		{low, shared, 10},
		{shared, low, 10},
		{shared, high, 20},
		{high, shared, 20},
	} {
		l, ok := g.Link(tc.from, tc.to)
		require.True(t, ok, "%s -> %s", tc.from, tc.to)
		assert.Equal(t, LinkElevator, l.Kind)
		assert.Equal(t, tc.want, l.Owner, "%s -> %s", tc.from, tc.to)
	}

	l, ok := g.Link(ID(KindFloor, 2, 0), shared)
	require.True(t, ok)
	assert.Equal(t, NoHandle, l.Owner, "alight links belong to no car")
}

func TestRemoveElevatorUnknown(t *testing.T) {
	g := newTestGraph(t)
	assert.ErrorIs(t, g.RemoveElevator(1, 4, 0), ErrElevatorUnknown)
}

func TestFinishRemovalIsIdempotent(t *testing.T) {
	g := newTestGraph(t)
	require.NoError(t, g.InstallElevator(1, 4, 0, 1))
	require.NoError(t, g.RemoveElevator(1, 4, 0))
	g.FinishRemoval(1, 4, 0, 1)
	g.FinishRemoval(4, 1, 0, 1)
	assert.Empty(t, g.Elevators())

	// The range can be installed again afterwards.
	assert.NoError(t, g.InstallElevator(1, 4, 0, 2))
}

func TestFinishRemovalSparesReinstalledRange(t *testing.T) {
	g := newTestGraph(t)
	require.NoError(t, g.InstallElevator(1, 4, 0, 1))
	require.NoError(t, g.RemoveElevator(1, 4, 0))
	require.NoError(t, g.InstallElevator(1, 4, 0, 2))

	// The first elevator finishes falling after its replacement went in.
	g.FinishRemoval(1, 4, 0, 1)
	assert.Equal(t, map[ElevatorKey]Handle{{Start: 1, End: 4, Shaft: 0}: 2}, g.Elevators())
	_, ok := g.Link(ID(KindElevator, 1, 0), ID(KindElevator, 4, 0))
	assert.True(t, ok)
}

func TestShortestPathThroughElevator(t *testing.T) {
	g := newTestGraph(t)
	require.NoError(t, g.InstallElevator(1, 4, 0, 1))

	path, err := g.ShortestPath(ID(KindFloor, 1, 0), ID(KindGoal, 4, 0))
	require.NoError(t, err)

	want := []NodeID{
		ID(KindGoal, 4, 0),
		ID(KindFloor, 4, 0),
		ID(KindElevator, 4, 0),
		ID(KindElevator, 1, 0),
		ID(KindFloor, 1, 0),
	}
	if diff := cmp.Diff(want, path.IDs()); diff != "" {
		t.Errorf("path mismatch (-want +got):\n%s", diff)
	}

	var kinds []LinkKind
	for i := len(path) - 1; i > 0; i-- {
		l, ok := g.Link(path[i].ID, path[i-1].ID)
		require.True(t, ok, "path must be contiguous at %s -> %s", path[i].ID, path[i-1].ID)
		kinds = append(kinds, l.Kind)
	}
	assert.Equal(t, []LinkKind{LinkAlight, LinkElevator, LinkAlight, LinkFloor}, kinds)
	assert.Equal(t, 12.0, g.Cost(path))

	cur, _ := path.Current()
	next, _ := path.Next()
	assert.Equal(t, ID(KindFloor, 1, 0), cur.ID)
	assert.Equal(t, ID(KindElevator, 1, 0), next.ID)
}

func TestShortestPathPrefersWalking(t *testing.T) {
	g := newTestGraph(t)
	require.NoError(t, g.InstallElevator(0, 4, 0, 1))

	path, err := g.ShortestPath(ID(KindFloor, 0, 0), ID(KindGoal, 0, 2))
	require.NoError(t, err)
	for _, n := range path {
		assert.NotEqual(t, KindElevator, n.Kind)
	}
}

func TestShortestPathSameNode(t *testing.T) {
	g := newTestGraph(t)
	id := ID(KindGoal, 2, 1)
	path, err := g.ShortestPath(id, id)
	require.NoError(t, err)
	assert.Equal(t, []NodeID{id}, path.IDs())
}

func TestShortestPathNoRoute(t *testing.T) {
	g := newTestGraph(t)
	_, err := g.ShortestPath(ID(KindFloor, 1, 0), ID(KindGoal, 4, 0))
	assert.ErrorIs(t, err, ErrNoRoute)
	assert.False(t, errors.Is(err, ErrNodeNotFound))
}

func TestShortestPathAfterRemoval(t *testing.T) {
	g := newTestGraph(t)
	require.NoError(t, g.InstallElevator(1, 4, 0, 1))
	riding := ID(KindElevator, 1, 0)

	stale, err := g.ShortestPath(riding, ID(KindGoal, 4, 0))
	require.NoError(t, err)

	require.NoError(t, g.RemoveElevator(1, 4, 0))

	_, err = g.ShortestPath(riding, ID(KindGoal, 4, 0))
	require.ErrorIs(t, err, ErrNodeNotFound)
	var nf *NodeNotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, riding, nf.ID)

	_, err = g.ShortestPath(ID(KindFloor, 1, 0), ID(KindElevator, 4, 0))
	assert.ErrorIs(t, err, ErrNodeNotFound)

	// The stale path still names the removed nodes with their owners.
	cur, _ := stale.Current()
	assert.Equal(t, Handle(1), cur.Owner)
	_, ok := g.Link(cur.ID, stale[len(stale)-2].ID)
	assert.False(t, ok)
}
