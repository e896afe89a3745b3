package model

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Benny93/vizsync/internal/events"
)

// captureFirer records every event fired by the model.
type captureFirer struct {
	mu     sync.Mutex
	events []events.Event
}

func (c *captureFirer) Fire(e events.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func (c *captureFirer) all() []events.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]events.Event(nil), c.events...)
}

func TestNextSUID(t *testing.T) {
	t.Parallel()

	a := NextSUID()
	b := NextSUID()

	assert.Greater(t, b, a)
}

func TestNewNetwork(t *testing.T) {
	t.Parallel()

	net := NewNetwork("yeast", nil)

	assert.Equal(t, "yeast", net.Name())
	assert.Equal(t, 0, net.NodeCount())
	assert.Equal(t, 0, net.EdgeCount())

	t.Run("DefaultTables", func(t *testing.T) {
		t.Parallel()
		for _, tc := range []struct {
			table *Table
			typ   TableType
		}{
			{net.DefaultNodeTable(), TableNode},
			{net.DefaultEdgeTable(), TableEdge},
			{net.DefaultNetworkTable(), TableNetwork},
		} {
			assert.Equal(t, DefaultAttrs, tc.table.Namespace())
			assert.Equal(t, tc.typ, tc.table.Type())
			assert.Same(t, net, tc.table.Network())
			assert.NotNil(t, tc.table.Column(ColSUID))
			assert.NotNil(t, tc.table.Column(ColName))
		}
		assert.NotNil(t, net.DefaultNodeTable().Column(ColSelected))
		assert.NotNil(t, net.DefaultEdgeTable().Column(ColSelected))
		assert.Nil(t, net.DefaultNetworkTable().Column(ColSelected))
	})

	t.Run("ExtraTables", func(t *testing.T) {
		t.Parallel()
		local := net.AddTable(LocalAttrs, TableNode, "local node")

		assert.Equal(t, LocalAttrs, local.Namespace())
		assert.Contains(t, net.Tables(), local)
	})
}

func TestNetwork_AddNodes(t *testing.T) {
	t.Parallel()

	t.Run("CreatesRowsAndFiresOnce", func(t *testing.T) {
		t.Parallel()
		firer := &captureFirer{}
		net := NewNetwork("n", firer)

		nodes := net.AddNodes("a", "b")

		require.Len(t, nodes, 2)
		assert.Equal(t, 2, net.NodeCount())
		assert.Equal(t, "a", net.Row(nodes[0]).Get(ColName))
		assert.Equal(t, false, net.Row(nodes[1]).Get(ColSelected))
		assert.Equal(t, int64(nodes[0].SUID()), net.Row(nodes[0]).Get(ColSUID))

		evts := firer.all()
		require.Len(t, evts, 1)
		added, ok := evts[0].(*NodesAdded)
		require.True(t, ok)
		assert.Same(t, net, added.Source())
		assert.Equal(t, nodes, added.Nodes)
	})

	t.Run("EmptyIsNoop", func(t *testing.T) {
		t.Parallel()
		firer := &captureFirer{}
		net := NewNetwork("n", firer)

		assert.Nil(t, net.AddNodes())
		assert.Empty(t, firer.all())
	})

	t.Run("NodeByName", func(t *testing.T) {
		t.Parallel()
		net := NewNetwork("n", nil)
		a := net.AddNode("a")

		assert.Same(t, a, net.NodeByName("a"))
		assert.Nil(t, net.NodeByName("missing"))
	})
}

func TestNetwork_AddEdge(t *testing.T) {
	t.Parallel()

	t.Run("AddsAdjacency", func(t *testing.T) {
		t.Parallel()
		net := NewNetwork("n", nil)
		a, b := net.AddNode("a"), net.AddNode("b")

		e, err := net.AddEdge(a, b, "a-b", true)

		require.NoError(t, err)
		assert.Same(t, a, e.Source())
		assert.Same(t, b, e.Target())
		assert.True(t, e.Directed())
		assert.Equal(t, []*Edge{e}, net.AdjacentEdges(a))
		assert.Equal(t, []*Edge{e}, net.AdjacentEdges(b))
		assert.Equal(t, "a-b", net.Row(e).Get(ColName))
	})

	t.Run("RejectsForeignNode", func(t *testing.T) {
		t.Parallel()
		net := NewNetwork("n", nil)
		other := NewNetwork("o", nil)
		a := net.AddNode("a")
		x := other.AddNode("x")

		_, err := net.AddEdge(a, x, "bad", false)

		assert.ErrorIs(t, err, ErrNodeNotInNetwork)
		assert.Equal(t, 0, net.EdgeCount())
	})

	t.Run("SelfLoopListedOnce", func(t *testing.T) {
		t.Parallel()
		net := NewNetwork("n", nil)
		a := net.AddNode("a")

		e, err := net.AddEdge(a, a, "loop", false)

		require.NoError(t, err)
		assert.Equal(t, []*Edge{e}, net.AdjacentEdges(a))
	})
}

func TestNetwork_RemoveNodes(t *testing.T) {
	t.Parallel()

	t.Run("CascadesEdgesBeforeNodes", func(t *testing.T) {
		t.Parallel()
		firer := &captureFirer{}
		net := NewNetwork("n", firer)
		a, b, c := net.AddNode("a"), net.AddNode("b"), net.AddNode("c")
		ab, err := net.AddEdge(a, b, "ab", true)
		require.NoError(t, err)
		_, err = net.AddEdge(b, c, "bc", true)
		require.NoError(t, err)

		var seen []string
		firer.mu.Lock()
		firer.events = nil
		firer.mu.Unlock()

		removed := net.RemoveNodes(a)

		assert.Equal(t, 1, removed)
		for _, e := range firer.all() {
			switch ev := e.(type) {
			case *AboutToRemoveEdges:
				seen = append(seen, "edges")
				assert.Equal(t, []*Edge{ab}, ev.Edges)
				assert.NotNil(t, net.Edge(ab.SUID()), "edge must still exist during about-to-remove")
			case *AboutToRemoveNodes:
				seen = append(seen, "nodes")
			}
		}
		assert.Equal(t, []string{"edges", "nodes"}, seen)
		assert.Nil(t, net.Node(a.SUID()))
		assert.Nil(t, net.Edge(ab.SUID()))
		assert.Nil(t, net.DefaultNodeTable().Row(a.SUID()))
		assert.Nil(t, net.DefaultEdgeTable().Row(ab.SUID()))
		assert.Equal(t, 1, net.EdgeCount())
	})

	t.Run("IgnoresUnknownNodes", func(t *testing.T) {
		t.Parallel()
		firer := &captureFirer{}
		net := NewNetwork("n", firer)
		other := NewNetwork("o", nil)

		assert.Equal(t, 0, net.RemoveNodes(other.AddNode("x"), nil))
		assert.Empty(t, firer.all())
	})
}

func TestNetwork_Listing(t *testing.T) {
	t.Parallel()

	net := NewNetwork("n", nil)
	nodes := net.AddNodes("c", "a", "b")

	listed := net.Nodes()

	assert.Equal(t, nodes, listed, "nodes are listed in SUID order")
	assert.Len(t, net.Edges(), 0)
}
