package viewmodel

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Benny93/vizsync/internal/events"
	"github.com/Benny93/vizsync/internal/lexicon"
	"github.com/Benny93/vizsync/internal/model"
)

type recorder struct {
	mu  sync.Mutex
	all []events.Event
}

func (r *recorder) Handle(e events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.all = append(r.all, e)
}

func (r *recorder) batches(kind string) []*events.Batch {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*events.Batch
	for _, e := range r.all {
		if b, ok := e.(*events.Batch); ok && b.Kind == kind {
			out = append(out, b)
		}
	}
	return out
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.all = nil
}

func setupNetwork(t *testing.T) (*events.Bus, *model.Network, *NetworkView, *recorder) {
	t.Helper()
	bus := events.NewBus(nil)
	net := model.NewNetwork("net", bus)
	mgr := NewNetworkViewManager(bus, lexicon.Basic(), nil)
	nv := mgr.CreateNetworkView(net)
	rec := &recorder{}
	bus.Subscribe(rec)
	return bus, net, nv, rec
}

func TestNetworkView_ExistingElements(t *testing.T) {
	t.Parallel()

	net := model.NewNetwork("net", nil)
	a, b := net.AddNode("a"), net.AddNode("b")
	e, err := net.AddEdge(a, b, "a-b", true)
	require.NoError(t, err)

	nv := NewNetworkView(net, lexicon.Basic(), nil, nil)

	assert.Equal(t, 2, nv.NodeViewCount())
	assert.Equal(t, 1, nv.EdgeViewCount())
	assert.Same(t, e, nv.EdgeView(e.SUID()).Model())
	assert.NotEmpty(t, nv.RendererID())
	assert.Equal(t, []model.SUID{a.SUID(), b.SUID()}, []model.SUID{nv.NodeViews()[0].SUID(), nv.NodeViews()[1].SUID()})
}

func TestNetworkView_Structure(t *testing.T) {
	t.Parallel()

	t.Run("NodesAddedCreatesViews", func(t *testing.T) {
		t.Parallel()
		bus, net, nv, rec := setupNetwork(t)

		nodes := net.AddNodes("a", "b")
		for _, n := range nodes {
			require.NotNil(t, nv.NodeView(n.SUID()))
			assert.Same(t, n, nv.NodeView(n.SUID()).Model())
		}

		bus.Flush()
		added := rec.batches(KindNodeViewsAdded)
		require.Len(t, added, 1)
		assert.Same(t, nv, added[0].Source())
		assert.Len(t, events.Payloads[*NodeView](added[0]), 2)
	})

	t.Run("DuplicateAddIsIgnored", func(t *testing.T) {
		t.Parallel()
		bus, net, nv, rec := setupNetwork(t)
		n := net.AddNode("a")
		bus.Flush()
		rec.reset()

		assert.Nil(t, nv.AddNodeView(n))
		bus.Flush()
		assert.Empty(t, rec.batches(KindNodeViewsAdded))
	})

	t.Run("AddThenRemoveRoundTrips", func(t *testing.T) {
		t.Parallel()
		bus, net, nv, rec := setupNetwork(t)
		keep := net.AddNode("keep")
		before := nv.NodeViews()

		n := net.AddNode("tmp")
		net.RemoveNodes(n)

		assert.Equal(t, before, nv.NodeViews())
		assert.Nil(t, nv.NodeView(n.SUID()))
		assert.NotNil(t, nv.NodeView(keep.SUID()))

		bus.Flush()
		removed := rec.batches(KindAboutToRemoveNodeViews)
		require.Len(t, removed, 1)
		assert.Equal(t, n.SUID(), events.Payloads[*NodeView](removed[0])[0].SUID())
	})

	t.Run("RemovalDropsStoredValues", func(t *testing.T) {
		t.Parallel()
		_, net, nv, _ := setupNetwork(t)
		n := net.AddNode("a")
		nv.NodeView(n.SUID()).SetLockedValue(lexicon.NodeSize, 80.0)

		net.RemoveNodes(n)

		assert.False(t, nv.NodeStore().IsSet(n.SUID(), lexicon.NodeSize))
	})

	t.Run("ReaddedViewKeepsNewValues", func(t *testing.T) {
		t.Parallel()
		_, net, nv, _ := setupNetwork(t)
		n := net.AddNode("a")

		for i := range 200 {
			var wg sync.WaitGroup
			var readded bool
			wg.Add(2)
			go func() {
				defer wg.Done()
				nv.RemoveNodeView(n)
			}()
			go func() {
				defer wg.Done()
				if v := nv.AddNodeView(n); v != nil {
					readded = true
					v.SetLockedValue(lexicon.NodeSize, float64(i))
				}
			}()
			wg.Wait()

			if readded && nv.NodeView(n.SUID()) != nil {
				require.Equal(t, float64(i), nv.NodeStore().Get(n.SUID(), lexicon.NodeSize), "iteration %d", i)
			}
			nv.RemoveNodeView(n)
			nv.AddNodeView(n)
		}
	})

	t.Run("NodeRemovalCascadesToEdges", func(t *testing.T) {
		t.Parallel()
		_, net, nv, _ := setupNetwork(t)
		a, b := net.AddNode("a"), net.AddNode("b")
		e, err := net.AddEdge(a, b, "", false)
		require.NoError(t, err)
		require.NotNil(t, nv.EdgeView(e.SUID()))

		net.RemoveNodes(a)

		assert.Nil(t, nv.EdgeView(e.SUID()))
		assert.Equal(t, 0, nv.EdgeViewCount())
		assert.Equal(t, 1, nv.NodeViewCount())
	})

	t.Run("IgnoresOtherNetworks", func(t *testing.T) {
		t.Parallel()
		bus, _, nv, _ := setupNetwork(t)
		other := model.NewNetwork("other", bus)

		n := other.AddNode("x")
		require.NoError(t, other.Row(n).Set(model.ColSelected, true))

		assert.Equal(t, 0, nv.NodeViewCount())
		assert.Nil(t, nv.NodeView(n.SUID()))
	})
}

func TestNetworkView_SelectionMirroring(t *testing.T) {
	t.Parallel()

	t.Run("NodeSelection", func(t *testing.T) {
		t.Parallel()
		_, net, nv, _ := setupNetwork(t)
		n := net.AddNode("a")
		v := nv.NodeView(n.SUID())

		require.NoError(t, net.Row(n).Set(model.ColSelected, true))
		assert.Equal(t, true, v.VisualProperty(lexicon.NodeSelected))
		assert.True(t, v.IsValueLocked(lexicon.NodeSelected))

		require.NoError(t, net.Row(n).Set(model.ColSelected, false))
		assert.Equal(t, false, v.VisualProperty(lexicon.NodeSelected))
	})

	t.Run("EdgeSelection", func(t *testing.T) {
		t.Parallel()
		_, net, nv, _ := setupNetwork(t)
		a, b := net.AddNode("a"), net.AddNode("b")
		e, err := net.AddEdge(a, b, "", true)
		require.NoError(t, err)

		require.NoError(t, net.Row(e).Set(model.ColSelected, true))

		assert.Equal(t, true, nv.EdgeView(e.SUID()).VisualProperty(lexicon.EdgeSelected))
		assert.Equal(t, false, nv.NodeView(a.SUID()).VisualProperty(lexicon.NodeSelected))
	})

	t.Run("OtherColumnsAreIgnored", func(t *testing.T) {
		t.Parallel()
		_, net, nv, _ := setupNetwork(t)
		n := net.AddNode("a")

		require.NoError(t, net.Row(n).Set(model.ColName, "renamed"))

		assert.False(t, nv.NodeView(n.SUID()).IsSet(lexicon.NodeSelected))
	})

	t.Run("MissingViewIsSilent", func(t *testing.T) {
		t.Parallel()
		bus := events.NewBus(nil)
		net := model.NewNetwork("net", nil)
		nv := NewNetworkView(net, lexicon.Basic(), bus, nil)
		n := net.AddNode("late")
		l := NewNetworkModelListener(nv, nil)

		l.Handle(&model.RowsSet{
			Table:   net.DefaultNodeTable(),
			Records: []model.RowSetRecord{{Row: net.Row(n), Column: model.ColSelected, Value: true}},
		})

		assert.Nil(t, nv.NodeView(n.SUID()))
		assert.Zero(t, bus.Pending())
	})
}

func TestNetworkView_ViewChangedBatches(t *testing.T) {
	t.Parallel()

	bus, net, nv, rec := setupNetwork(t)
	nodes := net.AddNodes("a", "b")
	bus.Flush()
	rec.reset()

	nv.NodeView(nodes[0].SUID()).SetVisualProperty(lexicon.NodeSize, 50.0)
	nv.NodeView(nodes[1].SUID()).SetLockedValue(lexicon.NodeFillColor, "#000000")
	nv.NodeView(nodes[1].SUID()).SetLockedValue(lexicon.NodeFillColor, "#000000")
	nv.SetVisualProperty(lexicon.NetworkTitle, "title")
	bus.Flush()

	batches := rec.batches(KindViewChanged)
	require.Len(t, batches, 1)
	records := events.Payloads[*ViewChangeRecord](batches[0])
	require.Len(t, records, 3)
	assert.True(t, records[0].View.(*NodeView).Equal(nodes[0]))
	assert.Equal(t, 50.0, records[0].Value)
	assert.False(t, records[0].Locked)
	assert.True(t, records[1].Locked)
	assert.Same(t, nv.View, records[2].View)
}

func TestNetworkView_ClearStyleValues(t *testing.T) {
	t.Parallel()

	_, net, nv, _ := setupNetwork(t)
	n := net.AddNode("a")
	v := nv.NodeView(n.SUID())
	v.SetVisualProperty(lexicon.NodeSize, 50.0)
	v.SetLockedValue(lexicon.NodeLabel, "pinned")
	nv.SetVisualProperty(lexicon.NetworkBackgroundPaint, "#000000")

	assert.Equal(t, 2, nv.ClearStyleValues())
	assert.Equal(t, 35.0, v.VisualProperty(lexicon.NodeSize))
	assert.Equal(t, "pinned", v.VisualProperty(lexicon.NodeLabel))
}

func TestView_Equal(t *testing.T) {
	t.Parallel()

	net := model.NewNetwork("net", nil)
	n := net.AddNode("a")
	first := NewNetworkView(net, lexicon.Basic(), nil, nil)
	second := NewNetworkView(net, lexicon.Basic(), nil, nil)

	assert.NotSame(t, first.NodeView(n.SUID()), second.NodeView(n.SUID()))
	assert.True(t, first.NodeView(n.SUID()).Equal(second.NodeView(n.SUID())))
	assert.True(t, first.NodeView(n.SUID()).Equal(n))
	assert.False(t, first.NodeView(n.SUID()).Equal(nil))
}

func TestNetworkViewManager(t *testing.T) {
	t.Parallel()

	bus := events.NewBus(nil)
	net := model.NewNetwork("net", bus)
	mgr := NewNetworkViewManager(bus, lexicon.Basic(), nil)
	rec := &recorder{}
	bus.Subscribe(rec)

	first := mgr.CreateNetworkView(net)
	second := mgr.CreateNetworkView(net)
	listeners := bus.ListenerCount()
	mgr.AddNetworkView(first)

	assert.Equal(t, listeners, bus.ListenerCount())
	assert.Equal(t, []*NetworkView{first, second}, mgr.NetworkViews(net))
	assert.Empty(t, mgr.NetworkViews(model.NewNetwork("other", nil)))

	require.True(t, mgr.DestroyNetworkView(first))
	assert.False(t, mgr.DestroyNetworkView(first))
	assert.Equal(t, []*NetworkView{second}, mgr.AllNetworkViews())
	assert.Equal(t, listeners-1, bus.ListenerCount())

	rec.mu.Lock()
	require.Len(t, rec.all, 1)
	assert.Same(t, first, rec.all[0].Source())
	rec.mu.Unlock()

	n := net.AddNode("a")
	assert.Nil(t, first.NodeView(n.SUID()))
	assert.NotNil(t, second.NodeView(n.SUID()))
}
