package viewmodel

import (
	"cmp"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Benny93/vizsync/internal/lexicon"
	"github.com/Benny93/vizsync/internal/metrics"
	"github.com/Benny93/vizsync/internal/model"
)

// NetworkView is the view of one network. It owns a node view per node and
// an edge view per edge of the network, each group sharing one property
// store and lock.
type NetworkView struct {
	*View[*model.Network]

	rendererID string
	lex        lexicon.Lexicon
	emit       Emitter
	log        *logrus.Logger

	nodeStore *VPStore
	edgeStore *VPStore

	mu        sync.RWMutex
	nodeViews map[model.SUID]*NodeView
	edgeViews map[model.SUID]*EdgeView
}

// NewNetworkView creates a view of net with a view for every node and edge it
// already holds. Later model changes are applied by a NetworkModelListener.
func NewNetworkView(net *model.Network, lex lexicon.Lexicon, emit Emitter, log *logrus.Logger) *NetworkView {
	nv := &NetworkView{
		rendererID: uuid.NewString(),
		lex:        lex,
		emit:       emitterOrNop(emit),
		log:        orDiscard(log),
		nodeViews:  make(map[model.SUID]*NodeView),
		edgeViews:  make(map[model.SUID]*EdgeView),
	}

	nv.View = newView(net, newVPStore(lex, NewViewLock(), nv.log, nv.recordChanges(func(model.SUID) Viewer {
		return nv.View
	})))
	nv.nodeStore = newVPStore(lex, NewViewLock(), nv.log, nv.recordChanges(func(suid model.SUID) Viewer {
		if v := nv.NodeView(suid); v != nil {
			return v
		}
		return nil
	}))
	nv.edgeStore = newVPStore(lex, NewViewLock(), nv.log, nv.recordChanges(func(suid model.SUID) Viewer {
		if v := nv.EdgeView(suid); v != nil {
			return v
		}
		return nil
	}))

	for _, n := range net.Nodes() {
		nv.nodeViews[n.SUID()] = newView(n, nv.nodeStore)
	}
	for _, e := range net.Edges() {
		nv.edgeViews[e.SUID()] = newView(e, nv.edgeStore)
	}
	metrics.ViewsCreated.WithLabelValues("node").Add(float64(len(nv.nodeViews)))
	metrics.ViewsCreated.WithLabelValues("edge").Add(float64(len(nv.edgeViews)))
	return nv
}

func (nv *NetworkView) recordChanges(lookup func(model.SUID) Viewer) func([]Change) {
	return func(changes []Change) {
		for _, c := range changes {
			v := lookup(c.SUID)
			if v == nil {
				continue
			}
			nv.emit.AddPayload(nv, KindViewChanged, &ViewChangeRecord{
				View:     v,
				Property: c.Property,
				Value:    c.Value,
				Locked:   c.Locked,
			})
		}
	}
}

// RendererID identifies the rendering context the view was created for.
func (nv *NetworkView) RendererID() string { return nv.rendererID }

// Lexicon returns the lexicon of the view.
func (nv *NetworkView) Lexicon() lexicon.Lexicon { return nv.lex }

// NodeStore returns the store shared by all node views.
func (nv *NetworkView) NodeStore() *VPStore { return nv.nodeStore }

// EdgeStore returns the store shared by all edge views.
func (nv *NetworkView) EdgeStore() *VPStore { return nv.edgeStore }

// NodeView returns the view of the node with the given SUID, or nil.
func (nv *NetworkView) NodeView(suid model.SUID) *NodeView {
	nv.mu.RLock()
	defer nv.mu.RUnlock()
	return nv.nodeViews[suid]
}

// EdgeView returns the view of the edge with the given SUID, or nil.
func (nv *NetworkView) EdgeView(suid model.SUID) *EdgeView {
	nv.mu.RLock()
	defer nv.mu.RUnlock()
	return nv.edgeViews[suid]
}

// NodeViews returns all node views ordered by SUID.
func (nv *NetworkView) NodeViews() []*NodeView {
	nv.mu.RLock()
	defer nv.mu.RUnlock()
	return sortedViews(nv.nodeViews)
}

// EdgeViews returns all edge views ordered by SUID.
func (nv *NetworkView) EdgeViews() []*EdgeView {
	nv.mu.RLock()
	defer nv.mu.RUnlock()
	return sortedViews(nv.edgeViews)
}

// NodeViewCount returns the number of node views.
func (nv *NetworkView) NodeViewCount() int {
	nv.mu.RLock()
	defer nv.mu.RUnlock()
	return len(nv.nodeViews)
}

// EdgeViewCount returns the number of edge views.
func (nv *NetworkView) EdgeViewCount() int {
	nv.mu.RLock()
	defer nv.mu.RUnlock()
	return len(nv.edgeViews)
}

// AddNodeView creates the view of a node. It returns nil when the node
// already has a view.
func (nv *NetworkView) AddNodeView(node *model.Node) *NodeView {
	nv.mu.Lock()
	if _, ok := nv.nodeViews[node.SUID()]; ok {
		nv.mu.Unlock()
		return nil
	}
	v := newView(node, nv.nodeStore)
	nv.nodeViews[node.SUID()] = v
	nv.mu.Unlock()

	metrics.ViewsCreated.WithLabelValues("node").Inc()
	nv.emit.AddPayload(nv, KindNodeViewsAdded, v)
	return v
}

// AddEdgeView creates the view of an edge. It returns nil when the edge
// already has a view.
func (nv *NetworkView) AddEdgeView(edge *model.Edge) *EdgeView {
	nv.mu.Lock()
	if _, ok := nv.edgeViews[edge.SUID()]; ok {
		nv.mu.Unlock()
		return nil
	}
	v := newView(edge, nv.edgeStore)
	nv.edgeViews[edge.SUID()] = v
	nv.mu.Unlock()

	metrics.ViewsCreated.WithLabelValues("edge").Inc()
	nv.emit.AddPayload(nv, KindEdgeViewsAdded, v)
	return v
}

// RemoveNodeView drops the view of a node and its stored values. It returns
// the removed view, or nil when there was none. Values are dropped before a
// new view of the same node can be added.
func (nv *NetworkView) RemoveNodeView(node *model.Node) *NodeView {
	nv.mu.Lock()
	v, ok := nv.nodeViews[node.SUID()]
	if ok {
		delete(nv.nodeViews, node.SUID())
		nv.nodeStore.Remove(node.SUID())
	}
	nv.mu.Unlock()
	if !ok {
		return nil
	}

	nv.emit.AddPayload(nv, KindAboutToRemoveNodeViews, v)
	metrics.ViewsRemoved.WithLabelValues("node").Inc()
	return v
}

// RemoveEdgeView drops the view of an edge and its stored values.
func (nv *NetworkView) RemoveEdgeView(edge *model.Edge) *EdgeView {
	nv.mu.Lock()
	v, ok := nv.edgeViews[edge.SUID()]
	if ok {
		delete(nv.edgeViews, edge.SUID())
		nv.edgeStore.Remove(edge.SUID())
	}
	nv.mu.Unlock()
	if !ok {
		return nil
	}

	nv.emit.AddPayload(nv, KindAboutToRemoveEdgeViews, v)
	metrics.ViewsRemoved.WithLabelValues("edge").Inc()
	return v
}

// ClearStyleValues drops the style layer of the network view and every node
// and edge view, leaving bypass values in place.
func (nv *NetworkView) ClearStyleValues() int {
	n := nv.View.ClearStyleValues()
	for _, v := range nv.NodeViews() {
		n += v.ClearStyleValues()
	}
	for _, v := range nv.EdgeViews() {
		n += v.ClearStyleValues()
	}
	return n
}

func sortedViews[T model.Identifiable](m map[model.SUID]*View[T]) []*View[T] {
	out := make([]*View[T], 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	slices.SortFunc(out, func(a, b *View[T]) int {
		return cmp.Compare(a.SUID(), b.SUID())
	})
	return out
}
