package model

import (
	"cmp"
	"fmt"
	"slices"
	"sync"

	"github.com/Benny93/vizsync/internal/events"
)

// Node is a vertex of a network.
type Node struct {
	suid SUID
}

// SUID implements Identifiable.
func (n *Node) SUID() SUID { return n.suid }

// Edge connects two nodes of the same network.
type Edge struct {
	suid     SUID
	source   *Node
	target   *Node
	directed bool
}

// SUID implements Identifiable.
func (e *Edge) SUID() SUID { return e.suid }

// Source returns the source node.
func (e *Edge) Source() *Node { return e.source }

// Target returns the target node.
func (e *Edge) Target() *Node { return e.target }

// Directed reports whether the edge is directed.
func (e *Edge) Directed() bool { return e.directed }

// Network is an in-memory graph of nodes and edges together with the
// attribute tables describing them.
//
// Nodes and edges are keyed by SUID. Removing a node cascades to its
// adjacent edges. Events are fired outside the network lock so listeners
// may query the network freely.
type Network struct {
	suid  SUID
	firer events.Firer

	mu    sync.RWMutex
	nodes map[SUID]*Node
	edges map[SUID]*Edge

	// Adjacency indexes, kept in sync by add/remove helpers.
	outgoing map[SUID]map[SUID]*Edge
	incoming map[SUID]map[SUID]*Edge

	nodeTable    *Table
	edgeTable    *Table
	networkTable *Table

	tmu    sync.RWMutex
	tables []*Table
}

// NewNetwork creates an empty network with its default tables.
// A nil firer disables events.
func NewNetwork(name string, firer events.Firer) *Network {
	n := &Network{
		suid:     NextSUID(),
		firer:    firer,
		nodes:    make(map[SUID]*Node),
		edges:    make(map[SUID]*Edge),
		outgoing: make(map[SUID]map[SUID]*Edge),
		incoming: make(map[SUID]map[SUID]*Edge),
	}

	n.nodeTable = n.newDefaultTable("node", TableNode, true)
	n.edgeTable = n.newDefaultTable("edge", TableEdge, true)
	n.networkTable = n.newDefaultTable("network", TableNetwork, false)
	n.tables = []*Table{n.nodeTable, n.edgeTable, n.networkTable}

	row := n.networkTable.CreateRow(n.suid)
	row.values[ColName] = name
	return n
}

func (n *Network) newDefaultTable(kind string, typ TableType, selectable bool) *Table {
	t := newTable("default "+kind, DefaultAttrs, typ, n, n.firer)
	t.addColumnLocked(ColName, TypeString)
	if selectable {
		t.addColumnLocked(ColSelected, TypeBool)
	}
	return t
}

// SUID implements Identifiable.
func (n *Network) SUID() SUID { return n.suid }

// Name returns the network name stored in the default network table.
func (n *Network) Name() string {
	name, _ := n.networkTable.Row(n.suid).Get(ColName).(string)
	return name
}

// DefaultNodeTable returns the node table in the default namespace.
func (n *Network) DefaultNodeTable() *Table { return n.nodeTable }

// DefaultEdgeTable returns the edge table in the default namespace.
func (n *Network) DefaultEdgeTable() *Table { return n.edgeTable }

// DefaultNetworkTable returns the network table in the default namespace.
func (n *Network) DefaultNetworkTable() *Table { return n.networkTable }

// AddTable attaches an extra table to the network.
func (n *Network) AddTable(namespace string, typ TableType, title string) *Table {
	t := newTable(title, namespace, typ, n, n.firer)

	n.tmu.Lock()
	n.tables = append(n.tables, t)
	n.tmu.Unlock()
	return t
}

// Tables returns every table of the network, default tables first.
func (n *Network) Tables() []*Table {
	n.tmu.RLock()
	defer n.tmu.RUnlock()
	return slices.Clone(n.tables)
}

func (n *Network) fire(e events.Event) {
	if n.firer != nil {
		n.firer.Fire(e)
	}
}

// AddNode adds a single named node and fires NodesAdded.
func (n *Network) AddNode(name string) *Node {
	return n.AddNodes(name)[0]
}

// AddNodes adds one node per name and fires a single NodesAdded event.
func (n *Network) AddNodes(names ...string) []*Node {
	if len(names) == 0 {
		return nil
	}

	added := make([]*Node, 0, len(names))
	n.mu.Lock()
	for range names {
		node := &Node{suid: NextSUID()}
		n.nodes[node.suid] = node
		added = append(added, node)
	}
	n.mu.Unlock()

	n.nodeTable.mu.Lock()
	for i, node := range added {
		row := n.nodeTable.createRowLocked(node.suid)
		row.values[ColName] = names[i]
		row.values[ColSelected] = false
	}
	n.nodeTable.mu.Unlock()

	n.fire(&NodesAdded{Network: n, Nodes: added})
	return added
}

// AddEdge connects two nodes of this network and fires EdgesAdded.
func (n *Network) AddEdge(source, target *Node, name string, directed bool) (*Edge, error) {
	n.mu.Lock()
	if !n.containsNodeLocked(source) || !n.containsNodeLocked(target) {
		n.mu.Unlock()
		return nil, fmt.Errorf("adding edge %q: %w", name, ErrNodeNotInNetwork)
	}

	edge := &Edge{suid: NextSUID(), source: source, target: target, directed: directed}
	n.edges[edge.suid] = edge
	if n.outgoing[source.suid] == nil {
		n.outgoing[source.suid] = make(map[SUID]*Edge)
	}
	n.outgoing[source.suid][edge.suid] = edge
	if n.incoming[target.suid] == nil {
		n.incoming[target.suid] = make(map[SUID]*Edge)
	}
	n.incoming[target.suid][edge.suid] = edge
	n.mu.Unlock()

	n.edgeTable.mu.Lock()
	row := n.edgeTable.createRowLocked(edge.suid)
	row.values[ColName] = name
	row.values[ColSelected] = false
	n.edgeTable.mu.Unlock()

	n.fire(&EdgesAdded{Network: n, Edges: []*Edge{edge}})
	return edge, nil
}

func (n *Network) containsNodeLocked(node *Node) bool {
	if node == nil {
		return false
	}
	existing, ok := n.nodes[node.suid]
	return ok && existing == node
}

// RemoveNodes removes the given nodes and their adjacent edges.
// AboutToRemoveEdges fires for the adjacent edges first, then
// AboutToRemoveNodes, both before anything is deleted. Nodes that are not
// part of the network are ignored. Returns the number of nodes removed.
func (n *Network) RemoveNodes(nodes ...*Node) int {
	n.mu.RLock()
	targets := make([]*Node, 0, len(nodes))
	seen := make(map[SUID]bool)
	adjacent := make(map[SUID]*Edge)
	for _, node := range nodes {
		if !n.containsNodeLocked(node) || seen[node.suid] {
			continue
		}
		seen[node.suid] = true
		targets = append(targets, node)
		for id, e := range n.outgoing[node.suid] {
			adjacent[id] = e
		}
		for id, e := range n.incoming[node.suid] {
			adjacent[id] = e
		}
	}
	n.mu.RUnlock()

	if len(targets) == 0 {
		return 0
	}

	if len(adjacent) > 0 {
		edges := make([]*Edge, 0, len(adjacent))
		for _, e := range adjacent {
			edges = append(edges, e)
		}
		slices.SortFunc(edges, func(a, b *Edge) int { return cmp.Compare(a.suid, b.suid) })
		n.RemoveEdges(edges...)
	}

	n.fire(&AboutToRemoveNodes{Network: n, Nodes: targets})

	keys := make([]SUID, 0, len(targets))
	n.mu.Lock()
	for _, node := range targets {
		delete(n.nodes, node.suid)
		delete(n.outgoing, node.suid)
		delete(n.incoming, node.suid)
		keys = append(keys, node.suid)
	}
	n.mu.Unlock()

	n.nodeTable.DeleteRows(keys...)
	return len(targets)
}

// RemoveEdges removes the given edges, firing AboutToRemoveEdges first.
// Returns the number of edges removed.
func (n *Network) RemoveEdges(edges ...*Edge) int {
	n.mu.RLock()
	targets := make([]*Edge, 0, len(edges))
	seen := make(map[SUID]bool)
	for _, e := range edges {
		if e == nil || seen[e.suid] {
			continue
		}
		if existing, ok := n.edges[e.suid]; ok && existing == e {
			seen[e.suid] = true
			targets = append(targets, e)
		}
	}
	n.mu.RUnlock()

	if len(targets) == 0 {
		return 0
	}

	n.fire(&AboutToRemoveEdges{Network: n, Edges: targets})

	keys := make([]SUID, 0, len(targets))
	n.mu.Lock()
	for _, e := range targets {
		delete(n.edges, e.suid)
		delete(n.outgoing[e.source.suid], e.suid)
		delete(n.incoming[e.target.suid], e.suid)
		keys = append(keys, e.suid)
	}
	n.mu.Unlock()

	n.edgeTable.DeleteRows(keys...)
	return len(targets)
}

// Node returns the node with the given SUID, or nil.
func (n *Network) Node(suid SUID) *Node {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.nodes[suid]
}

// Edge returns the edge with the given SUID, or nil.
func (n *Network) Edge(suid SUID) *Edge {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.edges[suid]
}

// Nodes returns every node ordered by SUID.
func (n *Network) Nodes() []*Node {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]*Node, 0, len(n.nodes))
	for _, node := range n.nodes {
		out = append(out, node)
	}
	slices.SortFunc(out, func(a, b *Node) int { return cmp.Compare(a.suid, b.suid) })
	return out
}

// Edges returns every edge ordered by SUID.
func (n *Network) Edges() []*Edge {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]*Edge, 0, len(n.edges))
	for _, e := range n.edges {
		out = append(out, e)
	}
	slices.SortFunc(out, func(a, b *Edge) int { return cmp.Compare(a.suid, b.suid) })
	return out
}

// NodeCount returns the number of nodes.
func (n *Network) NodeCount() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.nodes)
}

// EdgeCount returns the number of edges.
func (n *Network) EdgeCount() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.edges)
}

// AdjacentEdges returns the edges touching node, ordered by SUID.
func (n *Network) AdjacentEdges(node *Node) []*Edge {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if node == nil {
		return nil
	}

	var out []*Edge
	for _, e := range n.outgoing[node.suid] {
		out = append(out, e)
	}
	for _, e := range n.incoming[node.suid] {
		if e.source != e.target {
			out = append(out, e)
		}
	}
	slices.SortFunc(out, func(a, b *Edge) int { return cmp.Compare(a.suid, b.suid) })
	return out
}

// NodeByName returns the first node whose default-table name matches.
func (n *Network) NodeByName(name string) *Node {
	for _, row := range n.nodeTable.MatchingRows(ColName, name) {
		if node := n.Node(row.SUID()); node != nil {
			return node
		}
	}
	return nil
}

// Row returns the default-table row of a node, edge, or the network itself.
func (n *Network) Row(el Identifiable) *Row {
	switch el.(type) {
	case *Node:
		return n.nodeTable.Row(el.SUID())
	case *Edge:
		return n.edgeTable.Row(el.SUID())
	case *Network:
		return n.networkTable.Row(el.SUID())
	default:
		return nil
	}
}
