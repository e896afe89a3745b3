package loader

import (
	"errors"
	"fmt"
	"maps"
	"math"
	"reflect"
	"slices"

	"github.com/Benny93/vizsync/internal/model"
)

// ColDocID is the column of the default node and edge tables holding the
// document identifier of each element.
const ColDocID = "doc_id"

// Result summarizes the changes Apply made.
type Result struct {
	NodesAdded   int
	NodesRemoved int
	EdgesAdded   int
	EdgesRemoved int
}

// Changed reports whether the network structure changed.
func (r Result) Changed() bool {
	return r.NodesAdded+r.NodesRemoved+r.EdgesAdded+r.EdgesRemoved > 0
}

// Apply reconciles net with doc: elements missing from the network are
// added, elements missing from the document are removed, and names,
// selection and attributes are written. Attribute values are validated
// before the network is modified.
func Apply(doc *Document, net *model.Network) (Result, error) {
	var res Result
	if err := doc.Validate(); err != nil {
		return res, err
	}

	nodeTable, edgeTable := net.DefaultNodeTable(), net.DefaultEdgeTable()
	nodeAttrs, err := attrColumns(nodeTable, nodeAttrValues(doc))
	if err != nil {
		return res, err
	}
	edgeAttrs, err := attrColumns(edgeTable, edgeAttrValues(doc))
	if err != nil {
		return res, err
	}
	for _, t := range []*model.Table{nodeTable, edgeTable} {
		if err := ensureColumn(t, ColDocID, model.TypeString); err != nil {
			return res, err
		}
	}
	for table, cols := range map[*model.Table]map[string]model.ColumnType{nodeTable: nodeAttrs, edgeTable: edgeAttrs} {
		for _, name := range slices.Sorted(maps.Keys(cols)) {
			if err := ensureColumn(table, name, cols[name]); err != nil {
				return res, err
			}
		}
	}

	if doc.Name != "" && doc.Name != net.Name() {
		if err := net.Row(net).Set(model.ColName, doc.Name); err != nil {
			return res, fmt.Errorf("renaming network: %w", err)
		}
	}

	wantNodes := make(map[string]NodeDoc, len(doc.Nodes))
	for _, n := range doc.Nodes {
		wantNodes[n.ID] = n
	}
	wantEdges := make(map[string]EdgeDoc, len(doc.Edges))
	for _, e := range doc.Edges {
		wantEdges[e.ID] = e
	}

	// Removals first so vanished elements never receive writes.
	var staleEdges []*model.Edge
	for id, e := range edgesByDocID(net) {
		if _, ok := wantEdges[id]; !ok {
			staleEdges = append(staleEdges, e)
		}
	}
	var staleNodes []*model.Node
	for id, n := range nodesByDocID(net) {
		if _, ok := wantNodes[id]; !ok {
			staleNodes = append(staleNodes, n)
		}
	}
	res.EdgesRemoved = net.RemoveEdges(staleEdges...)
	before := net.EdgeCount()
	res.NodesRemoved = net.RemoveNodes(staleNodes...)
	res.EdgesRemoved += before - net.EdgeCount()

	nodes := nodesByDocID(net)
	var missing []NodeDoc
	for _, n := range doc.Nodes {
		if _, ok := nodes[n.ID]; !ok {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		names := make([]string, len(missing))
		for i, n := range missing {
			names[i] = n.NodeName()
		}
		ids := make(map[model.SUID]any, len(missing))
		for i, node := range net.AddNodes(names...) {
			nodes[missing[i].ID] = node
			ids[node.SUID()] = missing[i].ID
		}
		if err := nodeTable.SetValues(ColDocID, ids); err != nil {
			return res, fmt.Errorf("tagging nodes: %w", err)
		}
		res.NodesAdded = len(missing)
	}

	edges := edgesByDocID(net)
	edgeIDs := make(map[model.SUID]any)
	for _, e := range doc.Edges {
		if _, ok := edges[e.ID]; ok {
			continue
		}
		edge, err := net.AddEdge(nodes[e.Source], nodes[e.Target], e.Name, e.Directed)
		if err != nil {
			return res, fmt.Errorf("adding edge %q: %w", e.ID, err)
		}
		edges[e.ID] = edge
		edgeIDs[edge.SUID()] = e.ID
		res.EdgesAdded++
	}
	if len(edgeIDs) > 0 {
		if err := edgeTable.SetValues(ColDocID, edgeIDs); err != nil {
			return res, fmt.Errorf("tagging edges: %w", err)
		}
	}

	nodeValues := newColumnValues()
	for _, n := range doc.Nodes {
		suid := nodes[n.ID].SUID()
		row := nodeTable.Row(suid)
		nodeValues.put(row, model.ColName, n.NodeName())
		nodeValues.put(row, model.ColSelected, n.Selected)
		for k, v := range n.Attrs {
			nodeValues.put(row, k, coerce(nodeAttrs[k], v))
		}
	}
	edgeValues := newColumnValues()
	for _, e := range doc.Edges {
		row := edgeTable.Row(edges[e.ID].SUID())
		edgeValues.put(row, model.ColName, e.Name)
		edgeValues.put(row, model.ColSelected, e.Selected)
		for k, v := range e.Attrs {
			edgeValues.put(row, k, coerce(edgeAttrs[k], v))
		}
	}
	if err := nodeValues.write(nodeTable); err != nil {
		return res, err
	}
	if err := edgeValues.write(edgeTable); err != nil {
		return res, err
	}
	return res, nil
}

// columnValues collects changed cells per column so each column is written
// with a single RowsSet event.
type columnValues map[string]map[model.SUID]any

func newColumnValues() columnValues {
	return make(columnValues)
}

func (c columnValues) put(row *model.Row, column string, value any) {
	if reflect.DeepEqual(row.Get(column), value) {
		return
	}
	if c[column] == nil {
		c[column] = make(map[model.SUID]any)
	}
	c[column][row.SUID()] = value
}

func (c columnValues) write(table *model.Table) error {
	for _, column := range slices.Sorted(maps.Keys(c)) {
		if err := table.SetValues(column, c[column]); err != nil {
			return fmt.Errorf("writing %s.%s: %w", table.Title(), column, err)
		}
	}
	return nil
}

func nodesByDocID(net *model.Network) map[string]*model.Node {
	out := make(map[string]*model.Node)
	for _, n := range net.Nodes() {
		if id, ok := net.Row(n).Get(ColDocID).(string); ok {
			out[id] = n
		}
	}
	return out
}

func edgesByDocID(net *model.Network) map[string]*model.Edge {
	out := make(map[string]*model.Edge)
	for _, e := range net.Edges() {
		if id, ok := net.Row(e).Get(ColDocID).(string); ok {
			out[id] = e
		}
	}
	return out
}

func nodeAttrValues(doc *Document) map[string][]any {
	out := make(map[string][]any)
	for _, n := range doc.Nodes {
		for k, v := range n.Attrs {
			out[k] = append(out[k], v)
		}
	}
	return out
}

func edgeAttrValues(doc *Document) map[string][]any {
	out := make(map[string][]any)
	for _, e := range doc.Edges {
		for k, v := range e.Attrs {
			out[k] = append(out[k], v)
		}
	}
	return out
}

var reservedColumns = []string{model.ColSUID, model.ColName, model.ColSelected, ColDocID}

// attrColumns decides the column type of every attribute and checks the
// values against existing columns.
func attrColumns(table *model.Table, values map[string][]any) (map[string]model.ColumnType, error) {
	out := make(map[string]model.ColumnType, len(values))
	for name, vs := range values {
		if slices.Contains(reservedColumns, name) {
			return nil, fmt.Errorf("attribute %q: reserved column: %w", name, ErrInvalidDocument)
		}
		typ := inferType(vs)
		if col := table.Column(name); col != nil {
			typ = col.Type()
		}
		for _, v := range vs {
			if !typ.Accepts(coerce(typ, v)) {
				return nil, fmt.Errorf("attribute %q value %v: %w", name, v, model.ErrTypeMismatch)
			}
		}
		out[name] = typ
	}
	return out, nil
}

func inferType(values []any) model.ColumnType {
	var typ model.ColumnType
	for _, v := range values {
		var t model.ColumnType
		switch v.(type) {
		case nil:
			continue
		case float64:
			t = model.TypeFloat
		case string:
			t = model.TypeString
		case bool:
			t = model.TypeBool
		default:
			t = model.TypeAny
		}
		if typ != "" && typ != t {
			return model.TypeAny
		}
		typ = t
	}
	if typ == "" {
		return model.TypeAny
	}
	return typ
}

// coerce converts JSON numbers to int64 for integer columns.
func coerce(typ model.ColumnType, v any) any {
	if f, ok := v.(float64); ok && typ == model.TypeInt && f == math.Trunc(f) {
		return int64(f)
	}
	return v
}

func ensureColumn(table *model.Table, name string, typ model.ColumnType) error {
	if table.Column(name) != nil {
		return nil
	}
	_, err := table.CreateColumn(name, typ)
	if err != nil && !errors.Is(err, model.ErrColumnExists) {
		return fmt.Errorf("creating column %s: %w", name, err)
	}
	return nil
}
