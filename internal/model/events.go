package model

// NodesAdded is fired after nodes become part of a network.
type NodesAdded struct {
	Network *Network
	Nodes   []*Node
}

// Source implements events.Event.
func (e *NodesAdded) Source() any { return e.Network }

// EdgesAdded is fired after edges become part of a network.
type EdgesAdded struct {
	Network *Network
	Edges   []*Edge
}

// Source implements events.Event.
func (e *EdgesAdded) Source() any { return e.Network }

// AboutToRemoveNodes is fired while the nodes are still part of the network.
type AboutToRemoveNodes struct {
	Network *Network
	Nodes   []*Node
}

// Source implements events.Event.
func (e *AboutToRemoveNodes) Source() any { return e.Network }

// AboutToRemoveEdges is fired while the edges are still part of the network.
type AboutToRemoveEdges struct {
	Network *Network
	Edges   []*Edge
}

// Source implements events.Event.
func (e *AboutToRemoveEdges) Source() any { return e.Network }

// RowSetRecord describes one cell write.
type RowSetRecord struct {
	Row    *Row
	Column string
	Value  any
}

// RowsSet is fired after one or more cells of a table were written.
type RowsSet struct {
	Table   *Table
	Records []RowSetRecord
}

// Source implements events.Event.
func (e *RowsSet) Source() any { return e.Table }

// ContainsColumn reports whether any record touches the named column.
func (e *RowsSet) ContainsColumn(column string) bool {
	for _, r := range e.Records {
		if r.Column == column {
			return true
		}
	}
	return false
}

// ColumnRecords returns the records for the named column.
func (e *RowsSet) ColumnRecords(column string) []RowSetRecord {
	var out []RowSetRecord
	for _, r := range e.Records {
		if r.Column == column {
			out = append(out, r)
		}
	}
	return out
}

// ColumnCreated is fired after a column is added to a table.
type ColumnCreated struct {
	Table  *Table
	Column *Column
}

// Source implements events.Event.
func (e *ColumnCreated) Source() any { return e.Table }

// ColumnDeleted is fired after a column is removed from a table.
type ColumnDeleted struct {
	Table  *Table
	Column *Column
}

// Source implements events.Event.
func (e *ColumnDeleted) Source() any { return e.Table }
