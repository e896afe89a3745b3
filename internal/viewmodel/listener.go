package viewmodel

import (
	"github.com/sirupsen/logrus"

	"github.com/Benny93/vizsync/internal/events"
	"github.com/Benny93/vizsync/internal/lexicon"
	"github.com/Benny93/vizsync/internal/metrics"
	"github.com/Benny93/vizsync/internal/model"
)

// NetworkModelListener keeps one network view in step with its network.
// Events from other networks and tables are ignored. Selection is mirrored
// from the model onto the views, never the other way.
type NetworkModelListener struct {
	view *NetworkView
	log  *logrus.Logger
}

// NewNetworkModelListener creates a listener for view.
func NewNetworkModelListener(view *NetworkView, log *logrus.Logger) *NetworkModelListener {
	return &NetworkModelListener{view: view, log: orDiscard(log)}
}

// Handle implements events.Listener.
func (l *NetworkModelListener) Handle(e events.Event) {
	net := l.view.Model()

	switch e := e.(type) {
	case *model.NodesAdded:
		if e.Network != net {
			return
		}
		for _, n := range e.Nodes {
			l.view.AddNodeView(n)
		}
	case *model.EdgesAdded:
		if e.Network != net {
			return
		}
		for _, edge := range e.Edges {
			l.view.AddEdgeView(edge)
		}
	case *model.AboutToRemoveNodes:
		if e.Network != net {
			return
		}
		for _, n := range e.Nodes {
			l.view.RemoveNodeView(n)
		}
	case *model.AboutToRemoveEdges:
		if e.Network != net {
			return
		}
		for _, edge := range e.Edges {
			l.view.RemoveEdgeView(edge)
		}
	case *model.RowsSet:
		l.mirrorSelection(e)
	}
}

func (l *NetworkModelListener) mirrorSelection(e *model.RowsSet) {
	if !e.ContainsColumn(model.ColSelected) {
		return
	}

	net := l.view.Model()
	switch e.Table {
	case net.DefaultNodeTable():
		for _, rec := range e.ColumnRecords(model.ColSelected) {
			v := l.view.NodeView(rec.Row.SUID())
			if v == nil {
				l.log.WithField("suid", rec.Row.SUID()).Debug("no node view for selected row")
				continue
			}
			v.SetLockedValue(lexicon.NodeSelected, selectedValue(rec.Value))
			metrics.SelectionMirrored.WithLabelValues("node").Inc()
		}
	case net.DefaultEdgeTable():
		for _, rec := range e.ColumnRecords(model.ColSelected) {
			v := l.view.EdgeView(rec.Row.SUID())
			if v == nil {
				l.log.WithField("suid", rec.Row.SUID()).Debug("no edge view for selected row")
				continue
			}
			v.SetLockedValue(lexicon.EdgeSelected, selectedValue(rec.Value))
			metrics.SelectionMirrored.WithLabelValues("edge").Inc()
		}
	}
}

// selectedValue treats a cleared cell as unselected.
func selectedValue(v any) bool {
	b, _ := v.(bool)
	return b
}

// TableModelListener keeps the column views of one table view in step with
// its table.
type TableModelListener struct {
	view *TableView
}

// NewTableModelListener creates a listener for view.
func NewTableModelListener(view *TableView) *TableModelListener {
	return &TableModelListener{view: view}
}

// Handle implements events.Listener.
func (l *TableModelListener) Handle(e events.Event) {
	switch e := e.(type) {
	case *model.ColumnCreated:
		if e.Table == l.view.Model() {
			l.view.AddColumnView(e.Column)
		}
	case *model.ColumnDeleted:
		if e.Table == l.view.Model() {
			l.view.RemoveColumnView(e.Column)
		}
	}
}
