package viewmodel

import (
	"github.com/Benny93/vizsync/internal/events"
	"github.com/Benny93/vizsync/internal/lexicon"
)

// Payload kinds enqueued on the bus. Batches of these kinds carry the
// container view as their source.
const (
	KindNodeViewsAdded         = "viewmodel.node_views_added"
	KindEdgeViewsAdded         = "viewmodel.edge_views_added"
	KindAboutToRemoveNodeViews = "viewmodel.about_to_remove_node_views"
	KindAboutToRemoveEdgeViews = "viewmodel.about_to_remove_edge_views"
	KindColumnViewsAdded       = "viewmodel.column_views_added"
	KindColumnViewsRemoved     = "viewmodel.column_views_removed"
	KindViewChanged            = "viewmodel.view_changed"
)

// Emitter is the part of the bus a view container produces events on.
type Emitter interface {
	events.Firer
	events.PayloadSink
}

// ViewChangeRecord is the payload of a ViewChanged batch.
type ViewChangeRecord struct {
	View     Viewer
	Property *lexicon.VisualProperty
	Value    any
	Locked   bool
}

// ColumnsReordered is fired when the gravity order of a table view changes.
type ColumnsReordered struct {
	View    *TableView
	Columns []*ColumnView
}

// Source implements events.Event.
func (e *ColumnsReordered) Source() any { return e.View }

// NetworkViewAboutToBeDestroyed is fired before a network view is disposed.
type NetworkViewAboutToBeDestroyed struct {
	View *NetworkView
}

// Source implements events.Event.
func (e *NetworkViewAboutToBeDestroyed) Source() any { return e.View }

// TableViewAboutToBeDestroyed is fired before a table view is disposed.
type TableViewAboutToBeDestroyed struct {
	View *TableView
}

// Source implements events.Event.
func (e *TableViewAboutToBeDestroyed) Source() any { return e.View }

type nopEmitter struct{}

func (nopEmitter) Fire(events.Event)           {}
func (nopEmitter) AddPayload(any, string, any) {}

func emitterOrNop(e Emitter) Emitter {
	if e == nil {
		return nopEmitter{}
	}
	return e
}
