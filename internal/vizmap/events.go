package vizmap

import "github.com/Benny93/vizsync/internal/viewmodel"

// NetworkVisualStyleSet is fired when a network view switches style.
type NetworkVisualStyleSet struct {
	Manager  *VisualMappingManager
	View     *viewmodel.NetworkView
	Style    *VisualStyle
	Previous *VisualStyle
}

// Source implements events.Event.
func (e *NetworkVisualStyleSet) Source() any { return e.Manager }

// ColumnAssociatedVisualStyleSet is fired when a style association is
// created, replaced, or removed. Style is nil on removal.
type ColumnAssociatedVisualStyleSet struct {
	Manager     *TableVisualMappingManager
	Association StyleAssociation
	Previous    *VisualStyle
}

// Source implements events.Event.
func (e *ColumnAssociatedVisualStyleSet) Source() any { return e.Manager }

// ColumnVisualStyleSet is fired when the direct style of a column view
// outside the default network tables changes.
type ColumnVisualStyleSet struct {
	Manager  *TableVisualMappingManager
	View     *viewmodel.ColumnView
	Style    *VisualStyle
	Previous *VisualStyle
}

// Source implements events.Event.
func (e *ColumnVisualStyleSet) Source() any { return e.Manager }
