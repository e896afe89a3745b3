package lexicon

// Table view modes stored in TableViewMode.
const (
	ModeAuto     = "auto"
	ModeAll      = "all"
	ModeSelected = "selected"
)

// Built-in visual properties.
var (
	NodeSelected  = &VisualProperty{ID: "NODE_SELECTED", DisplayName: "Node Selected", Target: TargetNode, Default: false}
	NodeVisible   = &VisualProperty{ID: "NODE_VISIBLE", DisplayName: "Node Visible", Target: TargetNode, Default: true}
	NodeFillColor = &VisualProperty{ID: "NODE_FILL_COLOR", DisplayName: "Node Fill Color", Target: TargetNode, Default: "#89D0F5"}
	NodeSize      = &VisualProperty{ID: "NODE_SIZE", DisplayName: "Node Size", Target: TargetNode, Default: 35.0}
	NodeLabel     = &VisualProperty{ID: "NODE_LABEL", DisplayName: "Node Label", Target: TargetNode, Default: ""}

	EdgeSelected = &VisualProperty{ID: "EDGE_SELECTED", DisplayName: "Edge Selected", Target: TargetEdge, Default: false}
	EdgeVisible  = &VisualProperty{ID: "EDGE_VISIBLE", DisplayName: "Edge Visible", Target: TargetEdge, Default: true}
	EdgePaint    = &VisualProperty{ID: "EDGE_PAINT", DisplayName: "Edge Paint", Target: TargetEdge, Default: "#848484"}
	EdgeWidth    = &VisualProperty{ID: "EDGE_WIDTH", DisplayName: "Edge Width", Target: TargetEdge, Default: 2.0}
	EdgeLabel    = &VisualProperty{ID: "EDGE_LABEL", DisplayName: "Edge Label", Target: TargetEdge, Default: ""}

	NetworkTitle           = &VisualProperty{ID: "NETWORK_TITLE", DisplayName: "Network Title", Target: TargetNetwork, Default: ""}
	NetworkBackgroundPaint = &VisualProperty{ID: "NETWORK_BACKGROUND_PAINT", DisplayName: "Network Background Paint", Target: TargetNetwork, Default: "#FFFFFF"}

	ColumnGravity = &VisualProperty{ID: "COLUMN_GRAVITY", DisplayName: "Column Gravity", Target: TargetColumn, Default: 0.0}
	ColumnVisible = &VisualProperty{ID: "COLUMN_VISIBLE", DisplayName: "Column Visible", Target: TargetColumn, Default: true}
	ColumnFormat  = &VisualProperty{ID: "COLUMN_FORMAT", DisplayName: "Column Format", Target: TargetColumn, Default: ""}
	ColumnWidth   = &VisualProperty{ID: "COLUMN_WIDTH", DisplayName: "Column Width", Target: TargetColumn, Default: 100.0}

	CellBackgroundPaint = &VisualProperty{ID: "CELL_BACKGROUND_PAINT", DisplayName: "Cell Background Paint", Target: TargetCell, Default: "#FFFFFF"}
	CellTextColor       = &VisualProperty{ID: "CELL_TEXT_COLOR", DisplayName: "Cell Text Color", Target: TargetCell, Default: "#000000"}

	TableViewMode  = &VisualProperty{ID: "TABLE_VIEW_MODE", DisplayName: "Table View Mode", Target: TargetTable, Default: ModeAuto}
	TableRowHeight = &VisualProperty{ID: "TABLE_ROW_HEIGHT", DisplayName: "Table Row Height", Target: TargetTable, Default: 16.0}
)

var basic = NewRegistry(
	NodeSelected, NodeVisible, NodeFillColor, NodeSize, NodeLabel,
	EdgeSelected, EdgeVisible, EdgePaint, EdgeWidth, EdgeLabel,
	NetworkTitle, NetworkBackgroundPaint,
	ColumnGravity, ColumnVisible, ColumnFormat, ColumnWidth,
	CellBackgroundPaint, CellTextColor,
	TableViewMode, TableRowHeight,
)

// Basic returns the built-in lexicon shared by network and table views.
func Basic() Lexicon {
	return basic
}
