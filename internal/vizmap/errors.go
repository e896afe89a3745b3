package vizmap

import "errors"

// Errors returned by the style managers.
var (
	ErrNoNetworkViews        = errors.New("column belongs to a default network table whose network has no network views")
	ErrAmbiguousNetworkStyle = errors.New("network has multiple views with different styles; use SetAssociatedVisualStyle")
	ErrNilNetworkStyle       = errors.New("network style is nil")
	ErrUnsupportedTableType  = errors.New("table type must be node or edge")
	ErrEmptyColumnName       = errors.New("column name is empty")
	ErrNilColumnView         = errors.New("column view is nil")
	ErrNilStyle              = errors.New("visual style is nil")
	ErrDefaultStyle          = errors.New("default visual style cannot be removed")
)
