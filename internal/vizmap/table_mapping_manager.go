package vizmap

import (
	"cmp"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/Benny93/vizsync/internal/events"
	"github.com/Benny93/vizsync/internal/metrics"
	"github.com/Benny93/vizsync/internal/model"
	"github.com/Benny93/vizsync/internal/viewmodel"
)

// Resolution is the outcome of looking up the network style that governs a
// column view.
type Resolution int

const (
	// ResolutionValid means exactly one network style applies.
	ResolutionValid Resolution = iota
	// ResolutionNoViews means the column's network has no views.
	ResolutionNoViews
	// ResolutionTooManyViews means the network's views use different styles.
	ResolutionTooManyViews
	// ResolutionNotNetworkTable means the column is outside the default node
	// and edge tables of a network.
	ResolutionNotNetworkTable
)

// String implements fmt.Stringer.
func (r Resolution) String() string {
	switch r {
	case ResolutionValid:
		return "valid"
	case ResolutionNoViews:
		return "no-views"
	case ResolutionTooManyViews:
		return "too-many-views"
	default:
		return "not-network-table"
	}
}

// StyleAssociation binds a column style to a column of the default node or
// edge table under one network style.
type StyleAssociation struct {
	NetworkStyle *VisualStyle
	TableType    model.TableType
	ColumnName   string
	ColumnStyle  *VisualStyle
}

// NetworkViewLister returns the views of a network.
type NetworkViewLister interface {
	NetworkViews(net *model.Network) []*viewmodel.NetworkView
}

// NetworkStyles returns the current style of a network view.
type NetworkStyles interface {
	VisualStyle(nv *viewmodel.NetworkView) *VisualStyle
}

type assocKey struct {
	network model.SUID
	table   model.TableType
	column  string
}

type assocSlot struct {
	live  bool
	assoc StyleAssociation
}

// TableVisualMappingManager decides which style applies to a column view.
// Columns of a network's default node and edge tables are styled through
// associations keyed by the network's current style; other columns keep a
// direct style per column view.
//
// Associations live in an arena addressed by integer handles. Removing a
// style through the VisualMappingManager purges every handle referencing it.
type TableVisualMappingManager struct {
	views  NetworkViewLister
	styles NetworkStyles
	firer  events.Firer
	log    *logrus.Logger

	defaultStyle *VisualStyle

	mu      sync.Mutex
	arena   []assocSlot
	free    []int
	index   map[assocKey]int
	columns map[*viewmodel.ColumnView]*VisualStyle
}

// NewTableVisualMappingManager creates a manager resolving network styles
// through views and styles. When styles is a *VisualMappingManager the new
// manager registers itself for style purges.
func NewTableVisualMappingManager(views NetworkViewLister, styles NetworkStyles, firer events.Firer, log *logrus.Logger) *TableVisualMappingManager {
	m := &TableVisualMappingManager{
		views:        views,
		styles:       styles,
		firer:        firer,
		log:          orDiscard(log),
		defaultStyle: NewVisualStyle(DefaultStyleTitle),
		index:        make(map[assocKey]int),
		columns:      make(map[*viewmodel.ColumnView]*VisualStyle),
	}
	if vmm, ok := styles.(*VisualMappingManager); ok {
		vmm.RegisterPurger(m)
	}
	return m
}

// Resolve reports how the network style of a column view is determined and
// returns it when the resolution is valid.
func (m *TableVisualMappingManager) Resolve(cv *viewmodel.ColumnView) (Resolution, *VisualStyle) {
	table := cv.Model().Table()
	net := table.Network()
	if net == nil || (table != net.DefaultNodeTable() && table != net.DefaultEdgeTable()) {
		return ResolutionNotNetworkTable, nil
	}

	views := m.views.NetworkViews(net)
	if len(views) == 0 {
		return ResolutionNoViews, nil
	}
	style := m.styles.VisualStyle(views[0])
	for _, nv := range views[1:] {
		if m.styles.VisualStyle(nv) != style {
			return ResolutionTooManyViews, nil
		}
	}
	return ResolutionValid, style
}

// VisualStyle returns the style of a column view, or nil when the column
// inherits. Ambiguous or view-less networks yield nil.
func (m *TableVisualMappingManager) VisualStyle(cv *viewmodel.ColumnView) *VisualStyle {
	if cv == nil {
		return nil
	}

	res, netStyle := m.Resolve(cv)
	switch res {
	case ResolutionValid:
		key := assocKey{network: netStyle.SUID(), table: cv.Model().Table().Type(), column: cv.Name()}
		m.mu.Lock()
		defer m.mu.Unlock()
		if h, ok := m.index[key]; ok {
			return m.arena[h].assoc.ColumnStyle
		}
		return nil
	case ResolutionNotNetworkTable:
		m.mu.Lock()
		defer m.mu.Unlock()
		return m.columns[cv]
	default:
		return nil
	}
}

// SetVisualStyle sets the style of a column view. For columns of a default
// network table it stores an association under the network's current style;
// a nil style is always accepted.
func (m *TableVisualMappingManager) SetVisualStyle(cv *viewmodel.ColumnView, style *VisualStyle) error {
	if cv == nil {
		return ErrNilColumnView
	}

	res, netStyle := m.Resolve(cv)
	switch res {
	case ResolutionNoViews:
		if style == nil {
			return nil
		}
		return fmt.Errorf("setting style of column %q: %w", cv.Name(), ErrNoNetworkViews)
	case ResolutionTooManyViews:
		if style == nil {
			return nil
		}
		return fmt.Errorf("setting style of column %q: %w", cv.Name(), ErrAmbiguousNetworkStyle)
	case ResolutionValid:
		return m.SetAssociatedVisualStyle(netStyle, cv.Model().Table().Type(), cv.Name(), style)
	}

	m.mu.Lock()
	prev := m.columns[cv]
	if style == nil {
		delete(m.columns, cv)
	} else {
		m.columns[cv] = style
	}
	m.mu.Unlock()

	if prev != style {
		m.fire(&ColumnVisualStyleSet{Manager: m, View: cv, Style: style, Previous: prev})
	}
	return nil
}

// SetAssociatedVisualStyle stores, replaces, or with a nil columnStyle
// removes the association of a column under networkStyle. An event is fired
// only when the stored style changes.
func (m *TableVisualMappingManager) SetAssociatedVisualStyle(networkStyle *VisualStyle, tableType model.TableType, columnName string, columnStyle *VisualStyle) error {
	if networkStyle == nil {
		return ErrNilNetworkStyle
	}
	if tableType != model.TableNode && tableType != model.TableEdge {
		return fmt.Errorf("associating %s table: %w", tableType, ErrUnsupportedTableType)
	}
	if columnName == "" {
		return ErrEmptyColumnName
	}

	key := assocKey{network: networkStyle.SUID(), table: tableType, column: columnName}

	m.mu.Lock()
	var prev *VisualStyle
	h, ok := m.index[key]
	if ok {
		prev = m.arena[h].assoc.ColumnStyle
	}
	switch {
	case columnStyle == nil && ok:
		m.releaseLocked(h)
	case columnStyle != nil && ok:
		m.arena[h].assoc.ColumnStyle = columnStyle
	case columnStyle != nil:
		m.allocLocked(StyleAssociation{
			NetworkStyle: networkStyle,
			TableType:    tableType,
			ColumnName:   columnName,
			ColumnStyle:  columnStyle,
		})
	}
	count := len(m.index)
	m.mu.Unlock()

	if prev == columnStyle {
		return nil
	}
	metrics.StyleAssociations.Set(float64(count))
	m.fire(&ColumnAssociatedVisualStyleSet{
		Manager: m,
		Association: StyleAssociation{
			NetworkStyle: networkStyle,
			TableType:    tableType,
			ColumnName:   columnName,
			ColumnStyle:  columnStyle,
		},
		Previous: prev,
	})
	return nil
}

func (m *TableVisualMappingManager) allocLocked(a StyleAssociation) int {
	var h int
	if n := len(m.free); n > 0 {
		h = m.free[n-1]
		m.free = m.free[:n-1]
		m.arena[h] = assocSlot{live: true, assoc: a}
	} else {
		h = len(m.arena)
		m.arena = append(m.arena, assocSlot{live: true, assoc: a})
	}
	m.index[assocKey{network: a.NetworkStyle.SUID(), table: a.TableType, column: a.ColumnName}] = h
	return h
}

func (m *TableVisualMappingManager) releaseLocked(h int) {
	a := m.arena[h].assoc
	delete(m.index, assocKey{network: a.NetworkStyle.SUID(), table: a.TableType, column: a.ColumnName})
	m.arena[h] = assocSlot{}
	m.free = append(m.free, h)
}

// AssociatedColumnVisualStyles returns a snapshot of column name to column
// style for one network style and table type.
func (m *TableVisualMappingManager) AssociatedColumnVisualStyles(networkStyle *VisualStyle, tableType model.TableType) map[string]*VisualStyle {
	out := make(map[string]*VisualStyle)
	if networkStyle == nil {
		return out
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, slot := range m.arena {
		if slot.live && slot.assoc.NetworkStyle == networkStyle && slot.assoc.TableType == tableType {
			out[slot.assoc.ColumnName] = slot.assoc.ColumnStyle
		}
	}
	return out
}

// AssociatedNetworkVisualStyles returns the distinct network styles under
// which columnStyle is associated.
func (m *TableVisualMappingManager) AssociatedNetworkVisualStyles(columnStyle *VisualStyle) []*VisualStyle {
	var out []*VisualStyle
	for _, a := range m.Associations(columnStyle) {
		if !slices.Contains(out, a.NetworkStyle) {
			out = append(out, a.NetworkStyle)
		}
	}
	return out
}

// Associations returns every association whose column style is columnStyle.
func (m *TableVisualMappingManager) Associations(columnStyle *VisualStyle) []StyleAssociation {
	if columnStyle == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []StyleAssociation
	for _, slot := range m.arena {
		if slot.live && slot.assoc.ColumnStyle == columnStyle {
			out = append(out, slot.assoc)
		}
	}
	return out
}

// AllStyleAssociations returns every stored association in handle order.
func (m *TableVisualMappingManager) AllStyleAssociations() []StyleAssociation {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]StyleAssociation, 0, len(m.index))
	for _, slot := range m.arena {
		if slot.live {
			out = append(out, slot.assoc)
		}
	}
	return out
}

// DefaultVisualStyle returns the column style used when nothing is set.
func (m *TableVisualMappingManager) DefaultVisualStyle() *VisualStyle {
	return m.defaultStyle
}

// AllVisualStyles returns the distinct styles of the direct column
// mappings, ordered by SUID. Styles only referenced by an association are
// not included; see AllStyleAssociations.
func (m *TableVisualMappingManager) AllVisualStyles() []*VisualStyle {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*VisualStyle
	for _, s := range m.columns {
		if !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	slices.SortFunc(out, func(a, b *VisualStyle) int {
		return cmp.Compare(a.suid, b.suid)
	})
	return out
}

// AllVisualStylesMap returns a snapshot of the direct column mappings.
func (m *TableVisualMappingManager) AllVisualStylesMap() map[*viewmodel.ColumnView]*VisualStyle {
	m.mu.Lock()
	defer m.mu.Unlock()
	return maps.Clone(m.columns)
}

// PurgeStyle drops every association referencing style as network or
// column style and every direct column mapping to it. No events are fired.
func (m *TableVisualMappingManager) PurgeStyle(style *VisualStyle) {
	if style == nil {
		return
	}
	m.mu.Lock()
	purged := 0
	for h, slot := range m.arena {
		if slot.live && (slot.assoc.NetworkStyle == style || slot.assoc.ColumnStyle == style) {
			m.releaseLocked(h)
			purged++
		}
	}
	for cv, s := range m.columns {
		if s == style {
			delete(m.columns, cv)
			purged++
		}
	}
	count := len(m.index)
	m.mu.Unlock()

	metrics.StyleAssociations.Set(float64(count))
	if purged > 0 {
		m.log.WithFields(logrus.Fields{
			"style":  style.Title(),
			"purged": purged,
		}).Debug("purged style references")
	}
}

// ApplyToColumnView clears the style layer of cv and applies the column's
// resolved style, or the default column style when it inherits.
func (m *TableVisualMappingManager) ApplyToColumnView(cv *viewmodel.ColumnView) *VisualStyle {
	style := m.VisualStyle(cv)
	if style == nil {
		style = m.defaultStyle
	}
	cv.ClearStyleValues()
	style.Apply(nil, cv)
	return style
}

// Handle implements events.Listener. Direct mappings of a destroyed table
// view's columns are cleared.
func (m *TableVisualMappingManager) Handle(e events.Event) {
	destroyed, ok := e.(*viewmodel.TableViewAboutToBeDestroyed)
	if !ok {
		return
	}

	m.mu.Lock()
	var cleared []*ColumnVisualStyleSet
	for cv, s := range m.columns {
		if cv.TableView() == destroyed.View {
			delete(m.columns, cv)
			cleared = append(cleared, &ColumnVisualStyleSet{Manager: m, View: cv, Previous: s})
		}
	}
	m.mu.Unlock()

	for _, evt := range cleared {
		m.fire(evt)
	}
}

func (m *TableVisualMappingManager) fire(e events.Event) {
	if m.firer != nil {
		m.firer.Fire(e)
	}
}
