// Package vizmap holds visual styles and the managers that decide which
// style applies to a network view or a table column view.
package vizmap

import (
	"reflect"
	"slices"
	"sync"

	"github.com/Benny93/vizsync/internal/lexicon"
	"github.com/Benny93/vizsync/internal/model"
	"github.com/Benny93/vizsync/internal/viewmodel"
)

// Mapping computes the value of one visual property from a data row.
type Mapping interface {
	Property() *lexicon.VisualProperty
	Column() string
	Map(row *model.Row) (any, bool)
}

// PassthroughMapping uses the column value as the property value.
type PassthroughMapping struct {
	column string
	vp     *lexicon.VisualProperty
}

// NewPassthroughMapping maps column straight onto vp.
func NewPassthroughMapping(column string, vp *lexicon.VisualProperty) *PassthroughMapping {
	return &PassthroughMapping{column: column, vp: vp}
}

// Property implements Mapping.
func (m *PassthroughMapping) Property() *lexicon.VisualProperty { return m.vp }

// Column implements Mapping.
func (m *PassthroughMapping) Column() string { return m.column }

// Map implements Mapping. Values of the wrong type are skipped.
func (m *PassthroughMapping) Map(row *model.Row) (any, bool) {
	if row == nil {
		return nil, false
	}
	v := row.Get(m.column)
	if v == nil || !m.vp.Accepts(v) {
		return nil, false
	}
	return v, true
}

// DiscreteMapping maps individual column values to property values.
type DiscreteMapping struct {
	column string
	vp     *lexicon.VisualProperty

	mu      sync.RWMutex
	entries map[any]any
}

// NewDiscreteMapping creates an empty discrete mapping from column to vp.
func NewDiscreteMapping(column string, vp *lexicon.VisualProperty) *DiscreteMapping {
	return &DiscreteMapping{column: column, vp: vp, entries: make(map[any]any)}
}

// Property implements Mapping.
func (m *DiscreteMapping) Property() *lexicon.VisualProperty { return m.vp }

// Column implements Mapping.
func (m *DiscreteMapping) Column() string { return m.column }

// Put maps key to value. A nil value removes the key. Numeric keys are
// stored as float64 so integer and float columns match the same entries.
func (m *DiscreteMapping) Put(key, value any) {
	if !hashable(key) {
		return
	}
	key = normalizeKey(key)
	m.mu.Lock()
	defer m.mu.Unlock()
	if value == nil {
		delete(m.entries, key)
		return
	}
	m.entries[key] = value
}

// Entries returns a copy of the mapped keys and values.
func (m *DiscreteMapping) Entries() map[any]any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[any]any, len(m.entries))
	for k, v := range m.entries {
		out[k] = v
	}
	return out
}

// Map implements Mapping.
func (m *DiscreteMapping) Map(row *model.Row) (any, bool) {
	if row == nil {
		return nil, false
	}
	key := row.Get(m.column)
	if !hashable(key) {
		return nil, false
	}
	key = normalizeKey(key)
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.entries[key]
	return v, ok
}

func hashable(v any) bool {
	return v != nil && reflect.ValueOf(v).Comparable()
}

func normalizeKey(v any) any {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint())
	case reflect.Float32:
		return rv.Float()
	}
	return v
}

// ViewTarget is what a style writes resolved values into.
type ViewTarget interface {
	SetVisualProperty(vp *lexicon.VisualProperty, value any) bool
}

// VisualStyle is a named set of default values and mappings.
type VisualStyle struct {
	suid model.SUID

	mu       sync.RWMutex
	title    string
	defaults map[*lexicon.VisualProperty]any
	mappings []Mapping
}

// NewVisualStyle creates an empty style.
func NewVisualStyle(title string) *VisualStyle {
	return &VisualStyle{
		suid:     model.NextSUID(),
		title:    title,
		defaults: make(map[*lexicon.VisualProperty]any),
	}
}

// SUID returns the style's identifier.
func (s *VisualStyle) SUID() model.SUID { return s.suid }

// Title returns the style title.
func (s *VisualStyle) Title() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.title
}

// SetTitle renames the style.
func (s *VisualStyle) SetTitle(title string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.title = title
}

// String implements fmt.Stringer.
func (s *VisualStyle) String() string {
	if s == nil {
		return "<nil>"
	}
	return s.Title()
}

// SetDefaultValue overrides the lexicon default of vp within this style.
// A nil value removes the override.
func (s *VisualStyle) SetDefaultValue(vp *lexicon.VisualProperty, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if value == nil {
		delete(s.defaults, vp)
		return
	}
	s.defaults[vp] = value
}

// DefaultValue returns the style default of vp, falling back to the
// property's own default.
func (s *VisualStyle) DefaultValue(vp *lexicon.VisualProperty) any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.defaults[vp]; ok {
		return v
	}
	return vp.Default
}

// Defaults returns a copy of the style defaults.
func (s *VisualStyle) Defaults() map[*lexicon.VisualProperty]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[*lexicon.VisualProperty]any, len(s.defaults))
	for vp, v := range s.defaults {
		out[vp] = v
	}
	return out
}

// AddMapping adds m, replacing any mapping of the same property.
func (s *VisualStyle) AddMapping(m Mapping) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.mappings {
		if existing.Property() == m.Property() {
			s.mappings[i] = m
			return
		}
	}
	s.mappings = append(s.mappings, m)
}

// RemoveMapping removes the mapping of vp.
func (s *VisualStyle) RemoveMapping(vp *lexicon.VisualProperty) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mappings = slices.DeleteFunc(s.mappings, func(m Mapping) bool { return m.Property() == vp })
}

// Mapping returns the mapping of vp, or nil.
func (s *VisualStyle) Mapping(vp *lexicon.VisualProperty) Mapping {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.mappings {
		if m.Property() == vp {
			return m
		}
	}
	return nil
}

// Mappings returns the mappings in insertion order.
func (s *VisualStyle) Mappings() []Mapping {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.mappings)
}

// Apply writes the style's values for row into the style layer of view.
// Only properties targeting the kind of view are written. Cell properties
// applied to a column view become per-row computed values.
func (s *VisualStyle) Apply(row *model.Row, view ViewTarget) {
	s.apply(row, targetsOf(view), view.SetVisualProperty)
}

func (s *VisualStyle) apply(row *model.Row, targets targetSet, set func(*lexicon.VisualProperty, any) bool) {
	s.mu.RLock()
	defaults := make(map[*lexicon.VisualProperty]any, len(s.defaults))
	for vp, v := range s.defaults {
		defaults[vp] = v
	}
	mappings := slices.Clone(s.mappings)
	s.mu.RUnlock()

	for vp, v := range defaults {
		if targets.has(vp.Target) {
			set(vp, v)
		}
	}

	for _, m := range mappings {
		vp := m.Property()
		if !targets.has(vp.Target) {
			continue
		}
		if vp.Target == lexicon.TargetCell {
			set(vp, viewmodel.Computed(cellFunc(m, s.DefaultValue(vp))))
			continue
		}
		if v, ok := m.Map(row); ok {
			set(vp, v)
		}
	}
}

// ApplyToNetworkView clears the style layer of nv and re-applies the style
// to the network view and every node and edge view. Bypass values are kept.
// Each store is rewritten in one transaction, so only values that differ
// from before the call are reported.
func (s *VisualStyle) ApplyToNetworkView(nv *viewmodel.NetworkView) {
	net := nv.Model()
	restyle := func(tx *viewmodel.Tx, suid model.SUID, row *model.Row, target lexicon.Target) {
		tx.ClearStyleValues(suid)
		s.apply(row, targetSet{target}, func(vp *lexicon.VisualProperty, v any) bool {
			return tx.Set(suid, vp, v, false)
		})
	}

	nv.Store().Update(func(tx *viewmodel.Tx) {
		restyle(tx, nv.SUID(), net.Row(net), lexicon.TargetNetwork)
	})
	nodes := nv.NodeViews()
	nv.NodeStore().Update(func(tx *viewmodel.Tx) {
		for _, v := range nodes {
			restyle(tx, v.SUID(), net.Row(v.Model()), lexicon.TargetNode)
		}
	})
	edges := nv.EdgeViews()
	nv.EdgeStore().Update(func(tx *viewmodel.Tx) {
		for _, v := range edges {
			restyle(tx, v.SUID(), net.Row(v.Model()), lexicon.TargetEdge)
		}
	})
}

func cellFunc(m Mapping, fallback any) viewmodel.RowFunc {
	return func(row *model.Row) any {
		if v, ok := m.Map(row); ok {
			return v
		}
		return fallback
	}
}

type targetSet []lexicon.Target

func (t targetSet) has(target lexicon.Target) bool {
	return t == nil || slices.Contains(t, target)
}

func targetsOf(view ViewTarget) targetSet {
	switch view.(type) {
	case *viewmodel.NodeView:
		return targetSet{lexicon.TargetNode}
	case *viewmodel.EdgeView:
		return targetSet{lexicon.TargetEdge}
	case *viewmodel.NetworkView, *viewmodel.View[*model.Network]:
		return targetSet{lexicon.TargetNetwork}
	case *viewmodel.ColumnView:
		return targetSet{lexicon.TargetColumn, lexicon.TargetCell}
	case *viewmodel.TableView, *viewmodel.View[*model.Table]:
		return targetSet{lexicon.TargetTable}
	}
	return nil
}
