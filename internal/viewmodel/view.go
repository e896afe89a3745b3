// Package viewmodel projects the data model into views: per-element
// visual property storage, node, edge, column and table views, and the
// listeners that keep them consistent with model events.
package viewmodel

import (
	"github.com/Benny93/vizsync/internal/lexicon"
	"github.com/Benny93/vizsync/internal/model"
)

// Viewer is implemented by every view regardless of the element it binds.
type Viewer interface {
	SUID() model.SUID
	VisualProperty(vp *lexicon.VisualProperty) any
}

// View binds one model element to the property store of its container.
// A view never changes its element; its identity is the element's SUID.
type View[T model.Identifiable] struct {
	model T
	store *VPStore
}

func newView[T model.Identifiable](m T, store *VPStore) *View[T] {
	return &View[T]{model: m, store: store}
}

// NodeView is the view of a network node.
type NodeView = View[*model.Node]

// EdgeView is the view of a network edge.
type EdgeView = View[*model.Edge]

// RowView is the view of one table row.
type RowView = View[*model.Row]

// SUID returns the SUID of the bound element.
func (v *View[T]) SUID() model.SUID { return v.model.SUID() }

// Model returns the bound element.
func (v *View[T]) Model() T { return v.model }

// Store returns the property store of the parent container.
func (v *View[T]) Store() *VPStore { return v.store }

// Lock returns the lock of the parent container.
func (v *View[T]) Lock() *ViewLock { return v.store.Lock() }

// VisualProperty returns the resolved value of vp.
func (v *View[T]) VisualProperty(vp *lexicon.VisualProperty) any {
	return v.store.Get(v.SUID(), vp)
}

// SetVisualProperty writes a style-layer value. A nil value clears it.
func (v *View[T]) SetVisualProperty(vp *lexicon.VisualProperty, value any) bool {
	return v.store.Set(v.SUID(), vp, value, false)
}

// SetLockedValue writes a bypass value that wins over any style value.
func (v *View[T]) SetLockedValue(vp *lexicon.VisualProperty, value any) bool {
	return v.store.Set(v.SUID(), vp, value, true)
}

// ClearValueLock removes the bypass value of vp.
func (v *View[T]) ClearValueLock(vp *lexicon.VisualProperty) bool {
	return v.store.ClearLock(v.SUID(), vp)
}

// IsValueLocked reports whether vp has a bypass value.
func (v *View[T]) IsValueLocked(vp *lexicon.VisualProperty) bool {
	return v.store.IsLocked(v.SUID(), vp)
}

// IsSet reports whether vp has a value above its default.
func (v *View[T]) IsSet(vp *lexicon.VisualProperty) bool {
	return v.store.IsSet(v.SUID(), vp)
}

// ClearStyleValues drops every style-layer value of the view.
func (v *View[T]) ClearStyleValues() int {
	return v.store.ClearStyleValues(v.SUID())
}

// Equal reports whether other is bound to the same element.
func (v *View[T]) Equal(other model.Identifiable) bool {
	if v == nil || other == nil {
		return false
	}
	return v.SUID() == other.SUID()
}
