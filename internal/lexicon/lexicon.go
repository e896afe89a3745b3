// Package lexicon declares visual properties and the lexicons that group
// them.
//
// A visual property is a typed, named slot with a default value. Views only
// store values for properties present in their lexicon, so the lexicon is
// the single source of default values.
package lexicon

import (
	"fmt"
	"reflect"
	"slices"
	"sync"
)

// Target is the kind of view a property applies to.
type Target string

const (
	TargetNode    Target = "node"
	TargetEdge    Target = "edge"
	TargetNetwork Target = "network"
	TargetColumn  Target = "column"
	TargetCell    Target = "cell"
	TargetTable   Target = "table"
)

// VisualProperty is a named rendering attribute with a default value.
type VisualProperty struct {
	// ID is the stable identifier, e.g. NODE_FILL_COLOR.
	ID string

	// DisplayName is the human-readable name.
	DisplayName string

	// Target is the kind of view this property belongs to.
	Target Target

	// Default is returned whenever no value was set.
	Default any
}

// Accepts reports whether v has the same dynamic type as the default value.
// Properties with a nil default accept anything.
func (vp *VisualProperty) Accepts(v any) bool {
	if vp.Default == nil || v == nil {
		return true
	}
	return reflect.TypeOf(v) == reflect.TypeOf(vp.Default)
}

// String implements fmt.Stringer.
func (vp *VisualProperty) String() string {
	return vp.ID
}

// Lexicon is an enumerable registry of visual properties.
type Lexicon interface {
	// Lookup returns the property with the given ID.
	Lookup(id string) (*VisualProperty, bool)

	// Contains reports whether vp is registered in this lexicon.
	Contains(vp *VisualProperty) bool

	// Properties returns every property in registration order.
	Properties() []*VisualProperty
}

// Registry is a mutable Lexicon.
type Registry struct {
	mu    sync.RWMutex
	order []*VisualProperty
	byID  map[string]*VisualProperty
}

// NewRegistry creates a lexicon holding the given properties.
func NewRegistry(props ...*VisualProperty) *Registry {
	r := &Registry{byID: make(map[string]*VisualProperty)}
	for _, vp := range props {
		// Duplicate IDs are a programming error in the static declarations.
		if err := r.Register(vp); err != nil {
			panic(err)
		}
	}
	return r
}

// Register adds a property. IDs must be unique.
func (r *Registry) Register(vp *VisualProperty) error {
	if vp == nil || vp.ID == "" {
		return fmt.Errorf("registering visual property: missing id")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[vp.ID]; ok {
		return fmt.Errorf("registering visual property %s: duplicate id", vp.ID)
	}
	r.byID[vp.ID] = vp
	r.order = append(r.order, vp)
	return nil
}

// Lookup implements Lexicon.
func (r *Registry) Lookup(id string) (*VisualProperty, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	vp, ok := r.byID[id]
	return vp, ok
}

// Contains implements Lexicon.
func (r *Registry) Contains(vp *VisualProperty) bool {
	if vp == nil {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byID[vp.ID] == vp
}

// Properties implements Lexicon.
func (r *Registry) Properties() []*VisualProperty {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.order)
}

// PropertiesFor returns the properties of one target kind.
func PropertiesFor(lex Lexicon, target Target) []*VisualProperty {
	var out []*VisualProperty
	for _, vp := range lex.Properties() {
		if vp.Target == target {
			out = append(out, vp)
		}
	}
	return out
}
