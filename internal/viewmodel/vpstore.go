package viewmodel

import (
	"io"
	"reflect"

	"github.com/sirupsen/logrus"

	"github.com/Benny93/vizsync/internal/lexicon"
	"github.com/Benny93/vizsync/internal/model"
)

// SlotKind tags the layer a stored value belongs to.
type SlotKind uint8

const (
	// Unset means the layer holds nothing.
	Unset SlotKind = iota
	// StyleComputed values are written when a visual style is applied.
	StyleComputed
	// Locked values are explicit bypass overrides.
	Locked
)

// String implements fmt.Stringer.
func (k SlotKind) String() string {
	switch k {
	case StyleComputed:
		return "style"
	case Locked:
		return "locked"
	default:
		return "unset"
	}
}

// Slot is one layer of a stored property value.
type Slot struct {
	Kind  SlotKind
	Value any
}

type layers struct {
	style  Slot
	locked Slot
}

func (l *layers) resolve(vp *lexicon.VisualProperty) any {
	if l.locked.Kind == Locked {
		return l.locked.Value
	}
	if l.style.Kind == StyleComputed {
		return l.style.Value
	}
	return vp.Default
}

func (l *layers) empty() bool {
	return l.locked.Kind == Unset && l.style.Kind == Unset
}

// Change describes a write that altered the resolved value of a slot.
type Change struct {
	SUID     model.SUID
	Property *lexicon.VisualProperty
	Value    any
	Locked   bool
}

// VPStore holds the visual property values of every view of one container,
// keyed by (view SUID, property). Resolution order is locked, then style,
// then the property default. Reads never fail.
type VPStore struct {
	lex    lexicon.Lexicon
	lock   *ViewLock
	log    *logrus.Logger
	notify func([]Change)

	slots map[model.SUID]map[*lexicon.VisualProperty]*layers
}

// NewVPStore creates a store for properties of lex guarded by lock.
func NewVPStore(lex lexicon.Lexicon, lock *ViewLock, log *logrus.Logger) *VPStore {
	return newVPStore(lex, lock, log, nil)
}

func newVPStore(lex lexicon.Lexicon, lock *ViewLock, log *logrus.Logger, notify func([]Change)) *VPStore {
	if lock == nil {
		lock = NewViewLock()
	}
	return &VPStore{
		lex:    lex,
		lock:   lock,
		log:    orDiscard(log),
		notify: notify,
		slots:  make(map[model.SUID]map[*lexicon.VisualProperty]*layers),
	}
}

// Lock returns the lock guarding the store.
func (s *VPStore) Lock() *ViewLock { return s.lock }

// Lexicon returns the lexicon the store accepts properties from.
func (s *VPStore) Lexicon() lexicon.Lexicon { return s.lex }

// Get returns the resolved value of vp for the view with the given SUID.
func (s *VPStore) Get(suid model.SUID, vp *lexicon.VisualProperty) any {
	if vp == nil {
		return nil
	}
	s.lock.RLock()
	defer s.lock.RUnlock()

	if l := s.slots[suid][vp]; l != nil {
		return l.resolve(vp)
	}
	return vp.Default
}

// Layers returns both stored layers of a slot.
func (s *VPStore) Layers(suid model.SUID, vp *lexicon.VisualProperty) (style, locked Slot) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	if l := s.slots[suid][vp]; l != nil {
		return l.style, l.locked
	}
	return Slot{}, Slot{}
}

// IsSet reports whether any layer above the default holds a value.
func (s *VPStore) IsSet(suid model.SUID, vp *lexicon.VisualProperty) bool {
	s.lock.RLock()
	defer s.lock.RUnlock()

	l := s.slots[suid][vp]
	return l != nil && !l.empty()
}

// IsLocked reports whether the bypass layer holds a value.
func (s *VPStore) IsLocked(suid model.SUID, vp *lexicon.VisualProperty) bool {
	s.lock.RLock()
	defer s.lock.RUnlock()

	l := s.slots[suid][vp]
	return l != nil && l.locked.Kind == Locked
}

// Values returns the resolved value of every property stored for a view.
func (s *VPStore) Values(suid model.SUID) map[*lexicon.VisualProperty]any {
	s.lock.RLock()
	defer s.lock.RUnlock()

	out := make(map[*lexicon.VisualProperty]any, len(s.slots[suid]))
	for vp, l := range s.slots[suid] {
		out[vp] = l.resolve(vp)
	}
	return out
}

// Set writes value into the bypass layer when locked is true, otherwise into
// the style layer. A nil value clears the layer. It reports whether the
// resolved value changed.
func (s *VPStore) Set(suid model.SUID, vp *lexicon.VisualProperty, value any, locked bool) bool {
	changes := s.Update(func(tx *Tx) {
		tx.Set(suid, vp, value, locked)
	})
	return len(changes) > 0
}

// ClearLock removes the bypass value of a slot and reports whether the
// resolved value changed.
func (s *VPStore) ClearLock(suid model.SUID, vp *lexicon.VisualProperty) bool {
	changes := s.Update(func(tx *Tx) {
		tx.ClearLock(suid, vp)
	})
	return len(changes) > 0
}

// ClearStyleValues drops every style-layer value of a view.
func (s *VPStore) ClearStyleValues(suid model.SUID) int {
	return len(s.Update(func(tx *Tx) {
		tx.ClearStyleValues(suid)
	}))
}

// Remove drops every slot of a view without reporting changes.
func (s *VPStore) Remove(suid model.SUID) {
	s.lock.Lock()
	defer s.lock.Unlock()
	delete(s.slots, suid)
}

// Update runs fn with the write lock held and returns the net changes it
// made: a slot written several times is reported once, and not at all when
// it ends on the value it started with. Changes are reported to the owning
// container after the lock is released.
func (s *VPStore) Update(fn func(tx *Tx)) []Change {
	tx := &Tx{s: s}
	func() {
		s.lock.Lock()
		defer s.lock.Unlock()
		fn(tx)
		tx.changes = tx.net()
	}()

	if len(tx.changes) > 0 && s.notify != nil {
		s.notify(tx.changes)
	}
	return tx.changes
}

type slotKey struct {
	suid model.SUID
	vp   *lexicon.VisualProperty
}

// Tx mutates a VPStore while its lock is held. It is only valid inside the
// function passed to Update.
type Tx struct {
	s       *VPStore
	before  map[slotKey]any
	touched []slotKey
	changes []Change
}

// Set behaves like VPStore.Set.
func (tx *Tx) Set(suid model.SUID, vp *lexicon.VisualProperty, value any, locked bool) bool {
	s := tx.s
	if !s.accepts(vp, value) {
		return false
	}

	l := s.slots[suid][vp]
	if l == nil {
		if value == nil {
			return false
		}
		l = s.slot(suid, vp)
	}

	before := l.resolve(vp)
	next := Slot{}
	if value != nil {
		next = Slot{Kind: StyleComputed, Value: value}
		if locked {
			next.Kind = Locked
		}
	}
	if locked {
		l.locked = next
	} else {
		l.style = next
	}
	return tx.record(suid, vp, l, before)
}

// ClearLock behaves like VPStore.ClearLock.
func (tx *Tx) ClearLock(suid model.SUID, vp *lexicon.VisualProperty) bool {
	l := tx.s.slots[suid][vp]
	if l == nil || l.locked.Kind == Unset {
		return false
	}
	before := l.resolve(vp)
	l.locked = Slot{}
	return tx.record(suid, vp, l, before)
}

// ClearStyleValues behaves like VPStore.ClearStyleValues.
func (tx *Tx) ClearStyleValues(suid model.SUID) {
	for vp, l := range tx.s.slots[suid] {
		if l.style.Kind == Unset {
			continue
		}
		before := l.resolve(vp)
		l.style = Slot{}
		tx.record(suid, vp, l, before)
	}
}

// Get reads a resolved value inside the transaction.
func (tx *Tx) Get(suid model.SUID, vp *lexicon.VisualProperty) any {
	if vp == nil {
		return nil
	}
	if l := tx.s.slots[suid][vp]; l != nil {
		return l.resolve(vp)
	}
	return vp.Default
}

// record reports whether this write changed the resolved value and keeps
// the value the slot held when the transaction first touched it.
func (tx *Tx) record(suid model.SUID, vp *lexicon.VisualProperty, l *layers, before any) bool {
	key := slotKey{suid, vp}
	if _, seen := tx.before[key]; !seen {
		if tx.before == nil {
			tx.before = make(map[slotKey]any)
		}
		tx.before[key] = before
		tx.touched = append(tx.touched, key)
	}

	after := l.resolve(vp)
	if l.empty() {
		delete(tx.s.slots[suid], vp)
		if len(tx.s.slots[suid]) == 0 {
			delete(tx.s.slots, suid)
		}
	}
	return !sameValue(before, after)
}

// net compares every touched slot against its value at the start of the
// transaction.
func (tx *Tx) net() []Change {
	var out []Change
	for _, key := range tx.touched {
		after, locked := key.vp.Default, false
		if l := tx.s.slots[key.suid][key.vp]; l != nil {
			after, locked = l.resolve(key.vp), l.locked.Kind == Locked
		}
		if sameValue(tx.before[key], after) {
			continue
		}
		out = append(out, Change{
			SUID:     key.suid,
			Property: key.vp,
			Value:    after,
			Locked:   locked,
		})
	}
	return out
}

func (s *VPStore) slot(suid model.SUID, vp *lexicon.VisualProperty) *layers {
	byVP := s.slots[suid]
	if byVP == nil {
		byVP = make(map[*lexicon.VisualProperty]*layers)
		s.slots[suid] = byVP
	}
	l := &layers{}
	byVP[vp] = l
	return l
}

func (s *VPStore) accepts(vp *lexicon.VisualProperty, value any) bool {
	if vp == nil || s.lex == nil || !s.lex.Contains(vp) {
		s.log.WithField("property", vp).Debug("ignoring property outside lexicon")
		return false
	}
	if _, ok := value.(CellValue); ok {
		return true
	}
	if !vp.Accepts(value) {
		s.log.WithFields(logrus.Fields{
			"property": vp.ID,
			"type":     reflect.TypeOf(value),
		}).Debug("ignoring value of wrong type")
		return false
	}
	return true
}

// sameValue compares two resolved values without panicking on
// uncomparable dynamic types.
func sameValue(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Type() != vb.Type() {
		return false
	}
	if va.Comparable() {
		return a == b
	}
	return reflect.DeepEqual(a, b)
}

func orDiscard(log *logrus.Logger) *logrus.Logger {
	if log != nil {
		return log
	}
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
