package vizmap

import (
	"fmt"
	"io"
	"slices"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/Benny93/vizsync/internal/events"
	"github.com/Benny93/vizsync/internal/viewmodel"
)

// DefaultStyleTitle is the title of the style every manager starts with.
const DefaultStyleTitle = "default"

// StylePurger drops every reference a component holds to a removed style.
type StylePurger interface {
	PurgeStyle(style *VisualStyle)
}

// VisualMappingManager tracks the registered styles and the current style of
// every network view.
type VisualMappingManager struct {
	firer events.Firer
	log   *logrus.Logger

	mu           sync.Mutex
	styles       []*VisualStyle
	defaultStyle *VisualStyle
	current      map[*viewmodel.NetworkView]*VisualStyle
	purgers      []StylePurger
}

// NewVisualMappingManager creates a manager holding one default style with
// the given title. An empty title uses DefaultStyleTitle.
func NewVisualMappingManager(firer events.Firer, defaultTitle string, log *logrus.Logger) *VisualMappingManager {
	if defaultTitle == "" {
		defaultTitle = DefaultStyleTitle
	}
	def := NewVisualStyle(defaultTitle)
	return &VisualMappingManager{
		firer:        firer,
		log:          orDiscard(log),
		styles:       []*VisualStyle{def},
		defaultStyle: def,
		current:      make(map[*viewmodel.NetworkView]*VisualStyle),
	}
}

// RegisterPurger adds a component to notify when a style is removed.
func (m *VisualMappingManager) RegisterPurger(p StylePurger) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.purgers = append(m.purgers, p)
}

// DefaultStyle returns the style used by views without an explicit style.
func (m *VisualMappingManager) DefaultStyle() *VisualStyle {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.defaultStyle
}

// AddVisualStyle registers a style. Adding a registered style is a no-op.
func (m *VisualMappingManager) AddVisualStyle(style *VisualStyle) error {
	if style == nil {
		return ErrNilStyle
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !slices.Contains(m.styles, style) {
		m.styles = append(m.styles, style)
	}
	return nil
}

// RemoveVisualStyle unregisters a style, moves the views using it back to
// the default style, and purges it from every registered purger.
func (m *VisualMappingManager) RemoveVisualStyle(style *VisualStyle) error {
	if style == nil {
		return ErrNilStyle
	}

	m.mu.Lock()
	if style == m.defaultStyle {
		m.mu.Unlock()
		return ErrDefaultStyle
	}
	if !slices.Contains(m.styles, style) {
		m.mu.Unlock()
		return nil
	}
	m.styles = slices.DeleteFunc(m.styles, func(s *VisualStyle) bool { return s == style })

	var moved []*viewmodel.NetworkView
	for nv, s := range m.current {
		if s == style {
			m.current[nv] = m.defaultStyle
			moved = append(moved, nv)
		}
	}
	def := m.defaultStyle
	purgers := slices.Clone(m.purgers)
	m.mu.Unlock()

	for _, p := range purgers {
		p.PurgeStyle(style)
	}
	for _, nv := range moved {
		m.fire(&NetworkVisualStyleSet{Manager: m, View: nv, Style: def, Previous: style})
	}

	m.log.WithFields(logrus.Fields{
		"style": style.Title(),
		"views": len(moved),
	}).Info("visual style removed")
	return nil
}

// AllVisualStyles returns every registered style in registration order.
func (m *VisualMappingManager) AllVisualStyles() []*VisualStyle {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.styles)
}

// StyleByTitle returns the first registered style with the given title.
func (m *VisualMappingManager) StyleByTitle(title string) *VisualStyle {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.styles {
		if s.Title() == title {
			return s
		}
	}
	return nil
}

// VisualStyle returns the current style of nv, or the default style.
func (m *VisualMappingManager) VisualStyle(nv *viewmodel.NetworkView) *VisualStyle {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.current[nv]; ok {
		return s
	}
	return m.defaultStyle
}

// SetVisualStyle makes style the current style of nv, registering it if
// needed. A nil style selects the default style.
func (m *VisualMappingManager) SetVisualStyle(nv *viewmodel.NetworkView, style *VisualStyle) error {
	if nv == nil {
		return fmt.Errorf("setting network style: nil view")
	}

	m.mu.Lock()
	if style == nil {
		style = m.defaultStyle
	}
	if !slices.Contains(m.styles, style) {
		m.styles = append(m.styles, style)
	}
	prev, ok := m.current[nv]
	if !ok {
		prev = m.defaultStyle
	}
	m.current[nv] = style
	m.mu.Unlock()

	if prev != style {
		m.fire(&NetworkVisualStyleSet{Manager: m, View: nv, Style: style, Previous: prev})
	}
	return nil
}

// Handle implements events.Listener. It forgets views that are destroyed.
func (m *VisualMappingManager) Handle(e events.Event) {
	if e, ok := e.(*viewmodel.NetworkViewAboutToBeDestroyed); ok {
		m.mu.Lock()
		delete(m.current, e.View)
		m.mu.Unlock()
	}
}

func (m *VisualMappingManager) fire(e events.Event) {
	if m.firer != nil {
		m.firer.Fire(e)
	}
}

func orDiscard(log *logrus.Logger) *logrus.Logger {
	if log != nil {
		return log
	}
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
