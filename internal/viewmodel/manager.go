package viewmodel

import (
	"slices"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/Benny93/vizsync/internal/events"
	"github.com/Benny93/vizsync/internal/lexicon"
	"github.com/Benny93/vizsync/internal/model"
)

// NetworkViewManager owns the network views of a session and the listeners
// that keep them in sync.
type NetworkViewManager struct {
	hub events.Hub
	lex lexicon.Lexicon
	log *logrus.Logger

	mu    sync.Mutex
	views []*NetworkView
	unsub map[*NetworkView]func()
}

// NewNetworkViewManager creates a manager that subscribes listeners on hub.
func NewNetworkViewManager(hub events.Hub, lex lexicon.Lexicon, log *logrus.Logger) *NetworkViewManager {
	return &NetworkViewManager{
		hub:   hub,
		lex:   lex,
		log:   orDiscard(log),
		unsub: make(map[*NetworkView]func()),
	}
}

// CreateNetworkView creates and registers a new view of net.
func (m *NetworkViewManager) CreateNetworkView(net *model.Network) *NetworkView {
	nv := NewNetworkView(net, m.lex, m.hub, m.log)
	m.AddNetworkView(nv)
	return nv
}

// AddNetworkView registers an existing view. Registering the same view twice
// is a no-op.
func (m *NetworkViewManager) AddNetworkView(nv *NetworkView) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.unsub[nv]; ok {
		return
	}
	m.unsub[nv] = m.hub.Subscribe(NewNetworkModelListener(nv, m.log))
	m.views = append(m.views, nv)

	m.log.WithFields(logrus.Fields{
		"network":  nv.Model().Name(),
		"renderer": nv.RendererID(),
	}).Info("network view created")
}

// DestroyNetworkView announces and unregisters a view. It reports whether
// the view was registered.
func (m *NetworkViewManager) DestroyNetworkView(nv *NetworkView) bool {
	m.mu.Lock()
	_, ok := m.unsub[nv]
	m.mu.Unlock()
	if !ok {
		return false
	}

	m.hub.Fire(&NetworkViewAboutToBeDestroyed{View: nv})

	m.mu.Lock()
	unsub := m.unsub[nv]
	delete(m.unsub, nv)
	m.views = slices.DeleteFunc(m.views, func(v *NetworkView) bool { return v == nv })
	m.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	m.log.WithField("renderer", nv.RendererID()).Info("network view destroyed")
	return true
}

// NetworkViews returns the registered views of net in creation order.
func (m *NetworkViewManager) NetworkViews(net *model.Network) []*NetworkView {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*NetworkView
	for _, nv := range m.views {
		if nv.Model() == net {
			out = append(out, nv)
		}
	}
	return out
}

// AllNetworkViews returns every registered view in creation order.
func (m *NetworkViewManager) AllNetworkViews() []*NetworkView {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.views)
}

// TableViewManager owns the table views of a session.
type TableViewManager struct {
	hub events.Hub
	lex lexicon.Lexicon
	log *logrus.Logger

	mu    sync.Mutex
	views []*TableView
	unsub map[*TableView]func()
}

// NewTableViewManager creates a manager that subscribes listeners on hub.
func NewTableViewManager(hub events.Hub, lex lexicon.Lexicon, log *logrus.Logger) *TableViewManager {
	return &TableViewManager{
		hub:   hub,
		lex:   lex,
		log:   orDiscard(log),
		unsub: make(map[*TableView]func()),
	}
}

// CreateTableView creates and registers a new view of table.
func (m *TableViewManager) CreateTableView(table *model.Table) *TableView {
	tv := NewTableView(table, m.lex, m.hub, m.log)

	m.mu.Lock()
	m.unsub[tv] = m.hub.Subscribe(NewTableModelListener(tv))
	m.views = append(m.views, tv)
	m.mu.Unlock()

	m.log.WithField("table", table.Title()).Debug("table view created")
	return tv
}

// DestroyTableView announces and unregisters a view.
func (m *TableViewManager) DestroyTableView(tv *TableView) bool {
	m.mu.Lock()
	_, ok := m.unsub[tv]
	m.mu.Unlock()
	if !ok {
		return false
	}

	m.hub.Fire(&TableViewAboutToBeDestroyed{View: tv})

	m.mu.Lock()
	unsub := m.unsub[tv]
	delete(m.unsub, tv)
	m.views = slices.DeleteFunc(m.views, func(v *TableView) bool { return v == tv })
	m.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	return true
}

// TableViews returns the registered views of table in creation order.
func (m *TableViewManager) TableViews(table *model.Table) []*TableView {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*TableView
	for _, tv := range m.views {
		if tv.Model() == table {
			out = append(out, tv)
		}
	}
	return out
}

// TableView returns the first registered view of table, or nil.
func (m *TableViewManager) TableView(table *model.Table) *TableView {
	if views := m.TableViews(table); len(views) > 0 {
		return views[0]
	}
	return nil
}

// AllTableViews returns every registered view in creation order.
func (m *TableViewManager) AllTableViews() []*TableView {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.views)
}
