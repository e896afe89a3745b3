// Package session wires the event bus, view managers and style managers into
// one working set of networks loaded from documents.
package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Benny93/vizsync/internal/config"
	"github.com/Benny93/vizsync/internal/events"
	"github.com/Benny93/vizsync/internal/lexicon"
	"github.com/Benny93/vizsync/internal/loader"
	"github.com/Benny93/vizsync/internal/model"
	"github.com/Benny93/vizsync/internal/storage"
	"github.com/Benny93/vizsync/internal/viewmodel"
	"github.com/Benny93/vizsync/internal/vizmap"
)

// ErrUnknownDocument is returned when no document is loaded under a key.
var ErrUnknownDocument = errors.New("unknown document")

// Options configures a Session.
type Options struct {
	// DefaultStyle is the title of the default visual style.
	DefaultStyle string

	// Backend persists styles and associations. It must already be
	// initialized. Nil keeps everything in memory.
	Backend storage.SessionBackend

	// Log receives session logs. Nil discards them.
	Log *logrus.Logger
}

// Loaded is a network loaded from a document together with its views.
type Loaded struct {
	Key       string
	Network   *model.Network
	View      *viewmodel.NetworkView
	NodeTable *viewmodel.TableView
	EdgeTable *viewmodel.TableView
}

// Session owns the views and styles of every loaded network.
type Session struct {
	id      string
	bus     *events.Bus
	lex     lexicon.Lexicon
	backend storage.SessionBackend
	log     *logrus.Logger

	networkViews *viewmodel.NetworkViewManager
	tableViews   *viewmodel.TableViewManager
	styles       *vizmap.VisualMappingManager
	columnStyles *vizmap.TableVisualMappingManager

	unsub []func()

	mu     sync.Mutex
	loaded map[string]*Loaded
}

// New creates a session with the built-in lexicon.
func New(opts Options) *Session {
	log := opts.Log
	if log == nil {
		log = config.Discard()
	}

	bus := events.NewBus(log)
	lex := lexicon.Basic()
	s := &Session{
		id:      uuid.NewString(),
		bus:     bus,
		lex:     lex,
		backend: opts.Backend,
		log:     log,
		loaded:  make(map[string]*Loaded),
	}
	s.networkViews = viewmodel.NewNetworkViewManager(bus, lex, log)
	s.tableViews = viewmodel.NewTableViewManager(bus, lex, log)
	s.styles = vizmap.NewVisualMappingManager(bus, opts.DefaultStyle, log)
	s.columnStyles = vizmap.NewTableVisualMappingManager(s.networkViews, s.styles, bus, log)

	s.unsub = append(s.unsub,
		bus.Subscribe(s.styles),
		bus.Subscribe(s.columnStyles),
		bus.Subscribe(events.ListenerFunc(s.restyle)),
	)
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Bus returns the session event bus.
func (s *Session) Bus() *events.Bus { return s.bus }

// Lexicon returns the lexicon of every view in the session.
func (s *Session) Lexicon() lexicon.Lexicon { return s.lex }

// NetworkViews returns the network view manager.
func (s *Session) NetworkViews() *viewmodel.NetworkViewManager { return s.networkViews }

// TableViews returns the table view manager.
func (s *Session) TableViews() *viewmodel.TableViewManager { return s.tableViews }

// Styles returns the network style manager.
func (s *Session) Styles() *vizmap.VisualMappingManager { return s.styles }

// ColumnStyles returns the column style manager.
func (s *Session) ColumnStyles() *vizmap.TableVisualMappingManager { return s.columnStyles }

// Run flushes batched view events every interval until ctx is cancelled.
func (s *Session) Run(ctx context.Context, interval time.Duration) {
	s.bus.Run(ctx, interval)
}

// Flush delivers batched view events now.
func (s *Session) Flush() int {
	return s.bus.Flush()
}

// Close destroys every view and releases the backend.
func (s *Session) Close() error {
	for _, key := range s.Keys() {
		s.RemoveDocument(key)
	}
	for _, unsub := range s.unsub {
		unsub()
	}
	if s.backend != nil {
		return s.backend.Close()
	}
	return nil
}

// LoadDocument loads doc under key. The first load creates the network, a
// network view and views of the default node and edge tables; later loads
// reconcile the existing network. The style named by the document becomes
// the view's style and is applied.
func (s *Session) LoadDocument(key string, doc *loader.Document) (*Loaded, loader.Result, error) {
	s.mu.Lock()
	l, ok := s.loaded[key]
	if !ok {
		net := model.NewNetwork(doc.Name, s.bus)
		l = &Loaded{
			Key:       key,
			Network:   net,
			View:      s.networkViews.CreateNetworkView(net),
			NodeTable: s.tableViews.CreateTableView(net.DefaultNodeTable()),
			EdgeTable: s.tableViews.CreateTableView(net.DefaultEdgeTable()),
		}
		s.loaded[key] = l
	}
	s.mu.Unlock()

	res, err := loader.Apply(doc, l.Network)
	if err != nil {
		if !ok {
			s.RemoveDocument(key)
		}
		return nil, res, fmt.Errorf("loading %s: %w", key, err)
	}

	style := s.styles.DefaultStyle()
	if doc.Style != "" {
		style = s.EnsureStyle(doc.Style)
	}
	if err := s.styles.SetVisualStyle(l.View, style); err != nil {
		return nil, res, err
	}
	// Elements added by this load still need the style even when it did not
	// change.
	s.applyNetworkStyle(l)
	s.bus.Flush()

	s.log.WithFields(logrus.Fields{
		"document": key,
		"nodes":    l.Network.NodeCount(),
		"edges":    l.Network.EdgeCount(),
		"style":    style.Title(),
	}).Info("document loaded")
	return l, res, nil
}

// RemoveDocument destroys the views of the network loaded under key and
// forgets it.
func (s *Session) RemoveDocument(key string) bool {
	s.mu.Lock()
	l, ok := s.loaded[key]
	delete(s.loaded, key)
	s.mu.Unlock()
	if !ok {
		return false
	}

	s.tableViews.DestroyTableView(l.NodeTable)
	s.tableViews.DestroyTableView(l.EdgeTable)
	s.networkViews.DestroyNetworkView(l.View)
	s.bus.Flush()
	s.log.WithField("document", key).Info("document removed")
	return true
}

// Document returns the network loaded under key.
func (s *Session) Document(key string) (*Loaded, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.loaded[key]
	if !ok {
		return nil, fmt.Errorf("%q: %w", key, ErrUnknownDocument)
	}
	return l, nil
}

// Keys returns the keys of every loaded document in order.
func (s *Session) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.loaded))
	for k := range s.loaded {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func (s *Session) loadedByView(nv *viewmodel.NetworkView) *Loaded {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.loaded {
		if l.View == nv {
			return l
		}
	}
	return nil
}

func (s *Session) all() []*Loaded {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Loaded, 0, len(s.loaded))
	for _, l := range s.loaded {
		out = append(out, l)
	}
	return out
}

// restyle reapplies styles when a network or column style assignment
// changes.
func (s *Session) restyle(e events.Event) {
	switch e := e.(type) {
	case *vizmap.NetworkVisualStyleSet:
		if l := s.loadedByView(e.View); l != nil {
			s.applyNetworkStyle(l)
		}
	case *vizmap.ColumnAssociatedVisualStyleSet:
		for _, l := range s.all() {
			s.applyColumnStyles(l)
		}
	case *vizmap.ColumnVisualStyleSet:
		if e.Style != nil {
			s.columnStyles.ApplyToColumnView(e.View)
		}
	}
}

func (s *Session) applyNetworkStyle(l *Loaded) {
	s.styles.VisualStyle(l.View).ApplyToNetworkView(l.View)
	s.applyColumnStyles(l)
}

func (s *Session) applyColumnStyles(l *Loaded) {
	for _, tv := range []*viewmodel.TableView{l.NodeTable, l.EdgeTable} {
		for _, cv := range tv.ColumnViews() {
			s.columnStyles.ApplyToColumnView(cv)
		}
		tv.ReorderColumns()
	}
}
