package session

import (
	"errors"
	"fmt"

	"github.com/Benny93/vizsync/internal/lexicon"
	"github.com/Benny93/vizsync/internal/loader"
	"github.com/Benny93/vizsync/internal/model"
	"github.com/Benny93/vizsync/internal/viewmodel"
)

var (
	// ErrUnknownNode is returned when a node identifier matches no node.
	ErrUnknownNode = errors.New("unknown node")

	// ErrUnknownProperty is returned for visual properties outside the
	// session lexicon or of the wrong target.
	ErrUnknownProperty = errors.New("unknown visual property")
)

// ColumnSummary describes one column view.
type ColumnSummary struct {
	Table      string  `json:"table"`
	Name       string  `json:"name"`
	Gravity    float64 `json:"gravity"`
	Style      string  `json:"style,omitempty"`
	Resolution string  `json:"resolution"`
}

// ViewSummary describes the views of one loaded network.
type ViewSummary struct {
	Key           string          `json:"key"`
	Network       string          `json:"network"`
	Renderer      string          `json:"renderer"`
	Style         string          `json:"style"`
	Nodes         int             `json:"nodes"`
	Edges         int             `json:"edges"`
	SelectedNodes []string        `json:"selectedNodes"`
	SelectedEdges []string        `json:"selectedEdges"`
	Columns       []ColumnSummary `json:"columns"`
}

// Summary describes the views of the network loaded under key. Selection is
// read from the views, not the tables.
func (s *Session) Summary(key string) (ViewSummary, error) {
	l, err := s.Document(key)
	if err != nil {
		return ViewSummary{}, err
	}

	net := l.Network
	sum := ViewSummary{
		Key:           key,
		Network:       net.Name(),
		Renderer:      l.View.RendererID(),
		Style:         s.styles.VisualStyle(l.View).Title(),
		Nodes:         l.View.NodeViewCount(),
		Edges:         l.View.EdgeViewCount(),
		SelectedNodes: []string{},
		SelectedEdges: []string{},
	}
	for _, v := range l.View.NodeViews() {
		if v.VisualProperty(lexicon.NodeSelected) == true {
			sum.SelectedNodes = append(sum.SelectedNodes, rowName(net.Row(v.Model())))
		}
	}
	for _, v := range l.View.EdgeViews() {
		if v.VisualProperty(lexicon.EdgeSelected) == true {
			sum.SelectedEdges = append(sum.SelectedEdges, rowName(net.Row(v.Model())))
		}
	}
	for _, tv := range []*viewmodel.TableView{l.NodeTable, l.EdgeTable} {
		for _, cv := range tv.ColumnViews() {
			res, _ := s.columnStyles.Resolve(cv)
			col := ColumnSummary{
				Table:      tv.Model().Type().String(),
				Name:       cv.Name(),
				Gravity:    cv.Gravity(),
				Resolution: res.String(),
			}
			if style := s.columnStyles.VisualStyle(cv); style != nil {
				col.Style = style.Title()
			}
			sum.Columns = append(sum.Columns, col)
		}
	}
	return sum, nil
}

// Summaries describes every loaded network.
func (s *Session) Summaries() []ViewSummary {
	var out []ViewSummary
	for _, key := range s.Keys() {
		if sum, err := s.Summary(key); err == nil {
			out = append(out, sum)
		}
	}
	return out
}

// Select writes the selected column of the given nodes in one batch. Nodes
// are identified by document ID or name. The views follow through the
// model events.
func (s *Session) Select(key string, selected bool, nodes ...string) error {
	l, err := s.Document(key)
	if err != nil {
		return err
	}

	values := make(map[model.SUID]any, len(nodes))
	for _, id := range nodes {
		node := findNode(l.Network, id)
		if node == nil {
			return fmt.Errorf("%q: %w", id, ErrUnknownNode)
		}
		values[node.SUID()] = selected
	}
	if err := l.Network.DefaultNodeTable().SetValues(model.ColSelected, values); err != nil {
		return fmt.Errorf("selecting nodes: %w", err)
	}
	s.bus.Flush()
	return nil
}

// Bypass locks a node property to value on the view of the network loaded
// under key. A nil value removes the lock. It reports whether the view
// changed.
func (s *Session) Bypass(key, node, property string, value any) (bool, error) {
	l, err := s.Document(key)
	if err != nil {
		return false, err
	}
	vp, ok := s.lex.Lookup(property)
	if !ok || vp.Target != lexicon.TargetNode {
		return false, fmt.Errorf("%q: %w", property, ErrUnknownProperty)
	}
	if !vp.Accepts(value) {
		return false, fmt.Errorf("%s value %v: %w", vp.ID, value, model.ErrTypeMismatch)
	}
	n := findNode(l.Network, node)
	if n == nil {
		return false, fmt.Errorf("%q: %w", node, ErrUnknownNode)
	}
	view := l.View.NodeView(n.SUID())
	if view == nil {
		return false, fmt.Errorf("%q: no view: %w", node, ErrUnknownNode)
	}

	var changed bool
	if value == nil {
		changed = view.ClearValueLock(vp)
	} else {
		changed = view.SetLockedValue(vp, value)
	}
	s.bus.Flush()
	return changed, nil
}

func findNode(net *model.Network, id string) *model.Node {
	for _, row := range net.DefaultNodeTable().MatchingRows(loader.ColDocID, id) {
		if n := net.Node(row.SUID()); n != nil {
			return n
		}
	}
	return net.NodeByName(id)
}

func rowName(row *model.Row) string {
	if row == nil {
		return ""
	}
	if id, ok := row.Get(loader.ColDocID).(string); ok {
		return id
	}
	name, _ := row.Get(model.ColName).(string)
	return name
}
