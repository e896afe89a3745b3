package viewmodel

import (
	"cmp"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Benny93/vizsync/internal/lexicon"
	"github.com/Benny93/vizsync/internal/metrics"
	"github.com/Benny93/vizsync/internal/model"
)

// ColumnView is the view of one table column. All column views of a table
// view share the table view's column store and lock.
type ColumnView struct {
	*View[*model.Column]

	table *TableView
	seq   int
}

// Name returns the name of the bound column.
func (cv *ColumnView) Name() string { return cv.Model().Name() }

// TableView returns the table view the column view belongs to.
func (cv *ColumnView) TableView() *TableView { return cv.table }

// SetCellVisualProperty stores a cell-level value for every cell of the
// column. It occupies the bypass layer of the column slot.
func (cv *ColumnView) SetCellVisualProperty(vp *lexicon.VisualProperty, value CellValue) bool {
	return cv.SetLockedValue(vp, value)
}

// CellVisualProperty returns the cell-level value of vp. Plain values are
// wrapped as constants.
func (cv *ColumnView) CellVisualProperty(vp *lexicon.VisualProperty) CellValue {
	v := cv.VisualProperty(vp)
	if c, ok := v.(CellValue); ok {
		return c
	}
	return Constant(v)
}

// Gravity returns the column's position weight.
func (cv *ColumnView) Gravity() float64 {
	switch g := cv.VisualProperty(lexicon.ColumnGravity).(type) {
	case float64:
		return g
	case CellValue:
		if v, ok := g.Value(); ok {
			if f, ok := v.(float64); ok {
				return f
			}
		}
	}
	return 0
}

// TableView is the view of one table. Column views are kept ordered by
// COLUMN_GRAVITY, ties broken by creation order.
type TableView struct {
	*View[*model.Table]

	rendererID string
	lex        lexicon.Lexicon
	emit       Emitter
	log        *logrus.Logger

	columnStore *VPStore
	rowStore    *VPStore

	mu      sync.RWMutex
	columns map[model.SUID]*ColumnView
	ordered []*ColumnView
	rows    map[model.SUID]*RowView
	nextSeq int
	dirty   bool
}

// NewTableView creates a view of table with a column view per existing
// column. Later column changes are applied by a TableModelListener.
func NewTableView(table *model.Table, lex lexicon.Lexicon, emit Emitter, log *logrus.Logger) *TableView {
	tv := &TableView{
		rendererID: uuid.NewString(),
		lex:        lex,
		emit:       emitterOrNop(emit),
		log:        orDiscard(log),
		columns:    make(map[model.SUID]*ColumnView),
		rows:       make(map[model.SUID]*RowView),
	}

	tv.View = newView(table, newVPStore(lex, NewViewLock(), tv.log, tv.recordChanges(func(model.SUID) Viewer {
		return tv.View
	})))
	tv.columnStore = newVPStore(lex, NewViewLock(), tv.log, tv.columnChanged)
	tv.rowStore = newVPStore(lex, NewViewLock(), tv.log, tv.recordChanges(func(suid model.SUID) Viewer {
		tv.mu.RLock()
		defer tv.mu.RUnlock()
		if v := tv.rows[suid]; v != nil {
			return v
		}
		return nil
	}))

	for _, col := range table.Columns() {
		tv.addColumnLocked(col)
	}
	metrics.ViewsCreated.WithLabelValues("column").Add(float64(len(tv.columns)))
	return tv
}

func (tv *TableView) recordChanges(lookup func(model.SUID) Viewer) func([]Change) {
	return func(changes []Change) {
		for _, c := range changes {
			v := lookup(c.SUID)
			if v == nil {
				continue
			}
			tv.emit.AddPayload(tv, KindViewChanged, &ViewChangeRecord{
				View:     v,
				Property: c.Property,
				Value:    c.Value,
				Locked:   c.Locked,
			})
		}
	}
}

func (tv *TableView) columnChanged(changes []Change) {
	reorder := false
	for _, c := range changes {
		if c.Property == lexicon.ColumnGravity {
			tv.mu.Lock()
			tv.dirty = true
			tv.mu.Unlock()
			reorder = true
			break
		}
	}
	tv.recordChanges(func(suid model.SUID) Viewer {
		if v := tv.ColumnViewBySUID(suid); v != nil {
			return v
		}
		return nil
	})(changes)
	if reorder {
		tv.ReorderColumns()
	}
}

// RendererID identifies the rendering context the view was created for.
func (tv *TableView) RendererID() string { return tv.rendererID }

// ColumnStore returns the store shared by all column views.
func (tv *TableView) ColumnStore() *VPStore { return tv.columnStore }

// UpdateColumns applies several column writes under the shared column lock.
func (tv *TableView) UpdateColumns(fn func(tx *Tx)) []Change {
	return tv.columnStore.Update(fn)
}

// ColumnView returns the view of the named column, or nil.
func (tv *TableView) ColumnView(name string) *ColumnView {
	tv.mu.RLock()
	defer tv.mu.RUnlock()
	for _, cv := range tv.ordered {
		if cv.Name() == name {
			return cv
		}
	}
	return nil
}

// ColumnViewBySUID returns the view of the column with the given SUID, or nil.
func (tv *TableView) ColumnViewBySUID(suid model.SUID) *ColumnView {
	tv.mu.RLock()
	defer tv.mu.RUnlock()
	return tv.columns[suid]
}

// ColumnViews returns the column views in gravity order, re-sorting first
// if any gravity changed since the last sort.
func (tv *TableView) ColumnViews() []*ColumnView {
	tv.mu.RLock()
	dirty := tv.dirty
	tv.mu.RUnlock()
	if dirty {
		tv.ReorderColumns()
	}

	tv.mu.RLock()
	defer tv.mu.RUnlock()
	return slices.Clone(tv.ordered)
}

// ReorderColumns sorts the column views by gravity. It reports whether the
// order changed and fires ColumnsReordered if so. Sorting an already sorted
// table is a no-op.
func (tv *TableView) ReorderColumns() bool {
	tv.mu.RLock()
	current := slices.Clone(tv.ordered)
	tv.mu.RUnlock()

	gravity := make(map[*ColumnView]float64, len(current))
	for _, cv := range current {
		gravity[cv] = cv.Gravity()
	}

	tv.mu.Lock()
	next := slices.Clone(tv.ordered)
	slices.SortStableFunc(next, func(a, b *ColumnView) int {
		if c := cmp.Compare(gravity[a], gravity[b]); c != 0 {
			return c
		}
		return cmp.Compare(a.seq, b.seq)
	})
	tv.dirty = false
	changed := !slices.Equal(next, tv.ordered)
	if changed {
		tv.ordered = next
	}
	tv.mu.Unlock()

	if !changed {
		return false
	}
	tv.log.WithField("table", tv.Model().Title()).Debug("column order changed")
	tv.emit.Fire(&ColumnsReordered{View: tv, Columns: slices.Clone(next)})
	return true
}

// AddColumnView creates the view of a column. It returns nil when the
// column already has a view or belongs to another table.
func (tv *TableView) AddColumnView(col *model.Column) *ColumnView {
	if col.Table() != tv.Model() {
		return nil
	}
	tv.mu.Lock()
	cv := tv.addColumnLocked(col)
	tv.mu.Unlock()
	if cv == nil {
		return nil
	}

	metrics.ViewsCreated.WithLabelValues("column").Inc()
	tv.emit.AddPayload(tv, KindColumnViewsAdded, cv)
	return cv
}

func (tv *TableView) addColumnLocked(col *model.Column) *ColumnView {
	if _, ok := tv.columns[col.SUID()]; ok {
		return nil
	}
	cv := &ColumnView{View: newView(col, tv.columnStore), table: tv, seq: tv.nextSeq}
	tv.nextSeq++
	tv.columns[col.SUID()] = cv
	tv.ordered = append(tv.ordered, cv)
	tv.dirty = true
	return cv
}

// RemoveColumnView drops the view of a column and its stored values.
func (tv *TableView) RemoveColumnView(col *model.Column) *ColumnView {
	tv.mu.Lock()
	cv, ok := tv.columns[col.SUID()]
	if ok {
		delete(tv.columns, col.SUID())
		tv.ordered = slices.DeleteFunc(tv.ordered, func(v *ColumnView) bool { return v == cv })
	}
	tv.mu.Unlock()
	if !ok {
		return nil
	}

	tv.columnStore.Remove(col.SUID())
	metrics.ViewsRemoved.WithLabelValues("column").Inc()
	tv.emit.AddPayload(tv, KindColumnViewsRemoved, cv)
	return cv
}

// RowView returns the view of a row of the table, creating it on first use.
// It returns nil when the table has no such row.
func (tv *TableView) RowView(suid model.SUID) *RowView {
	row := tv.Model().Row(suid)
	if row == nil {
		return nil
	}

	tv.mu.Lock()
	defer tv.mu.Unlock()
	if v, ok := tv.rows[suid]; ok {
		return v
	}
	v := newView(row, tv.rowStore)
	tv.rows[suid] = v
	return v
}

// Mode returns the TABLE_VIEW_MODE of the view.
func (tv *TableView) Mode() string {
	if m, ok := tv.VisualProperty(lexicon.TableViewMode).(string); ok {
		return m
	}
	return lexicon.ModeAuto
}

// VisibleRows returns the rows the current view mode shows. In auto mode
// only selected rows are shown when any row is selected.
func (tv *TableView) VisibleRows() []*model.Row {
	table := tv.Model()
	switch tv.Mode() {
	case lexicon.ModeSelected:
		return table.MatchingRows(model.ColSelected, true)
	case lexicon.ModeAuto:
		if selected := table.MatchingRows(model.ColSelected, true); len(selected) > 0 {
			return selected
		}
	}
	return table.Rows()
}
