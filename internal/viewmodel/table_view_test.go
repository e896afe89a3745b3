package viewmodel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Benny93/vizsync/internal/events"
	"github.com/Benny93/vizsync/internal/lexicon"
	"github.com/Benny93/vizsync/internal/model"
)

func setupTable(t *testing.T) (*events.Bus, *model.Network, *TableView, *recorder) {
	t.Helper()
	bus := events.NewBus(nil)
	net := model.NewNetwork("net", bus)
	mgr := NewTableViewManager(bus, lexicon.Basic(), nil)
	tv := mgr.CreateTableView(net.DefaultNodeTable())
	rec := &recorder{}
	bus.Subscribe(rec)
	return bus, net, tv, rec
}

func columnNames(views []*ColumnView) []string {
	out := make([]string, len(views))
	for i, cv := range views {
		out[i] = cv.Name()
	}
	return out
}

func reorderEvents(rec *recorder) []*ColumnsReordered {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	var out []*ColumnsReordered
	for _, e := range rec.all {
		if r, ok := e.(*ColumnsReordered); ok {
			out = append(out, r)
		}
	}
	return out
}

func TestTableView_Columns(t *testing.T) {
	t.Parallel()

	t.Run("TracksColumnEvents", func(t *testing.T) {
		t.Parallel()
		bus, net, tv, rec := setupTable(t)
		table := net.DefaultNodeTable()

		_, err := table.CreateColumn("Degree", model.TypeInt)
		require.NoError(t, err)
		require.NotNil(t, tv.ColumnView("Degree"))
		assert.Same(t, tv, tv.ColumnView("Degree").TableView())

		require.NoError(t, table.DeleteColumn("Degree"))
		assert.Nil(t, tv.ColumnView("Degree"))

		bus.Flush()
		assert.Len(t, rec.batches(KindColumnViewsAdded), 1)
		assert.Len(t, rec.batches(KindColumnViewsRemoved), 1)
	})

	t.Run("IgnoresOtherTables", func(t *testing.T) {
		t.Parallel()
		_, net, tv, _ := setupTable(t)

		col, err := net.DefaultEdgeTable().CreateColumn("weight", model.TypeFloat)
		require.NoError(t, err)

		assert.Nil(t, tv.ColumnView("weight"))
		assert.Nil(t, tv.AddColumnView(col))
	})

	t.Run("CreationOrderByDefault", func(t *testing.T) {
		t.Parallel()
		_, _, tv, _ := setupTable(t)

		assert.Equal(t, []string{model.ColSUID, model.ColName, model.ColSelected}, columnNames(tv.ColumnViews()))
	})
}

func TestTableView_Gravity(t *testing.T) {
	t.Parallel()

	t.Run("ReordersOnGravityChange", func(t *testing.T) {
		t.Parallel()
		bus, _, tv, rec := setupTable(t)
		tv.ColumnViews()

		tv.ColumnView(model.ColSUID).SetVisualProperty(lexicon.ColumnGravity, 10.0)

		assert.Equal(t, []string{model.ColName, model.ColSelected, model.ColSUID}, columnNames(tv.ColumnViews()))
		reordered := reorderEvents(rec)
		require.Len(t, reordered, 1)
		assert.Same(t, tv, reordered[0].Source())

		bus.Flush()
		assert.Len(t, rec.batches(KindViewChanged), 1)
	})

	t.Run("ReordersWithoutRead", func(t *testing.T) {
		t.Parallel()
		bus, _, tv, rec := setupTable(t)

		tv.ColumnView(model.ColSUID).SetVisualProperty(lexicon.ColumnGravity, 10.0)
		bus.Flush()

		reordered := reorderEvents(rec)
		require.Len(t, reordered, 1)
		assert.Equal(t, []string{model.ColName, model.ColSelected, model.ColSUID}, columnNames(reordered[0].Columns))
		assert.False(t, tv.ReorderColumns())
	})

	t.Run("Idempotent", func(t *testing.T) {
		t.Parallel()
		_, _, tv, _ := setupTable(t)
		tv.ColumnView(model.ColName).SetVisualProperty(lexicon.ColumnGravity, -1.0)
		tv.ColumnView(model.ColSelected).SetVisualProperty(lexicon.ColumnGravity, -1.0)

		first := tv.ColumnViews()
		assert.False(t, tv.ReorderColumns())
		second := tv.ColumnViews()

		assert.Equal(t, first, second)
		assert.Equal(t, []string{model.ColName, model.ColSelected, model.ColSUID}, columnNames(second))
	})

	t.Run("AtomicMultiColumnUpdate", func(t *testing.T) {
		t.Parallel()
		_, _, tv, _ := setupTable(t)
		suid, name := tv.ColumnView(model.ColSUID), tv.ColumnView(model.ColName)

		changes := tv.UpdateColumns(func(tx *Tx) {
			tx.Set(suid.SUID(), lexicon.ColumnGravity, 2.0, false)
			tx.Set(name.SUID(), lexicon.ColumnGravity, 1.0, false)
		})

		assert.Len(t, changes, 2)
		assert.Same(t, suid.Lock(), name.Lock())
		assert.Equal(t, []string{model.ColSelected, model.ColName, model.ColSUID}, columnNames(tv.ColumnViews()))
	})
}

func TestColumnView_CellValues(t *testing.T) {
	t.Parallel()

	_, net, tv, _ := setupTable(t)
	n := net.AddNode("alpha")
	cv := tv.ColumnView(model.ColName)

	plain := cv.CellVisualProperty(lexicon.CellBackgroundPaint)
	assert.False(t, plain.IsComputed())
	assert.Equal(t, "#FFFFFF", plain.Resolve(net.Row(n)))

	cv.SetCellVisualProperty(lexicon.CellTextColor, Computed(func(row *model.Row) any {
		if row.Get(model.ColName) == "alpha" {
			return "#FF0000"
		}
		return "#000000"
	}))
	computed := cv.CellVisualProperty(lexicon.CellTextColor)
	require.True(t, computed.IsComputed())
	assert.Equal(t, "#FF0000", computed.Resolve(net.Row(n)))
	assert.True(t, cv.IsValueLocked(lexicon.CellTextColor))

	cv.SetCellVisualProperty(lexicon.CellBackgroundPaint, Constant("#EEEEEE"))
	v, ok := cv.CellVisualProperty(lexicon.CellBackgroundPaint).Value()
	assert.True(t, ok)
	assert.Equal(t, "#EEEEEE", v)
}

func TestTableView_VisibleRows(t *testing.T) {
	t.Parallel()

	_, net, tv, _ := setupTable(t)
	nodes := net.AddNodes("a", "b", "c")

	assert.Len(t, tv.VisibleRows(), 3)
	assert.Equal(t, lexicon.ModeAuto, tv.Mode())

	require.NoError(t, net.Row(nodes[1]).Set(model.ColSelected, true))
	assert.Len(t, tv.VisibleRows(), 1)

	tv.SetVisualProperty(lexicon.TableViewMode, lexicon.ModeAll)
	assert.Len(t, tv.VisibleRows(), 3)

	tv.SetVisualProperty(lexicon.TableViewMode, lexicon.ModeSelected)
	require.NoError(t, net.Row(nodes[1]).Set(model.ColSelected, false))
	assert.Empty(t, tv.VisibleRows())
}

func TestTableView_RowView(t *testing.T) {
	t.Parallel()

	_, net, tv, _ := setupTable(t)
	n := net.AddNode("a")

	rv := tv.RowView(n.SUID())
	require.NotNil(t, rv)
	assert.Same(t, rv, tv.RowView(n.SUID()))
	assert.Nil(t, tv.RowView(model.NextSUID()))
}

func TestTableViewManager(t *testing.T) {
	t.Parallel()

	bus := events.NewBus(nil)
	net := model.NewNetwork("net", bus)
	mgr := NewTableViewManager(bus, lexicon.Basic(), nil)
	rec := &recorder{}
	bus.Subscribe(rec)

	tv := mgr.CreateTableView(net.DefaultNodeTable())
	assert.Same(t, tv, mgr.TableView(net.DefaultNodeTable()))
	assert.Nil(t, mgr.TableView(net.DefaultEdgeTable()))

	require.True(t, mgr.DestroyTableView(tv))
	assert.False(t, mgr.DestroyTableView(tv))
	assert.Empty(t, mgr.AllTableViews())

	rec.mu.Lock()
	require.Len(t, rec.all, 1)
	assert.IsType(t, &TableViewAboutToBeDestroyed{}, rec.all[0])
	rec.mu.Unlock()

	_, err := net.DefaultNodeTable().CreateColumn("late", model.TypeString)
	require.NoError(t, err)
	assert.Nil(t, tv.ColumnView("late"))
}
