package model

import (
	"cmp"
	"fmt"
	"slices"
	"sync"

	"github.com/Benny93/vizsync/internal/events"
)

// Column is a named, typed column of a table.
type Column struct {
	suid  SUID
	name  string
	typ   ColumnType
	table *Table
}

// SUID implements Identifiable.
func (c *Column) SUID() SUID { return c.suid }

// Name returns the column name.
func (c *Column) Name() string { return c.name }

// Type returns the declared value type.
func (c *Column) Type() ColumnType { return c.typ }

// Table returns the table the column belongs to.
func (c *Column) Table() *Table { return c.table }

// Row is one record of a table, keyed by the SUID of the element it describes.
type Row struct {
	key    SUID
	table  *Table
	values map[string]any
}

// SUID returns the key of the row, which is the SUID of its element.
func (r *Row) SUID() SUID { return r.key }

// Table returns the table holding the row.
func (r *Row) Table() *Table { return r.table }

// Get returns the value stored in the named column, or nil.
func (r *Row) Get(column string) any {
	r.table.mu.RLock()
	defer r.table.mu.RUnlock()
	return r.values[column]
}

// Values returns a copy of every value in the row.
func (r *Row) Values() map[string]any {
	r.table.mu.RLock()
	defer r.table.mu.RUnlock()
	out := make(map[string]any, len(r.values))
	for k, v := range r.values {
		out[k] = v
	}
	return out
}

// Set stores a single value and fires RowsSet.
func (r *Row) Set(column string, value any) error {
	return r.table.SetValues(column, map[SUID]any{r.key: value})
}

// Table is a set of rows sharing one column schema.
//
// Tables that belong to a network know their namespace and the kind of
// element their rows describe; unassigned tables have neither.
type Table struct {
	suid      SUID
	title     string
	namespace string
	typ       TableType
	network   *Network
	firer     events.Firer

	mu      sync.RWMutex
	columns []*Column
	byName  map[string]*Column
	rows    map[SUID]*Row
}

// NewTable creates an unassigned table with only the SUID column.
// A nil firer disables events.
func NewTable(title string, firer events.Firer) *Table {
	return newTable(title, "", TableUnassigned, nil, firer)
}

func newTable(title, namespace string, typ TableType, network *Network, firer events.Firer) *Table {
	t := &Table{
		suid:      NextSUID(),
		title:     title,
		namespace: namespace,
		typ:       typ,
		network:   network,
		firer:     firer,
		byName:    make(map[string]*Column),
		rows:      make(map[SUID]*Row),
	}
	t.addColumnLocked(ColSUID, TypeInt)
	return t
}

// SUID implements Identifiable.
func (t *Table) SUID() SUID { return t.suid }

// Title returns the display title of the table.
func (t *Table) Title() string { return t.title }

// Namespace returns the table namespace, empty for unassigned tables.
func (t *Table) Namespace() string { return t.namespace }

// Type returns the kind of element the rows describe.
func (t *Table) Type() TableType { return t.typ }

// Network returns the owning network, or nil for unassigned tables.
func (t *Table) Network() *Network { return t.network }

func (t *Table) fire(e events.Event) {
	if t.firer != nil {
		t.firer.Fire(e)
	}
}

func (t *Table) addColumnLocked(name string, typ ColumnType) *Column {
	col := &Column{suid: NextSUID(), name: name, typ: typ, table: t}
	t.columns = append(t.columns, col)
	t.byName[name] = col
	return col
}

// CreateColumn adds a column and fires ColumnCreated.
func (t *Table) CreateColumn(name string, typ ColumnType) (*Column, error) {
	if name == "" {
		return nil, fmt.Errorf("creating column: empty name")
	}

	t.mu.Lock()
	if _, ok := t.byName[name]; ok {
		t.mu.Unlock()
		return nil, fmt.Errorf("creating column %q: %w", name, ErrColumnExists)
	}
	col := t.addColumnLocked(name, typ)
	t.mu.Unlock()

	t.fire(&ColumnCreated{Table: t, Column: col})
	return col, nil
}

// DeleteColumn removes a column and its values, firing ColumnDeleted.
// The SUID column cannot be deleted.
func (t *Table) DeleteColumn(name string) error {
	if name == ColSUID {
		return fmt.Errorf("deleting column %q: %w", name, ErrImmutableColumn)
	}

	t.mu.Lock()
	col, ok := t.byName[name]
	if !ok {
		t.mu.Unlock()
		return fmt.Errorf("deleting column %q: %w", name, ErrColumnNotFound)
	}
	delete(t.byName, name)
	t.columns = slices.DeleteFunc(t.columns, func(c *Column) bool { return c == col })
	for _, row := range t.rows {
		delete(row.values, name)
	}
	t.mu.Unlock()

	t.fire(&ColumnDeleted{Table: t, Column: col})
	return nil
}

// Column returns the named column, or nil.
func (t *Table) Column(name string) *Column {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.byName[name]
}

// Columns returns the columns in creation order.
func (t *Table) Columns() []*Column {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Clone(t.columns)
}

// CreateRow returns the row for key, creating it if needed. Row creation
// does not fire RowsSet.
func (t *Table) CreateRow(key SUID) *Row {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.createRowLocked(key)
}

func (t *Table) createRowLocked(key SUID) *Row {
	if row, ok := t.rows[key]; ok {
		return row
	}
	row := &Row{key: key, table: t, values: map[string]any{ColSUID: int64(key)}}
	t.rows[key] = row
	return row
}

// DeleteRows removes rows by key. Missing keys are ignored.
func (t *Table) DeleteRows(keys ...SUID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, k := range keys {
		delete(t.rows, k)
	}
}

// Row returns the row for key, or nil.
func (t *Table) Row(key SUID) *Row {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.rows[key]
}

// Rows returns every row ordered by key.
func (t *Table) Rows() []*Row {
	t.mu.RLock()
	defer t.mu.RUnlock()
	rows := make([]*Row, 0, len(t.rows))
	for _, r := range t.rows {
		rows = append(rows, r)
	}
	slices.SortFunc(rows, func(a, b *Row) int { return cmp.Compare(a.key, b.key) })
	return rows
}

// RowCount returns the number of rows.
func (t *Table) RowCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rows)
}

// MatchingRows returns the rows whose column equals value, ordered by key.
func (t *Table) MatchingRows(column string, value any) []*Row {
	var out []*Row
	for _, r := range t.Rows() {
		if r.Get(column) == value {
			out = append(out, r)
		}
	}
	return out
}

// SetValues stores one value per row key in column and fires a single
// RowsSet event. Every key and value is validated before anything is
// written.
func (t *Table) SetValues(column string, values map[SUID]any) error {
	if column == ColSUID {
		return fmt.Errorf("setting %q: %w", column, ErrImmutableColumn)
	}

	t.mu.Lock()
	col, ok := t.byName[column]
	if !ok {
		t.mu.Unlock()
		return fmt.Errorf("setting %q: %w", column, ErrColumnNotFound)
	}

	keys := make([]SUID, 0, len(values))
	for k, v := range values {
		if _, ok := t.rows[k]; !ok {
			t.mu.Unlock()
			return fmt.Errorf("setting %q on row %d: %w", column, k, ErrRowNotFound)
		}
		if !col.typ.Accepts(v) {
			t.mu.Unlock()
			return fmt.Errorf("setting %q to %T: %w", column, v, ErrTypeMismatch)
		}
		keys = append(keys, k)
	}
	slices.Sort(keys)

	records := make([]RowSetRecord, 0, len(keys))
	for _, k := range keys {
		row := t.rows[k]
		v := values[k]
		if v == nil {
			delete(row.values, column)
		} else {
			row.values[column] = v
		}
		records = append(records, RowSetRecord{Row: row, Column: column, Value: v})
	}
	t.mu.Unlock()

	if len(records) > 0 {
		t.fire(&RowsSet{Table: t, Records: records})
	}
	return nil
}
