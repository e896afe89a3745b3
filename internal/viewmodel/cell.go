package viewmodel

import "github.com/Benny93/vizsync/internal/model"

// RowFunc computes a cell property value from the row being rendered.
type RowFunc func(row *model.Row) any

// CellValue is the value of a cell-level property on a column view: either a
// constant shared by every cell or a function of the row.
type CellValue struct {
	fn       RowFunc
	constant any
}

// Constant wraps a plain value.
func Constant(v any) CellValue {
	return CellValue{constant: v}
}

// Computed wraps a per-row function. A nil function resolves to nil.
func Computed(fn RowFunc) CellValue {
	if fn == nil {
		return CellValue{}
	}
	return CellValue{fn: fn}
}

// IsComputed reports whether the value depends on the row.
func (c CellValue) IsComputed() bool { return c.fn != nil }

// Value returns the constant value. ok is false for computed values.
func (c CellValue) Value() (v any, ok bool) {
	if c.fn != nil {
		return nil, false
	}
	return c.constant, true
}

// Resolve returns the value for one row.
func (c CellValue) Resolve(row *model.Row) any {
	if c.fn != nil {
		return c.fn(row)
	}
	return c.constant
}
