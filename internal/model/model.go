// Package model provides the data model that views are projected from.
//
// It defines networks of nodes and edges, the tables that hold their
// attributes, and the events fired whenever the model changes. Every element
// carries a SUID, a process-unique identifier that views use to correlate
// themselves with model objects.
package model

import (
	"errors"
	"fmt"
	"sync/atomic"
)

// SUID is the session-unique identifier of a model element.
type SUID uint64

var suidCounter atomic.Uint64

// NextSUID allocates a new SUID. SUIDs are never reused.
func NextSUID() SUID {
	return SUID(suidCounter.Add(1))
}

// Identifiable is implemented by everything that carries a SUID.
type Identifiable interface {
	SUID() SUID
}

// TableType identifies the kind of element the rows of a table describe.
type TableType int

const (
	TableUnassigned TableType = iota
	TableNode
	TableEdge
	TableNetwork
)

// String returns the lowercase name of the table type.
func (t TableType) String() string {
	switch t {
	case TableNode:
		return "node"
	case TableEdge:
		return "edge"
	case TableNetwork:
		return "network"
	default:
		return "unassigned"
	}
}

// ParseTableType is the inverse of TableType.String.
func ParseTableType(s string) (TableType, error) {
	switch s {
	case "node":
		return TableNode, nil
	case "edge":
		return TableEdge, nil
	case "network":
		return TableNetwork, nil
	case "unassigned", "":
		return TableUnassigned, nil
	default:
		return TableUnassigned, fmt.Errorf("unknown table type %q", s)
	}
}

// Table namespaces.
const (
	DefaultAttrs = "default"
	LocalAttrs   = "local"
	HiddenAttrs  = "hidden"
)

// Well-known column names.
const (
	ColSUID     = "SUID"
	ColName     = "name"
	ColSelected = "selected"
)

// ColumnType is the declared value type of a column.
type ColumnType string

const (
	TypeInt    ColumnType = "int"
	TypeFloat  ColumnType = "float"
	TypeString ColumnType = "string"
	TypeBool   ColumnType = "bool"
	TypeAny    ColumnType = "any"
)

// Accepts reports whether v may be stored in a column of this type.
// Nil is accepted by every type and clears the cell.
func (t ColumnType) Accepts(v any) bool {
	if v == nil {
		return true
	}
	switch t {
	case TypeInt:
		switch v.(type) {
		case int, int32, int64, SUID:
			return true
		}
		return false
	case TypeFloat:
		switch v.(type) {
		case float64, float32, int, int64:
			return true
		}
		return false
	case TypeString:
		_, ok := v.(string)
		return ok
	case TypeBool:
		_, ok := v.(bool)
		return ok
	default:
		return true
	}
}

// Sentinel errors.
var (
	ErrColumnNotFound   = errors.New("column not found")
	ErrColumnExists     = errors.New("column already exists")
	ErrImmutableColumn  = errors.New("column cannot be deleted")
	ErrTypeMismatch     = errors.New("value does not match column type")
	ErrNodeNotInNetwork = errors.New("node does not belong to this network")
	ErrRowNotFound      = errors.New("row not found")
)
