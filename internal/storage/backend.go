// Package storage persists vizsync session state.
//
// It defines the SessionBackend protocol that all storage implementations
// must satisfy, along with the records they store. Records refer to visual
// styles by title so they stay valid across sessions.
package storage

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrNotInitialized is returned by operations on a backend that is not open.
	ErrNotInitialized = errors.New("storage backend not initialized")

	// ErrReadOnly is returned by writes to a backend opened read-only.
	ErrReadOnly = errors.New("storage backend is read-only")
)

// Mapping kinds stored in MappingRecord.Kind.
const (
	MappingPassthrough = "passthrough"
	MappingDiscrete    = "discrete"
)

// EntryRecord is one key/value pair of a discrete mapping.
type EntryRecord struct {
	Key   any `json:"key"`
	Value any `json:"value"`
}

// MappingRecord describes one mapping of a style.
type MappingRecord struct {
	// Kind is MappingPassthrough or MappingDiscrete.
	Kind string `json:"kind"`

	// Column is the data column the mapping reads.
	Column string `json:"column"`

	// Property is the visual property ID the mapping writes.
	Property string `json:"property"`

	// Entries holds the discrete mapping table.
	Entries []EntryRecord `json:"entries,omitempty"`
}

// StyleRecord is the stored form of a visual style.
type StyleRecord struct {
	// Title identifies the style.
	Title string `json:"title"`

	// Defaults maps visual property IDs to default values.
	Defaults map[string]any `json:"defaults,omitempty"`

	// Mappings in style order.
	Mappings []MappingRecord `json:"mappings,omitempty"`
}

// AssociationRecord is the stored form of a column style association.
type AssociationRecord struct {
	NetworkStyle string `json:"networkStyle"`
	TableType    string `json:"tableType"`
	ColumnName   string `json:"columnName"`
	ColumnStyle  string `json:"columnStyle"`
}

// Key identifies the association slot the record fills.
func (a AssociationRecord) Key() string {
	return strings.Join([]string{a.NetworkStyle, a.TableType, a.ColumnName}, "\x1f")
}

// References reports whether the record uses the style with the given title.
func (a AssociationRecord) References(title string) bool {
	return a.NetworkStyle == title || a.ColumnStyle == title
}

// SessionBackend defines the interface for storage implementations.
//
// Implementations must be thread-safe and support concurrent access.
type SessionBackend interface {
	// Initialize opens or creates the storage backend at the given path.
	// If readOnly is true, the backend is opened in read-only mode.
	Initialize(path string, readOnly bool) error

	// Close releases all resources held by the backend.
	Close() error

	// SaveStyle inserts or replaces a style by title.
	SaveStyle(ctx context.Context, style StyleRecord) error

	// DeleteStyle removes a style and every association referencing it.
	DeleteStyle(ctx context.Context, title string) error

	// Styles returns every stored style ordered by title.
	Styles(ctx context.Context) ([]StyleRecord, error)

	// SaveAssociation inserts or replaces an association by key.
	SaveAssociation(ctx context.Context, assoc AssociationRecord) error

	// DeleteAssociation removes the association with the given key.
	DeleteAssociation(ctx context.Context, key string) error

	// Associations returns every stored association ordered by key.
	Associations(ctx context.Context) ([]AssociationRecord, error)
}
