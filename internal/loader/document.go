// Package loader reads network documents from disk and reconciles them onto
// in-memory networks.
//
// A network document is a JSON file describing one network:
//
//	{
//	  "name": "ppi",
//	  "style": "degree",
//	  "nodes": [{"id": "a", "name": "A", "selected": true, "attrs": {"Degree": 3}}],
//	  "edges": [{"id": "a-b", "source": "a", "target": "b", "directed": true}]
//	}
//
// Applying a document fires the same model events an interactive edit
// would, so views attached to the network follow along.
package loader

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ErrInvalidDocument is returned for structurally invalid documents.
var ErrInvalidDocument = errors.New("invalid network document")

// NodeDoc describes one node.
type NodeDoc struct {
	ID       string         `json:"id"`
	Name     string         `json:"name,omitempty"`
	Selected bool           `json:"selected,omitempty"`
	Attrs    map[string]any `json:"attrs,omitempty"`
}

// EdgeDoc describes one edge between two document nodes.
type EdgeDoc struct {
	ID       string         `json:"id,omitempty"`
	Source   string         `json:"source"`
	Target   string         `json:"target"`
	Name     string         `json:"name,omitempty"`
	Directed bool           `json:"directed,omitempty"`
	Selected bool           `json:"selected,omitempty"`
	Attrs    map[string]any `json:"attrs,omitempty"`
}

// Document is a decoded network document.
type Document struct {
	Name  string    `json:"name"`
	Style string    `json:"style,omitempty"`
	Nodes []NodeDoc `json:"nodes"`
	Edges []EdgeDoc `json:"edges,omitempty"`
}

// Decode reads and validates a document.
func Decode(r io.Reader) (*Document, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding network document: %w", err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Encode writes doc as indented JSON.
func Encode(w io.Writer, doc *Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding network document: %w", err)
	}
	return nil
}

// Validate checks identifiers and edge endpoints. Missing edge IDs are
// filled in from the endpoints.
func (d *Document) Validate() error {
	nodes := make(map[string]bool, len(d.Nodes))
	for i, n := range d.Nodes {
		if n.ID == "" {
			return fmt.Errorf("node %d: missing id: %w", i, ErrInvalidDocument)
		}
		if nodes[n.ID] {
			return fmt.Errorf("node %q: duplicate id: %w", n.ID, ErrInvalidDocument)
		}
		nodes[n.ID] = true
	}

	edges := make(map[string]bool, len(d.Edges))
	for i := range d.Edges {
		e := &d.Edges[i]
		if !nodes[e.Source] || !nodes[e.Target] {
			return fmt.Errorf("edge %d: unknown endpoint %q -> %q: %w", i, e.Source, e.Target, ErrInvalidDocument)
		}
		if e.ID == "" {
			e.ID = e.Source + "->" + e.Target
		}
		if edges[e.ID] {
			return fmt.Errorf("edge %q: duplicate id: %w", e.ID, ErrInvalidDocument)
		}
		edges[e.ID] = true
	}
	return nil
}

// NodeName returns the display name of a node, defaulting to its ID.
func (n NodeDoc) NodeName() string {
	if n.Name != "" {
		return n.Name
	}
	return n.ID
}
