// Package rocrate loads RO-Crate JSON-LD manifests and derives summary
// statistics and narrative text from their graphs.
package rocrate

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/localrivet/cratescribe/internal/errortypes"
)

// RO-Crate 1.1 identifiers.
const (
	ContextURI           = "https://w3id.org/ro/crate/1.1/context"
	ProfileURI           = "https://w3id.org/ro/crate/1.1"
	MetadataDescriptorID = "ro-crate-metadata.json"
	RootDatasetID        = "./"
)

// Entity types looked up by the analyzer.
const (
	TypeDataset      = "Dataset"
	TypeFile         = "File"
	TypePerson       = "Person"
	TypeOrganization = "Organization"
	TypeCreativeWork = "CreativeWork"
)

// Node is one entity of an RO-Crate @graph. References to other entities
// are plain {"@id": ...} objects and are never resolved.
type Node map[string]any

// ID returns the node's @id, or "" when absent.
func (n Node) ID() string {
	id, _ := n["@id"].(string)
	return id
}

// Types returns the node's @type as a list. A single type name is returned
// as a one-element list.
func (n Node) Types() []string {
	switch v := n["@type"].(type) {
	case string:
		return []string{v}
	case []any:
		types := make([]string, 0, len(v))
		for _, t := range v {
			if s, ok := t.(string); ok {
				types = append(types, s)
			}
		}
		return types
	case []string:
		return v
	}
	return nil
}

// HasType reports whether typeName is one of the node's types.
func (n Node) HasType(typeName string) bool {
	for _, t := range n.Types() {
		if t == typeName {
			return true
		}
	}
	return false
}

// String returns the property as a string, or "" when it is absent or not a string.
func (n Node) String(key string) string {
	s, _ := n[key].(string)
	return s
}

// Name returns the node's name property.
func (n Node) Name() string {
	return n.String("name")
}

// Ref returns the @id an object-valued property points to. A bare string
// value is returned unchanged.
func (n Node) Ref(key string) string {
	return refID(n[key])
}

// List returns the property as a list; a single value becomes a one-element list.
func (n Node) List(key string) []any {
	switch v := n[key].(type) {
	case nil:
		return nil
	case []any:
		return v
	default:
		return []any{v}
	}
}

func refID(v any) string {
	switch ref := v.(type) {
	case string:
		return ref
	case map[string]any:
		id, _ := ref["@id"].(string)
		return id
	}
	return ""
}

// truthy mirrors JSON-LD authors' intent for "has a value": null, false,
// zero, empty strings and empty collections count as absent.
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case float64:
		return x != 0
	case []any:
		return len(x) > 0
	case map[string]any:
		return len(x) > 0
	}
	return true
}

// Manifest is a parsed ro-crate-metadata.json document.
type Manifest struct {
	// Context is the raw @context value.
	Context any
	// Graph holds the @graph entities in document order.
	Graph []Node
	// Document is the whole decoded document.
	Document map[string]any
}

// Parse decodes a manifest. Entities of @graph that are not JSON objects are
// skipped; a missing or malformed @graph yields an empty Graph.
func Parse(data []byte) (*Manifest, error) {
	if len(data) == 0 {
		return nil, errortypes.ValidationError(errors.New("empty manifest data"), "failed to parse manifest")
	}

	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errortypes.ValidationError(err, "failed to parse manifest")
	}
	return FromDocument(doc), nil
}

// FromDocument builds a Manifest from an already decoded document.
func FromDocument(doc map[string]any) *Manifest {
	m := &Manifest{
		Context:  doc["@context"],
		Document: doc,
	}
	if items, ok := doc["@graph"].([]any); ok {
		m.Graph = make([]Node, 0, len(items))
		for _, item := range items {
			if obj, ok := item.(map[string]any); ok {
				m.Graph = append(m.Graph, Node(obj))
			}
		}
	}
	return m
}

// Load reads and parses the manifest at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}
	m, err := Parse(data)
	if err != nil {
		var appErr *errortypes.AppError
		if errors.As(err, &appErr) {
			appErr.WithField("path", path)
		}
		return nil, err
	}
	return m, nil
}
