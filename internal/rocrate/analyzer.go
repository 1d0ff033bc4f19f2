package rocrate

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// DefaultMaxFiles is how many file entries NarrativeText lists by default.
const DefaultMaxFiles = 10

// NoRootDatasetText is the narrative returned for a crate without a root dataset.
const NoRootDatasetText = "No root dataset found in this RO-Crate."

// ErrNoRootDataset is returned when an operation needs the root dataset and
// the graph has none.
var ErrNoRootDataset = errors.New("no root dataset found")

// Analyzer answers questions about a manifest's graph.
type Analyzer struct {
	graph    []Node
	maxFiles int
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithMaxFiles sets how many files NarrativeText lists. Values <= 0 keep the default.
func WithMaxFiles(n int) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.maxFiles = n
		}
	}
}

// NewAnalyzer creates an analyzer over a parsed manifest.
func NewAnalyzer(m *Manifest, opts ...Option) *Analyzer {
	var graph []Node
	if m != nil {
		graph = m.Graph
	}
	return NewAnalyzerFromGraph(graph, opts...)
}

// NewAnalyzerFromGraph creates an analyzer over an already decoded graph.
func NewAnalyzerFromGraph(graph []Node, opts ...Option) *Analyzer {
	a := &Analyzer{graph: graph, maxFiles: DefaultMaxFiles}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Graph returns the entities the analyzer works on.
func (a *Analyzer) Graph() []Node {
	return a.graph
}

// RootDataset returns the first entity with @id "./" typed Dataset.
func (a *Analyzer) RootDataset() (Node, bool) {
	return findRoot(a.graph)
}

func findRoot(graph []Node) (Node, bool) {
	for _, n := range graph {
		if n.ID() == RootDatasetID && n.HasType(TypeDataset) {
			return n, true
		}
	}
	return nil, false
}

// NodesOfType returns every entity carrying typeName, in graph order.
func (a *Analyzer) NodesOfType(typeName string) []Node {
	var out []Node
	for _, n := range a.graph {
		if n.HasType(typeName) {
			out = append(out, n)
		}
	}
	return out
}

// Files returns the File entities.
func (a *Analyzer) Files() []Node { return a.NodesOfType(TypeFile) }

// People returns the Person entities.
func (a *Analyzer) People() []Node { return a.NodesOfType(TypePerson) }

// Organizations returns the Organization entities.
func (a *Analyzer) Organizations() []Node { return a.NodesOfType(TypeOrganization) }

// CountsByType counts entities per type. A node with several types is
// counted once under each of them.
func (a *Analyzer) CountsByType() map[string]int {
	counts := make(map[string]int)
	for _, n := range a.graph {
		for _, t := range n.Types() {
			counts[t]++
		}
	}
	return counts
}

// SummaryStats describes the overall shape of a crate.
type SummaryStats struct {
	TotalEntities      int            `json:"total_entities"`
	FilesCount         int            `json:"files_count"`
	PeopleCount        int            `json:"people_count"`
	OrganizationsCount int            `json:"organizations_count"`
	HasRootDataset     bool           `json:"has_root_dataset"`
	EntityTypes        map[string]int `json:"entity_types"`
	Name               *string        `json:"name"`
	DescriptionLength  int            `json:"description_length"`
	KeywordsCount      int            `json:"keywords_count"`
	HasLicense         bool           `json:"has_license"`
	HasDatePublished   bool           `json:"has_date_published"`
}

// SummaryStats computes the crate statistics. Root-dataset fields are zero
// when there is no root dataset.
func (a *Analyzer) SummaryStats() SummaryStats {
	stats := SummaryStats{
		TotalEntities:      len(a.graph),
		FilesCount:         len(a.Files()),
		PeopleCount:        len(a.People()),
		OrganizationsCount: len(a.Organizations()),
		EntityTypes:        a.CountsByType(),
	}

	root, ok := a.RootDataset()
	if !ok {
		return stats
	}
	stats.HasRootDataset = true
	if name, ok := root["name"].(string); ok {
		stats.Name = &name
	}
	stats.DescriptionLength = utf8.RuneCountInString(root.String("description"))
	stats.KeywordsCount = len(Keywords(root))
	stats.HasLicense = truthy(root["license"])
	stats.HasDatePublished = truthy(root["datePublished"])
	return stats
}

// Keywords returns a node's keywords. A list is taken as is; a single string
// is split on commas, which is how schema.org allows keywords to be written.
func Keywords(n Node) []string {
	switch v := n["keywords"].(type) {
	case []any:
		out := make([]string, 0, len(v))
		for _, k := range v {
			out = append(out, fmt.Sprint(k))
		}
		return out
	case string:
		var out []string
		for _, k := range strings.Split(v, ",") {
			if k = strings.TrimSpace(k); k != "" {
				out = append(out, k)
			}
		}
		return out
	}
	return nil
}

// CreatorNames lists the names of a node's creators. Creators without a
// name are reported as "Unknown".
func CreatorNames(n Node) []string {
	var names []string
	for _, c := range n.List("creator") {
		switch creator := c.(type) {
		case map[string]any:
			if name, ok := creator["name"].(string); ok {
				names = append(names, name)
			} else {
				names = append(names, "Unknown")
			}
		case string:
			names = append(names, creator)
		}
	}
	return names
}

// NarrativeText renders the crate as labelled lines suitable for a prompt.
func (a *Analyzer) NarrativeText() string {
	root, ok := a.RootDataset()
	if !ok {
		return NoRootDatasetText
	}

	var parts []string
	if truthy(root["name"]) {
		parts = append(parts, fmt.Sprintf("Dataset Name: %v", root["name"]))
	}
	if truthy(root["description"]) {
		parts = append(parts, fmt.Sprintf("Description: %v", root["description"]))
	}
	if kw := Keywords(root); len(kw) > 0 {
		parts = append(parts, "Keywords: "+strings.Join(kw, ", "))
	}
	if truthy(root["datePublished"]) {
		parts = append(parts, fmt.Sprintf("Published: %v", root["datePublished"]))
	}
	if lic, ok := root["license"].(map[string]any); ok {
		if id, _ := lic["@id"].(string); id != "" {
			parts = append(parts, "License: "+id)
		}
	}
	if creators := CreatorNames(root); len(creators) > 0 {
		parts = append(parts, "Creators: "+strings.Join(creators, ", "))
	}

	files := a.Files()
	if len(files) > 0 {
		parts = append(parts, fmt.Sprintf("Number of files: %d", len(files)))
		parts = append(parts, "Files included:")

		shown := files
		if len(shown) > a.maxFiles {
			shown = shown[:a.maxFiles]
		}
		for _, f := range shown {
			label := f.Name()
			if label == "" {
				label = f.ID()
			}
			if label == "" {
				label = "Unknown"
			}
			if desc := f.String("description"); desc != "" {
				parts = append(parts, fmt.Sprintf("- %s: %s", label, desc))
			} else {
				parts = append(parts, "- "+label)
			}
		}
		if extra := len(files) - len(shown); extra > 0 {
			parts = append(parts, fmt.Sprintf("... and %d more files", extra))
		}
	}

	return strings.Join(parts, "\n")
}
