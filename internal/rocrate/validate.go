package rocrate

// Structural issues reported by ValidateStructure.
const (
	IssueMissingContext     = "Missing @context"
	IssueUnexpectedContext  = "Unexpected @context value"
	IssueMissingGraph       = "Missing @graph"
	IssueGraphNotList       = "@graph should be a list"
	IssueMissingDescriptor  = "Missing ro-crate-metadata.json descriptor"
	IssueDescriptorType     = "Metadata descriptor should have @type CreativeWork"
	IssueDescriptorConforms = "Metadata descriptor should conform to RO-Crate 1.1"
	IssueMissingRootDataset = "Missing root dataset (./ with @type Dataset)"
)

// ValidateStructure checks the minimal RO-Crate 1.1 layout of a decoded
// document and returns the issues found, in a fixed order. An empty result
// means the document is structurally sound. It is not a schema validator.
func ValidateStructure(doc map[string]any) []string {
	issues := []string{}

	ctx, ok := doc["@context"]
	switch {
	case !ok:
		issues = append(issues, IssueMissingContext)
	case ctx != ContextURI:
		issues = append(issues, IssueUnexpectedContext)
	}

	rawGraph, ok := doc["@graph"]
	if !ok {
		return append(issues, IssueMissingGraph)
	}
	items, ok := rawGraph.([]any)
	if !ok {
		return append(issues, IssueGraphNotList)
	}

	graph := make([]Node, 0, len(items))
	for _, item := range items {
		if obj, ok := item.(map[string]any); ok {
			graph = append(graph, Node(obj))
		}
	}

	var descriptor Node
	for _, n := range graph {
		if n.ID() == MetadataDescriptorID {
			descriptor = n
			break
		}
	}
	if descriptor == nil {
		issues = append(issues, IssueMissingDescriptor)
	} else {
		if !descriptor.HasType(TypeCreativeWork) {
			issues = append(issues, IssueDescriptorType)
		}
		if descriptor.Ref("conformsTo") != ProfileURI {
			issues = append(issues, IssueDescriptorConforms)
		}
	}

	if _, ok := findRoot(graph); !ok {
		issues = append(issues, IssueMissingRootDataset)
	}
	return issues
}

// Validate runs ValidateStructure over a parsed manifest.
func (m *Manifest) Validate() []string {
	return ValidateStructure(m.Document)
}
