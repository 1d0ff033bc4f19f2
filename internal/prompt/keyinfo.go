// Package prompt turns RO-Crate metadata into the natural-language prompt
// sent to a completion provider.
package prompt

import (
	"github.com/localrivet/cratescribe/internal/rocrate"
)

// Defaults used when the root dataset leaves a field out.
const (
	DefaultName        = "Unnamed Dataset"
	DefaultDescription = "No description provided"
	DefaultDate        = "Unknown"
)

// Creator is one entry of the root dataset's creator list.
type Creator struct {
	Name        string `json:"name"`
	Affiliation string `json:"affiliation,omitempty"`
}

// KeyInfo is the subset of a crate's metadata that goes into a prompt.
type KeyInfo struct {
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Creators      []Creator `json:"creators"`
	Keywords      []string  `json:"keywords"`
	LicenseID     string    `json:"license_id,omitempty"`
	DatePublished string    `json:"date_published"`
	FilesCount    int       `json:"files_count"`
	Parts         []string  `json:"parts"`
}

// ExtractKeyInfo collects the prompt fields from the manifest's root
// dataset. It returns false when the manifest has no root dataset.
func ExtractKeyInfo(m *rocrate.Manifest) (KeyInfo, bool) {
	a := rocrate.NewAnalyzer(m)
	root, ok := a.RootDataset()
	if !ok {
		return KeyInfo{}, false
	}

	info := KeyInfo{
		Name:          stringOr(root, "name", DefaultName),
		Description:   stringOr(root, "description", DefaultDescription),
		Creators:      creators(root),
		Keywords:      rocrate.Keywords(root),
		DatePublished: stringOr(root, "datePublished", DefaultDate),
		FilesCount:    len(a.Files()),
	}
	if lic, ok := root["license"].(map[string]any); ok {
		info.LicenseID, _ = lic["@id"].(string)
	}
	for _, part := range root.List("hasPart") {
		id := "Unknown file"
		if ref, ok := part.(map[string]any); ok {
			if s, ok := ref["@id"].(string); ok {
				id = s
			}
		}
		info.Parts = append(info.Parts, id)
	}
	return info, true
}

func stringOr(n rocrate.Node, key, fallback string) string {
	if s := n.String(key); s != "" {
		return s
	}
	return fallback
}

func creators(root rocrate.Node) []Creator {
	var out []Creator
	for _, c := range root.List("creator") {
		switch v := c.(type) {
		case map[string]any:
			cr := Creator{Name: "Unknown"}
			if name, ok := v["name"].(string); ok {
				cr.Name = name
			}
			if aff, ok := v["affiliation"].(map[string]any); ok {
				cr.Affiliation, _ = aff["name"].(string)
			}
			out = append(out, cr)
		case string:
			out = append(out, Creator{Name: v})
		}
	}
	return out
}
