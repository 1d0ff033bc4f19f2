// Package report writes description results to text files.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/localrivet/cratescribe/internal/errortypes"
)

const (
	// CombinedFileName is the name of the report covering every manifest.
	CombinedFileName = "combined_report.txt"

	descriptionSuffix = "_description.txt"
)

var separator = strings.Repeat("=", 60)

// Entry is the outcome of describing one manifest.
type Entry struct {
	ManifestPath string
	CrateName    string
	Model        string
	Provider     string
	Description  string
	OK           bool
	ErrorKind    string
	GeneratedAt  time.Time
}

// FileName returns the per-manifest report name, "<stem>_description.txt".
func FileName(manifestPath string) string {
	base := filepath.Base(manifestPath)
	return strings.TrimSuffix(base, filepath.Ext(base)) + descriptionSuffix
}

// FileNames returns a distinct report name per manifest path. The first
// manifest keeps FileName; later ones with the same name are prefixed with
// their parent directory, then numbered.
func FileNames(manifestPaths []string) []string {
	used := make(map[string]bool, len(manifestPaths))
	names := make([]string, len(manifestPaths))
	for i, path := range manifestPaths {
		name := FileName(path)
		if used[name] {
			if parent := filepath.Base(filepath.Dir(path)); parent != "." && parent != string(filepath.Separator) {
				name = FileName(parent + "_" + filepath.Base(path))
			}
		}
		stem := strings.TrimSuffix(name, descriptionSuffix)
		for n := 2; used[name]; n++ {
			name = fmt.Sprintf("%s_%d%s", stem, n, descriptionSuffix)
		}
		used[name] = true
		names[i] = name
	}
	return names
}

// WriteDescription writes the entry to dir and returns the file path.
func WriteDescription(dir string, e Entry) (string, error) {
	return WriteDescriptionAs(dir, FileName(e.ManifestPath), e)
}

// WriteDescriptions writes one file per entry, with names from FileNames,
// and returns the paths in entry order.
func WriteDescriptions(dir string, entries []Entry) ([]string, error) {
	manifests := make([]string, len(entries))
	for i, e := range entries {
		manifests[i] = e.ManifestPath
	}

	var written []string
	for i, name := range FileNames(manifests) {
		path, err := WriteDescriptionAs(dir, name, entries[i])
		if err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}

// WriteDescriptionAs writes the entry to dir under name.
func WriteDescriptionAs(dir, name string, e Entry) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errortypes.InternalError(err, "failed to create output directory").WithField("dir", dir)
	}

	var b strings.Builder
	writeHeader(&b, e)
	b.WriteString("\n")
	b.WriteString(strings.TrimSpace(e.Description))
	b.WriteString("\n\n")
	b.WriteString(separator + "\n")
	fmt.Fprintf(&b, "Status: %s\n", status(e))

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", errortypes.InternalError(err, "failed to write description").WithField("path", path)
	}
	return path, nil
}

// WriteCombined writes one report with a section per entry, in the given
// order, and returns the file path.
func WriteCombined(dir string, entries []Entry, generatedAt time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errortypes.InternalError(err, "failed to create output directory").WithField("dir", dir)
	}

	var b strings.Builder
	b.WriteString("RO-Crate Descriptions\n")
	fmt.Fprintf(&b, "Generated: %s\n", generatedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "Manifests: %d\n", len(entries))

	succeeded := 0
	for _, e := range entries {
		if e.OK {
			succeeded++
		}
		b.WriteString("\n")
		writeHeader(&b, e)
		b.WriteString("\n")
		b.WriteString(strings.TrimSpace(e.Description))
		b.WriteString("\n")
	}

	b.WriteString("\n" + separator + "\n")
	fmt.Fprintf(&b, "Summary: %d succeeded, %d failed\n", succeeded, len(entries)-succeeded)

	path := filepath.Join(dir, CombinedFileName)
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", errortypes.InternalError(err, "failed to write combined report").WithField("path", path)
	}
	return path, nil
}

func writeHeader(b *strings.Builder, e Entry) {
	b.WriteString(separator + "\n")
	fmt.Fprintf(b, "RO-Crate Description: %s\n", filepath.Base(e.ManifestPath))
	if e.CrateName != "" {
		fmt.Fprintf(b, "Name: %s\n", e.CrateName)
	}
	model := e.Model
	if e.Provider != "" {
		model = fmt.Sprintf("%s (%s)", e.Model, e.Provider)
	}
	fmt.Fprintf(b, "Model: %s\n", model)
	fmt.Fprintf(b, "Generated: %s\n", e.GeneratedAt.UTC().Format(time.RFC3339))
	b.WriteString(separator + "\n")
}

func status(e Entry) string {
	if e.OK {
		return "success"
	}
	if e.ErrorKind != "" {
		return "error (" + e.ErrorKind + ")"
	}
	return "error"
}
