// Package snapshot persists the accumulated issue set as a JSON artifact.
package snapshot

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/gadwant/codacy-report/pkg/codacy"
)

// DefaultFilename is the fixed artifact name.
const DefaultFilename = "codacy_issues.json"

// Snapshot is the persisted shape: the total count plus the raw issue
// objects in accumulator order.
type Snapshot struct {
	Total  int            `json:"total"`
	Issues []codacy.Issue `json:"issues"`
}

// Writer serializes issue sets to a fixed path, overwriting any prior
// artifact of the same name.
type Writer struct {
	path string
}

// NewWriter creates a writer targeting path, or DefaultFilename when
// path is empty.
func NewWriter(path string) *Writer {
	if path == "" {
		path = DefaultFilename
	}
	return &Writer{path: path}
}

// Path returns the artifact path.
func (w *Writer) Path() string {
	return w.path
}

// Write persists the snapshot. Issues keep the raw bytes the server
// returned, so the artifact is independent of local field decoding.
func (w *Writer) Write(issues []codacy.Issue) error {
	data, err := json.MarshalIndent(Snapshot{
		Total:  len(issues),
		Issues: issues,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	if err := os.WriteFile(w.path, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}

	return nil
}
