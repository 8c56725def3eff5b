package snapshot

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/gadwant/codacy-report/pkg/codacy"
)

func TestWriter_Shape(t *testing.T) {
	path := filepath.Join(t.TempDir(), "codacy_issues.json")

	line := 7
	issues := []codacy.Issue{
		{FilePath: "a.go", LineNumber: &line, Level: "Error", Message: "m1"},
		{FilePath: "b.go", Level: "Info", Message: "m2"},
	}

	if err := NewWriter(path).Write(issues); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}

	var decoded struct {
		Total  int               `json:"total"`
		Issues []json.RawMessage `json:"issues"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("snapshot is not valid JSON: %v", err)
	}

	if decoded.Total != 2 {
		t.Errorf("total = %d, want 2", decoded.Total)
	}
	if len(decoded.Issues) != 2 {
		t.Errorf("issues = %d, want 2", len(decoded.Issues))
	}
}

func TestWriter_PersistsRawServerObjects(t *testing.T) {
	path := filepath.Join(t.TempDir(), "codacy_issues.json")

	// Field the local struct does not decode must survive into the artifact.
	raw := `{"filePath":"a.go","lineNumber":1,"level":"Error","patternInfo":{"title":"T"},"message":"m","categories":["security"]}`
	var issue codacy.Issue
	if err := json.Unmarshal([]byte(raw), &issue); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if err := NewWriter(path).Write([]codacy.Issue{issue}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}

	var decoded struct {
		Issues []map[string]any `json:"issues"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if len(decoded.Issues) != 1 {
		t.Fatalf("issues = %d, want 1", len(decoded.Issues))
	}
	if _, ok := decoded.Issues[0]["categories"]; !ok {
		t.Errorf("undecoded server field lost: %v", decoded.Issues[0])
	}
}

func TestWriter_OverwritesPriorArtifact(t *testing.T) {
	path := filepath.Join(t.TempDir(), "codacy_issues.json")

	if err := os.WriteFile(path, []byte(`{"total":99,"issues":[]}`), 0o644); err != nil {
		t.Fatalf("seed write failed: %v", err)
	}

	if err := NewWriter(path).Write([]codacy.Issue{{FilePath: "a.go", Level: "Info"}}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}

	var decoded struct {
		Total int `json:"total"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if decoded.Total != 1 {
		t.Errorf("total = %d, want 1 (prior artifact replaced)", decoded.Total)
	}
}

func TestNewWriter_DefaultFilename(t *testing.T) {
	w := NewWriter("")
	if w.Path() != DefaultFilename {
		t.Errorf("Path = %q, want %q", w.Path(), DefaultFilename)
	}
}
