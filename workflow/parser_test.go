package workflow

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleDocument = `
jobs:
  - id: build
    steps:
      - id: compile
        type: bash
        command: make
  - id: test
    needs: [build]
    steps:
      - id: run-tests
        type: bash
        command: make test
`

func TestParseDocument(t *testing.T) {
	doc, err := ParseDocument([]byte(sampleDocument))
	if err != nil {
		t.Fatalf("ParseDocument returned error: %v", err)
	}
	if len(doc.Jobs) != 2 {
		t.Fatalf("got %d jobs, want 2", len(doc.Jobs))
	}
	if doc.Jobs[1].Needs[0] != "build" {
		t.Fatalf("got needs %v, want [build]", doc.Jobs[1].Needs)
	}
}

func TestParseDocumentRejectsNullBytes(t *testing.T) {
	_, err := ParseDocument([]byte("jobs:\x00\n"))
	if err == nil {
		t.Fatal("expected an error for null-byte content")
	}
}

func TestParseDocumentRejectsOversized(t *testing.T) {
	huge := make([]byte, maxDocumentSizeBytes+1)
	for i := range huge {
		huge[i] = 'a'
	}
	_, err := ParseDocument(huge)
	if err == nil {
		t.Fatal("expected an error for an oversized document")
	}
}

func TestParseDocumentFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wf.yaml")
	if err := os.WriteFile(path, []byte(sampleDocument), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	doc, err := ParseDocumentFile(path)
	if err != nil {
		t.Fatalf("ParseDocumentFile returned error: %v", err)
	}
	if len(doc.Jobs) != 2 {
		t.Fatalf("got %d jobs, want 2", len(doc.Jobs))
	}
}

func TestDiscoverDocuments(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.yaml", "b.yml", "ignore.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(sampleDocument), 0o644); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "subdir"), 0o755); err != nil {
		t.Fatalf("Mkdir failed: %v", err)
	}

	docs, err := DiscoverDocuments(dir)
	if err != nil {
		t.Fatalf("DiscoverDocuments returned error: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("got %d documents, want 2: %v", len(docs), docs)
	}
}

func TestDiscoverDocumentsRejectsEmptyDir(t *testing.T) {
	if _, err := DiscoverDocuments(""); err == nil {
		t.Fatal("expected an error for an empty directory argument")
	}
}

func TestBuildWorkflowFromDocument(t *testing.T) {
	doc, err := ParseDocument([]byte(sampleDocument))
	if err != nil {
		t.Fatalf("ParseDocument returned error: %v", err)
	}

	wf, err := BuildWorkflow(doc)
	if err != nil {
		t.Fatalf("BuildWorkflow returned error: %v", err)
	}
	if len(wf.Jobs) != 2 {
		t.Fatalf("got %d jobs, want 2", len(wf.Jobs))
	}
	if wf.Jobs[0].Steps[0].Script.Kind != ScriptBash {
		t.Fatalf("got script kind %v, want bash", wf.Jobs[0].Steps[0].Script.Kind)
	}

	g, err := BuildGraph(wf)
	if err != nil {
		t.Fatalf("BuildGraph returned error: %v", err)
	}
	if _, ok := g.Nodes["test"].Parents["build"]; !ok {
		t.Fatal("expected test to depend on build after BuildWorkflow + BuildGraph")
	}
}

func TestBuildWorkflowRejectsUnknownPermission(t *testing.T) {
	doc := &Document{Permissions: []string{"launchNukes"}, Jobs: []DocJob{}}
	_, err := BuildWorkflow(doc)
	wfErr, ok := AsError(err)
	if !ok || wfErr.Kind != ErrParsingFailed {
		t.Fatalf("expected ParsingFailed error, got %v", err)
	}
}

func TestBuildWorkflowRejectsUnsupportedScriptType(t *testing.T) {
	doc := &Document{
		Jobs: []DocJob{
			{
				ID: "a",
				Steps: []DocStep{
					{ID: "s", DocScript: DocScript{Type: "python"}},
				},
			},
		},
	}
	_, err := BuildWorkflow(doc)
	wfErr, ok := AsError(err)
	if !ok || wfErr.Kind != ErrParsingFailed {
		t.Fatalf("expected ParsingFailed error, got %v", err)
	}
}

func TestBuildJobGeneratesIDWhenOmitted(t *testing.T) {
	doc := &Document{
		Jobs: []DocJob{
			{Steps: []DocStep{{ID: "s1", DocScript: DocScript{Type: "bash", Command: "echo a"}}}},
			{Steps: []DocStep{{ID: "s2", DocScript: DocScript{Type: "bash", Command: "echo b"}}}},
		},
	}
	wf, err := BuildWorkflow(doc)
	if err != nil {
		t.Fatalf("BuildWorkflow returned error: %v", err)
	}
	if wf.Jobs[0].ID == "" || wf.Jobs[1].ID == "" {
		t.Fatalf("expected generated job ids, got %q and %q", wf.Jobs[0].ID, wf.Jobs[1].ID)
	}
	if wf.Jobs[0].ID == wf.Jobs[1].ID {
		t.Fatalf("expected distinct generated ids, both were %q", wf.Jobs[0].ID)
	}
}

func TestBuildWorkflowLifecycleEventIDFallsBackToOn(t *testing.T) {
	doc := &Document{
		Lifecycle: []DocLifecycle{
			{On: "setup", DocScript: DocScript{Type: "bash", Command: "echo hi"}},
		},
		Jobs: []DocJob{},
	}
	wf, err := BuildWorkflow(doc)
	if err != nil {
		t.Fatalf("BuildWorkflow returned error: %v", err)
	}
	if len(wf.Lifecycle) != 1 || wf.Lifecycle[0].ID != "setup" {
		t.Fatalf("expected lifecycle event id to fall back to phase %q, got %+v", "setup", wf.Lifecycle)
	}
}
