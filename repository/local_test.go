package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rxtech-lab/rxclips-core/workflow"
)

func writeFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	full := filepath.Join(dir, rel)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLocalGet(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "templates/a.tmpl", "hello")

	src := New(dir)
	data, err := src.Get(context.Background(), "templates/a.tmpl")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if string(data) != "hello" {
		t.Fatalf("Get = %q, want %q", data, "hello")
	}
}

func TestLocalGetRejectsEscape(t *testing.T) {
	dir := t.TempDir()
	src := New(dir)
	if _, err := src.Get(context.Background(), "../outside.txt"); err == nil {
		t.Fatal("expected error for path escaping root")
	}
}

func TestLocalList(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "templates/a.tmpl", "a")
	writeFile(t, dir, "templates/b.tmpl", "b")

	src := New(dir)
	items, err := src.List(context.Background(), "templates")
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("List returned %d items, want 2", len(items))
	}
}

func TestLocalResolveRelative(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "jobs/job1.yaml", "")
	writeFile(t, dir, "jobs/shared.tmpl", "")

	src := New(dir)
	resolved, err := src.Resolve(context.Background(), "jobs/job1.yaml", "shared.tmpl")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if resolved != filepath.Join("jobs", "shared.tmpl") {
		t.Fatalf("Resolve = %q, want %q", resolved, filepath.Join("jobs", "shared.tmpl"))
	}
}

func TestLocalGetMissing(t *testing.T) {
	dir := t.TempDir()
	src := New(dir)
	_, err := src.Get(context.Background(), "nope.tmpl")
	wfErr, ok := workflow.AsError(err)
	if !ok || wfErr.Kind != workflow.ErrRepositoryPathNotFound {
		t.Fatalf("expected RepositoryPathNotFound error, got %v", err)
	}
}
