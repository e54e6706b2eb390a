// Package repository implements the default, filesystem-rooted
// workflow.RepositorySource: templates and sub-workflows that live
// alongside the workflow file itself.
package repository

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rxtech-lab/rxclips-core/workflow"
)

// Local resolves template and sub-workflow references against a single
// root directory on disk, rejecting symlinks and any path that would
// escape the root (the same defense-in-depth the teacher's document
// discovery applies).
type Local struct {
	Root string
}

// New returns a Local source rooted at dir.
func New(dir string) *Local {
	return &Local{Root: dir}
}

var _ workflow.RepositorySource = (*Local)(nil)

// List enumerates files under path (relative to Root) matching the
// doublestar glob pattern "**/*" when path is empty, or "<path>/**/*"
// otherwise.
func (l *Local) List(ctx context.Context, path string) ([]workflow.RepositoryItem, error) {
	pattern := "**/*"
	if path != "" {
		pattern = filepath.ToSlash(filepath.Join(path, "**/*"))
	}

	matches, err := doublestar.Glob(os.DirFS(l.Root), pattern)
	if err != nil {
		return nil, workflow.NewRepositoryParseError(err)
	}

	items := make([]workflow.RepositoryItem, 0, len(matches))
	for _, m := range matches {
		info, err := os.Stat(filepath.Join(l.Root, m))
		if err != nil {
			continue
		}
		kind := "file"
		if info.IsDir() {
			kind = "directory"
		}
		items = append(items, workflow.RepositoryItem{Path: m, Kind: kind})
	}
	return items, nil
}

// Get reads the file at path, relative to Root.
func (l *Local) Get(ctx context.Context, path string) ([]byte, error) {
	full, err := l.safeJoin(path)
	if err != nil {
		return nil, err
	}

	info, err := os.Lstat(full)
	if err != nil {
		return nil, workflow.NewRepositoryPathNotFoundError(path)
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return nil, workflow.NewRepositoryPathNotFoundError(path)
	}

	data, err := os.ReadFile(full)
	if err != nil {
		return nil, workflow.NewRepositoryPathNotFoundError(path)
	}
	return data, nil
}

// Resolve joins ref against base's directory when ref is relative, and
// against Root when it is already rooted.
func (l *Local) Resolve(ctx context.Context, base, ref string) (string, error) {
	if ref == "" {
		return "", workflow.NewTemplateInvalidURLError(ref)
	}
	if filepath.IsAbs(ref) {
		rel, err := filepath.Rel(l.Root, ref)
		if err != nil || strings.HasPrefix(rel, "..") {
			return "", workflow.NewTemplateInvalidURLError(ref)
		}
		return rel, nil
	}
	if base == "" {
		return ref, nil
	}
	baseDir := base
	if info, err := os.Stat(filepath.Join(l.Root, base)); err == nil && !info.IsDir() {
		baseDir = filepath.Dir(base)
	}
	return filepath.Join(baseDir, ref), nil
}

func (l *Local) safeJoin(path string) (string, error) {
	full := filepath.Join(l.Root, path)
	rel, err := filepath.Rel(l.Root, full)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", workflow.NewRepositoryPathNotFoundError(path)
	}
	return full, nil
}
