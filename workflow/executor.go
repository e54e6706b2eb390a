package workflow

import "context"

// ExecContext carries everything a ScriptExecutor needs beyond the Script
// itself: the working directory scripts run in, the merged environment for
// the owning job, any accepted form data in scope, and the RepositorySource
// used to resolve template/sub-workflow references.
type ExecContext struct {
	WorkingDir  string
	Environment map[string]string
	FormData    map[string]any
	Repository  RepositorySource
}

// ScriptExecutor is the narrow contract the scheduler drives every script
// through (spec §4.3). Execute must consume its script exactly once: it
// pushes every ResultEvent it produces onto events, in order, and returns
// nil on normal completion or a non-nil error (typically *Error) on
// failure. Implementations must observe ctx cancellation promptly and stop
// producing events once it fires.
type ScriptExecutor interface {
	Execute(ctx context.Context, script *Script, ec ExecContext, events chan<- ResultEvent) error
}

// RepositoryItem is one entry returned by RepositorySource.List.
type RepositoryItem struct {
	Path string
	Kind string // "file" or "directory"
}

// RepositorySource resolves template and sub-workflow references to actual
// bytes, independent of whether they live on a local filesystem or behind
// an HTTP endpoint (spec §6). This module ships only a local filesystem
// implementation (package repository); an HTTP-backed one is a drop-in
// alternative behind the same interface.
type RepositorySource interface {
	// List enumerates items under path (or the source root, if path is
	// empty).
	List(ctx context.Context, path string) ([]RepositoryItem, error)
	// Get returns the bytes of the file at path.
	Get(ctx context.Context, path string) ([]byte, error)
	// Resolve turns a reference found inside a document (often relative to
	// that document's own path) into a path this source can Get.
	Resolve(ctx context.Context, base, ref string) (string, error)
}
