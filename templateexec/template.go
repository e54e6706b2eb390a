// Package templateexec implements workflow.ScriptExecutor for template
// scripts: each (source, output) pair is resolved through a
// workflow.RepositorySource, rendered with text/template extended by sprig
// helper functions, and written atomically.
package templateexec

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"text/template"
	"time"

	"github.com/Masterminds/sprig/v3"
	"github.com/rxtech-lab/rxclips-core/workflow"
)

// Executor runs ScriptTemplate scripts.
type Executor struct {
	Logger *slog.Logger
}

// New returns a ready-to-use Executor.
func New(opts ...Option) *Executor {
	e := &Executor{Logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Option configures an Executor.
type Option func(*Executor)

// WithLogger sets the logger used for render diagnostics.
var WithLogger = func(l *slog.Logger) Option {
	return func(e *Executor) { e.Logger = l }
}

// Execute implements workflow.ScriptExecutor.
func (e *Executor) Execute(ctx context.Context, script *workflow.Script, ec workflow.ExecContext, events chan<- workflow.ResultEvent) error {
	if script.Kind != workflow.ScriptTemplate {
		return workflow.NewUnsupportedScriptTypeError(script.Kind)
	}

	total := len(script.Files)
	for i, f := range script.Files {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := e.renderOne(ctx, ec, f); err != nil {
			e.Logger.Warn("template render failed", "script", script.ID, "file", f.File, "error", err)
			return err
		}

		select {
		case events <- workflow.ResultEvent{
			Kind:       workflow.EventTemplateProgress,
			ScriptID:   script.ID,
			OutputPath: f.Output,
			Completed:  i + 1,
			Total:      total,
			Time:       time.Now(),
		}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (e *Executor) renderOne(ctx context.Context, ec workflow.ExecContext, f workflow.TemplateFile) error {
	if ec.Repository == nil {
		return workflow.NewTemplateInvalidURLError(f.File)
	}

	resolved, err := ec.Repository.Resolve(ctx, ec.WorkingDir, f.File)
	if err != nil {
		return workflow.NewTemplateFileNotFoundError(f.File, err)
	}

	data, err := ec.Repository.Get(ctx, resolved)
	if err != nil {
		return workflow.NewTemplateFileNotFoundError(resolved, err)
	}

	tmpl, err := template.New(filepath.Base(resolved)).Funcs(sprig.TxtFuncMap()).Parse(string(data))
	if err != nil {
		return workflow.NewTemplateInvalidError(resolved, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, ec.FormData); err != nil {
		return workflow.NewTemplateInvalidError(resolved, err)
	}

	outPath := f.Output
	if !filepath.IsAbs(outPath) {
		outPath = filepath.Join(ec.WorkingDir, outPath)
	}
	return atomicWrite(outPath, buf.Bytes())
}

// atomicWrite writes data to a temp sibling of path and renames it into
// place, so a reader never observes a partially-written file.
func atomicWrite(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return workflow.NewTemplateInvalidError(path, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return workflow.NewTemplateInvalidError(path, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return workflow.NewTemplateInvalidError(path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return workflow.NewTemplateInvalidError(path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return workflow.NewTemplateInvalidError(path, err)
	}
	return nil
}
