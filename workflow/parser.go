package workflow

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/google/uuid"
)

// maxDocumentSizeBytes bounds how large a workflow document we'll attempt
// to decode, defending against resource exhaustion from a maliciously large
// file.
const maxDocumentSizeBytes = 1 * 1024 * 1024

// validateDocumentContent checks for malformed or malicious content before
// handing data to the YAML decoder: defense-in-depth against crafted
// workflow files, independent of what goccy/go-yaml itself validates.
func validateDocumentContent(data []byte) error {
	if len(data) > maxDocumentSizeBytes {
		return fmt.Errorf("workflow document exceeds maximum size of %d bytes", maxDocumentSizeBytes)
	}
	if bytes.Contains(data, []byte{0x00}) {
		return fmt.Errorf("workflow document contains null bytes (binary content not allowed)")
	}

	controlCount := 0
	for _, b := range data {
		if b < 32 && b != '\n' && b != '\r' && b != '\t' {
			controlCount++
		}
	}
	if controlCount > 10 {
		return fmt.Errorf("workflow document contains excessive control characters (%d found)", controlCount)
	}
	return nil
}

// ParseDocument decodes a workflow document from raw YAML bytes.
func ParseDocument(data []byte) (*Document, error) {
	if err := validateDocumentContent(data); err != nil {
		return nil, errParsingFailed(err.Error(), nil)
	}

	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errParsingFailed("parsing workflow YAML", err)
	}
	return &doc, nil
}

// ParseDocumentFile reads and decodes a workflow document file. The path
// must be validated by the caller to be within an expected directory (see
// DiscoverDocuments).
func ParseDocumentFile(path string) (*Document, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path validated by caller via DiscoverDocuments
	if err != nil {
		return nil, errParsingFailed("reading workflow document", err)
	}
	return ParseDocument(data)
}

// DiscoverDocuments finds all workflow document files in a directory. Only
// regular files with .yml or .yaml extensions are returned; symlinks and
// anything resolving outside the directory are skipped.
func DiscoverDocuments(dir string) ([]string, error) {
	if dir == "" {
		return nil, errParsingFailed("workflow directory cannot be empty", nil)
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, errParsingFailed("resolving workflow directory", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errParsingFailed("reading workflow directory", err)
	}

	var docs []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if entry.Type()&os.ModeSymlink != 0 {
			continue
		}

		ext := filepath.Ext(entry.Name())
		if ext != ".yml" && ext != ".yaml" {
			continue
		}

		fullPath := filepath.Join(dir, entry.Name())
		absPath, err := filepath.Abs(fullPath)
		if err != nil {
			continue
		}

		relPath, err := filepath.Rel(absDir, absPath)
		if err != nil || strings.HasPrefix(relPath, "..") {
			continue
		}

		docs = append(docs, fullPath)
	}

	return docs, nil
}

// BuildWorkflow converts a decoded Document into the runtime Workflow
// model: it validates permission strings against the closed set, and
// builds Script/LifecycleEvent/Step/Job values with stable identifiers
// (spec §3, §6).
func BuildWorkflow(doc *Document) (*Workflow, error) {
	wf := &Workflow{
		GlobalConfig: GlobalConfig{TemplatePath: doc.GlobalConfig.TemplatePath},
		Environment:  doc.Environment,
	}

	for _, p := range doc.Permissions {
		perm := Permission(p)
		if !knownPermissions[perm] {
			return nil, errParsingFailed(fmt.Sprintf("unknown permission %q", p), nil)
		}
		wf.Permissions = append(wf.Permissions, perm)
	}

	for _, dl := range doc.Lifecycle {
		le, err := buildLifecycleEvent(dl)
		if err != nil {
			return nil, err
		}
		wf.Lifecycle = append(wf.Lifecycle, le)
	}

	for _, dj := range doc.Jobs {
		job, err := buildJob(dj)
		if err != nil {
			return nil, err
		}
		wf.Jobs = append(wf.Jobs, job)
	}

	return wf, nil
}

// newJobID generates a stable identifier for a job whose document omitted
// one (spec §3, §6: "generated if absent/missing").
func newJobID() string {
	return uuid.Must(uuid.NewV7()).String()
}

func buildJob(dj DocJob) (*Job, error) {
	id := dj.ID
	if id == "" {
		id = newJobID()
	}
	job := &Job{
		ID:          id,
		Name:        dj.Name,
		Needs:       dj.Needs,
		Environment: dj.Environment,
		Form:        dj.Form,
	}
	for _, dl := range dj.Lifecycle {
		le, err := buildLifecycleEvent(dl)
		if err != nil {
			return nil, err
		}
		job.Lifecycle = append(job.Lifecycle, le)
	}
	for _, ds := range dj.Steps {
		step, err := buildStep(ds)
		if err != nil {
			return nil, err
		}
		job.Steps = append(job.Steps, step)
	}
	return job, nil
}

func buildStep(ds DocStep) (*Step, error) {
	script, err := buildScript(ds.ID, ds.DocScript)
	if err != nil {
		return nil, err
	}
	step := &Step{ID: ds.ID, Name: ds.Name, Form: ds.Form, If: ds.If, Script: script}
	for _, dl := range ds.Lifecycle {
		le, err := buildLifecycleEvent(dl)
		if err != nil {
			return nil, err
		}
		step.Lifecycle = append(step.Lifecycle, le)
	}
	return step, nil
}

func buildLifecycleEvent(dl DocLifecycle) (*LifecycleEvent, error) {
	id := dl.ID
	if id == "" {
		id = dl.On
	}
	script, err := buildScript(id, dl.DocScript)
	if err != nil {
		return nil, err
	}
	return &LifecycleEvent{ID: id, Phase: Phase(dl.On), Script: script}, nil
}

func buildScript(id string, ds DocScript) (*Script, error) {
	switch ScriptKind(ds.Type) {
	case ScriptBash:
		return &Script{ID: id, Kind: ScriptBash, Command: ds.Command}, nil
	case ScriptJavaScript:
		return &Script{ID: id, Kind: ScriptJavaScript, File: ds.File}, nil
	case ScriptTemplate:
		files := make([]TemplateFile, 0, len(ds.Files))
		for _, f := range ds.Files {
			files = append(files, TemplateFile{File: f.File, Output: f.Output})
		}
		return &Script{ID: id, Kind: ScriptTemplate, Files: files}, nil
	default:
		return nil, errParsingFailed(fmt.Sprintf("unsupported script type %q", ds.Type), nil)
	}
}
