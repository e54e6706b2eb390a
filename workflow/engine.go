package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
)

// FormRequest describes a pending form rendezvous: the schema a host
// application must render and the rendezvous id it must reply with.
type FormRequest struct {
	RendezvousID string
	ScriptID     string
	Schema       map[string]any
}

// FormCallback is invoked synchronously in callback mode (spec §4.5) when a
// job or step with a form schema is about to run. Returning an error aborts
// the owning node.
type FormCallback func(ctx context.Context, req FormRequest) (map[string]any, error)

// Config holds Engine configuration assembled by EngineOption values.
type Config struct {
	logger       *slog.Logger
	executors    map[ScriptKind]ScriptExecutor
	repository   RepositorySource
	formCallback FormCallback
	workingDir   string
	environment  map[string]string
}

// EngineOption configures an Engine.
type EngineOption func(*Config)

// WithLogger sets the structured logger the engine reports node failures
// to. Defaults to slog.Default() when not set. Script executors are not
// given this logger; they take their own.
var WithLogger = func(l *slog.Logger) EngineOption {
	return func(c *Config) { c.logger = l }
}

// WithExecutor registers the ScriptExecutor responsible for scripts of the
// given kind.
var WithExecutor = func(kind ScriptKind, ex ScriptExecutor) EngineOption {
	return func(c *Config) { c.executors[kind] = ex }
}

// WithRepository sets the RepositorySource used to resolve template and
// sub-workflow references.
var WithRepository = func(repo RepositorySource) EngineOption {
	return func(c *Config) { c.repository = repo }
}

// WithFormCallback switches the engine into callback mode for form
// rendezvous: instead of blocking for an external ProvideFormData call, the
// callback itself is invoked and awaited.
var WithFormCallback = func(cb FormCallback) EngineOption {
	return func(c *Config) { c.formCallback = cb }
}

// WithWorkingDir sets the directory scripts execute in and templates write
// relative to.
var WithWorkingDir = func(dir string) EngineOption {
	return func(c *Config) { c.workingDir = dir }
}

// WithEnvironment sets the base environment merged under every job's own
// environment map.
var WithEnvironment = func(env map[string]string) EngineOption {
	return func(c *Config) { c.environment = env }
}

// Engine drives one workflow's DAG to completion: it owns the graph, the
// form rendezvous, and the event stream consumers read from (spec §6's
// execute()/provideFormData/waitForFormData/lookup surface).
type Engine struct {
	graph      *Graph
	cfg        Config
	rendezvous *Rendezvous
	aggregator Aggregator

	// rendezvousSeq is the monotonic counter backing every minted
	// rendezvous id, so repeated forms from the same job/step never collide
	// (spec §4.4's job_<jobId>_<seq> / step_<stepId>_<seq> scheme).
	rendezvousSeq atomic.Int64
}

// NewEngine builds the DAG for wf and returns an Engine ready to Execute
// it.
func NewEngine(wf *Workflow, opts ...EngineOption) (*Engine, error) {
	cfg := Config{executors: map[ScriptKind]ScriptExecutor{}}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}

	graph, err := BuildGraph(wf)
	if err != nil {
		return nil, err
	}

	return &Engine{
		graph:      graph,
		cfg:        cfg,
		rendezvous: NewRendezvous(),
	}, nil
}

// SnapshotEvent is one item of the outer lazy sequence execute() produces:
// a ResultEvent paired with the WorkflowSnapshot reflecting every event
// delivered so far, including this one. Err is set only on the final item,
// when the sequence is terminating due to failure; Snapshot on that item
// still reflects every event that arrived before the failure (spec §7).
type SnapshotEvent struct {
	Snapshot *WorkflowSnapshot
	Event    ResultEvent
	Err      error
}

// nextRendezvousID mints a rendezvous id of the form spec §4.4 requires:
// `job_<jobId>_<seq>` for a job-level form, `step_<stepId>_<seq>` for a
// step-level one, seq monotonically increasing across the whole engine so
// two forms raised for the same job/step are still distinguishable.
func (e *Engine) nextRendezvousID(scope, id string) string {
	seq := e.rendezvousSeq.Add(1)
	return fmt.Sprintf("%s_%s_%d", scope, id, seq)
}

// ProvideFormData fulfills a pending form rendezvous in pull mode. Safe to
// call before or after the corresponding formRequest event is observed; a
// second call for the same id is ignored (spec §4.5/§9).
func (e *Engine) ProvideFormData(rendezvousID string, data map[string]any) {
	e.rendezvous.Provide(rendezvousID, data)
}

// WaitForFormData blocks until form data for rendezvousID has been
// provided, returning it immediately if it already was, or returns
// ctx.Err() if ctx is cancelled first.
func (e *Engine) WaitForFormData(ctx context.Context, rendezvousID string) (map[string]any, error) {
	return e.rendezvous.Wait(ctx, rendezvousID)
}

// Lookup resolves a dotted path against the engine's graph (spec §4.8).
func (e *Engine) Lookup(path string) (*PathResult, error) {
	return Lookup(e.graph, path)
}

// Snapshot returns the current WorkflowSnapshot without waiting for any
// further events.
func (e *Engine) Snapshot() *WorkflowSnapshot {
	return Project(e.graph)
}
