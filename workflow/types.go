// Package workflow implements the declarative workflow graph scheduler and
// execution engine: DAG construction with cycle detection, parallel
// dependency-aware job execution, per-step sequential lifecycle expansion, a
// form-request rendezvous protocol, event streaming, and status aggregation.
package workflow

import "time"

// Phase is the set of lifecycle hook points a script can be bound to.
// The zero value is not a valid phase.
type Phase string

// Phase values, in their defined total order.
const (
	PhaseSetup      Phase = "setup"
	PhaseBeforeJob  Phase = "beforeJob"
	PhaseBeforeStep Phase = "beforeStep"
	PhaseAfterStep  Phase = "afterStep"
	PhaseAfterJob   Phase = "afterJob"
	PhaseTeardown   Phase = "teardown"
)

// ScriptKind identifies which executor a Script must be dispatched to.
type ScriptKind string

const (
	ScriptBash       ScriptKind = "bash"
	ScriptTemplate   ScriptKind = "template"
	ScriptJavaScript ScriptKind = "javascript"
)

// TemplateFile is one (source, output) pair of a template script.
type TemplateFile struct {
	File   string // source reference, resolved through a RepositorySource
	Output string // destination path, relative to the working directory
}

// Script is the executable unit: a shell command, a set of template
// renders, or an embedded JavaScript source. Exactly one of the
// kind-specific fields is populated, selected by Kind.
type Script struct {
	ID      string
	Kind    ScriptKind
	Command string         // ScriptBash
	File    string         // ScriptJavaScript
	Files   []TemplateFile // ScriptTemplate
}

// Clone returns a copy of the script under a new identifier. The step
// expander uses this to give lifecycle-hook scripts the identifier of their
// owning lifecycle event, so the result aggregator can route events back to
// the right slot without ambiguity, even across repeated expansions.
func (s *Script) Clone(id string) *Script {
	if s == nil {
		return nil
	}
	clone := *s
	clone.ID = id
	if s.Files != nil {
		clone.Files = append([]TemplateFile(nil), s.Files...)
	}
	return &clone
}

// StatusKind is the running state of a step, lifecycle event, job, or
// workflow.
type StatusKind string

const (
	StatusNotStarted StatusKind = "notStarted"
	StatusRunning    StatusKind = "running"
	StatusSuccess    StatusKind = "success"
	StatusFailure    StatusKind = "failure"
	StatusSkipped    StatusKind = "skipped"
	StatusUnknown    StatusKind = "unknown"
)

// RunningStatus is the status exposed by every step, lifecycle event, job,
// and the workflow itself.
type RunningStatus struct {
	Kind       StatusKind
	Percentage *float64 // only meaningful when Kind == StatusRunning
	StartedAt  *time.Time
	UpdatedAt  *time.Time
	FinishedAt *time.Time // set on StatusSuccess / StatusFailure
}

// NotStartedStatus is the status every step and lifecycle event starts in.
func NotStartedStatus() RunningStatus {
	return RunningStatus{Kind: StatusNotStarted}
}

// EventKind is the tag of a ResultEvent.
type EventKind string

const (
	EventShellOutput      EventKind = "shellOutput"
	EventTemplateProgress EventKind = "templateProgress"
	EventStepBoundary     EventKind = "stepBoundary"
	EventFormRequest      EventKind = "formRequest"
)

// ResultEvent is one emission from a script executor or the scheduler
// itself. Every variant carries the originating script's identifier.
type ResultEvent struct {
	Kind     EventKind
	ScriptID string
	Time     time.Time

	Output string // EventShellOutput

	OutputPath string // EventTemplateProgress
	Completed  int
	Total      int

	RendezvousID string // EventFormRequest
	FormSchema   map[string]any
}

// Fraction returns Completed/Total for a templateProgress event, clamped to
// [0,1]. Zero for any other event kind or when Total is 0.
func (e ResultEvent) Fraction() float64 {
	if e.Kind != EventTemplateProgress || e.Total <= 0 {
		return 0
	}
	f := float64(e.Completed) / float64(e.Total)
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// StatusHolder is implemented by *Step and *LifecycleEvent: the two kinds
// of slot that own a result log and a running status, and which the result
// aggregator searches by script id (spec §4.6).
type StatusHolder interface {
	SlotID() string
	Status() RunningStatus
	SetStatus(RunningStatus)
	Results() []ResultEvent
	AppendResult(ResultEvent)
	ScriptID() string
}

// LifecycleEvent is a hook script bound to one of the six phases.
type LifecycleEvent struct {
	ID     string
	Phase  Phase
	Script *Script

	results []ResultEvent
	status  RunningStatus
}

func (l *LifecycleEvent) SlotID() string            { return l.ID }
func (l *LifecycleEvent) Status() RunningStatus      { return l.status }
func (l *LifecycleEvent) SetStatus(s RunningStatus)  { l.status = s }
func (l *LifecycleEvent) Results() []ResultEvent     { return l.results }
func (l *LifecycleEvent) AppendResult(e ResultEvent) { l.results = append(l.results, e) }
func (l *LifecycleEvent) ScriptID() string {
	if l.Script == nil {
		return ""
	}
	return l.Script.ID
}

// Step is a single script invocation within a job, with optional hooks that
// run just before and after it.
type Step struct {
	ID        string
	Name      string
	Form      map[string]any
	If        string
	Script    *Script
	Lifecycle []*LifecycleEvent // beforeStep / afterStep entries only

	results  []ResultEvent
	status   RunningStatus
	formData map[string]any
}

func (s *Step) SlotID() string            { return s.ID }
func (s *Step) Status() RunningStatus      { return s.status }
func (s *Step) SetStatus(st RunningStatus) { s.status = st }
func (s *Step) Results() []ResultEvent     { return s.results }
func (s *Step) AppendResult(e ResultEvent) { s.results = append(s.results, e) }
func (s *Step) ScriptID() string {
	if s.Script == nil {
		return ""
	}
	return s.Script.ID
}

// BeforeStep returns the step's beforeStep lifecycle events, in declaration
// order.
func (s *Step) BeforeStep() []*LifecycleEvent { return filterPhase(s.Lifecycle, PhaseBeforeStep) }

// AfterStep returns the step's afterStep lifecycle events, in declaration
// order.
func (s *Step) AfterStep() []*LifecycleEvent { return filterPhase(s.Lifecycle, PhaseAfterStep) }

// FormData returns the form values most recently accepted for this step
// through the rendezvous protocol (spec §4.8's `.formData` selector). Empty
// until one has been provided.
func (s *Step) FormData() map[string]any {
	if s.formData == nil {
		return map[string]any{}
	}
	return s.formData
}

func (s *Step) setFormData(data map[string]any) { s.formData = data }

func filterPhase(events []*LifecycleEvent, phase Phase) []*LifecycleEvent {
	var out []*LifecycleEvent
	for _, e := range events {
		if e.Phase == phase {
			out = append(out, e)
		}
	}
	return out
}

// Job is a unit of the DAG: a stable identifier, an ordered step list, and
// its dependency, environment, and lifecycle configuration.
type Job struct {
	ID          string
	Name        string
	Steps       []*Step
	Needs       []string
	Environment map[string]string
	Lifecycle   []*LifecycleEvent // beforeJob / afterJob entries only
	Form        map[string]any

	formData map[string]any
}

// BeforeJob returns the job's beforeJob lifecycle events, in declaration
// order.
func (j *Job) BeforeJob() []*LifecycleEvent { return filterPhase(j.Lifecycle, PhaseBeforeJob) }

// AfterJob returns the job's afterJob lifecycle events, in declaration
// order.
func (j *Job) AfterJob() []*LifecycleEvent { return filterPhase(j.Lifecycle, PhaseAfterJob) }

// FormData returns the form values most recently accepted for this job
// through the rendezvous protocol (spec §4.8's `.formData` selector). Empty
// until one has been provided.
func (j *Job) FormData() map[string]any {
	if j.formData == nil {
		return map[string]any{}
	}
	return j.formData
}

func (j *Job) setFormData(data map[string]any) { j.formData = data }

// Statuses returns the statuses of the job's steps and job-scoped lifecycle
// events, the input to the job status calculator (spec §4.7).
func (j *Job) Statuses() []RunningStatus {
	var out []RunningStatus
	for _, st := range j.Steps {
		out = append(out, st.Status())
	}
	for _, le := range j.Lifecycle {
		out = append(out, le.Status())
	}
	return out
}

// Permission is one of the closed set of declared-but-unenforced permission
// strings (spec §6).
type Permission string

const (
	PermissionReadFile                Permission = "readFile"
	PermissionWriteFile               Permission = "writeFile"
	PermissionRunCommand              Permission = "runCommand"
	PermissionRunScript               Permission = "runScript"
	PermissionDeleteFile              Permission = "deleteFile"
	PermissionReadDirectory           Permission = "readDirectory"
	PermissionWriteDirectory          Permission = "writeDirectory"
	PermissionDeleteDirectory         Permission = "deleteDirectory"
	PermissionReadEnvironmentVariable  Permission = "readEnvironmentVariable"
	PermissionWriteEnvironmentVariable Permission = "writeEnvironmentVariable"
	PermissionReadSecret              Permission = "readSecret"
	PermissionWriteSecret             Permission = "writeSecret"
	PermissionReadVariable            Permission = "readVariable"
	PermissionWriteVariable           Permission = "writeVariable"
)

// knownPermissions is the closed set from spec §6, used only to reject
// unrecognized permission strings at parse time.
var knownPermissions = map[Permission]bool{
	PermissionReadFile: true, PermissionWriteFile: true, PermissionRunCommand: true,
	PermissionRunScript: true, PermissionDeleteFile: true, PermissionReadDirectory: true,
	PermissionWriteDirectory: true, PermissionDeleteDirectory: true,
	PermissionReadEnvironmentVariable: true, PermissionWriteEnvironmentVariable: true,
	PermissionReadSecret: true, PermissionWriteSecret: true,
	PermissionReadVariable: true, PermissionWriteVariable: true,
}

// GlobalConfig carries workflow-wide configuration.
type GlobalConfig struct {
	TemplatePath string
}

// Workflow is the top-level container for one execute() run.
type Workflow struct {
	GlobalConfig GlobalConfig
	Permissions  []Permission
	Lifecycle    []*LifecycleEvent // setup / teardown entries only
	Environment  map[string]string
	Jobs         []*Job
}

// Setup returns the workflow's setup lifecycle events, in declaration
// order.
func (w *Workflow) Setup() []*LifecycleEvent { return filterPhase(w.Lifecycle, PhaseSetup) }

// Teardown returns the workflow's teardown lifecycle events, in declaration
// order.
func (w *Workflow) Teardown() []*LifecycleEvent { return filterPhase(w.Lifecycle, PhaseTeardown) }
