package workflow

import (
	"context"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rxtech-lab/rxclips-core/lock"
)

// rawEvent is what a node's execution goroutine sends to the scheduler's
// single aggregation loop. Exactly one of Event, Done, Err, Start, or Form
// is set; the aggregation loop is the only goroutine that ever mutates a
// node's Job (spec §5's mutation discipline).
type rawEvent struct {
	node *Node

	event  *ResultEvent // a real ResultEvent to route and emit
	done   bool         // this node finished every script successfully
	failID string       // script id whose executor reported a terminal error
	err    error

	startID string // script id about to run, marked running before dispatch
	form    *formAcceptance
}

// formAcceptance carries form data just accepted from a rendezvous back to
// the aggregation loop, which is the only goroutine allowed to store it on
// the owning Job or Step.
type formAcceptance struct {
	job  *Job
	step *Step
	data map[string]any
}

// Execute runs the DAG to completion, emitting one SnapshotEvent per
// ResultEvent delivered by any node's scripts. The returned channel is
// closed once every reachable node has finished or the first node error
// has propagated; when it closes due to failure the final SnapshotEvent
// carries a non-nil Err (spec §4.4, §5, §7). Execute acquires a lock on the
// workflow's working directory before the graph starts running and
// releases it once the outer sequence terminates, in any outcome (spec
// §4.12); a working directory that cannot be resolved to an absolute path
// or whose lock is busy or unacquirable are the only preconditions under
// which Execute itself returns a non-nil error instead of starting the run.
func (e *Engine) Execute(ctx context.Context) (<-chan SnapshotEvent, error) {
	workingDir := e.cfg.workingDir
	if workingDir == "" {
		workingDir = "."
	}
	absWorkingDir, err := filepath.Abs(workingDir)
	if err != nil {
		return nil, errExecutionFailed("resolving working directory for lock", err)
	}
	runLock, err := lock.Acquire(absWorkingDir)
	if err != nil {
		return nil, errExecutionFailed("acquiring workflow lock", err)
	}

	out := make(chan SnapshotEvent)
	incoming := make(chan rawEvent)

	g, gctx := errgroup.WithContext(ctx)

	inProgress := map[string]bool{}
	completed := map[string]bool{}
	released := map[string]chan struct{}{}

	spawn := func(n *Node) {
		inProgress[n.ID] = true
		release := make(chan struct{})
		released[n.ID] = release
		g.Go(func() error {
			if err := e.runNode(gctx, n, incoming); err != nil {
				return err
			}
			// Hold this node's errgroup slot until the aggregation loop has
			// spawned its ready children, so g.Wait cannot return in between.
			<-release
			return nil
		})
	}
	spawn(e.graph.Root)

	go func() {
		_ = g.Wait()
		close(incoming)
	}()

	go func() {
		defer close(out)
		defer runLock.Release()

		var snapshot *WorkflowSnapshot
		var failure error

		for re := range incoming {
			now := time.Now()

			switch {
			case re.event != nil:
				e.aggregator.Apply(re.node.Job, *re.event, now)
				snapshot = Project(e.graph)
				out <- SnapshotEvent{Snapshot: snapshot, Event: *re.event}

			case re.err != nil:
				if re.failID != "" {
					e.aggregator.Fail(re.node.Job, re.failID, now)
				}
				e.cfg.logger.Error("workflow node failed", "node", re.node.ID, "script", re.failID, "error", re.err)
				snapshot = Project(e.graph)
				if failure == nil {
					failure = re.err
				}

			case re.startID != "":
				e.aggregator.Start(re.node.Job, re.startID, now)

			case re.form != nil:
				if re.form.step != nil {
					re.form.step.setFormData(re.form.data)
				} else {
					re.form.job.setFormData(re.form.data)
				}

			case re.done:
				completed[re.node.ID] = true
				delete(inProgress, re.node.ID)
				if failure != nil {
					close(released[re.node.ID])
					continue
				}
				for _, child := range re.node.Children {
					if completed[child.ID] || inProgress[child.ID] {
						continue
					}
					ready := true
					for _, p := range child.Parents {
						if !completed[p.ID] {
							ready = false
							break
						}
					}
					if ready {
						spawn(child)
					}
				}
				close(released[re.node.ID])
			}
		}

		if failure != nil {
			if snapshot == nil {
				snapshot = Project(e.graph)
			}
			out <- SnapshotEvent{Snapshot: snapshot, Err: failure}
		}
	}()

	return out, nil
}

// runNode drives one job's form rendezvous and fully-expanded script
// sequence, forwarding every event to incoming. It returns the first
// script error it encounters (stopping the job's remaining scripts) or nil
// once every script has completed.
func (e *Engine) runNode(ctx context.Context, node *Node, incoming chan<- rawEvent) error {
	job := node.Job

	jobFormData := map[string]any{}
	if job.Form != nil {
		rendezvousID := e.nextRendezvousID("job", job.ID)
		data, err := e.requestForm(ctx, node, rendezvousID, job.ID, job.Form, incoming)
		if err != nil {
			return err
		}
		jobFormData = data
		select {
		case incoming <- rawEvent{node: node, form: &formAcceptance{job: job, data: data}}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	env := mergeEnv(e.cfg.environment, job.Environment)

	stepFormData := map[string]any{}
	requestedStepForm := map[string]bool{}

	for _, unit := range Expand(job) {
		if unit.StepID != "" && !requestedStepForm[unit.StepID] {
			requestedStepForm[unit.StepID] = true
			step := findStep(job, unit.StepID)
			if step != nil && step.Form != nil {
				rendezvousID := e.nextRendezvousID("step", step.ID)
				data, err := e.requestForm(ctx, node, rendezvousID, step.Script.ID, step.Form, incoming)
				if err != nil {
					return err
				}
				stepFormData = data
				select {
				case incoming <- rawEvent{node: node, form: &formAcceptance{step: step, data: data}}:
				case <-ctx.Done():
					return ctx.Err()
				}
			} else {
				stepFormData = map[string]any{}
			}
		}

		formData := mergeForm(jobFormData, stepFormData)
		select {
		case incoming <- rawEvent{node: node, startID: unit.Script.ID}:
		case <-ctx.Done():
			return ctx.Err()
		}

		if err := e.runScript(ctx, node, unit.Script, env, formData, incoming); err != nil {
			select {
			case incoming <- rawEvent{node: node, failID: unit.Script.ID, err: err}:
			case <-ctx.Done():
			}
			return err
		}

		boundary := ResultEvent{Kind: EventStepBoundary, ScriptID: unit.Script.ID, Time: time.Now()}
		select {
		case incoming <- rawEvent{node: node, event: &boundary}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	select {
	case incoming <- rawEvent{node: node, done: true}:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

// runScript dispatches script to its registered executor and relays every
// event it produces to incoming, tagged with node.
func (e *Engine) runScript(ctx context.Context, node *Node, script *Script, env map[string]string, formData map[string]any, incoming chan<- rawEvent) error {
	executor, ok := e.cfg.executors[script.Kind]
	if !ok {
		return errUnsupportedScriptType(script.Kind)
	}

	ec := ExecContext{
		WorkingDir:  e.cfg.workingDir,
		Environment: env,
		FormData:    formData,
		Repository:  e.cfg.repository,
	}

	events := make(chan ResultEvent)
	errCh := make(chan error, 1)
	go func() {
		errCh <- executor.Execute(ctx, script, ec, events)
		close(events)
	}()

	for ev := range events {
		select {
		case incoming <- rawEvent{node: node, event: &ev}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return <-errCh
}

// requestForm publishes a formRequest event carrying rendezvousID (minted by
// the caller via Engine.nextRendezvousID, spec §4.4), then waits for it to
// be answered: synchronously via the configured FormCallback if one is set,
// or by blocking on the rendezvous otherwise (spec §4.5).
func (e *Engine) requestForm(ctx context.Context, node *Node, rendezvousID, scriptID string, schema map[string]any, incoming chan<- rawEvent) (map[string]any, error) {
	ev := ResultEvent{Kind: EventFormRequest, ScriptID: scriptID, RendezvousID: rendezvousID, FormSchema: schema, Time: time.Now()}

	select {
	case incoming <- rawEvent{node: node, event: &ev}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if e.cfg.formCallback != nil {
		return e.cfg.formCallback(ctx, FormRequest{RendezvousID: rendezvousID, ScriptID: scriptID, Schema: schema})
	}
	return e.rendezvous.Wait(ctx, rendezvousID)
}

func findStep(job *Job, id string) *Step {
	for _, st := range job.Steps {
		if st.ID == id {
			return st
		}
	}
	return nil
}

func mergeEnv(base, overlay map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(overlay))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range overlay {
		out[k] = v
	}
	return out
}

func mergeForm(job, step map[string]any) map[string]any {
	out := make(map[string]any, len(job)+len(step))
	for k, v := range job {
		out[k] = v
	}
	for k, v := range step {
		out[k] = v
	}
	return out
}
