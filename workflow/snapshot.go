package workflow

// LifecycleSnapshot is the read-only projection of one lifecycle event.
type LifecycleSnapshot struct {
	ID      string
	Phase   Phase
	Status  RunningStatus
	Results []ResultEvent
}

// StepSnapshot is the read-only projection of one step, including its own
// hook events.
type StepSnapshot struct {
	ID        string
	Name      string
	Status    RunningStatus
	Results   []ResultEvent
	Lifecycle []LifecycleSnapshot
}

// JobSnapshot is the read-only projection of one job.
type JobSnapshot struct {
	ID        string
	Name      string
	Needs     []string
	Status    RunningStatus
	Steps     []StepSnapshot
	Lifecycle []LifecycleSnapshot
}

// WorkflowSnapshot is the full, workflow-shaped projection of the mutable
// graph at a point in time: the synthetic root/tail nodes are folded back
// into the workflow's setup/teardown lists rather than exposed as jobs
// (spec §4.6).
type WorkflowSnapshot struct {
	Setup    []LifecycleSnapshot
	Teardown []LifecycleSnapshot
	Jobs     []JobSnapshot
	Status   RunningStatus

	// Permissions, Environment, and GlobalConfig are carried through from
	// the source Workflow unchanged: declared and surfaced here, never
	// enforced by the engine (spec §1 Non-goals).
	Permissions  []Permission
	Environment  map[string]string
	GlobalConfig GlobalConfig
}

func projectLifecycle(events []*LifecycleEvent) []LifecycleSnapshot {
	out := make([]LifecycleSnapshot, 0, len(events))
	for _, le := range events {
		out = append(out, LifecycleSnapshot{
			ID:      le.ID,
			Phase:   le.Phase,
			Status:  le.Status(),
			Results: append([]ResultEvent(nil), le.Results()...),
		})
	}
	return out
}

func projectStep(step *Step) StepSnapshot {
	return StepSnapshot{
		ID:        step.ID,
		Name:      step.Name,
		Status:    step.Status(),
		Results:   append([]ResultEvent(nil), step.Results()...),
		Lifecycle: projectLifecycle(step.Lifecycle),
	}
}

func projectJob(node *Node) JobSnapshot {
	job := node.Job
	steps := make([]StepSnapshot, 0, len(job.Steps))
	for _, st := range job.Steps {
		steps = append(steps, projectStep(st))
	}
	return JobSnapshot{
		ID:        job.ID,
		Name:      job.Name,
		Needs:     job.Needs,
		Status:    Aggregate(job.Statuses()),
		Steps:     steps,
		Lifecycle: projectLifecycle(job.Lifecycle),
	}
}

// Project builds a WorkflowSnapshot from the current state of the graph.
// Root's steps project to Setup, tail's steps project to Teardown, and
// every other node projects to a JobSnapshot, in the graph's declared job
// order.
func Project(g *Graph) *WorkflowSnapshot {
	snap := &WorkflowSnapshot{
		Permissions:  g.Permissions,
		Environment:  g.Environment,
		GlobalConfig: g.GlobalConfig,
	}

	setupStatuses := make([]RunningStatus, 0, len(g.Root.Job.Steps))
	for _, st := range g.Root.Job.Steps {
		ls := projectStep(st)
		snap.Setup = append(snap.Setup, LifecycleSnapshot{ID: ls.ID, Status: ls.Status, Results: ls.Results})
		setupStatuses = append(setupStatuses, ls.Status)
	}
	teardownStatuses := make([]RunningStatus, 0, len(g.Tail.Job.Steps))
	for _, st := range g.Tail.Job.Steps {
		ls := projectStep(st)
		snap.Teardown = append(snap.Teardown, LifecycleSnapshot{ID: ls.ID, Status: ls.Status, Results: ls.Results})
		teardownStatuses = append(teardownStatuses, ls.Status)
	}

	jobStatuses := make([]RunningStatus, 0, len(g.Order))
	for _, id := range g.Order {
		node := g.Nodes[id]
		js := projectJob(node)
		snap.Jobs = append(snap.Jobs, js)
		jobStatuses = append(jobStatuses, js.Status)
	}

	all := append(append(append([]RunningStatus{}, setupStatuses...), jobStatuses...), teardownStatuses...)
	snap.Status = Aggregate(all)
	return snap
}
