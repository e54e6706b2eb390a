package workflow

import "testing"

func job(id string, needs ...string) *Job {
	return &Job{ID: id, Needs: needs, Steps: []*Step{{ID: id + "-step", Script: &Script{ID: id + "-step", Kind: ScriptBash, Command: "true"}}}}
}

func TestBuildGraphLinear(t *testing.T) {
	wf := &Workflow{Jobs: []*Job{job("a"), job("b", "a"), job("c", "b")}}

	g, err := BuildGraph(wf)
	if err != nil {
		t.Fatalf("BuildGraph returned error: %v", err)
	}

	if _, ok := g.Root.Children["a"]; !ok {
		t.Error("expected root -> a")
	}
	if _, ok := g.Nodes["a"].Children["b"]; !ok {
		t.Error("expected a -> b")
	}
	if _, ok := g.Nodes["c"].Children[tailNodeID]; !ok {
		t.Error("expected c -> tail")
	}
	if _, ok := g.Root.Children["b"]; ok {
		t.Error("root should not connect directly to b")
	}
}

func TestBuildGraphParallelJoin(t *testing.T) {
	wf := &Workflow{Jobs: []*Job{job("a"), job("b"), job("c", "a", "b")}}

	g, err := BuildGraph(wf)
	if err != nil {
		t.Fatalf("BuildGraph returned error: %v", err)
	}

	if _, ok := g.Root.Children["a"]; !ok {
		t.Error("expected root -> a")
	}
	if _, ok := g.Root.Children["b"]; !ok {
		t.Error("expected root -> b")
	}
	if len(g.Nodes["c"].Parents) != 2 {
		t.Errorf("expected c to have 2 parents, got %d", len(g.Nodes["c"].Parents))
	}
}

func TestBuildGraphEmptyWorkflowConnectsRootToTail(t *testing.T) {
	g, err := BuildGraph(&Workflow{})
	if err != nil {
		t.Fatalf("BuildGraph returned error: %v", err)
	}
	if _, ok := g.Root.Children[tailNodeID]; !ok {
		t.Error("expected root -> tail for an empty workflow")
	}
}

func TestBuildGraphDuplicateNode(t *testing.T) {
	wf := &Workflow{Jobs: []*Job{job("a"), job("a")}}
	_, err := BuildGraph(wf)
	wfErr, ok := AsError(err)
	if !ok || wfErr.Kind != ErrDuplicateNode {
		t.Fatalf("expected DuplicateNode error, got %v", err)
	}
}

func TestBuildGraphMissingDependency(t *testing.T) {
	wf := &Workflow{Jobs: []*Job{job("a", "ghost")}}
	_, err := BuildGraph(wf)
	wfErr, ok := AsError(err)
	if !ok || wfErr.Kind != ErrMissingDependency {
		t.Fatalf("expected MissingDependency error, got %v", err)
	}
}

func TestBuildGraphCyclicDependency(t *testing.T) {
	wf := &Workflow{Jobs: []*Job{job("a", "c"), job("b", "a"), job("c", "b")}}
	_, err := BuildGraph(wf)
	wfErr, ok := AsError(err)
	if !ok || wfErr.Kind != ErrCyclicDependency {
		t.Fatalf("expected CyclicDependency error, got %v", err)
	}
}

func TestBuildGraphPromotesSetupAndTeardown(t *testing.T) {
	wf := &Workflow{
		Jobs: []*Job{job("a")},
		Lifecycle: []*LifecycleEvent{
			{ID: "s1", Phase: PhaseSetup, Script: &Script{Kind: ScriptBash, Command: "echo setup"}},
			{ID: "t1", Phase: PhaseTeardown, Script: &Script{Kind: ScriptBash, Command: "echo teardown"}},
		},
	}

	g, err := BuildGraph(wf)
	if err != nil {
		t.Fatalf("BuildGraph returned error: %v", err)
	}
	if len(g.Root.Job.Steps) != 1 || g.Root.Job.Steps[0].ID != "s1" {
		t.Fatalf("expected root to carry promoted setup step, got %+v", g.Root.Job.Steps)
	}
	if len(g.Tail.Job.Steps) != 1 || g.Tail.Job.Steps[0].ID != "t1" {
		t.Fatalf("expected tail to carry promoted teardown step, got %+v", g.Tail.Job.Steps)
	}
}
