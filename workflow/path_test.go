package workflow

import "testing"

func buildPathGraph(t *testing.T) *Graph {
	t.Helper()
	a := job("a")
	a.Steps = append(a.Steps, &Step{ID: "lint", Script: &Script{ID: "lint", Kind: ScriptBash, Command: "lint"}})
	wf := &Workflow{Jobs: []*Job{a, job("b", "a")}}
	g, err := BuildGraph(wf)
	if err != nil {
		t.Fatalf("BuildGraph returned error: %v", err)
	}
	return g
}

func TestLookupJobByIndex(t *testing.T) {
	g := buildPathGraph(t)
	res, err := Lookup(g, "jobs[0]")
	if err != nil {
		t.Fatalf("Lookup returned error: %v", err)
	}
	if res.Job == nil || res.Job.ID != "a" {
		t.Fatalf("got %+v, want job a", res)
	}
}

func TestLookupJobByID(t *testing.T) {
	g := buildPathGraph(t)
	res, err := Lookup(g, "jobs.b")
	if err != nil {
		t.Fatalf("Lookup returned error: %v", err)
	}
	if res.Job == nil || res.Job.ID != "b" {
		t.Fatalf("got %+v, want job b", res)
	}
}

func TestLookupStepByIndex(t *testing.T) {
	g := buildPathGraph(t)
	res, err := Lookup(g, "jobs.a.steps[0]")
	if err != nil {
		t.Fatalf("Lookup returned error: %v", err)
	}
	if res.Step == nil || res.Step.ID != "a-step" {
		t.Fatalf("got %+v, want step a-step", res)
	}
}

func TestLookupStepByID(t *testing.T) {
	g := buildPathGraph(t)
	res, err := Lookup(g, "jobs[0].steps.lint")
	if err != nil {
		t.Fatalf("Lookup returned error: %v", err)
	}
	if res.Step == nil || res.Step.ID != "lint" {
		t.Fatalf("got %+v, want step lint", res)
	}
}

func TestLookupTrailers(t *testing.T) {
	g := buildPathGraph(t)

	res, err := Lookup(g, "jobs.a.results")
	if err != nil {
		t.Fatalf("Lookup returned error: %v", err)
	}
	if res.Trailer != "results" {
		t.Fatalf("got trailer %q, want results", res.Trailer)
	}

	res, err = Lookup(g, "jobs.a.steps.lint.formData")
	if err != nil {
		t.Fatalf("Lookup returned error: %v", err)
	}
	if res.Trailer != "formData" || res.Step == nil || res.Step.ID != "lint" {
		t.Fatalf("got %+v, want step lint with formData trailer", res)
	}
	if len(res.FormData) != 0 {
		t.Fatalf("expected empty formData before anything is provided, got %v", res.FormData)
	}
}

func TestLookupFormDataReflectsAcceptedValue(t *testing.T) {
	g := buildPathGraph(t)

	step := findStep(g.Nodes["a"].Job, "lint")
	step.setFormData(map[string]any{"answer": 42})

	res, err := Lookup(g, "jobs.a.steps.lint.formData")
	if err != nil {
		t.Fatalf("Lookup returned error: %v", err)
	}
	if res.FormData["answer"] != 42 {
		t.Fatalf("got FormData %v, want answer=42", res.FormData)
	}
}

func TestLookupRejectsRootAndTail(t *testing.T) {
	g := buildPathGraph(t)
	for _, path := range []string{"jobs.root", "jobs.tail"} {
		if _, err := Lookup(g, path); err == nil {
			t.Fatalf("expected error looking up %q", path)
		} else if wfErr, ok := AsError(err); !ok || wfErr.Kind != ErrInvalidPath {
			t.Fatalf("expected InvalidPath for %q, got %v", path, err)
		}
	}
}

func TestLookupRejectsMalformedAndOutOfRange(t *testing.T) {
	g := buildPathGraph(t)
	cases := []string{
		"jobs",
		"jobs[5]",
		"jobs.ghost",
		"jobs.a.steps[9]",
		"jobs.a.steps.ghost",
		"jobs.a.bogusTrailer",
		"not-a-path",
	}
	for _, path := range cases {
		_, err := Lookup(g, path)
		wfErr, ok := AsError(err)
		if !ok || wfErr.Kind != ErrInvalidPath {
			t.Fatalf("path %q: expected InvalidPath, got %v", path, err)
		}
	}
}
