package workflow

// ExpandedScript is one script in a job's fully-expanded execution order,
// paired with the StatusHolder slot that owns its status and result log.
type ExpandedScript struct {
	Script *Script
	Owner  StatusHolder
	StepID string // empty for job-scoped lifecycle scripts
}

// Expand produces the ordered script sequence for a job: its beforeJob
// hooks, then for each step in declaration order its beforeStep hooks, its
// main script, and its afterStep hooks, then its afterJob hooks (spec
// §4.2). Lifecycle scripts are cloned under their owning event's id on every
// call, so repeated expansion of the same job is idempotent and produces
// identical script ids.
func Expand(job *Job) []ExpandedScript {
	var out []ExpandedScript

	for _, le := range job.BeforeJob() {
		out = append(out, ExpandedScript{Script: le.Script.Clone(le.ID), Owner: le})
	}

	for _, step := range job.Steps {
		for _, le := range step.BeforeStep() {
			out = append(out, ExpandedScript{Script: le.Script.Clone(le.ID), Owner: le, StepID: step.ID})
		}
		out = append(out, ExpandedScript{Script: step.Script, Owner: step, StepID: step.ID})
		for _, le := range step.AfterStep() {
			out = append(out, ExpandedScript{Script: le.Script.Clone(le.ID), Owner: le, StepID: step.ID})
		}
	}

	for _, le := range job.AfterJob() {
		out = append(out, ExpandedScript{Script: le.Script.Clone(le.ID), Owner: le})
	}

	return out
}
