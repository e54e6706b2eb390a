package workflow

import "time"

// Locate finds the slot within job owning scriptID, searching in the order
// spec §4.6 fixes: the job's own beforeJob/afterJob lifecycle events, then,
// step by step, each step's main script followed by that step's
// beforeStep/afterStep lifecycle events.
func Locate(job *Job, scriptID string) (StatusHolder, bool) {
	for _, le := range job.Lifecycle {
		if le.ScriptID() == scriptID {
			return le, true
		}
	}
	for _, step := range job.Steps {
		if step.ScriptID() == scriptID {
			return step, true
		}
		for _, le := range step.Lifecycle {
			if le.ScriptID() == scriptID {
				return le, true
			}
		}
	}
	return nil, false
}

// Aggregator routes incoming result events to their owning slot, appends
// them to that slot's result log, and advances its status (spec §4.6).
type Aggregator struct{}

// Apply locates the slot owning ev.ScriptID within job and, if found,
// appends ev to its result log and transitions its status. A scriptID with
// no matching slot (e.g. a job-level form request, which precedes step
// expansion) is a silent no-op: the event still reaches the caller's event
// stream, it just updates no status.
func (Aggregator) Apply(job *Job, ev ResultEvent, now time.Time) {
	slot, ok := Locate(job, ev.ScriptID)
	if !ok {
		return
	}
	slot.AppendResult(ev)
	slot.SetStatus(TransitionOnEvent(slot.Status(), ev, now))
}

// Fail locates the slot owning scriptID within job and, if found,
// transitions it to failure. Unlike Apply this never appends to the result
// log: a terminal executor error is not itself a ResultEvent (spec §4.7).
func (Aggregator) Fail(job *Job, scriptID string, now time.Time) {
	slot, ok := Locate(job, scriptID)
	if !ok {
		return
	}
	slot.SetStatus(TransitionOnFailure(slot.Status(), now))
}

// Start locates the slot owning scriptID within job and, if found, marks it
// running with a fresh start time. Called just before a script's executor
// is invoked so a slot shows as running even before its first event
// arrives.
func (Aggregator) Start(job *Job, scriptID string, now time.Time) {
	slot, ok := Locate(job, scriptID)
	if !ok {
		return
	}
	slot.SetStatus(TransitionOnStart(now))
}
