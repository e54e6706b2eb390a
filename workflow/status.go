package workflow

import "time"

// TransitionOnEvent applies the status transition for the arrival of a
// result event at a slot that was in the given current status (spec §4.7).
func TransitionOnEvent(current RunningStatus, ev ResultEvent, now time.Time) RunningStatus {
	next := current
	next.UpdatedAt = &now
	if current.StartedAt == nil {
		next.StartedAt = &now
	}

	switch ev.Kind {
	case EventStepBoundary:
		next.Kind = StatusSuccess
		next.Percentage = nil
		next.FinishedAt = &now
	case EventTemplateProgress:
		next.Kind = StatusRunning
		frac := ev.Fraction()
		next.Percentage = &frac
	default: // shellOutput, formRequest
		next.Kind = StatusRunning
		next.Percentage = nil
	}
	return next
}

// TransitionOnFailure applies the status transition when a script's
// executor reports a terminal error (spec §4.7). This is not itself a
// ResultEvent: the scheduler calls it directly once it learns a script
// failed.
func TransitionOnFailure(current RunningStatus, now time.Time) RunningStatus {
	next := current
	next.Kind = StatusFailure
	next.Percentage = nil
	next.UpdatedAt = &now
	next.FinishedAt = &now
	if next.StartedAt == nil {
		next.StartedAt = &now
	}
	return next
}

// TransitionOnStart marks a slot as running the instant its script begins
// executing, before any event has arrived from it.
func TransitionOnStart(now time.Time) RunningStatus {
	return RunningStatus{Kind: StatusRunning, StartedAt: &now, UpdatedAt: &now}
}

// statusPrecedence ranks statuses from most to least urgent for job and
// workflow aggregation (spec §4.7): running > failure > success > skipped >
// notStarted > unknown.
var statusPrecedence = map[StatusKind]int{
	StatusRunning:    0,
	StatusFailure:    1,
	StatusSuccess:    2,
	StatusSkipped:    3,
	StatusNotStarted: 4,
	StatusUnknown:    5,
}

// Aggregate combines a set of child statuses into their parent's status
// (job from its steps/lifecycle events, workflow from its jobs), applying
// the precedence order in spec §4.7. An empty set aggregates to
// notStarted.
func Aggregate(children []RunningStatus) RunningStatus {
	if len(children) == 0 {
		return NotStartedStatus()
	}

	best := children[0]
	for _, c := range children[1:] {
		if statusPrecedence[c.Kind] < statusPrecedence[best.Kind] {
			best = c
		}
	}

	result := RunningStatus{Kind: best.Kind}
	for _, c := range children {
		if c.StartedAt != nil && (result.StartedAt == nil || c.StartedAt.Before(*result.StartedAt)) {
			result.StartedAt = c.StartedAt
		}
		if c.UpdatedAt != nil && (result.UpdatedAt == nil || c.UpdatedAt.After(*result.UpdatedAt)) {
			result.UpdatedAt = c.UpdatedAt
		}
	}
	if result.Kind == StatusSuccess || result.Kind == StatusFailure {
		for _, c := range children {
			if c.FinishedAt != nil && (result.FinishedAt == nil || c.FinishedAt.After(*result.FinishedAt)) {
				result.FinishedAt = c.FinishedAt
			}
		}
	}
	return result
}
