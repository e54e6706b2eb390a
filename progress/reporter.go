// Package progress lets a host application (a CLI's TUI, an API's SSE
// stream) observe a running workflow without parsing the raw event channel
// itself.
package progress

import "github.com/rxtech-lab/rxclips-core/workflow"

// Reporter receives incremental updates alongside the engine's event
// stream. A caller typically calls OnEvent once per workflow.SnapshotEvent
// it reads off the channel returned by Engine.Execute.
type Reporter interface {
	OnEvent(snapshot *workflow.WorkflowSnapshot, event workflow.ResultEvent)
	OnComplete(snapshot *workflow.WorkflowSnapshot)
	OnError(snapshot *workflow.WorkflowSnapshot, err error)
}

// NoOp is a Reporter that does nothing. Use as the default when no
// reporting is needed.
type NoOp struct{}

func (NoOp) OnEvent(*workflow.WorkflowSnapshot, workflow.ResultEvent) {}
func (NoOp) OnComplete(*workflow.WorkflowSnapshot)                   {}
func (NoOp) OnError(*workflow.WorkflowSnapshot, error)               {}

// Drain reads every SnapshotEvent off ch, forwarding each to r, until ch is
// closed. It returns the final terminal error, if any.
func Drain(ch <-chan workflow.SnapshotEvent, r Reporter) error {
	var last *workflow.WorkflowSnapshot
	for se := range ch {
		last = se.Snapshot
		if se.Err != nil {
			r.OnError(se.Snapshot, se.Err)
			return se.Err
		}
		r.OnEvent(se.Snapshot, se.Event)
	}
	r.OnComplete(last)
	return nil
}
