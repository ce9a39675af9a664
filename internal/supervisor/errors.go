package supervisor

import "fmt"

// Kind classifies run failures.
type Kind string

const (
	// KindDecisionInvalid means the oracle returned an unparseable or
	// out-of-registry choice after its single retry.
	KindDecisionInvalid Kind = "decision_invalid"
	// KindWorkerFault means a worker execution failed. Recorded, not fatal
	// until the per-worker failure threshold is reached.
	KindWorkerFault Kind = "worker_fault"
	// KindLoopLimitExceeded means the loop guard tripped.
	KindLoopLimitExceeded Kind = "loop_limit_exceeded"
	// KindTimeout means a suspension point exceeded its budget.
	KindTimeout Kind = "timeout"
	// KindCancelled means the external caller cancelled the run.
	KindCancelled Kind = "cancelled"
)

// Status is the terminal state of a run.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusAborted   Status = "aborted"
	StatusCancelled Status = "cancelled"
)

// RunOutcome is what the run boundary always returns to the caller: a
// terminal status, the failure kind when aborted, and the underlying error
// detail. The caller never sees an unhandled fault.
type RunOutcome struct {
	Status Status
	Reason Kind
	Err    error
}

func completedOutcome() RunOutcome {
	return RunOutcome{Status: StatusCompleted}
}

func cancelledOutcome() RunOutcome {
	return RunOutcome{Status: StatusCancelled, Reason: KindCancelled}
}

func abortedOutcome(kind Kind, err error) RunOutcome {
	return RunOutcome{Status: StatusAborted, Reason: kind, Err: err}
}

func (o RunOutcome) String() string {
	if o.Status == StatusAborted {
		return fmt.Sprintf("%s (%s)", o.Status, o.Reason)
	}
	return string(o.Status)
}
