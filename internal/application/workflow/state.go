package workflow

import (
	"intake/internal/application/schema"
	id "intake/pkg/domain"
)

// State is the serializable step/completed-set/identity triple owned by the
// controller. Keeping it one explicit object makes transitions deterministic
// to unit test without a UI harness.
type State struct {
	// Current is the step ordinal the applicant is on, 1..FinalStep.
	Current int `json:"current"`
	// Completed holds steps for which validation (and persistence, where
	// applicable) succeeded at least once. It grows monotonically: going
	// backward never removes a step, re-validation only happens when the
	// applicant attempts to leave that step again.
	Completed map[int]bool `json:"completed"`
	// ApplicationID is zero until the first successful forward transition
	// out of step 1 creates the draft.
	ApplicationID id.ApplicationID `json:"application_id"`
	// Submitted flips once the final submit succeeds; the workflow is then
	// closed to further mutation.
	Submitted bool `json:"submitted"`
}

func newState() State {
	return State{Current: schema.FirstStep, Completed: make(map[int]bool)}
}

// CompletedSteps returns the completed set as an unordered copy for callers
// that want to render progress.
func (s State) CompletedSteps() []int {
	out := make([]int, 0, len(s.Completed))
	for step := range s.Completed {
		out = append(out, step)
	}
	return out
}

// Bound reports whether a draft identity has been created.
func (s State) Bound() bool {
	return !s.ApplicationID.IsNil()
}

// clampStep forces a server-provided resume step into the valid range.
func clampStep(step int) int {
	if step < schema.FirstStep {
		return schema.FirstStep
	}
	if step > schema.FinalStep {
		return schema.FinalStep
	}
	return step
}
