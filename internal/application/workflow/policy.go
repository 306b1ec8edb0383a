package workflow

import "intake/internal/application/schema"

// PersistPolicy decides what a persistence failure does to the transition
// that triggered it.
type PersistPolicy int

const (
	// PersistBlocking: the transition is aborted and the error propagated.
	PersistBlocking PersistPolicy = iota
	// PersistForgiving: the failure is surfaced as a warning but the
	// transition proceeds; the in-memory record stays the source of truth
	// and a later save recovers the missed data.
	PersistForgiving
)

// persistPolicies encodes, per step, whether a persistence failure blocks
// leaving that step. Only the initial create is blocking, and the controller
// handles that on its unbound branch before ever consulting this table: once
// a draft identity exists, every persist is an update of a full step slice,
// so even a step 1 revisit tolerates failure and a later save recovers it.
var persistPolicies = map[int]PersistPolicy{
	schema.StepPersonal:       PersistForgiving,
	schema.StepSubject:        PersistForgiving,
	schema.StepQualifications: PersistForgiving,
	schema.StepTeaching:       PersistForgiving,
	schema.StepWork:           PersistForgiving,
	schema.StepExamining:      PersistForgiving,
	schema.StepTraining:       PersistForgiving,
	schema.StepAdditional:     PersistForgiving,
	schema.StepDocuments:      PersistForgiving,
	schema.StepPayment:        PersistForgiving,
}

// PolicyFor returns the persistence policy for leaving a step. Steps outside
// the table (the review step never persists on exit) default to forgiving.
func PolicyFor(step int) PersistPolicy {
	if p, ok := persistPolicies[step]; ok {
		return p
	}
	return PersistForgiving
}
