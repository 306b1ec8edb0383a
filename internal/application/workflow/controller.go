// Package workflow implements the multi-step submission state machine: the
// current step, the completed-step set and the draft identity, plus the
// transition rules that tie validation, gating and draft persistence
// together.
package workflow

import (
	"context"
	"log/slog"
	"strings"

	"intake/internal/application/gate"
	"intake/internal/application/models"
	"intake/internal/application/schema"
	dErrors "intake/pkg/domain-errors"
)

// Controller orchestrates transition requests for one applicant session. It
// holds no internal mutex: the caller must serialize transitions (at most
// one in flight per draft), typically by disabling further requests while
// one is outstanding.
type Controller struct {
	state  State
	record models.Record

	// dirty tracks which repeated-entry collections the applicant has
	// edited since workflow start, so a resume refresh never clobbers
	// in-flight edits.
	dirty map[int]bool

	drafts    DraftPersistence
	documents DocumentLister
	pricing   PriceQuoter

	logger *slog.Logger
	exit   func(context.Context) error
}

// Option configures a Controller.
type Option func(*Controller)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithExitAction sets the external action SaveAndExit invokes after the
// best-effort save, e.g. session termination.
func WithExitAction(exit func(context.Context) error) Option {
	return func(c *Controller) {
		c.exit = exit
	}
}

// New builds a controller positioned on step 1 with an empty record.
func New(drafts DraftPersistence, documents DocumentLister, pricing PriceQuoter, opts ...Option) (*Controller, error) {
	if drafts == nil {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "draft persistence is required")
	}
	if documents == nil {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "document lister is required")
	}
	if pricing == nil {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "price quoter is required")
	}

	c := &Controller{
		state:     newState(),
		dirty:     make(map[int]bool),
		drafts:    drafts,
		documents: documents,
		pricing:   pricing,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Transition reports what a navigation request did.
type Transition struct {
	// Moved is true when the current step changed.
	Moved bool
	// Step is the current step after the attempt.
	Step int
	// Warning carries a tolerated persistence failure. The transition went
	// through; the caller should surface the warning without blocking.
	Warning error
	// GateReasons lists why a gate refused forward progress.
	GateReasons []string
	// GatePending is true when the payment gate is closed only because
	// pricing is still loading; callers should show a wait state, not an
	// error.
	GatePending bool
}

// State returns a copy of the serializable workflow state.
func (c *Controller) State() State {
	cp := c.state
	cp.Completed = make(map[int]bool, len(c.state.Completed))
	for k, v := range c.state.Completed {
		cp.Completed[k] = v
	}
	return cp
}

// Record returns the draft value store: the full in-memory record across all
// steps, independent of which step is visible.
func (c *Controller) Record() *models.Record {
	return &c.record
}

// Next commits the current step and advances by one. The pipeline is
// validate, gate, persist, advance; which failures block is governed by the
// gate rules and the per-step persistence policy table.
func (c *Controller) Next(ctx context.Context) (Transition, error) {
	if c.state.Submitted {
		return c.stay(), dErrors.New(dErrors.CodeConflict, "application already submitted")
	}
	current := c.state.Current
	if current >= schema.FinalStep {
		return c.stay(), dErrors.New(dErrors.CodeInvariantViolation, "next is not available from the review step")
	}

	if err := schema.Validate(current, &c.record); err != nil {
		return c.stay(), err
	}

	switch current {
	case schema.StepDocuments:
		docs, err := c.documents.List(ctx, c.state.ApplicationID)
		if err != nil {
			return c.stay(), dErrors.Wrap(err, dErrors.CodeUnavailable, "could not load documents")
		}
		if d := gate.Documents(docs); !d.Open {
			return Transition{Step: current, GateReasons: d.Reasons},
				dErrors.New(dErrors.CodeGateClosed, strings.Join(d.Reasons, "; "))
		}
	case schema.StepPayment:
		quote, err := c.pricing.Quote(ctx, c.state.ApplicationID)
		if err != nil {
			// Conservatively closed, surfaced as loading rather than failed.
			quote = models.PriceQuote{}
		}
		if d := gate.Payment(quote); !d.Open {
			// The Pay action, not Next, changes gate state: no error here.
			return Transition{Step: current, GateReasons: d.Reasons, GatePending: d.Pending}, nil
		}
	}

	if !c.state.Bound() {
		if current != schema.StepPersonal {
			return c.stay(), dErrors.Newf(dErrors.CodeInvariantViolation, "no draft bound at step %d", current)
		}
		appID, err := c.drafts.Create(ctx, c.stepData(schema.StepPersonal, true))
		if err != nil {
			// The one blocking persistence failure: without an identity
			// there is nothing to recover into.
			return c.stay(), err
		}
		c.state.ApplicationID = appID
		return c.advance(nil), nil
	}

	warning := c.persist(ctx, current, current)
	if warning != nil && PolicyFor(current) == PersistBlocking {
		return c.stay(), warning
	}
	return c.advance(warning), nil
}

// Previous moves back one step. It persists the target step's data
// best-effort first; failure never blocks the move.
func (c *Controller) Previous(ctx context.Context) (Transition, error) {
	if c.state.Submitted {
		return c.stay(), dErrors.New(dErrors.CodeConflict, "application already submitted")
	}
	if c.state.Current <= schema.FirstStep {
		return c.stay(), nil
	}

	target := c.state.Current - 1
	var warning error
	if c.state.Bound() {
		warning = c.persist(ctx, target, c.lastCompleted())
	}
	c.state.Current = target
	return Transition{Moved: true, Step: target, Warning: warning}, nil
}

// SaveAndExit persists the lesser of the current and last form step, then
// invokes the external exit action. Persistence failure is surfaced first
// but the exit always proceeds.
func (c *Controller) SaveAndExit(ctx context.Context) (Transition, error) {
	saveStep := c.state.Current
	if saveStep > schema.LastFormStep {
		saveStep = schema.LastFormStep
	}

	var warning error
	if c.state.Bound() && !c.state.Submitted {
		warning = c.persist(ctx, saveStep, c.lastCompleted())
	}
	if c.exit != nil {
		if err := c.exit(ctx); err != nil {
			return Transition{Step: c.state.Current, Warning: warning}, err
		}
	}
	return Transition{Step: c.state.Current, Warning: warning}, nil
}

// Submit finalizes the application from the review step. All data is already
// persisted through the per-step updates, so no payload accompanies it. On
// failure the applicant stays on the review step and may retry.
func (c *Controller) Submit(ctx context.Context) error {
	if c.state.Submitted {
		return dErrors.New(dErrors.CodeConflict, "application already submitted")
	}
	if c.state.Current != schema.FinalStep {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "submit is only available from step %d", schema.FinalStep)
	}
	if !c.state.Bound() {
		return dErrors.New(dErrors.CodeInvariantViolation, "no draft bound")
	}

	if err := c.drafts.Submit(ctx, c.state.ApplicationID); err != nil {
		return err
	}
	c.state.Submitted = true
	return nil
}

// Resume binds an existing draft, repopulates the value store from the
// fetched record and positions the applicant at the server-recorded last
// completed step (clamped to the valid range). Repeated-entry collections
// already edited locally win over the fetched copy.
func (c *Controller) Resume(rec *models.Record) error {
	if rec == nil {
		return dErrors.New(dErrors.CodeBadRequest, "record is required")
	}
	if rec.ID.IsNil() {
		return dErrors.New(dErrors.CodeBadRequest, "record has no application id")
	}

	c.state.ApplicationID = rec.ID
	c.merge(rec)

	resumeAt := clampStep(rec.LastCompletedStep)
	c.state.Current = resumeAt
	for step := schema.FirstStep; step <= rec.LastCompletedStep && step <= schema.FinalStep; step++ {
		c.state.Completed[step] = true
	}
	return nil
}

// Refresh re-fetches the server record and merges it without moving the
// current step; in-flight collection edits are preserved.
func (c *Controller) Refresh(ctx context.Context) error {
	if !c.state.Bound() {
		return dErrors.New(dErrors.CodeInvariantViolation, "no draft bound")
	}
	rec, err := c.drafts.Fetch(ctx, c.state.ApplicationID)
	if err != nil {
		return err
	}
	c.merge(rec)
	return nil
}

// Step data setters. The UI writes into the draft value store through these
// so the controller can track which collections carry in-flight edits.

func (c *Controller) SetPersonal(p models.PersonalParticulars) {
	c.record.Personal = p
}

func (c *Controller) SetSubject(s models.SubjectSelection) {
	c.record.Subject = s
}

func (c *Controller) SetQualifications(q []models.Qualification) {
	c.record.Qualifications = q
	c.dirty[schema.StepQualifications] = true
}

func (c *Controller) SetTeaching(t []models.TeachingExperience) {
	c.record.Teaching = t
	c.dirty[schema.StepTeaching] = true
}

func (c *Controller) SetWork(w []models.WorkExperience) {
	c.record.Work = w
	c.dirty[schema.StepWork] = true
}

func (c *Controller) SetExamining(e []models.ExaminingExperience) {
	c.record.Examining = e
	c.dirty[schema.StepExamining] = true
}

func (c *Controller) SetTraining(t []models.TrainingCourse) {
	c.record.Training = t
	c.dirty[schema.StepTraining] = true
}

func (c *Controller) SetAdditional(a models.AdditionalInfo) {
	c.record.Additional = a
}

func (c *Controller) stay() Transition {
	return Transition{Step: c.state.Current}
}

func (c *Controller) advance(warning error) Transition {
	c.state.Completed[c.state.Current] = true
	c.state.Current++
	return Transition{Moved: true, Step: c.state.Current, Warning: warning}
}

func (c *Controller) lastCompleted() int {
	last := 0
	for step := range c.state.Completed {
		if step > last {
			last = step
		}
	}
	if last == 0 {
		last = schema.FirstStep
	}
	return last
}

// persist sends one step's slice plus the progress marker. Failures are
// returned for the caller to grade against the policy table.
func (c *Controller) persist(ctx context.Context, step, lastCompleted int) error {
	err := c.drafts.Update(ctx, c.state.ApplicationID, c.stepData(step, false), lastCompleted)
	if err != nil {
		c.logger.WarnContext(ctx, "draft save failed",
			"application_id", c.state.ApplicationID.String(),
			"step", step,
			"error", err,
		)
	}
	return err
}

// stepData extracts the slice of the record a step owns. The create call
// additionally carries the subject group per the backend contract.
func (c *Controller) stepData(step int, includeSubject bool) models.StepData {
	var data models.StepData
	switch step {
	case schema.StepPersonal:
		p := c.record.Personal
		data.Personal = &p
		if includeSubject {
			s := c.record.Subject
			data.Subject = &s
		}
	case schema.StepSubject:
		s := c.record.Subject
		data.Subject = &s
	case schema.StepQualifications:
		q := c.record.Qualifications
		data.Qualifications = &q
	case schema.StepTeaching:
		t := c.record.Teaching
		data.Teaching = &t
	case schema.StepWork:
		w := c.record.Work
		data.Work = &w
	case schema.StepExamining:
		e := c.record.Examining
		data.Examining = &e
	case schema.StepTraining:
		t := c.record.Training
		data.Training = &t
	case schema.StepAdditional:
		a := c.record.Additional
		data.Additional = &a
	}
	// Gate steps persist only the progress marker.
	return data
}

// merge copies the fetched record into the value store, skipping collections
// with in-flight local edits.
func (c *Controller) merge(rec *models.Record) {
	c.record.ID = rec.ID
	c.record.Status = rec.Status
	c.record.Personal = rec.Personal
	c.record.Subject = rec.Subject
	c.record.Additional = rec.Additional
	c.record.LastCompletedStep = rec.LastCompletedStep
	c.record.Documents = rec.Documents

	if !c.dirty[schema.StepQualifications] {
		c.record.Qualifications = rec.Qualifications
	}
	if !c.dirty[schema.StepTeaching] {
		c.record.Teaching = rec.Teaching
	}
	if !c.dirty[schema.StepWork] {
		c.record.Work = rec.Work
	}
	if !c.dirty[schema.StepExamining] {
		c.record.Examining = rec.Examining
	}
	if !c.dirty[schema.StepTraining] {
		c.record.Training = rec.Training
	}
}
