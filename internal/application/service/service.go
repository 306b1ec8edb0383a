package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"intake/internal/application/models"
	"intake/internal/application/resumecode"
	"intake/internal/application/schema"
	"intake/internal/audit"
	"intake/internal/platform/metrics"
	"intake/internal/platform/middleware"
	id "intake/pkg/domain"
	dErrors "intake/pkg/domain-errors"
	"intake/pkg/platform/sentinel"
)

type DraftStore interface {
	Create(ctx context.Context, rec *models.Record, resumeCodeHash string) error
	Get(ctx context.Context, appID id.ApplicationID) (*models.Record, error)
	Update(ctx context.Context, appID id.ApplicationID, data models.StepData, lastCompletedStep int) (*models.Record, error)
	ResumeCodeHash(ctx context.Context, appID id.ApplicationID) (string, error)
	Submit(ctx context.Context, appID id.ApplicationID, at time.Time) error
}

type DocumentLister interface {
	ListByApplication(ctx context.Context, appID id.ApplicationID) ([]models.Document, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service orchestrates draft application lifecycle: creation, step saves,
// resume, and submission.
type Service struct {
	drafts         DraftStore
	documents      DocumentLister
	cache          *SnapshotCache
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
	tracer         trace.Tracer
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithSnapshotCache serves reads from a cache ahead of the store. Writes
// invalidate; a cache miss or failure falls through to the store.
func WithSnapshotCache(cache *SnapshotCache) Option {
	return func(s *Service) {
		s.cache = cache
	}
}

// New constructs a Service.
func New(drafts DraftStore, documents DocumentLister, opts ...Option) *Service {
	s := &Service{
		drafts:    drafts,
		documents: documents,
		logger:    slog.Default(),
		tracer:    otel.Tracer("intake/application"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateResult is returned once per draft; the plaintext resume code is
// never recoverable afterwards.
type CreateResult struct {
	Record     *models.Record
	ResumeCode string
}

// Create opens a draft from the accumulated step 1 data, plus the step 2
// subject selection when the client has already reached it. The step schemas
// are re-run server-side so a bypassed client cannot persist an invalid
// opening slice; the subject schema only runs once the group is populated,
// since the workflow opens the draft on leaving step 1.
func (s *Service) Create(ctx context.Context, req models.CreateApplicationRequest) (*CreateResult, error) {
	ctx, span := s.tracer.Start(ctx, "application.Create")
	defer span.End()

	now := time.Now()
	rec := &models.Record{
		ID:                id.NewApplicationID(),
		Status:            models.StatusDraft,
		Personal:          req.Personal,
		Subject:           req.Subject,
		LastCompletedStep: 1,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := schema.Validate(schema.StepPersonal, rec); err != nil {
		s.incrementValidationFailure("create")
		return nil, err
	}
	if rec.Subject != (models.SubjectSelection{}) {
		if err := schema.Validate(schema.StepSubject, rec); err != nil {
			s.incrementValidationFailure("create")
			return nil, err
		}
	}

	code, err := resumecode.Generate()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue resume code")
	}
	hash, err := resumecode.Hash(code)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue resume code")
	}

	if err := s.drafts.Create(ctx, rec, hash); err != nil {
		span.RecordError(err)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create application")
	}

	span.SetAttributes(attribute.String("application_id", rec.ID.String()))
	s.logAudit(ctx, rec.ID, audit.EventApplicationCreated, nil)
	s.incrementCounter(func(m *metrics.Metrics) { m.ApplicationsCreated.Inc() })

	return &CreateResult{Record: rec, ResumeCode: code}, nil
}

// Update merges one step slice into the draft. The progress marker is a
// high-water mark; the store refuses regressions and post-submission writes.
func (s *Service) Update(ctx context.Context, appID id.ApplicationID, req models.UpdateDraftRequest) (*models.Record, error) {
	ctx, span := s.tracer.Start(ctx, "application.Update",
		trace.WithAttributes(attribute.Int("last_completed_step", req.LastCompletedStep)))
	defer span.End()

	rec, err := s.drafts.Update(ctx, appID, req.Data, req.LastCompletedStep)
	if err != nil {
		span.RecordError(err)
		return nil, s.translateStoreError(err, "failed to update application")
	}
	s.invalidateSnapshot(ctx, appID)

	s.incrementCounter(func(m *metrics.Metrics) {
		m.StepSaves.WithLabelValues(strconv.Itoa(req.LastCompletedStep)).Inc()
	})
	return s.withDocuments(ctx, rec), nil
}

// Fetch returns the draft with its attachments. Legacy free text is scrubbed
// on the way out, never rewritten in place.
func (s *Service) Fetch(ctx context.Context, appID id.ApplicationID) (*models.Record, error) {
	ctx, span := s.tracer.Start(ctx, "application.Fetch")
	defer span.End()

	if rec := s.snapshotGet(ctx, appID); rec != nil {
		return rec, nil
	}

	rec, err := s.drafts.Get(ctx, appID)
	if err != nil {
		span.RecordError(err)
		return nil, s.translateStoreError(err, "failed to fetch application")
	}

	scrubRecord(rec)
	rec = s.withDocuments(ctx, rec)
	s.snapshotSet(ctx, rec)
	return rec, nil
}

// Resume verifies a resume code against the stored hash and returns the
// draft for session issuance. An unknown application and a wrong code are
// indistinguishable to the caller.
func (s *Service) Resume(ctx context.Context, req models.ResumeRequest) (*models.Record, error) {
	ctx, span := s.tracer.Start(ctx, "application.Resume")
	defer span.End()

	appID, err := id.ParseApplicationID(req.ApplicationID)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid application or resume code")
	}

	hash, err := s.drafts.ResumeCodeHash(ctx, appID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid application or resume code")
		}
		span.RecordError(err)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resume application")
	}
	if err := resumecode.Verify(req.ResumeCode, hash); err != nil {
		if dErrors.HasCode(err, dErrors.CodeUnauthorized) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid application or resume code")
		}
		span.RecordError(err)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resume application")
	}

	rec, err := s.drafts.Get(ctx, appID)
	if err != nil {
		span.RecordError(err)
		return nil, s.translateStoreError(err, "failed to resume application")
	}

	scrubRecord(rec)
	rec = s.withDocuments(ctx, rec)

	s.logAudit(ctx, appID, audit.EventApplicationResumed, nil)
	s.incrementCounter(func(m *metrics.Metrics) { m.ApplicationsResumed.Inc() })
	return rec, nil
}

// Submit finalises the draft. The transition is one-way; a second submit
// reports conflict.
func (s *Service) Submit(ctx context.Context, appID id.ApplicationID) (*models.Record, error) {
	ctx, span := s.tracer.Start(ctx, "application.Submit")
	defer span.End()

	if err := s.drafts.Submit(ctx, appID, time.Now()); err != nil {
		span.RecordError(err)
		return nil, s.translateStoreError(err, "failed to submit application")
	}
	s.invalidateSnapshot(ctx, appID)

	rec, err := s.drafts.Get(ctx, appID)
	if err != nil {
		span.RecordError(err)
		return nil, s.translateStoreError(err, "failed to fetch submitted application")
	}

	s.logAudit(ctx, appID, audit.EventApplicationSubmitted, nil)
	s.incrementCounter(func(m *metrics.Metrics) { m.ApplicationsSubmitted.Inc() })
	return s.withDocuments(ctx, rec), nil
}

func (s *Service) withDocuments(ctx context.Context, rec *models.Record) *models.Record {
	if s.documents == nil || rec == nil {
		return rec
	}
	docs, err := s.documents.ListByApplication(ctx, rec.ID)
	if err != nil {
		// A record without its attachment list is still useful; log and move on.
		s.logger.WarnContext(ctx, "failed to list documents",
			"application_id", rec.ID, "error", err)
		return rec
	}
	rec.Documents = docs
	return rec
}

func (s *Service) translateStoreError(err error, message string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "application not found")
	case errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.New(dErrors.CodeConflict, "application has already been submitted")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, "application already exists")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, message)
	}
}

func (s *Service) snapshotGet(ctx context.Context, appID id.ApplicationID) *models.Record {
	if s.cache == nil {
		return nil
	}
	return s.cache.Get(ctx, appID)
}

func (s *Service) snapshotSet(ctx context.Context, rec *models.Record) {
	if s.cache != nil && rec != nil {
		s.cache.Set(ctx, rec)
	}
}

func (s *Service) invalidateSnapshot(ctx context.Context, appID id.ApplicationID) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, appID)
	}
}

func (s *Service) logAudit(ctx context.Context, appID id.ApplicationID, event audit.AuditEvent, detail map[string]string) {
	requestID := middleware.GetRequestID(ctx)
	s.logger.InfoContext(ctx, string(event),
		"application_id", appID,
		"request_id", requestID,
		"log_type", "audit",
	)
	if s.auditPublisher == nil {
		return
	}
	_ = s.auditPublisher.Emit(ctx, audit.Event{
		ApplicationID: appID,
		Action:        string(event),
		RequestID:     requestID,
		Detail:        audit.DetailWithClient(ctx, detail),
	})
}

func (s *Service) incrementCounter(inc func(m *metrics.Metrics)) {
	if s.metrics != nil {
		inc(s.metrics)
	}
}

func (s *Service) incrementValidationFailure(operation string) {
	if s.metrics != nil {
		s.metrics.ValidationFailures.WithLabelValues(operation).Inc()
	}
}
