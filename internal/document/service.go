package document

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"intake/internal/application/models"
	"intake/internal/audit"
	"intake/internal/platform/metrics"
	"intake/internal/platform/middleware"
	id "intake/pkg/domain"
	dErrors "intake/pkg/domain-errors"
	"intake/pkg/platform/sentinel"
)

type Store interface {
	Add(ctx context.Context, doc models.Document, content []byte) error
	Delete(ctx context.Context, appID id.ApplicationID, docID id.DocumentID) error
	ListByApplication(ctx context.Context, appID id.ApplicationID) ([]models.Document, error)
	Content(ctx context.Context, appID id.ApplicationID, docID id.DocumentID) (models.Document, []byte, error)
}

// DraftChecker guards uploads against applications that have already been
// submitted.
type DraftChecker interface {
	Get(ctx context.Context, appID id.ApplicationID) (*models.Record, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service manages application attachments under the per-type policies.
type Service struct {
	store          Store
	drafts         DraftChecker
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
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

// New constructs a Service.
func New(store Store, drafts DraftChecker, opts ...Option) *Service {
	s := &Service{store: store, drafts: drafts, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Upload attaches a file to a draft. Photographs replace the existing one;
// other types append until their cap.
func (s *Service) Upload(ctx context.Context, appID id.ApplicationID, rawType, fileName string, content []byte) (models.Document, error) {
	docType, err := models.ParseDocumentType(rawType)
	if err != nil {
		return models.Document{}, err
	}
	if fileName == "" {
		return models.Document{}, dErrors.New(dErrors.CodeValidation, "file name is required")
	}
	if len(content) == 0 {
		return models.Document{}, dErrors.New(dErrors.CodeValidation, "file is empty")
	}
	if len(content) > models.MaxUploadBytes {
		return models.Document{}, dErrors.Newf(dErrors.CodeValidation,
			"file exceeds the %d byte upload limit", models.MaxUploadBytes)
	}

	rec, err := s.drafts.Get(ctx, appID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.Document{}, dErrors.New(dErrors.CodeNotFound, "application not found")
		}
		return models.Document{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load application")
	}
	if rec.Status != models.StatusDraft {
		return models.Document{}, dErrors.New(dErrors.CodeConflict, "application has already been submitted")
	}

	existing, err := s.store.ListByApplication(ctx, appID)
	if err != nil {
		return models.Document{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list documents")
	}

	policy := models.PolicyFor(docType)
	count := models.CountByType(existing)[docType]
	switch {
	case policy.ReplaceOnUpload && count > 0:
		for _, old := range existing {
			if old.Type != docType {
				continue
			}
			if err := s.store.Delete(ctx, appID, old.ID); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
				return models.Document{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to replace document")
			}
		}
	case count >= policy.MaxCount:
		return models.Document{}, dErrors.Newf(dErrors.CodeValidation,
			"at most %d %s documents are allowed", policy.MaxCount, docType)
	}

	doc := models.Document{
		ID:            id.NewDocumentID(),
		ApplicationID: appID,
		Type:          docType,
		FileName:      fileName,
		FileSize:      int64(len(content)),
		UploadedAt:    time.Now(),
	}
	if err := s.store.Add(ctx, doc, content); err != nil {
		return models.Document{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store document")
	}

	s.logAudit(ctx, appID, audit.EventDocumentUploaded, map[string]string{
		"document_id": doc.ID.String(),
		"type":        docType.String(),
	})
	if s.metrics != nil {
		s.metrics.DocumentUploads.WithLabelValues(docType.String()).Inc()
	}
	return doc, nil
}

// Delete removes an attachment from a draft.
func (s *Service) Delete(ctx context.Context, appID id.ApplicationID, docID id.DocumentID) error {
	if err := s.store.Delete(ctx, appID, docID); err != nil {
		return s.translateStoreError(err)
	}
	s.logAudit(ctx, appID, audit.EventDocumentDeleted, map[string]string{
		"document_id": docID.String(),
	})
	return nil
}

// List returns a draft's attachments in upload order.
func (s *Service) List(ctx context.Context, appID id.ApplicationID) ([]models.Document, error) {
	docs, err := s.store.ListByApplication(ctx, appID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list documents")
	}
	return docs, nil
}

// Download returns an attachment's metadata and bytes.
func (s *Service) Download(ctx context.Context, appID id.ApplicationID, docID id.DocumentID) (models.Document, []byte, error) {
	doc, content, err := s.store.Content(ctx, appID, docID)
	if err != nil {
		return models.Document{}, nil, s.translateStoreError(err)
	}
	return doc, content, nil
}

func (s *Service) translateStoreError(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "document not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, "document already exists")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "document store failure")
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
