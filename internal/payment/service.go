package payment

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/google/uuid"

	"intake/internal/application/models"
	"intake/internal/audit"
	"intake/internal/platform/metrics"
	"intake/internal/platform/middleware"
	id "intake/pkg/domain"
	dErrors "intake/pkg/domain-errors"
	"intake/pkg/platform/sentinel"
)

type DraftStore interface {
	Get(ctx context.Context, appID id.ApplicationID) (*models.Record, error)
	RecordPayment(ctx context.Context, appID id.ApplicationID, amount int64) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service prices applications and records settled payments. The fee is flat
// per application; partial payments reduce the outstanding amount.
type Service struct {
	drafts         DraftStore
	fee            int64
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

// New constructs a Service. The fee is in the minor currency unit.
func New(drafts DraftStore, fee int64, opts ...Option) *Service {
	s := &Service{drafts: drafts, fee: fee, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Quote reports what is still owed on an application.
func (s *Service) Quote(ctx context.Context, appID id.ApplicationID) (models.PriceQuote, error) {
	rec, err := s.drafts.Get(ctx, appID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.PriceQuote{}, dErrors.New(dErrors.CodeNotFound, "application not found")
		}
		return models.PriceQuote{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "pricing is unavailable")
	}

	due := s.fee - rec.AmountPaid
	if due < 0 {
		due = 0
	}
	return models.PriceQuote{
		AmountDue:       due,
		PaymentRequired: due > 0,
		HasPricing:      true,
	}, nil
}

// Intent is a handle for an in-flight payment with an external provider.
type Intent struct {
	Reference string `json:"reference"`
	AmountDue int64  `json:"amount_due"`
}

// Initialize opens a payment against the outstanding amount. The reference
// ties the provider callback back to this application.
func (s *Service) Initialize(ctx context.Context, appID id.ApplicationID) (Intent, error) {
	quote, err := s.Quote(ctx, appID)
	if err != nil {
		return Intent{}, err
	}
	if !quote.PaymentRequired {
		return Intent{}, dErrors.New(dErrors.CodeConflict, "no payment is outstanding")
	}
	return Intent{
		Reference: uuid.NewString(),
		AmountDue: quote.AmountDue,
	}, nil
}

// Complete records a settled payment for the full outstanding amount and
// returns the fresh quote.
func (s *Service) Complete(ctx context.Context, appID id.ApplicationID, reference string) (models.PriceQuote, error) {
	quote, err := s.Quote(ctx, appID)
	if err != nil {
		return models.PriceQuote{}, err
	}
	if !quote.PaymentRequired {
		return models.PriceQuote{}, dErrors.New(dErrors.CodeConflict, "no payment is outstanding")
	}

	if err := s.drafts.RecordPayment(ctx, appID, quote.AmountDue); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return models.PriceQuote{}, dErrors.New(dErrors.CodeNotFound, "application not found")
		case errors.Is(err, sentinel.ErrInvalidState):
			return models.PriceQuote{}, dErrors.New(dErrors.CodeConflict, "application has already been submitted")
		default:
			return models.PriceQuote{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record payment")
		}
	}

	s.logAudit(ctx, appID, map[string]string{
		"reference": reference,
		"amount":    strconv.FormatInt(quote.AmountDue, 10),
	})
	if s.metrics != nil {
		s.metrics.PaymentsCompleted.Inc()
	}
	return models.PriceQuote{HasPricing: true}, nil
}

func (s *Service) logAudit(ctx context.Context, appID id.ApplicationID, detail map[string]string) {
	requestID := middleware.GetRequestID(ctx)
	s.logger.InfoContext(ctx, string(audit.EventPaymentCompleted),
		"application_id", appID,
		"request_id", requestID,
		"log_type", "audit",
	)
	if s.auditPublisher == nil {
		return
	}
	_ = s.auditPublisher.Emit(ctx, audit.Event{
		ApplicationID: appID,
		Action:        string(audit.EventPaymentCompleted),
		RequestID:     requestID,
		Detail:        audit.DetailWithClient(ctx, detail),
	})
}
