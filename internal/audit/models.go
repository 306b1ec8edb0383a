package audit

import (
	"context"
	"time"

	id "intake/pkg/domain"
)

// AuditEvent enumerates the actions the intake workflow records.
type AuditEvent string

const (
	EventApplicationCreated   AuditEvent = "application.created"
	EventApplicationResumed   AuditEvent = "application.resumed"
	EventApplicationSubmitted AuditEvent = "application.submitted"
	EventDocumentUploaded     AuditEvent = "document.uploaded"
	EventDocumentDeleted      AuditEvent = "document.deleted"
	EventPaymentCompleted     AuditEvent = "payment.completed"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so sinks can fan out.
type Event struct {
	Timestamp     time.Time
	ApplicationID id.ApplicationID
	Action        string
	RequestID     string
	Detail        map[string]string
}

// Sink receives audit events. Implementations are append-only.
type Sink interface {
	Append(ctx context.Context, event Event) error
}
