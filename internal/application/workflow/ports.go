package workflow

import (
	"context"

	"intake/internal/application/models"
	id "intake/pkg/domain"
)

// DraftPersistence is the backend contract the controller drives. The draft
// is created once, updated on every committed transition, and submitted from
// the final step. Update is idempotent: repeated calls with the same payload
// produce the same resulting record.
type DraftPersistence interface {
	Create(ctx context.Context, data models.StepData) (id.ApplicationID, error)
	Update(ctx context.Context, appID id.ApplicationID, data models.StepData, lastCompletedStep int) error
	Fetch(ctx context.Context, appID id.ApplicationID) (*models.Record, error)
	Submit(ctx context.Context, appID id.ApplicationID) error
}

// DocumentLister reports the attachments currently bound to the draft; the
// documents gate consumes it.
type DocumentLister interface {
	List(ctx context.Context, appID id.ApplicationID) ([]models.Document, error)
}

// PriceQuoter fetches the current pricing state for the draft; the payment
// gate consumes it. Quotes are fetched fresh on every check, never cached.
type PriceQuoter interface {
	Quote(ctx context.Context, appID id.ApplicationID) (models.PriceQuote, error)
}
