// Package domain holds shared domain primitives: typed identifiers that
// prevent cross-type mixups at compile time.
package domain

import (
	"github.com/google/uuid"

	dErrors "intake/pkg/domain-errors"
)

// ApplicationID identifies a draft (and later submitted) application.
type ApplicationID uuid.UUID

// DocumentID identifies a document attached to an application.
type DocumentID uuid.UUID

// NewApplicationID generates a fresh application identifier.
func NewApplicationID() ApplicationID {
	return ApplicationID(uuid.New())
}

// NewDocumentID generates a fresh document identifier.
func NewDocumentID() DocumentID {
	return DocumentID(uuid.New())
}

// ParseApplicationID validates and converts a string into an ApplicationID.
// IDs must be valid, non-empty, non-nil UUIDs.
func ParseApplicationID(s string) (ApplicationID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return ApplicationID{}, err
	}
	return ApplicationID(u), nil
}

// ParseDocumentID validates and converts a string into a DocumentID.
func ParseDocumentID(s string) (DocumentID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return DocumentID{}, err
	}
	return DocumentID(u), nil
}

func parseUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "id is not a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id cannot be the nil UUID")
	}
	return u, nil
}

func (id ApplicationID) String() string { return uuid.UUID(id).String() }
func (id DocumentID) String() string    { return uuid.UUID(id).String() }

// MarshalText renders the id in canonical UUID form, so JSON bodies carry
// the string representation rather than the raw byte array.
func (id ApplicationID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

// UnmarshalText parses a canonical UUID string.
func (id *ApplicationID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }

// MarshalText renders the id in canonical UUID form.
func (id DocumentID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

// UnmarshalText parses a canonical UUID string.
func (id *DocumentID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }

// IsNil reports whether the id is unset.
func (id ApplicationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// IsNil reports whether the id is unset.
func (id DocumentID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
