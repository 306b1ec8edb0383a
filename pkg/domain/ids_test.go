package domain

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "intake/pkg/domain-errors"
)

// TestParseUUID_Invariants validates the parsing invariant:
// "IDs must be valid, non-empty, non-nil UUIDs"
func TestParseUUID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseApplicationID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseApplicationID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseApplicationID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		validUUID := uuid.New()
		id, err := ParseApplicationID(validUUID.String())
		require.NoError(t, err)
		assert.Equal(t, ApplicationID(validUUID), id)
	})
}

// TestTypeDistinction verifies the compiler enforces type safety.
// This is a compile-time check - if this compiles, the invariant holds.
func TestTypeDistinction(t *testing.T) {
	appID := ApplicationID(uuid.New())
	docID := DocumentID(uuid.New())

	// These would fail to compile if types were interchangeable:
	// var _ ApplicationID = docID   // compile error
	// var _ DocumentID = appID      // compile error

	// Verify they're distinct at runtime too
	assert.NotEqual(t, uuid.UUID(appID), uuid.UUID(docID))
}

// TestParseID_TrustBoundary validates parsing rules at API entry points.
func TestParseID_TrustBoundary(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		// Attack vectors
		{"SQL injection attempt", "'; DROP TABLE applications;--", true},
		{"Path traversal", "../../../etc/passwd", true},
		{"Null byte injection", "550e8400\x00-e29b-41d4-a716-446655440000", true},
		{"Oversized input", strings.Repeat("a", 1000), true},

		// Edge cases
		{"Empty string", "", true},
		{"Nil UUID", uuid.Nil.String(), true},
		{"Whitespace only", "   ", true},
		{"Uppercase valid UUID", "550E8400-E29B-41D4-A716-446655440000", false},

		// Valid
		{"Valid UUID lowercase", "550e8400-e29b-41d4-a716-446655440000", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseApplicationID(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
			} else {
				require.NoError(t, err)
			}
		})
	}
}

// TestIDJSONRepresentation pins the wire shape: IDs travel as canonical
// UUID strings, never as raw byte arrays.
func TestIDJSONRepresentation(t *testing.T) {
	type envelope struct {
		App ApplicationID `json:"app"`
		Doc DocumentID    `json:"doc"`
	}

	in := envelope{App: NewApplicationID(), Doc: NewDocumentID()}

	raw, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"app":"`+in.App.String()+`","doc":"`+in.Doc.String()+`"}`,
		string(raw))

	var out envelope
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, in, out)

	t.Run("rejects malformed text", func(t *testing.T) {
		var e envelope
		err := json.Unmarshal([]byte(`{"app":"not-a-uuid"}`), &e)
		require.Error(t, err)
	})
}

// TestAllIDTypes_ConsistentBehavior ensures both ID types share the same
// parsing rules so no entry point is laxer than another.
func TestAllIDTypes_ConsistentBehavior(t *testing.T) {
	validUUID := uuid.New().String()
	invalidInputs := []string{"", "invalid", uuid.Nil.String()}

	t.Run("all accept valid UUID", func(t *testing.T) {
		_, errApp := ParseApplicationID(validUUID)
		_, errDoc := ParseDocumentID(validUUID)

		require.NoError(t, errApp)
		require.NoError(t, errDoc)
	})

	for _, input := range invalidInputs {
		t.Run("all reject: "+input, func(t *testing.T) {
			_, errApp := ParseApplicationID(input)
			_, errDoc := ParseDocumentID(input)

			require.Error(t, errApp)
			require.Error(t, errDoc)
		})
	}
}
