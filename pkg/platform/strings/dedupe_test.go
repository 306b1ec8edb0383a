package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeAndTrim(t *testing.T) {
	tests := []struct {
		name  string
		input []string
		want  []string
	}{
		{
			name:  "trims and drops duplicates preserving order",
			input: []string{" broker-1:9092 ", "broker-2:9092", "broker-1:9092"},
			want:  []string{"broker-1:9092", "broker-2:9092"},
		},
		{
			name:  "drops empty and whitespace-only entries",
			input: []string{"", "  ", "broker-1:9092"},
			want:  []string{"broker-1:9092"},
		},
		{
			name:  "nil stays nil",
			input: nil,
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DedupeAndTrim(tt.input))
		})
	}
}
